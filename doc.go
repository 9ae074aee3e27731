// Package integro is a pure golang client for SOMANET Integro servo drives
// connected over Ethernet (TCP).
//
// The drive exposes its CANopen style object dictionary, EtherCAT state
// machine, filesystem and firmware update mechanism through a proprietary
// length prefixed request/response protocol. This package implements the
// wire codec, the typed value handling for object dictionary entries and a
// client session with SDO, PDO, file and state operations.
package integro
