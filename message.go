package integro

import (
	"encoding/binary"
	"fmt"
)

// Message types of the Integro Ethernet protocol,
// from the vendor "Ethernet interface definition" document
type EthernetMessageType uint8

const (
	MSG_SDO_READ        EthernetMessageType = 0x01
	MSG_SDO_WRITE       EthernetMessageType = 0x02
	MSG_PDO_RXTX_FRAME  EthernetMessageType = 0x03
	MSG_PDO_CONTROL     EthernetMessageType = 0x04
	MSG_PDO_MAP         EthernetMessageType = 0x05
	MSG_FIRMWARE_UPDATE EthernetMessageType = 0x0B
	MSG_FILE_READ       EthernetMessageType = 0x0C
	MSG_FILE_WRITE      EthernetMessageType = 0x0D
	MSG_STATE_CONTROL   EthernetMessageType = 0x0E
	MSG_STATE_READ      EthernetMessageType = 0x0F
	MSG_PARAM_FULL_LIST EthernetMessageType = 0x13
	MSG_SERVER_INFO     EthernetMessageType = 0x20
)

// Segmentation / error status of a message
type EthernetMessageStatus uint8

const (
	STATUS_OK     EthernetMessageStatus = 0x00
	STATUS_FIRST  EthernetMessageStatus = 0x80
	STATUS_MIDDLE EthernetMessageStatus = 0xC0
	STATUS_LAST   EthernetMessageStatus = 0x40
	STATUS_ERR    EthernetMessageStatus = 0x28
)

// Result of the internal SQI exchange with the SoC
type EthernetSqiReplyStatus uint8

const (
	SQI_BSY EthernetSqiReplyStatus = 0x28
	SQI_ACK EthernetSqiReplyStatus = 0x58
	SQI_ERR EthernetSqiReplyStatus = 0x63
)

const (
	// HeaderSize is the fixed size of the message header in bytes
	HeaderSize = 7
	// BufferSize is the maximum payload per message, one MTU minus header
	BufferSize = 1500 - HeaderSize
)

// EthernetMessage is one protocol frame: a 7 byte header plus payload.
// Header layout on the wire, all integers little endian:
// type(1) id(2) status(1) sqiStatus(1) size(2) data(size)
type EthernetMessage struct {
	Type      EthernetMessageType
	Id        uint16
	Status    EthernetMessageStatus
	SqiStatus EthernetSqiReplyStatus
	Size      uint16
	Data      []byte
}

// Serialize emits exactly HeaderSize + Size bytes.
// The caller owns payload sizing, Size must equal len(Data).
func (msg *EthernetMessage) Serialize() ([]byte, error) {
	if int(msg.Size) != len(msg.Data) {
		return nil, fmt.Errorf("%w: size field %d, payload %d bytes", ErrSizeMismatch, msg.Size, len(msg.Data))
	}
	if msg.Size > BufferSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrMessageTooLong, msg.Size, BufferSize)
	}
	buffer := make([]byte, HeaderSize+len(msg.Data))
	buffer[0] = byte(msg.Type)
	binary.LittleEndian.PutUint16(buffer[1:3], msg.Id)
	buffer[3] = byte(msg.Status)
	buffer[4] = byte(msg.SqiStatus)
	binary.LittleEndian.PutUint16(buffer[5:7], msg.Size)
	copy(buffer[HeaderSize:], msg.Data)
	return buffer, nil
}

// ParseEthernetMessage reads one frame from the start of buffer.
// Trailing bytes beyond the declared size are ignored, the caller is
// responsible for one-frame-per-call framing on the TCP stream.
// Unknown type, status and sqiStatus codes are preserved as is.
func ParseEthernetMessage(buffer []byte) (*EthernetMessage, error) {
	if len(buffer) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortHeader, len(buffer))
	}
	msg := &EthernetMessage{
		Type:      EthernetMessageType(buffer[0]),
		Id:        binary.LittleEndian.Uint16(buffer[1:3]),
		Status:    EthernetMessageStatus(buffer[3]),
		SqiStatus: EthernetSqiReplyStatus(buffer[4]),
		Size:      binary.LittleEndian.Uint16(buffer[5:7]),
	}
	if int(msg.Size) > len(buffer)-HeaderSize {
		return nil, fmt.Errorf("%w: declared %d, available %d", ErrTruncated, msg.Size, len(buffer)-HeaderSize)
	}
	msg.Data = make([]byte, msg.Size)
	copy(msg.Data, buffer[HeaderSize:HeaderSize+int(msg.Size)])
	return msg, nil
}
