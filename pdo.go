package integro

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Well known base indexes of the PDO mapping objects
const (
	BASE_RXPDO_MAPPING_INDEX uint16 = 0x1600
	BASE_TXPDO_MAPPING_INDEX uint16 = 0x1A00
)

// PdoMappingEntry maps one object dictionary entry into a PDO
type PdoMappingEntry struct {
	PdoIndex  uint16
	Index     uint16
	SubIndex  uint8
	BitLength uint8
}

// ByteSize is the number of whole bytes the entry occupies in the
// packed process data buffer. Non byte aligned entries are padded up.
func (entry PdoMappingEntry) ByteSize() int {
	return (int(entry.BitLength) + 7) / 8
}

func (entry PdoMappingEntry) String() string {
	return fmt.Sprintf("x%04x -> %s (%d bits)", entry.PdoIndex, MakeParameterId(entry.Index, entry.SubIndex), entry.BitLength)
}

// DecodePdoMappingWord expands a 32 bit mapping word in EtherCAT
// convention: object index in the upper 16 bits, subindex in the next 8,
// bit length in the low 8.
func DecodePdoMappingWord(pdoIndex uint16, word uint32) PdoMappingEntry {
	return PdoMappingEntry{
		PdoIndex:  pdoIndex,
		Index:     uint16(word >> 16),
		SubIndex:  uint8(word >> 8),
		BitLength: uint8(word),
	}
}

// EncodePdoMappingWord packs an entry back into its 32 bit word
func EncodePdoMappingWord(entry PdoMappingEntry) uint32 {
	return uint32(entry.Index)<<16 | uint32(entry.SubIndex)<<8 | uint32(entry.BitLength)
}

// PdoMappings holds the ordered RxPDO and TxPDO mapping entries.
// Order defines the packing order on the wire.
type PdoMappings struct {
	RxPdos []PdoMappingEntry
	TxPdos []PdoMappingEntry
}

// RxSize is the packed size of the host to device direction in bytes
func (mappings *PdoMappings) RxSize() int {
	return packedSize(mappings.RxPdos)
}

// TxSize is the packed size of the device to host direction in bytes
func (mappings *PdoMappings) TxSize() int {
	return packedSize(mappings.TxPdos)
}

func packedSize(entries []PdoMappingEntry) int {
	size := 0
	for _, entry := range entries {
		size += entry.ByteSize()
	}
	return size
}

// parameterLookup resolves a dictionary entry during process data
// packing and unpacking
type parameterLookup func(index uint16, subindex uint8) (*Parameter, error)

// packProcessData concatenates the current data of every mapped
// parameter in entry order. Each slot is the entry byte size, parameter
// data is zero padded or truncated to fit.
func packProcessData(entries []PdoMappingEntry, lookup parameterLookup) ([]byte, error) {
	buffer := make([]byte, 0, packedSize(entries))
	for _, entry := range entries {
		parameter, err := lookup(entry.Index, entry.SubIndex)
		if err != nil {
			return nil, fmt.Errorf("pack %v: %w", entry, err)
		}
		slot := make([]byte, entry.ByteSize())
		copy(slot, parameter.Data)
		buffer = append(buffer, slot...)
	}
	return buffer, nil
}

// unpackProcessData slices the received buffer at the mapping offsets and
// assigns each slice to the referenced parameter. A buffer shorter than
// the mapped size stops the update at the boundary with a warning,
// trailing unmapped bytes are warned about and dropped.
func unpackProcessData(entries []PdoMappingEntry, buffer []byte, lookup parameterLookup) error {
	offset := 0
	for _, entry := range entries {
		size := entry.ByteSize()
		if offset+size > len(buffer) {
			log.Warnf("[PDO] received %d bytes, not enough for %v, stopping update", len(buffer), entry)
			return nil
		}
		parameter, err := lookup(entry.Index, entry.SubIndex)
		if err != nil {
			return fmt.Errorf("unpack %v: %w", entry, err)
		}
		data := make([]byte, size)
		copy(data, buffer[offset:offset+size])
		parameter.Data = data
		parameter.ByteLength = size
		offset += size
	}
	if offset < len(buffer) {
		log.Warnf("[PDO] %d trailing bytes not mapped to any parameter, discarding", len(buffer)-offset)
	}
	return nil
}
