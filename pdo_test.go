package integro

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodePdoMappingWord(t *testing.T) {
	entry := DecodePdoMappingWord(0x1600, 0x607A0020)
	assert.Equal(t, uint16(0x1600), entry.PdoIndex)
	assert.Equal(t, uint16(0x607A), entry.Index)
	assert.Equal(t, uint8(0x00), entry.SubIndex)
	assert.Equal(t, uint8(0x20), entry.BitLength)
	assert.Equal(t, 4, entry.ByteSize())

	assert.Equal(t, uint32(0x607A0020), EncodePdoMappingWord(entry))
}

func TestPdoEntryByteSizePadsUp(t *testing.T) {
	entry := PdoMappingEntry{BitLength: 1}
	assert.Equal(t, 1, entry.ByteSize())
	entry.BitLength = 9
	assert.Equal(t, 2, entry.ByteSize())
	entry.BitLength = 16
	assert.Equal(t, 2, entry.ByteSize())
}

func pdoStore() map[ParameterKey]*Parameter {
	return map[ParameterKey]*Parameter{
		{0x6040, 0}: {Index: 0x6040, SubIndex: 0, DataType: UNSIGNED16, BitLength: 16, ByteLength: 2, Data: []byte{0x0F, 0x00}},
		{0x607A, 0}: {Index: 0x607A, SubIndex: 0, DataType: INTEGER32, BitLength: 32, ByteLength: 4, Data: []byte{0x10, 0x20, 0x30, 0x40}},
		{0x6041, 0}: {Index: 0x6041, SubIndex: 0, DataType: UNSIGNED16, BitLength: 16, ByteLength: 2, Data: []byte{0x00, 0x00}},
		{0x6064, 0}: {Index: 0x6064, SubIndex: 0, DataType: INTEGER32, BitLength: 32, ByteLength: 4, Data: []byte{0x00, 0x00, 0x00, 0x00}},
	}
}

func storeLookup(store map[ParameterKey]*Parameter) parameterLookup {
	return func(index uint16, subindex uint8) (*Parameter, error) {
		parameter, ok := store[ParameterKey{index, subindex}]
		if !ok {
			return nil, ErrNotFound
		}
		return parameter, nil
	}
}

func TestPackProcessData(t *testing.T) {
	store := pdoStore()
	entries := []PdoMappingEntry{
		{PdoIndex: 0x1600, Index: 0x6040, SubIndex: 0, BitLength: 16},
		{PdoIndex: 0x1600, Index: 0x607A, SubIndex: 0, BitLength: 32},
	}
	buffer, err := packProcessData(entries, storeLookup(store))
	assert.Nil(t, err)
	assert.Equal(t, []byte{0x0F, 0x00, 0x10, 0x20, 0x30, 0x40}, buffer)
}

func TestPackMissingParameter(t *testing.T) {
	entries := []PdoMappingEntry{{PdoIndex: 0x1600, Index: 0x9999, SubIndex: 0, BitLength: 8}}
	_, err := packProcessData(entries, storeLookup(pdoStore()))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPdoRoundTrip(t *testing.T) {
	// packing rx entries and unpacking the same buffer into identically
	// shaped tx entries must reproduce the source bytes exactly
	store := pdoStore()
	rx := []PdoMappingEntry{
		{PdoIndex: 0x1600, Index: 0x6040, SubIndex: 0, BitLength: 16},
		{PdoIndex: 0x1600, Index: 0x607A, SubIndex: 0, BitLength: 32},
	}
	tx := []PdoMappingEntry{
		{PdoIndex: 0x1A00, Index: 0x6041, SubIndex: 0, BitLength: 16},
		{PdoIndex: 0x1A00, Index: 0x6064, SubIndex: 0, BitLength: 32},
	}
	buffer, err := packProcessData(rx, storeLookup(store))
	assert.Nil(t, err)
	assert.Nil(t, unpackProcessData(tx, buffer, storeLookup(store)))
	assert.Equal(t, []byte{0x0F, 0x00}, store[ParameterKey{0x6041, 0}].Data)
	assert.Equal(t, []byte{0x10, 0x20, 0x30, 0x40}, store[ParameterKey{0x6064, 0}].Data)
}

func TestUnpackShortBufferStopsAtBoundary(t *testing.T) {
	store := pdoStore()
	tx := []PdoMappingEntry{
		{PdoIndex: 0x1A00, Index: 0x6041, SubIndex: 0, BitLength: 16},
		{PdoIndex: 0x1A00, Index: 0x6064, SubIndex: 0, BitLength: 32},
	}
	// only the first entry fits
	err := unpackProcessData(tx, []byte{0xAA, 0xBB, 0x01}, storeLookup(store))
	assert.Nil(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB}, store[ParameterKey{0x6041, 0}].Data)
	// second entry untouched
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x00}, store[ParameterKey{0x6064, 0}].Data)
}

func TestPdoMappingsSizes(t *testing.T) {
	mappings := PdoMappings{
		RxPdos: []PdoMappingEntry{{BitLength: 16}, {BitLength: 32}},
		TxPdos: []PdoMappingEntry{{BitLength: 1}, {BitLength: 9}},
	}
	assert.Equal(t, 6, mappings.RxSize())
	assert.Equal(t, 3, mappings.TxSize())
}
