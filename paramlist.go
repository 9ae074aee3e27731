package integro

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Fixed part of one full list record after the name: index(2) subindex(1)
// bitLength(2) dataType(2) code(2) flags(2) access(2)
const paramRecordFixedSize = 13

// decodeParameterList walks the accumulated PARAM_FULL_LIST payload and
// expands it into parameters. Each record is a NUL terminated name followed
// by the fixed little endian metadata fields and, when readValues is set,
// ceil(bitLength/8) raw value bytes.
//
// A record that cannot complete aborts the walk, the parameters decoded so
// far are returned together with the error.
func decodeParameterList(buffer []byte, readValues bool) ([]Parameter, error) {
	parameters := []Parameter{}
	offset := 0
	for offset < len(buffer) {
		nul := bytes.IndexByte(buffer[offset:], 0)
		if nul < 0 {
			return parameters, fmt.Errorf("%w: unterminated name at offset %d", ErrTruncated, offset)
		}
		name := string(buffer[offset : offset+nul])
		offset += nul + 1

		if len(buffer)-offset < paramRecordFixedSize {
			return parameters, fmt.Errorf("%w: record %q at offset %d", ErrTruncated, name, offset)
		}
		parameter := Parameter{
			Name:     name,
			Index:    binary.LittleEndian.Uint16(buffer[offset : offset+2]),
			SubIndex: buffer[offset+2],
		}
		parameter.BitLength = binary.LittleEndian.Uint16(buffer[offset+3 : offset+5])
		parameter.DataType = ObjectDataType(binary.LittleEndian.Uint16(buffer[offset+5 : offset+7]))
		parameter.Code = ObjectCode(binary.LittleEndian.Uint16(buffer[offset+7 : offset+9]))
		parameter.Flags = ObjectFlags(binary.LittleEndian.Uint16(buffer[offset+9 : offset+11]))
		parameter.Access = ObjectFlags(binary.LittleEndian.Uint16(buffer[offset+11 : offset+13]))
		offset += paramRecordFixedSize

		parameter.ByteLength = (int(parameter.BitLength) + 7) / 8
		if readValues {
			if len(buffer)-offset < parameter.ByteLength {
				return parameters, fmt.Errorf("%w: value of %v", ErrTruncated, parameter.Key())
			}
			parameter.Data = make([]byte, parameter.ByteLength)
			copy(parameter.Data, buffer[offset:offset+parameter.ByteLength])
			offset += parameter.ByteLength
		} else {
			parameter.Data = []byte{}
		}
		parameters = append(parameters, parameter)
	}
	return parameters, nil
}

// encodeParameterList is the inverse walk, used by the mock device in tests
// and for exporting a dictionary snapshot in device format
func encodeParameterList(parameters []Parameter, withValues bool) []byte {
	buffer := []byte{}
	for i := range parameters {
		p := &parameters[i]
		buffer = append(buffer, []byte(p.Name)...)
		buffer = append(buffer, 0)
		fixed := make([]byte, paramRecordFixedSize)
		binary.LittleEndian.PutUint16(fixed[0:2], p.Index)
		fixed[2] = p.SubIndex
		binary.LittleEndian.PutUint16(fixed[3:5], p.BitLength)
		binary.LittleEndian.PutUint16(fixed[5:7], uint16(p.DataType))
		binary.LittleEndian.PutUint16(fixed[7:9], uint16(p.Code))
		binary.LittleEndian.PutUint16(fixed[9:11], uint16(p.Flags))
		binary.LittleEndian.PutUint16(fixed[11:13], uint16(p.Access))
		buffer = append(buffer, fixed...)
		if withValues {
			value := make([]byte, (int(p.BitLength)+7)/8)
			copy(value, p.Data)
			buffer = append(buffer, value...)
		}
	}
	return buffer
}
