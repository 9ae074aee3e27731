package integro

import (
	"encoding/json"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"
)

// ParameterKey identifies one object dictionary entry
type ParameterKey struct {
	Index    uint16
	SubIndex uint8
}

func (key ParameterKey) String() string {
	return MakeParameterId(key.Index, key.SubIndex)
}

// Parameter is one object dictionary entry of the drive.
// Data holds the raw little endian value bytes, the typed view is
// derived from DataType on access.
type Parameter struct {
	Name       string
	Index      uint16
	SubIndex   uint8
	BitLength  uint16
	ByteLength int
	DataType   ObjectDataType
	Code       ObjectCode
	Flags      ObjectFlags
	Access     ObjectFlags
	Data       []byte
}

func (p *Parameter) Key() ParameterKey {
	return ParameterKey{Index: p.Index, SubIndex: p.SubIndex}
}

// Value decodes the raw data into a typed variant
func (p *Parameter) Value() (ParameterValue, error) {
	return decodeValue(p.DataType, p.Data)
}

func (p *Parameter) Bool() (bool, error) {
	value, err := p.Value()
	if err != nil {
		return false, err
	}
	return value.Bool()
}

func (p *Parameter) Int8() (int8, error) {
	value, err := p.Value()
	if err != nil {
		return 0, err
	}
	return value.Int8()
}

func (p *Parameter) Int16() (int16, error) {
	value, err := p.Value()
	if err != nil {
		return 0, err
	}
	return value.Int16()
}

func (p *Parameter) Int32() (int32, error) {
	value, err := p.Value()
	if err != nil {
		return 0, err
	}
	return value.Int32()
}

func (p *Parameter) Int64() (int64, error) {
	value, err := p.Value()
	if err != nil {
		return 0, err
	}
	return value.Int64()
}

func (p *Parameter) Uint8() (uint8, error) {
	value, err := p.Value()
	if err != nil {
		return 0, err
	}
	return value.Uint8()
}

func (p *Parameter) Uint16() (uint16, error) {
	value, err := p.Value()
	if err != nil {
		return 0, err
	}
	return value.Uint16()
}

func (p *Parameter) Uint32() (uint32, error) {
	value, err := p.Value()
	if err != nil {
		return 0, err
	}
	return value.Uint32()
}

func (p *Parameter) Uint64() (uint64, error) {
	value, err := p.Value()
	if err != nil {
		return 0, err
	}
	return value.Uint64()
}

func (p *Parameter) Float32() (float32, error) {
	value, err := p.Value()
	if err != nil {
		return 0, err
	}
	return value.Float32()
}

func (p *Parameter) Float64() (float64, error) {
	value, err := p.Value()
	if err != nil {
		return 0, err
	}
	return value.Float64()
}

// Text decodes the value as a string
func (p *Parameter) Text() (string, error) {
	value, err := p.Value()
	if err != nil {
		return "", err
	}
	return value.Text()
}

// Bytes returns a copy of the raw value bytes
func (p *Parameter) Bytes() []byte {
	data := make([]byte, len(p.Data))
	copy(data, p.Data)
	return data
}

// SetValue encodes the given value into the raw data buffer.
// ByteLength is reset to the encoded length.
func (p *Parameter) SetValue(value ParameterValue) error {
	data, err := encodeValue(p.DataType, value, p.ByteLength)
	if err != nil {
		return fmt.Errorf("set %v: %w", p.Key(), err)
	}
	p.Data = data
	p.ByteLength = len(data)
	return nil
}

// TrySet sets the value only if its kind matches the parameter data type.
// A raw bytes value is always accepted.
func (p *Parameter) TrySet(value ParameterValue) bool {
	if value.Kind() != KIND_BYTES {
		expected, ok := expectedKind(p.DataType)
		if !ok || value.Kind() != expected {
			return false
		}
	}
	return p.SetValue(value) == nil
}

// Less orders parameters by (index, subindex)
func (p *Parameter) Less(other *Parameter) bool {
	if p.Index != other.Index {
		return p.Index < other.Index
	}
	return p.SubIndex < other.SubIndex
}

// Equal compares parameter identity, not contents
func (p *Parameter) Equal(other *Parameter) bool {
	return p.Index == other.Index && p.SubIndex == other.SubIndex
}

func (p *Parameter) String() string {
	return fmt.Sprintf("%v %q type x%04x bits %d flags x%04x access x%04x data [%s]",
		p.Key(), p.Name, uint16(p.DataType), p.BitLength, uint16(p.Flags), uint16(p.Access), BytesToHexString(p.Data))
}

// JSON shape with enums as numeric codes and data as a number array
type parameterJson struct {
	Name       string `json:"name"`
	Index      uint16 `json:"index"`
	Subindex   uint8  `json:"subindex"`
	BitLength  uint16 `json:"bitLength"`
	ByteLength int    `json:"byteLength"`
	DataType   uint16 `json:"dataType"`
	Code       uint16 `json:"code"`
	Flags      uint16 `json:"flags"`
	Access     uint16 `json:"access"`
	Data       []int  `json:"data"`
}

func (p *Parameter) MarshalJSON() ([]byte, error) {
	data := make([]int, len(p.Data))
	for i, b := range p.Data {
		data[i] = int(b)
	}
	return json.Marshal(parameterJson{
		Name:       p.Name,
		Index:      p.Index,
		Subindex:   p.SubIndex,
		BitLength:  p.BitLength,
		ByteLength: p.ByteLength,
		DataType:   uint16(p.DataType),
		Code:       uint16(p.Code),
		Flags:      uint16(p.Flags),
		Access:     uint16(p.Access),
		Data:       data,
	})
}

func (p *Parameter) UnmarshalJSON(buffer []byte) error {
	var aux parameterJson
	if err := json.Unmarshal(buffer, &aux); err != nil {
		return err
	}
	p.Name = aux.Name
	p.Index = aux.Index
	p.SubIndex = aux.Subindex
	p.BitLength = aux.BitLength
	p.ByteLength = aux.ByteLength
	p.DataType = ObjectDataType(aux.DataType)
	p.Code = ObjectCode(aux.Code)
	p.Flags = ObjectFlags(aux.Flags)
	p.Access = ObjectFlags(aux.Access)
	p.Data = make([]byte, len(aux.Data))
	for i, v := range aux.Data {
		p.Data[i] = byte(v)
	}
	return nil
}

// SortParameters orders a slice by (index, subindex)
func SortParameters(parameters []Parameter) {
	sort.Slice(parameters, func(i, j int) bool {
		return parameters[i].Less(&parameters[j])
	})
}

// LogParameters dumps a parameter store, sorted by key when requested
func LogParameters(parameters map[ParameterKey]*Parameter, sorted bool) {
	keys := make([]ParameterKey, 0, len(parameters))
	for key := range parameters {
		keys = append(keys, key)
	}
	if sorted {
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].Index != keys[j].Index {
				return keys[i].Index < keys[j].Index
			}
			return keys[i].SubIndex < keys[j].SubIndex
		})
	}
	for _, key := range keys {
		log.Infof("[OD] %v", parameters[key])
	}
}
