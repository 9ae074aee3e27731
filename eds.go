package integro

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"
)

// EDS section names: plain 4 digit hex for an index, "XXXXsubN" for a
// subindex entry
var (
	edsIndexRegExp    = regexp.MustCompile(`^[0-9A-Fa-f]{4}$`)
	edsSubindexRegExp = regexp.MustCompile(`^([0-9A-Fa-f]{4})[Ss]ub([0-9A-Fa-f]+)$`)
)

// Map an EDS AccessType string to access flags for all EtherCAT states
func edsAccessFlags(accessType string) ObjectFlags {
	switch strings.ToLower(accessType) {
	case "ro", "const":
		return FLAG_ALL_RD
	case "wo":
		return FLAG_ALL_WR
	case "rw", "rww", "rwr":
		return FLAG_ALL_RDWR
	default:
		return FLAG_NONE
	}
}

// Encode an EDS DefaultValue string per the declared data type
func encodeEdsDefault(dataType ObjectDataType, raw string, declaredLen int) ([]byte, error) {
	if raw == "" {
		raw = "0x0"
	}
	kind, ok := expectedKind(dataType)
	if !ok {
		return nil, fmt.Errorf("%w: x%x", ErrUnsupportedType, uint16(dataType))
	}
	var value ParameterValue
	switch kind {
	case KIND_BOOL:
		parsed, err := strconv.ParseUint(raw, 0, 8)
		if err != nil {
			return nil, err
		}
		value = BoolValue(parsed != 0)
	case KIND_INT8, KIND_INT16, KIND_INT32, KIND_INT64:
		parsed, err := strconv.ParseInt(raw, 0, 64)
		if err != nil {
			// EDS files write negative defaults as large hex literals too
			unsigned, uerr := strconv.ParseUint(raw, 0, 64)
			if uerr != nil {
				return nil, err
			}
			parsed = int64(unsigned)
		}
		switch kind {
		case KIND_INT8:
			value = Int8Value(int8(parsed))
		case KIND_INT16:
			value = Int16Value(int16(parsed))
		case KIND_INT32:
			value = Int32Value(int32(parsed))
		default:
			value = Int64Value(parsed)
		}
	case KIND_UINT8, KIND_UINT16, KIND_UINT32, KIND_UINT64:
		parsed, err := strconv.ParseUint(raw, 0, 64)
		if err != nil {
			return nil, err
		}
		switch kind {
		case KIND_UINT8:
			value = Uint8Value(uint8(parsed))
		case KIND_UINT16:
			value = Uint16Value(uint16(parsed))
		case KIND_UINT32:
			value = Uint32Value(uint32(parsed))
		default:
			value = Uint64Value(parsed)
		}
	case KIND_FLOAT32, KIND_FLOAT64:
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, err
		}
		if kind == KIND_FLOAT32 {
			value = Float32Value(float32(parsed))
		} else {
			value = Float64Value(parsed)
		}
	case KIND_STRING:
		value = StringValue(raw)
	default:
		return nil, fmt.Errorf("%w: x%x", ErrUnsupportedType, uint16(dataType))
	}
	return encodeValue(dataType, value, declaredLen)
}

// Build one parameter from an EDS section
func buildEdsParameter(section *ini.Section, index uint16, subindex uint8) (*Parameter, error) {
	parameter := &Parameter{
		Name:     section.Key("ParameterName").String(),
		Index:    index,
		SubIndex: subindex,
		Code:     OBJ_VAR,
		Data:     []byte{},
	}

	dataTypeRaw, err := strconv.ParseUint(section.Key("DataType").Value(), 0, 16)
	if err != nil {
		return nil, fmt.Errorf("parse DataType for %s: %w", MakeParameterId(index, subindex), err)
	}
	parameter.DataType = ObjectDataType(dataTypeRaw)
	if width := typeByteWidth(parameter.DataType); width > 0 {
		parameter.ByteLength = width
		parameter.BitLength = uint16(width) * 8
	}

	parameter.Access = edsAccessFlags(section.Key("AccessType").String())
	if pdoMapping, err := section.Key("PDOMapping").Bool(); err == nil && pdoMapping {
		parameter.Flags |= FLAG_RXTXPDO_MAP
	}

	if section.HasKey("DefaultValue") {
		data, err := encodeEdsDefault(parameter.DataType, section.Key("DefaultValue").Value(), parameter.ByteLength)
		if err != nil {
			log.Warnf("[EDS] skipping DefaultValue of %s : %v", MakeParameterId(index, subindex), err)
		} else {
			parameter.Data = data
			parameter.ByteLength = len(data)
			if parameter.BitLength == 0 {
				parameter.BitLength = uint16(len(data)) * 8
			}
		}
	}
	return parameter, nil
}

// ParseEDSParameters reads parameter metadata and default values from an
// EDS file. Array and record header sections only contribute their
// subindex sections.
func ParseEDSParameters(filePath string) ([]Parameter, error) {
	edsFile, err := ini.Load(filePath)
	if err != nil {
		return nil, err
	}

	parameters := []Parameter{}
	for _, section := range edsFile.Sections() {
		sectionName := section.Name()

		if edsIndexRegExp.MatchString(sectionName) {
			idx, err := strconv.ParseUint(sectionName, 16, 16)
			if err != nil {
				return nil, err
			}
			objectType, err := strconv.ParseUint(section.Key("ObjectType").Value(), 0, 16)
			if err != nil {
				// no object type defaults to VAR per CiA306
				objectType = uint64(OBJ_VAR)
			}
			if ObjectCode(objectType) != OBJ_VAR && ObjectCode(objectType) != OBJ_DEFTYPE {
				continue
			}
			parameter, err := buildEdsParameter(section, uint16(idx), 0)
			if err != nil {
				return nil, err
			}
			parameter.Code = ObjectCode(objectType)
			parameters = append(parameters, *parameter)
			continue
		}

		if match := edsSubindexRegExp.FindStringSubmatch(sectionName); match != nil {
			idx, err := strconv.ParseUint(match[1], 16, 16)
			if err != nil {
				return nil, err
			}
			sub, err := strconv.ParseUint(match[2], 16, 8)
			if err != nil {
				return nil, err
			}
			parameter, err := buildEdsParameter(section, uint16(idx), uint8(sub))
			if err != nil {
				return nil, err
			}
			parameters = append(parameters, *parameter)
		}
	}
	log.Infof("[EDS] parsed %d parameters from %v", len(parameters), filePath)
	return parameters, nil
}

// PreloadParametersFromEDS seeds the session store with metadata from an
// EDS file. Existing entries are replaced, a later LoadParameters from
// the device replaces the seeded dictionary entirely.
func (device *EthernetDevice) PreloadParametersFromEDS(filePath string) error {
	parameters, err := ParseEDSParameters(filePath)
	if err != nil {
		return err
	}
	device.mu.Lock()
	defer device.mu.Unlock()
	for i := range parameters {
		parameter := parameters[i]
		device.parameters[parameter.Key()] = &parameter
	}
	return nil
}
