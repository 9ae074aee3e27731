package integro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parametersByKey(parameters []Parameter) map[ParameterKey]Parameter {
	byKey := map[ParameterKey]Parameter{}
	for _, parameter := range parameters {
		byKey[parameter.Key()] = parameter
	}
	return byKey
}

func TestParseEDSParameters(t *testing.T) {
	parameters, err := ParseEDSParameters("testdata/integro.eds")
	require.NoError(t, err)
	byKey := parametersByKey(parameters)

	deviceType, ok := byKey[ParameterKey{0x1000, 0}]
	require.True(t, ok)
	assert.Equal(t, "Device type", deviceType.Name)
	assert.Equal(t, UNSIGNED32, deviceType.DataType)
	assert.Equal(t, FLAG_ALL_RD, deviceType.Access)
	assert.Equal(t, uint16(32), deviceType.BitLength)
	value, err := deviceType.Uint32()
	assert.Nil(t, err)
	assert.Equal(t, uint32(0x00020192), value)

	// the record header section itself adds no parameter
	_, ok = byKey[ParameterKey{0x1018, 0}]
	assert.True(t, ok) // from [1018sub0]
	productCode, ok := byKey[ParameterKey{0x1018, 2}]
	require.True(t, ok)
	code, err := productCode.Uint32()
	assert.Nil(t, err)
	assert.Equal(t, uint32(0x12345678), code)

	version, ok := byKey[ParameterKey{0x100A, 0}]
	require.True(t, ok)
	text, err := version.Text()
	assert.Nil(t, err)
	assert.Equal(t, "v1.0", text)

	target, ok := byKey[ParameterKey{0x607A, 0}]
	require.True(t, ok)
	assert.Equal(t, INTEGER32, target.DataType)
	assert.Equal(t, FLAG_ALL_RDWR, target.Access)
	assert.True(t, target.Flags.Has(FLAG_RXTXPDO_MAP))

	modes, ok := byKey[ParameterKey{0x6060, 0}]
	require.True(t, ok)
	mode, err := modes.Int8()
	assert.Nil(t, err)
	assert.Equal(t, int8(8), mode)
}

func TestPreloadParametersFromEDS(t *testing.T) {
	device := NewEthernetDevice("127.0.0.1", 8080)
	require.NoError(t, device.PreloadParametersFromEDS("testdata/integro.eds"))

	parameter, err := device.FindParameter(0x607A, 0)
	assert.Nil(t, err)
	assert.Equal(t, "Target position", parameter.Name)

	// seeded entries make SDO downloads possible without a device fetch
	assert.True(t, parameter.TrySet(Int32Value(5000)))
	assert.Equal(t, []byte{0x88, 0x13, 0x00, 0x00}, parameter.Data)
}

func TestParseEDSMissingFile(t *testing.T) {
	_, err := ParseEDSParameters("testdata/does-not-exist.eds")
	assert.NotNil(t, err)
}
