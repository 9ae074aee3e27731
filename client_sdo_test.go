package integro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSdo(t *testing.T) {
	var received *EthernetMessage
	device := dialMock(t, func(request *EthernetMessage) *EthernetMessage {
		received = request
		return reply(request, STATUS_OK, SQI_ACK, []byte{0x92, 0x01, 0x02, 0x00})
	})
	data, err := device.ReadSdo(0x1018, 0x02, 0)
	assert.Nil(t, err)
	assert.Equal(t, []byte{0x92, 0x01, 0x02, 0x00}, data)

	require.NotNil(t, received)
	assert.Equal(t, MSG_SDO_READ, received.Type)
	// index little endian, then subindex
	assert.Equal(t, []byte{0x18, 0x10, 0x02}, received.Data)
}

func TestWriteSdo(t *testing.T) {
	var received *EthernetMessage
	device := dialMock(t, func(request *EthernetMessage) *EthernetMessage {
		received = request
		return reply(request, STATUS_OK, SQI_ACK, nil)
	})
	err := device.WriteSdo(0x607A, 0x00, []byte{0x10, 0x27, 0x00, 0x00}, 0)
	assert.Nil(t, err)

	require.NotNil(t, received)
	assert.Equal(t, MSG_SDO_WRITE, received.Type)
	assert.Equal(t, []byte{0x7A, 0x60, 0x00, 0x10, 0x27, 0x00, 0x00}, received.Data)
}

func TestSdoDeviceStatus(t *testing.T) {
	device := dialMock(t, func(request *EthernetMessage) *EthernetMessage {
		return reply(request, STATUS_OK, SQI_ERR, nil)
	})
	_, err := device.ReadSdo(0x6040, 0, 0)
	assert.ErrorIs(t, err, ErrDeviceError)

	device = dialMock(t, func(request *EthernetMessage) *EthernetMessage {
		return reply(request, STATUS_OK, SQI_BSY, nil)
	})
	// busy is surfaced for the caller to retry, never retried internally
	err = device.WriteSdo(0x6040, 0, []byte{0x0F, 0x00}, 0)
	assert.ErrorIs(t, err, ErrDeviceBusy)
}

func seedParameter(device *EthernetDevice, parameter Parameter) {
	device.mu.Lock()
	defer device.mu.Unlock()
	device.parameters[parameter.Key()] = &parameter
}

func TestUploadUpdatesStore(t *testing.T) {
	device := dialMock(t, func(request *EthernetMessage) *EthernetMessage {
		return reply(request, STATUS_OK, SQI_ACK, []byte{0x2D, 0x00, 0x00, 0x00})
	})
	seedParameter(device, Parameter{
		Name: "Product code", Index: 0x1018, SubIndex: 2,
		BitLength: 32, ByteLength: 4, DataType: UNSIGNED32, Code: OBJ_RECORD,
	})

	parameter, err := device.Upload(0x1018, 2, 0)
	assert.Nil(t, err)
	value, err := parameter.Uint32()
	assert.Nil(t, err)
	assert.Equal(t, uint32(45), value)

	// the store entry itself was updated
	stored, err := device.FindParameter(0x1018, 2)
	assert.Nil(t, err)
	assert.Equal(t, []byte{0x2D, 0x00, 0x00, 0x00}, stored.Data)

	u32, err := device.UploadUint32(0x1018, 2, 0)
	assert.Nil(t, err)
	assert.Equal(t, uint32(45), u32)
}

func TestUploadUnknownParameter(t *testing.T) {
	device := dialMock(t, func(request *EthernetMessage) *EthernetMessage {
		return reply(request, STATUS_OK, SQI_ACK, []byte{0x01})
	})
	_, err := device.Upload(0x9999, 0, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUploadString(t *testing.T) {
	device := dialMock(t, func(request *EthernetMessage) *EthernetMessage {
		return reply(request, STATUS_OK, SQI_ACK, []byte{'v', '4', '.', '2', 0x00})
	})
	seedParameter(device, Parameter{
		Name: "Manufacturer software version", Index: 0x100A, SubIndex: 0,
		BitLength: 40, ByteLength: 5, DataType: VISIBLE_STRING, Code: OBJ_VAR,
	})
	version, err := device.UploadString(0x100A, 0, 0)
	assert.Nil(t, err)
	assert.Equal(t, "v4.2", version)
}

func TestDownload(t *testing.T) {
	var received *EthernetMessage
	device := dialMock(t, func(request *EthernetMessage) *EthernetMessage {
		received = request
		return reply(request, STATUS_OK, SQI_ACK, nil)
	})
	seedParameter(device, Parameter{
		Name: "Target position", Index: 0x607A, SubIndex: 0,
		BitLength: 32, ByteLength: 4, DataType: INTEGER32, Code: OBJ_VAR,
		Data: []byte{0x40, 0x42, 0x0F, 0x00},
	})

	assert.Nil(t, device.Download(0x607A, 0, 0))
	require.NotNil(t, received)
	assert.Equal(t, []byte{0x7A, 0x60, 0x00, 0x40, 0x42, 0x0F, 0x00}, received.Data)
}

func TestDownloadEmptyData(t *testing.T) {
	device := dialMock(t, func(request *EthernetMessage) *EthernetMessage {
		return reply(request, STATUS_OK, SQI_ACK, nil)
	})
	seedParameter(device, Parameter{
		Name: "Empty", Index: 0x2000, SubIndex: 0,
		DataType: UNSIGNED8, Code: OBJ_VAR, Data: []byte{},
	})
	assert.ErrorIs(t, device.Download(0x2000, 0, 0), ErrEmptyData)
}

func TestDownloadValue(t *testing.T) {
	var received *EthernetMessage
	device := dialMock(t, func(request *EthernetMessage) *EthernetMessage {
		received = request
		return reply(request, STATUS_OK, SQI_ACK, nil)
	})
	seedParameter(device, Parameter{
		Name: "Modes of operation", Index: 0x6060, SubIndex: 0,
		BitLength: 8, ByteLength: 1, DataType: INTEGER8, Code: OBJ_VAR,
	})

	assert.Nil(t, device.DownloadValue(0x6060, 0, Int8Value(8), 0))
	require.NotNil(t, received)
	assert.Equal(t, []byte{0x60, 0x60, 0x00, 0x08}, received.Data)

	// local store reflects the downloaded value
	stored, err := device.FindParameter(0x6060, 0)
	assert.Nil(t, err)
	mode, err := stored.Int8()
	assert.Nil(t, err)
	assert.Equal(t, int8(8), mode)

	// mismatching value kind is rejected before touching the wire
	assert.ErrorIs(t, device.DownloadValue(0x6060, 0, Uint32Value(1), 0), ErrTypeMismatch)
}
