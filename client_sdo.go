package integro

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// Build the 3 byte SDO address prefix: index low, index high, subindex
func sdoAddress(index uint16, subindex uint8) []byte {
	return []byte{byte(index), byte(index >> 8), subindex}
}

// Check the device side result of an SDO exchange
func checkSdoReply(what string, response *EthernetMessage) error {
	switch response.SqiStatus {
	case SQI_BSY:
		return fmt.Errorf("%w: %s", ErrDeviceBusy, what)
	case SQI_ERR:
		return fmt.Errorf("%w: %s", ErrDeviceError, what)
	}
	if response.Status == STATUS_ERR {
		return fmt.Errorf("%w: %s", ErrProtocolError, what)
	}
	return nil
}

// ReadSdo reads the raw value bytes of one object dictionary entry
func (device *EthernetDevice) ReadSdo(index uint16, subindex uint8, expiry time.Duration) ([]byte, error) {
	payload := sdoAddress(index, subindex)
	request := &EthernetMessage{
		Type:   MSG_SDO_READ,
		Id:     device.IncrementSeqId(),
		Status: STATUS_OK,
		Size:   uint16(len(payload)),
		Data:   payload,
	}
	response, err := device.Exchange(request, orDefault(expiry, DefaultSdoExpiry))
	if err != nil {
		return nil, err
	}
	if err := checkSdoReply("sdo read "+MakeParameterId(index, subindex), response); err != nil {
		return nil, err
	}
	log.Debugf("[SDO] read %s : [%s]", MakeParameterId(index, subindex), BytesToHexString(response.Data))
	return response.Data, nil
}

// WriteSdo writes raw value bytes to one object dictionary entry
func (device *EthernetDevice) WriteSdo(index uint16, subindex uint8, data []byte, expiry time.Duration) error {
	payload := append(sdoAddress(index, subindex), data...)
	request := &EthernetMessage{
		Type:   MSG_SDO_WRITE,
		Id:     device.IncrementSeqId(),
		Status: STATUS_OK,
		Size:   uint16(len(payload)),
		Data:   payload,
	}
	response, err := device.Exchange(request, orDefault(expiry, DefaultSdoExpiry))
	if err != nil {
		return err
	}
	if err := checkSdoReply("sdo write "+MakeParameterId(index, subindex), response); err != nil {
		return err
	}
	log.Debugf("[SDO] wrote %s : [%s]", MakeParameterId(index, subindex), BytesToHexString(data))
	return nil
}

// Upload reads a parameter value from the device via SDO and updates the
// local store entry. The parameter must be known locally, load the
// dictionary (or an EDS file) first.
func (device *EthernetDevice) Upload(index uint16, subindex uint8, expiry time.Duration) (*Parameter, error) {
	data, err := device.ReadSdo(index, subindex, expiry)
	if err != nil {
		return nil, err
	}
	device.mu.Lock()
	defer device.mu.Unlock()
	parameter, err := device.findParameterLocked(index, subindex)
	if err != nil {
		return nil, err
	}
	parameter.Data = data
	parameter.ByteLength = len(data)
	return parameter, nil
}

// UploadUint32 uploads a parameter and returns it as uint32
func (device *EthernetDevice) UploadUint32(index uint16, subindex uint8, expiry time.Duration) (uint32, error) {
	parameter, err := device.Upload(index, subindex, expiry)
	if err != nil {
		return 0, err
	}
	return parameter.Uint32()
}

// UploadUint16 uploads a parameter and returns it as uint16
func (device *EthernetDevice) UploadUint16(index uint16, subindex uint8, expiry time.Duration) (uint16, error) {
	parameter, err := device.Upload(index, subindex, expiry)
	if err != nil {
		return 0, err
	}
	return parameter.Uint16()
}

// UploadUint8 uploads a parameter and returns it as uint8
func (device *EthernetDevice) UploadUint8(index uint16, subindex uint8, expiry time.Duration) (uint8, error) {
	parameter, err := device.Upload(index, subindex, expiry)
	if err != nil {
		return 0, err
	}
	return parameter.Uint8()
}

// UploadInt32 uploads a parameter and returns it as int32
func (device *EthernetDevice) UploadInt32(index uint16, subindex uint8, expiry time.Duration) (int32, error) {
	parameter, err := device.Upload(index, subindex, expiry)
	if err != nil {
		return 0, err
	}
	return parameter.Int32()
}

// UploadString uploads a parameter and returns it as a string
func (device *EthernetDevice) UploadString(index uint16, subindex uint8, expiry time.Duration) (string, error) {
	parameter, err := device.Upload(index, subindex, expiry)
	if err != nil {
		return "", err
	}
	return parameter.Text()
}

// Download writes the locally stored data of a parameter to the device
func (device *EthernetDevice) Download(index uint16, subindex uint8, expiry time.Duration) error {
	device.mu.Lock()
	parameter, err := device.findParameterLocked(index, subindex)
	if err != nil {
		device.mu.Unlock()
		return err
	}
	data := parameter.Bytes()
	device.mu.Unlock()
	if len(data) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyData, MakeParameterId(index, subindex))
	}
	return device.WriteSdo(index, subindex, data, expiry)
}

// DownloadValue sets a parameter in the local store and writes it to the
// device via SDO
func (device *EthernetDevice) DownloadValue(index uint16, subindex uint8, value ParameterValue, expiry time.Duration) error {
	device.mu.Lock()
	parameter, err := device.findParameterLocked(index, subindex)
	if err != nil {
		device.mu.Unlock()
		return err
	}
	if err := parameter.SetValue(value); err != nil {
		device.mu.Unlock()
		return err
	}
	data := parameter.Bytes()
	device.mu.Unlock()
	if len(data) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyData, MakeParameterId(index, subindex))
	}
	return device.WriteSdo(index, subindex, data, expiry)
}
