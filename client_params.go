package integro

import (
	"fmt"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
)

// GetParameters fetches the full parameter list from the device.
// The transfer is segmented, responses are accumulated until the device
// signals the last segment, then the buffer is expanded into parameters.
func (device *EthernetDevice) GetParameters(readValues bool, expiry time.Duration) ([]Parameter, error) {
	expiry = orDefault(expiry, DefaultParamListExpiry)

	device.mu.Lock()
	defer device.mu.Unlock()

	id := device.IncrementSeqId()
	request := &EthernetMessage{
		Type:   MSG_PARAM_FULL_LIST,
		Id:     id,
		Status: STATUS_OK,
	}
	content := []byte{}
	for {
		response, err := device.exchangeLocked(request, expiry)
		if err != nil {
			return nil, err
		}
		if response.SqiStatus == SQI_ERR {
			return nil, fmt.Errorf("%w: parameter list", ErrDeviceError)
		}
		switch response.Status {
		case STATUS_FIRST, STATUS_MIDDLE:
			content = append(content, response.Data...)
			// re-issue with the same sequence id and empty payload
			request = &EthernetMessage{Type: MSG_PARAM_FULL_LIST, Id: id, Status: STATUS_OK}
		case STATUS_LAST, STATUS_OK:
			content = append(content, response.Data...)
			parameters, err := decodeParameterList(content, readValues)
			if err != nil {
				return parameters, err
			}
			log.Infof("[OD] received %d parameters (%d bytes)", len(parameters), len(content))
			return parameters, nil
		case STATUS_ERR:
			return nil, fmt.Errorf("%w: parameter list transfer aborted", ErrProtocolError)
		default:
			return nil, fmt.Errorf("%w: status x%02x during parameter list", ErrProtocolError, uint8(response.Status))
		}
	}
}

// LoadParameters fetches the full parameter list and repopulates the
// session store. The store is cleared first, a duplicate (index, subindex)
// in the list replaces the earlier entry.
func (device *EthernetDevice) LoadParameters(readValues bool, expiry time.Duration) error {
	parameters, err := device.GetParameters(readValues, expiry)
	if err != nil {
		return err
	}
	device.mu.Lock()
	defer device.mu.Unlock()
	device.parameters = map[ParameterKey]*Parameter{}
	for i := range parameters {
		parameter := parameters[i]
		device.parameters[parameter.Key()] = &parameter
	}
	return nil
}

// ClearParameters drops all entries from the session store.
// References previously handed out by FindParameter become stale.
func (device *EthernetDevice) ClearParameters() {
	device.mu.Lock()
	defer device.mu.Unlock()
	device.parameters = map[ParameterKey]*Parameter{}
}

func (device *EthernetDevice) findParameterLocked(index uint16, subindex uint8) (*Parameter, error) {
	parameter, ok := device.parameters[ParameterKey{Index: index, SubIndex: subindex}]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, MakeParameterId(index, subindex))
	}
	return parameter, nil
}

// FindParameter looks up a parameter in the session store. The returned
// reference stays valid until the store is cleared or reloaded.
func (device *EthernetDevice) FindParameter(index uint16, subindex uint8) (*Parameter, error) {
	device.mu.Lock()
	defer device.mu.Unlock()
	return device.findParameterLocked(index, subindex)
}

// Parameters returns the stored parameters sorted by (index, subindex)
func (device *EthernetDevice) Parameters() []*Parameter {
	device.mu.Lock()
	defer device.mu.Unlock()
	parameters := make([]*Parameter, 0, len(device.parameters))
	for _, parameter := range device.parameters {
		parameters = append(parameters, parameter)
	}
	sort.Slice(parameters, func(i, j int) bool {
		return parameters[i].Less(parameters[j])
	})
	return parameters
}
