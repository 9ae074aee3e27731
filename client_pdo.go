package integro

import (
	"encoding/binary"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// SetPdoMappings installs the process data layout used by the PDO
// exchange operations
func (device *EthernetDevice) SetPdoMappings(mappings PdoMappings) {
	device.mu.Lock()
	defer device.mu.Unlock()
	device.pdoMappings = mappings
}

// PdoMappings returns a copy of the installed process data layout
func (device *EthernetDevice) PdoMappings() PdoMappings {
	device.mu.Lock()
	defer device.mu.Unlock()
	mappings := PdoMappings{
		RxPdos: append([]PdoMappingEntry{}, device.pdoMappings.RxPdos...),
		TxPdos: append([]PdoMappingEntry{}, device.pdoMappings.TxPdos...),
	}
	return mappings
}

// LoadPdoConfigFile installs the mapping from a UI config file (JSON or
// YAML, see LoadPdoConfig)
func (device *EthernetDevice) LoadPdoConfigFile(path string) error {
	mappings, err := LoadPdoConfig(path)
	if err != nil {
		return err
	}
	device.SetPdoMappings(*mappings)
	return nil
}

// Read one mapping object (e.g. x1600) from the device via SDO.
// Subindex 0 holds the entry count, subindexes 1..n the mapping words.
func (device *EthernetDevice) readMappingObject(pdoIndex uint16, expiry time.Duration) ([]PdoMappingEntry, error) {
	countData, err := device.ReadSdo(pdoIndex, 0, expiry)
	if err != nil {
		return nil, err
	}
	if len(countData) < 1 {
		return nil, fmt.Errorf("%w: empty mapping count for x%04x", ErrProtocolError, pdoIndex)
	}
	entries := []PdoMappingEntry{}
	for sub := uint8(1); sub <= countData[0]; sub++ {
		wordData, err := device.ReadSdo(pdoIndex, sub, expiry)
		if err != nil {
			return nil, err
		}
		if len(wordData) < 4 {
			return nil, fmt.Errorf("%w: mapping word %s is %d bytes", ErrProtocolError, MakeParameterId(pdoIndex, sub), len(wordData))
		}
		word := binary.LittleEndian.Uint32(wordData)
		entries = append(entries, DecodePdoMappingWord(pdoIndex, word))
	}
	return entries, nil
}

// ReadPdoMappingsFromDevice reads the active PDO configuration from the
// mapping objects x1600.. and x1A00.. via SDO and installs it. Probing
// stops at the first mapping object the device does not expose.
func (device *EthernetDevice) ReadPdoMappingsFromDevice(maxPdos uint16, expiry time.Duration) error {
	mappings := PdoMappings{}
	for offset := uint16(0); offset < maxPdos; offset++ {
		entries, err := device.readMappingObject(BASE_RXPDO_MAPPING_INDEX+offset, expiry)
		if err != nil {
			break
		}
		mappings.RxPdos = append(mappings.RxPdos, entries...)
	}
	for offset := uint16(0); offset < maxPdos; offset++ {
		entries, err := device.readMappingObject(BASE_TXPDO_MAPPING_INDEX+offset, expiry)
		if err != nil {
			break
		}
		mappings.TxPdos = append(mappings.TxPdos, entries...)
	}
	if len(mappings.RxPdos) == 0 && len(mappings.TxPdos) == 0 {
		return fmt.Errorf("%w: no PDO mapping objects readable", ErrNotFound)
	}
	log.Infof("[PDO] device mapping: %d rx entries (%d bytes), %d tx entries (%d bytes)",
		len(mappings.RxPdos), mappings.RxSize(), len(mappings.TxPdos), mappings.TxSize())
	device.SetPdoMappings(mappings)
	return nil
}

// SendAndReceiveProcessData performs one PDO frame exchange with an
// already packed RxPDO buffer and returns the raw TxPDO buffer. A non OK
// status is logged and yields an empty result, it is not fatal to the
// session.
func (device *EthernetDevice) SendAndReceiveProcessData(data []byte, expiry time.Duration) ([]byte, error) {
	device.mu.Lock()
	defer device.mu.Unlock()
	return device.sendProcessDataLocked(data, orDefault(expiry, DefaultPdoExpiry))
}

func (device *EthernetDevice) sendProcessDataLocked(data []byte, expiry time.Duration) ([]byte, error) {
	request := &EthernetMessage{
		Type:   MSG_PDO_RXTX_FRAME,
		Id:     device.IncrementSeqId(),
		Status: STATUS_OK,
		Size:   uint16(len(data)),
		Data:   data,
	}
	response, err := device.exchangeLocked(request, expiry)
	if err != nil {
		return nil, err
	}
	if response.Status != STATUS_OK {
		log.Errorf("[PDO] exchange answered with status x%02x, dropping frame", uint8(response.Status))
		return []byte{}, nil
	}
	return response.Data, nil
}

// ExchangeProcessDataAndUpdateParameters packs the current data of all
// RxPDO mapped parameters, performs one PDO exchange and assigns the
// received buffer back to the TxPDO mapped parameters.
func (device *EthernetDevice) ExchangeProcessDataAndUpdateParameters() error {
	device.mu.Lock()
	defer device.mu.Unlock()

	lookup := func(index uint16, subindex uint8) (*Parameter, error) {
		return device.findParameterLocked(index, subindex)
	}
	rxData, err := packProcessData(device.pdoMappings.RxPdos, lookup)
	if err != nil {
		return err
	}
	txData, err := device.sendProcessDataLocked(rxData, DefaultPdoExpiry)
	if err != nil {
		return err
	}
	return unpackProcessData(device.pdoMappings.TxPdos, txData, lookup)
}
