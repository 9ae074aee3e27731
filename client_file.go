package integro

import (
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Special filename payloads understood by the device filesystem
const (
	FileListCommand  = "fs-getlist"
	FileRemovePrefix = "fs-remove="
	// Reply prefix the device sends after a successful fs-remove
	FileRemoveSuccessPrefix = "fs-remove=ok"

	// Firmware image names, upload one or both before triggering an update
	FirmwareFileApp = "app_firmware.bin"
	FirmwareFileCom = "com_firmware.bin"
)

// Segmented read conversation shared by file reads and the firmware
// trigger. The initial request carries the filename, follow ups are empty
// and reuse the sequence id. Runs with the session mutex held.
func (device *EthernetDevice) readSegmentedLocked(msgType EthernetMessageType, filename string, expiry time.Duration) ([]byte, error) {
	id := device.IncrementSeqId()
	request := &EthernetMessage{
		Type:   msgType,
		Id:     id,
		Status: STATUS_OK,
		Size:   uint16(len(filename)),
		Data:   []byte(filename),
	}
	content := []byte{}
	for {
		response, err := device.exchangeLocked(request, expiry)
		if err != nil {
			return nil, err
		}
		if response.SqiStatus == SQI_ERR {
			return nil, fmt.Errorf("%w: reading %q", ErrDeviceError, filename)
		}
		switch response.Status {
		case STATUS_OK:
			// complete in a single frame
			return append(content, response.Data...), nil
		case STATUS_FIRST, STATUS_MIDDLE:
			content = append(content, response.Data...)
			request = &EthernetMessage{Type: msgType, Id: id, Status: STATUS_OK}
		case STATUS_LAST:
			return append(content, response.Data...), nil
		case STATUS_ERR:
			return nil, fmt.Errorf("%w: device aborted read of %q", ErrProtocolError, filename)
		default:
			return nil, fmt.Errorf("%w: status x%02x while reading %q", ErrProtocolError, uint8(response.Status), filename)
		}
	}
}

// ReadFile reads the contents of a file from the device filesystem
func (device *EthernetDevice) ReadFile(filename string, expiry time.Duration) ([]byte, error) {
	device.mu.Lock()
	defer device.mu.Unlock()
	content, err := device.readSegmentedLocked(MSG_FILE_READ, filename, orDefault(expiry, DefaultFileExpiry))
	if err != nil {
		return nil, err
	}
	log.Infof("[FILE] read %q (%d bytes)", filename, len(content))
	return content, nil
}

// Strip a trailing ", size: <digits>" annotation from a file list line
func stripSizeAnnotation(line string) string {
	marker := strings.LastIndex(line, ", size: ")
	if marker < 0 {
		return line
	}
	digits := line[marker+len(", size: "):]
	if digits == "" {
		return line
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return line
		}
	}
	return line[:marker]
}

// ReadFileList lists the files on the device. Each line of the fs-getlist
// reply is one file, Windows line endings are tolerated and empty lines
// dropped. With stripSizeSuffix the ", size: <bytes>" annotation is
// removed from each name.
func (device *EthernetDevice) ReadFileList(stripSizeSuffix bool, expiry time.Duration) ([]string, error) {
	content, err := device.ReadFile(FileListCommand, orDefault(expiry, DefaultStateExpiry))
	if err != nil {
		return nil, err
	}
	lines := splitDeviceLines(content)
	if stripSizeSuffix {
		for i, line := range lines {
			lines[i] = stripSizeAnnotation(line)
		}
	}
	return lines, nil
}

// RemoveFile deletes a file from the device filesystem. The device
// confirms by echoing its success text at the start of the reply.
func (device *EthernetDevice) RemoveFile(filename string, expiry time.Duration) error {
	content, err := device.ReadFile(FileRemovePrefix+filename, orDefault(expiry, DefaultStateExpiry))
	if err != nil {
		return err
	}
	if !strings.HasPrefix(string(content), FileRemoveSuccessPrefix) {
		return fmt.Errorf("%w: removing %q: %q", ErrDeviceError, filename, string(content))
	}
	log.Infof("[FILE] removed %q", filename)
	return nil
}

// WriteFile sends a file to the device in chunks. The filename goes out
// first with status FIRST, the data follows in BufferSize slices flagged
// MIDDLE, the final slice is flagged LAST. Every chunk must be
// acknowledged before the next one is sent.
func (device *EthernetDevice) WriteFile(filename string, data []byte, expiry time.Duration) error {
	expiry = orDefault(expiry, DefaultFileExpiry)

	device.mu.Lock()
	defer device.mu.Unlock()

	id := device.IncrementSeqId()
	request := &EthernetMessage{
		Type:   MSG_FILE_WRITE,
		Id:     id,
		Status: STATUS_FIRST,
		Size:   uint16(len(filename)),
		Data:   []byte(filename),
	}
	if err := device.writeChunkLocked(request, filename, expiry); err != nil {
		return err
	}

	remaining := data
	for {
		chunk := remaining
		status := STATUS_LAST
		if len(chunk) > BufferSize {
			chunk = remaining[:BufferSize]
			status = STATUS_MIDDLE
		}
		remaining = remaining[len(chunk):]
		request = &EthernetMessage{
			Type:   MSG_FILE_WRITE,
			Id:     id,
			Status: status,
			Size:   uint16(len(chunk)),
			Data:   chunk,
		}
		if err := device.writeChunkLocked(request, filename, expiry); err != nil {
			return err
		}
		if status == STATUS_LAST {
			break
		}
	}
	log.Infof("[FILE] wrote %q (%d bytes)", filename, len(data))
	return nil
}

// Send one file write chunk and validate the acknowledgment. The device
// echoes the chunk status, a plain OK is accepted as intermediate ack.
func (device *EthernetDevice) writeChunkLocked(request *EthernetMessage, filename string, expiry time.Duration) error {
	response, err := device.exchangeLocked(request, expiry)
	if err != nil {
		return err
	}
	if response.SqiStatus == SQI_ERR {
		return fmt.Errorf("%w: writing %q", ErrDeviceError, filename)
	}
	if response.Status == STATUS_ERR {
		return fmt.Errorf("%w: device aborted write of %q", ErrProtocolError, filename)
	}
	if response.Status != request.Status && response.Status != STATUS_OK {
		return fmt.Errorf("%w: chunk status x%02x answered with x%02x while writing %q",
			ErrProtocolError, uint8(request.Status), uint8(response.Status), filename)
	}
	if response.Id != request.Id {
		log.Debugf("[FILE] response id %d does not match request id %d", response.Id, request.Id)
	}
	return nil
}

// TriggerFirmwareUpdate asks the device to apply a previously uploaded
// firmware image. Upload app_firmware.bin and/or com_firmware.bin with
// WriteFile first.
func (device *EthernetDevice) TriggerFirmwareUpdate(expiry time.Duration) error {
	return device.TriggerFirmwareUpdateFile(FirmwareFileApp, expiry)
}

// TriggerFirmwareUpdateFile triggers the update for a specific image
func (device *EthernetDevice) TriggerFirmwareUpdateFile(filename string, expiry time.Duration) error {
	device.mu.Lock()
	defer device.mu.Unlock()
	_, err := device.readSegmentedLocked(MSG_FIRMWARE_UPDATE, filename, orDefault(expiry, DefaultFirmwareExpiry))
	if err != nil {
		return err
	}
	log.Infof("[FILE] firmware update triggered for %q", filename)
	return nil
}
