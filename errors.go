package integro

import "errors"

var (
	ErrNotConnected    = errors.New("no active connection")
	ErrTimeout         = errors.New("operation timed out")
	ErrShortHeader     = errors.New("buffer smaller than message header")
	ErrTruncated       = errors.New("message payload shorter than declared size")
	ErrProtocolError   = errors.New("unexpected message status")
	ErrDeviceError     = errors.New("device reported an error")
	ErrDeviceBusy      = errors.New("device is busy, try again")
	ErrUnsupportedType = errors.New("unsupported object data type")
	ErrSizeMismatch    = errors.New("data size does not match data type")
	ErrTypeMismatch    = errors.New("value type does not match object data type")
	ErrNotFound        = errors.New("parameter not found")
	ErrMessageTooLong  = errors.New("payload exceeds maximum buffer size")
	ErrEmptyData       = errors.New("parameter holds no data")
)
