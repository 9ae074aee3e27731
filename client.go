package integro

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// Default per call expiry times, from the vendor interface definition
const (
	DefaultSdoExpiry       = 1 * time.Second
	DefaultStateExpiry     = 3 * time.Second
	DefaultFileExpiry      = 5 * time.Second
	DefaultFirmwareExpiry  = 2 * time.Second
	DefaultParamListExpiry = 9 * time.Second
	DefaultPdoExpiry       = 1 * time.Second
)

// EthernetDevice is a client session to one SOMANET Integro drive over TCP.
//
// The protocol allows a single exchange in flight, a mutex serializes
// concurrent callers. A timed out or failed exchange leaves the byte
// stream in an undefined state, the caller must Disconnect and Connect
// again before further use.
type EthernetDevice struct {
	ip   string
	port int

	mu   sync.Mutex
	conn net.Conn

	// 16 bit sequence counter, kept in a uint32 for atomic access
	seqId uint32

	parameters  map[ParameterKey]*Parameter
	pdoMappings PdoMappings
}

// compile time interface check
var _ Device = (*EthernetDevice)(nil)

// NewEthernetDevice creates a disconnected session for the given endpoint
func NewEthernetDevice(ip string, port int) *EthernetDevice {
	return &EthernetDevice{
		ip:         ip,
		port:       port,
		parameters: map[ParameterKey]*Parameter{},
	}
}

// IncrementSeqId atomically increments the session sequence counter and
// returns the new value, wrapping from 0xFFFF to 0. The counter starts at
// 0 so the first issued id is 1.
func (device *EthernetDevice) IncrementSeqId() uint16 {
	for {
		old := atomic.LoadUint32(&device.seqId)
		next := (old + 1) & 0xFFFF
		if atomic.CompareAndSwapUint32(&device.seqId, old, next) {
			return uint16(next)
		}
	}
}

// Connect performs a blocking TCP connect to the device.
// Returns false and stays disconnected on failure.
func (device *EthernetDevice) Connect() bool {
	device.mu.Lock()
	defer device.mu.Unlock()
	if device.conn != nil {
		return true
	}
	address := net.JoinHostPort(device.ip, fmt.Sprint(device.port))
	conn, err := net.Dial("tcp", address)
	if err != nil {
		log.Errorf("[CLIENT] connect to %s failed : %v", address, err)
		return false
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
	}
	device.conn = conn
	log.Infof("[CLIENT] connected to %s", address)
	return true
}

// Disconnect closes the socket, idempotently
func (device *EthernetDevice) Disconnect() bool {
	device.mu.Lock()
	defer device.mu.Unlock()
	if device.conn == nil {
		return true
	}
	err := device.conn.Close()
	device.conn = nil
	if err != nil {
		log.Errorf("[CLIENT] error closing socket : %v", err)
		return false
	}
	log.Infof("[CLIENT] disconnected from %s:%d", device.ip, device.port)
	return true
}

// IsConnected reflects socket open status, not device reachability
func (device *EthernetDevice) IsConnected() bool {
	device.mu.Lock()
	defer device.mu.Unlock()
	return device.conn != nil
}

func orDefault(expiry time.Duration, fallback time.Duration) time.Duration {
	if expiry <= 0 {
		return fallback
	}
	return expiry
}

// Map socket errors onto the package taxonomy
func wrapIoError(op string, err error) error {
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return fmt.Errorf("%w: %s", ErrTimeout, op)
	}
	return fmt.Errorf("%s failed: %w", op, err)
}

// Exchange serializes one request, writes it and reads one response,
// bounded by expiry. It takes the session mutex, use exchangeLocked from
// operations that hold the lock across a segmented conversation.
func (device *EthernetDevice) Exchange(request *EthernetMessage, expiry time.Duration) (*EthernetMessage, error) {
	device.mu.Lock()
	defer device.mu.Unlock()
	return device.exchangeLocked(request, expiry)
}

func (device *EthernetDevice) exchangeLocked(request *EthernetMessage, expiry time.Duration) (*EthernetMessage, error) {
	if device.conn == nil {
		return nil, ErrNotConnected
	}
	buffer, err := request.Serialize()
	if err != nil {
		return nil, err
	}
	log.Debugf("[CLIENT] tx type x%02x id %d status x%02x size %d", uint8(request.Type), request.Id, uint8(request.Status), request.Size)

	deadline := time.Now().Add(expiry)
	if err := device.conn.SetDeadline(deadline); err != nil {
		return nil, wrapIoError("set deadline", err)
	}
	if _, err := device.conn.Write(buffer); err != nil {
		return nil, wrapIoError("write", err)
	}
	received := make([]byte, HeaderSize+BufferSize)
	n, err := device.conn.Read(received)
	if err != nil {
		return nil, wrapIoError("read", err)
	}
	response, err := ParseEthernetMessage(received[:n])
	if err != nil {
		return nil, err
	}
	log.Debugf("[CLIENT] rx type x%02x id %d status x%02x sqi x%02x size %d",
		uint8(response.Type), response.Id, uint8(response.Status), uint8(response.SqiStatus), response.Size)
	return response, nil
}

// GetState reads the EtherCAT state of the device
func (device *EthernetDevice) GetState(expiry time.Duration) (uint8, error) {
	request := &EthernetMessage{
		Type:   MSG_STATE_READ,
		Id:     device.IncrementSeqId(),
		Status: STATUS_OK,
	}
	response, err := device.Exchange(request, orDefault(expiry, DefaultStateExpiry))
	if err != nil {
		return 0, err
	}
	if response.SqiStatus == SQI_ERR {
		return 0, fmt.Errorf("%w: state read", ErrDeviceError)
	}
	if len(response.Data) < 1 {
		return 0, fmt.Errorf("%w: empty state payload", ErrProtocolError)
	}
	state := response.Data[0]
	log.Debugf("[CLIENT] device state %s (%d)", StateName(state), state)
	return state, nil
}

// SetState requests an EtherCAT state transition. The transition counts
// as acknowledged only when the response carries status OK and sqi ACK.
func (device *EthernetDevice) SetState(state uint8, expiry time.Duration) error {
	request := &EthernetMessage{
		Type:   MSG_STATE_CONTROL,
		Id:     device.IncrementSeqId(),
		Status: STATUS_OK,
		Size:   1,
		Data:   []byte{state},
	}
	response, err := device.Exchange(request, orDefault(expiry, DefaultStateExpiry))
	if err != nil {
		return err
	}
	switch {
	case response.SqiStatus == SQI_BSY:
		return fmt.Errorf("%w: state control", ErrDeviceBusy)
	case response.SqiStatus == SQI_ERR:
		return fmt.Errorf("%w: state control", ErrDeviceError)
	case response.Status != STATUS_OK || response.SqiStatus != SQI_ACK:
		return fmt.Errorf("%w: state %s not acknowledged (status x%02x sqi x%02x)",
			ErrProtocolError, StateName(state), uint8(response.Status), uint8(response.SqiStatus))
	}
	log.Infof("[CLIENT] state set to %s", StateName(state))
	return nil
}

// ServerInfo reads the raw server information payload from the device
func (device *EthernetDevice) ServerInfo(expiry time.Duration) ([]byte, error) {
	request := &EthernetMessage{
		Type:   MSG_SERVER_INFO,
		Id:     device.IncrementSeqId(),
		Status: STATUS_OK,
	}
	response, err := device.Exchange(request, orDefault(expiry, DefaultStateExpiry))
	if err != nil {
		return nil, err
	}
	if response.SqiStatus == SQI_ERR {
		return nil, fmt.Errorf("%w: server info", ErrDeviceError)
	}
	return response.Data, nil
}
