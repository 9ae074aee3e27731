package integro

import (
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Handler of the in-process mock device. Returning nil swallows the
// request so the client runs into its deadline.
type mockHandler func(request *EthernetMessage) *EthernetMessage

type mockDevice struct {
	listener net.Listener
	handler  mockHandler
}

func newMockDevice(t *testing.T, handler mockHandler) *mockDevice {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	device := &mockDevice{listener: listener, handler: handler}
	go device.serve()
	t.Cleanup(func() { listener.Close() })
	return device
}

func (device *mockDevice) serve() {
	for {
		conn, err := device.listener.Accept()
		if err != nil {
			return
		}
		go device.handleConn(conn)
	}
}

func (device *mockDevice) handleConn(conn net.Conn) {
	defer conn.Close()
	for {
		header := make([]byte, HeaderSize)
		if _, err := io.ReadFull(conn, header); err != nil {
			return
		}
		size := binary.LittleEndian.Uint16(header[5:7])
		payload := make([]byte, size)
		if _, err := io.ReadFull(conn, payload); err != nil {
			return
		}
		request, err := ParseEthernetMessage(append(header, payload...))
		if err != nil {
			return
		}
		response := device.handler(request)
		if response == nil {
			continue
		}
		buffer, err := response.Serialize()
		if err != nil {
			return
		}
		if _, err := conn.Write(buffer); err != nil {
			return
		}
	}
}

func (device *mockDevice) port() int {
	return device.listener.Addr().(*net.TCPAddr).Port
}

// Build a response echoing the request id
func reply(request *EthernetMessage, status EthernetMessageStatus, sqi EthernetSqiReplyStatus, data []byte) *EthernetMessage {
	return &EthernetMessage{
		Type:      request.Type,
		Id:        request.Id,
		Status:    status,
		SqiStatus: sqi,
		Size:      uint16(len(data)),
		Data:      data,
	}
}

func dialMock(t *testing.T, handler mockHandler) *EthernetDevice {
	mock := newMockDevice(t, handler)
	device := NewEthernetDevice("127.0.0.1", mock.port())
	require.True(t, device.Connect())
	t.Cleanup(func() { device.Disconnect() })
	return device
}

func TestConnectDisconnect(t *testing.T) {
	mock := newMockDevice(t, func(request *EthernetMessage) *EthernetMessage {
		return reply(request, STATUS_OK, SQI_ACK, nil)
	})
	device := NewEthernetDevice("127.0.0.1", mock.port())
	assert.False(t, device.IsConnected())
	assert.True(t, device.Connect())
	assert.True(t, device.IsConnected())
	// connecting twice is a no-op
	assert.True(t, device.Connect())
	assert.True(t, device.Disconnect())
	assert.False(t, device.IsConnected())
	// disconnect is idempotent
	assert.True(t, device.Disconnect())
}

func TestConnectRefused(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	device := NewEthernetDevice("127.0.0.1", port)
	assert.False(t, device.Connect())
	assert.False(t, device.IsConnected())
}

func TestIncrementSeqId(t *testing.T) {
	device := NewEthernetDevice("127.0.0.1", 8080)
	// counter starts at zero so the first issued id is one
	assert.Equal(t, uint16(1), device.IncrementSeqId())
	assert.Equal(t, uint16(2), device.IncrementSeqId())
	last := uint16(2)
	for i := 0; i < 100; i++ {
		next := device.IncrementSeqId()
		assert.Equal(t, last+1, next)
		last = next
	}
}

func TestIncrementSeqIdWraps(t *testing.T) {
	device := NewEthernetDevice("127.0.0.1", 8080)
	device.seqId = 0xFFFE
	assert.Equal(t, uint16(0xFFFF), device.IncrementSeqId())
	assert.Equal(t, uint16(0), device.IncrementSeqId())
	assert.Equal(t, uint16(1), device.IncrementSeqId())
}

func TestGetState(t *testing.T) {
	device := dialMock(t, func(request *EthernetMessage) *EthernetMessage {
		if request.Type != MSG_STATE_READ {
			return reply(request, STATUS_ERR, SQI_ERR, nil)
		}
		return reply(request, STATUS_OK, SQI_ACK, []byte{STATE_OP})
	})
	state, err := device.GetState(0)
	assert.Nil(t, err)
	assert.Equal(t, STATE_OP, state)
}

func TestSetState(t *testing.T) {
	var received *EthernetMessage
	device := dialMock(t, func(request *EthernetMessage) *EthernetMessage {
		received = request
		return reply(request, STATUS_OK, SQI_ACK, nil)
	})
	err := device.SetState(STATE_OP, 0)
	assert.Nil(t, err)
	require.NotNil(t, received)
	assert.Equal(t, MSG_STATE_CONTROL, received.Type)
	assert.Equal(t, []byte{0x08}, received.Data)
}

func TestSetStateNotAcknowledged(t *testing.T) {
	device := dialMock(t, func(request *EthernetMessage) *EthernetMessage {
		return reply(request, STATUS_OK, SQI_BSY, nil)
	})
	assert.ErrorIs(t, device.SetState(STATE_OP, 0), ErrDeviceBusy)

	device = dialMock(t, func(request *EthernetMessage) *EthernetMessage {
		return reply(request, STATUS_OK, SQI_ERR, nil)
	})
	assert.ErrorIs(t, device.SetState(STATE_OP, 0), ErrDeviceError)

	device = dialMock(t, func(request *EthernetMessage) *EthernetMessage {
		return reply(request, STATUS_ERR, SQI_ACK, nil)
	})
	assert.ErrorIs(t, device.SetState(STATE_OP, 0), ErrProtocolError)
}

func TestExchangeTimeout(t *testing.T) {
	device := dialMock(t, func(request *EthernetMessage) *EthernetMessage {
		return nil // never answer
	})
	start := time.Now()
	_, err := device.GetState(50 * time.Millisecond)
	elapsed := time.Since(start)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, elapsed, 100*time.Millisecond)
	// the socket itself may still be open, further use needs a reconnect
	assert.True(t, device.IsConnected())
}

func TestExchangeNotConnected(t *testing.T) {
	device := NewEthernetDevice("127.0.0.1", 8080)
	_, err := device.GetState(0)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestServerInfo(t *testing.T) {
	device := dialMock(t, func(request *EthernetMessage) *EthernetMessage {
		if request.Type != MSG_SERVER_INFO {
			return reply(request, STATUS_ERR, SQI_ERR, nil)
		}
		return reply(request, STATUS_OK, SQI_ACK, []byte("SOMANET Integro"))
	})
	info, err := device.ServerInfo(0)
	assert.Nil(t, err)
	assert.Equal(t, "SOMANET Integro", string(info))
}
