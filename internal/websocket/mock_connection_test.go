package websocket

import (
	"errors"
	"sync"
	"time"
)

// mockConnection records writes and replays queued reads.
type mockConnection struct {
	mu sync.Mutex

	written   []mockMessage
	reads     []mockMessage
	readIndex int
	closed    bool
	writeErr  error

	readLimit   int64
	pongHandler func(string) error
}

type mockMessage struct {
	Type int
	Data []byte
}

var errNoMoreMessages = errors.New("no more messages")

func newMockConnection(reads ...mockMessage) *mockConnection {
	return &mockConnection{reads: reads}
}

func (m *mockConnection) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("connection closed")
	}
	if m.writeErr != nil {
		return m.writeErr
	}
	m.written = append(m.written, mockMessage{Type: messageType, Data: data})
	return nil
}

func (m *mockConnection) ReadMessage() (int, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.readIndex >= len(m.reads) {
		return 0, nil, errNoMoreMessages
	}
	msg := m.reads[m.readIndex]
	m.readIndex++
	return msg.Type, msg.Data, nil
}

func (m *mockConnection) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockConnection) SetReadDeadline(time.Time) error  { return nil }
func (m *mockConnection) SetWriteDeadline(time.Time) error { return nil }

func (m *mockConnection) SetReadLimit(limit int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readLimit = limit
}

func (m *mockConnection) SetPongHandler(h func(string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pongHandler = h
}

func (m *mockConnection) RemoteAddr() string { return "127.0.0.1:9000" }

func (m *mockConnection) messages() []mockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mockMessage, len(m.written))
	copy(out, m.written)
	return out
}

func (m *mockConnection) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
