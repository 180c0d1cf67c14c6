package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvscan/internal/config"
)

func configWith(ping, pong time.Duration) config.WebSocketConfig {
	return config.WebSocketConfig{ReadBufferSize: 1024, WriteBufferSize: 1024, PingPeriod: ping, PongWait: pong}
}

func TestServeWS(t *testing.T) {
	hub := newTestHub(t)
	srv := httptest.NewServer(hub.ServeWS(NewUpgrader(configWith(time.Hour, 2*time.Hour), nil)))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var hello Message
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, TypeConnection, hello.Type)

	hub.Broadcast(context.Background(), EventDatasetRemoved, map[string]float64{"scan_rate": 10})

	var event Message
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, EventDatasetRemoved, event.Type)
}

func TestNewUpgrader_CheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		host    string
		want    bool
	}{
		{"no origin", nil, "", "localhost:8080", true},
		{"same host", nil, "http://localhost:8080", "localhost:8080", true},
		{"allowed", []string{"http://lab.example"}, "http://lab.example", "localhost:8080", true},
		{"wildcard", []string{"*"}, "http://evil.example", "localhost:8080", true},
		{"rejected", []string{"http://lab.example"}, "http://evil.example", "localhost:8080", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := NewUpgrader(configWith(0, 0), tt.allowed)
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			r.Host = tt.host
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, u.CheckOrigin(r))
		})
	}
}
