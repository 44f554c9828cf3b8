package websocket

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetKeepAlive(t *testing.T) {
	tests := []struct {
		name       string
		ping, pong time.Duration
		wantPing   time.Duration
		wantPong   time.Duration
	}{
		{"defaults", 0, 0, 54 * time.Second, 60 * time.Second},
		{"explicit", 10 * time.Second, 20 * time.Second, 10 * time.Second, 20 * time.Second},
		{"ping not shorter than pong is clamped", 30 * time.Second, 30 * time.Second, 27 * time.Second, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(NewHub(discardLogger(), nil), newFakeConn(), "", discardLogger())
			c.SetKeepAlive(tt.ping, tt.pong)
			assert.Equal(t, tt.wantPing, c.pingPeriod)
			assert.Equal(t, tt.wantPong, c.pongWait)
		})
	}
}

func TestWritePumpWritesFramesAndCloses(t *testing.T) {
	hub := NewHub(discardLogger(), nil)
	conn := newFakeConn()
	c := NewClient(hub, conn, "", discardLogger())

	c.send <- []byte(`{"type":"a"}`)
	c.send <- []byte(`{"type":"b"}`)
	close(c.send)

	done := make(chan struct{})
	go func() {
		c.WritePump()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("WritePump did not return")
	}

	frames := conn.frames()
	require.Len(t, frames, 3)
	assert.Equal(t, websocket.TextMessage, frames[0].Type)
	assert.Equal(t, `{"type":"a"}`, string(frames[0].Data))
	assert.Equal(t, `{"type":"b"}`, string(frames[1].Data))
	assert.Equal(t, websocket.CloseMessage, frames[2].Type)
	assert.True(t, conn.isClosed())
	assert.EqualValues(t, 2, c.messagesSent)
}

func TestReadPumpUnregistersOnError(t *testing.T) {
	hub := startHub(t)
	conn := newFakeConn(
		frame{Type: websocket.TextMessage, Data: []byte(` {"type":"heartbeat"} `)},
		frame{Type: websocket.TextMessage, Data: []byte(`{"type":"other"}`)},
	)
	c := NewClient(hub, conn, "trace-1", discardLogger())
	require.True(t, hub.Register(c))
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, waitFor, 5*time.Millisecond)

	c.ReadPump()

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, waitFor, 5*time.Millisecond)
	assert.True(t, conn.isClosed())
	assert.EqualValues(t, maxMessageSize, conn.limit)
}
