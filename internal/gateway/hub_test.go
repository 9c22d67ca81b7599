package gateway

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHubConn(h *Hub, id string) *Conn {
	c := &Conn{
		id:   id,
		hub:  h,
		send: make(chan []byte, h.config.SendBuffer),
	}
	h.register(c)
	return c
}

func recvEnvelope(t *testing.T, c *Conn) Envelope {
	t.Helper()
	select {
	case frame := <-c.send:
		var env Envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		return env
	default:
		t.Fatal("no frame queued")
		return Envelope{}
	}
}

func TestPublishReachesGroupMembersOnly(t *testing.T) {
	h := NewHub(DefaultConnConfig())
	a := newHubConn(h, "a")
	b := newHubConn(h, "b")
	c := newHubConn(h, "c")

	h.Join(a, "room1")
	h.Join(b, "room1")
	h.Join(c, "room2")

	h.Publish("room1", "hello", ToastResponse{ToastMessage: "hi"})

	env := recvEnvelope(t, a)
	assert.Equal(t, "hello", env.Event)
	recvEnvelope(t, b)
	assert.Empty(t, c.send)
}

func TestLeaveStopsDelivery(t *testing.T) {
	h := NewHub(DefaultConnConfig())
	a := newHubConn(h, "a")
	h.Join(a, "room1")
	h.Leave(a, "room1")

	h.Publish("room1", "hello", nil)
	assert.Empty(t, a.send)
}

func TestSendToQueuesSingleFrame(t *testing.T) {
	h := NewHub(DefaultConnConfig())
	a := newHubConn(h, "a")

	h.SendTo(a, "ping", ToastResponse{ToastMessage: "pong"})

	env := recvEnvelope(t, a)
	assert.Equal(t, "ping", env.Event)
	var resp ToastResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "pong", resp.ToastMessage)
	assert.Empty(t, a.send)
}

func TestSlowConsumerIsDropped(t *testing.T) {
	config := DefaultConnConfig()
	config.SendBuffer = 1
	h := NewHub(config)
	a := newHubConn(h, "a")
	h.Join(a, "room1")

	h.Publish("room1", "one", nil)
	h.Publish("room1", "two", nil)

	h.mu.RLock()
	_, registered := h.conns[a]
	h.mu.RUnlock()
	assert.False(t, registered, "a full send buffer must evict the connection")
	assert.Empty(t, h.groups["room1"])
}

func TestUnregisterIsIdempotent(t *testing.T) {
	h := NewHub(DefaultConnConfig())
	a := newHubConn(h, "a")
	h.Join(a, "room1")

	h.unregister(a)
	// Second teardown pass, from the other pump.
	h.unregister(a)

	h.mu.RLock()
	defer h.mu.RUnlock()
	assert.Empty(t, h.conns)
	assert.Empty(t, h.groups)
	assert.Empty(t, h.connGroups)
}
