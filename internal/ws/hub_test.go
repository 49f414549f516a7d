package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/finscale/finscale-api/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func connect(t *testing.T, hub *Hub, userID uuid.UUID) *Client {
	t.Helper()
	c := NewClient(hub, nil, userID)
	hub.Register(c)
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return hub.clients[userID][c]
	}, time.Second, 5*time.Millisecond)
	return c
}

func receive(t *testing.T, c *Client) model.WSEvent {
	t.Helper()
	select {
	case data := <-c.send:
		var event model.WSEvent
		require.NoError(t, json.Unmarshal(data, &event))
		return event
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return model.WSEvent{}
	}
}

func TestBroadcastReachesEveryClient(t *testing.T) {
	hub, _ := startHub(t)
	doctor := uuid.New()
	phone := connect(t, hub, doctor)
	tablet := connect(t, hub, doctor)
	other := connect(t, hub, uuid.New())
	assert.Equal(t, 2, hub.ConnectedUsers())

	hub.Broadcast(&model.WSEvent{Type: model.WSEventShiftBooked, Payload: map[string]string{"id": "abc"}})

	for _, c := range []*Client{phone, tablet, other} {
		event := receive(t, c)
		assert.Equal(t, model.WSEventShiftBooked, event.Type)
	}
}

func TestPingIsAnsweredWithPong(t *testing.T) {
	hub, _ := startHub(t)
	c := connect(t, hub, uuid.New())

	c.handle(model.WSEvent{Type: model.WSEventPing})

	assert.Equal(t, model.WSEventPong, receive(t, c).Type)
}

func TestUnregisterClosesSend(t *testing.T) {
	hub, _ := startHub(t)
	c := connect(t, hub, uuid.New())

	hub.Unregister(c)

	require.Eventually(t, func() bool { return hub.ConnectedUsers() == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-c.send
	assert.False(t, open)

	// replies to a dropped client are ignored
	c.handle(model.WSEvent{Type: model.WSEventPing})
}

func TestShutdownDisconnectsClients(t *testing.T) {
	hub, cancel := startHub(t)
	c := connect(t, hub, uuid.New())

	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, open := <-c.send:
			return !open
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestStoppedHubDoesNotBlock(t *testing.T) {
	hub, cancel := startHub(t)
	cancel()
	<-hub.done

	c := NewClient(hub, nil, uuid.New())
	hub.Register(c)
	_, open := <-c.send
	assert.False(t, open)

	done := make(chan struct{})
	go func() {
		hub.Unregister(c)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Unregister blocked on a stopped hub")
	}
}
