package websocket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_SlowClientDoesNotBlockHub(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	// Without a writer goroutine nothing drains the queue.
	stalled := newClient(nil)
	hub.Register(stalled)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	for i := 0; i <= sendBuffer; i++ {
		hub.BroadcastMessage(TypeProgress, i)
	}
	require.Eventually(t, func() bool { return hub.Count() == 0 }, time.Second, 5*time.Millisecond)

	select {
	case <-stalled.done:
	default:
		t.Fatal("evicted client was not closed")
	}

	registered := make(chan struct{})
	go func() {
		hub.Register(newClient(nil))
		close(registered)
	}()
	select {
	case <-registered:
	case <-time.After(time.Second):
		t.Fatal("register blocked after a slow client")
	}
	assert.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestHub_BroadcastQueuesPerClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	client := newClient(nil)
	hub.Register(client)
	hub.BroadcastMessage(TypeProgress, map[string]int{"current_question": 2})

	select {
	case message := <-client.send:
		assert.JSONEq(t, `{"type": "progress", "data": {"current_question": 2}}`, string(message))
	case <-time.After(time.Second):
		t.Fatal("broadcast not queued")
	}
	assert.NoError(t, client.Close())
	assert.NoError(t, client.Close(), "closing twice is not an error")
}
