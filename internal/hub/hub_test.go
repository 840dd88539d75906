package hub

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"facility-checklist/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeConn struct {
	messages chan []byte
	fail     bool
	// block, when set, stalls every write until it is closed.
	block chan struct{}

	mu     sync.Mutex
	closed bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{messages: make(chan []byte, 64)}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	if c.block != nil {
		<-c.block
	}
	if c.fail {
		return errors.New("broken pipe")
	}
	c.messages <- data
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func receive(t *testing.T, c *fakeConn) models.LiveUpdate {
	t.Helper()
	select {
	case data := <-c.messages:
		var got models.LiveUpdate
		require.NoError(t, json.Unmarshal(data, &got))
		return got
	case <-time.After(2 * time.Second):
		t.Fatal("no live update delivered")
		return models.LiveUpdate{}
	}
}

func TestBroadcastReachesClients(t *testing.T) {
	h := NewHub(zap.NewNop())
	a, b := newFakeConn(), newFakeConn()
	h.Add("a", a)
	h.Add("b", b)
	defer h.Remove("a")
	defer h.Remove("b")

	h.Broadcast(models.LiveUpdate{Action: models.ActionCreated, InspectionID: 3, Actor: "alice", TS: 1})

	for _, c := range []*fakeConn{a, b} {
		got := receive(t, c)
		assert.Equal(t, int64(3), got.InspectionID)
		assert.Equal(t, models.ActionCreated, got.Action)
	}
}

func TestBroadcastDropsBrokenClients(t *testing.T) {
	h := NewHub(zap.NewNop())
	broken := newFakeConn()
	broken.fail = true
	h.Add("ok", newFakeConn())
	h.Add("broken", broken)

	h.Broadcast(models.LiveUpdate{Action: models.ActionDeleted, InspectionID: 1})

	require.Eventually(t, func() bool { return h.Count() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, broken.isClosed())

	h.Remove("ok")
	assert.Equal(t, 0, h.Count())
}

func TestBroadcastDoesNotWaitForStalledClient(t *testing.T) {
	h := NewHub(zap.NewNop())
	stalled := newFakeConn()
	stalled.block = make(chan struct{})
	healthy := newFakeConn()
	h.Add("stalled", stalled)
	h.Add("healthy", healthy)

	const rounds = sendBuffer + 2
	delivered := make([]int64, 0, rounds)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < rounds; i++ {
			h.Broadcast(models.LiveUpdate{Action: models.ActionUpdated, InspectionID: int64(i)})
			var got models.LiveUpdate
			if json.Unmarshal(<-healthy.messages, &got) == nil {
				delivered = append(delivered, got.InspectionID)
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("broadcast blocked on a stalled client")
	}

	assert.Len(t, delivered, rounds)
	// the stalled client overflowed its queue and was dropped
	assert.True(t, stalled.isClosed())
	assert.Equal(t, 1, h.Count())

	close(stalled.block)
	h.Remove("healthy")
}
