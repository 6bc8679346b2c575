package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cityreport/incident-service/internal/events"
)

type chanQueue struct {
	messages chan []byte
}

func (q *chanQueue) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg := <-q.messages:
		return msg, nil
	case <-time.After(timeout):
		return nil, nil
	}
}

func TestNotificationWorkerDeliversQueuedEvents(t *testing.T) {
	queue := &chanQueue{messages: make(chan []byte, 3)}

	var (
		mu       sync.Mutex
		received []events.Event
	)
	done := make(chan struct{})
	handler := func(_ context.Context, event events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, event)
		if len(received) == 2 {
			close(done)
		}
		return errors.New("handler failures do not stop the loop")
	}

	first, err := json.Marshal(events.Event{ID: "evt-1", Type: events.EventIncidentCreated, IncidentID: "inc-1"})
	require.NoError(t, err)
	second, err := json.Marshal(events.Event{ID: "evt-2", Type: events.EventIncidentStatusChanged, IncidentID: "inc-1"})
	require.NoError(t, err)
	queue.messages <- first
	queue.messages <- []byte("{not json")
	queue.messages <- second

	w := NewNotificationWorker(queue, handler, zap.NewNop(), time.Second)
	w.pollTimeout = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not deliver queued events")
	}
	cancel()
	w.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 2)
	assert.Equal(t, "evt-1", received[0].ID)
	assert.Equal(t, "evt-2", received[1].ID)
}

type failingQueue struct {
	calls int
	mu    sync.Mutex
}

func (q *failingQueue) Pop(ctx context.Context, _ time.Duration) ([]byte, error) {
	q.mu.Lock()
	q.calls++
	q.mu.Unlock()
	return nil, errors.New("connection refused")
}

func TestNotificationWorkerStopsOnCancel(t *testing.T) {
	queue := &failingQueue{}
	w := NewNotificationWorker(queue, func(context.Context, events.Event) error { return nil }, zap.NewNop(), time.Second)
	w.retryDelay = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	cancel()

	stopped := make(chan struct{})
	go func() {
		w.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}

	queue.mu.Lock()
	defer queue.mu.Unlock()
	assert.Greater(t, queue.calls, 1, "worker retries after queue errors")
}
