package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cityreport/incident-service/internal/events"
)

const (
	defaultPollTimeout = 2 * time.Second
	defaultRetryDelay  = time.Second
)

// NotificationWorker drains the event queue and hands each event to handler.
// Handler failures are logged; the event is not requeued.
type NotificationWorker struct {
	queue        Queue
	handler      events.EventHandler
	logger       *zap.Logger
	pollTimeout  time.Duration
	retryDelay   time.Duration
	handlerLimit time.Duration

	wg sync.WaitGroup
}

// NewNotificationWorker creates a worker. handlerTimeout bounds each handler call.
func NewNotificationWorker(queue Queue, handler events.EventHandler, logger *zap.Logger, handlerTimeout time.Duration) *NotificationWorker {
	if handlerTimeout <= 0 {
		handlerTimeout = 5 * time.Second
	}
	return &NotificationWorker{
		queue:        queue,
		handler:      handler,
		logger:       logger,
		pollTimeout:  defaultPollTimeout,
		retryDelay:   defaultRetryDelay,
		handlerLimit: handlerTimeout,
	}
}

// Start runs the consume loop in a goroutine until ctx is cancelled.
func (w *NotificationWorker) Start(ctx context.Context) {
	w.logger.Info("starting notification worker")
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-ctx.Done():
				w.logger.Info("stopping notification worker")
				return
			default:
			}

			data, err := w.queue.Pop(ctx, w.pollTimeout)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, context.Canceled) {
					continue
				}
				w.logger.Error("failed to pop event from queue", zap.Error(err))
				sleep(ctx, w.retryDelay)
				continue
			}
			if data == nil {
				continue
			}
			w.process(ctx, data)
		}
	}()
}

// Wait blocks until the consume loop has exited.
func (w *NotificationWorker) Wait() {
	w.wg.Wait()
}

func (w *NotificationWorker) process(ctx context.Context, data []byte) {
	event, err := events.Decode(data)
	if err != nil {
		w.logger.Error("dropping malformed event", zap.Error(err))
		return
	}

	log := w.logger.With(
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("incident_id", event.IncidentID))
	log.Debug("processing event")

	callCtx, cancel := context.WithTimeout(ctx, w.handlerLimit)
	defer cancel()
	if err := w.handler(callCtx, event); err != nil {
		log.Warn("notification delivery failed", zap.Error(err))
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
