package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/courtside-scheduler/pkg/errors"
)

// EventLocker serializes schedule write paths for one event.
type EventLocker interface {
	Lock(ctx context.Context, eventID string) (func(), error)
}

type advisoryLocker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

type lockWaitObserver interface {
	ObserveLockWait(backend string, wait time.Duration)
}

func scheduleLockKey(eventID string) string {
	return "schedule:" + eventID
}

// AdvisoryEventLocker holds a Postgres session advisory lock keyed by event.
type AdvisoryEventLocker struct {
	repo    advisoryLocker
	metrics lockWaitObserver
	logger  *zap.Logger
}

// NewAdvisoryEventLocker wraps an advisory lock repository.
func NewAdvisoryEventLocker(repo advisoryLocker, metrics lockWaitObserver, logger *zap.Logger) *AdvisoryEventLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdvisoryEventLocker{repo: repo, metrics: metrics, logger: logger}
}

// Lock blocks until the event lock is held or ctx ends.
func (l *AdvisoryEventLocker) Lock(ctx context.Context, eventID string) (func(), error) {
	start := time.Now()
	release, err := l.repo.Lock(ctx, scheduleLockKey(eventID))
	if err != nil {
		l.logger.Warn("event lock failed", zap.String("event_id", eventID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire event schedule lock")
	}
	if l.metrics != nil {
		l.metrics.ObserveLockWait("postgres", time.Since(start))
	}
	return release, nil
}

// LocalEventLocker is an in-process keyed mutex for single-instance deployments and tests.
type LocalEventLocker struct {
	mu      sync.Mutex
	slots   map[string]*localLockSlot
	metrics lockWaitObserver
}

type localLockSlot struct {
	ch   chan struct{}
	refs int
}

// NewLocalEventLocker builds an empty keyed mutex.
func NewLocalEventLocker(metrics lockWaitObserver) *LocalEventLocker {
	return &LocalEventLocker{slots: make(map[string]*localLockSlot), metrics: metrics}
}

// Lock waits for the event slot; ctx cancellation abandons the wait.
func (l *LocalEventLocker) Lock(ctx context.Context, eventID string) (func(), error) {
	start := time.Now()
	l.mu.Lock()
	slot, ok := l.slots[eventID]
	if !ok {
		slot = &localLockSlot{ch: make(chan struct{}, 1)}
		l.slots[eventID] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		l.releaseRef(eventID, slot)
		return nil, appErrors.Wrap(ctx.Err(), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire event schedule lock")
	}
	if l.metrics != nil {
		l.metrics.ObserveLockWait("local", time.Since(start))
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.ch
			l.releaseRef(eventID, slot)
		})
	}, nil
}

func (l *LocalEventLocker) releaseRef(eventID string, slot *localLockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, eventID)
	}
}
