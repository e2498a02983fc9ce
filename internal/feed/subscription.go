package feed

import (
	"context"
	"errors"
	"sync"

	"faithfulcity/internal/middleware"
	"faithfulcity/internal/observability"
)

// ErrClosed is returned by Next once the subscription is closed.
var ErrClosed = errors.New("feed: subscription closed")

// Loader returns the current ordered snapshot of one family topic.
type Loader[T any] func(ctx context.Context, familyID string) ([]T, error)

// Subscription streams full snapshots of one family topic. Snapshots
// coalesce: a consumer that falls behind only ever sees the newest set.
type Subscription[T any] struct {
	familyID string
	topic    Topic
	load     Loader[T]

	snapshots chan []T
	notify    chan struct{}
	done      chan struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.Mutex
	stopAfter func() bool
	closeOnce sync.Once
	detach    func()
}

func newSubscription[T any](ctx context.Context, familyID string, topic Topic, load Loader[T]) *Subscription[T] {
	loadCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Subscription[T]{
		familyID:  familyID,
		topic:     topic,
		load:      load,
		snapshots: make(chan []T, 1),
		notify:    make(chan struct{}, 1),
		done:      make(chan struct{}),
		ctx:       middleware.WithFamily(loadCtx, familyID),
		cancel:    cancel,
	}
	return s
}

// start delivers the initial snapshot and then one per trigger until Close.
func (s *Subscription[T]) start(owner context.Context) {
	observability.FeedSubscriptionsActive.WithLabelValues(string(s.topic)).Inc()
	s.trigger()
	go s.run()
	stop := context.AfterFunc(owner, s.Close)
	s.mu.Lock()
	s.stopAfter = stop
	s.mu.Unlock()
}

func (s *Subscription[T]) run() {
	defer close(s.snapshots)
	for {
		select {
		case <-s.done:
			return
		case <-s.notify:
			items, err := s.load(s.ctx, s.familyID)
			if err != nil {
				// Keep the last delivered snapshot; the next change retries.
				middleware.Logger.WarnContext(s.ctx, "feed snapshot load failed",
					"topic", s.topic, "error", err)
				continue
			}
			if items == nil {
				items = []T{}
			}
			select {
			case <-s.snapshots:
			default:
			}
			select {
			case <-s.done:
				return
			case s.snapshots <- items:
				observability.FeedSnapshots.WithLabelValues(string(s.topic)).Inc()
			}
		}
	}
}

// trigger asks for a reload. Pending triggers merge into one.
func (s *Subscription[T]) trigger() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// FamilyID returns the family this subscription watches.
func (s *Subscription[T]) FamilyID() string { return s.familyID }

// Topic returns the watched topic.
func (s *Subscription[T]) Topic() Topic { return s.topic }

// C exposes the snapshot channel. It is closed after Close.
func (s *Subscription[T]) C() <-chan []T { return s.snapshots }

// Done is closed when the subscription ends.
func (s *Subscription[T]) Done() <-chan struct{} { return s.done }

// Next blocks until the next snapshot, the subscription closes or ctx ends.
func (s *Subscription[T]) Next(ctx context.Context) ([]T, error) {
	select {
	case <-s.done:
		return nil, ErrClosed
	default:
	}
	select {
	case items, ok := <-s.snapshots:
		if !ok {
			return nil, ErrClosed
		}
		return items, nil
	case <-s.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close ends the subscription. Safe to call more than once and from any goroutine.
func (s *Subscription[T]) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.cancel()
		s.mu.Lock()
		stop := s.stopAfter
		s.mu.Unlock()
		if stop != nil {
			stop()
		}
		if s.detach != nil {
			s.detach()
		}
		observability.FeedSubscriptionsActive.WithLabelValues(string(s.topic)).Dec()
	})
}
