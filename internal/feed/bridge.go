// Package feed turns family post and notification changes into live
// snapshot streams.
package feed

import (
	"context"
	"sync"

	"faithfulcity/internal/middleware"
	"faithfulcity/internal/models"
)

// Topic names one live collection of a family.
type Topic string

const (
	TopicPosts         Topic = "posts"
	TopicNotifications Topic = "notifications"
)

// Transport carries change events between instances.
type Transport interface {
	Enabled() bool
	PublishFeedChange(ctx context.Context, familyID, topic string) error
	StartFeedSubscriber(ctx context.Context, onChange func(familyID, topic string)) error
}

type subKey struct {
	familyID string
	topic    Topic
}

type watcher struct {
	trigger func()
}

// Bridge fans change events out to the subscriptions of the changed family topic.
type Bridge struct {
	posts         Loader[models.Post]
	notifications Loader[models.Notification]

	mu        sync.RWMutex
	watchers  map[subKey]map[*watcher]struct{}
	transport Transport
}

// NewBridge creates a bridge that dispatches in process until Connect is called.
func NewBridge(posts Loader[models.Post], notifications Loader[models.Notification]) *Bridge {
	return &Bridge{
		posts:         posts,
		notifications: notifications,
		watchers:      make(map[subKey]map[*watcher]struct{}),
	}
}

// Connect routes change events through t so every instance sees them. A
// disabled transport leaves the bridge in process.
func (b *Bridge) Connect(ctx context.Context, t Transport) error {
	if t == nil || !t.Enabled() {
		return nil
	}
	if err := t.StartFeedSubscriber(ctx, func(familyID, topic string) {
		b.Dispatch(familyID, Topic(topic))
	}); err != nil {
		return err
	}
	b.mu.Lock()
	b.transport = t
	b.mu.Unlock()
	return nil
}

// Publish announces a committed change. When the transport fails the event
// is still delivered to this instance.
func (b *Bridge) Publish(ctx context.Context, familyID string, topic Topic) {
	b.mu.RLock()
	t := b.transport
	b.mu.RUnlock()

	if t != nil {
		err := t.PublishFeedChange(ctx, familyID, string(topic))
		if err == nil {
			return
		}
		middleware.Logger.WarnContext(ctx, "feed publish failed, dispatching locally",
			"family_id", familyID, "topic", topic, "error", err)
	}
	b.Dispatch(familyID, topic)
}

// Dispatch wakes every local subscription of the family topic.
func (b *Bridge) Dispatch(familyID string, topic Topic) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for w := range b.watchers[subKey{familyID, topic}] {
		w.trigger()
	}
}

// Watchers returns the number of local subscriptions of a family topic.
func (b *Bridge) Watchers(familyID string, topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.watchers[subKey{familyID, topic}])
}

// SubscribePosts streams the newest posts of a family.
func (b *Bridge) SubscribePosts(ctx context.Context, familyID string) *Subscription[models.Post] {
	return subscribe(ctx, b, familyID, TopicPosts, b.posts)
}

// SubscribeNotifications streams the newest notifications of a family.
func (b *Bridge) SubscribeNotifications(ctx context.Context, familyID string) *Subscription[models.Notification] {
	return subscribe(ctx, b, familyID, TopicNotifications, b.notifications)
}

func subscribe[T any](ctx context.Context, b *Bridge, familyID string, topic Topic, load Loader[T]) *Subscription[T] {
	s := newSubscription(ctx, familyID, topic, load)
	w := &watcher{trigger: s.trigger}
	key := subKey{familyID, topic}

	b.mu.Lock()
	m, ok := b.watchers[key]
	if !ok {
		m = make(map[*watcher]struct{})
		b.watchers[key] = m
	}
	m[w] = struct{}{}
	b.mu.Unlock()

	s.detach = func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.watchers[key], w)
		if len(b.watchers[key]) == 0 {
			delete(b.watchers, key)
		}
	}
	s.start(ctx)
	return s
}
