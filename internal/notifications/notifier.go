// Package notifications carries family feed change events between instances
// and pushes feed frames to websocket clients.
package notifications

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"faithfulcity/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const feedChannelPrefix = "feed:family:"

// Notifier publishes and consumes feed change events over Redis pub/sub.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether events leave the process.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// FeedChannel returns the pub/sub channel for one family topic.
func FeedChannel(familyID, topic string) string {
	return fmt.Sprintf("%s%s:%s", feedChannelPrefix, familyID, topic)
}

// ParseFeedChannel splits a channel produced by FeedChannel. Family ids may
// contain colons, so the topic is taken from the last segment.
func ParseFeedChannel(channel string) (familyID, topic string, ok bool) {
	rest, found := strings.CutPrefix(channel, feedChannelPrefix)
	if !found {
		return "", "", false
	}
	i := strings.LastIndex(rest, ":")
	if i <= 0 || i == len(rest)-1 {
		return "", "", false
	}
	return rest[:i], rest[i+1:], true
}

// PublishFeedChange announces that a family topic changed. The payload is
// empty; receivers reload the snapshot themselves.
func (n *Notifier) PublishFeedChange(ctx context.Context, familyID, topic string) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, FeedChannel(familyID, topic), "").Err()
}

// StartFeedSubscriber subscribes to every family feed channel and calls
// onChange for each event until ctx is done.
func (n *Notifier) StartFeedSubscriber(ctx context.Context, onChange func(familyID, topic string)) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, feedChannelPrefix+"*")
	// Wait for the subscription to be confirmed so early publishes are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				familyID, topic, valid := ParseFeedChannel(msg.Channel)
				if !valid {
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in feed subscriber",
								"panic", r, "stack", string(debug.Stack()))
						}
					}()
					onChange(familyID, topic)
				}()
			}
		}
	}()

	return nil
}
