// Package service holds the business rules between HTTP handlers and repositories.
package service

import (
	"context"

	"faithfulcity/internal/feed"
	"faithfulcity/internal/middleware"
	"faithfulcity/internal/models"
	"faithfulcity/internal/observability"
)

// FeedPublisher announces committed changes to live feed subscribers.
type FeedPublisher interface {
	Publish(ctx context.Context, familyID string, topic feed.Topic)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, feed.Topic) {}

func publisherOrNoop(p FeedPublisher) FeedPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}

// degradeList answers a list read with an empty set when the store is
// unreachable. Every other error is returned unchanged.
func degradeList[T any](ctx context.Context, collection string, items []T, err error) ([]T, error) {
	if err != nil {
		if !models.HasCode(err, models.CodeStoreUnavailable) {
			return nil, err
		}
		middleware.Logger.WarnContext(ctx, "store unavailable, serving empty list",
			"collection", collection, "error", err)
		observability.ReadPathDegraded.WithLabelValues(collection).Inc()
		return []T{}, nil
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// StatsInvalidator drops cached family stats after a write changes a count.
// repository.FamilyRepository satisfies it.
type StatsInvalidator interface {
	InvalidateStats(ctx context.Context, familyID string)
}

type noopStats struct{}

func (noopStats) InvalidateStats(context.Context, string) {}

func statsOrNoop(s StatsInvalidator) StatsInvalidator {
	if s == nil {
		return noopStats{}
	}
	return s
}
