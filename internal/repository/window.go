package repository

import (
	"slices"
	"time"
)

const (
	// PostWindow is the number of posts returned by a family listing.
	PostWindow = 20
	// NotificationWindow is the number of notifications returned by a family listing.
	NotificationWindow = 10
)

// newestFirst sorts items by the time key descending, keeping the fetch order
// of equal timestamps, then truncates to limit. limit <= 0 keeps everything.
func newestFirst[T any](items []T, at func(*T) time.Time, limit int) []T {
	slices.SortStableFunc(items, func(a, b T) int {
		return at(&b).Compare(at(&a))
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
