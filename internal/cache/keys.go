package cache

import (
	"context"
	"time"
)

const (
	FamiliesKey       = "families:all"
	FamilyKeyPrefix   = "family:"
	FamilyStatsPrefix = "family:stats:"
)

const (
	FamilyTTL      = 10 * time.Minute
	FamilyStatsTTL = time.Minute
)

func FamilyKey(familyID string) string {
	return FamilyKeyPrefix + familyID
}

func FamilyStatsKey(familyID string) string {
	return FamilyStatsPrefix + familyID
}

// InvalidateFamily drops the family record, its stats and the directory listing.
func (s *Store) InvalidateFamily(ctx context.Context, familyID string) {
	s.Invalidate(ctx, FamilyKey(familyID), FamiliesKey, FamilyStatsKey(familyID))
}
