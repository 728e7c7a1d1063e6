package feed

import (
	"context"
	"time"

	"campushub/models"
)

// EquipmentSource provides equipment listings created within the trailing
// seven days relative to now, newest first, at most count items.
type EquipmentSource interface {
	RecentEquipment(ctx context.Context, count int, now time.Time) ([]models.EquipmentView, error)
}

// CarpoolSource provides joinable pending trips departing within the next
// seven days relative to now, soonest first, at most count items.
type CarpoolSource interface {
	UpcomingCarpools(ctx context.Context, count int, now time.Time) ([]models.CarpoolView, error)
}

// PostSource provides active posts, newest first, at most count items.
type PostSource interface {
	RecentPosts(ctx context.Context, count int) ([]models.PostView, error)
}

// Sources bundles the three content sources the aggregator fans out to.
// Each source embeds display identities at fetch time, so the aggregator
// never performs lookups of its own.
type Sources struct {
	Equipment EquipmentSource
	Carpools  CarpoolSource
	Posts     PostSource
}
