package feed

import (
	"context"
	"sort"
	"sync"
	"time"

	"campushub/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

var (
	feedRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campushub_feed_requests_total",
		Help: "The total number of feed pages generated",
	})

	feedSourceErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campushub_feed_source_errors_total",
		Help: "The total number of feed source fetches that degraded to an empty result",
	}, []string{"source"})
)

// Aggregator produces one ranked, paginated feed page by fanning out to the
// three content sources, scoring each item and merging the results.
type Aggregator struct {
	sources Sources
	clock   func() time.Time
}

func NewAggregator(sources Sources) *Aggregator {
	return &Aggregator{
		sources: sources,
		clock:   time.Now,
	}
}

// WithClock replaces the wall clock. Tests freeze it to make scoring and
// ordering reproducible.
func (a *Aggregator) WithClock(clock func() time.Time) *Aggregator {
	a.clock = clock
	return a
}

// Quotas splits a page size into per-type fetch budgets: 30% equipment,
// 40% carpools, 30% posts. Truncation may make the parts sum to less than
// pageSize; that shortfall is accepted, not redistributed.
func Quotas(pageSize int) (equipment, carpools, posts int) {
	return int(float64(pageSize) * 0.3),
		int(float64(pageSize) * 0.4),
		int(float64(pageSize) * 0.3)
}

// GetFeed assembles the combined feed page for a user. The userId is
// accepted for parity with the API surface but does not influence scoring or
// filtering yet. A failing source shrinks the page instead of failing it;
// the only error returned is caller cancellation, in which case partial
// results are discarded.
func (a *Aggregator) GetFeed(ctx context.Context, userId int64, page, pageSize int) (*models.FeedResponse, error) {
	now := a.clock()
	equipmentCount, carpoolCount, postCount := Quotas(pageSize)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg        sync.WaitGroup
		equipment []models.EquipmentView
		carpools  []models.CarpoolView
		posts     []models.PostView
	)

	// Fan out to the three sources with a single join point. No shared
	// state: each goroutine writes only its own slice.
	wg.Add(3)

	go func() {
		defer wg.Done()
		fetched, err := a.sources.Equipment.RecentEquipment(ctx, equipmentCount, now)
		if err != nil {
			degrade("equipment", err)
			return
		}
		equipment = fetched
	}()

	go func() {
		defer wg.Done()
		fetched, err := a.sources.Carpools.UpcomingCarpools(ctx, carpoolCount, now)
		if err != nil {
			degrade("carpools", err)
			return
		}
		carpools = fetched
	}()

	go func() {
		defer wg.Done()
		fetched, err := a.sources.Posts.RecentPosts(ctx, postCount)
		if err != nil {
			degrade("posts", err)
			return
		}
		posts = fetched
	}()

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items := make([]models.FeedItem, 0, len(equipment)+len(carpools)+len(posts))

	items = append(items, lo.Map(equipment, func(e models.EquipmentView, _ int) models.FeedItem {
		return models.FeedItem{
			Type:      models.FeedTypeEquipment,
			Id:        e.Id,
			Timestamp: e.CreatedAt,
			Priority:  EquipmentPriority(e, now),
			Payload:   e,
		}
	})...)

	items = append(items, lo.Map(carpools, func(c models.CarpoolView, _ int) models.FeedItem {
		return models.FeedItem{
			Type:      models.FeedTypeCarpool,
			Id:        c.Id,
			Timestamp: c.CreatedAt,
			Priority:  CarpoolPriority(c, now),
			Payload:   c,
		}
	})...)

	items = append(items, lo.Map(posts, func(p models.PostView, _ int) models.FeedItem {
		return models.FeedItem{
			Type:      models.FeedTypePost,
			Id:        p.Id,
			Timestamp: p.CreatedAt,
			Priority:  PostPriority(p, now),
			Payload:   p,
		}
	})...)

	// Highest priority first, newest first among equals. The stable sort
	// keeps source order for full ties, so output is deterministic for a
	// fixed input.
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority > items[j].Priority
		}
		return items[i].Timestamp.After(items[j].Timestamp)
	})

	if pageSize < len(items) {
		items = items[:pageSize]
	}

	feedRequests.Inc()

	log.WithFields(log.Fields{
		"userId":   userId,
		"page":     page,
		"pageSize": pageSize,
		"items":    len(items),
	}).Info("Generated feed page")

	return &models.FeedResponse{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: len(items),
	}, nil
}

func degrade(source string, err error) {
	feedSourceErrors.WithLabelValues(source).Inc()
	log.WithFields(log.Fields{
		"source": source,
		"error":  err,
	}).Warn("Feed source unavailable, returning page without it")
}
