package feed_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"campushub/feed"
	"campushub/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEquipment struct {
	items []models.EquipmentView
	err   error
}

func (s stubEquipment) RecentEquipment(ctx context.Context, count int, now time.Time) ([]models.EquipmentView, error) {
	return s.items, s.err
}

type stubCarpools struct {
	items []models.CarpoolView
	err   error
}

func (s stubCarpools) UpcomingCarpools(ctx context.Context, count int, now time.Time) ([]models.CarpoolView, error) {
	return s.items, s.err
}

type stubPosts struct {
	items []models.PostView
	err   error
}

func (s stubPosts) RecentPosts(ctx context.Context, count int) ([]models.PostView, error) {
	return s.items, s.err
}

func frozen(a *feed.Aggregator) *feed.Aggregator {
	return a.WithClock(func() time.Time { return now })
}

func TestQuotas(t *testing.T) {
	tests := []struct {
		name      string
		pageSize  int
		equipment int
		carpools  int
		posts     int
	}{
		{name: "default page", pageSize: 20, equipment: 6, carpools: 8, posts: 6},
		{name: "max page", pageSize: 50, equipment: 15, carpools: 20, posts: 15},
		{name: "small page", pageSize: 10, equipment: 3, carpools: 4, posts: 3},
		{name: "truncation leaves a shortfall", pageSize: 7, equipment: 2, carpools: 2, posts: 2},
		{name: "single item page fetches nothing", pageSize: 1, equipment: 0, carpools: 0, posts: 0},
		{name: "zero page", pageSize: 0, equipment: 0, carpools: 0, posts: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			equipment, carpools, posts := feed.Quotas(tt.pageSize)
			assert.Equal(t, tt.equipment, equipment)
			assert.Equal(t, tt.carpools, carpools)
			assert.Equal(t, tt.posts, posts)
		})
	}
}

func TestGetFeedRanksAcrossSources(t *testing.T) {
	aggregator := frozen(feed.NewAggregator(feed.Sources{
		// One day old listing scores 6
		Equipment: stubEquipment{items: []models.EquipmentView{
			{Id: 1, Name: "Drill", CreatedAt: now.Add(-24 * time.Hour)},
		}},
		// Two hours out with three seats scores 16
		Carpools: stubCarpools{items: []models.CarpoolView{
			{Id: 2, DepartureTime: now.Add(2 * time.Hour), AvailableSeats: 3, CreatedAt: now.Add(-time.Hour)},
		}},
		// Fresh announcement scores 17
		Posts: stubPosts{items: []models.PostView{
			{Id: 3, Category: models.CategoryAnnouncement, CreatedAt: now},
		}},
	}))

	response, err := aggregator.GetFeed(context.Background(), 7, 1, 20)
	require.NoError(t, err)
	require.Len(t, response.Items, 3)

	assert.Equal(t, models.FeedTypePost, response.Items[0].Type)
	assert.Equal(t, models.FeedTypeCarpool, response.Items[1].Type)
	assert.Equal(t, models.FeedTypeEquipment, response.Items[2].Type)

	assert.Equal(t, 17.0, response.Items[0].Priority)
	assert.Equal(t, 16.0, response.Items[1].Priority)
	assert.Equal(t, 6.0, response.Items[2].Priority)

	assert.Equal(t, 1, response.Page)
	assert.Equal(t, 20, response.PageSize)
	assert.Equal(t, 3, response.TotalItems)
}

func TestGetFeedBreaksTiesByRecency(t *testing.T) {
	older := now.Add(-9 * time.Hour)
	newer := now.Add(-time.Hour)

	aggregator := frozen(feed.NewAggregator(feed.Sources{
		Equipment: stubEquipment{},
		Carpools:  stubCarpools{},
		// The older post's extra comment exactly offsets the eight hours
		// of recency it lost, so the two top posts tie at 11.75 and the
		// timestamp decides
		Posts: stubPosts{items: []models.PostView{
			{Id: 1, Category: models.CategoryDiscussion, CreatedAt: now.Add(-47 * time.Hour)},
			{Id: 2, Category: models.CategoryDiscussion, CommentCount: 1, CreatedAt: older},
			{Id: 3, Category: models.CategoryDiscussion, CreatedAt: newer},
		}},
	}))

	response, err := aggregator.GetFeed(context.Background(), 7, 1, 20)
	require.NoError(t, err)
	require.Len(t, response.Items, 3)

	// Both high scorers beat the stale post, and the newer one wins the tie
	assert.Equal(t, int64(3), response.Items[0].Id)
	assert.Equal(t, int64(2), response.Items[1].Id)
	assert.Equal(t, int64(1), response.Items[2].Id)
	assert.Equal(t, response.Items[0].Priority, response.Items[1].Priority)
}

func TestGetFeedTruncatesToPageSize(t *testing.T) {
	aggregator := frozen(feed.NewAggregator(feed.Sources{
		Equipment: stubEquipment{items: []models.EquipmentView{
			{Id: 1, CreatedAt: now},
			{Id: 2, CreatedAt: now.Add(-24 * time.Hour)},
		}},
		Carpools: stubCarpools{items: []models.CarpoolView{
			{Id: 3, DepartureTime: now.Add(time.Hour), AvailableSeats: 2, CreatedAt: now},
		}},
		Posts: stubPosts{},
	}))

	response, err := aggregator.GetFeed(context.Background(), 7, 1, 2)
	require.NoError(t, err)

	assert.Len(t, response.Items, 2)
	assert.Equal(t, 2, response.TotalItems)
	// The lowest scorer is the one cut
	assert.Equal(t, models.FeedTypeCarpool, response.Items[0].Type)
	assert.Equal(t, int64(1), response.Items[1].Id)
}

func TestGetFeedDegradesFailingSource(t *testing.T) {
	aggregator := frozen(feed.NewAggregator(feed.Sources{
		Equipment: stubEquipment{err: errors.New("connection refused")},
		Carpools: stubCarpools{items: []models.CarpoolView{
			{Id: 1, DepartureTime: now.Add(time.Hour), AvailableSeats: 1, CreatedAt: now},
		}},
		Posts: stubPosts{items: []models.PostView{
			{Id: 2, Category: models.CategoryTip, CreatedAt: now},
		}},
	}))

	response, err := aggregator.GetFeed(context.Background(), 7, 1, 20)
	require.NoError(t, err)

	assert.Len(t, response.Items, 2)
	for _, item := range response.Items {
		assert.NotEqual(t, models.FeedTypeEquipment, item.Type)
	}
}

func TestGetFeedEmptySources(t *testing.T) {
	aggregator := frozen(feed.NewAggregator(feed.Sources{
		Equipment: stubEquipment{},
		Carpools:  stubCarpools{},
		Posts:     stubPosts{},
	}))

	response, err := aggregator.GetFeed(context.Background(), 7, 1, 20)
	require.NoError(t, err)

	assert.Empty(t, response.Items)
	assert.Equal(t, 0, response.TotalItems)
}

func TestGetFeedDiscardsResultsOnCancellation(t *testing.T) {
	aggregator := frozen(feed.NewAggregator(feed.Sources{
		Equipment: stubEquipment{items: []models.EquipmentView{{Id: 1, CreatedAt: now}}},
		Carpools:  stubCarpools{},
		Posts:     stubPosts{},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	response, err := aggregator.GetFeed(ctx, 7, 1, 20)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, response)
}

func TestGetFeedIsDeterministic(t *testing.T) {
	sources := feed.Sources{
		Equipment: stubEquipment{items: []models.EquipmentView{
			{Id: 1, CreatedAt: now.Add(-48 * time.Hour)},
		}},
		Carpools: stubCarpools{items: []models.CarpoolView{
			{Id: 2, DepartureTime: now.Add(30 * time.Hour), AvailableSeats: 1, CreatedAt: now},
		}},
		Posts: stubPosts{items: []models.PostView{
			{Id: 3, Category: models.CategoryDiscussion, LikeCount: 3, CreatedAt: now},
		}},
	}

	first, err := frozen(feed.NewAggregator(sources)).GetFeed(context.Background(), 7, 1, 20)
	require.NoError(t, err)
	second, err := frozen(feed.NewAggregator(sources)).GetFeed(context.Background(), 7, 1, 20)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
