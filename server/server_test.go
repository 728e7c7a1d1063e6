package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"campushub/auth"
	"campushub/config"
	"campushub/feed"
	"campushub/models"
	"campushub/notify"
	"campushub/server"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

type fixedEquipment []models.EquipmentView

func (f fixedEquipment) RecentEquipment(ctx context.Context, count int, now time.Time) ([]models.EquipmentView, error) {
	return f, nil
}

type fixedCarpools []models.CarpoolView

func (f fixedCarpools) UpcomingCarpools(ctx context.Context, count int, now time.Time) ([]models.CarpoolView, error) {
	return f, nil
}

type fixedPosts []models.PostView

func (f fixedPosts) RecentPosts(ctx context.Context, count int) ([]models.PostView, error) {
	return f, nil
}

// testApp wires the server against canned feed sources and no database. Only
// routes that never touch the store are exercised here.
func testApp(t *testing.T) (*fiber.App, string) {
	t.Helper()

	a := auth.New("test-secret", time.Hour)

	aggregator := feed.NewAggregator(feed.Sources{
		Equipment: fixedEquipment{
			{Id: 1, Name: "Drill", CreatedAt: testNow.Add(-24 * time.Hour)},
		},
		Carpools: fixedCarpools{
			{Id: 2, DepartureTime: testNow.Add(2 * time.Hour), AvailableSeats: 3, CreatedAt: testNow},
		},
		Posts: fixedPosts{
			{Id: 3, Category: models.CategoryAnnouncement, CreatedAt: testNow},
		},
	}).WithClock(func() time.Time { return testNow })

	app := server.Server(&server.ServerConfig{
		Cfg:         config.Default(),
		Auth:        a,
		Aggregator:  aggregator,
		Broadcaster: notify.NewBroadcaster(),
	})

	token, err := a.IssueToken(7, "ada@campus.test")
	require.NoError(t, err)

	return app, token
}

func get(t *testing.T, app *fiber.App, path, token string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestHealth(t *testing.T) {
	app, _ := testApp(t)

	resp := get(t, app, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFeedRequiresToken(t *testing.T) {
	app, _ := testApp(t)

	tests := []struct {
		name  string
		token string
	}{
		{name: "missing token", token: ""},
		{name: "garbage token", token: "not.a.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(t, app, "/api/feed", tt.token)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestFeedValidatesPagination(t *testing.T) {
	app, token := testApp(t)

	tests := []struct {
		name string
		path string
	}{
		{name: "zero page", path: "/api/feed?page=0"},
		{name: "negative page", path: "/api/feed?page=-1"},
		{name: "zero page size", path: "/api/feed?pageSize=0"},
		{name: "negative page size", path: "/api/feed?pageSize=-5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(t, app, tt.path, token)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

type feedPage struct {
	Items []struct {
		Type     string  `json:"type"`
		Id       int64   `json:"id"`
		Priority float64 `json:"priority"`
	} `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalItems int `json:"totalItems"`
}

func TestFeedReturnsRankedPage(t *testing.T) {
	app, token := testApp(t)

	resp := get(t, app, "/api/feed", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page feedPage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))

	require.Len(t, page.Items, 3)
	assert.Equal(t, models.FeedTypePost, page.Items[0].Type)
	assert.Equal(t, models.FeedTypeCarpool, page.Items[1].Type)
	assert.Equal(t, models.FeedTypeEquipment, page.Items[2].Type)

	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
	assert.Equal(t, 3, page.TotalItems)
}

func TestFeedClampsPageSize(t *testing.T) {
	app, token := testApp(t)

	resp := get(t, app, "/api/feed?pageSize=500", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page feedPage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Equal(t, 50, page.PageSize)
}

func TestFeedHonorsSmallPageSize(t *testing.T) {
	app, token := testApp(t)

	resp := get(t, app, "/api/feed?pageSize=2", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page feedPage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))

	assert.Len(t, page.Items, 2)
	assert.Equal(t, 2, page.TotalItems)
}
