package feed

import (
	"math"
	"time"

	"campushub/models"
)

// Priority heuristics. The constants are load-bearing: clients and tests
// depend on the exact values, so tune them here and nowhere else.

// EquipmentPriority scores a listing purely on recency, 0 to 7. Items older
// than a week clamp to zero rather than going negative.
func EquipmentPriority(equipment models.EquipmentView, now time.Time) float64 {
	daysSinceCreated := now.Sub(equipment.CreatedAt).Hours() / 24
	return math.Max(0, 7-daysSinceCreated)
}

// CarpoolPriority combines departure urgency with seat availability. Trips
// leaving within a day score 10, within three days 7, otherwise 5, plus two
// points per available seat.
func CarpoolPriority(trip models.CarpoolView, now time.Time) float64 {
	hoursUntilDeparture := trip.DepartureTime.Sub(now).Hours()

	urgencyScore := 5.0
	if hoursUntilDeparture < 24 {
		urgencyScore = 10
	} else if hoursUntilDeparture < 72 {
		urgencyScore = 7
	}

	availabilityScore := float64(trip.AvailableSeats) * 2

	return urgencyScore + availabilityScore
}

// PostPriority combines engagement, recency (0 to 12 over the first 48
// hours) and a flat boost for announcements.
func PostPriority(post models.PostView, now time.Time) float64 {
	engagementScore := float64(post.LikeCount)*1.5 + float64(post.CommentCount)*2

	hoursSinceCreated := now.Sub(post.CreatedAt).Hours()
	recencyScore := math.Max(0, 48-hoursSinceCreated) / 4

	categoryBoost := 0.0
	if post.Category == models.CategoryAnnouncement {
		categoryBoost = 5
	}

	return engagementScore + recencyScore + categoryBoost
}
