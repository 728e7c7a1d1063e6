package models

import "time"

// Feed item types
const (
	FeedTypeEquipment = "EQUIPMENT"
	FeedTypeCarpool   = "CARPOOL"
	FeedTypePost      = "POST"
)

// Post categories
const (
	CategoryAnnouncement = "ANNOUNCEMENT"
	CategoryDiscussion   = "DISCUSSION"
	CategoryEvent        = "EVENT"
	CategoryTip          = "TIP"
)

// Carpool trip statuses
const (
	TripPending   = "PENDING"
	TripConfirmed = "CONFIRMED"
	TripCompleted = "COMPLETED"
	TripCancelled = "CANCELLED"
)

// Loan statuses
const (
	LoanPending  = "PENDING"
	LoanApproved = "APPROVED"
	LoanRejected = "REJECTED"
	LoanReturned = "RETURNED"
)

// UserRef is the denormalized display identity embedded in read models.
// Sources resolve it at fetch time so consumers never do a second lookup.
type UserRef struct {
	Id        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// User is the full account record minus the password hash.
type User struct {
	Id        int64     `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// EquipmentView is the read projection of a shared equipment listing.
type EquipmentView struct {
	Id          int64     `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Owner       UserRef   `json:"owner"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CarpoolView is the read projection of a carpool trip. TotalSeats is
// available seats plus committed passengers.
type CarpoolView struct {
	Id             int64     `json:"id"`
	Departure      string    `json:"departure"`
	Destination    string    `json:"destination"`
	DepartureTime  time.Time `json:"departureTime"`
	Status         string    `json:"status"`
	AvailableSeats int       `json:"availableSeats"`
	TotalSeats     int       `json:"totalSeats"`
	Driver         UserRef   `json:"driver"`
	Passengers     []UserRef `json:"passengers"`
	CreatedAt      time.Time `json:"createdAt"`
}

// PostView is the read projection of a discussion post.
type PostView struct {
	Id           int64      `json:"id"`
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	ImageUrl     *string    `json:"imageUrl,omitempty"`
	Category     string     `json:"category"`
	Tags         []string   `json:"tags"`
	LikeCount    int        `json:"likeCount"`
	CommentCount int        `json:"commentCount"`
	Author       UserRef    `json:"author"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
}

// LoanView is the read projection of an equipment loan request.
type LoanView struct {
	Id            int64     `json:"id"`
	EquipmentId   int64     `json:"equipmentId"`
	EquipmentName string    `json:"equipmentName"`
	Borrower      UserRef   `json:"borrower"`
	StartDate     time.Time `json:"startDate"`
	EndDate       time.Time `json:"endDate"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Notification is a per-user notification row.
type Notification struct {
	Id        int64     `json:"id"`
	UserId    int64     `json:"-"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

// FeedPayload is the tagged union of the three view shapes that can appear
// in a feed item. Only the view types above implement it.
type FeedPayload interface {
	feedPayload()
}

func (EquipmentView) feedPayload() {}
func (CarpoolView) feedPayload()   {}
func (PostView) feedPayload()      {}

// FeedItem is the uniform envelope wrapping one feed entry. Type always
// matches the concrete shape of Payload. Priority is computed at aggregation
// time from the payload and the current clock; it is never persisted.
type FeedItem struct {
	Type      string      `json:"type"`
	Id        int64       `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Priority  float64     `json:"priority"`
	Payload   FeedPayload `json:"content"`
}

// FeedResponse is one page of the combined feed. TotalItems counts the items
// returned on this page, not all eligible candidates, so it cannot be used to
// derive a total page count.
type FeedResponse struct {
	Items      []FeedItem `json:"items"`
	Page       int        `json:"page"`
	PageSize   int        `json:"pageSize"`
	TotalItems int        `json:"totalItems"`
}
