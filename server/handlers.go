package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"campushub/auth"
	"campushub/config"
	"campushub/db"
	"campushub/feed"
	"campushub/models"
	"campushub/notify"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

type handler struct {
	db          *db.DB
	auth        *auth.Auth
	aggregator  *feed.Aggregator
	broadcaster *notify.Broadcaster
	dispatcher  *notify.Dispatcher
	cfg         *config.Config
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message})
}

// storeError maps repository sentinel errors to HTTP statuses.
func storeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	case errors.Is(err, db.ErrDuplicateEmail),
		errors.Is(err, db.ErrNoSeats),
		errors.Is(err, db.ErrAlreadyJoined),
		errors.Is(err, db.ErrAlreadyLiked):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	default:
		log.WithFields(log.Fields{"error": err}).Error("Store error")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}

func paramId(c *fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("id"), 10, 64)
}

// Auth

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (h *handler) register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Email == "" || req.FirstName == "" || req.LastName == "" {
		return badRequest(c, "email, firstName and lastName are required")
	}
	if len(req.Password) < 8 {
		return badRequest(c, "password must be at least 8 characters")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return storeError(c, err)
	}

	id, err := h.db.CreateUser(c.Context(), req.Email, hash, req.FirstName, req.LastName)
	if err != nil {
		return storeError(c, err)
	}

	token, err := h.auth.IssueToken(id, req.Email)
	if err != nil {
		return storeError(c, err)
	}

	user, err := h.db.GetUser(c.Context(), id)
	if err != nil {
		return storeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"token": token, "user": user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *handler) login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	user, hash, err := h.db.GetUserByEmail(c.Context(), req.Email)
	if err != nil || !auth.CheckPassword(hash, req.Password) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
	}

	token, err := h.auth.IssueToken(user.Id, user.Email)
	if err != nil {
		return storeError(c, err)
	}

	return c.JSON(fiber.Map{"token": token, "user": user})
}

// Feed

func (h *handler) getFeed(c *fiber.Ctx) error {
	userId := auth.UserId(c)
	if userId == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthenticated"})
	}

	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("pageSize", h.cfg.DefaultPageSize)

	if page < 1 {
		return badRequest(c, "page must be >= 1")
	}
	if pageSize < 1 {
		return badRequest(c, "pageSize must be >= 1")
	}
	// Limit page size to prevent abuse
	if pageSize > h.cfg.MaxPageSize {
		pageSize = h.cfg.MaxPageSize
	}

	response, err := h.aggregator.GetFeed(c.Context(), userId, page, pageSize)
	if err != nil {
		// Only caller cancellation reaches here, degraded sources do not
		log.WithFields(log.Fields{"error": err}).Warn("Feed request cancelled")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "feed unavailable"})
	}

	return c.JSON(response)
}

// Equipment

type createEquipmentRequest struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

func (h *handler) createEquipment(c *fiber.Ctx) error {
	var req createEquipmentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Name == "" || req.Category == "" {
		return badRequest(c, "name and category are required")
	}

	id, err := h.db.CreateEquipment(c.Context(), auth.UserId(c), req.Name, req.Category, req.Description)
	if err != nil {
		return storeError(c, err)
	}

	equipment, err := h.db.GetEquipment(c.Context(), id)
	if err != nil {
		return storeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(equipment)
}

func (h *handler) listEquipment(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 100 {
		limit = 50
	}

	equipment, err := h.db.ListEquipment(c.Context(), limit)
	if err != nil {
		return storeError(c, err)
	}
	if equipment == nil {
		equipment = []models.EquipmentView{}
	}

	return c.JSON(equipment)
}

func (h *handler) getEquipment(c *fiber.Ctx) error {
	id, err := paramId(c)
	if err != nil {
		return badRequest(c, "invalid id")
	}

	equipment, err := h.db.GetEquipment(c.Context(), id)
	if err != nil {
		return storeError(c, err)
	}

	return c.JSON(equipment)
}

// Loans

type requestLoanRequest struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

func (h *handler) requestLoan(c *fiber.Ctx) error {
	equipmentId, err := paramId(c)
	if err != nil {
		return badRequest(c, "invalid id")
	}

	var req requestLoanRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if !req.EndDate.After(req.StartDate) {
		return badRequest(c, "endDate must be after startDate")
	}

	equipment, err := h.db.GetEquipment(c.Context(), equipmentId)
	if err != nil {
		return storeError(c, err)
	}

	borrowerId := auth.UserId(c)
	loanId, err := h.db.CreateLoan(c.Context(), equipmentId, borrowerId, req.StartDate, req.EndDate)
	if err != nil {
		return storeError(c, err)
	}

	loan, err := h.db.GetLoan(c.Context(), loanId)
	if err != nil {
		return storeError(c, err)
	}

	h.dispatcher.Enqueue(notify.Event{
		UserId: equipment.Owner.Id,
		Type:   "LOAN_REQUEST",
		Content: fmt.Sprintf("%s %s requested to borrow %s",
			loan.Borrower.FirstName, loan.Borrower.LastName, equipment.Name),
	})

	return c.Status(fiber.StatusCreated).JSON(loan)
}

type updateLoanStatusRequest struct {
	Status string `json:"status"`
}

func (h *handler) updateLoanStatus(c *fiber.Ctx) error {
	loanId, err := paramId(c)
	if err != nil {
		return badRequest(c, "invalid id")
	}

	var req updateLoanStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	switch req.Status {
	case models.LoanApproved, models.LoanRejected, models.LoanReturned:
	default:
		return badRequest(c, "status must be APPROVED, REJECTED or RETURNED")
	}

	loan, err := h.db.UpdateLoanStatus(c.Context(), loanId, req.Status)
	if err != nil {
		return storeError(c, err)
	}

	h.dispatcher.Enqueue(notify.Event{
		UserId:  loan.Borrower.Id,
		Type:    "LOAN_STATUS",
		Content: fmt.Sprintf("Your loan for %s is now %s", loan.EquipmentName, loan.Status),
	})

	return c.JSON(loan)
}

func (h *handler) listLoans(c *fiber.Ctx) error {
	loans, err := h.db.ListLoansByBorrower(c.Context(), auth.UserId(c))
	if err != nil {
		return storeError(c, err)
	}
	if loans == nil {
		loans = []models.LoanView{}
	}

	return c.JSON(loans)
}

// Carpools

type createCarpoolRequest struct {
	Departure     string    `json:"departure"`
	Destination   string    `json:"destination"`
	DepartureTime time.Time `json:"departureTime"`
	Seats         int       `json:"seats"`
}

func (h *handler) createCarpool(c *fiber.Ctx) error {
	var req createCarpoolRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Departure == "" || req.Destination == "" {
		return badRequest(c, "departure and destination are required")
	}
	if req.Seats < 1 {
		return badRequest(c, "seats must be >= 1")
	}
	if req.DepartureTime.Before(time.Now()) {
		return badRequest(c, "departureTime must be in the future")
	}

	id, err := h.db.CreateTrip(c.Context(), auth.UserId(c), req.Departure, req.Destination, req.DepartureTime, req.Seats)
	if err != nil {
		return storeError(c, err)
	}

	trip, err := h.db.GetTrip(c.Context(), id)
	if err != nil {
		return storeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(trip)
}

func (h *handler) listCarpools(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 100 {
		limit = 50
	}

	trips, err := h.db.ListTrips(c.Context(), limit, time.Now())
	if err != nil {
		return storeError(c, err)
	}
	if trips == nil {
		trips = []models.CarpoolView{}
	}

	return c.JSON(trips)
}

func (h *handler) joinCarpool(c *fiber.Ctx) error {
	tripId, err := paramId(c)
	if err != nil {
		return badRequest(c, "invalid id")
	}

	userId := auth.UserId(c)
	if err := h.db.JoinTrip(c.Context(), tripId, userId); err != nil {
		return storeError(c, err)
	}

	trip, err := h.db.GetTrip(c.Context(), tripId)
	if err != nil {
		return storeError(c, err)
	}

	if user, err := h.db.GetUser(c.Context(), userId); err == nil {
		h.dispatcher.Enqueue(notify.Event{
			UserId: trip.Driver.Id,
			Type:   "CARPOOL_JOIN",
			Content: fmt.Sprintf("%s %s joined your trip to %s",
				user.FirstName, user.LastName, trip.Destination),
		})
	}

	return c.JSON(trip)
}

// Posts

type createPostRequest struct {
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	ImageUrl *string `json:"imageUrl"`
	Category string  `json:"category"`
	Tags     *string `json:"tags"`
}

func (h *handler) createPost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Title == "" || req.Content == "" {
		return badRequest(c, "title and content are required")
	}
	if req.Category == "" {
		req.Category = models.CategoryDiscussion
	}
	switch req.Category {
	case models.CategoryAnnouncement, models.CategoryDiscussion, models.CategoryEvent, models.CategoryTip:
	default:
		return badRequest(c, "invalid category")
	}

	id, err := h.db.CreatePost(c.Context(), auth.UserId(c), req.Title, req.Content, req.Category, req.ImageUrl, req.Tags)
	if err != nil {
		return storeError(c, err)
	}

	post, err := h.db.GetPost(c.Context(), id)
	if err != nil {
		return storeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

func (h *handler) listPosts(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 100 {
		limit = 50
	}

	posts, err := h.db.ListPosts(c.Context(), limit)
	if err != nil {
		return storeError(c, err)
	}
	if posts == nil {
		posts = []models.PostView{}
	}

	return c.JSON(posts)
}

func (h *handler) getPost(c *fiber.Ctx) error {
	id, err := paramId(c)
	if err != nil {
		return badRequest(c, "invalid id")
	}

	post, err := h.db.GetPost(c.Context(), id)
	if err != nil {
		return storeError(c, err)
	}

	return c.JSON(post)
}

func (h *handler) likePost(c *fiber.Ctx) error {
	postId, err := paramId(c)
	if err != nil {
		return badRequest(c, "invalid id")
	}

	userId := auth.UserId(c)
	if err := h.db.LikePost(c.Context(), postId, userId); err != nil {
		return storeError(c, err)
	}

	post, err := h.db.GetPost(c.Context(), postId)
	if err != nil {
		return storeError(c, err)
	}

	if post.Author.Id != userId {
		h.dispatcher.Enqueue(notify.Event{
			UserId:  post.Author.Id,
			Type:    "POST_LIKE",
			Content: fmt.Sprintf("Someone liked your post %q", post.Title),
		})
	}

	return c.JSON(post)
}

type addCommentRequest struct {
	Content string `json:"content"`
}

func (h *handler) addComment(c *fiber.Ctx) error {
	postId, err := paramId(c)
	if err != nil {
		return badRequest(c, "invalid id")
	}

	var req addCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Content == "" {
		return badRequest(c, "content is required")
	}

	userId := auth.UserId(c)
	commentId, err := h.db.AddComment(c.Context(), postId, userId, req.Content)
	if err != nil {
		return storeError(c, err)
	}

	post, err := h.db.GetPost(c.Context(), postId)
	if err != nil {
		return storeError(c, err)
	}

	if post.Author.Id != userId {
		h.dispatcher.Enqueue(notify.Event{
			UserId:  post.Author.Id,
			Type:    "POST_COMMENT",
			Content: fmt.Sprintf("New comment on your post %q", post.Title),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": commentId, "post": post})
}

// Notifications

func (h *handler) listNotifications(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 100 {
		limit = 50
	}

	notifications, err := h.db.ListNotifications(c.Context(), auth.UserId(c), limit)
	if err != nil {
		return storeError(c, err)
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}

	return c.JSON(notifications)
}

func (h *handler) markNotificationRead(c *fiber.Ctx) error {
	id, err := paramId(c)
	if err != nil {
		return badRequest(c, "invalid id")
	}

	if err := h.db.MarkNotificationRead(c.Context(), id, auth.UserId(c)); err != nil {
		return storeError(c, err)
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *handler) closeNotificationStream(c *fiber.Ctx) error {
	key := c.Query("key", "")
	h.broadcaster.RemoveClient(key)
	return c.SendString("OK")
}

func (h *handler) notificationStream(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")

	userId := auth.UserId(c)

	// Unique client key
	key := uuid.New().String()
	notificationChannel := make(chan models.Notification, 10) // Buffered channel
	aliveChan := time.NewTicker(5 * time.Second)

	defer aliveChan.Stop()

	h.broadcaster.AddClient(key, userId, notificationChannel)

	cleanup := func() {
		log.Infof("Cleaning up SSE stream for client: %s", key)
		h.broadcaster.RemoveClient(key)
	}

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cleanup()

		// Send initial event with client key
		fmt.Fprintf(w, "event: init\ndata: %s\n\n", key)
		if err := w.Flush(); err != nil {
			log.Errorf("Failed to send init event: %v", err)
			return
		}

		for {
			select {
			case <-aliveChan.C:
				// Keep-alive pings
				if _, err := fmt.Fprintf(w, "event: ping\ndata: \n\n"); err != nil {
					log.Warnf("Failed to send ping to client %s: %v", key, err)
					return
				}
				if err := w.Flush(); err != nil {
					log.Warnf("Failed to flush ping for client %s: %v", key, err)
					return
				}

			case notification, ok := <-notificationChannel:
				if !ok {
					log.Warnf("Notification channel closed for client %s", key)
					return
				}
				payload, err := json.Marshal(notification)
				if err != nil {
					log.Errorf("Error marshalling notification for client %s: %v", key, err)
					continue
				}
				if _, err := fmt.Fprintf(w, "event: notification\ndata: %s\n\n", payload); err != nil {
					log.Warnf("Failed to send notification to client %s: %v", key, err)
					return
				}
				if err := w.Flush(); err != nil {
					log.Warnf("Failed to flush notification for client %s: %v", key, err)
					return
				}
			}
		}
	}))

	return nil
}
