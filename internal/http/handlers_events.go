package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/oauth2"

	"github.com/bobasync/api/internal/apperr"
	"github.com/bobasync/api/internal/domain"
	"github.com/bobasync/api/internal/metrics"
	"github.com/bobasync/api/internal/queue"
	"github.com/bobasync/api/internal/repo"
)

type createEventReq struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Location    *domain.Location   `json:"location"`
	EventDates  []domain.EventDate `json:"event_dates"`
	Timezone    string             `json:"timezone"`
	Recurrence  *domain.Recurrence `json:"recurrence"`
	Status      string             `json:"status"`
	Visibility  string             `json:"visibility"`
	Reminders   []domain.Reminder  `json:"reminders"`
}

// CreateEvent godoc
// @Summary Create an event
// @Tags events
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body createEventReq true "event"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /api/events [post]
func (h *Handler) CreateEvent(c *gin.Context) {
	var in createEventReq
	if err := c.ShouldBindJSON(&in); err != nil {
		h.writeError(c, apperr.New(apperr.Validation, "invalid json"))
		return
	}
	ctx := c.Request.Context()
	au := currentUser(c)

	creator, err := h.Store.FindUserByID(ctx, au.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if creator == nil {
		h.writeError(c, apperr.New(apperr.NotFound, "user not found"))
		return
	}

	e := &domain.Event{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Location:    in.Location,
		Creator:     au.ID,
		EventDates:  in.EventDates,
		Timezone:    in.Timezone,
		Recurrence:  in.Recurrence,
		Status:      domain.EventStatus(in.Status),
		Visibility:  domain.Visibility(in.Visibility),
		Reminders:   in.Reminders,
	}
	if v := domain.ValidateEvent(e); len(v) > 0 {
		h.writeError(c, apperr.New(apperr.Validation, strings.Join(v, ", ")))
		return
	}

	// the creator is always on the list, already accepted
	now := time.Now().UTC()
	e.Attendees = []domain.Attendee{{
		UserID:       au.ID,
		Email:        creator.Email,
		Status:       domain.AttendeeAccepted,
		ResponseTime: &now,
	}}

	if err := h.Store.InsertEvent(ctx, e); err != nil {
		h.writeError(c, err)
		return
	}
	metrics.EventsCreatedTotal.Inc()
	c.JSON(http.StatusCreated, gin.H{"event": e})
}

// GetEvent enforces visibility: a private event 403s for anyone who is
// neither creator nor attendee.
func (h *Handler) GetEvent(c *gin.Context) {
	id, err := parseOID(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}
	e, err := h.Store.FindEventByID(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if e == nil {
		h.writeError(c, apperr.New(apperr.NotFound, "event not found"))
		return
	}
	if !e.CanView(currentUser(c).ID) {
		h.writeError(c, apperr.New(apperr.Forbidden, "not authorized to view this event"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": e})
}

type updateEventReq struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	Location    *domain.Location   `json:"location"`
	EventDates  []domain.EventDate `json:"event_dates"`
	Timezone    *string            `json:"timezone"`
	Recurrence  *domain.Recurrence `json:"recurrence"`
	Status      *string            `json:"status"`
	Visibility  *string            `json:"visibility"`
	Reminders   []domain.Reminder  `json:"reminders"`
}

// UpdateEvent merges the provided fields into the stored event. Creator only.
func (h *Handler) UpdateEvent(c *gin.Context) {
	id, err := parseOID(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}
	var in updateEventReq
	if err := c.ShouldBindJSON(&in); err != nil {
		h.writeError(c, apperr.New(apperr.Validation, "invalid json"))
		return
	}

	ctx := c.Request.Context()
	e, err := h.Store.FindEventByID(ctx, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if e == nil {
		h.writeError(c, apperr.New(apperr.NotFound, "event not found"))
		return
	}
	if !e.IsCreator(currentUser(c).ID) {
		h.writeError(c, apperr.New(apperr.Forbidden, "only the creator can update this event"))
		return
	}

	if in.Title != nil {
		e.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		e.Description = *in.Description
	}
	if in.Location != nil {
		e.Location = in.Location
	}
	if in.EventDates != nil {
		e.EventDates = in.EventDates
	}
	if in.Timezone != nil {
		e.Timezone = *in.Timezone
	}
	if in.Recurrence != nil {
		e.Recurrence = in.Recurrence
	}
	if in.Status != nil {
		e.Status = domain.EventStatus(*in.Status)
	}
	if in.Visibility != nil {
		e.Visibility = domain.Visibility(*in.Visibility)
	}
	if in.Reminders != nil {
		e.Reminders = in.Reminders
	}

	if v := domain.ValidateEvent(e); len(v) > 0 {
		h.writeError(c, apperr.New(apperr.Validation, strings.Join(v, ", ")))
		return
	}
	if err := h.Store.ReplaceEvent(ctx, e); err != nil {
		h.writeError(c, notFoundOr(err, "event not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": e})
}

func (h *Handler) DeleteEvent(c *gin.Context) {
	id, err := parseOID(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}
	ctx := c.Request.Context()
	e, err := h.Store.FindEventByID(ctx, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if e == nil {
		h.writeError(c, apperr.New(apperr.NotFound, "event not found"))
		return
	}
	if !e.IsCreator(currentUser(c).ID) {
		h.writeError(c, apperr.New(apperr.Forbidden, "only the creator can delete this event"))
		return
	}
	if err := h.Store.DeleteEvent(ctx, id); err != nil {
		h.writeError(c, notFoundOr(err, "event not found"))
		return
	}
	c.Status(http.StatusNoContent)
}

// parseDateParam accepts both plain dates and RFC3339 timestamps.
func parseDateParam(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, apperr.Validationf("invalid date: %s", s)
	}
	t = t.UTC()
	return &t, nil
}

// ListEvents godoc
// @Summary List the caller's events
// @Tags events
// @Security BearerAuth
// @Produce json
// @Param startDate query string false "filter from date"
// @Param endDate query string false "filter to date"
// @Param status query string false "event status"
// @Success 200 {object} map[string]any
// @Router /api/events [get]
func (h *Handler) ListEvents(c *gin.Context) {
	var f repo.EventFilter
	var err error
	if f.Start, err = parseDateParam(c.Query("startDate")); err != nil {
		h.writeError(c, err)
		return
	}
	if f.End, err = parseDateParam(c.Query("endDate")); err != nil {
		h.writeError(c, err)
		return
	}
	if s := c.Query("status"); s != "" {
		if !domain.ValidEventStatus(domain.EventStatus(s)) {
			h.writeError(c, apperr.New(apperr.Validation, "invalid event status"))
			return
		}
		f.Status = domain.EventStatus(s)
	}

	events, err := h.Store.FindUserEvents(c.Request.Context(), currentUser(c).ID, f)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

func (h *Handler) UpcomingEvents(c *gin.Context) {
	limit := 5
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			h.writeError(c, apperr.New(apperr.Validation, "invalid limit"))
			return
		}
		limit = n
	}
	events, err := h.Store.FindUpcomingEvents(c.Request.Context(), currentUser(c).ID, time.Now(), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

type addAttendeeReq struct {
	UserID     string `json:"userId"`
	AttendeeID string `json:"attendeeId"` // alias some clients send
	Email      string `json:"email"`
}

// AddAttendee invites a registered user or a bare email. Creator only.
// Re-inviting someone already listed is a no-op success.
func (h *Handler) AddAttendee(c *gin.Context) {
	id, err := parseOID(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}
	var in addAttendeeReq
	if err := c.ShouldBindJSON(&in); err != nil {
		h.writeError(c, apperr.New(apperr.Validation, "invalid json"))
		return
	}
	if in.UserID == "" {
		in.UserID = in.AttendeeID
	}
	if in.UserID == "" && in.Email == "" {
		h.writeError(c, apperr.New(apperr.Validation, "userId or email is required"))
		return
	}

	ctx := c.Request.Context()
	e, err := h.Store.FindEventByID(ctx, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if e == nil {
		h.writeError(c, apperr.New(apperr.NotFound, "event not found"))
		return
	}
	if !e.IsCreator(currentUser(c).ID) {
		h.writeError(c, apperr.New(apperr.Forbidden, "only the creator can add attendees"))
		return
	}

	att := domain.Attendee{Status: domain.AttendeePending}
	if in.UserID != "" {
		uid, err := primitive.ObjectIDFromHex(in.UserID)
		if err != nil {
			h.writeError(c, apperr.New(apperr.Validation, "invalid userId"))
			return
		}
		u, err := h.Store.FindUserByID(ctx, uid)
		if err != nil {
			h.writeError(c, err)
			return
		}
		if u == nil {
			h.writeError(c, apperr.New(apperr.NotFound, "user not found"))
			return
		}
		att.UserID = u.ID
		att.Email = u.Email
	} else {
		email := strings.ToLower(strings.TrimSpace(in.Email))
		if !domain.ValidEmail(email) {
			h.writeError(c, apperr.New(apperr.Validation, "invalid email address"))
			return
		}
		att.Email = email
	}

	if e.HasAttendee(att.UserID, att.Email) {
		c.JSON(http.StatusOK, gin.H{"event": e})
		return
	}

	if err := h.Store.PushAttendee(ctx, id, att); err != nil {
		h.writeError(c, notFoundOr(err, "event not found"))
		return
	}
	e.Attendees = append(e.Attendees, att)

	go h.Events.Publish(ctx, queue.Exchange, queue.KeyAttendeeAdded,
		queue.AttendeeAdded{EventID: e.ID, Email: att.Email, UserID: att.UserID, Title: e.Title},
		c.GetString(requestIDKey))

	c.JSON(http.StatusOK, gin.H{"event": e})
}

type attendeeStatusReq struct {
	Status string `json:"status"`
}

// UpdateAttendeeStatus lets an attendee answer an invite. Callers who are not
// on the attendee list get a 403.
func (h *Handler) UpdateAttendeeStatus(c *gin.Context) {
	id, err := parseOID(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}
	var in attendeeStatusReq
	if err := c.ShouldBindJSON(&in); err != nil {
		h.writeError(c, apperr.New(apperr.Validation, "invalid json"))
		return
	}
	status := domain.AttendeeStatus(in.Status)
	if !domain.ValidAttendeeStatus(status) {
		h.writeError(c, apperr.New(apperr.Validation, "invalid attendee status"))
		return
	}

	ctx := c.Request.Context()
	au := currentUser(c)
	e, err := h.Store.FindEventByID(ctx, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if e == nil {
		h.writeError(c, apperr.New(apperr.NotFound, "event not found"))
		return
	}
	if e.AttendeeByUser(au.ID) == nil {
		h.writeError(c, apperr.New(apperr.Forbidden, "not an attendee of this event"))
		return
	}

	if err := h.Store.SetAttendeeStatus(ctx, id, au.ID, status); err != nil {
		h.writeError(c, notFoundOr(err, "event not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "attendance updated"})
}

// GoogleCalendarConsent godoc
// @Summary Google Calendar consent URL
// @Tags events
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/events/google/consent [get]
func (h *Handler) GoogleCalendarConsent(c *gin.Context) {
	if h.Calendar == nil || h.Calendar.ClientID == "" {
		h.writeError(c, apperr.New(apperr.Internal, "google calendar is not configured"))
		return
	}
	// state round-trips through Google so the callback can be matched to
	// this user's consent attempt
	state := uuid.NewString()
	c.JSON(http.StatusOK, gin.H{
		"url":   h.Calendar.AuthCodeURL(state, oauth2.AccessTypeOffline),
		"state": state,
	})
}

// SyncGoogleCalendar links the event to an external calendar. The actual push
// to the Calendar API lives in the notify pipeline; here we record the link so
// the sync is idempotent.
func (h *Handler) SyncGoogleCalendar(c *gin.Context) {
	id, err := parseOID(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}
	ctx := c.Request.Context()
	e, err := h.Store.FindEventByID(ctx, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if e == nil {
		h.writeError(c, apperr.New(apperr.NotFound, "event not found"))
		return
	}
	if !e.IsCreator(currentUser(c).ID) {
		h.writeError(c, apperr.New(apperr.Forbidden, "only the creator can sync this event"))
		return
	}

	calendarID := e.GoogleCalendarID
	eventID := e.GoogleCalendarEventID
	if calendarID == "" {
		calendarID = "primary"
	}
	if eventID == "" {
		eventID = uuid.NewString()
	}
	if err := h.Store.SetCalendarLink(ctx, id, calendarID, eventID); err != nil {
		h.writeError(c, notFoundOr(err, "event not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "event synced to google calendar",
		"calendar_id": calendarID,
	})
}
