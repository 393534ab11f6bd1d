package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EventStatus string

const (
	EventScheduled EventStatus = "scheduled"
	EventTentative EventStatus = "tentative"
	EventConfirmed EventStatus = "confirmed"
	EventCancelled EventStatus = "cancelled"
)

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
	VisibilityFriends Visibility = "friends"
)

type AttendeeStatus string

const (
	AttendeePending   AttendeeStatus = "pending"
	AttendeeAccepted  AttendeeStatus = "accepted"
	AttendeeDeclined  AttendeeStatus = "declined"
	AttendeeTentative AttendeeStatus = "tentative"
)

type RecurrencePattern string

const (
	RecurrenceNone     RecurrencePattern = "none"
	RecurrenceDaily    RecurrencePattern = "daily"
	RecurrenceWeekly   RecurrencePattern = "weekly"
	RecurrenceBiweekly RecurrencePattern = "biweekly"
	RecurrenceMonthly  RecurrencePattern = "monthly"
	RecurrenceYearly   RecurrencePattern = "yearly"
	RecurrenceCustom   RecurrencePattern = "custom"
)

type Coordinates struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}

type Location struct {
	Address     string       `bson:"address,omitempty" json:"address,omitempty"`
	Coordinates *Coordinates `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
	Virtual     bool         `bson:"virtual" json:"virtual"`
	MeetingLink string       `bson:"meeting_link,omitempty" json:"meeting_link,omitempty"`
}

// EventDate is one occurrence day; an event may carry several non-consecutive
// dates, each with its own all-day flag and times.
type EventDate struct {
	Date      time.Time  `bson:"date" json:"date"`
	IsAllDay  bool       `bson:"is_all_day" json:"is_all_day"`
	StartTime *time.Time `bson:"start_time,omitempty" json:"start_time,omitempty"`
	EndTime   *time.Time `bson:"end_time,omitempty" json:"end_time,omitempty"`
}

type Recurrence struct {
	Pattern             RecurrencePattern `bson:"pattern" json:"pattern"`
	Interval            int               `bson:"interval,omitempty" json:"interval,omitempty"`
	EndDate             *time.Time        `bson:"end_date,omitempty" json:"end_date,omitempty"`
	EndAfterOccurrences int               `bson:"end_after_occurrences,omitempty" json:"end_after_occurrences,omitempty"`
	ByDaysOfWeek        []int             `bson:"by_days_of_week,omitempty" json:"by_days_of_week,omitempty"`
	ByDaysOfMonth       []int             `bson:"by_days_of_month,omitempty" json:"by_days_of_month,omitempty"`
	ExcludeDates        []time.Time       `bson:"exclude_dates,omitempty" json:"exclude_dates,omitempty"`
}

type ReminderType string

const (
	ReminderEmail        ReminderType = "email"
	ReminderNotification ReminderType = "notification"
	ReminderBoth         ReminderType = "both"
)

type Reminder struct {
	Type ReminderType `bson:"type" json:"type"`
	Time int          `bson:"time" json:"time"` // minutes before the event
}

// Attendee is embedded in the event; either a user reference or a bare email.
type Attendee struct {
	UserID       primitive.ObjectID `bson:"user_id,omitempty" json:"user_id,omitempty"`
	Email        string             `bson:"email" json:"email"`
	Status       AttendeeStatus     `bson:"status" json:"status"`
	ResponseTime *time.Time         `bson:"response_time,omitempty" json:"response_time,omitempty"`
}

type Event struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Location    *Location          `bson:"location,omitempty" json:"location,omitempty"`
	Creator     primitive.ObjectID `bson:"creator" json:"creator"`
	EventDates  []EventDate        `bson:"event_dates" json:"event_dates"`
	Timezone    string             `bson:"timezone" json:"timezone"`
	Recurrence  *Recurrence        `bson:"recurrence,omitempty" json:"recurrence,omitempty"`
	Status      EventStatus        `bson:"status" json:"status"`
	Attendees   []Attendee         `bson:"attendees" json:"attendees"`
	Visibility  Visibility         `bson:"visibility" json:"visibility"`
	Reminders   []Reminder         `bson:"reminders" json:"reminders"`

	// external calendar linkage; stripped from public payloads
	GoogleCalendarEventID string `bson:"google_calendar_event_id,omitempty" json:"-"`
	GoogleCalendarID      string `bson:"google_calendar_id,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

func (e *Event) IsCreator(id primitive.ObjectID) bool { return e.Creator == id }

// HasAttendee deduplicates by user reference or email: either match counts.
func (e *Event) HasAttendee(userID primitive.ObjectID, email string) bool {
	for _, a := range e.Attendees {
		if !userID.IsZero() && a.UserID == userID {
			return true
		}
		if email != "" && a.Email == email {
			return true
		}
	}
	return false
}

func (e *Event) AttendeeByUser(id primitive.ObjectID) *Attendee {
	for i := range e.Attendees {
		if e.Attendees[i].UserID == id {
			return &e.Attendees[i]
		}
	}
	return nil
}

// CanView enforces read access: private events are visible to the creator and
// listed attendees only. Public and friends-visible events are readable by
// any authenticated user, matching the reference behavior.
func (e *Event) CanView(userID primitive.ObjectID) bool {
	if e.Visibility != VisibilityPrivate {
		return true
	}
	return e.IsCreator(userID) || e.AttendeeByUser(userID) != nil
}

// EarliestDate is used for upcoming-event ordering; zero when no dates.
func (e *Event) EarliestDate() time.Time {
	var min time.Time
	for _, d := range e.EventDates {
		if min.IsZero() || d.Date.Before(min) {
			min = d.Date
		}
	}
	return min
}

func ValidEventStatus(s EventStatus) bool {
	switch s {
	case EventScheduled, EventTentative, EventConfirmed, EventCancelled:
		return true
	}
	return false
}

func ValidAttendeeStatus(s AttendeeStatus) bool {
	switch s {
	case AttendeePending, AttendeeAccepted, AttendeeDeclined, AttendeeTentative:
		return true
	}
	return false
}

func ValidVisibility(v Visibility) bool {
	switch v {
	case VisibilityPublic, VisibilityPrivate, VisibilityFriends:
		return true
	}
	return false
}
