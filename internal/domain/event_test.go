package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bobasync/api/internal/domain"
)

func TestHasAttendee(t *testing.T) {
	uid := primitive.NewObjectID()
	e := &domain.Event{Attendees: []domain.Attendee{
		{UserID: uid, Email: "alice@example.com", Status: domain.AttendeeAccepted},
		{Email: "guest@example.com", Status: domain.AttendeePending},
	}}

	assert.True(t, e.HasAttendee(uid, ""))
	assert.True(t, e.HasAttendee(primitive.NilObjectID, "alice@example.com"))
	assert.True(t, e.HasAttendee(primitive.NilObjectID, "guest@example.com"))
	assert.False(t, e.HasAttendee(primitive.NewObjectID(), "other@example.com"))
}

func TestCanView(t *testing.T) {
	creator := primitive.NewObjectID()
	attendee := primitive.NewObjectID()
	outsider := primitive.NewObjectID()

	private := &domain.Event{
		Creator:    creator,
		Visibility: domain.VisibilityPrivate,
		Attendees:  []domain.Attendee{{UserID: attendee, Email: "a@example.com"}},
	}
	assert.True(t, private.CanView(creator))
	assert.True(t, private.CanView(attendee))
	assert.False(t, private.CanView(outsider))

	public := &domain.Event{Creator: creator, Visibility: domain.VisibilityPublic}
	assert.True(t, public.CanView(outsider))

	// friends visibility is stored but not gated on read
	friends := &domain.Event{Creator: creator, Visibility: domain.VisibilityFriends}
	assert.True(t, friends.CanView(outsider))
}

func TestEarliestDate(t *testing.T) {
	early := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	e := &domain.Event{EventDates: []domain.EventDate{{Date: late}, {Date: early}}}
	assert.Equal(t, early, e.EarliestDate())

	empty := &domain.Event{}
	assert.True(t, empty.EarliestDate().IsZero())
}
