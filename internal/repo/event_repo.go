package repo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/bobasync/api/internal/domain"
)

func (s *Store) InsertEvent(ctx context.Context, e *domain.Event) error {
	now := time.Now().UTC()
	if e.Status == "" {
		e.Status = domain.EventScheduled
	}
	if e.Visibility == "" {
		e.Visibility = domain.VisibilityPrivate
	}
	if e.Timezone == "" {
		e.Timezone = "UTC"
	}
	if e.Attendees == nil {
		e.Attendees = []domain.Attendee{}
	}
	if e.Reminders == nil {
		e.Reminders = []domain.Reminder{}
	}
	e.CreatedAt = now
	e.UpdatedAt = now

	res, err := s.colEvents.InsertOne(ctx, e)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		e.ID = oid
	}
	return nil
}

func (s *Store) FindEventByID(ctx context.Context, id primitive.ObjectID) (*domain.Event, error) {
	var e domain.Event
	err := s.colEvents.FindOne(ctx, bson.M{"_id": id}).Decode(&e)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &e, err
}

// ReplaceEvent persists a fully merged event document. The handler loads,
// merges and validates before calling this.
func (s *Store) ReplaceEvent(ctx context.Context, e *domain.Event) error {
	e.UpdatedAt = time.Now().UTC()
	res, err := s.colEvents.ReplaceOne(ctx, bson.M{"_id": e.ID}, e)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteEvent(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.colEvents.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// EventFilter narrows the user-events query; zero values mean "no filter".
type EventFilter struct {
	Start  *time.Time
	End    *time.Time
	Status domain.EventStatus
}

// FindUserEvents returns events where the user is creator or listed attendee,
// sorted by earliest occurrence date.
func (s *Store) FindUserEvents(ctx context.Context, userID primitive.ObjectID, f EventFilter) ([]domain.Event, error) {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.event.list",
		tracer.Tag("user_id", userID.Hex()),
	)
	defer sp.Finish()

	q := bson.M{
		"$or": bson.A{
			bson.M{"creator": userID},
			bson.M{"attendees.user_id": userID},
		},
	}
	if f.Start != nil || f.End != nil {
		rng := bson.M{}
		if f.Start != nil {
			rng["$gte"] = f.Start.UTC()
		}
		if f.End != nil {
			rng["$lte"] = f.End.UTC()
		}
		q["event_dates.date"] = rng
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	return s.findEvents(ctx, q, 0)
}

// FindUpcomingEvents returns future, non-cancelled events for the user,
// earliest first, capped at limit.
func (s *Store) FindUpcomingEvents(ctx context.Context, userID primitive.ObjectID, now time.Time, limit int) ([]domain.Event, error) {
	q := bson.M{
		"$or": bson.A{
			bson.M{"creator": userID},
			bson.M{"attendees.user_id": userID},
		},
		"event_dates.date": bson.M{"$gte": now.UTC()},
		"status":           bson.M{"$ne": domain.EventCancelled},
	}
	return s.findEvents(ctx, q, int64(limit))
}

func (s *Store) findEvents(ctx context.Context, q bson.M, limit int64) ([]domain.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "event_dates.date", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.colEvents.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []domain.Event{}
	for cur.Next(ctx) {
		var e domain.Event
		if err := cur.Decode(&e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, cur.Err()
}

func (s *Store) PushAttendee(ctx context.Context, eventID primitive.ObjectID, att domain.Attendee) error {
	res, err := s.colEvents.UpdateOne(ctx,
		bson.M{"_id": eventID},
		bson.M{
			"$push": bson.M{"attendees": att},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAttendeeStatus updates the caller's own embedded attendee entry and
// stamps the response time.
func (s *Store) SetAttendeeStatus(ctx context.Context, eventID, userID primitive.ObjectID, status domain.AttendeeStatus) error {
	res, err := s.colEvents.UpdateOne(ctx,
		bson.M{"_id": eventID},
		bson.M{"$set": bson.M{
			"attendees.$[a].status":        status,
			"attendees.$[a].response_time": time.Now().UTC(),
			"updated_at":                   time.Now().UTC(),
		}},
		options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{bson.M{"a.user_id": userID}},
		}),
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetCalendarLink records the external calendar ids for a synced event.
func (s *Store) SetCalendarLink(ctx context.Context, eventID primitive.ObjectID, calendarID, calendarEventID string) error {
	res, err := s.colEvents.UpdateOne(ctx,
		bson.M{"_id": eventID},
		bson.M{"$set": bson.M{
			"google_calendar_id":       calendarID,
			"google_calendar_event_id": calendarEventID,
			"updated_at":               time.Now().UTC(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
