package repo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

type Store struct {
	Client    *mongo.Client
	DB        *mongo.Database
	colUsers  *mongo.Collection
	colEvents *mongo.Collection
}

func NewStore(ctx context.Context, uri, dbname string) (*Store, error) {
	cli, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetRetryWrites(true).
		SetMaxPoolSize(50),
	)
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(ctx, nil); err != nil {
		return nil, err
	}
	db := cli.Database(dbname)
	return &Store{
		Client:    cli,
		DB:        db,
		colUsers:  db.Collection("users"),
		colEvents: db.Collection("events"),
	}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.Client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.Client.Disconnect(ctx)
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	if err := s.ensureUserIndexes(ctx); err != nil {
		return err
	}
	return s.ensureEventIndexes(ctx)
}

func (s *Store) ensureUserIndexes(ctx context.Context) error {
	_, err := s.colUsers.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_email"),
		},
		{
			Keys:    bson.D{{Key: "google_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true).SetName("uniq_google_id"),
		},
	})
	return err
}

func (s *Store) ensureEventIndexes(ctx context.Context) error {
	_, err := s.colEvents.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "creator", Value: 1}},
			Options: options.Index().SetName("creator"),
		},
		{
			Keys:    bson.D{{Key: "attendees.user_id", Value: 1}},
			Options: options.Index().SetName("attendee_user"),
		},
		{
			Keys:    bson.D{{Key: "event_dates.date", Value: 1}},
			Options: options.Index().SetName("event_date"),
		},
		{
			Keys:    bson.D{{Key: "google_calendar_event_id", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("gcal_event"),
		},
	})
	return err
}

// IsDup reports a mongo unique-index violation (code 11000).
func IsDup(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce *mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	return false
}
