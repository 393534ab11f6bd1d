package queue

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Exchange is the topic exchange all API events are published to.
const Exchange = "bobasync.events"

// Routing keys.
const (
	KeyUserRegistered  = "user.registered"
	KeyFriendRequested = "friend.request.sent"
	KeyFriendAccepted  = "friend.request.accepted"
	KeyAttendeeAdded   = "event.attendee.added"
	KeyPasswordReset   = "user.password_reset_requested"
)

type UserRegistered struct {
	UserID      primitive.ObjectID `json:"user_id"`
	Email       string             `json:"email"`
	Name        string             `json:"name"`
	VerifyToken string             `json:"verify_token,omitempty"` // consumed by the mailer
}

type FriendRequested struct {
	RequestID  primitive.ObjectID `json:"request_id"`
	SenderID   primitive.ObjectID `json:"sender_id"`
	ReceiverID primitive.ObjectID `json:"receiver_id"`
}

type FriendAccepted struct {
	RequestID  primitive.ObjectID `json:"request_id"`
	SenderID   primitive.ObjectID `json:"sender_id"`
	ReceiverID primitive.ObjectID `json:"receiver_id"`
}

type AttendeeAdded struct {
	EventID primitive.ObjectID `json:"event_id"`
	Email   string             `json:"email"`
	UserID  primitive.ObjectID `json:"user_id,omitempty"`
	Title   string             `json:"title"`
}

type PasswordResetRequested struct {
	UserID     primitive.ObjectID `json:"user_id"`
	Email      string             `json:"email"`
	ResetToken string             `json:"reset_token"`
}
