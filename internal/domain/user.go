package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestRejected RequestStatus = "rejected"
)

// FriendRequest is embedded in the receiver's document. Its id only addresses
// the entry inside the parent array.
type FriendRequest struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	From      primitive.ObjectID `bson:"from" json:"from"`
	Status    RequestStatus      `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name           string             `bson:"name" json:"name"`
	Email          string             `bson:"email" json:"email"`
	PasswordHash   string             `bson:"password_hash" json:"-"`
	Role           Role               `bson:"role" json:"role"`
	GoogleID       string             `bson:"google_id,omitempty" json:"-"`
	ProfilePicture string             `bson:"profile_picture" json:"profile_picture"`
	EmailVerified  bool               `bson:"email_verified" json:"email_verified"`

	// sha256 hex of the issued tokens; never serialized
	VerificationToken   string     `bson:"verification_token,omitempty" json:"-"`
	ResetPasswordToken  string     `bson:"reset_password_token,omitempty" json:"-"`
	ResetPasswordExpire *time.Time `bson:"reset_password_expire,omitempty" json:"-"`

	LastLogin *time.Time `bson:"last_login,omitempty" json:"last_login,omitempty"`

	Friends        []primitive.ObjectID `bson:"friends" json:"friends"`
	FriendRequests []FriendRequest      `bson:"friend_requests" json:"friend_requests"`
	BlockedUsers   []primitive.ObjectID `bson:"blocked_users" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// PublicProfile is the subset of a user safe to return over the API.
// Password hash, verification/reset tokens and the blocked list never cross
// the boundary.
type PublicProfile struct {
	ID             primitive.ObjectID `json:"id"`
	Name           string             `json:"name"`
	Email          string             `json:"email"`
	Role           Role               `json:"role"`
	ProfilePicture string             `json:"profile_picture"`
	EmailVerified  bool               `json:"email_verified"`
	LastLogin      *time.Time         `json:"last_login,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
}

func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Role:           u.Role,
		ProfilePicture: u.ProfilePicture,
		EmailVerified:  u.EmailVerified,
		LastLogin:      u.LastLogin,
		CreatedAt:      u.CreatedAt,
	}
}

func (u *User) HasFriend(id primitive.ObjectID) bool {
	for _, f := range u.Friends {
		if f == id {
			return true
		}
	}
	return false
}

func (u *User) HasBlocked(id primitive.ObjectID) bool {
	for _, b := range u.BlockedUsers {
		if b == id {
			return true
		}
	}
	return false
}

// RequestsByID builds an ephemeral index over the embedded request array.
// Rebuilt on every read, never stored on the document.
func (u *User) RequestsByID() map[primitive.ObjectID]*FriendRequest {
	m := make(map[primitive.ObjectID]*FriendRequest, len(u.FriendRequests))
	for i := range u.FriendRequests {
		m[u.FriendRequests[i].ID] = &u.FriendRequests[i]
	}
	return m
}

// PendingOrAcceptedFrom reports whether sender already has a live request on
// this user's list. Rejected requests do not block a new attempt.
func (u *User) PendingOrAcceptedFrom(sender primitive.ObjectID) bool {
	for _, r := range u.FriendRequests {
		if r.From == sender && (r.Status == RequestPending || r.Status == RequestAccepted) {
			return true
		}
	}
	return false
}

func (u *User) PendingRequests() []FriendRequest {
	out := []FriendRequest{}
	for _, r := range u.FriendRequests {
		if r.Status == RequestPending {
			out = append(out, r)
		}
	}
	return out
}
