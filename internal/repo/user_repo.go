package repo

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/bobasync/api/internal/domain"
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	now := time.Now().UTC()
	u.Email = normalizeEmail(u.Email)
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	if u.ProfilePicture == "" {
		u.ProfilePicture = "default-avatar.png"
	}
	if u.Friends == nil {
		u.Friends = []primitive.ObjectID{}
	}
	if u.FriendRequests == nil {
		u.FriendRequests = []domain.FriendRequest{}
	}
	if u.BlockedUsers == nil {
		u.BlockedUsers = []primitive.ObjectID{}
	}
	u.CreatedAt = now
	u.UpdatedAt = now

	res, err := s.colUsers.InsertOne(ctx, u)
	if IsDup(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid
	}
	return nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := s.colUsers.FindOne(ctx, bson.M{"email": normalizeEmail(email)}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &u, err
}

func (s *Store) FindUserByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	var u domain.User
	err := s.colUsers.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &u, err
}

// FindUsersByIDs backs the friend-list projection. Order is not guaranteed.
func (s *Store) FindUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.User, error) {
	if len(ids) == 0 {
		return []domain.User{}, nil
	}
	cur, err := s.colUsers.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []domain.User{}
	for cur.Next(ctx) {
		var u domain.User
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, cur.Err()
}

func (s *Store) touch(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	set["updated_at"] = time.Now().UTC()
	res, err := s.colUsers.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) UpdateLastLogin(ctx context.Context, id primitive.ObjectID) error {
	return s.touch(ctx, id, bson.M{"last_login": time.Now().UTC()})
}

func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, name string) error {
	return s.touch(ctx, id, bson.M{"name": name})
}

// SetPassword replaces the hash and clears any outstanding reset token.
func (s *Store) SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	res, err := s.colUsers.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set":   bson.M{"password_hash": hash, "updated_at": time.Now().UTC()},
		"$unset": bson.M{"reset_password_token": "", "reset_password_expire": ""},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetGoogleIdentity stamps the OAuth subject on an existing account. Google
// emails count as verified.
func (s *Store) SetGoogleIdentity(ctx context.Context, id primitive.ObjectID, sub, picture string) error {
	set := bson.M{"google_id": sub, "email_verified": true}
	if picture != "" {
		set["profile_picture"] = picture
	}
	return s.touch(ctx, id, set)
}

// VerifyEmailByToken consumes a verification token (stored hashed).
func (s *Store) VerifyEmailByToken(ctx context.Context, tokenHash string) (*domain.User, error) {
	res := s.colUsers.FindOneAndUpdate(ctx,
		bson.M{"verification_token": tokenHash},
		bson.M{
			"$set":   bson.M{"email_verified": true, "updated_at": time.Now().UTC()},
			"$unset": bson.M{"verification_token": ""},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var u domain.User
	if err := res.Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (s *Store) SetResetToken(ctx context.Context, id primitive.ObjectID, tokenHash string, expire time.Time) error {
	return s.touch(ctx, id, bson.M{
		"reset_password_token":  tokenHash,
		"reset_password_expire": expire.UTC(),
	})
}

func (s *Store) FindUserByResetToken(ctx context.Context, tokenHash string) (*domain.User, error) {
	var u domain.User
	err := s.colUsers.FindOne(ctx, bson.M{
		"reset_password_token":  tokenHash,
		"reset_password_expire": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &u, err
}

// PushFriendRequest appends a request to the receiver's embedded list.
// Duplicate/self/blocked checks happen in the handler against fresh reads.
func (s *Store) PushFriendRequest(ctx context.Context, receiverID primitive.ObjectID, req domain.FriendRequest) error {
	res, err := s.colUsers.UpdateOne(ctx,
		bson.M{"_id": receiverID},
		bson.M{
			"$push": bson.M{"friend_requests": req},
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

// AcceptFriendRequest flips the request to accepted and adds the requester to
// the acceptor's friend set in one single-document update. The reverse edge is
// written separately by AddFriend; see the accept handler for ordering.
func (s *Store) AcceptFriendRequest(ctx context.Context, userID, requestID, from primitive.ObjectID) error {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.user.accept_request",
		tracer.Tag("user_id", userID.Hex()),
	)
	defer sp.Finish()

	res, err := s.colUsers.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$set": bson.M{
				"friend_requests.$[r].status": domain.RequestAccepted,
				"updated_at":                  time.Now().UTC(),
			},
			"$addToSet": bson.M{"friends": from},
		},
		options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{bson.M{"r._id": requestID}},
		}),
	)
	if err != nil {
		sp.SetTag("error", err)
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) RejectFriendRequest(ctx context.Context, userID, requestID primitive.ObjectID) error {
	res, err := s.colUsers.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{
			"friend_requests.$[r].status": domain.RequestRejected,
			"updated_at":                  time.Now().UTC(),
		}},
		options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{bson.M{"r._id": requestID}},
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

// AddFriend is the second half of the accept: idempotent insert on the
// requester's document.
func (s *Store) AddFriend(ctx context.Context, userID, friendID primitive.ObjectID) error {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.user.add_friend",
		tracer.Tag("user_id", userID.Hex()),
	)
	defer sp.Finish()

	res, err := s.colUsers.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$addToSet": bson.M{"friends": friendID},
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		sp.SetTag("error", err)
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveFriend pulls each side from the other's friend set.
func (s *Store) RemoveFriend(ctx context.Context, userID, friendID primitive.ObjectID) error {
	if err := s.pullFriend(ctx, userID, friendID); err != nil {
		return err
	}
	return s.pullFriend(ctx, friendID, userID)
}

func (s *Store) pullFriend(ctx context.Context, userID, friendID primitive.ObjectID) error {
	res, err := s.colUsers.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$pull": bson.M{"friends": friendID},
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

// BlockUser adds target to the blocked set and severs any friendship.
func (s *Store) BlockUser(ctx context.Context, userID, targetID primitive.ObjectID) error {
	res, err := s.colUsers.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$addToSet": bson.M{"blocked_users": targetID},
			"$pull":     bson.M{"friends": targetID},
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	_, err = s.colUsers.UpdateOne(ctx,
		bson.M{"_id": targetID},
		bson.M{"$pull": bson.M{"friends": userID}},
	)
	return err
}

func (s *Store) UnblockUser(ctx context.Context, userID, targetID primitive.ObjectID) error {
	res, err := s.colUsers.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$pull": bson.M{"blocked_users": targetID},
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
