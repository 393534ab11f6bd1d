package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bobasync/api/internal/apperr"
	"github.com/bobasync/api/internal/domain"
	"github.com/bobasync/api/internal/metrics"
	"github.com/bobasync/api/internal/queue"
)

func parseOID(c *gin.Context, param string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Param(param))
	if err != nil {
		return primitive.NilObjectID, apperr.Validationf("invalid %s", param)
	}
	return id, nil
}

// ListFriends godoc
// @Summary List the caller's friends
// @Tags friends
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/friends [get]
func (h *Handler) ListFriends(c *gin.Context) {
	ctx := c.Request.Context()
	au := currentUser(c)

	u, err := h.Store.FindUserByID(ctx, au.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if u == nil {
		h.writeError(c, apperr.New(apperr.NotFound, "user not found"))
		return
	}

	friends, err := h.Store.FindUsersByIDs(ctx, u.Friends)
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := make([]domain.PublicProfile, 0, len(friends))
	for i := range friends {
		out = append(out, friends[i].Public())
	}
	c.JSON(http.StatusOK, gin.H{"friends": out})
}

type friendRequestView struct {
	ID        primitive.ObjectID    `json:"id"`
	From      *domain.PublicProfile `json:"from"`
	Status    domain.RequestStatus  `json:"status"`
	CreatedAt time.Time             `json:"created_at"`
}

// PendingFriendRequests returns the caller's pending requests with the sender
// profile joined in. Senders whose accounts vanished are skipped.
func (h *Handler) PendingFriendRequests(c *gin.Context) {
	ctx := c.Request.Context()
	au := currentUser(c)

	u, err := h.Store.FindUserByID(ctx, au.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if u == nil {
		h.writeError(c, apperr.New(apperr.NotFound, "user not found"))
		return
	}

	pending := u.PendingRequests()
	ids := make([]primitive.ObjectID, 0, len(pending))
	for _, r := range pending {
		ids = append(ids, r.From)
	}
	senders, err := h.Store.FindUsersByIDs(ctx, ids)
	if err != nil {
		h.writeError(c, err)
		return
	}
	byID := make(map[primitive.ObjectID]*domain.User, len(senders))
	for i := range senders {
		byID[senders[i].ID] = &senders[i]
	}

	out := make([]friendRequestView, 0, len(pending))
	for _, r := range pending {
		sender, ok := byID[r.From]
		if !ok {
			continue
		}
		p := sender.Public()
		out = append(out, friendRequestView{ID: r.ID, From: &p, Status: r.Status, CreatedAt: r.CreatedAt})
	}
	c.JSON(http.StatusOK, gin.H{"requests": out})
}

// SendFriendRequest godoc
// @Summary Send a friend request
// @Tags friends
// @Security BearerAuth
// @Produce json
// @Param userId path string true "receiver id"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/friends/requests/{userId} [post]
func (h *Handler) SendFriendRequest(c *gin.Context) {
	receiverID, err := parseOID(c, "userId")
	if err != nil {
		h.writeError(c, err)
		return
	}
	ctx := c.Request.Context()
	au := currentUser(c)

	if receiverID == au.ID {
		h.writeError(c, apperr.New(apperr.Validation, "cannot send a friend request to yourself"))
		return
	}

	sender, err := h.Store.FindUserByID(ctx, au.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	receiver, err := h.Store.FindUserByID(ctx, receiverID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if sender == nil || receiver == nil {
		h.writeError(c, apperr.New(apperr.NotFound, "user not found"))
		return
	}
	if sender.HasBlocked(receiverID) || receiver.HasBlocked(au.ID) {
		h.writeError(c, apperr.New(apperr.Forbidden, "cannot send a friend request to this user"))
		return
	}
	if sender.HasFriend(receiverID) {
		h.writeError(c, apperr.New(apperr.Validation, "already friends with this user"))
		return
	}
	if receiver.PendingOrAcceptedFrom(au.ID) {
		h.writeError(c, apperr.New(apperr.Validation, "friend request already sent"))
		return
	}

	req := domain.FriendRequest{
		ID:        primitive.NewObjectID(),
		From:      au.ID,
		Status:    domain.RequestPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.PushFriendRequest(ctx, receiverID, req); err != nil {
		h.writeError(c, notFoundOr(err, "user not found"))
		return
	}

	metrics.FriendRequestsTotal.WithLabelValues("sent").Inc()
	go h.Events.Publish(ctx, queue.Exchange, queue.KeyFriendRequested,
		queue.FriendRequested{RequestID: req.ID, SenderID: au.ID, ReceiverID: receiverID},
		c.GetString(requestIDKey))

	c.JSON(http.StatusOK, gin.H{"request": req})
}

// AcceptFriendRequest accepts a pending request addressed to the caller. The
// caller's document is updated atomically; the requester's friend edge is
// written after, idempotently, so a retry converges.
func (h *Handler) AcceptFriendRequest(c *gin.Context) {
	requestID, err := parseOID(c, "requestId")
	if err != nil {
		h.writeError(c, err)
		return
	}
	ctx := c.Request.Context()
	au := currentUser(c)

	u, err := h.Store.FindUserByID(ctx, au.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if u == nil {
		h.writeError(c, apperr.New(apperr.NotFound, "user not found"))
		return
	}
	req, ok := u.RequestsByID()[requestID]
	if !ok {
		h.writeError(c, apperr.New(apperr.NotFound, "friend request not found"))
		return
	}
	if req.Status != domain.RequestPending {
		h.writeError(c, apperr.New(apperr.Validation, "friend request is not pending"))
		return
	}

	if err := h.Store.AcceptFriendRequest(ctx, au.ID, requestID, req.From); err != nil {
		h.writeError(c, notFoundOr(err, "friend request not found"))
		return
	}
	if err := h.Store.AddFriend(ctx, req.From, au.ID); err != nil {
		h.writeError(c, notFoundOr(err, "user not found"))
		return
	}

	metrics.FriendRequestsTotal.WithLabelValues("accepted").Inc()
	go h.Events.Publish(ctx, queue.Exchange, queue.KeyFriendAccepted,
		queue.FriendAccepted{RequestID: requestID, SenderID: req.From, ReceiverID: au.ID},
		c.GetString(requestIDKey))

	c.JSON(http.StatusOK, gin.H{"message": "friend request accepted"})
}

func (h *Handler) RejectFriendRequest(c *gin.Context) {
	requestID, err := parseOID(c, "requestId")
	if err != nil {
		h.writeError(c, err)
		return
	}
	ctx := c.Request.Context()
	au := currentUser(c)

	u, err := h.Store.FindUserByID(ctx, au.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if u == nil {
		h.writeError(c, apperr.New(apperr.NotFound, "user not found"))
		return
	}
	req, ok := u.RequestsByID()[requestID]
	if !ok {
		h.writeError(c, apperr.New(apperr.NotFound, "friend request not found"))
		return
	}
	if req.Status != domain.RequestPending {
		h.writeError(c, apperr.New(apperr.Validation, "friend request is not pending"))
		return
	}

	if err := h.Store.RejectFriendRequest(ctx, au.ID, requestID); err != nil {
		h.writeError(c, notFoundOr(err, "friend request not found"))
		return
	}
	metrics.FriendRequestsTotal.WithLabelValues("rejected").Inc()
	c.JSON(http.StatusOK, gin.H{"message": "friend request rejected"})
}

func (h *Handler) RemoveFriend(c *gin.Context) {
	friendID, err := parseOID(c, "friendId")
	if err != nil {
		h.writeError(c, err)
		return
	}
	ctx := c.Request.Context()
	au := currentUser(c)

	u, err := h.Store.FindUserByID(ctx, au.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if u == nil {
		h.writeError(c, apperr.New(apperr.NotFound, "user not found"))
		return
	}
	if !u.HasFriend(friendID) {
		h.writeError(c, apperr.New(apperr.Validation, "not friends with this user"))
		return
	}

	if err := h.Store.RemoveFriend(ctx, au.ID, friendID); err != nil {
		h.writeError(c, notFoundOr(err, "user not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "friend removed"})
}

// BlockUser also severs an existing friendship in both directions.
func (h *Handler) BlockUser(c *gin.Context) {
	targetID, err := parseOID(c, "userId")
	if err != nil {
		h.writeError(c, err)
		return
	}
	ctx := c.Request.Context()
	au := currentUser(c)

	if targetID == au.ID {
		h.writeError(c, apperr.New(apperr.Validation, "cannot block yourself"))
		return
	}
	target, err := h.Store.FindUserByID(ctx, targetID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if target == nil {
		h.writeError(c, apperr.New(apperr.NotFound, "user not found"))
		return
	}

	if err := h.Store.BlockUser(ctx, au.ID, targetID); err != nil {
		h.writeError(c, notFoundOr(err, "user not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user blocked"})
}

func (h *Handler) UnblockUser(c *gin.Context) {
	targetID, err := parseOID(c, "userId")
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.Store.UnblockUser(c.Request.Context(), currentUser(c).ID, targetID); err != nil {
		h.writeError(c, notFoundOr(err, "user not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user unblocked"})
}
