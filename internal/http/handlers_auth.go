package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/bobasync/api/internal/apperr"
	"github.com/bobasync/api/internal/domain"
	"github.com/bobasync/api/internal/log"
	"github.com/bobasync/api/internal/queue"
	"github.com/bobasync/api/internal/repo"
	"github.com/bobasync/api/internal/security"
)

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResp struct {
	User  domain.PublicProfile `json:"user"`
	Token string               `json:"token"`
}

func (h *Handler) issueToken(u *domain.User) (string, error) {
	return security.MakeAccess(h.JWTSecret, u.ID.Hex(), u.Email, string(u.Role))
}

// Register godoc
// @Summary Register with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body registerReq true "register"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /api/auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var in registerReq
	if err := c.ShouldBindJSON(&in); err != nil {
		h.writeError(c, apperr.New(apperr.Validation, "invalid json"))
		return
	}
	if v := domain.ValidateRegistration(in.Name, in.Email, in.Password); len(v) > 0 {
		h.writeError(c, apperr.New(apperr.Validation, strings.Join(v, ", ")))
		return
	}

	ctx := c.Request.Context()
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if existing, err := h.Store.FindUserByEmail(ctx, email); err != nil {
		h.writeError(c, err)
		return
	} else if existing != nil {
		h.writeError(c, apperr.New(apperr.Validation, "email already registered"))
		return
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	verifyToken, err := security.NewOpaqueToken()
	if err != nil {
		h.writeError(c, err)
		return
	}

	u := &domain.User{
		Name:              strings.TrimSpace(in.Name),
		Email:             email,
		PasswordHash:      hash,
		VerificationToken: security.HashToken(verifyToken),
	}
	if err := h.Store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			h.writeError(c, apperr.New(apperr.Validation, "email already registered"))
			return
		}
		h.writeError(c, err)
		return
	}

	tok, err := h.issueToken(u)
	if err != nil {
		h.writeError(c, err)
		return
	}

	go h.Events.Publish(ctx, queue.Exchange, queue.KeyUserRegistered,
		queue.UserRegistered{UserID: u.ID, Email: u.Email, Name: u.Name, VerifyToken: verifyToken},
		c.GetString(requestIDKey))

	resp := gin.H{"user": u.Public(), "token": tok}
	if h.Dev {
		// the mailer is not wired in dev; surface the token for manual flows
		resp["verify_token_dev"] = verifyToken
	}
	c.JSON(http.StatusCreated, resp)
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login godoc
// @Summary Login with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body loginReq true "login"
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]string
// @Router /api/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var in loginReq
	if err := c.ShouldBindJSON(&in); err != nil {
		h.writeError(c, apperr.New(apperr.Validation, "invalid json"))
		return
	}
	ctx := c.Request.Context()
	u, err := h.Store.FindUserByEmail(ctx, in.Email)
	if err != nil {
		h.writeError(c, err)
		return
	}
	// one uniform message for unknown email and wrong password
	if u == nil || !security.CheckPassword(u.PasswordHash, in.Password) {
		h.writeError(c, apperr.New(apperr.Authentication, "invalid credentials"))
		return
	}

	if err := h.Store.UpdateLastLogin(ctx, u.ID); err != nil {
		log.WithDD(ctx, log.L).Warn("last login update failed", zap.Error(err))
	}

	tok, err := h.issueToken(u)
	if err != nil {
		h.writeError(c, err)
		return
	}
	now := time.Now().UTC()
	u.LastLogin = &now
	c.JSON(http.StatusOK, authResp{User: u.Public(), Token: tok})
}

type googleAuthReq struct {
	IDToken string `json:"idToken"`
	Token   string `json:"token"` // older clients send "token"
}

// GoogleAuth godoc
// @Summary Sign in with a Google ID token
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body googleAuthReq true "google id token"
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]string
// @Router /api/auth/google [post]
func (h *Handler) GoogleAuth(c *gin.Context) {
	var in googleAuthReq
	if err := c.ShouldBindJSON(&in); err != nil {
		h.writeError(c, apperr.New(apperr.Validation, "invalid json"))
		return
	}
	idToken := in.IDToken
	if idToken == "" {
		idToken = in.Token
	}
	if idToken == "" {
		h.writeError(c, apperr.New(apperr.Validation, "idToken is required"))
		return
	}

	ctx := c.Request.Context()
	gu, err := h.Google.Verify(ctx, idToken)
	if err != nil {
		h.writeError(c, apperr.Wrap(apperr.Authentication, "google authentication failed", err))
		return
	}

	u, err := h.Store.FindUserByEmail(ctx, gu.Email)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if u == nil {
		// first sign-in: provision an account with an unusable password
		pw, err := security.RandomPassword()
		if err != nil {
			h.writeError(c, err)
			return
		}
		hash, err := security.HashPassword(pw)
		if err != nil {
			h.writeError(c, err)
			return
		}
		u = &domain.User{
			Name:           gu.Name,
			Email:          gu.Email,
			PasswordHash:   hash,
			GoogleID:       gu.Sub,
			ProfilePicture: gu.Picture,
			EmailVerified:  true,
		}
		if err := h.Store.CreateUser(ctx, u); err != nil {
			h.writeError(c, err)
			return
		}
	} else {
		if err := h.Store.SetGoogleIdentity(ctx, u.ID, gu.Sub, gu.Picture); err != nil {
			h.writeError(c, notFoundOr(err, "user not found"))
			return
		}
		u.GoogleID = gu.Sub
		u.EmailVerified = true
		if gu.Picture != "" {
			u.ProfilePicture = gu.Picture
		}
	}

	tok, err := h.issueToken(u)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, authResp{User: u.Public(), Token: tok})
}

type validateReq struct {
	Token string `json:"token"`
}

// ValidateToken reports validity as a boolean result; it never fails the
// request for a bad token.
func (h *Handler) ValidateToken(c *gin.Context) {
	var in validateReq
	if err := c.ShouldBindJSON(&in); err != nil || in.Token == "" {
		c.JSON(http.StatusOK, gin.H{"valid": false})
		return
	}
	claims, err := security.ParseAccess(h.JWTSecret, in.Token)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false})
		return
	}
	u, err := h.findUserByHex(c, claims.UID)
	if err != nil || u == nil {
		c.JSON(http.StatusOK, gin.H{"valid": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "user": u.Public()})
}

func (h *Handler) findUserByHex(c *gin.Context, hex string) (*domain.User, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return nil, err
	}
	return h.Store.FindUserByID(c.Request.Context(), id)
}

// Me godoc
// @Summary Current user
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]string
// @Router /api/auth/me [get]
func (h *Handler) Me(c *gin.Context) {
	au := currentUser(c)
	u, err := h.Store.FindUserByID(c.Request.Context(), au.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if u == nil {
		h.writeError(c, apperr.New(apperr.NotFound, "user not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u.Public()})
}

type changePasswordReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *Handler) ChangePassword(c *gin.Context) {
	var in changePasswordReq
	if err := c.ShouldBindJSON(&in); err != nil {
		h.writeError(c, apperr.New(apperr.Validation, "invalid json"))
		return
	}
	if v := domain.ValidatePassword(in.NewPassword); len(v) > 0 {
		h.writeError(c, apperr.New(apperr.Validation, strings.Join(v, ", ")))
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
	if !security.CheckPassword(u.PasswordHash, in.CurrentPassword) {
		h.writeError(c, apperr.New(apperr.Authentication, "current password is incorrect"))
		return
	}

	hash, err := security.HashPassword(in.NewPassword)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.Store.SetPassword(ctx, u.ID, hash); err != nil {
		h.writeError(c, notFoundOr(err, "user not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password changed successfully"})
}

func (h *Handler) VerifyEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		h.writeError(c, apperr.New(apperr.Validation, "token is required"))
		return
	}
	u, err := h.Store.VerifyEmailByToken(c.Request.Context(), security.HashToken(token))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if u == nil {
		h.writeError(c, apperr.New(apperr.Validation, "invalid or expired verification token"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "email verified successfully"})
}

type forgotPasswordReq struct {
	Email string `json:"email"`
}

// ForgotPassword issues a 30-minute reset token. The response is identical
// whether or not the email exists.
func (h *Handler) ForgotPassword(c *gin.Context) {
	var in forgotPasswordReq
	if err := c.ShouldBindJSON(&in); err != nil || in.Email == "" {
		h.writeError(c, apperr.New(apperr.Validation, "email is required"))
		return
	}
	ctx := c.Request.Context()
	resp := gin.H{"message": "if the account exists, a reset email has been sent"}

	u, err := h.Store.FindUserByEmail(ctx, in.Email)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if u == nil {
		c.JSON(http.StatusOK, resp)
		return
	}

	resetToken, err := security.NewOpaqueToken()
	if err != nil {
		h.writeError(c, err)
		return
	}
	expire := time.Now().Add(30 * time.Minute)
	if err := h.Store.SetResetToken(ctx, u.ID, security.HashToken(resetToken), expire); err != nil {
		h.writeError(c, notFoundOr(err, "user not found"))
		return
	}

	go h.Events.Publish(ctx, queue.Exchange, queue.KeyPasswordReset,
		queue.PasswordResetRequested{UserID: u.ID, Email: u.Email, ResetToken: resetToken},
		c.GetString(requestIDKey))

	if h.Dev {
		resp["reset_token_dev"] = resetToken
	}
	c.JSON(http.StatusOK, resp)
}

type resetPasswordReq struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var in resetPasswordReq
	if err := c.ShouldBindJSON(&in); err != nil || in.Token == "" {
		h.writeError(c, apperr.New(apperr.Validation, "invalid json"))
		return
	}
	if v := domain.ValidatePassword(in.NewPassword); len(v) > 0 {
		h.writeError(c, apperr.New(apperr.Validation, strings.Join(v, ", ")))
		return
	}

	ctx := c.Request.Context()
	u, err := h.Store.FindUserByResetToken(ctx, security.HashToken(in.Token))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if u == nil {
		h.writeError(c, apperr.New(apperr.Validation, "invalid or expired reset token"))
		return
	}

	hash, err := security.HashPassword(in.NewPassword)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.Store.SetPassword(ctx, u.ID, hash); err != nil {
		h.writeError(c, notFoundOr(err, "user not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password reset successful"})
}

type updateProfileReq struct {
	Name string `json:"name"`
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var in updateProfileReq
	if err := c.ShouldBindJSON(&in); err != nil {
		h.writeError(c, apperr.New(apperr.Validation, "invalid json"))
		return
	}
	name := strings.TrimSpace(in.Name)
	if len(name) < 2 || len(name) > 50 {
		h.writeError(c, apperr.New(apperr.Validation, "name must be between 2 and 50 characters"))
		return
	}

	ctx := c.Request.Context()
	au := currentUser(c)
	if err := h.Store.UpdateProfile(ctx, au.ID, name); err != nil {
		h.writeError(c, notFoundOr(err, "user not found"))
		return
	}
	u, err := h.Store.FindUserByID(ctx, au.ID)
	if err != nil || u == nil {
		h.writeError(c, notFoundOr(err, "user not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u.Public()})
}
