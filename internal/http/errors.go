package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bobasync/api/internal/apperr"
	"github.com/bobasync/api/internal/log"
	"github.com/bobasync/api/internal/repo"
)

// writeError is the single place errors become HTTP responses. Known kinds map
// to their status with a {status, message} body; anything else is a 500 whose
// message is suppressed outside dev.
func (h *Handler) writeError(c *gin.Context, err error) {
	var e *apperr.Error
	if errors.As(err, &e) {
		status := apperr.Status(e)
		kind := "fail"
		if status >= 500 {
			kind = "error"
		}
		c.AbortWithStatusJSON(status, gin.H{"status": kind, "message": e.Message})
		return
	}

	log.WithDD(c.Request.Context(), log.L).Error("unhandled error",
		zap.String("path", c.FullPath()), zap.Error(err))

	msg := "internal server error"
	if h.Dev {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"status": "error", "message": msg})
}

// notFoundOr maps repo.ErrNotFound onto a typed not-found, passing other
// errors through untouched.
func notFoundOr(err error, message string) error {
	if errors.Is(err, repo.ErrNotFound) {
		return apperr.New(apperr.NotFound, message)
	}
	return err
}
