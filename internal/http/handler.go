package http

import (
	"golang.org/x/oauth2"

	"github.com/bobasync/api/internal/oauth"
	"github.com/bobasync/api/internal/queue"
	"github.com/bobasync/api/internal/repo"
)

type Handler struct {
	Store           *repo.Store
	JWTSecret       string
	Redis           *repo.Redis
	RateLimitPerMin int
	Google          *oauth.Verifier
	Calendar        *oauth2.Config
	Events          queue.Publisher
	Dev             bool
}

func NewHandler(store *repo.Store, jwtSecret string, rds *repo.Redis, rlPerMin int, google *oauth.Verifier, calendar *oauth2.Config, pub queue.Publisher, dev bool) *Handler {
	if pub == nil {
		pub = queue.NewNoop()
	}
	return &Handler{
		Store:           store,
		JWTSecret:       jwtSecret,
		Redis:           rds,
		RateLimitPerMin: rlPerMin,
		Google:          google,
		Calendar:        calendar,
		Events:          pub,
		Dev:             dev,
	}
}
