package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/bobasync/api/internal/config"
	httpapi "github.com/bobasync/api/internal/http"
	"github.com/bobasync/api/internal/log"
	"github.com/bobasync/api/internal/metrics"
	"github.com/bobasync/api/internal/oauth"
	"github.com/bobasync/api/internal/queue"
	"github.com/bobasync/api/internal/repo"
)

// @title BobaSync API
// @version 0.1.0
// @description Scheduling backend: accounts, friends and shared events.
// @schemes http https
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log.Init(!cfg.IsDev())
	defer log.Sync()

	metrics.MustRegister()

	tracer.Start(
		tracer.WithService("bobasync-api"),
		tracer.WithEnv(cfg.Env),
	)
	defer tracer.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := repo.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.L.Fatal("mongo connect", zap.Error(err))
	}
	defer store.Close(context.Background())

	if err := store.EnsureIndexes(ctx); err != nil {
		log.L.Fatal("ensure indexes", zap.Error(err))
	}

	var rds *repo.Redis
	if cfg.RedisAddr != "" {
		rds = repo.NewRedis(cfg.RedisAddr)
		if err := rds.Ping(ctx); err != nil {
			log.L.Warn("redis unreachable, rate limiting disabled", zap.Error(err))
			rds = nil
		} else {
			defer rds.Close()
		}
	}

	pub := queue.NewNoop()
	if cfg.RabbitURL != "" {
		p, err := queue.NewRabbit(cfg.RabbitURL, queue.Exchange)
		if err != nil {
			log.L.Warn("rabbit unreachable, events disabled", zap.Error(err))
		} else {
			pub = p
		}
	}
	defer pub.Close()

	google := oauth.NewVerifier(cfg.GoogleClientID, cfg.GoogleJWKSURL, time.Hour)
	calendar := oauth.CalendarConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)

	h := httpapi.NewHandler(store, cfg.JWTSecret, rds, cfg.RateLimitPerMin, google, calendar, pub, cfg.IsDev())
	r := httpapi.NewRouter(h, cfg.CORSOrigin)

	srvErr := make(chan error, 1)
	go func() { srvErr <- r.Run(":" + cfg.Port) }()

	log.L.Info("bobasync-api listening", zap.String("port", cfg.Port), zap.String("env", cfg.Env))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.L.Info("shutting down", zap.String("signal", s.String()))
	case err := <-srvErr:
		log.L.Error("server error", zap.Error(err))
	}
}
