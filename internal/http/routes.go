package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// NewRouter wires middleware and the full route table.
func NewRouter(h *Handler, corsOrigin string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), CORS(corsOrigin), Trace("bobasync-api"), Metrics())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api", RateLimit(h.Redis, h.RateLimitPerMin))

	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/google", h.GoogleAuth)
		auth.POST("/validate", h.ValidateToken)
		auth.GET("/verify", h.VerifyEmail)
		auth.POST("/forgot-password", h.ForgotPassword)
		auth.POST("/reset-password", h.ResetPassword)

		me := auth.Group("", AuthJWT(h.JWTSecret))
		{
			me.GET("/me", h.Me)
			me.POST("/change-password", h.ChangePassword)
			me.PATCH("/profile", h.UpdateProfile)
		}
	}

	friends := api.Group("/friends", AuthJWT(h.JWTSecret))
	{
		friends.GET("", h.ListFriends)
		friends.GET("/requests", h.PendingFriendRequests)
		friends.POST("/requests/:userId", h.SendFriendRequest)
		friends.PUT("/requests/:requestId/accept", h.AcceptFriendRequest)
		friends.PUT("/requests/:requestId/reject", h.RejectFriendRequest)
		friends.DELETE("/:friendId", h.RemoveFriend)
		friends.POST("/block/:userId", h.BlockUser)
		friends.DELETE("/block/:userId", h.UnblockUser)
	}

	events := api.Group("/events", AuthJWT(h.JWTSecret))
	{
		events.GET("", h.ListEvents)
		events.POST("", h.CreateEvent)
		events.GET("/upcoming", h.UpcomingEvents)
		events.GET("/google/consent", h.GoogleCalendarConsent)
		events.GET("/:id", h.GetEvent)
		events.PATCH("/:id", h.UpdateEvent)
		events.DELETE("/:id", h.DeleteEvent)
		events.POST("/:id/attendees", h.AddAttendee)
		events.PATCH("/:id/attendees/status", h.UpdateAttendeeStatus)
		events.POST("/:id/sync-google", h.SyncGoogleCalendar)
	}

	return r
}
