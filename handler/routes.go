package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/janpow77/flowinvoice-sub001/config"
	"github.com/janpow77/flowinvoice-sub001/middleware"
)

// analyzeRateLimit bounds analyze triggers per reviewer per minute
const analyzeRateLimit = 10

// Handlers groups the API handlers
type Handlers struct {
	Auth        *AuthHandler
	Session     *SessionHandler
	Documents   *DocumentHandler
	Reviews     *ReviewHandler
	Preferences *PreferenceHandler
	Callbacks   *CallbackHandler
}

// Register mounts the API under api. Login and the analysis webhook are
// public; everything else needs a reviewer JWT.
func (h *Handlers) Register(api *gin.RouterGroup, auth *config.AuthConfig) {
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/callbacks/analysis", h.Callbacks.HandleAnalysis)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(auth))
	{
		protected.GET("/auth/me", h.Auth.GetCurrentUser)

		protected.GET("/session/token", h.Session.Status)
		protected.PUT("/session/token", h.Session.SetToken)

		protected.GET("/documents", h.Documents.List)
		protected.POST("/documents/upload", h.Documents.Upload)
		protected.GET("/documents/:id", h.Documents.Get)
		protected.POST("/documents/:id/analyze",
			middleware.RateLimit(analyzeRateLimit, time.Minute, middleware.ReviewerKey),
			h.Documents.Analyze)

		protected.GET("/documents/:id/review", h.Reviews.View)
		protected.POST("/documents/:id/review/edit", h.Reviews.Edit)
		protected.POST("/documents/:id/review/reject", h.Reviews.Reject)
		protected.PUT("/documents/:id/review/fields/:field", h.Reviews.SetField)
		protected.POST("/documents/:id/review/cancel", h.Reviews.Cancel)
		protected.POST("/documents/:id/review/submit", h.Reviews.Submit)
		protected.POST("/documents/:id/review/accept", h.Reviews.Accept)
		protected.POST("/documents/:id/review/feedback", h.Reviews.Feedback)

		protected.GET("/preferences", h.Preferences.Get)
		protected.PUT("/preferences/theme", h.Preferences.SetTheme)
		protected.POST("/preferences/split", h.Preferences.UpdateSplit)
	}
}
