package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/sciezka-prawa/sciezka-backend/internal/domain/user"
	httpH "github.com/sciezka-prawa/sciezka-backend/internal/http/handlers"
	httpMW "github.com/sciezka-prawa/sciezka-backend/internal/http/middleware"
	"github.com/sciezka-prawa/sciezka-backend/internal/observability"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	AllowedOrigins []string

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler       *httpH.HealthHandler
	BillHandler         *httpH.BillHandler
	LiveHandler         *httpH.LiveHandler
	AlertHandler        *httpH.AlertHandler
	NotificationHandler *httpH.NotificationHandler
	UserHandler         *httpH.UserHandler
	AdminHandler        *httpH.AdminHandler
	EventsHandler       *httpH.EventsHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		// Bills (public)
		if cfg.BillHandler != nil {
			api.GET("/bills", cfg.BillHandler.ListBills)
			api.GET("/bills/stats", cfg.BillHandler.Stats)
			api.GET("/bills/:id", cfg.BillHandler.GetBill)
			api.GET("/bills/:id/events", cfg.BillHandler.ListEvents)
		}
		if cfg.LiveHandler != nil {
			api.GET("/live", cfg.LiveHandler.GetLive)
		}
	}

	if cfg.AuthMiddleware == nil {
		return r
	}

	protected := api.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	{
		if cfg.UserHandler != nil {
			protected.GET("/me", cfg.UserHandler.GetMe)
		}

		// Alerts
		if cfg.AlertHandler != nil {
			protected.GET("/alerts", cfg.AlertHandler.ListAlerts)
			protected.POST("/alerts", cfg.AlertHandler.CreateAlert)
			protected.PATCH("/alerts/:id", cfg.AlertHandler.UpdateAlert)
			protected.DELETE("/alerts/:id", cfg.AlertHandler.DeleteAlert)
		}

		// Notifications
		if cfg.NotificationHandler != nil {
			protected.GET("/notifications", cfg.NotificationHandler.ListNotifications)
			protected.POST("/notifications/read-all", cfg.NotificationHandler.MarkAllRead)
			protected.POST("/notifications/:id/read", cfg.NotificationHandler.MarkRead)
		}

		// Realtime
		if cfg.EventsHandler != nil {
			protected.GET("/events", cfg.EventsHandler.Stream)
		}
	}

	if cfg.AdminHandler != nil {
		moderation := protected.Group("/admin")
		moderation.Use(cfg.AuthMiddleware.RequireRole(user.RoleModerator))
		moderation.GET("/sync-runs", cfg.AdminHandler.ListSyncRuns)

		admin := protected.Group("/admin")
		admin.Use(cfg.AuthMiddleware.RequireRole(user.RoleAdmin))
		admin.POST("/sync", cfg.AdminHandler.TriggerSync)
		admin.POST("/rcl/enrich", cfg.AdminHandler.TriggerRCLEnrich)
		admin.GET("/jobs", cfg.AdminHandler.ListJobs)
		admin.GET("/jobs/:id", cfg.AdminHandler.GetJob)
	}

	return r
}
