package app

import (
	"gorm.io/gorm"

	httpx "github.com/sciezka-prawa/sciezka-backend/internal/http"
	httpH "github.com/sciezka-prawa/sciezka-backend/internal/http/handlers"
	httpMW "github.com/sciezka-prawa/sciezka-backend/internal/http/middleware"
	"github.com/sciezka-prawa/sciezka-backend/internal/observability"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
	"github.com/sciezka-prawa/sciezka-backend/internal/realtime"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health       *httpH.HealthHandler
	Bill         *httpH.BillHandler
	Live         *httpH.LiveHandler
	Alert        *httpH.AlertHandler
	Notification *httpH.NotificationHandler
	User         *httpH.UserHandler
	Admin        *httpH.AdminHandler
	Events       *httpH.EventsHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, services Services, hub *realtime.Hub) Handlers {
	log.Info("Wiring handlers...")
	var pinger httpH.Pinger
	if sqlDB, err := db.DB(); err == nil {
		pinger = sqlDB
	}
	return Handlers{
		Health:       httpH.NewHealthHandler(pinger),
		Bill:         httpH.NewBillHandler(services.Bill),
		Live:         httpH.NewLiveHandler(services.LiveStatus),
		Alert:        httpH.NewAlertHandler(services.Alert),
		Notification: httpH.NewNotificationHandler(services.Notification),
		User:         httpH.NewUserHandler(services.Auth),
		Admin:        httpH.NewAdminHandler(log, services.JobService, services.Sync),
		Events:       httpH.NewEventsHandler(log, hub),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, metrics *observability.Metrics) *httpx.Server {
	return httpx.NewServer(httpx.RouterConfig{
		Log:                 log,
		ServiceName:         cfg.ServiceName,
		AllowedOrigins:      cfg.AllowedOrigins,
		AuthMiddleware:      middleware.Auth,
		HealthHandler:       handlers.Health,
		BillHandler:         handlers.Bill,
		LiveHandler:         handlers.Live,
		AlertHandler:        handlers.Alert,
		NotificationHandler: handlers.Notification,
		UserHandler:         handlers.User,
		AdminHandler:        handlers.Admin,
		EventsHandler:       handlers.Events,
		Metrics:             metrics,
	})
}
