package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/sciezka-prawa/sciezka-backend/internal/observability"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
	"github.com/sciezka-prawa/sciezka-backend/internal/services"
)

type Services struct {
	Bill          services.BillService
	Alert         services.AlertService
	Notification  services.NotificationService
	Sync          services.SyncService
	RCLEnrichment services.RCLEnrichmentService
	LiveStatus    services.LiveStatusService

	// Auth is nil when the process does not serve HTTP.
	Auth services.AuthService

	// Jobs + notifications
	JobNotifier services.JobNotifier
	JobService  services.JobService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients, metrics *observability.Metrics, withAuth bool) (Services, error) {
	log.Info("Wiring services...")

	notifications := services.NewNotificationService(
		log,
		repos.UserAlert,
		repos.Profile,
		repos.Notification,
		clients.Mailer,
		clients.Bus,
		metrics,
		services.NotificationConfig{PublicURL: cfg.PublicURL},
	)

	syncService := services.NewSyncService(
		db,
		log,
		repos.Bill,
		repos.BillEvent,
		repos.SyncRun,
		clients.Sejm,
		clients.Classifier,
		notifications,
		clients.Locker,
		clients.Bus,
		metrics,
		cfg.Sync,
	)

	enrichment := services.NewRCLEnrichmentService(
		db,
		log,
		repos.Bill,
		repos.BillEvent,
		clients.RCL,
		clients.Classifier,
		clients.Archive,
		metrics,
	)

	jobNotifier := services.NewJobNotifier(log, clients.Bus)
	jobService := services.NewJobService(db, log, repos.JobRun, jobNotifier, clients.Temporal, cfg.Temporal.TaskQueue)

	out := Services{
		Bill:          services.NewBillService(log, repos.Bill, repos.BillEvent),
		Alert:         services.NewAlertService(log, repos.UserAlert, repos.Bill),
		Notification:  notifications,
		Sync:          syncService,
		RCLEnrichment: enrichment,
		LiveStatus:    services.NewLiveStatusService(log, clients.YouTube, clients.Cache, cfg.LiveStatusTTL, metrics),
		JobNotifier:   jobNotifier,
		JobService:    jobService,
	}

	if withAuth {
		auth, err := services.NewAuthService(log, repos.Profile, services.AuthConfig{
			JWTSecret: cfg.SupabaseJWTSecret,
			Audience:  cfg.SupabaseJWTAudience,
		})
		if err != nil {
			return Services{}, fmt.Errorf("init auth service: %w", err)
		}
		out.Auth = auth
	}
	return out, nil
}
