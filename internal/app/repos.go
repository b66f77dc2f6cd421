package app

import (
	"gorm.io/gorm"

	"github.com/sciezka-prawa/sciezka-backend/internal/data/repos"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
)

type Repos struct {
	Bill         repos.BillRepo
	BillEvent    repos.BillEventRepo
	SyncRun      repos.SyncRunRepo
	Profile      repos.ProfileRepo
	UserAlert    repos.UserAlertRepo
	Notification repos.NotificationRepo
	JobRun       repos.JobRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Bill:         repos.NewBillRepo(db, log),
		BillEvent:    repos.NewBillEventRepo(db, log),
		SyncRun:      repos.NewSyncRunRepo(db, log),
		Profile:      repos.NewProfileRepo(db, log),
		UserAlert:    repos.NewUserAlertRepo(db, log),
		Notification: repos.NewNotificationRepo(db, log),
		JobRun:       repos.NewJobRunRepo(db, log),
	}
}
