package repos

import (
	"gorm.io/gorm"

	"github.com/sciezka-prawa/sciezka-backend/internal/data/repos/jobs"
	"github.com/sciezka-prawa/sciezka-backend/internal/data/repos/legislation"
	"github.com/sciezka-prawa/sciezka-backend/internal/data/repos/user"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
)

type BillRepo = legislation.BillRepo
type BillEventRepo = legislation.BillEventRepo
type SyncRunRepo = legislation.SyncRunRepo
type BillFilter = legislation.BillFilter
type BillStats = legislation.BillStats
type UpsertResult = legislation.UpsertResult

type ProfileRepo = user.ProfileRepo
type UserAlertRepo = user.UserAlertRepo
type NotificationRepo = user.NotificationRepo

type JobRunRepo = jobs.JobRunRepo

func NewBillRepo(db *gorm.DB, baseLog *logger.Logger) BillRepo {
	return legislation.NewBillRepo(db, baseLog)
}
func NewBillEventRepo(db *gorm.DB, baseLog *logger.Logger) BillEventRepo {
	return legislation.NewBillEventRepo(db, baseLog)
}
func NewSyncRunRepo(db *gorm.DB, baseLog *logger.Logger) SyncRunRepo {
	return legislation.NewSyncRunRepo(db, baseLog)
}

func NewProfileRepo(db *gorm.DB, baseLog *logger.Logger) ProfileRepo {
	return user.NewProfileRepo(db, baseLog)
}
func NewUserAlertRepo(db *gorm.DB, baseLog *logger.Logger) UserAlertRepo {
	return user.NewUserAlertRepo(db, baseLog)
}
func NewNotificationRepo(db *gorm.DB, baseLog *logger.Logger) NotificationRepo {
	return user.NewNotificationRepo(db, baseLog)
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return jobs.NewJobRunRepo(db, baseLog)
}
