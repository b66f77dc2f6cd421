package domain

import (
	"github.com/sciezka-prawa/sciezka-backend/internal/domain/jobs"
	"github.com/sciezka-prawa/sciezka-backend/internal/domain/legislation"
	"github.com/sciezka-prawa/sciezka-backend/internal/domain/user"
)

type Bill = legislation.Bill
type BillEvent = legislation.BillEvent
type SyncRun = legislation.SyncRun

type Profile = user.Profile
type UserAlert = user.UserAlert
type Notification = user.Notification

type JobRun = jobs.JobRun

const (
	SourceSejm = legislation.SourceSejm
	SourceRCL  = legislation.SourceRCL

	SyncTriggerManual    = legislation.SyncTriggerManual
	SyncTriggerScheduled = legislation.SyncTriggerScheduled
	SyncTriggerCLI       = legislation.SyncTriggerCLI

	SyncStatusRunning   = legislation.SyncStatusRunning
	SyncStatusSucceeded = legislation.SyncStatusSucceeded
	SyncStatusPartial   = legislation.SyncStatusPartial
	SyncStatusFailed    = legislation.SyncStatusFailed

	NotificationKindStatusChange = user.NotificationKindStatusChange

	RoleUser       = user.RoleUser
	RoleModerator  = user.RoleModerator
	RoleAdmin      = user.RoleAdmin
	RoleSuperAdmin = user.RoleSuperAdmin

	JobStatusQueued    = jobs.StatusQueued
	JobStatusRunning   = jobs.StatusRunning
	JobStatusSucceeded = jobs.StatusSucceeded
	JobStatusFailed    = jobs.StatusFailed
)

// Models lists every table the service owns, in migration order.
func Models() []interface{} {
	return []interface{}{
		&Profile{},
		&Bill{},
		&BillEvent{},
		&UserAlert{},
		&Notification{},
		&SyncRun{},
		&JobRun{},
	}
}
