package legislation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	SyncTriggerManual    = "manual"
	SyncTriggerScheduled = "scheduled"
	SyncTriggerCLI       = "cli"

	SyncStatusRunning   = "running"
	SyncStatusSucceeded = "succeeded"
	SyncStatusPartial   = "partial"
	SyncStatusFailed    = "failed"
)

type SyncRun struct {
	ID         uuid.UUID                   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Trigger    string                      `gorm:"column:trigger;not null;index" json:"trigger"`
	Term       int                         `gorm:"column:term;not null" json:"term"`
	Status     string                      `gorm:"column:status;not null;index" json:"status"`
	Listed     int                         `gorm:"column:listed;not null;default:0" json:"listed"`
	Processed  int                         `gorm:"column:processed;not null;default:0" json:"processed"`
	Created    int                         `gorm:"column:created;not null;default:0" json:"created"`
	Updated    int                         `gorm:"column:updated;not null;default:0" json:"updated"`
	Changed    int                         `gorm:"column:changed;not null;default:0" json:"changed"`
	Failed     int                         `gorm:"column:failed;not null;default:0" json:"failed"`
	Errors     datatypes.JSONSlice[string] `gorm:"column:errors;type:jsonb" json:"errors"`
	JobID      *uuid.UUID                  `gorm:"type:uuid;column:job_id;index" json:"job_id,omitempty"`
	StartedAt  time.Time                   `gorm:"column:started_at;not null;index" json:"started_at"`
	FinishedAt *time.Time                  `gorm:"column:finished_at" json:"finished_at,omitempty"`
}

func (SyncRun) TableName() string { return "sync_run" }
