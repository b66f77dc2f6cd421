package legislation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	SourceSejm = "sejm"
	SourceRCL  = "rcl"
)

type Bill struct {
	ID             uuid.UUID                   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SejmID         string                      `gorm:"column:sejm_id;not null;uniqueIndex" json:"sejm_id"`
	Term           int                         `gorm:"column:term;not null;index" json:"term"`
	ProcessNumber  string                      `gorm:"column:process_number;not null" json:"process_number"`
	Title          string                      `gorm:"column:title;type:text;not null" json:"title"`
	Description    string                      `gorm:"column:description;type:text" json:"description,omitempty"`
	Status         string                      `gorm:"column:status;not null;index" json:"status"`
	Ministry       string                      `gorm:"column:ministry;index" json:"ministry,omitempty"`
	SubmissionDate *time.Time                  `gorm:"column:submission_date;index" json:"submission_date,omitempty"`
	Category       string                      `gorm:"column:category;not null;index" json:"category"`
	SubmitterType  string                      `gorm:"column:submitter_type;not null;index" json:"submitter_type"`
	Tags           datatypes.JSONSlice[string] `gorm:"column:tags;type:jsonb" json:"tags"`
	ELI            string                      `gorm:"column:eli" json:"eli,omitempty"`
	Passed         bool                        `gorm:"column:passed;not null;default:false" json:"passed"`
	RCLNumber      string                      `gorm:"column:rcl_number;index" json:"rcl_number,omitempty"`
	RCLURL         string                      `gorm:"column:rcl_url" json:"rcl_url,omitempty"`
	RCLCheckedAt   *time.Time                  `gorm:"column:rcl_checked_at;index" json:"rcl_checked_at,omitempty"`
	SourceURL      string                      `gorm:"column:source_url" json:"source_url,omitempty"`
	LastUpdated    *time.Time                  `gorm:"column:last_updated;index" json:"last_updated,omitempty"`
	CreatedAt      time.Time                   `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time                   `gorm:"not null;default:now();index" json:"updated_at"`
}

func (Bill) TableName() string { return "bill" }

// HasTag reports whether tag is present on the bill.
func (b *Bill) HasTag(tag string) bool {
	if b == nil {
		return false
	}
	for _, t := range b.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// BillEvent is one dated step of a bill's history, either from the Sejm stage
// tree or from the RCL project page.
type BillEvent struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BillID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bill_event_unique,priority:1;index" json:"bill_id"`
	Source      string    `gorm:"column:source;not null;uniqueIndex:idx_bill_event_unique,priority:2" json:"source"`
	EventDate   time.Time `gorm:"column:event_date;not null;uniqueIndex:idx_bill_event_unique,priority:3" json:"event_date"`
	EventType   string    `gorm:"column:event_type;not null;uniqueIndex:idx_bill_event_unique,priority:4" json:"event_type"`
	Description string    `gorm:"column:description;type:text;not null;uniqueIndex:idx_bill_event_unique,priority:5" json:"description"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (BillEvent) TableName() string { return "bill_event" }
