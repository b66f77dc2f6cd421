package user

import (
	"time"

	"github.com/google/uuid"
)

const NotificationKindStatusChange = "status_change"

type Notification struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_notification_user_created,priority:1" json:"user_id"`
	BillID    *uuid.UUID `gorm:"type:uuid;index" json:"bill_id,omitempty"`
	Kind      string     `gorm:"column:kind;not null" json:"kind"`
	Title     string     `gorm:"column:title;not null" json:"title"`
	Body      string     `gorm:"column:body;type:text" json:"body"`
	ReadAt    *time.Time `gorm:"column:read_at;index" json:"read_at,omitempty"`
	CreatedAt time.Time  `gorm:"not null;default:now();index:idx_notification_user_created,priority:2,sort:desc" json:"created_at"`
}

func (Notification) TableName() string { return "notification" }
