package user

import (
	"time"

	"github.com/google/uuid"
)

type UserAlert struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_alert_user_bill,priority:1" json:"user_id"`
	BillID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_alert_user_bill,priority:2;index" json:"bill_id"`
	IsActive    bool      `gorm:"column:is_active;not null;default:true;index" json:"is_active"`
	NotifyEmail bool      `gorm:"column:notify_email;not null;default:false" json:"notify_email"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (UserAlert) TableName() string { return "user_alert" }
