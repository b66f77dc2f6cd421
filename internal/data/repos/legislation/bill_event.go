package legislation

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/sciezka-prawa/sciezka-backend/internal/domain"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/dbctx"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
)

type BillEventRepo interface {
	// ReplaceForSource swaps every event of one source for the given set.
	ReplaceForSource(dbc dbctx.Context, billID uuid.UUID, source string, events []*types.BillEvent) error
	ListByBill(dbc dbctx.Context, billID uuid.UUID) ([]*types.BillEvent, error)
}

type billEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBillEventRepo(db *gorm.DB, baseLog *logger.Logger) BillEventRepo {
	return &billEventRepo{
		db:  db,
		log: baseLog.With("repo", "BillEventRepo"),
	}
}

func (r *billEventRepo) ReplaceForSource(dbc dbctx.Context, billID uuid.UUID, source string, events []*types.BillEvent) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if billID == uuid.Nil || source == "" {
		return fmt.Errorf("bill id and source required")
	}
	return transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.Where("bill_id = ? AND source = ?", billID, source).
			Delete(&types.BillEvent{}).Error; err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}
		for _, ev := range events {
			ev.BillID = billID
			ev.Source = source
			if ev.ID == uuid.Nil {
				ev.ID = uuid.New()
			}
		}
		// Identical stages repeated in the source collapse onto one row.
		return txx.Clauses(clause.OnConflict{DoNothing: true}).Create(&events).Error
	})
}

func (r *billEventRepo) ListByBill(dbc dbctx.Context, billID uuid.UUID) ([]*types.BillEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.BillEvent
	if billID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("bill_id = ?", billID).
		Order("event_date ASC").
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
