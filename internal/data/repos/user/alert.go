package user

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sciezka-prawa/sciezka-backend/internal/data/repos/pgerr"
	types "github.com/sciezka-prawa/sciezka-backend/internal/domain"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/dbctx"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
)

type UserAlertRepo interface {
	Create(dbc dbctx.Context, alert *types.UserAlert) error
	GetForUser(dbc dbctx.Context, userID, id uuid.UUID) (*types.UserAlert, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserAlert, error)
	ListActiveByBill(dbc dbctx.Context, billID uuid.UUID) ([]*types.UserAlert, error)
	// UpdateForUser applies updates to an alert the user owns. It reports false
	// when no such alert exists.
	UpdateForUser(dbc dbctx.Context, userID, id uuid.UUID, updates map[string]interface{}) (bool, error)
	DeleteForUser(dbc dbctx.Context, userID, id uuid.UUID) (bool, error)
}

type userAlertRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserAlertRepo(db *gorm.DB, baseLog *logger.Logger) UserAlertRepo {
	return &userAlertRepo{
		db:  db,
		log: baseLog.With("repo", "UserAlertRepo"),
	}
}

func (r *userAlertRepo) Create(dbc dbctx.Context, alert *types.UserAlert) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	now := time.Now().UTC()
	alert.CreatedAt = now
	alert.UpdatedAt = now
	return pgerr.Map(transaction.WithContext(dbc.Ctx).Create(alert).Error)
}

func (r *userAlertRepo) GetForUser(dbc dbctx.Context, userID, id uuid.UUID) (*types.UserAlert, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var a types.UserAlert
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *userAlertRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserAlert, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.UserAlert
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userAlertRepo) ListActiveByBill(dbc dbctx.Context, billID uuid.UUID) ([]*types.UserAlert, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.UserAlert
	if err := transaction.WithContext(dbc.Ctx).
		Where("bill_id = ? AND is_active = ?", billID, true).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userAlertRepo) UpdateForUser(dbc dbctx.Context, userID, id uuid.UUID, updates map[string]interface{}) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.UserAlert{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *userAlertRepo) DeleteForUser(dbc dbctx.Context, userID, id uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&types.UserAlert{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
