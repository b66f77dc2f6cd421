package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sciezka-prawa/sciezka-backend/internal/data/repos"
	types "github.com/sciezka-prawa/sciezka-backend/internal/domain"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/apierr"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/dbctx"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
)

type AlertInput struct {
	BillID      uuid.UUID `json:"bill_id"`
	NotifyEmail *bool     `json:"notify_email,omitempty"`
}

type AlertPatch struct {
	IsActive    *bool `json:"is_active,omitempty"`
	NotifyEmail *bool `json:"notify_email,omitempty"`
}

type AlertService interface {
	List(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserAlert, error)
	Create(dbc dbctx.Context, userID uuid.UUID, in AlertInput) (*types.UserAlert, error)
	Update(dbc dbctx.Context, userID, id uuid.UUID, patch AlertPatch) (*types.UserAlert, error)
	Delete(dbc dbctx.Context, userID, id uuid.UUID) error
}

type alertService struct {
	log    *logger.Logger
	alerts repos.UserAlertRepo
	bills  repos.BillRepo
}

func NewAlertService(baseLog *logger.Logger, alerts repos.UserAlertRepo, bills repos.BillRepo) AlertService {
	return &alertService{
		log:    baseLog.With("service", "AlertService"),
		alerts: alerts,
		bills:  bills,
	}
}

func (s *alertService) List(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserAlert, error) {
	if userID == uuid.Nil {
		return nil, apierr.ErrUnauthorized
	}
	out, err := s.alerts.ListByUser(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	if out == nil {
		out = []*types.UserAlert{}
	}
	return out, nil
}

func (s *alertService) Create(dbc dbctx.Context, userID uuid.UUID, in AlertInput) (*types.UserAlert, error) {
	if userID == uuid.Nil {
		return nil, apierr.ErrUnauthorized
	}
	if in.BillID == uuid.Nil {
		return nil, apierr.BadRequest("missing_bill_id", apierr.ErrInvalidArgument)
	}
	bill, err := s.bills.GetByID(dbc, in.BillID)
	if err != nil {
		return nil, fmt.Errorf("load bill: %w", err)
	}
	if bill == nil {
		return nil, apierr.NotFound("bill_not_found", apierr.ErrNotFound)
	}
	notifyEmail := true
	if in.NotifyEmail != nil {
		notifyEmail = *in.NotifyEmail
	}
	now := time.Now().UTC()
	alert := &types.UserAlert{
		ID:          uuid.New(),
		UserID:      userID,
		BillID:      bill.ID,
		IsActive:    true,
		NotifyEmail: notifyEmail,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.alerts.Create(dbc, alert); err != nil {
		if errors.Is(err, apierr.ErrConflict) {
			return nil, apierr.Conflict("alert_exists", err)
		}
		if errors.Is(err, apierr.ErrNotFound) {
			return nil, apierr.NotFound("bill_not_found", err)
		}
		return nil, fmt.Errorf("create alert: %w", err)
	}
	s.log.Debug("alert created", "user_id", userID, "bill_id", bill.ID)
	return alert, nil
}

func (s *alertService) Update(dbc dbctx.Context, userID, id uuid.UUID, patch AlertPatch) (*types.UserAlert, error) {
	if userID == uuid.Nil {
		return nil, apierr.ErrUnauthorized
	}
	updates := map[string]interface{}{}
	if patch.IsActive != nil {
		updates["is_active"] = *patch.IsActive
	}
	if patch.NotifyEmail != nil {
		updates["notify_email"] = *patch.NotifyEmail
	}
	if len(updates) == 0 {
		return nil, apierr.BadRequest("empty_patch", apierr.ErrInvalidArgument)
	}
	updates["updated_at"] = time.Now().UTC()
	ok, err := s.alerts.UpdateForUser(dbc, userID, id, updates)
	if err != nil {
		return nil, fmt.Errorf("update alert: %w", err)
	}
	if !ok {
		return nil, apierr.NotFound("alert_not_found", apierr.ErrNotFound)
	}
	alert, err := s.alerts.GetForUser(dbc, userID, id)
	if err != nil {
		return nil, fmt.Errorf("reload alert: %w", err)
	}
	if alert == nil {
		return nil, apierr.NotFound("alert_not_found", apierr.ErrNotFound)
	}
	return alert, nil
}

func (s *alertService) Delete(dbc dbctx.Context, userID, id uuid.UUID) error {
	if userID == uuid.Nil {
		return apierr.ErrUnauthorized
	}
	ok, err := s.alerts.DeleteForUser(dbc, userID, id)
	if err != nil {
		return fmt.Errorf("delete alert: %w", err)
	}
	if !ok {
		return apierr.NotFound("alert_not_found", apierr.ErrNotFound)
	}
	return nil
}
