package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sciezka-prawa/sciezka-backend/internal/data/repos"
	types "github.com/sciezka-prawa/sciezka-backend/internal/domain"
	"github.com/sciezka-prawa/sciezka-backend/internal/legislation/classify"
	"github.com/sciezka-prawa/sciezka-backend/internal/observability"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/apierr"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/dbctx"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/redis"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/resend"
)

type NotificationPage struct {
	Items    []*types.Notification `json:"items"`
	Total    int64                 `json:"total"`
	Unread   int64                 `json:"unread"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
}

type NotificationService interface {
	// NotifyStatusChange fans a bill status change out to every active alert on
	// the bill. Email failures are logged and counted, never returned.
	NotifyStatusChange(dbc dbctx.Context, bill *types.Bill, oldStatus, newStatus string) error
	List(dbc dbctx.Context, userID uuid.UUID, unreadOnly bool, page, pageSize int) (*NotificationPage, error)
	MarkRead(dbc dbctx.Context, userID, id uuid.UUID) error
	MarkAllRead(dbc dbctx.Context, userID uuid.UUID) (int64, error)
}

type NotificationConfig struct {
	// PublicURL is the site root used to link bills in emails.
	PublicURL string
}

type notificationService struct {
	log           *logger.Logger
	alerts        repos.UserAlertRepo
	profiles      repos.ProfileRepo
	notifications repos.NotificationRepo
	mailer        resend.Client
	bus           redis.Bus
	metrics       *observability.Metrics
	cfg           NotificationConfig
}

// NewNotificationService wires the notification fan-out. mailer and bus may be
// nil, in which case email delivery and event publishing are skipped.
func NewNotificationService(
	baseLog *logger.Logger,
	alerts repos.UserAlertRepo,
	profiles repos.ProfileRepo,
	notifications repos.NotificationRepo,
	mailer resend.Client,
	bus redis.Bus,
	metrics *observability.Metrics,
	cfg NotificationConfig,
) NotificationService {
	cfg.PublicURL = strings.TrimRight(strings.TrimSpace(cfg.PublicURL), "/")
	return &notificationService{
		log:           baseLog.With("service", "NotificationService"),
		alerts:        alerts,
		profiles:      profiles,
		notifications: notifications,
		mailer:        mailer,
		bus:           bus,
		metrics:       metrics,
		cfg:           cfg,
	}
}

type statusChangeEvent struct {
	BillID    string `json:"bill_id"`
	SejmID    string `json:"sejm_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
	Alerts    int    `json:"alerts"`
}

type notificationEvent struct {
	UserID       string              `json:"user_id"`
	Notification *types.Notification `json:"notification"`
}

func (s *notificationService) NotifyStatusChange(dbc dbctx.Context, bill *types.Bill, oldStatus, newStatus string) error {
	if bill == nil || bill.ID == uuid.Nil {
		return fmt.Errorf("missing bill")
	}
	if oldStatus == newStatus {
		return nil
	}
	s.metrics.StatusChange(newStatus)

	alerts, err := s.alerts.ListActiveByBill(dbc, bill.ID)
	if err != nil {
		return fmt.Errorf("list alerts: %w", err)
	}
	defer s.publishStatusChange(dbc.Ctx, bill, oldStatus, newStatus, len(alerts))
	if len(alerts) == 0 {
		return nil
	}

	title, body := statusChangeMessage(bill, oldStatus, newStatus)
	billID := bill.ID
	notes := make([]*types.Notification, 0, len(alerts))
	emailUsers := make([]uuid.UUID, 0, len(alerts))
	for _, a := range alerts {
		notes = append(notes, &types.Notification{
			ID:     uuid.New(),
			UserID: a.UserID,
			BillID: &billID,
			Kind:   types.NotificationKindStatusChange,
			Title:  title,
			Body:   body,
		})
		if a.NotifyEmail {
			emailUsers = append(emailUsers, a.UserID)
		}
	}
	if err := s.notifications.Create(dbc, notes); err != nil {
		s.metrics.Notification("in_app", "failed")
		return fmt.Errorf("create notifications: %w", err)
	}
	for _, n := range notes {
		s.metrics.Notification("in_app", "sent")
		s.publish(dbc.Ctx, redis.EventNotificationCreated, notificationEvent{UserID: n.UserID.String(), Notification: n})
	}

	if len(emailUsers) == 0 {
		return nil
	}
	if s.mailer == nil {
		s.log.Debug("email delivery disabled", "bill_id", bill.ID, "recipients", len(emailUsers))
		return nil
	}
	profiles, err := s.profiles.GetByIDs(dbc, emailUsers)
	if err != nil {
		s.log.Warn("load alert profiles failed", "bill_id", bill.ID, "error", err)
		s.metrics.Notification("email", "failed")
		return nil
	}
	text := body
	if link := s.billURL(bill); link != "" {
		text += "\n\n" + link
	}
	for _, p := range profiles {
		if p == nil || !p.IsActive || strings.TrimSpace(p.Email) == "" {
			s.metrics.Notification("email", "skipped")
			continue
		}
		_, err := s.mailer.Send(dbc.Ctx, resend.SendEmailRequest{
			To:             []string{p.Email},
			Subject:        title,
			Text:           text,
			Tags:           map[string]string{"kind": types.NotificationKindStatusChange},
			IdempotencyKey: fmt.Sprintf("status-%s-%s-%s", bill.ID, p.ID, newStatus),
		})
		if err != nil {
			s.log.Warn("status change email failed", "bill_id", bill.ID, "user_id", p.ID, "error", err)
			s.metrics.Notification("email", "failed")
			continue
		}
		s.metrics.Notification("email", "sent")
	}
	return nil
}

func (s *notificationService) publishStatusChange(ctx context.Context, bill *types.Bill, oldStatus, newStatus string, alerts int) {
	s.publish(ctx, redis.EventBillStatusChanged, statusChangeEvent{
		BillID:    bill.ID.String(),
		SejmID:    bill.SejmID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		Alerts:    alerts,
	})
}

func (s *notificationService) publish(ctx context.Context, eventType string, data any) {
	if s.bus == nil {
		return
	}
	ev, err := redis.NewEvent(eventType, data)
	if err != nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	pubCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.bus.Publish(pubCtx, ev); err != nil {
		s.log.Warn("publish event failed", "type", eventType, "error", err)
	}
}

func (s *notificationService) billURL(bill *types.Bill) string {
	if s.cfg.PublicURL == "" {
		return ""
	}
	return s.cfg.PublicURL + "/bills/" + bill.ID.String()
}

func statusChangeMessage(bill *types.Bill, oldStatus, newStatus string) (string, string) {
	title := "Zmiana statusu projektu ustawy"
	from := classify.Status(oldStatus).Label()
	to := classify.Status(newStatus).Label()
	var body string
	if oldStatus == "" {
		body = fmt.Sprintf("Projekt „%s” ma status: %s.", bill.Title, to)
	} else {
		body = fmt.Sprintf("Projekt „%s” zmienił status z „%s” na „%s”.", bill.Title, from, to)
	}
	return title, body
}

func (s *notificationService) List(dbc dbctx.Context, userID uuid.UUID, unreadOnly bool, page, pageSize int) (*NotificationPage, error) {
	if userID == uuid.Nil {
		return nil, apierr.ErrUnauthorized
	}
	page, pageSize = clampPage(page, pageSize)
	items, total, err := s.notifications.ListByUser(dbc, userID, unreadOnly, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	unread, err := s.notifications.CountUnread(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("count unread: %w", err)
	}
	if items == nil {
		items = []*types.Notification{}
	}
	return &NotificationPage{Items: items, Total: total, Unread: unread, Page: page, PageSize: pageSize}, nil
}

func (s *notificationService) MarkRead(dbc dbctx.Context, userID, id uuid.UUID) error {
	if userID == uuid.Nil {
		return apierr.ErrUnauthorized
	}
	ok, err := s.notifications.MarkRead(dbc, userID, id)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if !ok {
		return apierr.NotFound("notification_not_found", apierr.ErrNotFound)
	}
	return nil
}

func (s *notificationService) MarkAllRead(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, apierr.ErrUnauthorized
	}
	n, err := s.notifications.MarkAllRead(dbc, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return n, nil
}
