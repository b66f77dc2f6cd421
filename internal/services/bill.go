package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sciezka-prawa/sciezka-backend/internal/data/repos"
	"github.com/sciezka-prawa/sciezka-backend/internal/data/repos/legislation"
	types "github.com/sciezka-prawa/sciezka-backend/internal/domain"
	"github.com/sciezka-prawa/sciezka-backend/internal/legislation/classify"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/apierr"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/dbctx"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// BillQuery is the public list filter as it arrives from the API.
type BillQuery struct {
	Status        string
	Category      string
	SubmitterType string
	Tag           string
	Ministry      string
	Term          int
	Query         string
	Sort          string
	Page          int
	PageSize      int
}

type BillPage struct {
	Items    []*types.Bill `json:"items"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

type BillService interface {
	List(dbc dbctx.Context, q BillQuery) (*BillPage, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*types.Bill, error)
	Events(dbc dbctx.Context, id uuid.UUID) ([]*types.BillEvent, error)
	Stats(dbc dbctx.Context) (*repos.BillStats, error)
}

type billService struct {
	log    *logger.Logger
	bills  repos.BillRepo
	events repos.BillEventRepo
}

func NewBillService(baseLog *logger.Logger, bills repos.BillRepo, events repos.BillEventRepo) BillService {
	return &billService{
		log:    baseLog.With("service", "BillService"),
		bills:  bills,
		events: events,
	}
}

func (s *billService) List(dbc dbctx.Context, q BillQuery) (*BillPage, error) {
	f, page, pageSize, err := q.filter()
	if err != nil {
		return nil, err
	}
	items, total, err := s.bills.List(dbc, f)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	if items == nil {
		items = []*types.Bill{}
	}
	return &BillPage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

func (q BillQuery) filter() (repos.BillFilter, int, int, error) {
	f := repos.BillFilter{
		Status:        strings.TrimSpace(q.Status),
		Category:      strings.TrimSpace(q.Category),
		SubmitterType: strings.TrimSpace(q.SubmitterType),
		Tag:           strings.ToLower(strings.TrimSpace(q.Tag)),
		Ministry:      strings.TrimSpace(q.Ministry),
		Term:          q.Term,
		Query:         strings.TrimSpace(q.Query),
		Sort:          strings.TrimSpace(q.Sort),
	}
	if f.Status != "" && !classify.Status(f.Status).Valid() {
		return f, 0, 0, apierr.BadRequest("invalid_status", fmt.Errorf("unknown status %q", f.Status))
	}
	if f.Category != "" && !classify.Category(f.Category).Valid() {
		return f, 0, 0, apierr.BadRequest("invalid_category", fmt.Errorf("unknown category %q", f.Category))
	}
	if f.SubmitterType != "" && !classify.SubmitterType(f.SubmitterType).Valid() {
		return f, 0, 0, apierr.BadRequest("invalid_submitter_type", fmt.Errorf("unknown submitter type %q", f.SubmitterType))
	}
	switch f.Sort {
	case "", legislation.SortUpdated, legislation.SortSubmitted, legislation.SortTitle:
	default:
		return f, 0, 0, apierr.BadRequest("invalid_sort", fmt.Errorf("unknown sort %q", f.Sort))
	}
	if q.Term < 0 {
		return f, 0, 0, apierr.BadRequest("invalid_term", fmt.Errorf("term must be positive"))
	}
	page, pageSize := clampPage(q.Page, q.PageSize)
	f.Limit = pageSize
	f.Offset = (page - 1) * pageSize
	return f, page, pageSize, nil
}

// clampPage defaults page to 1 and keeps pageSize within (0, maxPageSize].
func clampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func (s *billService) Get(dbc dbctx.Context, id uuid.UUID) (*types.Bill, error) {
	if id == uuid.Nil {
		return nil, apierr.BadRequest("invalid_bill_id", apierr.ErrInvalidArgument)
	}
	b, err := s.bills.GetByID(dbc, id)
	if err != nil {
		return nil, fmt.Errorf("get bill: %w", err)
	}
	if b == nil {
		return nil, apierr.NotFound("bill_not_found", apierr.ErrNotFound)
	}
	return b, nil
}

func (s *billService) Events(dbc dbctx.Context, id uuid.UUID) ([]*types.BillEvent, error) {
	if _, err := s.Get(dbc, id); err != nil {
		return nil, err
	}
	evs, err := s.events.ListByBill(dbc, id)
	if err != nil {
		return nil, fmt.Errorf("list bill events: %w", err)
	}
	if evs == nil {
		evs = []*types.BillEvent{}
	}
	return evs, nil
}

func (s *billService) Stats(dbc dbctx.Context) (*repos.BillStats, error) {
	st, err := s.bills.Stats(dbc)
	if err != nil {
		return nil, fmt.Errorf("bill stats: %w", err)
	}
	return st, nil
}
