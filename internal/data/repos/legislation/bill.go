package legislation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sciezka-prawa/sciezka-backend/internal/data/repos/pgerr"
	types "github.com/sciezka-prawa/sciezka-backend/internal/domain"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/dbctx"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
)

const (
	SortUpdated   = "updated"
	SortSubmitted = "submitted"
	SortTitle     = "title"
)

type BillFilter struct {
	Status        string
	Category      string
	SubmitterType string
	Tag           string
	Ministry      string
	Term          int
	Query         string
	Sort          string
	Limit         int
	Offset        int
}

type BillStats struct {
	Total      int64            `json:"total"`
	ByStatus   map[string]int64 `json:"by_status"`
	ByCategory map[string]int64 `json:"by_category"`
}

// UpsertResult describes what an upsert did to the stored row.
type UpsertResult struct {
	Bill           *types.Bill
	Created        bool
	PreviousStatus string
}

func (r UpsertResult) StatusChanged() bool {
	return !r.Created && r.PreviousStatus != r.Bill.Status
}

type BillRepo interface {
	Upsert(dbc dbctx.Context, bill *types.Bill) (UpsertResult, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Bill, error)
	GetBySejmID(dbc dbctx.Context, sejmID string) (*types.Bill, error)
	List(dbc dbctx.Context, f BillFilter) ([]*types.Bill, int64, error)
	Stats(dbc dbctx.Context) (*BillStats, error)
	ListForEnrichment(dbc dbctx.Context, limit int) ([]*types.Bill, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// AddTag appends tag to the stored tags unless it is already present.
	AddTag(dbc dbctx.Context, id uuid.UUID, tag string) error
	MarkRCLChecked(dbc dbctx.Context, id uuid.UUID, at time.Time) error
}

type billRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBillRepo(db *gorm.DB, baseLog *logger.Logger) BillRepo {
	return &billRepo{
		db:  db,
		log: baseLog.With("repo", "BillRepo"),
	}
}

// Tags added by RCL enrichment. A Sejm re-sync keeps them.
var enrichmentTags = []string{"osr"}

// Columns owned by the Sejm sync. Ministry and rcl_url belong to RCL enrichment.
var syncColumns = []string{
	"term", "process_number", "title", "description", "status", "submission_date",
	"category", "submitter_type", "tags", "eli", "passed", "rcl_number", "source_url",
	"last_updated", "updated_at",
}

func (r *billRepo) Upsert(dbc dbctx.Context, bill *types.Bill) (UpsertResult, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if bill == nil || strings.TrimSpace(bill.SejmID) == "" {
		return UpsertResult{}, fmt.Errorf("bill sejm_id required")
	}
	if bill.Tags == nil {
		bill.Tags = datatypes.JSONSlice[string]{}
	}
	var out UpsertResult
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		var prev types.Bill
		if err := txx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("sejm_id = ?", bill.SejmID).
			Limit(1).
			Find(&prev).Error; err != nil {
			return err
		}
		now := time.Now().UTC()
		if prev.ID == uuid.Nil {
			if bill.ID == uuid.Nil {
				bill.ID = uuid.New()
			}
			bill.CreatedAt = now
			bill.UpdatedAt = now
			if err := txx.Create(bill).Error; err != nil {
				return err
			}
			out = UpsertResult{Bill: bill, Created: true}
			return nil
		}
		bill.ID = prev.ID
		bill.CreatedAt = prev.CreatedAt
		bill.UpdatedAt = now
		if bill.Ministry == "" {
			bill.Ministry = prev.Ministry
		}
		if bill.RCLURL == "" {
			bill.RCLURL = prev.RCLURL
		}
		for _, tag := range enrichmentTags {
			if prev.HasTag(tag) && !bill.HasTag(tag) {
				bill.Tags = append(bill.Tags, tag)
			}
		}
		if err := txx.Model(bill).Select(syncColumns).Updates(bill).Error; err != nil {
			return err
		}
		out = UpsertResult{Bill: bill, PreviousStatus: prev.Status}
		return nil
	})
	if err != nil {
		return UpsertResult{}, pgerr.Map(err)
	}
	return out, nil
}

func (r *billRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Bill, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var bill types.Bill
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).First(&bill).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *billRepo) GetBySejmID(dbc dbctx.Context, sejmID string) (*types.Bill, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if sejmID == "" {
		return nil, nil
	}
	var bill types.Bill
	err := transaction.WithContext(dbc.Ctx).Where("sejm_id = ?", sejmID).First(&bill).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *billRepo) List(dbc dbctx.Context, f BillFilter) ([]*types.Bill, int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).Model(&types.Bill{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.SubmitterType != "" {
		q = q.Where("submitter_type = ?", f.SubmitterType)
	}
	if f.Ministry != "" {
		q = q.Where("ministry = ?", f.Ministry)
	}
	if f.Term > 0 {
		q = q.Where("term = ?", f.Term)
	}
	if f.Tag != "" {
		q = q.Where("tags @> ?::jsonb", jsonArray(f.Tag))
	}
	if s := strings.TrimSpace(f.Query); s != "" {
		like := "%" + escapeLike(s) + "%"
		q = q.Where("(title ILIKE ? OR description ILIKE ? OR sejm_id = ?)", like, like, s)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch f.Sort {
	case SortSubmitted:
		q = q.Order("submission_date DESC NULLS LAST").Order("id")
	case SortTitle:
		q = q.Order("title ASC").Order("id")
	default:
		q = q.Order("last_updated DESC NULLS LAST").Order("id")
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	var out []*types.Bill
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *billRepo) Stats(dbc dbctx.Context) (*BillStats, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	type row struct {
		Key   string
		Count int64
	}
	stats := &BillStats{ByStatus: map[string]int64{}, ByCategory: map[string]int64{}}

	var byStatus []row
	if err := transaction.WithContext(dbc.Ctx).Model(&types.Bill{}).
		Select("status AS key, COUNT(*) AS count").
		Group("status").
		Scan(&byStatus).Error; err != nil {
		return nil, err
	}
	for _, s := range byStatus {
		stats.ByStatus[s.Key] = s.Count
		stats.Total += s.Count
	}

	var byCategory []row
	if err := transaction.WithContext(dbc.Ctx).Model(&types.Bill{}).
		Select("category AS key, COUNT(*) AS count").
		Group("category").
		Scan(&byCategory).Error; err != nil {
		return nil, err
	}
	for _, c := range byCategory {
		stats.ByCategory[c.Key] = c.Count
	}
	return stats, nil
}

// ListForEnrichment returns government bills carrying an RCL number, never
// checked first, then least recently checked.
func (r *billRepo) ListForEnrichment(dbc dbctx.Context, limit int) ([]*types.Bill, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("submitter_type = ? AND rcl_number <> ''", "government").
		Order("rcl_checked_at ASC NULLS FIRST").
		Order("last_updated DESC NULLS LAST").
		Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.Bill
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *billRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return pgerr.Map(transaction.WithContext(dbc.Ctx).
		Model(&types.Bill{}).
		Where("id = ?", id).
		Updates(updates).Error)
}

func (r *billRepo) AddTag(dbc dbctx.Context, id uuid.UUID, tag string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	tag = strings.TrimSpace(tag)
	if id == uuid.Nil || tag == "" {
		return nil
	}
	one := jsonArray(tag)
	return transaction.WithContext(dbc.Ctx).Model(&types.Bill{}).
		Where("id = ? AND NOT COALESCE(tags, '[]'::jsonb) @> ?::jsonb", id, one).
		Updates(map[string]interface{}{
			"tags":       gorm.Expr("COALESCE(tags, '[]'::jsonb) || ?::jsonb", one),
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *billRepo) MarkRCLChecked(dbc dbctx.Context, id uuid.UUID, at time.Time) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Model(&types.Bill{}).
		Where("id = ?", id).
		UpdateColumn("rcl_checked_at", at.UTC()).Error
}

// jsonArray encodes a one-element jsonb array for containment queries.
func jsonArray(v string) string {
	b, _ := json.Marshal([]string{v})
	return string(b)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
