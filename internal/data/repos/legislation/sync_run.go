package legislation

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/sciezka-prawa/sciezka-backend/internal/domain"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/dbctx"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
)

type SyncRunRepo interface {
	Create(dbc dbctx.Context, run *types.SyncRun) error
	Finish(dbc dbctx.Context, run *types.SyncRun) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.SyncRun, error)
	ListRecent(dbc dbctx.Context, limit, offset int) ([]*types.SyncRun, error)
}

type syncRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSyncRunRepo(db *gorm.DB, baseLog *logger.Logger) SyncRunRepo {
	return &syncRunRepo{
		db:  db,
		log: baseLog.With("repo", "SyncRunRepo"),
	}
}

func (r *syncRunRepo) Create(dbc dbctx.Context, run *types.SyncRun) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	return transaction.WithContext(dbc.Ctx).Create(run).Error
}

func (r *syncRunRepo) Finish(dbc dbctx.Context, run *types.SyncRun) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(run).
		Select("status", "listed", "processed", "created", "updated", "changed", "failed", "errors", "finished_at").
		Updates(run).Error
}

func (r *syncRunRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.SyncRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var run types.SyncRun
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *syncRunRepo) ListRecent(dbc dbctx.Context, limit, offset int) ([]*types.SyncRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 20
	}
	var out []*types.SyncRun
	if err := transaction.WithContext(dbc.Ctx).
		Order("started_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
