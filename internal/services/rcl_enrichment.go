package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sciezka-prawa/sciezka-backend/internal/data/repos"
	types "github.com/sciezka-prawa/sciezka-backend/internal/domain"
	"github.com/sciezka-prawa/sciezka-backend/internal/legislation/classify"
	"github.com/sciezka-prawa/sciezka-backend/internal/observability"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/apierr"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/dbctx"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/gcp"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/rcl"
)

type EnrichResult struct {
	BillID     uuid.UUID `json:"bill_id"`
	ProjectID  string    `json:"project_id"`
	Ministry   string    `json:"ministry,omitempty"`
	RCLURL     string    `json:"rcl_url"`
	HasOSR     bool      `json:"has_osr"`
	Events     int       `json:"events"`
	ArchiveURI string    `json:"archive_uri,omitempty"`
}

type EnrichReport struct {
	Attempted int             `json:"attempted"`
	Enriched  int             `json:"enriched"`
	NotFound  int             `json:"not_found"`
	Failed    int             `json:"failed"`
	Errors    []string        `json:"errors"`
	Results   []*EnrichResult `json:"results,omitempty"`
}

type RCLEnrichmentService interface {
	EnrichBill(ctx context.Context, billID uuid.UUID) (*EnrichResult, error)
	// EnrichGovernmentBills enriches up to limit government bills carrying an RCL
	// number, least recently checked first.
	EnrichGovernmentBills(ctx context.Context, limit int) (*EnrichReport, error)
}

type rclEnrichmentService struct {
	db         *gorm.DB
	log        *logger.Logger
	bills      repos.BillRepo
	events     repos.BillEventRepo
	rcl        rcl.Client
	classifier *classify.Classifier
	archive    gcp.Archive
	metrics    *observability.Metrics
}

// NewRCLEnrichmentService builds the enrichment service. archive may be nil.
func NewRCLEnrichmentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	bills repos.BillRepo,
	events repos.BillEventRepo,
	rclClient rcl.Client,
	classifier *classify.Classifier,
	archive gcp.Archive,
	metrics *observability.Metrics,
) RCLEnrichmentService {
	if classifier == nil {
		classifier = classify.Default()
	}
	return &rclEnrichmentService{
		db:         db,
		log:        baseLog.With("service", "RCLEnrichmentService"),
		bills:      bills,
		events:     events,
		rcl:        rclClient,
		classifier: classifier,
		archive:    archive,
		metrics:    metrics,
	}
}

func (s *rclEnrichmentService) EnrichBill(ctx context.Context, billID uuid.UUID) (*EnrichResult, error) {
	dbc := dbctx.Context{Ctx: ctx}
	bill, err := s.bills.GetByID(dbc, billID)
	if err != nil {
		return nil, fmt.Errorf("load bill: %w", err)
	}
	if bill == nil {
		return nil, apierr.NotFound("bill_not_found", apierr.ErrNotFound)
	}
	return s.enrich(ctx, bill)
}

func (s *rclEnrichmentService) enrich(ctx context.Context, bill *types.Bill) (*EnrichResult, error) {
	number := strings.TrimSpace(bill.RCLNumber)
	if number == "" {
		return nil, apierr.BadRequest("bill_without_rcl_number", apierr.ErrInvalidArgument)
	}
	// Every attempt counts, so unresolvable numbers rotate to the back.
	defer s.markChecked(ctx, bill.ID)

	listing, err := s.rcl.SearchByNumber(ctx, number)
	s.metrics.Upstream("rcl", err)
	if err != nil {
		if errors.Is(err, rcl.ErrNotFound) {
			return nil, apierr.NotFound("rcl_project_not_found", err)
		}
		return nil, fmt.Errorf("rcl search %s: %w", number, err)
	}
	project, err := s.rcl.FetchProject(ctx, listing.ID)
	s.metrics.Upstream("rcl", err)
	if err != nil {
		return nil, fmt.Errorf("rcl fetch %s: %w", listing.ID, err)
	}

	res := &EnrichResult{
		BillID:    bill.ID,
		ProjectID: project.ID,
		Ministry:  project.Ministry,
		RCLURL:    project.URL,
		HasOSR:    project.HasOSR(),
	}
	if res.RCLURL == "" {
		res.RCLURL = listing.URL
	}
	res.ArchiveURI = s.archivePage(ctx, project)

	updates := map[string]interface{}{
		"rcl_url":    res.RCLURL,
		"updated_at": time.Now().UTC(),
	}
	if res.Ministry != "" {
		updates["ministry"] = res.Ministry
	}
	evs := s.projectEvents(bill.ID, project)
	res.Events = len(evs)

	err = inTx(dbctx.Context{Ctx: ctx}, s.db, func(dbc dbctx.Context) error {
		if err := s.bills.UpdateFields(dbc, bill.ID, updates); err != nil {
			return fmt.Errorf("update bill: %w", err)
		}
		if res.HasOSR {
			if err := s.bills.AddTag(dbc, bill.ID, classify.TagOSR); err != nil {
				return fmt.Errorf("tag bill: %w", err)
			}
		}
		if err := s.events.ReplaceForSource(dbc, bill.ID, types.SourceRCL, evs); err != nil {
			return fmt.Errorf("replace rcl events: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("bill enriched from rcl", "bill_id", bill.ID, "project_id", project.ID, "events", res.Events, "osr", res.HasOSR)
	return res, nil
}

// projectEvents turns the dated RCL stages into events typed by the
// pre-parliamentary status they indicate.
func (s *rclEnrichmentService) projectEvents(billID uuid.UUID, p *rcl.Project) []*types.BillEvent {
	out := make([]*types.BillEvent, 0, len(p.Stages))
	for _, st := range p.Stages {
		name := strings.TrimSpace(st.Name)
		if st.Date == nil || name == "" {
			continue
		}
		out = append(out, &types.BillEvent{
			BillID:      billID,
			Source:      types.SourceRCL,
			EventDate:   st.Date.UTC(),
			EventType:   string(s.classifier.ClassifyRCLStage(name)),
			Description: name,
		})
	}
	return out
}

func (s *rclEnrichmentService) markChecked(ctx context.Context, billID uuid.UUID) {
	if err := s.bills.MarkRCLChecked(dbctx.Context{Ctx: ctx}, billID, time.Now()); err != nil {
		s.log.Warn("mark rcl check failed", "bill_id", billID, "error", err)
	}
}

func (s *rclEnrichmentService) archivePage(ctx context.Context, p *rcl.Project) string {
	if s.archive == nil || len(p.Raw) == 0 {
		return ""
	}
	uri, err := s.archive.Put(ctx, gcp.RCLPageKey(p.ID, time.Now()), p.Raw, "text/html; charset=utf-8")
	if err != nil {
		s.log.Warn("archive rcl page failed", "project_id", p.ID, "error", err)
		return ""
	}
	return uri
}

func (s *rclEnrichmentService) EnrichGovernmentBills(ctx context.Context, limit int) (*EnrichReport, error) {
	if limit <= 0 {
		limit = 50
	}
	bills, err := s.bills.ListForEnrichment(dbctx.Context{Ctx: ctx}, limit)
	if err != nil {
		return nil, fmt.Errorf("list bills for enrichment: %w", err)
	}
	report := &EnrichReport{Errors: []string{}}
	for _, b := range bills {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Attempted++
		res, err := s.enrich(ctx, b)
		if err != nil {
			var ae *apierr.Error
			if errors.As(err, &ae) && ae.Code == "rcl_project_not_found" {
				report.NotFound++
				continue
			}
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", b.SejmID, err))
			s.log.Warn("rcl enrichment failed", "bill_id", b.ID, "sejm_id", b.SejmID, "error", err)
			continue
		}
		report.Enriched++
		report.Results = append(report.Results, res)
	}
	return report, nil
}
