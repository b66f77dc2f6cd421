package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/sciezka-prawa/sciezka-backend/internal/domain"
	"github.com/sciezka-prawa/sciezka-backend/internal/legislation/classify"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/apierr"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/dbctx"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/rcl"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestEnrichBill(t *testing.T) {
	bills := newFakeBillRepo()
	events := newFakeBillEventRepo()
	bill := bills.add(&types.Bill{
		SejmID:        "10/5",
		SubmitterType: string(classify.SubmitterGovernment),
		RCLNumber:     "UD12",
		Tags:          datatypes.JSONSlice[string]{"urgent"},
	})
	client := &fakeRCL{
		listings: map[string]*rcl.Listing{"UD12": {ID: "123", URL: "https://legislacja.gov.pl/projekt/123"}},
		projects: map[string]*rcl.Project{"123": {
			ID:       "123",
			URL:      "https://legislacja.gov.pl/projekt/123",
			Ministry: "Ministerstwo Zdrowia",
			Stages: []rcl.Stage{
				{Name: "Projekt", Date: date(2024, 1, 2)},
				{Name: "Konsultacje publiczne", Date: date(2024, 1, 20)},
				{Name: "Komitet Stały Rady Ministrów"},
			},
			Documents: []rcl.Document{{Title: "OSR", URL: "https://legislacja.gov.pl/docs/osr.pdf", IsOSR: true}},
			Raw:       []byte("<html></html>"),
		}},
	}
	archive := &fakeArchive{}
	svc := NewRCLEnrichmentService(nil, logger.Nop(), bills, events, client, classify.Default(), archive, nil)

	res, err := svc.EnrichBill(context.Background(), bill.ID)
	if err != nil {
		t.Fatalf("EnrichBill: %v", err)
	}
	if !res.HasOSR || res.Events != 2 || res.ArchiveURI == "" || len(archive.keys) != 1 {
		t.Fatalf("result: %+v", res)
	}
	got, _ := bills.GetByID(dbctx.Context{}, bill.ID)
	if got.Ministry != "Ministerstwo Zdrowia" || got.RCLURL != "https://legislacja.gov.pl/projekt/123" {
		t.Fatalf("bill not enriched: %+v", got)
	}
	if diff := cmp.Diff([]string{"urgent", "osr"}, []string(got.Tags)); diff != "" {
		t.Fatalf("tags (-want +got):\n%s", diff)
	}
	var kinds []string
	for _, e := range events.bySource(bill.ID, types.SourceRCL) {
		kinds = append(kinds, e.EventType)
	}
	if diff := cmp.Diff([]string{"draft", "consultation"}, kinds); diff != "" {
		t.Fatalf("event types (-want +got):\n%s", diff)
	}

	// Enriching again must not duplicate the tag.
	if _, err := svc.EnrichBill(context.Background(), bill.ID); err != nil {
		t.Fatalf("second EnrichBill: %v", err)
	}
	got, _ = bills.GetByID(dbctx.Context{}, bill.ID)
	if len(got.Tags) != 2 {
		t.Fatalf("tags duplicated: %v", got.Tags)
	}
}

func TestEnrichGovernmentBillsCountsOutcomes(t *testing.T) {
	bills := newFakeBillRepo()
	bills.add(&types.Bill{SejmID: "10/1", SubmitterType: "government", RCLNumber: "UD1"})
	bills.add(&types.Bill{SejmID: "10/2", SubmitterType: "government", RCLNumber: "UD2"})
	bills.add(&types.Bill{SejmID: "10/3", SubmitterType: "deputies"})
	client := &fakeRCL{
		listings: map[string]*rcl.Listing{"UD1": {ID: "1"}},
		projects: map[string]*rcl.Project{"1": {ID: "1", URL: "https://legislacja.gov.pl/projekt/1"}},
	}
	svc := NewRCLEnrichmentService(nil, logger.Nop(), bills, newFakeBillEventRepo(), client, nil, nil, nil)

	report, err := svc.EnrichGovernmentBills(context.Background(), 10)
	if err != nil {
		t.Fatalf("EnrichGovernmentBills: %v", err)
	}
	if report.Attempted != 2 || report.Enriched != 1 || report.NotFound != 1 || report.Failed != 0 {
		t.Fatalf("report: %+v", report)
	}
}

func TestEnrichBillWithoutNumber(t *testing.T) {
	bills := newFakeBillRepo()
	b := bills.add(&types.Bill{SejmID: "10/9"})
	svc := NewRCLEnrichmentService(nil, logger.Nop(), bills, newFakeBillEventRepo(), &fakeRCL{}, nil, nil, nil)
	_, err := svc.EnrichBill(context.Background(), b.ID)
	if _, code := apierr.Resolve(err, "x"); code != "bill_without_rcl_number" {
		t.Fatalf("got %v", err)
	}
	if _, err := svc.EnrichBill(context.Background(), uuid.New()); err == nil {
		t.Fatalf("expected not found")
	}
}

func TestEnrichGovernmentBillsRotatesUnresolved(t *testing.T) {
	bills := newFakeBillRepo()
	stale1 := bills.add(&types.Bill{SejmID: "10/1", SubmitterType: "government", RCLNumber: "UD404a"})
	stale2 := bills.add(&types.Bill{SejmID: "10/2", SubmitterType: "government", RCLNumber: "UD404b"})
	fresh := bills.add(&types.Bill{SejmID: "10/3", SubmitterType: "government", RCLNumber: "UD3"})
	client := &fakeRCL{
		listings: map[string]*rcl.Listing{"UD3": {ID: "3"}},
		projects: map[string]*rcl.Project{"3": {ID: "3", URL: "https://legislacja.gov.pl/projekt/3"}},
	}
	svc := NewRCLEnrichmentService(nil, logger.Nop(), bills, newFakeBillEventRepo(), client, nil, nil, nil)

	first, err := svc.EnrichGovernmentBills(context.Background(), 2)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.NotFound != 2 || first.Enriched != 0 {
		t.Fatalf("first run report: %+v", first)
	}
	for _, b := range []*types.Bill{stale1, stale2} {
		got, _ := bills.GetByID(dbctx.Context{}, b.ID)
		if got.RCLCheckedAt == nil {
			t.Fatalf("%s: not-found attempt was not recorded", b.SejmID)
		}
	}

	second, err := svc.EnrichGovernmentBills(context.Background(), 2)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Enriched != 1 {
		t.Fatalf("unchecked bill starved: %+v", second)
	}
	got, _ := bills.GetByID(dbctx.Context{}, fresh.ID)
	if got.RCLURL != "https://legislacja.gov.pl/projekt/3" || got.RCLCheckedAt == nil {
		t.Fatalf("fresh bill not enriched: %+v", got)
	}
}
