package legislation

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/sciezka-prawa/sciezka-backend/internal/data/repos/testutil"
	types "github.com/sciezka-prawa/sciezka-backend/internal/domain"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/dbctx"
)

func newBill(sejmID, status string) *types.Bill {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return &types.Bill{
		SejmID:        sejmID,
		Term:          10,
		ProcessNumber: "1",
		Title:         "Rządowy projekt ustawy o zmianie ustawy o podatku dochodowym",
		Status:        status,
		Category:      "tax",
		SubmitterType: "government",
		Tags:          []string{"amendment"},
		RCLNumber:     "UD12",
		LastUpdated:   &now,
	}
}

func TestBillRepoUpsert(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewBillRepo(db, testutil.Logger(t))

	sejmID := "10/" + uuid.NewString()[:8]
	res, err := repo.Upsert(dbc, newBill(sejmID, "submitted"))
	if err != nil {
		t.Fatalf("Upsert create: %v", err)
	}
	if !res.Created || res.StatusChanged() {
		t.Fatalf("expected fresh create, got %+v", res)
	}
	id := res.Bill.ID

	if err := repo.UpdateFields(dbc, id, map[string]interface{}{"ministry": "Ministerstwo Finansów"}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	res, err = repo.Upsert(dbc, newBill(sejmID, "first_reading"))
	if err != nil {
		t.Fatalf("Upsert update: %v", err)
	}
	if res.Created || res.PreviousStatus != "submitted" || !res.StatusChanged() {
		t.Fatalf("unexpected update result: %+v", res)
	}
	if res.Bill.ID != id {
		t.Fatalf("upsert changed id: %s -> %s", id, res.Bill.ID)
	}

	got, err := repo.GetBySejmID(dbc, sejmID)
	if err != nil || got == nil {
		t.Fatalf("GetBySejmID: %v %v", got, err)
	}
	if got.Status != "first_reading" {
		t.Fatalf("status not updated: %s", got.Status)
	}
	if got.Ministry != "Ministerstwo Finansów" {
		t.Fatalf("sync upsert must keep enrichment columns, ministry=%q", got.Ministry)
	}

	res, err = repo.Upsert(dbc, newBill(sejmID, "first_reading"))
	if err != nil {
		t.Fatalf("Upsert same: %v", err)
	}
	if res.StatusChanged() {
		t.Fatalf("identical upsert reported a change")
	}

	if missing, err := repo.GetByID(dbc, uuid.New()); err != nil || missing != nil {
		t.Fatalf("GetByID missing: %v %v", missing, err)
	}
}

func TestBillRepoListAndStats(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewBillRepo(db, testutil.Logger(t))

	// Isolate from other rows by term.
	term := 9000 + int(time.Now().UnixNano()%999)
	mk := func(n, status, category string, tags []string) {
		b := newBill(uuid.NewString(), status)
		b.Term = term
		b.ProcessNumber = n
		b.Title = "Projekt " + n
		b.Category = category
		b.Tags = tags
		if _, err := repo.Upsert(dbc, b); err != nil {
			t.Fatalf("Upsert %s: %v", n, err)
		}
	}
	mk("1", "submitted", "tax", []string{"urgent"})
	mk("2", "published", "tax", nil)
	mk("3", "submitted", "health", []string{"urgent", "eu"})

	bills, total, err := repo.List(dbc, BillFilter{Term: term, Status: "submitted", Sort: SortTitle})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 {
		t.Fatalf("total: got %d want 2", total)
	}
	var titles []string
	for _, b := range bills {
		titles = append(titles, b.Title)
	}
	if diff := cmp.Diff([]string{"Projekt 1", "Projekt 3"}, titles); diff != "" {
		t.Fatalf("titles mismatch (-want +got):\n%s", diff)
	}

	_, total, err = repo.List(dbc, BillFilter{Term: term, Tag: "eu"})
	if err != nil || total != 1 {
		t.Fatalf("tag filter: total=%d err=%v", total, err)
	}
	_, total, err = repo.List(dbc, BillFilter{Term: term, Query: "projekt 2"})
	if err != nil || total != 1 {
		t.Fatalf("query filter: total=%d err=%v", total, err)
	}

	stats, err := repo.Stats(dbc)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ByStatus["submitted"] < 2 || stats.ByCategory["health"] < 1 || stats.Total < 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestBillRepoEnrichmentRotation(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewBillRepo(db, testutil.Logger(t))

	// Push rows left by other runs behind the ones created here.
	later := time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := tx.Exec("UPDATE bill SET rcl_checked_at = ? WHERE submitter_type = 'government'", later).Error; err != nil {
		t.Fatalf("reset rcl_checked_at: %v", err)
	}

	ids := make([]uuid.UUID, 3)
	for i := range ids {
		res, err := repo.Upsert(dbc, newBill("10/"+uuid.NewString()[:8], "submitted"))
		if err != nil {
			t.Fatalf("Upsert: %v", err)
		}
		ids[i] = res.Bill.ID
	}
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	if err := repo.MarkRCLChecked(dbc, ids[0], base.Add(time.Hour)); err != nil {
		t.Fatalf("MarkRCLChecked: %v", err)
	}
	if err := repo.MarkRCLChecked(dbc, ids[1], base); err != nil {
		t.Fatalf("MarkRCLChecked: %v", err)
	}

	got, err := repo.ListForEnrichment(dbc, 3)
	if err != nil {
		t.Fatalf("ListForEnrichment: %v", err)
	}
	var order []uuid.UUID
	for _, b := range got {
		order = append(order, b.ID)
	}
	if diff := cmp.Diff([]uuid.UUID{ids[2], ids[1], ids[0]}, order); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}

	// A check that finds nothing still moves the bill to the back.
	if err := repo.MarkRCLChecked(dbc, ids[2], base.Add(2*time.Hour)); err != nil {
		t.Fatalf("MarkRCLChecked: %v", err)
	}
	got, err = repo.ListForEnrichment(dbc, 1)
	if err != nil || len(got) != 1 || got[0].ID != ids[1] {
		t.Fatalf("next candidate: %v %v", got, err)
	}
}

func TestBillRepoAddTagSurvivesSync(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewBillRepo(db, testutil.Logger(t))

	sejmID := "10/" + uuid.NewString()[:8]
	res, err := repo.Upsert(dbc, newBill(sejmID, "submitted"))
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := repo.AddTag(dbc, res.Bill.ID, "osr"); err != nil {
			t.Fatalf("AddTag: %v", err)
		}
	}
	next := newBill(sejmID, "committee")
	next.Tags = []string{"amendment", "urgent"}
	if _, err := repo.Upsert(dbc, next); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, err := repo.GetBySejmID(dbc, sejmID)
	if err != nil || got == nil {
		t.Fatalf("GetBySejmID: %v %v", got, err)
	}
	if diff := cmp.Diff([]string{"amendment", "urgent", "osr"}, []string(got.Tags)); diff != "" {
		t.Fatalf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestBillRepoTagFilterEscaping(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewBillRepo(db, testutil.Logger(t))

	for _, tag := range []string{"a\x01b", `quote"d`, `back\slash`} {
		if _, total, err := repo.List(dbc, BillFilter{Tag: tag}); err != nil || total != 0 {
			t.Fatalf("tag %q: total=%d err=%v", tag, total, err)
		}
	}
}

func TestBillEventRepoReplace(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	bills := NewBillRepo(db, testutil.Logger(t))
	events := NewBillEventRepo(db, testutil.Logger(t))

	res, err := bills.Upsert(dbc, newBill("10/"+uuid.NewString()[:8], "committee"))
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	billID := res.Bill.ID
	d1 := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	first := []*types.BillEvent{
		{EventDate: d1, EventType: "first_reading", Description: "I czytanie"},
		{EventDate: d1, EventType: "first_reading", Description: "I czytanie"},
		{EventDate: d2, EventType: "committee", Description: "Praca w komisjach"},
	}
	if err := events.ReplaceForSource(dbc, billID, types.SourceSejm, first); err != nil {
		t.Fatalf("ReplaceForSource: %v", err)
	}
	if err := events.ReplaceForSource(dbc, billID, types.SourceRCL, []*types.BillEvent{
		{EventDate: d1, EventType: "consultation", Description: "Konsultacje publiczne"},
	}); err != nil {
		t.Fatalf("ReplaceForSource rcl: %v", err)
	}
	got, err := events.ListByBill(dbc, billID)
	if err != nil {
		t.Fatalf("ListByBill: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected duplicates collapsed to 3 events, got %d", len(got))
	}

	if err := events.ReplaceForSource(dbc, billID, types.SourceSejm, nil); err != nil {
		t.Fatalf("ReplaceForSource empty: %v", err)
	}
	got, err = events.ListByBill(dbc, billID)
	if err != nil {
		t.Fatalf("ListByBill: %v", err)
	}
	if len(got) != 1 || got[0].Source != types.SourceRCL {
		t.Fatalf("replace must only touch its own source: %+v", got)
	}

	if err := events.ReplaceForSource(dbc, uuid.Nil, types.SourceSejm, nil); err == nil {
		t.Fatalf("expected error for nil bill id")
	}
}
