package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/sciezka-prawa/sciezka-backend/internal/legislation/classify"
)

const processJSON = `{
  "number": "123",
  "term": 10,
  "title": "Rządowy projekt ustawy o zmianie ustawy - Kodeks pracy w związku z wdrożeniem dyrektywy",
  "urgencyStatus": "URGENT",
  "UE": "TAK",
  "printsConsideredJointly": ["124"],
  "stages": [
    {"stageName": "Projekt wpłynął do Sejmu", "date": "2024-01-10"},
    {"stageName": "I czytanie w komisjach", "date": "2024-02-01",
     "children": [{"stageName": "Posiedzenie komisji"}]}
  ]
}`

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_MODE", "test")
	t.Setenv(classify.RulesPathEnv, "")
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "process.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestClassifyFile(t *testing.T) {
	out, err := execute(t, "", "classify", writeFile(t, processJSON))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	var got classification
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	want := classification{
		Number:        "123",
		Term:          10,
		Title:         "Rządowy projekt ustawy o zmianie ustawy - Kodeks pracy w związku z wdrożeniem dyrektywy",
		Status:        classify.StatusCommittee,
		StatusLabel:   classify.StatusCommittee.Label(),
		Category:      classify.CategoryLabour,
		SubmitterType: classify.SubmitterGovernment,
		Tags:          []string{"code", "amendment", "eu", classify.TagUrgent, classify.TagJoint},
		Events: []classifiedEvent{
			{Type: "submitted", Date: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), Description: "Projekt wpłynął do Sejmu"},
			{Type: "first_reading", Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Description: "I czytanie w komisjach"},
			{Type: "committee", Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Description: "Posiedzenie komisji"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("classification mismatch (-want +got):\n%s", diff)
	}
}

func TestClassifyArrayFromStdin(t *testing.T) {
	in := `[` + processJSON + `, {"number": "7", "term": 10, "title": "Projekt uchwały"}]`
	out, err := execute(t, in, "classify", "-")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	var got []classification
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[1].Number != "7" || got[1].Tags == nil || got[1].Events == nil {
		t.Fatalf("unexpected second result: %+v", got[1])
	}
}

func TestClassifyRejectsBadInput(t *testing.T) {
	if _, err := execute(t, "", "classify", writeFile(t, "{not json")); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := execute(t, "", "classify", filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected read error")
	}
	if _, err := execute(t, "", "classify"); err == nil {
		t.Fatalf("expected argument error")
	}
}

func TestRCLFetchByID(t *testing.T) {
	page, err := os.ReadFile("../../internal/platform/rcl/testdata/project.html")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/projekt/12345678" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(page)
	}))
	defer srv.Close()
	t.Setenv("RCL_BASE_URL", srv.URL)
	t.Setenv("RCL_MAX_RETRIES", "0")

	out, err := execute(t, "", "rcl", "12345678")
	if err != nil {
		t.Fatalf("rcl: %v", err)
	}
	var got struct {
		ID       string `json:"id"`
		Ministry string `json:"ministry"`
		Stages   []struct {
			Name   string          `json:"name"`
			Status classify.Status `json:"status"`
		} `json:"stages"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if got.ID != "12345678" || got.Ministry != "Ministerstwo Zdrowia" {
		t.Fatalf("unexpected project: %+v", got)
	}
	for _, st := range got.Stages {
		if want := classify.ClassifyRCLStage(st.Name); st.Status != want {
			t.Fatalf("stage %q: status=%q want=%q", st.Name, st.Status, want)
		}
	}

	if _, err := execute(t, "", "rcl", "99"); err == nil {
		t.Fatalf("expected not found error")
	}
}

func TestParseSince(t *testing.T) {
	got, err := parseSince("2024-03-01")
	if err != nil || !got.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date: got=%v err=%v", got, err)
	}
	got, err = parseSince("2024-03-01T10:00:00+02:00")
	if err != nil || !got.Equal(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("rfc3339: got=%v err=%v", got, err)
	}
	if got, err := parseSince(" "); err != nil || got != nil {
		t.Fatalf("empty: got=%v err=%v", got, err)
	}
	if _, err := parseSince("yesterday"); err == nil {
		t.Fatalf("expected error")
	}
}
