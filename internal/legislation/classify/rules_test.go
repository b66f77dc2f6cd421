package classify

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
)

const minimalRules = `
rules: legislation
version: 2
rejection:
  withdrawn: ["wycofan"]
  rejected: ["odrzuc"]
stages:
  - name: committee
    status: committee
    patterns: ["komisj"]
categories:
  - category: health
    patterns: ["szczepie"]
`

func TestEmbeddedRulesValid(t *testing.T) {
	r, err := EmbeddedRules()
	if err != nil {
		t.Fatalf("embedded rules: %v", err)
	}
	if len(r.Stages) == 0 || len(r.Categories) == 0 || len(r.Submitters) == 0 {
		t.Fatalf("embedded rules look incomplete: %+v", r)
	}
}

func TestParseRulesRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"duplicate stage":  strings.Replace(minimalRules, "stages:\n", "stages:\n  - name: committee\n    status: committee\n    patterns: [\"x\"]\n", 1),
		"unknown status":   strings.Replace(minimalRules, "status: committee", "status: lobbying", 1),
		"empty pattern":    strings.Replace(minimalRules, `["komisj"]`, `["  "]`, 1),
		"unknown category": strings.Replace(minimalRules, "category: health", "category: sport", 1),
		"wrong name":       strings.Replace(minimalRules, "rules: legislation", "rules: other", 1),
		"bad yaml":         "rules: [",
	}
	for name, doc := range cases {
		if _, err := ParseRules([]byte(doc)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := ParseRules([]byte(minimalRules)); err != nil {
		t.Fatalf("minimal rules should be valid: %v", err)
	}
}

func TestFromEnv(t *testing.T) {
	log := logger.Nop()

	t.Setenv(RulesPathEnv, "")
	if FromEnv(log) != Default() {
		t.Fatalf("expected embedded classifier without override")
	}

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("rules: nope\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv(RulesPathEnv, bad)
	if FromEnv(log) != Default() {
		t.Fatalf("expected fallback to embedded rules for invalid file")
	}

	t.Setenv(RulesPathEnv, filepath.Join(dir, "missing.yaml"))
	if FromEnv(log) != Default() {
		t.Fatalf("expected fallback to embedded rules for missing file")
	}

	good := filepath.Join(dir, "good.yaml")
	if err := os.WriteFile(good, []byte(minimalRules), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv(RulesPathEnv, good)
	c := FromEnv(log)
	if c == Default() {
		t.Fatalf("expected external rules to be used")
	}
	if got := c.ExtractCategory("Projekt ustawy o szczepieniach"); got != CategoryHealth {
		t.Fatalf("custom category rule not applied: %q", got)
	}
	if got := c.ExtractCategory("Projekt ustawy o systemie oświaty"); got != CategoryOther {
		t.Fatalf("embedded rules leaked into custom classifier: %q", got)
	}
	if got := c.MapStatus(Process{Stages: []Stage{st("Wycofanie projektu", "")}}); got != StatusWithdrawn {
		t.Fatalf("got=%q", got)
	}
}
