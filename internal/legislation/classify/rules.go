package classify

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// RulesPathEnv points at an external rules file that replaces the embedded one.
const RulesPathEnv = "CLASSIFIER_RULES_PATH"

//go:embed rules.yaml
var embeddedRules []byte

type Rules struct {
	Name       string          `yaml:"rules"`
	Version    int             `yaml:"version"`
	Rejection  RejectionRules  `yaml:"rejection"`
	Stages     []StageRule     `yaml:"stages"`
	Categories []CategoryRule  `yaml:"categories"`
	Submitters []SubmitterRule `yaml:"submitters"`
	Tags       []TagRule       `yaml:"tags"`
	RCLStages  RCLStageRules   `yaml:"rcl_stages"`
}

type RejectionRules struct {
	Exclusions []string `yaml:"exclusions"`
	Withdrawn  []string `yaml:"withdrawn"`
	Rejected   []string `yaml:"rejected"`
}

type StageRule struct {
	Name     string   `yaml:"name"`
	Status   Status   `yaml:"status"`
	Patterns []string `yaml:"patterns"`
}

type CategoryRule struct {
	Category Category `yaml:"category"`
	Patterns []string `yaml:"patterns"`
}

type SubmitterRule struct {
	Type     SubmitterType `yaml:"type"`
	Patterns []string      `yaml:"patterns"`
}

type TagRule struct {
	Tag      string   `yaml:"tag"`
	Patterns []string `yaml:"patterns"`
}

type RCLStageRules struct {
	Consultation []string `yaml:"consultation"`
}

// EmbeddedRules parses the rules compiled into the binary.
func EmbeddedRules() (*Rules, error) {
	return ParseRules(embeddedRules)
}

// LoadRulesFile reads and validates an external rules file.
func LoadRulesFile(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	r, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("rules %s: %w", path, err)
	}
	return r, nil
}

func ParseRules(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	r.normalize()
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// normalize brings patterns to the same form as the text they are matched against.
// Surrounding whitespace is dropped, so a pattern cannot depend on word boundaries.
func (r *Rules) normalize() {
	norm := func(in []string) []string {
		out := make([]string, 0, len(in))
		for _, p := range in {
			out = append(out, normalize(p))
		}
		return out
	}
	r.Rejection.Exclusions = norm(r.Rejection.Exclusions)
	r.Rejection.Withdrawn = norm(r.Rejection.Withdrawn)
	r.Rejection.Rejected = norm(r.Rejection.Rejected)
	for i := range r.Stages {
		r.Stages[i].Name = strings.TrimSpace(r.Stages[i].Name)
		r.Stages[i].Patterns = norm(r.Stages[i].Patterns)
	}
	for i := range r.Categories {
		r.Categories[i].Patterns = norm(r.Categories[i].Patterns)
	}
	for i := range r.Submitters {
		r.Submitters[i].Patterns = norm(r.Submitters[i].Patterns)
	}
	for i := range r.Tags {
		r.Tags[i].Tag = strings.TrimSpace(r.Tags[i].Tag)
		r.Tags[i].Patterns = norm(r.Tags[i].Patterns)
	}
	r.RCLStages.Consultation = norm(r.RCLStages.Consultation)
}

func (r *Rules) Validate() error {
	if r == nil {
		return errors.New("missing rules")
	}
	if strings.TrimSpace(r.Name) != "legislation" {
		return fmt.Errorf("unexpected rules: %q", r.Name)
	}
	if len(r.Stages) == 0 {
		return errors.New("no stage rules defined")
	}
	if len(r.Rejection.Withdrawn) == 0 || len(r.Rejection.Rejected) == 0 {
		return errors.New("rejection: withdrawn and rejected patterns are required")
	}
	if err := checkPatterns("rejection.exclusions", r.Rejection.Exclusions, true); err != nil {
		return err
	}
	if err := checkPatterns("rejection.withdrawn", r.Rejection.Withdrawn, false); err != nil {
		return err
	}
	if err := checkPatterns("rejection.rejected", r.Rejection.Rejected, false); err != nil {
		return err
	}

	seen := map[string]bool{}
	for _, s := range r.Stages {
		if s.Name == "" {
			return errors.New("stage rule name is required")
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate stage rule: %s", s.Name)
		}
		seen[s.Name] = true
		if !s.Status.Valid() {
			return fmt.Errorf("stage rule %s: unknown status %q", s.Name, s.Status)
		}
		if err := checkPatterns("stage rule "+s.Name, s.Patterns, false); err != nil {
			return err
		}
	}

	seen = map[string]bool{}
	for _, c := range r.Categories {
		if !c.Category.Valid() || c.Category == CategoryOther {
			return fmt.Errorf("unknown category %q", c.Category)
		}
		if seen[string(c.Category)] {
			return fmt.Errorf("duplicate category rule: %s", c.Category)
		}
		seen[string(c.Category)] = true
		if err := checkPatterns("category "+string(c.Category), c.Patterns, false); err != nil {
			return err
		}
	}

	seen = map[string]bool{}
	for _, s := range r.Submitters {
		if !s.Type.Valid() || s.Type == SubmitterOther {
			return fmt.Errorf("unknown submitter type %q", s.Type)
		}
		if seen[string(s.Type)] {
			return fmt.Errorf("duplicate submitter rule: %s", s.Type)
		}
		seen[string(s.Type)] = true
		if err := checkPatterns("submitter "+string(s.Type), s.Patterns, false); err != nil {
			return err
		}
	}

	seen = map[string]bool{}
	for _, t := range r.Tags {
		if t.Tag == "" {
			return errors.New("tag name is required")
		}
		if seen[t.Tag] {
			return fmt.Errorf("duplicate tag rule: %s", t.Tag)
		}
		seen[t.Tag] = true
		if err := checkPatterns("tag "+t.Tag, t.Patterns, false); err != nil {
			return err
		}
	}

	return checkPatterns("rcl_stages.consultation", r.RCLStages.Consultation, true)
}

func checkPatterns(where string, patterns []string, allowEmptyList bool) error {
	if len(patterns) == 0 && !allowEmptyList {
		return fmt.Errorf("%s: no patterns", where)
	}
	for i, p := range patterns {
		if p == "" {
			return fmt.Errorf("%s: pattern %d is empty", where, i)
		}
	}
	return nil
}
