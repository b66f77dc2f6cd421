// Package classify maps Sejm legislative-process records onto the bill status,
// category, submitter and tag taxonomies.
package classify

import (
	"os"
	"strings"
	"sync"

	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
)

type Classifier struct {
	rules *Rules
}

func New(rules *Rules) *Classifier {
	return &Classifier{rules: rules}
}

var (
	defaultOnce sync.Once
	defaultC    *Classifier
)

// Default returns the classifier built from the embedded rules.
func Default() *Classifier {
	defaultOnce.Do(func() {
		r, err := EmbeddedRules()
		if err != nil {
			panic("classify: embedded rules invalid: " + err.Error())
		}
		defaultC = New(r)
	})
	return defaultC
}

// FromEnv loads the rules named by CLASSIFIER_RULES_PATH, falling back to the
// embedded rules when the variable is unset or the file is invalid.
func FromEnv(log *logger.Logger) *Classifier {
	path := strings.TrimSpace(os.Getenv(RulesPathEnv))
	if path == "" {
		return Default()
	}
	r, err := LoadRulesFile(path)
	if err != nil {
		if log != nil {
			log.Warn("classify: rules load failed; using embedded rules", "path", path, "error", err)
		}
		return Default()
	}
	if log != nil {
		log.Info("classify: loaded external rules", "path", path, "version", r.Version)
	}
	return New(r)
}

func (c *Classifier) Rules() *Rules { return c.rules }

// Classify runs the full classification of p.
func (c *Classifier) Classify(p Process) Result {
	return Result{
		Status:        c.MapStatus(p),
		Category:      c.ExtractCategory(p.Title),
		SubmitterType: c.ExtractSubmitterType(p),
		Tags:          c.ExtractTags(p),
		Events:        c.Events(p.Stages),
	}
}

// MapStatus applies, in order: the ELI/passed publication markers, rejection and
// withdrawal keywords on the latest stage, the stage keyword table, and finally
// the submitted fallback.
func (c *Classifier) MapStatus(p Process) Status {
	if strings.TrimSpace(p.ELI) != "" || p.Passed {
		return StatusPublished
	}
	flat := FlattenStages(p.Stages)
	if len(flat) > 0 {
		latest := flat[len(flat)-1]
		// Rejecting Senate amendments or a Senate resolution sends the bill on
		// to the President; it never ends the process.
		rule, matched := c.matchStage(latest.Name)
		if !matched || rule.Status != StatusSenateAmendments {
			if s, ok := c.rejectionStatus(latest.Name, latest.Decision); ok {
				return s
			}
		}
	}
	if s, ok := c.statusFromFlat(flat); ok {
		return s
	}
	return StatusSubmitted
}

func (c *Classifier) rejectionStatus(texts ...string) (Status, bool) {
	rr := c.rules.Rejection
	for _, raw := range texts {
		text := normalize(raw)
		if text == "" {
			continue
		}
		for _, ex := range rr.Exclusions {
			text = strings.ReplaceAll(text, ex, " ")
		}
		if containsAny(text, rr.Withdrawn) {
			return StatusWithdrawn, true
		}
		if containsAny(text, rr.Rejected) {
			return StatusRejected, true
		}
	}
	return "", false
}

// GetStatusFromStages walks the flattened stages from latest to earliest and
// returns the status of the first stage matching the stage keyword table.
func (c *Classifier) GetStatusFromStages(stages []Stage) (Status, bool) {
	return c.statusFromFlat(FlattenStages(stages))
}

func (c *Classifier) statusFromFlat(flat []FlatStage) (Status, bool) {
	for i := len(flat) - 1; i >= 0; i-- {
		if rule, ok := c.matchStage(flat[i].Name); ok {
			return rule.Status, true
		}
	}
	return "", false
}

func (c *Classifier) matchStage(name string) (StageRule, bool) {
	text := normalize(name)
	if text == "" {
		return StageRule{}, false
	}
	for _, rule := range c.rules.Stages {
		if containsAny(text, rule.Patterns) {
			return rule, true
		}
	}
	return StageRule{}, false
}

// StageEventType names the event recorded for a stage: the matching stage
// rule's status, or "stage".
func (c *Classifier) StageEventType(name string) string {
	if rule, ok := c.matchStage(name); ok {
		return string(rule.Status)
	}
	return EventTypeStage
}

func (c *Classifier) ExtractCategory(title string) Category {
	text := normalize(title)
	if text == "" {
		return CategoryOther
	}
	for _, rule := range c.rules.Categories {
		if containsAny(text, rule.Patterns) {
			return rule.Category
		}
	}
	return CategoryOther
}

// ExtractSubmitterType checks the title first, then the description, then the
// document type. Within one text the rule matching earliest wins, so the
// "Poselski projekt" prefix beats a later mention of the Council of Ministers.
// Rules matching at the same offset keep table order.
func (c *Classifier) ExtractSubmitterType(p Process) SubmitterType {
	for _, raw := range []string{p.Title, p.Description, p.DocumentType} {
		text := normalize(raw)
		if text == "" {
			continue
		}
		best, bestAt := SubmitterOther, -1
		for _, rule := range c.rules.Submitters {
			at := firstIndex(text, rule.Patterns)
			if at >= 0 && (bestAt < 0 || at < bestAt) {
				best, bestAt = rule.Type, at
			}
		}
		if bestAt >= 0 {
			return best
		}
	}
	return SubmitterOther
}

func (c *Classifier) ExtractTags(p Process) []string {
	text := normalize(p.Title)
	tags := make([]string, 0, 4)
	seen := map[string]bool{}
	add := func(tag string) {
		if tag == "" || seen[tag] {
			return
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	if text != "" {
		for _, rule := range c.rules.Tags {
			if containsAny(text, rule.Patterns) {
				add(rule.Tag)
			}
		}
	}
	if isUrgent(p.UrgencyStatus) {
		add(TagUrgent)
	}
	if isYes(p.UE) {
		add(TagEU)
	}
	if len(p.PrintsConsideredJointly) > 0 {
		add(TagJoint)
	}
	return tags
}

// ClassifyRCLStage maps a pre-parliamentary RCL stage name to draft or consultation.
func (c *Classifier) ClassifyRCLStage(name string) Status {
	if containsAny(normalize(name), c.rules.RCLStages.Consultation) {
		return StatusConsultation
	}
	return StatusDraft
}

// Events turns dated stages into bill events, in document order. Stages with no
// date of their own or inherited from a parent are skipped.
func (c *Classifier) Events(stages []Stage) []Event {
	flat := FlattenStages(stages)
	out := make([]Event, 0, len(flat))
	for _, fs := range flat {
		date, ok := ParseDate(fs.Date)
		if !ok {
			continue
		}
		name := strings.Join(strings.Fields(fs.Name), " ")
		if name == "" {
			continue
		}
		desc := name
		if d := strings.Join(strings.Fields(fs.Decision), " "); d != "" {
			desc = name + ": " + d
		}
		out = append(out, Event{
			Type:        c.StageEventType(fs.Name),
			Date:        date,
			Description: desc,
		})
	}
	return out
}

func isUrgent(raw string) bool {
	v := normalize(raw)
	return v != "" && v != "normal" && v != "zwykły" && v != "nie"
}

func isYes(raw string) bool {
	switch normalize(raw) {
	case "tak", "yes", "true", "1", "ue", "y", "t":
		return true
	}
	return false
}

// firstIndex returns the lowest offset at which any pattern occurs, or -1.
func firstIndex(text string, patterns []string) int {
	at := -1
	for _, p := range patterns {
		if i := strings.Index(text, p); i >= 0 && (at < 0 || i < at) {
			at = i
		}
	}
	return at
}

func containsAny(text string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// Package-level helpers use the embedded rules.

func Classify(p Process) Result                         { return Default().Classify(p) }
func MapStatus(p Process) Status                        { return Default().MapStatus(p) }
func GetStatusFromStages(stages []Stage) (Status, bool) { return Default().GetStatusFromStages(stages) }
func ExtractCategory(title string) Category             { return Default().ExtractCategory(title) }
func ExtractSubmitterType(p Process) SubmitterType      { return Default().ExtractSubmitterType(p) }
func ExtractTags(p Process) []string                    { return Default().ExtractTags(p) }
func StageEventType(name string) string                 { return Default().StageEventType(name) }
func ClassifyRCLStage(name string) Status               { return Default().ClassifyRCLStage(name) }
