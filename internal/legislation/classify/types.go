package classify

import (
	"strings"
	"time"
)

type Status string

const (
	StatusDraft                  Status = "draft"
	StatusConsultation           Status = "consultation"
	StatusSubmitted              Status = "submitted"
	StatusFirstReading           Status = "first_reading"
	StatusCommittee              Status = "committee"
	StatusSecondReading          Status = "second_reading"
	StatusThirdReading           Status = "third_reading"
	StatusSenate                 Status = "senate"
	StatusSenateAmendments       Status = "senate_amendments"
	StatusPresident              Status = "president"
	StatusPresidentialVeto       Status = "presidential_veto"
	StatusConstitutionalTribunal Status = "constitutional_tribunal"
	StatusPublished              Status = "published"
	StatusRejected               Status = "rejected"
	StatusWithdrawn              Status = "withdrawn"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{
	StatusDraft,
	StatusConsultation,
	StatusSubmitted,
	StatusFirstReading,
	StatusCommittee,
	StatusSecondReading,
	StatusThirdReading,
	StatusSenate,
	StatusSenateAmendments,
	StatusPresident,
	StatusPresidentialVeto,
	StatusConstitutionalTribunal,
	StatusPublished,
	StatusRejected,
	StatusWithdrawn,
}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no further stage can follow s.
func (s Status) Terminal() bool {
	return s == StatusPublished || s == StatusRejected || s == StatusWithdrawn
}

var statusLabels = map[Status]string{
	StatusDraft:                  "Projekt",
	StatusConsultation:           "Konsultacje",
	StatusSubmitted:              "Wniesiony do Sejmu",
	StatusFirstReading:           "Pierwsze czytanie",
	StatusCommittee:              "Prace w komisji",
	StatusSecondReading:          "Drugie czytanie",
	StatusThirdReading:           "Trzecie czytanie",
	StatusSenate:                 "Senat",
	StatusSenateAmendments:       "Poprawki Senatu",
	StatusPresident:              "Prezydent",
	StatusPresidentialVeto:       "Weto prezydenta",
	StatusConstitutionalTribunal: "Trybunał Konstytucyjny",
	StatusPublished:              "Opublikowana",
	StatusRejected:               "Odrzucona",
	StatusWithdrawn:              "Wycofana",
}

// Label is the Polish display name used in notifications.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

type Category string

const (
	CategoryInternational   Category = "international"
	CategoryBudget          Category = "budget"
	CategoryTax             Category = "tax"
	CategoryHealth          Category = "health"
	CategoryEducation       Category = "education"
	CategoryCriminal        Category = "criminal"
	CategoryCivil           Category = "civil"
	CategoryJustice         Category = "justice"
	CategoryLabour          Category = "labour"
	CategorySocial          Category = "social"
	CategoryDefence         Category = "defence"
	CategoryEnergy          Category = "energy"
	CategoryEnvironment     Category = "environment"
	CategoryTransport       Category = "transport"
	CategoryAgriculture     Category = "agriculture"
	CategoryDigital         Category = "digital"
	CategoryEconomy         Category = "economy"
	CategoryLocalGovernment Category = "local_government"
	CategoryOther           Category = "other"
)

var Categories = []Category{
	CategoryInternational,
	CategoryBudget,
	CategoryTax,
	CategoryHealth,
	CategoryEducation,
	CategoryCriminal,
	CategoryCivil,
	CategoryJustice,
	CategoryLabour,
	CategorySocial,
	CategoryDefence,
	CategoryEnergy,
	CategoryEnvironment,
	CategoryTransport,
	CategoryAgriculture,
	CategoryDigital,
	CategoryEconomy,
	CategoryLocalGovernment,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

type SubmitterType string

const (
	SubmitterGovernment SubmitterType = "government"
	SubmitterDeputies   SubmitterType = "deputies"
	SubmitterSenate     SubmitterType = "senate"
	SubmitterPresident  SubmitterType = "president"
	SubmitterCitizens   SubmitterType = "citizens"
	SubmitterCommittee  SubmitterType = "committee"
	SubmitterPresidium  SubmitterType = "presidium"
	SubmitterOther      SubmitterType = "other"
)

var SubmitterTypes = []SubmitterType{
	SubmitterGovernment,
	SubmitterDeputies,
	SubmitterSenate,
	SubmitterPresident,
	SubmitterCitizens,
	SubmitterCommittee,
	SubmitterPresidium,
	SubmitterOther,
}

func (s SubmitterType) Valid() bool {
	for _, v := range SubmitterTypes {
		if v == s {
			return true
		}
	}
	return false
}

const (
	TagUrgent = "urgent"
	TagEU     = "eu"
	TagJoint  = "joint"
	TagOSR    = "osr"

	// EventTypeStage is the event type of a stage no rule recognises.
	EventTypeStage = "stage"
)

// Process is a Sejm legislative process as returned by /sejm/term{N}/processes/{num}.
type Process struct {
	Number                  string   `json:"number"`
	Term                    int      `json:"term"`
	Title                   string   `json:"title"`
	Description             string   `json:"description,omitempty"`
	DocumentType            string   `json:"documentType,omitempty"`
	DocumentDate            string   `json:"documentDate,omitempty"`
	ProcessStartDate        string   `json:"processStartDate,omitempty"`
	ChangeDate              string   `json:"changeDate,omitempty"`
	ELI                     string   `json:"ELI,omitempty"`
	Passed                  bool     `json:"passed,omitempty"`
	UE                      string   `json:"UE,omitempty"`
	UrgencyStatus           string   `json:"urgencyStatus,omitempty"`
	RCLNum                  string   `json:"rclNum,omitempty"`
	PrintsConsideredJointly []string `json:"printsConsideredJointly,omitempty"`
	Stages                  []Stage  `json:"stages,omitempty"`
}

type Stage struct {
	StageName     string  `json:"stageName"`
	Date          string  `json:"date,omitempty"`
	Decision      string  `json:"decision,omitempty"`
	StageType     string  `json:"stageType,omitempty"`
	CommitteeCode string  `json:"committeeCode,omitempty"`
	SittingNum    int     `json:"sittingNum,omitempty"`
	Children      []Stage `json:"children,omitempty"`
}

type FlatStage struct {
	Name     string
	Decision string
	Date     string
	Depth    int
	// Parent is the index of the enclosing stage, -1 at top level.
	Parent int
	Index  int
}

type Event struct {
	Type        string
	Date        time.Time
	Description string
}

type Result struct {
	Status        Status
	Category      Category
	SubmitterType SubmitterType
	Tags          []string
	Events        []Event
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseDate parses the date formats used by the Sejm API. ok is false for empty or
// unrecognised input.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// normalize lower-cases s and collapses whitespace. unicode.IsSpace covers NBSP.
func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
