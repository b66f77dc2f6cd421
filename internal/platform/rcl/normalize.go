package rcl

import (
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

var invisibleReplacer = strings.NewReplacer(
	"\u200b", "",
	"\u200c", "",
	"\u200d", "",
	"\u2060", "",
	"\ufeff", "",
	"\u00ad", "",
)

// NormalizeText drops zero-width characters and soft hyphens, then collapses all
// whitespace (NBSP included) to single spaces.
func NormalizeText(s string) string {
	s = invisibleReplacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

var ministryPrefixes = []string{
	"ministerstwo ",
	"ministra ",
	"minister ",
}

// lowercase connecting words kept as-is inside ministry names
var ministrySmallWords = map[string]bool{
	"i": true, "w": true, "z": true, "do": true, "oraz": true, "na": true, "ds.": true,
}

// NormalizeMinistry turns an RCL applicant ("MINISTER ZDROWIA", "Minister Rodziny,
// Pracy i Polityki Społecznej") into the ministry name ("Ministerstwo Zdrowia").
// The Prime Minister maps to the Chancellery.
func NormalizeMinistry(s string) string {
	s = NormalizeText(s)
	if s == "" {
		return ""
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "prezes rady ministrów") || strings.HasPrefix(lower, "kancelaria prezesa rady ministrów") {
		return "Kancelaria Prezesa Rady Ministrów"
	}
	for _, p := range ministryPrefixes {
		if strings.HasPrefix(lower, p) {
			rest := strings.TrimSpace(lower[len(p):])
			if rest == "" {
				break
			}
			return "Ministerstwo " + titleCase(rest)
		}
	}
	return titleCase(lower)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if i > 0 && ministrySmallWords[w] {
			continue
		}
		words[i] = upperFirst(w)
	}
	return strings.Join(words, " ")
}

func upperFirst(w string) string {
	r, size := utf8.DecodeRuneInString(w)
	if r == utf8.RuneError {
		return w
	}
	return string(unicode.ToUpper(r)) + w[size:]
}

var (
	dateRe       = regexp.MustCompile(`\d{2}[-.]\d{2}[-.]\d{4}|\d{4}-\d{2}-\d{2}`)
	dateLayouts  = []string{"02-01-2006", "02.01.2006", "2006-01-02"}
	dateSuffixRe = regexp.MustCompile(`\s*r\.?$`)
)

// ParseDate accepts dd-mm-yyyy, dd.mm.yyyy and yyyy-mm-dd, optionally followed by "r.".
func ParseDate(s string) (time.Time, bool) {
	s = dateSuffixRe.ReplaceAllString(NormalizeText(s), "")
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// findDate returns the first date embedded in s and s with that date removed.
func findDate(s string) (*time.Time, string) {
	loc := dateRe.FindStringIndex(s)
	if loc == nil {
		return nil, s
	}
	t, ok := ParseDate(s[loc[0]:loc[1]])
	if !ok {
		return nil, s
	}
	rest := NormalizeText(s[:loc[0]] + " " + s[loc[1]:])
	rest = strings.Trim(rest, " -:,")
	return &t, rest
}
