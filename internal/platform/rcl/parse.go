package rcl

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
)

var ErrNoProject = errors.New("rcl: page does not describe a project")

type Project struct {
	ID               string     `json:"id"`
	URL              string     `json:"url"`
	Title            string     `json:"title"`
	Applicant        string     `json:"applicant,omitempty"`
	Ministry         string     `json:"ministry,omitempty"`
	ListNumber       string     `json:"list_number,omitempty"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
	Stages           []Stage    `json:"stages,omitempty"`
	Documents        []Document `json:"documents,omitempty"`
	ConsultationOpen bool       `json:"consultation_open"`

	// Raw is the page as fetched, kept for archiving.
	Raw []byte `json:"-"`
}

type Stage struct {
	Name string     `json:"name"`
	Date *time.Time `json:"date,omitempty"`
}

type Document struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	IsOSR bool   `json:"is_osr"`
}

// HasOSR reports whether a regulatory impact assessment is attached.
func (p *Project) HasOSR() bool {
	if p == nil {
		return false
	}
	for _, d := range p.Documents {
		if d.IsOSR {
			return true
		}
	}
	return false
}

type Listing struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

var (
	projectPathRe = regexp.MustCompile(`/projekt/(\d+)`)
	docExts       = []string{".pdf", ".doc", ".docx", ".odt", ".rtf", ".zip"}
	openMarkers   = []string{
		"konsultacje publiczne trwają",
		"trwają konsultacje publiczne",
		"zgłaszanie uwag do projektu jest możliwe",
	}
)

// ParseProjectPage extracts project metadata from an RCL project page.
func ParseProjectPage(raw []byte, pageURL string) (*Project, error) {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("rcl: parse html: %w", err)
	}
	base, _ := url.Parse(pageURL)

	p := &Project{URL: pageURL, ID: projectID(pageURL)}
	p.Title = pageTitle(doc)
	if p.Title == "" {
		return nil, ErrNoProject
	}

	for _, kv := range labelPairs(doc) {
		label := strings.TrimSuffix(strings.ToLower(kv[0]), ":")
		label = strings.TrimSpace(label)
		value := kv[1]
		switch {
		case p.Applicant == "" && strings.HasPrefix(label, "wnioskodawca"):
			p.Applicant = value
			p.Ministry = NormalizeMinistry(value)
		case p.ListNumber == "" && strings.HasPrefix(label, "numer z wykazu"):
			p.ListNumber = value
		case p.CreatedAt == nil && strings.HasPrefix(label, "data utworzenia"):
			if t, ok := ParseDate(value); ok {
				p.CreatedAt = &t
			} else if t, _ := findDate(value); t != nil {
				p.CreatedAt = t
			}
		}
	}

	p.Stages = stages(doc)
	p.Documents = documents(doc, base)
	p.ConsultationOpen = consultationOpen(doc)
	return p, nil
}

// ParseSearchResults collects the project links on a search or list page,
// de-duplicated by project id and kept in page order.
func ParseSearchResults(raw []byte, baseURL string) []Listing {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil
	}
	base, _ := url.Parse(baseURL)
	var out []Listing
	seen := map[string]bool{}
	walk(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != "a" {
			return true
		}
		href := attr(n, "href")
		m := projectPathRe.FindStringSubmatch(href)
		if m == nil || seen[m[1]] {
			return false
		}
		title := textContent(n)
		if title == "" {
			return false
		}
		seen[m[1]] = true
		out = append(out, Listing{ID: m[1], Title: title, URL: resolve(base, href)})
		return false
	})
	return out
}

func projectID(pageURL string) string {
	if m := projectPathRe.FindStringSubmatch(pageURL); m != nil {
		return m[1]
	}
	return ""
}

func pageTitle(doc *html.Node) string {
	for _, tag := range []string{"h1", "h2"} {
		if n := findFirst(doc, func(n *html.Node) bool { return n.Type == html.ElementNode && n.Data == tag }); n != nil {
			if t := textContent(n); t != "" {
				return t
			}
		}
	}
	if n := findFirst(doc, func(n *html.Node) bool { return n.Type == html.ElementNode && n.Data == "title" }); n != nil {
		t := textContent(n)
		if i := strings.Index(t, " | "); i > 0 {
			t = strings.TrimSpace(t[:i])
		}
		return t
	}
	return ""
}

// labelPairs reads "label: value" metadata from table rows, definition lists and
// short inline elements.
func labelPairs(doc *html.Node) [][2]string {
	var out [][2]string
	walk(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		switch n.Data {
		case "tr":
			cells := childElements(n, "td", "th")
			if len(cells) >= 2 {
				out = append(out, [2]string{textContent(cells[0]), textContent(cells[1])})
			}
			return false
		case "dt":
			if dd := nextElement(n); dd != nil && dd.Data == "dd" {
				out = append(out, [2]string{textContent(n), textContent(dd)})
			}
			return false
		case "p", "li", "div", "span":
			if hasBlockChild(n) {
				return true
			}
			text := textContent(n)
			if i := strings.Index(text, ":"); i > 0 && len(text) < 400 {
				label := strings.TrimSpace(text[:i])
				value := strings.TrimSpace(text[i+1:])
				if label != "" && value != "" {
					out = append(out, [2]string{label, value})
				}
			}
			return false
		}
		return true
	})
	return out
}

func stages(doc *html.Node) []Stage {
	var out []Stage
	walk(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode || !hasClass(n, "stage", "etap") {
			return true
		}
		var st Stage
		if nameNode := findFirst(n, func(c *html.Node) bool { return hasClass(c, "stage-name", "etap-nazwa") }); nameNode != nil {
			st.Name = textContent(nameNode)
			if dateNode := findFirst(n, func(c *html.Node) bool { return hasClass(c, "stage-date", "etap-data") }); dateNode != nil {
				if t, ok := ParseDate(textContent(dateNode)); ok {
					st.Date = &t
				}
			}
		} else {
			st.Date, st.Name = findDate(textContent(n))
		}
		if st.Name != "" {
			out = append(out, st)
		}
		return false
	})
	return out
}

func documents(doc *html.Node, base *url.URL) []Document {
	var out []Document
	seen := map[string]bool{}
	walk(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != "a" {
			return true
		}
		href := strings.TrimSpace(attr(n, "href"))
		if !isDocumentLink(href) {
			return false
		}
		abs := resolve(base, href)
		if seen[abs] {
			return false
		}
		seen[abs] = true
		title := textContent(n)
		if title == "" {
			title = path.Base(href)
		}
		lower := strings.ToLower(title + " " + href)
		out = append(out, Document{
			Title: title,
			URL:   abs,
			IsOSR: strings.Contains(lower, "osr") || strings.Contains(lower, "ocena skutków regulacji"),
		})
		return false
	})
	return out
}

func isDocumentLink(href string) bool {
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "mailto:") {
		return false
	}
	lower := strings.ToLower(href)
	if strings.Contains(lower, "/docs/") {
		return true
	}
	if i := strings.IndexAny(lower, "?#"); i >= 0 {
		lower = lower[:i]
	}
	for _, ext := range docExts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func consultationOpen(doc *html.Node) bool {
	if findFirst(doc, func(n *html.Node) bool { return hasClass(n, "consultation-open", "konsultacje-otwarte") }) != nil {
		return true
	}
	text := strings.ToLower(textContent(doc))
	for _, m := range openMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// ---------- DOM helpers ----------

// walk visits n in pre-order; fn returns false to skip a node's children.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	var found *html.Node
	walk(n, func(c *html.Node) bool {
		if found != nil {
			return false
		}
		if match(c) {
			found = c
			return false
		}
		return true
	})
	return found
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var traverse func(*html.Node)
	traverse = func(node *html.Node) {
		if node.Type == html.ElementNode && (node.Data == "script" || node.Data == "style") {
			return
		}
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
			sb.WriteString(" ")
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(n)
	text := NormalizeText(sb.String())
	// inline tags leave a space before punctuation
	text = strings.NewReplacer(" :", ":", " ,", ",", " .", ".").Replace(text)
	return text
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, names ...string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, tok := range strings.Fields(attr(n, "class")) {
		for _, name := range names {
			if tok == name {
				return true
			}
		}
	}
	return false
}

func childElements(n *html.Node, tags ...string) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		for _, t := range tags {
			if c.Data == t {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

func nextElement(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

var blockTags = map[string]bool{
	"p": true, "div": true, "li": true, "ul": true, "ol": true, "table": true,
	"tr": true, "dl": true, "section": true, "article": true, "h1": true, "h2": true, "h3": true,
}

func hasBlockChild(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && blockTags[c.Data] {
			return true
		}
	}
	return false
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
