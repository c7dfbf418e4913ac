package tritonlink

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Document is one retrieved report.
type Document struct {
	Slot      string    `json:"slot" yaml:"slot"`
	URL       string    `json:"url" yaml:"url"`
	Title     string    `json:"title,omitempty" yaml:"title,omitempty"`
	Bytes     int       `json:"bytes" yaml:"bytes"`
	TextBytes int       `json:"text_bytes" yaml:"text_bytes"`
	FetchedAt time.Time `json:"fetched_at" yaml:"fetched_at"`
	HTML      string    `json:"html" yaml:"html"`
}

// loginFormSelector matches the SSO username field the portal renders when
// the session is no longer authenticated.
const loginFormSelector = "#ssousername"

// inspect parses html and fills the derived fields of doc. It reports whether
// the document is the SSO login form.
func inspect(doc *Document) (loginPage bool, err error) {
	doc.Bytes = len(doc.HTML)

	parsed, err := goquery.NewDocumentFromReader(strings.NewReader(doc.HTML))
	if err != nil {
		return false, err
	}

	doc.Title = strings.TrimSpace(parsed.Find("title").First().Text())
	loginPage = parsed.Find(loginFormSelector).Length() > 0

	parsed.Find("script, style, noscript").Remove()
	doc.TextBytes = len(strings.Join(strings.Fields(parsed.Find("body").Text()), " "))

	return loginPage, nil
}
