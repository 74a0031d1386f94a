// Package parser extracts YAML frontmatter and the Markdown body from article files.
package parser

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/adrg/frontmatter"

	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/models"
)

var delim = []byte("---")

// dateLayouts are the accepted frontmatter date formats, most specific first.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// MalformedFrontmatterError reports an article header that could not be parsed:
// missing delimiters or invalid YAML between them.
type MalformedFrontmatterError struct {
	Path   string
	Reason string
	Err    error
}

func (e *MalformedFrontmatterError) Error() string {
	msg := fmt.Sprintf("parser: malformed frontmatter in %s: %s", e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedFrontmatterError) Unwrap() error { return e.Err }

// header mirrors the frontmatter schema. Absent optional fields keep their
// zero values so downstream code never touches an untyped map.
type header struct {
	Title       string          `yaml:"title"`
	Date        string          `yaml:"date"`
	Draft       bool            `yaml:"draft"`
	URL         string          `yaml:"url"`
	Tags        []string        `yaml:"tags"`
	Description string          `yaml:"description"`
	Keywords    []string        `yaml:"keywords"`
	Image       string          `yaml:"image"`
	FAQ         []models.QAPair `yaml:"faq"`
}

// Parse extracts the YAML header delimited by --- markers and returns the
// structured article with the remainder as Body. It is a pure function: the
// same bytes always produce an equal record.
func Parse(path string, data []byte) (*models.Article, error) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, delim) {
		return nil, &MalformedFrontmatterError{Path: path, Reason: "missing opening delimiter"}
	}
	if !bytes.Contains(trimmed[len(delim):], append([]byte("\n"), delim...)) {
		return nil, &MalformedFrontmatterError{Path: path, Reason: "missing closing delimiter"}
	}

	var h header
	body, err := frontmatter.Parse(bytes.NewReader(trimmed), &h)
	if err != nil {
		return nil, &MalformedFrontmatterError{Path: path, Reason: "invalid YAML", Err: err}
	}

	return &models.Article{
		Path:        path,
		Title:       strings.TrimSpace(h.Title),
		Date:        parseDate(h.Date),
		Draft:       h.Draft,
		URL:         strings.TrimSpace(h.URL),
		Tags:        h.Tags,
		Description: strings.TrimSpace(h.Description),
		Keywords:    h.Keywords,
		Image:       h.Image,
		FAQ:         h.FAQ,
		Body:        string(bytes.TrimLeft(body, "\n\r")),
		Checksum:    checksum.Sum(data),
	}, nil
}

// parseDate tries each accepted layout in order. An empty or unparseable value
// yields the zero time, which the validator reports as a violation.
func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
