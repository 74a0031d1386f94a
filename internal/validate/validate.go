// Package validate checks article records against the publishing rules.
//
// Checks fail softly: each returns a list of violations rather than an error,
// so the caller decides whether to abort the build or skip the article.
package validate

import (
	"fmt"
	"regexp"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ansuz/internal/models"
)

// DefaultMaxDescription is the description length limit used when the
// configuration does not override it.
const DefaultMaxDescription = 160

// urlRe is the allowed canonical path pattern, e.g. /2025/09/laravel-queues.html.
var urlRe = regexp.MustCompile(`^(/[a-z0-9._-]+)+\.html$`)

// Violation is one failed check on an article.
type Violation struct {
	Path    string `json:"path"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s: %s", v.Path, v.Field, v.Message)
}

// Checker validates articles against configured limits.
type Checker struct {
	maxDescription int
}

// NewChecker creates a Checker. maxDescription <= 0 selects the default limit.
func NewChecker(maxDescription int) *Checker {
	if maxDescription <= 0 {
		maxDescription = DefaultMaxDescription
	}
	return &Checker{maxDescription: maxDescription}
}

// Check returns the violations for a single article, in check order.
// An empty result means the article is valid. URL uniqueness is a batch
// concern and reported by CheckBatch, not here.
func (c *Checker) Check(a *models.Article) []Violation {
	var out []Violation

	add := func(field, message string) {
		out = append(out, Violation{Path: a.Path, Field: field, Message: message})
	}

	if err := validation.Validate(a.Title, validation.Required); err != nil {
		add("title", "must be non-empty")
	}
	if a.Date.IsZero() {
		add("date", "missing or not a valid calendar date")
	}
	if err := validation.Validate(a.URL, validation.Required, validation.Match(urlRe)); err != nil {
		add("url", fmt.Sprintf("must match %s", urlRe.String()))
	}
	if err := validation.Validate(a.Description, validation.Required, validation.Length(1, c.maxDescription)); err != nil {
		add("description", fmt.Sprintf("must be non-empty and at most %d characters", c.maxDescription))
	}
	if err := validation.Validate(a.Body, validation.Required); err != nil {
		add("body", "empty body")
	}
	for i, qa := range a.FAQ {
		if qa.Question == "" {
			add(fmt.Sprintf("faq[%d].question", i), "must be non-empty")
		}
		if qa.Answer == "" {
			add(fmt.Sprintf("faq[%d].answer", i), "must be non-empty")
		}
	}

	return out
}

// CheckBatch flags duplicate canonical URLs across the whole collection.
// Every file past the first claiming a URL gets a violation naming the
// original owner.
func (c *Checker) CheckBatch(articles []*models.Article) []Violation {
	sorted := make([]*models.Article, len(articles))
	copy(sorted, articles)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	seen := make(map[string]string, len(sorted))
	var out []Violation
	for _, a := range sorted {
		if a.URL == "" {
			continue
		}
		if first, ok := seen[a.URL]; ok {
			out = append(out, Violation{
				Path:    a.Path,
				Field:   "url",
				Message: fmt.Sprintf("duplicate url %s (first declared in %s)", a.URL, first),
			})
			continue
		}
		seen[a.URL] = a.Path
	}
	return out
}
