package validate

import (
	"strings"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/models"
)

func validArticle() *models.Article {
	return &models.Article{
		Path:        "blog/laravel/queues.md",
		Title:       "Laravel Queues in Depth",
		Date:        time.Date(2025, 9, 14, 0, 0, 0, 0, time.UTC),
		URL:         "/2025/09/laravel-queues.html",
		Description: "A practical guide to queue workers.",
		Body:        "# Queues\nBody text.\n",
	}
}

func fields(vs []Violation) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Field
	}
	return out
}

func TestCheck_ValidArticle(t *testing.T) {
	c := NewChecker(0)
	if vs := c.Check(validArticle()); len(vs) != 0 {
		t.Errorf("expected no violations, got %v", vs)
	}
}

func TestCheck_EmptyTitle(t *testing.T) {
	a := validArticle()
	a.Title = ""
	vs := NewChecker(0).Check(a)
	if len(vs) != 1 || vs[0].Field != "title" {
		t.Errorf("violations = %v", vs)
	}
}

func TestCheck_ZeroDate(t *testing.T) {
	a := validArticle()
	a.Date = time.Time{}
	vs := NewChecker(0).Check(a)
	if len(vs) != 1 || vs[0].Field != "date" {
		t.Errorf("violations = %v", vs)
	}
}

func TestCheck_URLPattern(t *testing.T) {
	cases := []struct {
		url string
		ok  bool
	}{
		{"/2025/09/laravel-queues.html", true},
		{"/a.html", true},
		{"/laravel/eloquent-n1.html", true},
		{"", false},
		{"no-leading-slash.html", false},
		{"/trailing/slash/", false},
		{"/UPPER/Case.html", false},
		{"/missing/extension", false},
	}
	for _, tc := range cases {
		a := validArticle()
		a.URL = tc.url
		vs := NewChecker(0).Check(a)
		if tc.ok && len(vs) != 0 {
			t.Errorf("url %q: unexpected violations %v", tc.url, vs)
		}
		if !tc.ok && len(vs) == 0 {
			t.Errorf("url %q: expected a violation", tc.url)
		}
	}
}

func TestCheck_DescriptionLength(t *testing.T) {
	a := validArticle()
	a.Description = strings.Repeat("x", DefaultMaxDescription+1)
	vs := NewChecker(0).Check(a)
	if len(vs) != 1 || vs[0].Field != "description" {
		t.Errorf("violations = %v", vs)
	}

	a.Description = strings.Repeat("x", 50)
	if vs := NewChecker(50).Check(a); len(vs) != 0 {
		t.Errorf("custom limit: unexpected violations %v", vs)
	}
}

func TestCheck_EmptyBody(t *testing.T) {
	a := validArticle()
	a.Body = ""
	vs := NewChecker(0).Check(a)
	if len(vs) != 1 || vs[0].Message != "empty body" {
		t.Errorf("violations = %v", vs)
	}
}

func TestCheck_FAQ(t *testing.T) {
	a := validArticle()
	a.FAQ = nil
	if vs := NewChecker(0).Check(a); len(vs) != 0 {
		t.Errorf("empty faq list should be valid, got %v", vs)
	}

	a.FAQ = []models.QAPair{
		{Question: "Why?", Answer: "Because."},
		{Question: "How?", Answer: ""},
		{Question: "", Answer: "Orphan."},
	}
	vs := NewChecker(0).Check(a)
	got := fields(vs)
	want := []string{"faq[1].answer", "faq[2].question"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("fields = %v, want %v", got, want)
	}
}

func TestCheck_MultipleViolationsOrdered(t *testing.T) {
	a := &models.Article{Path: "bad.md"}
	vs := NewChecker(0).Check(a)
	want := []string{"title", "date", "url", "description", "body"}
	got := fields(vs)
	if len(got) != len(want) {
		t.Fatalf("fields = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fields[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCheckBatch_DuplicateURL(t *testing.T) {
	a := validArticle()
	b := validArticle()
	b.Path = "blog/laravel/queues-copy.md"

	vs := NewChecker(0).CheckBatch([]*models.Article{a, b})
	if len(vs) != 1 {
		t.Fatalf("expected 1 violation, got %v", vs)
	}
	if vs[0].Path != b.Path {
		t.Errorf("violation path = %q, want the later file %q", vs[0].Path, b.Path)
	}
	if !strings.Contains(vs[0].Message, a.Path) {
		t.Errorf("message should name the first owner: %q", vs[0].Message)
	}
}

func TestCheckBatch_UniqueURLs(t *testing.T) {
	a := validArticle()
	b := validArticle()
	b.Path = "other.md"
	b.URL = "/2025/09/other.html"
	if vs := NewChecker(0).CheckBatch([]*models.Article{a, b}); len(vs) != 0 {
		t.Errorf("unexpected violations %v", vs)
	}
}
