package site

import (
	"errors"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/models"
)

func art(path, url string, date time.Time, tags ...string) *models.Article {
	return &models.Article{Path: path, URL: url, Date: date, Tags: tags}
}

func TestBuildIndex_OneEntryPerURL(t *testing.T) {
	day := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	articles := []*models.Article{
		art("a.md", "/a.html", day, "laravel"),
		art("b.md", "/b.html", day.AddDate(0, 0, 1), "laravel", "deploy"),
	}
	idx, err := BuildIndex(articles)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	if idx.Len() != 2 {
		t.Errorf("len = %d, want 2", idx.Len())
	}
	if got := idx.ByURL("/a.html"); got == nil || got.Path != "a.md" {
		t.Errorf("ByURL(/a.html) = %v", got)
	}
	if got := idx.ByURL("/missing.html"); got != nil {
		t.Errorf("ByURL miss should be nil, got %v", got)
	}
}

func TestBuildIndex_DuplicateURL(t *testing.T) {
	day := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	_, err := BuildIndex([]*models.Article{
		art("a.md", "/2025/09/x.html", day),
		art("b.md", "/2025/09/x.html", day),
	})
	var dup *DuplicateURLError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateURLError, got %v", err)
	}
	if dup.URL != "/2025/09/x.html" {
		t.Errorf("url = %q", dup.URL)
	}
	if len(dup.Paths) != 2 {
		t.Errorf("paths = %v", dup.Paths)
	}
}

func TestBuildIndex_TagsNewestFirst(t *testing.T) {
	day := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	idx, err := BuildIndex([]*models.Article{
		art("old.md", "/old.html", day, "laravel"),
		art("new.md", "/new.html", day.AddDate(0, 1, 0), "laravel"),
	})
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	list := idx.ByTag("laravel")
	if len(list) != 2 || list[0].Path != "new.md" {
		t.Errorf("ByTag order = %v", list)
	}
	if idx.ByTag("unknown") != nil {
		t.Error("unknown tag should be nil")
	}
}

func TestBuildIndex_DoesNotMutateInput(t *testing.T) {
	day := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	a := art("a.md", "/a.html", day, "z", "a")
	if _, err := BuildIndex([]*models.Article{a}); err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	if a.Tags[0] != "z" || a.Tags[1] != "a" {
		t.Errorf("input tags reordered: %v", a.Tags)
	}
}

func TestIndex_URLsAndTagsSorted(t *testing.T) {
	day := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	idx, err := BuildIndex([]*models.Article{
		art("b.md", "/b.html", day, "zeta"),
		art("a.md", "/a.html", day, "alpha"),
	})
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	urls := idx.URLs()
	if len(urls) != 2 || urls[0] != "/a.html" {
		t.Errorf("urls = %v", urls)
	}
	tags := idx.Tags()
	if len(tags) != 2 || tags[0] != "alpha" {
		t.Errorf("tags = %v", tags)
	}
}
