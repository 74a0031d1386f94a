// Package site builds the derived article index keyed by canonical URL and tag.
package site

import (
	"fmt"
	"sort"

	"github.com/starford/ansuz/internal/models"
)

// DuplicateURLError reports two source files claiming the same canonical URL.
type DuplicateURLError struct {
	URL   string
	Paths []string
}

func (e *DuplicateURLError) Error() string {
	return fmt.Sprintf("site: duplicate url %s claimed by %v", e.URL, e.Paths)
}

// Index is the derived, read-only aggregate over a validated article set.
// It is rebuilt from scratch on every build (rebuild-then-swap); nothing
// mutates it after BuildIndex returns.
type Index struct {
	byURL map[string]*models.Article
	byTag map[string][]*models.Article
}

// BuildIndex constructs a fresh index from the article collection. Inputs are
// not mutated. A URL collision that survived past the validator's batch check
// is returned as DuplicateURLError.
func BuildIndex(articles []*models.Article) (*Index, error) {
	idx := &Index{
		byURL: make(map[string]*models.Article, len(articles)),
		byTag: make(map[string][]*models.Article),
	}

	for _, a := range articles {
		if prev, ok := idx.byURL[a.URL]; ok {
			return nil, &DuplicateURLError{URL: a.URL, Paths: []string{prev.Path, a.Path}}
		}
		idx.byURL[a.URL] = a
		for _, tag := range a.Tags {
			idx.byTag[tag] = append(idx.byTag[tag], a)
		}
	}

	// Deterministic per-tag ordering: newest first, path as tiebreaker.
	for _, list := range idx.byTag {
		sort.Slice(list, func(i, j int) bool {
			if !list[i].Date.Equal(list[j].Date) {
				return list[i].Date.After(list[j].Date)
			}
			return list[i].Path < list[j].Path
		})
	}

	return idx, nil
}

// ByURL returns the article published at url, or nil.
func (idx *Index) ByURL(url string) *models.Article {
	return idx.byURL[url]
}

// ByTag returns the articles carrying tag, newest first.
func (idx *Index) ByTag(tag string) []*models.Article {
	return idx.byTag[tag]
}

// URLs returns every canonical URL in sorted order.
func (idx *Index) URLs() []string {
	out := make([]string, 0, len(idx.byURL))
	for u := range idx.byURL {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// Tags returns every tag in sorted order.
func (idx *Index) Tags() []string {
	out := make([]string, 0, len(idx.byTag))
	for t := range idx.byTag {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of indexed articles.
func (idx *Index) Len() int {
	return len(idx.byURL)
}
