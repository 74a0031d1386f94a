// Package build orchestrates the content pipeline: walk, parse, validate,
// render, index, publish.
package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/ansuz/internal/manifest"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/render"
	"github.com/starford/ansuz/internal/site"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/validate"
)

// Pipeline runs one build over the content tree. Articles are processed in
// parallel with per-worker accumulation; the index assembly and all writes
// happen single-threaded after the pool drains (collect-then-merge).
type Pipeline struct {
	source   storage.Provider
	output   storage.Provider
	db       manifest.Store
	checker  *validate.Checker
	renderer *render.Renderer
	logger   *slog.Logger
	baseURL  string
	workers  int
	strict   bool
	drafts   bool
	force    bool
	dryRun   bool
}

// Option is a functional option for configuring the pipeline.
type Option func(*Pipeline)

// WithManifest enables the SQLite build cache for incremental builds and pruning.
func WithManifest(db manifest.Store) Option {
	return func(p *Pipeline) { p.db = db }
}

// WithStrict promotes validation violations and duplicate URLs to fatal.
func WithStrict(strict bool) Option {
	return func(p *Pipeline) { p.strict = strict }
}

// WithDrafts includes draft articles in the build.
func WithDrafts(drafts bool) Option {
	return func(p *Pipeline) { p.drafts = drafts }
}

// WithForce ignores manifest checksums and rebuilds everything.
func WithForce(force bool) Option {
	return func(p *Pipeline) { p.force = force }
}

// WithDryRun validates and renders but writes nothing.
func WithDryRun(dry bool) Option {
	return func(p *Pipeline) { p.dryRun = dry }
}

// WithWorkers sets the parallel worker count. n <= 0 selects NumCPU.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithMaxDescription overrides the description length limit.
func WithMaxDescription(n int) Option {
	return func(p *Pipeline) { p.checker = validate.NewChecker(n) }
}

// WithBaseURL sets the absolute site prefix used in the sitemap.
func WithBaseURL(u string) Option {
	return func(p *Pipeline) { p.baseURL = strings.TrimRight(u, "/") }
}

// New creates a Pipeline reading from source and publishing to output.
func New(source, output storage.Provider, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:   source,
		output:   output,
		checker:  validate.NewChecker(0),
		renderer: render.New(),
		logger:   logger,
		workers:  runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// item is one per-article outcome carried from the parallel phase to the merge.
type item struct {
	article *models.Article
	page    *render.Page
	reused  bool
	draft   bool
}

// Run executes the full pipeline and returns the build report. The error
// return covers infrastructure failures only; per-article problems land in
// the report.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{}

	metas, err := p.source.List("")
	if err != nil {
		return nil, fmt.Errorf("build: list content: %w", err)
	}

	var known map[string]string
	if p.db != nil && !p.force {
		known, err = p.db.AllChecksums()
		if err != nil {
			p.logger.Warn("build: manifest read failed, full rebuild", slog.String("error", err.Error()))
			known = nil
		}
	}

	// Parallel phase: each worker accumulates into its own slot, no shared
	// mutable state until the merge.
	items := make([][]item, p.workers)
	issues := make([][]Issue, p.workers)

	jobs := make(chan models.ArticleMetadata)
	g, gCtx := errgroup.WithContext(ctx)
	for w := 0; w < p.workers; w++ {
		g.Go(func() error {
			for m := range jobs {
				it, iss := p.process(m, known)
				if it != nil {
					items[w] = append(items[w], *it)
				}
				issues[w] = append(issues[w], iss...)
			}
			return nil
		})
	}
	g.Go(func() error {
		defer close(jobs)
		for _, m := range metas {
			select {
			case jobs <- m:
			case <-gCtx.Done():
				return gCtx.Err()
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build: worker pool: %w", err)
	}

	// Merge phase, single-threaded from here on.
	var kept []item
	for w := range items {
		report.Issues = append(report.Issues, issues[w]...)
		for _, it := range items[w] {
			if it.draft {
				report.Drafts++
				continue
			}
			kept = append(kept, it)
		}
	}

	articles := make([]*models.Article, len(kept))
	for i, it := range kept {
		articles[i] = it.article
	}

	// Batch invariant: canonical URLs are unique. Under strict mode a
	// collision aborts the build before anything is written; otherwise the
	// first file keeps the URL and later claimants are dropped with a warning.
	if dups := p.checker.CheckBatch(articles); len(dups) > 0 {
		for _, v := range dups {
			report.add(v.Path, ClassDuplicateURL, p.strict, "%s", v.Message)
		}
		if p.strict {
			report.Duration = time.Since(start)
			return report, nil
		}
		dropped := make(map[string]struct{}, len(dups))
		for _, v := range dups {
			dropped[v.Path] = struct{}{}
		}
		var next []item
		for _, it := range kept {
			if _, ok := dropped[it.article.Path]; ok {
				report.Skipped++
				continue
			}
			next = append(next, it)
		}
		kept = next
	}

	articles = articles[:0]
	for _, it := range kept {
		articles = append(articles, it.article)
	}
	idx, err := site.BuildIndex(articles)
	if err != nil {
		var dup *site.DuplicateURLError
		if errors.As(err, &dup) {
			report.add(dup.Paths[len(dup.Paths)-1], ClassDuplicateURL, true, "%s", dup.Error())
			report.Duration = time.Since(start)
			return report, nil
		}
		return nil, fmt.Errorf("build: index: %w", err)
	}

	published := make(map[string]struct{}, len(kept))
	liveURLs := make(map[string]struct{}, len(kept))
	for _, it := range kept {
		published[it.article.Path] = struct{}{}
		liveURLs[it.article.URL] = struct{}{}
		if it.reused {
			report.Reused++
			continue
		}
		if p.dryRun {
			report.Built++
			continue
		}
		if err := p.output.Write(outputPath(it.article.URL), it.page.HTML); err != nil {
			report.add(it.article.Path, ClassIO, true, "write output: %v", err)
			continue
		}
		report.Built++
		if p.db != nil {
			p.upsert(it.article)
		}
	}

	if p.db != nil && !p.dryRun {
		p.prune(published, liveURLs, report)
	}

	if !p.dryRun {
		if err := p.writeSitemap(idx); err != nil {
			report.add("sitemap.xml", ClassIO, true, "%v", err)
		}
		if err := p.writeIndexJSON(idx); err != nil {
			report.add("index.json", ClassIO, true, "%v", err)
		}
	}

	report.Duration = time.Since(start)
	p.logger.Info("build: finished",
		slog.Int("built", report.Built),
		slog.Int("reused", report.Reused),
		slog.Int("skipped", report.Skipped),
		slog.Int("issues", len(report.Issues)),
		slog.Duration("duration", report.Duration))
	return report, nil
}

// process handles one source file inside a worker: reuse, parse, validate, render.
func (p *Pipeline) process(m models.ArticleMetadata, known map[string]string) (*item, []Issue) {
	if known != nil && known[m.Path] == m.Checksum {
		if row, err := p.db.GetArticle(m.Path); err == nil && row != nil {
			return &item{article: rowToArticle(row), reused: true}, nil
		}
	}

	data, err := p.source.Read(m.Path)
	if err != nil {
		return nil, []Issue{{Path: m.Path, Class: ClassIO, Message: err.Error(), Fatal: true}}
	}

	a, err := parser.Parse(m.Path, data)
	if err != nil {
		var mfe *parser.MalformedFrontmatterError
		if errors.As(err, &mfe) {
			return nil, []Issue{{Path: m.Path, Class: ClassFrontmatter, Message: mfe.Reason, Fatal: true}}
		}
		return nil, []Issue{{Path: m.Path, Class: ClassFrontmatter, Message: err.Error(), Fatal: true}}
	}

	if a.Draft && !p.drafts {
		return &item{article: a, draft: true}, nil
	}

	if vs := p.checker.Check(a); len(vs) > 0 {
		out := make([]Issue, len(vs))
		for i, v := range vs {
			out[i] = Issue{Path: v.Path, Class: ClassValidation, Message: v.Field + ": " + v.Message, Fatal: p.strict}
		}
		return nil, out
	}

	page, err := p.renderer.Render(a)
	if err != nil {
		return nil, []Issue{{Path: m.Path, Class: ClassRender, Message: err.Error(), Fatal: true}}
	}

	return &item{article: a, page: page}, nil
}

func (p *Pipeline) upsert(a *models.Article) {
	err := p.db.UpsertArticle(manifest.ArticleRow{
		Path:        a.Path,
		URL:         a.URL,
		Title:       a.Title,
		Description: a.Description,
		Checksum:    a.Checksum,
		Tags:        a.Tags,
		Published:   a.Date,
		RenderedAt:  time.Now(),
	}, a.Body)
	if err != nil {
		p.logger.Warn("build: manifest upsert failed", slog.String("path", a.Path), slog.String("error", err.Error()))
	}
}

// prune drops manifest entries (and their stale output files) for articles
// that are no longer part of the published set. liveURLs is the set of URLs
// owned by this build: a stale row whose URL was claimed by another source
// file (delete + recreate, rename) must not take the new owner's page with it.
func (p *Pipeline) prune(published, liveURLs map[string]struct{}, report *Report) {
	all, err := p.db.AllChecksums()
	if err != nil {
		p.logger.Warn("build: prune read failed", slog.String("error", err.Error()))
		return
	}
	for path := range all {
		if _, ok := published[path]; ok {
			continue
		}
		u, err := p.db.URLFor(path)
		if err != nil {
			p.logger.Warn("build: prune url lookup failed", slog.String("path", path), slog.String("error", err.Error()))
		}
		if _, owned := liveURLs[u]; u != "" && !owned {
			if err := p.output.Delete(outputPath(u)); err != nil {
				p.logger.Debug("build: stale output already gone", slog.String("path", path))
			}
		}
		if err := p.db.DeleteArticle(path); err != nil {
			report.add(path, ClassIO, false, "prune manifest: %v", err)
			continue
		}
		p.logger.Debug("build: pruned", slog.String("path", path))
	}
}

func rowToArticle(row *manifest.ArticleRow) *models.Article {
	return &models.Article{
		Path:        row.Path,
		Title:       row.Title,
		Date:        row.Published,
		URL:         row.URL,
		Tags:        row.Tags,
		Description: row.Description,
		Checksum:    row.Checksum,
	}
}

// outputPath maps a canonical URL to a file path relative to the output root.
func outputPath(url string) string {
	rel := strings.TrimPrefix(url, "/")
	if rel == "" {
		return "index.html"
	}
	return rel
}
