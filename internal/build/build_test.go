package build

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/ansuz/internal/manifest"
	"github.com/starford/ansuz/internal/storage"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTrees(t *testing.T) (src *storage.FS, out *storage.FS, outDir string) {
	t.Helper()
	srcDir := t.TempDir()
	outDir = t.TempDir()
	src, err := storage.NewFS(srcDir)
	if err != nil {
		t.Fatal(err)
	}
	out, err = storage.NewFS(outDir)
	if err != nil {
		t.Fatal(err)
	}
	return src, out, outDir
}

func testManifest(t *testing.T) *manifest.DB {
	t.Helper()
	f, err := os.CreateTemp("", "ansuz-build-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })
	db, err := manifest.Open(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func writeArticle(t *testing.T, src *storage.FS, path, title, url, body string) {
	t.Helper()
	content := "---\ntitle: " + title + "\ndate: 2025-09-14\nurl: " + url + "\ndescription: A description.\n---\n" + body
	if err := src.Write(path, []byte(content)); err != nil {
		t.Fatal(err)
	}
}

func TestRun_BuildsValidArticles(t *testing.T) {
	src, out, outDir := testTrees(t)
	writeArticle(t, src, "blog/laravel/a.md", "Article A", "/2025/09/a.html", "# A\n\nprose a\n")
	writeArticle(t, src, "blog/laravel/b.md", "Article B", "/2025/09/b.html", "# B\n\nprose b\n")

	p := New(src, out, discard(), WithWorkers(2))
	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Fatal() {
		t.Fatalf("unexpected fatal report: %s", report.Summary())
	}
	if report.Built != 2 {
		t.Errorf("built = %d, want 2", report.Built)
	}

	html, err := os.ReadFile(filepath.Join(outDir, "2025", "09", "a.html"))
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	if !strings.Contains(string(html), "<title>Article A</title>") {
		t.Errorf("rendered output wrong: %s", html)
	}
	if _, err := os.Stat(filepath.Join(outDir, "sitemap.xml")); err != nil {
		t.Errorf("sitemap missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "index.json")); err != nil {
		t.Errorf("index.json missing: %v", err)
	}
}

func TestRun_EmptyBodyViolation(t *testing.T) {
	src, out, _ := testTrees(t)
	if err := src.Write("a.md", []byte("---\ntitle: \"A\"\ndate: 2025-09-14\nurl: /a.html\ndescription: d\n---\n")); err != nil {
		t.Fatal(err)
	}

	report, err := New(src, out, discard()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	found := false
	for _, i := range report.Issues {
		if i.Class == ClassValidation && strings.Contains(i.Message, "empty body") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected empty body violation, got %s", report.Summary())
	}
	if report.Fatal() {
		t.Error("violation should not be fatal without strict")
	}
}

func TestRun_DuplicateURLStrictFatal(t *testing.T) {
	src, out, outDir := testTrees(t)
	writeArticle(t, src, "a.md", "A", "/2025/09/x.html", "body a\n")
	writeArticle(t, src, "b.md", "B", "/2025/09/x.html", "body b\n")

	report, err := New(src, out, discard(), WithStrict(true)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Fatal() {
		t.Fatalf("duplicate url under strict must be fatal: %s", report.Summary())
	}
	// Strict duplicate aborts before publishing anything.
	if _, err := os.Stat(filepath.Join(outDir, "2025", "09", "x.html")); err == nil {
		t.Error("no output should be written on strict duplicate abort")
	}
}

func TestRun_DuplicateURLNonStrictFirstWins(t *testing.T) {
	src, out, outDir := testTrees(t)
	writeArticle(t, src, "a.md", "First", "/x.html", "body a\n")
	writeArticle(t, src, "b.md", "Second", "/x.html", "body b\n")

	report, err := New(src, out, discard()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Fatal() {
		t.Fatalf("non-strict duplicate should be a warning: %s", report.Summary())
	}
	if report.Built != 1 || report.Skipped != 1 {
		t.Errorf("built = %d, skipped = %d", report.Built, report.Skipped)
	}
	html, err := os.ReadFile(filepath.Join(outDir, "x.html"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(html), "<title>First</title>") {
		t.Errorf("first file should win the url: %s", html)
	}
}

func TestRun_MalformedFrontmatterSkipsFile(t *testing.T) {
	src, out, outDir := testTrees(t)
	if err := src.Write("bad.md", []byte("---\ntitle: \"unbalanced\n---\nbody\n")); err != nil {
		t.Fatal(err)
	}
	writeArticle(t, src, "good.md", "Good", "/good.html", "body\n")

	report, err := New(src, out, discard()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Built != 1 {
		t.Errorf("good article should still build: %s", report.Summary())
	}
	if _, err := os.Stat(filepath.Join(outDir, "good.html")); err != nil {
		t.Errorf("good output missing: %v", err)
	}
	found := false
	for _, i := range report.Issues {
		if i.Path == "bad.md" && i.Class == ClassFrontmatter && i.Fatal {
			found = true
		}
	}
	if !found {
		t.Errorf("expected fatal frontmatter issue for bad.md: %s", report.Summary())
	}
}

func TestRun_SkipsDrafts(t *testing.T) {
	src, out, _ := testTrees(t)
	content := "---\ntitle: D\ndate: 2025-09-14\nurl: /d.html\ndescription: d\ndraft: true\n---\nbody\n"
	if err := src.Write("d.md", []byte(content)); err != nil {
		t.Fatal(err)
	}

	report, err := New(src, out, discard()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Drafts != 1 || report.Built != 0 {
		t.Errorf("drafts = %d, built = %d", report.Drafts, report.Built)
	}

	report, err = New(src, out, discard(), WithDrafts(true)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run with drafts: %v", err)
	}
	if report.Built != 1 {
		t.Errorf("draft should build with WithDrafts: %s", report.Summary())
	}
}

func TestRun_IncrementalReuse(t *testing.T) {
	src, out, _ := testTrees(t)
	db := testManifest(t)
	writeArticle(t, src, "a.md", "A", "/a.html", "body\n")

	p := New(src, out, discard(), WithManifest(db))
	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if report.Built != 1 || report.Reused != 0 {
		t.Fatalf("first run: built = %d, reused = %d", report.Built, report.Reused)
	}

	report, err = p.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if report.Built != 0 || report.Reused != 1 {
		t.Errorf("second run: built = %d, reused = %d", report.Built, report.Reused)
	}

	// Edited file is rebuilt.
	writeArticle(t, src, "a.md", "A Updated", "/a.html", "new body\n")
	report, err = p.Run(context.Background())
	if err != nil {
		t.Fatalf("third run: %v", err)
	}
	if report.Built != 1 {
		t.Errorf("third run: built = %d, want 1", report.Built)
	}
}

func TestRun_PrunesDeletedArticles(t *testing.T) {
	src, out, outDir := testTrees(t)
	db := testManifest(t)
	writeArticle(t, src, "a.md", "A", "/a.html", "body\n")

	p := New(src, out, discard(), WithManifest(db))
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := src.Delete("a.md"); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(outDir, "a.html")); err == nil {
		t.Error("stale output should be pruned")
	}
	if cs, _ := db.GetChecksum("a.md"); cs != "" {
		t.Error("manifest entry should be pruned")
	}
}

func TestRun_RenameKeepsOutputForSameURL(t *testing.T) {
	src, out, outDir := testTrees(t)
	db := testManifest(t)
	writeArticle(t, src, "a.md", "A", "/2025/09/x.html", "body\n")

	p := New(src, out, discard(), WithManifest(db))
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Rename: old path disappears, new path claims the same url in one build.
	if err := src.Delete("a.md"); err != nil {
		t.Fatal(err)
	}
	writeArticle(t, src, "b.md", "A", "/2025/09/x.html", "body\n")

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Built != 1 {
		t.Errorf("built = %d, want 1: %s", report.Built, report.Summary())
	}
	if _, err := os.Stat(filepath.Join(outDir, "2025", "09", "x.html")); err != nil {
		t.Errorf("page must survive the prune of the old path: %v", err)
	}
	if cs, _ := db.GetChecksum("a.md"); cs != "" {
		t.Error("old manifest entry should be pruned")
	}

	// Next build reuses the manifest row and the page is still published.
	report, err = p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Reused != 1 {
		t.Errorf("reused = %d, want 1", report.Reused)
	}
	if _, err := os.Stat(filepath.Join(outDir, "2025", "09", "x.html")); err != nil {
		t.Errorf("page missing after incremental rebuild: %v", err)
	}
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	src, out, outDir := testTrees(t)
	writeArticle(t, src, "a.md", "A", "/a.html", "body\n")

	report, err := New(src, out, discard(), WithDryRun(true)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Built != 1 {
		t.Errorf("built = %d", report.Built)
	}
	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("dry run wrote files: %v", entries)
	}
}

func TestRun_SitemapContents(t *testing.T) {
	src, out, outDir := testTrees(t)
	writeArticle(t, src, "a.md", "A", "/2025/09/a.html", "body\n")

	_, err := New(src, out, discard(), WithBaseURL("https://example.com/")).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(outDir, "sitemap.xml"))
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	if !strings.Contains(s, "<loc>https://example.com/2025/09/a.html</loc>") {
		t.Errorf("sitemap = %s", s)
	}
	if !strings.Contains(s, "<lastmod>2025-09-14</lastmod>") {
		t.Errorf("sitemap lastmod missing: %s", s)
	}
}
