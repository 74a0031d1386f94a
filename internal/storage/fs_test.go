package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func testFS(t *testing.T) (*FS, string) {
	t.Helper()
	dir := t.TempDir()
	f, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return f, dir
}

func TestNewFS_MissingRoot(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestWriteReadDelete(t *testing.T) {
	f, _ := testFS(t)
	if err := f.Write("blog/laravel/a.md", []byte("---\ntitle: A\n---\nbody\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := f.Read("blog/laravel/a.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "---\ntitle: A\n---\nbody\n" {
		t.Errorf("data = %q", data)
	}
	if err := f.Delete("blog/laravel/a.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.Read("blog/laravel/a.md"); err == nil {
		t.Fatal("expected read error after delete")
	}
}

func TestList_OnlyMarkdown(t *testing.T) {
	f, dir := testFS(t)
	if err := f.Write("blog/a.md", []byte("a")); err != nil {
		t.Fatal(err)
	}
	if err := f.Write("blog/deep/b.md", []byte("b")); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "blog", "ignore.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	metas, err := f.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("len = %d, want 2: %v", len(metas), metas)
	}
	for _, m := range metas {
		if m.Checksum == "" {
			t.Errorf("missing checksum for %s", m.Path)
		}
	}
}

func TestSafePath_RejectsTraversal(t *testing.T) {
	f, _ := testFS(t)
	cases := []string{"../outside.md", "/etc/passwd", "a/../../b.md"}
	for _, p := range cases {
		if _, err := f.Read(p); err == nil {
			t.Errorf("path %q should be rejected", p)
		}
	}
}

func TestWrite_Atomic_NoTempLeftover(t *testing.T) {
	f, dir := testFS(t)
	if err := f.Write("out.html", []byte("<html></html>")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "out.html" {
			t.Errorf("unexpected leftover %s", e.Name())
		}
	}
}
