package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jobwatch/pkg/model"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Acme Corp":        "acme-corp",
		"  Proton (AG)  ":  "proton-ag",
		"Café Müller":      "cafe-muller",
		"!!!":              "page",
		"a___b---c":        "a-b-c",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)

	board := model.NewJobBoard("Acme Corp", "https://acme.example/icon.png", "https://acme.example/careers")
	board.Content = []model.Job{{Title: "Engineer", Link: "https://acme.example/jobs/1"}}

	if err := s.Save(board); err != nil {
		t.Fatalf("Save: %v", err)
	}

	path := s.PathFor(board.Title)
	if filepath.Base(path) != "acme-corp.json" {
		t.Fatalf("unexpected path: %s", path)
	}

	loaded, err := s.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Title != board.Title || loaded.WebsiteURL != board.WebsiteURL {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
	if len(loaded.Content) != 1 || loaded.Content[0].Title != "Engineer" {
		t.Fatalf("content not round-tripped: %+v", loaded.Content)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestLoadCachesWithinTTL(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)

	board := model.NewJobBoard("Acme Corp", "", "https://acme.example")
	if err := s.Save(board); err != nil {
		t.Fatalf("Save: %v", err)
	}
	path := s.PathFor(board.Title)

	first, err := s.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Mutate the file on disk directly; a cached read should not observe it.
	if err := os.WriteFile(path, []byte(`{"title":"Changed","website_url":"https://acme.example"}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	second, err := s.Load(path)
	if err != nil {
		t.Fatalf("Load (cached): %v", err)
	}
	if second.Title != first.Title {
		t.Fatalf("expected cached read, got fresh: %+v", second)
	}
}

func TestLoadRejectsInvalidDocument(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)

	path := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(path, []byte(`{"website_url":"https://x.example"}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := s.Load(path); err == nil {
		t.Fatal("expected validation error for missing title")
	}
}

func TestListPageFilesAndLoadPagesSkipInvalid(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)

	good := model.NewJobBoard("Good Board", "", "https://good.example")
	if err := s.Save(good); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`not json`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	files, err := s.ListPageFiles()
	if err != nil {
		t.Fatalf("ListPageFiles: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files on disk, got %d: %v", len(files), files)
	}

	pages, err := s.LoadPages()
	if err != nil {
		t.Fatalf("LoadPages: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 valid page, got %d", len(pages))
	}
	if pages[0].Board.Title != "Good Board" {
		t.Fatalf("unexpected board loaded: %+v", pages[0].Board)
	}
}
