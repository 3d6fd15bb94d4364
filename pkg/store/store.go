package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"jobwatch/pkg/model"
)

// cacheTTL mirrors the original @ttl_cache(ttl=30) decorator on JobBoard.from_file.
const cacheTTL = 30 * time.Second

type cacheEntry struct {
	data    []byte
	expires time.Time
}

// Store persists board documents as one JSON file per board under dir, named
// by the slugified title, with a short TTL read cache keyed by path.
type Store struct {
	dir string
	log *logrus.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry
}

func New(dir string, log *logrus.Logger) *Store {
	if log == nil {
		log = logrus.New()
	}
	return &Store{dir: dir, log: log, cache: make(map[string]cacheEntry)}
}

// PathFor returns the document path a board with the given title would be
// stored at.
func (s *Store) PathFor(title string) string {
	return filepath.Join(s.dir, Slugify(title)+".json")
}

// Save atomically writes board to its slug path: serialise to a temp
// sibling file (suffixed with a fresh uuid so concurrent writers never
// collide on the temp name), then rename over the target. The parent
// directory is created on demand.
func (s *Store) Save(board *model.JobBoard) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("store: create dir: %w", err)
	}

	path := s.PathFor(board.Title)
	data, err := json.MarshalIndent(board, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", path, err)
	}

	tmp := filepath.Join(s.dir, fmt.Sprintf(".%s.tmp-%s", filepath.Base(path), uuid.NewString()))
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("store: write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("store: rename into place: %w", err)
	}

	s.mu.Lock()
	delete(s.cache, path)
	s.mu.Unlock()

	return nil
}

// Load reads and decodes the board document at path, serving a cached copy
// if one was read within the last 30s. Every call decodes its own board, so
// callers may mutate the result without affecting later loads. A document
// that fails to decode or validate is returned as an error rather than a
// panic; callers scanning a directory should skip it rather than treat it
// as fatal.
func (s *Store) Load(path string) (*model.JobBoard, error) {
	s.mu.Lock()
	entry, ok := s.cache[path]
	hit := ok && time.Now().Before(entry.expires)
	s.mu.Unlock()

	data := entry.data
	if !hit {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("store: read %s: %w", path, err)
		}
	}

	var board model.JobBoard
	if err := json.Unmarshal(data, &board); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", path, err)
	}
	if err := validateBoard(&board); err != nil {
		return nil, fmt.Errorf("store: validate %s: %w", path, err)
	}

	if !hit {
		s.mu.Lock()
		s.cache[path] = cacheEntry{data: data, expires: time.Now().Add(cacheTTL)}
		s.mu.Unlock()
	}

	return &board, nil
}

func validateBoard(b *model.JobBoard) error {
	if b.Title == "" {
		return fmt.Errorf("missing title")
	}
	if b.WebsiteURL == "" {
		return fmt.Errorf("missing website_url")
	}
	return nil
}

// ListPageFiles returns every *.json document under dir, sorted by name.
// The directory is created on demand, matching list_page_files's behaviour
// of never failing on a not-yet-created pages directory.
func (s *Store) ListPageFiles() ([]string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create dir: %w", err)
	}
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("store: glob: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}

// PageEntry pairs a loaded board with the path it was read from.
type PageEntry struct {
	Path  string
	Board *model.JobBoard
}

// LoadPages loads every board document under dir, silently skipping any file
// that fails to decode or validate.
func (s *Store) LoadPages() ([]PageEntry, error) {
	files, err := s.ListPageFiles()
	if err != nil {
		return nil, err
	}

	out := make([]PageEntry, 0, len(files))
	for _, f := range files {
		board, err := s.Load(f)
		if err != nil {
			s.log.WithError(err).WithField("path", f).Debug("store: skipping invalid page document")
			continue
		}
		out = append(out, PageEntry{Path: f, Board: board})
	}
	return out, nil
}
