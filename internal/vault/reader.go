package vault

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	temoaerrors "github.com/pborenstein/temoa/internal/errors"
)

// DefaultExcludedDirs is a configurable exclusion list layered on top of
// the blanket dotdir skip.
var DefaultExcludedDirs = []string{"node_modules", "vendor", ".git"}

// cacheEntry pairs a parsed Document with the mtime it was parsed at.
// The cache only grows: entries are replaced atomically on mtime change,
// never evicted — this is deliberately NOT an LRU (contrast with
// VaultRegistry, which must evict).
type cacheEntry struct {
	mtime time.Time
	doc   *Document
}

// Reader implements VaultReader: enumerate Markdown files under a vault
// root, parse frontmatter and body, return Document records.
type Reader struct {
	logger       *slog.Logger
	excludedDirs map[string]bool

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithExcludedDirs overrides the conventionally-excluded directory list.
func WithExcludedDirs(dirs []string) ReaderOption {
	return func(r *Reader) {
		m := make(map[string]bool, len(dirs))
		for _, d := range dirs {
			m[d] = true
		}
		r.excludedDirs = m
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) ReaderOption {
	return func(r *Reader) {
		r.logger = logger
	}
}

// NewReader constructs a Reader with an empty cache.
func NewReader(opts ...ReaderOption) *Reader {
	r := &Reader{
		logger: slog.Default(),
		cache:  make(map[string]cacheEntry),
	}
	WithExcludedDirs(DefaultExcludedDirs)(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var hashtagPattern = regexp.MustCompile(`(?:^|\s)#([A-Za-z0-9_/-]+)`)

// ReadVault enumerates Markdown files under root and returns Document
// records in stable lexicographic order by relative path. Per-file read
// errors are logged and the file skipped (fail-open); a missing or
// unreadable root is fatal.
func (r *Reader) ReadVault(ctx context.Context, v *Vault) ([]*Document, error) {
	info, err := os.Stat(v.Root)
	if err != nil || !info.IsDir() {
		return nil, temoaerrors.VaultRead("vault root missing or not a directory: "+v.Root, err)
	}

	var paths []string
	walkErr := filepath.WalkDir(v.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			r.logger.Warn("vault walk error", "path", path, "error", err)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		name := d.Name()
		if d.IsDir() {
			if path != v.Root && (strings.HasPrefix(name, ".") || r.excludedDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(name), ".md") {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if walkErr != nil {
		return nil, temoaerrors.VaultRead("vault walk aborted", walkErr)
	}

	sort.Strings(paths)

	docs := make([]*Document, 0, len(paths))
	for _, abs := range paths {
		rel, err := filepath.Rel(v.Root, abs)
		if err != nil {
			r.logger.Warn("vault rel path failure", "path", abs, "error", err)
			continue
		}
		doc, err := r.ReadFile(v, rel)
		if err != nil {
			r.logger.Warn("skipping unreadable file", "path", rel, "error", err)
			continue
		}
		if doc.Unreadable {
			r.logger.Warn("skipping unreadable file", "path", rel)
			continue
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

// ReadFile returns the Document at relPath, cached by (path, mtime).
// Returns a tombstone Document (Unreadable=true) rather than an error when
// the file cannot be read or stat'd — callers aggregating across the
// vault skip tombstones; callers that asked for one specific file see it.
func (r *Reader) ReadFile(v *Vault, relPath string) (*Document, error) {
	abs := filepath.Join(v.Root, relPath)

	info, err := os.Stat(abs)
	if err != nil {
		return &Document{RelPath: relPath, Unreadable: true}, nil
	}
	mtime := info.ModTime()

	r.mu.RLock()
	entry, ok := r.cache[relPath]
	r.mu.RUnlock()
	if ok && entry.mtime.Equal(mtime) {
		return entry.doc, nil
	}

	raw, err := os.ReadFile(abs)
	if err != nil {
		return &Document{RelPath: relPath, Unreadable: true}, nil
	}

	doc := r.parse(relPath, string(raw), mtime)

	r.mu.Lock()
	r.cache[relPath] = cacheEntry{mtime: mtime, doc: doc}
	r.mu.Unlock()

	return doc, nil
}

func (r *Reader) parse(relPath, content string, mtime time.Time) *Document {
	rawFM, body, _ := splitFrontmatter(content)
	fm := parseFrontmatter(rawFM)

	title := stringField(fm, "title")
	if title == "" {
		base := filepath.Base(relPath)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	status := StatusActive
	if s := stringField(fm, "status"); s != "" {
		switch Status(s) {
		case StatusActive, StatusInactive, StatusHidden:
			status = Status(s)
		}
	}

	tags := mergeTags(stringTagValue(fm), extractHashtags(body))

	created := mtime
	for _, key := range []string{"created", "date"} {
		if t, ok := parseFrontmatterDate(stringField(fm, key)); ok {
			created = t
			break
		}
	}

	return &Document{
		RelPath:       relPath,
		Title:         title,
		Body:          body,
		Frontmatter:   fm,
		Tags:          tags,
		CreatedDate:   created,
		ModifiedDate:  mtime,
		ContentLength: len(body),
		Status:        status,
		Type:          stringField(fm, "type"),
	}
}

var frontmatterDateLayouts = []string{"2006-01-02T15:04:05Z07:00", "2006-01-02 15:04:05", "2006-01-02"}

func parseFrontmatterDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range frontmatterDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func extractHashtags(body string) []string {
	matches := hashtagPattern.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return nil
	}
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tags = append(tags, m[1])
	}
	return tags
}

func mergeTags(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, t := range list {
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
