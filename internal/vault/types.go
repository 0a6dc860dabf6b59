// Package vault implements VaultReader: enumeration of a Markdown note
// vault, frontmatter/body parsing, and a per-file cache keyed by
// (path, mtime).
package vault

import "time"

// Status is the lifecycle state of a Document, drawn from its
// frontmatter's "status" field.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusHidden   Status = "hidden"
)

// Vault is a directory on the local filesystem treated as a closed search
// corpus. Its absolute path is its identity.
type Vault struct {
	// Root is the canonical absolute path to the vault directory.
	Root string
}

// Document is a single Markdown file read from a Vault.
type Document struct {
	// RelPath is the file's path relative to the vault root; this is the
	// document's identity within the vault.
	RelPath string

	// Title is taken from the frontmatter "title" field, falling back to
	// the filename without its extension.
	Title string

	// Body is the file content after the frontmatter block, if any.
	Body string

	// Frontmatter is the parsed YAML block, as a tagged-variant map:
	// values are string, int64, float64, bool, or []string.
	Frontmatter map[string]any

	// Tags is the union of the frontmatter "tags" list and inline
	// "#hashtag" tokens found in the body.
	Tags []string

	CreatedDate  time.Time
	ModifiedDate time.Time
	ContentLength int

	// Status defaults to StatusActive when the frontmatter omits it.
	Status Status

	// Type is the frontmatter "type" field, or empty.
	Type string

	// Unreadable marks a tombstone record: the file could not be read or
	// decoded. Tombstones carry RelPath only and are skipped by callers
	// that aggregate documents, but are returned (not dropped) by
	// ReadFile so the fail-open policy is visible to the caller.
	Unreadable bool
}
