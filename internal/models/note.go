// Package models defines the domain types for Basalt.
package models

import "time"

// NoteContext is the per-note view that filters and sorts operate on.
// It is built fresh for every query and never mutated afterwards.
type NoteContext struct {
	FilePath    string         `json:"path"` // vault-relative, forward slashes
	FileName    string         `json:"name"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Content     string         `json:"-"`
	CTime       time.Time      `json:"ctime"`
	MTime       time.Time      `json:"mtime"`
	Tags        []string       `json:"tags,omitempty"` // deduplicated, no leading '#'
}

// FileInfo is the filesystem metadata the storage layer reports for a file.
type FileInfo struct {
	Path  string    `json:"path"`
	Size  int64     `json:"size"`
	CTime time.Time `json:"ctime"`
	MTime time.Time `json:"mtime"`
}
