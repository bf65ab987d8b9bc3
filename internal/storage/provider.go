// Package storage defines the read-only vault file-system abstraction.
package storage

import "github.com/starford/basalt/internal/models"

// Provider is the interface for vault file access.
type Provider interface {
	// Root returns the absolute vault directory.
	Root() string
	// Walk returns every regular file under dir (relative to vault root) as
	// forward-slash paths relative to the vault root, in lexical order.
	Walk(dir string) ([]string, error)
	// Read returns the raw bytes of the file at path (relative to vault root).
	Read(path string) ([]byte, error)
	// Stat returns size and timestamps of the file at path (relative to vault root).
	Stat(path string) (models.FileInfo, error)
}
