// Package noteservice is the single entry point the transports use for
// read-only vault operations: ranked search, base queries and note access.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/starford/basalt/internal/apperr"
	"github.com/starford/basalt/internal/bases"
	"github.com/starford/basalt/internal/checksum"
	"github.com/starford/basalt/internal/parser"
	"github.com/starford/basalt/internal/search"
	"github.com/starford/basalt/internal/uri"
	"github.com/starford/basalt/internal/vault"
)

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	Path        string         `json:"path"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Checksum    string         `json:"checksum"`
	Tags        []string       `json:"tags"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	URI         string         `json:"uri"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Tags      []string  `json:"tags"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListParams narrows a note listing. Zero values list everything.
type ListParams struct {
	Dir    string
	Tag    string
	Limit  int
	Offset int
}

// Service coordinates the vault loader with the search and bases engines.
type Service struct {
	loader   *vault.Loader
	searcher *search.Searcher
	bases    *bases.Service
}

// NewService creates a new note service.
func NewService(loader *vault.Loader, searcher *search.Searcher, basesSvc *bases.Service) *Service {
	return &Service{loader: loader, searcher: searcher, bases: basesSvc}
}

// VaultRoot returns the absolute vault directory.
func (s *Service) VaultRoot() string { return s.loader.Store().Root() }

// Search runs a ranked full-text search.
func (s *Service) Search(ctx context.Context, p search.Params) ([]search.Result, error) {
	return s.searcher.Search(ctx, p)
}

// QueryBase runs a saved base query.
func (s *Service) QueryBase(ctx context.Context, p bases.Params) (*bases.Result, error) {
	return s.bases.Query(ctx, p)
}

// GetNote reads one visible note. Hidden or missing paths are ErrNotFound.
func (s *Service) GetNote(_ context.Context, notePath string) (*NoteDetail, error) {
	notePath, err := s.loader.Resolve(notePath)
	if err != nil {
		return nil, fmt.Errorf("noteservice: get note: %w", err)
	}

	store := s.loader.Store()
	data, err := store.Read(notePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("noteservice: %w: %s", apperr.ErrNotFound, notePath)
		}
		return nil, fmt.Errorf("noteservice: get note: %w", err)
	}
	info, err := store.Stat(notePath)
	if err != nil {
		return nil, fmt.Errorf("noteservice: get note: %w", err)
	}

	res := parser.Parse(data)
	return &NoteDetail{
		Path:        notePath,
		Title:       title(notePath),
		Content:     string(data),
		Checksum:    checksum.Sum(data),
		Tags:        res.Tags,
		Frontmatter: res.Frontmatter,
		URI:         uri.ForNote(store.Root(), notePath),
		CreatedAt:   info.CTime,
		UpdatedAt:   info.MTime,
	}, nil
}

// ListNotes returns visible notes in path order, optionally restricted to a
// directory and a tag, with the total before pagination.
func (s *Service) ListNotes(ctx context.Context, p ListParams) ([]NoteListItem, int, error) {
	if p.Limit < 0 || p.Offset < 0 {
		return nil, 0, fmt.Errorf("noteservice: %w: limit and offset must not be negative", apperr.ErrInvalidArgument)
	}
	notes, err := s.loader.Contexts(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("noteservice: list notes: %w", err)
	}

	dir := strings.Trim(p.Dir, "/")
	tag := strings.TrimPrefix(p.Tag, "#")
	items := make([]NoteListItem, 0, len(notes))
	for _, n := range notes {
		if dir != "" && !strings.HasPrefix(n.FilePath, dir+"/") {
			continue
		}
		if tag != "" && !hasTag(n.Tags, tag) {
			continue
		}
		items = append(items, NoteListItem{
			Path:      n.FilePath,
			Title:     title(n.FilePath),
			Tags:      n.Tags,
			UpdatedAt: n.MTime,
		})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Path < items[j].Path })

	total := len(items)
	if p.Offset >= total {
		return []NoteListItem{}, total, nil
	}
	items = items[p.Offset:]
	if p.Limit > 0 && len(items) > p.Limit {
		items = items[:p.Limit]
	}
	return items, total, nil
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}

func title(p string) string {
	return strings.TrimSuffix(path.Base(p), path.Ext(p))
}
