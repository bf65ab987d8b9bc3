// Package vault materialises note contents and metadata from the vault for
// a single request. Nothing is cached between calls.
package vault

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/starford/basalt/internal/apperr"
	"github.com/starford/basalt/internal/models"
	"github.com/starford/basalt/internal/parser"
	"github.com/starford/basalt/internal/pathfilter"
	"github.com/starford/basalt/internal/storage"
)

// DefaultConcurrency bounds parallel file reads during a scan.
const DefaultConcurrency = 8

// Document is a raw note as read from disk.
type Document struct {
	Path string
	Text string
}

// Loader scans the vault through a storage provider and access filter.
type Loader struct {
	store       storage.Provider
	filter      *pathfilter.Filter
	logger      *slog.Logger
	concurrency int
}

// Option configures a Loader.
type Option func(*Loader)

// WithConcurrency sets the maximum number of files read at once.
func WithConcurrency(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// WithLogger sets the logger used for skipped files.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader creates a Loader.
func NewLoader(store storage.Provider, filter *pathfilter.Filter, opts ...Option) *Loader {
	l := &Loader{
		store:       store,
		filter:      filter,
		logger:      slog.Default(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Store returns the underlying storage provider.
func (l *Loader) Store() storage.Provider { return l.store }

// Filter returns the access filter applied to every scan.
func (l *Loader) Filter() *pathfilter.Filter { return l.filter }

// Resolve cleans a vault-relative path and checks it against the access
// filter. Paths leaving the vault are invalid; hidden paths do not exist.
func (l *Loader) Resolve(rel string) (string, error) {
	p := strings.TrimPrefix(strings.ReplaceAll(rel, `\`, "/"), "/")
	if p == "" {
		return "", fmt.Errorf("vault: %w: path is required", apperr.ErrInvalidArgument)
	}
	p = path.Clean(p)
	if p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return "", fmt.Errorf("vault: %w: path escapes the vault: %s", apperr.ErrInvalidArgument, rel)
	}
	if !l.filter.IsAllowed(p) {
		return "", fmt.Errorf("vault: %w: %s", apperr.ErrNotFound, p)
	}
	return p, nil
}

// NotePaths returns every visible Markdown note in lexical path order.
func (l *Loader) NotePaths() ([]string, error) {
	all, err := l.store.Walk("")
	if err != nil {
		return nil, fmt.Errorf("vault: list notes: %w", err)
	}
	out := make([]string, 0, len(all))
	for _, p := range l.filter.FilterPaths(all) {
		if strings.HasSuffix(p, ".md") {
			out = append(out, p)
		}
	}
	return out, nil
}

// Documents reads every visible note. Unreadable files are skipped.
func (l *Loader) Documents(ctx context.Context) ([]Document, error) {
	paths, err := l.NotePaths()
	if err != nil {
		return nil, err
	}
	return loadAll(ctx, l, paths, func(p string) (Document, error) {
		data, err := l.store.Read(p)
		if err != nil {
			return Document{}, err
		}
		return Document{Path: p, Text: string(data)}, nil
	})
}

// Contexts builds a NoteContext for every visible note. Unreadable files are skipped.
func (l *Loader) Contexts(ctx context.Context) ([]models.NoteContext, error) {
	paths, err := l.NotePaths()
	if err != nil {
		return nil, err
	}
	return loadAll(ctx, l, paths, l.context)
}

func (l *Loader) context(p string) (models.NoteContext, error) {
	data, err := l.store.Read(p)
	if err != nil {
		return models.NoteContext{}, err
	}
	info, err := l.store.Stat(p)
	if err != nil {
		return models.NoteContext{}, err
	}
	res := parser.Parse(data)
	return models.NoteContext{
		FilePath:    p,
		FileName:    path.Base(p),
		Frontmatter: res.Frontmatter,
		Content:     res.Body,
		CTime:       info.CTime,
		MTime:       info.MTime,
		Tags:        res.Tags,
	}, nil
}

// loadAll runs fn over paths with bounded parallelism. Results keep the
// order of paths regardless of completion order; failed entries are dropped.
func loadAll[T any](ctx context.Context, l *Loader, paths []string, fn func(string) (T, error)) ([]T, error) {
	results := make([]T, len(paths))
	ok := make([]bool, len(paths))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, p := range paths {
		if gCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gCtx.Err() != nil {
				return gCtx.Err()
			}
			v, err := fn(p)
			if err != nil {
				l.logger.Debug("vault: skipped unreadable file",
					slog.String("path", p),
					slog.String("error", err.Error()))
				return nil
			}
			results[i] = v
			ok[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("vault: scan: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("vault: scan: %w", err)
	}

	out := make([]T, 0, len(paths))
	for i := range results {
		if ok[i] {
			out = append(out, results[i])
		}
	}
	return out, nil
}
