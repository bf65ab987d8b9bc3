package bases

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/basalt/internal/apperr"
	"github.com/starford/basalt/internal/filter"
	"github.com/starford/basalt/internal/models"
	"github.com/starford/basalt/internal/vault"
)

// Limits applied to query results.
const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// Params describes one base query. Limit 0 defers to the view's limit.
type Params struct {
	Path               string
	View               string
	Limit              int
	IncludeFrontmatter bool
}

// Validate checks the request shape.
func (p Params) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Path, validation.Required),
		validation.Field(&p.Limit, validation.Min(0)),
	)
}

// Note is one matching note.
type Note struct {
	Path        string         `json:"p"`
	Title       string         `json:"t"`
	Frontmatter map[string]any `json:"fm,omitempty"`
}

// Echo reports what the query actually applied.
type Echo struct {
	View    *string `json:"view"`
	Limit   int     `json:"limit"`
	Filters int     `json:"filters"`
}

// Result is the outcome of a base query. Warnings is omitted when empty.
type Result struct {
	Notes    []Note   `json:"notes"`
	Views    []string `json:"views"`
	Query    Echo     `json:"q"`
	Warnings []string `json:"w,omitempty"`
}

// Service runs base queries against the vault.
type Service struct {
	loader    *vault.Loader
	evaluator *filter.Evaluator
	logger    *slog.Logger
}

// New creates a Service. A nil evaluator uses the wall clock.
func New(loader *vault.Loader, evaluator *filter.Evaluator, logger *slog.Logger) *Service {
	if evaluator == nil {
		evaluator = filter.NewEvaluator()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{loader: loader, evaluator: evaluator, logger: logger}
}

// Query loads the base at p.Path, applies its filters and the requested
// view's filters, sort and limit.
func (s *Service) Query(ctx context.Context, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("bases: %w: %w", apperr.ErrInvalidArgument, err)
	}

	rel, err := s.loader.Resolve(p.Path)
	if err != nil {
		return nil, fmt.Errorf("bases: %w", err)
	}
	base, err := Load(s.loader.Store(), rel)
	if err != nil {
		return nil, err
	}
	views := base.ViewNames()

	var view *View
	if p.View != "" {
		v, ok := base.View(p.View)
		if !ok {
			available := strings.Join(views, ", ")
			if available == "" {
				available = "none"
			}
			return nil, fmt.Errorf("bases: %w: view %q not found. Available views: %s",
				apperr.ErrInvalidArgument, p.View, available)
		}
		view = v
	}

	notes, err := s.loader.Contexts(ctx)
	if err != nil {
		return nil, fmt.Errorf("bases: %w", err)
	}

	w := newWarnings()
	notes = s.apply(base.Filters, notes, w)
	applied := filter.CountLeaves(base.Filters)

	if view != nil && view.Filters != nil {
		notes = s.apply(view.Filters, notes, w)
		applied += filter.CountLeaves(view.Filters)
	}
	if view != nil {
		sortNotes(notes, view.Sort)
	}

	limit := effectiveLimit(p.Limit, view)
	if len(notes) > limit {
		notes = notes[:limit]
	}

	res := &Result{
		Notes: make([]Note, len(notes)),
		Views: views,
		Query: Echo{Limit: limit, Filters: applied},
	}
	if view != nil {
		name := view.Name
		res.Query.View = &name
	}
	for i, n := range notes {
		res.Notes[i] = Note{Path: n.FilePath, Title: strings.TrimSuffix(n.FileName, ".md")}
		if p.IncludeFrontmatter {
			res.Notes[i].Frontmatter = n.Frontmatter
		}
	}
	if len(w.list) > 0 {
		res.Warnings = w.list
	}

	s.logger.Debug("bases: query done",
		slog.String("base", p.Path),
		slog.String("view", p.View),
		slog.Int("matched", len(res.Notes)),
		slog.Int("warnings", len(res.Warnings)))
	return res, nil
}

// apply keeps the notes matching group. The slice is filtered in place.
func (s *Service) apply(group *filter.Group, notes []models.NoteContext, w *warnings) []models.NoteContext {
	prog := s.evaluator.Compile(group)
	kept := notes[:0]
	for _, n := range notes {
		r := prog.Evaluate(&n)
		w.add(r.Warnings...)
		if r.Matches {
			kept = append(kept, n)
		}
	}
	return kept
}

// effectiveLimit is min(requested, else view limit, else DefaultLimit; MaxLimit).
func effectiveLimit(requested int, view *View) int {
	limit := DefaultLimit
	switch {
	case requested > 0:
		limit = requested
	case view != nil && view.Limit != nil:
		limit = max(*view.Limit, 0)
	}
	return min(limit, MaxLimit)
}

// warnings deduplicates messages, keeping first-seen order.
type warnings struct {
	seen map[string]struct{}
	list []string
}

func newWarnings() *warnings {
	return &warnings{seen: make(map[string]struct{})}
}

func (w *warnings) add(msgs ...string) {
	for _, m := range msgs {
		if _, dup := w.seen[m]; dup {
			continue
		}
		w.seen[m] = struct{}{}
		w.list = append(w.list, m)
	}
}
