// Package search ranks vault notes against a free-text query with BM25.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/basalt/internal/apperr"
	"github.com/starford/basalt/internal/parser"
	"github.com/starford/basalt/internal/uri"
	"github.com/starford/basalt/internal/vault"
)

// Limits applied to Params.Limit.
const (
	DefaultLimit = 5
	MaxLimit     = 20
)

// Params describes one search request. Nil flags take their defaults:
// content is searched, frontmatter is not.
type Params struct {
	Query             string
	Limit             int
	SearchContent     *bool
	SearchFrontmatter *bool
	CaseSensitive     bool
}

// Validate checks the request shape.
func (p Params) Validate() error {
	query := strings.TrimSpace(p.Query)
	return validation.ValidateStruct(&p,
		validation.Field(&p.Query, validation.By(func(any) error {
			if query == "" {
				return errors.New("search query cannot be empty")
			}
			return nil
		})),
		validation.Field(&p.Limit, validation.Min(0)),
	)
}

func (p Params) effectiveLimit() int {
	if p.Limit <= 0 {
		return DefaultLimit
	}
	return min(p.Limit, MaxLimit)
}

func flag(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// Result is one ranked note. Keys are abbreviated to keep payloads small.
type Result struct {
	Path       string `json:"p"`
	Title      string `json:"t"`
	Excerpt    string `json:"ex"`
	MatchCount int    `json:"mc"`
	LineNumber int    `json:"ln"`
	URI        string `json:"uri"`
}

// candidate is a matched note awaiting ranking.
type candidate struct {
	result    Result
	termFreq  map[string]int
	docLength int
	score     float64
}

// Searcher runs ranked searches over a vault.
type Searcher struct {
	loader *vault.Loader
	logger *slog.Logger
}

// New creates a Searcher.
func New(loader *vault.Loader, logger *slog.Logger) *Searcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{loader: loader, logger: logger}
}

// Search scans every visible note and returns the best matches, highest
// score first. Ties keep path order. An empty query is an invalid argument;
// no matches is an empty slice.
func (s *Searcher) Search(ctx context.Context, p Params) ([]Result, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("search: %w: %w", apperr.ErrInvalidArgument, err)
	}

	withContent := flag(p.SearchContent, true)
	withFrontmatter := flag(p.SearchFrontmatter, false)
	terms := queryTerms(p.Query, p.CaseSensitive)

	docs, err := s.loader.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	stats := newCorpus(terms)
	root := s.loader.Store().Root()
	var candidates []*candidate

	for _, doc := range docs {
		text := searchableText(doc.Text, withContent, withFrontmatter)
		folded := fold(text, p.CaseSensitive)
		length := stats.add(folded, terms)

		stem := strings.TrimSuffix(path.Base(doc.Path), ".md")
		nameHit := containsAnyTerm(fold(stem, p.CaseSensitive), terms)
		offset, matchLen := firstMatch(folded, terms)
		if offset < 0 && !nameHit {
			continue
		}

		cand := &candidate{
			termFreq:  make(map[string]int, len(terms)),
			docLength: length,
			result: Result{
				Path:  doc.Path,
				Title: stem,
				URI:   uri.ForNote(root, doc.Path),
			},
		}
		for _, t := range terms {
			if n := strings.Count(folded, t); n > 0 {
				cand.termFreq[t] = n
				cand.result.MatchCount += n
			}
		}
		if nameHit {
			cand.result.MatchCount++
		}

		runes := []rune(text)
		if offset >= 0 {
			cand.result.Excerpt = excerptAt(runes, offset, matchLen)
			cand.result.LineNumber = lineAt(runes, offset)
		} else {
			cand.result.Excerpt = excerptAt(runes, 0, excerptRadius)
		}
		candidates = append(candidates, cand)
	}

	for _, c := range candidates {
		c.score = stats.score(c)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	limit := p.effectiveLimit()
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]Result, len(candidates))
	for i, c := range candidates {
		out[i] = c.result
	}

	s.logger.Debug("search: done",
		slog.String("query", p.Query),
		slog.Int("scanned", stats.docCount),
		slog.Int("returned", len(out)))
	return out, nil
}

// queryTerms splits the query on whitespace, adds the whole query (single
// spaced) as an extra term when it has more than one word, and drops duplicates.
func queryTerms(query string, caseSensitive bool) []string {
	words := strings.Fields(fold(query, caseSensitive))
	if len(words) > 1 {
		words = append(words, strings.Join(words, " "))
	}
	seen := make(map[string]struct{}, len(words))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		terms = append(terms, w)
	}
	return terms
}

// searchableText picks the part of a note that the flags ask for.
func searchableText(text string, content, frontmatter bool) string {
	switch {
	case content && frontmatter:
		return text
	case content:
		_, body, _ := parser.SplitFrontmatter(text)
		return body
	case frontmatter:
		block, _, ok := parser.SplitFrontmatter(text)
		if !ok {
			return ""
		}
		return block
	}
	return ""
}

func containsAnyTerm(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
