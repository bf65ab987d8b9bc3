package bases

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/basalt/internal/apperr"
	"github.com/starford/basalt/internal/filter"
	"github.com/starford/basalt/internal/pathfilter"
	"github.com/starford/basalt/internal/testutil"
	"github.com/starford/basalt/internal/vault"
)

const booksBase = `
filters:
  and:
    - file.hasTag("book")
views:
  - name: All
    type: table
  - name: Active
    type: cards
    filters:
      or:
        - status == "active"
        - status == "pending"
    sort:
      - property: file.mtime
        direction: DESC
    limit: 2
    order: [file.name, status]
  - name: ByRating
    sort:
      - property: rating
        direction: DESC
      - property: file.name
        direction: ASC
  - name: Broken
    filters:
      and:
        - author.contains(link("A","B"))
        - status.matches("x")
        - author.contains(link("A","B"))
`

var (
	day1 = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	day2 = time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC)
	day3 = time.Date(2025, 1, 3, 12, 0, 0, 0, time.UTC)
)

func newService(t *testing.T) (*Service, string) {
	t.Helper()
	dir, store := testutil.TestVault(t)
	testutil.WriteFile(t, dir, "Books.base", booksBase)
	testutil.WriteFileAt(t, dir, "books/old.md", "---\ntags: [book]\nstatus: active\nrating: 3\n---\nold\n", day1)
	testutil.WriteFileAt(t, dir, "books/new.md", "---\ntags: [book]\nstatus: pending\nrating: 5\n---\nnew\n", day3)
	testutil.WriteFileAt(t, dir, "books/mid.md", "---\nstatus: active\n---\nmid #book\n", day2)
	testutil.WriteFileAt(t, dir, "books/done.md", "---\ntags: book\nstatus: done\nrating: 4.5\n---\n", day2)
	testutil.WriteFile(t, dir, "notes/other.md", "---\nstatus: active\n---\nnot a book\n")
	testutil.WriteFile(t, dir, ".obsidian/hidden.md", "---\ntags: [book]\n---\n")

	loader := vault.NewLoader(store, pathfilter.New(pathfilter.Config{}))
	clock := filter.WithClock(func() time.Time { return time.Date(2025, 1, 10, 0, 0, 0, 0, time.Local) })
	return New(loader, filter.NewEvaluator(clock), nil), dir
}

func notePaths(res *Result) []string {
	out := make([]string, len(res.Notes))
	for i, n := range res.Notes {
		out[i] = n.Path
	}
	return out
}

func TestQuery_BaseFiltersOnly(t *testing.T) {
	s, _ := newService(t)
	res, err := s.Query(context.Background(), Params{Path: "Books.base"})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"books/done.md", "books/mid.md", "books/new.md", "books/old.md"}, notePaths(res))
	assert.Equal(t, []string{"All", "Active", "ByRating", "Broken"}, res.Views)
	assert.Nil(t, res.Query.View)
	assert.Equal(t, DefaultLimit, res.Query.Limit)
	assert.Equal(t, 1, res.Query.Filters)
	assert.Nil(t, res.Warnings)
	for _, n := range res.Notes {
		assert.Nil(t, n.Frontmatter)
	}
}

func TestQuery_ViewFiltersSortAndLimit(t *testing.T) {
	s, _ := newService(t)
	res, err := s.Query(context.Background(), Params{Path: "Books.base", View: "Active"})
	require.NoError(t, err)

	// new (day3), then mid (day2); old (day1) is cut by the view limit.
	assert.Equal(t, []string{"books/new.md", "books/mid.md"}, notePaths(res))
	assert.Equal(t, "new", res.Notes[0].Title)
	require.NotNil(t, res.Query.View)
	assert.Equal(t, "Active", *res.Query.View)
	assert.Equal(t, 2, res.Query.Limit)
	assert.Equal(t, 3, res.Query.Filters)
	assert.Len(t, res.Views, 4, "all views are listed regardless of selection")
}

func TestQuery_MtimeDescending(t *testing.T) {
	s, _ := newService(t)
	res, err := s.Query(context.Background(), Params{Path: "Books.base", View: "Active", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"books/new.md", "books/mid.md", "books/old.md"}, notePaths(res))
}

func TestQuery_MissingValuesSortLast(t *testing.T) {
	s, _ := newService(t)
	res, err := s.Query(context.Background(), Params{Path: "Books.base", View: "ByRating"})
	require.NoError(t, err)
	// rating 5, 4.5, 3, then mid.md which has no rating.
	assert.Equal(t, []string{"books/new.md", "books/done.md", "books/old.md", "books/mid.md"}, notePaths(res))
}

func TestQuery_IncludeFrontmatter(t *testing.T) {
	s, _ := newService(t)
	res, err := s.Query(context.Background(), Params{Path: "/Books.base", View: "Active", IncludeFrontmatter: true})
	require.NoError(t, err)
	require.NotEmpty(t, res.Notes)
	assert.Equal(t, "pending", res.Notes[0].Frontmatter["status"])
}

func TestQuery_WarningsDeduplicated(t *testing.T) {
	s, _ := newService(t)
	res, err := s.Query(context.Background(), Params{Path: "Books.base", View: "Broken"})
	require.NoError(t, err)
	assert.Len(t, res.Notes, 4, "unsupported leaves are vacuously true")
	assert.Equal(t, []string{
		`Unsupported filter: author.contains(link("A","B"))`,
		`Unsupported filter: status.matches("x")`,
	}, res.Warnings)
	assert.Equal(t, 4, res.Query.Filters)
}

func TestQuery_LimitClamp(t *testing.T) {
	dir, store := testutil.TestVault(t)
	testutil.WriteFile(t, dir, "big.base", "views:\n  - name: Huge\n    limit: 500\n")
	for i := 0; i < 120; i++ {
		testutil.WriteFile(t, dir, fmt.Sprintf("n/%03d.md", i), "x")
	}
	s := New(vault.NewLoader(store, pathfilter.New(pathfilter.Config{})), nil, nil)
	ctx := context.Background()

	res, err := s.Query(ctx, Params{Path: "big.base", View: "Huge"})
	require.NoError(t, err)
	assert.Len(t, res.Notes, MaxLimit)
	assert.Equal(t, MaxLimit, res.Query.Limit)

	res, err = s.Query(ctx, Params{Path: "big.base", Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, res.Notes, MaxLimit)

	res, err = s.Query(ctx, Params{Path: "big.base"})
	require.NoError(t, err)
	assert.Len(t, res.Notes, DefaultLimit)
	assert.Equal(t, "n/000.md", res.Notes[0].Path)
}

func TestQuery_UnknownView(t *testing.T) {
	s, _ := newService(t)
	_, err := s.Query(context.Background(), Params{Path: "Books.base", View: "Nope"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
	assert.Contains(t, err.Error(), `view "Nope" not found. Available views: All, Active, ByRating, Broken`)
}

func TestQuery_UnknownViewNoViews(t *testing.T) {
	dir, store := testutil.TestVault(t)
	testutil.WriteFile(t, dir, "empty.base", "")
	s := New(vault.NewLoader(store, pathfilter.New(pathfilter.Config{})), nil, nil)

	_, err := s.Query(context.Background(), Params{Path: "empty.base", View: "X"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Available views: none")

	res, err := s.Query(context.Background(), Params{Path: "empty.base"})
	require.NoError(t, err)
	assert.Equal(t, []string{}, res.Views)
	assert.Empty(t, res.Notes)
}

func TestQuery_Errors(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		params Params
		want   error
	}{
		{"empty path", Params{}, apperr.ErrInvalidArgument},
		{"negative limit", Params{Path: "Books.base", Limit: -1}, apperr.ErrInvalidArgument},
		{"not a base", Params{Path: "books/old.md"}, apperr.ErrInvalidArgument},
		{"traversal", Params{Path: "../outside.base"}, apperr.ErrInvalidArgument},
		{"missing", Params{Path: "Missing.base"}, apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Query(ctx, tt.params)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestQuery_HiddenBaseIsNotFound(t *testing.T) {
	dir, store := testutil.TestVault(t)
	testutil.WriteFile(t, dir, ".obsidian/secret.base", "views:\n  - name: All\n")
	testutil.WriteFile(t, dir, "private/p.base", "views:\n  - name: All\n")
	testutil.WriteFile(t, dir, "Open.base", "views:\n  - name: All\n")
	s := New(vault.NewLoader(store, pathfilter.New(pathfilter.Config{IgnoredPatterns: []string{"private/**"}})), nil, nil)
	ctx := context.Background()

	for _, p := range []string{
		".obsidian/secret.base",
		"notes/../.obsidian/secret.base",
		"/private/p.base",
		"x/../private/p.base",
	} {
		_, err := s.Query(ctx, Params{Path: p})
		assert.ErrorIs(t, err, apperr.ErrNotFound, p)
	}

	res, err := s.Query(ctx, Params{Path: "sub/../Open.base", View: "All"})
	require.NoError(t, err)
	assert.Equal(t, []string{"All"}, res.Views)
}

func TestQuery_InvalidYAML(t *testing.T) {
	dir, store := testutil.TestVault(t)
	testutil.WriteFile(t, dir, "bad.base", "views: [unclosed\n")
	s := New(vault.NewLoader(store, pathfilter.New(pathfilter.Config{})), nil, nil)
	_, err := s.Query(context.Background(), Params{Path: "bad.base"})
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestResult_JSONShape(t *testing.T) {
	s, _ := newService(t)
	res, err := s.Query(context.Background(), Params{Path: "Books.base", View: "Active"})
	require.NoError(t, err)

	data, err := json.Marshal(res)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Contains(t, raw, "notes")
	assert.Contains(t, raw, "views")
	assert.NotContains(t, raw, "w")
	q := raw["q"].(map[string]any)
	assert.Equal(t, "Active", q["view"])
	assert.EqualValues(t, 2, q["limit"])
	assert.EqualValues(t, 3, q["filters"])

	res, err = s.Query(context.Background(), Params{Path: "Books.base"})
	require.NoError(t, err)
	data, err = json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"view":null`)
}
