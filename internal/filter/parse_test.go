package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_LeafForms(t *testing.T) {
	tests := []struct {
		expr string
		want Expr
	}{
		{`file.hasTag("llms")`, HasTag{Tag: "llms"}},
		{`file.hasTag('#llms')`, HasTag{Tag: "#llms"}},
		{`tags.contains("ai/")`, TagsContains{Substring: "ai/"}},
		{`file.tags.contains("ai/")`, TagsContains{Substring: "ai/"}},
		{`file.path.startsWith("Notes/")`, PathStartsWith{Prefix: "Notes/"}},
		{`source.startsWith("https://")`, StartsWith{Property: "source", Prefix: "https://"}},
		{`author.contains("Doe")`, Contains{Property: "author", Substring: "Doe"}},
		{`title.contains("it's")`, Contains{Property: "title", Substring: "it's"}},
		{`tags.containsAny("a", 'b',"c")`, ContainsAny{Property: "tags", Substrings: []string{"a", "b", "c"}}},
		{`summary.isEmpty()`, IsEmpty{Property: "summary"}},
		{`file.mtime > today() - "7d"`, DateCompare{File: true, Property: "mtime", Op: ">", Days: 7}},
		{`file.ctime<=today()-'30d'`, DateCompare{File: true, Property: "ctime", Op: "<=", Days: 30}},
		{`due >= today() - "0d"`, DateCompare{Property: "due", Op: ">=", Days: 0}},
		{`type == "Book"`, Equals{Property: "type", Value: "Book"}},
		{`type == Book`, Equals{Property: "type", Value: "Book"}},
		{`rating == 5`, Equals{Property: "rating", Value: "5"}},
		{`file.name == 'x.md'`, Equals{Property: "file.name", Value: "x.md"}},
		{`status != "done"`, Equals{Property: "status", Value: "done", Negate: true}},
		{`  status=="active"  `, Equals{Property: "status", Value: "active"}},
		{`title == Hello, World!`, Equals{Property: "title", Value: "Hello, World!"}},
		{`status == "active`, Equals{Property: "status", Value: "active"}},
		{`status == active"`, Equals{Property: "status", Value: "active"}},
		{`kind == "note'`, Equals{Property: "kind", Value: "note"}},
		{`mark == "`, Equals{Property: "mark", Value: `"`}},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Parse(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Unsupported(t *testing.T) {
	for _, expr := range []string{
		``,
		`author.contains(link("A","B"))`,
		`file.contains("x")`,
		`file.isEmpty()`,
		`file.startsWith("x")`,
		`a.b.contains("x")`,
		`rating > 3`,
		`file.hasTag("")`,
		`file.hasTag("a", "b")`,
		`tags.containsAny()`,
		`summary.isEmpty("x")`,
		`status.matches("x")`,
		`status ==`,
		`a.b.c == "x"`,
		`file.hasTag("x") extra`,
		`file.hasTag("unterminated)`,
		`!status`,
		`due > today() - "7w"`,
	} {
		t.Run(expr, func(t *testing.T) {
			_, err := Parse(expr)
			assert.ErrorIs(t, err, ErrUnsupported)
		})
	}
}

func TestParse_SpecificRulesWinOverEquality(t *testing.T) {
	// A value that looks like a method call must not turn an equality into a call.
	got, err := Parse(`status == "x.contains(y)"`)
	require.NoError(t, err)
	assert.Equal(t, Equals{Property: "status", Value: "x.contains(y)"}, got)

	// Date comparisons win over equality for the same operator.
	got, err = Parse(`file.mtime == today() - "1d"`)
	require.NoError(t, err)
	assert.IsType(t, DateCompare{}, got)
}

func TestParseRelativeDays(t *testing.T) {
	n, ok := parseRelativeDays(`today() - "14d"`)
	assert.True(t, ok)
	assert.Equal(t, 14, n)

	for _, s := range []string{`today()`, `today() + "1d"`, `now() - "1d"`, `today() - "d"`, `today() - "1.5d"`} {
		_, ok := parseRelativeDays(s)
		assert.False(t, ok, s)
	}
}
