package filter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/starford/basalt/internal/models"
)

// Clock returns the current time. Date predicates are relative to it.
type Clock func() time.Time

// match evaluates a parsed leaf against a note.
func match(e Expr, ctx *models.NoteContext, now time.Time) bool {
	switch n := e.(type) {
	case HasTag:
		want := strings.TrimPrefix(n.Tag, "#")
		for _, t := range ctx.Tags {
			if t == want || t == "#"+want {
				return true
			}
		}
		return false

	case TagsContains:
		sub := strings.TrimPrefix(n.Substring, "#")
		for _, t := range ctx.Tags {
			if strings.Contains(strings.TrimPrefix(t, "#"), sub) {
				return true
			}
		}
		return false

	case PathStartsWith:
		return strings.HasPrefix(ctx.FilePath, n.Prefix)

	case StartsWith:
		s, ok := ctx.Frontmatter[n.Property].(string)
		return ok && strings.HasPrefix(s, n.Prefix)

	case Contains:
		return containsAny(lookup(ctx, n.Property), []string{n.Substring})

	case ContainsAny:
		return containsAny(lookup(ctx, n.Property), n.Substrings)

	case IsEmpty:
		return isEmpty(lookup(ctx, n.Property))

	case DateCompare:
		threshold := daysAgo(now, n.Days)
		if n.File {
			t := ctx.MTime
			if n.Property == "ctime" {
				t = ctx.CTime
			}
			return compareMillis(t.UnixMilli(), n.Op, threshold.UnixMilli())
		}
		t, ok := asDate(ctx.Frontmatter[n.Property], now.Location())
		if !ok {
			return false
		}
		return compareMillis(t.UnixMilli(), n.Op, threshold.UnixMilli())

	case Equals:
		eq := equals(lookup(ctx, n.Property), n.Value)
		if n.Negate {
			return !eq
		}
		return eq
	}
	return true
}

// lookup resolves file.* accessors first and falls back to a frontmatter key.
func lookup(ctx *models.NoteContext, prop string) any {
	if field, ok := strings.CutPrefix(prop, "file."); ok {
		switch field {
		case "name":
			return ctx.FileName
		case "path":
			return ctx.FilePath
		case "ctime":
			return ctx.CTime
		case "mtime":
			return ctx.MTime
		case "tags":
			return ctx.Tags
		}
	}
	v, ok := ctx.Frontmatter[prop]
	if !ok {
		return nil
	}
	return v
}

func containsAny(val any, subs []string) bool {
	hit := func(s string) bool {
		for _, sub := range subs {
			if strings.Contains(s, sub) {
				return true
			}
		}
		return false
	}
	switch v := val.(type) {
	case string:
		return hit(v)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && hit(s) {
				return true
			}
		}
	case []string:
		for _, s := range v {
			if hit(s) {
				return true
			}
		}
	}
	return false
}

func isEmpty(val any) bool {
	switch v := val.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	}
	return false
}

func equals(val any, want string) bool {
	switch v := val.(type) {
	case nil:
		return false
	case string:
		return v == want
	case bool:
		return v == (want == "true")
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == want {
				return true
			}
		}
		return false
	case []string:
		for _, s := range v {
			if s == want {
				return true
			}
		}
		return false
	case time.Time:
		return v.Format(time.RFC3339) == want || v.Format(time.DateOnly) == want
	}
	if f, ok := toFloat(val); ok {
		w, err := strconv.ParseFloat(strings.TrimSpace(want), 64)
		return err == nil && f == w
	}
	return fmt.Sprint(val) == want
}

func toFloat(val any) (float64, bool) {
	switch n := val.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}

// asDate interprets a frontmatter value as a point in time. Only strings and
// YAML timestamps qualify; blank or unparseable strings do not.
func asDate(val any, loc *time.Location) (time.Time, bool) {
	switch v := val.(type) {
	case time.Time:
		return v, true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, false
		}
		t, err := dateparse.ParseIn(s, loc)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}

// daysAgo returns local midnight n days before now.
func daysAgo(now time.Time, n int) time.Time {
	d := now.AddDate(0, 0, -n)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
}

func compareMillis(a int64, op string, b int64) bool {
	switch op {
	case ">":
		return a > b
	case "<":
		return a < b
	case ">=":
		return a >= b
	case "<=":
		return a <= b
	case "==":
		return a == b
	case "!=":
		return a != b
	}
	return false
}
