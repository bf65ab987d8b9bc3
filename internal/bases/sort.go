package bases

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/starford/basalt/internal/models"
)

// sortNotes orders notes in place by specs, each later spec breaking ties of
// the earlier ones. The sort is stable.
func sortNotes(notes []models.NoteContext, specs []SortSpec) {
	if len(specs) == 0 {
		return
	}
	col := collate.New(language.Und)
	sort.SliceStable(notes, func(i, j int) bool {
		for _, s := range specs {
			a, aok := sortValue(&notes[i], s.Property)
			b, bok := sortValue(&notes[j], s.Property)
			// Missing values go last in either direction.
			switch {
			case !aok && !bok:
				continue
			case !aok:
				return false
			case !bok:
				return true
			}
			c := compareValues(col, a, b)
			if c == 0 {
				continue
			}
			if strings.EqualFold(s.Direction, Desc) {
				c = -c
			}
			return c < 0
		}
		return false
	})
}

// sortValue resolves file.* accessors, then property.KEY, then a bare
// frontmatter key. A nil value counts as missing.
func sortValue(n *models.NoteContext, prop string) (any, bool) {
	if field, ok := strings.CutPrefix(prop, "file."); ok {
		switch field {
		case "name":
			return n.FileName, true
		case "path":
			return n.FilePath, true
		case "ctime":
			return n.CTime, true
		case "mtime":
			return n.MTime, true
		}
	}
	if key, ok := strings.CutPrefix(prop, "property."); ok {
		prop = key
	}
	v, ok := n.Frontmatter[prop]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func compareValues(col *collate.Collator, a, b any) int {
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	return col.CompareString(stringify(a), stringify(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// stringify coerces a value for text comparison; lists join with commas.
func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = stringify(e)
		}
		return strings.Join(parts, ",")
	case time.Time:
		return x.Format(time.RFC3339)
	}
	return fmt.Sprint(v)
}
