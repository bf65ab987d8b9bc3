// Package pathfilter decides which vault paths are visible to the rest of the system.
package pathfilter

import (
	"regexp"
	"strings"
)

// DefaultIgnoredPatterns are always applied in addition to user patterns.
var DefaultIgnoredPatterns = []string{
	".obsidian/**",
	".git/**",
	"node_modules/**",
	".DS_Store",
	"Thumbs.db",
}

// DefaultAllowedExtensions are always allowed in addition to user extensions.
var DefaultAllowedExtensions = []string{".md", ".markdown", ".txt", ".base"}

// Config holds user-supplied patterns and extensions. Both lists are additive.
type Config struct {
	IgnoredPatterns   []string `yaml:"ignored_patterns"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
}

// Filter is an immutable path visibility check. It is safe for concurrent use.
type Filter struct {
	ignored    []*regexp.Regexp
	extensions []string
}

// New compiles the ignore patterns and normalises the extension list.
func New(cfg Config) *Filter {
	patterns := make([]string, 0, len(DefaultIgnoredPatterns)+len(cfg.IgnoredPatterns))
	patterns = append(patterns, DefaultIgnoredPatterns...)
	patterns = append(patterns, cfg.IgnoredPatterns...)

	f := &Filter{ignored: make([]*regexp.Regexp, 0, len(patterns))}
	for _, p := range patterns {
		f.ignored = append(f.ignored, compileGlob(p))
	}

	exts := append(append([]string{}, DefaultAllowedExtensions...), cfg.AllowedExtensions...)
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		f.extensions = append(f.extensions, ext)
	}
	return f
}

// IsAllowed reports whether path may be exposed.
func (f *Filter) IsAllowed(path string) bool {
	normalized := strings.ReplaceAll(path, `\`, "/")

	for _, re := range f.ignored {
		if re.MatchString(normalized) {
			return false
		}
	}

	if len(f.extensions) > 0 && isFile(normalized) {
		lower := strings.ToLower(normalized)
		for _, ext := range f.extensions {
			if strings.HasSuffix(lower, ext) {
				return true
			}
		}
		return false
	}
	return true
}

// FilterPaths returns the allowed subset of paths in input order.
func (f *Filter) FilterPaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if f.IsAllowed(p) {
			out = append(out, p)
		}
	}
	return out
}

// compileGlob turns a glob into an anchored regexp. Only '*', '**' and '?'
// are special; every other character is matched literally.
func compileGlob(pattern string) *regexp.Regexp {
	pattern = strings.ReplaceAll(pattern, `\`, "/")

	var sb strings.Builder
	sb.WriteString("^")
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		switch r := runes[i]; r {
		case '*':
			if i+1 < len(runes) && runes[i+1] == '*' {
				sb.WriteString(".*")
				i++
			} else {
				sb.WriteString("[^/]*")
			}
		case '?':
			sb.WriteString("[^/]")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	return regexp.MustCompile(sb.String())
}

// isFile treats a path as a file when its last segment ends in a short
// alphanumeric extension. "1. Project" and ".gitignore" are not files.
func isFile(path string) bool {
	if path == "" || strings.HasSuffix(path, "/") {
		return false
	}
	last := path[strings.LastIndex(path, "/")+1:]
	dot := strings.LastIndex(last, ".")
	if dot <= 0 {
		return false
	}
	ext := last[dot+1:]
	if len(ext) < 1 || len(ext) > 10 {
		return false
	}
	for _, c := range ext {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
