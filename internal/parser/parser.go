// Package parser extracts frontmatter and tags from Markdown content.
package parser

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// tagRe is deliberately permissive: any '#' followed by tag characters counts,
// so URL fragments in the body are picked up as tags too.
var tagRe = regexp.MustCompile(`#[a-zA-Z0-9_\-/]+`)

const delim = "---"

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter map[string]any
	Body        string
	Tags        []string
}

// Parse splits frontmatter from body and collects tags. Invalid YAML is not
// an error: the whole input becomes the body and the frontmatter is empty.
func Parse(data []byte) *Result {
	fm, body := parseFrontmatter(string(data))
	return &Result{
		Frontmatter: fm,
		Body:        body,
		Tags:        ExtractTags(fm, body),
	}
}

// SplitFrontmatter separates the raw YAML block (between leading --- fences)
// from the Markdown body. ok is false when the text has no frontmatter.
func SplitFrontmatter(text string) (block, body string, ok bool) {
	trimmed := strings.TrimLeft(text, "\n\r")
	if !strings.HasPrefix(trimmed, delim) {
		return "", text, false
	}

	rest := trimmed[len(delim):]
	if !strings.HasPrefix(rest, "\n") && !strings.HasPrefix(rest, "\r\n") {
		return "", text, false
	}
	idx := strings.Index(rest, "\n"+delim)
	if idx < 0 {
		return "", text, false
	}

	block = strings.TrimLeft(rest[:idx], "\r\n")
	after := rest[idx+1+len(delim):]
	// The closing fence must end its line.
	if after != "" && after[0] != '\n' && after[0] != '\r' {
		return "", text, false
	}
	return block, strings.TrimLeft(after, "\n\r"), true
}

func parseFrontmatter(text string) (map[string]any, string) {
	block, body, ok := SplitFrontmatter(text)
	if !ok {
		return map[string]any{}, text
	}

	var fm map[string]any
	if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
		return map[string]any{}, text
	}
	if fm == nil {
		fm = map[string]any{}
	}
	return fm, body
}

// ExtractTags merges frontmatter "tags" (string or list) with inline #tags
// from body, strips the leading '#', and deduplicates in first-seen order.
func ExtractTags(fm map[string]any, body string) []string {
	seen := make(map[string]struct{})
	out := []string{}

	add := func(tag string) {
		tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
		if tag == "" {
			return
		}
		if _, dup := seen[tag]; dup {
			return
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}

	switch v := fm["tags"].(type) {
	case string:
		add(v)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	case []string:
		for _, s := range v {
			add(s)
		}
	}

	for _, m := range tagRe.FindAllString(body, -1) {
		add(m)
	}
	return out
}
