// Package filter evaluates boolean filter groups of leaf expressions against
// a single note's metadata.
package filter

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/basalt/internal/models"
)

// Group is an AND or OR list of items. When both keys are present only And
// is consulted. A nil or empty group matches everything.
type Group struct {
	And []Item `yaml:"and,omitempty" json:"and,omitempty"`
	Or  []Item `yaml:"or,omitempty" json:"or,omitempty"`
}

// Item is either a leaf expression or a nested group.
type Item struct {
	Expr  string
	Group *Group
}

// UnmarshalYAML accepts a scalar expression or a nested {and|or} mapping.
func (it *Item) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	switch node.Kind {
	case yaml.ScalarNode:
		it.Expr = node.Value
		return nil
	case yaml.MappingNode:
		var g Group
		if err := node.Decode(&g); err != nil {
			return err
		}
		it.Group = &g
		return nil
	}
	return fmt.Errorf("filter: line %d: item must be an expression or an and/or group", node.Line)
}

// MarshalYAML writes the item back in the shape it was read.
func (it Item) MarshalYAML() (any, error) {
	if it.Group != nil {
		return it.Group, nil
	}
	return it.Expr, nil
}

// Result is the outcome of evaluating a group against one note.
type Result struct {
	Matches  bool
	Warnings []string
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithClock overrides the time source used by today() predicates.
func WithClock(c Clock) Option {
	return func(e *Evaluator) {
		if c != nil {
			e.now = c
		}
	}
}

// Evaluator evaluates filter groups. It holds no per-note state.
type Evaluator struct {
	now Clock
}

// NewEvaluator creates an Evaluator using the local wall clock.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate parses and evaluates group against ctx in one step.
func (e *Evaluator) Evaluate(group *Group, ctx *models.NoteContext) Result {
	return e.Compile(group).Evaluate(ctx)
}

// Compile parses every leaf of group once so the result can be evaluated
// against many notes.
func (e *Evaluator) Compile(group *Group) *Program {
	return &Program{root: compileGroup(group), now: e.now}
}

// Program is a compiled filter group.
type Program struct {
	root *node
	now  Clock
}

type node struct {
	// group fields
	and      bool
	children []*node
	// leaf fields
	leaf bool
	raw  string
	expr Expr
	err  error
}

func compileGroup(g *Group) *node {
	if g == nil {
		return nil
	}
	var items []Item
	n := &node{}
	switch {
	case g.And != nil:
		n.and = true
		items = g.And
	case g.Or != nil:
		items = g.Or
	default:
		return nil
	}
	n.children = make([]*node, 0, len(items))
	for _, it := range items {
		if it.Group != nil {
			child := compileGroup(it.Group)
			if child == nil {
				child = &node{and: true}
			}
			n.children = append(n.children, child)
			continue
		}
		raw := strings.TrimSpace(it.Expr)
		expr, err := Parse(raw)
		n.children = append(n.children, &node{leaf: true, raw: raw, expr: expr, err: err})
	}
	return n
}

// Evaluate runs the program against one note. Unsupported leaves evaluate to
// true and add a warning.
func (p *Program) Evaluate(ctx *models.NoteContext) Result {
	res := Result{Matches: true, Warnings: []string{}}
	if p == nil || p.root == nil {
		return res
	}
	now := p.now()
	res.Matches = p.eval(p.root, ctx, now, &res.Warnings)
	return res
}

func (p *Program) eval(n *node, ctx *models.NoteContext, now time.Time, warnings *[]string) bool {
	if n.leaf {
		if n.err != nil {
			*warnings = append(*warnings, "Unsupported filter: "+n.raw)
			return true
		}
		return match(n.expr, ctx, now)
	}
	if n.and {
		for _, c := range n.children {
			if !p.eval(c, ctx, now, warnings) {
				return false
			}
		}
		return true
	}
	for _, c := range n.children {
		if p.eval(c, ctx, now, warnings) {
			return true
		}
	}
	return false
}

// CountLeaves returns the number of leaf expressions in group, following the
// same and-before-or rule as evaluation.
func CountLeaves(group *Group) int {
	if group == nil {
		return 0
	}
	items := group.And
	if items == nil {
		items = group.Or
	}
	count := 0
	for _, it := range items {
		if it.Group != nil {
			count += CountLeaves(it.Group)
		} else {
			count++
		}
	}
	return count
}
