package filter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnsupported is returned by Parse for expressions outside the grammar.
var ErrUnsupported = errors.New("unsupported filter")

// Comparison operators accepted in date and equality leaves, longest first.
var operators = []string{">=", "<=", "==", "!=", ">", "<"}

// Parse turns a single leaf expression into its AST node.
//
// Grammar (whitespace is allowed around operators and inside argument lists):
//
//	leaf      = path "(" args ")" | path op rhs
//	path      = ident { "." ident }
//	rhs       = "today()" "-" string | value
//	string    = '"' chars '"' | "'" chars "'"
func Parse(expr string) (Expr, error) {
	p := &parser{src: strings.TrimSpace(expr)}
	e, err := p.leaf()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, err.Error())
	}
	return e, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) skipSpace() {
	for !p.eof() && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) expect(c byte) error {
	if p.peek() != c {
		return fmt.Errorf("expected %q at offset %d", c, p.pos)
	}
	p.pos++
	return nil
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func (p *parser) ident() (string, error) {
	start := p.pos
	for !p.eof() && isIdentByte(p.src[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return "", fmt.Errorf("expected identifier at offset %d", start)
	}
	return p.src[start:p.pos], nil
}

// path reads dot-separated identifiers with no surrounding whitespace.
func (p *parser) path() ([]string, error) {
	first, err := p.ident()
	if err != nil {
		return nil, err
	}
	parts := []string{first}
	for p.peek() == '.' {
		p.pos++
		next, err := p.ident()
		if err != nil {
			return nil, err
		}
		parts = append(parts, next)
	}
	return parts, nil
}

// str reads a quoted literal. Either quote style works; there are no escapes.
func (p *parser) str() (string, error) {
	q := p.peek()
	if q != '"' && q != '\'' {
		return "", fmt.Errorf("expected string at offset %d", p.pos)
	}
	end := strings.IndexByte(p.src[p.pos+1:], q)
	if end < 0 {
		return "", fmt.Errorf("unterminated string at offset %d", p.pos)
	}
	s := p.src[p.pos+1 : p.pos+1+end]
	p.pos += end + 2
	return s, nil
}

func (p *parser) nonEmptyStr() (string, error) {
	s, err := p.str()
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", errors.New("empty string argument")
	}
	return s, nil
}

func (p *parser) leaf() (Expr, error) {
	parts, err := p.path()
	if err != nil {
		return nil, err
	}
	if p.peek() == '(' {
		return p.call(parts)
	}
	return p.comparison(parts)
}

// args parses "(" [string {"," string}] ")" and requires end of input after it.
func (p *parser) args() ([]string, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	var out []string
	p.skipSpace()
	if p.peek() != ')' {
		for {
			s, err := p.nonEmptyStr()
			if err != nil {
				return nil, err
			}
			out = append(out, s)
			p.skipSpace()
			if p.peek() != ',' {
				break
			}
			p.pos++
			p.skipSpace()
		}
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	if !p.eof() {
		return nil, fmt.Errorf("unexpected trailing input at offset %d", p.pos)
	}
	return out, nil
}

func (p *parser) call(parts []string) (Expr, error) {
	method := parts[len(parts)-1]
	receiver := strings.Join(parts[:len(parts)-1], ".")

	args, err := p.args()
	if err != nil {
		return nil, err
	}

	one := func() (string, error) {
		if len(args) != 1 {
			return "", fmt.Errorf("%s expects exactly one argument", method)
		}
		return args[0], nil
	}

	switch {
	case receiver == "file" && method == "hasTag":
		tag, err := one()
		if err != nil {
			return nil, err
		}
		return HasTag{Tag: tag}, nil

	case (receiver == "tags" || receiver == "file.tags") && method == "contains":
		sub, err := one()
		if err != nil {
			return nil, err
		}
		return TagsContains{Substring: sub}, nil

	case receiver == "file.path" && method == "startsWith":
		prefix, err := one()
		if err != nil {
			return nil, err
		}
		return PathStartsWith{Prefix: prefix}, nil
	}

	// Generic property methods take a single bare frontmatter key.
	if len(parts) != 2 {
		return nil, fmt.Errorf("unsupported receiver %q", receiver)
	}
	if receiver == "file" {
		return nil, fmt.Errorf("file.%s is not a supported accessor", method)
	}

	switch method {
	case "startsWith":
		prefix, err := one()
		if err != nil {
			return nil, err
		}
		return StartsWith{Property: receiver, Prefix: prefix}, nil
	case "contains":
		sub, err := one()
		if err != nil {
			return nil, err
		}
		return Contains{Property: receiver, Substring: sub}, nil
	case "containsAny":
		if len(args) == 0 {
			return nil, errors.New("containsAny expects at least one argument")
		}
		return ContainsAny{Property: receiver, Substrings: args}, nil
	case "isEmpty":
		if len(args) != 0 {
			return nil, errors.New("isEmpty takes no arguments")
		}
		return IsEmpty{Property: receiver}, nil
	}
	return nil, fmt.Errorf("unsupported method %q", method)
}

func (p *parser) operator() (string, error) {
	for _, op := range operators {
		if strings.HasPrefix(p.src[p.pos:], op) {
			p.pos += len(op)
			return op, nil
		}
	}
	return "", fmt.Errorf("expected operator at offset %d", p.pos)
}

func (p *parser) comparison(parts []string) (Expr, error) {
	p.skipSpace()
	op, err := p.operator()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	rest := p.src[p.pos:]
	prop := strings.Join(parts, ".")

	if days, ok := parseRelativeDays(rest); ok {
		if len(parts) == 2 && parts[0] == "file" && (parts[1] == "ctime" || parts[1] == "mtime") {
			return DateCompare{File: true, Property: parts[1], Op: op, Days: days}, nil
		}
		if len(parts) == 1 {
			return DateCompare{Property: prop, Op: op, Days: days}, nil
		}
	}

	if op != "==" && op != "!=" {
		return nil, fmt.Errorf("operator %s needs a today() operand", op)
	}
	if len(parts) > 2 {
		return nil, fmt.Errorf("property %q is nested too deeply", prop)
	}
	if rest == "" {
		return nil, errors.New("missing comparison value")
	}
	return Equals{Property: prop, Value: unquote(rest), Negate: op == "!="}, nil
}

// parseRelativeDays matches `today() - "Nd"` and returns N.
func parseRelativeDays(s string) (int, bool) {
	p := &parser{src: s}
	name, err := p.ident()
	if err != nil || name != "today" {
		return 0, false
	}
	if p.expect('(') != nil || p.expect(')') != nil {
		return 0, false
	}
	p.skipSpace()
	if p.expect('-') != nil {
		return 0, false
	}
	p.skipSpace()
	lit, err := p.str()
	if err != nil || !p.eof() {
		return 0, false
	}
	digits, ok := strings.CutSuffix(lit, "d")
	if !ok || digits == "" {
		return 0, false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

// unquote drops a quote on either edge of a comparison literal. The edges
// are independent, so an unbalanced "x still compares as x. The value
// itself is never emptied.
func unquote(s string) string {
	if len(s) > 1 && isQuote(s[0]) {
		s = s[1:]
	}
	if len(s) > 1 && isQuote(s[len(s)-1]) {
		s = s[:len(s)-1]
	}
	return s
}

func isQuote(c byte) bool { return c == '"' || c == '\'' }
