package filter

// Expr is a parsed leaf expression. Exactly one concrete node type exists per
// supported leaf form.
type Expr interface {
	node()
}

// HasTag is file.hasTag("X"): exact tag match, '#' tolerant.
type HasTag struct {
	Tag string
}

// TagsContains is tags.contains("X") or file.tags.contains("X").
type TagsContains struct {
	Substring string
}

// PathStartsWith is file.path.startsWith("X").
type PathStartsWith struct {
	Prefix string
}

// StartsWith is PROP.startsWith("X") on a string frontmatter value.
type StartsWith struct {
	Property string
	Prefix   string
}

// Contains is PROP.contains("X") on a string or list value.
type Contains struct {
	Property  string
	Substring string
}

// ContainsAny is PROP.containsAny("X", "Y", ...).
type ContainsAny struct {
	Property   string
	Substrings []string
}

// IsEmpty is PROP.isEmpty().
type IsEmpty struct {
	Property string
}

// DateCompare is `file.ctime|file.mtime OP today() - "Nd"` when File is set,
// or `PROP OP today() - "Nd"` against a frontmatter date otherwise.
type DateCompare struct {
	File     bool
	Property string // "ctime"/"mtime" when File is set
	Op       string
	Days     int
}

// Equals is `PROP == V`, or `PROP != V` when Negate is set.
type Equals struct {
	Property string
	Value    string
	Negate   bool
}

func (HasTag) node()         {}
func (TagsContains) node()   {}
func (PathStartsWith) node() {}
func (StartsWith) node()     {}
func (Contains) node()       {}
func (ContainsAny) node()    {}
func (IsEmpty) node()        {}
func (DateCompare) node()    {}
func (Equals) node()         {}
