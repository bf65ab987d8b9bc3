package mcpserver

// FilterSyntax documents the filter and base query language for LLM
// consumers that build or read .base files.
const FilterSyntax = `# Basalt Filter Syntax

Bases (` + "`" + `*.base` + "`" + ` files) are YAML documents with optional top-level ` + "`" + `filters` + "`" + `
and a list of named ` + "`" + `views` + "`" + `. Filters are groups of leaf expressions.

## Groups

` + "```" + `yaml
filters:
  and:                      # every item must match
    - file.hasTag("book")
    - or:                   # at least one item must match
        - status == "reading"
        - status == "queued"
` + "```" + `

Use exactly one of ` + "`" + `and` + "`" + ` / ` + "`" + `or` + "`" + ` per group. Groups nest freely.

## Leaf expressions

| Expression | Matches when |
|---|---|
| ` + "`" + `file.hasTag("x")` + "`" + ` | the note has tag x (with or without #) |
| ` + "`" + `tags.contains("x")` + "`" + ` | any tag contains x, e.g. "ai/" matches ai/prompts |
| ` + "`" + `file.path.startsWith("dir/")` + "`" + ` | the vault-relative path starts with the prefix |
| ` + "`" + `prop.startsWith("x")` + "`" + ` | string property starts with x |
| ` + "`" + `prop.contains("x")` + "`" + ` | string property, or any list element, contains x |
| ` + "`" + `prop.containsAny("x", "y")` + "`" + ` | property contains at least one of the values |
| ` + "`" + `prop.isEmpty()` + "`" + ` | property is missing, null, blank or an empty list (0 and false are not empty) |
| ` + "`" + `file.mtime > today() - "7d"` + "`" + ` | modified after local midnight seven days ago (also file.ctime) |
| ` + "`" + `due < today() - "0d"` + "`" + ` | date property is before today; unparseable dates never match |
| ` + "`" + `prop == "x"` + "`" + ` | equality; numbers compare numerically, lists by membership |
| ` + "`" + `prop != "x"` + "`" + ` | negated equality; true when the property is missing |

Date comparisons accept ` + "`" + `> < >= <= == !=` + "`" + `. Equality also works on
` + "`" + `file.name` + "`" + `, ` + "`" + `file.path` + "`" + `, ` + "`" + `file.ctime` + "`" + `, ` + "`" + `file.mtime` + "`" + ` and ` + "`" + `file.tags` + "`" + `.
Strings use single or double quotes with no escapes.

Anything else is reported in the ` + "`" + `w` + "`" + ` warnings of the result as
` + "`" + `Unsupported filter: <expression>` + "`" + ` and treated as matching.

## Views

` + "```" + `yaml
views:
  - name: Recent
    type: table             # presentational only
    filters:
      and:
        - file.mtime > today() - "30d"
    sort:
      - property: file.mtime
        direction: DESC     # ASC or DESC; missing values always sort last
    limit: 20               # capped at 100; default 50
` + "```" + `

Sort properties may be ` + "`" + `file.name|path|ctime|mtime` + "`" + `, ` + "`" + `property.KEY` + "`" + ` or a bare
frontmatter key.
`
