// Package bases runs saved .base queries: filter, sort and paginate the
// vault's notes according to a named view.
package bases

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/basalt/internal/apperr"
	"github.com/starford/basalt/internal/filter"
	"github.com/starford/basalt/internal/storage"
)

// Extension marks structured query documents.
const Extension = ".base"

// Sort directions.
const (
	Asc  = "ASC"
	Desc = "DESC"
)

// File is a parsed .base document.
type File struct {
	Filters *filter.Group `yaml:"filters,omitempty"`
	Views   []View        `yaml:"views,omitempty"`
}

// View is one named presentation over a base's notes. Type and Order are
// presentational and do not affect query results.
type View struct {
	Name    string        `yaml:"name"`
	Type    string        `yaml:"type,omitempty"`
	Filters *filter.Group `yaml:"filters,omitempty"`
	Limit   *int          `yaml:"limit,omitempty"`
	Sort    []SortSpec    `yaml:"sort,omitempty"`
	Order   []string      `yaml:"order,omitempty"`
}

// SortSpec orders notes by one property.
type SortSpec struct {
	Property  string `yaml:"property"`
	Direction string `yaml:"direction"`
}

// ViewNames lists every view in declaration order.
func (f *File) ViewNames() []string {
	names := make([]string, 0, len(f.Views))
	for _, v := range f.Views {
		names = append(names, v.Name)
	}
	return names
}

// View finds a view by exact name.
func (f *File) View(name string) (*View, bool) {
	for i := range f.Views {
		if f.Views[i].Name == name {
			return &f.Views[i], true
		}
	}
	return nil, false
}

// Load reads and decodes the base at rel. A leading slash is ignored; an
// empty document is a base with no filters and no views.
func Load(store storage.Provider, rel string) (*File, error) {
	rel = strings.TrimPrefix(rel, "/")
	if !strings.HasSuffix(rel, Extension) {
		return nil, fmt.Errorf("bases: %w: not a base file: %s", apperr.ErrInvalidArgument, rel)
	}

	data, err := store.Read(rel)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("bases: %w: %s", apperr.ErrNotFound, rel)
		}
		return nil, fmt.Errorf("bases: load %s: %w", rel, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("bases: %w: parse %s: %w", apperr.ErrInvalidArgument, rel, err)
	}
	return &f, nil
}
