package api

import (
	"github.com/starford/basalt/internal/bases"
	"github.com/starford/basalt/internal/noteservice"
	"github.com/starford/basalt/internal/search"
)

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteListItem is a lightweight item in a list response (aliased from the domain layer).
type NoteListItem = noteservice.NoteListItem

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps ranked search hits.
type SearchResponse struct {
	Results []search.Result `json:"results" validate:"required"`
}

// BaseQueryResponse is the result of running a base view.
type BaseQueryResponse = bases.Result
