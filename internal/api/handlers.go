package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/basalt/internal/apperr"
	"github.com/starford/basalt/internal/bases"
	"github.com/starford/basalt/internal/checksum"
	"github.com/starford/basalt/internal/noteservice"
	"github.com/starford/basalt/internal/search"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *noteservice.Service
	logger *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// notePath extracts the note path from the URL (everything after /api/notes/).
// Supports encoded slashes from OpenAPI clients (e.g. topics%2Fnote.md).
func notePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func queryInt(q url.Values, key string) (int, error) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", apperr.ErrInvalidArgument, key)
	}
	return n, nil
}

func queryBool(q url.Values, key string) (*bool, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a boolean", apperr.ErrInvalidArgument, key)
	}
	return &b, nil
}

// Search handles GET /api/search.
//
//	@Summary		Ranked full-text search across notes
//	@Tags			search
//	@Produce		json
//	@Param			q			query		string	true	"Search query"
//	@Param			limit		query		int		false	"Max results (default 5, max 20)"
//	@Param			content		query		bool	false	"Search note bodies (default true)"
//	@Param			frontmatter	query		bool	false	"Search frontmatter (default false)"
//	@Param			case		query		bool	false	"Case-sensitive matching"
//	@Success		200			{object}	SearchResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := search.Params{Query: q.Get("q")}
	var err error
	if p.Limit, err = queryInt(q, "limit"); err != nil {
		writeError(w, h.logger, "search", err)
		return
	}
	if p.SearchContent, err = queryBool(q, "content"); err != nil {
		writeError(w, h.logger, "search", err)
		return
	}
	if p.SearchFrontmatter, err = queryBool(q, "frontmatter"); err != nil {
		writeError(w, h.logger, "search", err)
		return
	}
	caseSensitive, err := queryBool(q, "case")
	if err != nil {
		writeError(w, h.logger, "search", err)
		return
	}
	p.CaseSensitive = caseSensitive != nil && *caseSensitive

	results, err := h.svc.Search(r.Context(), p)
	if err != nil {
		writeError(w, h.logger, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// QueryBase handles GET /api/bases/query.
//
//	@Summary		Run a base view
//	@Tags			bases
//	@Produce		json
//	@Param			path	query		string	true	"Base file path"
//	@Param			view	query		string	false	"View name"
//	@Param			limit	query		int		false	"Max notes (default view limit or 50, max 100)"
//	@Param			fm		query		bool	false	"Include frontmatter"
//	@Success		200		{object}	BaseQueryResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/bases/query [get]
func (h *Handler) QueryBase(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := bases.Params{Path: q.Get("path"), View: q.Get("view")}
	var err error
	if p.Limit, err = queryInt(q, "limit"); err != nil {
		writeError(w, h.logger, "query base", err)
		return
	}
	fm, err := queryBool(q, "fm")
	if err != nil {
		writeError(w, h.logger, "query base", err)
		return
	}
	p.IncludeFrontmatter = fm != nil && *fm

	res, err := h.svc.QueryBase(r.Context(), p)
	if err != nil {
		writeError(w, h.logger, "query base", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes with optional pagination and filtering
//	@Tags			notes
//	@Produce		json
//	@Param			dir		query		string	false	"Restrict to a folder"
//	@Param			tag		query		string	false	"Filter by tag"
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := noteservice.ListParams{Dir: q.Get("dir"), Tag: q.Get("tag")}
	var err error
	if p.Limit, err = queryInt(q, "limit"); err != nil {
		writeError(w, h.logger, "list notes", err)
		return
	}
	if p.Offset, err = queryInt(q, "offset"); err != nil {
		writeError(w, h.logger, "list notes", err)
		return
	}

	items, total, err := h.svc.ListNotes(r.Context(), p)
	if err != nil {
		writeError(w, h.logger, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: total})
}

// GetNote handles GET /api/notes/*.
//
//	@Summary		Get a single note by path
//	@Tags			notes
//	@Produce		json
//	@Param			path			path		string	true	"Note path"
//	@Param			If-None-Match	header		string	false	"Checksum from a previous read"
//	@Success		200				{object}	NoteDetail
//	@Success		304				"Not modified"
//	@Failure		404				{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	note, err := h.svc.GetNote(r.Context(), path)
	if err != nil {
		writeError(w, h.logger, "get note", err)
		return
	}
	w.Header().Set("ETag", `"`+note.Checksum+`"`)
	if checksum.Matches(r.Header.Get("If-None-Match"), note.Checksum) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, note)
}
