package handler

import (
	"net/http"
	"strings"

	"github.com/auirah-api/internal/application/search"
	"github.com/auirah-api/internal/pkg/validate"
)

// SearchHandler serves global search, typeahead suggestions and prompt ideas.
type SearchHandler struct {
	svc search.Service
}

func NewSearchHandler(svc search.Service) *SearchHandler { return &SearchHandler{svc: svc} }

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := search.Query{Q: strings.TrimSpace(r.URL.Query().Get("q")), Limit: queryInt(r, "limit")}
	if err := validate.Struct(&q); err != nil {
		httpError(w, err)
		return
	}
	res, err := h.svc.Search(r.Context(), q)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *SearchHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	q := search.SuggestionQuery{Q: r.URL.Query().Get("q"), Limit: queryInt(r, "limit")}
	if err := validate.Struct(&q); err != nil {
		httpError(w, err)
		return
	}
	res, err := h.svc.Suggest(r.Context(), q)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *SearchHandler) Inspirations(w http.ResponseWriter, r *http.Request) {
	q := search.InspirationQuery{Limit: queryInt(r, "limit")}
	if err := validate.Struct(&q); err != nil {
		httpError(w, err)
		return
	}
	res, err := h.svc.Inspirations(r.Context(), q)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
