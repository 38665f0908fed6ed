package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/auirah-api/internal/domain"
	"github.com/auirah-api/internal/pkg/validate"
	"github.com/auirah-api/internal/transport/http/middleware"
)

const (
	defaultPerPage = 15
	maxPerPage     = 100
)

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
// It writes the error response itself and reports whether the handler may continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "The request body must be valid JSON.")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		httpError(w, err)
		return false
	}
	return true
}

// principal returns the authenticated caller or writes a 401.
func principal(w http.ResponseWriter, r *http.Request) (*domain.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthenticated.")
	}
	return p, ok
}

// parsePagination reads page (default 1) and per_page clamped to 1..100 (default 15).
func parsePagination(r *http.Request) (page, perPage int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage = defaultPerPage
	if raw := r.URL.Query().Get("per_page"); raw != "" {
		perPage, _ = strconv.Atoi(raw)
		perPage = max(1, min(perPage, maxPerPage))
	}
	return
}

func pageMeta(page, perPage, total int) PageMeta {
	last := 1
	if total > 0 {
		last = (total + perPage - 1) / perPage
	}
	return PageMeta{CurrentPage: page, PerPage: perPage, Total: total, LastPage: last}
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}
