package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/auirah-api/internal/application/user"
	"github.com/auirah-api/internal/domain"
)

// UserHandler handles user CRUD endpoints.
type UserHandler struct {
	svc user.Service
}

func NewUserHandler(svc user.Service) *UserHandler { return &UserHandler{svc: svc} }

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	page, perPage := parsePagination(r)
	users, total, err := h.svc.List(r.Context(), p.User, domain.UserQuery{
		Search: r.URL.Query().Get("search"),
		Offset: (page - 1) * perPage,
		Limit:  perPage,
	})
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PageEnvelope{Data: toUserResources(users), Meta: pageMeta(page, perPage, total)})
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req domain.CreateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	u, err := h.svc.Create(r.Context(), p.User, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, DataEnvelope{Data: toUserResource(u)})
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	u, err := h.svc.Get(r.Context(), p.User, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DataEnvelope{Data: toUserResource(u)})
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req domain.UpdateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	u, err := h.svc.Update(r.Context(), p.User, chi.URLParam(r, "id"), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DataEnvelope{Data: toUserResource(u)})
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), p.User, chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "User deleted successfully."})
}
