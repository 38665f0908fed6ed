package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/auirah-api/internal/application/task"
	"github.com/auirah-api/internal/domain"
)

// TaskHandler handles task CRUD endpoints and the public feed.
type TaskHandler struct {
	svc task.Service
}

func NewTaskHandler(svc task.Service) *TaskHandler { return &TaskHandler{svc: svc} }

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, perPage := parsePagination(r)
	views, total, err := h.svc.List(r.Context(), domain.TaskQuery{
		Status:     q.Get("status"),
		Priority:   q.Get("priority"),
		OwnerID:    q.Get("owner_id"),
		AssigneeID: q.Get("assignee_id"),
		Search:     q.Get("search"),
		Offset:     (page - 1) * perPage,
		Limit:      perPage,
	})
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PageEnvelope{Data: toTaskResources(views), Meta: pageMeta(page, perPage, total)})
}

// Public serves the unauthenticated feed.
func (h *TaskHandler) Public(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := task.DefaultPublicLimit
	if q.Get("limit") != "" {
		limit = max(1, queryInt(r, "limit"))
	}
	views, err := h.svc.Public(r.Context(), domain.TaskQuery{
		Status:     q.Get("status"),
		OwnerID:    q.Get("owner_id"),
		AssigneeID: q.Get("assignee_id"),
		Limit:      limit,
	})
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DataEnvelope{Data: toTaskResources(views)})
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req domain.CreateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	v, err := h.svc.Create(r.Context(), p.User, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, DataEnvelope{Data: toTaskResource(v)})
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DataEnvelope{Data: toTaskResource(v)})
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req domain.UpdateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	v, err := h.svc.Update(r.Context(), p.User, chi.URLParam(r, "id"), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DataEnvelope{Data: toTaskResource(v)})
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), p.User, chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Task deleted successfully."})
}
