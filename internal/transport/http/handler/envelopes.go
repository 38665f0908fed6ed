package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/auirah-api/internal/application/task"
	"github.com/auirah-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper. Errors use it too.
type MessageEnvelope struct {
	Message string `json:"message"`
}

// ValidationEnvelope is the 422 body for rejected payloads.
type ValidationEnvelope struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

// DataEnvelope wraps single-resource and unpaginated collection responses.
type DataEnvelope struct {
	Data any `json:"data"`
}

type PageMeta struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	LastPage    int `json:"last_page"`
}

// PageEnvelope wraps paginated list responses.
type PageEnvelope struct {
	Data any      `json:"data"`
	Meta PageMeta `json:"meta"`
}

// OTPRequestEnvelope answers a passcode request. DemoCode is null in production.
type OTPRequestEnvelope struct {
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
	DemoCode  *string   `json:"demo_code"`
}

// LoginEnvelope answers a successful passcode verification.
type LoginEnvelope struct {
	Token     string        `json:"token"`
	TokenType string        `json:"token_type"`
	Abilities []string      `json:"abilities"`
	User      *UserResource `json:"user"`
}

// UserResource is the public profile of an account. Secrets and OTP state stay out.
type UserResource struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Role            string     `json:"role"`
	Phone           *string    `json:"phone_number"`
	Status          string     `json:"status"`
	EmailVerifiedAt *time.Time `json:"email_verified_at"`
	OTPVerifiedAt   *time.Time `json:"otp_verified_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func toUserResource(u *domain.User) *UserResource {
	if u == nil {
		return nil
	}
	return &UserResource{
		ID:              u.UserID,
		Name:            u.Name,
		Email:           u.Email,
		Role:            u.Role,
		Phone:           u.Phone,
		Status:          u.Status(),
		EmailVerifiedAt: u.EmailVerifiedAt,
		OTPVerifiedAt:   u.OTPVerifiedAt,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func toUserResources(users []domain.User) []*UserResource {
	out := make([]*UserResource, len(users))
	for i := range users {
		out[i] = toUserResource(&users[i])
	}
	return out
}

type TaskResource struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Slug        string        `json:"slug"`
	Description *string       `json:"description"`
	Status      string        `json:"status"`
	Priority    string        `json:"priority"`
	DueDate     *string       `json:"due_date"`
	CompletedAt *time.Time    `json:"completed_at"`
	Labels      []string      `json:"labels"`
	Owner       *UserResource `json:"owner"`
	Assignee    *UserResource `json:"assignee"`
	Summary     string        `json:"summary"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func toTaskResource(v *task.View) *TaskResource {
	labels := v.Task.Labels
	if labels == nil {
		labels = []string{}
	}
	return &TaskResource{
		ID:          v.Task.TaskID,
		Title:       v.Task.Title,
		Slug:        v.Task.Slug,
		Description: v.Task.Description,
		Status:      v.Task.Status,
		Priority:    v.Task.Priority,
		DueDate:     v.Task.DueDate,
		CompletedAt: v.Task.CompletedAt,
		Labels:      labels,
		Owner:       toUserResource(v.Owner),
		Assignee:    toUserResource(v.Assignee),
		Summary:     v.Task.Summary(),
		CreatedAt:   v.Task.CreatedAt,
		UpdatedAt:   v.Task.UpdatedAt,
	}
}

func toTaskResources(views []task.View) []*TaskResource {
	out := make([]*TaskResource, len(views))
	for i := range views {
		out[i] = toTaskResource(&views[i])
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Message: msg})
}
