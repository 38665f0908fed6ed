package domain

import (
	"sort"
	"strings"
	"time"
)

const (
	TaskTodo       = "todo"
	TaskInProgress = "in_progress"
	TaskInReview   = "in_review"
	TaskDone       = "done"
)

const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

const summaryLimit = 140

// Task is a unit of household work owned by one user and optionally assigned to another.
type Task struct {
	TaskID      string     `json:"id" dynamodbav:"task_id"`
	Title       string     `json:"title" dynamodbav:"title"`
	Slug        string     `json:"slug" dynamodbav:"slug"`
	Description *string    `json:"description" dynamodbav:"description"`
	Status      string     `json:"status" dynamodbav:"status"`
	Priority    string     `json:"priority" dynamodbav:"priority"`
	DueDate     *string    `json:"due_date" dynamodbav:"due_date"`
	CompletedAt *time.Time `json:"completed_at" dynamodbav:"completed_at"`
	OwnerID     string     `json:"owner_id" dynamodbav:"owner_id"`
	AssigneeID  *string    `json:"assignee_id" dynamodbav:"assignee_id"`
	Labels      []string   `json:"labels" dynamodbav:"labels"`
	CreatedAt   time.Time  `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" dynamodbav:"updated_at"`
}

// Summary is the description, or the title when there is none, cut to 140 characters.
func (t *Task) Summary() string {
	text := t.Title
	if t.Description != nil && strings.TrimSpace(*t.Description) != "" {
		text = *t.Description
	}
	r := []rune(text)
	if len(r) <= summaryLimit {
		return text
	}
	return string(r[:summaryLimit-3]) + "..."
}

// TaskChanges is the set of fields an update may touch. Nil fields are left alone.
type TaskChanges struct {
	Title       *string
	Slug        *string
	Description *string
	Status      *string
	Priority    *string
	DueDate     *string
	CompletedAt *time.Time
	OwnerID     *string
	AssigneeID  *string
	Labels      []string
}

// Apply copies the set fields onto t.
func (c TaskChanges) Apply(t *Task) {
	if c.Title != nil {
		t.Title = *c.Title
	}
	if c.Slug != nil {
		t.Slug = *c.Slug
	}
	if c.Description != nil {
		t.Description = c.Description
	}
	if c.Status != nil {
		t.Status = *c.Status
	}
	if c.Priority != nil {
		t.Priority = *c.Priority
	}
	if c.DueDate != nil {
		t.DueDate = c.DueDate
	}
	if c.CompletedAt != nil {
		t.CompletedAt = c.CompletedAt
	}
	if c.OwnerID != nil {
		t.OwnerID = *c.OwnerID
	}
	if c.AssigneeID != nil {
		t.AssigneeID = c.AssigneeID
	}
	if c.Labels != nil {
		t.Labels = c.Labels
	}
}

// Task listing orders.
const (
	OrderLatest  = "latest"
	OrderDueDate = "due_date"
)

// TaskQuery filters, orders and pages task listings.
type TaskQuery struct {
	Status     string
	Priority   string
	OwnerID    string
	AssigneeID string
	Search     string
	Order      string
	Offset     int
	Limit      int
}

// Matches reports whether t passes every set filter.
func (q TaskQuery) Matches(t *Task) bool {
	if q.Status != "" && t.Status != q.Status {
		return false
	}
	if q.Priority != "" && t.Priority != q.Priority {
		return false
	}
	if q.OwnerID != "" && t.OwnerID != q.OwnerID {
		return false
	}
	if q.AssigneeID != "" && (t.AssigneeID == nil || *t.AssigneeID != q.AssigneeID) {
		return false
	}
	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		if strings.Contains(strings.ToLower(t.Title), needle) {
			return true
		}
		if t.Description != nil && strings.Contains(strings.ToLower(*t.Description), needle) {
			return true
		}
		for _, l := range t.Labels {
			if strings.Contains(strings.ToLower(l), needle) {
				return true
			}
		}
		return false
	}
	return true
}

// SortTasks orders tasks in place according to order.
// OrderDueDate puts the earliest due date first with undated tasks last, then the most recently updated.
// Any other value sorts newest first.
func SortTasks(tasks []Task, order string) {
	if order == OrderDueDate {
		sort.SliceStable(tasks, func(i, j int) bool {
			a, b := tasks[i], tasks[j]
			switch {
			case a.DueDate == nil && b.DueDate != nil:
				return false
			case a.DueDate != nil && b.DueDate == nil:
				return true
			case a.DueDate != nil && b.DueDate != nil && *a.DueDate != *b.DueDate:
				return *a.DueDate < *b.DueDate
			}
			return a.UpdatedAt.After(b.UpdatedAt)
		})
		return
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		}
		return tasks[i].TaskID > tasks[j].TaskID
	})
}

// SortUsers orders users by name, then email.
func SortUsers(users []User) {
	sort.SliceStable(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].Email < users[j].Email
	})
}

// Page slices items by offset and limit. A non-positive limit returns everything after offset.
func Page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	if offset < 0 {
		offset = 0
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

type CreateTaskRequest struct {
	Title       string   `json:"title" validate:"required,max=120"`
	Description *string  `json:"description" validate:"omitempty,max=5000"`
	Status      *string  `json:"status" validate:"omitempty,oneof=todo in_progress in_review done"`
	Priority    *string  `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	DueDate     *string  `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	OwnerID     *string  `json:"owner_id" validate:"omitempty"`
	AssigneeID  *string  `json:"assignee_id" validate:"omitempty"`
	Labels      []string `json:"labels" validate:"omitempty,dive,max=40"`
}

type UpdateTaskRequest struct {
	Title       *string  `json:"title" validate:"omitempty,max=120"`
	Description *string  `json:"description" validate:"omitempty,max=5000"`
	Status      *string  `json:"status" validate:"omitempty,oneof=todo in_progress in_review done"`
	Priority    *string  `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	DueDate     *string  `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	OwnerID     *string  `json:"owner_id" validate:"omitempty"`
	AssigneeID  *string  `json:"assignee_id" validate:"omitempty"`
	Labels      []string `json:"labels" validate:"omitempty,dive,max=40"`
}
