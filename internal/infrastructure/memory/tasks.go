package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/auirah-api/internal/domain"
)

// TaskRepo is a mutex-guarded task store.
type TaskRepo struct {
	mu    sync.Mutex
	tasks map[string]domain.Task
}

func NewTaskRepo() *TaskRepo {
	return &TaskRepo{tasks: make(map[string]domain.Task)}
}

func (r *TaskRepo) Create(_ context.Context, t *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[t.TaskID]; ok {
		return fmt.Errorf("task id taken: %w", domain.ErrConflict)
	}
	if r.slugTakenLocked(t.TaskID, t.Slug) {
		return domain.Errorf(domain.ErrConflict, "The slug has already been taken.")
	}
	r.tasks[t.TaskID] = cloneTask(*t)
	return nil
}

func (r *TaskRepo) Get(_ context.Context, taskID string) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task not found: %w", domain.ErrNotFound)
	}
	t = cloneTask(t)
	return &t, nil
}

func (r *TaskRepo) List(_ context.Context, q domain.TaskQuery) ([]domain.Task, int, error) {
	r.mu.Lock()
	all := make([]domain.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		if q.Matches(&t) {
			all = append(all, cloneTask(t))
		}
	}
	r.mu.Unlock()
	domain.SortTasks(all, q.Order)
	return domain.Page(all, q.Offset, q.Limit), len(all), nil
}

func (r *TaskRepo) Update(_ context.Context, taskID string, c domain.TaskChanges) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task not found: %w", domain.ErrNotFound)
	}
	if c.Slug != nil && r.slugTakenLocked(taskID, *c.Slug) {
		return nil, domain.Errorf(domain.ErrConflict, "The slug has already been taken.")
	}
	c.Apply(&t)
	t.UpdatedAt = time.Now().UTC()
	t = cloneTask(t)
	r.tasks[taskID] = t
	out := cloneTask(t)
	return &out, nil
}

func (r *TaskRepo) Delete(_ context.Context, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[taskID]; !ok {
		return fmt.Errorf("task not found: %w", domain.ErrNotFound)
	}
	delete(r.tasks, taskID)
	return nil
}

func (r *TaskRepo) DeleteByOwner(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.tasks {
		if t.OwnerID == userID {
			delete(r.tasks, id)
		}
	}
	return nil
}

func (r *TaskRepo) ClearAssignee(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	for id, t := range r.tasks {
		if t.AssigneeID != nil && *t.AssigneeID == userID {
			t.AssigneeID = nil
			t.UpdatedAt = now
			r.tasks[id] = t
		}
	}
	return nil
}

func (r *TaskRepo) slugTakenLocked(taskID, slug string) bool {
	for id, t := range r.tasks {
		if id != taskID && t.Slug == slug {
			return true
		}
	}
	return false
}

func cloneTask(t domain.Task) domain.Task {
	if t.Labels != nil {
		t.Labels = append([]string(nil), t.Labels...)
	}
	return t
}
