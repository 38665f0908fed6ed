package task

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/auirah-api/internal/domain"
	"github.com/auirah-api/internal/pkg/id"
	"github.com/auirah-api/internal/pkg/slug"
	pkgtoken "github.com/auirah-api/internal/pkg/token"
)

const (
	slugTitleLen  = 50
	slugSuffixLen = 6

	DefaultPublicLimit = 24
	MaxPublicLimit     = 50
)

// View is a task with its owner and assignee resolved.
type View struct {
	Task     domain.Task
	Owner    *domain.User
	Assignee *domain.User
}

type Service interface {
	List(ctx context.Context, q domain.TaskQuery) ([]View, int, error)
	// Public lists tasks for the unauthenticated feed, soonest due first.
	Public(ctx context.Context, q domain.TaskQuery) ([]View, error)
	Create(ctx context.Context, actor *domain.User, req domain.CreateTaskRequest) (*View, error)
	Get(ctx context.Context, taskID string) (*View, error)
	Update(ctx context.Context, actor *domain.User, taskID string, req domain.UpdateTaskRequest) (*View, error)
	Delete(ctx context.Context, actor *domain.User, taskID string) error
}

type taskStore interface {
	Create(ctx context.Context, t *domain.Task) error
	Get(ctx context.Context, taskID string) (*domain.Task, error)
	List(ctx context.Context, q domain.TaskQuery) ([]domain.Task, int, error)
	Update(ctx context.Context, taskID string, c domain.TaskChanges) (*domain.Task, error)
	Delete(ctx context.Context, taskID string) error
}

type userGetter interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type service struct {
	repo  taskStore
	users userGetter
	now   func() time.Time
}

type ServiceDeps struct {
	TaskRepo taskStore
	UserRepo userGetter
	Now      func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{repo: deps.TaskRepo, users: deps.UserRepo, now: deps.Now}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *service) List(ctx context.Context, q domain.TaskQuery) ([]View, int, error) {
	q.Order = domain.OrderLatest
	q.Search = strings.TrimSpace(q.Search)
	tasks, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	views, err := s.resolve(ctx, tasks)
	return views, total, err
}

func (s *service) Public(ctx context.Context, q domain.TaskQuery) ([]View, error) {
	q.Limit = clampPublic(q.Limit)
	q.Order = domain.OrderDueDate
	q.Offset = 0
	q.Search = ""
	q.Priority = ""
	tasks, _, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, tasks)
}

func (s *service) Create(ctx context.Context, actor *domain.User, req domain.CreateTaskRequest) (*View, error) {
	if !domain.IsManager(actor) {
		return nil, domain.Errorf(domain.ErrForbidden, "Only owners and admins can create tasks.")
	}
	ownerID := actor.UserID
	if req.OwnerID != nil && *req.OwnerID != "" {
		ownerID = *req.OwnerID
	}
	if err := s.ensureUser(ctx, "owner_id", &ownerID); err != nil {
		return nil, err
	}
	if err := s.ensureUser(ctx, "assignee_id", req.AssigneeID); err != nil {
		return nil, err
	}
	suffix, err := pkgtoken.RandomString(slugSuffixLen)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	t := &domain.Task{
		TaskID:      id.New(),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Status:      valueOr(req.Status, domain.TaskTodo),
		Priority:    valueOr(req.Priority, domain.PriorityMedium),
		DueDate:     req.DueDate,
		OwnerID:     ownerID,
		AssigneeID:  nonEmpty(req.AssigneeID),
		Labels:      labels(req.Labels),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	t.Slug = makeSlug(t.Title, suffix)
	if t.Status == domain.TaskDone {
		t.CompletedAt = &now
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return s.view(ctx, t)
}

func (s *service) Get(ctx context.Context, taskID string) (*View, error) {
	t, err := s.find(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, t)
}

// Update applies the non-null fields of req. Moving a task to done stamps
// completed_at once.
func (s *service) Update(ctx context.Context, actor *domain.User, taskID string, req domain.UpdateTaskRequest) (*View, error) {
	if !domain.IsManager(actor) {
		return nil, domain.Errorf(domain.ErrForbidden, "Only owners and admins can update tasks.")
	}
	current, err := s.find(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUser(ctx, "owner_id", req.OwnerID); err != nil {
		return nil, err
	}
	if err := s.ensureUser(ctx, "assignee_id", req.AssigneeID); err != nil {
		return nil, err
	}

	c := domain.TaskChanges{
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		OwnerID:     nonEmpty(req.OwnerID),
		AssigneeID:  nonEmpty(req.AssigneeID),
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		c.Title = &title
	}
	if req.Labels != nil {
		c.Labels = labels(req.Labels)
	}
	if req.Status != nil && *req.Status == domain.TaskDone && current.CompletedAt == nil {
		now := s.now().UTC()
		c.CompletedAt = &now
	}

	updated, err := s.repo.Update(ctx, current.TaskID, c)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, updated)
}

func (s *service) Delete(ctx context.Context, actor *domain.User, taskID string) error {
	if !domain.IsManager(actor) {
		return domain.Errorf(domain.ErrForbidden, "Only owners and admins can delete tasks.")
	}
	if _, err := s.find(ctx, taskID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, taskID)
}

func (s *service) find(ctx context.Context, taskID string) (*domain.Task, error) {
	t, err := s.repo.Get(ctx, taskID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Errorf(domain.ErrNotFound, "Task not found.")
	}
	return t, err
}

// ensureUser rejects a reference to an account that does not exist.
func (s *service) ensureUser(ctx context.Context, field string, userID *string) error {
	if userID == nil || *userID == "" {
		return nil
	}
	_, err := s.users.Get(ctx, *userID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.FieldError(field, "The selected "+strings.ReplaceAll(field, "_", " ")+" is invalid.")
	}
	return err
}

func (s *service) view(ctx context.Context, t *domain.Task) (*View, error) {
	views, err := s.resolve(ctx, []domain.Task{*t})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// resolve loads owners and assignees, fetching each account once.
func (s *service) resolve(ctx context.Context, tasks []domain.Task) ([]View, error) {
	cache := make(map[string]*domain.User)
	lookup := func(userID string) (*domain.User, error) {
		if u, ok := cache[userID]; ok {
			return u, nil
		}
		u, err := s.users.Get(ctx, userID)
		if errors.Is(err, domain.ErrNotFound) {
			u, err = nil, nil
		}
		if err != nil {
			return nil, err
		}
		cache[userID] = u
		return u, nil
	}

	views := make([]View, len(tasks))
	for i, t := range tasks {
		owner, err := lookup(t.OwnerID)
		if err != nil {
			return nil, err
		}
		views[i] = View{Task: t, Owner: owner}
		if t.AssigneeID != nil {
			if views[i].Assignee, err = lookup(*t.AssigneeID); err != nil {
				return nil, err
			}
		}
	}
	return views, nil
}

func makeSlug(title, suffix string) string {
	base := slug.Make(slug.Truncate(title, slugTitleLen))
	if base == "" {
		base = "task"
	}
	return base + "-" + suffix
}

func labels(in []string) []string {
	out := make([]string, 0, len(in))
	for _, l := range in {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func valueOr(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}

func nonEmpty(p *string) *string {
	if p == nil || *p == "" {
		return nil
	}
	return p
}

func clampPublic(limit int) int {
	switch {
	case limit == 0:
		return DefaultPublicLimit
	case limit < 1:
		return 1
	case limit > MaxPublicLimit:
		return MaxPublicLimit
	}
	return limit
}
