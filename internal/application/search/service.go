package search

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/auirah-api/internal/domain"
)

const (
	DefaultLimit            = 10
	DefaultSuggestionLimit  = 6
	DefaultInspirationLimit = 10
	snippetLimit            = 140
)

// Query is a global search request. Q is trimmed before validation.
type Query struct {
	Q     string `json:"q" validate:"required,min=2,max=120"`
	Limit int    `json:"limit" validate:"omitempty,min=1,max=50"`
}

// SuggestionQuery asks for typeahead completions. An empty Q yields the configured defaults.
type SuggestionQuery struct {
	Q     string `json:"q" validate:"omitempty,max=120"`
	Limit int    `json:"limit" validate:"omitempty,min=1,max=10"`
}

// InspirationQuery asks for a random sample of the configured prompts.
type InspirationQuery struct {
	Limit int `json:"limit" validate:"omitempty,min=1,max=50"`
}

type Result struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Title    string         `json:"title"`
	Snippet  string         `json:"snippet"`
	URL      string         `json:"url"`
	Metadata map[string]any `json:"metadata"`
}

type Results struct {
	Query   string   `json:"query"`
	Total   int      `json:"total"`
	Results []Result `json:"results"`
}

type Suggestions struct {
	Query       string   `json:"query"`
	Suggestions []string `json:"suggestions"`
}

type Inspirations struct {
	Prompts []string `json:"prompts"`
}

type Service interface {
	Search(ctx context.Context, q Query) (*Results, error)
	Suggest(ctx context.Context, q SuggestionQuery) (*Suggestions, error)
	Inspirations(ctx context.Context, q InspirationQuery) (*Inspirations, error)
}

type taskLister interface {
	List(ctx context.Context, q domain.TaskQuery) ([]domain.Task, int, error)
}

type userLister interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	List(ctx context.Context, q domain.UserQuery) ([]domain.User, int, error)
}

type service struct {
	tasks        taskLister
	users        userLister
	defaults     []string
	curated      []Result
	inspirations []string
	shuffle      func(n int, swap func(i, j int))
}

type ServiceDeps struct {
	TaskRepo taskLister
	UserRepo userLister
	// Defaults are offered when a suggestion query is empty or matches nothing.
	Defaults []string
	// Curated entries answer a search that found no tasks and no users.
	Curated      []Result
	Inspirations []string
	// Shuffle orders the inspiration sample. Defaults to math/rand/v2.
	Shuffle func(n int, swap func(i, j int))
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		tasks:        deps.TaskRepo,
		users:        deps.UserRepo,
		defaults:     deps.Defaults,
		curated:      deps.Curated,
		inspirations: deps.Inspirations,
		shuffle:      deps.Shuffle,
	}
	if s.shuffle == nil {
		s.shuffle = rand.Shuffle
	}
	return s
}

// Search returns matching tasks newest first, then matching users by name.
// Users are capped at half the limit. When neither matches, the curated
// entries containing the query stand in. The merged list is cut to the limit
// while Total counts every hit gathered.
func (s *service) Search(ctx context.Context, q Query) (*Results, error) {
	needle := strings.TrimSpace(q.Q)
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	tasks, _, err := s.tasks.List(ctx, domain.TaskQuery{Search: needle, Order: domain.OrderLatest, Limit: limit})
	if err != nil {
		return nil, err
	}
	users, _, err := s.users.List(ctx, domain.UserQuery{Search: needle, Limit: max(1, limit/2)})
	if err != nil {
		return nil, err
	}

	names := make(map[string]string)
	results := make([]Result, 0, len(tasks)+len(users))
	for i := range tasks {
		r, err := s.taskResult(ctx, &tasks[i], names)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	for i := range users {
		results = append(results, userResult(&users[i]))
	}
	if len(tasks) == 0 && len(users) == 0 {
		results = append(results, s.matchingCurated(needle)...)
	}

	out := &Results{Query: needle, Total: len(results), Results: results}
	if len(out.Results) > limit {
		out.Results = out.Results[:limit]
	}
	return out, nil
}

// Suggest returns distinct task titles and user names containing the query.
func (s *service) Suggest(ctx context.Context, q SuggestionQuery) (*Suggestions, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}
	needle := strings.ToLower(strings.TrimSpace(q.Q))
	out := &Suggestions{Query: q.Q, Suggestions: []string{}}
	if needle == "" {
		out.Suggestions = s.matchingDefaults("", limit)
		return out, nil
	}

	tasks, _, err := s.tasks.List(ctx, domain.TaskQuery{Search: needle, Order: domain.OrderLatest})
	if err != nil {
		return nil, err
	}
	users, _, err := s.users.List(ctx, domain.UserQuery{Search: needle})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	add := func(v string) {
		if v == "" || seen[v] || len(out.Suggestions) >= limit {
			return
		}
		seen[v] = true
		out.Suggestions = append(out.Suggestions, v)
	}
	for _, t := range tasks {
		add(t.Title)
	}
	for _, u := range users {
		add(u.Name)
	}
	if len(out.Suggestions) == 0 {
		out.Suggestions = s.matchingDefaults(needle, limit)
	}
	return out, nil
}

// Inspirations returns up to the limit of the configured prompts in random order.
func (s *service) Inspirations(_ context.Context, q InspirationQuery) (*Inspirations, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultInspirationLimit
	}
	prompts := append([]string{}, s.inspirations...)
	s.shuffle(len(prompts), func(i, j int) { prompts[i], prompts[j] = prompts[j], prompts[i] })
	if len(prompts) > limit {
		prompts = prompts[:limit]
	}
	return &Inspirations{Prompts: prompts}, nil
}

func (s *service) matchingCurated(needle string) []Result {
	needle = strings.ToLower(needle)
	var out []Result
	for _, c := range s.curated {
		hay := strings.ToLower(c.Title + " " + c.Snippet + " " + c.Type)
		if !strings.Contains(hay, needle) {
			continue
		}
		c.Metadata = map[string]any{}
		out = append(out, c)
	}
	return out
}

func (s *service) matchingDefaults(needle string, limit int) []string {
	out := []string{}
	for _, d := range s.defaults {
		if len(out) == limit {
			break
		}
		if strings.Contains(strings.ToLower(d), needle) {
			out = append(out, d)
		}
	}
	return out
}

func (s *service) taskResult(ctx context.Context, t *domain.Task, names map[string]string) (Result, error) {
	owner, err := s.userName(ctx, t.OwnerID, names)
	if err != nil {
		return Result{}, err
	}
	var assignee *string
	if t.AssigneeID != nil {
		name, err := s.userName(ctx, *t.AssigneeID, names)
		if err != nil {
			return Result{}, err
		}
		assignee = name
	}
	snippet := ""
	if t.Description != nil {
		snippet = truncate(*t.Description, snippetLimit)
	}
	return Result{
		ID:      "task-" + t.TaskID,
		Type:    "task",
		Title:   t.Title,
		Snippet: snippet,
		URL:     "/tasks/" + t.Slug,
		Metadata: map[string]any{
			"status":   t.Status,
			"priority": t.Priority,
			"owner":    owner,
			"assignee": assignee,
			"due_date": t.DueDate,
		},
	}, nil
}

// userName returns nil for accounts that no longer exist.
func (s *service) userName(ctx context.Context, userID string, names map[string]string) (*string, error) {
	if name, ok := names[userID]; ok {
		return &name, nil
	}
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	names[userID] = u.Name
	return &u.Name, nil
}

func userResult(u *domain.User) Result {
	return Result{
		ID:      "user-" + u.UserID,
		Type:    "user",
		Title:   u.Name,
		Snippet: "Role: " + headline(u.Role) + " · " + u.Email,
		URL:     "/admin/users/" + u.UserID,
		Metadata: map[string]any{
			"role":   u.Role,
			"status": u.Status(),
		},
	}
}

func headline(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	return cases.Title(language.English).String(strings.Join(words, " "))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
