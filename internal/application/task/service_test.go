package task

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auirah-api/internal/domain"
	"github.com/auirah-api/internal/infrastructure/memory"
)

var fixedNow = time.Date(2030, 5, 6, 7, 8, 9, 0, time.UTC)

type fixture struct {
	svc   Service
	tasks *memory.TaskRepo
	users *memory.UserRepo
	owner *domain.User
	kid   *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{tasks: memory.NewTaskRepo(), users: memory.NewUserRepo()}
	f.svc = NewService(ServiceDeps{
		TaskRepo: f.tasks,
		UserRepo: f.users,
		Now:      func() time.Time { return fixedNow },
	})
	f.owner = f.addUser(t, "u-owner", domain.RoleOwner)
	f.kid = f.addUser(t, "u-kid", domain.RoleFamily)
	return f
}

func (f *fixture) addUser(t *testing.T, id, role string) *domain.User {
	t.Helper()
	u := &domain.User{UserID: id, Name: id, Email: id + "@example.com", Role: role}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func strPtr(s string) *string { return &s }

func TestCreate_Defaults(t *testing.T) {
	f := newFixture(t)

	v, err := f.svc.Create(context.Background(), f.owner, domain.CreateTaskRequest{
		Title:  "Water the Plants",
		Labels: []string{" garden ", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskTodo, v.Task.Status)
	assert.Equal(t, domain.PriorityMedium, v.Task.Priority)
	assert.Equal(t, f.owner.UserID, v.Task.OwnerID)
	assert.Equal(t, []string{"garden"}, v.Task.Labels)
	assert.Regexp(t, regexp.MustCompile(`^water-the-plants-[a-z0-9]{6}$`), v.Task.Slug)
	assert.Nil(t, v.Task.CompletedAt)
	require.NotNil(t, v.Owner)
	assert.Equal(t, f.owner.UserID, v.Owner.UserID)
	assert.Nil(t, v.Assignee)
}

func TestCreate_SlugUsesFirstFiftyCharacters(t *testing.T) {
	f := newFixture(t)
	title := "Reorganise the entire basement storage area before the winter holidays arrive"

	v, err := f.svc.Create(context.Background(), f.owner, domain.CreateTaskRequest{Title: title})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^reorganise-the-entire-basement-storage-area-before-[a-z0-9]{6}$`), v.Task.Slug)
}

func TestCreate_DoneStampsCompletedAt(t *testing.T) {
	f := newFixture(t)
	v, err := f.svc.Create(context.Background(), f.owner, domain.CreateTaskRequest{Title: "Done already", Status: strPtr(domain.TaskDone)})
	require.NoError(t, err)
	require.NotNil(t, v.Task.CompletedAt)
	assert.Equal(t, fixedNow, *v.Task.CompletedAt)
}

func TestCreate_ResolvesAssignee(t *testing.T) {
	f := newFixture(t)
	v, err := f.svc.Create(context.Background(), f.owner, domain.CreateTaskRequest{Title: "Homework", AssigneeID: &f.kid.UserID})
	require.NoError(t, err)
	require.NotNil(t, v.Assignee)
	assert.Equal(t, f.kid.UserID, v.Assignee.UserID)
}

func TestCreate_UnknownAssignee(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), f.owner, domain.CreateTaskRequest{Title: "x", AssigneeID: strPtr("ghost")})
	require.ErrorIs(t, err, domain.ErrValidation)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"The selected assignee id is invalid."}, ve.Fields["assignee_id"])
}

func TestCreate_RequiresManager(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), f.kid, domain.CreateTaskRequest{Title: "x"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, "Only owners and admins can create tasks.", err.Error())
}

func TestUpdate_IgnoresNullFieldsAndStampsCompletion(t *testing.T) {
	f := newFixture(t)
	v, err := f.svc.Create(context.Background(), f.owner, domain.CreateTaskRequest{
		Title:       "Laundry",
		Description: strPtr("whites"),
		Priority:    strPtr(domain.PriorityHigh),
	})
	require.NoError(t, err)

	upd, err := f.svc.Update(context.Background(), f.owner, v.Task.TaskID, domain.UpdateTaskRequest{Status: strPtr(domain.TaskDone)})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskDone, upd.Task.Status)
	assert.Equal(t, "Laundry", upd.Task.Title)
	assert.Equal(t, domain.PriorityHigh, upd.Task.Priority)
	assert.Equal(t, v.Task.Slug, upd.Task.Slug)
	require.NotNil(t, upd.Task.CompletedAt)
	assert.Equal(t, fixedNow, *upd.Task.CompletedAt)
}

func TestUpdate_RequiresManager(t *testing.T) {
	f := newFixture(t)
	v, err := f.svc.Create(context.Background(), f.owner, domain.CreateTaskRequest{Title: "Laundry"})
	require.NoError(t, err)

	_, err = f.svc.Update(context.Background(), f.kid, v.Task.TaskID, domain.UpdateTaskRequest{Title: strPtr("mine now")})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestGetAndDelete(t *testing.T) {
	f := newFixture(t)
	v, err := f.svc.Create(context.Background(), f.owner, domain.CreateTaskRequest{Title: "Dishes"})
	require.NoError(t, err)

	got, err := f.svc.Get(context.Background(), v.Task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, "Dishes", got.Task.Title)

	assert.ErrorIs(t, f.svc.Delete(context.Background(), f.kid, v.Task.TaskID), domain.ErrForbidden)
	require.NoError(t, f.svc.Delete(context.Background(), f.owner, v.Task.TaskID))

	_, err = f.svc.Get(context.Background(), v.Task.TaskID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "Task not found.", err.Error())
}

func TestList_NewestFirstWithFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i, title := range []string{"alpha", "beta", "gamma"} {
		require.NoError(t, f.tasks.Create(ctx, &domain.Task{
			TaskID:    title,
			Title:     title,
			Slug:      title,
			Status:    domain.TaskTodo,
			Priority:  domain.PriorityLow,
			OwnerID:   f.owner.UserID,
			CreatedAt: fixedNow.Add(time.Duration(i) * time.Hour),
		}))
	}

	views, total, err := f.svc.List(ctx, domain.TaskQuery{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, views, 2)
	assert.Equal(t, "gamma", views[0].Task.Title)
	assert.Equal(t, "beta", views[1].Task.Title)

	views, total, err = f.svc.List(ctx, domain.TaskQuery{Search: " ALP "})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "alpha", views[0].Task.Title)
}

func TestPublic_DueDateOrderAndLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	due := func(s string) *string { return &s }
	seed := []domain.Task{
		{TaskID: "t-none", Title: "none", UpdatedAt: fixedNow.Add(time.Hour)},
		{TaskID: "t-late", Title: "late", DueDate: due("2030-06-01"), UpdatedAt: fixedNow},
		{TaskID: "t-soon-old", Title: "soon old", DueDate: due("2030-05-10"), UpdatedAt: fixedNow},
		{TaskID: "t-soon-new", Title: "soon new", DueDate: due("2030-05-10"), UpdatedAt: fixedNow.Add(time.Minute)},
	}
	for i := range seed {
		seed[i].Slug = seed[i].TaskID
		seed[i].OwnerID = f.owner.UserID
		require.NoError(t, f.tasks.Create(ctx, &seed[i]))
	}

	views, err := f.svc.Public(ctx, domain.TaskQuery{})
	require.NoError(t, err)
	var order []string
	for _, v := range views {
		order = append(order, v.Task.TaskID)
	}
	assert.Equal(t, []string{"t-soon-new", "t-soon-old", "t-late", "t-none"}, order)

	views, err = f.svc.Public(ctx, domain.TaskQuery{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, views, 1)
}

func TestClampPublic(t *testing.T) {
	assert.Equal(t, DefaultPublicLimit, clampPublic(0))
	assert.Equal(t, 1, clampPublic(-3))
	assert.Equal(t, MaxPublicLimit, clampPublic(500))
	assert.Equal(t, 7, clampPublic(7))
}

func TestResolve_MissingOwnerYieldsNil(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.tasks.Create(context.Background(), &domain.Task{TaskID: "orphan", Title: "orphan", Slug: "orphan", OwnerID: "gone"}))

	v, err := f.svc.Get(context.Background(), "orphan")
	require.NoError(t, err)
	assert.Nil(t, v.Owner)
}
