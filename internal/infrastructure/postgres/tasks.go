package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/auirah-api/internal/domain"
)

const taskColumns = `id, title, slug, description, status, priority, due_date::text, completed_at,
	owner_id, assignee_id, labels, created_at, updated_at`

// TaskRepo persists tasks in Postgres.
type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

func (r *TaskRepo) Create(ctx context.Context, t *domain.Task) error {
	const query = `
		INSERT INTO tasks (id, title, slug, description, status, priority, due_date, completed_at,
			owner_id, assignee_id, labels, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::text::date, $8, $9, $10, $11, $12, $13)`
	labels := t.Labels
	if labels == nil {
		labels = []string{}
	}
	_, err := r.pool.Exec(ctx, query,
		t.TaskID, t.Title, t.Slug, t.Description, t.Status, t.Priority, t.DueDate, t.CompletedAt,
		t.OwnerID, t.AssigneeID, labels, t.CreatedAt, t.UpdatedAt,
	)
	return uniqueErr(err)
}

func (r *TaskRepo) Get(ctx context.Context, taskID string) (*domain.Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, taskID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("task not found: %w", domain.ErrNotFound)
	}
	return t, err
}

func (r *TaskRepo) List(ctx context.Context, q domain.TaskQuery) ([]domain.Task, int, error) {
	conds := []string{}
	args := []any{}
	add := func(format string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(format, len(args)))
	}
	if q.Status != "" {
		add("status = $%d", q.Status)
	}
	if q.Priority != "" {
		add("priority = $%d", q.Priority)
	}
	if q.OwnerID != "" {
		add("owner_id = $%d", q.OwnerID)
	}
	if q.AssigneeID != "" {
		add("assignee_id = $%d", q.AssigneeID)
	}
	if q.Search != "" {
		args = append(args, "%"+escapeLike(q.Search)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(title ILIKE $%d OR description ILIKE $%d OR EXISTS (SELECT 1 FROM unnest(labels) l WHERE l ILIKE $%d))", n, n, n))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM tasks`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := ` ORDER BY created_at DESC, id DESC`
	if q.Order == domain.OrderDueDate {
		order = ` ORDER BY due_date ASC NULLS LAST, updated_at DESC`
	}
	query := `SELECT ` + taskColumns + ` FROM tasks` + where + order
	if q.Limit > 0 {
		args = append(args, q.Limit, q.Offset)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, total, rows.Err()
}

func (r *TaskRepo) Update(ctx context.Context, taskID string, c domain.TaskChanges) (*domain.Task, error) {
	sets := []string{}
	args := []any{}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if c.Title != nil {
		add("title", *c.Title)
	}
	if c.Slug != nil {
		add("slug", *c.Slug)
	}
	if c.Description != nil {
		add("description", *c.Description)
	}
	if c.Status != nil {
		add("status", *c.Status)
	}
	if c.Priority != nil {
		add("priority", *c.Priority)
	}
	if c.DueDate != nil {
		args = append(args, *c.DueDate)
		sets = append(sets, fmt.Sprintf("due_date = $%d::text::date", len(args)))
	}
	if c.CompletedAt != nil {
		add("completed_at", *c.CompletedAt)
	}
	if c.OwnerID != nil {
		add("owner_id", *c.OwnerID)
	}
	if c.AssigneeID != nil {
		add("assignee_id", *c.AssigneeID)
	}
	if c.Labels != nil {
		add("labels", c.Labels)
	}
	add("updated_at", time.Now().UTC())
	args = append(args, taskID)

	query := fmt.Sprintf(`UPDATE tasks SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), taskColumns)
	t, err := scanTask(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("task not found: %w", domain.ErrNotFound)
		}
		return nil, uniqueErr(err)
	}
	return t, nil
}

func (r *TaskRepo) Delete(ctx context.Context, taskID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, taskID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task not found: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *TaskRepo) DeleteByOwner(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE owner_id = $1`, userID)
	return err
}

func (r *TaskRepo) ClearAssignee(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `UPDATE tasks SET assignee_id = NULL, updated_at = now() WHERE assignee_id = $1`, userID)
	return err
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var t domain.Task
	err := row.Scan(
		&t.TaskID, &t.Title, &t.Slug, &t.Description, &t.Status, &t.Priority, &t.DueDate, &t.CompletedAt,
		&t.OwnerID, &t.AssigneeID, &t.Labels, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
