// Package store selects and opens the persistence backend named by STORE_DRIVER.
package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/auirah-api/internal/config"
	"github.com/auirah-api/internal/domain"
	"github.com/auirah-api/internal/infrastructure/dynamo"
	"github.com/auirah-api/internal/infrastructure/memory"
	"github.com/auirah-api/internal/infrastructure/postgres"
)

// UserRepository is implemented by every backend's user store.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, q domain.UserQuery) ([]domain.User, int, error)
	Update(ctx context.Context, userID string, c domain.UserChanges) (*domain.User, error)
	// SaveOTPState is a compare-and-set on the account version.
	SaveOTPState(ctx context.Context, userID string, expectedVersion int64, st domain.OTPState) error
	Delete(ctx context.Context, userID string) error
}

// TaskRepository is implemented by every backend's task store.
type TaskRepository interface {
	Create(ctx context.Context, t *domain.Task) error
	Get(ctx context.Context, taskID string) (*domain.Task, error)
	List(ctx context.Context, q domain.TaskQuery) ([]domain.Task, int, error)
	Update(ctx context.Context, taskID string, c domain.TaskChanges) (*domain.Task, error)
	Delete(ctx context.Context, taskID string) error
	DeleteByOwner(ctx context.Context, userID string) error
	ClearAssignee(ctx context.Context, userID string) error
}

// TokenRepository is implemented by every backend's access-token store.
type TokenRepository interface {
	Put(ctx context.Context, t *domain.AccessToken) error
	Get(ctx context.Context, tokenID string) (*domain.AccessToken, error)
	Delete(ctx context.Context, tokenID string) error
	DeleteByUser(ctx context.Context, userID string) error
}

var (
	_ UserRepository  = (*dynamo.UserRepo)(nil)
	_ UserRepository  = (*postgres.UserRepo)(nil)
	_ UserRepository  = (*memory.UserRepo)(nil)
	_ TaskRepository  = (*dynamo.TaskRepo)(nil)
	_ TaskRepository  = (*postgres.TaskRepo)(nil)
	_ TaskRepository  = (*memory.TaskRepo)(nil)
	_ TokenRepository = (*dynamo.TokenRepo)(nil)
	_ TokenRepository = (*postgres.TokenRepo)(nil)
	_ TokenRepository = (*memory.TokenRepo)(nil)
)

// Stores is one backend's set of repositories.
type Stores struct {
	Users  UserRepository
	Tasks  TaskRepository
	Tokens TokenRepository
	close  func()
}

// Close releases connections held by the backend.
func (s *Stores) Close() {
	if s.close != nil {
		s.close()
	}
}

// Memory returns process-local stores.
func Memory() *Stores {
	return &Stores{
		Users:  memory.NewUserRepo(),
		Tasks:  memory.NewTaskRepo(),
		Tokens: memory.NewTokenRepo(),
	}
}

// Open connects the backend named by cfg.StoreDriver. DynamoDB tables are
// created when missing; Postgres migrations run when DATABASE_MIGRATE is set.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Stores, error) {
	switch cfg.StoreDriver {
	case "dynamo":
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables, log)
		return &Stores{
			Users:  dynamo.NewUserRepo(client, cfg.DynamoTables.Users),
			Tasks:  dynamo.NewTaskRepo(client, cfg.DynamoTables.Tasks),
			Tokens: dynamo.NewTokenRepo(client, cfg.DynamoTables.Tokens),
		}, nil

	case "postgres":
		if cfg.DatabaseMigrate {
			if err := postgres.RunMigrations(cfg.DatabaseURL); err != nil {
				return nil, err
			}
			log.Info("database migrations applied")
		}
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &Stores{
			Users:  postgres.NewUserRepo(pool),
			Tasks:  postgres.NewTaskRepo(pool),
			Tokens: postgres.NewTokenRepo(pool),
			close:  pool.Close,
		}, nil

	case "memory":
		log.Warn("using in-memory stores; data is lost on restart")
		return Memory(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
