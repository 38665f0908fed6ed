// Command provision creates or updates an account out-of-band. It is the only
// way to create the first owner.
//
//	provision -email owner@example.com -name "Jo Owner" -role owner [-phone +15550100]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/auirah-api/internal/application/user"
	"github.com/auirah-api/internal/config"
	"github.com/auirah-api/internal/domain"
	"github.com/auirah-api/internal/infrastructure/store"
	"github.com/auirah-api/internal/pkg/logging"
	"github.com/auirah-api/internal/pkg/validate"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	st, err := store.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open stores", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer st.Close()

	svc := user.NewService(user.ServiceDeps{UserRepo: st.Users, TaskRepo: st.Tasks})
	if err := run(ctx, svc, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "provision failed:", err)
		os.Exit(1)
	}
}

type provisioner interface {
	Provision(ctx context.Context, req domain.CreateUserRequest) (*domain.User, bool, error)
}

func run(ctx context.Context, svc provisioner, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("provision", flag.ContinueOnError)
	fs.SetOutput(out)
	email := fs.String("email", "", "account email (required)")
	name := fs.String("name", "", "display name (required)")
	role := fs.String("role", domain.RoleOwner, "one of "+strings.Join(domain.Roles, ", "))
	phone := fs.String("phone", "", "phone number for SMS delivery")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req := domain.CreateUserRequest{
		Name:  strings.TrimSpace(*name),
		Email: domain.NormalizeEmail(*email),
		Role:  *role,
	}
	if p := strings.TrimSpace(*phone); p != "" {
		req.Phone = &p
	}
	if err := validate.Struct(&req); err != nil {
		return err
	}

	u, created, err := svc.Provision(ctx, req)
	if err != nil {
		return err
	}
	verb := "updated"
	if created {
		verb = "created"
	}
	fmt.Fprintf(out, "%s %s <%s> role=%s id=%s\n", verb, u.Name, u.Email, u.Role, u.UserID)
	return nil
}
