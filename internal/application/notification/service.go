package notification

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/auirah-api/internal/domain"
	"github.com/auirah-api/internal/infrastructure/smtp"
	"github.com/auirah-api/internal/infrastructure/sns"
)

// Dispatcher delivers passcodes to an account's trusted channel.
type Dispatcher interface {
	SendOTP(ctx context.Context, u *domain.User, code string, expiresAt time.Time) error
}

type dispatcher struct {
	sms    sns.SMSSender
	mailer smtp.Mailer
	log    *zap.Logger
}

// ServiceDeps wires the channels. A nil sender disables that channel.
type ServiceDeps struct {
	SMS    sns.SMSSender
	Mailer smtp.Mailer
	Logger *zap.Logger
}

func NewDispatcher(deps ServiceDeps) Dispatcher {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &dispatcher{sms: deps.SMS, mailer: deps.Mailer, log: log}
}

// SendOTP prefers SMS when the account has a phone number, then email.
// With neither channel configured the code is only logged at debug level by id.
func (d *dispatcher) SendOTP(ctx context.Context, u *domain.User, code string, expiresAt time.Time) error {
	body := fmt.Sprintf("Your Auirah sign-in code is %s. It expires at %s UTC.", code, expiresAt.UTC().Format("15:04"))

	if d.sms != nil && u.Phone != nil && *u.Phone != "" {
		if err := d.sms.SendSMS(ctx, *u.Phone, body); err != nil {
			return fmt.Errorf("sms delivery: %w", err)
		}
		return nil
	}
	if d.mailer != nil {
		if err := d.mailer.SendEmail(u.Email, "Your Auirah sign-in code", body); err != nil {
			return fmt.Errorf("email delivery: %w", err)
		}
		return nil
	}
	d.log.Debug("no delivery channel configured", zap.String("user_id", u.UserID))
	return nil
}
