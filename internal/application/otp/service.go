package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/auirah-api/internal/application/session"
	"github.com/auirah-api/internal/domain"
	"github.com/auirah-api/internal/infrastructure/metrics"
	"github.com/auirah-api/internal/infrastructure/ratelimit"
)

// Defaults applied when ServiceDeps leaves a knob at zero.
const (
	DefaultTTL           = 10 * time.Minute
	DefaultMaxAttempts   = 5
	DefaultRequestLimit  = 5
	DefaultRequestWindow = 600 * time.Second

	// conflictRetries bounds how often a lost compare-and-set is re-evaluated.
	conflictRetries = 3
)

// Client-facing messages.
const (
	MsgIssued          = "A one-time passcode has been generated. Check your trusted channel to continue."
	MsgThrottled       = "Too many OTP requests. Please try again in %d seconds."
	MsgUnknownEmail    = "The selected email is invalid."
	MsgExpired         = "The one-time passcode has expired. Request a new code to continue."
	MsgTooManyAttempts = "Too many failed attempts. Request a new code to continue."
	MsgInvalid         = "Invalid code. Please double-check and try again."
)

type RequestInput struct {
	Email    string
	ClientIP string
}

// Challenge describes an outstanding code. DemoCode is nil in production.
type Challenge struct {
	ExpiresAt time.Time
	DemoCode  *string
}

type VerifyInput struct {
	Email      string
	Code       string
	DeviceName string
}

// Login is the result of a successful verification.
type Login struct {
	Token     string
	Abilities []string
	User      *domain.User
}

type Service interface {
	Request(ctx context.Context, in RequestInput) (*Challenge, error)
	Verify(ctx context.Context, in VerifyInput) (*Login, error)
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	SaveOTPState(ctx context.Context, userID string, expectedVersion int64, st domain.OTPState) error
}

type tokenIssuer interface {
	Issue(ctx context.Context, u *domain.User, deviceName string) (*session.Issued, error)
}

type notifier interface {
	SendOTP(ctx context.Context, u *domain.User, code string, expiresAt time.Time) error
}

type service struct {
	users         userStore
	limiter       ratelimit.Limiter
	sessions      tokenIssuer
	notifier      notifier
	metrics       metrics.Recorder
	log           *zap.Logger
	production    bool
	ttl           time.Duration
	maxAttempts   int
	requestLimit  int
	requestWindow time.Duration
	hashCost      int
	now           func() time.Time
}

type ServiceDeps struct {
	UserRepo userStore
	Limiter  ratelimit.Limiter
	Sessions tokenIssuer
	Notifier notifier
	Metrics  metrics.Recorder
	Logger   *zap.Logger

	// Production hides the plaintext code from responses and logs.
	Production    bool
	TTL           time.Duration
	MaxAttempts   int
	RequestLimit  int
	RequestWindow time.Duration
	HashCost      int
	Now           func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		users:         deps.UserRepo,
		limiter:       deps.Limiter,
		sessions:      deps.Sessions,
		notifier:      deps.Notifier,
		metrics:       deps.Metrics,
		log:           deps.Logger,
		production:    deps.Production,
		ttl:           deps.TTL,
		maxAttempts:   deps.MaxAttempts,
		requestLimit:  deps.RequestLimit,
		requestWindow: deps.RequestWindow,
		hashCost:      deps.HashCost,
		now:           deps.Now,
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = DefaultMaxAttempts
	}
	if s.requestLimit <= 0 {
		s.requestLimit = DefaultRequestLimit
	}
	if s.requestWindow <= 0 {
		s.requestWindow = DefaultRequestWindow
	}
	if s.hashCost == 0 {
		s.hashCost = bcrypt.DefaultCost
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Request issues a fresh code, replacing any outstanding one and resetting the attempt counter.
func (s *service) Request(ctx context.Context, in RequestInput) (*Challenge, error) {
	email := domain.NormalizeEmail(in.Email)
	u, err := s.lookup(ctx, email)
	if err != nil {
		s.recordRequest(err)
		return nil, err
	}

	dec, err := s.limiter.Attempt(ctx, rateLimitKey(email, in.ClientIP), s.requestLimit, s.requestWindow)
	if err != nil {
		s.metrics.RecordOTPRequest(metrics.ResultError)
		return nil, fmt.Errorf("otp rate limiter: %w: %w", domain.ErrUnavailable, err)
	}
	if !dec.Allowed {
		s.metrics.RecordOTPRequest(metrics.ResultThrottled)
		te := &domain.ThrottledError{RetryAfter: dec.RetryAfter}
		te.Message = fmt.Sprintf(MsgThrottled, te.RetryAfterSeconds())
		return nil, te
	}

	code, err := generateCode()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash otp: %w", err)
	}
	secret := string(hash)
	expiresAt := s.now().UTC().Add(s.ttl)
	st := domain.OTPState{Secret: &secret, ExpiresAt: &expiresAt}

	for attempt := 1; ; attempt++ {
		err = s.users.SaveOTPState(ctx, u.UserID, u.Version, st)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrConflict) || attempt == conflictRetries {
			s.metrics.RecordOTPRequest(metrics.ResultError)
			return nil, err
		}
		if u, err = s.lookup(ctx, email); err != nil {
			return nil, err
		}
	}

	var demo *string
	if !s.production {
		demo = &code
	}
	s.log.Info("OTP issued for user.",
		zap.String("user_id", u.UserID),
		zap.String("email", u.Email),
		zap.Time("expires_at", expiresAt),
		zap.Stringp("demo_code", demo),
	)

	if err := s.notifier.SendOTP(ctx, u, code, expiresAt); err != nil {
		s.log.Warn("OTP delivery failed", zap.String("user_id", u.UserID), zap.Error(err))
	}

	s.metrics.RecordOTPRequest(metrics.ResultIssued)
	return &Challenge{ExpiresAt: expiresAt, DemoCode: demo}, nil
}

// Verify redeems a code. The checks run in a fixed order: expiry, attempt cap,
// then the hash comparison. Each outcome is persisted with a version-checked
// write; a lost race re-reads the account and evaluates again.
func (s *service) Verify(ctx context.Context, in VerifyInput) (*Login, error) {
	email := domain.NormalizeEmail(in.Email)
	for attempt := 1; ; attempt++ {
		u, err := s.lookup(ctx, email)
		if err != nil {
			s.recordVerification(err)
			return nil, err
		}

		now := s.now().UTC()
		st := u.OTP()
		if !st.Active(now) {
			s.metrics.RecordOTPVerification(metrics.ResultExpired)
			return nil, domain.Errorf(domain.ErrOTPExpired, MsgExpired)
		}
		if st.Attempts >= s.maxAttempts {
			s.metrics.RecordOTPVerification(metrics.ResultTooManyAttempts)
			return nil, domain.Errorf(domain.ErrOTPTooManyAttempts, MsgTooManyAttempts)
		}

		if bcrypt.CompareHashAndPassword([]byte(*st.Secret), []byte(in.Code)) != nil {
			failed := st
			failed.Attempts++
			err := s.users.SaveOTPState(ctx, u.UserID, u.Version, failed)
			if errors.Is(err, domain.ErrConflict) {
				if attempt < conflictRetries {
					continue
				}
				return nil, s.settle(ctx, email, in.Code)
			}
			if err != nil {
				return nil, err
			}
			s.metrics.RecordOTPVerification(metrics.ResultInvalid)
			return nil, domain.Errorf(domain.ErrOTPInvalid, MsgInvalid)
		}

		cleared := domain.OTPState{VerifiedAt: &now}
		err = s.users.SaveOTPState(ctx, u.UserID, u.Version, cleared)
		if errors.Is(err, domain.ErrConflict) {
			if attempt < conflictRetries {
				continue
			}
			return nil, s.settle(ctx, email, in.Code)
		}
		if err != nil {
			return nil, err
		}
		u.ApplyOTP(cleared)

		issued, err := s.sessions.Issue(ctx, u, in.DeviceName)
		if err != nil {
			return nil, err
		}
		s.metrics.RecordOTPVerification(metrics.ResultVerified)
		return &Login{Token: issued.Bearer, Abilities: issued.Token.Abilities, User: u}, nil
	}
}

// settle evaluates the stored state one last time after every write lost its
// race. Usually a competing request consumed or replaced the code, so the
// caller sees the same outcome as if it had arrived second.
func (s *service) settle(ctx context.Context, email, code string) error {
	u, err := s.lookup(ctx, email)
	if err != nil {
		s.recordVerification(err)
		return err
	}
	st := u.OTP()
	switch {
	case !st.Active(s.now().UTC()):
		s.metrics.RecordOTPVerification(metrics.ResultExpired)
		return domain.Errorf(domain.ErrOTPExpired, MsgExpired)
	case st.Attempts >= s.maxAttempts:
		s.metrics.RecordOTPVerification(metrics.ResultTooManyAttempts)
		return domain.Errorf(domain.ErrOTPTooManyAttempts, MsgTooManyAttempts)
	case bcrypt.CompareHashAndPassword([]byte(*st.Secret), []byte(code)) != nil:
		s.metrics.RecordOTPVerification(metrics.ResultInvalid)
		return domain.Errorf(domain.ErrOTPInvalid, MsgInvalid)
	}
	s.metrics.RecordOTPVerification(metrics.ResultError)
	return fmt.Errorf("otp state kept changing: %w", domain.ErrUnavailable)
}

func (s *service) lookup(ctx context.Context, email string) (*domain.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Errorf(domain.ErrNotFound, MsgUnknownEmail)
	}
	return u, err
}

func (s *service) recordRequest(err error) {
	if errors.Is(err, domain.ErrNotFound) {
		s.metrics.RecordOTPRequest(metrics.ResultUnknownEmail)
		return
	}
	s.metrics.RecordOTPRequest(metrics.ResultError)
}

func (s *service) recordVerification(err error) {
	if errors.Is(err, domain.ErrNotFound) {
		s.metrics.RecordOTPVerification(metrics.ResultUnknownEmail)
		return
	}
	s.metrics.RecordOTPVerification(metrics.ResultError)
}
