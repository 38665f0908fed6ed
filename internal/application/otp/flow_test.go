package otp

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/auirah-api/internal/application/session"
	"github.com/auirah-api/internal/domain"
	jwtinfra "github.com/auirah-api/internal/infrastructure/jwt"
	"github.com/auirah-api/internal/infrastructure/memory"
	"github.com/auirah-api/internal/infrastructure/ratelimit"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type sentCode struct {
	userID string
	code   string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentCode
}

func (n *recordingNotifier) SendOTP(_ context.Context, u *domain.User, code string, _ time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentCode{userID: u.UserID, code: code})
	return nil
}

func (n *recordingNotifier) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent[len(n.sent)-1].code
}

var flowKey = func() *rsa.PrivateKey {
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	return k
}()

type flow struct {
	svc      Service
	sessions session.Service
	users    *memory.UserRepo
	tokens   *memory.TokenRepo
	clock    *clock
	notifier *recordingNotifier
	logs     *observer.ObservedLogs
}

func newFlow(t *testing.T, production bool) *flow {
	t.Helper()
	f := &flow{
		users:    memory.NewUserRepo(),
		tokens:   memory.NewTokenRepo(),
		clock:    &clock{now: time.Date(2030, 3, 1, 9, 0, 0, 0, time.UTC)},
		notifier: &recordingNotifier{},
	}
	core, logs := observer.New(zap.InfoLevel)
	f.logs = logs
	f.sessions = session.NewService(session.ServiceDeps{
		TokenRepo:   f.tokens,
		UserRepo:    f.users,
		JWTProvider: jwtinfra.NewProviderFromKey(flowKey),
		Now:         f.clock.Now,
	})
	f.svc = NewService(ServiceDeps{
		UserRepo:   f.users,
		Limiter:    ratelimit.NewMemory(f.clock.Now),
		Sessions:   f.sessions,
		Notifier:   f.notifier,
		Logger:     zap.New(core),
		Production: production,
		HashCost:   bcrypt.MinCost,
		Now:        f.clock.Now,
	})
	require.NoError(t, f.users.Create(context.Background(), &domain.User{
		UserID: "u-owner",
		Name:   "Grace",
		Email:  "grace@example.com",
		Role:   domain.RoleOwner,
	}))
	return f
}

func (f *flow) request(t *testing.T) *Challenge {
	t.Helper()
	ch, err := f.svc.Request(context.Background(), RequestInput{Email: "grace@example.com", ClientIP: "192.0.2.1"})
	require.NoError(t, err)
	return ch
}

func (f *flow) verify(code string) (*Login, error) {
	return f.svc.Verify(context.Background(), VerifyInput{Email: "grace@example.com", Code: code})
}

func TestFlow_CodeRedeemsOnce(t *testing.T) {
	f := newFlow(t, false)
	ch := f.request(t)

	login, err := f.verify(*ch.DemoCode)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.AbilityAll}, login.Abilities)
	assert.Nil(t, login.User.OTPSecret)
	assert.NotNil(t, login.User.OTPVerifiedAt)

	p, err := f.sessions.Authenticate(context.Background(), login.Token)
	require.NoError(t, err)
	assert.Equal(t, "u-owner", p.User.UserID)

	_, err = f.verify(*ch.DemoCode)
	assert.ErrorIs(t, err, domain.ErrOTPExpired)
}

func TestFlow_CodeExpiresAfterTTL(t *testing.T) {
	f := newFlow(t, false)
	ch := f.request(t)

	f.clock.Advance(DefaultTTL + time.Second)
	_, err := f.verify(*ch.DemoCode)
	assert.ErrorIs(t, err, domain.ErrOTPExpired)
}

func TestFlow_SixthRequestThrottledUntilWindowPasses(t *testing.T) {
	f := newFlow(t, false)
	for i := 0; i < DefaultRequestLimit; i++ {
		f.request(t)
		f.clock.Advance(time.Second)
	}

	_, err := f.svc.Request(context.Background(), RequestInput{Email: "GRACE@example.com", ClientIP: "192.0.2.1"})
	var te *domain.ThrottledError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 595, te.RetryAfterSeconds())

	// A different client address has its own budget.
	_, err = f.svc.Request(context.Background(), RequestInput{Email: "grace@example.com", ClientIP: "192.0.2.2"})
	assert.NoError(t, err)

	f.clock.Advance(DefaultRequestWindow)
	f.request(t)
}

func TestFlow_AttemptCapHoldsEvenForCorrectCode(t *testing.T) {
	f := newFlow(t, false)
	ch := f.request(t)

	for i := 0; i < DefaultMaxAttempts; i++ {
		_, err := f.verify("000000")
		require.ErrorIs(t, err, domain.ErrOTPInvalid)
	}
	u, err := f.users.Get(context.Background(), "u-owner")
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxAttempts, u.OTPAttempts)

	_, err = f.verify(*ch.DemoCode)
	assert.ErrorIs(t, err, domain.ErrOTPTooManyAttempts)
	assert.Equal(t, 0, f.tokens.Count())
}

func TestFlow_ReissueResetsAttemptsAndInvalidatesOldCode(t *testing.T) {
	f := newFlow(t, false)
	first := f.request(t)
	for i := 0; i < 3; i++ {
		_, err := f.verify("000000")
		require.ErrorIs(t, err, domain.ErrOTPInvalid)
	}

	second := f.request(t)
	u, err := f.users.Get(context.Background(), "u-owner")
	require.NoError(t, err)
	assert.Equal(t, 0, u.OTPAttempts)

	if *first.DemoCode != *second.DemoCode {
		_, err = f.verify(*first.DemoCode)
		require.ErrorIs(t, err, domain.ErrOTPInvalid)
	}
	_, err = f.verify(*second.DemoCode)
	assert.NoError(t, err)
}

func TestFlow_DemoCodeMatchesDeliveredCode(t *testing.T) {
	f := newFlow(t, false)
	ch := f.request(t)

	assert.Len(t, *ch.DemoCode, 6)
	assert.Equal(t, *ch.DemoCode, f.notifier.last())

	u, err := f.users.Get(context.Background(), "u-owner")
	require.NoError(t, err)
	require.NotNil(t, u.OTPSecret)
	assert.NotEqual(t, *ch.DemoCode, *u.OTPSecret)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*u.OTPSecret), []byte(*ch.DemoCode)))

	entries := f.logs.FilterMessage("OTP issued for user.").All()
	require.Len(t, entries, 1)
	assert.Equal(t, *ch.DemoCode, entries[0].ContextMap()["demo_code"])
}

func TestFlow_ProductionKeepsCodeOutOfResponseAndLogs(t *testing.T) {
	f := newFlow(t, true)
	ch := f.request(t)
	assert.Nil(t, ch.DemoCode)

	code := f.notifier.last()
	entries := f.logs.FilterMessage("OTP issued for user.").All()
	require.Len(t, entries, 1)
	for _, v := range entries[0].ContextMap() {
		assert.NotEqual(t, code, v)
	}

	_, err := f.verify(code)
	assert.NoError(t, err)
}

func TestFlow_ConcurrentVerifyHasSingleWinner(t *testing.T) {
	f := newFlow(t, false)
	ch := f.request(t)

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    int
		expired int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.verify(*ch.DemoCode)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, domain.ErrOTPExpired):
				expired++
			default:
				t.Errorf("unexpected verify error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, expired)
	assert.Equal(t, 1, f.tokens.Count())
}
