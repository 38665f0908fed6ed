package http

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/auirah-api/internal/application/notification"
	jwtinfra "github.com/auirah-api/internal/infrastructure/jwt"
	"github.com/auirah-api/internal/infrastructure/metrics"
	"github.com/auirah-api/internal/infrastructure/ratelimit"
	"github.com/auirah-api/internal/infrastructure/store"
	appmiddleware "github.com/auirah-api/internal/transport/http/middleware"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo    store.UserRepository
	TaskRepo    store.TaskRepository
	TokenRepo   store.TokenRepository
	Limiter     ratelimit.Limiter
	Notifier    notification.Dispatcher
	JWTProvider *jwtinfra.Provider
	Metrics     metrics.Recorder
	// IPLimiter throttles the passcode endpoints per client address. The
	// caller owns it and stops it on shutdown. Nil skips the per-IP throttle.
	IPLimiter *appmiddleware.RateLimiter
	// MetricsHandler serves /metrics. Nil leaves the route unmounted.
	MetricsHandler http.Handler
	Logger         *zap.Logger
}
