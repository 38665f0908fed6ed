package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/auirah-api/internal/application/notification"
	"github.com/auirah-api/internal/config"
	jwtinfra "github.com/auirah-api/internal/infrastructure/jwt"
	"github.com/auirah-api/internal/infrastructure/metrics"
	"github.com/auirah-api/internal/infrastructure/smtp"
	"github.com/auirah-api/internal/infrastructure/sns"
	"github.com/auirah-api/internal/infrastructure/store"
	"github.com/auirah-api/internal/pkg/logging"
	transporthttp "github.com/auirah-api/internal/transport/http"
	appmiddleware "github.com/auirah-api/internal/transport/http/middleware"
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
	zap.ReplaceGlobals(logger)

	ctx := context.Background()

	st, err := store.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open stores", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer st.Close()

	limiter, stopLimiter, err := newLimiter(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("rate limiter", zap.Error(err))
	}
	defer stopLimiter()

	// 5 requests/second, burst of 10, on the unauthenticated passcode endpoints.
	ipLimiter := appmiddleware.NewRateLimiter(rate.Limit(5), 10)
	defer ipLimiter.Stop()

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		logger.Fatal("jwt provider", zap.Error(err))
	}

	// SMS is optional; email is used when it is off.
	var smsSender sns.SMSSender
	if cfg.SMSEnabled {
		if sender, err := sns.NewSender(ctx, cfg); err == nil {
			smsSender = sender
		} else {
			logger.Warn("SNS sender not available", zap.Error(err))
		}
	}
	var mailer smtp.Mailer
	if cfg.SMTPHost != "" {
		mailer = smtp.NewMailer(cfg)
	}

	notifier := notification.NewDispatcher(notification.ServiceDeps{
		SMS:    smsSender,
		Mailer: mailer,
		Logger: logger.Named("notification"),
	})

	deps := &transporthttp.Deps{
		UserRepo:    st.Users,
		TaskRepo:    st.Tasks,
		TokenRepo:   st.Tokens,
		Limiter:     limiter,
		IPLimiter:   ipLimiter,
		Notifier:    notifier,
		JWTProvider: jwtProvider,
		Logger:      logger,
	}
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		deps.Metrics = metrics.NewCollector(reg)
		deps.MetricsHandler = metrics.Handler(reg)
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.String("port", cfg.AppPort),
			zap.String("env", cfg.AppEnv),
			zap.String("store", cfg.StoreDriver),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
		return
	}
	logger.Info("server stopped")
}
