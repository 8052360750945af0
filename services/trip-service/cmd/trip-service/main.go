package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/lmeineke/tripsync/libs/auth"
	"github.com/lmeineke/tripsync/libs/config"
	"github.com/lmeineke/tripsync/libs/db"
	"github.com/lmeineke/tripsync/libs/httpx"
	"github.com/lmeineke/tripsync/libs/kafkax"
	otelx "github.com/lmeineke/tripsync/libs/otel"
	"github.com/lmeineke/tripsync/libs/runtime"
	"github.com/lmeineke/tripsync/services/trip-service/internal/availability"
	"github.com/lmeineke/tripsync/services/trip-service/internal/groups"
	"github.com/lmeineke/tripsync/services/trip-service/internal/handlers"
	"github.com/lmeineke/tripsync/services/trip-service/internal/identity"
	"github.com/lmeineke/tripsync/services/trip-service/internal/outbox"
	"github.com/lmeineke/tripsync/services/trip-service/internal/storage/postgres"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "trip-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	outboxRepo := outbox.NewRepository(pool)
	groupStore := postgres.NewGroupStore(pool, outboxRepo)
	availabilityStore := postgres.NewAvailabilityStore(pool, outboxRepo)
	identityStore := postgres.NewIdentityStore(pool, outboxRepo)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: config.Seconds("OUTBOX_POLL_SECONDS", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go outboxPublisher.Run(ctx)

	identitySvc := identity.NewService(identityStore, groupStore, logger)
	groupSvc := groups.NewService(groupStore, config.Days("INVITE_TTL_DAYS", 7*24*time.Hour), logger)
	availabilitySvc := availability.NewService(availabilityStore, groupStore, logger)

	var verifier handlers.TokenVerifier
	if jwksURL := config.String("AUTH_JWKS_URL", ""); jwksURL != "" {
		verifier = handlers.JWKSVerifier{Keys: auth.NewJWKSClient(jwksURL, config.Seconds("AUTH_JWKS_TTL_SECONDS", 10*time.Minute))}
	} else {
		secret, err := config.RequiredString("AUTH_HS256_SECRET")
		if err != nil {
			panic(err)
		}
		verifier = handlers.HS256Verifier{Secret: secret}
	}

	server := handlers.NewServer(identitySvc, groupSvc, availabilitySvc, verifier, logger, handlers.ServerConfig{
		PublicBaseURL: config.String("PUBLIC_BASE_URL", "http://localhost:5173"),
		VoiceEnabled:  config.Bool("VOICE_MOCK_ENABLED", false),
	})

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	server.Register(mux)

	rateLimit := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	var limit httpx.Middleware
	if redisAddr := config.String("REDIS_ADDR", ""); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		defer rdb.Close()
		limit = httpx.NewRedisRateLimiter(rdb, rateLimit, time.Minute, service).
			Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
	} else {
		limit = httpx.NewRateLimiter(rateLimit, time.Minute).Middleware()
	}

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   strings.Split(config.String("CORS_ORIGINS", "http://localhost:5173"), ","),
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Actor-Id"},
			AllowCredentials: true,
			MaxAge:           10 * time.Minute,
		}),
		limit,
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(config.Seconds("REQUEST_TIMEOUT_SECONDS", 15*time.Second)),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "trip")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
