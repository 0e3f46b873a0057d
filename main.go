package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pemaismais/Projeto-LerDort-backend/internal/config"
	"github.com/pemaismais/Projeto-LerDort-backend/internal/database"
	"github.com/pemaismais/Projeto-LerDort-backend/internal/identity"
	"github.com/pemaismais/Projeto-LerDort-backend/internal/oidc"
	"github.com/pemaismais/Projeto-LerDort-backend/internal/tokens"
	"github.com/pemaismais/Projeto-LerDort-backend/internal/users"
	"github.com/pemaismais/Projeto-LerDort-backend/pkg/logger"
	"github.com/pemaismais/Projeto-LerDort-backend/pkg/metrics"
	"github.com/pemaismais/Projeto-LerDort-backend/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

const connectAttempts = 5

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer func() { _ = logger.Sync() }()
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: store=%s auth_mode=%s issuer=%s redis=%v", cfg.Store.Driver, cfg.Auth.Mode, cfg.OIDC.Issuer(), cfg.Redis.Host != "")

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	zone, err := cfg.JWT.Location()
	if err != nil {
		logger.Fatalf("%v", err)
	}
	codec, err := tokens.NewCodec(cfg.JWT.Secret, cfg.JWT.Issuer, zone)
	if err != nil {
		logger.Fatalf("token codec: %v", err)
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatalf("identity store: %v", err)
	}
	defer st.close()
	userSvc := users.NewService(st.repo)

	verifier, err := database.Retry(ctx, "oidc provider", connectAttempts, time.Second, func(ctx context.Context) (*oidc.Verifier, error) {
		return oidc.NewVerifier(ctx, cfg.OIDC.Issuer(), cfg.OIDC.ClientID, cfg.OIDC.Timeout)
	})
	if err != nil {
		logger.Fatalf("oidc verifier: %v", err)
	}

	var authenticator middleware.Authenticator
	switch cfg.Auth.Mode {
	case config.AuthModeProvider:
		authenticator = identity.NewProviderAuthenticator(verifier, userSvc)
	default:
		authenticator = identity.NewSelfIssuedAuthenticator(codec, userSvc)
	}
	identitySvc := identity.NewService(verifier, userSvc, codec, cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL)

	// Redis is optional and only used by the distributed rate limiter
	var rdb *redis.Client
	if cfg.RateLimit.Enabled && cfg.RateLimit.UseRedis && cfg.Redis.Host != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
		} else {
			logger.Infof("connected to Redis for rate limiting: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
		defer func() { _ = rdb.Close() }()
	}

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)

	checks := map[string]readinessCheck{"store": st.ping}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	r := setupRouter(routerDeps{
		cfg:           cfg,
		authenticator: authenticator,
		identity:      identitySvc,
		users:         userSvc,
		redis:         rdb,
		checks:        checks,
	})

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("starting identity service on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case sig := <-quit:
		logger.Infof("received %s, shutting down", sig)
	case err := <-serverErr:
		logger.Errorf("server failed: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
	logger.Info("server stopped")
}

// store is the identity repository selected by STORE_DRIVER plus its
// readiness probe and cleanup.
type store struct {
	repo  users.Repository
	ping  readinessCheck
	close func()
}

func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	switch cfg.Store.Driver {
	case "mongo":
		client, err := database.Retry(ctx, "MongoDB", connectAttempts, time.Second, func(ctx context.Context) (*mongo.Client, error) {
			return database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		})
		if err != nil {
			return nil, err
		}
		repo := users.NewMongoRepository(client.Database(cfg.MongoDB.Database).Collection("users"))
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("ensure user indexes: %w", err)
		}
		logger.Infof("identity store: MongoDB database=%s", cfg.MongoDB.Database)
		return &store{
			repo:  repo,
			ping:  func(ctx context.Context) error { return client.Ping(ctx, nil) },
			close: func() { _ = client.Disconnect(context.Background()) },
		}, nil
	case "postgres":
		pool, err := database.Retry(ctx, "PostgreSQL", connectAttempts, time.Second, func(ctx context.Context) (*pgxpool.Pool, error) {
			return database.ConnectPostgres(ctx, cfg.Postgres.URL, 10*time.Second)
		})
		if err != nil {
			return nil, err
		}
		repo := users.NewPostgresRepository(pool)
		if err := repo.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate users table: %w", err)
		}
		logger.Infof("identity store: PostgreSQL")
		return &store{repo: repo, ping: pool.Ping, close: pool.Close}, nil
	case "memory":
		logger.Warnf("identity store: in-memory, identities are lost on restart")
		return &store{
			repo:  users.NewMemoryRepository(),
			ping:  func(context.Context) error { return nil },
			close: func() {},
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
