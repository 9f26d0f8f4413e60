package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/higher/admin-access/internal/api"
	"github.com/higher/admin-access/internal/api/handler"
	"github.com/higher/admin-access/internal/core/ports"
	"github.com/higher/admin-access/internal/core/service"
	"github.com/higher/admin-access/internal/infrastructure/config"
	"github.com/higher/admin-access/internal/infrastructure/db/mongo"
	"github.com/higher/admin-access/internal/infrastructure/db/postgres"
	"github.com/higher/admin-access/internal/infrastructure/db/redis"
	"github.com/higher/admin-access/internal/infrastructure/queue"
	"github.com/higher/admin-access/internal/infrastructure/security"
	"github.com/higher/admin-access/pkg/logger"
)

// @title                       Admin Access API
// @version                     1.0
// @description                 Authentication and capability-based access control for the admin backend.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLog.Fatal().Err(err).Msg("load configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "admin-access",
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// --- Relational store ---
	db, err := postgres.Connect(ctx, postgres.Config{
		URL:             cfg.Postgres.URL,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer closeDB(db, log)

	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}

	users := postgres.NewUserRepository(db, cfg.StoreTimeout)
	grants := postgres.NewGrantRepository(db, cfg.StoreTimeout)

	readiness := map[string]handler.DependencyCheck{
		"postgres": db.PingContext,
	}

	// --- Security ---
	hasher := security.NewBcryptHasher(cfg.Auth.BcryptCost)
	tokens, err := security.NewJWTManager([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	// --- Token revocation (optional) ---
	var revocations ports.RevocationStore
	if cfg.Redis.Addr != "" {
		rdb, err := redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Timeout:  cfg.StoreTimeout,
		})
		if err != nil {
			return err
		}
		defer closeRedis(rdb, log)

		revocations = redis.NewRevocationStore(rdb, tokens.TTL())
		readiness["redis"] = redis.Ping(rdb)
	} else {
		log.Warn().Msg("REDIS_ADDR not set, token revocation disabled")
	}

	// --- Audit trail (optional) ---
	var audit ports.AuditRecorder = queue.NopRecorder{}
	if cfg.Mongo.URI != "" {
		client, mdb, err := mongo.Connect(ctx, mongo.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			AppName:  "admin-access",
			Timeout:  cfg.StoreTimeout,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := mongo.Disconnect(client, cfg.ShutdownTimeout); err != nil {
				log.Error().Err(err).Msg("mongo disconnect")
			}
		}()

		repo := mongo.NewAuditRepository(mdb)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return err
		}

		dispatcher := queue.NewAuditDispatcher(cfg.Audit.Workers, repo, logger.Component("audit"))
		dispatcher.Start()
		// Runs before the client disconnect above so queued events are flushed.
		defer dispatcher.Close()

		audit = dispatcher
		readiness["mongodb"] = mongo.Ping(client)
	} else {
		log.Warn().Msg("MONGO_URI not set, audit trail disabled")
	}

	// --- Services ---
	opts := []service.Option{
		service.WithSuperAdminEmail(cfg.Auth.SuperAdminEmail),
		service.WithMinPasswordLength(cfg.Auth.PasswordMinLength),
	}
	authService := service.NewAuthService(users, grants, hasher, tokens, revocations, audit, logger.Component("auth"), opts...)
	accessService := service.NewAccessService(users, grants, audit, logger.Component("access"), opts...)

	if err := service.NewBootstrap(users, hasher, logger.Component("bootstrap"), opts...).
		EnsureSuperAdmin(ctx, cfg.Auth.SuperAdminPassword, cfg.Auth.SuperAdminPhone); err != nil {
		return err
	}

	// --- HTTP ---
	e := api.NewRouter(api.Deps{
		AuthService:   authService,
		AccessService: accessService,
		Readiness:     readiness,
		Log:           log,
		CORSOrigins:   cfg.CORSOrigins,
		BodyLimit:     cfg.BodyLimit,

		CredentialRate:  rate.Limit(cfg.Auth.CredentialRate),
		CredentialBurst: cfg.Auth.CredentialBurst,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	log.Info().Msg("server stopped")
	return nil
}

func closeDB(db *sql.DB, log zerolog.Logger) {
	if err := db.Close(); err != nil {
		log.Error().Err(err).Msg("postgres close")
	}
}

func closeRedis(rdb *goredis.Client, log zerolog.Logger) {
	if err := rdb.Close(); err != nil {
		log.Error().Err(err).Msg("redis close")
	}
}
