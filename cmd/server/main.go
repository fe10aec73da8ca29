// @title        Account Service API
// @version      1.0
// @description  User accounts, sessions with rotating refresh tokens, profiles and channel views.
// @BasePath     /api/v1
// @securityDefinitions.apikey BearerAuth
// @in   header
// @name Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"github.com/99minutos/account-service/internal/api"
	"github.com/99minutos/account-service/internal/api/handler"
	"github.com/99minutos/account-service/internal/core/service"
	"github.com/99minutos/account-service/internal/infrastructure/config"
	"github.com/99minutos/account-service/internal/infrastructure/db/mongo"
	"github.com/99minutos/account-service/internal/infrastructure/db/redis"
	"github.com/99minutos/account-service/internal/infrastructure/hasher"
	"github.com/99minutos/account-service/internal/infrastructure/queue"
	"github.com/99minutos/account-service/internal/infrastructure/storage/s3"
	"github.com/99minutos/account-service/internal/infrastructure/token"
	"github.com/99minutos/account-service/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func setupMongo(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*mongodriver.Client, *mongodriver.Database) {
	client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	return client, db
}

func setupRedis(ctx context.Context, cfg *config.Config, log zerolog.Logger) *goredis.Client {
	client, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	return client
}

func setupAssetHost(ctx context.Context, cfg *config.Config, log zerolog.Logger) *s3.AssetHost {
	s3cfg := s3.Config{
		Bucket:        cfg.S3.Bucket,
		Region:        cfg.S3.Region,
		Endpoint:      cfg.S3.Endpoint,
		AccessKey:     cfg.S3.AccessKey,
		SecretKey:     cfg.S3.SecretKey,
		PublicBaseURL: cfg.S3.PublicBaseURL,
	}
	client, err := s3.NewClient(ctx, s3cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create s3 client")
	}
	return s3.NewAssetHost(client, s3cfg, log)
}

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	ctx := context.Background()
	cfg := config.MustLoad(ctx)

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "account-service",
	})
	log.Info().Str("env", cfg.Env).Str("port", cfg.Port).Msg("application starting")

	mongoClient, db := setupMongo(ctx, cfg, log)
	redisClient := setupRedis(ctx, cfg, log)

	users := mongo.NewUserRepository(db)
	channels := mongo.NewChannelRepository(db)
	history := mongo.NewWatchHistoryRepository(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to create user indexes")
	}
	if err := channels.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to create subscription indexes")
	}

	assets := setupAssetHost(ctx, cfg, log)
	evictor := queue.NewEvictor(cfg.Evictions.Workers, assets, log)
	evictor.Start(ctx)

	codec, err := token.NewCodec(token.Config{
		AccessSecret:  cfg.Token.AccessSecret,
		AccessTTL:     cfg.Token.AccessTTL.Duration(),
		RefreshSecret: cfg.Token.RefreshSecret,
		RefreshTTL:    cfg.Token.RefreshTTL.Duration(),
	}, clockwork.NewRealClock())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create token codec")
	}

	sessions := service.NewSessionService(service.SessionDeps{
		Users:    users,
		Hasher:   hasher.NewBcrypt(cfg.Security.BcryptCost),
		Tokens:   codec,
		Assets:   assets,
		Evictor:  evictor,
		Throttle: redis.NewLoginThrottle(redisClient, cfg.Security.LoginMaxAttempts, cfg.Security.LoginLockout),
		Log:      log,
	})
	profiles := service.NewProfileService(users, channels, history, assets, evictor, log)

	e := api.NewRouter(cfg, api.Deps{
		Sessions: sessions,
		Profiles: profiles,
		Tokens:   codec,
		Checks: map[string]handler.DependencyCheck{
			"mongodb": handler.MongoCheck(db),
			"redis":   handler.RedisCheck(redisClient),
		},
		Log: log,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()
	log.Info().Msg("shutdown signal received, cleaning up")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	// Pending evictions run after the server stops accepting requests.
	evictor.Stop()

	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("mongodb disconnect error")
	}
	if err := redisClient.Close(); err != nil {
		log.Error().Err(err).Msg("redis close error")
	}
	log.Info().Msg("shutdown complete")
}
