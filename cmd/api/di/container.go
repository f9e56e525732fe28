package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"user-crud-service/cmd/api/infrastructure"
	"user-crud-service/internal/adapter/cache"
	"user-crud-service/internal/adapter/db/gormstore"
	ginhandler "user-crud-service/internal/adapter/gin/handler"
	"user-crud-service/internal/adapter/gin/middleware"
	ginrouter "user-crud-service/internal/adapter/gin/router"
	"user-crud-service/internal/adapter/repository/cached"
	"user-crud-service/internal/config"
	"user-crud-service/internal/usecase/user"
	redisclient "user-crud-service/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config        *config.Config
	Logger        *zap.Logger
	Store         *gormstore.Store
	RedisClient   *redisclient.Client
	UserUC        user.Usecase
	RateLimiter   *middleware.RateLimiter
	UserHandler   *ginhandler.UserHandler
	HealthHandler *ginhandler.HealthHandler
	Router        *gin.Engine
}

// NewContainer creates and initializes all application dependencies.
// The schema is migrated here, before any request can be served.
func NewContainer(ctx context.Context, cfg *config.Config, l *zap.Logger) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	c := &Container{Config: cfg, Logger: l}

	db, err := infrastructure.NewDatabase(cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	c.Store = gormstore.NewStore(db, l)

	if err := c.Store.Migrate(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	c.RedisClient, err = infrastructure.NewRedisClient(cfg, l)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}

	var repo user.Repository = gormstore.NewUserRepo(c.Store, l)
	var rawRedis *goredis.Client
	if c.RedisClient != nil {
		rawRedis = c.RedisClient.Client
		userCache := cache.NewRedisUserCache(rawRedis, time.Duration(cfg.Redis.CacheTTL)*time.Second, l)
		repo = cached.NewCachedUserRepository(repo, userCache, l)
	}

	c.UserUC = user.New(repo, l)

	if cfg.RateLimit.Enabled {
		c.RateLimiter = middleware.NewRateLimiter(rawRedis, middleware.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstCapacity:     cfg.RateLimit.BurstCapacity,
			Enabled:           true,
		}, l)
	}

	deps := map[string]ginhandler.Pinger{"database": c.Store}
	if c.RedisClient != nil {
		deps["redis"] = c.RedisClient
	}

	c.UserHandler = ginhandler.NewUserHandler(c.UserUC, l)
	c.HealthHandler = ginhandler.NewHealthHandler(deps, l)
	c.Router = ginrouter.SetupRouter(c.UserHandler, c.HealthHandler, ginrouter.Options{
		RateLimiter:    c.RateLimiter,
		SwaggerEnabled: cfg.App.SwaggerEnabled,
	}, l)

	return c, nil
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	var errs []error

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	return errors.Join(errs...)
}
