package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	redisclient "github.com/soulkun/soulkun-backend/internal/clients/redis"
	"github.com/soulkun/soulkun-backend/internal/data/db"
	httpx "github.com/soulkun/soulkun-backend/internal/http"
	httpH "github.com/soulkun/soulkun-backend/internal/http/handlers"
	httpMW "github.com/soulkun/soulkun-backend/internal/http/middleware"
	"github.com/soulkun/soulkun-backend/internal/observability"
	"github.com/soulkun/soulkun-backend/internal/platform/logger"
	"github.com/soulkun/soulkun-backend/internal/services"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services

	cache        *redisclient.Client
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg := LoadConfig(log)

	ctx := context.Background()
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "soulkun-backend",
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	cache, err := redisclient.New(ctx, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, cfg, reposet, cache)

	if err := services.SeedPatternCatalog(ctx, log, reposet.GoalPatterns, cfg.GoalPatternSeedPath); err != nil {
		log.Sync()
		return nil, fmt.Errorf("seed pattern catalog: %w", err)
	}

	router := httpx.NewRouter(httpx.RouterConfig{
		Log:            log,
		AuthMiddleware: httpMW.NewAuthMiddleware(log, cfg.ServiceTokenSecret),
		HealthHandler:  httpH.NewHealthHandler(theDB),
		JobHandler:     httpH.NewJobHandler(log, reposet.JobRuns, serviceset.JobRegistry),
	})

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       router,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		cache:        cache,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the background job worker.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Services.JobWorker != nil {
		go func() {
			if err := a.Services.JobWorker.Run(ctx); err != nil && ctx.Err() == nil {
				a.Log.Error("Job worker exited", "error", err)
			}
		}()
	}
}

func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.cache != nil {
		_ = a.cache.Close()
	}
	if a.otelShutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.otelShutdown(shutdownCtx)
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
