package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/soulkun/soulkun-backend/internal/http/handlers"
	httpMW "github.com/soulkun/soulkun-backend/internal/http/middleware"
	"github.com/soulkun/soulkun-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	AuthMiddleware *httpMW.AuthMiddleware
	HealthHandler  *httpH.HealthHandler
	JobHandler     *httpH.JobHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Healthz)
		r.GET("/readyz", cfg.HealthHandler.Readyz)
	}

	ops := r.Group("/ops")
	{
		if cfg.AuthMiddleware != nil {
			ops.Use(cfg.AuthMiddleware.RequireServiceToken())
		}
		if cfg.JobHandler != nil {
			ops.POST("/jobs/:type", cfg.JobHandler.EnqueueJob)
			ops.GET("/jobs/:id", cfg.JobHandler.GetJob)
		}
	}

	return r
}
