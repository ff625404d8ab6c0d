package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/enterprise/fraud-dashboard/configs"
	"github.com/enterprise/fraud-dashboard/internal/aggregation"
	"github.com/enterprise/fraud-dashboard/internal/alerts"
	"github.com/enterprise/fraud-dashboard/internal/auth"
	"github.com/enterprise/fraud-dashboard/internal/models"
	"github.com/enterprise/fraud-dashboard/internal/report"
)

// ViewSource publishes dashboard snapshots
type ViewSource interface {
	Snapshot() *aggregation.Snapshot
	Subscribe() (<-chan *aggregation.Snapshot, func())
}

// SummaryService requests and holds the current fraud summary
type SummaryService interface {
	Request(ctx context.Context, clientID string) (*models.FraudSummary, error)
	Current() *models.FraudSummary
}

// ReportService exports reports for a date range
type ReportService interface {
	Export(ctx context.Context, r report.DateRange) (*models.Report, error)
}

// AlertStats exposes alert client counters
type AlertStats interface {
	GetMetrics() alerts.Metrics
}

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// Dependencies are the services behind the operator API. Auth may be nil,
// which leaves every route open and disables login.
type Dependencies struct {
	Views     ViewSource
	Summaries SummaryService
	Reports   ReportService
	Auth      *auth.OperatorAuthenticator
	JWT       *auth.JWTManager
	Alerts    AlertStats
	Checks    map[string]HealthCheck
	// Heartbeat is the idle interval between SSE keep-alives
	Heartbeat time.Duration
}

// NewRouter builds the gin engine serving the operator API
func NewRouter(cfg configs.ServerConfig, deps Dependencies, limiter *RateLimiter) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(loggingMiddleware())
	router.Use(corsMiddleware())
	if limiter != nil {
		router.Use(rateLimitMiddleware(limiter))
	}

	heartbeat := deps.Heartbeat
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}

	router.GET("/health", healthHandler(deps.Views, deps.Alerts, deps.Checks))

	v1 := router.Group("/api/v1")

	if deps.Auth != nil {
		v1.POST("/auth/login", loginHandler(deps.Auth))
	}

	protected := v1.Group("")
	if deps.Auth != nil {
		protected.Use(auth.AuthMiddleware(deps.JWT))
	}

	protected.GET("/cases", listCasesHandler(deps.Views))
	protected.GET("/dashboard", dashboardHandler(deps.Views))
	protected.GET("/events", eventsHandler(deps.Views, heartbeat))

	views := protected.Group("/views")
	{
		views.GET("/risk-distribution", riskDistributionHandler(deps.Views))
		views.GET("/geo-concentration", geoConcentrationHandler(deps.Views))
	}

	summaries := protected.Group("/summary")
	{
		summaries.POST("", requestSummaryHandler(deps.Summaries))
		summaries.GET("", currentSummaryHandler(deps.Summaries))
	}

	protected.POST("/report", exportReportHandler(deps.Reports))

	return router
}
