package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/fraudguard-backend/internal/http/handlers"
	httpMW "github.com/yungbote/fraudguard-backend/internal/http/middleware"
	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string
	// MLSecret guards /api/internal. Empty rejects every callback.
	MLSecret string

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler   *httpH.HealthHandler
	CallbackHandler *httpH.CallbackHandler
	DatasetHandler  *httpH.DatasetHandler
	JobHandler      *httpH.JobHandler
	ResultHandler   *httpH.ResultHandler
	ExplainHandler  *httpH.ExplainHandler
	SettingsHandler *httpH.SettingsHandler
	AuditHandler    *httpH.AuditHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.AttachRequestContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))
	r.MaxMultipartMemory = 8 << 20

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	// ML worker callbacks
	if cfg.CallbackHandler != nil {
		internal := r.Group("/api/internal", httpMW.RequireMLSecret(cfg.MLSecret))
		internal.POST("/ml-results", cfg.CallbackHandler.Results)
		internal.POST("/ml-explain", cfg.CallbackHandler.Explanations)
		internal.POST("/ml-heartbeat", cfg.CallbackHandler.Heartbeat)
	}

	if cfg.AuthMiddleware == nil {
		return r
	}
	api := r.Group("/api", cfg.AuthMiddleware.RequireAuth())
	privileged := httpMW.RequireRole("admin", "analyst")
	adminOnly := httpMW.RequireRole("admin")

	// Datasets
	if cfg.DatasetHandler != nil {
		api.POST("/datasets", cfg.DatasetHandler.Upload)
		api.GET("/datasets", cfg.DatasetHandler.List)
		api.GET("/datasets/:id", cfg.DatasetHandler.Get)
		api.DELETE("/datasets/:id", cfg.DatasetHandler.Delete)
		api.POST("/datasets/:id/process", cfg.DatasetHandler.Reprocess)
	}

	// Jobs
	if cfg.JobHandler != nil {
		jobs := api.Group("/jobs", privileged)
		jobs.GET("", cfg.JobHandler.List)
		jobs.GET("/:id", cfg.JobHandler.Get)
		jobs.POST("/:id/retry", cfg.JobHandler.Retry)
	}

	// Results + dashboard
	if cfg.ResultHandler != nil {
		api.GET("/fraud-results", cfg.ResultHandler.List)
		api.GET("/fraud-results/geo-summary", cfg.ResultHandler.GeoSummary)
		api.GET("/fraud-results/vendor-summary", cfg.ResultHandler.VendorSummary)
		api.GET("/fraud-results/time-series", cfg.ResultHandler.TimeSeries)
		api.GET("/fraud-results/anomalies", cfg.ResultHandler.Anomalies)
		api.GET("/fraud-results/:id", cfg.ResultHandler.Get)
		api.GET("/dashboard/stats", cfg.ResultHandler.Stats)
		api.GET("/dashboard/recent", cfg.ResultHandler.Recent)
	}

	// Explainability
	if cfg.ExplainHandler != nil {
		api.GET("/explain/:transaction_id", cfg.ExplainHandler.Show)
		api.GET("/explain/:transaction_id/narrative", cfg.ExplainHandler.Narrative)
		api.GET("/explain/:transaction_id/features", cfg.ExplainHandler.Features)
	}

	// Settings
	if cfg.SettingsHandler != nil {
		api.GET("/settings", cfg.SettingsHandler.Get)
		api.PUT("/settings/thresholds", adminOnly, cfg.SettingsHandler.UpdateThresholds)
		api.PUT("/settings/alerts", adminOnly, cfg.SettingsHandler.UpdateAlerts)
		api.PUT("/settings/vendor-rules", adminOnly, cfg.SettingsHandler.UpdateVendorRules)
		api.POST("/settings/ml/test", privileged, cfg.SettingsHandler.TestMLConnection)
	}

	// Audit
	if cfg.AuditHandler != nil {
		api.GET("/audit-logs", adminOnly, cfg.AuditHandler.List)
	}

	return r
}
