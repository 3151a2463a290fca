package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
	"github.com/yungbote/fraudguard-backend/internal/services"
)

type Services struct {
	Audit        services.AuditService
	Settings     services.SettingsService
	Dispatcher   services.Dispatcher
	Executor     services.DispatchExecutor
	Datasets     services.DatasetService
	Jobs         services.JobService
	Callbacks    services.CallbackService
	Dashboard    services.DashboardService
	Explanations services.ExplanationService
	Tokens       services.TokenVerifier
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, c Clients) Services {
	log.Info("Wiring services...")
	urls := services.NewCallbackURLs(cfg.PublicBaseURL)

	audit := services.NewAuditService(log, r.AuditLog)
	settings := services.NewSettingsService(db, log, r.Setting, audit, c.ML, services.MLServiceInfo{
		Endpoint:       cfg.ML.BaseURL,
		TimeoutSeconds: int(cfg.ML.Timeout.Seconds()),
		MaxAttempts:    cfg.Dispatch.MaxAttempts,
	})
	dispatcher := services.NewDispatcher(db, log, services.DispatchConfig{
		MaxAttempts: cfg.Dispatch.MaxAttempts,
		TaskTimeout: cfg.Dispatch.TaskTimeout,
	}, urls, r.Dataset, r.JobLog, r.DispatchTask)

	return Services{
		Audit:      audit,
		Settings:   settings,
		Dispatcher: dispatcher,
		Executor:   services.NewDispatchExecutor(db, log, c.ML, urls, r.Dataset, r.JobLog, audit, c.Cache),
		Datasets:   services.NewDatasetService(db, log, r.Dataset, r.JobLog, c.Storage, dispatcher, audit, c.Cache),
		Jobs:       services.NewJobService(db, log, r.JobLog, r.Dataset, dispatcher, audit),
		Callbacks: services.NewCallbackService(db, log, services.CallbackConfig{
			RequestExplanations: cfg.Dispatch.RequestExplanations,
		}, r.Dataset, r.JobLog, r.FraudResult, r.FraudExplanation, dispatcher, audit, c.Cache),
		Dashboard:    services.NewDashboardService(log, r.Dataset, r.JobLog, r.FraudResult, r.FraudExplanation, settings, c.Cache),
		Explanations: services.NewExplanationService(log, r.FraudExplanation, r.Dataset),
		Tokens:       services.NewTokenVerifier(log, cfg.JWTSecretKey),
	}
}
