package app

import (
	"github.com/gin-gonic/gin"

	fghttp "github.com/yungbote/fraudguard-backend/internal/http"
	httpH "github.com/yungbote/fraudguard-backend/internal/http/handlers"
	httpMW "github.com/yungbote/fraudguard-backend/internal/http/middleware"
	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health   *httpH.HealthHandler
	Callback *httpH.CallbackHandler
	Dataset  *httpH.DatasetHandler
	Job      *httpH.JobHandler
	Result   *httpH.ResultHandler
	Explain  *httpH.ExplainHandler
	Settings *httpH.SettingsHandler
	Audit    *httpH.AuditHandler
}

func wireMiddleware(log *logger.Logger, s Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{Auth: httpMW.NewAuthMiddleware(log, s.Tokens)}
}

func wireHandlers(log *logger.Logger, db httpH.Pinger, s Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(db),
		Callback: httpH.NewCallbackHandler(log, s.Callbacks),
		Dataset:  httpH.NewDatasetHandler(log, s.Datasets),
		Job:      httpH.NewJobHandler(s.Jobs),
		Result:   httpH.NewResultHandler(s.Dashboard),
		Explain:  httpH.NewExplainHandler(s.Explanations),
		Settings: httpH.NewSettingsHandler(s.Settings),
		Audit:    httpH.NewAuditHandler(s.Audit),
	}
}

func wireRouter(log *logger.Logger, cfg Config, h Handlers, mw Middleware) *gin.Engine {
	return fghttp.NewRouter(fghttp.RouterConfig{
		Log:             log,
		ServiceName:     cfg.Otel.ServiceName,
		CORSOrigins:     cfg.CORSOrigins,
		MLSecret:        cfg.ML.Secret,
		AuthMiddleware:  mw.Auth,
		HealthHandler:   h.Health,
		CallbackHandler: h.Callback,
		DatasetHandler:  h.Dataset,
		JobHandler:      h.Job,
		ResultHandler:   h.Result,
		ExplainHandler:  h.Explain,
		SettingsHandler: h.Settings,
		AuditHandler:    h.Audit,
	})
}
