package observability

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/yungbote/fraudguard-backend"

// Tracer resolves against the global provider, so it is a no-op until InitOTel runs.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}
