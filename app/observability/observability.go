package observability

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/Black-And-White-Club/promptduel/config"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/Black-And-White-Club/promptduel"

// Observability bundles the logger, metrics and tracer handed to every module.
type Observability struct {
	Logger  *slog.Logger
	Metrics *Metrics
	Tracer  trace.Tracer
}

// New wires the process-wide observability stack. The tracer comes from the
// global otel provider, which is a no-op until an exporter is installed.
func New(cfg config.ObservabilityConfig) Observability {
	return Observability{
		Logger:  NewLogger(os.Stdout, cfg.Environment, cfg.LogLevel),
		Metrics: NewMetrics(prometheus.NewRegistry()),
		Tracer:  otel.Tracer(tracerName),
	}
}

// RequestIDHeader is echoed back on every response.
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware tags each request context with an id, reusing the
// caller's header when present.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), id)))
	})
}
