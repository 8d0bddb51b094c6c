package leaderboardhandlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Black-And-White-Club/frolf-bot-shared/observability/attr"
	authdomain "github.com/Black-And-White-Club/promptduel/app/modules/auth/domain"
	leaderboardservice "github.com/Black-And-White-Club/promptduel/app/modules/leaderboard/application"
	"go.opentelemetry.io/otel/trace"
)

// LeaderboardHandlers serves the public standings and the admin recalculation.
type LeaderboardHandlers struct {
	service leaderboardservice.Service
	logger  *slog.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

func NewLeaderboardHandlers(service leaderboardservice.Service, logger *slog.Logger, tracer trace.Tracer) *LeaderboardHandlers {
	return &LeaderboardHandlers{service: service, logger: logger, tracer: tracer, now: time.Now}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (h *LeaderboardHandlers) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "LeaderboardHandlers.HandleLeaderboard")
	defer span.End()

	entries, err := h.service.GetLeaderboard(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to load leaderboard", attr.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "leaderboard": entries})
}

func (h *LeaderboardHandlers) HandleChart(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "LeaderboardHandlers.HandleChart")
	defer span.End()

	img, err := h.service.RenderChart(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to render leaderboard chart", attr.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.Header().Set("Cache-Control", "no-store")
	w.Write(img)
}

func (h *LeaderboardHandlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "LeaderboardHandlers.HandleExport")
	defer span.End()

	book, err := h.service.ExportXLSX(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to export leaderboard", attr.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	name := fmt.Sprintf("leaderboard-%s.xlsx", h.now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.Header().Set("Content-Length", strconv.Itoa(len(book)))
	w.Write(book)
}

// HandleRecalculate rebuilds every total from submission history.
func (h *LeaderboardHandlers) HandleRecalculate(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "LeaderboardHandlers.HandleRecalculate")
	defer span.End()

	identity, ok := authdomain.IdentityFromContext(ctx)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ticket, err := h.service.ScheduleRecalculation(ctx, identity.ID)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to schedule recalculation",
			attr.Int64("user_id", identity.ID),
			attr.Error(err),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if ticket.Queued {
		status = http.StatusAccepted
	}
	writeJSON(w, status, map[string]any{"success": true, "recalculation": ticket})
}
