package challengehandlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Black-And-White-Club/frolf-bot-shared/observability/attr"
	challengeservice "github.com/Black-And-White-Club/promptduel/app/modules/challenge/application"
	"go.opentelemetry.io/otel/trace"
)

type challengeView struct {
	ID       int64  `json:"id"`
	ImageURL string `json:"image_url"`
	Prompt   string `json:"prompt"`
}

// ChallengeHandlers serves the challenge HTTP routes.
type ChallengeHandlers struct {
	service challengeservice.Service
	logger  *slog.Logger
	tracer  trace.Tracer
}

func NewChallengeHandlers(service challengeservice.Service, logger *slog.Logger, tracer trace.Tracer) *ChallengeHandlers {
	return &ChallengeHandlers{service: service, logger: logger, tracer: tracer}
}

// HandleList returns every challenge ordered by id.
func (h *ChallengeHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ChallengeHandlers.HandleList")
	defer span.End()

	challenges, err := h.service.ListChallenges(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list challenges", attr.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	views := make([]challengeView, 0, len(challenges))
	for _, c := range challenges {
		views = append(views, challengeView{ID: c.ID, ImageURL: c.ImageURL, Prompt: c.Prompt})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success":    true,
		"challenges": views,
	})
}
