package submissionhandlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Black-And-White-Club/frolf-bot-shared/observability/attr"
	authdomain "github.com/Black-And-White-Club/promptduel/app/modules/auth/domain"
	submissionservice "github.com/Black-And-White-Club/promptduel/app/modules/submission/application"
	"go.opentelemetry.io/otel/trace"
)

// SubmissionHandlers serves the submit and attempt history routes. Every
// route expects an identity placed on the context by the auth middleware.
type SubmissionHandlers struct {
	service submissionservice.Service
	logger  *slog.Logger
	tracer  trace.Tracer
}

func NewSubmissionHandlers(service submissionservice.Service, logger *slog.Logger, tracer trace.Tracer) *SubmissionHandlers {
	return &SubmissionHandlers{service: service, logger: logger, tracer: tracer}
}

type submitRequest struct {
	ChallengeID json.Number `json:"challengeId"`
	UserPrompt  string      `json:"userPrompt"`
}

var failureStatus = map[submissionservice.FailureCode]int{
	submissionservice.CodeInvalidPrompt:       http.StatusBadRequest,
	submissionservice.CodeChallengeNotFound:   http.StatusNotFound,
	submissionservice.CodeNoAttemptsRemaining: http.StatusConflict,
	submissionservice.CodeGenerationFailed:    http.StatusBadGateway,
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{"success": false, "code": code, "error": message})
}

// HandleSubmit runs the scoring pipeline for one attempt.
func (h *SubmissionHandlers) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SubmissionHandlers.HandleSubmit")
	defer span.End()

	identity, ok := authdomain.IdentityFromContext(ctx)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, string(submissionservice.CodeInvalidPrompt), "challengeId (number) and non-empty userPrompt are required")
		return
	}
	challengeID, err := req.ChallengeID.Int64()
	if err != nil {
		writeError(w, http.StatusBadRequest, string(submissionservice.CodeInvalidPrompt), "challengeId (number) and non-empty userPrompt are required")
		return
	}

	result, err := h.service.Submit(ctx, submissionservice.SubmitRequest{
		ChallengeID: challengeID,
		UserPrompt:  req.UserPrompt,
		User:        submissionservice.User{ID: identity.ID, Username: identity.Username},
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "HTTP Submit failed",
			attr.Int64("user_id", identity.ID),
			attr.Int64("challenge_id", challengeID),
			attr.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal", "internal server error")
		return
	}
	if result.IsFailure() {
		failure := *result.Failure
		status, ok := failureStatus[failure.Code]
		if !ok {
			status = http.StatusBadRequest
		}
		writeError(w, status, string(failure.Code), failure.Reason)
		return
	}

	resp := *result.Success
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"submission": map[string]any{
			"id":                  resp.SubmissionID,
			"score":               resp.Score,
			"generated_image_url": resp.GeneratedImageURL,
		},
		"attemptsUsed":      resp.AttemptsUsed,
		"attemptsRemaining": resp.AttemptsRemaining,
		"canSubmit":         resp.CanSubmit,
		"totalScore":        resp.TotalScore,
		"newPersonalBest":   resp.NewPersonalBest,
	})
}

// HandleCounts reports attempts for one challenge (?challengeId=) or all.
func (h *SubmissionHandlers) HandleCounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := authdomain.IdentityFromContext(ctx)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if raw := r.URL.Query().Get("challengeId"); raw != "" {
		challengeID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid challengeId", http.StatusBadRequest)
			return
		}
		count, err := h.service.GetAttemptCount(ctx, identity.ID, challengeID)
		if err != nil {
			h.logger.ErrorContext(ctx, "Failed to get attempt count", attr.Error(err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":           true,
			"attemptsUsed":      count.AttemptsUsed,
			"attemptsRemaining": count.AttemptsRemaining,
			"canSubmit":         count.CanSubmit,
		})
		return
	}

	counts, err := h.service.ListAttemptCounts(ctx, identity.ID)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list attempt counts", attr.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "challengeCounts": counts})
}

// HandleMine lists the caller's latest submissions.
func (h *SubmissionHandlers) HandleMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := authdomain.IdentityFromContext(ctx)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	subs, err := h.service.ListMySubmissions(ctx, identity.ID)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list submissions", attr.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "submissions": subs})
}
