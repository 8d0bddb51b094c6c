package galleryhandlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Black-And-White-Club/frolf-bot-shared/observability/attr"
	authdomain "github.com/Black-And-White-Club/promptduel/app/modules/auth/domain"
	galleryservice "github.com/Black-And-White-Club/promptduel/app/modules/gallery/application"
	"go.opentelemetry.io/otel/trace"
)

type GalleryHandlers struct {
	service galleryservice.Service
	logger  *slog.Logger
	tracer  trace.Tracer
}

func NewGalleryHandlers(service galleryservice.Service, logger *slog.Logger, tracer trace.Tracer) *GalleryHandlers {
	return &GalleryHandlers{service: service, logger: logger, tracer: tracer}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "error": message})
}

func (h *GalleryHandlers) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GalleryHandlers.HandleGenerate")
	defer span.End()

	identity, ok := authdomain.IdentityFromContext(ctx)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	img, err := h.service.Generate(ctx, galleryservice.User{ID: identity.ID, Username: identity.Username}, req.Prompt)
	switch {
	case errors.Is(err, galleryservice.ErrInvalidPrompt):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, galleryservice.ErrGenerationFailed):
		writeError(w, http.StatusBadGateway, "Image generation failed")
	case err != nil:
		h.logger.ErrorContext(ctx, "HTTP gallery generate failed", attr.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	default:
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "image": img})
	}
}

// HandleList pages through the gallery, newest first.
func (h *GalleryHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GalleryHandlers.HandleList")
	defer span.End()

	q := r.URL.Query()
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	items, err := h.service.List(ctx, offset, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list gallery", attr.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *GalleryHandlers) HandleToggleVote(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GalleryHandlers.HandleToggleVote")
	defer span.End()

	identity, ok := authdomain.IdentityFromContext(ctx)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		ImageID json.Number `json:"imageId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid imageId")
		return
	}
	imageID, err := req.ImageID.Int64()
	if err != nil || imageID <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid imageId")
		return
	}

	state, err := h.service.ToggleVote(ctx, imageID, identity.ID)
	if err != nil {
		if errors.Is(err, galleryservice.ErrImageNotFound) {
			writeError(w, http.StatusNotFound, "Image not found")
			return
		}
		h.logger.ErrorContext(ctx, "Vote toggle failed",
			attr.Int64("image_id", imageID),
			attr.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// HandleGetVote works anonymously; voted is only true for an authenticated voter.
func (h *GalleryHandlers) HandleGetVote(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GalleryHandlers.HandleGetVote")
	defer span.End()

	raw := r.URL.Query().Get("imageId")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "Missing imageId")
		return
	}
	imageID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid imageId")
		return
	}

	var userID int64
	if identity, ok := authdomain.IdentityFromContext(ctx); ok {
		userID = identity.ID
	}

	state, err := h.service.GetVoteState(ctx, imageID, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "Vote lookup failed", attr.Error(err))
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, state)
}
