package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Gpanazio/brickreview-sub001/internal/db"
	"github.com/Gpanazio/brickreview-sub001/internal/dispatch"
	"github.com/Gpanazio/brickreview-sub001/internal/domain"
	"github.com/Gpanazio/brickreview-sub001/internal/pipeline"
)

// VideoStore is the persistence surface the handlers need.
type VideoStore interface {
	Create(ctx context.Context, video *domain.VideoAsset) error
	GetByID(ctx context.Context, id int64) (*domain.VideoAsset, error)
	ListByProject(ctx context.Context, projectID int64, limit int) ([]*domain.VideoAsset, error)
}

// FailureStore reads failure records.
type FailureStore interface {
	ListByVideo(ctx context.Context, videoID int64) ([]*domain.ProcessingFailure, error)
}

// Dispatcher hands pipeline jobs off for processing.
type Dispatcher interface {
	Dispatch(ctx context.Context, job domain.PipelineJob) (*dispatch.Task, error)
}

// ObjectStore is the slice of the storage client the API needs.
type ObjectStore interface {
	PublicURL(key string) string
	Exists(ctx context.Context, key string) (bool, error)
	Health(ctx context.Context) error
}

// Pinger checks a backing service.
type Pinger interface {
	Health(ctx context.Context) error
}

// Handler holds API dependencies
type Handler struct {
	videos     VideoStore
	failures   FailureStore
	dispatcher Dispatcher
	store      ObjectStore
	database   Pinger
	logger     *zap.Logger
}

// NewHandler creates a new handler
func NewHandler(
	videos VideoStore,
	failures FailureStore,
	dispatcher Dispatcher,
	store ObjectStore,
	database Pinger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		videos:     videos,
		failures:   failures,
		dispatcher: dispatcher,
		store:      store,
		database:   database,
		logger:     logger,
	}
}

// RegisterVideoRequest represents the request to register an uploaded video
type RegisterVideoRequest struct {
	ProjectID int64  `json:"projectId"`
	Filename  string `json:"filename"`
	SourceKey string `json:"sourceKey,omitempty"`
}

// RegisterVideoResponse represents the response after registering a video
type RegisterVideoResponse struct {
	Video  *domain.VideoAsset `json:"video"`
	Queued bool               `json:"queued"`
}

// FailureResponse represents one recorded failure
type FailureResponse struct {
	Stage     domain.Stage `json:"stage"`
	Message   string       `json:"message"`
	CreatedAt time.Time    `json:"createdAt"`
}

// RegisterVideo creates a video record for an uploaded source file and
// dispatches its first processing run.
func (h *Handler) RegisterVideo(w http.ResponseWriter, r *http.Request) {
	var req RegisterVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ProjectID <= 0 {
		h.writeError(w, http.StatusBadRequest, "projectId is required")
		return
	}
	if req.Filename == "" {
		h.writeError(w, http.StatusBadRequest, "filename is required")
		return
	}

	ctx := r.Context()

	sourceKey := req.SourceKey
	if sourceKey == "" {
		sourceKey = pipeline.OriginalKey(req.ProjectID, req.Filename)
	} else {
		// A caller-supplied key points at an object that should already be
		// in the bucket. Catch dangling references here instead of letting
		// the run fail at the download stage.
		exists, err := h.store.Exists(ctx, sourceKey)
		if err != nil {
			h.logger.Error("failed to check source object", zap.Error(err))
			h.writeError(w, http.StatusInternalServerError, "failed to check source object")
			return
		}
		if !exists {
			h.writeError(w, http.StatusNotFound, "source object not found")
			return
		}
	}

	video := &domain.VideoAsset{
		ProjectID: req.ProjectID,
		Filename:  req.Filename,
		SourceKey: sourceKey,
		SourceURL: h.store.PublicURL(sourceKey),
		Status:    domain.StatusUploaded,
	}

	if err := h.videos.Create(ctx, video); err != nil {
		h.logger.Error("failed to create video", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to create video")
		return
	}

	task, err := h.dispatcher.Dispatch(ctx, domain.PipelineJob{
		VideoID:   video.ID,
		SourceKey: video.SourceKey,
		ProjectID: video.ProjectID,
	})
	if err != nil {
		h.logger.Error("failed to dispatch job",
			zap.Int64("video_id", video.ID), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to dispatch processing")
		return
	}

	h.logger.Info("video registered",
		zap.Int64("video_id", video.ID),
		zap.Int64("project_id", video.ProjectID),
		zap.Bool("queued", task.Queued()))

	h.writeJSON(w, http.StatusCreated, RegisterVideoResponse{
		Video:  video,
		Queued: task.Queued(),
	})
}

// ProcessVideo dispatches a processing run for an existing video, used to
// reprocess a failed or stale record.
func (h *Handler) ProcessVideo(w http.ResponseWriter, r *http.Request) {
	videoID, ok := h.videoID(w, r)
	if !ok {
		return
	}

	ctx := r.Context()

	video, err := h.videos.GetByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "video not found")
			return
		}
		h.logger.Error("failed to get video", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to get video")
		return
	}

	if video.Status == domain.StatusProcessing {
		h.writeError(w, http.StatusConflict, "video is already being processed")
		return
	}

	task, err := h.dispatcher.Dispatch(ctx, domain.PipelineJob{
		VideoID:   video.ID,
		SourceKey: video.SourceKey,
		ProjectID: video.ProjectID,
	})
	if err != nil {
		h.logger.Error("failed to dispatch job",
			zap.Int64("video_id", video.ID), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to dispatch processing")
		return
	}

	h.writeJSON(w, http.StatusAccepted, map[string]any{
		"videoId": video.ID,
		"queued":  task.Queued(),
	})
}

// GetVideo returns a video record
func (h *Handler) GetVideo(w http.ResponseWriter, r *http.Request) {
	videoID, ok := h.videoID(w, r)
	if !ok {
		return
	}

	video, err := h.videos.GetByID(r.Context(), videoID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "video not found")
			return
		}
		h.logger.Error("failed to get video", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to get video")
		return
	}

	h.writeJSON(w, http.StatusOK, video)
}

// ListVideos lists a project's videos
func (h *Handler) ListVideos(w http.ResponseWriter, r *http.Request) {
	projectID, err := strconv.ParseInt(r.URL.Query().Get("projectId"), 10, 64)
	if err != nil || projectID <= 0 {
		h.writeError(w, http.StatusBadRequest, "projectId query parameter is required")
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	videos, err := h.videos.ListByProject(r.Context(), projectID, limit)
	if err != nil {
		h.logger.Error("failed to list videos", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to list videos")
		return
	}
	if videos == nil {
		videos = []*domain.VideoAsset{}
	}

	h.writeJSON(w, http.StatusOK, videos)
}

// ListFailures returns the failure history of a video
func (h *Handler) ListFailures(w http.ResponseWriter, r *http.Request) {
	videoID, ok := h.videoID(w, r)
	if !ok {
		return
	}

	ctx := r.Context()

	if _, err := h.videos.GetByID(ctx, videoID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "video not found")
			return
		}
		h.logger.Error("failed to get video", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to get video")
		return
	}

	failures, err := h.failures.ListByVideo(ctx, videoID)
	if err != nil {
		h.logger.Error("failed to list failures", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to list failures")
		return
	}

	response := make([]*FailureResponse, 0, len(failures))
	for _, f := range failures {
		response = append(response, &FailureResponse{
			Stage:     f.Stage,
			Message:   f.Message,
			CreatedAt: f.CreatedAt,
		})
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HealthCheck returns health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := map[string]string{
		"status": "healthy",
	}

	if err := h.database.Health(ctx); err != nil {
		h.logger.Error("database health check failed", zap.Error(err))
		status["database"] = "unhealthy"
		status["status"] = "unhealthy"
	} else {
		status["database"] = "healthy"
	}

	if err := h.store.Health(ctx); err != nil {
		h.logger.Error("object storage health check failed", zap.Error(err))
		status["storage"] = "unhealthy"
		status["status"] = "unhealthy"
	} else {
		status["storage"] = "healthy"
	}

	statusCode := http.StatusOK
	if status["status"] == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	h.writeJSON(w, statusCode, status)
}

// ReadyCheck returns readiness status
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := map[string]string{
		"status": "ready",
	}

	if err := h.database.Health(ctx); err != nil {
		status["status"] = "not ready"
		status["database"] = "not connected"
	}
	if err := h.store.Health(ctx); err != nil {
		status["status"] = "not ready"
		status["storage"] = "not connected"
	}

	statusCode := http.StatusOK
	if status["status"] != "ready" {
		statusCode = http.StatusServiceUnavailable
	}

	h.writeJSON(w, statusCode, status)
}

func (h *Handler) videoID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "videoID"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "invalid video ID")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
