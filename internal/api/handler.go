// Package api exposes the montage orchestrator over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"montage-orchestrator/internal/jobs"
	"montage-orchestrator/internal/ledger"
	"montage-orchestrator/internal/montage"
	"montage-orchestrator/internal/pipeline"
	"montage-orchestrator/internal/platform/metrics"
	"montage-orchestrator/internal/ratelimit"
	"montage-orchestrator/internal/storage"
)

const (
	brand             = "Tunivo.ai"
	defaultMode       = "fast"
	defaultAspect     = "16:9"
	multipartMemory   = 8 << 20
	videoContentType  = "video/mp4"
	defaultMaxUploadB = 100 << 20
	defaultRetention  = 2 * time.Hour
)

// Submitter starts a job in the background.
type Submitter interface {
	Submit(ctx context.Context, jobID string, req pipeline.Request)
}

// Handler serves the job API.
type Handler struct {
	jobs      jobs.Repository
	submitter Submitter
	accounts  *ledger.Accounts
	layout    storage.Layout
	limiter   *ratelimit.SlidingWindow
	tokens    *Tokens
	log       *slog.Logger
	metrics   *metrics.Metrics
	maxUpload int64
	retention time.Duration
	now       func() time.Time
}

// Config carries the collaborators of a Handler. Metrics may be nil to
// disable metric recording (e.g. in tests).
type Config struct {
	Jobs      jobs.Repository
	Submitter Submitter
	Accounts  *ledger.Accounts
	Layout    storage.Layout
	Limiter   *ratelimit.SlidingWindow
	Tokens    *Tokens
	Log       *slog.Logger
	Metrics   *metrics.Metrics
	// MaxUploadBytes bounds the multipart body; <= 0 means 100 MiB.
	MaxUploadBytes int64
	// Retention is how long a job rejected at upload is kept; <= 0 means two hours.
	Retention time.Duration
}

// NewHandler returns a Handler wired with cfg.
func NewHandler(cfg Config) *Handler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadB
	}
	if cfg.Log == nil {
		cfg.Log = slog.New(slog.DiscardHandler)
	}
	if cfg.Retention <= 0 {
		cfg.Retention = defaultRetention
	}
	return &Handler{
		jobs:      cfg.Jobs,
		submitter: cfg.Submitter,
		accounts:  cfg.Accounts,
		layout:    cfg.Layout,
		limiter:   cfg.Limiter,
		tokens:    cfg.Tokens,
		log:       cfg.Log,
		metrics:   cfg.Metrics,
		maxUpload: cfg.MaxUploadBytes,
		retention: cfg.Retention,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Routes registers the API endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Post("/auth/login", h.Login)
		r.Get("/credits/estimate", h.EstimateCredits)
		r.Post("/jobs", h.CreateJob)
		r.Get("/jobs/{job_id}", h.GetJob)
		r.Get("/jobs/{job_id}/download", h.DownloadJob)
	})
}

// Health handles GET /api/health.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "brand": brand})
}

// Login handles POST /api/auth/login. Body: { "email": "ann@creator.com" }.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "email must be a valid address")
		return
	}
	writeJSON(w, http.StatusOK, SessionFromEmail(req.Email))
}

// EstimateCredits handles GET /api/credits/estimate?duration=90&mode=fast.
func (h *Handler) EstimateCredits(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	duration, err := strconv.ParseFloat(r.URL.Query().Get("duration"), 64)
	if err != nil || duration < 0 {
		writeError(w, http.StatusBadRequest, "duration must be a non-negative number of seconds")
		return
	}
	mode := montage.Mode(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = defaultMode
	}
	if !mode.Valid() {
		writeError(w, http.StatusBadRequest, "mode must be fast or high")
		return
	}
	writeJSON(w, http.StatusOK, estimateResponse{
		EstimatedCredits: ledger.EstimateCost(duration, mode),
		RemainingCredits: h.accounts.For(session.Email, session.Tier).Remaining(),
		Plan:             string(session.Tier),
	})
}

// CreateJob handles POST /api/jobs as a multipart form with an "audio" file
// and optional prompt, lyrics, mode and aspect_ratio fields.
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	if !h.limiter.Allow(session.Email) {
		if h.metrics != nil {
			h.metrics.IncRateLimited()
		}
		writeError(w, http.StatusTooManyRequests, "rate_limited")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "expected multipart form")
		return
	}

	req := CreateJobRequest{
		Prompt:      r.FormValue("prompt"),
		Lyrics:      r.FormValue("lyrics"),
		Mode:        formValue(r, "mode", defaultMode),
		AspectRatio: formValue(r, "aspect_ratio", defaultAspect),
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, validationDetail(err))
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()
	mediaType, _, _ := mime.ParseMediaType(header.Header.Get("Content-Type"))
	if !allowedAudioTypes[mediaType] {
		writeError(w, http.StatusBadRequest, "unsupported audio format")
		return
	}

	job := h.jobs.Create(session.Email, session.Tier)
	audioPath, err := h.layout.SaveInput(job.ID, header.Filename, file)
	if err != nil {
		h.log.Error("save upload failed", slog.String("job_id", job.ID), slog.String("error", err.Error()))
		expires := h.now().Add(h.retention)
		_, _ = h.jobs.Update(job.ID, func(j jobs.Job) jobs.Job {
			j.Status = jobs.StatusFailed
			j.Message = "upload could not be stored"
			j.RetentionExpiresAt = &expires
			return j
		})
		writeError(w, http.StatusInternalServerError, "upload could not be stored")
		return
	}

	h.submitter.Submit(context.WithoutCancel(r.Context()), job.ID, pipeline.Request{
		AudioPath:   audioPath,
		Lyrics:      req.Lyrics,
		Prompt:      req.Prompt,
		Mode:        montage.Mode(req.Mode),
		AspectRatio: req.AspectRatio,
	})
	h.log.Info("job submitted",
		slog.String("job_id", job.ID),
		slog.String("plan", string(session.Tier)),
		slog.String("mode", req.Mode))
	writeJSON(w, http.StatusOK, createJobResponse{ID: job.ID})
}

// GetJob handles GET /api/jobs/{job_id}. Only the owner may read a job.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	job, ok := h.jobs.Get(chi.URLParam(r, "job_id"))
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if job.OwnerEmail != session.Email {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	resp := jobResponse{
		ID:       job.ID,
		Status:   string(job.Status),
		Progress: job.Progress,
		Message:  job.Message,
		Report:   job.Report,
		Plan:     string(job.Tier),
	}
	if len(resp.Report) == 0 {
		resp.Report = json.RawMessage("{}")
	}
	if job.ResultPath != "" {
		token, err := h.tokens.Issue(job.ID, session.Email)
		if err != nil {
			h.log.Error("issue download token failed", slog.String("job_id", job.ID), slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		link := fmt.Sprintf("/api/jobs/%s/download?token=%s", job.ID, url.QueryEscape(token))
		resp.DownloadURL = &link
	}
	writeJSON(w, http.StatusOK, resp)
}

// DownloadJob handles GET /api/jobs/{job_id}/download?token=...
func (h *Handler) DownloadJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	claims, err := h.tokens.Verify(r.URL.Query().Get("token"))
	if err != nil {
		h.log.Debug("download token rejected", slog.String("job_id", jobID), slog.String("error", err.Error()))
		writeError(w, http.StatusForbidden, "invalid token")
		return
	}
	if claims.JobID != jobID {
		writeError(w, http.StatusForbidden, "token mismatch")
		return
	}

	job, ok := h.jobs.Get(jobID)
	if !ok || job.ResultPath == "" {
		writeError(w, http.StatusNotFound, "render not ready")
		return
	}
	w.Header().Set("Content-Type", videoContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="tunivo-%s.mp4"`, jobID))
	http.ServeFile(w, r, job.ResultPath)
}

func formValue(r *http.Request, key, fallback string) string {
	if v := r.FormValue(key); v != "" {
		return v
	}
	return fallback
}

func validationDetail(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	switch verrs[0].Field() {
	case "Mode":
		return "mode must be fast or high"
	case "AspectRatio":
		return "aspect_ratio must be one of 16:9, 9:16, 1:1"
	default:
		return fmt.Sprintf("%s is invalid", verrs[0].Field())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
