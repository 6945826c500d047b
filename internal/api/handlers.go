package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/offerscout/offerscout/internal/jobs"
	"github.com/offerscout/offerscout/internal/models"
	"github.com/offerscout/offerscout/internal/scoring"
)

// JobService is the slice of the job manager the handlers need.
type JobService interface {
	Submit(req jobs.SubmitRequest) (*jobs.Job, error)
	GetJob(jobID string) (*jobs.Job, error)
	ListJobs() []*jobs.Job
	Stats() jobs.Stats
}

// ScoreService grades products on demand.
type ScoreService interface {
	BatchScore(ctx context.Context, products []models.NormalizedProduct, opts scoring.BatchOptions) []models.ScoredProduct
	Stats() scoring.Stats
}

// ProductReader serves persisted products.
type ProductReader interface {
	TopProducts(ctx context.Context, limit int, platform string) ([]models.ScoredProduct, error)
	CountByGrade(ctx context.Context) (map[string]int, error)
}

type Handlers struct {
	jobs   JobService
	scorer ScoreService
	store  ProductReader
	logger *slog.Logger
}

func NewHandlers(jobService JobService, scorer ScoreService, store ProductReader, logger *slog.Logger) *Handlers {
	return &Handlers{
		jobs:   jobService,
		scorer: scorer,
		store:  store,
		logger: logger,
	}
}

// CreateScrapeRequest starts a marketplace discovery run.
type CreateScrapeRequest struct {
	URL         string `json:"url"`
	Platform    string `json:"platform"`
	ScraperType string `json:"scraper_type"`
	MaxProducts int    `json:"max_products"`
	Priority    int    `json:"priority"`
	UseAI       bool   `json:"use_ai"`
}

type CreateScrapeResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// CreateScrape handles new discovery job creation.
func (h *Handlers) CreateScrape(w http.ResponseWriter, r *http.Request) {
	var req CreateScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.URL == "" {
		h.respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	job, err := h.jobs.Submit(jobs.SubmitRequest{
		URL:         req.URL,
		Platform:    req.Platform,
		ScraperType: req.ScraperType,
		MaxProducts: req.MaxProducts,
		Priority:    req.Priority,
		UseAI:       req.UseAI,
	})
	if err != nil {
		h.logger.Error("failed to submit job", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	h.respondJSON(w, http.StatusCreated, CreateScrapeResponse{
		JobID:   job.ID,
		Status:  string(job.Status),
		Message: "Job created successfully",
	})
}

// GetScrape handles job status retrieval.
func (h *Handlers) GetScrape(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		h.respondError(w, http.StatusBadRequest, "job ID is required")
		return
	}

	job, err := h.jobs.GetJob(jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			h.respondError(w, http.StatusNotFound, "job not found")
			return
		}
		h.logger.Error("failed to get job", "error", err, "job_id", jobID)
		h.respondError(w, http.StatusInternalServerError, "failed to get job")
		return
	}

	h.respondJSON(w, http.StatusOK, job)
}

// ListScrapes handles listing all jobs.
func (h *Handlers) ListScrapes(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.jobs.ListJobs())
}

// GetScrapeStats returns aggregate job counters.
func (h *Handlers) GetScrapeStats(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.jobs.Stats())
}

// BatchScoreRequest scores caller-supplied products synchronously.
type BatchScoreRequest struct {
	Products []models.NormalizedProduct `json:"products"`
	UseAI    bool                       `json:"use_ai"`
	Parallel bool                       `json:"parallel"`
}

type BatchScoreResponse struct {
	Products []models.ScoredProduct `json:"products"`
	Total    int                    `json:"total"`
}

// BatchScore handles on-demand scoring of a product batch.
func (h *Handlers) BatchScore(w http.ResponseWriter, r *http.Request) {
	var req BatchScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Products) == 0 {
		h.respondError(w, http.StatusBadRequest, "products is required")
		return
	}

	scored := h.scorer.BatchScore(r.Context(), req.Products, scoring.BatchOptions{
		UseAI:    req.UseAI,
		Parallel: req.Parallel,
	})

	h.respondJSON(w, http.StatusOK, BatchScoreResponse{
		Products: scored,
		Total:    len(scored),
	})
}

// GetScoreStats returns engine configuration and cache counters.
func (h *Handlers) GetScoreStats(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.scorer.Stats())
}

// GetTopProducts returns the highest-scored persisted products.
func (h *Handlers) GetTopProducts(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	platform := r.URL.Query().Get("platform")

	products, err := h.store.TopProducts(r.Context(), limit, platform)
	if err != nil {
		h.logger.Error("failed to query top products", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get products")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"products": products,
		"total":    len(products),
	})
}

// GetProductStats returns stored product counts grouped by grade.
func (h *Handlers) GetProductStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.CountByGrade(r.Context())
	if err != nil {
		h.logger.Error("failed to count products", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get product stats")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{"grades": counts})
}

// Routes mounts all handlers on a router.
func (h *Handlers) Routes(r chi.Router) {
	r.Route("/scrapes", func(r chi.Router) {
		r.Post("/", h.CreateScrape)
		r.Get("/", h.ListScrapes)
		r.Get("/stats", h.GetScrapeStats)
		r.Get("/{jobID}", h.GetScrape)
	})

	r.Route("/scores", func(r chi.Router) {
		r.Post("/batch", h.BatchScore)
		r.Get("/stats", h.GetScoreStats)
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/top", h.GetTopProducts)
		r.Get("/stats", h.GetProductStats)
	})
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
