package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/offerscout/offerscout/internal/models"
	"github.com/offerscout/offerscout/internal/queue"
	"github.com/offerscout/offerscout/internal/scoring"
	"github.com/offerscout/offerscout/internal/scraper"
)

var ErrJobNotFound = errors.New("job not found")

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job tracks one marketplace discovery run from submission to persistence.
type Job struct {
	ID             string     `json:"id"`
	URL            string     `json:"url"`
	Platform       string     `json:"platform"`
	ScraperType    string     `json:"scraper_type"`
	MaxProducts    int        `json:"max_products"`
	UseAI          bool       `json:"use_ai"`
	Status         Status     `json:"status"`
	Progress       float64    `json:"progress"`
	ProductsFound  int        `json:"products_found"`
	ProductsStored int        `json:"products_stored"`
	TopGrade       string     `json:"top_grade,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	Error          string     `json:"error,omitempty"`
}

// SubmitRequest describes a discovery run to enqueue.
type SubmitRequest struct {
	URL         string
	Platform    string
	ScraperType string
	MaxProducts int
	Priority    int
	UseAI       bool
}

// ScraperFactory resolves a scraper type tag to a runnable scraper.
type ScraperFactory func(kind string) scraper.Scraper

// Scorer grades a batch of normalized products.
type Scorer interface {
	BatchScore(ctx context.Context, products []models.NormalizedProduct, opts scoring.BatchOptions) []models.ScoredProduct
}

// ProductWriter persists scored products.
type ProductWriter interface {
	UpsertProducts(ctx context.Context, products []models.ScoredProduct) error
}

// Stats summarizes the job registry.
type Stats struct {
	TotalJobs     int     `json:"total_jobs"`
	PendingJobs   int     `json:"pending_jobs"`
	RunningJobs   int     `json:"running_jobs"`
	CompletedJobs int     `json:"completed_jobs"`
	FailedJobs    int     `json:"failed_jobs"`
	ProductsFound int     `json:"products_found"`
	SuccessRate   float64 `json:"success_rate"`
	QueueDepth    int     `json:"queue_depth"`
}

type Manager struct {
	queue      queue.Queue
	newScraper ScraperFactory
	scorer     Scorer
	store      ProductWriter
	logger     *slog.Logger

	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewManager(q queue.Queue, factory ScraperFactory, scorer Scorer, store ProductWriter, logger *slog.Logger) *Manager {
	return &Manager{
		queue:      q,
		newScraper: factory,
		scorer:     scorer,
		store:      store,
		logger:     logger.With("component", "job_manager"),
		jobs:       make(map[string]*Job),
	}
}

// Submit registers a job and enqueues its scrape task.
func (m *Manager) Submit(req SubmitRequest) (*Job, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("url is required")
	}

	job := &Job{
		ID:          uuid.New().String(),
		URL:         req.URL,
		Platform:    req.Platform,
		ScraperType: req.ScraperType,
		MaxProducts: req.MaxProducts,
		UseAI:       req.UseAI,
		Status:      StatusPending,
		CreatedAt:   time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	err := m.queue.Push(&queue.Task{
		ID:          job.ID,
		URL:         req.URL,
		Platform:    req.Platform,
		ScraperType: req.ScraperType,
		MaxProducts: req.MaxProducts,
		Priority:    req.Priority,
		CreatedAt:   job.CreatedAt,
	})
	if err != nil {
		m.mu.Lock()
		delete(m.jobs, job.ID)
		m.mu.Unlock()
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	m.logger.Info("job submitted", "id", job.ID, "url", req.URL, "platform", req.Platform)
	return snapshot(job), nil
}

// GetJob returns a copy of the job with the given ID.
func (m *Manager) GetJob(jobID string) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	return snapshot(job), nil
}

// ListJobs returns all known jobs, newest first.
func (m *Manager) ListJobs() []*Job {
	m.mu.RLock()
	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, snapshot(job))
	}
	m.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	return jobs
}

// Stats returns aggregate counters over the registry.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{QueueDepth: m.queue.Size()}
	for _, job := range m.jobs {
		stats.TotalJobs++
		stats.ProductsFound += job.ProductsFound
		switch job.Status {
		case StatusPending:
			stats.PendingJobs++
		case StatusRunning:
			stats.RunningJobs++
		case StatusCompleted:
			stats.CompletedJobs++
		case StatusFailed:
			stats.FailedJobs++
		}
	}
	if stats.TotalJobs > 0 {
		stats.SuccessRate = float64(stats.CompletedJobs) / float64(stats.TotalJobs) * 100
	}
	return stats
}

func (m *Manager) update(jobID string, fn func(*Job)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if job, ok := m.jobs[jobID]; ok {
		fn(job)
	}
}

func snapshot(job *Job) *Job {
	copied := *job
	return &copied
}
