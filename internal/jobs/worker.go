package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/offerscout/offerscout/internal/queue"
	"github.com/offerscout/offerscout/internal/scoring"
	"github.com/offerscout/offerscout/internal/scraper"
)

// StartWorker consumes tasks until ctx is cancelled or the queue closes.
func (m *Manager) StartWorker(ctx context.Context) {
	m.logger.Info("worker started")

	for {
		task, err := m.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, queue.ErrQueueClosed) {
				m.logger.Info("worker stopped", "reason", err)
				return
			}
			m.logger.Error("failed to pop task", "error", err)
			continue
		}

		m.runTask(ctx, task)
	}
}

func (m *Manager) runTask(ctx context.Context, task *queue.Task) {
	logger := m.logger.With("job_id", task.ID, "url", task.URL)

	var useAI bool
	m.update(task.ID, func(job *Job) {
		now := time.Now()
		job.Status = StatusRunning
		job.StartedAt = &now
		useAI = job.UseAI
	})

	scr := m.newScraper(task.ScraperType)
	events := make(chan scraper.Event, 64)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.consumeEvents(task.ID, events)
	}()

	products, scrapeErr := scr.Scrape(ctx, scraper.Config{
		URL:         task.URL,
		Platform:    task.Platform,
		MaxProducts: task.MaxProducts,
	}, events)

	close(events)
	wg.Wait()

	if scrapeErr != nil && len(products) == 0 {
		logger.Error("job failed", "error", scrapeErr)
		m.finish(task.ID, StatusFailed, scrapeErr.Error())
		return
	}

	// Parallel scoring only when the AI judge is off; AI calls stay
	// sequential to respect provider rate limits.
	scored := m.scorer.BatchScore(ctx, products, scoring.BatchOptions{
		UseAI:    useAI,
		Parallel: !useAI,
	})

	stored := 0
	if m.store != nil {
		if err := m.store.UpsertProducts(ctx, scored); err != nil {
			logger.Error("failed to persist products", "error", err, "count", len(scored))
			m.finish(task.ID, StatusFailed, err.Error())
			return
		}
		stored = len(scored)
	}

	topGrade := ""
	if len(scored) > 0 {
		topGrade = scored[0].Grade
	}

	m.update(task.ID, func(job *Job) {
		job.ProductsStored = stored
		job.TopGrade = topGrade
	})

	// A scrape that errored after yielding products completes with a note.
	errMsg := ""
	if scrapeErr != nil {
		errMsg = "partial results: " + scrapeErr.Error()
	}
	m.finish(task.ID, StatusCompleted, errMsg)

	logger.Info("job completed",
		"products", len(products),
		"stored", stored,
		"top_grade", topGrade,
	)
}

// consumeEvents drains the scrape event stream into job progress updates.
func (m *Manager) consumeEvents(jobID string, events <-chan scraper.Event) {
	for ev := range events {
		switch e := ev.(type) {
		case scraper.ProgressEvent:
			m.update(jobID, func(job *Job) {
				job.Progress = e.Percent
				job.ProductsFound = e.Current
			})
		case scraper.ProductEvent:
			m.logger.Debug("product discovered", "job_id", jobID, "name", e.Product.Name)
		case scraper.ErrorEvent:
			m.logger.Warn("scrape error event", "job_id", jobID, "type", e.Type, "message", e.Message)
		case scraper.CompleteEvent:
			m.update(jobID, func(job *Job) {
				job.ProductsFound = e.Total
				job.Progress = 100
			})
		case scraper.LogEvent:
			m.logger.Debug(e.Message, "job_id", jobID)
		}
	}
}

func (m *Manager) finish(jobID string, status Status, errMsg string) {
	m.update(jobID, func(job *Job) {
		now := time.Now()
		job.Status = status
		job.CompletedAt = &now
		job.Error = errMsg
	})
}
