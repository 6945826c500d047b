package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/offerscout/offerscout/internal/jobs"
	"github.com/offerscout/offerscout/internal/models"
	"github.com/offerscout/offerscout/internal/scoring"
)

type stubJobService struct {
	submitted *jobs.SubmitRequest
	job       *jobs.Job
	err       error
}

func (s *stubJobService) Submit(req jobs.SubmitRequest) (*jobs.Job, error) {
	s.submitted = &req
	return s.job, s.err
}

func (s *stubJobService) GetJob(jobID string) (*jobs.Job, error) {
	if s.job != nil && s.job.ID == jobID {
		return s.job, nil
	}
	return nil, jobs.ErrJobNotFound
}

func (s *stubJobService) ListJobs() []*jobs.Job {
	if s.job == nil {
		return nil
	}
	return []*jobs.Job{s.job}
}

func (s *stubJobService) Stats() jobs.Stats {
	return jobs.Stats{TotalJobs: 1, CompletedJobs: 1, SuccessRate: 100}
}

type stubScoreService struct{}

func (stubScoreService) BatchScore(_ context.Context, products []models.NormalizedProduct, _ scoring.BatchOptions) []models.ScoredProduct {
	scored := make([]models.ScoredProduct, len(products))
	for i, p := range products {
		scored[i] = models.ScoredProduct{
			NormalizedProduct:  p,
			ProfitabilityScore: 0.5,
			ScoreVersion:       models.ScoreVersionV1Fallback,
			Grade:              "C",
		}
	}
	return scored
}

func (stubScoreService) Stats() scoring.Stats {
	return scoring.Stats{CacheSize: 3}
}

type stubProductReader struct {
	products []models.ScoredProduct
	err      error
}

func (s *stubProductReader) TopProducts(_ context.Context, limit int, _ string) ([]models.ScoredProduct, error) {
	if s.err != nil {
		return nil, s.err
	}
	if limit < len(s.products) {
		return s.products[:limit], nil
	}
	return s.products, nil
}

func (s *stubProductReader) CountByGrade(_ context.Context) (map[string]int, error) {
	return map[string]int{"A": 2, "C": 1}, s.err
}

func newTestRouter(jobSvc JobService, store ProductReader) http.Handler {
	h := NewHandlers(jobSvc, stubScoreService{}, store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	r.Route("/api/v1", h.Routes)
	return r
}

func TestCreateScrape(t *testing.T) {
	svc := &stubJobService{job: &jobs.Job{ID: "job-1", Status: jobs.StatusPending}}
	router := newTestRouter(svc, &stubProductReader{})

	body := bytes.NewBufferString(`{"url":"https://app.hotmart.com/market","platform":"hotmart","max_products":50,"use_ai":true}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scrapes", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp CreateScrapeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "job-1", resp.JobID)
	assert.Equal(t, "pending", resp.Status)

	require.NotNil(t, svc.submitted)
	assert.Equal(t, "hotmart", svc.submitted.Platform)
	assert.Equal(t, 50, svc.submitted.MaxProducts)
	assert.True(t, svc.submitted.UseAI)
}

func TestCreateScrapeRequiresURL(t *testing.T) {
	router := newTestRouter(&stubJobService{}, &stubProductReader{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scrapes", bytes.NewBufferString(`{"platform":"hotmart"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateScrapeRejectsBadJSON(t *testing.T) {
	router := newTestRouter(&stubJobService{}, &stubProductReader{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scrapes", bytes.NewBufferString(`{broken`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetScrape(t *testing.T) {
	svc := &stubJobService{job: &jobs.Job{ID: "job-1", Status: jobs.StatusCompleted, ProductsFound: 7}}
	router := newTestRouter(svc, &stubProductReader{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/scrapes/job-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var job jobs.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, jobs.StatusCompleted, job.Status)
	assert.Equal(t, 7, job.ProductsFound)
}

func TestGetScrapeNotFound(t *testing.T) {
	router := newTestRouter(&stubJobService{}, &stubProductReader{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/scrapes/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBatchScore(t *testing.T) {
	router := newTestRouter(&stubJobService{}, &stubProductReader{})

	payload := BatchScoreRequest{
		Products: []models.NormalizedProduct{
			{Name: "Curso", Price: 97, ProductURL: "https://example.com/p1"},
		},
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scores/batch", bytes.NewBuffer(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp BatchScoreResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, models.ScoreVersionV1Fallback, resp.Products[0].ScoreVersion)
}

func TestBatchScoreRequiresProducts(t *testing.T) {
	router := newTestRouter(&stubJobService{}, &stubProductReader{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scores/batch", bytes.NewBufferString(`{"products":[]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTopProducts(t *testing.T) {
	store := &stubProductReader{products: []models.ScoredProduct{
		{NormalizedProduct: models.NormalizedProduct{Name: "a"}, ProfitabilityScore: 0.9},
		{NormalizedProduct: models.NormalizedProduct{Name: "b"}, ProfitabilityScore: 0.7},
	}}
	router := newTestRouter(&stubJobService{}, store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/top?limit=1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Products []models.ScoredProduct `json:"products"`
		Total    int                    `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "a", resp.Products[0].Name)
}

func TestGetTopProductsRejectsBadLimit(t *testing.T) {
	router := newTestRouter(&stubJobService{}, &stubProductReader{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/top?limit=zero", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTopProductsStoreFailure(t *testing.T) {
	router := newTestRouter(&stubJobService{}, &stubProductReader{err: errors.New("db down")})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/top", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetScoreStats(t *testing.T) {
	router := newTestRouter(&stubJobService{}, &stubProductReader{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/scores/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var stats scoring.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 3, stats.CacheSize)
}
