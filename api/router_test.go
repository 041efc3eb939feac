package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/causelist/api/handler"
	"github.com/use-agent/causelist/cache"
	"github.com/use-agent/causelist/captcha"
	"github.com/use-agent/causelist/config"
	"github.com/use-agent/causelist/metrics"
	"github.com/use-agent/causelist/models"
	"github.com/use-agent/causelist/store"
)

// fakeRunner stands in for the orchestrator.
type fakeRunner struct {
	mu      sync.Mutex
	courts  []models.CourtOption
	fetches int
	runs    [][]models.SearchCriteria
	answers []string

	release  chan struct{}            // Run blocks until closed, when set
	prompter *captcha.ChannelPrompter // Run asks for a manual answer, when set
	image    string
	runErr   error
}

func (f *fakeRunner) FetchCourts(context.Context) ([]models.CourtOption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	return f.courts, nil
}

func (f *fakeRunner) Run(ctx context.Context, criteria []models.SearchCriteria) ([]models.ScrapeOutcome, error) {
	if f.release != nil {
		<-f.release
	}
	if f.prompter != nil {
		text, err := f.prompter.Prompt(ctx, f.image)
		if err != nil {
			return nil, err
		}
		f.mu.Lock()
		f.answers = append(f.answers, text)
		f.mu.Unlock()
	}

	f.mu.Lock()
	f.runs = append(f.runs, criteria)
	f.mu.Unlock()
	if f.runErr != nil {
		return nil, f.runErr
	}

	out := make([]models.ScrapeOutcome, 0, len(criteria))
	for _, c := range criteria {
		status := models.StatusSuccess
		if c.Court.Value == "404" {
			status = models.StatusError
		}
		out = append(out, models.ScrapeOutcome{
			Court:    c.Court.Label,
			CourtID:  c.Court.Value,
			Date:     c.DateString(),
			CaseType: c.CaseType,
			Status:   status,
		})
	}
	return out, nil
}

type testServer struct {
	router *gin.Engine
	runner *fakeRunner
	queue  *handler.Queue
	deps   Deps
}

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Mode: gin.TestMode},
		Portal:    config.PortalConfig{DateWindowDays: 30},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
	}
}

func newTestServer(t *testing.T, runner *fakeRunner, mutate func(*Deps)) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	q := handler.NewQueue(runner, nil, 4)
	q.Start(ctx)

	courts := cache.New(4, time.Minute)
	t.Cleanup(courts.Close)

	d := Deps{
		Config:   testConfig(),
		Queue:    q,
		Courts:   courts,
		CacheKey: cache.Key("https://portal.test/", "Patiala House Court Complex"),
		Started:  time.Now(),
	}
	if mutate != nil {
		mutate(&d)
	}
	return &testServer{router: NewRouter(ctx, d), runner: runner, queue: q, deps: d}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func today() string {
	return time.Now().Format(models.DateLayout)
}

func (s *testServer) waitForJob(t *testing.T, id string) models.CauseListJob {
	t.Helper()
	var job models.CauseListJob
	require.Eventually(t, func() bool {
		w := s.do(t, http.MethodGet, "/api/v1/causelist/"+id, nil)
		if w.Code != http.StatusOK {
			return false
		}
		job = decode[models.CauseListJob](t, w)
		return job.FinishedAt != nil
	}, 5*time.Second, 10*time.Millisecond)
	return job
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &fakeRunner{}, nil)

	w := s.do(t, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[models.HealthResponse](t, w)
	require.Equal(t, "healthy", resp.Status)
	require.Equal(t, handler.Version, resp.Version)
	require.Nil(t, resp.Portal)
}

func TestHealthDeepProbe(t *testing.T) {
	probeErr := errors.New("connection refused")
	s := newTestServer(t, &fakeRunner{}, func(d *Deps) {
		d.Probe = func(context.Context) (*models.PortalProbe, error) { return nil, probeErr }
	})

	resp := decode[models.HealthResponse](t, s.do(t, http.MethodGet, "/api/v1/health?deep=1", nil))
	require.Equal(t, "degraded", resp.Status)
	require.Equal(t, "connection refused", resp.Portal.Error)

	resp = decode[models.HealthResponse](t, s.do(t, http.MethodGet, "/api/v1/health", nil))
	require.Equal(t, "healthy", resp.Status)
}

func TestCourtsAreCached(t *testing.T) {
	runner := &fakeRunner{courts: []models.CourtOption{{Value: "7", Label: "Court No. 7"}}}
	s := newTestServer(t, runner, nil)

	first := decode[models.CourtsResponse](t, s.do(t, http.MethodGet, "/api/v1/courts", nil))
	require.Equal(t, "miss", first.CacheStatus)
	require.Equal(t, runner.courts, first.Courts)

	second := decode[models.CourtsResponse](t, s.do(t, http.MethodGet, "/api/v1/courts", nil))
	require.Equal(t, "hit", second.CacheStatus)
	require.Equal(t, 1, runner.fetches)

	refreshed := decode[models.CourtsResponse](t, s.do(t, http.MethodGet, "/api/v1/courts?refresh=1", nil))
	require.Equal(t, "miss", refreshed.CacheStatus)
	require.Equal(t, 2, runner.fetches)
}

func TestCourtsBusyDuringRun(t *testing.T) {
	runner := &fakeRunner{release: make(chan struct{})}
	s := newTestServer(t, runner, nil)

	w := s.do(t, http.MethodPost, "/api/v1/causelist", models.CauseListRequest{
		Courts: []models.CourtRef{{Value: "7"}},
		Date:   today(),
	})
	require.Equal(t, http.StatusAccepted, w.Code)
	ack := decode[models.CauseListResponse](t, w)
	require.Eventually(t, s.queue.Busy, 5*time.Second, 5*time.Millisecond)

	w = s.do(t, http.MethodGet, "/api/v1/courts", nil)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, models.ErrCodeBusy, decode[models.ErrorResponse](t, w).Error.Code)

	health := decode[models.HealthResponse](t, s.do(t, http.MethodGet, "/api/v1/health", nil))
	require.True(t, health.Busy)

	close(runner.release)
	require.Equal(t, models.JobCompleted, s.waitForJob(t, ack.ID).Status)
	require.Zero(t, runner.fetches)
}

func TestPostCauseListRunsJob(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestServer(t, runner, nil)
	s.deps.Courts.Set(s.deps.CacheKey, []models.CourtOption{{Value: "7", Label: "Court No. 7 - Civil Judge"}})

	w := s.do(t, http.MethodPost, "/api/v1/causelist", models.CauseListRequest{
		Courts:   []models.CourtRef{{Value: "7"}, {Value: "404", Label: "Gone"}},
		Date:     today(),
		CaseType: "criminal",
	})
	require.Equal(t, http.StatusAccepted, w.Code)
	ack := decode[models.CauseListResponse](t, w)
	require.Equal(t, 2, ack.Total)
	require.NotEmpty(t, ack.ID)

	job := s.waitForJob(t, ack.ID)
	require.Equal(t, models.JobPartial, job.Status)
	require.Len(t, job.Outcomes, 2)
	require.Equal(t, "Court No. 7 - Civil Judge", job.Outcomes[0].Court)
	require.Equal(t, models.CaseTypeCriminal, job.Outcomes[0].CaseType)
	require.Equal(t, "Gone", job.Outcomes[1].Court)
}

func TestPostCauseListFailedRun(t *testing.T) {
	runner := &fakeRunner{runErr: models.NewScrapeError(models.ErrCodeEnvironment, "no browser", nil)}
	s := newTestServer(t, runner, nil)

	ack := decode[models.CauseListResponse](t, s.do(t, http.MethodPost, "/api/v1/causelist", models.CauseListRequest{
		Courts: []models.CourtRef{{Value: "7"}},
		Date:   today(),
	}))
	job := s.waitForJob(t, ack.ID)
	require.Equal(t, models.JobFailed, job.Status)
	require.Equal(t, models.ErrCodeEnvironment, job.Error.Code)
}

func TestPostCauseListValidation(t *testing.T) {
	s := newTestServer(t, &fakeRunner{}, nil)

	cases := []struct {
		name string
		body any
	}{
		{"missing courts", map[string]any{"date": today()}},
		{"bad date", models.CauseListRequest{Courts: []models.CourtRef{{Value: "7"}}, Date: "2025-03-15"}},
		{"outside window", models.CauseListRequest{
			Courts: []models.CourtRef{{Value: "7"}},
			Date:   time.Now().AddDate(0, 0, 45).Format(models.DateLayout),
		}},
		{"bad case type", models.CauseListRequest{Courts: []models.CourtRef{{Value: "7"}}, Date: today(), CaseType: "family"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/v1/causelist", tc.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			require.Equal(t, models.ErrCodeInvalidInput, decode[models.ErrorResponse](t, w).Error.Code)
		})
	}
}

func TestGetUnknownJob(t *testing.T) {
	s := newTestServer(t, &fakeRunner{}, nil)
	w := s.do(t, http.MethodGet, "/api/v1/causelist/job-missing", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestManualCaptchaOverHTTP(t *testing.T) {
	image := filepath.Join(t.TempDir(), "captcha.png")
	require.NoError(t, os.WriteFile(image, []byte("\x89PNG fake"), 0o644))

	prompter := captcha.NewChannelPrompter()
	runner := &fakeRunner{prompter: prompter, image: image}
	s := newTestServer(t, runner, func(d *Deps) { d.Prompter = prompter })

	require.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/captcha", nil).Code)

	ack := decode[models.CauseListResponse](t, s.do(t, http.MethodPost, "/api/v1/causelist", models.CauseListRequest{
		Courts: []models.CourtRef{{Value: "7"}},
		Date:   today(),
	}))

	var pending models.PendingCaptcha
	require.Eventually(t, func() bool {
		w := s.do(t, http.MethodGet, "/api/v1/captcha", nil)
		if w.Code != http.StatusOK {
			return false
		}
		pending = decode[models.PendingCaptcha](t, w)
		return true
	}, 5*time.Second, 10*time.Millisecond)

	img := s.do(t, http.MethodGet, pending.ImageURL, nil)
	require.Equal(t, http.StatusOK, img.Code)
	require.Equal(t, "\x89PNG fake", img.Body.String())

	wrong := s.do(t, http.MethodPost, "/api/v1/captcha", models.CaptchaAnswer{ID: "other", Text: "X"})
	require.Equal(t, http.StatusBadRequest, wrong.Code)

	answered := s.do(t, http.MethodPost, "/api/v1/captcha", models.CaptchaAnswer{ID: pending.ID, Text: " Q7pX "})
	require.Equal(t, http.StatusNoContent, answered.Code)

	job := s.waitForJob(t, ack.ID)
	require.Equal(t, models.JobCompleted, job.Status)
	require.Equal(t, []string{"Q7pX"}, runner.answers)
}

func TestAuth(t *testing.T) {
	s := newTestServer(t, &fakeRunner{}, func(d *Deps) {
		d.Config.Auth = config.AuthConfig{Enabled: true, APIKeys: []string{"k1"}}
	})

	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/health", nil).Code)

	w := s.do(t, http.MethodGet, "/api/v1/causelist/x", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/causelist/x", nil, "X-API-Key", "nope")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/causelist/x", nil, "Authorization", "Bearer k1")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, &fakeRunner{}, func(d *Deps) {
		d.Config.RateLimit = config.RateLimitConfig{RequestsPerSecond: 0.5, Burst: 1}
	})

	require.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/causelist/x", nil).Code)
	w := s.do(t, http.MethodGet, "/api/v1/causelist/x", nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "2", w.Header().Get("Retry-After"))
}

func TestOutcomes(t *testing.T) {
	s := newTestServer(t, &fakeRunner{}, nil)
	require.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/outcomes", nil).Code)

	h, err := store.OpenHistory(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	require.NoError(t, h.Record(context.Background(), "run-1",
		models.ScrapeOutcome{Court: "Court No. 7", CourtID: "7", Date: "03/15/2025", CaseType: models.CaseTypeCivil, Status: models.StatusNoCases},
	))

	s = newTestServer(t, &fakeRunner{}, func(d *Deps) { d.History = h })
	w := s.do(t, http.MethodGet, "/api/v1/outcomes?court=7&limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[struct {
		Entries []store.HistoryEntry `json:"entries"`
	}](t, w)
	require.Len(t, resp.Entries, 1)
	require.Equal(t, models.StatusNoCases, resp.Entries[0].Outcome.Status)

	require.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/v1/outcomes?limit=0", nil).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	m.Run(nil)
	s := newTestServer(t, &fakeRunner{}, func(d *Deps) { d.Metrics = m })

	w := s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "causelist_runs_total")
}
