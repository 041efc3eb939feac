package models

import "time"

// Job statuses.
const (
	JobQueued     = "queued"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobPartial    = "partial"
	JobFailed     = "failed"
)

// CourtRef names a court in a request. Label is optional and is resolved
// from the cached court list when missing.
type CourtRef struct {
	Value string `json:"value" binding:"required"`
	Label string `json:"label,omitempty"`
}

// CauseListRequest is the body of POST /api/v1/causelist.
type CauseListRequest struct {
	Courts []CourtRef `json:"courts" binding:"required,min=1,dive"`

	// Date is MM/DD/YYYY.
	Date string `json:"date" binding:"required"`

	// CaseType is civil (default) or criminal.
	CaseType string `json:"case_type"`
}

// Criteria converts the request into search criteria. labels maps court
// values to known labels.
func (r *CauseListRequest) Criteria(labels map[string]string) ([]SearchCriteria, error) {
	date, err := ParseDate(r.Date)
	if err != nil {
		return nil, err
	}
	caseType := CaseTypeCivil
	if r.CaseType != "" {
		if caseType, err = ParseCaseType(r.CaseType); err != nil {
			return nil, err
		}
	}

	out := make([]SearchCriteria, 0, len(r.Courts))
	for _, c := range r.Courts {
		label := c.Label
		if label == "" {
			label = labels[c.Value]
		}
		if label == "" {
			label = "Court " + c.Value
		}
		out = append(out, SearchCriteria{
			Court:    CourtOption{Value: c.Value, Label: label},
			Date:     date,
			CaseType: caseType,
		})
	}
	return out, nil
}

// CauseListJob tracks one asynchronous run.
type CauseListJob struct {
	ID         string          `json:"id"`
	Status     string          `json:"status"`
	Total      int             `json:"total"`
	Outcomes   []ScrapeOutcome `json:"outcomes,omitempty"`
	Error      *ErrorDetail    `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

// JobStatus derives a finished job's status from its outcomes: failed when
// every court errored, partial when some did.
func JobStatus(outcomes []ScrapeOutcome) string {
	failed := 0
	for _, o := range outcomes {
		if o.Status == StatusError {
			failed++
		}
	}
	switch {
	case len(outcomes) == 0 || failed == len(outcomes):
		return JobFailed
	case failed > 0:
		return JobPartial
	default:
		return JobCompleted
	}
}

// CauseListResponse acknowledges a queued job.
type CauseListResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// CourtsResponse is the body of GET /api/v1/courts.
type CourtsResponse struct {
	Courts      []CourtOption `json:"courts"`
	CacheStatus string        `json:"cache_status"` // "hit" or "miss"
}

// PendingCaptcha describes a CAPTCHA waiting for a human answer.
type PendingCaptcha struct {
	ID       string    `json:"id"`
	Since    time.Time `json:"since"`
	ImageURL string    `json:"image_url"`
}

// CaptchaAnswer is the body of POST /api/v1/captcha.
type CaptchaAnswer struct {
	ID   string `json:"id"`
	Text string `json:"text" binding:"required"`
}

// PortalProbe is the result of a deep health check against the portal.
type PortalProbe struct {
	StatusCode int    `json:"status_code"`
	Title      string `json:"title,omitempty"`
	LatencyMS  int64  `json:"latency_ms"`
	Error      string `json:"error,omitempty"`
}

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status  string       `json:"status"` // "healthy" or "degraded"
	Uptime  string       `json:"uptime"`
	Busy    bool         `json:"busy"`
	Queued  int          `json:"queued"`
	Portal  *PortalProbe `json:"portal,omitempty"`
	Version string       `json:"version"`
}

// ErrorResponse wraps an ErrorDetail.
type ErrorResponse struct {
	Error *ErrorDetail `json:"error"`
}
