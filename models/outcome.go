package models

import "time"

// Status classifies the result of one court's search.
type Status string

const (
	StatusSuccess Status = "Success"
	StatusNoCases Status = "NoCases"
	StatusError   Status = "Error"
)

// ScrapeOutcome is the per-court result record. Exactly one is produced for
// every requested court, in request order. It is never mutated after it has
// been appended to a run's result sequence.
type ScrapeOutcome struct {
	Court    string    `json:"court"`
	CourtID  string    `json:"courtId"`
	Date     string    `json:"date"`
	CaseType CaseType  `json:"caseType"`
	Status   Status    `json:"status"`
	PDFPath  string    `json:"pdfPath,omitempty"`
	Error    string    `json:"error,omitempty"`
	Info     *PageInfo `json:"info,omitempty"`

	// Payload is the raw result document; it is rendered to PDFPath and
	// deliberately kept out of the serialized record.
	Payload string `json:"-"`
}

// PageInfo describes the result page an outcome was read from.
type PageInfo struct {
	Timestamp time.Time `json:"timestamp"`
	URL       string    `json:"url,omitempty"`
	Title     string    `json:"title,omitempty"`
	Tables    int       `json:"tables"`
}

// ErrorOutcome builds an Error outcome for criteria.
func ErrorOutcome(c SearchCriteria, err error) ScrapeOutcome {
	return ScrapeOutcome{
		Court:    c.Court.Label,
		CourtID:  c.Court.Value,
		Date:     c.DateString(),
		CaseType: c.CaseType,
		Status:   StatusError,
		Error:    err.Error(),
	}
}
