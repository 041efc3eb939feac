package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/use-agent/causelist/models"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// HistoryEntry is one recorded outcome.
type HistoryEntry struct {
	RunID     string               `json:"runId"`
	Outcome   models.ScrapeOutcome `json:"outcome"`
	CreatedAt time.Time            `json:"createdAt"`
}

// History records every outcome in sqlite.
type History struct {
	db *sql.DB
}

// OpenHistory opens (creating if needed) the sqlite database at path.
// ":memory:" is accepted.
func OpenHistory(path string) (*History, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	// One writer; keeps :memory: databases on a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}
	return &History{db: db}, nil
}

func (h *History) Close() error {
	return h.db.Close()
}

// Record appends outcomes produced by one run.
func (h *History) Record(ctx context.Context, runID string, outcomes ...models.ScrapeOutcome) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	for _, o := range outcomes {
		_, err := tx.ExecContext(ctx,
			`insert into outcomes (run_id, court_id, court, date, case_type, status, pdf_path, error, created_at)
			 values (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, o.CourtID, o.Court, o.Date, string(o.CaseType), string(o.Status),
			nullable(o.PDFPath), nullable(o.Error), now,
		)
		if err != nil {
			return fmt.Errorf("record outcome for %s: %w", o.Court, err)
		}
	}
	return tx.Commit()
}

// Recent returns up to limit entries, newest first. A non-empty courtID
// filters by court.
func (h *History) Recent(ctx context.Context, courtID string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := h.db.QueryContext(ctx,
		`select run_id, court_id, court, date, case_type, status, pdf_path, error, created_at
		 from outcomes
		 where ? = '' or court_id = ?
		 order by id desc
		 limit ?`,
		courtID, courtID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var (
			e                 HistoryEntry
			caseType, status  string
			pdfPath, errorMsg sql.NullString
			created           int64
		)
		if err := rows.Scan(&e.RunID, &e.Outcome.CourtID, &e.Outcome.Court, &e.Outcome.Date,
			&caseType, &status, &pdfPath, &errorMsg, &created); err != nil {
			return nil, err
		}
		e.Outcome.CaseType = models.CaseType(caseType)
		e.Outcome.Status = models.Status(status)
		e.Outcome.PDFPath = pdfPath.String
		e.Outcome.Error = errorMsg.String
		e.CreatedAt = time.UnixMilli(created)
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
