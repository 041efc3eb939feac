package commands

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/use-agent/causelist/models"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func renderCourts(courts []models.CourtOption) {
	t := newTable()
	t.AppendHeader(table.Row{"Value", "Court"})
	for _, c := range courts {
		t.AppendRow(table.Row{c.Value, c.Label})
	}
	t.Render()
}

func renderOutcomes(outcomes []models.ScrapeOutcome) {
	t := newTable()
	t.AppendHeader(table.Row{"#", "Court", "Date", "Type", "Status", "Document / Error"})
	for i, o := range outcomes {
		detail := o.PDFPath
		if o.Status == models.StatusError {
			detail = o.Error
		}
		t.AppendRow(table.Row{i + 1, o.Court, o.Date, o.CaseType, o.Status, detail})
	}
	t.Render()
}
