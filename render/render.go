// Package render turns a captured result page into a document on disk.
// Rendering is best-effort: callers treat ErrUnavailable as "no document",
// never as a failed search.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/use-agent/causelist/extract"
	"github.com/use-agent/causelist/store"
	"golang.org/x/net/html"
)

// ErrUnavailable means no generator could produce a document.
var ErrUnavailable = errors.New("document rendering unavailable")

// Printer prints HTML to PDF bytes; the live browser session is one.
type Printer interface {
	PrintPDF(ctx context.Context, html string) ([]byte, error)
}

// Document is one result page to render.
type Document struct {
	HTML       string
	Name       string // file name without extension
	CourtLabel string
	Date       string
	Printer    Printer // nil when no browser is available
}

// Generator writes a document and returns its path.
type Generator interface {
	Generate(ctx context.Context, doc Document) (string, error)
}

// Chain tries generators in order and returns the first path produced.
type Chain []Generator

func (c Chain) Generate(ctx context.Context, doc Document) (string, error) {
	var errs []error
	for _, g := range c {
		path, err := g.Generate(ctx, doc)
		if err == nil {
			return path, nil
		}
		slog.Warn("document generator failed, trying next", "generator", fmt.Sprintf("%T", g), "error", err)
		errs = append(errs, err)
	}
	return "", errors.Join(append([]error{ErrUnavailable}, errs...)...)
}

// PDF prints the result tables, under a court/date header, with the
// document's Printer.
type PDF struct {
	Layout store.Layout
}

func (g PDF) Generate(ctx context.Context, doc Document) (string, error) {
	if doc.Printer == nil {
		return "", fmt.Errorf("pdf: %w: no printer", ErrUnavailable)
	}
	data, err := doc.Printer.PrintPDF(ctx, printable(doc))
	if err != nil {
		return "", fmt.Errorf("pdf: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("pdf: empty output")
	}
	return g.Layout.WriteFile(store.KindPDF, doc.Name+".pdf", data)
}

// Markdown writes the result tables as Markdown.
type Markdown struct {
	Layout    store.Layout
	Converter *converter.Converter
	Domain    string
}

func (g Markdown) Generate(_ context.Context, doc Document) (string, error) {
	conv := g.Converter
	if conv == nil {
		conv = extract.NewMarkdownConverter()
	}
	body, err := extract.Markdown(conv, content(doc.HTML), g.Domain)
	if err != nil {
		return "", fmt.Errorf("markdown: %w", err)
	}
	if strings.TrimSpace(body) == "" {
		return "", fmt.Errorf("markdown: empty output")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Cause List: %s\n\nDate: %s\n\n", doc.CourtLabel, doc.Date)
	b.WriteString(body)
	b.WriteString("\n")
	return g.Layout.WriteFile(store.KindMarkdown, doc.Name+".md", []byte(b.String()))
}

// content returns the page's tables, or the whole page when it has none.
func content(rawHTML string) string {
	tables, n, err := extract.Tables(rawHTML)
	if err != nil || n == 0 {
		return rawHTML
	}
	return tables
}

const pageStyle = `body{font-family:Arial,Helvetica,sans-serif;font-size:11px;margin:24px}
h1{font-size:16px;margin:0 0 4px}p.meta{color:#555;margin:0 0 16px}
table{border-collapse:collapse;width:100%;margin-bottom:12px}
th,td{border:1px solid #999;padding:4px;text-align:left;vertical-align:top}`

func printable(doc Document) string {
	return fmt.Sprintf(`<!DOCTYPE html><html><head><meta charset="utf-8"><title>%s</title><style>%s</style></head>
<body><h1>Cause List: %s</h1><p class="meta">Date: %s</p>%s</body></html>`,
		html.EscapeString(doc.Name), pageStyle,
		html.EscapeString(doc.CourtLabel), html.EscapeString(doc.Date),
		content(doc.HTML))
}
