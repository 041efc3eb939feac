// Package extract reads the parts of a rendered portal page the pipeline
// cares about: visible text, result tables and title.
package extract

import (
	"bytes"
	"log/slog"
	nurl "net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// Page is a parsed snapshot of a rendered document.
type Page struct {
	Title  string
	Text   string // visible text, whitespace-collapsed
	Tables int
}

// noise never contributes visible text.
const noise = "script, style, noscript, template"

// Parse extracts text, table count and title from rawHTML. It never fails:
// unparseable input yields an empty Page.
func Parse(rawHTML, sourceURL string) Page {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return Page{}
	}

	p := Page{
		Tables: doc.Find("table").Length(),
		Title:  strings.TrimSpace(doc.Find("title").First().Text()),
	}

	doc.Find(noise).Remove()
	p.Text = strings.Join(strings.Fields(doc.Find("body").Text()), " ")

	if t := readableTitle(rawHTML, sourceURL); t != "" {
		p.Title = t
	}
	return p
}

// readableTitle runs Readability for its title heuristics, which prefer the
// page heading over a generic site <title>.
func readableTitle(rawHTML, sourceURL string) string {
	u, err := nurl.Parse(sourceURL)
	if err != nil || sourceURL == "" {
		return ""
	}
	article, err := readability.FromReader(strings.NewReader(rawHTML), u)
	if err != nil {
		slog.Debug("readability: title extraction failed", "url", sourceURL, "error", err)
		return ""
	}
	return strings.TrimSpace(article.Title)
}

var tableSelector = cascadia.MustCompile("table")

// Tables returns the outer HTML of every table in rawHTML, concatenated, and
// how many there were.
func Tables(rawHTML string) (string, int, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", 0, err
	}

	// Nested tables are rendered with their parent.
	var top []*html.Node
	for _, n := range cascadia.QueryAll(doc, tableSelector) {
		if !hasTableAncestor(n) {
			top = append(top, n)
		}
	}

	var buf bytes.Buffer
	for _, n := range top {
		if err := html.Render(&buf, n); err != nil {
			return "", 0, err
		}
	}
	return buf.String(), len(top), nil
}

func hasTableAncestor(n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == "table" {
			return true
		}
	}
	return false
}
