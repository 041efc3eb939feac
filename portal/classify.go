package portal

import (
	"strings"

	"github.com/use-agent/causelist/domprint"
	"github.com/use-agent/causelist/extract"
	"github.com/use-agent/causelist/models"
)

// Rules parameterise Classify.
type Rules struct {
	// NoCasePhrases are matched case-insensitively against visible text.
	NoCasePhrases []string

	// FormMarkers are matched case-insensitively against the raw document
	// of pages without tables.
	FormMarkers []string

	// FormPrint is the structure of the unsubmitted form; zero disables the
	// structural check.
	FormPrint domprint.Print
	Threshold int

	// URL resolves the page title.
	URL string
}

// Verdict is the classification of one captured page.
type Verdict struct {
	Status   models.Status // Success or NoCases
	Payload  string        // the document, Success with tables only
	FormPage bool          // the page still looks like the input form
	Page     extract.Page
}

// Classify decides what a captured page is:
//
//  1. a no-cases phrase in the visible text gives NoCases;
//  2. otherwise one or more tables give Success with the page as payload;
//  3. otherwise Success with an empty payload.
//
// FormPage is reported independently so the caller can recapture.
func Classify(rawHTML string, r Rules) Verdict {
	page := extract.Parse(rawHTML, r.URL)
	v := Verdict{Page: page, FormPage: isFormPage(rawHTML, page, r)}

	text := strings.ToLower(page.Text)
	for _, phrase := range r.NoCasePhrases {
		if phrase != "" && strings.Contains(text, strings.ToLower(phrase)) {
			v.Status = models.StatusNoCases
			return v
		}
	}

	v.Status = models.StatusSuccess
	if page.Tables > 0 {
		v.Payload = rawHTML
	}
	return v
}

// isFormPage reports whether a table-less page is still the search form.
// Result pages keep the form's noscript text, so tables rule it out.
func isFormPage(rawHTML string, page extract.Page, r Rules) bool {
	if page.Tables > 0 {
		return false
	}
	lower := strings.ToLower(rawHTML)
	for _, m := range r.FormMarkers {
		if m != "" && strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	if r.FormPrint == 0 {
		return false
	}
	threshold := r.Threshold
	if threshold == 0 {
		threshold = domprint.DefaultThreshold
	}
	return domprint.Similar(domprint.Of(rawHTML), r.FormPrint, threshold)
}
