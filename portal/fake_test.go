package portal

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/use-agent/causelist/browser"
	"github.com/use-agent/causelist/locator"
	"github.com/use-agent/causelist/models"
)

const formHTML = `<html><head><title>Cause List / Daily Board</title></head><body>
<noscript>This form needs JavaScript</noscript>
<form id="causelist">
  <select name="est_code"><option value="">Select Court Complex</option><option value="1">Patiala House Court Complex</option></select>
  <select name="court"><option value="">Select Court</option></select>
  <input name="date" readonly>
  <input type="radio" name="cause_type" value="2"><input type="radio" name="cause_type" value="3">
  <label>Captcha</label><img src="/captcha.php"><input name="captcha_code">
  <input type="submit" value="Search">
</form></body></html>`

const tableHTML = `<html><head><title>Cause List</title></head><body>
<h3>Court No. 7 - Civil Judge</h3>
<table><tr><th>Sr.</th><th>Case</th><th>Parties</th></tr>
<tr><td>1</td><td>CS DJ 12/2025</td><td>A vs B</td></tr></table>
<a href="#">Back</a></body></html>`

const noCasesHTML = `<html><body><p>No Record Found</p><a href="#">Back</a></body></html>`

// fakePortal is an in-memory cause-list portal behind browser.Handle.
type fakePortal struct {
	opens, closes int
	openErr       error
	navErr        error
	navigations   []string

	state string // "form" or "result"

	courts        []models.CourtOption
	readyAfter    int // court Options calls that return only the placeholder
	courtOptCalls int
	complexLabel  string

	selectedCourt string
	date          string
	caseType      string
	radioClicks   int
	captchaText   string
	submitted     []string

	results map[string][]string // court value -> pages shown after submit
	current []string

	noCaptchaImage bool
	noBack         bool
	backIgnored    bool // the back link leaves the result page showing
	returnChecks   int  // court select lookups while a result page shows
	panicOn        string
	printed        int
}

func newFakePortal(courts ...models.CourtOption) *fakePortal {
	return &fakePortal{
		courts:       courts,
		complexLabel: "Patiala House Court Complex",
		results:      map[string][]string{},
	}
}

type fakeOpener struct{ p *fakePortal }

func (o fakeOpener) Open(context.Context) (browser.Handle, error) {
	if o.p.openErr != nil {
		return nil, o.p.openErr
	}
	o.p.opens++
	return o.p, nil
}

func (p *fakePortal) Close() error {
	p.closes++
	return nil
}

func (p *fakePortal) Navigate(_ context.Context, url string) error {
	p.navigations = append(p.navigations, url)
	if p.navErr != nil {
		return models.NewScrapeError(models.ErrCodeNavigation, "load failed", p.navErr)
	}
	p.state = "form"
	p.selectedCourt = ""
	return nil
}

func (p *fakePortal) Find(_ context.Context, c locator.Candidate) (browser.Element, error) {
	el := func(kind, value string) (browser.Element, error) {
		return &fakeElement{p: p, kind: kind, value: value}, nil
	}

	if p.state == "result" {
		if c.Query == "select[name='court']" {
			p.returnChecks++
		}
		switch {
		case c.Query == "table" && strings.Contains(p.page(), "<table"):
			return el("table", "")
		case c.Kind == locator.Text && c.Query == "a" && !p.noBack:
			return el("back", "")
		}
		return nil, locator.ErrNoMatch
	}
	if p.state != "form" {
		return nil, locator.ErrNoMatch
	}

	switch c.Query {
	case "select[name='est_code']":
		return el("complex", "")
	case "select[name='court']":
		return el("court", "")
	case "input[name='date']":
		return el("date", "")
	case "input[name='cause_type'][value='2']":
		return el("radio", "2")
	case "input[name='cause_type'][value='3']":
		return el("radio", "3")
	case "img[src*='captcha']":
		if !p.noCaptchaImage {
			return el("captcha-image", "")
		}
	case "input[name='captcha_code']":
		return el("captcha-input", "")
	case "input[value='Search']":
		return el("submit", "")
	}
	return nil, locator.ErrNoMatch
}

func (p *fakePortal) page() string {
	if len(p.current) == 0 {
		return ""
	}
	return p.current[0]
}

func (p *fakePortal) HTML(context.Context) (string, error) {
	if p.state == "form" {
		return formHTML, nil
	}
	html := p.page()
	if len(p.current) > 1 {
		p.current = p.current[1:]
	}
	return html, nil
}

func (p *fakePortal) URL(context.Context) string {
	return "https://portal.test/" + p.state
}

func (p *fakePortal) PrintPDF(_ context.Context, html string) ([]byte, error) {
	p.printed++
	return []byte("%PDF-1.7 " + html[:min(len(html), 16)]), nil
}

func (p *fakePortal) courtOptions() []models.CourtOption {
	opts := []models.CourtOption{{Value: "", Label: "Select Court"}}
	return append(opts, p.courts...)
}

type fakeElement struct {
	p     *fakePortal
	kind  string
	value string
}

func (e *fakeElement) Click(context.Context) error {
	p := e.p
	switch e.kind {
	case "submit":
		p.submitted = append(p.submitted, p.captchaText)
		if p.panicOn != "" && p.panicOn == p.selectedCourt {
			panic("portal exploded")
		}
		p.state = "result"
		p.current = slices.Clone(p.results[p.selectedCourt])
		if len(p.current) == 0 {
			p.current = []string{tableHTML}
		}
	case "radio":
		p.radioClicks++
		p.caseType = e.value
	case "back":
		if p.backIgnored {
			return nil
		}
		p.state = "form"
		p.selectedCourt = ""
	default:
		return fmt.Errorf("%s is not clickable", e.kind)
	}
	return nil
}

func (e *fakeElement) Fill(_ context.Context, text string) error {
	if e.kind != "captcha-input" {
		return fmt.Errorf("%s is not fillable", e.kind)
	}
	e.p.captchaText = text
	return nil
}

func (e *fakeElement) SetValue(_ context.Context, value string) error {
	if e.kind != "date" {
		return fmt.Errorf("%s has no value", e.kind)
	}
	e.p.date = value
	return nil
}

func (e *fakeElement) SelectValue(_ context.Context, value string) error {
	if e.kind != "court" {
		return fmt.Errorf("%s is not a select", e.kind)
	}
	if e.p.readyAfter > 0 && e.p.courtOptCalls <= e.p.readyAfter {
		return errors.New("no such option")
	}
	for _, c := range e.p.courts {
		if c.Value == value {
			e.p.selectedCourt = value
			return nil
		}
	}
	return errors.New("no such option")
}

func (e *fakeElement) SelectText(_ context.Context, text string) error {
	if e.kind != "complex" || text != e.p.complexLabel {
		return errors.New("no such option")
	}
	return nil
}

func (e *fakeElement) SelectIndex(_ context.Context, index int) error {
	if e.kind != "complex" || index != 1 {
		return errors.New("no such option")
	}
	return nil
}

func (e *fakeElement) Options(context.Context) ([]models.CourtOption, error) {
	switch e.kind {
	case "complex":
		return []models.CourtOption{{Label: "Select Court Complex"}, {Value: "1", Label: e.p.complexLabel}}, nil
	case "court":
		e.p.courtOptCalls++
		if e.p.courtOptCalls <= e.p.readyAfter {
			return []models.CourtOption{{Label: "Select Court"}}, nil
		}
		return e.p.courtOptions(), nil
	}
	return nil, fmt.Errorf("%s has no options", e.kind)
}

func (e *fakeElement) Checked(context.Context) (bool, error) {
	return e.kind == "radio" && e.p.caseType == e.value, nil
}

func (e *fakeElement) Screenshot(context.Context) ([]byte, error) {
	if e.kind != "captcha-image" {
		return nil, fmt.Errorf("%s is not an image", e.kind)
	}
	return []byte("\x89PNG\r\n\x1a\nfake"), nil
}
