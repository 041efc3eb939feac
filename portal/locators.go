package portal

import (
	"context"
	"fmt"

	"github.com/use-agent/causelist/browser"
	"github.com/use-agent/causelist/locator"
	"github.com/use-agent/causelist/models"
)

// Portal controls, each an ordered list of candidates. First match wins.
var (
	ComplexSelect = locator.NewChain("court complex",
		locator.ByName("select", "est_code"),
		locator.ByCSS("#est_code"),
		locator.ByCSS("select[name*='complex']"),
	)

	CourtSelect = locator.NewChain("court",
		locator.ByName("select", "court"),
		locator.ByCSS("#court"),
		locator.ByCSS("select[id*='court_no']"),
	)

	DateInput = locator.NewChain("date",
		locator.ByName("input", "date"),
		locator.ByCSS("#date"),
		locator.ByCSS("input.datepicker"),
		locator.ByCSS("input[name*='date']"),
	)

	CaptchaImage = locator.NewChain("captcha image",
		locator.ByCSS("img[src*='captcha']"),
		locator.ByCSS("img[alt*='captcha']"),
		locator.ByCSS("img[id*='captcha']"),
		locator.ByCSS("#captcha_image"),
		locator.ByCSS(".captcha-image"),
		locator.ByXPath("//*[contains(text(), 'Captcha') or contains(text(), 'captcha')]/following::img[1]"),
	)

	CaptchaInput = locator.NewChain("captcha input",
		locator.ByName("input", "captcha_code"),
		locator.ByName("input", "captcha"),
		locator.ByName("input", "captchaCode"),
		locator.ByName("input", "txtCaptcha"),
		locator.ByXPath("//input[@placeholder='Enter Captcha Code' or contains(@placeholder, 'Captcha')]"),
	)

	SubmitButton = locator.NewChain("search button",
		locator.ByCSS("input[value='Search']"),
		locator.ByCSS("button[type='submit']"),
		locator.ByCSS("input[type='submit']"),
		locator.ByXPath("//button[contains(text(), 'Search')]"),
		locator.ByXPath("//input[contains(@value, 'Search')]"),
	)

	BackLink = locator.NewChain("back link",
		locator.ByText("a", `^\s*Back\s*$`),
		locator.ByText("a", `Back`),
	)

	ResultTable = locator.NewChain("result table",
		locator.ByCSS("table"),
	)
)

// caseTypeChain locates the radio for a case-type code.
func caseTypeChain(code string) (locator.Chain, error) {
	c := locator.Chain{
		Name: "case type",
		Candidates: []locator.Candidate{
			locator.ByCSS(fmt.Sprintf("input[name='cause_type'][value='%s']", code)),
			locator.ByCSS(fmt.Sprintf("input[type='radio'][value='%s']", code)),
		},
	}
	return c, c.Validate()
}

// find resolves chain on page. A miss becomes ELEMENT_NOT_FOUND.
func find(ctx context.Context, page browser.Page, chain locator.Chain) (browser.Element, error) {
	el, _, err := locator.First[browser.Element](ctx, chain, page.Find)
	if err != nil {
		if ctx.Err() != nil {
			return nil, models.NewScrapeError(models.ErrCodeTimeout, chain.Name+": lookup interrupted", err)
		}
		return nil, models.NewScrapeError(models.ErrCodeElementNotFound, chain.Name+" not found", err)
	}
	return el, nil
}
