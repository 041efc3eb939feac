// Package locator describes page controls as ordered lists of candidate
// selectors and resolves them with a single first-match rule.
//
// A Chain is data: which selectors to try, in which order. Resolution is
// delegated to a FindFunc so the same chains work against a live browser
// page and against in-memory fakes.
package locator

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/andybalholm/cascadia"
)

// Kind is the selector language of a Candidate.
type Kind int

const (
	// CSS is a CSS selector.
	CSS Kind = iota
	// XPath is an XPath expression.
	XPath
	// Text matches elements selected by the CSS Query whose visible text
	// matches the Pattern regular expression.
	Text
)

func (k Kind) String() string {
	switch k {
	case CSS:
		return "css"
	case XPath:
		return "xpath"
	case Text:
		return "text"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Candidate is one way of locating a control.
type Candidate struct {
	Kind    Kind
	Query   string
	Pattern string // Text only
}

func (c Candidate) String() string {
	if c.Kind == Text {
		return fmt.Sprintf("text(%s ~ /%s/)", c.Query, c.Pattern)
	}
	return fmt.Sprintf("%s(%s)", c.Kind, c.Query)
}

// ByCSS returns a CSS candidate.
func ByCSS(query string) Candidate { return Candidate{Kind: CSS, Query: query} }

// ByXPath returns an XPath candidate.
func ByXPath(query string) Candidate { return Candidate{Kind: XPath, Query: query} }

// ByText returns a candidate matching elements selected by query whose text
// matches pattern.
func ByText(query, pattern string) Candidate {
	return Candidate{Kind: Text, Query: query, Pattern: pattern}
}

// ByName returns a CSS candidate for a form control by its name attribute.
func ByName(tag, name string) Candidate {
	return ByCSS(fmt.Sprintf("%s[name='%s']", tag, name))
}

// Chain is an ordered list of candidates for one logical control.
type Chain struct {
	Name       string
	Candidates []Candidate
}

// NewChain builds a chain and panics if a candidate is malformed. Chains are
// declared at package level, so a bad selector fails at init.
func NewChain(name string, candidates ...Candidate) Chain {
	c := Chain{Name: name, Candidates: candidates}
	if err := c.Validate(); err != nil {
		panic(err)
	}
	return c
}

// Validate compiles CSS queries with cascadia and checks Text patterns.
func (c Chain) Validate() error {
	if len(c.Candidates) == 0 {
		return fmt.Errorf("locator %q: no candidates", c.Name)
	}
	for i, cand := range c.Candidates {
		if strings.TrimSpace(cand.Query) == "" {
			return fmt.Errorf("locator %q: candidate %d has an empty query", c.Name, i)
		}
		switch cand.Kind {
		case CSS, Text:
			if _, err := cascadia.Parse(cand.Query); err != nil {
				return fmt.Errorf("locator %q: candidate %d: %w", c.Name, i, err)
			}
			if cand.Kind == Text {
				if _, err := regexp.Compile(cand.Pattern); err != nil {
					return fmt.Errorf("locator %q: candidate %d: %w", c.Name, i, err)
				}
			}
		case XPath:
			// Compiled by the browser.
		default:
			return fmt.Errorf("locator %q: candidate %d has unknown kind %v", c.Name, i, cand.Kind)
		}
	}
	return nil
}

// ErrNoMatch is returned by a FindFunc when a candidate matches nothing,
// and by First when no candidate in the chain matches.
var ErrNoMatch = errors.New("no matching element")

// FindFunc looks up a single candidate without waiting. It returns
// ErrNoMatch when the candidate matches nothing.
type FindFunc[T any] func(ctx context.Context, c Candidate) (T, error)

// First tries each candidate in order and returns the first match together
// with the candidate that produced it. Lookup errors other than ErrNoMatch
// are remembered and reported if nothing matches.
func First[T any](ctx context.Context, chain Chain, find FindFunc[T]) (T, Candidate, error) {
	var zero T
	var errs []error
	for _, cand := range chain.Candidates {
		if err := ctx.Err(); err != nil {
			return zero, Candidate{}, err
		}
		v, err := find(ctx, cand)
		if err == nil {
			return v, cand, nil
		}
		if !errors.Is(err, ErrNoMatch) {
			errs = append(errs, fmt.Errorf("%s: %w", cand, err))
		}
	}
	err := fmt.Errorf("locator %q: %w", chain.Name, ErrNoMatch)
	if len(errs) > 0 {
		err = errors.Join(append([]error{err}, errs...)...)
	}
	return zero, Candidate{}, err
}
