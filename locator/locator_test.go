package locator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFirst_ReturnsFirstMatchInOrder(t *testing.T) {
	chain := NewChain("submit",
		ByCSS("input[value='Search']"),
		ByCSS("button[type='submit']"),
		ByXPath("//button[contains(text(), 'Search')]"),
	)

	var tried []string
	present := map[string]string{
		"button[type='submit']":                "button",
		"//button[contains(text(), 'Search')]": "xpath-button",
	}
	find := func(_ context.Context, c Candidate) (string, error) {
		tried = append(tried, c.Query)
		if v, ok := present[c.Query]; ok {
			return v, nil
		}
		return "", ErrNoMatch
	}

	got, cand, err := First(context.Background(), chain, find)
	require.NoError(t, err)
	require.Equal(t, "button", got)
	require.Equal(t, "button[type='submit']", cand.Query)
	require.Equal(t, []string{"input[value='Search']", "button[type='submit']"}, tried)
}

func TestFirst_NoMatch(t *testing.T) {
	chain := NewChain("captcha input", ByName("input", "captcha_code"), ByName("input", "captcha"))
	find := func(context.Context, Candidate) (int, error) { return 0, ErrNoMatch }

	_, _, err := First(context.Background(), chain, find)
	require.ErrorIs(t, err, ErrNoMatch)
	require.Contains(t, err.Error(), "captcha input")
}

func TestFirst_ReportsLookupErrors(t *testing.T) {
	chain := NewChain("table", ByCSS("table"))
	boom := errors.New("cdp closed")
	find := func(context.Context, Candidate) (int, error) { return 0, boom }

	_, _, err := First(context.Background(), chain, find)
	require.ErrorIs(t, err, ErrNoMatch)
	require.ErrorIs(t, err, boom)
}

func TestFirst_StopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	find := func(context.Context, Candidate) (int, error) { calls++; return 1, nil }

	_, _, err := First(ctx, NewChain("x", ByCSS("a")), find)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, calls)
}

func TestChainValidate(t *testing.T) {
	tests := []struct {
		name    string
		chain   Chain
		wantErr bool
	}{
		{"css ok", Chain{Name: "a", Candidates: []Candidate{ByCSS("img[src*='captcha']")}}, false},
		{"text ok", Chain{Name: "a", Candidates: []Candidate{ByText("a", `(?i)^\s*back\s*$`)}}, false},
		{"xpath passes through", Chain{Name: "a", Candidates: []Candidate{ByXPath("//img[1]")}}, false},
		{"empty chain", Chain{Name: "a"}, true},
		{"bad css", Chain{Name: "a", Candidates: []Candidate{ByCSS("img[src*=")}}, true},
		{"bad pattern", Chain{Name: "a", Candidates: []Candidate{ByText("a", "(")}}, true},
		{"empty query", Chain{Name: "a", Candidates: []Candidate{ByCSS("  ")}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.chain.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNewChainPanicsOnBadSelector(t *testing.T) {
	require.Panics(t, func() { NewChain("bad", ByCSS("select[")) })
}
