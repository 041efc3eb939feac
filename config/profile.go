package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// Profile describes the portal being driven. Every field has a default so a
// missing profile file is not an error.
type Profile struct {
	// BaseURL is the page hosting the cause-list form.
	BaseURL string `json:"baseUrl"`

	// ComplexLabel is the visible text of the court complex to select.
	// When absent from the live dropdown the first real option is used.
	ComplexLabel string `json:"complexLabel"`

	// CaseTypeCodes maps "civil"/"criminal" to the radio values.
	CaseTypeCodes map[string]string `json:"caseTypeCodes"`

	// NoCasePhrases are matched case-insensitively against visible text.
	NoCasePhrases []string `json:"noCasePhrases"`

	// FormMarkers only appear on the input form. Result views of the same
	// page may keep them, so they count only on pages without tables.
	FormMarkers []string `json:"formMarkers"`

	// CourtPlaceholder is the label of the court dropdown's empty option.
	CourtPlaceholder string `json:"courtPlaceholder"`

	// Headers are sent with every portal request.
	Headers map[string]string `json:"headers"`
}

// DefaultProfile returns the profile for the New Delhi district court portal.
func DefaultProfile() Profile {
	return Profile{
		BaseURL:      "https://newdelhi.dcourts.gov.in/cause-list-%e2%81%84-daily-board/",
		ComplexLabel: "Patiala House Court Complex",
		CaseTypeCodes: map[string]string{
			"civil":    "2",
			"criminal": "3",
		},
		NoCasePhrases:    []string{"no record", "no case", "not found"},
		FormMarkers:      []string{"Please Enter the Captcha", "This form needs JavaScript"},
		CourtPlaceholder: "select court",
		Headers: map[string]string{
			"Accept-Language": "en-IN,en;q=0.9",
		},
	}
}

// LoadProfile reads name and its ".local" sibling (portal.json5 and
// portal.local.json5), merging both over DefaultProfile. Missing files are
// skipped.
func LoadProfile(name string) (Profile, error) {
	out := DefaultProfile()
	if name == "" {
		return out, nil
	}

	dir := filepath.Dir(name)
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	prefix := strings.TrimSuffix(base, ext)

	for _, path := range []string{
		name,
		filepath.Join(dir, fmt.Sprintf("%s.local%s", prefix, ext)),
	} {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return out, err
		}
		if len(data) == 0 {
			continue
		}

		var override Profile
		if err := json5.Unmarshal(data, &override); err != nil {
			return out, fmt.Errorf("parse %s: %w", path, err)
		}
		if err := mergo.Merge(&out, override, mergo.WithOverride); err != nil {
			return out, fmt.Errorf("merge %s: %w", path, err)
		}
		slog.Info("loaded portal profile", "path", path)
	}
	return out, nil
}

// CaseTypeCode returns the radio value for caseType.
func (p Profile) CaseTypeCode(caseType string) (string, bool) {
	code, ok := p.CaseTypeCodes[strings.ToLower(caseType)]
	return code, ok
}
