// Package store persists run artifacts under the downloads directory.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/use-agent/causelist/models"
)

// Artifact kinds, one subdirectory each.
const (
	KindPDF      = "pdfs"
	KindJSON     = "json"
	KindCaptcha  = "captchas"
	KindMarkdown = "markdown"
)

var kinds = []string{KindPDF, KindJSON, KindCaptcha, KindMarkdown}

// Layout is the directory convention rooted at Root.
type Layout struct {
	Root string
}

// EnsureDirs creates Root and every artifact subdirectory.
func (l Layout) EnsureDirs() error {
	for _, k := range kinds {
		if err := os.MkdirAll(l.Dir(k), 0o755); err != nil {
			return fmt.Errorf("create %s: %w", l.Dir(k), err)
		}
	}
	return nil
}

// Dir returns the directory for an artifact kind.
func (l Layout) Dir(kind string) string {
	return filepath.Join(l.Root, kind)
}

// Path joins name onto the directory for kind.
func (l Layout) Path(kind, name string) string {
	return filepath.Join(l.Dir(kind), name)
}

// CaptchaPath returns a fresh path for a captured CAPTCHA image.
func (l Layout) CaptchaPath(now time.Time) string {
	return l.Path(KindCaptcha, fmt.Sprintf("captcha_%s.png", now.Format("20060102_150405.000")))
}

// BaseName derives the artifact base name from a court label, court value,
// date and case type: "Court No. 7 - Civil Judge", 7, 03/15/2025, civil
// becomes "Court_No._7_-_Civil_Judge_7_03-15-2025_civil". Labels can repeat
// across courts; the value keeps their artifacts apart.
func BaseName(courtLabel, courtValue, date string, caseType models.CaseType) string {
	parts := []string{sanitize(courtLabel)}
	if v := sanitize(courtValue); v != "" {
		parts = append(parts, v)
	}
	parts = append(parts, sanitize(date), sanitize(string(caseType)))
	return strings.Join(parts, "_")
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r == ' ':
			b.WriteByte('_')
		case r == '/' || r == '\\':
			b.WriteByte('-')
		case r == '.' || r == '-' || r == '_',
			'0' <= r && r <= '9', 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// WriteOutcome stores o as indented JSON under json/ and returns the path.
func (l Layout) WriteOutcome(o *models.ScrapeOutcome) (string, error) {
	path := l.Path(KindJSON, BaseName(o.Court, o.CourtID, o.Date, o.CaseType)+".json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := writeJSONAtomic(path, o); err != nil {
		return "", err
	}
	return path, nil
}

// WriteFile stores data under kind and returns the path.
func (l Layout) WriteFile(kind, name string, data []byte) (string, error) {
	path := l.Path(kind, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func writeJSONAtomic(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err == nil {
		return nil
	}

	defer os.Remove(tmp)
	if runtime.GOOS == "windows" {
		_ = os.Remove(path)
	}
	return os.Rename(tmp, path)
}
