package browser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-rod/rod"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/causelist/config"
	"github.com/use-agent/causelist/models"
)

type failingEngine struct {
	name  string
	calls int
}

func (e *failingEngine) Name() string { return e.name }

func (e *failingEngine) Launch(context.Context) (*rod.Browser, bool, error) {
	e.calls++
	return nil, false, errors.New(e.name + " unavailable")
}

func TestOpenFallsBackThenReportsEnvironmentError(t *testing.T) {
	first := &failingEngine{name: "system"}
	second := &failingEngine{name: "managed"}
	l := &Launcher{Engines: []Engine{first, second}}

	h, err := l.Open(context.Background())
	require.Nil(t, h)
	require.Error(t, err)
	require.True(t, models.HasCode(err, models.ErrCodeEnvironment))
	require.Contains(t, err.Error(), "system unavailable")
	require.Contains(t, err.Error(), "managed unavailable")
	require.Equal(t, 1, first.calls)
	require.Equal(t, 1, second.calls)
}

func TestOpenCanceledContext(t *testing.T) {
	e := &failingEngine{name: "system"}
	l := &Launcher{Engines: []Engine{e}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Open(ctx)
	require.True(t, models.HasCode(err, models.ErrCodeTimeout))
	require.Zero(t, e.calls)
}

func TestNewLauncherEngineOrder(t *testing.T) {
	names := func(l *Launcher) []string {
		var out []string
		for _, e := range l.Engines {
			out = append(out, e.Name())
		}
		return out
	}

	for engine, want := range map[string][]string{
		"system":  {"system", "managed"},
		"managed": {"managed", "system"},
		"remote":  {"remote", "system"},
		"":        {"system", "managed"},
	} {
		l := NewLauncher(config.BrowserConfig{Engine: engine}, config.PortalConfig{}, nil)
		require.Equal(t, want, names(l), engine)
	}
}

func TestRemoteEngineRequiresURL(t *testing.T) {
	_, _, err := (&RemoteEngine{}).Launch(context.Background())
	require.Error(t, err)
}

func TestCloseIsNilSafeAndIdempotent(t *testing.T) {
	var nilSession *Session
	require.NoError(t, nilSession.Close())

	s := &Session{}
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestIsTrackerDomain(t *testing.T) {
	require.True(t, isTrackerDomain("www.google-analytics.com"))
	require.True(t, isTrackerDomain("GoogleTagManager.com"))
	require.False(t, isTrackerDomain("newdelhi.dcourts.gov.in"))
	require.False(t, isTrackerDomain("com"))
}

func TestExtractTitle(t *testing.T) {
	require.Equal(t, "Daily Board", extractTitle([]byte("<html><head><title> Daily Board </title></head></html>")))
	require.Equal(t, "", extractTitle([]byte("<p>no title</p>")))
}

func TestProbeReportsStatus(t *testing.T) {
	// Plain-HTTP target: the Chrome fingerprint only applies to TLS dials.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != chromeUA {
			w.WriteHeader(http.StatusForbidden)
		}
		_, _ = w.Write([]byte("<title>Cause List</title>"))
	}))
	defer srv.Close()

	res, err := Probe(context.Background(), srv.URL, "")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "Cause List", res.Title)
}
