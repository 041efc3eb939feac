package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/causelist/config"
	"github.com/use-agent/causelist/models"
	"github.com/ysmood/gson"
)

// Engine starts or attaches to a browser.
type Engine interface {
	// Name identifies the engine in logs ("system", "managed", "remote").
	Name() string

	// Launch returns a connected browser. owned reports whether closing the
	// session should also kill the browser process.
	Launch(ctx context.Context) (b *rod.Browser, owned bool, err error)
}

// NavPolicy bounds page loads.
type NavPolicy struct {
	Timeout  time.Duration // per attempt
	Attempts int
	Backoff  time.Duration
}

// Launcher opens sessions, trying Engines in order until one starts.
type Launcher struct {
	Engines       []Engine
	Nav           NavPolicy
	Stealth       bool
	Headers       map[string]string
	BlockedTypes  []string
	BlockTrackers bool

	// open turns a launched browser into a session; nil means newSession.
	open func(b *rod.Browser, owned bool) (*Session, error)
}

// NewLauncher builds a launcher whose engine order follows cfg.Engine:
// "system" falls back to "managed", "managed" falls back to "system" and
// "remote" falls back to "system".
func NewLauncher(cfg config.BrowserConfig, portal config.PortalConfig, headers map[string]string) *Launcher {
	system := &SystemEngine{cfg: cfg}
	managed := &ManagedEngine{cfg: cfg}

	var engines []Engine
	switch cfg.Engine {
	case "managed":
		engines = []Engine{managed, system}
	case "remote":
		engines = []Engine{&RemoteEngine{URL: cfg.RemoteURL}, system}
	default:
		engines = []Engine{system, managed}
	}

	return &Launcher{
		Engines: engines,
		Nav: NavPolicy{
			Timeout:  portal.NavigationTimeout,
			Attempts: portal.NavigationAttempts,
			Backoff:  portal.NavigationBackoff,
		},
		Stealth:       cfg.Stealth,
		Headers:       headers,
		BlockedTypes:  cfg.BlockedResourceTypes,
		BlockTrackers: true,
	}
}

// Open satisfies Opener.
func (l *Launcher) Open(ctx context.Context) (Handle, error) {
	s, err := l.OpenSession(ctx)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// OpenSession starts a browser with the first engine that works and opens
// the session's page. When every engine fails the joined failures are
// returned as ENVIRONMENT_ERROR.
func (l *Launcher) OpenSession(ctx context.Context) (*Session, error) {
	var errs []error
	for _, engine := range l.Engines {
		if err := ctx.Err(); err != nil {
			return nil, categorizeError(err, models.ErrCodeEnvironment, "browser launch canceled")
		}

		b, owned, err := engine.Launch(ctx)
		if err != nil {
			slog.Warn("browser engine failed, trying next", "engine", engine.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", engine.Name(), err))
			continue
		}

		open := l.open
		if open == nil {
			open = l.newSession
		}
		s, err := open(b, owned)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", engine.Name(), err))
			continue
		}
		slog.Info("browser session opened", "engine", engine.Name())
		return s, nil
	}

	return nil, models.NewScrapeError(
		models.ErrCodeEnvironment,
		"no browser automation engine could be started",
		errors.Join(errs...),
	)
}

func (l *Launcher) newSession(b *rod.Browser, owned bool) (*Session, error) {
	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		if owned {
			_ = b.Close()
		}
		return nil, fmt.Errorf("create page: %w", err)
	}

	if l.Stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}

	if len(l.Headers) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(l.Headers)}.Call(page)
	}

	return &Session{
		browser: b,
		page:    page,
		router:  setupHijack(page, l.BlockedTypes, l.BlockTrackers),
		owned:   owned,
		nav:     l.Nav,
	}, nil
}

// SystemEngine runs an installed Chrome/Chromium (or the configured binary).
type SystemEngine struct {
	cfg config.BrowserConfig
}

func (e *SystemEngine) Name() string { return "system" }

func (e *SystemEngine) Launch(ctx context.Context) (*rod.Browser, bool, error) {
	bin := e.cfg.BrowserBin
	if bin == "" {
		path, ok := launcher.LookPath()
		if !ok {
			return nil, false, errors.New("no installed Chrome or Chromium found")
		}
		bin = path
	}
	return launch(ctx, newLauncher(e.cfg).Bin(bin))
}

// ManagedEngine downloads (once) and runs rod's pinned Chromium build.
type ManagedEngine struct {
	cfg config.BrowserConfig
}

func (e *ManagedEngine) Name() string { return "managed" }

func (e *ManagedEngine) Launch(ctx context.Context) (*rod.Browser, bool, error) {
	bin, err := launcher.NewBrowser().Get()
	if err != nil {
		return nil, false, fmt.Errorf("download browser: %w", err)
	}
	return launch(ctx, newLauncher(e.cfg).Bin(bin))
}

// RemoteEngine attaches to a running browser's DevTools endpoint. The
// browser is not owned and survives the session.
type RemoteEngine struct {
	URL string
}

func (e *RemoteEngine) Name() string { return "remote" }

func (e *RemoteEngine) Launch(ctx context.Context) (*rod.Browser, bool, error) {
	if e.URL == "" {
		return nil, false, errors.New("no remote DevTools URL configured")
	}
	u, err := launcher.ResolveURL(e.URL)
	if err != nil {
		return nil, false, fmt.Errorf("resolve %s: %w", e.URL, err)
	}
	b := rod.New().Context(ctx).ControlURL(u)
	if err := b.Connect(); err != nil {
		return nil, false, fmt.Errorf("connect: %w", err)
	}
	return b.Context(context.Background()), false, nil
}

func newLauncher(cfg config.BrowserConfig) *launcher.Launcher {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "TranslateUI")
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-prompt-on-repost"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("window-size"), "1366,900")
	return l
}

func launch(ctx context.Context, l *launcher.Launcher) (*rod.Browser, bool, error) {
	controlURL, err := l.Context(ctx).Launch()
	if err != nil {
		return nil, false, fmt.Errorf("launch: %w", err)
	}
	slog.Debug("browser launched", "controlURL", controlURL)

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, false, fmt.Errorf("connect: %w", err)
	}
	return b, true, nil
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
