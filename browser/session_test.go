package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/causelist/models"
)

var errRefused = errors.New("net::ERR_CONNECTION_REFUSED")

// scriptedLoads fails the first n loads and succeeds afterwards.
func scriptedLoads(n int, calls *int) func(context.Context, string) error {
	return func(context.Context, string) error {
		*calls++
		if *calls <= n {
			return errRefused
		}
		return nil
	}
}

func TestNavigateGivesUpAfterAttempts(t *testing.T) {
	calls := 0
	s := &Session{nav: NavPolicy{Attempts: 3}, load: scriptedLoads(100, &calls)}

	err := s.Navigate(context.Background(), "https://portal.test/form")
	require.Error(t, err)
	require.Equal(t, 3, calls)
	require.True(t, models.HasCode(err, models.ErrCodeNavigation))
	require.ErrorIs(t, err, errRefused)
	require.Contains(t, err.Error(), "after 3 attempts")
}

func TestNavigateSucceedsOnRetry(t *testing.T) {
	calls := 0
	s := &Session{nav: NavPolicy{Attempts: 3, Backoff: time.Millisecond}, load: scriptedLoads(1, &calls)}

	require.NoError(t, s.Navigate(context.Background(), "https://portal.test/form"))
	require.Equal(t, 2, calls)
}

func TestNavigateSingleAttemptWhenUnset(t *testing.T) {
	calls := 0
	s := &Session{load: scriptedLoads(100, &calls)}

	err := s.Navigate(context.Background(), "https://portal.test/form")
	require.True(t, models.HasCode(err, models.ErrCodeNavigation))
	require.Equal(t, 1, calls)
}

func TestNavigateAttemptDeadlineIsNavigationFailure(t *testing.T) {
	calls := 0
	s := &Session{
		nav: NavPolicy{Attempts: 2},
		load: func(context.Context, string) error {
			calls++
			return context.DeadlineExceeded
		},
	}

	err := s.Navigate(context.Background(), "https://portal.test/form")
	require.Equal(t, 2, calls)
	require.True(t, models.HasCode(err, models.ErrCodeNavigation))
}

func TestNavigateCanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	s := &Session{
		nav: NavPolicy{Attempts: 3, Backoff: time.Hour},
		load: func(context.Context, string) error {
			calls++
			time.AfterFunc(10*time.Millisecond, cancel)
			return errRefused
		},
	}

	start := time.Now()
	err := s.Navigate(ctx, "https://portal.test/form")
	require.Less(t, time.Since(start), time.Minute)
	require.Equal(t, 1, calls)
	require.True(t, models.HasCode(err, models.ErrCodeTimeout))
}

type readyEngine struct {
	name  string
	calls int
}

func (e *readyEngine) Name() string { return e.name }

func (e *readyEngine) Launch(context.Context) (*rod.Browser, bool, error) {
	e.calls++
	return nil, true, nil
}

func TestOpenUsesNextEngineAfterLaunchFailure(t *testing.T) {
	first := &failingEngine{name: "system"}
	second := &readyEngine{name: "managed"}

	opened := 0
	l := &Launcher{
		Engines: []Engine{first, second},
		Nav:     NavPolicy{Attempts: 3},
		open: func(_ *rod.Browser, owned bool) (*Session, error) {
			opened++
			return &Session{owned: owned}, nil
		},
	}

	h, err := l.Open(context.Background())
	require.NoError(t, err)
	require.NotNil(t, h)
	require.Equal(t, 1, first.calls)
	require.Equal(t, 1, second.calls)
	require.Equal(t, 1, opened)
	require.True(t, h.(*Session).owned)
	require.NoError(t, h.Close())
}

func TestOpenUsesNextEngineAfterPageFailure(t *testing.T) {
	first := &readyEngine{name: "system"}
	second := &readyEngine{name: "managed"}

	opened := 0
	l := &Launcher{
		Engines: []Engine{first, second},
		open: func(*rod.Browser, bool) (*Session, error) {
			opened++
			if opened == 1 {
				return nil, errors.New("create page: target closed")
			}
			return &Session{}, nil
		},
	}

	s, err := l.OpenSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, s)
	require.Equal(t, 1, first.calls)
	require.Equal(t, 1, second.calls)
	require.Equal(t, 2, opened)
}
