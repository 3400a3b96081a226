package gated

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/LerianStudio/lib-gated/gated/log"
	"github.com/LerianStudio/lib-gated/gated/runtime"
)

var (
	ErrLoggerNil    = errors.New("logger is nil")
	ErrNilLauncher  = errors.New("launcher is nil")
	ErrEmptyApp     = errors.New("app name is empty")
	ErrNilApp       = errors.New("app is nil")
	ErrDuplicateApp = errors.New("app name already registered")
	ErrConfigFailed = errors.New("launcher configuration failed")
)

// App is a long-running component, such as the HTTP gateway.
type App interface {
	Run(launcher *Launcher) error
}

// LauncherOption configures a Launcher.
type LauncherOption func(l *Launcher)

func WithLogger(logger log.Logger) LauncherOption {
	return func(l *Launcher) { l.Logger = logger }
}

// RunApp registers app under name. Registration problems are reported by RunWithError.
func RunApp(name string, app App) LauncherOption {
	return func(l *Launcher) {
		if err := l.Add(name, app); err != nil {
			l.configErrors = append(l.configErrors, fmt.Errorf("add app %q: %w", name, err))
		}
	}
}

type namedApp struct {
	name string
	app  App
}

// Launcher starts its apps together and waits until every one has returned.
type Launcher struct {
	Logger       log.Logger
	apps         []namedApp
	configErrors []error
}

func NewLauncher(opts ...LauncherOption) *Launcher {
	l := &Launcher{}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Add registers app. Names must be unique and non-blank.
func (l *Launcher) Add(name string, app App) error {
	if l == nil {
		return ErrNilLauncher
	}

	if strings.TrimSpace(name) == "" {
		return ErrEmptyApp
	}

	if app == nil {
		return ErrNilApp
	}

	for _, registered := range l.apps {
		if registered.name == name {
			return ErrDuplicateApp
		}
	}

	l.apps = append(l.apps, namedApp{name: name, app: app})

	return nil
}

// RunWithError runs every app and returns their errors joined, each prefixed
// with the app name. A panicking app is logged and counts as finished.
func (l *Launcher) RunWithError() error {
	switch {
	case l == nil:
		return ErrNilLauncher
	case l.Logger == nil:
		return ErrLoggerNil
	case len(l.configErrors) > 0:
		return errors.Join(append([]error{ErrConfigFailed}, l.configErrors...)...)
	}

	ctx := context.Background()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	l.Logger.Log(ctx, log.LevelInfo, "starting apps", log.Int("count", len(l.apps)))

	for _, entry := range l.apps {
		wg.Add(1)

		runtime.SafeGoWithContextAndComponent(ctx, l.Logger, "launcher", "app_"+entry.name, runtime.KeepRunning,
			func(ctx context.Context) {
				defer wg.Done()

				err := entry.app.Run(l)
				if err == nil {
					l.Logger.Log(ctx, log.LevelInfo, "app finished", log.String("app", entry.name))
					return
				}

				l.Logger.Log(ctx, log.LevelError, "app failed", log.String("app", entry.name), log.Err(err))

				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", entry.name, err))
				mu.Unlock()
			})
	}

	wg.Wait()

	return errors.Join(errs...)
}
