package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/LerianStudio/lib-gated/gated/log"
	"github.com/LerianStudio/lib-gated/gated/opentelemetry"
	"github.com/LerianStudio/lib-gated/gated/runtime"
	"github.com/gofiber/fiber/v2"
)

// ErrNoServersConfigured indicates no HTTP server was configured.
var ErrNoServersConfigured = errors.New("no servers configured: use WithHTTPServer()")

// DefaultShutdownTimeout bounds the HTTP drain and each closer.
const DefaultShutdownTimeout = 30 * time.Second

// CloseFunc releases a resource during shutdown.
type CloseFunc func(ctx context.Context) error

type closer struct {
	name string
	fn   CloseFunc
}

// ServerManager runs the gateway's HTTP server. Shutdown drains HTTP, runs
// the closers newest first, flushes telemetry and syncs the logger.
type ServerManager struct {
	httpServer         *fiber.App
	telemetry          *opentelemetry.Telemetry
	logger             log.Logger
	httpAddress        string
	closers            []closer
	serversStarted     chan struct{}
	serversStartedOnce sync.Once
	shutdownChan       <-chan struct{}
	shutdownOnce       sync.Once
	shutdownTimeout    time.Duration
	startupErrors      chan error
}

// NewServerManager creates a ServerManager. A nil logger becomes a no-op logger.
func NewServerManager(telemetry *opentelemetry.Telemetry, logger log.Logger) *ServerManager {
	if logger == nil {
		logger = log.NewNop()
	}

	return &ServerManager{
		telemetry:       telemetry,
		logger:          logger,
		serversStarted:  make(chan struct{}),
		shutdownTimeout: DefaultShutdownTimeout,
		startupErrors:   make(chan error, 1),
	}
}

// WithHTTPServer configures the HTTP server.
func (sm *ServerManager) WithHTTPServer(app *fiber.App, address string) *ServerManager {
	sm.httpServer = app
	sm.httpAddress = address

	return sm
}

// WithCloser registers a resource to release after the HTTP server stops.
func (sm *ServerManager) WithCloser(name string, fn CloseFunc) *ServerManager {
	if fn != nil {
		sm.closers = append(sm.closers, closer{name: name, fn: fn})
	}

	return sm
}

// WithShutdownChannel replaces OS signal handling with ch, mainly for tests.
func (sm *ServerManager) WithShutdownChannel(ch <-chan struct{}) *ServerManager {
	sm.shutdownChan = ch

	return sm
}

// WithShutdownTimeout overrides DefaultShutdownTimeout.
func (sm *ServerManager) WithShutdownTimeout(d time.Duration) *ServerManager {
	if d > 0 {
		sm.shutdownTimeout = d
	}

	return sm
}

// ServersStarted is closed once the server goroutine has been launched. It
// does not mean the socket is bound.
func (sm *ServerManager) ServersStarted() <-chan struct{} {
	return sm.serversStarted
}

// StartWithGracefulShutdownWithError serves until SIGINT, SIGTERM, the
// shutdown channel or a listen failure, then shuts everything down. A listen
// failure is returned once shutdown has finished.
func (sm *ServerManager) StartWithGracefulShutdownWithError() error {
	if sm.httpServer == nil {
		return ErrNoServersConfigured
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runtime.SafeGoWithContextAndComponent(ctx, sm.logger, "server", "http_listener", runtime.KeepRunning, sm.listen)
	sm.serversStartedOnce.Do(func() { close(sm.serversStarted) })

	var err error

	select {
	case <-ctx.Done():
		sm.logger.Log(ctx, log.LevelInfo, "shutdown signal received")
	case <-sm.shutdownChan:
		sm.logger.Log(ctx, log.LevelInfo, "shutdown requested")
	case err = <-sm.startupErrors:
		sm.logger.Log(ctx, log.LevelError, "server startup failed", log.Err(err))
	}

	sm.executeShutdown()

	return err
}

func (sm *ServerManager) listen(ctx context.Context) {
	sm.logger.Log(ctx, log.LevelInfo, "starting HTTP server", log.String("address", sm.httpAddress))

	if err := sm.httpServer.Listen(sm.httpAddress); err != nil {
		select {
		case sm.startupErrors <- fmt.Errorf("HTTP server: %w", err):
		default:
		}
	}
}

// executeShutdown runs once; later calls are no-ops.
func (sm *ServerManager) executeShutdown() {
	sm.shutdownOnce.Do(func() {
		ctx := context.Background()

		sm.logger.Log(ctx, log.LevelInfo, "shutting down", log.Int("closers", len(sm.closers)))

		if sm.httpServer != nil {
			if err := sm.httpServer.ShutdownWithTimeout(sm.shutdownTimeout); err != nil {
				sm.logger.Log(ctx, log.LevelError, "error during HTTP server shutdown", log.Err(err))
			}
		}

		for i := len(sm.closers) - 1; i >= 0; i-- {
			sm.runCloser(ctx, sm.closers[i])
		}

		if sm.telemetry != nil {
			tctx, cancel := context.WithTimeout(ctx, sm.shutdownTimeout)
			if err := sm.telemetry.ShutdownTelemetry(tctx); err != nil {
				sm.logger.Log(ctx, log.LevelError, "telemetry shutdown failed", log.Err(err))
			}

			cancel()
		}

		if err := sm.logger.Sync(ctx); err != nil {
			sm.logger.Log(ctx, log.LevelWarn, "failed to sync logger", log.Err(err))
		}

		sm.logger.Log(ctx, log.LevelInfo, "graceful shutdown completed")
	})
}

func (sm *ServerManager) runCloser(ctx context.Context, c closer) {
	defer runtime.RecoverAndLogWithContext(ctx, sm.logger, "server", "close_"+c.name)

	cctx, cancel := context.WithTimeout(ctx, sm.shutdownTimeout)
	defer cancel()

	if err := c.fn(cctx); err != nil {
		sm.logger.Log(ctx, log.LevelError, "failed to close resource", log.String("resource", c.name), log.Err(err))

		return
	}

	sm.logger.Log(ctx, log.LevelDebug, "resource closed", log.String("resource", c.name))
}
