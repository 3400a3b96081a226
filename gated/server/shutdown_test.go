//go:build unit

package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStart_NoServers(t *testing.T) {
	err := NewServerManager(nil, nil).StartWithGracefulShutdownWithError()
	require.ErrorIs(t, err, ErrNoServersConfigured)
}

func TestStart_ShutdownRunsClosersInReverse(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	listening := make(chan struct{})
	app.Hooks().OnListen(func(fiber.ListenData) error {
		close(listening)
		return nil
	})

	var (
		mu    sync.Mutex
		order []string
	)

	record := func(name string, err error) CloseFunc {
		return func(ctx context.Context) error {
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)

			mu.Lock()
			order = append(order, name)
			mu.Unlock()

			return err
		}
	}

	shutdown := make(chan struct{})

	sm := NewServerManager(nil, nil).
		WithHTTPServer(app, "127.0.0.1:0").
		WithShutdownChannel(shutdown).
		WithShutdownTimeout(time.Second).
		WithCloser("publisher", record("publisher", nil)).
		WithCloser("redis", record("redis", errors.New("already closed"))).
		WithCloser("panicky", func(context.Context) error { panic("boom") }).
		WithCloser("ignored", nil)

	done := make(chan error, 1)

	go func() {
		done <- sm.StartWithGracefulShutdownWithError()
	}()

	select {
	case <-listening:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start listening")
	}

	<-sm.ServersStarted()
	close(shutdown)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not complete")
	}

	assert.Equal(t, []string{"redis", "publisher"}, order)
}

func TestStart_StartupErrorIsReturned(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	closed := make(chan struct{})

	sm := NewServerManager(nil, nil).
		WithHTTPServer(app, "127.0.0.1:99999").
		WithShutdownChannel(make(chan struct{})).
		WithCloser("probe", func(context.Context) error {
			close(closed)
			return nil
		})

	err := sm.StartWithGracefulShutdownWithError()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP server")

	select {
	case <-closed:
	default:
		t.Fatal("closers must run after a startup failure")
	}
}
