//go:build unit

package gated

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/LerianStudio/lib-gated/gated/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingApp struct {
	runs atomic.Int32
	err  error
}

func (a *countingApp) Run(_ *Launcher) error {
	a.runs.Add(1)
	return a.err
}

func TestLauncherRunsEveryApp(t *testing.T) {
	first := &countingApp{}
	second := &countingApp{err: errors.New("stopped")}

	launcher := NewLauncher(
		WithLogger(log.NewNop()),
		RunApp("http", first),
		RunApp("worker", second),
	)

	err := launcher.RunWithError()
	require.Error(t, err)
	assert.ErrorIs(t, err, second.err)
	assert.Contains(t, err.Error(), "worker: stopped")
	assert.Equal(t, int32(1), first.runs.Load())
	assert.Equal(t, int32(1), second.runs.Load())
}

func TestLauncherErrors(t *testing.T) {
	var nilLauncher *Launcher
	assert.ErrorIs(t, nilLauncher.RunWithError(), ErrNilLauncher)
	assert.ErrorIs(t, nilLauncher.Add("x", &countingApp{}), ErrNilLauncher)

	assert.ErrorIs(t, NewLauncher().RunWithError(), ErrLoggerNil)

	launcher := NewLauncher(WithLogger(log.NewNop()),
		RunApp(" ", &countingApp{}),
		RunApp("nil", nil),
		RunApp("http", &countingApp{}),
		RunApp("http", &countingApp{}),
	)
	err := launcher.RunWithError()
	assert.ErrorIs(t, err, ErrConfigFailed)
	assert.ErrorIs(t, err, ErrEmptyApp)
	assert.ErrorIs(t, err, ErrNilApp)
	assert.ErrorIs(t, err, ErrDuplicateApp)
}

func TestLauncherWithoutAppsReturnsImmediately(t *testing.T) {
	require.NoError(t, NewLauncher(WithLogger(log.NewNop())).RunWithError())
}
