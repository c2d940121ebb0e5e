package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessManager_RoundTrip(t *testing.T) {
	// cat echoes stdin to stdout, which is enough to exercise the pipes.
	pm := newProcessManager(Config{CLIPath: "cat", Args: []string{"-"}})
	require.NoError(t, pm.Start(context.Background()))

	_, err := pm.Stdin().Write([]byte(`{"id":"1","op":{"type":"interrupt"}}` + "\n"))
	require.NoError(t, err)

	line, err := pm.Reader().ReadLine()
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1","op":{"type":"interrupt"}}`, string(line))

	require.NoError(t, pm.Stop())
	assert.NoError(t, pm.Wait())
}

func TestProcessManager_StartTwice(t *testing.T) {
	pm := newProcessManager(Config{CLIPath: "cat", Args: []string{"-"}})
	require.NoError(t, pm.Start(context.Background()))
	defer pm.Stop()

	assert.ErrorIs(t, pm.Start(context.Background()), ErrAlreadyStarted)
}

func TestProcessManager_StopBeforeStart(t *testing.T) {
	pm := newProcessManager(Config{})
	assert.NoError(t, pm.Stop())
}

func TestProcessManager_WaitBeforeStart(t *testing.T) {
	pm := newProcessManager(Config{})
	assert.ErrorIs(t, pm.Wait(), ErrNotStarted)
}

func TestProcessManager_CLINotFound(t *testing.T) {
	pm := newProcessManager(Config{CLIPath: "no-such-backend-binary"})
	err := pm.Start(context.Background())
	require.Error(t, err)

	var notFound *CLINotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "no-such-backend-binary", notFound.Path)
}

func TestProcessManager_StopKillsStubbornProcess(t *testing.T) {
	// sleep ignores stdin EOF, so Stop has to escalate to signals.
	pm := newProcessManager(Config{CLIPath: "sleep", Args: []string{"60"}})
	require.NoError(t, pm.Start(context.Background()))

	start := time.Now()
	require.NoError(t, pm.Stop())
	assert.Less(t, time.Since(start), 5*time.Second)

	_ = pm.Wait()
}
