package engine

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SawyerHood/codex/protocol"
)

var base = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func TestCallRegistry_OpenClose(t *testing.T) {
	r := NewCallRegistry(0)

	prev, err := r.Open("t1", "c1", CallKindExec, CallMeta{Command: []string{"ls", "-l"}, Cwd: "/tmp"}, base)
	require.NoError(t, err)
	assert.Nil(t, prev)
	assert.Equal(t, 1, r.OpenCount())

	closed, err := r.Close("c1", CallKindExec, base.Add(2*time.Second))
	require.NoError(t, err)
	assert.Equal(t, "t1", closed.TurnID)
	assert.Equal(t, CallKindExec, closed.Kind)
	assert.Equal(t, []string{"ls", "-l"}, closed.Meta.Command)
	assert.Equal(t, 2*time.Second, closed.Elapsed)
	assert.False(t, closed.Forced)
	assert.Equal(t, 0, r.OpenCount())
}

func TestCallRegistry_DuplicateBeginOverwrites(t *testing.T) {
	r := NewCallRegistry(0)

	_, err := r.Open("t1", "c1", CallKindExec, CallMeta{Cwd: "/old"}, base)
	require.NoError(t, err)

	prev, err := r.Open("t1", "c1", CallKindExec, CallMeta{Cwd: "/new"}, base.Add(time.Second))
	assert.ErrorIs(t, err, ErrDuplicateCall)
	require.NotNil(t, prev)
	assert.Equal(t, "/old", prev.Meta.Cwd)
	assert.Equal(t, 1, r.OpenCount())

	// The overwriting call is the one that closes.
	closed, err := r.Close("c1", CallKindExec, base.Add(3*time.Second))
	require.NoError(t, err)
	assert.Equal(t, "/new", closed.Meta.Cwd)
	assert.Equal(t, 2*time.Second, closed.Elapsed)
}

func TestCallRegistry_OrphanEnd(t *testing.T) {
	r := NewCallRegistry(0)

	_, err := r.Close("ghost", CallKindExec, base)
	assert.ErrorIs(t, err, ErrOrphanEnd)

	err = r.AppendOutput("ghost", CallKindExec, protocol.ExecOutputStdout, []byte("x"))
	assert.ErrorIs(t, err, ErrOrphanEnd)
}

func TestCallRegistry_SameIDAcrossKinds(t *testing.T) {
	r := NewCallRegistry(0)

	_, err := r.Open("t1", "c1", CallKindExec, CallMeta{}, base)
	require.NoError(t, err)
	_, err = r.Open("t1", "c1", CallKindMCPTool, CallMeta{}, base)
	require.NoError(t, err, "same call_id under a different kind is a distinct call")
	assert.Equal(t, 2, r.OpenCount())

	closed, err := r.Close("c1", CallKindMCPTool, base.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, CallKindMCPTool, closed.Kind)
	assert.Equal(t, 1, r.OpenCount())
}

func TestCallRegistry_ReuseAfterClose(t *testing.T) {
	r := NewCallRegistry(0)

	_, err := r.Open("t1", "c1", CallKindExec, CallMeta{}, base)
	require.NoError(t, err)
	_, err = r.Close("c1", CallKindExec, base.Add(time.Second))
	require.NoError(t, err)

	prev, err := r.Open("t2", "c1", CallKindExec, CallMeta{}, base.Add(2*time.Second))
	require.NoError(t, err)
	assert.Nil(t, prev)
}

func TestCallRegistry_OutputTailCapped(t *testing.T) {
	r := NewCallRegistry(8)

	_, err := r.Open("t1", "c1", CallKindExec, CallMeta{}, base)
	require.NoError(t, err)

	require.NoError(t, r.AppendOutput("c1", CallKindExec, protocol.ExecOutputStdout, []byte("0123456789")))
	require.NoError(t, r.AppendOutput("c1", CallKindExec, protocol.ExecOutputStdout, []byte("abcd")))
	require.NoError(t, r.AppendOutput("c1", CallKindExec, protocol.ExecOutputStderr, []byte("oops")))

	calls := r.OpenCalls("t1")
	require.Len(t, calls, 1)
	assert.True(t, bytes.Equal([]byte("6789abcd"), calls[0].StdoutTail), "stdout tail = %q", calls[0].StdoutTail)
	assert.True(t, bytes.Equal([]byte("oops"), calls[0].StderrTail))
}

func TestCallRegistry_ForceCloseTurn(t *testing.T) {
	r := NewCallRegistry(0)

	_, _ = r.Open("t1", "c1", CallKindExec, CallMeta{}, base)
	_, _ = r.Open("t1", "c2", CallKindExec, CallMeta{}, base.Add(time.Second))
	_, _ = r.Open("t2", "c3", CallKindMCPTool, CallMeta{}, base)

	closed := r.ForceCloseTurn("t1", base.Add(5*time.Second))
	require.Len(t, closed, 2)
	assert.Equal(t, "c1", closed[0].CallID)
	assert.Equal(t, "c2", closed[1].CallID)
	for _, c := range closed {
		assert.True(t, c.Forced)
	}

	assert.Equal(t, 1, r.OpenCount(), "other turns' calls survive")
	assert.Empty(t, r.OpenCalls("t1"))
}

func TestCallRegistry_StaleAndExpire(t *testing.T) {
	r := NewCallRegistry(0)

	_, _ = r.Open("t1", "old", CallKindExec, CallMeta{}, base)
	_, _ = r.Open("t1", "new", CallKindExec, CallMeta{}, base.Add(5*time.Second))

	stale := r.Stale(base.Add(10*time.Second), 6*time.Second)
	require.Len(t, stale, 1)
	assert.Equal(t, "old", stale[0].CallID)

	expired := r.Expire(base.Add(10*time.Second), 6*time.Second)
	require.Len(t, expired, 1)
	assert.Equal(t, "old", expired[0].CallID)
	assert.True(t, expired[0].Forced)
	assert.Equal(t, 10*time.Second, expired[0].Elapsed)

	assert.Equal(t, 1, r.OpenCount())
}

func TestCallRegistry_ParallelCallsInOneTurn(t *testing.T) {
	r := NewCallRegistry(0)

	_, _ = r.Open("t1", "c1", CallKindExec, CallMeta{}, base)
	_, _ = r.Open("t1", "c2", CallKindExec, CallMeta{}, base.Add(time.Second))
	_, _ = r.Open("t1", "p1", CallKindPatchApply, CallMeta{}, base.Add(2*time.Second))

	calls := r.OpenCalls("t1")
	require.Len(t, calls, 3)
	assert.Equal(t, "c1", calls[0].CallID)
	assert.Equal(t, "c2", calls[1].CallID)
	assert.Equal(t, "p1", calls[2].CallID)
}
