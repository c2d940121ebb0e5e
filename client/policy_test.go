package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SawyerHood/codex/engine"
	"github.com/SawyerHood/codex/protocol"
)

func writePolicy(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "approvals.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadPolicy_MissingFileIsDefault(t *testing.T) {
	p, err := LoadPolicy(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Empty(t, p.AllowedCommands)
	assert.False(t, p.AutoApprovePatches)
	assert.Equal(t, protocol.ReviewDenied, p.DefaultDecision)
}

func TestLoadPolicy_File(t *testing.T) {
	path := writePolicy(t, `
allowed_commands:
  - git status
  - ls
auto_approve_patches: true
default_decision: denied
`)

	p, err := LoadPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"git status", "ls"}, p.AllowedCommands)
	assert.True(t, p.AutoApprovePatches)
}

func TestLoadPolicy_UnknownDecision(t *testing.T) {
	path := writePolicy(t, "default_decision: maybe\n")

	_, err := LoadPolicy(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown default_decision")
}

func TestLoadPolicy_MalformedYAML(t *testing.T) {
	path := writePolicy(t, "allowed_commands: [unclosed\n")

	_, err := LoadPolicy(path)
	require.Error(t, err)
}

func TestPolicy_HandlerDecisions(t *testing.T) {
	p := &Policy{
		AllowedCommands:    []string{"git status", "ls"},
		AutoApprovePatches: true,
		DefaultDecision:    protocol.ReviewDenied,
	}
	h := p.Handler()

	tests := []struct {
		name string
		req  engine.ApprovalRequest
		want protocol.ReviewDecision
	}{
		{
			name: "allow-listed prefix with extra args",
			req:  engine.ApprovalRequest{Kind: engine.ApprovalExec, Command: []string{"git", "status", "-s"}},
			want: protocol.ReviewApproved,
		},
		{
			name: "exact allow-listed command",
			req:  engine.ApprovalRequest{Kind: engine.ApprovalExec, Command: []string{"ls"}},
			want: protocol.ReviewApproved,
		},
		{
			name: "prefix is per-word, not per-byte",
			req:  engine.ApprovalRequest{Kind: engine.ApprovalExec, Command: []string{"lsof"}},
			want: protocol.ReviewDenied,
		},
		{
			name: "command not on the list",
			req:  engine.ApprovalRequest{Kind: engine.ApprovalExec, Command: []string{"git", "push"}},
			want: protocol.ReviewDenied,
		},
		{
			name: "command shorter than the prefix",
			req:  engine.ApprovalRequest{Kind: engine.ApprovalExec, Command: []string{"git"}},
			want: protocol.ReviewDenied,
		},
		{
			name: "patches auto-approved",
			req:  engine.ApprovalRequest{Kind: engine.ApprovalPatch},
			want: protocol.ReviewApproved,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, h.HandleApproval(tt.req))
		})
	}
}

func TestPolicy_AbortDefault(t *testing.T) {
	p := &Policy{DefaultDecision: protocol.ReviewAbort}
	h := p.Handler()

	got := h.HandleApproval(engine.ApprovalRequest{Kind: engine.ApprovalExec, Command: []string{"rm", "-rf", "/"}})
	assert.Equal(t, protocol.ReviewAbort, got)

	got = h.HandleApproval(engine.ApprovalRequest{Kind: engine.ApprovalPatch})
	assert.Equal(t, protocol.ReviewAbort, got)
}

func TestPolicy_ZeroValueDenies(t *testing.T) {
	h := (&Policy{}).Handler()
	got := h.HandleApproval(engine.ApprovalRequest{Kind: engine.ApprovalExec, Command: []string{"ls"}})
	assert.Equal(t, protocol.ReviewDenied, got)
}
