package main

import (
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SawyerHood/codex/engine"
	"github.com/SawyerHood/codex/protocol"
)

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "-"},
		{-time.Second, "-"},
		{420 * time.Millisecond, "420ms"},
		{2500 * time.Millisecond, "2.5s"},
		{65 * time.Second, "1m05s"},
		{10 * time.Minute, "10m00s"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, formatDuration(tc.d), "duration %v", tc.d)
	}
}

func TestFormatTokens(t *testing.T) {
	assert.Equal(t, "0", formatTokens(0))
	assert.Equal(t, "999", formatTokens(999))
	assert.Equal(t, "9999", formatTokens(9999))
	assert.Equal(t, "10.0k", formatTokens(10000))
	assert.Equal(t, "125.4k", formatTokens(125431))
}

func TestTruncateAndPad(t *testing.T) {
	assert.Equal(t, "hello w…", truncate("hello world", 8))
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "ab   ", padRight("ab", 5))

	// Double-width runes count as two cells.
	got := truncate("日本語のテスト", 6)
	assert.Equal(t, "日本…", got)
	assert.LessOrEqual(t, runewidth.StringWidth(got), 6)
}

func TestRenderTable(t *testing.T) {
	r := newRenderer(40, true)
	out := r.renderTable(
		[]string{"ID", "STATUS", "COMMAND"},
		[][]string{
			{"c1", "ok", "go test ./..."},
			{"c2", "exit 1", "rg TODO"},
		},
	)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ID  STATUS  COMMAND", lines[0])
	assert.Equal(t, "c1  ok      go test ./...", lines[1])
	assert.Equal(t, "c2  exit 1  rg TODO", lines[2])
}

func TestRenderTableTruncatesWidestColumn(t *testing.T) {
	r := newRenderer(40, true)
	out := r.renderTable(
		[]string{"K", "V"},
		[][]string{{"x", strings.Repeat("a", 60)}},
	)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "x  "+strings.Repeat("a", 36)+"…", lines[1])
	assert.LessOrEqual(t, runewidth.StringWidth(lines[1]), 40)
}

func TestPlainRendererPassesTextThrough(t *testing.T) {
	r := newRenderer(0, true)
	assert.True(t, r.plain)
	assert.Greater(t, r.width, 0)

	assert.Equal(t, "# hi\n", r.renderMarkdown("# hi\n\n"))
	assert.Equal(t, "styled", r.st.Header.Render("styled"))
	assert.Nil(t, r.markdown)
}

func TestCallTitleAndLabel(t *testing.T) {
	exec := engine.PendingCall{
		CallID: "c1",
		Kind:   engine.CallKindExec,
		Meta:   engine.CallMeta{Command: []string{"go", "test", "./..."}},
	}
	assert.Equal(t, "go test ./...", callTitle(exec))
	assert.Equal(t, "$ go test ./...", callLabel(exec))

	mcp := engine.PendingCall{
		CallID: "c2",
		Kind:   engine.CallKindMCPTool,
		Meta: engine.CallMeta{
			Invocation: protocol.MCPInvocation{Server: "files", Tool: "read"},
		},
	}
	assert.Equal(t, "files/read", callTitle(mcp))
	assert.Equal(t, "tool files/read", callLabel(mcp))

	patch := engine.PendingCall{
		CallID: "c3",
		Kind:   engine.CallKindPatchApply,
		Meta: engine.CallMeta{
			Changes: map[string]protocol.FileChange{"a.go": {}, "b.go": {}},
		},
	}
	assert.Equal(t, "2 file(s)", callTitle(patch))
	assert.Equal(t, "patch 2 file(s)", callLabel(patch))
}

func TestApprovalLabel(t *testing.T) {
	exec := engine.ApprovalRequest{
		Kind:    engine.ApprovalExec,
		Command: []string{"rm", "-rf", "build"},
	}
	assert.Equal(t, "$ rm -rf build", approvalLabel(exec))

	patch := engine.ApprovalRequest{
		Kind:    engine.ApprovalPatch,
		Changes: map[string]protocol.FileChange{"a.go": {}},
	}
	assert.Equal(t, "patch 1 file(s)", approvalLabel(patch))
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "", firstLine(""))
	assert.Equal(t, "", firstLine("\n\n"))
	assert.Equal(t, "a", firstLine("  a  \nb"))
	assert.Equal(t, "first", firstLine("\nfirst\nsecond"))
}
