package sessionlog

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SawyerHood/codex/protocol"
)

// sampleLog is one short complete session: header, configuration
// handshake, one user turn.
const sampleLog = `{"model":"gpt-5","cwd":"/repo"}
{"prompt":"fix the bug"}
{"direction":"received","timestamp":"2025-03-14T17:26:53Z","message":{"id":"0","msg":{"type":"session_configured","session_id":"s1","model":"gpt-5","history_log_id":7,"history_entry_count":2}}}
{"direction":"sent","timestamp":"2025-03-14T17:26:54Z","message":{"id":"1","op":{"type":"user_input","items":[{"type":"text","text":"fix the bug"}]}}}
{"direction":"received","timestamp":"2025-03-14T17:26:55Z","message":{"id":"1","msg":{"type":"task_started"}}}
{"direction":"received","timestamp":"2025-03-14T17:26:56Z","message":{"id":"1","msg":{"type":"agent_message","message":"done"}}}
{"direction":"received","timestamp":"2025-03-14T17:26:57Z","message":{"id":"1","msg":{"type":"task_complete","last_agent_message":"done"}}}
`

func TestLoad_FullSession(t *testing.T) {
	log, err := Load(strings.NewReader(sampleLog))
	require.NoError(t, err)

	assert.Equal(t, "gpt-5", log.Header.Config["model"])
	assert.Equal(t, "fix the bug", log.Header.Prompt)
	assert.Len(t, log.Entries, 5)
	require.Len(t, log.Events, 4)
	require.Len(t, log.Submissions, 1)
	assert.Empty(t, log.Problems)

	configured, ok := log.Events[0].Msg.(*protocol.SessionConfiguredMsg)
	require.True(t, ok)
	assert.Equal(t, "s1", configured.SessionID)
	assert.Equal(t, uint64(7), configured.HistoryLogID)

	input, ok := log.Submissions[0].Op.(*protocol.UserInputOp)
	require.True(t, ok)
	require.Len(t, input.Items, 1)
	assert.Equal(t, "fix the bug", input.Items[0].Text)
}

func TestLoader_StreamsEvents(t *testing.T) {
	l := NewLoader(strings.NewReader(sampleLog))

	var types []protocol.EventMsgType
	for {
		ev, err := l.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		types = append(types, ev.Msg.MsgType())
	}
	assert.Equal(t, []protocol.EventMsgType{
		protocol.EventTypeSessionConfigured,
		protocol.EventTypeTaskStarted,
		protocol.EventTypeAgentMessage,
		protocol.EventTypeTaskComplete,
	}, types)
	assert.Empty(t, l.Problems())
}

func TestLoader_EmptyLog(t *testing.T) {
	_, err := NewLoader(strings.NewReader("")).ReadHeader()
	assert.ErrorIs(t, err, ErrEmptyLog)

	_, err = Load(strings.NewReader("\n\n"))
	assert.ErrorIs(t, err, ErrEmptyLog)
}

func TestLoader_HeaderlessLogStillStreams(t *testing.T) {
	raw := `{"direction":"received","timestamp":"2025-03-14T17:26:55Z","message":{"id":"1","msg":{"type":"task_started"}}}` + "\n"
	l := NewLoader(strings.NewReader(raw))

	header, err := l.ReadHeader()
	require.NoError(t, err)
	assert.Empty(t, header.Config)
	assert.Empty(t, header.Prompt)

	entry, err := l.NextEntry()
	require.NoError(t, err)
	assert.Equal(t, DirectionReceived, entry.Direction)

	_, err = l.NextEntry()
	assert.ErrorIs(t, err, io.EOF)

	problems := l.Problems()
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "no configuration summary")
}

func TestLoader_MissingPromptLine(t *testing.T) {
	raw := `{"model":"gpt-5"}` + "\n" +
		`{"direction":"received","timestamp":"","message":{"id":"1","msg":{"type":"task_started"}}}` + "\n"

	log, err := Load(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "gpt-5", log.Header.Config["model"])
	assert.Empty(t, log.Header.Prompt)
	assert.Len(t, log.Events, 1)
	require.Len(t, log.Problems, 1)
	assert.Contains(t, log.Problems[0], "no prompt line")
}

func TestLoader_SkipAndReport(t *testing.T) {
	raw := strings.Join([]string{
		`{"model":"gpt-5"}`,
		`{"prompt":"p"}`,
		`not json at all`,
		`{"timestamp":"","message":{}}`,
		`{"direction":"inbound","timestamp":"","message":{}}`,
		`{"direction":"received","timestamp":"","message":{"id":"1","msg":{"type":"task_started"}}}`,
	}, "\n") + "\n"

	l := NewLoader(strings.NewReader(raw))
	entry, err := l.NextEntry()
	require.NoError(t, err)
	assert.Equal(t, DirectionReceived, entry.Direction)

	problems := l.Problems()
	require.Len(t, problems, 3)
	assert.Contains(t, problems[0], "line 3")
	assert.Contains(t, problems[0], "not a log entry")
	assert.Contains(t, problems[1], "missing direction")
	assert.Contains(t, problems[2], `unknown direction "inbound"`)
}

func TestLoader_BadEventReported(t *testing.T) {
	raw := strings.Join([]string{
		`{"model":"gpt-5"}`,
		`{"prompt":"p"}`,
		`{"direction":"received","timestamp":"","message":{"id":"1"}}`,
		`{"direction":"received","timestamp":"","message":{"id":"1","msg":{"type":"task_started"}}}`,
	}, "\n") + "\n"

	log, err := Load(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Len(t, log.Entries, 2)
	assert.Len(t, log.Events, 1)
	require.Len(t, log.Problems, 1)
	assert.Contains(t, log.Problems[0], "bad event")
}

func TestLoader_UnknownEventTypesPassThrough(t *testing.T) {
	raw := strings.Join([]string{
		`{"model":"gpt-5"}`,
		`{"prompt":"p"}`,
		`{"direction":"received","timestamp":"","message":{"id":"1","msg":{"type":"telemetry_snapshot","cpu":97}}}`,
	}, "\n") + "\n"

	log, err := Load(strings.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, log.Events, 1)
	unknown, ok := log.Events[0].Msg.(protocol.UnknownMsg)
	require.True(t, ok)
	assert.Equal(t, "telemetry_snapshot", unknown.TypeName)
	assert.Empty(t, log.Problems)
}

func TestEntry_Time(t *testing.T) {
	good := Entry{Timestamp: "2025-03-14T17:26:53.5Z"}
	assert.True(t, good.Time().Equal(time.Date(2025, 3, 14, 17, 26, 53, 500000000, time.UTC)))

	assert.True(t, Entry{}.Time().IsZero())
	assert.True(t, Entry{Timestamp: "yesterday"}.Time().IsZero())
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile("/nonexistent/session.ndjson")
	assert.Error(t, err)
}
