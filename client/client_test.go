package client

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SawyerHood/codex/engine"
	"github.com/SawyerHood/codex/history"
	"github.com/SawyerHood/codex/internal/ndjson"
	"github.com/SawyerHood/codex/protocol"
	"github.com/SawyerHood/codex/sessionlog"
)

// fakeBackend drives an attached client over in-memory pipes: test code
// writes raw event lines to the client's reader and collects the parsed
// submissions the client writes back.
type fakeBackend struct {
	events      *ndjson.Writer
	eventsPipe  *io.PipeWriter
	submissions chan protocol.Submission
}

func startFakeBackend(t *testing.T, c *Client) *fakeBackend {
	t.Helper()

	evR, evW := io.Pipe()
	subR, subW := io.Pipe()
	require.NoError(t, c.Attach(context.Background(), evR, subW))

	fb := &fakeBackend{
		events:      ndjson.NewWriter(evW),
		eventsPipe:  evW,
		submissions: make(chan protocol.Submission, 100),
	}
	go func() {
		defer close(fb.submissions)
		r := ndjson.NewReader(subR)
		for {
			line, err := r.ReadLine()
			if err != nil {
				return
			}
			sub, err := protocol.ParseSubmission(line)
			if err != nil {
				t.Logf("unparseable submission: %v", err)
				continue
			}
			fb.submissions <- sub
		}
	}()
	return fb
}

func (fb *fakeBackend) send(t *testing.T, lines ...string) {
	t.Helper()
	for _, line := range lines {
		require.NoError(t, fb.events.WriteRaw([]byte(line)))
	}
}

// closeEvents ends the event stream, as a backend exit would.
func (fb *fakeBackend) closeEvents() {
	fb.eventsPipe.Close()
}

func (fb *fakeBackend) nextSubmission(t *testing.T) protocol.Submission {
	t.Helper()
	select {
	case sub, ok := <-fb.submissions:
		if !ok {
			t.Fatal("submission stream closed")
		}
		return sub
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a submission")
	}
	return protocol.Submission{}
}

// waitNotification consumes the client's channel until a notification of
// type T arrives.
func waitNotification[T engine.Notification](t *testing.T, c *Client) T {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case n, ok := <-c.Notifications():
			if !ok {
				t.Fatalf("notification channel closed while waiting for %T", *new(T))
			}
			if v, ok := n.(T); ok {
				return v
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %T", *new(T))
		}
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_EndToEndTurn(t *testing.T) {
	c := New(WithLogger(quietLogger()))
	fb := startFakeBackend(t, c)

	fb.send(t, `{"id":"t0","msg":{"type":"session_configured","session_id":"s1","model":"gpt-5","history_log_id":7,"history_entry_count":0}}`)
	configured := waitNotification[engine.SessionConfigured](t, c)
	assert.Equal(t, "s1", configured.Info.SessionID)
	assert.Equal(t, "gpt-5", configured.Info.Model)

	fb.send(t, `{"id":"t1","msg":{"type":"task_started"}}`)
	started := waitNotification[engine.TurnStarted](t, c)
	assert.Equal(t, "t1", started.TurnID)

	fb.send(t,
		`{"id":"t1","msg":{"type":"agent_message_delta","delta":"Hello "}}`,
		`{"id":"t1","msg":{"type":"agent_message_delta","delta":"world"}}`,
		`{"id":"t1","msg":{"type":"agent_message","message":"Hello world"}}`,
	)
	final := waitNotification[engine.StreamFinal](t, c)
	assert.Equal(t, engine.StreamAgentMessage, final.Kind)
	assert.Equal(t, "Hello world", final.Text)

	fb.send(t, `{"id":"t1","msg":{"type":"task_complete","last_agent_message":"Hello world"}}`)
	finished := waitNotification[engine.TurnFinished](t, c)
	assert.Equal(t, engine.StateCompleted, finished.Turn.State)

	fb.closeEvents()
	c.Wait()
	waitNotification[engine.StreamClosed](t, c)

	assert.True(t, c.Engine().Closed())
	turn, ok := c.Engine().Turn("t1")
	require.True(t, ok)
	assert.Equal(t, engine.StateCompleted, turn.State)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	for range c.Notifications() {
		// Drain whatever was buffered; the channel must be closed.
	}
}

func TestClient_SubmissionsAreNumbered(t *testing.T) {
	c := New(WithLogger(quietLogger()))
	fb := startFakeBackend(t, c)
	defer c.Close()

	id1, err := c.SendUserInput("hello")
	require.NoError(t, err)
	assert.Equal(t, "1", id1)

	id2, err := c.Interrupt()
	require.NoError(t, err)
	assert.Equal(t, "2", id2)

	sub := fb.nextSubmission(t)
	assert.Equal(t, "1", sub.ID)
	input, ok := sub.Op.(*protocol.UserInputOp)
	require.True(t, ok)
	require.Len(t, input.Items, 1)
	assert.Equal(t, "hello", input.Items[0].Text)

	sub = fb.nextSubmission(t)
	assert.Equal(t, "2", sub.ID)
	assert.Equal(t, protocol.OpTypeInterrupt, sub.Op.OpType())
}

func TestClient_ApprovalHandlerAnswersRequests(t *testing.T) {
	var seen engine.ApprovalRequest
	handler := ApprovalHandlerFunc(func(req engine.ApprovalRequest) protocol.ReviewDecision {
		seen = req
		return protocol.ReviewApprovedForSession
	})

	c := New(WithLogger(quietLogger()), WithApprovalHandler(handler))
	fb := startFakeBackend(t, c)
	defer c.Close()

	fb.send(t,
		`{"id":"t1","msg":{"type":"task_started"}}`,
		`{"id":"t1","msg":{"type":"exec_approval_request","call_id":"c1","command":["rm","-rf","build"],"cwd":"/repo"}}`,
	)

	sub := fb.nextSubmission(t)
	op, ok := sub.Op.(*protocol.ExecApprovalOp)
	require.True(t, ok)
	assert.Equal(t, "c1", op.ID)
	assert.Equal(t, protocol.ReviewApprovedForSession, op.Decision)
	assert.Equal(t, []string{"rm", "-rf", "build"}, seen.Command)

	resolved := waitNotification[engine.ApprovalResolved](t, c)
	assert.Equal(t, engine.ApprovalApproved, resolved.Status)
	assert.Empty(t, c.Engine().PendingApprovals())
}

func TestClient_ManualApprove(t *testing.T) {
	c := New(WithLogger(quietLogger()))
	fb := startFakeBackend(t, c)
	defer c.Close()

	fb.send(t,
		`{"id":"t1","msg":{"type":"task_started"}}`,
		`{"id":"t1","msg":{"type":"apply_patch_approval_request","call_id":"p1","changes":{"a.go":{"add":{"content":"x"}}}}}`,
	)

	req := waitNotification[engine.ApprovalRequested](t, c)
	assert.Equal(t, engine.ApprovalPatch, req.Request.Kind)

	require.NoError(t, c.Approve("p1", protocol.ReviewDenied))

	sub := fb.nextSubmission(t)
	op, ok := sub.Op.(*protocol.PatchApprovalOp)
	require.True(t, ok)
	assert.Equal(t, "p1", op.ID)
	assert.Equal(t, protocol.ReviewDenied, op.Decision)

	resolved := waitNotification[engine.ApprovalResolved](t, c)
	assert.Equal(t, engine.ApprovalDenied, resolved.Status)

	err := c.Approve("p1", protocol.ReviewDenied)
	assert.ErrorIs(t, err, engine.ErrUnknownApproval)
}

func TestClient_UserInputFeedsHistoryAndTranscript(t *testing.T) {
	store := history.NewStore(1)
	c := New(WithLogger(quietLogger()), WithHistory(store))
	fb := startFakeBackend(t, c)
	defer c.Close()

	fb.send(t, `{"id":"t0","msg":{"type":"session_configured","session_id":"s1","model":"gpt-5","history_log_id":40,"history_entry_count":0}}`)
	waitNotification[engine.SessionConfigured](t, c)

	_, err := c.SendUserInput("fix the bug")
	require.NoError(t, err)

	require.Equal(t, 1, store.Len())
	entry, ok := store.Get(40, 0)
	require.True(t, ok)
	assert.Equal(t, "fix the bug", entry.Text)
	assert.Equal(t, "s1", entry.SessionID)

	items, ok := c.Engine().Transcript().Reconstruct("s1")
	require.True(t, ok)
	require.Len(t, items, 1)
	msg, ok := items[0].(*protocol.MessageItem)
	require.True(t, ok)
	assert.Equal(t, "user", msg.Role)
	assert.Equal(t, "fix the bug", msg.Text())
}

func TestClient_RecorderCapturesTraffic(t *testing.T) {
	var buf bytes.Buffer
	rec := sessionlog.NewRecorder(&buf)
	require.NoError(t, rec.WriteHeader(map[string]string{"model": "gpt-5"}, "fix the bug"))

	c := New(WithLogger(quietLogger()), WithRecorder(rec))
	fb := startFakeBackend(t, c)

	fb.send(t, `{"id":"t0","msg":{"type":"session_configured","session_id":"s1","model":"gpt-5","history_log_id":7,"history_entry_count":0}}`)
	waitNotification[engine.SessionConfigured](t, c)

	_, err := c.SendUserInput("fix the bug")
	require.NoError(t, err)
	fb.nextSubmission(t)

	fb.send(t, `{"id":"1","msg":{"type":"task_started"}}`)
	waitNotification[engine.TurnStarted](t, c)

	fb.closeEvents()
	c.Wait()
	require.NoError(t, c.Close())
	require.NoError(t, rec.Close())

	log, err := sessionlog.Load(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "fix the bug", log.Header.Prompt)
	assert.Empty(t, log.Problems)

	require.Len(t, log.Events, 2)
	assert.IsType(t, &protocol.SessionConfiguredMsg{}, log.Events[0].Msg)
	assert.IsType(t, &protocol.TaskStartedMsg{}, log.Events[1].Msg)

	require.Len(t, log.Submissions, 1)
	assert.Equal(t, "1", log.Submissions[0].ID)
	assert.Equal(t, protocol.OpTypeUserInput, log.Submissions[0].Op.OpType())
}

func TestClient_EOFAbortsLiveTurn(t *testing.T) {
	c := New(WithLogger(quietLogger()))
	fb := startFakeBackend(t, c)
	defer c.Close()

	fb.send(t,
		`{"id":"t1","msg":{"type":"task_started"}}`,
		`{"id":"t1","msg":{"type":"agent_message_delta","delta":"half"}}`,
	)
	waitNotification[engine.TurnStarted](t, c)

	fb.closeEvents()
	c.Wait()

	finished := waitNotification[engine.TurnFinished](t, c)
	assert.Equal(t, engine.StateAborted, finished.Turn.State)
	assert.Equal(t, protocol.TurnAbortInterrupted, finished.Turn.AbortReason)
	waitNotification[engine.StreamClosed](t, c)
	assert.True(t, c.Engine().Closed())
}

func TestClient_SendBeforeAttach(t *testing.T) {
	c := New(WithLogger(quietLogger()))
	_, err := c.SendUserInput("early")
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestClient_SendAfterClose(t *testing.T) {
	c := New(WithLogger(quietLogger()))
	fb := startFakeBackend(t, c)
	fb.closeEvents()
	require.NoError(t, c.Close())

	_, err := c.SendUserInput("late")
	assert.ErrorIs(t, err, ErrClientClosed)
}

func TestClient_AttachTwice(t *testing.T) {
	c := New(WithLogger(quietLogger()))
	startFakeBackend(t, c)
	defer c.Close()

	err := c.Attach(context.Background(), strings.NewReader(""), io.Discard)
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestClient_StartUnknownBinary(t *testing.T) {
	c := New(WithLogger(quietLogger()), WithCLIPath("no-such-backend-binary"))
	err := c.Start(context.Background())
	require.Error(t, err)

	var notFound *CLINotFoundError
	assert.ErrorAs(t, err, &notFound)
	assert.Equal(t, "no-such-backend-binary", notFound.Path)
}
