// Package client drives the backend protocol stream from the frontend
// side. It feeds received events through an engine, forwards the engine's
// notifications onto a buffered channel, and frames submissions back to
// the backend as ndjson. The transport is any io.Reader/io.Writer pair;
// Start spawns the backend CLI and attaches to its pipes.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SawyerHood/codex/engine"
	"github.com/SawyerHood/codex/history"
	"github.com/SawyerHood/codex/internal/ndjson"
	"github.com/SawyerHood/codex/protocol"
)

// Client connects an engine to a live protocol stream.
type Client struct {
	eng     *engine.Engine
	archive *history.Archive
	config  Config
	log     *slog.Logger

	notifications chan engine.Notification
	done          chan struct{}
	readDone      chan struct{}
	nextID        atomic.Uint64

	process *processManager
	writer  *ndjson.Writer

	mu      sync.Mutex
	started bool
	stopped bool

	emitMu sync.RWMutex
	closed bool
}

// New creates a client. The engine and its transcript archive are owned
// by the client; both stay queryable through Engine after the stream ends.
func New(opts ...Option) *Client {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	archive := history.NewArchive()
	engOpts := []engine.Option{
		engine.WithLogger(config.Logger),
		engine.WithTranscript(archive),
		engine.WithCallTimeout(config.CallTimeout),
		engine.WithApprovalTimeout(config.ApprovalTimeout),
	}
	if config.History != nil {
		engOpts = append(engOpts, engine.WithHistory(config.History))
	}

	c := &Client{
		eng:           engine.New(engOpts...),
		archive:       archive,
		config:        config,
		log:           config.Logger,
		notifications: make(chan engine.Notification, config.EventBufferSize),
		done:          make(chan struct{}),
		readDone:      make(chan struct{}),
	}
	c.eng.AddObserver(engine.ObserverFunc(c.handleNotification))
	return c
}

// Engine returns the underlying engine for state queries.
func (c *Client) Engine() *engine.Engine {
	return c.eng
}

// Notifications returns the channel of engine notifications. The channel
// is closed when the client is closed; notifications are dropped with a
// log line if the consumer falls behind the buffer.
func (c *Client) Notifications() <-chan engine.Notification {
	return c.notifications
}

// Attach connects the client to an existing stream: events are read from
// r, submissions are written to w. The caller owns both ends; closing r
// ends the read loop and closes the engine's stream.
func (c *Client) Attach(ctx context.Context, r io.Reader, w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return ErrAlreadyStarted
	}
	if c.stopped {
		return ErrClientClosed
	}
	c.started = true
	c.writer = ndjson.NewWriter(w)

	c.startLoops(ctx, ndjson.NewReader(r))
	return nil
}

// Start spawns the backend CLI and attaches to its stdin/stdout pipes.
// Stderr is drained to the logger.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return ErrAlreadyStarted
	}
	if c.stopped {
		return ErrClientClosed
	}

	pm := newProcessManager(c.config)
	if err := pm.Start(ctx); err != nil {
		return err
	}

	c.started = true
	c.process = pm
	c.writer = ndjson.NewWriter(pm.Stdin())

	go c.stderrLoop(pm.Stderr())
	c.startLoops(ctx, pm.Reader())
	return nil
}

func (c *Client) startLoops(ctx context.Context, r *ndjson.Reader) {
	go c.readLoop(ctx, r)
	if c.config.SweepInterval > 0 {
		go c.sweepLoop(ctx)
	}
}

// Wait blocks until the read loop has finished: the stream hit EOF or an
// error, the context was cancelled, or the client was closed. The engine
// holds the final state by the time Wait returns.
func (c *Client) Wait() {
	<-c.readDone
}

// Close tears the client down: the backend process is stopped, live turns
// are aborted through the engine's close cascade, and the notification
// channel is closed. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	started := c.started
	c.mu.Unlock()

	close(c.done)

	var err error
	if c.process != nil {
		err = c.process.Stop()
	}
	if started {
		c.eng.CloseStream()
	}

	// Future emits become no-ops before the channel closes; in-flight
	// emits hold the read lock, so the write lock waits them out.
	c.emitMu.Lock()
	c.closed = true
	c.emitMu.Unlock()
	close(c.notifications)

	return err
}

func (c *Client) readLoop(ctx context.Context, r *ndjson.Reader) {
	defer close(c.readDone)
	defer c.eng.CloseStream()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		line, err := r.ReadLine()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.log.Warn("event stream read failed", "error", err)
			}
			return
		}
		c.recordReceived(line)
		c.eng.ApplyLine(line)
	}
}

func (c *Client) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(c.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case now := <-ticker.C:
			c.eng.ExpireStale(now)
		}
	}
}

func (c *Client) stderrLoop(r io.Reader) {
	lines := ndjson.NewReader(r)
	for {
		line, err := lines.ReadLine()
		if err != nil {
			return
		}
		c.log.Debug("backend stderr", "line", string(line))
	}
}

func (c *Client) handleNotification(n engine.Notification) {
	if req, ok := n.(engine.ApprovalRequested); ok && c.config.Handler != nil {
		go c.runApprovalHandler(req.Request)
	}
	c.emit(n)
}

func (c *Client) emit(n engine.Notification) {
	c.emitMu.RLock()
	defer c.emitMu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.notifications <- n:
	default:
		c.log.Warn("notification channel full, dropping", "type", fmt.Sprintf("%T", n))
	}
}

func (c *Client) runApprovalHandler(req engine.ApprovalRequest) {
	decision := c.config.Handler.HandleApproval(req)
	if err := c.resolveApproval(req, decision); err != nil {
		c.log.Warn("failed to answer approval request",
			"call_id", req.CallID, "decision", decision, "error", err)
	}
}

// Approve answers a pending approval request by call id. The decision is
// sent to the backend and resolved in the engine's gate. Used when no
// approval handler is configured and requests are consumed off the
// notification channel.
func (c *Client) Approve(callID string, decision protocol.ReviewDecision) error {
	for _, req := range c.eng.PendingApprovals() {
		if req.CallID == callID {
			return c.resolveApproval(req, decision)
		}
	}
	return fmt.Errorf("approving call %q: %w", callID, engine.ErrUnknownApproval)
}

func (c *Client) resolveApproval(req engine.ApprovalRequest, decision protocol.ReviewDecision) error {
	var op protocol.Op
	switch req.Kind {
	case engine.ApprovalPatch:
		op = protocol.PatchApprovalOp{ID: req.CallID, Decision: decision}
	default:
		op = protocol.ExecApprovalOp{ID: req.CallID, Decision: decision}
	}
	if _, err := c.Send(op); err != nil {
		return err
	}
	return c.eng.ResolveApproval(req.CallID, decision)
}

// Send writes one submission and returns its id. The id is what the
// backend will use as the turn id for ops that start turns.
func (c *Client) Send(op protocol.Op) (string, error) {
	c.mu.Lock()
	writer := c.writer
	stopped := c.stopped
	c.mu.Unlock()

	if writer == nil {
		return "", ErrNotStarted
	}
	if stopped {
		return "", ErrClientClosed
	}

	id := strconv.FormatUint(c.nextID.Add(1), 10)
	sub := protocol.Submission{ID: id, Op: op}
	if err := writer.Write(sub); err != nil {
		return "", fmt.Errorf("writing %s submission: %w", op.OpType(), err)
	}
	c.recordSent(sub)
	return id, nil
}

// SendUserInput submits a text turn. The text is also appended to the
// wired history store and recorded as a user message in the transcript.
func (c *Client) SendUserInput(text string) (string, error) {
	id, err := c.Send(protocol.UserInputOp{Items: []protocol.InputItem{protocol.TextInput(text)}})
	if err != nil {
		return "", err
	}
	c.recordUserInput(text)
	return id, nil
}

// Interrupt asks the backend to abort the current turn.
func (c *Client) Interrupt() (string, error) {
	return c.Send(protocol.InterruptOp{})
}

// AddToHistory appends text to the backend's cross-session history.
func (c *Client) AddToHistory(text string) (string, error) {
	return c.Send(protocol.AddToHistoryOp{Text: text})
}

// RequestHistoryEntry fetches one history entry by position; the answer
// arrives as a HistoryEntryFetched notification.
func (c *Client) RequestHistoryEntry(logID uint64, offset int) (string, error) {
	return c.Send(protocol.GetHistoryEntryRequestOp{LogID: logID, Offset: offset})
}

// ListMCPTools requests the backend's configured MCP tools.
func (c *Client) ListMCPTools() (string, error) {
	return c.Send(protocol.ListMCPToolsOp{})
}

// ListCustomPrompts requests the backend's user-defined prompts.
func (c *Client) ListCustomPrompts() (string, error) {
	return c.Send(protocol.ListCustomPromptsOp{})
}

// Compact asks the backend to summarize the conversation in place.
func (c *Client) Compact() (string, error) {
	return c.Send(protocol.CompactOp{})
}

// Shutdown asks the backend to exit; it acknowledges with a
// ShutdownComplete notification, after which Close tears down the rest.
func (c *Client) Shutdown() (string, error) {
	return c.Send(protocol.ShutdownOp{})
}

func (c *Client) recordReceived(line []byte) {
	if c.config.Recorder == nil {
		return
	}
	if err := c.config.Recorder.RecordEventLine(line); err != nil {
		c.log.Warn("recording received event failed", "error", err)
	}
}

func (c *Client) recordSent(sub protocol.Submission) {
	if c.config.Recorder == nil {
		return
	}
	if err := c.config.Recorder.RecordSubmission(sub); err != nil {
		c.log.Warn("recording sent submission failed", "error", err)
	}
}

func (c *Client) recordUserInput(text string) {
	if text == "" {
		return
	}
	info, ok := c.eng.SessionInfo()
	if c.config.History != nil {
		c.config.History.Append(protocol.HistoryEntry{
			SessionID: info.SessionID,
			Ts:        time.Now().Unix(),
			Text:      text,
		})
	}
	if ok && info.SessionID != "" {
		c.archive.Transcript(info.SessionID).Add(&protocol.MessageItem{
			Role:    "user",
			Content: []protocol.ContentItem{{Type: "input_text", Text: text}},
		})
	}
}
