package sessionlog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/SawyerHood/codex/internal/ndjson"
	"github.com/SawyerHood/codex/protocol"
)

// Recorder appends a session to a log file as it happens. Methods are
// safe for concurrent use; the read loop and submission senders share
// one recorder.
type Recorder struct {
	mu     sync.Mutex
	w      *ndjson.Writer
	f      *os.File
	nowFn  func() time.Time
	closed bool
}

// NewRecorder records into an arbitrary writer.
func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{w: ndjson.NewWriter(w), nowFn: time.Now}
}

// CreateRecorder creates the log file (and parent directories) and
// records into it.
func CreateRecorder(path string) (*Recorder, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	r := NewRecorder(f)
	r.f = f
	return r, nil
}

// WriteHeader writes the two preamble lines. Call it once, before any
// entries.
func (r *Recorder) WriteHeader(config map[string]string, prompt string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRecorderClosed
	}
	if config == nil {
		config = map[string]string{}
	}
	if err := r.w.Write(config); err != nil {
		return err
	}
	return r.w.Write(struct {
		Prompt string `json:"prompt"`
	}{Prompt: prompt})
}

// RecordEvent records a received event.
func (r *Recorder) RecordEvent(ev protocol.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.record(DirectionReceived, data)
}

// RecordEventLine records an already-framed event line verbatim, so a
// read loop can record before parsing.
func (r *Recorder) RecordEventLine(line []byte) error {
	if !json.Valid(line) {
		return fmt.Errorf("event line is not valid JSON")
	}
	return r.record(DirectionReceived, line)
}

// RecordSubmission records a sent submission.
func (r *Recorder) RecordSubmission(sub protocol.Submission) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	return r.record(DirectionSent, data)
}

func (r *Recorder) record(d Direction, msg json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRecorderClosed
	}
	return r.w.Write(Entry{
		Direction: d,
		Timestamp: r.nowFn().UTC().Format(time.RFC3339Nano),
		Message:   msg,
	})
}

// Close syncs and closes the underlying file, if any. Further records
// fail with ErrRecorderClosed. Safe to call more than once.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.f == nil {
		return nil
	}
	if err := r.f.Sync(); err != nil {
		r.f.Close()
		return err
	}
	return r.f.Close()
}
