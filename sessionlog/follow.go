package sessionlog

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/SawyerHood/codex/protocol"
)

// debounceInterval coalesces bursts of file writes into one drain.
const debounceInterval = 200 * time.Millisecond

// pollInterval is the backstop drain rate, and the only drain rate when
// fsnotify is unavailable.
const pollInterval = time.Second

// tailReader yields only newline-terminated lines. A line the writer
// has flushed halfway stays buffered across EOFs until its newline
// arrives, so a concurrent reader never sees a torn entry.
type tailReader struct {
	br      *bufio.Reader
	partial []byte
}

func newTailReader(r io.Reader) *tailReader {
	return &tailReader{br: bufio.NewReader(r)}
}

// next returns the next complete line with the newline stripped, or
// io.EOF when the stream has no further complete lines yet.
func (t *tailReader) next() ([]byte, error) {
	for {
		chunk, err := t.br.ReadBytes('\n')
		t.partial = append(t.partial, chunk...)
		if err != nil {
			return nil, err
		}
		line := bytes.TrimRight(t.partial, "\r\n")
		t.partial = nil
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		return line, nil
	}
}

// Follow tails the session log at path, invoking fn for each received
// event, existing contents first. fn is never called concurrently.
// Follow blocks until ctx is cancelled and returns nil on cancellation;
// a non-nil return is an I/O failure on the log file.
func Follow(ctx context.Context, path string, fn func(protocol.Event)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	tail := newTailReader(f)
	var mu sync.Mutex
	drain := func() error {
		mu.Lock()
		defer mu.Unlock()
		for {
			line, err := tail.next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			var entry Entry
			if err := json.Unmarshal(line, &entry); err != nil {
				slog.Warn("skipping malformed log line", "path", path, "error", err)
				continue
			}
			if entry.Direction != DirectionReceived {
				continue
			}
			ev, err := protocol.ParseEvent(entry.Message)
			if err != nil {
				slog.Warn("skipping unreadable event", "path", path, "error", err)
				continue
			}
			fn(ev)
		}
	}

	// Watch the directory rather than the file so rotation by rename
	// and recreate still surfaces as a Create on the same name.
	var (
		events <-chan fsnotify.Event
		werrs  <-chan error
	)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("file watching unavailable, polling only", "path", path, "error", err)
	} else {
		defer func() { _ = watcher.Close() }()
		if err := watcher.Add(filepath.Dir(path)); err != nil {
			slog.Warn("file watching unavailable, polling only", "path", path, "error", err)
		} else {
			events = watcher.Events
			werrs = watcher.Errors
		}
	}

	if err := drain(); err != nil {
		return err
	}

	target := filepath.Clean(path)
	var pending *time.Timer
	defer func() {
		if pending != nil {
			pending.Stop()
		}
	}()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(debounceInterval, func() {
				if ctx.Err() != nil {
					return
				}
				if err := drain(); err != nil {
					slog.Error("draining session log", "path", path, "error", err)
				}
			})

		case err, ok := <-werrs:
			if !ok {
				werrs = nil
				continue
			}
			slog.Error("watcher error", "path", path, "error", err)

		case <-ticker.C:
			if err := drain(); err != nil {
				return err
			}
		}
	}
}
