package client

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/SawyerHood/codex/internal/ndjson"
	"github.com/SawyerHood/codex/internal/procattr"
)

// processManager spawns and shuts down the backend CLI. The backend
// speaks the protocol on stdin/stdout, so unlike a one-shot runner it
// keeps a stdin pipe open for submissions.
type processManager struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  io.ReadCloser
	stderr  io.ReadCloser
	reader  *ndjson.Reader
	config  Config
	exited  chan struct{}
	waitErr error

	mu       sync.Mutex
	started  bool
	stopping bool
}

func newProcessManager(config Config) *processManager {
	return &processManager{
		config: config,
		exited: make(chan struct{}),
	}
}

// Start spawns the backend process with stdin/stdout/stderr pipes.
func (pm *processManager) Start(ctx context.Context) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.started {
		return ErrAlreadyStarted
	}

	cliPath := pm.config.CLIPath
	if cliPath == "" {
		cliPath = "codex"
	}
	args := pm.config.Args
	if len(args) == 0 {
		args = []string{"proto"}
	}

	pm.cmd = exec.CommandContext(ctx, cliPath, args...)

	pm.cmd.Env = os.Environ()
	for k, v := range pm.config.Env {
		pm.cmd.Env = append(pm.cmd.Env, k+"="+v)
	}

	procattr.Set(pm.cmd)

	if pm.config.WorkDir != "" {
		pm.cmd.Dir = pm.config.WorkDir
	}

	var err error
	pm.stdin, err = pm.cmd.StdinPipe()
	if err != nil {
		return &ProcessError{Message: "failed to create stdin pipe", Cause: err}
	}
	pm.stdout, err = pm.cmd.StdoutPipe()
	if err != nil {
		return &ProcessError{Message: "failed to create stdout pipe", Cause: err}
	}
	pm.stderr, err = pm.cmd.StderrPipe()
	if err != nil {
		return &ProcessError{Message: "failed to create stderr pipe", Cause: err}
	}

	pm.reader = ndjson.NewReader(pm.stdout)

	if err := pm.cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return &CLINotFoundError{Path: cliPath, Cause: err}
		}
		return &ProcessError{Message: "failed to start backend process", Cause: err}
	}

	go func() {
		pm.waitErr = pm.cmd.Wait()
		close(pm.exited)
	}()

	pm.started = true
	return nil
}

// Reader returns the ndjson reader over the backend's stdout.
func (pm *processManager) Reader() *ndjson.Reader {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.reader
}

// Stdin returns the backend's stdin pipe.
func (pm *processManager) Stdin() io.Writer {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.stdin
}

// Stderr returns the backend's stderr pipe.
func (pm *processManager) Stderr() io.Reader {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.stderr
}

// Wait blocks until the backend process exits.
func (pm *processManager) Wait() error {
	pm.mu.Lock()
	started := pm.started
	pm.mu.Unlock()

	if !started {
		return ErrNotStarted
	}
	<-pm.exited
	return pm.waitErr
}

// Stop shuts the backend down: stdin EOF first so it can exit on its
// own, then SIGTERM to the process group, then SIGKILL.
func (pm *processManager) Stop() error {
	pm.mu.Lock()
	if !pm.started || pm.stopping {
		pm.mu.Unlock()
		return nil
	}
	pm.stopping = true
	stdin := pm.stdin
	pm.mu.Unlock()

	if stdin != nil {
		_ = stdin.Close()
	}

	select {
	case <-pm.exited:
		return nil
	case <-time.After(500 * time.Millisecond):
	}

	if pm.cmd.Process != nil {
		_ = procattr.SignalGroup(pm.cmd.Process, syscall.SIGTERM)
	}

	select {
	case <-pm.exited:
		return nil
	case <-time.After(500 * time.Millisecond):
	}

	if pm.cmd.Process != nil {
		_ = procattr.KillGroup(pm.cmd.Process)
	}

	select {
	case <-pm.exited:
	case <-time.After(100 * time.Millisecond):
	}

	return nil
}
