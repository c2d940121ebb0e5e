package client

import (
	"log/slog"
	"time"

	"github.com/SawyerHood/codex/history"
	"github.com/SawyerHood/codex/sessionlog"
)

// Config holds client configuration.
type Config struct {
	Logger          *slog.Logger
	Handler         ApprovalHandler
	History         *history.Store
	Recorder        *sessionlog.Recorder
	Env             map[string]string
	CLIPath         string // Path to the backend binary (default: "codex")
	Args            []string
	WorkDir         string
	EventBufferSize int
	SweepInterval   time.Duration
	CallTimeout     time.Duration
	ApprovalTimeout time.Duration
}

// Option is a functional option for configuring a Client.
type Option func(*Config)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithApprovalHandler sets the handler that answers approval requests.
// Without one, requests only surface on the notification channel and the
// caller resolves them through Approve.
func WithApprovalHandler(h ApprovalHandler) Option {
	return func(c *Config) {
		c.Handler = h
	}
}

// WithApprovalPolicy compiles a policy file into the approval handler.
func WithApprovalPolicy(p *Policy) Option {
	return func(c *Config) {
		c.Handler = p.Handler()
	}
}

// WithHistory wires a cross-session history store. Finalized agent
// messages and sent user inputs are appended to it.
func WithHistory(s *history.Store) Option {
	return func(c *Config) {
		c.History = s
	}
}

// WithRecorder records the session's wire traffic: received event lines
// verbatim, sent submissions as framed. The caller owns the recorder's
// lifecycle, writing its header before the stream starts and closing it
// after the stream ends. Recording failures are logged, never fatal.
func WithRecorder(r *sessionlog.Recorder) Option {
	return func(c *Config) {
		c.Recorder = r
	}
}

// WithEventBufferSize sets the notification channel buffer size.
func WithEventBufferSize(size int) Option {
	return func(c *Config) {
		if size > 0 {
			c.EventBufferSize = size
		}
	}
}

// WithCLIPath sets a custom backend binary path (default: "codex").
func WithCLIPath(path string) Option {
	return func(c *Config) {
		c.CLIPath = path
	}
}

// WithArgs sets the backend CLI arguments (default: "proto").
func WithArgs(args ...string) Option {
	return func(c *Config) {
		c.Args = args
	}
}

// WithWorkDir sets the working directory for the spawned backend.
func WithWorkDir(dir string) Option {
	return func(c *Config) {
		c.WorkDir = dir
	}
}

// WithEnv sets additional environment variables for the backend process.
func WithEnv(env map[string]string) Option {
	return func(c *Config) {
		c.Env = env
	}
}

// WithSweepInterval enables the stale-state sweep at the given period.
// Pair it with WithCallTimeout and WithApprovalTimeout; zero disables.
func WithSweepInterval(d time.Duration) Option {
	return func(c *Config) {
		c.SweepInterval = d
	}
}

// WithCallTimeout sets the age at which swept calls are force-closed.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.CallTimeout = d
	}
}

// WithApprovalTimeout sets the age at which swept approvals time out.
func WithApprovalTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.ApprovalTimeout = d
	}
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Logger:          slog.Default(),
		CLIPath:         "codex",
		Args:            []string{"proto"},
		EventBufferSize: 100,
	}
}
