package internal

import "io"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	version   string
	http      bool
	stdio     bool
	stdin     io.Reader
	stdout    io.Writer
	logOutput io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithVersion sets the version reported to MCP clients.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithHTTP toggles the HTTP API and the vault watcher. Enabled by default.
func WithHTTP(enabled bool) Option {
	return func(a *application) {
		a.http = enabled
	}
}

// WithStdio serves MCP over the given streams in addition to anything else
// that is enabled.
func WithStdio(in io.Reader, out io.Writer) Option {
	return func(a *application) {
		a.stdio = true
		a.stdin = in
		a.stdout = out
	}
}

// WithLogOutput redirects structured logs. Defaults to stderr.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}
