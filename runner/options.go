package runner

import "log/slog"

// Option configures a Runner.
type Option func(*Runner)

// WithTitle sets the snippet title.
func WithTitle(title string) Option {
	return func(r *Runner) {
		r.title = title
	}
}

// WithStdin sets the standard input sent with every run.
func WithStdin(stdin string) Option {
	return func(r *Runner) {
		r.stdin = stdin
	}
}

// WithRemote sets the remote execution service. It is only used when it
// reports itself configured.
func WithRemote(remote Remote) Option {
	return func(r *Runner) {
		r.remote = remote
	}
}

// WithLocal sets the shared local interpreter. Share one across all Runners
// in a process.
func WithLocal(local Local) Option {
	return func(r *Runner) {
		r.local = local
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithObserver registers fn to be called with every snapshot change,
// including the transient Running states.
func WithObserver(fn func(Snapshot)) Option {
	return func(r *Runner) {
		r.observers = append(r.observers, fn)
	}
}

// WithReporter sets where run reports go.
func WithReporter(rep Reporter) Option {
	return func(r *Runner) {
		r.reporter = rep
	}
}
