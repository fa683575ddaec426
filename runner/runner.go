// Package runner implements the interactive snippet runner: an editable code
// snippet that can be submitted to one of two execution backends, with the
// result presented as a single output or error text.
//
// The backend is chosen per submit. With remote credentials configured every
// language goes to the remote execution service. Without them, only the
// language served by the local interpreter can run; anything else fails
// immediately with a configuration error.
//
// A Runner moves through Idle -> Running -> Output|Error. At most one run is
// in flight per Runner; there is no cancellation beyond the caller's context.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/caffeineduck/coderunner/interpreter"
	"github.com/caffeineduck/coderunner/judge0"
	"github.com/caffeineduck/coderunner/language"
)

// ErrRunning is returned by Submit while a previous run is still in flight.
var ErrRunning = errors.New("run already in progress")

const (
	// NoOutput replaces empty output from a successful local run.
	NoOutput = "(No output)"

	// MissingCredentials is shown when a language needs the remote service
	// and no API key is configured.
	MissingCredentials = "API key required for this language. Set CODERUNNER_JUDGE0_API_KEY or judge0.api_key to enable remote execution."

	remoteFailure = "Execution failed: "
)

// State is where a Runner is in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateOutput
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateOutput:
		return "output"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText renders the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is the presentable result of a Runner. At most one of Output and
// Error is set, except while Running, when Output may carry progress text.
type Snapshot struct {
	State  State  `json:"state"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Text is what a result area shows: the error if any, otherwise the output.
func (s Snapshot) Text() string {
	if s.Error != "" {
		return s.Error
	}
	return s.Output
}

// Backend names the execution path a run took.
type Backend string

const (
	BackendRemote Backend = "remote"
	BackendLocal  Backend = "local"
	BackendNone   Backend = "none"
)

// Remote is the remote execution service. *judge0.Client implements it.
type Remote interface {
	Configured() bool
	Submit(ctx context.Context, s judge0.Submission) (judge0.Outcome, error)
}

// Local is the shared local interpreter. *interpreter.Handle implements it.
type Local interface {
	Name() string
	Inject() bool
	Loaded() bool
	Get(ctx context.Context) (interpreter.Interpreter, error)
}

// Report describes a finished run.
type Report struct {
	Language string
	Backend  Backend
	State    State
	Duration time.Duration
}

// Reporter receives a Report after every run.
type Reporter interface {
	Report(Report)
}

// Runner is one interactive snippet.
type Runner struct {
	original string
	lang     language.Descriptor
	title    string
	stdin    string

	remote    Remote
	local     Local
	logger    *slog.Logger
	observers []func(Snapshot)
	reporter  Reporter

	running atomic.Bool

	mu     sync.Mutex
	source string
	snap   Snapshot
}

// New returns a Runner for code written in the language with the given
// descriptor key. An unknown key is an error. When a local interpreter is
// supplied its resources start loading now, whether or not this snippet
// ever runs locally.
func New(code, key string, opts ...Option) (*Runner, error) {
	d, err := language.Lookup(key)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		original: code,
		source:   code,
		lang:     d,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}

	if r.local != nil {
		r.local.Inject()
	}
	return r, nil
}

// Language returns the snippet's language descriptor.
func (r *Runner) Language() language.Descriptor { return r.lang }

// Title returns the optional snippet title.
func (r *Runner) Title() string { return r.title }

// Stdin returns the standard input sent with every run.
func (r *Runner) Stdin() string { return r.stdin }

// Original returns the snippet text the Runner was created with.
func (r *Runner) Original() string { return r.original }

// Source returns the current, possibly edited, snippet text.
func (r *Runner) Source() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.source
}

// SetSource replaces the editable text. The original is never changed.
func (r *Runner) SetSource(code string) {
	r.mu.Lock()
	r.source = code
	r.mu.Unlock()
}

// Reset restores the editable text to the original.
func (r *Runner) Reset() {
	r.SetSource(r.original)
}

// Running reports whether a run is in flight.
func (r *Runner) Running() bool { return r.running.Load() }

// Snapshot returns the current result.
func (r *Runner) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap
}

// Backend returns the path the next Submit would take.
func (r *Runner) Backend() Backend {
	switch {
	case r.remote != nil && r.remote.Configured():
		return BackendRemote
	case r.local != nil && r.local.Name() == r.lang.Key:
		return BackendLocal
	default:
		return BackendNone
	}
}

// Submit runs the current source text and returns the resulting snapshot.
// If a run is already in flight nothing happens and ErrRunning is returned
// with the current snapshot. Every other failure is reported in the
// snapshot, not as an error.
func (r *Runner) Submit(ctx context.Context) (Snapshot, error) {
	if !r.running.CompareAndSwap(false, true) {
		return r.Snapshot(), ErrRunning
	}
	defer r.running.Store(false)

	source := r.Source()
	backend := r.Backend()
	start := time.Now()

	r.logger.Debug("submitting snippet",
		slog.String("language", r.lang.Key),
		slog.String("backend", string(backend)))

	var snap Snapshot
	switch backend {
	case BackendRemote:
		snap = r.runRemote(ctx, source)
	case BackendLocal:
		snap = r.runLocal(ctx, source)
	default:
		snap = Snapshot{State: StateError, Error: MissingCredentials}
	}
	r.set(snap)

	took := time.Since(start)
	r.logger.Debug("snippet finished",
		slog.String("language", r.lang.Key),
		slog.String("backend", string(backend)),
		slog.String("state", snap.State.String()),
		slog.Duration("took", took))

	if r.reporter != nil {
		r.reporter.Report(Report{
			Language: r.lang.Key,
			Backend:  backend,
			State:    snap.State,
			Duration: took,
		})
	}
	return snap, nil
}

func (r *Runner) runRemote(ctx context.Context, source string) Snapshot {
	r.set(Snapshot{State: StateRunning})

	outcome, err := r.remote.Submit(ctx, judge0.Submission{
		Source:     source,
		LanguageID: r.lang.ID,
		Stdin:      r.stdin,
	})
	if err != nil {
		return Snapshot{State: StateError, Error: remoteFailure + err.Error()}
	}

	switch {
	case outcome.Kind == judge0.KindStdout:
		return Snapshot{State: StateOutput, Output: outcome.Text}
	case outcome.IsError():
		return Snapshot{State: StateError, Error: outcome.Text}
	default:
		return Snapshot{State: StateIdle}
	}
}

func (r *Runner) runLocal(ctx context.Context, source string) Snapshot {
	if r.local.Loaded() {
		r.set(Snapshot{State: StateRunning})
	} else {
		r.set(Snapshot{State: StateRunning, Output: fmt.Sprintf("Loading %s...", r.lang.Name)})
	}

	interp, err := r.local.Get(ctx)
	if err != nil {
		return Snapshot{State: StateError, Error: err.Error()}
	}

	out, err := interp.Exec(ctx, source, r.stdin)
	if err != nil {
		return Snapshot{State: StateError, Error: err.Error()}
	}
	if out == "" {
		out = NoOutput
	}
	return Snapshot{State: StateOutput, Output: out}
}

func (r *Runner) set(s Snapshot) {
	r.mu.Lock()
	r.snap = s
	observers := r.observers
	r.mu.Unlock()

	for _, fn := range observers {
		fn(s)
	}
}
