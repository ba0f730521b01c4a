package runtime

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dComm/rpc/common"
	"github.com/ValentinKolb/dComm/rpc/transport/inproc"
	"github.com/hashicorp/go-multierror"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"sync"
	"sync/atomic"
)

var Logger = logger.GetLogger("runtime")

// ErrorSink receives errors of tasks that nobody waits for
type ErrorSink func(task string, err error)

// closer is a resource released when the runtime closes
type closer struct {
	name  string
	close func() error
}

// Runtime supervises the tasks of listeners, handlers and callers.
//
// Every task runs in its own goroutine with the runtime's context; blocking calls
// inside a task (Read, Write, Connect, Start) only suspend that task. Task errors
// and panics are reported to the error sink instead of crashing the process. Close
// cancels the context and waits for all tasks.
type Runtime struct {
	ctx    context.Context
	cancel context.CancelFunc
	tasks  conc.WaitGroup

	registry *inproc.Registry

	// mu guards closed against concurrent Go calls, see Go and Close
	mu      sync.RWMutex
	closed  bool
	closers []closer

	sinkMu sync.RWMutex
	sink   ErrorSink

	running atomic.Bool
}

// Option configures a Runtime
type Option func(*Runtime)

// WithRegistry sets the in-process directory used for inproc:// addresses
func WithRegistry(registry *inproc.Registry) Option {
	return func(r *Runtime) { r.registry = registry }
}

// WithErrorSink sets the sink for unhandled task errors
func WithErrorSink(sink ErrorSink) Option {
	return func(r *Runtime) { r.sink = sink }
}

// New creates a runtime. By default the process-wide in-process registry is used and
// unhandled task errors are logged.
func New(opts ...Option) *Runtime {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runtime{
		ctx:      ctx,
		cancel:   cancel,
		registry: inproc.DefaultRegistry(),
		sink:     logErrorSink,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// --------------------------------------------------------------------------
// Accessors
// --------------------------------------------------------------------------

// Context is canceled when the runtime closes
func (r *Runtime) Context() context.Context { return r.ctx }

// Registry returns the in-process directory of this runtime
func (r *Runtime) Registry() *inproc.Registry { return r.registry }

// SetErrorSink replaces the sink for unhandled task errors. A nil sink restores the default.
func (r *Runtime) SetErrorSink(sink ErrorSink) {
	if sink == nil {
		sink = logErrorSink
	}
	r.sinkMu.Lock()
	r.sink = sink
	r.sinkMu.Unlock()
}

// --------------------------------------------------------------------------
// Tasks
// --------------------------------------------------------------------------

// Go runs task in the background (implements transport.Spawner). A returned error or a
// panic is passed to the error sink; errors signalling a closed comm or a canceled
// context count as normal termination.
//
// Tasks spawned after Close still run, but with a canceled context and untracked.
func (r *Runtime) Go(name string, task func(ctx context.Context) error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		Logger.Debugf("Runtime closed, running task %s with canceled context", name)
		go r.runTask(name, task)
		return
	}
	r.tasks.Go(func() { r.runTask(name, task) })
}

// RunUntilComplete runs task in the calling goroutine and returns its result. A panic
// in task is returned as an error. The call must not be nested: calling it again while
// it runs on this runtime fails with ErrInvalidState.
func (r *Runtime) RunUntilComplete(task func(ctx context.Context) error) error {
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return fmt.Errorf("%w: runtime is closed", common.ErrInvalidState)
	}

	if !r.running.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: RunUntilComplete is already running on this runtime", common.ErrInvalidState)
	}
	defer r.running.Store(false)

	return catch(func() error { return task(r.ctx) })
}

// Run is RunUntilComplete for tasks with a result
func Run[T any](r *Runtime, task func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.RunUntilComplete(func(ctx context.Context) error {
		var err error
		result, err = task(ctx)
		return err
	})
	return result, err
}

// --------------------------------------------------------------------------
// Shutdown
// --------------------------------------------------------------------------

// OnClose registers a resource that is released when the runtime closes
func (r *Runtime) OnClose(name string, close func() error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		if err := close(); err != nil {
			Logger.Warningf("Failed to close %s: %v", name, err)
		}
		return
	}
	r.closers = append(r.closers, closer{name: name, close: close})
}

// Close releases registered resources, cancels the context and waits for all tasks.
// Errors of the closers are aggregated. Close is idempotent.
func (r *Runtime) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	closers := r.closers
	r.closers = nil
	r.mu.Unlock()

	var result *multierror.Error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close %s: %w", closers[i].name, err))
		}
	}

	r.cancel()
	r.tasks.Wait()

	Logger.Debugf("Runtime closed")
	return result.ErrorOrNil()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// runTask runs a background task and reports its failure
func (r *Runtime) runTask(name string, task func(ctx context.Context) error) {
	err := catch(func() error { return task(r.ctx) })
	if err == nil || isNormalTermination(err) {
		return
	}

	r.sinkMu.RLock()
	sink := r.sink
	r.sinkMu.RUnlock()
	sink(name, err)
}

// catch runs f and converts a panic into an error
func catch(f func() error) error {
	var err error
	var pc panics.Catcher
	pc.Try(func() { err = f() })
	if recovered := pc.Recovered(); recovered != nil {
		return recovered.AsError()
	}
	return err
}

// isNormalTermination reports errors that end a task without being a failure
func isNormalTermination(err error) bool {
	return common.IsCommClosed(err) || errors.Is(err, context.Canceled)
}

// logErrorSink is the default ErrorSink
func logErrorSink(task string, err error) {
	Logger.Errorf("Task %s failed: %v", task, err)
}
