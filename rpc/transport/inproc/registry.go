package inproc

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dComm/rpc/address"
	"github.com/ValentinKolb/dComm/rpc/common"
	"github.com/ValentinKolb/dComm/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"sort"
)

var Logger = logger.GetLogger("inproc")

// Registry is the directory of started in-process listeners. Listeners and connectors
// only find each other through the same registry.
type Registry struct {
	listeners *xsync.MapOf[string, *listener]
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{listeners: xsync.NewMapOf[string, *listener]()}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// NewListener creates an in-process listener named name. An empty name is replaced by a
// generated unique one on Start.
func (r *Registry) NewListener(name string, handler transport.Handler, spawner transport.Spawner, config common.CommConfig) (transport.Listener, error) {
	if handler == nil || spawner == nil {
		return nil, fmt.Errorf("%w: listener needs a handler and a spawner", common.ErrInvalidState)
	}
	pipeline, err := newPipeline(config)
	if err != nil {
		return nil, err
	}
	return &listener{
		registry: r,
		name:     name,
		handler:  handler,
		spawner:  spawner,
		config:   config,
		pipeline: pipeline,
	}, nil
}

// Connect establishes a Comm to the listener registered as name. An unknown name fails
// with a ConnectError{Unresolvable}.
func (r *Registry) Connect(ctx context.Context, name string, config common.CommConfig) (transport.Comm, error) {
	addr := address.New(address.SchemeInProc, name).String()
	if err := ctx.Err(); err != nil {
		return nil, &common.ConnectError{Reason: common.ClassifyConnectError(err), Address: addr, Err: err}
	}

	l, ok := r.listeners.Load(name)
	if !ok {
		common.MetricsFor(address.SchemeInProc).ConnectFailures.Inc()
		return nil, &common.ConnectError{Reason: common.ConnectUnresolvable, Address: addr,
			Err: fmt.Errorf("no in-process listener named %q", name)}
	}

	pipeline, err := newPipeline(config)
	if err != nil {
		return nil, err
	}
	return l.accept(pipeline, config)
}

// Names returns the names of all registered listeners, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, r.listeners.Size())
	r.listeners.Range(func(name string, _ *listener) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

// register adds l under name. It fails if the name is taken.
func (r *Registry) register(name string, l *listener) error {
	if _, loaded := r.listeners.LoadOrStore(name, l); loaded {
		return fmt.Errorf("%w: in-process name %q is already in use", common.ErrBind, name)
	}
	return nil
}

// unregister removes name if it still belongs to l
func (r *Registry) unregister(name string, l *listener) {
	r.listeners.Compute(name, func(current *listener, loaded bool) (*listener, bool) {
		// Case not loaded: deleting keeps the map free of a zero entry
		return current, !loaded || current == l
	})
}
