package comm

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dComm/rpc/address"
	"github.com/ValentinKolb/dComm/rpc/common"
	"github.com/ValentinKolb/dComm/rpc/runtime"
	"github.com/ValentinKolb/dComm/rpc/transport"
	"github.com/ValentinKolb/dComm/rpc/transport/tcp"
	"github.com/ValentinKolb/dComm/rpc/transport/unix"
	"github.com/ValentinKolb/dComm/rpc/transport/ws"
	"github.com/lni/dragonboat/v4/logger"
	"sort"
)

var Logger = logger.GetLogger("comm")

type listenFunc func(rt *runtime.Runtime, location string, handler transport.Handler, config common.CommConfig) (transport.Listener, error)
type connectFunc func(ctx context.Context, rt *runtime.Runtime, location string, config common.CommConfig) (transport.Comm, error)

// backends maps every scheme the address parser accepts to its transport
var backends = map[string]struct {
	listen  listenFunc
	connect connectFunc
}{
	address.SchemeTCP: {
		listen: func(rt *runtime.Runtime, location string, handler transport.Handler, config common.CommConfig) (transport.Listener, error) {
			return tcp.NewListener(location, handler, rt, config)
		},
		connect: func(ctx context.Context, _ *runtime.Runtime, location string, config common.CommConfig) (transport.Comm, error) {
			return tcp.Connect(ctx, location, config)
		},
	},
	address.SchemeUnix: {
		listen: func(rt *runtime.Runtime, location string, handler transport.Handler, config common.CommConfig) (transport.Listener, error) {
			return unix.NewListener(location, handler, rt, config)
		},
		connect: func(ctx context.Context, _ *runtime.Runtime, location string, config common.CommConfig) (transport.Comm, error) {
			return unix.Connect(ctx, location, config)
		},
	},
	address.SchemeWS: {
		listen: func(rt *runtime.Runtime, location string, handler transport.Handler, config common.CommConfig) (transport.Listener, error) {
			return ws.NewListener(location, handler, rt, config)
		},
		connect: func(ctx context.Context, _ *runtime.Runtime, location string, config common.CommConfig) (transport.Comm, error) {
			return ws.Connect(ctx, location, config)
		},
	},
	address.SchemeInProc: {
		listen: func(rt *runtime.Runtime, location string, handler transport.Handler, config common.CommConfig) (transport.Listener, error) {
			return rt.Registry().NewListener(location, handler, rt, config)
		},
		connect: func(ctx context.Context, rt *runtime.Runtime, location string, config common.CommConfig) (transport.Comm, error) {
			return rt.Registry().Connect(ctx, location, config)
		},
	},
}

// Schemes returns all supported address schemes
func Schemes() []string {
	result := make([]string, 0, len(backends))
	for scheme := range backends {
		result = append(result, scheme)
	}
	sort.Strings(result)
	return result
}

// Listen creates a listener for uri whose handler runs as a task of rt for every
// accepted Comm. The listener is not bound before Start and is stopped when rt closes.
func Listen(rt *runtime.Runtime, uri string, handler transport.Handler, opts ...Option) (transport.Listener, error) {
	addr, err := address.Parse(uri)
	if err != nil {
		return nil, err
	}
	backend, ok := backends[addr.Scheme]
	if !ok {
		return nil, fmt.Errorf("%w: no transport for scheme %q", common.ErrInvalidAddress, addr.Scheme)
	}

	listener, err := backend.listen(rt, addr.Location, handler, buildConfig(opts))
	if err != nil {
		return nil, err
	}
	rt.OnClose("listener "+addr.String(), listener.Stop)
	return listener, nil
}

// Connect establishes a Comm to the listener at uri. Failures to reach the peer are
// returned as *common.ConnectError; retries are left to the caller.
func Connect(ctx context.Context, rt *runtime.Runtime, uri string, opts ...Option) (transport.Comm, error) {
	addr, err := address.Parse(uri)
	if err != nil {
		return nil, err
	}
	if err := addr.ValidateConnect(); err != nil {
		return nil, err
	}
	backend, ok := backends[addr.Scheme]
	if !ok {
		return nil, fmt.Errorf("%w: no transport for scheme %q", common.ErrInvalidAddress, addr.Scheme)
	}

	c, err := backend.connect(ctx, rt, addr.Location, buildConfig(opts))
	if err != nil {
		Logger.Debugf("Connect to %s failed: %v", addr, err)
		return nil, err
	}
	return c, nil
}
