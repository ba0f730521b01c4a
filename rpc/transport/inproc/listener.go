package inproc

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dComm/rpc/address"
	"github.com/ValentinKolb/dComm/rpc/codec"
	"github.com/ValentinKolb/dComm/rpc/common"
	"github.com/ValentinKolb/dComm/rpc/transport"
	"github.com/google/uuid"
	"sync"
)

// listenerState tracks the lifecycle of a listener
type listenerState uint8

const (
	stateNew listenerState = iota
	stateRunning
	stateStopped
)

// listener implements transport.Listener for in-process connections
type listener struct {
	registry *Registry
	name     string
	handler  transport.Handler
	spawner  transport.Spawner
	config   common.CommConfig
	pipeline *codec.Pipeline

	mu    sync.Mutex
	state listenerState
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.Listener)
// --------------------------------------------------------------------------

func (l *listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != stateNew {
		return fmt.Errorf("%w: in-process listener %q was already started", common.ErrInvalidState, l.name)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if l.name == "" {
		l.name = uuid.NewString()
	}
	if err := l.registry.register(l.name, l); err != nil {
		return err
	}
	l.state = stateRunning

	Logger.Infof("Starting in-process listener %s", l.address())
	return nil
}

func (l *listener) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == stateRunning {
		Logger.Infof("Stopping in-process listener %s", l.address())
		l.registry.unregister(l.name, l)
	}
	l.state = stateStopped
	return nil
}

func (l *listener) ContactAddress() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != stateRunning {
		return ""
	}
	return l.address()
}

func (l *listener) ListenAddress() string {
	return l.ContactAddress()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (l *listener) address() string {
	return address.New(address.SchemeInProc, l.name).String()
}

// accept creates a connected pair of comms, runs the handler on the listener's end and
// returns the connector's end
func (l *listener) accept(clientPipeline *codec.Pipeline, clientConfig common.CommConfig) (transport.Comm, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != stateRunning {
		common.MetricsFor(address.SchemeInProc).ConnectFailures.Inc()
		return nil, &common.ConnectError{Reason: common.ConnectRefused, Address: l.address(),
			Err: fmt.Errorf("listener is stopped")}
	}

	clientAddr := address.New(address.SchemeInProc, l.name+"/"+uuid.NewString()).String()
	client, server := newPair(clientAddr, l.address(), clientPipeline, clientConfig, l.pipeline, l.config)

	l.spawner.Go("handle "+clientAddr, func(ctx context.Context) error {
		defer server.Close()
		Logger.Debugf("Accepted in-process connection from %s", clientAddr)
		return l.handler(ctx, server)
	})
	return client, nil
}
