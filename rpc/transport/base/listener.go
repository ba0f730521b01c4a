package base

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dComm/rpc/codec"
	"github.com/ValentinKolb/dComm/rpc/common"
	"github.com/ValentinKolb/dComm/rpc/transport"
	"net"
	"sync"
	"time"
)

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// listenerState tracks the lifecycle of a streamListener
type listenerState uint8

const (
	stateNew listenerState = iota
	stateRunning
	stateStopped
)

// streamListener implements transport.Listener for all socket based transports
type streamListener struct {
	connector IServerConnector
	location  string
	handler   transport.Handler
	spawner   transport.Spawner
	config    common.CommConfig
	pipeline  *codec.Pipeline

	mu       sync.Mutex
	state    listenerState
	acceptor IAcceptor
	contact  string
	listen   string
}

// -----------------------------------------------------------
// Listener Factory Method (used for tcp, unix, ws)
// -----------------------------------------------------------

// NewStreamListener creates a listener for location that runs handler for every accepted
// connection as a task of spawner. The listener does not bind before Start.
func NewStreamListener(connector IServerConnector, location string, handler transport.Handler,
	spawner transport.Spawner, config common.CommConfig) (transport.Listener, error) {

	if handler == nil || spawner == nil {
		return nil, fmt.Errorf("%w: listener needs a handler and a spawner", common.ErrInvalidState)
	}
	pipeline, err := codec.NewPipeline(config)
	if err != nil {
		return nil, err
	}

	return &streamListener{
		connector: connector,
		location:  location,
		handler:   handler,
		spawner:   spawner,
		config:    config,
		pipeline:  pipeline,
	}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.Listener)
// --------------------------------------------------------------------------

func (l *streamListener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != stateNew {
		return fmt.Errorf("%w: %s listener on %q was already started", common.ErrInvalidState, l.connector.GetName(), l.location)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	acceptor, err := l.connector.Listen(l.location, l.config)
	if err != nil {
		return fmt.Errorf("%w: %s://%s: %v", common.ErrBind, l.connector.GetName(), l.location, err)
	}

	l.acceptor = acceptor
	l.state = stateRunning
	l.listen = l.connector.GetName() + "://" + acceptor.Addr().String()
	l.contact = l.connector.GetName() + "://" + contactLocation(acceptor.Addr())

	Logger.Infof("Starting %s listener on %s (contact %s)", l.connector.GetName(), l.listen, l.contact)

	l.spawner.Go("accept "+l.listen, l.acceptLoop)
	return nil
}

func (l *streamListener) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == stateStopped {
		return nil
	}
	wasRunning := l.state == stateRunning
	l.state = stateStopped

	if !wasRunning {
		return nil
	}
	Logger.Infof("Stopping %s listener on %s", l.connector.GetName(), l.listen)
	if err := l.acceptor.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func (l *streamListener) ContactAddress() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == stateStopped {
		return ""
	}
	return l.contact
}

func (l *streamListener) ListenAddress() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == stateStopped {
		return ""
	}
	return l.listen
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// stopped reports whether Stop was called
func (l *streamListener) stopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state == stateStopped
}

// acceptLoop accepts connections until the listener is stopped or ctx is done
func (l *streamListener) acceptLoop(ctx context.Context) error {
	// Runtime shutdown stops the listener
	stop := context.AfterFunc(ctx, func() { _ = l.Stop() })
	defer stop()

	for {
		conn, err := l.acceptor.Accept()
		if err != nil {
			if l.stopped() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			// Case temporary error: back off and retry
			Logger.Errorf("Accept error on %s: %v", l.listen, err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(10 * time.Millisecond):
			}
			continue
		}

		// Handle the connection in its own task
		c := newStreamComm(l.connector.GetName(), conn, l.pipeline, l.config)
		l.spawner.Go("handle "+c.peer, func(ctx context.Context) error {
			return l.handleConnection(ctx, c)
		})
	}
}

// handleConnection runs the handshake and the handler for one accepted connection
func (l *streamListener) handleConnection(ctx context.Context, c *streamComm) error {
	defer c.Close()

	if err := c.handshake(ctx, l.config.HandshakeTimeout); err != nil {
		Logger.Warningf("Handshake with %s failed: %v", c.peer, err)
		return nil
	}

	Logger.Debugf("Accepted connection from %s", c.peer)
	return l.handler(ctx, c)
}

// contactLocation turns a bound address into one peers can connect to.
// Wildcard hosts are replaced by the loopback address.
func contactLocation(addr net.Addr) string {
	tcpAddr, ok := addr.(*net.TCPAddr)
	if !ok {
		return addr.String()
	}
	host := tcpAddr.IP.String()
	if tcpAddr.IP == nil || tcpAddr.IP.IsUnspecified() {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, fmt.Sprint(tcpAddr.Port))
}
