package ws

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/dComm/rpc/address"
	"github.com/ValentinKolb/dComm/rpc/common"
	"github.com/ValentinKolb/dComm/rpc/transport"
	"github.com/ValentinKolb/dComm/rpc/transport/base"
	"github.com/gorilla/websocket"
	"github.com/lni/dragonboat/v4/logger"
	"net"
	"net/http"
	"sync"
	"time"
)

var Logger = logger.GetLogger("transport")

// Path is the HTTP path websocket connections are upgraded on
const Path = "/"

// serverConnector implements the IServerConnector interface for websockets
type serverConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return address.SchemeWS
}

func (c *serverConnector) Listen(location string, config common.CommConfig) (base.IAcceptor, error) {
	hostPort, err := address.New(address.SchemeWS, location).ListenHostPort()
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", hostPort)
	if err != nil {
		return nil, fmt.Errorf("failed to create TCP socket: %v", err)
	}

	a := &acceptor{
		listener: listener,
		conns:    make(chan *websocket.Conn),
		done:     make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.Socket.ReadBufferSize,
			WriteBufferSize: config.Socket.WriteBufferSize,
			// Peers are programs, not browsers
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	// Create a new HTTP server
	mux := http.NewServeMux()
	mux.HandleFunc(Path, a.handleUpgrade)
	a.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := a.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Errorf("Websocket server on %s failed: %v", listener.Addr(), err)
		}
	}()
	return a, nil
}

// --------------------------------------------------------------------------
// Acceptor
// --------------------------------------------------------------------------

// acceptor hands connections upgraded by the HTTP server to the accept loop
type acceptor struct {
	listener  net.Listener
	server    *http.Server
	upgrader  websocket.Upgrader
	conns     chan *websocket.Conn
	done      chan struct{}
	closeOnce sync.Once
}

func (a *acceptor) Accept() (base.FrameConn, error) {
	select {
	case conn := <-a.conns:
		return newFrameConn(conn), nil
	case <-a.done:
		return nil, net.ErrClosed
	}
}

func (a *acceptor) Addr() net.Addr { return a.listener.Addr() }

func (a *acceptor) Close() error {
	var err error
	a.closeOnce.Do(func() {
		close(a.done)
		// Hijacked websocket connections are not affected by closing the server
		err = a.server.Close()
	})
	return err
}

// handleUpgrade upgrades a request and passes the connection to Accept
func (a *acceptor) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error
		Logger.Debugf("Websocket upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}

	select {
	case a.conns <- conn:
	case <-a.done:
		conn.Close()
	}
}

// --------------------------------------------------------------------------
// Listener Factory Method
// --------------------------------------------------------------------------

// NewListener creates a websocket listener for location ("host:port", "host" or "")
func NewListener(location string, handler transport.Handler, spawner transport.Spawner, config common.CommConfig) (transport.Listener, error) {
	return base.NewStreamListener(&serverConnector{}, location, handler, spawner, config)
}
