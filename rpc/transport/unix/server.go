package unix

import (
	"fmt"
	"github.com/ValentinKolb/dComm/rpc/address"
	"github.com/ValentinKolb/dComm/rpc/common"
	"github.com/ValentinKolb/dComm/rpc/transport"
	"github.com/ValentinKolb/dComm/rpc/transport/base"
	"net"
	"os"
)

// serverConnector implements the IServerConnector interface for Unix sockets
type serverConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return address.SchemeUnix
}

func (c *serverConnector) Listen(location string, config common.CommConfig) (base.IAcceptor, error) {
	socketPath := location

	// Remove a stale socket file, refuse to touch anything else
	if info, err := os.Lstat(socketPath); err == nil {
		if info.Mode()&os.ModeSocket == 0 {
			return nil, fmt.Errorf("%s exists and is not a socket", socketPath)
		}
		if err := os.Remove(socketPath); err != nil {
			return nil, fmt.Errorf("failed to remove existing socket: %v", err)
		}
	}

	// Create Unix socket listener
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create Unix socket: %v", err)
	}

	return base.NewNetAcceptor(listener, nil, config), nil
}

// --------------------------------------------------------------------------
// Listener Factory Method
// --------------------------------------------------------------------------

// NewListener creates a Unix socket listener on the socket path location
func NewListener(location string, handler transport.Handler, spawner transport.Spawner, config common.CommConfig) (transport.Listener, error) {
	return base.NewStreamListener(&serverConnector{}, location, handler, spawner, config)
}
