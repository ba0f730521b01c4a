package unix

import (
	"context"
	"github.com/ValentinKolb/dComm/rpc/address"
	"github.com/ValentinKolb/dComm/rpc/common"
	"github.com/ValentinKolb/dComm/rpc/transport"
	"github.com/ValentinKolb/dComm/rpc/transport/base"
	"net"
)

// clientConnector implements the IClientConnector interface for Unix sockets
type clientConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return address.SchemeUnix
}

func (c *clientConnector) Connect(ctx context.Context, location string, config common.CommConfig) (base.FrameConn, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", location)
	if err != nil {
		return nil, err
	}
	return base.NewNetFrameConn(conn), nil
}

// --------------------------------------------------------------------------
// Connect Factory Method
// --------------------------------------------------------------------------

// Connect establishes a Comm to the Unix socket at path location
func Connect(ctx context.Context, location string, config common.CommConfig) (transport.Comm, error) {
	return base.Connect(ctx, &clientConnector{}, location, config)
}
