package tcp

import (
	"context"
	"github.com/ValentinKolb/dComm/rpc/address"
	"github.com/ValentinKolb/dComm/rpc/common"
	"github.com/ValentinKolb/dComm/rpc/transport"
	"github.com/ValentinKolb/dComm/rpc/transport/base"
	"net"
)

// clientConnector implements the IClientConnector interface for TCP sockets
type clientConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return address.SchemeTCP
}

func (c *clientConnector) Connect(ctx context.Context, location string, config common.CommConfig) (base.FrameConn, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", location)
	if err != nil {
		return nil, err
	}

	// Upgrade the connection with protocol-specific settings
	if err := UpgradeConnection(conn, config); err != nil {
		conn.Close()
		return nil, err
	}
	return base.NewNetFrameConn(conn), nil
}

// --------------------------------------------------------------------------
// Connect Factory Method
// --------------------------------------------------------------------------

// Connect establishes a Comm to the TCP listener at location ("host:port")
func Connect(ctx context.Context, location string, config common.CommConfig) (transport.Comm, error) {
	return base.Connect(ctx, &clientConnector{}, location, config)
}
