package ws

import (
	"context"
	"github.com/ValentinKolb/dComm/rpc/address"
	"github.com/ValentinKolb/dComm/rpc/common"
	"github.com/ValentinKolb/dComm/rpc/transport"
	"github.com/ValentinKolb/dComm/rpc/transport/base"
	"github.com/gorilla/websocket"
	"net/url"
)

// clientConnector implements the IClientConnector interface for websockets
type clientConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return address.SchemeWS
}

func (c *clientConnector) Connect(ctx context.Context, location string, config common.CommConfig) (base.FrameConn, error) {
	dialer := *websocket.DefaultDialer
	dialer.ReadBufferSize = config.Socket.ReadBufferSize
	dialer.WriteBufferSize = config.Socket.WriteBufferSize

	u := url.URL{Scheme: "ws", Host: location, Path: Path}
	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return newFrameConn(conn), nil
}

// --------------------------------------------------------------------------
// Connect Factory Method
// --------------------------------------------------------------------------

// Connect establishes a Comm to the websocket listener at location ("host:port")
func Connect(ctx context.Context, location string, config common.CommConfig) (transport.Comm, error) {
	return base.Connect(ctx, &clientConnector{}, location, config)
}
