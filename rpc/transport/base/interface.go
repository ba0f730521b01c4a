package base

import (
	"context"
	"github.com/ValentinKolb/dComm/rpc/codec"
	"github.com/ValentinKolb/dComm/rpc/common"
	"net"
	"time"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// FrameConn is a connection that transports whole messages as frame lists.
// One goroutine may write while another one reads.
type FrameConn interface {
	// WriteFrames writes all frames of one message
	WriteFrames(frames []codec.Frame) (int64, error)
	// ReadFrames reads all frames of the next message
	ReadFrames(maxFrameSize uint64) ([]codec.Frame, int64, error)
	// SetWriteDeadline bounds pending and future writes, the zero time disables it
	SetWriteDeadline(t time.Time) error
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
	Close() error
	// Abort closes the connection without graceful shutdown (e.g. TCP reset)
	Abort() error
}

// IAcceptor accepts incoming FrameConns
type IAcceptor interface {
	Accept() (FrameConn, error)
	Addr() net.Addr
	Close() error
}

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen binds location and returns an acceptor for it
	Listen(location string, config common.CommConfig) (IAcceptor, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to location. Socket options from config
	// are applied before the connection is returned.
	Connect(ctx context.Context, location string, config common.CommConfig) (FrameConn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}
