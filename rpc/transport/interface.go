package transport

import (
	"context"
	"github.com/ValentinKolb/dComm/rpc/common"
)

// --------------------------------------------------------------------------
// Comm
// --------------------------------------------------------------------------

// Comm is one end of an established, bidirectional and message oriented channel.
// Messages written on one end are read by the peer in FIFO order, exactly once.
//
// Read and Write may be called concurrently with each other and with Close.
// Concurrent writers are serialized, each message is written atomically.
type Comm interface {
	// Read blocks until the next message arrives, ctx is done or the comm is closed.
	// After the peer closed the channel and all buffered messages were read, Read
	// returns an error matching common.ErrCommClosed.
	Read(ctx context.Context) (common.Message, error)
	// Write encodes and sends msg. Write returns once the message was handed to the
	// transport. A failed write closes the comm.
	Write(ctx context.Context, msg common.Message) error
	// Close releases all resources. It is idempotent and unblocks pending
	// Read and Write calls with common.ErrCommClosed.
	Close() error
	// Abort closes the comm without a graceful shutdown of the underlying connection
	Abort()
	// Closed reports whether Close or Abort was called or the channel failed
	Closed() bool
	// LocalAddress returns the URI of the local end
	LocalAddress() string
	// PeerAddress returns the URI of the remote end
	PeerAddress() string
}

// --------------------------------------------------------------------------
// Listener
// --------------------------------------------------------------------------

// Handler is invoked once per accepted Comm in its own task. The comm is closed
// when the handler returns. Returning an error reports it to the runtime's error sink.
type Handler func(ctx context.Context, comm Comm) error

// Listener binds an address and hands every accepted connection to a Handler
type Listener interface {
	// Start binds the address. It returns once the listener accepts connections.
	// Starting a listener twice fails with common.ErrInvalidState, a bind failure
	// with common.ErrBind.
	Start(ctx context.Context) error
	// Stop stops accepting connections. It is idempotent. Comms accepted before
	// stay open.
	Stop() error
	// ContactAddress returns the URI peers connect to. For ephemeral ports it
	// contains the port actually bound. Empty before Start and after Stop.
	ContactAddress() string
	// ListenAddress returns the URI of the bound socket. Empty before Start and after Stop.
	ListenAddress() string
}

// --------------------------------------------------------------------------
// Task spawning
// --------------------------------------------------------------------------

// Spawner runs named background tasks. Implemented by the runtime, which cancels the
// task context on shutdown and reports task errors to its error sink.
type Spawner interface {
	Go(name string, task func(ctx context.Context) error)
}
