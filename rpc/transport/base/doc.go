// Package base provides the foundation for all socket based transports,
// implementing the Comm and Listener abstractions independent of the specific
// network protocol (TCP, Unix sockets, websockets). It serves as a base layer that
// is extended with protocol-specific connectors.
//
// The package focuses on:
//   - Protocol-agnostic Comm and Listener implementations
//   - Frame-based message protocol (see codec.WriteFrames)
//   - A version handshake right after the connection is established
//   - Error classification into the common error taxonomy
//
// Key Components:
//
//   - IClientConnector/IServerConnector: Interfaces for protocol-specific operations
//     that allow extending the base transport with different network protocols.
//
//   - FrameConn/IAcceptor: A connection that reads and writes whole messages, and
//     its server side counterpart. NewNetFrameConn and NewNetAcceptor adapt plain
//     stream sockets.
//
//   - streamComm: A reader goroutine decodes messages into a bounded channel
//     (read-ahead). Writes are serialized and hand the whole message to the socket
//     with a single writev call.
//
//   - streamListener: Accept loop that runs every connection (handshake and handler)
//     as a task of the runtime.
//
// Thread Safety:
//
//	All public methods are thread-safe. Read and Write may be used concurrently,
//	Close unblocks both.
package base
