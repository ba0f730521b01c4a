// Package transport defines the transport-agnostic abstractions of dComm: the
// message oriented Comm, the Listener accepting connections and the Handler run
// for each of them.
//
// Implementations:
//
//   - base: Shared implementation for stream sockets. Framing, handshake, the
//     accept loop and the read-ahead of decoded messages live here.
//
//   - tcp, unix, ws: Connectors that plug a concrete socket type into base.
//
//   - inproc: Same-process channels built on lock-free queues. Messages still pass
//     through the codec pipeline but never touch a socket.
package transport
