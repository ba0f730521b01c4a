// Package rpc contains the dComm communication layer: listeners and connectors
// for several transports that hand out message oriented Comms.
//
// The package is organized into several subpackages:
//
//   - comm: The public surface. Listen and Connect take a transport URI and pick
//     the matching transport.
//
//   - address: Parsing and classification of tcp://, unix://, ws:// and inproc://
//     addresses.
//
//   - common: The message model, the error taxonomy, configuration structures,
//     logging and metrics.
//
//   - serializer, compression, codec: The pipeline turning a message into frames
//     (header plus out-of-band buffers, optionally compressed) and back.
//
//   - transport: The Comm and Listener abstractions with stream socket (tcp, unix,
//     ws) and in-process implementations.
//
//   - runtime: The task supervisor running listener and handler tasks.
package rpc
