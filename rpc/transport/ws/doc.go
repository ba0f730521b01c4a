// Package ws implements a websocket transport. Every Comm message travels as one
// binary websocket message whose body uses the frame layout of the stream
// transports, so the codec and handshake are shared with tcp and unix.
//
// Key Components:
//
//   - clientConnector: Dials ws://host:port/ with gorilla/websocket
//
//   - serverConnector: Runs an HTTP server that upgrades requests on "/" and
//     hands the connections to the base accept loop
//
// Websocket close frames with a normal status end a Comm like an EOF on a socket.
package ws
