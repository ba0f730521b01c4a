// Package tcp implements the TCP socket transport. It provides concrete
// implementations of the base package's connector interfaces optimized for
// TCP connections.
//
// This package builds on the base package's transport functionality, inheriting
// framing, handshake and the accept loop. See the base package documentation for
// details on the underlying transport mechanisms.
//
// Key Components:
//
//   - clientConnector: TCP-specific implementation of base.IClientConnector
//
//   - serverConnector: TCP-specific implementation of base.IServerConnector
//
//   - UpgradeConnection: applies TCPConf and SocketConf (no-delay, keep-alive,
//     linger, buffer sizes) to accepted and dialed sockets
//
// Listening on "" or a host without port binds an ephemeral port. The listener's
// contact address carries the port actually bound.
package tcp
