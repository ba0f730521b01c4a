// Package address parses transport URIs of the form scheme://location into an
// Address and classifies them as Network (tcp, unix, ws) or InProcess (inproc).
//
// Grammar:
//
//	tcp://                 all interfaces, ephemeral port (listen only)
//	tcp://host             host, ephemeral port (listen only)
//	tcp://host:port        concrete endpoint
//	unix:///path/to.sock   unix domain socket
//	ws://host:port         websocket endpoint
//	inproc://              server generated in-process name (listen only)
//	inproc://name          named in-process endpoint
//
// A URI without scheme is treated as tcp.
package address
