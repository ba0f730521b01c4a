// Package cmd implements the command-line interface of dComm. It provides a
// hierarchical command structure for running an echo server, talking to it and
// benchmarking the transports.
//
// The package is organized into several subpackages:
//
//   - serve: Starts an echo server on any transport address, optionally exposing
//     transport counters under /metrics
//   - client: Commands talking to a running echo server (ping, send)
//   - perf: The benchmark suite (runtime overhead, connect and transfer timings)
//   - util: Shared utilities for flags and configuration (internal use)
//
// All flags can also be set as DCOMM_<FLAG> environment variables or in a .env file.
// See dcomm -help for a list of all commands.
package cmd
