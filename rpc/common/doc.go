// Package common provides core data structures and utilities shared across
// the dComm communication layer. It defines the message value model, the error
// taxonomy, configuration structures, logging and metrics.
//
// The package focuses on:
//   - Message model: a tagged-variant Value (nil, bool, int, float, string, bytes,
//     list, map, Serialized placeholder) that stays statically checkable
//   - Error taxonomy shared by all transports (ErrInvalidAddress, ErrBind, ConnectError,
//     ErrCommClosed, ErrSerialization, ErrFrameCorruption, ErrInvalidState)
//   - Configuration structures for listeners, connectors and the serve command
//   - Custom logging implementation integrated with Dragonboat's logger facade
//   - Per-transport counters registered with VictoriaMetrics
//
// Key Components:
//
//   - Value / Message: The unit written to and read from a Comm. Byte buffers are
//     kept by reference and transmitted out-of-band by the codec.
//
//   - Serialized: A value kept in encoded form (header + frames) whose
//     deserialization is deferred until the receiver asks for it.
//
//   - CommConfig: Codec and socket settings for both sides of a connection.
//
//   - Logger: Custom logging implementation that plugs into Dragonboat's
//     logging system while providing consistent formatting across the application.
package common
