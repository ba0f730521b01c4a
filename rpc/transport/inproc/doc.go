// Package inproc implements the in-process transport. A connection is a pair of
// lock-free queues (see lib/queue); messages are encoded by the codec pipeline
// without compression and their buffers are handed over by reference.
//
// Listeners publish themselves in a Registry under a unique name. The process-wide
// DefaultRegistry is used unless another one is injected, which lets tests run
// isolated directories side by side.
//
// Connecting to a name that is not registered fails immediately with a
// ConnectError{Unresolvable}; starting a second listener under a taken name fails
// with ErrBind.
package inproc
