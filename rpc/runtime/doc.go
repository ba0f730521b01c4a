// Package runtime provides the task supervisor that drives listeners, handlers and
// callers of the comm layer.
//
// Each task is a goroutine; a blocking Read, Write or Connect suspends only the task
// it is called from. The runtime owns the context all tasks observe, so closing it
// cancels pending operations and waits until every task has returned.
//
// RunUntilComplete is the synchronous entry point for callers outside the runtime
// (benchmarks, CLI commands). Failures of background tasks, including panics, are
// passed to an error sink; the default sink logs them.
//
// A process may create any number of runtimes. By default they share the process-wide
// in-process registry, so inproc:// listeners of one runtime are reachable from another.
package runtime
