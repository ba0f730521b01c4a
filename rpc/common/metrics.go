package common

import (
	"fmt"
	"io"

	"github.com/VictoriaMetrics/metrics"
)

// TransportMetrics groups the counters of one transport scheme.
// All counters are registered in the default VictoriaMetrics set.
type TransportMetrics struct {
	CommsOpened      *metrics.Counter
	CommsClosed      *metrics.Counter
	ConnectFailures  *metrics.Counter
	MessagesWritten  *metrics.Counter
	MessagesRead     *metrics.Counter
	FramesWritten    *metrics.Counter
	BytesWritten     *metrics.Counter
	BytesRead        *metrics.Counter
	FramesCompressed *metrics.Counter
}

// MetricsFor returns the counters for the given transport scheme (tcp, unix, ws, inproc)
func MetricsFor(scheme string) *TransportMetrics {
	name := func(metric string) string {
		return fmt.Sprintf(`dcomm_%s{transport=%q}`, metric, scheme)
	}
	return &TransportMetrics{
		CommsOpened:      metrics.GetOrCreateCounter(name("comms_opened_total")),
		CommsClosed:      metrics.GetOrCreateCounter(name("comms_closed_total")),
		ConnectFailures:  metrics.GetOrCreateCounter(name("connect_failures_total")),
		MessagesWritten:  metrics.GetOrCreateCounter(name("messages_written_total")),
		MessagesRead:     metrics.GetOrCreateCounter(name("messages_read_total")),
		FramesWritten:    metrics.GetOrCreateCounter(name("frames_written_total")),
		BytesWritten:     metrics.GetOrCreateCounter(name("bytes_written_total")),
		BytesRead:        metrics.GetOrCreateCounter(name("bytes_read_total")),
		FramesCompressed: metrics.GetOrCreateCounter(name("frames_compressed_total")),
	}
}

// WriteMetrics writes all registered metrics in Prometheus text format
func WriteMetrics(w io.Writer) {
	metrics.WritePrometheus(w, true)
}
