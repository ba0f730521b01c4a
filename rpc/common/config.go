package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Defaults
// --------------------------------------------------------------------------

const (
	// DefaultCompressionThreshold is the payload size above which compression is attempted (one page)
	DefaultCompressionThreshold = 4 * 1024
	// DefaultMaxFrameSize bounds a single frame on the wire
	DefaultMaxFrameSize = 1 << 30 // 1 GiB
	// DefaultReadAhead is the number of decoded messages a stream comm may buffer
	DefaultReadAhead = 16
	// DefaultConnectTimeout bounds connect() unless configured otherwise
	DefaultConnectTimeout = 10 * time.Second
	// DefaultHandshakeTimeout bounds the handshake of network transports
	DefaultHandshakeTimeout = 5 * time.Second
)

// --------------------------------------------------------------------------
// Socket configuration structs
// --------------------------------------------------------------------------

// SocketConf holds settings shared by all socket based transports
type SocketConf struct {
	// WriteBufferSize is the OS send buffer size in bytes (0 = OS default)
	WriteBufferSize int
	// ReadBufferSize is the OS receive buffer size in bytes (0 = OS default)
	ReadBufferSize int
}

// TCPConf holds TCP specific socket settings
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
	// TCPLingerSec < 0 keeps the OS default
	TCPLingerSec int
}

// --------------------------------------------------------------------------
// Comm configuration struct
// --------------------------------------------------------------------------

// CommConfig holds everything a listener or connector needs to create Comms
type CommConfig struct {
	// Serializer is the name of the serializer used for outgoing messages (binary, json, gob)
	Serializer string
	// Compression is the name of the compressor used for outgoing frames (lz4, snappy, zstd, none)
	Compression string
	// CompressionThreshold is the minimum frame size for which compression is attempted
	CompressionThreshold int
	// Deserialize controls whether Serialized sub-values are reconstructed on read
	Deserialize bool
	// Reserialize forces Serialized values to be decoded and encoded again on write
	Reserialize bool

	ConnectTimeout   time.Duration
	HandshakeTimeout time.Duration
	MaxFrameSize     uint64
	ReadAhead        int

	Socket SocketConf
	TCP    TCPConf
}

// DefaultCommConfig returns the configuration used when nothing is specified
func DefaultCommConfig() CommConfig {
	return CommConfig{
		Serializer:           "binary",
		Compression:          "lz4",
		CompressionThreshold: DefaultCompressionThreshold,
		Deserialize:          true,
		ConnectTimeout:       DefaultConnectTimeout,
		HandshakeTimeout:     DefaultHandshakeTimeout,
		MaxFrameSize:         DefaultMaxFrameSize,
		ReadAhead:            DefaultReadAhead,
		TCP: TCPConf{
			TCPNoDelay:   true,
			TCPLingerSec: -1,
		},
	}
}

// String returns a formatted string representation of the configuration
func (c *CommConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// Codec settings
	addSection("Codec")
	addField("Serializer", c.Serializer)
	addField("Compression", c.Compression)
	addField("Compress Above", fmt.Sprintf("%d bytes", c.CompressionThreshold))
	addField("Deserialize", strconv.FormatBool(c.Deserialize))
	addField("Reserialize", strconv.FormatBool(c.Reserialize))

	// Connection settings
	addSection("Connection")
	addField("Connect Timeout", c.ConnectTimeout.String())
	addField("Handshake Timeout", c.HandshakeTimeout.String())
	addField("Max Frame Size", fmt.Sprintf("%d bytes", c.MaxFrameSize))
	addField("Read Ahead", strconv.Itoa(c.ReadAhead))

	// Socket settings
	addSection("Socket")
	addField("Write Buffer", fmt.Sprintf("%d bytes", c.Socket.WriteBufferSize))
	addField("Read Buffer", fmt.Sprintf("%d bytes", c.Socket.ReadBufferSize))
	addField("TCP NoDelay", strconv.FormatBool(c.TCP.TCPNoDelay))
	addField("TCP KeepAlive", fmt.Sprintf("%d sec", c.TCP.TCPKeepAliveSec))
	addField("TCP Linger", fmt.Sprintf("%d sec", c.TCP.TCPLingerSec))

	return sb.String()
}

// --------------------------------------------------------------------------
// Serve configuration struct
// --------------------------------------------------------------------------

// ServeConfig holds the configuration of the echo server command
type ServeConfig struct {
	// Endpoint is the transport URI to listen on (e.g. tcp://0.0.0.0:8786)
	Endpoint string
	// MetricsEndpoint is an optional host:port for the Prometheus /metrics endpoint
	MetricsEndpoint string
	// LogLevel is one of debug, info, warn, error
	LogLevel string

	Comm CommConfig
}

// String returns a formatted string representation of the serve configuration
func (c *ServeConfig) String() string {
	var sb strings.Builder

	sb.WriteString("\nSERVER\n")
	sb.WriteString(fmt.Sprintf("  %-22s: %s\n", "Endpoint", c.Endpoint))
	if c.MetricsEndpoint != "" {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", "Metrics", c.MetricsEndpoint))
	}
	sb.WriteString(fmt.Sprintf("  %-22s: %s\n", "Log Level", c.LogLevel))
	sb.WriteString(c.Comm.String())

	return sb.String()
}
