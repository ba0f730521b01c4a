package comm

import (
	"github.com/ValentinKolb/dComm/rpc/common"
	"time"
)

// Option adjusts the CommConfig used by Listen and Connect
type Option func(config *common.CommConfig)

// WithConfig replaces the whole configuration. Options given after it still apply.
func WithConfig(config common.CommConfig) Option {
	return func(c *common.CommConfig) { *c = config }
}

// WithDeserialize controls whether Serialized sub-values are reconstructed on read
func WithDeserialize(deserialize bool) Option {
	return func(c *common.CommConfig) { c.Deserialize = deserialize }
}

// WithReserialize forces Serialized values to be encoded again on write
func WithReserialize(reserialize bool) Option {
	return func(c *common.CommConfig) { c.Reserialize = reserialize }
}

// WithSerializer selects the serializer for outgoing messages (binary, json, gob)
func WithSerializer(name string) Option {
	return func(c *common.CommConfig) { c.Serializer = name }
}

// WithCompression selects the compressor for outgoing frames (lz4, snappy, zstd, none)
func WithCompression(name string) Option {
	return func(c *common.CommConfig) { c.Compression = name }
}

// WithCompressionThreshold sets the minimum frame size for which compression is attempted
func WithCompressionThreshold(bytes int) Option {
	return func(c *common.CommConfig) { c.CompressionThreshold = bytes }
}

// WithConnectTimeout bounds Connect including the handshake
func WithConnectTimeout(timeout time.Duration) Option {
	return func(c *common.CommConfig) { c.ConnectTimeout = timeout }
}

// buildConfig applies opts to the default configuration
func buildConfig(opts []Option) common.CommConfig {
	config := common.DefaultCommConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return config
}
