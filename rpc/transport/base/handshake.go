package base

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dComm/rpc/codec"
	"github.com/ValentinKolb/dComm/rpc/common"
	"github.com/ValentinKolb/dComm/rpc/compression"
	"github.com/ValentinKolb/dComm/rpc/serializer"
	"time"
)

// ProtocolVersion is exchanged in the handshake. Peers with another version are rejected.
const ProtocolVersion = 1

// handshakePipeline encodes handshakes independent of the configured codec
var handshakePipeline = &codec.Pipeline{
	Serializer: serializer.NewBinarySerializer(),
	Compressor: compression.NewNoneCompressor(),
}

// handshakeMessage describes the local end of a connection
func handshakeMessage(config common.CommConfig) common.Message {
	return common.Map(map[string]common.Value{
		"op":          common.String("handshake"),
		"version":     common.Int(ProtocolVersion),
		"serializer":  common.String(config.Serializer),
		"compression": common.String(config.Compression),
	})
}

// handshake sends the local handshake and validates the peer's one.
// Both sides write first, so neither waits for the other.
func (c *streamComm) handshake(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := c.write(ctx, handshakePipeline, handshakeMessage(c.config)); err != nil {
		return fmt.Errorf("send handshake: %w", err)
	}

	msg, err := c.Read(ctx)
	if err != nil {
		return fmt.Errorf("receive handshake: %w", err)
	}
	return c.checkHandshake(msg)
}

// checkHandshake validates a received handshake
func (c *streamComm) checkHandshake(msg common.Message) error {
	op, _ := msg.Get("op")
	if s, _ := op.AsString(); s != "handshake" {
		return fmt.Errorf("%w: expected handshake, got %s", common.ErrInvalidState, msg)
	}

	version, _ := msg.Get("version")
	if v, _ := version.AsInt(); v != ProtocolVersion {
		return fmt.Errorf("%w: peer speaks protocol version %d, expected %d", common.ErrInvalidState, v, ProtocolVersion)
	}

	// Frames are self-describing, differing codecs only matter if we cannot decode them
	peerCompression, _ := msg.Get("compression")
	if name, _ := peerCompression.AsString(); name != "" {
		if _, err := compression.ByName(name); err != nil {
			Logger.Warningf("Peer %s uses unknown compression %q", c.peer, name)
		} else if name != c.config.Compression {
			Logger.Debugf("Peer %s uses compression %q, local is %q", c.peer, name, c.config.Compression)
		}
	}
	peerSerializer, _ := msg.Get("serializer")
	if name, _ := peerSerializer.AsString(); name != "" {
		if _, err := serializer.ByName(name); err != nil {
			Logger.Warningf("Peer %s uses unknown serializer %q", c.peer, name)
		}
	}
	return nil
}
