package inproc

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dComm/lib/queue"
	"github.com/ValentinKolb/dComm/rpc/address"
	"github.com/ValentinKolb/dComm/rpc/codec"
	"github.com/ValentinKolb/dComm/rpc/common"
	"github.com/ValentinKolb/dComm/rpc/compression"
	"sync"
	"sync/atomic"
)

// message is the unit passed through a queue: the encoded frames of one Comm message
type message = []codec.Frame

// comm implements transport.Comm over a pair of lock-free queues.
//
// Messages run through the codec pipeline but never leave the process: buffers are
// passed by reference and nothing is compressed. A buffer must therefore not be
// modified after it was written.
type comm struct {
	local       string
	peer        string
	in          *queue.MPSC[message] // written by the peer
	out         *queue.MPSC[message] // read by the peer
	pipeline    *codec.Pipeline
	deserialize bool
	metrics     *common.TransportMetrics

	closedCh  chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	peerGone  atomic.Bool
}

// newPipeline creates the codec for in-process comms: the configured serializer, no compression
func newPipeline(config common.CommConfig) (*codec.Pipeline, error) {
	pipeline, err := codec.NewPipeline(config)
	if err != nil {
		return nil, err
	}
	pipeline.Compressor = compression.NewNoneCompressor()
	return pipeline.WithMetrics(common.MetricsFor(address.SchemeInProc)), nil
}

// newPair creates two connected comms
func newPair(clientAddr, serverAddr string, clientPipeline *codec.Pipeline, clientConfig common.CommConfig,
	serverPipeline *codec.Pipeline, serverConfig common.CommConfig) (*comm, *comm) {

	toServer := queue.NewMPSC[message]()
	toClient := queue.NewMPSC[message]()
	metrics := common.MetricsFor(address.SchemeInProc)

	client := &comm{
		local:       clientAddr,
		peer:        serverAddr,
		in:          toClient,
		out:         toServer,
		pipeline:    clientPipeline,
		deserialize: clientConfig.Deserialize,
		metrics:     metrics,
		closedCh:    make(chan struct{}),
	}
	server := &comm{
		local:       serverAddr,
		peer:        clientAddr,
		in:          toServer,
		out:         toClient,
		pipeline:    serverPipeline,
		deserialize: serverConfig.Deserialize,
		metrics:     metrics,
		closedCh:    make(chan struct{}),
	}
	metrics.CommsOpened.Add(2)
	return client, server
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.Comm)
// --------------------------------------------------------------------------

func (c *comm) Read(ctx context.Context) (common.Message, error) {
	if c.closed.Load() {
		return common.Nil(), fmt.Errorf("%w: %s", common.ErrCommClosed, c.local)
	}

	select {
	case frames, ok := <-c.in.Recv():
		if !ok {
			c.peerGone.Store(true)
			return common.Nil(), fmt.Errorf("%w: closed by peer %s", common.ErrCommClosed, c.peer)
		}
		msg, err := c.pipeline.Decode(*frames, c.deserialize)
		if err != nil {
			return common.Nil(), err
		}
		c.metrics.MessagesRead.Inc()
		c.metrics.BytesRead.Add(codec.FramesSize(*frames))
		return msg, nil
	case <-c.closedCh:
		return common.Nil(), fmt.Errorf("%w: %s", common.ErrCommClosed, c.local)
	case <-ctx.Done():
		return common.Nil(), ctx.Err()
	}
}

func (c *comm) Write(ctx context.Context, msg common.Message) error {
	if c.Closed() {
		return fmt.Errorf("%w: %s", common.ErrCommClosed, c.local)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	frames, err := c.pipeline.Encode(msg)
	if err != nil {
		return err
	}

	// Push fails once the peer closed its end
	if !c.out.Push(&frames) {
		c.peerGone.Store(true)
		return fmt.Errorf("%w: closed by peer %s", common.ErrCommClosed, c.peer)
	}

	c.metrics.MessagesWritten.Inc()
	c.metrics.FramesWritten.Add(len(frames))
	c.metrics.BytesWritten.Add(codec.FramesSize(frames))
	return nil
}

func (c *comm) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.closedCh)

		// The peer still receives what was written, then sees the end of the channel
		c.out.Close()
		// Drop what the peer sent and we will never read, further peer writes fail
		c.in.Discard()

		c.metrics.CommsClosed.Inc()
		Logger.Debugf("Closed in-process comm %s -> %s", c.local, c.peer)
	})
	return nil
}

func (c *comm) Abort() {
	// Without a socket there is nothing to reset, drop undelivered messages instead
	c.out.Discard()
	_ = c.Close()
}

func (c *comm) Closed() bool {
	return c.closed.Load() || c.peerGone.Load() || c.out.IsClosed()
}

func (c *comm) LocalAddress() string { return c.local }

func (c *comm) PeerAddress() string { return c.peer }
