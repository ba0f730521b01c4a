package base

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dComm/rpc/codec"
	"github.com/ValentinKolb/dComm/rpc/common"
	"github.com/lni/dragonboat/v4/logger"
	"sync"
	"sync/atomic"
	"time"
)

var Logger = logger.GetLogger("transport")

// readResult is one decoded message (or the error decoding it)
type readResult struct {
	msg common.Message
	err error
}

// streamComm implements transport.Comm on top of a FrameConn.
//
// A reader goroutine decodes incoming messages into a bounded channel, so a slow
// consumer applies backpressure to the socket. Writers are serialized by writeMu.
type streamComm struct {
	conn     FrameConn
	pipeline *codec.Pipeline
	config   common.CommConfig
	metrics  *common.TransportMetrics
	local    string
	peer     string

	writeMu sync.Mutex

	incoming chan readResult
	readErr  error // set by the reader goroutine before incoming is closed

	closedCh  chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool // closed locally
	failed    atomic.Bool // the stream ended (peer closed, reset or corrupt)
}

// newStreamComm wraps conn and starts the reader goroutine
func newStreamComm(scheme string, conn FrameConn, pipeline *codec.Pipeline, config common.CommConfig) *streamComm {
	readAhead := config.ReadAhead
	if readAhead <= 0 {
		readAhead = common.DefaultReadAhead
	}

	metrics := common.MetricsFor(scheme)
	c := &streamComm{
		conn:     conn,
		pipeline: pipeline.WithMetrics(metrics),
		config:   config,
		metrics:  metrics,
		local:    scheme + "://" + conn.LocalAddr().String(),
		peer:     scheme + "://" + conn.RemoteAddr().String(),
		incoming: make(chan readResult, readAhead),
		closedCh: make(chan struct{}),
	}
	metrics.CommsOpened.Inc()

	go c.readMessages()
	return c
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.Comm)
// --------------------------------------------------------------------------

func (c *streamComm) Read(ctx context.Context) (common.Message, error) {
	if c.closed.Load() {
		return common.Nil(), fmt.Errorf("%w: %s", common.ErrCommClosed, c.local)
	}

	select {
	case res, ok := <-c.incoming:
		if !ok {
			return common.Nil(), c.readErr
		}
		if res.err == nil {
			c.metrics.MessagesRead.Inc()
		}
		return res.msg, res.err
	case <-c.closedCh:
		return common.Nil(), fmt.Errorf("%w: %s", common.ErrCommClosed, c.local)
	case <-ctx.Done():
		return common.Nil(), ctx.Err()
	}
}

func (c *streamComm) Write(ctx context.Context, msg common.Message) error {
	return c.write(ctx, c.pipeline, msg)
}

func (c *streamComm) Close() error {
	c.shutdown(false)
	return nil
}

func (c *streamComm) Abort() {
	c.shutdown(true)
}

func (c *streamComm) Closed() bool {
	return c.closed.Load() || c.failed.Load()
}

func (c *streamComm) LocalAddress() string { return c.local }

func (c *streamComm) PeerAddress() string { return c.peer }

// String returns a short description used in logs
func (c *streamComm) String() string {
	return fmt.Sprintf("comm %s -> %s", c.local, c.peer)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// write encodes msg with pipeline and writes it atomically
func (c *streamComm) write(ctx context.Context, pipeline *codec.Pipeline, msg common.Message) error {
	if c.Closed() {
		return fmt.Errorf("%w: %s", common.ErrCommClosed, c.local)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// Encoding errors only affect this message
	frames, err := pipeline.Encode(msg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	// Bound the write by the context: its deadline directly, cancellation by
	// moving the deadline into the past
	deadline, _ := ctx.Deadline()
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return common.WrapStreamError(err, "set write deadline")
	}
	interrupted := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetWriteDeadline(time.Unix(1, 0))
		close(interrupted)
	})
	n, err := c.conn.WriteFrames(frames)
	if !stop() {
		<-interrupted
	}

	if err != nil {
		// A partially written message corrupts the stream
		c.Abort()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: write interrupted: %v", common.ErrCommClosed, ctxErr)
		}
		return common.WrapStreamError(err, "write to %s", c.peer)
	}

	c.metrics.MessagesWritten.Inc()
	c.metrics.FramesWritten.Add(len(frames))
	c.metrics.BytesWritten.Add(int(n))
	return nil
}

// readMessages reads messages in a loop and hands them to Read
func (c *streamComm) readMessages() {
	defer close(c.incoming)

	for {
		frames, n, err := c.conn.ReadFrames(c.config.MaxFrameSize)
		if err != nil {
			if c.closed.Load() {
				c.readErr = fmt.Errorf("%w: %s", common.ErrCommClosed, c.local)
			} else if errors.Is(err, common.ErrFrameCorruption) {
				Logger.Warningf("Closing %s: %v", c, err)
				c.readErr = err
			} else {
				c.readErr = common.WrapStreamError(err, "read from %s", c.peer)
				if common.IsCommClosed(c.readErr) {
					Logger.Debugf("Connection closed by peer %s", c.peer)
				} else {
					Logger.Warningf("Error reading from %s: %v", c.peer, err)
				}
			}
			// The stream is unusable. Buffered messages can still be read,
			// the socket is released right away.
			c.failed.Store(true)
			_ = c.conn.Close()
			return
		}
		c.metrics.BytesRead.Add(int(n))

		// Decode errors only affect this message, the stream stays in sync
		msg, err := codec.Decode(frames, c.config.Deserialize, c.config.MaxFrameSize)
		if err != nil {
			Logger.Warningf("Failed to decode message from %s: %v", c.peer, err)
		}

		select {
		case c.incoming <- readResult{msg: msg, err: err}:
		case <-c.closedCh:
			c.readErr = fmt.Errorf("%w: %s", common.ErrCommClosed, c.local)
			return
		}
	}
}

// shutdown closes the connection once
func (c *streamComm) shutdown(abort bool) {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.closedCh)

		var err error
		if abort {
			err = c.conn.Abort()
		} else {
			err = c.conn.Close()
		}
		if err != nil {
			Logger.Debugf("Error closing %s: %v", c, err)
		}
		c.metrics.CommsClosed.Inc()
	})
}
