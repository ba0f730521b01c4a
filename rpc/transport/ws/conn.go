package ws

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/dComm/rpc/codec"
	"github.com/ValentinKolb/dComm/rpc/transport/base"
	"github.com/gorilla/websocket"
	"io"
	"net"
	"time"
)

// closeGracePeriod bounds sending the close control message
const closeGracePeriod = time.Second

// frameConn carries one Comm message per binary websocket message. The message body
// uses the same layout as the stream transports (see codec.WriteFrames).
type frameConn struct {
	conn *websocket.Conn
}

func newFrameConn(conn *websocket.Conn) base.FrameConn {
	return &frameConn{conn: conn}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.FrameConn)
// --------------------------------------------------------------------------

func (c *frameConn) WriteFrames(frames []codec.Frame) (int64, error) {
	w, err := c.conn.NextWriter(websocket.BinaryMessage)
	if err != nil {
		return 0, translate(err)
	}
	n, err := codec.WriteFrames(w, frames)
	if err != nil {
		w.Close()
		return n, translate(err)
	}
	// Close flushes the final websocket frame
	return n, translate(w.Close())
}

func (c *frameConn) ReadFrames(maxFrameSize uint64) ([]codec.Frame, int64, error) {
	for {
		messageType, r, err := c.conn.NextReader()
		if err != nil {
			return nil, 0, translate(err)
		}
		if messageType != websocket.BinaryMessage {
			Logger.Debugf("Ignoring websocket message of type %d from %s", messageType, c.conn.RemoteAddr())
			continue
		}
		frames, n, err := codec.ReadFrames(r, maxFrameSize)
		return frames, n, translate(err)
	}
}

func (c *frameConn) SetWriteDeadline(t time.Time) error { return c.conn.SetWriteDeadline(t) }

func (c *frameConn) LocalAddr() net.Addr { return c.conn.LocalAddr() }

func (c *frameConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

func (c *frameConn) Close() error {
	// Tell the peer, then drop the socket
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
	return c.conn.Close()
}

func (c *frameConn) Abort() error {
	return c.conn.Close()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// translate maps websocket close errors to io.EOF so they end a Comm normally
func translate(err error) error {
	if err == nil {
		return nil
	}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		if closeErr.Code == websocket.CloseNormalClosure || closeErr.Code == websocket.CloseGoingAway {
			return io.EOF
		}
		return fmt.Errorf("%w: %v", io.ErrUnexpectedEOF, closeErr)
	}
	if errors.Is(err, websocket.ErrCloseSent) {
		return net.ErrClosed
	}
	return err
}
