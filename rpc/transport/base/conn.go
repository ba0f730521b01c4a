package base

import (
	"bufio"
	"github.com/ValentinKolb/dComm/rpc/codec"
	"github.com/ValentinKolb/dComm/rpc/common"
	"net"
	"time"
)

// readBufferSize is the size of the buffered reader in front of a socket
const readBufferSize = 64 * 1024

// -----------------------------------------------------------
// FrameConn over net.Conn (tcp, unix)
// -----------------------------------------------------------

// netFrameConn frames messages on a plain stream socket using the codec wire format
type netFrameConn struct {
	conn net.Conn
	r    *bufio.Reader
}

// NewNetFrameConn wraps a stream socket
func NewNetFrameConn(conn net.Conn) FrameConn {
	return &netFrameConn{conn: conn, r: bufio.NewReaderSize(conn, readBufferSize)}
}

func (c *netFrameConn) WriteFrames(frames []codec.Frame) (int64, error) {
	// net.Buffers uses writev on the raw connection, do not wrap it
	return codec.WriteFrames(c.conn, frames)
}

func (c *netFrameConn) ReadFrames(maxFrameSize uint64) ([]codec.Frame, int64, error) {
	return codec.ReadFrames(c.r, maxFrameSize)
}

func (c *netFrameConn) SetWriteDeadline(t time.Time) error { return c.conn.SetWriteDeadline(t) }

func (c *netFrameConn) LocalAddr() net.Addr { return c.conn.LocalAddr() }

func (c *netFrameConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

func (c *netFrameConn) Close() error { return c.conn.Close() }

func (c *netFrameConn) Abort() error {
	if tcpConn, ok := c.conn.(*net.TCPConn); ok {
		_ = tcpConn.SetLinger(0)
	}
	return c.conn.Close()
}

// -----------------------------------------------------------
// IAcceptor over net.Listener (tcp, unix)
// -----------------------------------------------------------

// UpgradeFunc applies socket options to an accepted or dialed connection
type UpgradeFunc func(conn net.Conn, config common.CommConfig) error

type netAcceptor struct {
	listener net.Listener
	upgrade  UpgradeFunc
	config   common.CommConfig
}

// NewNetAcceptor wraps a net.Listener. upgrade may be nil.
func NewNetAcceptor(listener net.Listener, upgrade UpgradeFunc, config common.CommConfig) IAcceptor {
	return &netAcceptor{listener: listener, upgrade: upgrade, config: config}
}

func (a *netAcceptor) Accept() (FrameConn, error) {
	for {
		conn, err := a.listener.Accept()
		if err != nil {
			return nil, err
		}
		if a.upgrade != nil {
			if err := a.upgrade(conn, a.config); err != nil {
				Logger.Warningf("Failed to upgrade connection from %s: %v", conn.RemoteAddr(), err)
				conn.Close()
				continue
			}
		}
		return NewNetFrameConn(conn), nil
	}
}

func (a *netAcceptor) Addr() net.Addr { return a.listener.Addr() }

func (a *netAcceptor) Close() error { return a.listener.Close() }
