package base

import (
	"net"
	"testing"

	"github.com/ValentinKolb/dComm/rpc/common"
	"github.com/stretchr/testify/assert"
)

func TestContactLocation(t *testing.T) {
	tests := []struct {
		addr     net.Addr
		expected string
	}{
		{&net.TCPAddr{IP: net.IPv4zero, Port: 8786}, "127.0.0.1:8786"},
		{&net.TCPAddr{IP: net.IPv6unspecified, Port: 1}, "127.0.0.1:1"},
		{&net.TCPAddr{IP: net.ParseIP("10.0.0.1"), Port: 42}, "10.0.0.1:42"},
		{&net.TCPAddr{IP: net.ParseIP("::1"), Port: 42}, "[::1]:42"},
		{&net.UnixAddr{Name: "/tmp/dcomm.sock", Net: "unix"}, "/tmp/dcomm.sock"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, contactLocation(tt.addr))
	}
}

func TestCheckHandshake(t *testing.T) {
	c := &streamComm{peer: "tcp://127.0.0.1:1", config: common.DefaultCommConfig()}

	assert.NoError(t, c.checkHandshake(handshakeMessage(common.DefaultCommConfig())))

	// Unknown codecs of the peer are only logged
	other := common.DefaultCommConfig()
	other.Compression = "brotli"
	other.Serializer = "xml"
	assert.NoError(t, c.checkHandshake(handshakeMessage(other)))

	wrongVersion := common.Map(map[string]common.Value{
		"op":      common.String("handshake"),
		"version": common.Int(ProtocolVersion + 1),
	})
	assert.ErrorIs(t, c.checkHandshake(wrongVersion), common.ErrInvalidState)

	assert.ErrorIs(t, c.checkHandshake(common.String("hello")), common.ErrInvalidState)
}
