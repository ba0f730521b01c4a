package address

import (
	"testing"

	"github.com/ValentinKolb/dComm/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		uri      string
		scheme   string
		location string
		kind     Kind
	}{
		{"tcp://127.0.0.1:8786", SchemeTCP, "127.0.0.1:8786", Network},
		{"TCP://localhost", SchemeTCP, "localhost", Network},
		{"tcp://", SchemeTCP, "", Network},
		{"127.0.0.1:9000", SchemeTCP, "127.0.0.1:9000", Network},
		{"tcp://[::1]:9000", SchemeTCP, "[::1]:9000", Network},
		{"unix:///tmp/dcomm.sock", SchemeUnix, "/tmp/dcomm.sock", Network},
		{"ws://example.com:80", SchemeWS, "example.com:80", Network},
		{"inproc://", SchemeInProc, "", InProcess},
		{"inproc://worker-1", SchemeInProc, "worker-1", InProcess},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			addr, err := Parse(tt.uri)
			require.NoError(t, err)
			assert.Equal(t, tt.scheme, addr.Scheme)
			assert.Equal(t, tt.location, addr.Location)
			assert.Equal(t, tt.kind, addr.Kind())
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, uri := range []string{
		"udp://127.0.0.1:1",
		"tcp://host:port",
		"tcp://host:70000",
		"tcp://a:b:c",
		"unix://",
		"inproc://has space",
	} {
		t.Run(uri, func(t *testing.T) {
			_, err := Parse(uri)
			assert.ErrorIs(t, err, common.ErrInvalidAddress)
		})
	}
}

func TestValidateConnect(t *testing.T) {
	valid := []string{"tcp://127.0.0.1:1", "ws://localhost:8080", "unix:///tmp/x.sock", "inproc://a"}
	for _, uri := range valid {
		assert.NoError(t, MustParse(uri).ValidateConnect(), uri)
	}

	invalid := []string{"tcp://", "tcp://127.0.0.1", "tcp://:8080", "ws://localhost", "inproc://"}
	for _, uri := range invalid {
		assert.ErrorIs(t, MustParse(uri).ValidateConnect(), common.ErrInvalidAddress, uri)
	}
}

func TestListenHostPort(t *testing.T) {
	tests := map[string]string{
		"tcp://":               ":0",
		"tcp://127.0.0.1":      "127.0.0.1:0",
		"tcp://0.0.0.0:8786":   "0.0.0.0:8786",
		"ws://[::1]":           "[::1]:0",
		"tcp://localhost:9000": "localhost:9000",
	}
	for uri, expected := range tests {
		hostPort, err := MustParse(uri).ListenHostPort()
		require.NoError(t, err, uri)
		assert.Equal(t, expected, hostPort, uri)
	}

	_, err := MustParse("inproc://x").ListenHostPort()
	assert.ErrorIs(t, err, common.ErrInvalidAddress)
}

func TestString(t *testing.T) {
	assert.Equal(t, "tcp://127.0.0.1:1", MustParse("127.0.0.1:1").String())
	assert.Equal(t, "inproc://a", New(SchemeInProc, "a").String())
	assert.Equal(t, "inprocess", InProcess.String())
	assert.Equal(t, "network", Network.String())
	assert.Panics(t, func() { MustParse("bogus://x") })
}
