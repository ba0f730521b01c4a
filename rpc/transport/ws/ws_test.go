package ws

import (
	"errors"
	"io"
	"net"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
)

func TestTranslateCloseErrors(t *testing.T) {
	assert.Nil(t, translate(nil))
	assert.Equal(t, io.EOF, translate(&websocket.CloseError{Code: websocket.CloseNormalClosure}))
	assert.Equal(t, io.EOF, translate(&websocket.CloseError{Code: websocket.CloseGoingAway}))
	assert.ErrorIs(t, translate(&websocket.CloseError{Code: websocket.CloseAbnormalClosure}), io.ErrUnexpectedEOF)
	assert.ErrorIs(t, translate(websocket.ErrCloseSent), net.ErrClosed)

	other := errors.New("other")
	assert.Equal(t, other, translate(other))
}
