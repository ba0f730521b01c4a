package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
)

// --------------------------------------------------------------------------
// Error Taxonomy
// --------------------------------------------------------------------------

var (
	// ErrInvalidAddress is returned for malformed or unsupported transport URIs (not retryable)
	ErrInvalidAddress = errors.New("invalid address")
	// ErrBind is returned when a listener cannot bind its address
	ErrBind = errors.New("bind error")
	// ErrConnect is matched by every *ConnectError
	ErrConnect = errors.New("connect error")
	// ErrCommClosed signals the normal end of a channel
	ErrCommClosed = errors.New("comm closed")
	// ErrSerialization is returned when a message cannot be encoded or decoded
	ErrSerialization = errors.New("serialization error")
	// ErrFrameCorruption is returned when frame boundaries or lengths do not match
	ErrFrameCorruption = errors.New("frame corruption")
	// ErrInvalidState is returned on programmer misuse (double start, reentrant run, ...)
	ErrInvalidState = errors.New("invalid state")
)

// ConnectFailure classifies why a connection attempt failed
type ConnectFailure uint8

const (
	ConnectRefused      ConnectFailure = iota // Nobody listens at the address
	ConnectTimeout                            // The attempt did not finish in time
	ConnectUnresolvable                       // The address could not be resolved
)

// String returns the string representation of a ConnectFailure
func (f ConnectFailure) String() string {
	switch f {
	case ConnectRefused:
		return "refused"
	case ConnectTimeout:
		return "timeout"
	case ConnectUnresolvable:
		return "unresolvable"
	default:
		return "unknown"
	}
}

// ConnectError is returned by connect operations. Retries are left to the caller.
type ConnectError struct {
	Reason  ConnectFailure
	Address string
	Err     error
}

func (e *ConnectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("connect to %s: %s: %v", e.Address, e.Reason, e.Err)
	}
	return fmt.Sprintf("connect to %s: %s", e.Address, e.Reason)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrConnect) true for every ConnectError
func (e *ConnectError) Is(target error) bool { return target == ErrConnect }

// NewConnectError classifies err into a ConnectError for address
func NewConnectError(address string, err error) *ConnectError {
	return &ConnectError{Reason: ClassifyConnectError(err), Address: address, Err: err}
}

// ClassifyConnectError maps dial errors to a ConnectFailure
func ClassifyConnectError(err error) ConnectFailure {
	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return ConnectTimeout
	case errors.As(err, &dnsErr):
		if dnsErr.IsTimeout {
			return ConnectTimeout
		}
		return ConnectUnresolvable
	case errors.As(err, &netErr) && netErr.Timeout():
		return ConnectTimeout
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ENOENT):
		return ConnectRefused
	default:
		return ConnectRefused
	}
}

// IsCommClosed reports whether err is the normal end-of-channel signal
func IsCommClosed(err error) bool {
	return errors.Is(err, ErrCommClosed)
}

// IsConnectFailure reports whether err is a ConnectError with the given reason
func IsConnectFailure(err error, reason ConnectFailure) bool {
	var ce *ConnectError
	return errors.As(err, &ce) && ce.Reason == reason
}

// WrapStreamError converts I/O errors of a closed or reset socket into ErrCommClosed.
// Other errors are returned unchanged.
func WrapStreamError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return fmt.Errorf("%w: %s: %v", ErrCommClosed, msg, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
