package address

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/ValentinKolb/dComm/rpc/common"
)

// Kind is the transport family of an address
type Kind uint8

const (
	Network   Kind = iota // OS sockets (tcp, unix, ws)
	InProcess             // same-process queues (inproc)
)

// String returns the string representation of a Kind
func (k Kind) String() string {
	if k == InProcess {
		return "inprocess"
	}
	return "network"
}

// Supported schemes
const (
	SchemeTCP    = "tcp"
	SchemeUnix   = "unix"
	SchemeWS     = "ws"
	SchemeInProc = "inproc"

	// DefaultScheme is used when the URI has no scheme
	DefaultScheme = SchemeTCP
)

var schemeKinds = map[string]Kind{
	SchemeTCP:    Network,
	SchemeUnix:   Network,
	SchemeWS:     Network,
	SchemeInProc: InProcess,
}

// Address is a parsed transport URI
type Address struct {
	Scheme   string
	Location string
}

// Parse parses "scheme://location" into an Address.
// A missing scheme defaults to tcp. Parsing is pure, nothing is resolved.
func Parse(uri string) (Address, error) {
	scheme, location := DefaultScheme, strings.TrimSpace(uri)
	if i := strings.Index(location, "://"); i >= 0 {
		scheme, location = strings.ToLower(location[:i]), location[i+3:]
	}

	if _, ok := schemeKinds[scheme]; !ok {
		return Address{}, fmt.Errorf("%w: unknown scheme %q in %q", common.ErrInvalidAddress, scheme, uri)
	}

	addr := Address{Scheme: scheme, Location: location}
	if err := addr.validate(); err != nil {
		return Address{}, fmt.Errorf("%w: %q: %v", common.ErrInvalidAddress, uri, err)
	}
	return addr, nil
}

// MustParse is like Parse but panics on error
func MustParse(uri string) Address {
	addr, err := Parse(uri)
	if err != nil {
		panic(err)
	}
	return addr
}

// New builds an address from its parts without validation
func New(scheme, location string) Address {
	return Address{Scheme: scheme, Location: location}
}

// Kind returns the transport family
func (a Address) Kind() Kind {
	return schemeKinds[a.Scheme]
}

// String returns the URI form "scheme://location"
func (a Address) String() string {
	return a.Scheme + "://" + a.Location
}

// ValidateConnect checks that the address names a concrete peer.
// Listening addresses may leave host, port or inproc name empty; connect addresses may not.
func (a Address) ValidateConnect() error {
	switch a.Scheme {
	case SchemeInProc:
		if a.Location == "" {
			return fmt.Errorf("%w: %s: empty in-process name", common.ErrInvalidAddress, a)
		}
	case SchemeTCP, SchemeWS:
		host, port, err := a.HostPort()
		if err != nil {
			return err
		}
		if host == "" || port == 0 {
			return fmt.Errorf("%w: %s: host and port are required to connect", common.ErrInvalidAddress, a)
		}
	}
	return nil
}

// HostPort splits the location of a tcp or ws address. A missing port is returned as 0.
func (a Address) HostPort() (string, uint16, error) {
	if a.Scheme != SchemeTCP && a.Scheme != SchemeWS {
		return "", 0, fmt.Errorf("%w: %s has no host/port", common.ErrInvalidAddress, a)
	}
	return splitHostPort(a.Location)
}

// ListenHostPort returns the "host:port" a network listener should bind. An empty host binds all
// interfaces, a missing port picks an ephemeral one.
func (a Address) ListenHostPort() (string, error) {
	host, port, err := a.HostPort()
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(host, strconv.Itoa(int(port))), nil
}

// validate checks the location syntax for the scheme
func (a Address) validate() error {
	switch a.Scheme {
	case SchemeTCP, SchemeWS:
		_, _, err := splitHostPort(a.Location)
		return err
	case SchemeUnix:
		if a.Location == "" {
			return fmt.Errorf("empty socket path")
		}
	case SchemeInProc:
		if strings.ContainsAny(a.Location, " \t\n") {
			return fmt.Errorf("in-process name contains whitespace")
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// splitHostPort accepts "", "host", "host:port", "[v6]" and "[v6]:port"
func splitHostPort(location string) (string, uint16, error) {
	if location == "" {
		return "", 0, nil
	}

	// Bracketed IPv6 without port
	if strings.HasPrefix(location, "[") && strings.HasSuffix(location, "]") {
		return location[1 : len(location)-1], 0, nil
	}

	// No port: plain host name or IPv4 (a bare IPv6 literal contains more than one colon)
	if strings.Count(location, ":") == 0 {
		return location, 0, nil
	}
	if strings.Count(location, ":") > 1 && !strings.HasPrefix(location, "[") {
		if ip := net.ParseIP(location); ip != nil {
			return location, 0, nil
		}
		return "", 0, fmt.Errorf("malformed host %q", location)
	}

	host, portStr, err := net.SplitHostPort(location)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q", portStr)
	}
	return host, uint16(port), nil
}
