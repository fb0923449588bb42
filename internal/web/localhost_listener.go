package web

import (
	"fmt"
	"net"

	"github.com/sweetpotatoswee/aical/internal/logging"
)

// LocalhostListener wraps a net.Listener and only accepts connections from
// localhost. Non-localhost connections are rejected at the socket level
// before any HTTP processing occurs.
type LocalhostListener struct {
	net.Listener
}

// NewLocalhostListener creates a new localhost-only listener.
// The underlying listener should already be bound to 127.0.0.1; this
// wrapper additionally validates the source IP of each incoming connection.
func NewLocalhostListener(l net.Listener) *LocalhostListener {
	return &LocalhostListener{Listener: l}
}

// Accept waits for and returns the next connection to the listener.
// It only accepts connections from localhost (127.0.0.0/8 or ::1).
func (l *LocalhostListener) Accept() (net.Conn, error) {
	for {
		conn, err := l.Listener.Accept()
		if err != nil {
			return nil, err
		}

		if !isLocalhostConnection(conn) {
			logging.Web().Warn("Rejected non-localhost connection",
				"remote_addr", conn.RemoteAddr().String())
			conn.Close()
			continue
		}

		return conn, nil
	}
}

// isLocalhostConnection checks if a connection originates from localhost.
func isLocalhostConnection(conn net.Conn) bool {
	remoteAddr := conn.RemoteAddr()
	if remoteAddr == nil {
		return false
	}

	host, _, err := net.SplitHostPort(remoteAddr.String())
	if err != nil {
		host = remoteAddr.String()
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}

	return ip.IsLoopback()
}

// CreateLocalhostListener creates a new TCP listener bound exclusively to
// localhost. If port is 0, a random available port is selected.
// Returns the listener and the actual port used.
func CreateLocalhostListener(port int) (*LocalhostListener, int, error) {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	actualPort := listener.Addr().(*net.TCPAddr).Port
	return NewLocalhostListener(listener), actualPort, nil
}
