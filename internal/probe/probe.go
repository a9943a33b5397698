// Package probe implements TCP readiness checks for launched app bundles.
//
// A packaged GUI app is considered "up" once its embedded web server accepts
// TCP connections on the configured host:port. The probe asks the OS network
// stack directly (net.Dial / net.Listen) rather than parsing /proc/net/* or
// shelling out to lsof, which may require elevated permissions.
package probe

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"macpack/internal/logging"
)

const (
	// dialTimeout bounds a single connection attempt so a firewalled host
	// cannot stall the poll loop past its interval.
	dialTimeout = 500 * time.Millisecond

	// pollInterval is the delay between connection attempts while waiting
	// for an app to come up.
	pollInterval = 250 * time.Millisecond
)

// IsOpen reports whether host:port currently accepts TCP connections.
func IsOpen(host string, port int) bool {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return false
	}
	defer func() { _ = conn.Close() }()
	return true
}

// WaitTCP blocks until host:port accepts a TCP connection, the timeout
// elapses, or ctx is cancelled. Cancellation wins over the timeout so a
// caller watching a child process can abort the wait the moment the
// process dies.
func WaitTCP(ctx context.Context, host string, port int, timeout time.Duration) error {
	logger := logging.FromContext(ctx)
	logger.Debug().
		Str("host", host).
		Int("port", port).
		Dur("timeout", timeout).
		Msg("waiting for tcp readiness")

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(pollInterval)
	defer tick.Stop()

	for {
		if IsOpen(host, port) {
			return nil
		}
		select {
		case <-ctx.Done():
			return eris.Wrap(ctx.Err(), "readiness wait interrupted")
		case <-deadline.C:
			return eris.Errorf("%s did not accept connections within %s",
				net.JoinHostPort(host, strconv.Itoa(port)), timeout)
		case <-tick.C:
		}
	}
}

// FreePort asks the kernel for an unused loopback TCP port.
//
// Binding to port 0 delegates the choice to the OS, which is race-free at
// selection time. The listener is closed before returning, so the caller
// must bind the port promptly; the window is small enough in practice for
// handing ephemeral ports to freshly launched apps.
func FreePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, eris.Wrap(err, "failed to allocate a free port")
	}
	defer func() { _ = listener.Close() }()

	addr, ok := listener.Addr().(*net.TCPAddr)
	if !ok {
		return 0, eris.Errorf("unexpected listener address type %T", listener.Addr())
	}
	return addr.Port, nil
}
