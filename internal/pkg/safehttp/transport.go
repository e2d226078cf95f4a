// Package safehttp provides an HTTP transport that refuses private network targets.
package safehttp

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

// DialTimeout bounds connection establishment.
const DialTimeout = 5 * time.Second

// ErrPrivateAddress is returned when a URL resolves to a loopback, private or link-local address.
type ErrPrivateAddress struct {
	IP net.IP
}

func (e *ErrPrivateAddress) Error() string {
	return fmt.Sprintf("access to private IP %s is denied", e.IP)
}

// NewTransport returns a transport that rejects connections to private or loopback IP
// ranges, reducing SSRF risk when fetching user-supplied URLs.
func NewTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.Proxy = nil
	t.DialContext = DialContext
	return t
}

// DialContext dials addr and closes the connection if the remote address is not public.
func DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: DialTimeout}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	host, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
	ip := net.ParseIP(host)
	if ip == nil {
		conn.Close()
		return nil, fmt.Errorf("failed to parse remote IP for %q", addr)
	}

	if !IsPublic(ip) {
		conn.Close()
		return nil, &ErrPrivateAddress{IP: ip}
	}

	return conn, nil
}

// IsPublic reports whether ip is routable on the public internet.
func IsPublic(ip net.IP) bool {
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified())
}
