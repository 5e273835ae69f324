package probe

import (
	"net"
	"strconv"
	"strings"
)

// DefaultPort is used when a target carries no explicit port.
const DefaultPort = 443

// ParseRequest interprets a raw target string into a Request. The original
// string is preserved as Request.Host so results can be correlated with
// the caller's input verbatim. Accepted forms:
//   - example.com
//   - example.com:8443
//   - https://example.com/path
//   - [2001:db8::1]:8443
func ParseRequest(target string) Request {
	req := Request{Host: target}
	if _, port := splitTarget(target); port > 0 {
		req.Port = port
	}
	return req
}

// Endpoint resolves the hostname and port to dial for this request.
// An explicit Port wins over a port embedded in Host; both default to 443.
func (r Request) Endpoint() (host string, port int) {
	host, embedded := splitTarget(r.Host)
	port = DefaultPort
	if embedded > 0 {
		port = embedded
	}
	if r.Port > 0 {
		port = r.Port
	}
	return host, port
}

// Addr returns the dial address in host:port form.
func (r Request) Addr() string {
	host, port := r.Endpoint()
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func splitTarget(target string) (string, int) {
	s := strings.TrimSpace(target)
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if host, portStr, err := net.SplitHostPort(s); err == nil {
		if port, perr := strconv.Atoi(portStr); perr == nil && port > 0 && port < 65536 {
			return host, port
		}
		return host, 0
	}
	// Bare hostname, IPv4, or unbracketed IPv6 literal.
	return strings.Trim(s, "[]"), 0
}
