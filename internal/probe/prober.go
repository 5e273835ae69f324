package probe

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"time"
)

const (
	// DefaultConnectTimeout bounds TCP connection establishment.
	DefaultConnectTimeout = 5 * time.Second
	// DefaultHandshakeTimeout bounds the TLS handshake once connected.
	DefaultHandshakeTimeout = 5 * time.Second
)

// Prober inspects the TLS certificate presented by a single endpoint.
// The zero value is usable; all fields have sane defaults. A Prober is
// stateless and safe for concurrent use.
type Prober struct {
	ConnectTimeout   time.Duration
	HandshakeTimeout time.Duration
	// ExpiryThreshold is the expiring_soon window passed to Classify.
	ExpiryThreshold time.Duration
	// RootCAs overrides the system pool for chain verification. Used in tests.
	RootCAs *x509.CertPool
	// Now overrides the clock for classification. Used in tests.
	Now func() time.Time
}

func (p *Prober) clock() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Probe connects to the request's endpoint, retrieves the peer's leaf
// certificate, and classifies it. All network failures are folded into
// the Result status; Probe never panics or returns an error, so one bad
// host can never affect its batch siblings.
func (p *Prober) Probe(ctx context.Context, req Request) Result {
	result := Result{
		Host:      req.Host,
		CheckedAt: p.clock().UTC(),
	}
	start := time.Now()
	defer func() {
		result.ResponseTimeMS = float64(time.Since(start).Microseconds()) / 1000.0
	}()

	hostname, _ := req.Endpoint()
	if hostname == "" {
		result.Status = StatusUnreachable
		result.Error = "empty hostname"
		return result
	}

	connectTimeout := p.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	handshakeTimeout := p.HandshakeTimeout
	if handshakeTimeout <= 0 {
		handshakeTimeout = DefaultHandshakeTimeout
	}
	if req.Timeout > 0 {
		connectTimeout = req.Timeout
		handshakeTimeout = req.Timeout
	}

	dialer := &net.Dialer{Timeout: connectTimeout}
	rawConn, err := dialer.DialContext(ctx, "tcp", req.Addr())
	if err != nil {
		result.Status = dialStatus(ctx, err)
		result.Error = err.Error()
		return result
	}
	defer rawConn.Close()

	// Handshake with verification disabled so expired, self-signed, or
	// mismatched certificates can still be inspected. Trust is evaluated
	// separately below.
	tlsConn := tls.Client(rawConn, &tls.Config{
		ServerName:         hostname,
		InsecureSkipVerify: true, // #nosec G402 -- diagnostic probe, trust checked via x509.Verify
	})
	hsCtx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()
	if err := tlsConn.HandshakeContext(hsCtx); err != nil {
		if isTimeout(ctx, err) {
			result.Status = StatusTimeout
		} else {
			result.Status = StatusHandshakeError
		}
		result.Error = fmt.Sprintf("tls handshake: %v", err)
		return result
	}

	state := tlsConn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		result.Status = StatusHandshakeError
		result.Error = "no peer certificates presented"
		return result
	}

	now := p.clock()
	info := buildCertificateInfo(&state, hostname, p.RootCAs, now)
	result.Certificate = info
	result.Status = Classify(info, now, p.ExpiryThreshold)
	return result
}

// dialStatus separates "the host said no" from "we ran out of time".
func dialStatus(ctx context.Context, err error) Status {
	if isTimeout(ctx, err) {
		return StatusTimeout
	}
	return StatusUnreachable
}

func isTimeout(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func buildCertificateInfo(state *tls.ConnectionState, hostname string, roots *x509.CertPool, now time.Time) *CertificateInfo {
	leaf := state.PeerCertificates[0]
	info := &CertificateInfo{
		Subject:            leaf.Subject.String(),
		Issuer:             leaf.Issuer.String(),
		SerialNumber:       leaf.SerialNumber.String(),
		NotBefore:          leaf.NotBefore,
		NotAfter:           leaf.NotAfter,
		DaysUntilExpiry:    int(leaf.NotAfter.Sub(now).Hours() / 24),
		SubjectAltNames:    append([]string(nil), leaf.DNSNames...),
		SignatureAlgorithm: leaf.SignatureAlgorithm.String(),
		PublicKeyAlgorithm: leaf.PublicKeyAlgorithm.String(),
		KeySize:            keySize(leaf),
		SelfSigned:         leaf.Subject.String() == leaf.Issuer.String(),
		TLSVersion:         tlsVersionString(state.Version),
		CipherSuite:        tls.CipherSuiteName(state.CipherSuite),
	}
	info.TrustedChain = verifyChain(state.PeerCertificates, hostname, roots, now)
	return info
}

// verifyChain reports whether the presented chain verifies against the
// given roots (system pool when nil) for the probed hostname.
func verifyChain(certs []*x509.Certificate, hostname string, roots *x509.CertPool, now time.Time) bool {
	opts := x509.VerifyOptions{
		Roots:         roots,
		Intermediates: x509.NewCertPool(),
		CurrentTime:   now,
	}
	if net.ParseIP(hostname) == nil {
		opts.DNSName = hostname
	}
	for _, c := range certs[1:] {
		opts.Intermediates.AddCert(c)
	}
	_, err := certs[0].Verify(opts)
	return err == nil
}

// keySize determines the public key size in bits.
func keySize(cert *x509.Certificate) int {
	switch pub := cert.PublicKey.(type) {
	case *rsa.PublicKey:
		return pub.N.BitLen()
	case *ecdsa.PublicKey:
		return pub.Curve.Params().BitSize
	case ed25519.PublicKey:
		return 256
	default:
		return 0
	}
}

// tlsVersionString converts a TLS version constant to its display name.
func tlsVersionString(version uint16) string {
	switch version {
	case tls.VersionTLS10:
		return "TLS 1.0"
	case tls.VersionTLS11:
		return "TLS 1.1"
	case tls.VersionTLS12:
		return "TLS 1.2"
	case tls.VersionTLS13:
		return "TLS 1.3"
	default:
		return fmt.Sprintf("Unknown (0x%04x)", version)
	}
}
