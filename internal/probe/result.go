package probe

import "time"

// Status classifies the outcome of a single host probe.
type Status string

const (
	StatusOK             Status = "ok"
	StatusExpiringSoon   Status = "expiring_soon"
	StatusExpired        Status = "expired"
	StatusSelfSigned     Status = "self_signed"
	StatusUnreachable    Status = "unreachable"
	StatusHandshakeError Status = "handshake_error"
	StatusTimeout        Status = "timeout"
)

// Request identifies a single endpoint to probe.
type Request struct {
	// Host is the raw target string as supplied by the caller. It may carry
	// a port ("example.com:8443") or a scheme prefix; both are stripped when
	// dialing but the original string is echoed back in Result.Host.
	Host string

	// Port overrides any port embedded in Host. Zero means 443 (or the
	// embedded port if one is present).
	Port int

	// Timeout optionally overrides both the connect and handshake timeouts
	// for this host only.
	Timeout time.Duration
}

// CertificateInfo holds the metadata extracted from a peer's leaf
// certificate and the negotiated TLS session.
type CertificateInfo struct {
	Subject            string    `json:"subject"`
	Issuer             string    `json:"issuer"`
	SerialNumber       string    `json:"serial_number"`
	NotBefore          time.Time `json:"not_before"`
	NotAfter           time.Time `json:"not_after"`
	DaysUntilExpiry    int       `json:"days_until_expiry"`
	SubjectAltNames    []string  `json:"subject_alt_names,omitempty"`
	SignatureAlgorithm string    `json:"signature_algorithm"`
	PublicKeyAlgorithm string    `json:"public_key_algorithm"`
	KeySize            int       `json:"key_size,omitempty"`
	SelfSigned         bool      `json:"self_signed"`
	TrustedChain       bool      `json:"trusted_chain"`
	TLSVersion         string    `json:"tls_version,omitempty"`
	CipherSuite        string    `json:"cipher_suite,omitempty"`
}

// Result is the outcome of probing one host. Certificate is nil whenever
// the probe never completed a handshake (unreachable, timeout, handshake
// failure).
type Result struct {
	Host           string           `json:"host"`
	Status         Status           `json:"status"`
	Certificate    *CertificateInfo `json:"certificate,omitempty"`
	Error          string           `json:"error,omitempty"`
	CheckedAt      time.Time        `json:"checked_at"`
	ResponseTimeMS float64          `json:"response_time_ms,omitempty"`
}
