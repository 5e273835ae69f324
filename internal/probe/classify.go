package probe

import "time"

// DefaultExpiryThreshold is the window inside which a certificate is
// reported as expiring_soon.
const DefaultExpiryThreshold = 30 * 24 * time.Hour

// Classify maps certificate metadata to a probe status. It is a pure
// function of (info, now, threshold) so expiry policy can be tested
// without any network access.
//
// Precedence: expired > expiring_soon > self_signed > ok. An expired
// self-signed certificate therefore reports expired.
func Classify(info *CertificateInfo, now time.Time, threshold time.Duration) Status {
	if info == nil {
		return StatusUnreachable
	}
	if threshold <= 0 {
		threshold = DefaultExpiryThreshold
	}
	if now.After(info.NotAfter) {
		return StatusExpired
	}
	if info.NotAfter.Sub(now) < threshold {
		return StatusExpiringSoon
	}
	if info.SelfSigned && !info.TrustedChain {
		return StatusSelfSigned
	}
	return StatusOK
}
