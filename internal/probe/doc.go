// Package probe implements batch TLS certificate inspection: per-host
// probing with bounded concurrency, metadata extraction from the peer's
// leaf certificate, and pure expiry/trust classification.
package probe
