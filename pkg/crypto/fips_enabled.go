//go:build fips
// +build fips

// Package crypto implements cryptographic primitives for QSFS.
//
// This file is compiled when the "fips" build tag is specified.
// In FIPS mode, POST failures panic and key-generation consistency tests
// are enabled by default.
package crypto

// FIPSMode reports whether the binary was built in FIPS mode.
// Suite selection does not consult it: NewAEAD and NewChaCha20Poly1305AEAD
// construct every suite in either mode, and Suite.IsFIPSApproved only
// reports which suites are approved.
func FIPSMode() bool { return true }
