// Package adapters wraps vendor-specific registrar APIs behind one contract so
// the sync engine never branches on vendor. New registrars are added by
// implementing Adapter and registering a builder in the factory dispatch table;
// reconciliation logic is never touched.
package adapters

import (
	"context"
	"strings"
	"time"
)

// Credentials is one decrypted registrar credential pair. The vault owns the
// encrypted form; adapters only ever see plaintext in memory.
type Credentials struct {
	APIKey    string
	APISecret string
}

// RegistrarDomain is one domain as reported by a registrar, with whatever
// metadata the vendor exposes. Pointer fields distinguish "vendor did not say"
// from a real zero value so the engine's coalesce merge never clears known data.
type RegistrarDomain struct {
	Name           string
	Registrar      string
	ExpiryDate     *time.Time
	AutoRenew      *bool
	TransferLocked *bool
	Nameservers    []string
}

// AccountInfo is optional vendor account detail surfaced by a connection test.
type AccountInfo struct {
	AccountID string
	Email     string
	Plan      string
}

// ConnectionResult reports a credential test. TestConnection never returns an
// error: auth rejections, rate limits, and network failures are all folded into
// Success/Message so callers can persist a precise status without try/catch at
// every call site.
type ConnectionResult struct {
	Success     bool
	Message     string
	AccountInfo *AccountInfo
}

// RateLimits is descriptive vendor metadata. The engine does not self-throttle
// against it; callers needing real throttling must add their own.
type RateLimits struct {
	RequestsPerHour int
	Burst           int
}

// Adapter is the universal contract every registrar vendor implements.
type Adapter interface {
	// Code returns the registrar code this adapter serves (e.g. "godaddy").
	Code() string

	// TestConnection validates the credentials against the vendor API.
	TestConnection(ctx context.Context) ConnectionResult

	// FetchDomains returns the complete domain list for the account. It fails
	// as a whole on any error, including partial pagination failure: a short
	// list would be misread by the diff algorithm as registrar-side deletions.
	FetchDomains(ctx context.Context) ([]RegistrarDomain, error)

	// DomainDetails looks up one domain. Vendors without a detail endpoint
	// return sentinel.ErrNotSupported.
	DomainDetails(ctx context.Context, name string) (*RegistrarDomain, error)

	// NormalizeDomain canonicalizes a name for set comparison.
	NormalizeDomain(name string) string

	// RateLimits returns the vendor's published limits.
	RateLimits() RateLimits
}

// NormalizeDomain lowercases, trims, strips a trailing dot and a leading
// "www.". Shared by all adapters so name comparisons are uniform.
func NormalizeDomain(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimSuffix(name, ".")
	return strings.TrimPrefix(name, "www.")
}
