package models

import (
	"strings"
	"time"

	id "domainhub/pkg/domain"
	dErrors "domainhub/pkg/domain-errors"
)

// VerificationMethod identifies how ownership of a domain was proven.
// The empty string means the domain is currently unverified.
type VerificationMethod string

const (
	MethodRegistrarAPI VerificationMethod = "registrar_api"
	MethodNameserver   VerificationMethod = "nameserver"
	MethodDNSTXT       VerificationMethod = "dns_txt"
	MethodManual       VerificationMethod = "manual"
)

// VerificationLevel is the integer trust tier attached to a domain.
// Higher levels gate more sensitive actions.
type VerificationLevel int

const (
	LevelManual       VerificationLevel = 0
	LevelDNSTXT       VerificationLevel = 1
	LevelNameserver   VerificationLevel = 2
	LevelRegistrarAPI VerificationLevel = 3
)

// methodLevels is the single source of truth for the trust ordering:
// registrar_api > nameserver > dns_txt > manual.
var methodLevels = map[VerificationMethod]VerificationLevel{
	MethodRegistrarAPI: LevelRegistrarAPI,
	MethodNameserver:   LevelNameserver,
	MethodDNSTXT:       LevelDNSTXT,
	MethodManual:       LevelManual,
}

// Level returns the trust level for a verification method.
func (m VerificationMethod) Level() VerificationLevel {
	return methodLevels[m]
}

// IsValid checks the method against the supported set.
func (m VerificationMethod) IsValid() bool {
	_, ok := methodLevels[m]
	return ok
}

// ParseVerificationMethod constructs a VerificationMethod from external input.
func ParseVerificationMethod(s string) (VerificationMethod, error) {
	m := VerificationMethod(s)
	if !m.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid verification method")
	}
	return m, nil
}

// Domain is one name owned by a user, together with its verification state and
// the registrar metadata mirrored by sync passes.
//
// Invariant: RegistrarAccountID non-nil implies Method == MethodRegistrarAPI.
// The account reference is a link, not ownership; nil means the row is not
// currently backed by any registrar account.
type Domain struct {
	Name               string
	UserID             id.UserID
	Method             VerificationMethod
	Level              VerificationLevel
	IsVerified         bool
	VerifiedAt         *time.Time
	RegistrarAccountID *id.AccountID
	// AutoSynced records provenance: true when the row was created by a full
	// sync import rather than manual user entry. Auto-synced rows are
	// hard-deleted when the registrar stops reporting them.
	AutoSynced bool
	LastSeenAt *time.Time

	// Mirrored registrar metadata. Pointers distinguish "unknown" from zero so
	// coalesce merges never clobber known values with registrar silence.
	RegistrarName  string
	ExpiryDate     *time.Time
	AutoRenew      *bool
	TransferLocked *bool

	// Placeholder economics filled by other subsystems; sync imports seed them.
	EstimatedValue int64
	Category       string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NormalizeDomainName lowercases, trims, and strips a leading "www." so
// name-based set comparisons are case and format independent.
func NormalizeDomainName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimSuffix(name, ".")
	return strings.TrimPrefix(name, "www.")
}

// ElevateRegistrar attaches the corroborating account and raises the row to
// registrar-API trust. Idempotent: re-elevation refreshes timestamps only.
func (d *Domain) ElevateRegistrar(accountID id.AccountID, now time.Time) {
	d.RegistrarAccountID = &accountID
	d.Method = MethodRegistrarAPI
	d.Level = LevelRegistrarAPI
	d.IsVerified = true
	t := now
	d.VerifiedAt = &t
	seen := now
	d.LastSeenAt = &seen
	d.UpdatedAt = now
}

// SoftRevoke clears verification and link fields while keeping the row. The
// name survives because the user entered it; only the registrar evidence is
// withdrawn.
func (d *Domain) SoftRevoke(now time.Time) {
	d.RegistrarAccountID = nil
	d.Method = ""
	d.Level = LevelDNSTXT
	d.IsVerified = false
	d.VerifiedAt = nil
	d.UpdatedAt = now
}

// MergeRegistrarMetadata applies registrar-reported metadata with coalesce
// semantics: an unknown value from the registrar never overwrites a previously
// known one.
func (d *Domain) MergeRegistrarMetadata(registrarName string, expiry *time.Time, autoRenew, locked *bool) {
	if registrarName != "" {
		d.RegistrarName = registrarName
	}
	if expiry != nil {
		d.ExpiryDate = expiry
	}
	if autoRenew != nil {
		d.AutoRenew = autoRenew
	}
	if locked != nil {
		d.TransferLocked = locked
	}
}

// Validate enforces row invariants before persistence.
func (d *Domain) Validate() error {
	if d.Name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "domain name cannot be empty")
	}
	if d.UserID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "domain must have an owner")
	}
	if d.RegistrarAccountID != nil && d.Method != MethodRegistrarAPI {
		return dErrors.New(dErrors.CodeInvalidInput, "registrar-linked domain must use registrar_api verification")
	}
	return nil
}
