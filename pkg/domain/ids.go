package domain

import (
	"github.com/google/uuid"

	dErrors "domainhub/pkg/domain-errors"
)

// Typed identifiers keep account and user references from being swapped at call
// sites. Construct via the Parse helpers at trust boundaries; direct casting
// bypasses validation.

// UserID identifies the owner of domains and registrar accounts.
type UserID uuid.UUID

// AccountID identifies one connected registrar credential set.
type AccountID uuid.UUID

// NewUserID returns a fresh random user ID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewAccountID returns a fresh random registrar account ID.
func NewAccountID() AccountID { return AccountID(uuid.New()) }

// ParseUserID constructs a UserID from external input. The nil UUID is not a
// valid identity and is rejected like any other bad input.
func ParseUserID(s string) (UserID, error) {
	u, err := uuid.Parse(s)
	if err != nil || u == uuid.Nil {
		return UserID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid user id")
	}
	return UserID(u), nil
}

// ParseAccountID constructs an AccountID from external input. Rejects the nil
// UUID.
func ParseAccountID(s string) (AccountID, error) {
	u, err := uuid.Parse(s)
	if err != nil || u == uuid.Nil {
		return AccountID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid account id")
	}
	return AccountID(u), nil
}

func (u UserID) String() string { return uuid.UUID(u).String() }
func (u UserID) IsNil() bool    { return uuid.UUID(u) == uuid.Nil }

func (a AccountID) String() string { return uuid.UUID(a).String() }
func (a AccountID) IsNil() bool    { return uuid.UUID(a) == uuid.Nil }
