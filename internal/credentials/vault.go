// Package credentials implements the credential collaborator: it owns the
// encrypted registrar credential blobs and the account rows' connection
// status. Engines only ever see decrypted credentials in memory, scoped to a
// single call.
package credentials

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/nacl/secretbox"

	"domainhub/internal/inventory/models"
	invstore "domainhub/internal/inventory/store"
	"domainhub/internal/registrar/adapters"
	id "domainhub/pkg/domain"
	dErrors "domainhub/pkg/domain-errors"
	"domainhub/pkg/requestcontext"
)

// BlobStore persists sealed credential blobs keyed by account.
type BlobStore interface {
	Put(ctx context.Context, accountID id.AccountID, blob []byte) error
	// Get returns sentinel.ErrNotFound when no blob exists for the account.
	Get(ctx context.Context, accountID id.AccountID) ([]byte, error)
	Delete(ctx context.Context, accountID id.AccountID) error
}

// Vault seals credentials with NaCl secretbox and manages the registrar
// account rows that anchor them.
type Vault struct {
	key      [32]byte
	blobs    BlobStore
	accounts invstore.AccountStore
}

// NewVault constructs a vault. The key must be exactly 32 bytes.
func NewVault(key []byte, blobs BlobStore, accounts invstore.AccountStore) (*Vault, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("vault key must be 32 bytes, got %d", len(key))
	}
	v := &Vault{blobs: blobs, accounts: accounts}
	copy(v.key[:], key)
	return v, nil
}

// credentialBlob is the plaintext layout inside the sealed box.
type credentialBlob struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
}

// Store creates the registrar account row in pending state and seals the
// credential pair against it. Returns the new account ID.
func (v *Vault) Store(ctx context.Context, userID id.UserID, registrar, apiKey, apiSecret string, mode models.SyncMode) (id.AccountID, error) {
	if apiKey == "" || apiSecret == "" {
		return id.AccountID{}, dErrors.New(dErrors.CodeInvalidInput, "api key and secret are required")
	}

	now := requestcontext.Now(ctx)
	account := &models.RegistrarAccount{
		ID:               id.NewAccountID(),
		UserID:           userID,
		Registrar:        registrar,
		ConnectionStatus: models.ConnectionPending,
		SyncMode:         mode,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := v.accounts.Save(ctx, account); err != nil {
		return id.AccountID{}, fmt.Errorf("create account: %w", err)
	}

	sealed, err := v.seal(credentialBlob{APIKey: apiKey, APISecret: apiSecret})
	if err != nil {
		return id.AccountID{}, err
	}
	if err := v.blobs.Put(ctx, account.ID, sealed); err != nil {
		return id.AccountID{}, fmt.Errorf("store credential blob: %w", err)
	}
	return account.ID, nil
}

// Get returns the decrypted credentials and the registrar code for an account.
func (v *Vault) Get(ctx context.Context, accountID id.AccountID) (adapters.Credentials, string, error) {
	account, err := v.accounts.FindByID(ctx, accountID)
	if err != nil {
		return adapters.Credentials{}, "", err
	}
	sealed, err := v.blobs.Get(ctx, accountID)
	if err != nil {
		return adapters.Credentials{}, "", err
	}
	blob, err := v.open(sealed)
	if err != nil {
		return adapters.Credentials{}, "", err
	}
	return adapters.Credentials{APIKey: blob.APIKey, APISecret: blob.APISecret}, account.Registrar, nil
}

// UpdateConnectionStatus persists a connection test outcome on the account row.
func (v *Vault) UpdateConnectionStatus(ctx context.Context, accountID id.AccountID, status models.ConnectionStatus, message string) error {
	account, err := v.accounts.FindByID(ctx, accountID)
	if err != nil {
		return err
	}
	account.ConnectionStatus = status
	account.LastSyncError = message
	account.UpdatedAt = requestcontext.Now(ctx)
	return v.accounts.Save(ctx, account)
}

// Delete removes the credential blob for an account the user owns. The account
// row survives in disconnected state; the caller owns inventory cleanup.
func (v *Vault) Delete(ctx context.Context, userID id.UserID, accountID id.AccountID) (bool, error) {
	account, err := v.accounts.FindByID(ctx, accountID)
	if err != nil {
		return false, err
	}
	if account.UserID != userID {
		return false, dErrors.New(dErrors.CodeForbidden, "account belongs to a different user")
	}
	if err := v.blobs.Delete(ctx, accountID); err != nil {
		return false, err
	}
	account.ConnectionStatus = models.ConnectionDisconnected
	account.UpdatedAt = time.Now()
	if err := v.accounts.Save(ctx, account); err != nil {
		return false, err
	}
	return true, nil
}

func (v *Vault) seal(blob credentialBlob) ([]byte, error) {
	plaintext, err := json.Marshal(blob)
	if err != nil {
		return nil, fmt.Errorf("encode credentials: %w", err)
	}
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &v.key), nil
}

func (v *Vault) open(sealed []byte) (credentialBlob, error) {
	if len(sealed) < 24 {
		return credentialBlob{}, dErrors.New(dErrors.CodeInternal, "credential blob too short")
	}
	var nonce [24]byte
	copy(nonce[:], sealed[:24])
	plaintext, ok := secretbox.Open(nil, sealed[24:], &nonce, &v.key)
	if !ok {
		return credentialBlob{}, dErrors.New(dErrors.CodeInternal, "credential blob failed authentication")
	}
	var blob credentialBlob
	if err := json.Unmarshal(plaintext, &blob); err != nil {
		return credentialBlob{}, fmt.Errorf("decode credentials: %w", err)
	}
	return blob, nil
}
