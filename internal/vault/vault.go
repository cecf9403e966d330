// Package vault keeps the account tree encrypted in the user's remote profile.
//
// The tree only leaves the process as an EncryptedBlob sealed under a key
// the caller supplies; the vault never stores the key.
package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tyler-smith/go-bip39"

	"github.com/AlexZinkM/wallet-relay/internal/crypto"
	wlog "github.com/AlexZinkM/wallet-relay/internal/log"
	"github.com/AlexZinkM/wallet-relay/internal/model"
)

// DefaultAccountName tags the account created for a user with no profile data
const DefaultAccountName = "default"

var (
	ErrNoVault      = errors.New("no vault stored for identity")
	ErrCorruptVault = errors.New("vault contents are not an account tree")
)

// Remote is the profile store holding one blob per identity
type Remote interface {
	FetchMetadata(ctx context.Context, identity, token string) (*model.EncryptedBlob, error)
	UpdateMetadata(ctx context.Context, identity, token string, blob model.EncryptedBlob) error
}

// TokenProvider hands out access tokens for the profile store
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenProvider
type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) AccessToken(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticToken always returns token
func StaticToken(token string) TokenProvider {
	return TokenFunc(func(context.Context) (string, error) {
		if token == "" {
			return "", errors.New("no access token configured")
		}
		return token, nil
	})
}

type Vault struct {
	log    wlog.Logger
	remote Remote
}

func New(log wlog.Logger, remote Remote) *Vault {
	return &Vault{
		log:    wlog.CreateModuleLogger("vault", log),
		remote: remote,
	}
}

// NewAccount generates a 24-word mnemonic and its seed
func NewAccount(names ...string) (model.Account, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return model.Account{}, fmt.Errorf("failed to generate entropy: %w", err)
	}
	defer clear(entropy)

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return model.Account{}, fmt.Errorf("failed to generate mnemonic: %w", err)
	}
	return model.Account{
		Mnemonic: mnemonic,
		Seed:     bip39.NewSeed(mnemonic, ""),
		Names:    append([]string{}, names...),
	}, nil
}

// FetchOrInitialize returns the decrypted tree of identity. A user without
// stored data gets a fresh single-account tree that is not persisted until
// Persist is called. A blob that fails to decrypt is an error, never a
// reason to generate a new account.
func (v *Vault) FetchOrInitialize(ctx context.Context, identity string, tokens TokenProvider, key []byte) (model.AccountTree, error) {
	blob, err := v.fetch(ctx, identity, tokens)
	if err != nil {
		return nil, err
	}
	if blob == nil {
		acc, err := NewAccount(DefaultAccountName)
		if err != nil {
			return nil, err
		}
		v.log.Infof("no vault for %s, generated a new account", identity)
		return model.AccountTree{acc}, nil
	}
	return decode(key, *blob)
}

// Persist encrypts tree under a fresh IV and replaces the stored blob
func (v *Vault) Persist(ctx context.Context, identity string, tokens TokenProvider, key []byte, tree model.AccountTree) error {
	if len(tree) == 0 {
		return errors.New("refusing to persist an empty account tree")
	}
	blob, err := encode(key, tree)
	if err != nil {
		return err
	}

	token, err := tokens.AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to get access token: %w", err)
	}
	if err := v.remote.UpdateMetadata(ctx, identity, token, blob); err != nil {
		return err
	}
	v.log.Infof("vault for %s persisted (%d accounts)", identity, len(tree))
	return nil
}

// Rekey re-encrypts the stored tree of identity under newKey.
func (v *Vault) Rekey(ctx context.Context, identity string, tokens TokenProvider, oldKey, newKey []byte) error {
	blob, err := v.fetch(ctx, identity, tokens)
	if err != nil {
		return err
	}
	if blob == nil {
		return ErrNoVault
	}

	tree, err := decode(oldKey, *blob)
	if err != nil {
		return err
	}
	defer tree.Wipe()

	return v.Persist(ctx, identity, tokens, newKey, tree)
}

func (v *Vault) fetch(ctx context.Context, identity string, tokens TokenProvider) (*model.EncryptedBlob, error) {
	token, err := tokens.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}
	return v.remote.FetchMetadata(ctx, identity, token)
}

func encode(key []byte, tree model.AccountTree) (model.EncryptedBlob, error) {
	plaintext, err := json.Marshal(tree)
	if err != nil {
		return model.EncryptedBlob{}, fmt.Errorf("failed to marshal account tree: %w", err)
	}
	defer clear(plaintext)
	return crypto.Seal(key, plaintext)
}

func decode(key []byte, blob model.EncryptedBlob) (model.AccountTree, error) {
	plaintext, err := crypto.Open(key, blob)
	if err != nil {
		return nil, err
	}
	defer clear(plaintext)

	var tree model.AccountTree
	if err := json.Unmarshal(plaintext, &tree); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptVault, err)
	}
	if len(tree) == 0 {
		return nil, ErrCorruptVault
	}
	return tree, nil
}
