package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AlexZinkM/wallet-relay/internal/client"
	"github.com/AlexZinkM/wallet-relay/internal/config"
	"github.com/AlexZinkM/wallet-relay/internal/model"
	"github.com/AlexZinkM/wallet-relay/internal/vault"
)

func vaultCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Operate the encrypted account vault of AUTH0_USER_ID.",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Prints account indexes and names.",
		Args:  cobra.NoArgs,
		RunE:  runVaultShow,
	}, &cobra.Command{
		Use:   "rekey",
		Short: "Re-encrypts the vault under a new passphrase.",
		Args:  cobra.NoArgs,
		RunE:  runVaultRekey,
	})
	return cmd
}

type vaultTarget struct {
	vault    *vault.Vault
	identity string
	tokens   vault.TokenProvider
}

func openVault() (*vaultTarget, func(), error) {
	log, closer, err := bootstrap()
	if err != nil {
		return nil, nil, err
	}
	cfg := config.Get()
	if cfg.Auth0UserID == "" || cfg.Auth0AccessToken == "" {
		closer.Close()
		return nil, nil, errors.New("AUTH0_USER_ID and AUTH0_ACCESS_TOKEN must be set")
	}

	profile := client.NewProfileClient(config.GetProfileBaseURL(), cfg.ProfileTimeout)
	return &vaultTarget{
		vault:    vault.New(log, profile),
		identity: cfg.Auth0UserID,
		tokens:   vault.StaticToken(cfg.Auth0AccessToken),
	}, func() { closer.Close() }, nil
}

func runVaultShow(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	t, done, err := openVault()
	if err != nil {
		return err
	}
	defer done()

	key, err := promptKey(t.identity, "Vault passphrase: ")
	if err != nil {
		return err
	}
	defer clear(key)

	tree, err := t.vault.FetchOrInitialize(cmd.Context(), t.identity, t.tokens, key)
	if err != nil {
		return err
	}
	defer tree.Wipe()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(model.AccountResponse{Identity: t.identity, Accounts: tree.Summaries()})
}

func runVaultRekey(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	t, done, err := openVault()
	if err != nil {
		return err
	}
	defer done()

	oldKey, err := promptKey(t.identity, "Current passphrase: ")
	if err != nil {
		return err
	}
	defer clear(oldKey)

	newKey, err := promptKey(t.identity, "New passphrase: ")
	if err != nil {
		return err
	}
	defer clear(newKey)
	confirm, err := promptKey(t.identity, "Repeat new passphrase: ")
	if err != nil {
		return err
	}
	defer clear(confirm)
	if !bytes.Equal(newKey, confirm) {
		return errors.New("passphrases do not match")
	}

	if err := t.vault.Rekey(cmd.Context(), t.identity, t.tokens, oldKey, newKey); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "vault re-encrypted")
	return nil
}
