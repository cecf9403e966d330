package solana

import (
	"fmt"
	"sort"

	"github.com/gagliardetto/solana-go"

	"github.com/AlexZinkM/wallet-relay/internal/model"
)

// IsValidAddress reports whether address is a base58 Solana public key
func IsValidAddress(address string) bool {
	_, err := solana.PublicKeyFromBase58(address)
	return err == nil
}

// ValidateConnected checks the params of a "connected" approval result
func ValidateConnected(p model.ConnectedParams) error {
	if !IsValidAddress(p.PublicKey) {
		return fmt.Errorf("invalid Solana public key %q", p.PublicKey)
	}
	return nil
}

// ValidateProvisioned checks that every requested account name was mapped
// to a valid address and that nothing else was.
func ValidateProvisioned(p model.ProvisionedParams, requested []string) error {
	if len(p.Accounts) == 0 {
		return fmt.Errorf("no accounts provisioned")
	}
	if len(requested) > 0 {
		want := make(map[string]struct{}, len(requested))
		for _, name := range requested {
			want[name] = struct{}{}
			if _, ok := p.Accounts[name]; !ok {
				return fmt.Errorf("account %q was not provisioned", name)
			}
		}
		for name := range p.Accounts {
			if _, ok := want[name]; !ok {
				return fmt.Errorf("account %q was not requested", name)
			}
		}
	}

	names := make([]string, 0, len(p.Accounts))
	for name := range p.Accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !IsValidAddress(p.Accounts[name]) {
			return fmt.Errorf("account %q has invalid address %q", name, p.Accounts[name])
		}
	}
	return nil
}

// Validator checks approval payloads against Solana address rules
type Validator struct{}

func (Validator) ValidateConnected(p model.ConnectedParams) error {
	return ValidateConnected(p)
}

func (Validator) ValidateProvisioned(p model.ProvisionedParams, requested []string) error {
	return ValidateProvisioned(p, requested)
}
