package model

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// ConnectedWallet is a per-origin consent record
type ConnectedWallet struct {
	Origin      string `json:"-"`
	PublicKey   string `json:"publicKey"`
	AutoApprove bool   `json:"autoApprove"`
}

// Account is one record of the account tree
type Account struct {
	Mnemonic string   `json:"mnemonic"`
	Seed     HexBytes `json:"seed"`
	Names    []string `json:"names"`
}

// AccountTree is the unit of encrypted remote storage
type AccountTree []Account

// Clone returns a deep copy of the tree
func (t AccountTree) Clone() AccountTree {
	if t == nil {
		return nil
	}
	out := make(AccountTree, len(t))
	for i, a := range t {
		out[i] = Account{
			Mnemonic: a.Mnemonic,
			Seed:     append(HexBytes(nil), a.Seed...),
			Names:    append([]string(nil), a.Names...),
		}
	}
	return out
}

// Wipe zeroes seed bytes held by the tree
func (t AccountTree) Wipe() {
	for i := range t {
		clear(t[i].Seed)
		t[i].Mnemonic = ""
	}
}

// AccountSummary is the non-secret view of an account
type AccountSummary struct {
	Index int      `json:"index"`
	Names []string `json:"names"`
}

// Summaries returns the non-secret view of the tree
func (t AccountTree) Summaries() []AccountSummary {
	out := make([]AccountSummary, 0, len(t))
	for i, a := range t {
		out = append(out, AccountSummary{Index: i, Names: append([]string{}, a.Names...)})
	}
	return out
}

// EncryptedBlob is the only form in which the account tree leaves the process
type EncryptedBlob struct {
	IV        ByteArray `json:"iv"`
	Encrypted ByteArray `json:"encrypted"`
}

// IsEmpty reports whether the blob carries no ciphertext
func (b *EncryptedBlob) IsEmpty() bool {
	return b == nil || len(b.Encrypted) == 0
}

// ByteArray marshals as a JSON array of numbers instead of base64,
// matching what the profile store holds.
type ByteArray []byte

func (b ByteArray) MarshalJSON() ([]byte, error) {
	nums := make([]uint16, len(b))
	for i, v := range b {
		nums[i] = uint16(v)
	}
	return json.Marshal(nums)
}

func (b *ByteArray) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*b = nil
		return nil
	}
	var nums []int
	if err := json.Unmarshal(data, &nums); err != nil {
		return fmt.Errorf("byte array: %w", err)
	}
	out := make([]byte, len(nums))
	for i, n := range nums {
		if n < 0 || n > 255 {
			return fmt.Errorf("byte array: value %d at %d out of range", n, i)
		}
		out[i] = byte(n)
	}
	*b = out
	return nil
}

// HexBytes marshals as a hex string
type HexBytes []byte

func (h HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(h))
}

func (h *HexBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("hex bytes: %w", err)
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("hex bytes: %w", err)
	}
	*h = raw
	return nil
}
