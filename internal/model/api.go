package model

import (
	"encoding/json"
	"time"
)

// ApprovalView is an open approval prompt as shown to the approval UI
type ApprovalView struct {
	ID        string          `json:"id"`
	Origin    string          `json:"origin"`
	Network   string          `json:"network,omitempty"`
	Method    string          `json:"method"`
	Request   json.RawMessage `json:"request"`
	CreatedAt time.Time       `json:"createdAt"`
	URL       string          `json:"url"`
}

// UnlockRequest is the body of POST /session/unlock
type UnlockRequest struct {
	Identity   string `json:"identity"`
	Passphrase string `json:"passphrase"`
}

// MnemonicBody is the body of GET/PUT /session/mnemonic
type MnemonicBody struct {
	Mnemonic string `json:"mnemonic"`
}

// AddNameRequest is the body of POST /account/{index}/names
type AddNameRequest struct {
	Name string `json:"name"`
}

// AccountResponse is the non-secret view of the unlocked account tree
type AccountResponse struct {
	Identity string           `json:"identity"`
	Accounts []AccountSummary `json:"accounts"`
}
