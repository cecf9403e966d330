// Package approval is the relay's side of the human approval surface.
package approval

//go:generate mockgen -destination=mock_approval/mock_launcher.go -package=mock_approval github.com/AlexZinkM/wallet-relay/internal/approval Launcher

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/skip2/go-qrcode"
)

// Prompt is what the approval surface is opened with
type Prompt struct {
	ID        string          `json:"id"`
	Origin    string          `json:"origin"`
	Network   string          `json:"network"`
	Method    string          `json:"method"`
	Request   json.RawMessage `json:"request"`
	CreatedAt time.Time       `json:"createdAt"`
	// Token authorizes answers to this prompt. It only leaves the daemon
	// inside the popup URL fragment.
	Token string `json:"-"`
}

// Launcher opens and withdraws approval prompts.
// Launch must not block on the user's decision; the decision comes back
// through the relay's approval-result channel.
type Launcher interface {
	Launch(ctx context.Context, p Prompt) error
	Withdraw(id string)
}

// URL renders the popup address for p, carrying origin, network and the
// serialized request in the fragment.
func (p Prompt) URL(base string) string {
	v := url.Values{}
	v.Set("origin", p.Origin)
	v.Set("network", p.Network)
	v.Set("request", string(p.Request))
	if p.Token != "" {
		v.Set("token", p.Token)
	}
	return base + "#" + v.Encode()
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate approval token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// QRCode renders the popup address as a PNG so the prompt can be approved
// from another device.
func (p Prompt) QRCode(base string, size int) ([]byte, error) {
	qr, err := qrcode.New(p.URL(base), qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}
	png, err := qr.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PNG: %w", err)
	}
	return png, nil
}
