package approval

import (
	"context"
	"crypto/subtle"
	"errors"
	"sort"
	"sync"

	wlog "github.com/AlexZinkM/wallet-relay/internal/log"
)

var (
	ErrPromptExists   = errors.New("approval prompt already open")
	ErrPromptNotFound = errors.New("no open approval prompt")
	ErrPromptToken    = errors.New("approval token mismatch")
)

// Board is the in-process Launcher. It keeps open prompts until they are
// withdrawn so the approval UI can list and answer them.
type Board struct {
	log     wlog.Logger
	baseURL string

	mu      sync.RWMutex
	prompts map[string]Prompt
}

func NewBoard(log wlog.Logger, baseURL string) *Board {
	return &Board{
		log:     wlog.CreateModuleLogger("approval", log),
		baseURL: baseURL,
		prompts: make(map[string]Prompt),
	}
}

// Launch opens p with a fresh token; answers for p must present it.
func (b *Board) Launch(ctx context.Context, p Prompt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	token, err := newToken()
	if err != nil {
		return err
	}
	p.Token = token

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.prompts[p.ID]; ok {
		return ErrPromptExists
	}
	b.prompts[p.ID] = p
	b.log.Infof("approval %s opened for %s", p.ID, p.Origin)
	return nil
}

func (b *Board) Withdraw(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.prompts[id]; ok {
		delete(b.prompts, id)
		b.log.Debugf("approval %s withdrawn", id)
	}
}

// Authorize checks token against the open prompt for id
func (b *Board) Authorize(id, token string) error {
	p, ok := b.Get(id)
	if !ok {
		return ErrPromptNotFound
	}
	if token == "" || subtle.ConstantTimeCompare([]byte(p.Token), []byte(token)) != 1 {
		return ErrPromptToken
	}
	return nil
}

// Get returns the open prompt for id
func (b *Board) Get(id string) (Prompt, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.prompts[id]
	return p, ok
}

// List returns open prompts, oldest first
func (b *Board) List() []Prompt {
	b.mu.RLock()
	out := make([]Prompt, 0, len(b.prompts))
	for _, p := range b.prompts {
		out = append(out, p)
	}
	b.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// URL returns the popup address of an open prompt
func (b *Board) URL(p Prompt) string {
	return p.URL(b.baseURL)
}

// QRCode renders the popup address of prompt id
func (b *Board) QRCode(id string, size int) ([]byte, bool, error) {
	p, ok := b.Get(id)
	if !ok {
		return nil, false, nil
	}
	png, err := p.QRCode(b.baseURL, size)
	return png, true, err
}
