// Package session holds the unlocked secrets of the signed-in user.
// Nothing here is ever written to disk; Lock wipes it all.
package session

import (
	"errors"
	"sync"

	wlog "github.com/AlexZinkM/wallet-relay/internal/log"
	"github.com/AlexZinkM/wallet-relay/internal/model"
)

var ErrLocked = errors.New("session is locked")

type Session struct {
	log wlog.Logger

	mu       sync.RWMutex
	identity string
	key      []byte
	tree     model.AccountTree
	mnemonic string
}

func New(log wlog.Logger) *Session {
	return &Session{log: wlog.CreateModuleLogger("session", log)}
}

// Unlock starts a session for identity. key is copied; the caller should
// clear its own slice.
func (s *Session) Unlock(identity string, key []byte) error {
	if identity == "" {
		return errors.New("identity is required")
	}
	if len(key) == 0 {
		return errors.New("key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.wipeLocked()
	s.identity = identity
	s.key = append([]byte(nil), key...)
	s.log.Infof("session unlocked for %s", identity)
	return nil
}

// Lock ends the session and wipes key, mnemonic and account tree
func (s *Session) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return
	}
	s.log.Infof("session for %s locked", s.identity)
	s.wipeLocked()
}

func (s *Session) wipeLocked() {
	clear(s.key)
	s.key = nil
	s.tree.Wipe()
	s.tree = nil
	s.mnemonic = ""
	s.identity = ""
}

func (s *Session) Unlocked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key != nil
}

func (s *Session) Identity() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.key == nil {
		return "", ErrLocked
	}
	return s.identity, nil
}

// Key returns a copy of the vault key
func (s *Session) Key() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.key == nil {
		return nil, ErrLocked
	}
	return append([]byte(nil), s.key...), nil
}

// Tree returns a copy of the cached account tree, nil if not loaded yet
func (s *Session) Tree() (model.AccountTree, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.key == nil {
		return nil, ErrLocked
	}
	return s.tree.Clone(), nil
}

func (s *Session) SetTree(tree model.AccountTree) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return ErrLocked
	}
	s.tree.Wipe()
	s.tree = tree.Clone()
	return nil
}

// Mnemonic returns the mnemonic handed over by the popup, "" if none
func (s *Session) Mnemonic() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.key == nil {
		return "", ErrLocked
	}
	return s.mnemonic, nil
}

func (s *Session) SetMnemonic(m string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return ErrLocked
	}
	s.mnemonic = m
	return nil
}
