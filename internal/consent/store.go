// Package consent persists per-origin connection grants.
//
// Every grant lives inside one durable map value stored under a single key.
// Mutations are read-modify-write sequences over that whole map, so all of
// them are funnelled through one writer goroutine. Concurrent Put/Remove calls
// for different origins therefore never overwrite each other's changes.
package consent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	wlog "github.com/AlexZinkM/wallet-relay/internal/log"
	"github.com/AlexZinkM/wallet-relay/internal/model"
	"github.com/AlexZinkM/wallet-relay/internal/storage"
)

// RecordKey is the storage key holding the whole consent map
const RecordKey = "connectedWallets"

var ErrClosed = errors.New("consent store closed")

type record struct {
	PublicKey   string `json:"publicKey"`
	AutoApprove bool   `json:"autoApprove"`
}

type writeOp struct {
	mutate func(m map[string]record) (changed bool, err error)
	result chan error
}

type Store struct {
	log  wlog.Logger
	db   storage.Backend
	ops  chan *writeOp
	quit chan struct{}
	done chan struct{}
	once sync.Once
}

// New starts the store's writer. The caller keeps ownership of db.
func New(log wlog.Logger, db storage.Backend) *Store {
	s := &Store{
		log:  wlog.CreateModuleLogger("consent", log),
		db:   db,
		ops:  make(chan *writeOp),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Store) run() {
	defer close(s.done)
	for {
		select {
		case op := <-s.ops:
			op.result <- s.apply(op)
		case <-s.quit:
			return
		}
	}
}

func (s *Store) apply(op *writeOp) error {
	m, err := s.load()
	if err != nil {
		return err
	}
	changed, err := op.mutate(m)
	if err != nil || !changed {
		return err
	}
	return s.save(m)
}

func (s *Store) load() (map[string]record, error) {
	raw, err := s.db.Get([]byte(RecordKey))
	if err != nil {
		return nil, fmt.Errorf("failed to read consent map: %w", err)
	}
	m := make(map[string]record)
	if len(raw) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to decode consent map: %w", err)
	}
	return m, nil
}

func (s *Store) save(m map[string]record) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode consent map: %w", err)
	}
	if err := s.db.Set([]byte(RecordKey), raw); err != nil {
		return fmt.Errorf("failed to write consent map: %w", err)
	}
	return nil
}

// submit queues a mutation on the single writer and waits for it.
// A mutation that was already queued still lands if ctx expires afterwards.
func (s *Store) submit(ctx context.Context, mutate func(map[string]record) (bool, error)) error {
	op := &writeOp{mutate: mutate, result: make(chan error, 1)}
	select {
	case s.ops <- op:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.quit:
		return ErrClosed
	}
	select {
	case err := <-op.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get returns the grant for origin, if any.
func (s *Store) Get(ctx context.Context, origin string) (model.ConnectedWallet, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.ConnectedWallet{}, false, err
	}
	m, err := s.load()
	if err != nil {
		return model.ConnectedWallet{}, false, err
	}
	r, ok := m[origin]
	if !ok {
		return model.ConnectedWallet{}, false, nil
	}
	return model.ConnectedWallet{Origin: origin, PublicKey: r.PublicKey, AutoApprove: r.AutoApprove}, true, nil
}

// Put creates or replaces the grant for wallet.Origin.
func (s *Store) Put(ctx context.Context, wallet model.ConnectedWallet) error {
	if wallet.Origin == "" {
		return errors.New("consent: empty origin")
	}
	err := s.submit(ctx, func(m map[string]record) (bool, error) {
		m[wallet.Origin] = record{PublicKey: wallet.PublicKey, AutoApprove: wallet.AutoApprove}
		return true, nil
	})
	if err == nil {
		s.log.Infof("granted origin %s", wallet.Origin)
	}
	return err
}

// Remove deletes the grant for origin and reports whether one existed.
// Removing a missing origin is a successful no-op.
func (s *Store) Remove(ctx context.Context, origin string) (bool, error) {
	var existed bool
	err := s.submit(ctx, func(m map[string]record) (bool, error) {
		_, existed = m[origin]
		delete(m, origin)
		return existed, nil
	})
	if err != nil {
		return false, err
	}
	if existed {
		s.log.Infof("revoked origin %s", origin)
	}
	return existed, nil
}

// List returns every grant ordered by origin.
func (s *Store) List(ctx context.Context) ([]model.ConnectedWallet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]model.ConnectedWallet, 0, len(m))
	for origin, r := range m {
		out = append(out, model.ConnectedWallet{Origin: origin, PublicKey: r.PublicKey, AutoApprove: r.AutoApprove})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Origin < out[j].Origin })
	return out, nil
}

// Close stops the writer. Pending submissions fail with ErrClosed.
func (s *Store) Close() {
	s.once.Do(func() {
		close(s.quit)
	})
	<-s.done
}
