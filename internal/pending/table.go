// Package pending tracks escalated requests until their single response.
package pending

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	wlog "github.com/AlexZinkM/wallet-relay/internal/log"
	"github.com/AlexZinkM/wallet-relay/internal/model"
)

var (
	ErrDuplicateID      = errors.New("request id already pending")
	ErrUnknownPendingID = errors.New("no pending request for id")
	ErrAlreadyResolved  = errors.New("request already resolved")
	ErrClosed           = errors.New("pending table closed")
)

// Handler receives the one response of a request
type Handler func(model.Response)

// Ticket describes what a pending request was waiting for
type Ticket struct {
	ID      string
	Origin  string
	Network string
	Method  model.Method
	Params  json.RawMessage
	Issued  time.Time
}

type entry struct {
	ticket  Ticket
	handler Handler
	timer   *time.Timer
}

// Table maps request ids to their response handlers.
// An entry is removed before its handler runs, so no handler fires twice.
type Table struct {
	log      wlog.Logger
	timeout  time.Duration
	mu       sync.Mutex
	entries  map[string]*entry
	resolved *lru.Cache
	closed   bool
	onEvict  func(id string)
}

// New creates a table. A zero timeout disables expiry.
func New(log wlog.Logger, timeout time.Duration, resolvedCacheSize int) (*Table, error) {
	cache, err := lru.New(resolvedCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolved cache: %w", err)
	}
	return &Table{
		log:      wlog.CreateModuleLogger("pending", log),
		timeout:  timeout,
		entries:  make(map[string]*entry),
		resolved: cache,
	}, nil
}

// OnEvict registers fn to run whenever an entry leaves the table without
// an approval result (timeout, cancel, close).
func (t *Table) OnEvict(fn func(id string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onEvict = fn
}

// Register adds the handler for ticket.ID.
func (t *Table) Register(ticket Ticket, h Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	if _, ok := t.entries[ticket.ID]; ok {
		return ErrDuplicateID
	}
	if t.resolved.Contains(ticket.ID) {
		return ErrDuplicateID
	}
	if ticket.Issued.IsZero() {
		ticket.Issued = time.Now()
	}

	e := &entry{ticket: ticket, handler: h}
	if t.timeout > 0 {
		id := ticket.ID
		e.timer = time.AfterFunc(t.timeout, func() {
			t.evict(id, model.ErrCodeTimeout, "approval timed out")
		})
	}
	t.entries[ticket.ID] = e
	return nil
}

// Take removes the entry for id and hands back its ticket and handler.
// The caller owns the handler and must invoke it exactly once.
func (t *Table) Take(id string) (Ticket, Handler, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	if !ok {
		if t.resolved.Contains(id) {
			return Ticket{}, nil, ErrAlreadyResolved
		}
		return Ticket{}, nil, ErrUnknownPendingID
	}
	t.removeLocked(id, e)
	return e.ticket, e.handler, nil
}

// Resolve delivers resp to the handler of resp.ID.
func (t *Table) Resolve(resp model.Response) error {
	_, h, err := t.Take(resp.ID)
	if err != nil {
		return err
	}
	h(resp)
	return nil
}

// Cancel resolves id with an error response carrying code and reason.
// It reports whether an entry was pending.
func (t *Table) Cancel(id, code, reason string) bool {
	return t.evict(id, code, reason)
}

func (t *Table) evict(id, code, reason string) bool {
	t.mu.Lock()
	e, ok := t.entries[id]
	if ok {
		t.removeLocked(id, e)
	}
	onEvict := t.onEvict
	t.mu.Unlock()

	if !ok {
		return false
	}
	t.log.Infof("request %s from %s ended: %s", id, e.ticket.Origin, code)
	if onEvict != nil {
		onEvict(id)
	}
	e.handler(model.NewErrorResponse(id, code, reason))
	return true
}

func (t *Table) removeLocked(id string, e *entry) {
	if e.timer != nil {
		e.timer.Stop()
	}
	delete(t.entries, id)
	t.resolved.Add(id, struct{}{})
}

// Known reports whether id is pending or was resolved recently
func (t *Table) Known(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[id]
	return ok || t.resolved.Contains(id)
}

// Lookup reports the state of id without touching it: nil while pending,
// ErrAlreadyResolved or ErrUnknownPendingID otherwise.
func (t *Table) Lookup(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[id]; ok {
		return nil
	}
	if t.resolved.Contains(id) {
		return ErrAlreadyResolved
	}
	return ErrUnknownPendingID
}

// Pending returns a snapshot of the outstanding tickets
func (t *Table) Pending() []Ticket {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Ticket, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e.ticket)
	}
	return out
}

// Len returns the number of outstanding requests
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Close resolves every outstanding request with a "closed" error and
// rejects further registrations.
func (t *Table) Close() {
	t.mu.Lock()
	t.closed = true
	ids := make([]string, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	t.mu.Unlock()

	for _, id := range ids {
		t.evict(id, model.ErrCodeClosed, "session closed")
	}
}
