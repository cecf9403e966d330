// Package relay brokers page requests between the consent store and the
// human approval surface.
//
// Every request reaches its caller's respond callback exactly once: either
// on the fast path (connect with an existing grant, disconnect) or after
// escalation, when the approval surface answers, the request times out, the
// prompt is dismissed or the caller goes away.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AlexZinkM/wallet-relay/internal/approval"
	"github.com/AlexZinkM/wallet-relay/internal/common"
	wlog "github.com/AlexZinkM/wallet-relay/internal/log"
	"github.com/AlexZinkM/wallet-relay/internal/model"
	"github.com/AlexZinkM/wallet-relay/internal/pending"
)

var (
	ErrMalformedRequest = errors.New("malformed request")
	ErrDuplicateRequest = errors.New("duplicate request id")
)

// ConsentStore is the slice of the consent store the relay needs
type ConsentStore interface {
	Get(ctx context.Context, origin string) (model.ConnectedWallet, bool, error)
	Put(ctx context.Context, wallet model.ConnectedWallet) error
	Remove(ctx context.Context, origin string) (bool, error)
}

// ResultValidator checks approval payloads before they reach the caller
type ResultValidator interface {
	ValidateConnected(p model.ConnectedParams) error
	ValidateProvisioned(p model.ProvisionedParams, requested []string) error
}

type Option func(*Relay)

// WithValidator replaces the default approval payload checks
func WithValidator(v ResultValidator) Option {
	return func(r *Relay) { r.validator = v }
}

type Relay struct {
	log       wlog.Logger
	consent   ConsentStore
	pending   *pending.Table
	launcher  approval.Launcher
	validator ResultValidator
	now       func() time.Time
}

func New(log wlog.Logger, consent ConsentStore, table *pending.Table, launcher approval.Launcher, opts ...Option) *Relay {
	r := &Relay{
		log:       wlog.CreateModuleLogger("relay", log),
		consent:   consent,
		pending:   table,
		launcher:  launcher,
		validator: basicValidator{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	table.OnEvict(launcher.Withdraw)
	return r
}

// HandleInbound dispatches a page request from the browser-verified origin.
// If it returns an error, respond has not been and will not be called.
func (r *Relay) HandleInbound(ctx context.Context, req model.Request, origin string, respond pending.Handler) error {
	if err := validateRequest(req, origin, respond); err != nil {
		return err
	}

	d := req.Data
	m := model.ParseMethod(d.Method)
	switch m.Kind {
	case model.MethodConnect:
		return r.connect(ctx, d, m, origin, respond)
	case model.MethodDisconnect:
		return r.disconnect(ctx, d, origin, respond)
	case model.MethodConnectProvision, model.MethodOpaque:
		return r.escalate(ctx, d, m, origin, respond)
	}
	return fmt.Errorf("%w: unhandled method %s", ErrMalformedRequest, m.Kind)
}

func validateRequest(req model.Request, origin string, respond pending.Handler) error {
	switch {
	case respond == nil:
		return fmt.Errorf("%w: no response callback", ErrMalformedRequest)
	case req.Channel != model.PageChannel:
		return fmt.Errorf("%w: unexpected channel %q", ErrMalformedRequest, req.Channel)
	case req.Data.ID == "":
		return fmt.Errorf("%w: missing id", ErrMalformedRequest)
	case req.Data.Method == "":
		return fmt.Errorf("%w: missing method", ErrMalformedRequest)
	case origin == "" || common.NormalizeOrigin(origin) != origin:
		return fmt.Errorf("%w: invalid origin %q", ErrMalformedRequest, origin)
	}
	return nil
}

func (r *Relay) connect(ctx context.Context, d model.RequestData, m model.Method, origin string, respond pending.Handler) error {
	if r.pending.Known(d.ID) {
		return fmt.Errorf("%w: %s", ErrDuplicateRequest, d.ID)
	}

	wallet, ok, err := r.consent.Get(ctx, origin)
	if err != nil {
		return fmt.Errorf("consent lookup failed: %w", err)
	}
	if !ok {
		return r.escalate(ctx, d, m, origin, respond)
	}

	resp, err := model.NewResponse(model.MethodNameConnected, d.ID, model.ConnectedParams{
		PublicKey:   wallet.PublicKey,
		AutoApprove: wallet.AutoApprove,
	})
	if err != nil {
		return err
	}
	r.log.Debugf("connect %s from %s auto-resolved", d.ID, origin)
	respond(resp)
	return nil
}

func (r *Relay) disconnect(ctx context.Context, d model.RequestData, origin string, respond pending.Handler) error {
	if r.pending.Known(d.ID) {
		return fmt.Errorf("%w: %s", ErrDuplicateRequest, d.ID)
	}
	if _, err := r.consent.Remove(ctx, origin); err != nil {
		return fmt.Errorf("failed to remove connection: %w", err)
	}
	resp, err := model.NewResponse(model.MethodNameDisconnected, d.ID, nil)
	if err != nil {
		return err
	}
	respond(resp)
	return nil
}

func (r *Relay) escalate(ctx context.Context, d model.RequestData, m model.Method, origin string, respond pending.Handler) error {
	serialized, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}

	now := r.now()
	ticket := pending.Ticket{
		ID:      d.ID,
		Origin:  origin,
		Network: d.ResolveNetwork(),
		Method:  m,
		Params:  d.Params,
		Issued:  now,
	}
	if err := r.pending.Register(ticket, respond); err != nil {
		if errors.Is(err, pending.ErrDuplicateID) {
			return fmt.Errorf("%w: %s", ErrDuplicateRequest, d.ID)
		}
		return err
	}

	prompt := approval.Prompt{
		ID:        d.ID,
		Origin:    origin,
		Network:   ticket.Network,
		Method:    m.Name,
		Request:   serialized,
		CreatedAt: now,
	}
	if err := r.launcher.Launch(ctx, prompt); err != nil {
		if _, _, terr := r.pending.Take(d.ID); terr != nil {
			// resolved concurrently (timeout or cancel); the caller already has its answer
			return nil
		}
		return fmt.Errorf("failed to open approval: %w", err)
	}
	if r.pending.Lookup(d.ID) != nil {
		// answered or cancelled while the prompt was opening, before there was anything to withdraw
		r.launcher.Withdraw(d.ID)
		return nil
	}
	r.log.Infof("%s %s from %s escalated", m.Name, d.ID, origin)
	return nil
}

// HandleApprovalResult routes an approval-surface answer to the original
// caller. Unknown or replayed ids are dropped and reported as errors; the
// relay itself keeps serving.
func (r *Relay) HandleApprovalResult(ctx context.Context, res model.ApprovalResult) error {
	if err := CheckApprovalResult(res); err != nil {
		return err
	}

	ticket, respond, err := r.pending.Take(res.Data.ID)
	if err != nil {
		r.log.Warnf("dropping approval result %s for %s: %v", res.Data.Method, res.Data.ID, err)
		return err
	}
	r.launcher.Withdraw(ticket.ID)
	respond(r.finalize(ctx, ticket, res.Data))
	return nil
}

// CheckApprovalResult validates the envelope of an approval-surface answer
func CheckApprovalResult(res model.ApprovalResult) error {
	if res.Channel != model.ApprovalResultChannel {
		return fmt.Errorf("%w: unexpected channel %q", ErrMalformedRequest, res.Channel)
	}
	if res.Data.ID == "" {
		return fmt.Errorf("%w: missing id", ErrMalformedRequest)
	}
	return nil
}

func (r *Relay) finalize(ctx context.Context, ticket pending.Ticket, resp model.Response) model.Response {
	resp.ID = ticket.ID

	switch ticket.Method.Kind {
	case model.MethodConnect:
		if resp.Method != model.MethodNameConnected {
			return resp
		}
		var p model.ConnectedParams
		if err := resp.DecodeParams(&p); err != nil {
			return r.invalid(ticket, err)
		}
		if err := r.validator.ValidateConnected(p); err != nil {
			return r.invalid(ticket, err)
		}
		// the grant must not depend on the approval client staying connected
		err := r.consent.Put(context.WithoutCancel(ctx), model.ConnectedWallet{
			Origin:      ticket.Origin,
			PublicKey:   p.PublicKey,
			AutoApprove: p.AutoApprove,
		})
		if err != nil {
			r.log.Errorf("failed to record connection for %s: %v", ticket.Origin, err)
			return model.NewErrorResponse(ticket.ID, model.ErrCodeInternal, "failed to record connection")
		}
		out, err := model.NewResponse(model.MethodNameConnected, ticket.ID, p)
		if err != nil {
			return r.invalid(ticket, err)
		}
		return out

	case model.MethodConnectProvision:
		if resp.Method != model.MethodNameConnectProvisioned {
			return resp
		}
		var p model.ProvisionedParams
		if err := resp.DecodeParams(&p); err != nil {
			return r.invalid(ticket, err)
		}
		if err := r.validator.ValidateProvisioned(p, requestedAccounts(ticket.Params)); err != nil {
			return r.invalid(ticket, err)
		}
		return resp
	}
	return resp
}

func (r *Relay) invalid(ticket pending.Ticket, err error) model.Response {
	r.log.Warnf("invalid approval result for %s from %s: %v", ticket.ID, ticket.Origin, err)
	return model.NewErrorResponse(ticket.ID, model.ErrCodeInvalidResult, err.Error())
}

// Dismiss resolves id as rejected, for an approval surface closed without
// a decision. It reports whether id was pending.
func (r *Relay) Dismiss(id string) bool {
	return r.pending.Cancel(id, model.ErrCodeRejected, "approval dismissed")
}

// Cancel resolves id because its caller went away.
func (r *Relay) Cancel(id string) bool {
	return r.pending.Cancel(id, model.ErrCodeCancelled, "request cancelled")
}

// Lookup reports whether id is pending (nil), already resolved or unknown
func (r *Relay) Lookup(id string) error {
	return r.pending.Lookup(id)
}

// Pending returns the outstanding escalations
func (r *Relay) Pending() []pending.Ticket {
	return r.pending.Pending()
}

// Close ends the session: every outstanding request is resolved with a
// "closed" error.
func (r *Relay) Close() {
	r.pending.Close()
}

func requestedAccounts(params json.RawMessage) []string {
	if len(params) == 0 {
		return nil
	}
	var p struct {
		Accounts []string `json:"accounts"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil
	}
	return p.Accounts
}

type basicValidator struct{}

func (basicValidator) ValidateConnected(p model.ConnectedParams) error {
	if p.PublicKey == "" {
		return errors.New("missing public key")
	}
	return nil
}

func (basicValidator) ValidateProvisioned(p model.ProvisionedParams, requested []string) error {
	if len(p.Accounts) == 0 {
		return errors.New("no accounts provisioned")
	}
	for _, name := range requested {
		if p.Accounts[name] == "" {
			return fmt.Errorf("account %q was not provisioned", name)
		}
	}
	return nil
}
