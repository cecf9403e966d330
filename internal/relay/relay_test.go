package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexZinkM/wallet-relay/internal/approval"
	"github.com/AlexZinkM/wallet-relay/internal/approval/mock_approval"
	"github.com/AlexZinkM/wallet-relay/internal/consent"
	wlog "github.com/AlexZinkM/wallet-relay/internal/log"
	"github.com/AlexZinkM/wallet-relay/internal/model"
	"github.com/AlexZinkM/wallet-relay/internal/pending"
	"github.com/AlexZinkM/wallet-relay/internal/storage"
	"github.com/AlexZinkM/wallet-relay/solana"
)

const (
	dapp       = "https://dapp.example"
	validKey   = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	otherValid = "11111111111111111111111111111111"
)

type recorder struct {
	mu  sync.Mutex
	got []model.Response
}

func (r *recorder) respond(resp model.Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, resp)
}

func (r *recorder) all() []model.Response {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Response(nil), r.got...)
}

type harness struct {
	relay   *Relay
	consent *consent.Store
	table   *pending.Table
}

func newHarness(t *testing.T, launcher approval.Launcher, timeout time.Duration, opts ...Option) *harness {
	log := wlog.NewNopLogger()
	store := consent.New(log, storage.NewMemBackend())
	t.Cleanup(store.Close)

	table, err := pending.New(log, timeout, 256)
	require.NoError(t, err)

	return &harness{
		relay:   New(log, store, table, launcher, opts...),
		consent: store,
		table:   table,
	}
}

func newBoardHarness(t *testing.T, opts ...Option) (*harness, *approval.Board) {
	board := approval.NewBoard(wlog.NewNopLogger(), "http://127.0.0.1:8080/index.html")
	return newHarness(t, board, 0, opts...), board
}

func pageRequest(id, method, network string) model.Request {
	return model.Request{
		Channel: model.PageChannel,
		Data:    model.RequestData{ID: id, Method: method, Network: network},
	}
}

func approvalResult(t *testing.T, method, id string, params any) model.ApprovalResult {
	resp, err := model.NewResponse(method, id, params)
	require.NoError(t, err)
	return model.ApprovalResult{Channel: model.ApprovalResultChannel, Data: resp}
}

func TestConnectScenario(t *testing.T) {
	ctx := context.Background()
	h, board := newBoardHarness(t)
	rec := &recorder{}

	// no grant yet: escalate, nothing delivered
	require.NoError(t, h.relay.HandleInbound(ctx, pageRequest("r1", "connect", "mainnet"), dapp, rec.respond))
	assert.Empty(t, rec.all())
	prompt, ok := board.Get("r1")
	require.True(t, ok)
	assert.Equal(t, dapp, prompt.Origin)
	assert.Equal(t, "mainnet", prompt.Network)

	// user approves
	res := approvalResult(t, model.MethodNameConnected, "r1", model.ConnectedParams{PublicKey: "Pub123", AutoApprove: true})
	require.NoError(t, h.relay.HandleApprovalResult(ctx, res))

	got := rec.all()
	require.Len(t, got, 1)
	assert.Equal(t, "connected", got[0].Method)
	assert.Equal(t, "r1", got[0].ID)
	assert.JSONEq(t, `{"publicKey":"Pub123","autoApprove":true}`, string(got[0].Params))
	_, ok = board.Get("r1")
	assert.False(t, ok, "prompt withdrawn after result")

	w, ok, err := h.consent.Get(ctx, dapp)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Pub123", w.PublicKey)
	assert.True(t, w.AutoApprove)

	// second connect resolves synchronously, no escalation
	rec2 := &recorder{}
	require.NoError(t, h.relay.HandleInbound(ctx, pageRequest("r2", "connect", "mainnet"), dapp, rec2.respond))
	got = rec2.all()
	require.Len(t, got, 1)
	assert.Equal(t, "r2", got[0].ID)
	assert.JSONEq(t, `{"publicKey":"Pub123","autoApprove":true}`, string(got[0].Params))
	assert.Empty(t, board.List())
	assert.Equal(t, 0, h.table.Len())
}

func TestConnectWithoutGrantEscalates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	launcher := mock_approval.NewMockLauncher(ctrl)
	h := newHarness(t, launcher, 0)

	launcher.EXPECT().Launch(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, p approval.Prompt) error {
		assert.Equal(t, "r1", p.ID)
		assert.Equal(t, dapp, p.Origin)
		assert.Equal(t, "devnet", p.Network)
		assert.Equal(t, "connect", p.Method)
		assert.JSONEq(t, `{"id":"r1","method":"connect","network":"devnet"}`, string(p.Request))
		return nil
	}).Times(1)

	rec := &recorder{}
	require.NoError(t, h.relay.HandleInbound(context.Background(), pageRequest("r1", "connect", "devnet"), dapp, rec.respond))
	assert.Empty(t, rec.all())
	assert.Equal(t, 1, h.table.Len())
}

func TestConnectWithGrantNeverLaunches(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	launcher := mock_approval.NewMockLauncher(ctrl)
	h := newHarness(t, launcher, 0)
	require.NoError(t, h.consent.Put(context.Background(), model.ConnectedWallet{Origin: dapp, PublicKey: "K1"}))

	rec := &recorder{}
	require.NoError(t, h.relay.HandleInbound(context.Background(), pageRequest("r1", "connect", ""), dapp, rec.respond))
	require.Len(t, rec.all(), 1)
	assert.JSONEq(t, `{"publicKey":"K1","autoApprove":false}`, string(rec.all()[0].Params))
}

func TestDisconnectThenConnectEscalates(t *testing.T) {
	ctx := context.Background()
	h, board := newBoardHarness(t)
	require.NoError(t, h.consent.Put(ctx, model.ConnectedWallet{Origin: dapp, PublicKey: "K1", AutoApprove: true}))

	rec := &recorder{}
	require.NoError(t, h.relay.HandleInbound(ctx, pageRequest("d1", "disconnect", ""), dapp, rec.respond))
	require.Len(t, rec.all(), 1)
	assert.Equal(t, model.Response{Method: "disconnected", ID: "d1"}, rec.all()[0])

	// disconnect is idempotent
	require.NoError(t, h.relay.HandleInbound(ctx, pageRequest("d2", "disconnect", ""), dapp, rec.respond))
	require.Len(t, rec.all(), 2)
	assert.Equal(t, "disconnected", rec.all()[1].Method)

	require.NoError(t, h.relay.HandleInbound(ctx, pageRequest("c1", "connect", ""), dapp, rec.respond))
	assert.Len(t, rec.all(), 2)
	_, ok := board.Get("c1")
	assert.True(t, ok)
}

func TestDisconnectLeavesOtherOrigins(t *testing.T) {
	ctx := context.Background()
	h, _ := newBoardHarness(t)
	require.NoError(t, h.consent.Put(ctx, model.ConnectedWallet{Origin: dapp, PublicKey: "K1"}))
	require.NoError(t, h.consent.Put(ctx, model.ConnectedWallet{Origin: "https://other.example", PublicKey: "K2"}))

	rec := &recorder{}
	require.NoError(t, h.relay.HandleInbound(ctx, pageRequest("d1", "disconnect", ""), dapp, rec.respond))

	_, ok, err := h.consent.Get(ctx, "https://other.example")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDuplicateApprovalResultIsDropped(t *testing.T) {
	ctx := context.Background()
	h, _ := newBoardHarness(t)
	rec := &recorder{}

	require.NoError(t, h.relay.HandleInbound(ctx, pageRequest("s1", "signTransaction", "mainnet"), dapp, rec.respond))

	res := approvalResult(t, "signed", "s1", map[string]string{"signature": "abc"})
	require.NoError(t, h.relay.HandleApprovalResult(ctx, res))
	err := h.relay.HandleApprovalResult(ctx, res)
	assert.ErrorIs(t, err, pending.ErrAlreadyResolved)

	got := rec.all()
	require.Len(t, got, 1)
	assert.Equal(t, "signed", got[0].Method)
	assert.JSONEq(t, `{"signature":"abc"}`, string(got[0].Params))
}

func TestUnknownApprovalResult(t *testing.T) {
	h, _ := newBoardHarness(t)
	err := h.relay.HandleApprovalResult(context.Background(), approvalResult(t, "signed", "ghost", nil))
	assert.ErrorIs(t, err, pending.ErrUnknownPendingID)

	err = h.relay.HandleApprovalResult(context.Background(), model.ApprovalResult{Channel: "other", Data: model.Response{ID: "x"}})
	assert.ErrorIs(t, err, ErrMalformedRequest)
}

func TestMalformedRequestsLeaveNoState(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// any Launch call fails the test
	launcher := mock_approval.NewMockLauncher(ctrl)
	h := newHarness(t, launcher, 0)
	rec := &recorder{}
	ctx := context.Background()

	cases := []struct {
		name   string
		req    model.Request
		origin string
	}{
		{"missing id", pageRequest("", "signTransaction", ""), dapp},
		{"missing method", pageRequest("r1", "", ""), dapp},
		{"missing origin", pageRequest("r1", "signTransaction", ""), ""},
		{"unnormalized origin", pageRequest("r1", "signTransaction", ""), "HTTPS://Dapp.Example/x"},
		{"wrong channel", model.Request{Channel: "elsewhere", Data: model.RequestData{ID: "r1", Method: "connect"}}, dapp},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := h.relay.HandleInbound(ctx, c.req, c.origin, rec.respond)
			assert.ErrorIs(t, err, ErrMalformedRequest)
		})
	}

	assert.ErrorIs(t, h.relay.HandleInbound(ctx, pageRequest("r1", "connect", ""), dapp, nil), ErrMalformedRequest)
	assert.Equal(t, 0, h.table.Len())
	assert.Empty(t, rec.all())
}

func TestLaunchFailureUnregisters(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	launcher := mock_approval.NewMockLauncher(ctrl)
	launcher.EXPECT().Launch(gomock.Any(), gomock.Any()).Return(errors.New("no window"))
	h := newHarness(t, launcher, 0)

	rec := &recorder{}
	err := h.relay.HandleInbound(context.Background(), pageRequest("r1", "signTransaction", ""), dapp, rec.respond)
	assert.Error(t, err)
	assert.Equal(t, 0, h.table.Len())
	assert.Empty(t, rec.all())
}

func TestDuplicatePendingID(t *testing.T) {
	ctx := context.Background()
	h, _ := newBoardHarness(t)
	rec := &recorder{}

	require.NoError(t, h.relay.HandleInbound(ctx, pageRequest("r1", "signTransaction", ""), dapp, rec.respond))
	err := h.relay.HandleInbound(ctx, pageRequest("r1", "signMessage", ""), dapp, rec.respond)
	assert.ErrorIs(t, err, ErrDuplicateRequest)

	require.NoError(t, h.consent.Put(ctx, model.ConnectedWallet{Origin: dapp, PublicKey: "K"}))
	err = h.relay.HandleInbound(ctx, pageRequest("r1", "connect", ""), dapp, rec.respond)
	assert.ErrorIs(t, err, ErrDuplicateRequest)
	assert.Empty(t, rec.all())
}

func TestSolanaValidatorRejectsBadKey(t *testing.T) {
	ctx := context.Background()
	h, _ := newBoardHarness(t, WithValidator(solana.Validator{}))
	rec := &recorder{}

	require.NoError(t, h.relay.HandleInbound(ctx, pageRequest("r1", "connect", "mainnet"), dapp, rec.respond))
	res := approvalResult(t, model.MethodNameConnected, "r1", model.ConnectedParams{PublicKey: "Pub123"})
	require.NoError(t, h.relay.HandleApprovalResult(ctx, res))

	got := rec.all()
	require.Len(t, got, 1)
	require.True(t, got[0].IsError())
	var p model.ErrorParams
	require.NoError(t, got[0].DecodeParams(&p))
	assert.Equal(t, model.ErrCodeInvalidResult, p.Code)

	_, ok, err := h.consent.Get(ctx, dapp)
	require.NoError(t, err)
	assert.False(t, ok, "no grant recorded for an invalid key")
}

func TestSolanaValidatorAcceptsRealKey(t *testing.T) {
	ctx := context.Background()
	h, _ := newBoardHarness(t, WithValidator(solana.Validator{}))
	rec := &recorder{}

	require.NoError(t, h.relay.HandleInbound(ctx, pageRequest("r1", "connect", "mainnet"), dapp, rec.respond))
	res := approvalResult(t, model.MethodNameConnected, "r1", model.ConnectedParams{PublicKey: validKey})
	require.NoError(t, h.relay.HandleApprovalResult(ctx, res))

	require.Len(t, rec.all(), 1)
	assert.Equal(t, "connected", rec.all()[0].Method)
}

func TestRejectedConnectStoresNothing(t *testing.T) {
	ctx := context.Background()
	h, _ := newBoardHarness(t)
	rec := &recorder{}

	require.NoError(t, h.relay.HandleInbound(ctx, pageRequest("r1", "connect", ""), dapp, rec.respond))
	res := model.ApprovalResult{Channel: model.ApprovalResultChannel, Data: model.NewErrorResponse("r1", model.ErrCodeRejected, "user said no")}
	require.NoError(t, h.relay.HandleApprovalResult(ctx, res))

	require.Len(t, rec.all(), 1)
	assert.True(t, rec.all()[0].IsError())
	_, ok, err := h.consent.Get(ctx, dapp)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConnectProvisionAlwaysEscalates(t *testing.T) {
	ctx := context.Background()
	h, board := newBoardHarness(t, WithValidator(solana.Validator{}))
	require.NoError(t, h.consent.Put(ctx, model.ConnectedWallet{Origin: dapp, PublicKey: validKey, AutoApprove: true}))

	rec := &recorder{}
	req := pageRequest("p1", "connectProvision", "mainnet")
	req.Data.Params = json.RawMessage(`{"accounts":["payer","data_account_1"]}`)
	require.NoError(t, h.relay.HandleInbound(ctx, req, dapp, rec.respond))
	assert.Empty(t, rec.all())
	_, ok := board.Get("p1")
	require.True(t, ok)

	// a result missing a requested account is rejected
	bad := approvalResult(t, model.MethodNameConnectProvisioned, "p1", model.ProvisionedParams{
		Accounts: map[string]string{"payer": validKey},
	})
	require.NoError(t, h.relay.HandleApprovalResult(ctx, bad))
	require.Len(t, rec.all(), 1)
	assert.True(t, rec.all()[0].IsError())

	req.Data.ID = "p2"
	require.NoError(t, h.relay.HandleInbound(ctx, req, dapp, rec.respond))
	good := approvalResult(t, model.MethodNameConnectProvisioned, "p2", model.ProvisionedParams{
		Accounts: map[string]string{"payer": validKey, "data_account_1": otherValid},
	})
	require.NoError(t, h.relay.HandleApprovalResult(ctx, good))
	require.Len(t, rec.all(), 2)
	assert.Equal(t, model.MethodNameConnectProvisioned, rec.all()[1].Method)
	assert.Equal(t, "p2", rec.all()[1].ID)
}

func TestDismissResolvesAsRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	launcher := mock_approval.NewMockLauncher(ctrl)
	launcher.EXPECT().Launch(gomock.Any(), gomock.Any()).Return(nil)
	launcher.EXPECT().Withdraw("r1").Times(1)
	h := newHarness(t, launcher, 0)

	rec := &recorder{}
	require.NoError(t, h.relay.HandleInbound(context.Background(), pageRequest("r1", "signTransaction", ""), dapp, rec.respond))

	assert.True(t, h.relay.Dismiss("r1"))
	assert.False(t, h.relay.Dismiss("r1"))

	require.Len(t, rec.all(), 1)
	var p model.ErrorParams
	require.NoError(t, rec.all()[0].DecodeParams(&p))
	assert.Equal(t, model.ErrCodeRejected, p.Code)
}

func TestTimeoutWithdrawsPrompt(t *testing.T) {
	board := approval.NewBoard(wlog.NewNopLogger(), "http://localhost/index.html")
	h := newHarness(t, board, 20*time.Millisecond)

	done := make(chan model.Response, 1)
	require.NoError(t, h.relay.HandleInbound(context.Background(), pageRequest("r1", "signTransaction", ""), dapp, func(r model.Response) {
		done <- r
	}))

	select {
	case r := <-done:
		assert.True(t, r.IsError())
	case <-time.After(2 * time.Second):
		t.Fatal("no timeout response")
	}
	assert.Empty(t, board.List())

	err := h.relay.HandleApprovalResult(context.Background(), approvalResult(t, "signed", "r1", nil))
	assert.ErrorIs(t, err, pending.ErrAlreadyResolved)
}

func TestCloseResolvesOutstanding(t *testing.T) {
	h, board := newBoardHarness(t)
	rec := &recorder{}
	for i := 0; i < 3; i++ {
		require.NoError(t, h.relay.HandleInbound(context.Background(), pageRequest(fmt.Sprintf("r%d", i), "signTransaction", ""), dapp, rec.respond))
	}
	assert.Len(t, h.relay.Pending(), 3)

	h.relay.Close()
	assert.Len(t, rec.all(), 3)
	for _, r := range rec.all() {
		assert.True(t, r.IsError())
	}
	assert.Empty(t, board.List())
}

func TestExactlyOnceAcrossInterleavedResults(t *testing.T) {
	ctx := context.Background()
	h, _ := newBoardHarness(t)

	const n = 100
	var mu sync.Mutex
	counts := make(map[string]int)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("r%d", i)
		require.NoError(t, h.relay.HandleInbound(ctx, pageRequest(id, "signTransaction", ""), dapp, func(r model.Response) {
			mu.Lock()
			counts[r.ID]++
			mu.Unlock()
		}))
	}

	var wg sync.WaitGroup
	for i := n - 1; i >= 0; i-- {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = h.relay.HandleApprovalResult(ctx, approvalResult(t, "signed", fmt.Sprintf("r%d", i), nil))
		}(i)
	}
	wg.Wait()

	require.Len(t, counts, n)
	for id, c := range counts {
		assert.Equal(t, 1, c, id)
	}
}

// racingBoard resolves a request before its prompt lands on the board
type racingBoard struct {
	*approval.Board
	resolve func(id string)
}

func (b *racingBoard) Launch(ctx context.Context, p approval.Prompt) error {
	b.resolve(p.ID)
	return b.Board.Launch(ctx, p)
}

func TestResolvedWhileLaunchingLeavesNoPrompt(t *testing.T) {
	board := &racingBoard{Board: approval.NewBoard(wlog.NewNopLogger(), "http://127.0.0.1:8080/index.html")}
	h := newHarness(t, board, 0)
	board.resolve = func(id string) { h.relay.Cancel(id) }

	rec := &recorder{}
	require.NoError(t, h.relay.HandleInbound(context.Background(), pageRequest("r1", "signTransaction", ""), dapp, rec.respond))

	require.Len(t, rec.all(), 1)
	var p model.ErrorParams
	require.NoError(t, rec.all()[0].DecodeParams(&p))
	assert.Equal(t, model.ErrCodeCancelled, p.Code)
	assert.Empty(t, board.List(), "no prompt for a request that already has its answer")
	assert.Equal(t, 0, h.table.Len())
}

func TestGrantDoesNotDependOnApprovalContext(t *testing.T) {
	h, _ := newBoardHarness(t)
	rec := &recorder{}
	require.NoError(t, h.relay.HandleInbound(context.Background(), pageRequest("r1", "connect", ""), dapp, rec.respond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := approvalResult(t, model.MethodNameConnected, "r1", model.ConnectedParams{PublicKey: "Pub123"})
	require.NoError(t, h.relay.HandleApprovalResult(ctx, res))

	require.Len(t, rec.all(), 1)
	assert.Equal(t, model.MethodNameConnected, rec.all()[0].Method)
	w, ok, err := h.consent.Get(context.Background(), dapp)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Pub123", w.PublicKey)
}
