package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/AlexZinkM/wallet-relay/internal/approval"
	"github.com/AlexZinkM/wallet-relay/internal/common"
	"github.com/AlexZinkM/wallet-relay/internal/model"
	"github.com/AlexZinkM/wallet-relay/internal/pending"
	"github.com/AlexZinkM/wallet-relay/internal/relay"
)

const defaultQRSize = 256

// ApprovalTokenHeader carries the token from the popup URL fragment
const ApprovalTokenHeader = "X-Approval-Token"

// ApprovalRelay is the relay side the approval UI talks to
type ApprovalRelay interface {
	HandleApprovalResult(ctx context.Context, res model.ApprovalResult) error
	Dismiss(id string) bool
	Lookup(id string) error
}

// PromptBoard lists open approval prompts
type PromptBoard interface {
	List() []approval.Prompt
	Get(id string) (approval.Prompt, bool)
	Authorize(id, token string) error
	URL(p approval.Prompt) string
	QRCode(id string, size int) ([]byte, bool, error)
}

// ApprovalHandler serves the approval UI
type ApprovalHandler struct {
	relay ApprovalRelay
	board PromptBoard
}

func NewApprovalHandler(relay ApprovalRelay, board PromptBoard) *ApprovalHandler {
	return &ApprovalHandler{relay: relay, board: board}
}

func (h *ApprovalHandler) view(p approval.Prompt) model.ApprovalView {
	return model.ApprovalView{
		ID:        p.ID,
		Origin:    p.Origin,
		Network:   p.Network,
		Method:    p.Method,
		Request:   p.Request,
		CreatedAt: p.CreatedAt,
		URL:       h.board.URL(p),
	}
}

// List handles GET /approvals
// @Summary      List open approvals
// @Description  Returns escalated requests waiting for a decision, oldest first
// @Tags         approvals
// @Produce      json
// @Success      200  {array}  model.ApprovalView
// @Router       /approvals [get]
func (h *ApprovalHandler) List(w http.ResponseWriter, r *http.Request) {
	prompts := h.board.List()
	out := make([]model.ApprovalView, 0, len(prompts))
	for _, p := range prompts {
		out = append(out, h.view(p))
	}
	common.WriteJSON(w, http.StatusOK, out)
}

// Get handles GET /approvals/{id}
// @Summary      Get approval
// @Tags         approvals
// @Produce      json
// @Param        id   path      string  true  "Request id"
// @Success      200  {object}  model.ApprovalView
// @Failure      404  {object}  model.ErrorResponse
// @Router       /approvals/{id} [get]
func (h *ApprovalHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := h.board.Get(chi.URLParam(r, "id"))
	if !ok {
		common.WriteError(w, http.StatusNotFound, "not_found", errors.New("no open approval with this id"))
		return
	}
	common.WriteJSON(w, http.StatusOK, h.view(p))
}

// QRCode handles GET /approvals/{id}/qr
// @Summary      Approval link as QR code
// @Description  PNG QR code of the approval popup URL, for approving on another device
// @Tags         approvals
// @Produce      png
// @Param        id    path   string  true   "Request id"
// @Param        size  query  int     false  "Image size in pixels"
// @Success      200
// @Failure      404  {object}  model.ErrorResponse
// @Router       /approvals/{id}/qr [get]
func (h *ApprovalHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	size := defaultQRSize
	if s := r.URL.Query().Get("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 64 || n > 1024 {
			common.WriteError(w, http.StatusBadRequest, "bad_request", errors.New("size must be between 64 and 1024"))
			return
		}
		size = n
	}

	png, ok, err := h.board.QRCode(chi.URLParam(r, "id"), size)
	if !ok {
		common.WriteError(w, http.StatusNotFound, "not_found", errors.New("no open approval with this id"))
		return
	}
	if err != nil {
		common.WriteError(w, http.StatusInternalServerError, "internal", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// Result handles POST /approvals/result
// @Summary      Submit approval result
// @Description  Delivers the approval surface's answer to the waiting page. The token comes from the popup URL fragment.
// @Tags         approvals
// @Accept       json
// @Produce      json
// @Param        X-Approval-Token  header    string                true  "Approval token"
// @Param        request           body      model.ApprovalResult  true  "Approval result envelope"
// @Success      200               {object}  model.StatusResponse
// @Failure      400               {object}  model.ErrorResponse
// @Failure      403               {object}  model.ErrorResponse
// @Failure      404               {object}  model.ErrorResponse
// @Failure      409               {object}  model.ErrorResponse
// @Router       /approvals/result [post]
func (h *ApprovalHandler) Result(w http.ResponseWriter, r *http.Request) {
	var res model.ApprovalResult
	if err := common.ReadJSON(r, &res); err != nil {
		common.WriteError(w, http.StatusBadRequest, model.ErrCodeMalformed, err)
		return
	}
	if err := relay.CheckApprovalResult(res); err != nil {
		common.WriteError(w, http.StatusBadRequest, model.ErrCodeMalformed, err)
		return
	}
	if !h.authorize(w, r, res.Data.ID) {
		return
	}
	h.writeResult(w, h.relay.HandleApprovalResult(r.Context(), res))
}

// Dismiss handles POST /approvals/{id}/dismiss
// @Summary      Dismiss approval
// @Description  Closes the approval without a decision; the page receives a "rejected" error
// @Tags         approvals
// @Produce      json
// @Param        id                path      string  true  "Request id"
// @Param        X-Approval-Token  header    string  true  "Approval token"
// @Success      200               {object}  model.StatusResponse
// @Failure      403               {object}  model.ErrorResponse
// @Failure      404               {object}  model.ErrorResponse
// @Router       /approvals/{id}/dismiss [post]
func (h *ApprovalHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.authorize(w, r, id) {
		return
	}
	if !h.relay.Dismiss(id) {
		common.WriteError(w, http.StatusNotFound, "not_found", errors.New("no pending request with this id"))
		return
	}
	common.WriteJSON(w, http.StatusOK, model.StatusResponse{Success: true, Message: "approval dismissed"})
}

// authorize lets an answer for id through only with the token of its open
// prompt. Without an open prompt it reports why id cannot be answered.
func (h *ApprovalHandler) authorize(w http.ResponseWriter, r *http.Request, id string) bool {
	err := h.board.Authorize(id, r.Header.Get(ApprovalTokenHeader))
	switch {
	case err == nil:
		return true
	case errors.Is(err, approval.ErrPromptNotFound):
		if lerr := h.relay.Lookup(id); lerr != nil {
			h.writeResult(w, lerr)
		} else {
			// registered but not shown yet, nobody can hold its token
			common.WriteError(w, http.StatusNotFound, "not_found", err)
		}
	default:
		common.WriteError(w, http.StatusForbidden, "forbidden", err)
	}
	return false
}

func (h *ApprovalHandler) writeResult(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		common.WriteJSON(w, http.StatusOK, model.StatusResponse{Success: true})
	case errors.Is(err, relay.ErrMalformedRequest):
		common.WriteError(w, http.StatusBadRequest, model.ErrCodeMalformed, err)
	case errors.Is(err, pending.ErrAlreadyResolved):
		common.WriteError(w, http.StatusConflict, "already_resolved", err)
	case errors.Is(err, pending.ErrUnknownPendingID):
		common.WriteError(w, http.StatusNotFound, "unknown_id", err)
	default:
		common.WriteError(w, http.StatusInternalServerError, model.ErrCodeInternal, err)
	}
}
