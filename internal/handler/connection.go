package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/AlexZinkM/wallet-relay/internal/common"
	"github.com/AlexZinkM/wallet-relay/internal/model"
)

// ConnectionStore is the consent store as the connections page sees it
type ConnectionStore interface {
	List(ctx context.Context) ([]model.ConnectedWallet, error)
	Remove(ctx context.Context, origin string) (bool, error)
}

type connectionView struct {
	Origin      string `json:"origin"`
	PublicKey   string `json:"publicKey"`
	AutoApprove bool   `json:"autoApprove"`
}

type ConnectionHandler struct {
	store ConnectionStore
}

func NewConnectionHandler(store ConnectionStore) *ConnectionHandler {
	return &ConnectionHandler{store: store}
}

// List handles GET /connections
// @Summary      List connected sites
// @Tags         connections
// @Produce      json
// @Success      200  {array}  handler.connectionView
// @Router       /connections [get]
func (h *ConnectionHandler) List(w http.ResponseWriter, r *http.Request) {
	wallets, err := h.store.List(r.Context())
	if err != nil {
		common.WriteError(w, http.StatusInternalServerError, model.ErrCodeInternal, err)
		return
	}
	out := make([]connectionView, 0, len(wallets))
	for _, cw := range wallets {
		out = append(out, connectionView{Origin: cw.Origin, PublicKey: cw.PublicKey, AutoApprove: cw.AutoApprove})
	}
	common.WriteJSON(w, http.StatusOK, out)
}

// Delete handles DELETE /connections?origin=
// @Summary      Disconnect a site
// @Description  Removes the site's grant; its next connect needs approval again
// @Tags         connections
// @Produce      json
// @Param        origin  query     string  true  "Site origin"
// @Success      200     {object}  model.StatusResponse
// @Failure      400     {object}  model.ErrorResponse
// @Router       /connections [delete]
func (h *ConnectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	origin := common.NormalizeOrigin(r.URL.Query().Get("origin"))
	if origin == "" {
		common.WriteError(w, http.StatusBadRequest, "bad_request", errors.New("origin query parameter must be an absolute origin"))
		return
	}
	removed, err := h.store.Remove(r.Context(), origin)
	if err != nil {
		common.WriteError(w, http.StatusInternalServerError, model.ErrCodeInternal, err)
		return
	}
	msg := "site disconnected"
	if !removed {
		msg = "site was not connected"
	}
	common.WriteJSON(w, http.StatusOK, model.StatusResponse{Success: true, Message: msg})
}
