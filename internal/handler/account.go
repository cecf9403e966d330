package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/AlexZinkM/wallet-relay/internal/client"
	"github.com/AlexZinkM/wallet-relay/internal/common"
	"github.com/AlexZinkM/wallet-relay/internal/crypto"
	wlog "github.com/AlexZinkM/wallet-relay/internal/log"
	"github.com/AlexZinkM/wallet-relay/internal/model"
	"github.com/AlexZinkM/wallet-relay/internal/session"
	"github.com/AlexZinkM/wallet-relay/internal/vault"
)

// AccountVault is the vault as the account endpoints use it
type AccountVault interface {
	FetchOrInitialize(ctx context.Context, identity string, tokens vault.TokenProvider, key []byte) (model.AccountTree, error)
	Persist(ctx context.Context, identity string, tokens vault.TokenProvider, key []byte, tree model.AccountTree) error
}

// AccountHandler exposes the unlocked account tree. Secrets never leave
// through it; responses carry account indexes and names only.
type AccountHandler struct {
	log     wlog.Logger
	vault   AccountVault
	session *session.Session
}

func NewAccountHandler(log wlog.Logger, v AccountVault, s *session.Session) *AccountHandler {
	return &AccountHandler{
		log:     wlog.CreateModuleLogger("account", log),
		vault:   v,
		session: s,
	}
}

// Get handles GET /account
// @Summary      Get accounts
// @Description  Loads the account tree from the profile store, creating a local one for new users
// @Tags         account
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  model.AccountResponse
// @Failure      401  {object}  model.ErrorResponse
// @Failure      423  {object}  model.ErrorResponse
// @Failure      502  {object}  model.ErrorResponse
// @Router       /account [get]
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	token, ok := common.BearerToken(r)
	if !ok {
		common.WriteError(w, http.StatusUnauthorized, "unauthorized", errors.New("bearer access token required"))
		return
	}
	identity, key, err := h.unlocked()
	if err != nil {
		h.writeError(w, err)
		return
	}
	defer clear(key)

	tree, err := h.vault.FetchOrInitialize(r.Context(), identity, vault.StaticToken(token), key)
	if err != nil {
		h.writeError(w, err)
		return
	}
	defer tree.Wipe()
	if err := h.session.SetTree(tree); err != nil {
		h.writeError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, model.AccountResponse{Identity: identity, Accounts: tree.Summaries()})
}

// Patch handles PATCH /account
// @Summary      Update accounts
// @Description  Merges an index-keyed patch into the account tree and persists it
// @Tags         account
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      model.TreePatch  true  "Patch keyed by account index"
// @Success      200      {object}  model.AccountResponse
// @Failure      400      {object}  model.ErrorResponse
// @Failure      423      {object}  model.ErrorResponse
// @Router       /account [patch]
func (h *AccountHandler) Patch(w http.ResponseWriter, r *http.Request) {
	var patch model.TreePatch
	if err := common.ReadJSON(r, &patch); err != nil {
		common.WriteError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	h.update(w, r, func(tree model.AccountTree) model.TreePatch { return patch })
}

// AddName handles POST /account/{index}/names
// @Summary      Add sub-account name
// @Tags         account
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        index    path      int                   true  "Account index"
// @Param        request  body      model.AddNameRequest  true  "Name"
// @Success      200      {object}  model.AccountResponse
// @Failure      400      {object}  model.ErrorResponse
// @Router       /account/{index}/names [post]
func (h *AccountHandler) AddName(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		common.WriteError(w, http.StatusBadRequest, "bad_request", errors.New("index must be an integer"))
		return
	}
	var req model.AddNameRequest
	if err := common.ReadJSON(r, &req); err != nil {
		common.WriteError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if req.Name == "" {
		common.WriteError(w, http.StatusBadRequest, "bad_request", errors.New("name is required"))
		return
	}
	h.update(w, r, func(tree model.AccountTree) model.TreePatch {
		return model.AddNamePatch(tree, index, req.Name)
	})
}

func (h *AccountHandler) update(w http.ResponseWriter, r *http.Request, makePatch func(model.AccountTree) model.TreePatch) {
	token, ok := common.BearerToken(r)
	if !ok {
		common.WriteError(w, http.StatusUnauthorized, "unauthorized", errors.New("bearer access token required"))
		return
	}
	identity, key, err := h.unlocked()
	if err != nil {
		h.writeError(w, err)
		return
	}
	defer clear(key)
	tokens := vault.StaticToken(token)

	current, err := h.session.Tree()
	if err != nil {
		h.writeError(w, err)
		return
	}
	if current == nil {
		if current, err = h.vault.FetchOrInitialize(r.Context(), identity, tokens, key); err != nil {
			h.writeError(w, err)
			return
		}
	}
	defer current.Wipe()

	next, err := vault.Merge(current, makePatch(current))
	if err != nil {
		h.writeError(w, err)
		return
	}
	defer next.Wipe()

	if err := h.vault.Persist(r.Context(), identity, tokens, key, next); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.session.SetTree(next); err != nil {
		h.writeError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, model.AccountResponse{Identity: identity, Accounts: next.Summaries()})
}

func (h *AccountHandler) unlocked() (string, []byte, error) {
	identity, err := h.session.Identity()
	if err != nil {
		return "", nil, err
	}
	key, err := h.session.Key()
	if err != nil {
		return "", nil, err
	}
	return identity, key, nil
}

func (h *AccountHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrLocked):
		common.WriteError(w, http.StatusLocked, "locked", err)
	case errors.Is(err, vault.ErrInvalidPatch):
		common.WriteError(w, http.StatusBadRequest, "invalid_patch", err)
	case errors.Is(err, crypto.ErrDecryption), errors.Is(err, vault.ErrCorruptVault):
		h.log.Warnf("vault could not be opened: %v", err)
		common.WriteError(w, http.StatusForbidden, "decryption_failed", err)
	case errors.Is(err, client.ErrRemoteStore):
		common.WriteError(w, http.StatusBadGateway, "remote_store", err)
	default:
		h.log.Errorf("account request failed: %v", err)
		common.WriteError(w, http.StatusInternalServerError, model.ErrCodeInternal, err)
	}
}
