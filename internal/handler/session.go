package handler

import (
	"errors"
	"net/http"

	"github.com/AlexZinkM/wallet-relay/internal/common"
	"github.com/AlexZinkM/wallet-relay/internal/crypto"
	"github.com/AlexZinkM/wallet-relay/internal/model"
	"github.com/AlexZinkM/wallet-relay/internal/session"
)

// SessionHandler unlocks and locks the in-memory session
type SessionHandler struct {
	session *session.Session
	kdf     crypto.KDF
}

func NewSessionHandler(s *session.Session, kdf crypto.KDF) *SessionHandler {
	return &SessionHandler{session: s, kdf: kdf}
}

// Unlock handles POST /session/unlock
// @Summary      Unlock session
// @Description  Derives the vault key from the passphrase and keeps it in memory until lock
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        request  body      model.UnlockRequest  true  "Identity and passphrase"
// @Success      200      {object}  model.StatusResponse
// @Failure      400      {object}  model.ErrorResponse
// @Router       /session/unlock [post]
func (h *SessionHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	var req model.UnlockRequest
	if err := common.ReadJSON(r, &req); err != nil {
		common.WriteError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if req.Identity == "" || req.Passphrase == "" {
		common.WriteError(w, http.StatusBadRequest, "bad_request", errors.New("identity and passphrase are required"))
		return
	}

	password := []byte(req.Passphrase)
	defer clear(password)

	key, err := h.kdf.DeriveKey(password, []byte(req.Identity))
	if err != nil {
		common.WriteError(w, http.StatusInternalServerError, model.ErrCodeInternal, err)
		return
	}
	defer clear(key)

	if err := h.session.Unlock(req.Identity, key); err != nil {
		common.WriteError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	common.WriteJSON(w, http.StatusOK, model.StatusResponse{Success: true, Message: "session unlocked"})
}

// Lock handles POST /session/lock
// @Summary      Lock session
// @Description  Wipes the vault key, mnemonic and account tree from memory
// @Tags         session
// @Produce      json
// @Success      200  {object}  model.StatusResponse
// @Router       /session/lock [post]
func (h *SessionHandler) Lock(w http.ResponseWriter, r *http.Request) {
	h.session.Lock()
	common.WriteJSON(w, http.StatusOK, model.StatusResponse{Success: true, Message: "session locked"})
}

// GetMnemonic handles GET /session/mnemonic
// @Summary      Get mnemonic
// @Tags         session
// @Produce      json
// @Success      200  {object}  model.MnemonicBody
// @Failure      423  {object}  model.ErrorResponse
// @Router       /session/mnemonic [get]
func (h *SessionHandler) GetMnemonic(w http.ResponseWriter, r *http.Request) {
	m, err := h.session.Mnemonic()
	if err != nil {
		writeSessionError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, model.MnemonicBody{Mnemonic: m})
}

// PutMnemonic handles PUT /session/mnemonic
// @Summary      Set mnemonic
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        request  body      model.MnemonicBody  true  "Mnemonic"
// @Success      200      {object}  model.StatusResponse
// @Failure      423      {object}  model.ErrorResponse
// @Router       /session/mnemonic [put]
func (h *SessionHandler) PutMnemonic(w http.ResponseWriter, r *http.Request) {
	var body model.MnemonicBody
	if err := common.ReadJSON(r, &body); err != nil {
		common.WriteError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := h.session.SetMnemonic(body.Mnemonic); err != nil {
		writeSessionError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, model.StatusResponse{Success: true})
}

func writeSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrLocked) {
		common.WriteError(w, http.StatusLocked, "locked", err)
		return
	}
	common.WriteError(w, http.StatusInternalServerError, model.ErrCodeInternal, err)
}
