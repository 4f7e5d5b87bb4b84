package httptransport

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"domainhub/internal/inventory/models"
	id "domainhub/pkg/domain"
	dErrors "domainhub/pkg/domain-errors"
	"domainhub/pkg/platform/httputil"
	"domainhub/pkg/requestcontext"
)

type connectAccountRequest struct {
	Registrar string `json:"registrar"`
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
	SyncMode  string `json:"sync_mode"`
}

type connectAccountResponse struct {
	AccountID        string `json:"account_id"`
	ConnectionStatus string `json:"connection_status"`
	Message          string `json:"message,omitempty"`
}

// handleConnectAccount stores credentials and immediately tests them, so the
// caller learns in one round trip whether the pair works.
func (h *Handler) handleConnectAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)

	req, err := httputil.Decode[connectAccountRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !h.factory.IsSupported(req.Registrar) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnsupported, "unsupported registrar"))
		return
	}
	mode := models.SyncModeFull
	if req.SyncMode != "" {
		if mode, err = models.ParseSyncMode(req.SyncMode); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	accountID, err := h.vault.Store(ctx, userID, req.Registrar, req.APIKey, req.APISecret, mode)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	result, err := h.engine.TestConnection(ctx, accountID)
	if err != nil {
		h.writeErr(w, err)
		return
	}

	status := models.ConnectionActive
	if !result.Success {
		status = models.ConnectionFailed
	}
	httputil.WriteJSON(w, http.StatusCreated, connectAccountResponse{
		AccountID:        accountID.String(),
		ConnectionStatus: string(status),
		Message:          result.Message,
	})
}

func (h *Handler) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accounts, err := h.accounts.ListByUser(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	out := make([]map[string]any, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, map[string]any{
			"account_id":        a.ID.String(),
			"registrar":         a.Registrar,
			"connection_status": a.ConnectionStatus,
			"sync_mode":         a.SyncMode,
			"last_sync_at":      a.LastSyncAt,
			"last_sync_status":  a.LastSyncStatus,
			"domain_count":      a.DomainCount,
			"verified_count":    a.VerifiedCount,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"accounts": out})
}

func (h *Handler) handleDisconnectAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, err := accountIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.engine.DisconnectAccount(ctx, requestcontext.UserID(ctx), accountID); err != nil {
		h.writeErr(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}

func (h *Handler) handleSyncAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, err := h.ownedAccount(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	result, err := h.engine.SyncRegistrarAccount(ctx, accountID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleVerifyAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, err := h.ownedAccount(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	stats, err := h.engine.VerifyExistingDomains(ctx, accountID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, err := h.ownedAccount(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	result, err := h.engine.TestConnection(ctx, accountID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleSyncHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, err := h.ownedAccount(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := h.recorder.SyncHistory(ctx, accountID, limit)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"history": records})
}

func (h *Handler) handleSyncUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	results, err := h.engine.SyncUserDomains(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) handleVerifyUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	results, err := h.engine.VerifyUserDomains(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"results": results})
}

// ownedAccount parses the account path parameter and enforces that the acting
// user owns it.
func (h *Handler) ownedAccount(r *http.Request) (id.AccountID, error) {
	accountID, err := accountIDParam(r)
	if err != nil {
		return id.AccountID{}, err
	}
	account, err := h.accounts.FindByID(r.Context(), accountID)
	if err != nil {
		return id.AccountID{}, err
	}
	if account.UserID != requestcontext.UserID(r.Context()) {
		return id.AccountID{}, dErrors.New(dErrors.CodeForbidden, "account belongs to a different user")
	}
	return accountID, nil
}

func accountIDParam(r *http.Request) (id.AccountID, error) {
	return id.ParseAccountID(chi.URLParam(r, "accountID"))
}
