package httptransport

import (
	"net/http"
	"strconv"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"domainhub/internal/inventory/models"
	"domainhub/internal/verification"
	dErrors "domainhub/pkg/domain-errors"
	"domainhub/pkg/platform/httputil"
	"domainhub/pkg/requestcontext"
)

func (h *Handler) handleListDomains(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	domains, err := h.domains.ListByUser(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	out := make([]map[string]any, 0, len(domains))
	for _, d := range domains {
		row := map[string]any{
			"name":                d.Name,
			"verification_method": d.Method,
			"verification_level":  d.Level,
			"is_verified":         d.IsVerified,
			"verified_at":         d.VerifiedAt,
			"auto_synced":         d.AutoSynced,
			"registrar_name":      d.RegistrarName,
			"expiry_date":         d.ExpiryDate,
			"auto_renew":          d.AutoRenew,
			"transfer_locked":     d.TransferLocked,
		}
		if d.RegistrarAccountID != nil {
			row["registrar_account_id"] = d.RegistrarAccountID.String()
		}
		out = append(out, row)
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"domains": out})
}

type verifyDomainRequest struct {
	Token               string   `json:"token,omitempty"`
	ExpectedNameservers []string `json:"expected_nameservers,omitempty"`
}

func (h *Handler) handleVerifyDomain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name, err := domainParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req verifyDomainRequest
	if r.ContentLength > 0 {
		if req, err = httputil.Decode[verifyDomainRequest](r); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	result, err := h.verifier.VerifyDomain(ctx, name, requestcontext.UserID(ctx), verification.VerifyOptions{
		Token:               req.Token,
		ExpectedNameservers: req.ExpectedNameservers,
	})
	if err != nil {
		h.writeErr(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleInstructions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name, err := domainParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	instructions, err := h.verifier.Instructions(ctx, name, requestcontext.UserID(ctx))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, instructions)
}

func (h *Handler) handleVerificationHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name, err := domainParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	events, err := h.recorder.VerificationHistory(ctx, requestcontext.UserID(ctx), name)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"history": events})
}

// handleCanPerformAction exposes the trust gate; level comes from the
// required_level query parameter.
func (h *Handler) handleCanPerformAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name, err := domainParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	level, err := strconv.Atoi(r.URL.Query().Get("required_level"))
	if err != nil || level < int(models.LevelManual) || level > int(models.LevelRegistrarAPI) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "required_level must be 0-3"))
		return
	}
	check, err := h.verifier.CanPerformAction(ctx, name, requestcontext.UserID(ctx), models.VerificationLevel(level))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, check)
}

func domainParam(r *http.Request) (string, error) {
	name := models.NormalizeDomainName(chi.URLParam(r, "name"))
	if name == "" || !govalidator.IsDNSName(name) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid domain name")
	}
	return name, nil
}
