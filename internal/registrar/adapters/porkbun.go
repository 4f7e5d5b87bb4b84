package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"domainhub/pkg/platform/sentinel"
)

const porkbunDefaultBaseURL = "https://api.porkbun.com/api/json/v3"

// Porkbun talks to the Porkbun JSON API. Every call is a POST carrying the
// credential pair in the body; the listing endpoint returns the full set in one
// response, so there is no pagination to get wrong.
type Porkbun struct {
	creds   Credentials
	client  *http.Client
	baseURL string
}

// PorkbunOption configures a Porkbun adapter.
type PorkbunOption func(*Porkbun)

// WithPorkbunBaseURL points the adapter at a different API host (tests).
func WithPorkbunBaseURL(baseURL string) PorkbunOption {
	return func(p *Porkbun) {
		if baseURL != "" {
			p.baseURL = baseURL
		}
	}
}

// NewPorkbun constructs a Porkbun adapter.
func NewPorkbun(creds Credentials, client *http.Client, opts ...PorkbunOption) *Porkbun {
	p := &Porkbun{creds: creds, client: client, baseURL: porkbunDefaultBaseURL}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

func (p *Porkbun) Code() string { return "porkbun" }

func (p *Porkbun) NormalizeDomain(name string) string { return NormalizeDomain(name) }

func (p *Porkbun) RateLimits() RateLimits {
	return RateLimits{RequestsPerHour: 600, Burst: 10}
}

type porkbunAuth struct {
	APIKey       string `json:"apikey"`
	SecretAPIKey string `json:"secretapikey"`
}

type porkbunStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type porkbunPingResponse struct {
	porkbunStatus
	YourIP string `json:"yourIp"`
}

type porkbunDomain struct {
	Domain       string `json:"domain"`
	Status       string `json:"status"`
	ExpireDate   string `json:"expireDate"`
	AutoRenew    any    `json:"autoRenew"`    // vendor returns "1"/"0" or numbers
	SecurityLock any    `json:"securityLock"` // same inconsistency
}

type porkbunListResponse struct {
	porkbunStatus
	Domains []porkbunDomain `json:"domains"`
}

func (p *Porkbun) TestConnection(ctx context.Context) ConnectionResult {
	var resp porkbunPingResponse
	if err := p.post(ctx, "/ping", &resp); err != nil {
		return ConnectionResult{Success: false, Message: connectionMessage(err)}
	}
	return ConnectionResult{
		Success:     true,
		Message:     "connection established",
		AccountInfo: &AccountInfo{AccountID: resp.YourIP},
	}
}

func (p *Porkbun) FetchDomains(ctx context.Context) ([]RegistrarDomain, error) {
	var resp porkbunListResponse
	if err := p.post(ctx, "/domain/listAll", &resp); err != nil {
		return nil, err
	}
	all := make([]RegistrarDomain, 0, len(resp.Domains))
	for _, d := range resp.Domains {
		rd, err := p.toRegistrarDomain(d)
		if err != nil {
			return nil, err
		}
		all = append(all, rd)
	}
	return all, nil
}

// DomainDetails has no dedicated endpoint; the listing already carries
// everything the vendor exposes.
func (p *Porkbun) DomainDetails(_ context.Context, _ string) (*RegistrarDomain, error) {
	return nil, sentinel.ErrNotSupported
}

func (p *Porkbun) post(ctx context.Context, path string, out interface{ statusLine() (string, string) }) error {
	body, err := json.Marshal(porkbunAuth{APIKey: p.creds.APIKey, SecretAPIKey: p.creds.APISecret})
	if err != nil {
		return NewAdapterError(ErrorInternal, p.Code(), "encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return NewAdapterError(ErrorInternal, p.Code(), "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return NewAdapterError(ErrorNetwork, p.Code(), "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return NewAdapterError(ErrorRateLimited, p.Code(), "rate limit exceeded", nil)
	}
	if resp.StatusCode >= 500 {
		return NewAdapterError(ErrorVendorOutage, p.Code(), fmt.Sprintf("vendor returned %d", resp.StatusCode), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewAdapterError(ErrorBadData, p.Code(), "malformed response body", err)
	}
	status, message := out.statusLine()
	if status != "SUCCESS" {
		// The vendor signals auth failures in-band with a 200 status.
		if strings.Contains(strings.ToLower(message), "api key") || resp.StatusCode == http.StatusForbidden {
			return NewAdapterError(ErrorAuthentication, p.Code(), message, nil)
		}
		return NewAdapterError(ErrorInternal, p.Code(), message, nil)
	}
	return nil
}

func (s *porkbunStatus) statusLine() (string, string) { return s.Status, s.Message }

func (p *Porkbun) toRegistrarDomain(d porkbunDomain) (RegistrarDomain, error) {
	if d.Domain == "" {
		return RegistrarDomain{}, NewAdapterError(ErrorBadData, p.Code(), "domain entry missing name", nil)
	}
	rd := RegistrarDomain{
		Name:      p.NormalizeDomain(d.Domain),
		Registrar: "Porkbun",
	}
	if d.ExpireDate != "" {
		t, err := time.Parse("2006-01-02 15:04:05", d.ExpireDate)
		if err != nil {
			return RegistrarDomain{}, NewAdapterError(ErrorBadData, p.Code(), "unparseable expiry date", err)
		}
		rd.ExpiryDate = &t
	}
	if b, ok := porkbunFlag(d.AutoRenew); ok {
		rd.AutoRenew = &b
	}
	if b, ok := porkbunFlag(d.SecurityLock); ok {
		rd.TransferLocked = &b
	}
	return rd, nil
}

// porkbunFlag tolerates the vendor's mixed boolean encodings.
func porkbunFlag(v any) (bool, bool) {
	switch t := v.(type) {
	case string:
		return t == "1", true
	case float64:
		return t == 1, true
	case bool:
		return t, true
	default:
		return false, false
	}
}
