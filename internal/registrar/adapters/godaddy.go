package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	godaddyDefaultBaseURL = "https://api.godaddy.com"
	godaddyPageSize       = 100
)

// GoDaddy talks to the GoDaddy v1 REST API. Domain listings are paginated with
// a name marker; FetchDomains walks every page or fails as a whole.
type GoDaddy struct {
	creds   Credentials
	client  *http.Client
	baseURL string
}

// GoDaddyOption configures a GoDaddy adapter.
type GoDaddyOption func(*GoDaddy)

// WithGoDaddyBaseURL points the adapter at a different API host (tests, OTE).
func WithGoDaddyBaseURL(baseURL string) GoDaddyOption {
	return func(g *GoDaddy) {
		if baseURL != "" {
			g.baseURL = baseURL
		}
	}
}

// NewGoDaddy constructs a GoDaddy adapter.
func NewGoDaddy(creds Credentials, client *http.Client, opts ...GoDaddyOption) *GoDaddy {
	g := &GoDaddy{creds: creds, client: client, baseURL: godaddyDefaultBaseURL}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

func (g *GoDaddy) Code() string { return "godaddy" }

func (g *GoDaddy) NormalizeDomain(name string) string { return NormalizeDomain(name) }

func (g *GoDaddy) RateLimits() RateLimits {
	return RateLimits{RequestsPerHour: 60 * 60, Burst: 60}
}

// godaddyDomain is the wire shape of one domain in a listing response.
type godaddyDomain struct {
	Domain    string `json:"domain"`
	Status    string `json:"status"`
	Expires   string `json:"expires"`
	RenewAuto *bool  `json:"renewAuto"`
	Locked    *bool  `json:"locked"`
}

func (g *GoDaddy) TestConnection(ctx context.Context) ConnectionResult {
	_, err := g.listPage(ctx, "", 1)
	if err != nil {
		return ConnectionResult{Success: false, Message: connectionMessage(err)}
	}
	return ConnectionResult{Success: true, Message: "connection established"}
}

func (g *GoDaddy) FetchDomains(ctx context.Context) ([]RegistrarDomain, error) {
	var all []RegistrarDomain
	marker := ""
	for {
		page, err := g.listPage(ctx, marker, godaddyPageSize)
		if err != nil {
			// All or nothing: a partial list would read as deletions downstream.
			return nil, err
		}
		for _, d := range page {
			rd, err := g.toRegistrarDomain(d)
			if err != nil {
				return nil, err
			}
			all = append(all, rd)
		}
		if len(page) < godaddyPageSize {
			return all, nil
		}
		marker = page[len(page)-1].Domain
	}
}

func (g *GoDaddy) DomainDetails(ctx context.Context, name string) (*RegistrarDomain, error) {
	endpoint := fmt.Sprintf("%s/v1/domains/%s", g.baseURL, url.PathEscape(g.NormalizeDomain(name)))
	var d godaddyDomain
	if err := g.get(ctx, endpoint, &d); err != nil {
		return nil, err
	}
	rd, err := g.toRegistrarDomain(d)
	if err != nil {
		return nil, err
	}
	return &rd, nil
}

func (g *GoDaddy) listPage(ctx context.Context, marker string, limit int) ([]godaddyDomain, error) {
	endpoint := fmt.Sprintf("%s/v1/domains?statuses=ACTIVE&limit=%d", g.baseURL, limit)
	if marker != "" {
		endpoint += "&marker=" + url.QueryEscape(marker)
	}
	var page []godaddyDomain
	if err := g.get(ctx, endpoint, &page); err != nil {
		return nil, err
	}
	return page, nil
}

func (g *GoDaddy) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return NewAdapterError(ErrorInternal, g.Code(), "build request", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("sso-key %s:%s", g.creds.APIKey, g.creds.APISecret))
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return NewAdapterError(ErrorNetwork, g.Code(), "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return NewAdapterError(ErrorAuthentication, g.Code(), "credentials rejected", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return NewAdapterError(ErrorRateLimited, g.Code(), "rate limit exceeded", nil)
	case resp.StatusCode == http.StatusNotFound:
		return NewAdapterError(ErrorNotFound, g.Code(), "domain not found", nil)
	case resp.StatusCode >= 500:
		return NewAdapterError(ErrorVendorOutage, g.Code(), fmt.Sprintf("vendor returned %d", resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK:
		return NewAdapterError(ErrorInternal, g.Code(), fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewAdapterError(ErrorBadData, g.Code(), "malformed response body", err)
	}
	return nil
}

func (g *GoDaddy) toRegistrarDomain(d godaddyDomain) (RegistrarDomain, error) {
	if d.Domain == "" {
		return RegistrarDomain{}, NewAdapterError(ErrorBadData, g.Code(), "domain entry missing name", nil)
	}
	rd := RegistrarDomain{
		Name:           g.NormalizeDomain(d.Domain),
		Registrar:      "GoDaddy",
		AutoRenew:      d.RenewAuto,
		TransferLocked: d.Locked,
	}
	if d.Expires != "" {
		t, err := time.Parse(time.RFC3339, d.Expires)
		if err != nil {
			return RegistrarDomain{}, NewAdapterError(ErrorBadData, g.Code(), "unparseable expiry date", err)
		}
		rd.ExpiryDate = &t
	}
	return rd, nil
}

// connectionMessage flattens an adapter error into the operator-facing hint
// stored on the account row.
func connectionMessage(err error) string {
	var ae *AdapterError
	if errors.As(err, &ae) {
		switch ae.Category {
		case ErrorAuthentication:
			return "credentials rejected by registrar"
		case ErrorRateLimited:
			return "registrar rate limit hit, try again later"
		case ErrorNetwork:
			return "registrar unreachable"
		case ErrorVendorOutage:
			return "registrar reported an outage"
		}
	}
	return "connection test failed"
}
