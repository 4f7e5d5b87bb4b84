package adapters

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"domainhub/pkg/platform/sentinel"
)

const (
	namecheapDefaultBaseURL = "https://api.namecheap.com/xml.response"
	namecheapPageSize       = 100
)

// Namecheap talks to the Namecheap XML API. Every call goes through one
// endpoint selected by a Command query parameter; responses arrive in an
// ApiResponse envelope whose Status attribute distinguishes success from error.
type Namecheap struct {
	creds   Credentials
	client  *http.Client
	baseURL string
	// clientIP is required by the vendor on every call. Defaults to a
	// placeholder the vendor accepts for server-side integrations.
	clientIP string
}

// NamecheapOption configures a Namecheap adapter.
type NamecheapOption func(*Namecheap)

// WithNamecheapBaseURL points the adapter at a different endpoint (tests, sandbox).
func WithNamecheapBaseURL(baseURL string) NamecheapOption {
	return func(n *Namecheap) {
		if baseURL != "" {
			n.baseURL = baseURL
		}
	}
}

// WithNamecheapClientIP sets the source IP reported to the vendor.
func WithNamecheapClientIP(ip string) NamecheapOption {
	return func(n *Namecheap) {
		if ip != "" {
			n.clientIP = ip
		}
	}
}

// NewNamecheap constructs a Namecheap adapter. The API key doubles as the
// password; the API secret carries the account username.
func NewNamecheap(creds Credentials, client *http.Client, opts ...NamecheapOption) *Namecheap {
	n := &Namecheap{
		creds:    creds,
		client:   client,
		baseURL:  namecheapDefaultBaseURL,
		clientIP: "127.0.0.1",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}
	return n
}

func (n *Namecheap) Code() string { return "namecheap" }

func (n *Namecheap) NormalizeDomain(name string) string { return NormalizeDomain(name) }

func (n *Namecheap) RateLimits() RateLimits {
	// Published: 50/min, 700/hour.
	return RateLimits{RequestsPerHour: 700, Burst: 50}
}

// Wire envelope for the XML API.
type namecheapEnvelope struct {
	XMLName xml.Name         `xml:"ApiResponse"`
	Status  string           `xml:"Status,attr"`
	Errors  []namecheapError `xml:"Errors>Error"`
	Result  namecheapResult  `xml:"CommandResponse>DomainGetListResult"`
	Paging  namecheapPaging  `xml:"CommandResponse>Paging"`
}

type namecheapError struct {
	Number  string `xml:"Number,attr"`
	Message string `xml:",chardata"`
}

type namecheapResult struct {
	Domains []namecheapDomain `xml:"Domain"`
}

type namecheapDomain struct {
	Name      string `xml:"Name,attr"`
	Expires   string `xml:"Expires,attr"`
	IsLocked  string `xml:"IsLocked,attr"`
	AutoRenew string `xml:"AutoRenew,attr"`
}

type namecheapPaging struct {
	TotalItems  int `xml:"TotalItems"`
	CurrentPage int `xml:"CurrentPage"`
	PageSize    int `xml:"PageSize"`
}

func (n *Namecheap) TestConnection(ctx context.Context) ConnectionResult {
	_, err := n.listPage(ctx, 1, 20)
	if err != nil {
		return ConnectionResult{Success: false, Message: connectionMessage(err)}
	}
	return ConnectionResult{Success: true, Message: "connection established"}
}

func (n *Namecheap) FetchDomains(ctx context.Context) ([]RegistrarDomain, error) {
	var all []RegistrarDomain
	for page := 1; ; page++ {
		env, err := n.listPage(ctx, page, namecheapPageSize)
		if err != nil {
			return nil, err
		}
		for _, d := range env.Result.Domains {
			rd, err := n.toRegistrarDomain(d)
			if err != nil {
				return nil, err
			}
			all = append(all, rd)
		}
		if page*namecheapPageSize >= env.Paging.TotalItems || len(env.Result.Domains) == 0 {
			return all, nil
		}
	}
}

// DomainDetails is not exposed by the listing command; the vendor's getInfo
// call needs per-TLD handling this integration does not carry yet.
func (n *Namecheap) DomainDetails(_ context.Context, _ string) (*RegistrarDomain, error) {
	return nil, sentinel.ErrNotSupported
}

func (n *Namecheap) listPage(ctx context.Context, page, pageSize int) (*namecheapEnvelope, error) {
	params := url.Values{}
	params.Set("ApiUser", n.creds.APISecret)
	params.Set("UserName", n.creds.APISecret)
	params.Set("ApiKey", n.creds.APIKey)
	params.Set("ClientIp", n.clientIP)
	params.Set("Command", "namecheap.domains.getList")
	params.Set("Page", fmt.Sprintf("%d", page))
	params.Set("PageSize", fmt.Sprintf("%d", pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, NewAdapterError(ErrorInternal, n.Code(), "build request", err)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, NewAdapterError(ErrorNetwork, n.Code(), "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, NewAdapterError(ErrorVendorOutage, n.Code(), fmt.Sprintf("vendor returned %d", resp.StatusCode), nil)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, NewAdapterError(ErrorInternal, n.Code(), fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var env namecheapEnvelope
	if err := xml.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, NewAdapterError(ErrorBadData, n.Code(), "malformed xml envelope", err)
	}
	if env.Status != "OK" {
		return nil, n.envelopeError(env)
	}
	return &env, nil
}

// envelopeError maps the vendor's numbered errors onto the taxonomy. Namecheap
// reports auth failures as error 1011102 ("API key is invalid") and friends.
func (n *Namecheap) envelopeError(env namecheapEnvelope) error {
	msg := "vendor reported an error"
	if len(env.Errors) > 0 {
		msg = env.Errors[0].Message
		switch env.Errors[0].Number {
		case "1011101", "1011102", "1011105", "1010900":
			return NewAdapterError(ErrorAuthentication, n.Code(), msg, nil)
		case "500000":
			return NewAdapterError(ErrorVendorOutage, n.Code(), msg, nil)
		}
	}
	return NewAdapterError(ErrorInternal, n.Code(), msg, nil)
}

func (n *Namecheap) toRegistrarDomain(d namecheapDomain) (RegistrarDomain, error) {
	if d.Name == "" {
		return RegistrarDomain{}, NewAdapterError(ErrorBadData, n.Code(), "domain entry missing name", nil)
	}
	rd := RegistrarDomain{
		Name:      n.NormalizeDomain(d.Name),
		Registrar: "Namecheap",
	}
	if d.Expires != "" {
		// Vendor formats expiry as MM/DD/YYYY.
		t, err := time.Parse("01/02/2006", d.Expires)
		if err != nil {
			return RegistrarDomain{}, NewAdapterError(ErrorBadData, n.Code(), "unparseable expiry date", err)
		}
		rd.ExpiryDate = &t
	}
	if d.AutoRenew != "" {
		b := d.AutoRenew == "true"
		rd.AutoRenew = &b
	}
	if d.IsLocked != "" {
		b := d.IsLocked == "true"
		rd.TransferLocked = &b
	}
	return rd, nil
}
