package adapters

import (
	"fmt"
	"net/http"
	"sort"
	"time"
)

// RegistrarStatus marks the maturity of a vendor integration.
type RegistrarStatus string

const (
	StatusStable RegistrarStatus = "stable"
	StatusBeta   RegistrarStatus = "beta"
)

// RegistrarInfo describes one supported registrar for discovery endpoints.
// Priority orders vendor listings in UIs; lower sorts first.
type RegistrarInfo struct {
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	Priority int             `json:"priority"`
	Status   RegistrarStatus `json:"status"`
}

type builder func(creds Credentials, client *http.Client) Adapter

type registration struct {
	info  RegistrarInfo
	build builder
}

// Factory maps registrar codes to adapter constructors. The dispatch table is
// the single place a new vendor is wired in.
type Factory struct {
	registrars map[string]registration
	client     *http.Client
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithHTTPClient overrides the shared HTTP client, primarily for tests that
// point adapters at httptest servers.
func WithHTTPClient(client *http.Client) FactoryOption {
	return func(f *Factory) {
		if client != nil {
			f.client = client
		}
	}
}

// NewFactory constructs a factory with every built-in vendor registered. The
// shared client carries a hard timeout so one unresponsive registrar cannot
// stall a bulk pass indefinitely.
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{
		registrars: make(map[string]registration),
		client:     &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}

	f.register(RegistrarInfo{Code: "godaddy", Name: "GoDaddy", Priority: 1, Status: StatusStable},
		func(creds Credentials, client *http.Client) Adapter { return NewGoDaddy(creds, client) })
	f.register(RegistrarInfo{Code: "namecheap", Name: "Namecheap", Priority: 2, Status: StatusStable},
		func(creds Credentials, client *http.Client) Adapter { return NewNamecheap(creds, client) })
	f.register(RegistrarInfo{Code: "porkbun", Name: "Porkbun", Priority: 3, Status: StatusBeta},
		func(creds Credentials, client *http.Client) Adapter { return NewPorkbun(creds, client) })

	return f
}

func (f *Factory) register(info RegistrarInfo, build builder) {
	f.registrars[info.Code] = registration{info: info, build: build}
}

// Create builds an adapter for the given registrar code.
func (f *Factory) Create(code string, creds Credentials) (Adapter, error) {
	reg, ok := f.registrars[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRegistrar, code)
	}
	return reg.build(creds, f.client), nil
}

// IsSupported reports whether a registrar code has an adapter.
func (f *Factory) IsSupported(code string) bool {
	_, ok := f.registrars[code]
	return ok
}

// Supported lists every registered registrar, ordered by priority.
func (f *Factory) Supported() []RegistrarInfo {
	result := make([]RegistrarInfo, 0, len(f.registrars))
	for _, reg := range f.registrars {
		result = append(result, reg.info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Priority < result[j].Priority })
	return result
}
