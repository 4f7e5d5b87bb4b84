package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"

	"domainhub/internal/audit"
	auditstore "domainhub/internal/audit/store"
	"domainhub/internal/credentials"
	"domainhub/internal/inventory/models"
	"domainhub/internal/inventory/store"
	"domainhub/internal/platform/middleware"
	"domainhub/internal/registrar/adapters"
	"domainhub/internal/sync"
	"domainhub/internal/verification"
	id "domainhub/pkg/domain"
	"domainhub/pkg/platform/sentinel"
)

const testSigningKey = "test-signing-key"

// fakeAdapter serves a canned domain list for transport tests.
type fakeAdapter struct {
	code    string
	domains []adapters.RegistrarDomain
}

func (f *fakeAdapter) Code() string { return f.code }
func (f *fakeAdapter) TestConnection(context.Context) adapters.ConnectionResult {
	return adapters.ConnectionResult{Success: true, Message: "connection established"}
}
func (f *fakeAdapter) FetchDomains(context.Context) ([]adapters.RegistrarDomain, error) {
	return f.domains, nil
}
func (f *fakeAdapter) DomainDetails(context.Context, string) (*adapters.RegistrarDomain, error) {
	return nil, sentinel.ErrNotSupported
}
func (f *fakeAdapter) NormalizeDomain(name string) string { return adapters.NormalizeDomain(name) }
func (f *fakeAdapter) RateLimits() adapters.RateLimits    { return adapters.RateLimits{} }

type fakeEngineFactory struct {
	adapter *fakeAdapter
}

func (f *fakeEngineFactory) Create(string, adapters.Credentials) (adapters.Adapter, error) {
	return f.adapter, nil
}

// fakeResolver answers from canned maps.
type fakeResolver struct {
	txt map[string][]string
	ns  map[string][]string
}

func (f *fakeResolver) LookupTXT(_ context.Context, name string) ([]string, error) {
	return f.txt[name], nil
}
func (f *fakeResolver) LookupNS(_ context.Context, name string) ([]string, error) {
	return f.ns[name], nil
}

type RouterSuite struct {
	suite.Suite
	server   *httptest.Server
	domains  *store.InMemoryDomainStore
	accounts *store.InMemoryAccountStore
	adapter  *fakeAdapter
	resolver *fakeResolver
	userID   id.UserID
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.domains = store.NewInMemoryDomainStore()
	s.accounts = store.NewInMemoryAccountStore()
	s.adapter = &fakeAdapter{code: "godaddy"}
	s.resolver = &fakeResolver{txt: map[string][]string{}, ns: map[string][]string{}}
	s.userID = id.NewUserID()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	vault, err := credentials.NewVault(bytes.Repeat([]byte{0x05}, 32), credentials.NewInMemoryBlobStore(), s.accounts)
	s.Require().NoError(err)
	recorder := audit.NewRecorder(auditstore.NewInMemoryVerificationLog(), auditstore.NewInMemorySyncLog(), logger)
	engine := sync.NewEngine(s.domains, s.accounts, vault, &fakeEngineFactory{adapter: s.adapter}, recorder, logger, sync.WithInterAccountDelay(0))
	verifier := verification.NewService(s.domains, verification.NewInMemoryTokenStore(), s.resolver, recorder, logger)

	handler := NewHandler(engine, verifier, vault, adapters.NewFactory(), s.domains, s.accounts, recorder, logger)
	router := NewRouter(handler, middleware.NewHMACValidator(testSigningKey))
	s.server = httptest.NewServer(router)
	s.T().Cleanup(s.server.Close)
}

func (s *RouterSuite) token(userID id.UserID) string {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := t.SignedString([]byte(testSigningKey))
	s.Require().NoError(err)
	return signed
}

func (s *RouterSuite) do(method, path, token string, body any) *http.Response {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, s.server.URL+path, reader)
	s.Require().NoError(err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *RouterSuite) decode(resp *http.Response, out any) {
	defer resp.Body.Close()
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
}

func (s *RouterSuite) TestAuthRequired() {
	resp := s.do(http.MethodGet, "/api/domains", "", nil)
	resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp = s.do(http.MethodGet, "/api/domains", "not-a-jwt", nil)
	resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *RouterSuite) TestSupportedRegistrarsIsPublic() {
	resp := s.do(http.MethodGet, "/registrars", "", nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	var body struct {
		Registrars []adapters.RegistrarInfo `json:"registrars"`
	}
	s.decode(resp, &body)
	s.Require().Len(body.Registrars, 3)
	s.Equal("godaddy", body.Registrars[0].Code)
}

func (s *RouterSuite) TestConnectAccountAndSync() {
	token := s.token(s.userID)
	s.adapter.domains = []adapters.RegistrarDomain{{Name: "a.com", Registrar: "GoDaddy"}}

	resp := s.do(http.MethodPost, "/api/accounts", token, map[string]string{
		"registrar": "godaddy", "api_key": "k", "api_secret": "s",
	})
	s.Equal(http.StatusCreated, resp.StatusCode)

	var created struct {
		AccountID        string `json:"account_id"`
		ConnectionStatus string `json:"connection_status"`
	}
	s.decode(resp, &created)
	s.Equal("active", created.ConnectionStatus)

	resp = s.do(http.MethodPost, "/api/accounts/"+created.AccountID+"/sync", token, nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	var result sync.AccountSyncResult
	s.decode(resp, &result)
	s.True(result.Success)
	s.Require().NotNil(result.Sync)
	s.Equal(1, result.Sync.Added)

	resp = s.do(http.MethodGet, "/api/domains", token, nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	var listed struct {
		Domains []map[string]any `json:"domains"`
	}
	s.decode(resp, &listed)
	s.Require().Len(listed.Domains, 1)
	s.Equal("a.com", listed.Domains[0]["name"])
}

func (s *RouterSuite) TestConnectUnsupportedRegistrar() {
	resp := s.do(http.MethodPost, "/api/accounts", s.token(s.userID), map[string]string{
		"registrar": "unknowndns", "api_key": "k", "api_secret": "s",
	})
	resp.Body.Close()
	s.Equal(http.StatusUnprocessableEntity, resp.StatusCode)
}

func (s *RouterSuite) TestAccountOwnershipEnforced() {
	owner := s.token(s.userID)
	resp := s.do(http.MethodPost, "/api/accounts", owner, map[string]string{
		"registrar": "godaddy", "api_key": "k", "api_secret": "s",
	})
	var created struct {
		AccountID string `json:"account_id"`
	}
	s.decode(resp, &created)

	stranger := s.token(id.NewUserID())
	resp = s.do(http.MethodPost, "/api/accounts/"+created.AccountID+"/sync", stranger, nil)
	resp.Body.Close()
	s.Equal(http.StatusForbidden, resp.StatusCode)
}

func (s *RouterSuite) TestVerificationInstructionsAndVerify() {
	token := s.token(s.userID)

	resp := s.do(http.MethodGet, "/api/domains/example.com/instructions", token, nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	var instructions verification.Instructions
	s.decode(resp, &instructions)
	s.Equal("example.com", instructions.Domain)
	s.Equal(models.MethodRegistrarAPI, instructions.Recommended)

	var record string
	for _, m := range instructions.Methods {
		if m.Method == models.MethodDNSTXT {
			record = m.RecordValue
		}
	}
	s.Require().NotEmpty(record)
	s.resolver.txt["example.com"] = []string{record}

	// Verification only attempts dns_txt when the challenge token comes back
	// in the request.
	resp = s.do(http.MethodPost, "/api/domains/example.com/verify", token, map[string]string{"token": record})
	s.Equal(http.StatusOK, resp.StatusCode)

	var result verification.VerifyResult
	s.decode(resp, &result)
	s.True(result.Verified)
	s.Equal(models.MethodDNSTXT, result.Method)

	// Trust gate now passes at level 1 and denies level 3.
	resp = s.do(http.MethodGet, "/api/domains/example.com/access?required_level=1", token, nil)
	var check verification.ActionCheck
	s.decode(resp, &check)
	s.True(check.Allowed)

	resp = s.do(http.MethodGet, "/api/domains/example.com/access?required_level=3", token, nil)
	s.decode(resp, &check)
	s.False(check.Allowed)
}

func (s *RouterSuite) TestNilSubjectTokenRejected() {
	// A signed token whose subject is the all-zero UUID carries no identity.
	resp := s.do(http.MethodGet, "/api/domains", s.token(id.UserID{}), nil)
	resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *RouterSuite) TestInvalidDomainNameRejected() {
	resp := s.do(http.MethodGet, "/api/domains/-bad-/instructions", s.token(s.userID), nil)
	resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *RouterSuite) TestHealthz() {
	resp := s.do(http.MethodGet, "/healthz", "", nil)
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
}
