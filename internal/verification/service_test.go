package verification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"domainhub/internal/audit"
	auditstore "domainhub/internal/audit/store"
	"domainhub/internal/inventory/models"
	"domainhub/internal/inventory/store"
	id "domainhub/pkg/domain"
	"domainhub/pkg/requestcontext"
)

// fakeResolver serves canned DNS answers keyed by domain name.
type fakeResolver struct {
	txt    map[string][]string
	ns     map[string][]string
	txtErr error
	nsErr  error
}

func (f *fakeResolver) LookupTXT(_ context.Context, name string) ([]string, error) {
	if f.txtErr != nil {
		return nil, f.txtErr
	}
	return f.txt[name], nil
}

func (f *fakeResolver) LookupNS(_ context.Context, name string) ([]string, error) {
	if f.nsErr != nil {
		return nil, f.nsErr
	}
	return f.ns[name], nil
}

type ServiceSuite struct {
	suite.Suite
	domains  *store.InMemoryDomainStore
	tokens   *InMemoryTokenStore
	resolver *fakeResolver
	verLog   *auditstore.InMemoryVerificationLog
	service  *Service
	userID   id.UserID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.domains = store.NewInMemoryDomainStore()
	s.tokens = NewInMemoryTokenStore()
	s.resolver = &fakeResolver{txt: map[string][]string{}, ns: map[string][]string{}}
	s.verLog = auditstore.NewInMemoryVerificationLog()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder := audit.NewRecorder(s.verLog, auditstore.NewInMemorySyncLog(), logger)
	s.service = NewService(s.domains, s.tokens, s.resolver, recorder, logger)
	s.userID = id.NewUserID()
}

// issueToken requests instructions and returns the issued TXT record value.
func (s *ServiceSuite) issueToken(name string) string {
	instructions, err := s.service.Instructions(context.Background(), name, s.userID)
	s.Require().NoError(err)
	for _, m := range instructions.Methods {
		if m.Method == models.MethodDNSTXT {
			s.Require().NotEmpty(m.RecordValue)
			return m.RecordValue
		}
	}
	s.Require().FailNow("no dns_txt instructions returned")
	return ""
}

func (s *ServiceSuite) TestDNSTXTVerification() {
	ctx := context.Background()
	token := s.issueToken("example.com")
	s.resolver.txt["example.com"] = []string{"unrelated", token}

	result, err := s.service.VerifyDomain(ctx, "Example.COM.", s.userID, VerifyOptions{Token: token})
	s.Require().NoError(err)
	s.True(result.Verified)
	s.Equal(models.MethodDNSTXT, result.Method)
	s.Equal(models.LevelDNSTXT, result.Level)

	d, err := s.domains.FindByNameAndUser(ctx, s.userID, "example.com")
	s.Require().NoError(err)
	s.True(d.IsVerified)
	s.Equal(models.MethodDNSTXT, d.Method)
	s.Nil(d.RegistrarAccountID)
	s.False(d.AutoSynced)

	events := s.verLog.All()
	s.Require().Len(events, 1)
	s.Equal(audit.EventVerified, events[0].EventType)
}

func (s *ServiceSuite) TestRegistrarAPIWinsWithoutDNSCalls() {
	ctx := context.Background()
	accountID := id.NewAccountID()
	d := &models.Domain{Name: "example.com", UserID: s.userID, CreatedAt: time.Now()}
	d.ElevateRegistrar(accountID, time.Now())
	s.Require().NoError(s.domains.Upsert(ctx, d))

	// A valid token exists, yet the persisted registrar verification wins and
	// no DNS lookup runs.
	token := s.issueToken("example.com")
	s.resolver.txt["example.com"] = []string{token}
	s.resolver.txtErr = errors.New("resolver must not be called")
	s.resolver.nsErr = errors.New("resolver must not be called")

	result, err := s.service.VerifyDomain(ctx, "example.com", s.userID, VerifyOptions{Token: token})
	s.Require().NoError(err)
	s.True(result.Verified)
	s.Equal(models.MethodRegistrarAPI, result.Method)
	s.Equal(models.LevelRegistrarAPI, result.Level)
	s.Require().Len(result.Attempts, 1)
	s.Equal(models.MethodRegistrarAPI, result.Attempts[0].Method)
}

func (s *ServiceSuite) TestNameserverBeatsDNSTXT() {
	ctx := context.Background()
	token := s.issueToken("example.com")
	s.resolver.txt["example.com"] = []string{token}
	s.resolver.ns["example.com"] = []string{"ns1.domaincontrol.com", "ns2.domaincontrol.com"}

	result, err := s.service.VerifyDomain(ctx, "example.com", s.userID, VerifyOptions{
		Token:               token,
		ExpectedNameservers: []string{"domaincontrol.com"},
	})
	s.Require().NoError(err)
	s.True(result.Verified)
	s.Equal(models.MethodNameserver, result.Method)
	s.Equal(models.LevelNameserver, result.Level)
	// Both methods were still attempted and reported.
	s.Len(result.Attempts, 2)
}

func (s *ServiceSuite) TestNameserverWithoutExpectationsIsInformational() {
	ctx := context.Background()
	s.resolver.ns["example.com"] = []string{"ns1.porkbun.com"}

	result, err := s.service.VerifyDomain(ctx, "example.com", s.userID, VerifyOptions{})
	s.Require().NoError(err)
	s.False(result.Verified)

	var nsAttempt *Attempt
	for i := range result.Attempts {
		if result.Attempts[i].Method == models.MethodNameserver {
			nsAttempt = &result.Attempts[i]
		}
	}
	s.Require().NotNil(nsAttempt)
	s.False(nsAttempt.Success)
	s.Contains(nsAttempt.Detail, "ns1.porkbun.com")
}

func (s *ServiceSuite) TestNameserverMatchIsCaseInsensitiveSubstring() {
	ctx := context.Background()
	s.resolver.ns["example.com"] = []string{"ns1.registrar-servers.com"}

	result, err := s.service.VerifyDomain(ctx, "example.com", s.userID, VerifyOptions{
		ExpectedNameservers: []string{"  Registrar-Servers.COM  "},
	})
	s.Require().NoError(err)
	s.True(result.Verified)
	s.Equal(models.MethodNameserver, result.Method)
}

func (s *ServiceSuite) TestTokenReplacement() {
	ctx := context.Background()
	first := s.issueToken("example.com")
	second := s.issueToken("example.com")
	s.NotEqual(first, second)

	// The replaced token is invalid even while it still sits in DNS.
	s.resolver.txt["example.com"] = []string{first}
	result, err := s.service.VerifyDomain(ctx, "example.com", s.userID, VerifyOptions{Token: first})
	s.Require().NoError(err)
	s.False(result.Verified)

	// The latest token verifies once the DNS record is updated.
	s.resolver.txt["example.com"] = []string{second}
	result, err = s.service.VerifyDomain(ctx, "example.com", s.userID, VerifyOptions{Token: second})
	s.Require().NoError(err)
	s.True(result.Verified)
}

func (s *ServiceSuite) TestDNSTXTRequiresSuppliedToken() {
	ctx := context.Background()
	token := s.issueToken("example.com")
	s.resolver.txt["example.com"] = []string{token}
	s.resolver.txtErr = errors.New("TXT lookup must not run without a supplied token")

	result, err := s.service.VerifyDomain(ctx, "example.com", s.userID, VerifyOptions{})
	s.Require().NoError(err)
	s.False(result.Verified)

	var txtAttempt *Attempt
	for i := range result.Attempts {
		if result.Attempts[i].Method == models.MethodDNSTXT {
			txtAttempt = &result.Attempts[i]
		}
	}
	s.Require().NotNil(txtAttempt)
	s.False(txtAttempt.Success)
	s.Contains(txtAttempt.Detail, "not attempted")
}

func (s *ServiceSuite) TestSuppliedTokenMustMatchIssued() {
	ctx := context.Background()
	token := s.issueToken("example.com")
	s.resolver.txt["example.com"] = []string{token}

	result, err := s.service.VerifyDomain(ctx, "example.com", s.userID, VerifyOptions{Token: "domainhub-verify=forged"})
	s.Require().NoError(err)
	s.False(result.Verified)
}

func (s *ServiceSuite) TestExpiredTokenFails() {
	ctx := context.Background()
	token := s.issueToken("example.com")
	s.resolver.txt["example.com"] = []string{token}

	future := requestcontext.WithTime(ctx, time.Now().Add(TokenTTL+time.Hour))
	result, err := s.service.VerifyDomain(future, "example.com", s.userID, VerifyOptions{Token: token})
	s.Require().NoError(err)
	s.False(result.Verified)

	var txtAttempt *Attempt
	for i := range result.Attempts {
		if result.Attempts[i].Method == models.MethodDNSTXT {
			txtAttempt = &result.Attempts[i]
		}
	}
	s.Require().NotNil(txtAttempt)
	s.Contains(txtAttempt.Detail, "expired")
}

func (s *ServiceSuite) TestFailureCollectsAllAttempts() {
	ctx := context.Background()
	result, err := s.service.VerifyDomain(ctx, "example.com", s.userID, VerifyOptions{
		ExpectedNameservers: []string{"domaincontrol.com"},
	})
	s.Require().NoError(err)
	s.False(result.Verified)
	s.Len(result.Attempts, 2)
	for _, attempt := range result.Attempts {
		s.False(attempt.Success)
		s.NotEmpty(attempt.Detail)
	}
}

func (s *ServiceSuite) TestReVerificationIsIdempotent() {
	ctx := context.Background()
	token := s.issueToken("example.com")
	s.resolver.txt["example.com"] = []string{token}

	for i := 0; i < 2; i++ {
		result, err := s.service.VerifyDomain(ctx, "example.com", s.userID, VerifyOptions{Token: token})
		s.Require().NoError(err)
		s.True(result.Verified)
	}
	portfolio, err := s.domains.ListByUser(ctx, s.userID)
	s.Require().NoError(err)
	s.Len(portfolio, 1)
}

func (s *ServiceSuite) TestCanPerformActionFailClosed() {
	ctx := context.Background()

	s.Run("unknown domain is denied", func() {
		check, err := s.service.CanPerformAction(ctx, "ghost.com", s.userID, models.LevelDNSTXT)
		s.Require().NoError(err)
		s.False(check.Allowed)
		s.Equal("domain not found", check.Reason)
	})

	s.Run("unverified domain is denied", func() {
		d := &models.Domain{Name: "pending.com", UserID: s.userID, CreatedAt: time.Now()}
		s.Require().NoError(s.domains.Upsert(ctx, d))
		check, err := s.service.CanPerformAction(ctx, "pending.com", s.userID, models.LevelManual)
		s.Require().NoError(err)
		s.False(check.Allowed)
	})

	s.Run("level below requirement is denied", func() {
		token := s.issueToken("low.com")
		s.resolver.txt["low.com"] = []string{token}
		_, err := s.service.VerifyDomain(ctx, "low.com", s.userID, VerifyOptions{Token: token})
		s.Require().NoError(err)

		check, err := s.service.CanPerformAction(ctx, "low.com", s.userID, models.LevelRegistrarAPI)
		s.Require().NoError(err)
		s.False(check.Allowed)
		s.Equal(models.LevelDNSTXT, check.Level)
	})

	s.Run("sufficient level is allowed", func() {
		check, err := s.service.CanPerformAction(ctx, "low.com", s.userID, models.LevelDNSTXT)
		s.Require().NoError(err)
		s.True(check.Allowed)
		s.Equal(models.LevelDNSTXT, check.Level)
	})
}
