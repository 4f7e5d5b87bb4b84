// Package verification proves domain ownership without a registrar
// integration. Methods form a fixed trust ordering, highest confidence first:
// registrar_api(3) > nameserver(2) > dns_txt(1) > manual(0). A persisted
// registrar_api verification short-circuits the chain; everything else runs
// against live DNS.
package verification

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"domainhub/internal/audit"
	"domainhub/internal/inventory/models"
	"domainhub/internal/inventory/store"
	"domainhub/internal/platform/metrics"
	id "domainhub/pkg/domain"
	dErrors "domainhub/pkg/domain-errors"
	"domainhub/pkg/platform/sentinel"
	strutil "domainhub/pkg/platform/strings"
	"domainhub/pkg/requestcontext"
)

// TokenTTL is the validity window of a DNS TXT challenge.
const TokenTTL = 7 * 24 * time.Hour

const tokenPrefix = "domainhub-verify="

// dnsTimeout bounds every resolver call so a hung nameserver cannot stall a
// verification request.
const dnsTimeout = 10 * time.Second

// VerifyOptions carries caller-supplied evidence for one verification attempt.
type VerifyOptions struct {
	// Token, when set, must match the currently issued challenge token.
	Token string
	// ExpectedNameservers enables the nameserver method: the attempt succeeds
	// when at least one expected value substring-matches a resolved NS host.
	// Without expectations the NS lookup is informational only.
	ExpectedNameservers []string
}

// Attempt is the outcome of one method in the chain.
type Attempt struct {
	Method  models.VerificationMethod `json:"method"`
	Success bool                      `json:"success"`
	Detail  string                    `json:"detail,omitempty"`
}

// VerifyResult reports a full chain run. Verified false with a populated
// Attempts list is a normal outcome, not an error.
type VerifyResult struct {
	Domain     string                    `json:"domain"`
	Verified   bool                      `json:"verified"`
	Method     models.VerificationMethod `json:"method,omitempty"`
	Level      models.VerificationLevel  `json:"level"`
	VerifiedAt *time.Time                `json:"verified_at,omitempty"`
	Attempts   []Attempt                 `json:"attempts"`
}

// MethodInstructions is per-method guidance returned to the user.
type MethodInstructions struct {
	Method      models.VerificationMethod `json:"method"`
	Level       models.VerificationLevel  `json:"level"`
	Description string                    `json:"description"`
	RecordType  string                    `json:"record_type,omitempty"`
	RecordName  string                    `json:"record_name,omitempty"`
	RecordValue string                    `json:"record_value,omitempty"`
	ExpiresAt   *time.Time                `json:"expires_at,omitempty"`
}

// Instructions bundles the guidance for every method.
type Instructions struct {
	Domain      string                    `json:"domain"`
	Recommended models.VerificationMethod `json:"recommended"`
	Methods     []MethodInstructions      `json:"methods"`
}

// ActionCheck is the outcome of the fail-closed trust gate.
type ActionCheck struct {
	Allowed bool                     `json:"allowed"`
	Level   models.VerificationLevel `json:"level"`
	Reason  string                   `json:"reason,omitempty"`
}

// Service is the verification engine.
type Service struct {
	domains  store.DomainStore
	tokens   TokenStore
	resolver Resolver
	recorder *audit.Recorder
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService constructs the verification engine.
func NewService(domains store.DomainStore, tokens TokenStore, resolver Resolver, recorder *audit.Recorder, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		domains:  domains,
		tokens:   tokens,
		resolver: resolver,
		recorder: recorder,
		logger:   logger,
		tracer:   otel.Tracer("domainhub/internal/verification"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// VerifyDomain runs the method chain for one domain.
//
// A persisted registrar_api verification wins immediately with no external
// calls. Otherwise dns_txt (only when a challenge token is supplied) and
// nameserver are attempted, every outcome is collected for the response, and
// the highest-level success is persisted.
func (s *Service) VerifyDomain(ctx context.Context, name string, userID id.UserID, opts VerifyOptions) (*VerifyResult, error) {
	name = models.NormalizeDomainName(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "domain name is required")
	}

	ctx, span := s.tracer.Start(ctx, "verification.VerifyDomain",
		trace.WithAttributes(attribute.String("domain", name)))
	defer span.End()

	result := &VerifyResult{Domain: name}

	// Persisted registrar evidence beats anything DNS can prove.
	existing, err := s.domains.FindByNameAndUser(ctx, userID, name)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.IsVerified && existing.Method == models.MethodRegistrarAPI {
		result.Verified = true
		result.Method = models.MethodRegistrarAPI
		result.Level = models.LevelRegistrarAPI
		result.VerifiedAt = existing.VerifiedAt
		result.Attempts = append(result.Attempts, Attempt{
			Method:  models.MethodRegistrarAPI,
			Success: true,
			Detail:  "registrar account verification on record",
		})
		s.observe(models.MethodRegistrarAPI, true)
		return result, nil
	}

	dnsCtx, cancel := context.WithTimeout(ctx, dnsTimeout)
	defer cancel()

	txtAttempt := s.attemptDNSTXT(dnsCtx, name, userID, opts.Token)
	nsAttempt := s.attemptNameserver(dnsCtx, name, opts.ExpectedNameservers)
	result.Attempts = append(result.Attempts, txtAttempt, nsAttempt)

	// Highest level wins: nameserver over dns_txt.
	var winner models.VerificationMethod
	switch {
	case nsAttempt.Success:
		winner = models.MethodNameserver
	case txtAttempt.Success:
		winner = models.MethodDNSTXT
	default:
		s.observe(models.MethodDNSTXT, false)
		return result, nil
	}

	now := requestcontext.Now(ctx)
	if err := s.saveVerificationResult(ctx, userID, name, existing, winner, now); err != nil {
		return nil, err
	}
	result.Verified = true
	result.Method = winner
	result.Level = winner.Level()
	result.VerifiedAt = &now
	s.observe(winner, true)
	return result, nil
}

// Instructions issues a fresh challenge token, replacing any prior token for
// the (domain, user) pair, and returns per-method guidance.
func (s *Service) Instructions(ctx context.Context, name string, userID id.UserID) (*Instructions, error) {
	name = models.NormalizeDomainName(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "domain name is required")
	}

	now := requestcontext.Now(ctx)
	token := Token{Value: generateToken(userID, name), ExpiresAt: now.Add(TokenTTL)}
	if err := s.tokens.Put(ctx, userID, name, token); err != nil {
		return nil, fmt.Errorf("issue challenge token: %w", err)
	}

	expires := token.ExpiresAt
	return &Instructions{
		Domain:      name,
		Recommended: models.MethodRegistrarAPI,
		Methods: []MethodInstructions{
			{
				Method:      models.MethodRegistrarAPI,
				Level:       models.LevelRegistrarAPI,
				Description: "Connect your registrar account; domains it reports are verified automatically at the highest trust level.",
			},
			{
				Method:      models.MethodNameserver,
				Level:       models.LevelNameserver,
				Description: "Point the domain's nameservers at a supported registrar or host, then verify with the expected nameserver values.",
			},
			{
				Method:      models.MethodDNSTXT,
				Level:       models.LevelDNSTXT,
				Description: "Add the TXT record below to the domain's DNS zone, wait for propagation, then verify.",
				RecordType:  "TXT",
				RecordName:  name,
				RecordValue: token.Value,
				ExpiresAt:   &expires,
			},
			{
				Method:      models.MethodManual,
				Level:       models.LevelManual,
				Description: "Track the domain without proof of ownership. Trust-gated actions stay unavailable.",
			},
		},
	}, nil
}

// CanPerformAction is the fail-closed trust gate. Unknown domains, unverified
// domains, and domains below the required level are all denied.
func (s *Service) CanPerformAction(ctx context.Context, name string, userID id.UserID, requiredLevel models.VerificationLevel) (*ActionCheck, error) {
	name = models.NormalizeDomainName(name)
	domain, err := s.domains.FindByNameAndUser(ctx, userID, name)
	if errors.Is(err, sentinel.ErrNotFound) {
		return &ActionCheck{Allowed: false, Reason: "domain not found"}, nil
	}
	if err != nil {
		return nil, err
	}
	if !domain.IsVerified {
		return &ActionCheck{Allowed: false, Level: domain.Level, Reason: "domain is not verified"}, nil
	}
	if domain.Level < requiredLevel {
		return &ActionCheck{
			Allowed: false,
			Level:   domain.Level,
			Reason:  fmt.Sprintf("verification level %d is below required %d", domain.Level, requiredLevel),
		}, nil
	}
	return &ActionCheck{Allowed: true, Level: domain.Level}, nil
}

// attemptDNSTXT checks the challenge token against live TXT records. The
// method runs only when the caller supplies a token, and the stored token is
// the source of truth: the supplied value must match the currently issued,
// unexpired challenge.
func (s *Service) attemptDNSTXT(ctx context.Context, name string, userID id.UserID, supplied string) Attempt {
	attempt := Attempt{Method: models.MethodDNSTXT}

	if supplied == "" {
		attempt.Detail = "no challenge token supplied, dns_txt not attempted"
		return attempt
	}

	issued, err := s.tokens.Get(ctx, userID, name)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		attempt.Detail = "no challenge token issued for this domain"
		return attempt
	case err != nil:
		attempt.Detail = fmt.Sprintf("token lookup failed: %v", err)
		return attempt
	}
	if supplied != issued.Value {
		attempt.Detail = "supplied token does not match the issued challenge"
		return attempt
	}
	if issued.Expired(requestcontext.Now(ctx)) {
		attempt.Detail = "challenge token expired, request new instructions"
		return attempt
	}

	records, err := s.resolver.LookupTXT(ctx, name)
	if err != nil {
		attempt.Detail = fmt.Sprintf("TXT lookup failed: %v", err)
		return attempt
	}
	for _, record := range records {
		if strings.Contains(record, issued.Value) {
			attempt.Success = true
			attempt.Detail = "challenge token found in TXT records"
			return attempt
		}
	}
	attempt.Detail = fmt.Sprintf("challenge token not present in %d TXT records", len(records))
	return attempt
}

// attemptNameserver resolves NS records and substring-matches them against the
// expected values. Without expectations the lookup is informational only.
func (s *Service) attemptNameserver(ctx context.Context, name string, expected []string) Attempt {
	attempt := Attempt{Method: models.MethodNameserver}

	hosts, err := s.resolver.LookupNS(ctx, name)
	if err != nil {
		attempt.Detail = fmt.Sprintf("NS lookup failed: %v", err)
		return attempt
	}
	expected = strutil.DedupeAndTrimLower(expected)
	if len(expected) == 0 {
		attempt.Detail = fmt.Sprintf("nameservers: %s", strings.Join(hosts, ", "))
		return attempt
	}
	for _, want := range expected {
		for _, host := range hosts {
			if strings.Contains(host, want) {
				attempt.Success = true
				attempt.Detail = fmt.Sprintf("nameserver %s matches expected %s", host, want)
				return attempt
			}
		}
	}
	attempt.Detail = fmt.Sprintf("no expected nameserver among: %s", strings.Join(hosts, ", "))
	return attempt
}

// saveVerificationResult upserts the domain row for a successful attempt.
// Re-verification is idempotent, not additive.
func (s *Service) saveVerificationResult(ctx context.Context, userID id.UserID, name string, existing *models.Domain, method models.VerificationMethod, now time.Time) error {
	oldStatus := "unverified"
	domain := existing
	if domain == nil {
		domain = &models.Domain{
			Name:      name,
			UserID:    userID,
			Category:  "Other",
			CreatedAt: now,
		}
	} else if domain.IsVerified {
		oldStatus = "verified"
	}

	// DNS-based evidence does not attach a registrar account link.
	domain.RegistrarAccountID = nil
	domain.Method = method
	domain.Level = method.Level()
	domain.IsVerified = true
	verifiedAt := now
	domain.VerifiedAt = &verifiedAt
	domain.UpdatedAt = now
	if err := s.domains.Upsert(ctx, domain); err != nil {
		return err
	}

	if err := s.recorder.LogVerification(ctx, audit.VerificationEvent{
		DomainName: name,
		UserID:     userID,
		EventType:  audit.EventVerified,
		Method:     method,
		OldStatus:  oldStatus,
		NewStatus:  "verified",
		Reason:     fmt.Sprintf("ownership proven via %s", method),
	}); err != nil {
		s.logger.Error("record verification event", "domain", name, "error", err)
	}
	return nil
}

func (s *Service) observe(method models.VerificationMethod, success bool) {
	if s.metrics == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	s.metrics.ObserveVerification(string(method), outcome)
}

// generateToken derives an opaque challenge value from the pair identity plus
// random salt, so tokens are unguessable and never collide across reissues.
func generateToken(userID id.UserID, domain string) string {
	var salt [16]byte
	_, _ = rand.Read(salt[:])
	sum := sha256.Sum256(append([]byte(userID.String()+"|"+domain+"|"), salt[:]...))
	return tokenPrefix + hex.EncodeToString(sum[:16])
}
