package verification

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Resolver abstracts DNS lookups so tests can inject canned answers.
type Resolver interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
	LookupNS(ctx context.Context, name string) ([]string, error)
}

// NetResolver performs real DNS lookups through the system resolver.
type NetResolver struct {
	resolver *net.Resolver
}

// NewNetResolver constructs a resolver backed by net.DefaultResolver.
func NewNetResolver() *NetResolver {
	return &NetResolver{resolver: net.DefaultResolver}
}

func (r *NetResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	records, err := r.resolver.LookupTXT(ctx, name)
	if err != nil {
		if isNXDomain(err) {
			return nil, nil
		}
		return nil, err
	}
	return records, nil
}

func (r *NetResolver) LookupNS(ctx context.Context, name string) ([]string, error) {
	records, err := r.resolver.LookupNS(ctx, name)
	if err != nil {
		if isNXDomain(err) {
			return nil, nil
		}
		return nil, err
	}
	hosts := make([]string, 0, len(records))
	for _, ns := range records {
		hosts = append(hosts, strings.TrimSuffix(strings.ToLower(ns.Host), "."))
	}
	return hosts, nil
}

// isNXDomain distinguishes "no such record" from transient resolver failures.
// An absent record is a definitive negative answer, not an error.
func isNXDomain(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr) && dnsErr.IsNotFound
}
