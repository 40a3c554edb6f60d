// Package dns contains the providers that manage AAAA records.
package dns

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/dynsix/dynsix/pkg/config"
	appmetrics "github.com/dynsix/dynsix/pkg/metrics"
)

// Record is a provider's current knowledge of an AAAA record
type Record struct {
	// Address values, in the order returned by the provider
	Values []string
	// TTL of the record, in seconds
	TTL int
}

// Provider defines the interface for DNS providers
// All operations act on a single AAAA record identified by (domain, name)
type Provider interface {
	// Name returns the provider's name
	Name() string

	// GetRecord fetches the current state of the record
	// Returns (nil, nil) when the provider reports that the record does not exist
	GetRecord(ctx context.Context, domain string, name string) (*Record, error)

	// CreateRecord creates the record with a single address value
	CreateRecord(ctx context.Context, domain string, name string, addr netip.Addr, ttl int) error

	// ReplaceRecord replaces the record with a single address value,
	// overwriting any value the record previously held
	ReplaceRecord(ctx context.Context, domain string, name string, addr netip.Addr, ttl int) error
}

// NewProvider creates a new DNS provider based on the configuration
func NewProvider(name string, cfg config.ConfigDNSProvider, metrics *appmetrics.AppMetrics) (provider Provider, err error) {
	// We know that only one provider will be non-nil
	switch {
	case cfg.Gandi != nil:
		provider, err = NewGandiProvider(name, cfg.Gandi, metrics)
		if err != nil {
			return nil, fmt.Errorf("error initializing Gandi provider: %w", err)
		}
		return provider, nil
	case cfg.Cloudflare != nil:
		provider, err = NewCloudflareProvider(name, cfg.Cloudflare, metrics)
		if err != nil {
			return nil, fmt.Errorf("error initializing Cloudflare provider: %w", err)
		}
		return provider, nil
	case cfg.Azure != nil:
		provider, err = NewAzureProvider(name, cfg.Azure, metrics)
		if err != nil {
			return nil, fmt.Errorf("error initializing Azure provider: %w", err)
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("no supported DNS provider configured for '%s'", name)
	}
}
