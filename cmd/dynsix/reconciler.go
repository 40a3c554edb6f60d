package main

import (
	"fmt"
	"time"

	"github.com/dynsix/dynsix/pkg/config"
	"github.com/dynsix/dynsix/pkg/dns"
	"github.com/dynsix/dynsix/pkg/ip"
	appmetrics "github.com/dynsix/dynsix/pkg/metrics"
	"github.com/dynsix/dynsix/pkg/reconcile"
)

// NewReconciler creates a reconcile.Reconciler from the configuration
func NewReconciler(dnsProviders map[string]dns.Provider, metrics *appmetrics.AppMetrics) (*reconcile.Reconciler, error) {
	cfg := config.Get()

	discoverer, err := ip.NewWebDiscoverer(cfg.QueryServer, metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to init IP discoverer: %w", err)
	}

	services := make([]reconcile.Service, len(cfg.Services))
	for i, s := range cfg.Services {
		provider, ok := dnsProviders[s.Provider]
		if !ok || provider == nil {
			return nil, fmt.Errorf("service '%s' references DNS provider '%s' that is not configured", s.Name, s.Provider)
		}
		services[i] = reconcile.Service{
			Name:       s.Name,
			FQDN:       s.FQDN,
			RecordName: s.RecordName,
			Suffix:     s.SuffixAddr(),
			TTL:        s.TTL,
			Provider:   provider,
		}
	}

	return reconcile.NewReconciler(discoverer, services, time.Duration(cfg.Interval), metrics)
}
