package reconcile

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/dynsix/dynsix/pkg/dns"
	"github.com/dynsix/dynsix/pkg/ip"
	appmetrics "github.com/dynsix/dynsix/pkg/metrics"
	"github.com/dynsix/dynsix/pkg/utils"
)

// Service describes one AAAA record to reconcile
type Service struct {
	// Name of the service, used for logging purposes
	Name string
	// Domain the record belongs to
	FQDN string
	// Name of the record within the domain
	RecordName string
	// Interface identifier whose last 64 bits identify the service within the prefix
	Suffix netip.Addr
	// TTL for the record, in seconds
	TTL int
	// DNS provider managing the record
	Provider dns.Provider
}

// Reconciler discovers the current IPv6 prefix and reconciles the AAAA record
// of every configured service against it
type Reconciler struct {
	discoverer ip.Discoverer
	services   []*serviceState
	interval   time.Duration
	metrics    *appmetrics.AppMetrics
}

// NewReconciler creates a new Reconciler instance
// When interval is zero, Run performs a single pass and returns
func NewReconciler(discoverer ip.Discoverer, services []Service, interval time.Duration, metrics *appmetrics.AppMetrics) (*Reconciler, error) {
	if discoverer == nil {
		return nil, errors.New("discoverer is required")
	}
	if len(services) == 0 {
		return nil, errors.New("at least one service is required")
	}

	states := make([]*serviceState, len(services))
	for i, svc := range services {
		if svc.Provider == nil {
			return nil, fmt.Errorf("service '%s' has no DNS provider", svc.Name)
		}
		if !svc.Suffix.IsValid() {
			return nil, fmt.Errorf("service '%s' has an invalid suffix", svc.Name)
		}
		states[i] = &serviceState{svc: svc}
	}

	return &Reconciler{
		discoverer: discoverer,
		services:   states,
		interval:   interval,
		metrics:    metrics,
	}, nil
}

// Run performs reconciliation passes until the context is canceled
// With no interval configured, a single pass is performed and its error returned
func (r *Reconciler) Run(ctx context.Context) error {
	log := utils.LogFromContext(ctx)

	if r.interval <= 0 {
		return r.ReconcileAll(ctx)
	}

	log.InfoContext(ctx, "Reconciler started", "interval", r.interval)

	// Run immediately
	// In interval mode a failed pass is not fatal; the next tick is the retry
	err := r.ReconcileAll(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Reconciliation pass failed", "error", err)
	}

	// Run on an interval until the context is canceled
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			err = r.ReconcileAll(ctx)
			if err != nil {
				log.ErrorContext(ctx, "Reconciliation pass failed", "error", err)
			}
		}
	}
}

// ReconcileAll performs a single reconciliation pass over all services
// It returns an error only when the public address could not be discovered,
// since no service can be reconciled without a prefix; per-service failures
// are reported and never interrupt the other services
func (r *Reconciler) ReconcileAll(ctx context.Context) error {
	log := utils.LogFromContext(ctx)

	prefix, err := r.discoverer.CurrentAddress(ctx)
	if err != nil {
		return fmt.Errorf("failed to discover the public IPv6 address: %w", err)
	}

	log.DebugContext(ctx, "Discovered public IPv6 address", "ip", prefix.String())

	for _, ss := range r.services {
		r.reconcileService(ctx, ss, prefix)
	}

	return nil
}

// reconcileService reconciles a single service: fetch, decide, then the
// chosen write, with failures confined to this service
func (r *Reconciler) reconcileService(ctx context.Context, ss *serviceState, prefix netip.Addr) {
	svc := ss.svc
	svcLog := utils.LogFromContext(ctx).With("service", svc.Name, "fqdn", svc.FQDN, "record", svc.RecordName)

	target := MergeAddress(prefix, svc.Suffix)
	svcLog.DebugContext(ctx, "Computed target address", "target", target.String())

	remote, err := svc.Provider.GetRecord(ctx, svc.FQDN, svc.RecordName)
	if err != nil {
		svcLog.ErrorContext(ctx, "Error fetching current record", "error", err)
		ss.setResult(target, ActionNone, err)
		r.metrics.RecordReconciliation(svc.Name, ActionNone.String(), false)
		return
	}

	action, err := Decide(target, remote)
	if err != nil {
		svcLog.ErrorContext(ctx, "Error deciding corrective action", "error", err)
		ss.setResult(target, ActionNone, err)
		r.metrics.RecordReconciliation(svc.Name, ActionNone.String(), false)
		return
	}

	switch action {
	case ActionCreate:
		err = svc.Provider.CreateRecord(ctx, svc.FQDN, svc.RecordName, target, svc.TTL)
	case ActionUpdate:
		err = svc.Provider.ReplaceRecord(ctx, svc.FQDN, svc.RecordName, target, svc.TTL)
	case ActionNone:
		// Already converged; no write is performed
	}

	if err != nil {
		svcLog.ErrorContext(ctx, "Error writing record", "action", action.String(), "target", target.String(), "error", err)
	} else {
		svcLog.InfoContext(ctx, "Reconciled service", "action", action.String(), "target", target.String())
	}

	ss.setResult(target, action, err)
	r.metrics.RecordReconciliation(svc.Name, action.String(), err == nil)
}
