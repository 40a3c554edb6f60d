// Package ip discovers the host's current public IPv6 address.
package ip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"time"

	appmetrics "github.com/dynsix/dynsix/pkg/metrics"
)

// Discoverer returns the host's current publicly visible IPv6 address
type Discoverer interface {
	CurrentAddress(ctx context.Context) (netip.Addr, error)
}

// Compile time interface check
var _ Discoverer = (*WebDiscoverer)(nil)

// WebDiscoverer implements the Discoverer interface using an external web
// service such as ifconfig.co, which returns the caller's IP as JSON
type WebDiscoverer struct {
	queryServer string
	metrics     *appmetrics.AppMetrics
	httpClient  *http.Client
}

// NewWebDiscoverer creates a new WebDiscoverer for the given query server URL
func NewWebDiscoverer(queryServer string, metrics *appmetrics.AppMetrics) (*WebDiscoverer, error) {
	if queryServer == "" {
		return nil, errors.New("query server URL is required")
	}
	u, err := url.Parse(queryServer)
	if err != nil {
		return nil, fmt.Errorf("invalid query server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid query server URL scheme '%s'", u.Scheme)
	}

	// Dial over IPv6 only, so the query server observes the address we want to
	// derive the prefix from
	dialer := &net.Dialer{
		Timeout: 10 * time.Second,
	}
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _ string, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, "tcp6", addr)
		},
	}

	return &WebDiscoverer{
		queryServer: queryServer,
		metrics:     metrics,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
	}, nil
}

// ipInfo is the response of the query server
type ipInfo struct {
	IP string `json:"ip"`
}

// CurrentAddress performs the lookup against the query server
func (d *WebDiscoverer) CurrentAddress(ctx context.Context) (addr netip.Addr, err error) {
	if d.metrics != nil {
		defer func() {
			d.metrics.RecordDiscovery(err == nil)
		}()
	}

	reqCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, d.queryServer, nil)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	res, err := d.httpClient.Do(req)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("request error: %w", err)
	}
	defer res.Body.Close() //nolint:errcheck

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		return netip.Addr{}, fmt.Errorf("invalid response status code HTTP %d; response: %s", res.StatusCode, string(body))
	}

	var info ipInfo
	err = json.NewDecoder(res.Body).Decode(&info)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error decoding JSON response: %w", err)
	}

	addr, err = netip.ParseAddr(info.IP)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("query server returned an invalid IP address '%s': %w", info.IP, err)
	}
	if !addr.Is6() || addr.Is4In6() {
		return netip.Addr{}, fmt.Errorf("query server returned an address that is not IPv6: %s", addr)
	}

	return addr, nil
}
