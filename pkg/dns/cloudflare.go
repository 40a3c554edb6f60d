package dns

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"net/url"
	"time"

	"github.com/dynsix/dynsix/pkg/config"
	appmetrics "github.com/dynsix/dynsix/pkg/metrics"
)

const cloudflareEndpoint = "https://api.cloudflare.com/client/v4"

// CloudflareProvider implements the Provider interface for Cloudflare DNS
type CloudflareProvider struct {
	name       string
	apiToken   string
	zoneID     string
	metrics    *appmetrics.AppMetrics
	httpClient *http.Client
}

// NewCloudflareProvider creates a new Cloudflare DNS provider
func NewCloudflareProvider(name string, cfg *config.CloudflareConfig, metrics *appmetrics.AppMetrics) (*CloudflareProvider, error) {
	if cfg.APIToken == "" {
		return nil, errors.New("API token is required")
	}
	if cfg.ZoneID == "" {
		return nil, errors.New("zone ID is required")
	}

	return &CloudflareProvider{
		name:     name,
		apiToken: cfg.APIToken,
		zoneID:   cfg.ZoneID,
		metrics:  metrics,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Name returns the provider's name
func (c *CloudflareProvider) Name() string {
	return c.name
}

// cloudflareRecord represents a DNS record from the Cloudflare API
type cloudflareRecord struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl"`
}

// cloudflareResponse represents the response structure from the Cloudflare API
type cloudflareResponse struct {
	Success bool               `json:"success"`
	Errors  []CloudflareError  `json:"errors"`
	Result  []cloudflareRecord `json:"result"`
}

// cloudflareWriteResponse is the response of single-record write operations
type cloudflareWriteResponse struct {
	Success bool              `json:"success"`
	Errors  []CloudflareError `json:"errors"`
}

// CloudflareError represents an error from the Cloudflare API
type CloudflareError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *CloudflareError) Error() string {
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// GetRecord fetches the current AAAA record for (domain, name)
// Returns (nil, nil) when no record exists
func (c *CloudflareProvider) GetRecord(ctx context.Context, domain string, name string) (*Record, error) {
	records, err := c.listRecords(ctx, recordFQDN(domain, name))
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		// The record does not exist
		return nil, nil
	}

	values := make([]string, len(records))
	for i, r := range records {
		values[i] = r.Content
	}

	return &Record{
		Values: values,
		TTL:    records[0].TTL,
	}, nil
}

// CreateRecord creates the AAAA record with a single value
func (c *CloudflareProvider) CreateRecord(ctx context.Context, domain string, name string, addr netip.Addr, ttl int) error {
	return c.writeRecord(ctx, http.MethodPost, "", recordFQDN(domain, name), addr, ttl)
}

// ReplaceRecord overwrites the AAAA record with a single value
// Cloudflare keeps one record per value, so the first existing record is
// updated in place and any stray extra records are removed with it
func (c *CloudflareProvider) ReplaceRecord(ctx context.Context, domain string, name string, addr netip.Addr, ttl int) error {
	fqdn := recordFQDN(domain, name)

	existing, err := c.listRecords(ctx, fqdn)
	if err != nil {
		return fmt.Errorf("error getting existing records: %w", err)
	}
	if len(existing) == 0 {
		// Nothing to replace; create instead
		return c.writeRecord(ctx, http.MethodPost, "", fqdn, addr, ttl)
	}

	err = c.writeRecord(ctx, http.MethodPut, existing[0].ID, fqdn, addr, ttl)
	if err != nil {
		return err
	}

	for _, record := range existing[1:] {
		err = c.deleteRecord(ctx, record.ID)
		if err != nil {
			return fmt.Errorf("error deleting record %s: %w", record.ID, err)
		}
	}

	return nil
}

func (c *CloudflareProvider) listRecords(ctx context.Context, fqdn string) ([]cloudflareRecord, error) {
	start := time.Now()
	var success bool
	if c.metrics != nil {
		defer func() {
			c.metrics.RecordAPICall("cloudflare", http.MethodGet, "/zones/"+c.zoneID+"/dns_records", success, time.Since(start))
		}()
	}

	reqURL := fmt.Sprintf("%s/zones/%s/dns_records?name=%s&type=AAAA", cloudflareEndpoint, c.zoneID, url.QueryEscape(fqdn))

	reqCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request error: %w", err)
	}
	defer res.Body.Close() //nolint:errcheck

	var cfRes cloudflareResponse
	err = json.NewDecoder(res.Body).Decode(&cfRes)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if !cfRes.Success {
		if len(cfRes.Errors) > 0 {
			return nil, &cfRes.Errors[0]
		}
		return nil, fmt.Errorf("API error: HTTP %d", res.StatusCode)
	}

	success = true
	return cfRes.Result, nil
}

// writeRecord creates (POST, empty recordID) or updates (PUT with recordID) a single record
func (c *CloudflareProvider) writeRecord(ctx context.Context, method string, recordID string, fqdn string, addr netip.Addr, ttl int) error {
	start := time.Now()
	var success bool
	if c.metrics != nil {
		defer func() {
			c.metrics.RecordAPICall("cloudflare", method, "/zones/"+c.zoneID+"/dns_records", success, time.Since(start))
		}()
	}

	reqURL := fmt.Sprintf("%s/zones/%s/dns_records", cloudflareEndpoint, c.zoneID)
	if recordID != "" {
		reqURL += "/" + recordID
	}

	record := map[string]any{
		"type":    "AAAA",
		"name":    fqdn,
		"content": addr.String(),
		"ttl":     ttl,
	}

	jsonData, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("error marshalling request body: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, method, reqURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request error: %w", err)
	}
	defer res.Body.Close() //nolint:errcheck

	var cfRes cloudflareWriteResponse
	err = json.NewDecoder(res.Body).Decode(&cfRes)
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}

	if !cfRes.Success {
		if len(cfRes.Errors) > 0 {
			return &cfRes.Errors[0]
		}
		return fmt.Errorf("API error: HTTP %d", res.StatusCode)
	}

	success = true
	return nil
}

func (c *CloudflareProvider) deleteRecord(ctx context.Context, recordID string) error {
	start := time.Now()
	var success bool
	if c.metrics != nil {
		defer func() {
			c.metrics.RecordAPICall("cloudflare", http.MethodDelete, "/zones/"+c.zoneID+"/dns_records", success, time.Since(start))
		}()
	}

	reqURL := fmt.Sprintf("%s/zones/%s/dns_records/%s", cloudflareEndpoint, c.zoneID, recordID)

	reqCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodDelete, reqURL, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request error: %w", err)
	}
	defer res.Body.Close() //nolint:errcheck

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("invalid response status code HTTP %d; response: %s", res.StatusCode, string(body))
	}

	success = true
	return nil
}

// recordFQDN returns the full name of the record within the domain
func recordFQDN(domain string, name string) string {
	if name == "" || name == "@" {
		return domain
	}
	return name + "." + domain
}
