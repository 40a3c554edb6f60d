package dns

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/dynsix/dynsix/pkg/config"
	appmetrics "github.com/dynsix/dynsix/pkg/metrics"
)

const gandiDefaultEndpoint = "https://api.gandi.net/v5"

// GandiProvider implements the Provider interface for Gandi LiveDNS
type GandiProvider struct {
	name       string
	apiKey     string
	endpoint   string
	metrics    *appmetrics.AppMetrics
	httpClient *http.Client
}

// NewGandiProvider creates a new Gandi LiveDNS provider
func NewGandiProvider(name string, cfg *config.GandiConfig, metrics *appmetrics.AppMetrics) (*GandiProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("API key is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = gandiDefaultEndpoint
	}
	endpoint = strings.TrimSuffix(endpoint, "/")

	return &GandiProvider{
		name:     name,
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
		metrics:  metrics,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Name returns the provider's name
func (g *GandiProvider) Name() string {
	return g.name
}

// GandiError represents an error payload from the Gandi API
type GandiError struct {
	Object  string `json:"object"`
	Cause   string `json:"cause"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Error implements the error interface
func (e *GandiError) Error() string {
	return fmt.Sprintf("[%d][%s] %s", e.Code, e.Object, e.Message)
}

// gandiRecordSet is the payload for reading and writing a record set
type gandiRecordSet struct {
	Values []string `json:"rrset_values"`
	TTL    int      `json:"rrset_ttl"`
}

// gandiMessage is the confirmation payload returned by write operations
type gandiMessage struct {
	Message string `json:"message"`
}

// GetRecord fetches the current AAAA record for (domain, name)
// Returns (nil, nil) when the API reports that the record does not exist
func (g *GandiProvider) GetRecord(ctx context.Context, domain string, name string) (*Record, error) {
	var rs gandiRecordSet
	statusCode, err := g.performJSONRequest(ctx, http.MethodGet, g.recordURL(domain, name), nil, &rs)
	if statusCode == http.StatusNotFound {
		// The record does not exist
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &Record{
		Values: rs.Values,
		TTL:    rs.TTL,
	}, nil
}

// CreateRecord creates the AAAA record with a single value
func (g *GandiProvider) CreateRecord(ctx context.Context, domain string, name string, addr netip.Addr, ttl int) error {
	return g.writeRecord(ctx, http.MethodPost, domain, name, addr, ttl)
}

// ReplaceRecord overwrites the AAAA record with a single value
func (g *GandiProvider) ReplaceRecord(ctx context.Context, domain string, name string, addr netip.Addr, ttl int) error {
	return g.writeRecord(ctx, http.MethodPut, domain, name, addr, ttl)
}

func (g *GandiProvider) writeRecord(ctx context.Context, method string, domain string, name string, addr netip.Addr, ttl int) error {
	body := gandiRecordSet{
		Values: []string{addr.String()},
		TTL:    ttl,
	}

	var msg gandiMessage
	_, err := g.performJSONRequest(ctx, method, g.recordURL(domain, name), body, &msg)
	if err != nil {
		return err
	}

	// Successful writes return a confirmation message
	slog.DebugContext(ctx, "Gandi record written",
		slog.String("domain", domain),
		slog.String("name", name),
		slog.String("message", msg.Message),
	)

	return nil
}

func (g *GandiProvider) recordURL(domain string, name string) string {
	return fmt.Sprintf("%s/livedns/domains/%s/records/%s/AAAA", g.endpoint, domain, name)
}

// performJSONRequest performs a request against the Gandi API and decodes the
// response into dest
// The response is classified by its status code once: 2xx responses are
// decoded as dest, everything else is parsed as a Gandi error payload and
// returned as an error, with the status code returned alongside it
func (g *GandiProvider) performJSONRequest(ctx context.Context, method string, url string, data any, dest any) (statusCode int, err error) {
	start := time.Now()
	var success bool
	if g.metrics != nil {
		defer func() {
			g.metrics.RecordAPICall("gandi", method, "/livedns/domains", success, time.Since(start))
		}()
	}

	var bodyReader io.Reader
	if data != nil {
		var bodyData []byte
		bodyData, err = json.Marshal(data)
		if err != nil {
			return 0, fmt.Errorf("error marshalling request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyData)
	}

	reqCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, method, url, bodyReader)
	if err != nil {
		return 0, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "ApiKey "+g.apiKey)
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := g.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request error: %w", err)
	}
	defer res.Body.Close() //nolint:errcheck

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return res.StatusCode, readGandiError(res)
	}

	if dest != nil {
		err = json.NewDecoder(res.Body).Decode(dest)
		if err != nil {
			return res.StatusCode, fmt.Errorf("error decoding JSON response: %w", err)
		}
	}

	success = true
	return res.StatusCode, nil
}

// readGandiError parses the error payload of a non-2xx response
func readGandiError(res *http.Response) error {
	body, _ := io.ReadAll(res.Body)

	var gandiErr GandiError
	err := json.Unmarshal(body, &gandiErr)
	if err != nil || gandiErr.Code == 0 {
		return fmt.Errorf("invalid response status code HTTP %d; response: %s", res.StatusCode, string(body))
	}

	return &gandiErr
}
