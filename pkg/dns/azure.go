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
	"net/url"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"github.com/dynsix/dynsix/pkg/config"
	appmetrics "github.com/dynsix/dynsix/pkg/metrics"
)

// AzureProvider implements the Provider interface for Azure DNS
type AzureProvider struct {
	name              string
	subscriptionID    string
	resourceGroupName string
	zoneName          string
	credential        azcore.TokenCredential
	metrics           *appmetrics.AppMetrics
	httpClient        *http.Client
}

// NewAzureProvider creates a new Azure DNS provider
func NewAzureProvider(name string, cfg *config.AzureConfig, metrics *appmetrics.AppMetrics) (*AzureProvider, error) {
	if cfg.SubscriptionID == "" {
		return nil, errors.New("subscription ID is required")
	}
	if cfg.ResourceGroupName == "" {
		return nil, errors.New("resource group name is required")
	}
	if cfg.ZoneName == "" {
		return nil, errors.New("zone name is required")
	}

	// Create the appropriate credential based on auth method
	var (
		credential azcore.TokenCredential
		err        error
	)
	clientOpts := azcore.ClientOptions{
		Telemetry: policy.TelemetryOptions{
			Disabled: true,
		},
	}

	switch {
	case cfg.ClientID != "" && cfg.ClientSecret != "":
		// If client ID and secret are specified, use the service principal
		slog.Info("Authenticating to Azure with a service principal", slog.String("clientId", cfg.ClientID))
		credential, err = azidentity.NewClientSecretCredential(cfg.TenantID, cfg.ClientID, cfg.ClientSecret, &azidentity.ClientSecretCredentialOptions{
			ClientOptions: clientOpts,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating service principal credential: %w", err)
		}
	case cfg.ManagedIdentityClientID != "":
		// Use managed identity with a specific client ID (for user-assigned identities)
		slog.Info("Authenticating to Azure with a managed identity", slog.String("managedIdentityClientID", cfg.ManagedIdentityClientID))
		credential, err = azidentity.NewManagedIdentityCredential(&azidentity.ManagedIdentityCredentialOptions{
			ClientOptions: clientOpts,
			ID:            azidentity.ClientID(cfg.ManagedIdentityClientID),
		})
		if err != nil {
			return nil, fmt.Errorf("error creating managed identity credential: %w", err)
		}
	default:
		// Use the default credentials
		slog.Info("Authenticating to Azure with the default options")
		credential, err = azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{
			ClientOptions: clientOpts,
			TenantID:      cfg.TenantID,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating Default Azure credential: %w", err)
		}
	}

	return &AzureProvider{
		name:              name,
		subscriptionID:    cfg.SubscriptionID,
		resourceGroupName: cfg.ResourceGroupName,
		zoneName:          cfg.ZoneName,
		credential:        credential,
		metrics:           metrics,
		httpClient:        http.DefaultClient,
	}, nil
}

// Name returns the provider's name
func (a *AzureProvider) Name() string {
	return a.name
}

// azureAAAARecord represents an AAAA record value from the Azure DNS API
type azureAAAARecord struct {
	IPv6Address string `json:"ipv6Address"`
}

// azureRecordProperties represents a record set's properties from the Azure DNS API
type azureRecordProperties struct {
	TTL         int               `json:"TTL"`
	AAAARecords []azureAAAARecord `json:"AAAARecords"`
}

// azureRecordSet represents an AAAA record set
type azureRecordSet struct {
	Properties azureRecordProperties `json:"properties"`
}

// GetRecord fetches the current AAAA record set for (domain, name)
// Returns (nil, nil) when the record set does not exist
func (a *AzureProvider) GetRecord(ctx context.Context, domain string, name string) (*Record, error) {
	var rs azureRecordSet
	statusCode, err := a.performJSONRequest(ctx, http.MethodGet, domain, name, nil, &rs)
	if statusCode == http.StatusNotFound {
		// The record set does not exist
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	values := make([]string, len(rs.Properties.AAAARecords))
	for i, r := range rs.Properties.AAAARecords {
		values[i] = r.IPv6Address
	}

	return &Record{
		Values: values,
		TTL:    rs.Properties.TTL,
	}, nil
}

// CreateRecord creates the AAAA record set with a single value
func (a *AzureProvider) CreateRecord(ctx context.Context, domain string, name string, addr netip.Addr, ttl int) error {
	return a.putRecordSet(ctx, domain, name, addr, ttl)
}

// ReplaceRecord overwrites the AAAA record set with a single value
// Azure record set PUTs are create-or-replace, so this shares the
// implementation with CreateRecord
func (a *AzureProvider) ReplaceRecord(ctx context.Context, domain string, name string, addr netip.Addr, ttl int) error {
	return a.putRecordSet(ctx, domain, name, addr, ttl)
}

func (a *AzureProvider) putRecordSet(ctx context.Context, domain string, name string, addr netip.Addr, ttl int) error {
	recordSet := azureRecordSet{
		Properties: azureRecordProperties{
			TTL: ttl,
			AAAARecords: []azureAAAARecord{
				{IPv6Address: addr.String()},
			},
		},
	}

	_, err := a.performJSONRequest(ctx, http.MethodPut, domain, name, recordSet, nil)
	return err
}

// performJSONRequest performs a request against the record set for (domain, name)
// and decodes the response into dest
// Non-2xx responses are returned as errors along with their status code, so
// the caller can classify HTTP 404 on reads
func (a *AzureProvider) performJSONRequest(ctx context.Context, method string, domain string, name string, data any, dest any) (statusCode int, err error) {
	start := time.Now()
	var success bool
	if a.metrics != nil {
		defer func() {
			a.metrics.RecordAPICall("azure", method, a.recordSetPath(domain, name), success, time.Since(start))
		}()
	}

	// Get access token
	accessToken, err := a.getAccessToken(ctx)
	if err != nil {
		return 0, fmt.Errorf("error getting access token: %w", err)
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
	req, err := http.NewRequestWithContext(reqCtx, method, a.recordSetURL(domain, name), bodyReader)
	if err != nil {
		return 0, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := a.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request error: %w", err)
	}
	defer res.Body.Close() //nolint:errcheck

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		return res.StatusCode, fmt.Errorf("invalid response status code HTTP %d; response: %s", res.StatusCode, string(body))
	}

	if dest != nil {
		err = json.NewDecoder(res.Body).Decode(dest)
		if err != nil {
			return res.StatusCode, fmt.Errorf("error decoding response: %w", err)
		}
	}

	success = true
	return res.StatusCode, nil
}

// getAccessToken gets a fresh access token using the Azure identity library
func (a *AzureProvider) getAccessToken(parentCtx context.Context) (string, error) {
	tokenRequestOptions := policy.TokenRequestOptions{
		Scopes: []string{"https://management.azure.com/.default"},
	}

	ctx, cancel := context.WithTimeout(parentCtx, 20*time.Second)
	defer cancel()
	token, err := a.credential.GetToken(ctx, tokenRequestOptions)
	if err != nil {
		return "", fmt.Errorf("error getting access token: %w", err)
	}

	return token.Token, nil
}

// getRecordSetName returns the name of the record set relative to the zone
func (a *AzureProvider) getRecordSetName(domain string, name string) string {
	fqdn := strings.TrimSuffix(recordFQDN(domain, name), ".")

	if fqdn == a.zoneName {
		// Root of the zone
		return "@"
	}
	if strings.HasSuffix(fqdn, "."+a.zoneName) {
		return fqdn[:(len(fqdn) - len(a.zoneName) - 1)]
	}

	// If the record doesn't match the zone, return as-is (might be an error case)
	return fqdn
}

func (a *AzureProvider) recordSetPath(domain string, name string) string {
	return fmt.Sprintf(
		"/subscriptions/%s/resourceGroups/%s/providers/Microsoft.Network/dnsZones/%s/AAAA/%s",
		a.subscriptionID, a.resourceGroupName, a.zoneName, a.getRecordSetName(domain, name),
	)
}

func (a *AzureProvider) recordSetURL(domain string, name string) string {
	params := url.Values{}
	params.Set("api-version", "2018-05-01")

	return "https://management.azure.com" + a.recordSetPath(domain, name) + "?" + params.Encode()
}
