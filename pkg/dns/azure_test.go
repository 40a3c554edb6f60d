package dns

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/netip"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const azureTestPath = "/subscriptions/test-sub/resourceGroups/test-rg/providers/Microsoft.Network/dnsZones/example.com/AAAA/www?api-version=2018-05-01"

func TestAzureGetRecord(t *testing.T) {
	t.Run("Record exists", func(t *testing.T) {
		provider, mockTransport := newAzureTestProviderWithMock()

		mockTransport.SetJSONResponse(http.MethodGet, azureTestPath, 200, `{
			"properties": {
				"TTL": 300,
				"AAAARecords": [
					{"ipv6Address": "2001:db8::1"}
				]
			}
		}`)

		record, err := provider.GetRecord(t.Context(), "example.com", "www")
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, []string{"2001:db8::1"}, record.Values)
		assert.Equal(t, 300, record.TTL)

		requests := mockTransport.GetRequests()
		require.Len(t, requests, 1)
		assert.Equal(t, "Bearer mock-123", requests[0].Header.Get("Authorization"))
	})

	t.Run("Record absent on HTTP 404", func(t *testing.T) {
		provider, mockTransport := newAzureTestProviderWithMock()

		mockTransport.SetJSONResponse(http.MethodGet, azureTestPath, 404, `{
			"error": {"code": "NotFound", "message": "The resource record set was not found."}
		}`)

		record, err := provider.GetRecord(t.Context(), "example.com", "www")
		require.NoError(t, err)
		assert.Nil(t, record)
	})

	t.Run("Other errors are propagated", func(t *testing.T) {
		provider, mockTransport := newAzureTestProviderWithMock()

		mockTransport.SetJSONResponse(http.MethodGet, azureTestPath, 500, `{
			"error": {"code": "InternalError", "message": "boom"}
		}`)

		_, err := provider.GetRecord(t.Context(), "example.com", "www")
		require.Error(t, err)
		require.ErrorContains(t, err, "HTTP 500")
	})
}

func TestAzurePutRecordSet(t *testing.T) {
	provider, mockTransport := newAzureTestProviderWithMock()

	mockTransport.SetJSONResponse(http.MethodPut, azureTestPath, 200, `{
		"properties": {
			"TTL": 300,
			"AAAARecords": [
				{"ipv6Address": "2001:db8::1"}
			]
		}
	}`)

	addr := netip.MustParseAddr("2001:db8::1")
	err := provider.ReplaceRecord(t.Context(), "example.com", "www", addr, 300)
	require.NoError(t, err)

	requests := mockTransport.GetRequests()
	require.Len(t, requests, 1)
	putReq := requests[0]
	assert.Equal(t, http.MethodPut, putReq.Method)
	assert.Equal(t, "Bearer mock-123", putReq.Header.Get("Authorization"))

	body, err := io.ReadAll(putReq.Body)
	require.NoError(t, err)

	var rs azureRecordSet
	err = json.Unmarshal(body, &rs)
	require.NoError(t, err)
	assert.Equal(t, 300, rs.Properties.TTL)
	require.Len(t, rs.Properties.AAAARecords, 1)
	assert.Equal(t, "2001:db8::1", rs.Properties.AAAARecords[0].IPv6Address)
}

func TestAzureGetRecordSetName(t *testing.T) {
	provider := &AzureProvider{zoneName: "example.com"}

	tests := []struct {
		domain   string
		name     string
		expected string
	}{
		{"example.com", "www", "www"},
		{"example.com", "@", "@"},
		{"example.com", "", "@"},
		{"sub.example.com", "www", "www.sub"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, provider.getRecordSetName(tt.domain, tt.name))
		})
	}
}

type mockAzureTokenProvider struct{}

func (mockAzureTokenProvider) GetToken(ctx context.Context, options policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{
		Token:     "mock-123",
		ExpiresOn: time.Now().Add(time.Hour),
	}, nil
}

// newAzureTestProviderWithMock creates a test Azure provider with a mock HTTP client
func newAzureTestProviderWithMock() (*AzureProvider, *MockHTTPTransport) {
	mockClient, mockTransport := NewMockHTTPClient()

	provider := &AzureProvider{
		name:              "test",
		subscriptionID:    "test-sub",
		resourceGroupName: "test-rg",
		zoneName:          "example.com",
		credential:        mockAzureTokenProvider{},
		httpClient:        mockClient,
	}

	return provider, mockTransport
}
