package square

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"herald/internal/domain/entity"
	"herald/internal/domain/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIBaseURL_FollowsCredentialEnvironment(t *testing.T) {
	g := &Gateway{}

	assert.Equal(t, sandboxBaseURL, g.apiBaseURL(&entity.Credential{Environment: entity.EnvironmentSandbox}))
	assert.Equal(t, productionBaseURL, g.apiBaseURL(&entity.Credential{Environment: entity.EnvironmentProduction}))
	// Unset environment never targets production.
	assert.Equal(t, sandboxBaseURL, g.apiBaseURL(&entity.Credential{}))
}

func TestGateway_Provider(t *testing.T) {
	assert.Equal(t, entity.ProviderSquare, NewGateway().Provider())
}

func newTestGateway(server *httptest.Server) *Gateway {
	return &Gateway{httpClient: server.Client(), baseURL: server.URL}
}

func testCredential() *entity.Credential {
	return &entity.Credential{
		MerchantID:  "M1",
		AccessToken: "token",
		Environment: entity.EnvironmentSandbox,
	}
}

func squareNotFoundBody() string {
	return `{"errors":[{"category":"INVALID_REQUEST_ERROR","code":"NOT_FOUND","detail":"not found"}]}`
}

func TestGateway_GetAttribute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v2/merchants/M1/custom-attributes/herald_private_key", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		assert.Equal(t, squareVersion, r.Header.Get("Square-Version"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"custom_attribute":{"key":"herald_private_key","value":"abc123"}}`))
	}))
	defer server.Close()

	value, err := newTestGateway(server).GetAttribute(context.Background(), testCredential(), "herald_private_key")
	require.NoError(t, err)
	assert.Equal(t, "abc123", value)
}

func TestGateway_GetAttribute_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(squareNotFoundBody()))
	}))
	defer server.Close()

	_, err := newTestGateway(server).GetAttribute(context.Background(), testCredential(), "herald_private_key")
	assert.ErrorIs(t, err, service.ErrAttributeNotFound)
}

func TestGateway_SetAttribute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/merchants/M1/custom-attributes/herald_private_key", r.URL.Path)

		var payload struct {
			CustomAttribute struct {
				Value string `json:"value"`
			} `json:"custom_attribute"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "abc123", payload.CustomAttribute.Value)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"custom_attribute":{"key":"herald_private_key","value":"abc123"}}`))
	}))
	defer server.Close()

	err := newTestGateway(server).SetAttribute(context.Background(), testCredential(), "herald_private_key", "abc123")
	assert.NoError(t, err)
}

func TestGateway_SetAttribute_SchemaMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A write against an undefined attribute comes back 404.
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(squareNotFoundBody()))
	}))
	defer server.Close()

	err := newTestGateway(server).SetAttribute(context.Background(), testCredential(), "herald_private_key", "abc123")
	assert.ErrorIs(t, err, service.ErrAttributeSchemaMissing)
}

func TestGateway_DefineAttributeSchema_ConvergesWhenAlreadyDefined(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/merchants/custom-attribute-definitions", r.URL.Path)

		calls++
		w.Header().Set("Content-Type", "application/json")
		if calls > 1 {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"errors":[{"category":"INVALID_REQUEST_ERROR","code":"CONFLICT","detail":"definition already exists"}]}`))

			return
		}
		_, _ = w.Write([]byte(`{"custom_attribute_definition":{"key":"herald_private_key"}}`))
	}))
	defer server.Close()

	gateway := newTestGateway(server)
	require.NoError(t, gateway.DefineAttributeSchema(context.Background(), testCredential(), "herald_private_key"))
	// Defining the same schema again answers 409, which converges to success.
	require.NoError(t, gateway.DefineAttributeSchema(context.Background(), testCredential(), "herald_private_key"))
	assert.Equal(t, 2, calls)
}

func TestGateway_GetMerchantMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v2/merchants/M1":
			_, _ = w.Write([]byte(`{"merchant":{"id":"M1","business_name":"Shop","country":"US","language_code":"en-US","currency":"USD","status":"ACTIVE"}}`))
		case "/v2/locations":
			_, _ = w.Write([]byte(`{"locations":[
				{"name":"Downtown","address":{"locality":"Portland"},"mcc":"5812"},
				{"name":"Uptown","description":"Best espresso in town","website_url":"https://shop.example","logo_url":"https://shop.example/logo.png","pos_background_url":"https://shop.example/banner.png","address":{"locality":"Salem"}}
			]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	metadata, err := newTestGateway(server).GetMerchantMetadata(context.Background(), testCredential())
	require.NoError(t, err)
	assert.Equal(t, "M1", metadata.ID)
	assert.Equal(t, "Shop", metadata.BusinessName)
	// Descriptive fields come from the first location carrying a value.
	assert.Equal(t, "Best espresso in town", metadata.Description)
	assert.Equal(t, "https://shop.example", metadata.WebsiteURL)
	assert.Equal(t, "https://shop.example/logo.png", metadata.LogoURL)
	assert.Equal(t, "https://shop.example/banner.png", metadata.BannerURL)
	assert.Equal(t, []string{"5812"}, metadata.Categories)
	require.Len(t, metadata.Locations, 2)
	assert.Equal(t, "Portland", metadata.Locations[0].Locality)
}

func TestGateway_ListCatalogItems_PagesThroughCursor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/catalog/list", r.URL.Path)
		assert.Equal(t, "ITEM", r.URL.Query().Get("types"))

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("cursor") == "" {
			_, _ = w.Write([]byte(`{"cursor":"page2","objects":[{"type":"ITEM","id":"I1","item_data":{"name":"Espresso","description":"Double shot"}}]}`))

			return
		}
		_, _ = w.Write([]byte(`{"objects":[
			{"type":"ITEM","id":"I2","item_data":{"name":"Latte"}},
			{"type":"CATEGORY","id":"C1"}
		]}`))
	}))
	defer server.Close()

	items, err := newTestGateway(server).ListCatalogItems(context.Background(), testCredential())
	require.NoError(t, err)
	// Non-item catalog objects are skipped.
	require.Len(t, items, 2)
	assert.Equal(t, "Espresso", items[0].Name)
	assert.Equal(t, "Double shot", items[0].Description)
	assert.Equal(t, "Latte", items[1].Name)
}
