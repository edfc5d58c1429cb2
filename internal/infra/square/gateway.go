package square

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"herald/internal/domain/entity"
	"herald/internal/domain/service"

	"github.com/pkg/errors"
)

const (
	squareVersion = "2025-01-23"

	// stringSchemaRef is Square's schema reference for string-valued custom attributes.
	stringSchemaRef = "https://developer-production-s.squarecdn.com/schemas/v1/common.json#squareup.common.String"
)

// Gateway talks to the Square Merchants, Catalog and Custom Attributes APIs on
// behalf of an authorized merchant.
type Gateway struct {
	httpClient *http.Client

	// baseURL, when set, overrides environment-based host resolution.
	baseURL string
}

// NewGateway creates a new Square provider gateway.
func NewGateway() service.ProviderGateway {
	return &Gateway{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Provider returns the payment platform this gateway talks to.
func (g *Gateway) Provider() entity.Provider {
	return entity.ProviderSquare
}

func (g *Gateway) apiBaseURL(credential *entity.Credential) string {
	if g.baseURL != "" {
		return g.baseURL
	}
	if credential.Environment == entity.EnvironmentProduction {
		return productionBaseURL
	}

	return sandboxBaseURL
}

// apiError is the error payload shape shared by Square API responses.
type apiError struct {
	Errors []struct {
		Category string `json:"category"`
		Code     string `json:"code"`
		Detail   string `json:"detail"`
	} `json:"errors"`
}

func (g *Gateway) do(ctx context.Context, credential *entity.Credential, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode request body")
		}
		reader = strings.NewReader(string(payload))
	}

	req, err := http.NewRequestWithContext(ctx, method, g.apiBaseURL(credential)+path, reader)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %s %s request", method, path)
	}
	req.Header.Set("Authorization", "Bearer "+credential.AccessToken)
	req.Header.Set("Square-Version", squareVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "request to %s failed", path)
	}

	return resp, nil
}

func readAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var payload apiError
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Errors) > 0 {
		first := payload.Errors[0]

		return errors.Errorf("square api error %d: %s %s: %s", resp.StatusCode, first.Category, first.Code, first.Detail)
	}

	return errors.Errorf("square api error %d: %s", resp.StatusCode, string(body))
}

// GetMerchantMetadata fetches the merchant record plus its locations, which
// carry the descriptive fields the merchant record itself lacks.
func (g *Gateway) GetMerchantMetadata(ctx context.Context, credential *entity.Credential) (*entity.MerchantMetadata, error) {
	resp, err := g.do(ctx, credential, http.MethodGet, "/v2/merchants/"+url.PathEscape(credential.MerchantID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readAPIError(resp)
	}

	var merchantResponse struct {
		Merchant struct {
			ID           string `json:"id"`
			BusinessName string `json:"business_name"`
			Country      string `json:"country"`
			LanguageCode string `json:"language_code"`
			Currency     string `json:"currency"`
			Status       string `json:"status"`
		} `json:"merchant"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&merchantResponse); err != nil {
		return nil, errors.Wrap(err, "failed to decode merchant response")
	}

	metadata := &entity.MerchantMetadata{
		ID:           merchantResponse.Merchant.ID,
		BusinessName: merchantResponse.Merchant.BusinessName,
		Country:      merchantResponse.Merchant.Country,
		LanguageCode: merchantResponse.Merchant.LanguageCode,
		Currency:     merchantResponse.Merchant.Currency,
		Status:       merchantResponse.Merchant.Status,
		Categories:   []string{},
		Locations:    []entity.MerchantLocation{},
	}

	// Locations are best-effort enrichment; a merchant without any still has a
	// usable metadata record.
	if err := g.fillLocations(ctx, credential, metadata); err != nil {
		return nil, err
	}

	return metadata, nil
}

func (g *Gateway) fillLocations(ctx context.Context, credential *entity.Credential, metadata *entity.MerchantMetadata) error {
	resp, err := g.do(ctx, credential, http.MethodGet, "/v2/locations", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readAPIError(resp)
	}

	var locationsResponse struct {
		Locations []struct {
			Name          string `json:"name"`
			Description   string `json:"description"`
			WebsiteURL    string `json:"website_url"`
			LogoURL       string `json:"logo_url"`
			PosBackground string `json:"pos_background_url"`
			MCC           string `json:"mcc"`
			Address       struct {
				Locality string `json:"locality"`
			} `json:"address"`
		} `json:"locations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&locationsResponse); err != nil {
		return errors.Wrap(err, "failed to decode locations response")
	}

	for _, location := range locationsResponse.Locations {
		metadata.Locations = append(metadata.Locations, entity.MerchantLocation{
			Name:     location.Name,
			Locality: location.Address.Locality,
		})

		// The first location holding a value wins for merchant-level fields.
		if metadata.Description == "" {
			metadata.Description = location.Description
		}
		if metadata.WebsiteURL == "" {
			metadata.WebsiteURL = location.WebsiteURL
		}
		if metadata.LogoURL == "" {
			metadata.LogoURL = location.LogoURL
		}
		if metadata.BannerURL == "" {
			metadata.BannerURL = location.PosBackground
		}
		if location.MCC != "" && len(metadata.Categories) == 0 {
			metadata.Categories = append(metadata.Categories, location.MCC)
		}
	}

	return nil
}

// ListCatalogItems pages through the merchant's catalog and returns the
// sellable items.
func (g *Gateway) ListCatalogItems(ctx context.Context, credential *entity.Credential) ([]entity.CatalogItem, error) {
	items := []entity.CatalogItem{}
	cursor := ""

	for {
		path := "/v2/catalog/list?types=ITEM"
		if cursor != "" {
			path += "&cursor=" + url.QueryEscape(cursor)
		}

		resp, err := g.do(ctx, credential, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}

		var catalogResponse struct {
			Cursor  string `json:"cursor"`
			Objects []struct {
				Type     string `json:"type"`
				ID       string `json:"id"`
				ItemData struct {
					Name        string `json:"name"`
					Description string `json:"description"`
				} `json:"item_data"`
			} `json:"objects"`
		}

		if resp.StatusCode != http.StatusOK {
			err := readAPIError(resp)
			resp.Body.Close()

			return nil, err
		}
		if err := json.NewDecoder(resp.Body).Decode(&catalogResponse); err != nil {
			resp.Body.Close()

			return nil, errors.Wrap(err, "failed to decode catalog response")
		}
		resp.Body.Close()

		for _, object := range catalogResponse.Objects {
			if object.Type != "ITEM" {
				continue
			}
			items = append(items, entity.CatalogItem{
				ID:          object.ID,
				Name:        object.ItemData.Name,
				Description: object.ItemData.Description,
			})
		}

		cursor = catalogResponse.Cursor
		if cursor == "" {
			return items, nil
		}
	}
}

// GetAttribute reads a merchant-scoped custom attribute. A 404 from Square
// means the attribute has no stored value yet.
func (g *Gateway) GetAttribute(ctx context.Context, credential *entity.Credential, name string) (string, error) {
	path := "/v2/merchants/" + url.PathEscape(credential.MerchantID) + "/custom-attributes/" + url.PathEscape(name)
	resp, err := g.do(ctx, credential, http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)

		return "", service.ErrAttributeNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", readAPIError(resp)
	}

	var attributeResponse struct {
		CustomAttribute struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		} `json:"custom_attribute"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&attributeResponse); err != nil {
		return "", errors.Wrap(err, "failed to decode custom attribute response")
	}

	return attributeResponse.CustomAttribute.Value, nil
}

// SetAttribute upserts a merchant-scoped custom attribute. A 404 here means
// the attribute definition does not exist on the provider side yet.
func (g *Gateway) SetAttribute(ctx context.Context, credential *entity.Credential, name, value string) error {
	path := "/v2/merchants/" + url.PathEscape(credential.MerchantID) + "/custom-attributes/" + url.PathEscape(name)
	body := map[string]any{
		"custom_attribute": map[string]any{
			"value": value,
		},
	}

	resp, err := g.do(ctx, credential, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)

		return service.ErrAttributeSchemaMissing
	}
	if resp.StatusCode != http.StatusOK {
		return readAPIError(resp)
	}
	io.Copy(io.Discard, resp.Body)

	return nil
}

// DefineAttributeSchema creates the string-valued custom attribute definition.
// Square answers 409 when the definition already exists; that is treated as
// success so concurrent definers converge.
func (g *Gateway) DefineAttributeSchema(ctx context.Context, credential *entity.Credential, name string) error {
	body := map[string]any{
		"custom_attribute_definition": map[string]any{
			"key":         name,
			"name":        name,
			"description": "Merchant identity material managed by herald",
			"visibility":  "VISIBILITY_READ_WRITE_VALUES",
			"schema": map[string]any{
				"$ref": stringSchemaRef,
			},
		},
	}

	resp, err := g.do(ctx, credential, http.MethodPost, "/v2/merchants/custom-attribute-definitions", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		io.Copy(io.Discard, resp.Body)

		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return readAPIError(resp)
	}
	io.Copy(io.Discard, resp.Body)

	return nil
}
