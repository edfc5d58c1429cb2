package square

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"herald/config"
	"herald/internal/domain/entity"
	"herald/internal/domain/service"

	"github.com/pkg/errors"
)

const (
	productionBaseURL = "https://connect.squareup.com"
	sandboxBaseURL    = "https://connect.squareupsandbox.com"
)

// OAuthService handles the Square OAuth authorization-code flow. It is
// stateless: the caller issues and validates the CSRF state parameter.
type OAuthService struct {
	appID       string
	appSecret   string
	redirectURI string
	scopes      string
	environment entity.Environment
	httpClient  *http.Client
}

// NewOAuthService creates a new Square OAuth service from the active provider
// configuration.
func NewOAuthService(cfg *config.Config) (service.OAuthService, error) {
	if cfg.Provider == nil || cfg.Provider.Square == nil {
		return nil, errors.New("square provider configuration is missing")
	}
	square := cfg.Provider.Square

	environment := entity.Environment(square.Environment)
	if !environment.IsValid() {
		environment = entity.EnvironmentSandbox
	}

	return &OAuthService{
		appID:       square.AppID,
		appSecret:   square.AppSecret,
		redirectURI: square.RedirectURI,
		scopes:      square.Scopes,
		environment: environment,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// baseURL resolves the Square API host for the configured environment.
func (s *OAuthService) baseURL() string {
	if s.environment == entity.EnvironmentProduction {
		return productionBaseURL
	}

	return sandboxBaseURL
}

// BuildAuthorizationURL constructs the Square OAuth authorization URL with a
// state parameter for CSRF protection.
func (s *OAuthService) BuildAuthorizationURL(state string) string {
	params := url.Values{}
	params.Set("client_id", s.appID)
	params.Set("scope", s.scopes)
	params.Set("session", "false")
	params.Set("state", state)
	if s.redirectURI != "" {
		params.Set("redirect_uri", s.redirectURI)
	}

	return s.baseURL() + "/oauth2/authorize?" + params.Encode()
}

// ExchangeCode exchanges an authorization code for a merchant access grant.
func (s *OAuthService) ExchangeCode(ctx context.Context, code string) (*service.OAuthGrant, error) {
	payload, err := json.Marshal(map[string]string{
		"client_id":     s.appID,
		"client_secret": s.appSecret,
		"code":          code,
		"grant_type":    "authorization_code",
		"redirect_uri":  s.redirectURI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode token exchange request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL()+"/oauth2/token", strings.NewReader(string(payload)))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create token exchange request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to exchange code for token")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)

		return nil, errors.Errorf("token exchange failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResponse struct {
		AccessToken  string `json:"access_token"`
		TokenType    string `json:"token_type"`
		MerchantID   string `json:"merchant_id"`
		ExpiresAt    string `json:"expires_at"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		return nil, errors.Wrap(err, "failed to decode token response")
	}
	if tokenResponse.MerchantID == "" || tokenResponse.AccessToken == "" {
		return nil, errors.New("token response is missing merchant_id or access_token")
	}

	return &service.OAuthGrant{
		MerchantID:  tokenResponse.MerchantID,
		AccessToken: tokenResponse.AccessToken,
		Environment: s.environment,
		Scopes:      strings.Fields(strings.ReplaceAll(s.scopes, "+", " ")),
	}, nil
}

// Provider returns the payment platform this flow authenticates against.
func (s *OAuthService) Provider() entity.Provider {
	return entity.ProviderSquare
}
