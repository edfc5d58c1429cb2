package impl

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"herald/config"
	deliverycontext "herald/internal/delivery/context"
	"herald/internal/domain/entity"
	domainerrors "herald/internal/domain/errors"
	"herald/internal/domain/repository"
	"herald/internal/domain/service"
	"herald/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// stateTTL bounds how long an issued OAuth state stays redeemable.
const stateTTL = 10 * time.Minute

type pendingAuthorization struct {
	redirectTo string
	expiresAt  time.Time
}

// authService implements the AuthUsecase interface: it drives the provider
// authorization-code flow and turns a successful exchange into a persisted
// credential, a provisioned identity and a session token.
type authService struct {
	oauth           service.OAuthService
	credentialRepo  repository.CredentialRepository
	provisioner     usecase.KeyProvisioner
	profiles        usecase.ProfileUsecase
	tokens          service.TokenService
	defaultRedirect string
	logger          *slog.Logger

	// pending maps issued states to their frontend redirect target. It is the
	// sole owner of state validity: a state is redeemable at most once and only
	// until its TTL elapses.
	mu      sync.Mutex
	pending map[string]pendingAuthorization
}

// AuthServiceParams holds dependencies for the auth service, injected by Fx.
type AuthServiceParams struct {
	fx.In

	OAuth          service.OAuthService
	CredentialRepo repository.CredentialRepository
	Provisioner    usecase.KeyProvisioner
	Profiles       usecase.ProfileUsecase
	Tokens         service.TokenService
	Config         *config.Config
	Logger         *slog.Logger
}

// NewAuthService is the constructor for authService. It receives all dependencies as interfaces.
func NewAuthService(params AuthServiceParams) usecase.AuthUsecase {
	defaultRedirect := ""
	if params.Config != nil {
		defaultRedirect = params.Config.Frontend.CallbackURL
	}

	return &authService{
		oauth:           params.OAuth,
		credentialRepo:  params.CredentialRepo,
		provisioner:     params.Provisioner,
		profiles:        params.Profiles,
		tokens:          params.Tokens,
		defaultRedirect: defaultRedirect,
		logger:          params.Logger,
		pending:         make(map[string]pendingAuthorization),
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *authService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Authorize builds the provider authorization URL for a new merchant connection.
func (srv *authService) Authorize(ctx context.Context, input *usecase.AuthorizeInput) (*usecase.AuthorizeOutput, error) {
	redirectTo := srv.defaultRedirect
	if input != nil && input.RedirectTo != "" {
		redirectTo = input.RedirectTo
	}

	state, err := generateState()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate oauth state")
	}

	srv.rememberState(state, redirectTo)
	authorizationURL := srv.oauth.BuildAuthorizationURL(state)

	srv.log(ctx).Info("Initiated OAuth authorization", slog.String("provider", srv.oauth.Provider().String()))

	return &usecase.AuthorizeOutput{AuthorizationURL: authorizationURL}, nil
}

// HandleCallback completes the authorization-code exchange.
func (srv *authService) HandleCallback(ctx context.Context, input *usecase.CallbackInput) (*usecase.CallbackOutput, error) {
	redirectTo, ok := srv.consumeState(input.State)
	if !ok {
		return nil, domainerrors.ErrOAuthStateInvalid.WrapMessage("state is unknown or expired")
	}

	grant, err := srv.oauth.ExchangeCode(ctx, input.Code)
	if err != nil {
		srv.log(ctx).Error("Authorization code exchange failed", slog.Any("error", err))

		return nil, domainerrors.ErrOAuthCodeInvalid.WrapMessage("authorization code exchange failed")
	}

	credential, err := srv.credentialRepo.Upsert(ctx, &entity.Credential{
		MerchantID:  grant.MerchantID,
		AccessToken: grant.AccessToken,
		Environment: grant.Environment,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to persist merchant credential")
	}

	if _, err := srv.provisioner.GetOrCreateIdentity(ctx, grant.MerchantID, credential); err != nil {
		// The credential stays persisted; provisioning is retried on the next
		// profile operation.
		return nil, errors.Wrap(err, "failed to provision merchant identity")
	}

	// Initial publish is best-effort: a relay outage must not break the OAuth flow.
	published := true
	if _, err := srv.profiles.PrepareAndPublishProfile(ctx, grant.MerchantID); err != nil {
		srv.log(ctx).Warn("Initial profile publish failed, continuing OAuth flow", slog.String("merchantID", grant.MerchantID), slog.Any("error", err))
		published = false
	}

	sessionToken, err := srv.tokens.GenerateToken(grant.MerchantID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue session token")
	}

	srv.log(ctx).Info("Completed OAuth exchange", slog.String("merchantID", grant.MerchantID), slog.Bool("profilePublished", published))

	return &usecase.CallbackOutput{
		MerchantID:       grant.MerchantID,
		SessionToken:     sessionToken,
		ProfilePublished: published,
		RedirectTo:       redirectTo,
	}, nil
}

func (srv *authService) rememberState(state, redirectTo string) {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	now := time.Now()
	for issued, pending := range srv.pending {
		if now.After(pending.expiresAt) {
			delete(srv.pending, issued)
		}
	}

	srv.pending[state] = pendingAuthorization{
		redirectTo: redirectTo,
		expiresAt:  now.Add(stateTTL),
	}
}

// consumeState redeems an issued state. A state validates at most once; expired
// or never-issued states report false.
func (srv *authService) consumeState(state string) (string, bool) {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	pending, ok := srv.pending[state]
	delete(srv.pending, state)
	if !ok || time.Now().After(pending.expiresAt) {
		return "", false
	}

	return pending.redirectTo, true
}

// generateState returns a cryptographically random state parameter.
func generateState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.WithStack(err)
	}

	return hex.EncodeToString(buf), nil
}
