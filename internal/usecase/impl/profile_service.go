package impl

import (
	"context"
	"log/slog"

	deliverycontext "herald/internal/delivery/context"
	"herald/internal/domain/entity"
	domainerrors "herald/internal/domain/errors"
	"herald/internal/domain/repository"
	"herald/internal/domain/service"
	"herald/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// profileService implements the ProfileUsecase interface. It is the single
// entry point sequencing credential lookup, key provisioning, provider metadata
// fetch, profile assembly and publishing, keeping each step's failure
// distinguishable for the caller.
type profileService struct {
	credentialRepo repository.CredentialRepository
	provisioner    usecase.KeyProvisioner
	gateway        service.ProviderGateway
	publisher      service.PublisherGateway
	keys           service.KeyService
	logger         *slog.Logger
}

// ProfileServiceParams holds dependencies for the profile service, injected by Fx.
type ProfileServiceParams struct {
	fx.In

	CredentialRepo repository.CredentialRepository
	Provisioner    usecase.KeyProvisioner
	Gateway        service.ProviderGateway
	Publisher      service.PublisherGateway
	Keys           service.KeyService
	Logger         *slog.Logger
}

// NewProfileService is the constructor for profileService. It receives all dependencies as interfaces.
func NewProfileService(params ProfileServiceParams) usecase.ProfileUsecase {
	return &profileService{
		credentialRepo: params.CredentialRepo,
		provisioner:    params.Provisioner,
		gateway:        params.Gateway,
		publisher:      params.Publisher,
		keys:           params.Keys,
		logger:         params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *profileService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// credential loads the merchant's stored credential, translating a missing row
// into the terminal UnknownMerchant outcome.
func (srv *profileService) credential(ctx context.Context, merchantID string) (*entity.Credential, error) {
	credential, err := srv.credentialRepo.Get(ctx, merchantID)
	if errors.Is(err, repository.ErrCredentialNotFound) {
		return nil, domainerrors.ErrUnknownMerchant.WrapMessage("no credential stored for merchant")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load merchant credential")
	}

	return credential, nil
}

// prepare sequences credential lookup, key provisioning, metadata fetch and
// assembly. Each step's failure stays distinguishable through the domain errors.
func (srv *profileService) prepare(ctx context.Context, merchantID string) (*entity.Profile, *entity.CryptographicIdentity, error) {
	credential, err := srv.credential(ctx, merchantID)
	if err != nil {
		return nil, nil, err
	}

	identity, err := srv.provisioner.GetOrCreateIdentity(ctx, merchantID, credential)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to provision merchant identity")
	}

	metadata, err := srv.gateway.GetMerchantMetadata(ctx, credential)
	if err != nil {
		// Provisioning side effects above are intentionally not rolled back.
		srv.log(ctx).Error("Failed to fetch merchant metadata", slog.String("merchantID", merchantID), slog.Any("error", err))

		return nil, nil, domainerrors.ErrProviderUnavailable.WrapMessage("failed to fetch merchant metadata")
	}

	return AssembleProfile(metadata, identity), identity, nil
}

// FetchAndPrepareProfile assembles a publishable profile without publishing it.
func (srv *profileService) FetchAndPrepareProfile(ctx context.Context, merchantID string) (*entity.Profile, error) {
	profile, _, err := srv.prepare(ctx, merchantID)

	return profile, err
}

// PrepareAndPublishProfile prepares the profile and pushes it to the identity
// network. On publish failure the assembled profile is returned alongside the
// error so the caller keeps the already-computed data.
func (srv *profileService) PrepareAndPublishProfile(ctx context.Context, merchantID string) (*entity.Profile, error) {
	profile, identity, err := srv.prepare(ctx, merchantID)
	if err != nil {
		return nil, err
	}

	return srv.publish(ctx, merchantID, profile, identity)
}

// PublishProfile publishes caller-supplied profile data under the merchant's identity.
func (srv *profileService) PublishProfile(ctx context.Context, merchantID string, input *usecase.PublishProfileInput) (*entity.Profile, error) {
	_, identity, err := srv.provisionedIdentity(ctx, merchantID)
	if err != nil {
		return nil, err
	}

	profileType := entity.ProfileType(input.ProfileType)
	if !profileType.IsValid() {
		profileType = entity.ProfileTypeOther
	}

	namespace := input.Namespace
	if namespace == "" {
		namespace = DefaultNamespace
	}

	profile := &entity.Profile{
		Name:        input.Name,
		About:       input.About,
		Banner:      input.Banner,
		Picture:     input.Picture,
		Bot:         input.Bot,
		DisplayName: input.DisplayName,
		Hashtags:    emptyIfNil(input.Hashtags),
		Locations:   emptyIfNil(input.Locations),
		Namespace:   namespace,
		NIP05:       input.NIP05,
		ProfileType: profileType,
		Website:     input.Website,
		PublicKey:   identity.PublicKey,
	}

	return srv.publish(ctx, merchantID, profile, identity)
}

// GetProfile reads the currently published profile back from the identity network.
func (srv *profileService) GetProfile(ctx context.Context, merchantID string) (*entity.Profile, error) {
	_, identity, err := srv.provisionedIdentity(ctx, merchantID)
	if err != nil {
		return nil, err
	}

	profile, err := srv.publisher.Fetch(ctx, identity)
	if err != nil {
		srv.log(ctx).Error("Failed to fetch published profile", slog.String("merchantID", merchantID), slog.Any("error", err))

		return nil, domainerrors.ErrNotFound.WrapMessage("no published profile found for merchant")
	}

	profile.PublicKey = identity.PublicKey

	return profile, nil
}

// SellerInfo returns provider merchant metadata and the sellable catalog for
// the authenticated merchant.
func (srv *profileService) SellerInfo(ctx context.Context, merchantID string) (*usecase.SellerInfoOutput, error) {
	credential, err := srv.credential(ctx, merchantID)
	if err != nil {
		return nil, err
	}

	metadata, err := srv.gateway.GetMerchantMetadata(ctx, credential)
	if err != nil {
		srv.log(ctx).Error("Failed to fetch merchant metadata", slog.String("merchantID", merchantID), slog.Any("error", err))

		return nil, domainerrors.ErrProviderUnavailable.WrapMessage("failed to fetch merchant metadata")
	}

	products, err := srv.gateway.ListCatalogItems(ctx, credential)
	if err != nil {
		srv.log(ctx).Error("Failed to fetch merchant catalog", slog.String("merchantID", merchantID), slog.Any("error", err))

		return nil, domainerrors.ErrProviderUnavailable.WrapMessage("failed to fetch merchant catalog")
	}

	return &usecase.SellerInfoOutput{Metadata: metadata, Products: products}, nil
}

// provisionedIdentity loads the credential and derives the identity from already
// provisioned key material. It never generates keys implicitly.
func (srv *profileService) provisionedIdentity(ctx context.Context, merchantID string) (*entity.Credential, *entity.CryptographicIdentity, error) {
	credential, err := srv.credential(ctx, merchantID)
	if err != nil {
		return nil, nil, err
	}

	if !credential.HasPrivateKey() {
		return nil, nil, domainerrors.ErrKeyNotProvisioned.WrapMessage("merchant has no provisioned key material")
	}

	identity, err := srv.keys.Derive(credential.PrivateKeyValue())
	if err != nil {
		return nil, nil, domainerrors.ErrKeyConsistencyViolation.WrapMessage("stored private key is malformed")
	}

	return credential, identity, nil
}

// publish pushes the profile to the identity network and stamps the resolvable
// URL on success. The publish itself runs detached from the caller's
// cancellation: the network has no rollback, so an abandoned request must not
// abort an exchange already in flight.
func (srv *profileService) publish(ctx context.Context, merchantID string, profile *entity.Profile, identity *entity.CryptographicIdentity) (*entity.Profile, error) {
	reference, err := srv.publisher.Publish(context.WithoutCancel(ctx), profile, identity)
	if err != nil {
		srv.log(ctx).Error("Failed to publish profile", slog.String("merchantID", merchantID), slog.Any("error", err))

		return profile, domainerrors.ErrPublishFailed.WrapMessage("failed to publish profile")
	}

	profile.ProfileURL = reference.URL
	srv.log(ctx).Info("Published merchant profile", slog.String("merchantID", merchantID), slog.String("profileURL", reference.URL))

	return profile, nil
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}

	return values
}
