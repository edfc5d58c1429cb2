package main

import (
	"context"
	"log/slog"
	"os"

	"herald/config"
	"herald/internal/delivery"
	"herald/internal/delivery/http"
	"herald/internal/delivery/http/middleware"
	"herald/internal/delivery/http/router/handler"
	"herald/internal/domain/entity"
	domainerrors "herald/internal/domain/errors"
	"herald/internal/domain/service"
	"herald/internal/infra/auth"
	logs "herald/internal/infra/log"
	"herald/internal/infra/nostr"
	"herald/internal/infra/persistence/postgres"
	"herald/internal/infra/square"
	"herald/internal/usecase/impl"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		postgres.New,
	)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			postgres.NewCredentialRepository,
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			auth.NewJWTService,
			nostr.NewKeyService,
			nostr.NewPublisher,
			newOAuthService,
			newProviderGateway,
		),
	)
}

// newOAuthService selects the OAuth implementation for the configured provider.
func newOAuthService(cfg *config.Config) (service.OAuthService, error) {
	switch activeProvider(cfg) {
	case entity.ProviderSquare:
		return square.NewOAuthService(cfg)
	default:
		return nil, domainerrors.ErrProviderNotSupported.WrapMessage("no OAuth implementation for provider " + activeProvider(cfg).String())
	}
}

// newProviderGateway selects the merchant API gateway for the configured provider.
func newProviderGateway(cfg *config.Config) (service.ProviderGateway, error) {
	switch activeProvider(cfg) {
	case entity.ProviderSquare:
		return square.NewGateway(), nil
	default:
		return nil, domainerrors.ErrProviderNotSupported.WrapMessage("no gateway implementation for provider " + activeProvider(cfg).String())
	}
}

func activeProvider(cfg *config.Config) entity.Provider {
	if cfg.Provider == nil || cfg.Provider.Use == "" {
		return entity.ProviderSquare
	}

	return entity.Provider(cfg.Provider.Use)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewKeyProvisioner,
			impl.NewProfileService,
			impl.NewAuthService,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			middleware.NewAuthMiddleware,
			middleware.NewErrorMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewOAuthHandler,
			handler.NewProfileHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				http.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
