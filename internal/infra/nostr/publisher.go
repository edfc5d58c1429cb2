package nostr

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"herald/config"
	"herald/internal/domain/entity"
	"herald/internal/domain/service"

	gonostr "github.com/nbd-wtf/go-nostr"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

const (
	defaultRelay            = "wss://relay.damus.io"
	defaultReferenceBaseURL = "https://njump.me"
	defaultPublishTimeout   = 15 * time.Second
)

// profileDocument is the kind-0 metadata content published for a merchant.
// Field names follow the metadata conventions of the network.
type profileDocument struct {
	Name        string   `json:"name"`
	About       string   `json:"about"`
	Banner      string   `json:"banner"`
	Picture     string   `json:"picture"`
	Bot         bool     `json:"bot"`
	DisplayName string   `json:"display_name"`
	Hashtags    []string `json:"hashtags"`
	Locations   []string `json:"locations"`
	Namespace   string   `json:"namespace"`
	NIP05       string   `json:"nip05"`
	ProfileType string   `json:"profile_type"`
	Website     string   `json:"website"`
}

// publisher implements the PublisherGateway interface by signing kind-0
// metadata events and pushing them to the configured relays.
type publisher struct {
	relays           []string
	referenceBaseURL string
	publishTimeout   time.Duration
	logger           *slog.Logger
}

// PublisherParams holds dependencies for the publisher, injected by Fx.
type PublisherParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

// NewPublisher is the constructor for publisher.
func NewPublisher(params PublisherParams) service.PublisherGateway {
	relays := []string{defaultRelay}
	referenceBaseURL := defaultReferenceBaseURL
	publishTimeout := defaultPublishTimeout

	if cfg := params.Config.Nostr; cfg != nil {
		if len(cfg.Relays) > 0 {
			relays = cfg.Relays
		}
		if cfg.ReferenceBaseURL != "" {
			referenceBaseURL = cfg.ReferenceBaseURL
		}
		if cfg.PublishTimeout > 0 {
			publishTimeout = cfg.PublishTimeout
		}
	}

	return &publisher{
		relays:           relays,
		referenceBaseURL: referenceBaseURL,
		publishTimeout:   publishTimeout,
		logger:           params.Logger,
	}
}

// Publish signs the profile as a kind-0 metadata event and publishes it to
// every configured relay. One accepting relay is enough for success; the event
// replaces any previously published metadata for the same key.
func (p *publisher) Publish(ctx context.Context, profile *entity.Profile, identity *entity.CryptographicIdentity) (*service.ProfileReference, error) {
	content, err := json.Marshal(profileDocument{
		Name:        profile.Name,
		About:       profile.About,
		Banner:      profile.Banner,
		Picture:     profile.Picture,
		Bot:         profile.Bot,
		DisplayName: profile.DisplayName,
		Hashtags:    profile.Hashtags,
		Locations:   profile.Locations,
		Namespace:   profile.Namespace,
		NIP05:       profile.NIP05,
		ProfileType: profile.ProfileType.String(),
		Website:     profile.Website,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal profile document")
	}

	event := gonostr.Event{
		PubKey:    identity.PublicKey,
		CreatedAt: gonostr.Now(),
		Kind:      gonostr.KindProfileMetadata,
		Tags:      gonostr.Tags{},
		Content:   string(content),
	}
	if err := event.Sign(identity.PrivateKey); err != nil {
		return nil, errors.Wrap(err, "failed to sign profile event")
	}

	published := false
	var lastErr error
	for _, relayURL := range p.relays {
		if err := p.publishTo(ctx, relayURL, &event); err != nil {
			p.logger.Warn("Relay rejected profile event", slog.String("relay", relayURL), slog.Any("error", err))
			lastErr = err

			continue
		}
		published = true
	}
	if !published {
		return nil, errors.Wrap(lastErr, "no relay accepted the profile event")
	}

	npub, err := EncodePublicKey(identity.PublicKey)
	if err != nil {
		return nil, err
	}

	return &service.ProfileReference{
		URL:    p.referenceBaseURL + "/" + npub,
		Handle: npub,
	}, nil
}

// Fetch reads the newest published metadata event for the identity back from
// the relays.
func (p *publisher) Fetch(ctx context.Context, identity *entity.CryptographicIdentity) (*entity.Profile, error) {
	filter := gonostr.Filter{
		Kinds:   []int{gonostr.KindProfileMetadata},
		Authors: []string{identity.PublicKey},
		Limit:   1,
	}

	var newest *gonostr.Event
	for _, relayURL := range p.relays {
		event, err := p.queryOne(ctx, relayURL, filter)
		if err != nil {
			p.logger.Warn("Relay query failed", slog.String("relay", relayURL), slog.Any("error", err))

			continue
		}
		if event != nil && (newest == nil || event.CreatedAt > newest.CreatedAt) {
			newest = event
		}
	}
	if newest == nil {
		return nil, errors.New("no published profile event found")
	}

	var doc profileDocument
	if err := json.Unmarshal([]byte(newest.Content), &doc); err != nil {
		return nil, errors.Wrap(err, "failed to decode profile document")
	}

	profileType := entity.ProfileType(doc.ProfileType)
	if !profileType.IsValid() {
		profileType = entity.ProfileTypeOther
	}

	npub, err := EncodePublicKey(identity.PublicKey)
	if err != nil {
		return nil, err
	}

	return &entity.Profile{
		Name:        doc.Name,
		About:       doc.About,
		Banner:      doc.Banner,
		Picture:     doc.Picture,
		Bot:         doc.Bot,
		DisplayName: doc.DisplayName,
		Hashtags:    emptyIfNil(doc.Hashtags),
		Locations:   emptyIfNil(doc.Locations),
		Namespace:   doc.Namespace,
		NIP05:       doc.NIP05,
		ProfileType: profileType,
		Website:     doc.Website,
		PublicKey:   identity.PublicKey,
		ProfileURL:  p.referenceBaseURL + "/" + npub,
	}, nil
}

func (p *publisher) publishTo(ctx context.Context, relayURL string, event *gonostr.Event) error {
	publishCtx, cancel := context.WithTimeout(ctx, p.publishTimeout)
	defer cancel()

	relay, err := gonostr.RelayConnect(publishCtx, relayURL)
	if err != nil {
		return errors.Wrapf(err, "failed to connect to relay %s", relayURL)
	}
	defer relay.Close()

	return errors.Wrapf(relay.Publish(publishCtx, *event), "failed to publish to relay %s", relayURL)
}

func (p *publisher) queryOne(ctx context.Context, relayURL string, filter gonostr.Filter) (*gonostr.Event, error) {
	queryCtx, cancel := context.WithTimeout(ctx, p.publishTimeout)
	defer cancel()

	relay, err := gonostr.RelayConnect(queryCtx, relayURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to relay %s", relayURL)
	}
	defer relay.Close()

	events, err := relay.QuerySync(queryCtx, filter)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query relay %s", relayURL)
	}
	if len(events) == 0 {
		return nil, nil
	}

	return events[0], nil
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}

	return values
}
