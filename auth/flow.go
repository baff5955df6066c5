package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"roleman/aws"
	"roleman/cache"
	"roleman/config"
)

// Terminal failures of the device-authorization flow. Both restart the state
// machine on the next invocation; neither is retried within one run.
var (
	ErrAuthorizationDenied = errors.New("authorization denied by the identity provider")
	ErrDeviceCodeExpired   = errors.New("device code expired before sign-in completed")
)

// ProviderAPI is the slice of the identity-provider protocol the flow
// engine drives.
type ProviderAPI interface {
	RegisterClient(ctx context.Context) (*aws.ClientRegistration, error)
	StartDeviceAuthorization(ctx context.Context, reg *aws.ClientRegistration, startURL string) (*aws.DeviceAuthorization, error)
	CreateToken(ctx context.Context, reg *aws.ClientRegistration, deviceCode string) (*aws.Token, error)
}

// Session is an authenticated SSO session for one identity.
type Session struct {
	Identity    string `json:"identity"`
	StartURL    string `json:"start_url"`
	Region      string `json:"region"`
	AccessToken string `json:"access_token"`
	// ExpiresAt is checked before every use; an expired session is never
	// handed to the catalog builder.
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session token is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Flow drives the device-authorization state machine:
// NoToken → AwaitingUserAction → Polling → Authenticated, with Expired
// detected lazily on the next use of a cached token.
type Flow struct {
	api   ProviderAPI
	store *cache.Store

	// OnUserAction is called once when the user must finish sign-in in a
	// browser. Nil means no prompt is shown.
	OnUserAction func(verificationURL, userCode string)

	now          func() time.Time
	sleep        func(ctx context.Context, d time.Duration) error
	loadExternal func(startURL string) (*cache.ExternalToken, bool)
}

type flowState int

const (
	stateNoToken flowState = iota
	stateAwaitingUserAction
	statePolling
	stateAuthenticated
)

// NewFlow builds a flow engine over the given provider API and cache store.
func NewFlow(api ProviderAPI, store *cache.Store) *Flow {
	return &Flow{
		api:          api,
		store:        store,
		now:          time.Now,
		sleep:        sleepCtx,
		loadExternal: cache.LoadExternalToken,
	}
}

// Session returns an authenticated session for the identity, reusing cached
// tokens when possible. ignoreCache skips every cached-token check and
// forces a fresh device authorization.
func (f *Flow) Session(ctx context.Context, identity *config.Identity, ignoreCache bool) (*Session, error) {
	tokenKey := cache.Key("token", identity.Name, identity.StartURL)

	if !ignoreCache {
		var session Session
		if f.store.Get(tokenKey, &session) && !session.Expired(f.now()) {
			log.Debug("using cached session token", "identity", identity.Name)
			return &session, nil
		}
		// The shared AWS CLI cache is read-only to us; a device login done
		// by other tooling can still be reused.
		if external, ok := f.loadExternal(identity.StartURL); ok {
			log.Debug("reusing external sso cache token", "identity", identity.Name)
			return &Session{
				Identity:    identity.Name,
				StartURL:    identity.StartURL,
				Region:      identity.Region,
				AccessToken: external.AccessToken,
				ExpiresAt:   external.ExpiresAt,
			}, nil
		}
	}

	session, err := f.authorize(ctx, identity)
	if err != nil {
		return nil, err
	}

	ttl := session.ExpiresAt.Sub(f.now())
	if err := f.store.Put(tokenKey, session, ttl); err != nil {
		log.Debug("failed to cache session token", "identity", identity.Name, "err", err)
	}
	return session, nil
}

// authorize runs the state machine from NoToken to Authenticated.
func (f *Flow) authorize(ctx context.Context, identity *config.Identity) (*Session, error) {
	state := stateNoToken

	reg, err := f.clientRegistration(ctx, identity)
	if err != nil {
		return nil, err
	}

	deviceAuth, err := f.api.StartDeviceAuthorization(ctx, reg, identity.StartURL)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	state = stateAwaitingUserAction

	if f.OnUserAction != nil {
		f.OnUserAction(deviceAuth.VerificationURIComplete, deviceAuth.UserCode)
	}

	state = statePolling
	interval := deviceAuth.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	for state == statePolling {
		if !f.now().Before(deviceAuth.ExpiresAt) {
			return nil, ErrDeviceCodeExpired
		}

		token, err := f.api.CreateToken(ctx, reg, deviceAuth.DeviceCode)
		switch {
		case err == nil:
			state = stateAuthenticated
			return &Session{
				Identity:    identity.Name,
				StartURL:    identity.StartURL,
				Region:      identity.Region,
				AccessToken: token.AccessToken,
				ExpiresAt:   token.ExpiresAt,
			}, nil
		case errors.Is(err, aws.ErrAuthorizationPending):
		case errors.Is(err, aws.ErrSlowDown):
			interval += 5 * time.Second
			log.Debug("provider requested slower polling", "interval", interval)
		case errors.Is(err, aws.ErrDeviceCodeExpired):
			return nil, ErrDeviceCodeExpired
		case errors.Is(err, aws.ErrAuthorizationDenied):
			return nil, ErrAuthorizationDenied
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, err
		default:
			// Network failures keep polling until the device code itself
			// expires; the deadline check above bounds the retries.
			log.Debug("token poll failed, retrying", "err", err)
		}

		if err := f.sleep(ctx, interval); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("authentication failed in state %d", state)
}

// clientRegistration returns a cached registration for the identity's
// region, registering a new client only when the cache has none.
// Registrations are long-lived and rate-limited, so they are always cached.
func (f *Flow) clientRegistration(ctx context.Context, identity *config.Identity) (*aws.ClientRegistration, error) {
	key := cache.Key("client", identity.Name, identity.Region)

	var cached aws.ClientRegistration
	if f.store.Get(key, &cached) && f.now().Before(cached.ExpiresAt) {
		log.Debug("using cached client registration", "identity", identity.Name)
		return &cached, nil
	}

	reg, err := f.api.RegisterClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	if err := f.store.Put(key, reg, reg.ExpiresAt.Sub(f.now())); err != nil {
		log.Debug("failed to cache client registration", "identity", identity.Name, "err", err)
	}
	return reg, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
