package handoff

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"roleman/aws"
	"roleman/cache"
)

// expirySafety keeps cached credentials from being handed out right before
// they lapse mid-command.
const expirySafety = time.Minute

// CredentialAPI is the slice of the provider API the exchanger needs.
type CredentialAPI interface {
	GetRoleCredentials(ctx context.Context, accessToken, accountID, roleName string) (*aws.RoleCredentials, error)
}

// Exchanger swaps a selected role for temporary credentials, caching them so
// re-selecting a still-valid role skips the network exchange.
type Exchanger struct {
	api   CredentialAPI
	store *cache.Store

	now func() time.Time
}

// NewExchanger builds an exchanger over the given provider API and cache.
func NewExchanger(api CredentialAPI, store *cache.Store) *Exchanger {
	return &Exchanger{api: api, store: store, now: time.Now}
}

// Credentials returns temporary credentials for the role, from cache when a
// still-valid set exists and from the provider otherwise.
func (e *Exchanger) Credentials(ctx context.Context, accessToken, startURL, region, accountID, roleName string, ignoreCache bool) (*aws.RoleCredentials, error) {
	key := cache.Key("creds", startURL, region, accountID, roleName)

	if !ignoreCache {
		var cached aws.RoleCredentials
		if e.store.Get(key, &cached) && e.now().Add(expirySafety).Before(cached.Expiration) {
			log.Debug("using cached role credentials", "account", accountID, "role", roleName)
			return &cached, nil
		}
	}

	creds, err := e.api.GetRoleCredentials(ctx, accessToken, accountID, roleName)
	if err != nil {
		return nil, err
	}

	ttl := creds.Expiration.Sub(e.now()) - expirySafety
	if ttl > 0 {
		if err := e.store.Put(key, creds, ttl); err != nil {
			log.Debug("failed to cache role credentials", "account", accountID, "err", err)
		}
	}
	return creds, nil
}
