package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"roleman/aws"
	"roleman/cache"
	"roleman/config"
)

// TTL is how long a cached catalog snapshot is served before a re-fetch is
// required.
const TTL = 24 * time.Hour

// ErrNoMatchingRole is reported when filtering leaves no selectable entries.
var ErrNoMatchingRole = errors.New("no roles match the current filters (try --show-all)")

// Entry is one (account, role) pair with the identity rules already merged
// in. Entries are immutable snapshots.
type Entry struct {
	AccountID   string
	AccountName string
	RoleName    string
	Alias       string
	Precedence  int
	Ignored     bool
}

// DisplayName returns the alias when one is configured, otherwise the
// account name.
func (e Entry) DisplayName() string {
	if e.Alias != "" {
		return e.Alias
	}
	return e.AccountName
}

// Label is the composite string the selector matches queries against.
func (e Entry) Label() string {
	return fmt.Sprintf("%s (%s) %s", e.DisplayName(), e.AccountID, e.RoleName)
}

// Lister is the slice of the provider listing API the builder needs.
type Lister interface {
	ListAccounts(ctx context.Context, accessToken string) ([]aws.Account, error)
	ListAccountRoles(ctx context.Context, accessToken, accountID string) ([]string, error)
}

// Options controls one catalog load.
type Options struct {
	// IgnoreCache bypasses the snapshot cache and forces a fetch.
	IgnoreCache bool
	// ShowAll disables the ignore rules for this run without touching the
	// cache; aliases and precedence still apply.
	ShowAll bool
	// RefreshAfter re-fetches the snapshot in the background once it is
	// older than this, while the current snapshot is served immediately.
	// Zero disables background refresh.
	RefreshAfter time.Duration
}

// Builder lists accounts and roles for an authenticated session and merges
// identity rules into catalog entries.
type Builder struct {
	lister Lister
	store  *cache.Store

	now        func() time.Time
	background func(task func())
}

// snapshot is the cache unit: the raw unfiltered pairs for one identity plus
// the fetch time. Rules are re-applied on every load so --show-all and
// configuration edits never require a re-fetch.
type snapshot struct {
	Identity  string    `json:"identity"`
	FetchedAt time.Time `json:"fetched_at"`
	Pairs     []pair    `json:"pairs"`
}

type pair struct {
	AccountID   string `json:"account_id"`
	AccountName string `json:"account_name"`
	RoleName    string `json:"role_name"`
}

// NewBuilder creates a catalog builder over the given lister and cache.
func NewBuilder(lister Lister, store *cache.Store) *Builder {
	return &Builder{
		lister:     lister,
		store:      store,
		now:        time.Now,
		background: func(task func()) { go task() },
	}
}

// Load returns the catalog for the session's identity, serving a cached
// snapshot when one is fresh enough and fetching otherwise.
func (b *Builder) Load(ctx context.Context, accessToken string, identity *config.Identity, opts Options) ([]Entry, error) {
	key := cache.Key("roles", identity.Name, identity.StartURL)

	if !opts.IgnoreCache {
		var snap snapshot
		if b.store.Get(key, &snap) {
			if opts.RefreshAfter > 0 && b.now().Sub(snap.FetchedAt) > opts.RefreshAfter {
				b.background(func() {
					if err := b.refresh(context.Background(), accessToken, identity, key); err != nil {
						log.Debug("background catalog refresh failed", "identity", identity.Name, "err", err)
					}
				})
			}
			return applyRules(identity, snap.Pairs, opts.ShowAll), nil
		}
	}

	pairs, err := b.fetch(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	b.put(key, identity.Name, pairs)
	return applyRules(identity, pairs, opts.ShowAll), nil
}

// refresh re-fetches the identity's catalog and atomically replaces the
// cached snapshot. It never touches a snapshot already being served.
func (b *Builder) refresh(ctx context.Context, accessToken string, identity *config.Identity, key string) error {
	pairs, err := b.fetch(ctx, accessToken)
	if err != nil {
		return err
	}
	b.put(key, identity.Name, pairs)
	return nil
}

func (b *Builder) put(key, identityName string, pairs []pair) {
	snap := snapshot{Identity: identityName, FetchedAt: b.now(), Pairs: pairs}
	if err := b.store.Put(key, snap, TTL); err != nil {
		log.Debug("failed to cache catalog snapshot", "identity", identityName, "err", err)
	}
}

func (b *Builder) fetch(ctx context.Context, accessToken string) ([]pair, error) {
	accounts, err := b.lister.ListAccounts(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog: %w", err)
	}

	var pairs []pair
	for _, account := range accounts {
		roles, err := b.lister.ListAccountRoles(ctx, accessToken, account.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to build catalog: %w", err)
		}
		for _, role := range roles {
			pairs = append(pairs, pair{
				AccountID:   account.ID,
				AccountName: account.Name,
				RoleName:    role,
			})
		}
	}
	return pairs, nil
}

// applyRules merges identity rules into raw pairs: globally ignored accounts
// are dropped, then roles on the account-level or identity-level ignore
// lists, then aliases and precedence are attached from the winning rule.
// showAll keeps ignored entries (flagged) instead of dropping them.
func applyRules(identity *config.Identity, pairs []pair, showAll bool) []Entry {
	rules := identity.EffectiveRules()

	var entries []Entry
	for _, p := range pairs {
		rule, hasRule := rules[p.AccountID]
		entry := Entry{
			AccountID:   p.AccountID,
			AccountName: p.AccountName,
			RoleName:    p.RoleName,
		}
		if hasRule {
			entry.Alias = rule.Alias
			entry.Precedence = rule.Precedence
		}

		switch {
		case hasRule && rule.Ignore:
			entry.Ignored = true
		case hasRule && slices.Contains(rule.IgnoreRoles, p.RoleName):
			entry.Ignored = true
		case slices.Contains(identity.IgnoreRoles, p.RoleName):
			entry.Ignored = true
		}

		if entry.Ignored && !showAll {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

// SortBase orders entries by precedence descending, then display name, then
// role name. This is the alphabetical ranking and the fallback order for
// entries without history.
func SortBase(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		if a.Precedence != b.Precedence {
			if a.Precedence > b.Precedence {
				return -1
			}
			return 1
		}
		if c := strings.Compare(strings.ToLower(a.DisplayName()), strings.ToLower(b.DisplayName())); c != 0 {
			return c
		}
		return strings.Compare(a.RoleName, b.RoleName)
	})
}
