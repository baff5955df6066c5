package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roleman/aws"
	"roleman/cache"
	"roleman/config"
)

type fakeAPI struct {
	registrations int
	starts        int
	polls         int

	registerErr error
	startErr    error
	tokenErrs   []error
	token       *aws.Token

	interval  time.Duration
	expiresIn time.Duration
}

func (f *fakeAPI) RegisterClient(ctx context.Context) (*aws.ClientRegistration, error) {
	f.registrations++
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &aws.ClientRegistration{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		ExpiresAt:    time.Now().Add(90 * 24 * time.Hour),
	}, nil
}

func (f *fakeAPI) StartDeviceAuthorization(ctx context.Context, reg *aws.ClientRegistration, startURL string) (*aws.DeviceAuthorization, error) {
	f.starts++
	if f.startErr != nil {
		return nil, f.startErr
	}
	interval := f.interval
	if interval == 0 {
		interval = time.Second
	}
	expiresIn := f.expiresIn
	if expiresIn == 0 {
		expiresIn = 10 * time.Minute
	}
	return &aws.DeviceAuthorization{
		DeviceCode:              "device-code",
		UserCode:                "ABCD-EFGH",
		VerificationURI:         "https://device.sso.example.com/",
		VerificationURIComplete: "https://device.sso.example.com/?user_code=ABCD-EFGH",
		Interval:                interval,
		ExpiresAt:               time.Now().Add(expiresIn),
	}, nil
}

func (f *fakeAPI) CreateToken(ctx context.Context, reg *aws.ClientRegistration, deviceCode string) (*aws.Token, error) {
	f.polls++
	if len(f.tokenErrs) > 0 {
		err := f.tokenErrs[0]
		f.tokenErrs = f.tokenErrs[1:]
		return nil, err
	}
	token := f.token
	if token == nil {
		token = &aws.Token{AccessToken: "access-token", ExpiresAt: time.Now().Add(8 * time.Hour)}
	}
	return token, nil
}

func testIdentity() *config.Identity {
	return &config.Identity{
		Name:     "work",
		StartURL: "https://acme.awsapps.com/start",
		Region:   "us-east-1",
	}
}

func newTestFlow(t *testing.T, api ProviderAPI) *Flow {
	t.Helper()
	store, err := cache.NewStore(t.TempDir())
	require.NoError(t, err)
	flow := NewFlow(api, store)
	flow.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	flow.loadExternal = func(string) (*cache.ExternalToken, bool) { return nil, false }
	return flow
}

func TestExternalTokenIsReusedReadOnly(t *testing.T) {
	api := &fakeAPI{}
	flow := newTestFlow(t, api)
	flow.loadExternal = func(startURL string) (*cache.ExternalToken, bool) {
		return &cache.ExternalToken{
			StartURL:    startURL,
			Region:      "us-east-1",
			AccessToken: "shared-token",
			ExpiresAt:   time.Now().Add(time.Hour),
		}, true
	}

	session, err := flow.Session(context.Background(), testIdentity(), false)
	require.NoError(t, err)
	assert.Equal(t, "shared-token", session.AccessToken)
	assert.Zero(t, api.starts)
}

func TestPendingResponsesPollExactlyOncePerSignal(t *testing.T) {
	api := &fakeAPI{tokenErrs: []error{
		aws.ErrAuthorizationPending,
		aws.ErrAuthorizationPending,
		aws.ErrAuthorizationPending,
	}}
	flow := newTestFlow(t, api)

	session, err := flow.Session(context.Background(), testIdentity(), false)
	require.NoError(t, err)
	assert.Equal(t, "access-token", session.AccessToken)
	// N pending responses followed by one success is exactly N+1 polls.
	assert.Equal(t, 4, api.polls)
}

func TestSlowDownGrowsPollingInterval(t *testing.T) {
	api := &fakeAPI{interval: time.Second, tokenErrs: []error{aws.ErrSlowDown, aws.ErrAuthorizationPending}}
	flow := newTestFlow(t, api)

	var intervals []time.Duration
	flow.sleep = func(ctx context.Context, d time.Duration) error {
		intervals = append(intervals, d)
		return nil
	}

	_, err := flow.Session(context.Background(), testIdentity(), false)
	require.NoError(t, err)
	require.Len(t, intervals, 2)
	assert.Greater(t, intervals[0], time.Second)
	assert.Equal(t, intervals[0], intervals[1])
}

func TestDenialIsTerminal(t *testing.T) {
	api := &fakeAPI{tokenErrs: []error{aws.ErrAuthorizationDenied}}
	flow := newTestFlow(t, api)

	_, err := flow.Session(context.Background(), testIdentity(), false)
	assert.ErrorIs(t, err, ErrAuthorizationDenied)
	assert.Equal(t, 1, api.polls)
}

func TestExpiredDeviceCodeIsTerminal(t *testing.T) {
	api := &fakeAPI{tokenErrs: []error{aws.ErrDeviceCodeExpired}}
	flow := newTestFlow(t, api)

	_, err := flow.Session(context.Background(), testIdentity(), false)
	assert.ErrorIs(t, err, ErrDeviceCodeExpired)
}

func TestNetworkErrorsRetryUntilDeviceCodeWindowCloses(t *testing.T) {
	api := &fakeAPI{
		expiresIn: time.Minute,
		tokenErrs: []error{errors.New("connection reset"), errors.New("connection reset")},
	}
	flow := newTestFlow(t, api)

	base := time.Now()
	elapsed := time.Duration(0)
	flow.now = func() time.Time { return base.Add(elapsed) }
	flow.sleep = func(ctx context.Context, d time.Duration) error {
		elapsed += 30 * time.Second
		return nil
	}

	_, err := flow.Session(context.Background(), testIdentity(), false)
	// Two failed polls push the clock past the one-minute window.
	assert.ErrorIs(t, err, ErrDeviceCodeExpired)
	assert.Equal(t, 2, api.polls)
}

func TestCachedSessionSkipsDeviceAuthorization(t *testing.T) {
	api := &fakeAPI{}
	flow := newTestFlow(t, api)

	first, err := flow.Session(context.Background(), testIdentity(), false)
	require.NoError(t, err)

	second, err := flow.Session(context.Background(), testIdentity(), false)
	require.NoError(t, err)
	assert.Equal(t, first.AccessToken, second.AccessToken)
	assert.Equal(t, 1, api.starts)
}

func TestExpiredCachedTokenRestartsFlow(t *testing.T) {
	api := &fakeAPI{token: &aws.Token{AccessToken: "short-lived", ExpiresAt: time.Now().Add(time.Minute)}}
	flow := newTestFlow(t, api)

	_, err := flow.Session(context.Background(), testIdentity(), false)
	require.NoError(t, err)

	// A stale-but-present cache file must lead back to NoToken, not crash.
	flow.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	api.token = &aws.Token{AccessToken: "fresh", ExpiresAt: time.Now().Add(8 * time.Hour)}

	session, err := flow.Session(context.Background(), testIdentity(), false)
	require.NoError(t, err)
	assert.Equal(t, "fresh", session.AccessToken)
	assert.Equal(t, 2, api.starts)
}

func TestIgnoreCacheForcesFreshAuthorization(t *testing.T) {
	api := &fakeAPI{}
	flow := newTestFlow(t, api)

	_, err := flow.Session(context.Background(), testIdentity(), false)
	require.NoError(t, err)

	_, err = flow.Session(context.Background(), testIdentity(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, api.starts)
}

func TestClientRegistrationIsReused(t *testing.T) {
	api := &fakeAPI{}
	flow := newTestFlow(t, api)

	_, err := flow.Session(context.Background(), testIdentity(), true)
	require.NoError(t, err)
	_, err = flow.Session(context.Background(), testIdentity(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, api.registrations)
	assert.Equal(t, 2, api.starts)
}

func TestUserActionPromptFiresOnce(t *testing.T) {
	api := &fakeAPI{tokenErrs: []error{aws.ErrAuthorizationPending}}
	flow := newTestFlow(t, api)

	prompts := 0
	flow.OnUserAction = func(url, code string) {
		prompts++
		assert.Contains(t, url, "user_code=ABCD-EFGH")
		assert.Equal(t, "ABCD-EFGH", code)
	}

	_, err := flow.Session(context.Background(), testIdentity(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, prompts)
}

func TestCancellationStopsPolling(t *testing.T) {
	api := &fakeAPI{tokenErrs: []error{aws.ErrAuthorizationPending, aws.ErrAuthorizationPending}}
	flow := newTestFlow(t, api)

	ctx, cancel := context.WithCancel(context.Background())
	flow.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := flow.Session(ctx, testIdentity(), false)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, api.polls)
}
