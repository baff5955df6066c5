package aws

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sso"
	"github.com/aws/aws-sdk-go-v2/service/ssooidc"
	oidctypes "github.com/aws/aws-sdk-go-v2/service/ssooidc/types"
	"github.com/aws/smithy-go"
	"github.com/charmbracelet/log"
)

// Endpoint override variables, used to point the clients at a mock server.
const (
	EnvSSOEndpoint  = "ROLEMAN_SSO_ENDPOINT"
	EnvOIDCEndpoint = "ROLEMAN_OIDC_ENDPOINT"
)

const clientName = "roleman"

// Sentinel errors for the device-authorization polling loop.
var (
	ErrAuthorizationPending = errors.New("authorization pending")
	ErrSlowDown             = errors.New("slow down")
	ErrDeviceCodeExpired    = errors.New("device code expired")
	ErrAuthorizationDenied  = errors.New("authorization denied")
)

// Client wraps the SSO and OIDC service clients for one region.
type Client struct {
	ssoClient  *sso.Client
	oidcClient *ssooidc.Client
}

// NewClient initializes service clients for a specific region. Base
// endpoints may be overridden through environment variables for testing.
func NewClient(ctx context.Context, region string) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	ssoClient := sso.NewFromConfig(cfg, func(o *sso.Options) {
		if endpoint := os.Getenv(EnvSSOEndpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	oidcClient := ssooidc.NewFromConfig(cfg, func(o *ssooidc.Options) {
		if endpoint := os.Getenv(EnvOIDCEndpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return &Client{ssoClient: ssoClient, oidcClient: oidcClient}, nil
}

// RegisterClient registers a public OIDC client for the device grant.
func (c *Client) RegisterClient(ctx context.Context) (*ClientRegistration, error) {
	out, err := c.oidcClient.RegisterClient(ctx, &ssooidc.RegisterClientInput{
		ClientName: aws.String(clientName),
		ClientType: aws.String("public"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register OIDC client: %w", err)
	}
	return &ClientRegistration{
		ClientID:     aws.ToString(out.ClientId),
		ClientSecret: aws.ToString(out.ClientSecret),
		ExpiresAt:    time.Unix(out.ClientSecretExpiresAt, 0),
	}, nil
}

// StartDeviceAuthorization begins a device-authorization exchange for the
// given start URL.
func (c *Client) StartDeviceAuthorization(ctx context.Context, reg *ClientRegistration, startURL string) (*DeviceAuthorization, error) {
	out, err := c.oidcClient.StartDeviceAuthorization(ctx, &ssooidc.StartDeviceAuthorizationInput{
		ClientId:     aws.String(reg.ClientID),
		ClientSecret: aws.String(reg.ClientSecret),
		StartUrl:     aws.String(startURL),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start device authorization: %w", err)
	}
	return &DeviceAuthorization{
		DeviceCode:              aws.ToString(out.DeviceCode),
		UserCode:                aws.ToString(out.UserCode),
		VerificationURI:         aws.ToString(out.VerificationUri),
		VerificationURIComplete: aws.ToString(out.VerificationUriComplete),
		Interval:                time.Duration(out.Interval) * time.Second,
		ExpiresAt:               time.Now().Add(time.Duration(out.ExpiresIn) * time.Second),
	}, nil
}

// CreateToken polls the token endpoint once for the device grant. While the
// user has not finished signing in it returns ErrAuthorizationPending (or
// ErrSlowDown when the provider asks for a longer interval); a lapsed device
// code yields ErrDeviceCodeExpired and a rejected request
// ErrAuthorizationDenied.
func (c *Client) CreateToken(ctx context.Context, reg *ClientRegistration, deviceCode string) (*Token, error) {
	out, err := c.oidcClient.CreateToken(ctx, &ssooidc.CreateTokenInput{
		ClientId:     aws.String(reg.ClientID),
		ClientSecret: aws.String(reg.ClientSecret),
		DeviceCode:   aws.String(deviceCode),
		GrantType:    aws.String("urn:ietf:params:oauth:grant-type:device_code"),
	})
	if err != nil {
		return nil, classifyTokenError(err)
	}
	return &Token{
		AccessToken: aws.ToString(out.AccessToken),
		ExpiresAt:   time.Now().Add(time.Duration(out.ExpiresIn) * time.Second),
	}, nil
}

func classifyTokenError(err error) error {
	var pending *oidctypes.AuthorizationPendingException
	if errors.As(err, &pending) {
		return ErrAuthorizationPending
	}
	var slow *oidctypes.SlowDownException
	if errors.As(err, &slow) {
		return ErrSlowDown
	}
	var expired *oidctypes.ExpiredTokenException
	if errors.As(err, &expired) {
		return ErrDeviceCodeExpired
	}
	var denied *oidctypes.AccessDeniedException
	if errors.As(err, &denied) {
		return ErrAuthorizationDenied
	}
	return fmt.Errorf("failed to create token: %w", err)
}

// ListAccounts lists all accounts available to the access token.
func (c *Client) ListAccounts(ctx context.Context, accessToken string) ([]Account, error) {
	var accounts []Account
	var nextToken *string

	for {
		resp, err := retryThrottled(ctx, func() (*sso.ListAccountsOutput, error) {
			return c.ssoClient.ListAccounts(ctx, &sso.ListAccountsInput{
				AccessToken: aws.String(accessToken),
				NextToken:   nextToken,
			})
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list accounts: %w", err)
		}

		for _, acc := range resp.AccountList {
			accounts = append(accounts, Account{
				ID:   aws.ToString(acc.AccountId),
				Name: aws.ToString(acc.AccountName),
			})
		}

		nextToken = resp.NextToken
		if nextToken == nil {
			break
		}
	}

	return accounts, nil
}

// ListAccountRoles lists the role names available in one account.
func (c *Client) ListAccountRoles(ctx context.Context, accessToken, accountID string) ([]string, error) {
	var roles []string
	var nextToken *string

	for {
		resp, err := retryThrottled(ctx, func() (*sso.ListAccountRolesOutput, error) {
			return c.ssoClient.ListAccountRoles(ctx, &sso.ListAccountRolesInput{
				AccessToken: aws.String(accessToken),
				AccountId:   aws.String(accountID),
				NextToken:   nextToken,
			})
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list roles for account %s: %w", accountID, err)
		}

		for _, role := range resp.RoleList {
			roles = append(roles, aws.ToString(role.RoleName))
		}

		nextToken = resp.NextToken
		if nextToken == nil {
			break
		}
	}

	return roles, nil
}

// GetRoleCredentials exchanges the access token for temporary role
// credentials.
func (c *Client) GetRoleCredentials(ctx context.Context, accessToken, accountID, roleName string) (*RoleCredentials, error) {
	out, err := c.ssoClient.GetRoleCredentials(ctx, &sso.GetRoleCredentialsInput{
		AccessToken: aws.String(accessToken),
		AccountId:   aws.String(accountID),
		RoleName:    aws.String(roleName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get role credentials: %w", err)
	}
	creds := out.RoleCredentials
	if creds == nil {
		return nil, fmt.Errorf("provider returned no credentials for %s/%s", accountID, roleName)
	}
	return &RoleCredentials{
		AccessKeyID:     aws.ToString(creds.AccessKeyId),
		SecretAccessKey: aws.ToString(creds.SecretAccessKey),
		SessionToken:    aws.ToString(creds.SessionToken),
		Expiration:      time.UnixMilli(creds.Expiration),
	}, nil
}

const maxThrottleAttempts = 5

// retryThrottled retries a listing call with exponential backoff while the
// provider reports throttling. Other errors surface immediately.
func retryThrottled[T any](ctx context.Context, call func() (T, error)) (T, error) {
	var zero T
	for attempt := 1; ; attempt++ {
		out, err := call()
		if err == nil {
			return out, nil
		}
		if attempt >= maxThrottleAttempts || !isThrottleError(err) {
			return zero, err
		}
		backoff := 500 * time.Millisecond << (attempt - 1)
		log.Debug("throttled by provider, backing off", "attempt", attempt, "backoff", backoff)
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

func isThrottleError(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "TooManyRequestsException", "ThrottlingException", "Throttling":
			return true
		}
	}
	return strings.Contains(err.Error(), "TooManyRequests") ||
		strings.Contains(err.Error(), "Rate exceeded")
}

// ConsoleURL builds the AWS access portal URL that opens the given role in
// the console.
func ConsoleURL(startURL, accountID, roleName string) string {
	portal := strings.TrimSuffix(startURL, "/start")
	return fmt.Sprintf("%s/start/#/console?account_id=%s&role_name=%s", portal, accountID, roleName)
}
