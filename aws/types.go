package aws

import "time"

// Account is one AWS account visible to an SSO session.
type Account struct {
	ID   string `json:"account_id"`
	Name string `json:"account_name"`
}

// ClientRegistration is an OIDC client registration. Registrations are
// long-lived and rate-limited, so they are cached and reused across runs.
type ClientRegistration struct {
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// DeviceAuthorization is one started device-authorization exchange: the URL
// and code the user completes in a browser, plus the polling parameters.
type DeviceAuthorization struct {
	DeviceCode              string
	UserCode                string
	VerificationURI         string
	VerificationURIComplete string
	Interval                time.Duration
	ExpiresAt               time.Time
}

// Token is an SSO access token obtained from the device-authorization grant.
type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// RoleCredentials are temporary credentials for one account/role.
type RoleCredentials struct {
	AccessKeyID     string    `json:"access_key_id"`
	SecretAccessKey string    `json:"secret_access_key"`
	SessionToken    string    `json:"session_token"`
	Expiration      time.Time `json:"expiration"`
}
