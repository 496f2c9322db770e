package deskd

import "time"

// SimpleConfig is a literal-friendly Config implementation. Build it once at
// process start and inject it; nothing reads configuration ambiently.
type SimpleConfig struct {
	// SigningKey is the symmetric session token key. Never logged.
	SigningKey string
	// TokenExpiration is the session token TTL in hours. Zero means the
	// 30 day default.
	TokenExpiration int
	Issuer          string
	Audience        []string

	// FederatedIssuer is the trusted external issuer, matched against the
	// assertion's iss claim.
	FederatedIssuer string
	// FederatedJWKSURL is where the issuer publishes its signing keys.
	FederatedJWKSURL string
	// FederatedClientID is this system's registered client identifier,
	// matched against the assertion's aud claim.
	FederatedClientID string

	// StoreTimeout bounds individual credential store calls. Zero means 5s.
	StoreTimeout time.Duration
}

// DefaultTokenExpiration is the session token lifetime in hours (30 days).
const DefaultTokenExpiration = 24 * 30

const defaultStoreTimeout = 5 * time.Second

func (c SimpleConfig) GetSigningKey() string { return c.SigningKey }

func (c SimpleConfig) GetTokenExpiration() int {
	if c.TokenExpiration <= 0 {
		return DefaultTokenExpiration
	}
	return c.TokenExpiration
}

func (c SimpleConfig) GetIssuer() string { return c.Issuer }

func (c SimpleConfig) GetAudience() []string { return c.Audience }

func (c SimpleConfig) GetFederatedIssuer() string { return c.FederatedIssuer }

func (c SimpleConfig) GetFederatedJWKSURL() string { return c.FederatedJWKSURL }

func (c SimpleConfig) GetFederatedClientID() string { return c.FederatedClientID }

func (c SimpleConfig) GetStoreTimeout() time.Duration {
	if c.StoreTimeout <= 0 {
		return defaultStoreTimeout
	}
	return c.StoreTimeout
}

var _ Config = SimpleConfig{}
