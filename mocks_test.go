package deskd_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/deskd/deskd"
)

// MockUserStore implements deskd.UserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*deskd.User, error) {
	args := m.Called(ctx, email)
	var user *deskd.User
	if u := args.Get(0); u != nil {
		user = u.(*deskd.User)
	}
	return user, args.Error(1)
}

func (m *MockUserStore) GetByID(ctx context.Context, id string) (*deskd.User, error) {
	args := m.Called(ctx, id)
	var user *deskd.User
	if u := args.Get(0); u != nil {
		user = u.(*deskd.User)
	}
	return user, args.Error(1)
}

func (m *MockUserStore) Create(ctx context.Context, record *deskd.User) (*deskd.User, error) {
	args := m.Called(ctx, record)
	var user *deskd.User
	if u := args.Get(0); u != nil {
		user = u.(*deskd.User)
	}
	return user, args.Error(1)
}

func (m *MockUserStore) LinkFederated(ctx context.Context, id string, subjectID string) (*deskd.User, error) {
	args := m.Called(ctx, id, subjectID)
	var user *deskd.User
	if u := args.Get(0); u != nil {
		user = u.(*deskd.User)
	}
	return user, args.Error(1)
}

// MockAssertionVerifier implements deskd.AssertionVerifier
type MockAssertionVerifier struct {
	mock.Mock
}

func (m *MockAssertionVerifier) Verify(ctx context.Context, assertion string) (*deskd.VerifiedAssertion, error) {
	args := m.Called(ctx, assertion)
	var verified *deskd.VerifiedAssertion
	if v := args.Get(0); v != nil {
		verified = v.(*deskd.VerifiedAssertion)
	}
	return verified, args.Error(1)
}

// MockConfig implements deskd.Config
type MockConfig struct {
	mock.Mock
}

func (m *MockConfig) GetSigningKey() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetTokenExpiration() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockConfig) GetIssuer() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetAudience() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

func (m *MockConfig) GetFederatedIssuer() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetFederatedJWKSURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetFederatedClientID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetStoreTimeout() time.Duration {
	args := m.Called()
	return args.Get(0).(time.Duration)
}

func newMockConfig() *MockConfig {
	cfg := new(MockConfig)
	cfg.On("GetSigningKey").Return("test-signing-key")
	cfg.On("GetTokenExpiration").Return(24)
	cfg.On("GetIssuer").Return("test-issuer")
	cfg.On("GetAudience").Return([]string{"test:audience"})
	cfg.On("GetStoreTimeout").Return(5 * time.Second)
	return cfg
}

// MockAuthenticator implements deskd.Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Signup(ctx context.Context, name, email, password string) (*deskd.AuthResult, error) {
	args := m.Called(ctx, name, email, password)
	var result *deskd.AuthResult
	if r := args.Get(0); r != nil {
		result = r.(*deskd.AuthResult)
	}
	return result, args.Error(1)
}

func (m *MockAuthenticator) Login(ctx context.Context, email, password string) (*deskd.AuthResult, error) {
	args := m.Called(ctx, email, password)
	var result *deskd.AuthResult
	if r := args.Get(0); r != nil {
		result = r.(*deskd.AuthResult)
	}
	return result, args.Error(1)
}

func (m *MockAuthenticator) FederatedLogin(ctx context.Context, assertion string) (*deskd.AuthResult, error) {
	args := m.Called(ctx, assertion)
	var result *deskd.AuthResult
	if r := args.Get(0); r != nil {
		result = r.(*deskd.AuthResult)
	}
	return result, args.Error(1)
}

func (m *MockAuthenticator) VerifyToken(ctx context.Context, token string) (*deskd.IdentitySummary, error) {
	args := m.Called(ctx, token)
	var summary *deskd.IdentitySummary
	if s := args.Get(0); s != nil {
		summary = s.(*deskd.IdentitySummary)
	}
	return summary, args.Error(1)
}

func (m *MockAuthenticator) Profile(ctx context.Context, userID string) (*deskd.IdentitySummary, error) {
	args := m.Called(ctx, userID)
	var summary *deskd.IdentitySummary
	if s := args.Get(0); s != nil {
		summary = s.(*deskd.IdentitySummary)
	}
	return summary, args.Error(1)
}
