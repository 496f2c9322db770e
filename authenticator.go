package deskd

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// Auther orchestrates signup, login, federated login, token verification,
// and profile retrieval. Every operation is independent and stateless; the
// only shared state is the injected store, verifier, and signing key.
type Auther struct {
	store        UserStore
	tokenService TokenService
	verifier     AssertionVerifier
	storeTimeout time.Duration
	logger       Logger
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(store UserStore, cfg Config) *Auther {
	tokenService := NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenExpiration(),
		cfg.GetIssuer(),
		cfg.GetAudience(),
		defLogger{},
	)

	return &Auther{
		store:        store,
		tokenService: tokenService,
		storeTimeout: cfg.GetStoreTimeout(),
		logger:       defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = logger
	return s
}

// WithAssertionVerifier enables federated login.
func (s *Auther) WithAssertionVerifier(verifier AssertionVerifier) *Auther {
	s.verifier = verifier
	return s
}

// WithTokenService overrides the default session token service.
func (s *Auther) WithTokenService(ts TokenService) *Auther {
	s.tokenService = ts
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Signup creates a local identity and issues a session token.
func (s *Auther) Signup(ctx context.Context, name, email, password string) (*AuthResult, error) {
	if name == "" || email == "" || password == "" {
		return nil, ErrMissingField
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, WrapUpstream(err, "failed to hash password")
	}

	record := &User{
		Name:         name,
		Email:        NormalizeEmail(email),
		PasswordHash: hash,
		Provider:     ProviderLocal,
	}
	if id, err := hashid.NewUUID(record.Email); err == nil {
		record.ID = id
	} else {
		record.ID = uuid.New()
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	// No existence pre-check: the store's uniqueness constraint on email is
	// the tie-breaker, so a concurrent duplicate still surfaces as EmailTaken.
	created, err := s.store.Create(ctx, record)
	if err != nil {
		if HasTextCode(err, textCodeEmailTaken) {
			return nil, err
		}
		s.logger.Error("Signup create failed: %s", err)
		return nil, WrapUpstream(err, "failed to create identity")
	}

	return s.result(created)
}

// Login authenticates an email/password pair. Unknown email, wrong password,
// and federated-only accounts all fail identically.
func (s *Auther) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if email == "" || password == "" {
		return nil, ErrMissingField
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	user, err := s.store.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if !goerrors.IsNotFound(err) {
			s.logger.Error("Login store lookup failed: %s", err)
			return nil, WrapUpstream(err, "failed to look up identity")
		}
		// Burn a compare anyway so a miss costs the same as a mismatch.
		VerifyPassword(password, decoyHash)
		return nil, ErrInvalidCredentials
	}

	if !user.HasPassword() {
		VerifyPassword(password, decoyHash)
		s.logger.Info("Login rejected for passwordless identity %s", user.ID.String())
		return nil, ErrInvalidCredentials
	}

	if !VerifyPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.result(user)
}

// FederatedLogin validates an assertion from the trusted issuer, creating a
// federated identity on first login or linking an existing local identity by
// email match. The merge treats the issuer's email as authoritative; the
// linked account keeps its password.
func (s *Auther) FederatedLogin(ctx context.Context, assertion string) (*AuthResult, error) {
	if assertion == "" {
		return nil, ErrMissingAssertion
	}

	if s.verifier == nil {
		return nil, goerrors.New("federated login is not configured", goerrors.CategoryInternal).
			WithCode(goerrors.CodeInternal)
	}

	verified, err := s.verifier.Verify(ctx, assertion)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	user, err := s.store.GetByEmail(ctx, verified.Email)
	if err != nil {
		if !goerrors.IsNotFound(err) {
			s.logger.Error("FederatedLogin store lookup failed: %s", err)
			return nil, WrapUpstream(err, "failed to look up identity")
		}
		return s.federatedSignup(ctx, verified)
	}

	if !user.IsFederated() || user.FederatedSubjectID == "" {
		s.logger.Info("linking local identity %s to federated subject %s by email match",
			user.ID.String(), verified.SubjectID)

		user, err = s.store.LinkFederated(ctx, user.ID.String(), verified.SubjectID)
		if err != nil {
			s.logger.Error("FederatedLogin link failed: %s", err)
			return nil, WrapUpstream(err, "failed to link federated identity")
		}
	}

	return s.result(user)
}

func (s *Auther) federatedSignup(ctx context.Context, verified *VerifiedAssertion) (*AuthResult, error) {
	name := verified.Name
	if name == "" {
		name = verified.Email
	}

	record := &User{
		ID:                 uuid.New(),
		Name:               name,
		Email:              verified.Email,
		Provider:           ProviderFederated,
		FederatedSubjectID: verified.SubjectID,
	}

	created, err := s.store.Create(ctx, record)
	if err != nil {
		// Concurrent first login for the same email: the other writer won,
		// fetch its record and proceed.
		if HasTextCode(err, textCodeEmailTaken) {
			if existing, gerr := s.store.GetByEmail(ctx, verified.Email); gerr == nil {
				return s.result(existing)
			}
		}
		s.logger.Error("FederatedLogin create failed: %s", err)
		return nil, WrapUpstream(err, "failed to create federated identity")
	}

	return s.result(created)
}

// VerifyToken validates a session token and resolves the identity it binds.
// Expired, malformed, and signature failures all surface as ErrInvalidToken;
// the distinction stays in operator logging.
func (s *Auther) VerifyToken(ctx context.Context, token string) (*IdentitySummary, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	claims, err := s.tokenService.Validate(token)
	if err != nil {
		s.logger.Info("VerifyToken rejected token: %s", err)
		return nil, ErrInvalidToken
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	user, err := s.store.GetByID(ctx, claims.UserID())
	if err != nil {
		if goerrors.IsNotFound(err) {
			// Structurally valid token, but the identity is gone.
			return nil, ErrIdentityNotFound
		}
		s.logger.Error("VerifyToken store lookup failed: %s", err)
		return nil, WrapUpstream(err, "failed to resolve identity")
	}

	return Summarize(user), nil
}

// Profile resolves an already authenticated user id.
func (s *Auther) Profile(ctx context.Context, userID string) (*IdentitySummary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	user, err := s.store.GetByID(ctx, userID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		s.logger.Error("Profile store lookup failed: %s", err)
		return nil, WrapUpstream(err, "failed to resolve identity")
	}

	return Summarize(user), nil
}

func (s *Auther) result(user *User) (*AuthResult, error) {
	token, err := s.tokenService.Issue(user.ID.String())
	if err != nil {
		s.logger.Error("failed to issue session token: %s", err)
		return nil, WrapUpstream(err, "failed to issue session token")
	}

	return &AuthResult{
		User:  Summarize(user),
		Token: token,
	}, nil
}

var _ Authenticator = (*Auther)(nil)
