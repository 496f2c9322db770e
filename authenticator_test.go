package deskd_test

import (
	"context"
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/deskd/deskd"
)

func notFoundErr() error {
	return goerrors.New("record not found", goerrors.CategoryNotFound).
		WithCode(goerrors.CodeNotFound)
}

func localUser(email, password string) *deskd.User {
	hash, err := deskd.HashPassword(password)
	if err != nil {
		panic(err)
	}
	return &deskd.User{
		ID:           uuid.New(),
		Name:         "Test User",
		Email:        email,
		PasswordHash: hash,
		Provider:     deskd.ProviderLocal,
	}
}

func TestSignup(t *testing.T) {
	ctx := context.Background()

	t.Run("Successful signup", func(t *testing.T) {
		store := new(MockUserStore)
		authenticator := deskd.NewAuthenticator(store, newMockConfig())

		store.On("Create", mock.Anything, mock.MatchedBy(func(u *deskd.User) bool {
			return u.Email == "new@example.com" &&
				u.Provider == deskd.ProviderLocal &&
				u.PasswordHash != "" &&
				u.PasswordHash != "password123"
		})).Return(localUser("new@example.com", "password123"), nil).Once()

		result, err := authenticator.Signup(ctx, "Test User", "New@Example.com", "password123")
		require.NoError(t, err)

		assert.NotEmpty(t, result.Token)
		assert.Equal(t, "new@example.com", result.User.Email)
		store.AssertExpectations(t)
	})

	t.Run("Missing fields", func(t *testing.T) {
		store := new(MockUserStore)
		authenticator := deskd.NewAuthenticator(store, newMockConfig())

		for _, args := range [][3]string{
			{"", "a@example.com", "password123"},
			{"Name", "", "password123"},
			{"Name", "a@example.com", ""},
		} {
			_, err := authenticator.Signup(ctx, args[0], args[1], args[2])
			assert.ErrorIs(t, err, deskd.ErrMissingField)
		}
		store.AssertNotCalled(t, "Create")
	})

	t.Run("Duplicate email", func(t *testing.T) {
		store := new(MockUserStore)
		authenticator := deskd.NewAuthenticator(store, newMockConfig())

		store.On("Create", mock.Anything, mock.Anything).
			Return(nil, deskd.ErrEmailTaken).Once()

		_, err := authenticator.Signup(ctx, "Test User", "dup@example.com", "password123")
		require.Error(t, err)
		assert.True(t, deskd.HasTextCode(err, "EMAIL_TAKEN"))
	})

	t.Run("Store failure is wrapped", func(t *testing.T) {
		store := new(MockUserStore)
		authenticator := deskd.NewAuthenticator(store, newMockConfig())

		store.On("Create", mock.Anything, mock.Anything).
			Return(nil, errors.New("disk on fire")).Once()

		_, err := authenticator.Signup(ctx, "Test User", "a@example.com", "password123")
		require.Error(t, err)
		assert.True(t, deskd.HasTextCode(err, "UPSTREAM_FAILURE"))
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("Successful login", func(t *testing.T) {
		store := new(MockUserStore)
		authenticator := deskd.NewAuthenticator(store, newMockConfig())
		user := localUser("test@example.com", "password123")

		store.On("GetByEmail", mock.Anything, "test@example.com").
			Return(user, nil).Once()

		result, err := authenticator.Login(ctx, "Test@Example.COM", "password123")
		require.NoError(t, err)

		assert.NotEmpty(t, result.Token)
		assert.Equal(t, user.ID.String(), result.User.ID)
		store.AssertExpectations(t)
	})

	t.Run("Unknown email", func(t *testing.T) {
		store := new(MockUserStore)
		authenticator := deskd.NewAuthenticator(store, newMockConfig())

		store.On("GetByEmail", mock.Anything, "ghost@example.com").
			Return(nil, notFoundErr()).Once()

		_, err := authenticator.Login(ctx, "ghost@example.com", "password123")
		assert.ErrorIs(t, err, deskd.ErrInvalidCredentials)
	})

	t.Run("Wrong password", func(t *testing.T) {
		store := new(MockUserStore)
		authenticator := deskd.NewAuthenticator(store, newMockConfig())

		store.On("GetByEmail", mock.Anything, "test@example.com").
			Return(localUser("test@example.com", "password123"), nil).Once()

		_, err := authenticator.Login(ctx, "test@example.com", "wrong-password")
		assert.ErrorIs(t, err, deskd.ErrInvalidCredentials)
	})

	t.Run("Federated-only account", func(t *testing.T) {
		store := new(MockUserStore)
		authenticator := deskd.NewAuthenticator(store, newMockConfig())

		store.On("GetByEmail", mock.Anything, "fed@example.com").
			Return(&deskd.User{
				ID:                 uuid.New(),
				Email:              "fed@example.com",
				Provider:           deskd.ProviderFederated,
				FederatedSubjectID: "issuer|123",
			}, nil).Once()

		_, err := authenticator.Login(ctx, "fed@example.com", "anything-at-all")
		assert.ErrorIs(t, err, deskd.ErrInvalidCredentials)
	})

	t.Run("Failures are indistinguishable", func(t *testing.T) {
		store := new(MockUserStore)
		authenticator := deskd.NewAuthenticator(store, newMockConfig())

		store.On("GetByEmail", mock.Anything, "ghost@example.com").
			Return(nil, notFoundErr()).Once()
		store.On("GetByEmail", mock.Anything, "test@example.com").
			Return(localUser("test@example.com", "password123"), nil).Once()

		_, missErr := authenticator.Login(ctx, "ghost@example.com", "password123")
		_, wrongErr := authenticator.Login(ctx, "test@example.com", "wrong")

		assert.Equal(t, missErr.Error(), wrongErr.Error())
	})

	t.Run("Missing fields", func(t *testing.T) {
		store := new(MockUserStore)
		authenticator := deskd.NewAuthenticator(store, newMockConfig())

		_, err := authenticator.Login(ctx, "", "password123")
		assert.ErrorIs(t, err, deskd.ErrMissingField)

		_, err = authenticator.Login(ctx, "test@example.com", "")
		assert.ErrorIs(t, err, deskd.ErrMissingField)
	})

	t.Run("Store failure is wrapped", func(t *testing.T) {
		store := new(MockUserStore)
		authenticator := deskd.NewAuthenticator(store, newMockConfig())

		store.On("GetByEmail", mock.Anything, "test@example.com").
			Return(nil, errors.New("timeout")).Once()

		_, err := authenticator.Login(ctx, "test@example.com", "password123")
		require.Error(t, err)
		assert.NotErrorIs(t, err, deskd.ErrInvalidCredentials)
		assert.True(t, deskd.HasTextCode(err, "UPSTREAM_FAILURE"))
	})
}

func TestFederatedLogin(t *testing.T) {
	ctx := context.Background()

	verified := &deskd.VerifiedAssertion{
		SubjectID: "issuer|abc123",
		Email:     "fed@example.com",
		Name:      "Fed User",
	}

	setup := func() (*MockUserStore, *MockAssertionVerifier, *deskd.Auther) {
		store := new(MockUserStore)
		verifier := new(MockAssertionVerifier)
		authenticator := deskd.NewAuthenticator(store, newMockConfig()).
			WithAssertionVerifier(verifier)
		return store, verifier, authenticator
	}

	t.Run("First login creates a federated identity", func(t *testing.T) {
		store, verifier, authenticator := setup()

		verifier.On("Verify", mock.Anything, "assertion-token").
			Return(verified, nil).Once()
		store.On("GetByEmail", mock.Anything, "fed@example.com").
			Return(nil, notFoundErr()).Once()
		store.On("Create", mock.Anything, mock.MatchedBy(func(u *deskd.User) bool {
			return u.Email == "fed@example.com" &&
				u.Provider == deskd.ProviderFederated &&
				u.FederatedSubjectID == "issuer|abc123" &&
				u.PasswordHash == ""
		})).Return(&deskd.User{
			ID:                 uuid.New(),
			Name:               "Fed User",
			Email:              "fed@example.com",
			Provider:           deskd.ProviderFederated,
			FederatedSubjectID: "issuer|abc123",
		}, nil).Once()

		result, err := authenticator.FederatedLogin(ctx, "assertion-token")
		require.NoError(t, err)
		assert.NotEmpty(t, result.Token)
		store.AssertExpectations(t)
	})

	t.Run("Existing local identity is linked by email", func(t *testing.T) {
		store, verifier, authenticator := setup()
		existing := localUser("fed@example.com", "password123")

		verifier.On("Verify", mock.Anything, "assertion-token").
			Return(verified, nil).Once()
		store.On("GetByEmail", mock.Anything, "fed@example.com").
			Return(existing, nil).Once()

		linked := *existing
		linked.Provider = deskd.ProviderFederated
		linked.FederatedSubjectID = "issuer|abc123"
		store.On("LinkFederated", mock.Anything, existing.ID.String(), "issuer|abc123").
			Return(&linked, nil).Once()

		result, err := authenticator.FederatedLogin(ctx, "assertion-token")
		require.NoError(t, err)
		assert.Equal(t, existing.ID.String(), result.User.ID)
		store.AssertExpectations(t)
	})

	t.Run("Linked account keeps its password", func(t *testing.T) {
		store, verifier, authenticator := setup()
		existing := localUser("fed@example.com", "password123")

		verifier.On("Verify", mock.Anything, "assertion-token").
			Return(verified, nil).Once()
		store.On("GetByEmail", mock.Anything, "fed@example.com").
			Return(existing, nil).Once()
		store.On("LinkFederated", mock.Anything, existing.ID.String(), "issuer|abc123").
			Return(existing, nil).Once()

		_, err := authenticator.FederatedLogin(ctx, "assertion-token")
		require.NoError(t, err)

		// The local login path still works afterwards.
		store.On("GetByEmail", mock.Anything, "fed@example.com").
			Return(existing, nil).Once()
		_, err = authenticator.Login(ctx, "fed@example.com", "password123")
		assert.NoError(t, err)
	})

	t.Run("Already linked identity skips the link call", func(t *testing.T) {
		store, verifier, authenticator := setup()

		verifier.On("Verify", mock.Anything, "assertion-token").
			Return(verified, nil).Once()
		store.On("GetByEmail", mock.Anything, "fed@example.com").
			Return(&deskd.User{
				ID:                 uuid.New(),
				Email:              "fed@example.com",
				Provider:           deskd.ProviderFederated,
				FederatedSubjectID: "issuer|abc123",
			}, nil).Once()

		_, err := authenticator.FederatedLogin(ctx, "assertion-token")
		require.NoError(t, err)
		store.AssertNotCalled(t, "LinkFederated", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Invalid assertion", func(t *testing.T) {
		store, verifier, authenticator := setup()

		verifier.On("Verify", mock.Anything, "bad-assertion").
			Return(nil, deskd.ErrInvalidAssertion).Once()

		_, err := authenticator.FederatedLogin(ctx, "bad-assertion")
		assert.ErrorIs(t, err, deskd.ErrInvalidAssertion)
		store.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
	})

	t.Run("Missing assertion", func(t *testing.T) {
		_, _, authenticator := setup()

		_, err := authenticator.FederatedLogin(ctx, "")
		assert.ErrorIs(t, err, deskd.ErrMissingAssertion)
	})

	t.Run("Verifier not configured", func(t *testing.T) {
		store := new(MockUserStore)
		authenticator := deskd.NewAuthenticator(store, newMockConfig())

		_, err := authenticator.FederatedLogin(ctx, "assertion-token")
		assert.Error(t, err)
	})

	t.Run("Concurrent first login falls back to the winner", func(t *testing.T) {
		store, verifier, authenticator := setup()
		winner := &deskd.User{
			ID:                 uuid.New(),
			Email:              "fed@example.com",
			Provider:           deskd.ProviderFederated,
			FederatedSubjectID: "issuer|abc123",
		}

		verifier.On("Verify", mock.Anything, "assertion-token").
			Return(verified, nil).Once()
		store.On("GetByEmail", mock.Anything, "fed@example.com").
			Return(nil, notFoundErr()).Once()
		store.On("Create", mock.Anything, mock.Anything).
			Return(nil, deskd.ErrEmailTaken).Once()
		store.On("GetByEmail", mock.Anything, "fed@example.com").
			Return(winner, nil).Once()

		result, err := authenticator.FederatedLogin(ctx, "assertion-token")
		require.NoError(t, err)
		assert.Equal(t, winner.ID.String(), result.User.ID)
	})
}

func TestVerifyToken(t *testing.T) {
	ctx := context.Background()

	t.Run("Valid token resolves the identity", func(t *testing.T) {
		store := new(MockUserStore)
		authenticator := deskd.NewAuthenticator(store, newMockConfig())
		user := localUser("test@example.com", "password123")

		token, err := authenticator.TokenService().Issue(user.ID.String())
		require.NoError(t, err)

		store.On("GetByID", mock.Anything, user.ID.String()).
			Return(user, nil).Once()

		summary, err := authenticator.VerifyToken(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), summary.ID)
		assert.Equal(t, "test@example.com", summary.Email)
	})

	t.Run("Missing token", func(t *testing.T) {
		store := new(MockUserStore)
		authenticator := deskd.NewAuthenticator(store, newMockConfig())

		_, err := authenticator.VerifyToken(ctx, "")
		assert.ErrorIs(t, err, deskd.ErrMissingToken)
	})

	t.Run("Garbage token", func(t *testing.T) {
		store := new(MockUserStore)
		authenticator := deskd.NewAuthenticator(store, newMockConfig())

		_, err := authenticator.VerifyToken(ctx, "not.a.token")
		assert.ErrorIs(t, err, deskd.ErrInvalidToken)
		store.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("Token signed with another key", func(t *testing.T) {
		store := new(MockUserStore)
		authenticator := deskd.NewAuthenticator(store, newMockConfig())

		foreign := newTestTokenService("a-different-key", 24)
		token, err := foreign.Issue("user-123")
		require.NoError(t, err)

		_, err = authenticator.VerifyToken(ctx, token)
		assert.ErrorIs(t, err, deskd.ErrInvalidToken)
	})

	t.Run("Valid token for a deleted identity", func(t *testing.T) {
		store := new(MockUserStore)
		authenticator := deskd.NewAuthenticator(store, newMockConfig())

		token, err := authenticator.TokenService().Issue("gone-user-id")
		require.NoError(t, err)

		store.On("GetByID", mock.Anything, "gone-user-id").
			Return(nil, notFoundErr()).Once()

		_, err = authenticator.VerifyToken(ctx, token)
		assert.ErrorIs(t, err, deskd.ErrIdentityNotFound)
	})
}

func TestProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("Resolves the identity", func(t *testing.T) {
		store := new(MockUserStore)
		authenticator := deskd.NewAuthenticator(store, newMockConfig())
		user := localUser("test@example.com", "password123")

		store.On("GetByID", mock.Anything, user.ID.String()).
			Return(user, nil).Once()

		summary, err := authenticator.Profile(ctx, user.ID.String())
		require.NoError(t, err)
		assert.Equal(t, "Test User", summary.Name)
	})

	t.Run("Unknown id", func(t *testing.T) {
		store := new(MockUserStore)
		authenticator := deskd.NewAuthenticator(store, newMockConfig())

		store.On("GetByID", mock.Anything, "missing-id").
			Return(nil, notFoundErr()).Once()

		_, err := authenticator.Profile(ctx, "missing-id")
		assert.ErrorIs(t, err, deskd.ErrIdentityNotFound)
	})
}
