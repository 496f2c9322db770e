package deskd

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AuthProvider is how an identity authenticates
type AuthProvider = string

const (
	// ProviderLocal authenticates with an email/password pair
	ProviderLocal AuthProvider = "local"
	// ProviderFederated authenticates with an assertion from the trusted issuer
	ProviderFederated AuthProvider = "federated"
)

// User is the identity model. Email is unique case-insensitively; the
// canonical form stored is lowercased.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID                 uuid.UUID    `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name               string       `bun:"name,notnull" json:"name,omitempty"`
	Email              string       `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash       string       `bun:"password_hash" json:"-"`
	Provider           AuthProvider `bun:"auth_provider,notnull" json:"auth_provider,omitempty"`
	FederatedSubjectID string       `bun:"federated_subject_id,nullzero" json:"-"`
	CreatedAt          *time.Time   `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt          *time.Time   `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// HasPassword reports whether password login is possible for this identity.
func (u *User) HasPassword() bool {
	return u != nil && u.PasswordHash != ""
}

// IsFederated reports whether the identity has completed federated auth.
func (u *User) IsFederated() bool {
	return u != nil && u.Provider == ProviderFederated
}

// IdentitySummary is the caller-facing shape of a user. It never carries the
// password hash or the federated subject id.
type IdentitySummary struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Summarize strips a user record down to its caller-facing fields.
func Summarize(u *User) *IdentitySummary {
	if u == nil {
		return nil
	}
	return &IdentitySummary{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// AuthResult pairs an identity summary with a freshly issued session token.
type AuthResult struct {
	User  *IdentitySummary `json:"user"`
	Token string           `json:"token"`
}

// NormalizeEmail produces the canonical lookup form of an email value.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
