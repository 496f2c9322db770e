package deskd

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the credential store backed by the shared database.
type Users interface {
	UserStore

	CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)
	LinkFederatedTx(ctx context.Context, tx bun.IDB, id string, subjectID string) (*User, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users     = (*users)(nil)
	_ UserStore = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

// GetByEmail resolves an identity by its canonical email, case-insensitively.
func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("lower(?TableAlias.email) = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if isEmptyResult(err) {
			return nil, recordNotFound(map[string]any{"email": NormalizeEmail(email)})
		}
		return nil, err
	}

	return record, nil
}

// GetByID resolves an identity by its opaque id.
func (a *users) GetByID(ctx context.Context, id string) (*User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, recordNotFound(map[string]any{"id": id})
	}

	record := &User{}
	err = a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", uid).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if isEmptyResult(err) {
			return nil, recordNotFound(map[string]any{"id": id})
		}
		return nil, err
	}

	return record, nil
}

// Create persists a new identity. The unique index on lower(email) is the
// authoritative duplicate check; violations surface as ErrEmailTaken.
func (a *users) Create(ctx context.Context, record *User) (*User, error) {
	return a.CreateTx(ctx, a.db, record)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	prepareUserDefaults(record)

	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			clone := ErrEmailTaken.Clone()
			clone.Source = err
			return nil, clone
		}
		return nil, err
	}

	return record, nil
}

// LinkFederated flips a local identity to federated in place: the subject id
// is attached and the password hash left untouched.
func (a *users) LinkFederated(ctx context.Context, id string, subjectID string) (*User, error) {
	return a.LinkFederatedTx(ctx, a.db, id, subjectID)
}

func (a *users) LinkFederatedTx(ctx context.Context, tx bun.IDB, id string, subjectID string) (*User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, recordNotFound(map[string]any{"id": id})
	}

	now := time.Now()
	res, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("auth_provider = ?", ProviderFederated).
		Set("federated_subject_id = ?", subjectID).
		Set("updated_at = ?", now).
		Where("?TableAlias.id = ?", uid).
		Exec(ctx)

	if err != nil {
		return nil, err
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return nil, recordNotFound(map[string]any{"id": id})
	}

	return a.GetByID(ctx, id)
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if record.Provider == "" {
		record.Provider = ProviderLocal
	}

	record.Email = NormalizeEmail(record.Email)

	if record.CreatedAt == nil {
		now := time.Now()
		record.CreatedAt = &now
		record.UpdatedAt = &now
	}
}

// recordNotFound is the miss error shared by every lookup path. It carries
// CategoryNotFound so the service layer can tell a miss from a store failure
// with goerrors.IsNotFound.
func recordNotFound(meta map[string]any) *goerrors.Error {
	return goerrors.New("record not found", goerrors.CategoryNotFound).
		WithTextCode("RECORD_NOT_FOUND").
		WithCode(goerrors.CodeNotFound).
		WithMetadata(meta)
}

func isEmptyResult(err error) bool {
	if err == nil {
		return false
	}
	return repository.IsRecordNotFound(err) ||
		strings.Contains(err.Error(), "no rows in result set")
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
