package ticket

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Tickets is the ticket store. Requesters never delete tickets; closing is a
// status change.
type Tickets interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Ticket, error)
	ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]*Ticket, error)
	Submit(ctx context.Context, record *Ticket) (*Ticket, error)
	UpdateFields(ctx context.Context, id uuid.UUID, patch TicketPatch) (*Ticket, error)
}

// TicketPatch is the mutable subset of a ticket.
type TicketPatch struct {
	Subject *string
	Body    *string
	Status  *Status
}

// Attachments persists attachment metadata.
type Attachments interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Attachment, error)
	ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]*Attachment, error)
	Add(ctx context.Context, record *Attachment) (*Attachment, error)
}

type tickets struct {
	repository.Repository[*Ticket]
	db *bun.DB
}

var _ Tickets = (*tickets)(nil)

func NewTicketsRepository(db *bun.DB) Tickets {
	repo := repository.NewRepository[*Ticket](db, repository.ModelHandlers[*Ticket]{
		NewRecord: func() *Ticket { return &Ticket{} },
		GetID: func(t *Ticket) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *Ticket, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
	})

	return &tickets{
		Repository: repo,
		db:         db,
	}
}

func (r *tickets) GetByID(ctx context.Context, id uuid.UUID) (*Ticket, error) {
	record := &Ticket{}
	err := r.db.NewSelect().
		Model(record).
		Relation("Attachments").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if isEmptyResult(err) {
			return nil, recordNotFound(id)
		}
		return nil, err
	}

	return record, nil
}

func (r *tickets) ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]*Ticket, error) {
	var records []*Ticket
	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.requester_id = ?", requesterID).
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *tickets) Submit(ctx context.Context, record *Ticket) (*Ticket, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Status == "" {
		record.Status = StatusOpen
	}
	if record.CreatedAt == nil {
		now := time.Now()
		record.CreatedAt = &now
		record.UpdatedAt = &now
	}

	if _, err := r.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, err
	}

	return record, nil
}

func (r *tickets) UpdateFields(ctx context.Context, id uuid.UUID, patch TicketPatch) (*Ticket, error) {
	q := r.db.NewUpdate().
		Model((*Ticket)(nil)).
		Where("?TableAlias.id = ?", id)

	touched := false
	if patch.Subject != nil {
		q = q.Set("subject = ?", *patch.Subject)
		touched = true
	}
	if patch.Body != nil {
		q = q.Set("body = ?", *patch.Body)
		touched = true
	}
	if patch.Status != nil {
		q = q.Set("status = ?", *patch.Status)
		touched = true
	}

	if touched {
		q = q.Set("updated_at = ?", time.Now())
		res, err := q.Exec(ctx)
		if err != nil {
			return nil, err
		}
		if rows, err := res.RowsAffected(); err == nil && rows == 0 {
			return nil, recordNotFound(id)
		}
	}

	return r.GetByID(ctx, id)
}

type attachments struct {
	repository.Repository[*Attachment]
	db *bun.DB
}

var _ Attachments = (*attachments)(nil)

func NewAttachmentsRepository(db *bun.DB) Attachments {
	repo := repository.NewRepository[*Attachment](db, repository.ModelHandlers[*Attachment]{
		NewRecord: func() *Attachment { return &Attachment{} },
		GetID: func(a *Attachment) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Attachment, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
	})

	return &attachments{
		Repository: repo,
		db:         db,
	}
}

func (r *attachments) GetByID(ctx context.Context, id uuid.UUID) (*Attachment, error) {
	record := &Attachment{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if isEmptyResult(err) {
			return nil, recordNotFound(id)
		}
		return nil, err
	}

	return record, nil
}

func (r *attachments) ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]*Attachment, error) {
	var records []*Attachment
	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.ticket_id = ?", ticketID).
		Order("created_at ASC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *attachments) Add(ctx context.Context, record *Attachment) (*Attachment, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt == nil {
		now := time.Now()
		record.CreatedAt = &now
	}

	if _, err := r.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, err
	}

	return record, nil
}

// RepositoryManager exposes the ticket workflow's repositories.
type RepositoryManager interface {
	Tickets() Tickets
	Attachments() Attachments
}

type mngr struct {
	tickets     Tickets
	attachments Attachments
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		tickets:     NewTicketsRepository(db),
		attachments: NewAttachmentsRepository(db),
	}
}

func (m mngr) Tickets() Tickets         { return m.tickets }
func (m mngr) Attachments() Attachments { return m.attachments }

// recordNotFound carries CategoryNotFound so the controller maps misses to
// 404 with goerrors.IsNotFound.
func recordNotFound(id uuid.UUID) *goerrors.Error {
	return goerrors.New("record not found", goerrors.CategoryNotFound).
		WithTextCode("RECORD_NOT_FOUND").
		WithCode(goerrors.CodeNotFound).
		WithMetadata(map[string]any{"id": id.String()})
}

func isEmptyResult(err error) bool {
	if err == nil {
		return false
	}
	return repository.IsRecordNotFound(err) ||
		strings.Contains(err.Error(), "no rows in result set")
}
