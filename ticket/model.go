// Package ticket implements the support-ticket workflow: submission, listing,
// status updates, and file attachments. Every operation runs behind the
// token gate and is scoped to the authenticated requester.
package ticket

import (
	"time"

	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

// Status is a ticket's workflow state
type Status = string

const (
	// StatusOpen is a freshly submitted ticket
	StatusOpen Status = "open"
	// StatusPending awaits a reply from the requester
	StatusPending Status = "pending"
	// StatusClosed is resolved
	StatusClosed Status = "closed"
)

// ValidStatus reports whether s is a known workflow state.
func ValidStatus(s Status) bool {
	switch s {
	case StatusOpen, StatusPending, StatusClosed:
		return true
	default:
		return false
	}
}

// Ticket is the stored support request
type Ticket struct {
	bun.BaseModel `bun:"table:tickets,alias:tkt"`

	ID           uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	RequesterID  uuid.UUID  `bun:"requester_id,notnull,type:uuid" json:"requester_id,omitempty"`
	Subject      string     `bun:"subject,notnull" json:"subject,omitempty"`
	Body         string     `bun:"body,notnull" json:"body,omitempty"`
	Status       Status     `bun:"status,notnull" json:"status,omitempty"`
	ContactPhone string     `bun:"contact_phone,nullzero" json:"contact_phone,omitempty"`
	CreatedAt    *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt    *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`

	Attachments []*Attachment `bun:"rel:has-many,join:id=ticket_id" json:"attachments,omitempty"`
}

// Attachment is the stored metadata of an uploaded file. The bytes live in
// the blob store under BlobKey.
type Attachment struct {
	bun.BaseModel `bun:"table:attachments,alias:att"`

	ID          uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	TicketID    uuid.UUID  `bun:"ticket_id,notnull,type:uuid" json:"ticket_id,omitempty"`
	Filename    string     `bun:"filename,notnull" json:"filename,omitempty"`
	ContentType string     `bun:"content_type,notnull" json:"content_type,omitempty"`
	Size        int64      `bun:"size,notnull" json:"size,omitempty"`
	BlobKey     string     `bun:"blob_key,notnull" json:"-"`
	CreatedAt   *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// ValidatePhone accepts an empty value and otherwise requires a parseable,
// valid number. Region defaults to US for bare national formats.
func ValidatePhone(value any) error {
	raw, _ := value.(string)
	if raw == "" {
		return nil
	}

	num, err := phonenumbers.Parse(raw, "US")
	if err != nil {
		return err
	}
	if !phonenumbers.IsValidNumber(num) {
		return phonenumbers.ErrNotANumber
	}
	return nil
}
