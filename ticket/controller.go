package ticket

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/deskd/deskd"
	"github.com/deskd/deskd/middleware/tokenauth"
)

// MaxAttachmentSize caps a single upload at 10 MiB.
const MaxAttachmentSize = 10 << 20

// Controller serves the ticket workflow. Every handler assumes the token
// gate already ran; ownership is still rechecked per request.
type Controller struct {
	Logger deskd.Logger
	Repo   RepositoryManager
	Blobs  Store
}

type ControllerOption func(*Controller) *Controller

func WithLogger(l deskd.Logger) ControllerOption {
	return func(c *Controller) *Controller {
		c.Logger = l
		return c
	}
}

func NewController(repo RepositoryManager, blobs Store, opts ...ControllerOption) *Controller {
	c := &Controller{
		Repo:  repo,
		Blobs: blobs,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in ticket controller...")
	}
	if c.Blobs == nil {
		panic("Missing blob store in ticket controller...")
	}

	return c
}

// RegisterRoutes mounts the ticket surface behind the token gate.
func RegisterRoutes(app *fiber.App, controller *Controller, gate fiber.Handler) {
	g := app.Group("/tickets", gate)

	g.Post("/", controller.Create)
	g.Get("/", controller.List)
	g.Get("/:id", controller.Get)
	g.Patch("/:id", controller.Update)
	g.Post("/:id/attachments", controller.Upload)
	g.Get("/:id/attachments/:attachmentID", controller.Download)
}

// CreateRequest payload
type CreateRequest struct {
	Subject      string `json:"subject"`
	Body         string `json:"body"`
	ContactPhone string `json:"contact_phone"`
}

// Validate will run validation rules
func (r CreateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Subject, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Body, validation.Required, validation.Length(1, 20000)),
		validation.Field(&r.ContactPhone, validation.By(ValidatePhone)),
	)
}

// UpdateRequest payload; nil fields are left untouched.
type UpdateRequest struct {
	Subject *string `json:"subject"`
	Body    *string `json:"body"`
	Status  *string `json:"status"`
}

// Validate will run validation rules
func (r UpdateRequest) Validate() error {
	if r.Subject == nil && r.Body == nil && r.Status == nil {
		return fmt.Errorf("empty patch")
	}
	if r.Status != nil && !ValidStatus(*r.Status) {
		return fmt.Errorf("unknown status: %s", *r.Status)
	}
	if r.Subject != nil && *r.Subject == "" {
		return fmt.Errorf("subject cannot be blank")
	}
	return nil
}

func (t *Controller) Create(c *fiber.Ctx) error {
	requesterID, ok := requester(c)
	if !ok {
		return nil
	}

	payload := new(CreateRequest)
	if err := c.BodyParser(payload); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := payload.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	record, err := t.Repo.Tickets().Submit(c.UserContext(), &Ticket{
		RequesterID:  requesterID,
		Subject:      payload.Subject,
		Body:         payload.Body,
		ContactPhone: payload.ContactPhone,
	})
	if err != nil {
		return t.renderError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(record)
}

func (t *Controller) List(c *fiber.Ctx) error {
	requesterID, ok := requester(c)
	if !ok {
		return nil
	}

	records, err := t.Repo.Tickets().ListByRequester(c.UserContext(), requesterID)
	if err != nil {
		return t.renderError(c, err)
	}

	return c.JSON(fiber.Map{"tickets": records})
}

func (t *Controller) Get(c *fiber.Ctx) error {
	record, ok := t.ownedTicket(c)
	if !ok {
		return nil
	}

	return c.JSON(record)
}

func (t *Controller) Update(c *fiber.Ctx) error {
	record, ok := t.ownedTicket(c)
	if !ok {
		return nil
	}

	payload := new(UpdateRequest)
	if err := c.BodyParser(payload); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := payload.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := t.Repo.Tickets().UpdateFields(c.UserContext(), record.ID, TicketPatch{
		Subject: payload.Subject,
		Body:    payload.Body,
		Status:  payload.Status,
	})
	if err != nil {
		return t.renderError(c, err)
	}

	return c.JSON(updated)
}

func (t *Controller) Upload(c *fiber.Ctx) error {
	record, ok := t.ownedTicket(c)
	if !ok {
		return nil
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "missing file field")
	}
	if fh.Size > MaxAttachmentSize {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": "attachment too large",
		})
	}

	src, err := fh.Open()
	if err != nil {
		return t.renderError(c, err)
	}
	defer src.Close()

	blobKey := uuid.New().String()
	if err := t.Blobs.Put(c.UserContext(), blobKey, src); err != nil {
		return t.renderError(c, err)
	}

	contentType := fh.Header.Get(fiber.HeaderContentType)
	if contentType == "" {
		contentType = fiber.MIMEOctetStream
	}

	attachment, err := t.Repo.Attachments().Add(c.UserContext(), &Attachment{
		TicketID:    record.ID,
		Filename:    fh.Filename,
		ContentType: contentType,
		Size:        fh.Size,
		BlobKey:     blobKey,
	})
	if err != nil {
		// Metadata write failed; do not leave the blob orphaned.
		if derr := t.Blobs.Delete(c.UserContext(), blobKey); derr != nil {
			t.log().Warn("failed to clean up orphaned blob %s: %v", blobKey, derr)
		}
		return t.renderError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(attachment)
}

func (t *Controller) Download(c *fiber.Ctx) error {
	record, ok := t.ownedTicket(c)
	if !ok {
		return nil
	}

	attachmentID, err := uuid.Parse(c.Params("attachmentID"))
	if err != nil {
		return notFound(c)
	}

	attachment, err := t.Repo.Attachments().GetByID(c.UserContext(), attachmentID)
	if err != nil {
		return t.renderError(c, err)
	}
	if attachment.TicketID != record.ID {
		return notFound(c)
	}

	reader, err := t.Blobs.Open(c.UserContext(), attachment.BlobKey)
	if err != nil {
		return t.renderError(c, err)
	}

	c.Set(fiber.HeaderContentType, attachment.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", attachment.Filename))
	return c.SendStream(reader, int(attachment.Size))
}

// ownedTicket resolves the :id param to a ticket owned by the caller,
// writing the error response itself when that fails. A ticket belonging
// to someone else reads as not found, not forbidden.
func (t *Controller) ownedTicket(c *fiber.Ctx) (*Ticket, bool) {
	requesterID, ok := requester(c)
	if !ok {
		return nil, false
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		notFound(c)
		return nil, false
	}

	record, err := t.Repo.Tickets().GetByID(c.UserContext(), id)
	if err != nil {
		t.renderError(c, err)
		return nil, false
	}

	if record.RequesterID != requesterID {
		notFound(c)
		return nil, false
	}

	return record, true
}

func (t *Controller) renderError(c *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	if goerrors.IsNotFound(richErr) {
		return notFound(c)
	}

	t.log().Error("ticket controller error: %s (%s)", richErr.Message, richErr.Category)

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "An unexpected server error occurred",
	})
}

func (t *Controller) log() deskd.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return noopLogger{}
}

// requester pulls the authenticated user id set by the token gate. If it
// is missing the gate was skipped; respond 401 rather than guess.
func requester(c *fiber.Ctx) (uuid.UUID, bool) {
	raw, ok := tokenauth.UserID(c)
	if !ok {
		unauthenticated(c)
		return uuid.Nil, false
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		unauthenticated(c)
		return uuid.Nil, false
	}

	return id, true
}

func unauthenticated(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "Unauthenticated",
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
