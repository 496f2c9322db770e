package deskd

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"

	"github.com/deskd/deskd/middleware/tokenauth"
)

type AuthControllerRoutes struct {
	Signup    string
	Login     string
	Federated string
	Verify    string
	Profile   string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Auther       Authenticator
	Routes       *AuthControllerRoutes
	ErrorHandler fiber.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(l Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = l
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func NewAuthController(auther Authenticator, opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Auther: auther,
		Routes: &AuthControllerRoutes{
			Signup:    "/auth/signup",
			Login:     "/auth/login",
			Federated: "/auth/federated",
			Verify:    "/auth/verify",
			Profile:   "/profile",
		},
	}
	c.ErrorHandler = c.renderError

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	return c
}

// RegisterAuthRoutes mounts the auth surface. The profile route sits behind
// the token gate; everything else is public.
func RegisterAuthRoutes(app *fiber.App, controller *AuthController, gate fiber.Handler) {
	app.Post(controller.Routes.Signup, controller.SignupPost)
	app.Post(controller.Routes.Login, controller.LoginPost)
	app.Post(controller.Routes.Federated, controller.FederatedPost)
	app.Post(controller.Routes.Verify, controller.VerifyPost)
	app.Get(controller.Routes.Profile, gate, controller.ProfileGet)
}

// SignupRequest payload
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// FederatedRequest payload
type FederatedRequest struct {
	Assertion string `json:"assertion"`
}

// VerifyRequest payload
type VerifyRequest struct {
	Token string `json:"token"`
}

func (a *AuthController) SignupPost(c *fiber.Ctx) error {
	payload := new(SignupRequest)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("signup parse payload: %s", err)
		return a.ErrorHandler(c, ErrMissingField)
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(c, err)
	}

	if a.Debug {
		fmt.Println(print.MaybePrettyJSON(map[string]any{
			"op":    "signup",
			"name":  payload.Name,
			"email": payload.Email,
		}))
	}

	result, err := a.Auther.Signup(c.UserContext(), payload.Name, payload.Email, payload.Password)
	if err != nil {
		return a.ErrorHandler(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

func (a *AuthController) LoginPost(c *fiber.Ctx) error {
	payload := new(LoginRequest)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("login parse payload: %s", err)
		return a.ErrorHandler(c, ErrMissingField)
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(c, err)
	}

	result, err := a.Auther.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return a.ErrorHandler(c, err)
	}

	return c.JSON(result)
}

func (a *AuthController) FederatedPost(c *fiber.Ctx) error {
	payload := new(FederatedRequest)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("federated parse payload: %s", err)
		return a.ErrorHandler(c, ErrMissingAssertion)
	}

	result, err := a.Auther.FederatedLogin(c.UserContext(), payload.Assertion)
	if err != nil {
		return a.ErrorHandler(c, err)
	}

	return c.JSON(result)
}

func (a *AuthController) VerifyPost(c *fiber.Ctx) error {
	payload := new(VerifyRequest)

	// A header-only request has no parseable body; the parse failure is not
	// fatal as long as a bearer header is present.
	if err := c.BodyParser(payload); err != nil {
		a.Logger.Info("verify parse payload: %s", err)
	}

	token := payload.Token
	if token == "" {
		// Token may also arrive as a bearer header.
		if raw, err := tokenauth.FromHeader(c.Get(fiber.HeaderAuthorization), "Bearer"); err == nil {
			token = raw
		}
	}

	summary, err := a.Auther.VerifyToken(c.UserContext(), token)
	if err != nil {
		return a.ErrorHandler(c, err)
	}

	return c.JSON(summary)
}

func (a *AuthController) ProfileGet(c *fiber.Ctx) error {
	userID, ok := tokenauth.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthenticated",
		})
	}

	summary, err := a.Auther.Profile(c.UserContext(), userID)
	if err != nil {
		return a.ErrorHandler(c, err)
	}

	return c.JSON(summary)
}

func (a *AuthController) validationError(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":      ErrMissingField.Message,
		"text_code":  ErrMissingField.TextCode,
		"validation": err.Error(),
	})
}

// renderError maps rich errors to the wire in one place. Infrastructure
// detail never leaves the process; it is logged and replaced with a generic
// message.
func (a *AuthController) renderError(c *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	status := richErr.Code
	if status < fiber.StatusBadRequest || status > 599 {
		status = fiber.StatusInternalServerError
	}

	message := richErr.Message
	if richErr.Category == goerrors.CategoryInternal {
		a.Logger.Error(
			"auth controller internal error",
			"error", richErr.Message,
			"category", richErr.Category,
			"details", print.MaybePrettyJSON(richErr.Metadata),
		)
		message = "An unexpected server error occurred"
	}

	return c.Status(status).JSON(fiber.Map{
		"error":     message,
		"text_code": richErr.TextCode,
	})
}
