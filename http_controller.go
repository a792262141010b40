package auth

import (
	"fmt"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/nyaruka/phonenumbers"
)

// RegisterAuthRoutes mounts the JSON auth endpoints on the given router
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {

	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Register, controller.Register).
		SetName("auth.register")

	app.Post(controller.Routes.Login, controller.Login).
		SetName("auth.login")

	app.Post(controller.Routes.Refresh, controller.Refresh).
		SetName("auth.refresh")

	app.Post(controller.Routes.Logout, controller.Logout).
		SetName("auth.logout")

	app.Get(controller.Routes.Me,
		controller.Me,
		controller.Auther.ProtectedRoute(false),
	).SetName("auth.me")
}

type AuthControllerRoutes struct {
	Register string
	Login    string
	Refresh  string
	Logout   string
	Me       string
}

type AuthController struct {
	Debug      bool
	Logger     Logger
	Repo       RepositoryManager
	Routes     *AuthControllerRoutes
	Auther     HTTPAuthenticator
	ContextKey string
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther HTTPAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = logger
		return c
	}
}

func WithControllerContextKey(key string) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.ContextKey = key
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:     defLogger{},
		ContextKey: "user",
		Routes: &AuthControllerRoutes{
			Register: "/auth/register",
			Login:    "/auth/login",
			Refresh:  "/auth/refresh",
			Logout:   "/auth/logout",
			Me:       "/auth/me",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in auth controller...")
	}

	return c
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Email
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

// Login authenticates credentials and returns the token pair
func (a *AuthController) Login(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return a.respondError(ctx, errors.Wrap(err, errors.CategoryBadInput, "Invalid request body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return a.respondValidation(ctx, err)
	}

	if a.Debug {
		fmt.Println("======= AUTH LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=========================")
	}

	result, err := a.Auther.Login(ctx, payload)
	if err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, tokenResponse(result.User, result.AccessToken, result.RefreshToken))
}

// RefreshRequest carries an optional body token for clients without cookies
type RefreshRequest struct {
	RefreshToken string `form:"refresh_token" json:"refresh_token"`
}

// Refresh rotates the refresh token and returns a fresh pair
func (a *AuthController) Refresh(ctx router.Context) error {
	payload := new(RefreshRequest)
	// body is optional, the cookie path needs no payload
	_ = ctx.Bind(payload)

	result, err := a.Auther.Refresh(ctx, payload.RefreshToken)
	if err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, tokenResponse(result.User, result.AccessToken, result.RefreshToken))
}

// Logout revokes the current session and clears cookies
func (a *AuthController) Logout(ctx router.Context) error {
	if err := a.Auther.Logout(ctx); err != nil {
		return a.respondError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, map[string]any{"ok": true})
}

// RegisterRequest is the registration payload
type RegisterRequest struct {
	FullName        string `form:"full_name" json:"full_name"`
	Email           string `form:"email" json:"email"`
	Phone           string `form:"phone" json:"phone"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Phone, validation.By(ValidatePhoneNumber)),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

// Register creates a new account
func (a *AuthController) Register(ctx router.Context) error {
	payload := new(RegisterRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register user parse payload", "error", err)
		return a.respondError(ctx, errors.Wrap(err, errors.CategoryBadInput, "Invalid request body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register user validate payload", "error", err)
		return a.respondValidation(ctx, err)
	}

	if a.Debug {
		fmt.Println("======= AUTH REGISTER ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("============================")
	}

	msg := RegisterUserMessage{
		FullName: payload.FullName,
		Email:    payload.Email,
		Phone:    payload.Phone,
		Password: payload.Password,
	}

	registerUser := NewRegisterUserHandler(a.Repo)
	user, err := registerUser.Execute(ctx.Context(), msg)
	if err != nil {
		a.Logger.Error("register user execute", "error", err)
		return a.respondError(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, map[string]any{
		"user": user,
	})
}

// Me returns the session view the middleware stored
func (a *AuthController) Me(ctx router.Context) error {
	session, ok := SessionFromRequestContext(ctx, a.ContextKey)
	if !ok {
		return a.respondError(ctx, ErrUnableToFindSession)
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"session": session,
	})
}

func tokenResponse(user *User, accessToken, refreshToken string) map[string]any {
	return map[string]any{
		"user":          user,
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"token_type":    DefaultAuthScheme,
	}
}

func (a *AuthController) respondValidation(ctx router.Context, err error) error {
	return ctx.JSON(http.StatusBadRequest, map[string]any{
		"error": map[string]any{
			"message":    "Validation failed",
			"text_code":  "VALIDATION",
			"validation": FormatValidationErrorToMap(err),
		},
	})
}

func (a *AuthController) respondError(ctx router.Context, err error) error {
	code, message, textCode := mapAuthError(err)

	if code >= http.StatusInternalServerError {
		a.Logger.Error("auth controller error", "error", err)
	}

	return ctx.JSON(code, map[string]any{
		"error": map[string]any{
			"message":   message,
			"text_code": textCode,
		},
	})
}

// mapAuthError collapses internal failures into client safe responses. Any
// credential shaped failure comes back as the same 401 so responses leak
// nothing about which accounts exist.
func mapAuthError(err error) (int, string, string) {
	switch {
	case errors.Is(err, ErrTokenReused),
		errors.Is(err, ErrUnableToFindSession),
		errors.Is(err, ErrIdentityNotFound):
		return http.StatusUnauthorized, ErrInvalidCredentials.Message, TextCodeInvalidCredentials
	}

	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return http.StatusInternalServerError, "An unexpected error occurred", "INTERNAL"
	}

	code := richErr.Code
	if code == 0 {
		switch richErr.Category {
		case errors.CategoryAuth:
			code = http.StatusUnauthorized
		case errors.CategoryAuthz:
			code = http.StatusForbidden
		case errors.CategoryRateLimit:
			code = http.StatusTooManyRequests
		case errors.CategoryConflict:
			code = http.StatusConflict
		case errors.CategoryBadInput, errors.CategoryValidation:
			code = http.StatusBadRequest
		default:
			code = http.StatusInternalServerError
		}
	}

	message := richErr.Message
	if code >= http.StatusInternalServerError {
		message = "An unexpected error occurred"
	}

	return code, message, richErr.TextCode
}

// FormatValidationErrorToMap flattens ozzo validation errors per field
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		for field, ferr := range fieldErrs {
			out[field] = ferr.Error()
		}
		return out
	}

	out["payload"] = err.Error()
	return out
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values do not match", errors.CategoryValidation)
		}
		return nil
	}
}

// ValidatePhoneNumber accepts empty values and otherwise requires a number
// phonenumbers can parse and verify.
func ValidatePhoneNumber(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := NormalizePhoneNumber(s); err != nil {
		return errors.New("invalid phone number", errors.CategoryValidation)
	}
	return nil
}

// NormalizePhoneNumber returns the E.164 form of the given number, or the
// empty string untouched.
func NormalizePhoneNumber(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}

	num, err := phonenumbers.Parse(raw, "US")
	if err != nil {
		return "", err
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("invalid phone number: %s", raw)
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}
