package accounts

import (
	"context"
	"net/http"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// TokenRefresher exchanges a refresh token for a fresh token pair.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*LoginResult, error)
}

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// RegisterAuthRoutes mounts the account endpoints on the given router.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {

	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Signup, controller.SignupPost).
		SetName("signup.post")

	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("sign-in.post")

	app.Post(controller.Routes.Logout, controller.LogoutPost).
		SetName("sign-out.post")

	app.Post(controller.Routes.Refresh, controller.RefreshPost).
		SetName("refresh.post")

	app.Post(controller.Routes.PasswordReset, controller.PasswordResetPost).
		SetName("pwd-reset.post")

	app.Post(controller.Routes.PasswordResetConfirm, controller.PasswordResetConfirmPost).
		SetName("pwd-reset-confirm.post")

	app.Get(controller.Routes.Availability, controller.AvailabilityGet).
		SetName("availability.get")

	protected := controller.Auther.ProtectedRoute(
		controller.Auther.MakeClientRouteAuthErrorHandler(false),
	)

	app.Get(controller.Routes.Profile, protected(controller.ProfileGet)).
		SetName("profile.get")

	app.Delete(controller.Routes.Profile, protected(controller.ProfileDelete)).
		SetName("profile.delete")
}

type AuthControllerRoutes struct {
	Signup               string
	Login                string
	Logout               string
	Refresh              string
	PasswordReset        string
	PasswordResetConfirm string
	Availability         string
	Profile              string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Routes       *AuthControllerRoutes
	Auther       HTTPAuthenticator
	Tokens       TokenService
	Refresher    TokenRefresher
	Mailer       Mailer
	Activity     ActivitySink
	Cfg          Config
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

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

func WithControllerTokens(tokens TokenService) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Tokens = tokens
		return c
	}
}

func WithControllerRefresher(refresher TokenRefresher) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Refresher = refresher
		return c
	}
}

func WithControllerMailer(mailer Mailer) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Mailer = mailer
		return c
	}
}

func WithControllerActivitySink(sink ActivitySink) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Activity = normalizeActivitySink(sink)
		return c
	}
}

func WithControllerConfig(cfg Config) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Cfg = cfg
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
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &AuthControllerRoutes{
			Signup:               "/signup",
			Login:                "/login",
			Logout:               "/logout",
			Refresh:              "/refresh",
			PasswordReset:        "/password-reset",
			PasswordResetConfirm: "/password-reset/confirm",
			Availability:         "/check-availability",
			Profile:              "/me",
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

	if c.Tokens == nil {
		panic("Missing TokenService in auth controller...")
	}

	if c.Cfg == nil {
		panic("Missing Config in auth controller...")
	}

	if c.Mailer == nil {
		c.Mailer = NewLogMailer(c.Logger)
	}

	if c.Activity == nil {
		c.Activity = noopActivitySink{}
	}

	return c
}

// SignupRequest is the registration payload
type SignupRequest struct {
	FullName          string `form:"full_name" json:"full_name"`
	Email             string `form:"email" json:"email"`
	Username          string `form:"username" json:"username"`
	Phone             string `form:"phone_number" json:"phone_number"`
	Bio               string `form:"bio" json:"bio"`
	DailyReminderTime string `form:"daily_reminder_time" json:"daily_reminder_time"`
	Password          string `form:"password" json:"password" mask:"filled4"`
	ConfirmPassword   string `form:"confirm_password" json:"confirm_password" mask:"filled4"`
}

// Validate will validate the payload. Phone is free form on purpose,
// numbers arrive in too many regional shapes to police here.
func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FullName, validation.Required, validation.Length(2, 100)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Username, validation.Length(3, 30), validation.Match(usernameRe)),
		validation.Field(&r.Phone, validation.Length(0, 32)),
		validation.Field(&r.Bio, validation.Length(0, 500)),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) SignupPost(ctx router.Context) error {
	payload := new(SignupRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("signup parse payload", "error", err)
		return a.renderBindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("signup validate payload", "error", err)
		return a.renderValidationError(ctx, err)
	}

	if a.Debug {
		a.Logger.Debug("signup payload: %s", print.MaybeSecureJSON(payload))
	}

	var res *SignupResponse
	msg := SignupMessage{
		FullName:          payload.FullName,
		Email:             payload.Email,
		Username:          payload.Username,
		Phone:             payload.Phone,
		Bio:               payload.Bio,
		DailyReminderTime: payload.DailyReminderTime,
		Password:          payload.Password,
		OnResponse: func(resp *SignupResponse) {
			res = resp
		},
	}

	signup := NewSignupHandler(a.Repo, a.Tokens).
		WithMailer(a.Mailer).
		WithActivitySink(a.Activity).
		WithLogger(a.Logger)

	if err := signup.Execute(ctx.Context(), msg); err != nil {
		a.Logger.Error("signup execute", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	a.Auther.SetSessionCookie(ctx, res.Tokens.AccessToken)

	return ctx.JSON(http.StatusCreated, router.ViewContext{
		"account": res.Account,
		"tokens":  res.Tokens,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password" mask:"filled4"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return a.renderBindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.renderValidationError(ctx, err)
	}

	result, err := a.Auther.Login(ctx, payload)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, router.ViewContext{
		"account": result.Account,
		"tokens":  result.Tokens,
	})
}

func (a *AuthController) LogoutPost(ctx router.Context) error {
	a.Auther.Logout(ctx)
	return ctx.JSON(http.StatusOK, router.ViewContext{
		"success": true,
	})
}

// RefreshRequest payload
type RefreshRequest struct {
	RefreshToken string `form:"refresh_token" json:"refresh_token"`
}

// Validate will run validation rules
func (r RefreshRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

func (a *AuthController) RefreshPost(ctx router.Context) error {
	payload := new(RefreshRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.renderBindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.renderValidationError(ctx, err)
	}

	if a.Refresher == nil {
		return a.ErrorHandler(ctx, goerrors.New("token refresh is not enabled", goerrors.CategoryOperation).
			WithCode(goerrors.CodeInternal))
	}

	result, err := a.Refresher.Refresh(ctx.Context(), payload.RefreshToken)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, router.ViewContext{
		"account": result.Account,
		"tokens":  result.Tokens,
	})
}

// PasswordResetRequest holds the email to start a reset flow for
type PasswordResetRequest struct {
	Email string `form:"email" json:"email"`
}

// Validate will validate the payload
func (r PasswordResetRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
	)
}

func (a *AuthController) PasswordResetPost(ctx router.Context) error {
	payload := new(PasswordResetRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("password reset parse payload", "error", err)
		return a.renderBindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.renderValidationError(ctx, err)
	}

	msg := RequestPasswordResetMessage{
		Email: payload.Email,
	}

	initReset := NewRequestPasswordResetHandler(a.Repo).
		WithMailer(a.Mailer).
		WithTokenTTL(a.Cfg.GetResetTokenDuration()).
		WithActivitySink(a.Activity).
		WithLogger(a.Logger)

	if err := initReset.Execute(ctx.Context(), msg); err != nil {
		a.Logger.Error("password reset execute", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	// The response never reveals whether the email maps to an account.
	return ctx.JSON(http.StatusOK, router.ViewContext{
		"success": true,
		"message": "If that email is registered, a reset link has been sent",
	})
}

// PasswordResetConfirmRequest redeems a reset token
type PasswordResetConfirmRequest struct {
	Token           string `form:"token" json:"token" mask:"filled4"`
	Password        string `form:"password" json:"password" mask:"filled4"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password" mask:"filled4"`
}

// Validate will validate the payload
func (r PasswordResetConfirmRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) PasswordResetConfirmPost(ctx router.Context) error {
	payload := new(PasswordResetConfirmRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.renderBindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.renderValidationError(ctx, err)
	}

	msg := FinalizePasswordResetMessage{
		Token:    payload.Token,
		Password: payload.Password,
	}

	finalizeReset := NewFinalizePasswordResetHandler(a.Repo).
		WithActivitySink(a.Activity).
		WithLogger(a.Logger)

	if err := finalizeReset.Execute(ctx.Context(), msg); err != nil {
		a.Logger.Error("password reset confirm execute", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, router.ViewContext{
		"success": true,
		"message": "Password has been reset",
	})
}

func (a *AuthController) AvailabilityGet(ctx router.Context) error {
	email := ctx.Query("email", "")
	username := ctx.Query("username", "")

	if email == "" && username == "" {
		return a.ErrorHandler(ctx, goerrors.New("provide an email or username to check", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest))
	}

	out := router.ViewContext{}

	if email != "" {
		taken, err := a.Repo.Accounts().EmailExists(ctx.Context(), email)
		if err != nil {
			return a.ErrorHandler(ctx, err)
		}
		out["email_available"] = !taken
	}

	if username != "" {
		taken, err := a.Repo.Accounts().UsernameExists(ctx.Context(), username)
		if err != nil {
			return a.ErrorHandler(ctx, err)
		}
		out["username_available"] = !taken
	}

	return ctx.JSON(http.StatusOK, out)
}

func (a *AuthController) ProfileGet(ctx router.Context) error {
	session, ok := GetRouterSession(ctx, SessionKey)
	if !ok {
		return a.ErrorHandler(ctx, ErrUnableToFindSession)
	}

	id, err := session.GetAccountUUID()
	if err != nil {
		return a.ErrorHandler(ctx, ErrUnableToDecodeSession)
	}

	account, err := a.Repo.Accounts().GetByID(ctx.Context(), id.String())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, router.ViewContext{
		"account": account,
	})
}

func (a *AuthController) ProfileDelete(ctx router.Context) error {
	session, ok := GetRouterSession(ctx, SessionKey)
	if !ok {
		return a.ErrorHandler(ctx, ErrUnableToFindSession)
	}

	id, err := session.GetAccountUUID()
	if err != nil {
		return a.ErrorHandler(ctx, ErrUnableToDecodeSession)
	}

	if err := a.Repo.Accounts().Deactivate(ctx.Context(), id); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	event := activityEvent(ActivityEventAccountDeactivated, id.String(), session.GetEmail())
	if err := normalizeActivitySink(a.Activity).Record(ctx.Context(), event); err != nil {
		a.Logger.Warn("failed to record deactivation activity", "error", err)
	}

	a.Auther.Logout(ctx)

	return ctx.JSON(http.StatusOK, router.ViewContext{
		"success": true,
	})
}

func (a *AuthController) renderBindError(ctx router.Context, err error) error {
	richErr := goerrors.Wrap(err, goerrors.CategoryBadInput, "Error parsing request body").
		WithCode(goerrors.CodeBadRequest)
	return ctx.JSON(http.StatusBadRequest, errorBody(richErr))
}

func (a *AuthController) renderValidationError(ctx router.Context, err error) error {
	body := errorBody(
		goerrors.New("Validation failed", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest),
	)
	body["validation"] = FormatValidationErrorToMap(err)
	return ctx.JSON(http.StatusBadRequest, body)
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field to message map.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	var verrs validation.Errors
	if !goerrors.As(err, &verrs) {
		out["payload"] = err.Error()
		return out
	}
	for field, ferr := range verrs {
		out[field] = ferr.Error()
	}
	return out
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return goerrors.New("values must match", goerrors.CategoryValidation)
		}
		return nil
	}
}

// statusForError maps rich errors to transport status codes. Lockout is
// special cased to 423 so clients can show the remaining wait.
func statusForError(err *goerrors.Error) int {
	switch err.TextCode {
	case TextCodeAccountLocked:
		return http.StatusLocked
	case TextCodeDuplicateIdentity:
		return http.StatusBadRequest
	}

	switch err.Category {
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return http.StatusUnauthorized
	case goerrors.CategoryValidation, goerrors.CategoryBadInput, goerrors.CategoryConflict:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(err *goerrors.Error) router.ViewContext {
	body := router.ViewContext{
		"success": false,
		"message": err.Message,
	}
	if err.TextCode != "" {
		body["code"] = err.TextCode
	}
	if len(err.Metadata) > 0 {
		body["details"] = err.Metadata
	}
	return body
}

func defaultErrHandler(c router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}
	return c.JSON(statusForError(richErr), errorBody(richErr))
}
