// Package handler contains the HTTP handlers for the application.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"warden/config"
	deliverycontext "warden/internal/delivery/context"
	"warden/internal/delivery/http/middleware"
	"warden/internal/delivery/http/response"
	domainerrors "warden/internal/domain/errors"
	"warden/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// AccountHandlerParams holds dependencies for AccountHandler, injected by Fx.
type AccountHandlerParams struct {
	fx.In

	AccountUC usecase.AccountUsecase
	Config    *config.Config
	Logger    *slog.Logger
}

// AccountHandler serves registration, activation, login and password endpoints.
type AccountHandler struct {
	accountUC usecase.AccountUsecase
	cookies   config.CookieConfig
	logger    *slog.Logger
}

// NewAccountHandler is the constructor for AccountHandler, injected by Fx.
func NewAccountHandler(params AccountHandlerParams) *AccountHandler {
	return &AccountHandler{
		accountUC: params.AccountUC,
		cookies:   params.Config.HTTP.Cookie,
		logger:    params.Logger,
	}
}

// RegisterRequest is the body of the registration endpoints.
type RegisterRequest struct {
	Email       string     `json:"email" validate:"required,email,max=254"`
	Password    string     `json:"password" validate:"required,max=128"`
	FirstName   string     `json:"firstName" validate:"max=100"`
	LastName    string     `json:"lastName" validate:"max=100"`
	PhoneNumber string     `json:"phoneNumber" validate:"omitempty,e164"`
	BirthDate   *time.Time `json:"birthDate"`
}

func (r *RegisterRequest) toInput() *usecase.RegisterInput {
	return &usecase.RegisterInput{
		Email:       r.Email,
		Password:    r.Password,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		PhoneNumber: r.PhoneNumber,
		BirthDate:   r.BirthDate,
	}
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"otp" validate:"required,numeric,min=4,max=10"`
}

type ResendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest may be empty when the refresh_token cookie is present.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type UpdatePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,max=128"`
}

// Register handles the self-service registration request.
func (h *AccountHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	output, err := h.accountUC.Register(c.Request().Context(), req.toInput())
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusCreated, nil, output.Message)
}

// RegisterAdmin creates an administrator. The route is restricted to admins.
func (h *AccountHandler) RegisterAdmin(c echo.Context) error {
	var req RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.accountUC.RegisterAdmin(c.Request().Context(), req.toInput())
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusCreated, newUserView(user), "Administrator registered")
}

func (h *AccountHandler) VerifyOTP(c echo.Context) error {
	var req VerifyOTPRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	output, err := h.accountUC.VerifyOTP(c.Request().Context(), req.Email, req.Code)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, output.Message)
}

func (h *AccountHandler) ResendOTP(c echo.Context) error {
	var req ResendOTPRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	output, err := h.accountUC.ResendOTP(c.Request().Context(), req.Email)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, output.Message)
}

// Login handles the login request and sets the token cookies.
func (h *AccountHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	output, err := h.accountUC.Login(c.Request().Context(), &usecase.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		return errors.WithStack(err)
	}
	setTokenCookies(c, h.cookies, output.Tokens)

	return response.Success(c, http.StatusOK, newTokenView(output.Tokens), "Login successful")
}

// RefreshToken exchanges a refresh token from the body or the refresh_token cookie for a new pair.
func (h *AccountHandler) RefreshToken(c echo.Context) error {
	token, err := h.refreshTokenFrom(c)
	if err != nil {
		return err
	}
	if token == "" {
		return errors.Wrap(domainerrors.ErrUnauthenticated, "no refresh token presented")
	}

	output, err := h.accountUC.RefreshToken(c.Request().Context(), token)
	if err != nil {
		return errors.WithStack(err)
	}
	setTokenCookies(c, h.cookies, output.Tokens)

	return response.Success(c, http.StatusOK, newTokenView(output.Tokens), "Token refreshed successfully")
}

// Logout revokes the refresh token when the registry is on and always clears the cookies.
func (h *AccountHandler) Logout(c echo.Context) error {
	token, err := h.refreshTokenFrom(c)
	if err != nil {
		return err
	}

	output, err := h.accountUC.Logout(c.Request().Context(), token)
	if err != nil {
		return errors.WithStack(err)
	}
	clearTokenCookies(c, h.cookies)

	return response.Success(c, http.StatusOK, nil, output.Message)
}

// UpdatePassword rotates the password of the authenticated account.
func (h *AccountHandler) UpdatePassword(c echo.Context) error {
	ac, ok := deliverycontext.GetAuthContext(c)
	if !ok {
		return errors.WithStack(domainerrors.ErrUnauthenticated)
	}

	var req UpdatePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	output, err := h.accountUC.UpdatePassword(c.Request().Context(), &usecase.UpdatePasswordInput{
		SubjectID:   ac.SubjectID,
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, output.Message)
}

func (h *AccountHandler) refreshTokenFrom(c echo.Context) (string, error) {
	var req RefreshTokenRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return "", errors.Wrap(domainerrors.ErrInvalidInput, err.Error())
		}
	}
	if req.RefreshToken != "" {
		return req.RefreshToken, nil
	}

	if cookie, err := c.Cookie(middleware.RefreshTokenCookie); err == nil {
		return cookie.Value, nil
	}

	return "", nil
}

// bindAndValidate decodes the request into req and runs its validate tags.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return errors.Wrap(domainerrors.ErrInvalidInput, err.Error())
	}

	return c.Validate(req)
}

// HealthCheck is a simple handler to check if the service is up.
func HealthCheck(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]string{"status": "ok"}, "Service is healthy")
}
