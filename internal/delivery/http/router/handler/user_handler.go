package handler

import (
	"log/slog"
	"net/http"
	"time"

	deliverycontext "warden/internal/delivery/context"
	"warden/internal/delivery/http/response"
	"warden/internal/domain/entity"
	domainerrors "warden/internal/domain/errors"
	"warden/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// UserHandlerParams holds dependencies for UserHandler, injected by Fx.
type UserHandlerParams struct {
	fx.In

	UserAdminUC usecase.UserAdminUsecase
	Logger      *slog.Logger
}

// UserHandler serves profile and account administration endpoints.
type UserHandler struct {
	userAdminUC usecase.UserAdminUsecase
	logger      *slog.Logger
}

// NewUserHandler is the constructor for UserHandler, injected by Fx.
func NewUserHandler(params UserHandlerParams) *UserHandler {
	return &UserHandler{
		userAdminUC: params.UserAdminUC,
		logger:      params.Logger,
	}
}

// ListUsersQuery holds the filters of the user listing.
type ListUsersQuery struct {
	FirstName   string `query:"firstName" validate:"max=100"`
	LastName    string `query:"lastName" validate:"max=100"`
	Email       string `query:"email" validate:"max=254"`
	PhoneNumber string `query:"phoneNumber" validate:"max=32"`
	Role        string `query:"role" validate:"omitempty,oneof=USER ADMIN"`
	SortBy      string `query:"sortBy" validate:"omitempty,oneof=createdAt name"`
	SortOrder   string `query:"sortOrder" validate:"omitempty,oneof=asc desc"`
	Page        int    `query:"page" validate:"min=0"`
	Limit       int    `query:"limit" validate:"min=0"`
}

// UpdateUserRequest changes profile fields and the role. Omitted fields are kept.
type UpdateUserRequest struct {
	FirstName   *string    `json:"firstName" validate:"omitempty,max=100"`
	LastName    *string    `json:"lastName" validate:"omitempty,max=100"`
	PhoneNumber *string    `json:"phoneNumber" validate:"omitempty,e164"`
	BirthDate   *time.Time `json:"birthDate"`
	Role        *string    `json:"role" validate:"omitempty,oneof=USER ADMIN"`
}

// GetProfile returns the account of the authenticated caller.
func (h *UserHandler) GetProfile(c echo.Context) error {
	ac, ok := deliverycontext.GetAuthContext(c)
	if !ok {
		return errors.WithStack(domainerrors.ErrUnauthenticated)
	}

	user, err := h.userAdminUC.GetUser(c.Request().Context(), ac.SubjectID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newUserView(user), "Profile retrieved successfully")
}

func (h *UserHandler) ListUsers(c echo.Context) error {
	var query ListUsersQuery
	if err := bindAndValidate(c, &query); err != nil {
		return err
	}

	page, err := h.userAdminUC.ListUsers(c.Request().Context(), entity.UserFilter{
		FirstName:   query.FirstName,
		LastName:    query.LastName,
		Email:       query.Email,
		PhoneNumber: query.PhoneNumber,
		Role:        entity.Role(query.Role),
		SortBy:      entity.UserSortField(query.SortBy),
		SortOrder:   entity.SortOrder(query.SortOrder),
		Page:        query.Page,
		Limit:       query.Limit,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newUserPageView(page), "")
}

func (h *UserHandler) UpdateUser(c echo.Context) error {
	id, err := pathUserID(c)
	if err != nil {
		return err
	}

	var req UpdateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	input := &usecase.UpdateUserInput{
		ID:          id,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		BirthDate:   req.BirthDate,
	}
	if req.Role != nil {
		role := entity.Role(*req.Role)
		input.Role = &role
	}

	user, err := h.userAdminUC.UpdateUser(c.Request().Context(), input)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newUserView(user), "User updated")
}

func (h *UserHandler) DeleteUser(c echo.Context) error {
	id, err := pathUserID(c)
	if err != nil {
		return err
	}

	if err := h.userAdminUC.DeleteUser(c.Request().Context(), id); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "User deleted")
}

func pathUserID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, domainerrors.ErrValidationFailed.WithDetails("id must be a UUID")
	}

	return id, nil
}
