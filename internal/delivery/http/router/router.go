// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"warden/internal/delivery/http/middleware"
	"warden/internal/delivery/http/router/handler"
	"warden/internal/domain/policy"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AccountHandler *handler.AccountHandler
	UserHandler    *handler.UserHandler
	AuthMiddleware *middleware.AuthMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	accountHandler *handler.AccountHandler
	userHandler    *handler.UserHandler
	authMiddleware *middleware.AuthMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		accountHandler: params.AccountHandler,
		userHandler:    params.UserHandler,
		authMiddleware: params.AuthMiddleware,
	}
}

// RegisterRoutes sets up all the API routes for the application.
// Every protected route names its policy operation; the policy table decides which roles pass.
func (r *router) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", handler.HealthCheck)

	users := e.Group("/users")

	// Public account lifecycle
	users.POST("/register", r.accountHandler.Register)
	users.POST("/verify-otp", r.accountHandler.VerifyOTP)
	users.POST("/resend-otp", r.accountHandler.ResendOTP)
	users.POST("/login", r.accountHandler.Login)
	users.POST("/refresh-token", r.accountHandler.RefreshToken)
	users.POST("/logout", r.accountHandler.Logout)

	auth := r.authMiddleware.Authenticate
	can := r.authMiddleware.RequireOperation

	users.GET("/me", r.userHandler.GetProfile, auth, can(policy.OpGetProfile))
	users.PATCH("/update-password", r.accountHandler.UpdatePassword, auth, can(policy.OpUpdatePassword))

	// Administration
	users.POST("/register-admin", r.accountHandler.RegisterAdmin, auth, can(policy.OpRegisterAdmin))
	users.GET("", r.userHandler.ListUsers, auth, can(policy.OpListUsers))
	users.PATCH("/update/:id", r.userHandler.UpdateUser, auth, can(policy.OpUpdateUser))
	users.DELETE("/:id", r.userHandler.DeleteUser, auth, can(policy.OpDeleteUser))
}
