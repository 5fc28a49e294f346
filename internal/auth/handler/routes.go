package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/samuelweirer/psa-putzi-sub000/internal/ratelimit"
	"github.com/samuelweirer/psa-putzi-sub000/internal/rbac"
)

func RegisterRoutes(app *fiber.App, h *AuthHandler, apiLimiter *ratelimit.APILimiter) {
	auth := app.Group("/auth", RateLimit(apiLimiter))

	auth.Post("/register", h.Register)
	auth.Post("/login", h.Login)
	auth.Post("/oauth/login", h.OAuthLogin)
	auth.Post("/refresh", h.Refresh)
	auth.Post("/logout", h.Logout)
	auth.Post("/password-reset/request", h.RequestPasswordReset)
	auth.Post("/password-reset/confirm", h.ConfirmPasswordReset)

	auth.Get("/me", h.RequireAuth, h.Me)
	auth.Put("/me", h.RequireAuth, h.UpdateMe)
	auth.Put("/change-password", h.RequireAuth, h.ChangePassword)

	auth.Post("/mfa/setup", h.RequireAuth, h.MfaSetup)
	auth.Post("/mfa/verify", h.RequireAuth, h.MfaVerify)
	auth.Post("/mfa/disable", h.RequireAuth, h.MfaDisable)

	auth.Delete("/users/:id/sessions", h.RequireAuth, h.RequireRole(rbac.RoleAdmin), h.ForceLogout)
}
