package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	autherrors "github.com/samuelweirer/psa-putzi-sub000/internal/errors"
	"github.com/samuelweirer/psa-putzi-sub000/internal/ratelimit"
	"github.com/samuelweirer/psa-putzi-sub000/internal/rbac"
)

const (
	localUserID = "auth_user_id"
	localEmail  = "auth_email"
	localRole   = "auth_role"
)

// fail renders an operational error. The kind→status mapping lives in the
// error itself, so this is the single place a status code is chosen.
func fail(c *fiber.Ctx, err error) error {
	e := autherrors.From(err)
	if e.RetryAfter > 0 {
		c.Set("Retry-After", strconv.Itoa(e.RetryAfter))
	}
	return c.Status(e.Status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    e.Code,
			"message": e.Message,
		},
	})
}

// RequireAuth verifies the bearer access token and stashes the caller's
// identity in the request locals.
func (h *AuthHandler) RequireAuth(c *fiber.Ctx) error {
	header := c.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return fail(c, autherrors.ErrNotAuthenticated)
	}

	claims, err := h.tokenService.VerifyAccessToken(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		return fail(c, err)
	}

	c.Locals(localUserID, claims.UserID)
	c.Locals(localEmail, claims.Email)
	c.Locals(localRole, claims.Role)
	return c.Next()
}

// RequireRole gates a route on the hierarchical role check.
func (h *AuthHandler) RequireRole(allowed ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals(localRole).(string)
		if err := rbac.RequireRole(role, allowed...); err != nil {
			return fail(c, err)
		}
		return c.Next()
	}
}

// RateLimit applies the general per-address API limiter.
func RateLimit(limiter *ratelimit.APILimiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := limiter.Check(c.Context(), c.IP()); err != nil {
			return fail(c, err)
		}
		return c.Next()
	}
}

func callerID(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}
