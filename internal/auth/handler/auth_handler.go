package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/samuelweirer/psa-putzi-sub000/internal/auth/dto"
	"github.com/samuelweirer/psa-putzi-sub000/internal/auth/service"
	autherrors "github.com/samuelweirer/psa-putzi-sub000/internal/errors"
)

type AuthHandler struct {
	userService  *service.UserService
	tokenService service.TokenGenerator
}

func NewAuthHandler(userService *service.UserService, tokenService service.TokenGenerator) *AuthHandler {
	return &AuthHandler{userService: userService, tokenService: tokenService}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input dto.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return fail(c, autherrors.Validation("VALIDATION_ERROR", "invalid request body"))
	}

	user, err := h.userService.Register(c.Context(), input)
	if err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input dto.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return fail(c, autherrors.Validation("VALIDATION_ERROR", "invalid request body"))
	}

	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())

	out, err := h.userService.Login(c.Context(), input)
	if err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(out)
}

func (h *AuthHandler) OAuthLogin(c *fiber.Ctx) error {
	var input dto.OAuthLoginInput
	if err := c.BodyParser(&input); err != nil {
		return fail(c, autherrors.Validation("VALIDATION_ERROR", "invalid request body"))
	}

	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())

	out, err := h.userService.OAuthLogin(c.Context(), input)
	if err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(out)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var input dto.RefreshInput
	if err := c.BodyParser(&input); err != nil {
		return fail(c, autherrors.Validation("VALIDATION_ERROR", "invalid request body"))
	}

	out, err := h.userService.Refresh(c.Context(), input)
	if err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(out)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var input dto.LogoutInput
	if err := c.BodyParser(&input); err != nil {
		return fail(c, autherrors.Validation("VALIDATION_ERROR", "invalid request body"))
	}

	if err := h.userService.Logout(c.Context(), input.RefreshToken); err != nil {
		return fail(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, err := h.userService.GetProfile(c.Context(), callerID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(user)
}

func (h *AuthHandler) UpdateMe(c *fiber.Ctx) error {
	var input dto.UpdateProfileInput
	if err := c.BodyParser(&input); err != nil {
		return fail(c, autherrors.Validation("VALIDATION_ERROR", "invalid request body"))
	}

	user, err := h.userService.UpdateProfile(c.Context(), callerID(c), input)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(user)
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var input dto.ChangePasswordInput
	if err := c.BodyParser(&input); err != nil {
		return fail(c, autherrors.Validation("VALIDATION_ERROR", "invalid request body"))
	}

	if err := h.userService.ChangePassword(c.Context(), callerID(c), input); err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.MessageOutput{Message: "password changed"})
}

// RequestPasswordReset answers with the same message whether or not the
// email is known.
func (h *AuthHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var input dto.PasswordResetRequestInput
	if err := c.BodyParser(&input); err != nil {
		return fail(c, autherrors.Validation("VALIDATION_ERROR", "invalid request body"))
	}

	if err := h.userService.RequestPasswordReset(c.Context(), input.Email); err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.MessageOutput{
		Message: "if the email is registered, a reset link has been sent",
	})
}

func (h *AuthHandler) ConfirmPasswordReset(c *fiber.Ctx) error {
	var input dto.PasswordResetConfirmInput
	if err := c.BodyParser(&input); err != nil {
		return fail(c, autherrors.Validation("VALIDATION_ERROR", "invalid request body"))
	}

	if err := h.userService.ConfirmPasswordReset(c.Context(), input); err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.MessageOutput{Message: "password reset"})
}

func (h *AuthHandler) MfaSetup(c *fiber.Ctx) error {
	out, err := h.userService.SetupMfa(c.Context(), callerID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(out)
}

func (h *AuthHandler) MfaVerify(c *fiber.Ctx) error {
	var input dto.MfaVerifyInput
	if err := c.BodyParser(&input); err != nil {
		return fail(c, autherrors.Validation("VALIDATION_ERROR", "invalid request body"))
	}

	out, err := h.userService.VerifyMfa(c.Context(), callerID(c), input)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(out)
}

func (h *AuthHandler) MfaDisable(c *fiber.Ctx) error {
	var input dto.MfaDisableInput
	if err := c.BodyParser(&input); err != nil {
		return fail(c, autherrors.Validation("VALIDATION_ERROR", "invalid request body"))
	}

	if err := h.userService.DisableMfa(c.Context(), callerID(c), input); err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.MessageOutput{Message: "MFA disabled"})
}

// ForceLogout revokes every session of the target user. Admin only.
func (h *AuthHandler) ForceLogout(c *fiber.Ctx) error {
	if err := h.userService.ForceLogout(c.Context(), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
