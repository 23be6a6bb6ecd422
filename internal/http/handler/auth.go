package handler

import (
	"github.com/gofiber/fiber/v2"

	"docflow/internal/model"
	"docflow/internal/service"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email    string     `json:"email"`
	Password string     `json:"password"`
	FullName string     `json:"fullName"`
	Role     model.Role `json:"role"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// Login godoc
// @Summary Exchange credentials for an access token
// @Tags auth
// @Accept json
// @Produce json
// @Param body body loginRequest true "credentials"
// @Success 200 {object} tokenResponse
// @Failure 401 {object} errorPayload
// @Router /api/v1/auth/login [post]
func Login(auth service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req loginRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		}
		token, err := auth.Login(c.UserContext(), req.Email, req.Password)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(tokenResponse{AccessToken: token})
	}
}

// Register godoc
// @Summary Create an account and return its access token
// @Tags auth
// @Accept json
// @Produce json
// @Param body body registerRequest true "account"
// @Success 201 {object} tokenResponse
// @Failure 400 {object} errorPayload
// @Failure 409 {object} errorPayload
// @Router /api/v1/user/register [post]
func Register(auth service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req registerRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		}
		token, err := auth.Register(c.UserContext(), service.RegisterInput{
			Email:    req.Email,
			Password: req.Password,
			FullName: req.FullName,
			Role:     req.Role,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(tokenResponse{AccessToken: token})
	}
}
