package handler

import (
	"stockflow/internal/apperr"
	"stockflow/internal/auth"
	"stockflow/internal/service"

	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	service service.UserService
}

func NewUserHandler(s service.UserService) *UserHandler {
	return &UserHandler{service: s}
}

func (h *UserHandler) GetUsers(c *fiber.Ctx) error {
	users, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(users)
}

// GetMe returns the caller's local user, or null before the first sync.
func (h *UserHandler) GetMe(c *fiber.Ctx) error {
	session, ok := auth.SessionFrom(c.UserContext())
	if !ok {
		return apperr.New(apperr.Unauthenticated, "authentication required")
	}
	user, err := h.service.GetSelf(c.UserContext(), session.Subject)
	if err != nil {
		return err
	}
	return c.JSON(user)
}

func (h *UserHandler) UpdateUserRole(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var in service.UpdateRoleInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	user, err := h.service.UpdateRole(c.UserContext(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "User role updated", "data": user})
}

func (h *UserHandler) DeleteUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	result, err := h.service.Delete(c.UserContext(), currentUser(c), id)
	if err != nil {
		return err
	}
	return c.JSON(result)
}
