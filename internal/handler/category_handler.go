package handler

import (
	"stockflow/internal/service"

	"github.com/gofiber/fiber/v2"
)

type CategoryHandler struct {
	service service.CategoryService
}

func NewCategoryHandler(s service.CategoryService) *CategoryHandler {
	return &CategoryHandler{service: s}
}

func (h *CategoryHandler) CreateCategory(c *fiber.Ctx) error {
	var in service.CreateCategoryInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	category, err := h.service.Create(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Category created", "data": category})
}

func (h *CategoryHandler) GetCategories(c *fiber.Ctx) error {
	categories, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(categories)
}

func (h *CategoryHandler) UpdateCategory(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var in service.UpdateCategoryInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	category, err := h.service.Update(c.UserContext(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Category updated", "data": category})
}

func (h *CategoryHandler) DeleteCategory(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Category deleted"})
}
