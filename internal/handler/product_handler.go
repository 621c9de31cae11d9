package handler

import (
	"stockflow/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ProductHandler struct {
	service service.ProductService
}

func NewProductHandler(s service.ProductService) *ProductHandler {
	return &ProductHandler{service: s}
}

func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var in service.CreateProductInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	product, err := h.service.Create(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Product created", "data": product})
}

func (h *ProductHandler) GetProducts(c *fiber.Ctx) error {
	products, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(products)
}

func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	product, err := h.service.GetByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(product)
}

func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var in service.UpdateProductInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	product, err := h.service.Update(c.UserContext(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Product updated", "data": product})
}

func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Product deleted"})
}
