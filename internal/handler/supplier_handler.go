package handler

import (
	"stockflow/internal/service"

	"github.com/gofiber/fiber/v2"
)

type SupplierHandler struct {
	service service.SupplierService
}

func NewSupplierHandler(s service.SupplierService) *SupplierHandler {
	return &SupplierHandler{service: s}
}

func (h *SupplierHandler) CreateSupplier(c *fiber.Ctx) error {
	var in service.SupplierInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	supplier, err := h.service.Create(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Supplier created", "data": supplier})
}

func (h *SupplierHandler) GetSuppliers(c *fiber.Ctx) error {
	suppliers, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(suppliers)
}

func (h *SupplierHandler) UpdateSupplier(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var in service.SupplierInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	supplier, err := h.service.Update(c.UserContext(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Supplier updated", "data": supplier})
}

func (h *SupplierHandler) DeleteSupplier(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Supplier deleted"})
}
