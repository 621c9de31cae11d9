package handler

import (
	"stockflow/internal/service"

	"github.com/gofiber/fiber/v2"
)

type TransactionHandler struct {
	service service.TransactionService
}

func NewTransactionHandler(s service.TransactionService) *TransactionHandler {
	return &TransactionHandler{service: s}
}

func (h *TransactionHandler) CreateTransaction(c *fiber.Ctx) error {
	var in service.TransactionInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	tx, err := h.service.Create(c.UserContext(), currentUser(c), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Transaction recorded", "data": tx.ToResponse()})
}

func (h *TransactionHandler) GetTransactions(c *fiber.Ctx) error {
	transactions, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(transactions)
}

func (h *TransactionHandler) UpdateTransaction(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var in service.TransactionInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	tx, err := h.service.Update(c.UserContext(), currentUser(c), id, in)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Transaction updated", "data": tx.ToResponse()})
}

func (h *TransactionHandler) DeleteTransaction(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), currentUser(c), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Transaction deleted"})
}
