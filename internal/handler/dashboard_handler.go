package handler

import (
	"strconv"

	"stockflow/internal/apperr"
	"stockflow/internal/service"

	"github.com/gofiber/fiber/v2"
)

type DashboardHandler struct {
	service service.DashboardService
}

func NewDashboardHandler(s service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: s}
}

// GetStockMovement returns stock movement data for charts
// Query params: days (default 7)
func (h *DashboardHandler) GetStockMovement(c *fiber.Ctx) error {
	days := service.DefaultMovementDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return apperr.New(apperr.BadRequest, "days must be a number")
		}
		if n > 0 {
			days = n
		}
	}

	data, err := h.service.GetStockMovement(c.UserContext(), days)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"period": days,
		"data":   data,
	})
}

// GetDashboardStats returns overview statistics
func (h *DashboardHandler) GetDashboardStats(c *fiber.Ctx) error {
	stats, err := h.service.GetDashboardStats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

func (h *DashboardHandler) GetLowStock(c *fiber.Ctx) error {
	products, err := h.service.GetLowStock(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(products)
}
