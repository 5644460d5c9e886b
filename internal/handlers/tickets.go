package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/lottomart/internal/middleware"
	"github.com/example/lottomart/internal/models"
	"github.com/example/lottomart/internal/utils"
)

// TicketHandler exposes the user's order history.
type TicketHandler struct {
	db *gorm.DB
}

// NewTicketHandler constructs TicketHandler.
func NewTicketHandler(db *gorm.DB) *TicketHandler {
	return &TicketHandler{db: db}
}

// ListTickets returns the user's tickets, newest first.
func (h *TicketHandler) ListTickets(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Ticket{}).Where("user_id = ?", userID)

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var tickets []models.Ticket
	if err := query.Order("purchase_date desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&tickets).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": tickets, "pagination": fiber.Map{
		"current_page":   pg.Page,
		"items_per_page": pg.Limit,
		"total_items":    total,
	}})
}

// GetTicket returns one ticket by order id.
func (h *TicketHandler) GetTicket(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var ticket models.Ticket
	if err := h.db.First(&ticket, "order_id = ? AND user_id = ?", c.Params("orderId"), userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "ticket not found")
		}
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": ticket})
}
