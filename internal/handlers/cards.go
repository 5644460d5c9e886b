package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/lottomart/internal/middleware"
	"github.com/example/lottomart/internal/models"
)

// CardHandler manages the user's saved cards. Cards are created inside
// the card payment driver on opt-in; here they can only be listed and
// deleted.
type CardHandler struct {
	db *gorm.DB
}

// NewCardHandler constructs CardHandler.
func NewCardHandler(db *gorm.DB) *CardHandler {
	return &CardHandler{db: db}
}

// ListCards returns the user's saved cards.
func (h *CardHandler) ListCards(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var cards []models.SavedCard
	if err := h.db.Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&cards).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": cards})
}

// DeleteCard removes a saved card on explicit user action.
func (h *CardHandler) DeleteCard(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	if err := h.db.Delete(&models.SavedCard{}, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
