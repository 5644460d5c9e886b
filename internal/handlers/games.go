package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/lottomart/internal/models"
	"github.com/example/lottomart/internal/utils"
)

// GameHandler manages the lottery game catalog.
type GameHandler struct {
	db *gorm.DB
}

// NewGameHandler constructs GameHandler.
func NewGameHandler(db *gorm.DB) *GameHandler {
	return &GameHandler{db: db}
}

// ListGames returns active games, newest jackpot first.
func (h *GameHandler) ListGames(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)

	query := h.db.Model(&models.Game{}).Where("is_active = true")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var games []models.Game
	if err := query.Order("jackpot_usd desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&games).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": games, "pagination": fiber.Map{
		"current_page":   pg.Page,
		"items_per_page": pg.Limit,
		"total_items":    total,
	}})
}

// GetGame returns a single game.
func (h *GameHandler) GetGame(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var game models.Game
	if err := h.db.First(&game, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "game not found")
		}
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": game})
}

// CreateGame adds a game to the catalog.
func (h *GameHandler) CreateGame(c *fiber.Ctx) error {
	var game models.Game
	if err := c.BodyParser(&game); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if game.MainNumbers < 1 {
		return fiber.NewError(fiber.StatusBadRequest, "main_numbers must be at least 1")
	}
	if err := h.db.Create(&game).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": game})
}

// UpdateGame updates a game.
func (h *GameHandler) UpdateGame(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	var game models.Game
	if err := h.db.First(&game, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "game not found")
		}
		return err
	}
	if err := c.BodyParser(&game); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	game.ID = id
	if err := h.db.Save(&game).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": game})
}

// DeleteGame removes a game from the catalog.
func (h *GameHandler) DeleteGame(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	if err := h.db.Delete(&models.Game{}, "id = ?", id).Error; err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
