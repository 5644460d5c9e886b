package models

import "time"

// Game is a lottery a customer can buy lines for.
type Game struct {
	BaseModel
	Name        string    `gorm:"uniqueIndex" json:"name"`
	Country     string    `json:"country"`
	JackpotUSD  float64   `json:"jackpot_usd"`
	NextDraw    time.Time `json:"next_draw"`
	MainNumbers int       `json:"main_numbers"`
	MainMax     int       `json:"main_max"`
	BonusCount  int       `json:"bonus_count"`
	BonusMax    int       `json:"bonus_max"`
	LogoImage   string    `json:"logo_image"`
	IsActive    bool      `json:"is_active"`
}
