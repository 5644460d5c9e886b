package models

import "github.com/google/uuid"

// SavedCard keeps a tokenized card for reuse. No raw PAN is ever stored.
type SavedCard struct {
	BaseModel
	UserID      *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	Brand       string     `json:"brand"`
	Last4       string     `json:"last4"`
	ExpiryMonth int        `json:"expiry_month"`
	ExpiryYear  int        `json:"expiry_year"`
	HolderName  string     `json:"holder_name"`
}
