package services

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/lottomart/internal/models"
	"github.com/example/lottomart/internal/payment"
)

// CardVault persists opted-in cards for one user, deduplicated by
// last4 + expiry so repeat saves of the same card don't pile up.
type CardVault struct {
	db     *gorm.DB
	userID *uuid.UUID
}

// NewCardVault binds a vault to a user profile.
func NewCardVault(db *gorm.DB, userID *uuid.UUID) *CardVault {
	return &CardVault{db: db, userID: userID}
}

// Save upserts the vault entry.
func (v *CardVault) Save(entry payment.VaultEntry) error {
	query := v.db.Model(&models.SavedCard{}).
		Where("last4 = ? AND expiry_month = ? AND expiry_year = ?",
			entry.Last4, entry.ExpiryMonth, entry.ExpiryYear)
	if v.userID != nil {
		query = query.Where("user_id = ?", *v.userID)
	} else {
		query = query.Where("user_id IS NULL")
	}

	var existing models.SavedCard
	if err := query.First(&existing).Error; err == nil {
		return v.db.Model(&existing).Updates(map[string]any{
			"brand":       entry.Brand,
			"holder_name": entry.HolderName,
		}).Error
	} else if err != gorm.ErrRecordNotFound {
		return err
	}

	return v.db.Create(&models.SavedCard{
		UserID:      v.userID,
		Brand:       entry.Brand,
		Last4:       entry.Last4,
		HolderName:  entry.HolderName,
		ExpiryMonth: entry.ExpiryMonth,
		ExpiryYear:  entry.ExpiryYear,
	}).Error
}
