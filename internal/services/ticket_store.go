package services

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/lottomart/internal/checkout"
	"github.com/example/lottomart/internal/models"
)

// TicketStore appends issued tickets to order history. The order_id
// unique index backs up the one-ticket-per-order invariant at the
// database level.
type TicketStore struct {
	db *gorm.DB
}

// NewTicketStore constructs a gorm-backed ticket store.
func NewTicketStore(db *gorm.DB) *TicketStore {
	return &TicketStore{db: db}
}

// Append creates the ticket, PENDING, once. A duplicate order id is
// silently ignored.
func (s *TicketStore) Append(t checkout.TicketRecord) error {
	ticket := models.Ticket{
		OrderID:       t.OrderID,
		UserID:        t.UserID,
		GameID:        t.GameID,
		GameName:      t.GameName,
		Status:        models.TicketStatusPending,
		Lines:         t.Lines,
		TotalAmount:   t.TotalAmount,
		PaymentMethod: string(t.Method),
		TransactionID: t.TransactionID,
		PurchaseDate:  time.Now(),
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}},
		DoNothing: true,
	}).Create(&ticket).Error
}
