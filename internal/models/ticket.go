package models

import (
	"time"

	"github.com/google/uuid"
)

// Ticket statuses. The payment layer only ever writes PENDING; draw
// settlement owns the later transitions.
const (
	TicketStatusPending = "PENDING"
	TicketStatusWin     = "WIN"
	TicketStatusLose    = "LOSE"
)

// Ticket is an issued order, created exactly once per successful payment.
type Ticket struct {
	BaseModel
	OrderID       string     `gorm:"uniqueIndex" json:"order_id"`
	UserID        *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	GameID        string     `json:"game_id"`
	GameName      string     `json:"game_name"`
	Status        string     `json:"status"`
	Lines         int        `json:"lines"`
	TotalAmount   float64    `json:"total_amount"`
	PaymentMethod string     `json:"payment_method"`
	TransactionID string     `json:"transaction_id"`
	PurchaseDate  time.Time  `json:"purchase_date"`
}
