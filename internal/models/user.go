package models

// User represents an authenticated customer.
type User struct {
	BaseModel
	FirstName    string      `json:"first_name"`
	LastName     string      `json:"last_name"`
	Phone        string      `gorm:"uniqueIndex" json:"phone"`
	DisplayName  string      `json:"display_name"`
	PasswordHash string      `json:"-"`
	IsVerified   bool        `json:"is_verified"`
	SavedCards   []SavedCard `json:"saved_cards,omitempty"`
	Tickets      []Ticket    `json:"tickets,omitempty"`
}
