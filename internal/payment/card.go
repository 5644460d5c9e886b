package payment

import (
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/example/lottomart/internal/gateway"
)

const (
	stepCardForm = "card_form"

	cardYearHorizon = 20
)

var digitsOnly = regexp.MustCompile(`^\d+$`)

// CardFields is one charge attempt's form input. Never persisted as-is.
type CardFields struct {
	Number      string
	HolderName  string
	ExpiryMonth int
	ExpiryYear  int // two-digit year
	CVV         string
}

// VaultEntry is what survives a "save card" opt-in: brand, last4 and
// expiry only, no raw PAN.
type VaultEntry struct {
	Brand       string
	Last4       string
	HolderName  string
	ExpiryMonth int
	ExpiryYear  int
}

// CardVault persists opted-in cards, keyed by last4 + expiry.
type CardVault interface {
	Save(entry VaultEntry) error
}

// SavedCardRef identifies a previously vaulted card for reuse.
type SavedCardRef struct {
	ID          string
	Last4       string
	ExpiryMonth int
	ExpiryYear  int
}

// ValidateCardFields applies the charge-form field rules. It returns a
// ValidationError naming the first offending field.
func ValidateCardFields(f CardFields) error {
	number := strings.ReplaceAll(f.Number, " ", "")
	if !digitsOnly.MatchString(number) || len(number) < 13 || len(number) > 19 {
		return &ValidationError{Field: "card_number", Reason: "must be 13-19 digits"}
	}
	if f.ExpiryMonth < 1 || f.ExpiryMonth > 12 {
		return &ValidationError{Field: "expiry_month", Reason: "must be 1-12"}
	}
	yy := time.Now().Year() % 100
	if f.ExpiryYear < yy || f.ExpiryYear > yy+cardYearHorizon {
		return &ValidationError{Field: "expiry_year", Reason: "outside accepted range"}
	}
	if !digitsOnly.MatchString(f.CVV) || len(f.CVV) < 3 || len(f.CVV) > 4 {
		return &ValidationError{Field: "cvv", Reason: "must be 3-4 digits"}
	}
	if strings.TrimSpace(f.HolderName) == "" {
		return &ValidationError{Field: "holder_name", Reason: "must not be empty"}
	}
	return nil
}

// BrandOf guesses the card brand from the leading digits.
func BrandOf(number string) string {
	number = strings.ReplaceAll(number, " ", "")
	switch {
	case strings.HasPrefix(number, "4"):
		return "VISA"
	case strings.HasPrefix(number, "5"):
		return "MASTERCARD"
	case strings.HasPrefix(number, "34"), strings.HasPrefix(number, "37"):
		return "AMEX"
	default:
		return "CARD"
	}
}

// CardDeps are the collaborators the card driver needs.
type CardDeps struct {
	Charger gateway.CardCharger
	Vault   CardVault
}

// CardDriver is the synchronous-charge driver. One charge call per pay
// action, for fresh and saved cards alike.
type CardDriver struct {
	session
	deps CardDeps
}

// NewCardDriver mounts a card session awaiting form input.
func NewCardDriver(order Order, deps CardDeps, cb Callbacks) (*CardDriver, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	d := &CardDriver{session: newSession(MethodCard, order, cb), deps: deps}
	d.state = StateAwaitingAction
	d.step = stepCardForm
	return d, nil
}

// Submit validates the form, performs one charge, and on success
// optionally vaults the card.
func (d *CardDriver) Submit(fields CardFields, saveCard bool) error {
	if err := ValidateCardFields(fields); err != nil {
		return err
	}

	d.mu.Lock()
	if d.done || d.state != StateAwaitingAction {
		d.mu.Unlock()
		return ErrInvalidState
	}
	d.state = StateConfirming
	d.mu.Unlock()

	number := strings.ReplaceAll(fields.Number, " ", "")
	txnID, err := d.deps.Charger.Charge(gateway.CardCharge{
		Number:      number,
		HolderName:  fields.HolderName,
		ExpiryMonth: fields.ExpiryMonth,
		ExpiryYear:  fields.ExpiryYear,
		CVV:         fields.CVV,
		OrderID:     d.order.OrderID,
		AmountUSD:   d.order.AmountUSD,
	})
	if err != nil {
		d.failBack(err)
		return err
	}

	if saveCard && d.deps.Vault != nil {
		entry := VaultEntry{
			Brand:       BrandOf(number),
			Last4:       number[len(number)-4:],
			HolderName:  strings.TrimSpace(fields.HolderName),
			ExpiryMonth: fields.ExpiryMonth,
			ExpiryYear:  fields.ExpiryYear,
		}
		if err := d.deps.Vault.Save(entry); err != nil {
			log.Printf("[Card] vault save failed for order %s: %v", d.order.OrderID, err)
		}
	}

	d.finishSuccess(txnID)
	return nil
}

// PayWithSaved charges a vaulted card. Field validation is skipped, but a
// charge call still happens per attempt.
func (d *CardDriver) PayWithSaved(card SavedCardRef) error {
	if card.ID == "" {
		return &ValidationError{Field: "card_id", Reason: "must not be empty"}
	}

	d.mu.Lock()
	if d.done || d.state != StateAwaitingAction {
		d.mu.Unlock()
		return ErrInvalidState
	}
	d.state = StateConfirming
	d.mu.Unlock()

	txnID, err := d.deps.Charger.Charge(gateway.CardCharge{
		SavedCardID: card.ID,
		OrderID:     d.order.OrderID,
		AmountUSD:   d.order.AmountUSD,
	})
	if err != nil {
		d.failBack(err)
		return err
	}

	d.finishSuccess(txnID)
	return nil
}

// failBack surfaces a charge failure and returns the form to an
// actionable state.
func (d *CardDriver) failBack(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done {
		return
	}
	d.state = StateAwaitingAction
	d.step = stepCardForm
	d.message = err.Error()
}

func (d *CardDriver) Cancel() {
	d.finishCancel()
}

func (d *CardDriver) Teardown() {
	d.markTornDown()
}

func (d *CardDriver) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.baseSnapshot()
}
