package payment

import (
	"net/http"
	"strings"
	"time"

	"github.com/example/lottomart/internal/currency"
	"github.com/example/lottomart/internal/gateway"
	"github.com/example/lottomart/internal/timers"
)

const (
	stepBankInfo   = "info"
	stepBankUpload = "upload"
	stepProcessing = "processing"

	// MaxSlipBytes is the upload ceiling for transfer slips.
	MaxSlipBytes = 5 << 20

	defaultReviewDelay = 3 * time.Second
)

// ValidateSlip applies the upload constraints: non-empty, at most 5 MB,
// and sniffed as an image.
func ValidateSlip(data []byte) error {
	if len(data) == 0 {
		return &ValidationError{Field: "slip", Reason: "file is empty"}
	}
	if len(data) > MaxSlipBytes {
		return &ValidationError{Field: "slip", Reason: "file exceeds 5 MB"}
	}
	if !strings.HasPrefix(http.DetectContentType(data), "image/") {
		return &ValidationError{Field: "slip", Reason: "file must be an image"}
	}
	return nil
}

// BankDeps are the collaborators for the manual-transfer driver.
type BankDeps struct {
	Bank        gateway.BankService
	ReviewDelay time.Duration
}

// BankDriver handles out-of-band bank transfers: show the settlement
// account, accept a slip upload, then run it through review.
type BankDriver struct {
	session
	deps BankDeps

	details *gateway.BankDetails
	review  *timers.Handle
}

// NewBankDriver mounts a bank session and fetches the settlement details.
func NewBankDriver(order Order, deps BankDeps, cb Callbacks) (*BankDriver, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	if deps.ReviewDelay <= 0 {
		deps.ReviewDelay = defaultReviewDelay
	}

	d := &BankDriver{session: newSession(MethodBank, order, cb), deps: deps}
	d.load()
	return d, nil
}

func (d *BankDriver) load() {
	details, err := d.deps.Bank.AccountDetails(d.order.OrderID, d.order.AmountUSD)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done {
		return
	}
	if err != nil {
		d.state = StateInitializing
		d.message = "could not load bank details, please retry"
		return
	}
	d.details = details
	d.state = StateAwaitingAction
	d.step = stepBankInfo
	d.message = ""
}

// Reload retries the details fetch after a load failure.
func (d *BankDriver) Reload() error {
	d.mu.Lock()
	if d.done || d.state != StateInitializing {
		d.mu.Unlock()
		return ErrInvalidState
	}
	d.mu.Unlock()
	d.load()
	return nil
}

// Proceed moves from the account-details screen to the upload step.
func (d *BankDriver) Proceed() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done || d.state != StateAwaitingAction || d.step != stepBankInfo {
		return ErrInvalidState
	}
	d.step = stepBankUpload
	return nil
}

// SubmitSlip accepts the uploaded transfer slip and enters the review
// delay. The review runs to completion once entered.
func (d *BankDriver) SubmitSlip(slip []byte) error {
	if err := ValidateSlip(slip); err != nil {
		return err
	}

	d.mu.Lock()
	if d.done || d.state != StateAwaitingAction || d.step != stepBankUpload {
		d.mu.Unlock()
		return ErrInvalidState
	}
	d.state = StateConfirming
	d.step = stepProcessing
	reference := d.details.Reference
	d.mu.Unlock()

	handle := timers.After(d.deps.ReviewDelay, func() {
		d.completeReview(reference, slip)
	})

	d.mu.Lock()
	d.review = handle
	d.mu.Unlock()
	return nil
}

func (d *BankDriver) completeReview(reference string, slip []byte) {
	err := d.deps.Bank.ReviewSlip(reference, slip)
	if err != nil {
		d.mu.Lock()
		if d.done || d.state != StateConfirming {
			d.mu.Unlock()
			return
		}
		d.state = StateAwaitingAction
		d.step = stepBankUpload
		if gateway.IsRejection(err) {
			d.message = "the slip was not accepted, upload it again"
		} else {
			d.message = err.Error()
		}
		d.mu.Unlock()
		return
	}

	d.finishSuccess(reference)
}

func (d *BankDriver) Cancel() {
	d.stopReview()
	d.finishCancel()
}

func (d *BankDriver) Teardown() {
	d.stopReview()
	d.markTornDown()
}

func (d *BankDriver) stopReview() {
	d.mu.Lock()
	review := d.review
	d.review = nil
	d.mu.Unlock()
	if review != nil {
		review.Stop()
	}
}

func (d *BankDriver) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	snap := d.baseSnapshot()
	if d.details != nil {
		snap.Reference = d.details.Reference
		snap.SettlementAmount = d.details.SettlementAmount
		snap.SettlementCurrency = currency.THB
	}
	return snap
}

// Details returns the settlement account shown for the transfer.
func (d *BankDriver) Details() *gateway.BankDetails {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.details
}
