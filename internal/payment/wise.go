package payment

import (
	"strings"
	"time"

	"github.com/example/lottomart/internal/gateway"
	"github.com/example/lottomart/internal/timers"
)

const (
	stepWiseDetails = "details"
	stepWiseConfirm = "confirm"
)

// WiseDeps are the collaborators for the external-transfer driver.
type WiseDeps struct {
	Transfer    gateway.TransferService
	ReviewDelay time.Duration
}

// WiseDriver mirrors the bank driver but takes a typed external
// transaction id as proof and checks it against the gateway.
type WiseDriver struct {
	session
	deps WiseDeps

	details *gateway.TransferDetails
	review  *timers.Handle
}

// NewWiseDriver mounts a transfer session and fetches recipient details.
func NewWiseDriver(order Order, deps WiseDeps, cb Callbacks) (*WiseDriver, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	if deps.ReviewDelay <= 0 {
		deps.ReviewDelay = defaultReviewDelay
	}

	d := &WiseDriver{session: newSession(MethodWise, order, cb), deps: deps}
	d.load()
	return d, nil
}

func (d *WiseDriver) load() {
	details, err := d.deps.Transfer.TransferDetails(d.order.OrderID)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done {
		return
	}
	if err != nil {
		d.state = StateInitializing
		d.message = "could not load transfer details, please retry"
		return
	}
	d.details = details
	d.state = StateAwaitingAction
	d.step = stepWiseDetails
	d.message = ""
}

// Reload retries the details fetch after a load failure.
func (d *WiseDriver) Reload() error {
	d.mu.Lock()
	if d.done || d.state != StateInitializing {
		d.mu.Unlock()
		return ErrInvalidState
	}
	d.mu.Unlock()
	d.load()
	return nil
}

// Proceed moves from the recipient screen to the confirmation step.
func (d *WiseDriver) Proceed() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done || d.state != StateAwaitingAction || d.step != stepWiseDetails {
		return ErrInvalidState
	}
	d.step = stepWiseConfirm
	return nil
}

// ConfirmReference submits the user's external transaction id and enters
// the review delay. Rejection returns to the confirmation step.
func (d *WiseDriver) ConfirmReference(externalID string) error {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return &ValidationError{Field: "external_id", Reason: "must not be empty"}
	}

	d.mu.Lock()
	if d.done || d.state != StateAwaitingAction || d.step != stepWiseConfirm {
		d.mu.Unlock()
		return ErrInvalidState
	}
	d.state = StateConfirming
	d.step = stepProcessing
	reference := d.details.Reference
	d.mu.Unlock()

	handle := timers.After(d.deps.ReviewDelay, func() {
		d.completeConfirm(reference, externalID)
	})

	d.mu.Lock()
	d.review = handle
	d.mu.Unlock()
	return nil
}

func (d *WiseDriver) completeConfirm(reference, externalID string) {
	err := d.deps.Transfer.ConfirmTransfer(reference, externalID)
	if err != nil {
		d.mu.Lock()
		if d.done || d.state != StateConfirming {
			d.mu.Unlock()
			return
		}
		d.state = StateAwaitingAction
		d.step = stepWiseConfirm
		if gateway.IsRejection(err) {
			d.message = "the transfer id was not accepted, check it and try again"
		} else {
			d.message = err.Error()
		}
		d.mu.Unlock()
		return
	}

	d.finishSuccess(reference)
}

func (d *WiseDriver) Cancel() {
	d.stopReview()
	d.finishCancel()
}

func (d *WiseDriver) Teardown() {
	d.stopReview()
	d.markTornDown()
}

func (d *WiseDriver) stopReview() {
	d.mu.Lock()
	review := d.review
	d.review = nil
	d.mu.Unlock()
	if review != nil {
		review.Stop()
	}
}

func (d *WiseDriver) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	snap := d.baseSnapshot()
	if d.details != nil {
		snap.Reference = d.details.Reference
	}
	return snap
}

// Details returns the transfer recipient shown to the user.
func (d *WiseDriver) Details() *gateway.TransferDetails {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.details
}
