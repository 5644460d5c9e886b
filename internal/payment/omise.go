package payment

import (
	"fmt"
	"time"

	"github.com/example/lottomart/internal/gateway"
	"github.com/example/lottomart/internal/timers"
)

const stepMethodPicker = "method_picker"

// Omise sub-methods.
const (
	OmisePromptPay       = "promptpay"
	OmiseTrueMoney       = "truemoney"
	OmiseInternetBanking = "internet_banking"
	OmiseCard            = "card"
)

// OmiseDeps are the collaborators for the multi-method dispatcher.
type OmiseDeps struct {
	QR           QRDeps
	Charger      gateway.SourceCharger
	ProcessDelay time.Duration
}

// OmiseDriver is a meta-driver: it presents a sub-method picker, then
// either delegates to the QR-push shape (PromptPay) or runs a generic
// processing charge. The session contract is satisfied by composition.
type OmiseDriver struct {
	session
	deps OmiseDeps

	sub     string
	inner   *QRDriver
	process *timers.Handle
}

// NewOmiseDriver mounts the dispatcher at the sub-method picker.
func NewOmiseDriver(order Order, deps OmiseDeps, cb Callbacks) (*OmiseDriver, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	if deps.ProcessDelay <= 0 {
		deps.ProcessDelay = defaultReviewDelay
	}

	d := &OmiseDriver{session: newSession(MethodOmise, order, cb), deps: deps}
	d.state = StateAwaitingAction
	d.step = stepMethodPicker
	return d, nil
}

// ChooseSubMethod selects the sub-method and starts its flow. Allowed
// from the picker and again after a failed generic charge.
func (d *OmiseDriver) ChooseSubMethod(sub string) error {
	switch sub {
	case OmisePromptPay, OmiseTrueMoney, OmiseInternetBanking, OmiseCard:
	default:
		return &ValidationError{Field: "sub_method", Reason: fmt.Sprintf("unknown sub-method %q", sub)}
	}

	d.mu.Lock()
	if d.done || (d.state != StateAwaitingAction && d.state != StateFailed) || d.inner != nil {
		d.mu.Unlock()
		return ErrInvalidState
	}
	d.sub = sub
	d.mu.Unlock()

	if sub == OmisePromptPay {
		return d.startPromptPay()
	}
	return d.startCharge(sub)
}

// startPromptPay delegates to the QR driver; its terminal outcome becomes
// this session's terminal outcome.
func (d *OmiseDriver) startPromptPay() error {
	inner, err := NewQRDriver(MethodOmise, d.order, d.deps.QR, Callbacks{
		OnSuccess: func(txnID string) { d.finishSuccess(txnID) },
		OnCancel:  func() { d.finishCancel() },
	})
	if err != nil {
		return err
	}

	d.mu.Lock()
	if d.done {
		d.mu.Unlock()
		inner.Teardown()
		return ErrInvalidState
	}
	d.inner = inner
	d.mu.Unlock()
	return nil
}

// startCharge runs the generic Processing shape for non-QR sub-methods.
func (d *OmiseDriver) startCharge(sub string) error {
	d.mu.Lock()
	if d.done {
		d.mu.Unlock()
		return ErrInvalidState
	}
	d.state = StateConfirming
	d.step = stepProcessing
	d.mu.Unlock()

	handle := timers.After(d.deps.ProcessDelay, func() {
		d.completeCharge(sub)
	})

	d.mu.Lock()
	d.process = handle
	d.mu.Unlock()
	return nil
}

func (d *OmiseDriver) completeCharge(sub string) {
	txnID, err := d.deps.Charger.ChargeSource(sub, d.order.OrderID, d.order.AmountUSD)
	if err != nil {
		d.mu.Lock()
		if d.done || d.state != StateConfirming {
			d.mu.Unlock()
			return
		}
		d.state = StateFailed
		d.step = stepMethodPicker
		d.sub = ""
		d.message = "payment failed, pick a method to try again"
		d.mu.Unlock()
		return
	}

	d.finishSuccess(txnID)
}

// Regenerate forwards to the delegated QR session after expiry.
func (d *OmiseDriver) Regenerate() error {
	d.mu.Lock()
	inner := d.inner
	d.mu.Unlock()
	if inner == nil {
		return ErrInvalidState
	}
	return inner.Regenerate()
}

func (d *OmiseDriver) State() State {
	d.mu.Lock()
	inner := d.inner
	d.mu.Unlock()
	if inner != nil {
		// Terminal outcomes are mirrored onto this session; until then
		// the delegated state is the session state.
		if s := d.terminalState(); s != "" {
			return s
		}
		return inner.State()
	}
	return d.session.State()
}

func (d *OmiseDriver) terminalState() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateSucceeded || d.state == StateCancelled {
		return d.state
	}
	return ""
}

func (d *OmiseDriver) Cancel() {
	d.mu.Lock()
	inner := d.inner
	process := d.process
	d.process = nil
	d.mu.Unlock()

	if process != nil {
		process.Stop()
	}
	if inner != nil {
		// The inner driver stops its timers and fires OnCancel, which
		// lands on this session's finishCancel.
		inner.Cancel()
		return
	}
	d.finishCancel()
}

func (d *OmiseDriver) Teardown() {
	d.mu.Lock()
	inner := d.inner
	process := d.process
	d.process = nil
	d.mu.Unlock()

	if process != nil {
		process.Stop()
	}
	if inner != nil {
		inner.Teardown()
	}
	d.markTornDown()
}

func (d *OmiseDriver) Snapshot() Snapshot {
	d.mu.Lock()
	inner := d.inner
	sub := d.sub
	d.mu.Unlock()

	if inner != nil {
		snap := inner.Snapshot()
		snap.Method = MethodOmise
		snap.Step = OmisePromptPay
		return snap
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	snap := d.baseSnapshot()
	if sub != "" {
		snap.Step = snap.Step + ":" + sub
	}
	return snap
}
