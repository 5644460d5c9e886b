package payment

import (
	"regexp"

	"github.com/example/lottomart/internal/gateway"
)

const (
	stepPhoneEntry = "phone_entry"
	stepOTPEntry   = "otp_entry"
)

// Thai mobile numbers: leading 0, second digit 6/8/9, ten digits total.
var (
	walletPhonePattern = regexp.MustCompile(`^0[689]\d{8}$`)
	otpPattern         = regexp.MustCompile(`^\d{6}$`)
)

// ValidateWalletPhone applies the wallet's mobile-number format.
func ValidateWalletPhone(phone string) error {
	if !walletPhonePattern.MatchString(phone) {
		return &ValidationError{Field: "phone", Reason: "must be a valid mobile number"}
	}
	return nil
}

// ValidateOTP requires exactly six digits.
func ValidateOTP(code string) error {
	if !otpPattern.MatchString(code) {
		return &ValidationError{Field: "otp", Reason: "must be 6 digits"}
	}
	return nil
}

// TrueMoneyDeps are the collaborators for the wallet OTP challenge.
type TrueMoneyDeps struct {
	Wallet gateway.WalletService
}

// TrueMoneyDriver debits a phone wallet behind an OTP challenge. A failed
// confirmation returns to OTP entry with the phone number preserved.
type TrueMoneyDriver struct {
	session
	deps TrueMoneyDeps

	phone  string
	otpRef string
}

// NewTrueMoneyDriver mounts a wallet session at phone entry.
func NewTrueMoneyDriver(order Order, deps TrueMoneyDeps, cb Callbacks) (*TrueMoneyDriver, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	d := &TrueMoneyDriver{session: newSession(MethodTrueMoney, order, cb), deps: deps}
	d.state = StateAwaitingAction
	d.step = stepPhoneEntry
	return d, nil
}

// SubmitPhone validates the number and requests an OTP.
func (d *TrueMoneyDriver) SubmitPhone(phone string) error {
	if err := ValidateWalletPhone(phone); err != nil {
		return err
	}

	d.mu.Lock()
	if d.done || d.state != StateAwaitingAction || d.step != stepPhoneEntry {
		d.mu.Unlock()
		return ErrInvalidState
	}
	d.mu.Unlock()

	otpRef, err := d.deps.Wallet.RequestOTP(phone, d.order.OrderID)
	if err != nil {
		d.setMessage(err.Error())
		return err
	}

	d.mu.Lock()
	if !d.done {
		d.phone = phone
		d.otpRef = otpRef
		d.step = stepOTPEntry
		d.message = ""
	}
	d.mu.Unlock()
	return nil
}

// ResendOTP requests a fresh code for the stored phone without changing
// the session state.
func (d *TrueMoneyDriver) ResendOTP() error {
	d.mu.Lock()
	if d.done || d.step != stepOTPEntry {
		d.mu.Unlock()
		return ErrInvalidState
	}
	phone := d.phone
	d.mu.Unlock()

	otpRef, err := d.deps.Wallet.RequestOTP(phone, d.order.OrderID)
	if err != nil {
		d.setMessage(err.Error())
		return err
	}

	d.mu.Lock()
	if !d.done {
		d.otpRef = otpRef
	}
	d.mu.Unlock()
	return nil
}

// ConfirmOTP attempts the debit. Rejection goes back to OTP entry with a
// message; the phone number stays.
func (d *TrueMoneyDriver) ConfirmOTP(code string) error {
	if err := ValidateOTP(code); err != nil {
		return err
	}

	d.mu.Lock()
	if d.done || d.state != StateAwaitingAction || d.step != stepOTPEntry {
		d.mu.Unlock()
		return ErrInvalidState
	}
	d.state = StateConfirming
	otpRef := d.otpRef
	d.mu.Unlock()

	txnID, err := d.deps.Wallet.ConfirmOTP(otpRef, code)
	if err != nil {
		d.mu.Lock()
		if !d.done {
			d.state = StateAwaitingAction
			d.step = stepOTPEntry
			if gateway.IsRejection(err) {
				d.message = "the code was not accepted, try again"
			} else {
				d.message = err.Error()
			}
		}
		d.mu.Unlock()
		return err
	}

	d.finishSuccess(txnID)
	return nil
}

// Phone returns the confirmed wallet number, for the OTP entry screen.
func (d *TrueMoneyDriver) Phone() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.phone
}

func (d *TrueMoneyDriver) setMessage(msg string) {
	d.mu.Lock()
	if !d.done {
		d.message = msg
	}
	d.mu.Unlock()
}

func (d *TrueMoneyDriver) Cancel() {
	d.finishCancel()
}

func (d *TrueMoneyDriver) Teardown() {
	d.markTornDown()
}

func (d *TrueMoneyDriver) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.baseSnapshot()
}
