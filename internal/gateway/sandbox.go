package gateway

import (
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/example/lottomart/internal/currency"
)

// Sandbox simulates every gateway collaborator in memory. References start
// PENDING and complete when Settle is called, mirroring how a merchant test
// console settles pushed payments.
type Sandbox struct {
	mu sync.Mutex

	refs     map[string]Status
	refOrder map[string]string
	otps     map[string]sandboxOTP

	chargeErr error
	walletErr error
	qrErr     error
}

type sandboxOTP struct {
	phone string
	code  string
}

// NewSandbox returns an empty sandbox.
func NewSandbox() *Sandbox {
	return &Sandbox{
		refs:     make(map[string]Status),
		refOrder: make(map[string]string),
		otps:     make(map[string]sandboxOTP),
	}
}

// FailNextCharge makes the next card or source charge fail with err.
func (s *Sandbox) FailNextCharge(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chargeErr = err
}

// FailNextWallet makes the next OTP request or confirmation fail with err.
func (s *Sandbox) FailNextWallet(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.walletErr = err
}

// FailNextQR makes the next QR issuance fail with err.
func (s *Sandbox) FailNextQR(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.qrErr = err
}

// IssueQR mints a pending reference for the order.
func (s *Sandbox) IssueQR(req QRRequest) (*QRIssue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.qrErr != nil {
		err := s.qrErr
		s.qrErr = nil
		return nil, &GatewayError{Op: "issue qr", Err: err}
	}

	settlement, err := currency.Convert(req.AmountUSD, req.Currency)
	if err != nil {
		return nil, errors.Wrap(err, "issue qr")
	}

	ref := "ref_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	s.refs[ref] = StatusPending
	s.refOrder[ref] = req.OrderID

	return &QRIssue{
		QRImageRef:       "qr/" + ref + ".png",
		Reference:        ref,
		SettlementAmount: settlement,
		Currency:         req.Currency,
	}, nil
}

// PollStatus reports the settlement status of a reference.
func (s *Sandbox) PollStatus(reference string) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.refs[reference]
	if !ok {
		return "", errors.Wrap(ErrUnknownReference, reference)
	}
	return status, nil
}

// Settle marks a pending reference as completed, as if the payer had
// scanned and paid. Invalidated references cannot be settled.
func (s *Sandbox) Settle(reference string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.refs[reference]; !ok {
		return errors.Wrap(ErrUnknownReference, reference)
	}
	s.refs[reference] = StatusCompleted
	return nil
}

// Invalidate drops a reference so later polls and settles fail. Called on
// QR regeneration.
func (s *Sandbox) Invalidate(reference string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refs, reference)
	delete(s.refOrder, reference)
}

// Charge performs a simulated synchronous card charge. Card numbers ending
// in 0002 are always declined, the usual test-card convention.
func (s *Sandbox) Charge(req CardCharge) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.chargeErr != nil {
		err := s.chargeErr
		s.chargeErr = nil
		return "", &GatewayError{Op: "charge", Err: err}
	}

	if strings.HasSuffix(req.Number, "0002") {
		return "", &RejectionError{Reason: "card declined"}
	}

	return "ch_" + uuid.NewString(), nil
}

// ChargeSource charges a non-card source.
func (s *Sandbox) ChargeSource(source, orderID string, amountUSD float64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.chargeErr != nil {
		err := s.chargeErr
		s.chargeErr = nil
		return "", &GatewayError{Op: "charge " + source, Err: err}
	}

	return source + "_" + uuid.NewString(), nil
}

// RequestOTP sends (well, logs) a one-time code to the phone.
func (s *Sandbox) RequestOTP(phone, orderID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.walletErr != nil {
		err := s.walletErr
		s.walletErr = nil
		return "", &GatewayError{Op: "request otp", Err: err}
	}

	otpRef := "otp_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	code := fmt.Sprintf("%06d", rand.Intn(1000000))
	s.otps[otpRef] = sandboxOTP{phone: phone, code: code}

	log.Printf("[Sandbox] OTP for %s (order %s): %s", phone, orderID, code)
	return otpRef, nil
}

// OTPCode exposes the generated code so tests and the sandbox console can
// complete the challenge.
func (s *Sandbox) OTPCode(otpRef string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	otp, ok := s.otps[otpRef]
	return otp.code, ok
}

// ConfirmOTP checks the code and debits the wallet.
func (s *Sandbox) ConfirmOTP(otpRef, code string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.walletErr != nil {
		err := s.walletErr
		s.walletErr = nil
		return "", &GatewayError{Op: "confirm otp", Err: err}
	}

	otp, ok := s.otps[otpRef]
	if !ok {
		return "", errors.Wrap(ErrUnknownReference, otpRef)
	}
	if otp.code != code {
		return "", &RejectionError{Reason: "incorrect code"}
	}

	delete(s.otps, otpRef)
	return "tm_" + uuid.NewString(), nil
}

// AccountDetails returns the settlement account for an out-of-band transfer
// plus a fresh reference for the order.
func (s *Sandbox) AccountDetails(orderID string, amountUSD float64) (*BankDetails, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settlement, err := currency.Convert(amountUSD, currency.THB)
	if err != nil {
		return nil, errors.Wrap(err, "account details")
	}

	ref := "bank_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	s.refs[ref] = StatusPending
	s.refOrder[ref] = orderID

	return &BankDetails{
		BankName:         "Kasikorn Bank",
		AccountName:      "Lottomart Co., Ltd.",
		AccountNumber:    "012-3-45678-9",
		Reference:        ref,
		SettlementAmount: settlement,
	}, nil
}

// ReviewSlip checks an uploaded transfer slip. The review rejects uploads
// that are not decodable images and references the sandbox never issued.
func (s *Sandbox) ReviewSlip(reference string, slip []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.refs[reference]; !ok {
		return &RejectionError{Reason: "unknown transfer reference"}
	}

	if len(slip) == 0 {
		return &RejectionError{Reason: "empty slip"}
	}
	if !strings.HasPrefix(http.DetectContentType(slip), "image/") {
		return &RejectionError{Reason: "slip is not a readable image"}
	}

	s.refs[reference] = StatusCompleted
	return nil
}

// TransferDetails returns the external-transfer recipient and a reference.
func (s *Sandbox) TransferDetails(orderID string) (*TransferDetails, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref := "wise_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	s.refs[ref] = StatusPending
	s.refOrder[ref] = orderID

	return &TransferDetails{
		Recipient: "Lottomart Ltd",
		IBAN:      "GB29NWBK60161331926819",
		Reference: ref,
	}, nil
}

// ConfirmTransfer matches a typed external transaction id against the
// reference. Ids shorter than eight characters never match.
func (s *Sandbox) ConfirmTransfer(reference, externalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.refs[reference]; !ok {
		return &RejectionError{Reason: "unknown transfer reference"}
	}
	if len(strings.TrimSpace(externalID)) < 8 {
		return &RejectionError{Reason: "transfer not found"}
	}

	s.refs[reference] = StatusCompleted
	return nil
}
