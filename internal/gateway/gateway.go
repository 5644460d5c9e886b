// Package gateway defines the collaborator interfaces the payment drivers
// consume: QR issuance and status polling, card charging, wallet OTP
// challenges, bank transfer details and slip review. The Sandbox
// implementation simulates all of them in memory; no real money moves.
package gateway

import "github.com/example/lottomart/internal/currency"

// Status of a pushed payment reference.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
)

// QRRequest asks for a scannable code correlating an order with later polls.
type QRRequest struct {
	OrderID   string
	GameID    string
	GameName  string
	AmountUSD float64
	Currency  currency.Code
}

// QRIssue is the generated code plus the reference used for polling.
type QRIssue struct {
	QRImageRef       string
	Reference        string
	SettlementAmount float64
	Currency         currency.Code
}

// QRService issues QR codes and reports their settlement status.
type QRService interface {
	IssueQR(req QRRequest) (*QRIssue, error)
	PollStatus(reference string) (Status, error)
}

// CardCharge carries the fields for a single synchronous charge attempt.
// Either Number (fresh card) or SavedCardID (vaulted card) is set.
type CardCharge struct {
	Number      string
	HolderName  string
	ExpiryMonth int
	ExpiryYear  int
	CVV         string
	SavedCardID string
	OrderID     string
	AmountUSD   float64
}

// CardCharger performs a synchronous card charge.
type CardCharger interface {
	Charge(req CardCharge) (transactionID string, err error)
}

// SourceCharger charges a non-card gateway source (internet banking, wallet).
type SourceCharger interface {
	ChargeSource(source, orderID string, amountUSD float64) (transactionID string, err error)
}

// WalletService drives a phone/OTP wallet debit.
type WalletService interface {
	RequestOTP(phone, orderID string) (otpRef string, err error)
	ConfirmOTP(otpRef, code string) (transactionID string, err error)
}

// BankDetails are the settlement account shown for an out-of-band transfer.
type BankDetails struct {
	BankName         string
	AccountName      string
	AccountNumber    string
	Reference        string
	SettlementAmount float64
}

// BankService hands out transfer details and reviews uploaded slips.
type BankService interface {
	AccountDetails(orderID string, amountUSD float64) (*BankDetails, error)
	ReviewSlip(reference string, slip []byte) error
}

// TransferDetails describe the external-transfer recipient.
type TransferDetails struct {
	Recipient string
	IBAN      string
	Reference string
}

// TransferService hands out transfer details and checks typed confirmations.
type TransferService interface {
	TransferDetails(orderID string) (*TransferDetails, error)
	ConfirmTransfer(reference, externalID string) error
}
