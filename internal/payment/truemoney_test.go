package payment

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/lottomart/internal/gateway"
)

// stubWallet is a deterministic wallet gateway: every challenge expects
// the same code.
type stubWallet struct {
	code     string
	requests int
}

func (w *stubWallet) RequestOTP(phone, orderID string) (string, error) {
	w.requests++
	return "otp_stub", nil
}

func (w *stubWallet) ConfirmOTP(otpRef, code string) (string, error) {
	if code != w.code {
		return "", &gateway.RejectionError{Reason: "incorrect code"}
	}
	return "tm_stub", nil
}

func TestValidateWalletPhone(t *testing.T) {
	require.NoError(t, ValidateWalletPhone("0812345678"))
	require.NoError(t, ValidateWalletPhone("0612345678"))
	require.NoError(t, ValidateWalletPhone("0912345678"))

	rejects := []string{
		"1812345678", // wrong leading digit
		"081234567",  // nine digits
		"08123456789",
		"0712345678", // unassigned mobile prefix
		"081234567a",
		"",
	}
	for _, phone := range rejects {
		require.Error(t, ValidateWalletPhone(phone), "phone %q", phone)
	}
}

func TestTrueMoneyDriverHappyPath(t *testing.T) {
	var successes atomic.Int32
	wallet := &stubWallet{code: "123456"}

	d, err := NewTrueMoneyDriver(testOrder(), TrueMoneyDeps{Wallet: wallet}, Callbacks{
		OnSuccess: func(string) { successes.Add(1) },
	})
	require.NoError(t, err)
	require.Equal(t, "phone_entry", d.Snapshot().Step)

	// OTP actions before a phone is on file are refused.
	require.ErrorIs(t, d.ResendOTP(), ErrInvalidState)
	require.ErrorIs(t, d.ConfirmOTP("123456"), ErrInvalidState)

	require.NoError(t, d.SubmitPhone("0812345678"))
	require.Equal(t, "otp_entry", d.Snapshot().Step)
	require.Equal(t, "0812345678", d.Phone())

	require.NoError(t, d.ConfirmOTP("123456"))
	require.Equal(t, StateSucceeded, d.State())
	require.Equal(t, int32(1), successes.Load())
}

func TestTrueMoneyDriverRejectsBadPhone(t *testing.T) {
	d, err := NewTrueMoneyDriver(testOrder(), TrueMoneyDeps{Wallet: &stubWallet{code: "123456"}}, Callbacks{})
	require.NoError(t, err)

	require.True(t, IsValidation(d.SubmitPhone("1812345678")))
	require.True(t, IsValidation(d.SubmitPhone("081234567")))
	require.Equal(t, "phone_entry", d.Snapshot().Step)
	d.Teardown()
}

func TestTrueMoneyDriverWrongCodeReturnsToEntry(t *testing.T) {
	var successes atomic.Int32
	wallet := &stubWallet{code: "123456"}

	d, err := NewTrueMoneyDriver(testOrder(), TrueMoneyDeps{Wallet: wallet}, Callbacks{
		OnSuccess: func(string) { successes.Add(1) },
	})
	require.NoError(t, err)
	require.NoError(t, d.SubmitPhone("0812345678"))

	// Malformed codes never reach the gateway.
	require.True(t, IsValidation(d.ConfirmOTP("12345")))
	require.True(t, IsValidation(d.ConfirmOTP("12345a")))

	err = d.ConfirmOTP("654321")
	require.True(t, gateway.IsRejection(err))

	// Back at OTP entry with the phone preserved and a message shown.
	snap := d.Snapshot()
	require.Equal(t, StateAwaitingAction, snap.State)
	require.Equal(t, "otp_entry", snap.Step)
	require.NotEmpty(t, snap.Message)
	require.Equal(t, "0812345678", d.Phone())

	require.NoError(t, d.ConfirmOTP("123456"))
	require.Equal(t, int32(1), successes.Load())
}

func TestTrueMoneyDriverResendKeepsState(t *testing.T) {
	wallet := &stubWallet{code: "123456"}
	d, err := NewTrueMoneyDriver(testOrder(), TrueMoneyDeps{Wallet: wallet}, Callbacks{})
	require.NoError(t, err)
	require.NoError(t, d.SubmitPhone("0812345678"))

	require.NoError(t, d.ResendOTP())
	require.Equal(t, "otp_entry", d.Snapshot().Step)
	require.Equal(t, 2, wallet.requests)
	d.Teardown()
}

func TestTrueMoneyDriverSandboxRoundTrip(t *testing.T) {
	sb := gateway.NewSandbox()
	otpRef, err := sb.RequestOTP("0812345678", "ord-1")
	require.NoError(t, err)

	code, ok := sb.OTPCode(otpRef)
	require.True(t, ok)

	txn, err := sb.ConfirmOTP(otpRef, code)
	require.NoError(t, err)
	require.Contains(t, txn, "tm_")

	// The code is single-use.
	_, err = sb.ConfirmOTP(otpRef, code)
	require.Error(t, err)
}
