package payment

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/lottomart/internal/gateway"
)

// pngSlip carries the PNG signature so content sniffing sees an image.
var pngSlip = append([]byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}, make([]byte, 64)...)

// stubBank reviews every slip against a fixed verdict.
type stubBank struct {
	reject bool
}

func (b *stubBank) AccountDetails(orderID string, amountUSD float64) (*gateway.BankDetails, error) {
	return &gateway.BankDetails{
		BankName:      "Test Bank",
		AccountName:   "Test Co",
		AccountNumber: "000-0-00000-0",
		Reference:     "bank_test",
	}, nil
}

func (b *stubBank) ReviewSlip(reference string, slip []byte) error {
	if b.reject {
		return &gateway.RejectionError{Reason: "transfer not found"}
	}
	return nil
}

func bankDeps(bank gateway.BankService) BankDeps {
	return BankDeps{Bank: bank, ReviewDelay: 20 * time.Millisecond}
}

func TestValidateSlip(t *testing.T) {
	require.NoError(t, ValidateSlip(pngSlip))

	err := ValidateSlip(nil)
	require.True(t, IsValidation(err))

	err = ValidateSlip([]byte("just some text, not an image"))
	require.True(t, IsValidation(err))

	oversize := make([]byte, MaxSlipBytes+1)
	copy(oversize, pngSlip)
	err = ValidateSlip(oversize)
	require.True(t, IsValidation(err))
}

func TestBankDriverHappyPath(t *testing.T) {
	sb := gateway.NewSandbox()
	var successes atomic.Int32
	var gotTxn atomic.Value

	d, err := NewBankDriver(testOrder(), bankDeps(sb), Callbacks{
		OnSuccess: func(txnID string) { successes.Add(1); gotTxn.Store(txnID) },
	})
	require.NoError(t, err)

	snap := d.Snapshot()
	require.Equal(t, StateAwaitingAction, snap.State)
	require.Equal(t, "info", snap.Step)
	require.Contains(t, snap.Reference, "bank_")

	// Uploading from the info screen is refused.
	require.ErrorIs(t, d.SubmitSlip(pngSlip), ErrInvalidState)

	require.NoError(t, d.Proceed())
	require.ErrorIs(t, d.Proceed(), ErrInvalidState)

	require.NoError(t, d.SubmitSlip(pngSlip))
	require.Equal(t, StateConfirming, d.State())

	require.Eventually(t, func() bool { return successes.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, StateSucceeded, d.State())
	require.Equal(t, d.Details().Reference, gotTxn.Load().(string))
}

func TestBankDriverRejectedSlipReturnsToUpload(t *testing.T) {
	bank := &stubBank{reject: true}
	var successes atomic.Int32

	d, err := NewBankDriver(testOrder(), bankDeps(bank), Callbacks{
		OnSuccess: func(string) { successes.Add(1) },
	})
	require.NoError(t, err)
	require.NoError(t, d.Proceed())
	require.NoError(t, d.SubmitSlip(pngSlip))

	require.Eventually(t, func() bool {
		snap := d.Snapshot()
		return snap.State == StateAwaitingAction && snap.Step == "upload"
	}, time.Second, 5*time.Millisecond)
	require.NotEmpty(t, d.Snapshot().Message)
	require.Equal(t, int32(0), successes.Load())

	// A corrected upload goes through once the review accepts.
	bank.reject = false
	require.NoError(t, d.SubmitSlip(pngSlip))
	require.Eventually(t, func() bool { return successes.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestBankDriverClientSideSlipValidation(t *testing.T) {
	d, err := NewBankDriver(testOrder(), bankDeps(&stubBank{}), Callbacks{})
	require.NoError(t, err)
	require.NoError(t, d.Proceed())

	require.True(t, IsValidation(d.SubmitSlip(nil)))
	require.True(t, IsValidation(d.SubmitSlip([]byte("receipt.pdf contents"))))

	// The session is still at the upload step.
	require.Equal(t, "upload", d.Snapshot().Step)
	d.Teardown()
}

func TestBankDriverCancelDuringReview(t *testing.T) {
	var successes, cancels atomic.Int32
	d, err := NewBankDriver(testOrder(), BankDeps{Bank: &stubBank{}, ReviewDelay: 50 * time.Millisecond}, Callbacks{
		OnSuccess: func(string) { successes.Add(1) },
		OnCancel:  func() { cancels.Add(1) },
	})
	require.NoError(t, err)
	require.NoError(t, d.Proceed())
	require.NoError(t, d.SubmitSlip(pngSlip))

	d.Cancel()
	require.Equal(t, StateCancelled, d.State())

	time.Sleep(100 * time.Millisecond)
	require.Equal(t, int32(0), successes.Load())
	require.Equal(t, int32(1), cancels.Load())
}
