package payment

import (
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/lottomart/internal/gateway"
)

func omiseDeps(sb *gateway.Sandbox) OmiseDeps {
	return OmiseDeps{
		QR:           fastQRDeps(sb, time.Second),
		Charger:      sb,
		ProcessDelay: 20 * time.Millisecond,
	}
}

func TestOmiseDriverStartsAtPicker(t *testing.T) {
	d, err := NewOmiseDriver(testOrder(), omiseDeps(gateway.NewSandbox()), Callbacks{})
	require.NoError(t, err)
	require.Equal(t, StateAwaitingAction, d.State())
	require.Equal(t, "method_picker", d.Snapshot().Step)

	require.True(t, IsValidation(d.ChooseSubMethod("paypal")))
	d.Teardown()
}

func TestOmiseDriverGenericChargeSucceeds(t *testing.T) {
	var successes atomic.Int32
	var gotTxn atomic.Value

	d, err := NewOmiseDriver(testOrder(), omiseDeps(gateway.NewSandbox()), Callbacks{
		OnSuccess: func(txnID string) { successes.Add(1); gotTxn.Store(txnID) },
	})
	require.NoError(t, err)

	require.NoError(t, d.ChooseSubMethod(OmiseTrueMoney))
	require.Equal(t, StateConfirming, d.State())

	// Picking again mid-flight is refused.
	require.ErrorIs(t, d.ChooseSubMethod(OmiseCard), ErrInvalidState)

	require.Eventually(t, func() bool { return successes.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, StateSucceeded, d.State())
	require.True(t, strings.HasPrefix(gotTxn.Load().(string), "truemoney_"))
}

func TestOmiseDriverFailedChargeReturnsToPicker(t *testing.T) {
	sb := gateway.NewSandbox()
	sb.FailNextCharge(gateway.ErrUnknownReference)
	var successes atomic.Int32

	d, err := NewOmiseDriver(testOrder(), omiseDeps(sb), Callbacks{
		OnSuccess: func(string) { successes.Add(1) },
	})
	require.NoError(t, err)
	require.NoError(t, d.ChooseSubMethod(OmiseInternetBanking))

	require.Eventually(t, func() bool { return d.State() == StateFailed }, time.Second, 5*time.Millisecond)
	require.NotEmpty(t, d.Snapshot().Message)
	require.Equal(t, int32(0), successes.Load())

	// The picker is live again and a second attempt succeeds.
	require.NoError(t, d.ChooseSubMethod(OmiseCard))
	require.Eventually(t, func() bool { return successes.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestOmiseDriverPromptPayDelegation(t *testing.T) {
	sb := gateway.NewSandbox()
	var successes atomic.Int32
	var gotTxn atomic.Value

	d, err := NewOmiseDriver(testOrder(), omiseDeps(sb), Callbacks{
		OnSuccess: func(txnID string) { successes.Add(1); gotTxn.Store(txnID) },
	})
	require.NoError(t, err)

	require.NoError(t, d.ChooseSubMethod(OmisePromptPay))
	require.Equal(t, StatePolling, d.State())

	snap := d.Snapshot()
	require.Equal(t, MethodOmise, snap.Method)
	require.NotEmpty(t, snap.Reference)

	require.NoError(t, sb.Settle(snap.Reference))
	require.Eventually(t, func() bool { return successes.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, StateSucceeded, d.State())
	require.True(t, strings.HasPrefix(gotTxn.Load().(string), "omise_"))
}

func TestOmiseDriverPromptPayRegenerate(t *testing.T) {
	sb := gateway.NewSandbox()
	deps := omiseDeps(sb)
	deps.QR = fastQRDeps(sb, 50*time.Millisecond)

	d, err := NewOmiseDriver(testOrder(), deps, Callbacks{})
	require.NoError(t, err)

	// Regenerate means nothing before a QR sub-method is live.
	require.ErrorIs(t, d.Regenerate(), ErrInvalidState)

	require.NoError(t, d.ChooseSubMethod(OmisePromptPay))
	first := d.Snapshot().Reference

	require.Eventually(t, func() bool { return d.State() == StateExpired }, time.Second, 5*time.Millisecond)

	require.NoError(t, d.Regenerate())
	require.Equal(t, StatePolling, d.State())
	require.NotEqual(t, first, d.Snapshot().Reference)
	d.Teardown()
}

func TestOmiseDriverCancelReachesInnerSession(t *testing.T) {
	sb := gateway.NewSandbox()
	var cancels atomic.Int32

	d, err := NewOmiseDriver(testOrder(), omiseDeps(sb), Callbacks{
		OnCancel: func() { cancels.Add(1) },
	})
	require.NoError(t, err)
	require.NoError(t, d.ChooseSubMethod(OmisePromptPay))
	ref := d.Snapshot().Reference

	d.Cancel()
	require.Equal(t, StateCancelled, d.State())
	require.Equal(t, int32(1), cancels.Load())

	// A settle after cancellation is ignored by the torn-down poller.
	require.NoError(t, sb.Settle(ref))
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, StateCancelled, d.State())
	require.Equal(t, int32(1), cancels.Load())
}
