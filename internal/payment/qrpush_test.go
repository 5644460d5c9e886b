package payment

import (
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/lottomart/internal/currency"
	"github.com/example/lottomart/internal/gateway"
)

func fastQRDeps(sb *gateway.Sandbox, window time.Duration) QRDeps {
	return QRDeps{
		Service: sb,
		Window:  window,
		Tick:    10 * time.Millisecond,
		Poll:    10 * time.Millisecond,
	}
}

func TestQRDriverRequiresPushMethod(t *testing.T) {
	_, err := NewQRDriver(MethodCard, testOrder(), fastQRDeps(gateway.NewSandbox(), time.Second), Callbacks{})
	require.True(t, IsValidation(err))
}

func TestQRDriverSettlesThroughPolling(t *testing.T) {
	sb := gateway.NewSandbox()
	var successes atomic.Int32
	var gotTxn atomic.Value

	d, err := NewQRDriver(MethodPromptPay, testOrder(), fastQRDeps(sb, time.Second), Callbacks{
		OnSuccess: func(txnID string) { successes.Add(1); gotTxn.Store(txnID) },
	})
	require.NoError(t, err)
	require.Equal(t, StatePolling, d.State())

	snap := d.Snapshot()
	require.NotEmpty(t, snap.Reference)
	require.NotEmpty(t, snap.QRImageRef)
	require.Equal(t, currency.THB, snap.SettlementCurrency)
	require.InDelta(t, 18.00*35.5, snap.SettlementAmount, 0.01)

	require.NoError(t, sb.Settle(d.Reference()))

	require.Eventually(t, func() bool { return successes.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, StateSucceeded, d.State())
	require.True(t, strings.HasPrefix(gotTxn.Load().(string), "promptpay_"))

	// A late duplicate settle changes nothing.
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, int32(1), successes.Load())
}

func TestQRDriverExpiryStopsPolling(t *testing.T) {
	sb := gateway.NewSandbox()
	var successes atomic.Int32

	d, err := NewQRDriver(MethodAlipay, testOrder(), fastQRDeps(sb, 50*time.Millisecond), Callbacks{
		OnSuccess: func(string) { successes.Add(1) },
	})
	require.NoError(t, err)
	ref := d.Reference()

	require.Eventually(t, func() bool { return d.State() == StateExpired }, time.Second, 5*time.Millisecond)
	require.Equal(t, 0, d.Snapshot().CountdownSeconds)

	// Settling after expiry must not resurrect the session: the poller
	// is gone and Expired only exits through Regenerate or Cancel.
	require.NoError(t, sb.Settle(ref))
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, StateExpired, d.State())
	require.Equal(t, int32(0), successes.Load())
}

func TestQRDriverRegenerateMintsFreshReference(t *testing.T) {
	sb := gateway.NewSandbox()
	var successes atomic.Int32

	d, err := NewQRDriver(MethodWeChat, testOrder(), fastQRDeps(sb, 50*time.Millisecond), Callbacks{
		OnSuccess: func(string) { successes.Add(1) },
	})
	require.NoError(t, err)
	first := d.Reference()

	// Regenerate is refused while the code is still live.
	require.ErrorIs(t, d.Regenerate(), ErrInvalidState)

	require.Eventually(t, func() bool { return d.State() == StateExpired }, time.Second, 5*time.Millisecond)

	require.NoError(t, d.Regenerate())
	require.Equal(t, StatePolling, d.State())
	require.NotEqual(t, first, d.Reference())

	// The fresh code pays out normally.
	require.NoError(t, sb.Settle(d.Reference()))
	require.Eventually(t, func() bool { return successes.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestQRDriverIssueFailureIsRetryable(t *testing.T) {
	sb := gateway.NewSandbox()
	sb.FailNextQR(gateway.ErrUnknownReference)

	d, err := NewQRDriver(MethodPromptPay, testOrder(), fastQRDeps(sb, time.Second), Callbacks{})
	require.NoError(t, err)
	require.Equal(t, StateInitializing, d.State())
	require.NotEmpty(t, d.Snapshot().Message)

	require.NoError(t, d.Regenerate())
	require.Equal(t, StatePolling, d.State())
	d.Teardown()
}

func TestQRDriverTeardownSilencesTimers(t *testing.T) {
	sb := gateway.NewSandbox()
	var fired atomic.Int32

	d, err := NewQRDriver(MethodPromptPay, testOrder(), fastQRDeps(sb, 60*time.Millisecond), Callbacks{
		OnSuccess: func(string) { fired.Add(1) },
		OnCancel:  func() { fired.Add(1) },
	})
	require.NoError(t, err)
	ref := d.Reference()

	d.Teardown()
	require.NoError(t, sb.Settle(ref))

	// Past the window and several poll intervals: nothing may fire.
	time.Sleep(120 * time.Millisecond)
	require.Equal(t, int32(0), fired.Load())
}

func TestQRDriverCancelStopsCountdown(t *testing.T) {
	sb := gateway.NewSandbox()
	var cancels atomic.Int32

	d, err := NewQRDriver(MethodPromptPay, testOrder(), fastQRDeps(sb, 50*time.Millisecond), Callbacks{
		OnCancel: func() { cancels.Add(1) },
	})
	require.NoError(t, err)

	d.Cancel()
	require.Equal(t, StateCancelled, d.State())

	// The expiry that would have happened must not override Cancelled.
	time.Sleep(80 * time.Millisecond)
	require.Equal(t, StateCancelled, d.State())
	require.Equal(t, int32(1), cancels.Load())
}
