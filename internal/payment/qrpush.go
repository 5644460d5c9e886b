package payment

import (
	"log"
	"time"

	"github.com/example/lottomart/internal/currency"
	"github.com/example/lottomart/internal/gateway"
	"github.com/example/lottomart/internal/timers"
)

const (
	defaultQRWindow = 15 * time.Minute
	defaultQRTick   = time.Second
	defaultQRPoll   = 5 * time.Second
)

// QRDeps are the collaborators and timings for a QR-push session.
type QRDeps struct {
	Service gateway.QRService
	Window  time.Duration
	Tick    time.Duration
	Poll    time.Duration
}

func (d QRDeps) withDefaults() QRDeps {
	if d.Window <= 0 {
		d.Window = defaultQRWindow
	}
	if d.Tick <= 0 {
		d.Tick = defaultQRTick
	}
	if d.Poll <= 0 {
		d.Poll = defaultQRPoll
	}
	return d
}

// QRDriver drives the scan-and-pay methods: generate a code, count down a
// fixed window, poll the reference until it completes or the window
// expires. Expiry is only recoverable by explicit regeneration.
type QRDriver struct {
	session
	deps QRDeps

	qr         *gateway.QRIssue
	remaining  time.Duration
	generation int

	countdown *timers.Handle
	poller    *timers.Handle
}

// NewQRDriver mounts a QR session for the method and immediately requests
// the first code. The method's settlement currency must not be USD.
func NewQRDriver(method Method, order Order, deps QRDeps, cb Callbacks) (*QRDriver, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	if method.Settlement() == currency.USD {
		return nil, &ValidationError{Field: "method", Reason: "not a push-payment method"}
	}

	d := &QRDriver{session: newSession(method, order, cb), deps: deps.withDefaults()}
	if err := d.generate(); err != nil {
		// Driver stays mounted in Initializing; Regenerate retries.
		return d, nil
	}
	return d, nil
}

// generate requests a fresh reference and restarts both timers. Each call
// bumps the generation so callbacks of an older code become no-ops.
func (d *QRDriver) generate() error {
	issue, err := d.deps.Service.IssueQR(gateway.QRRequest{
		OrderID:   d.order.OrderID,
		GameID:    d.order.GameID,
		GameName:  d.order.GameName,
		AmountUSD: d.order.AmountUSD,
		Currency:  d.method.Settlement(),
	})
	if err != nil {
		d.mu.Lock()
		if !d.done {
			d.state = StateInitializing
			d.message = "could not generate payment code, please try again"
		}
		d.mu.Unlock()
		log.Printf("[QR] issue failed for order %s: %v", d.order.OrderID, err)
		return err
	}

	d.mu.Lock()
	if d.done {
		d.mu.Unlock()
		return nil
	}
	d.generation++
	gen := d.generation
	d.qr = issue
	d.remaining = d.deps.Window
	d.state = StatePolling
	d.message = ""
	ref := issue.Reference
	d.mu.Unlock()

	countdown := timers.NewCountdown(d.deps.Window, d.deps.Tick,
		func(remaining time.Duration) { d.onTick(gen, remaining) },
		func() { d.onExpire(gen) },
	)
	poller := timers.NewPoller(d.deps.Poll, func() bool {
		return d.pollOnce(gen, ref)
	})

	d.mu.Lock()
	d.countdown = countdown
	d.poller = poller
	d.mu.Unlock()
	return nil
}

func (d *QRDriver) onTick(gen int, remaining time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done || gen != d.generation {
		return
	}
	d.remaining = remaining
}

// onExpire halts polling and parks the session in Expired. The only exits
// from there are Regenerate and Cancel.
func (d *QRDriver) onExpire(gen int) {
	d.mu.Lock()
	if d.done || gen != d.generation || d.state != StatePolling {
		d.mu.Unlock()
		return
	}
	d.state = StateExpired
	d.remaining = 0
	d.message = "payment window expired"
	poller := d.poller
	d.mu.Unlock()

	if poller != nil {
		poller.Stop()
	}
}

// pollOnce asks the gateway for the reference's status. Transient errors
// keep the loop running; a completed status ends the session.
func (d *QRDriver) pollOnce(gen int, ref string) bool {
	status, err := d.deps.Service.PollStatus(ref)
	if err != nil {
		log.Printf("[QR] poll failed for %s: %v", ref, err)
		return false
	}
	if status != gateway.StatusCompleted {
		return false
	}

	d.mu.Lock()
	if d.done || gen != d.generation || d.state != StatePolling {
		d.mu.Unlock()
		return true
	}
	countdown := d.countdown
	d.mu.Unlock()

	if countdown != nil {
		countdown.Stop()
	}
	d.finishSuccess(d.method.Prefix() + "_" + ref)
	return true
}

// Regenerate mints a fresh reference with a full-length window. Valid only
// from Expired, or from Initializing after a failed generation.
func (d *QRDriver) Regenerate() error {
	d.mu.Lock()
	if d.done || (d.state != StateExpired && d.state != StateInitializing) {
		d.mu.Unlock()
		return ErrInvalidState
	}
	countdown, poller := d.countdown, d.poller
	d.countdown, d.poller = nil, nil
	d.mu.Unlock()

	stopHandles(countdown, poller)
	return d.generate()
}

func (d *QRDriver) Cancel() {
	d.stopTimers()
	d.finishCancel()
}

func (d *QRDriver) Teardown() {
	d.stopTimers()
	d.markTornDown()
}

func (d *QRDriver) stopTimers() {
	d.mu.Lock()
	countdown, poller := d.countdown, d.poller
	d.countdown, d.poller = nil, nil
	d.mu.Unlock()
	stopHandles(countdown, poller)
}

func (d *QRDriver) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	snap := d.baseSnapshot()
	snap.CountdownSeconds = secondsOf(d.remaining)
	if d.qr != nil {
		snap.QRImageRef = d.qr.QRImageRef
		snap.Reference = d.qr.Reference
		snap.SettlementAmount = d.qr.SettlementAmount
		snap.SettlementCurrency = d.qr.Currency
	}
	return snap
}

// Reference returns the currently active gateway reference, if any.
func (d *QRDriver) Reference() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.qr == nil {
		return ""
	}
	return d.qr.Reference
}

func stopHandles(handles ...*timers.Handle) {
	for _, h := range handles {
		if h != nil {
			h.Stop()
		}
	}
}
