package payment

import (
	"errors"
	"sync"
	"time"

	"github.com/example/lottomart/internal/currency"
)

// State is the published lifecycle state of a payment session.
type State string

const (
	StateInitializing   State = "INITIALIZING"
	StateAwaitingAction State = "AWAITING_ACTION"
	StatePolling        State = "POLLING"
	StateExpired        State = "EXPIRED"
	StateConfirming     State = "CONFIRMING"
	StateSucceeded      State = "SUCCEEDED"
	StateCancelled      State = "CANCELLED"
	StateFailed         State = "FAILED"
)

// ErrInvalidState means the requested action is not valid in the session's
// current state.
var ErrInvalidState = errors.New("payment: action not valid in current state")

// Order is the immutable checkout attempt a session pays for. A new
// attempt must mint a new OrderID.
type Order struct {
	OrderID   string
	GameID    string
	GameName  string
	Lines     int
	AmountUSD float64
}

// Validate checks the session contract inputs.
func (o Order) Validate() error {
	if o.OrderID == "" {
		return &ValidationError{Field: "order_id", Reason: "must not be empty"}
	}
	if o.AmountUSD <= 0 {
		return &ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if o.Lines < 1 {
		return &ValidationError{Field: "lines", Reason: "at least one line required"}
	}
	return nil
}

// Result is the single terminal value a session reaches.
type Result struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id,omitempty"`
	Message       string `json:"message,omitempty"`
}

// Callbacks are the session's only exits. Each fires at most once per
// mounted session, and never both.
type Callbacks struct {
	OnSuccess func(transactionID string)
	OnCancel  func()
}

// Snapshot is what the UI renders for a session.
type Snapshot struct {
	Method             Method        `json:"method"`
	State              State         `json:"state"`
	Step               string        `json:"step,omitempty"`
	Message            string        `json:"message,omitempty"`
	AmountUSD          float64       `json:"amount_usd"`
	SettlementAmount   float64       `json:"settlement_amount,omitempty"`
	SettlementCurrency currency.Code `json:"settlement_currency,omitempty"`
	QRImageRef         string        `json:"qr_image_ref,omitempty"`
	Reference          string        `json:"reference,omitempty"`
	CountdownSeconds   int           `json:"countdown_seconds,omitempty"`
}

// Session is the contract every method driver satisfies. The orchestrator
// treats drivers as interchangeable behind it.
type Session interface {
	Method() Method
	State() State
	Snapshot() Snapshot

	// Cancel is an explicit user cancellation. It stops the session's
	// timers and fires OnCancel at most once.
	Cancel()

	// Teardown stops all timers without firing any callback. Used when
	// the session is unmounted for any other reason.
	Teardown()
}

// session is the shared driver core: state, the one-terminal-callback
// guard, and the mutex every timer callback re-checks state under.
type session struct {
	mu      sync.Mutex
	method  Method
	order   Order
	cb      Callbacks
	state   State
	step    string
	message string
	done    bool
}

func newSession(method Method, order Order, cb Callbacks) session {
	return session{method: method, order: order, cb: cb, state: StateInitializing}
}

func (s *session) Method() Method { return s.method }

func (s *session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// finishSuccess moves to Succeeded and fires OnSuccess, unless a terminal
// outcome already happened. The callback runs outside the lock.
func (s *session) finishSuccess(transactionID string) bool {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return false
	}
	s.done = true
	s.state = StateSucceeded
	s.message = ""
	cb := s.cb.OnSuccess
	s.mu.Unlock()

	if cb != nil {
		cb(transactionID)
	}
	return true
}

// finishCancel moves to Cancelled and fires OnCancel, once.
func (s *session) finishCancel() bool {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return false
	}
	s.done = true
	s.state = StateCancelled
	cb := s.cb.OnCancel
	s.mu.Unlock()

	if cb != nil {
		cb()
	}
	return true
}

// markTornDown closes the session without firing callbacks.
func (s *session) markTornDown() {
	s.mu.Lock()
	s.done = true
	s.mu.Unlock()
}

func (s *session) baseSnapshot() Snapshot {
	return Snapshot{
		Method:    s.method,
		State:     s.state,
		Step:      s.step,
		Message:   s.message,
		AmountUSD: s.order.AmountUSD,
	}
}

func secondsOf(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / time.Second)
}
