package checkout

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/lottomart/internal/gateway"
	"github.com/example/lottomart/internal/payment"
)

var (
	ErrSessionActive   = errors.New("checkout: a payment session is already active")
	ErrNoOrder         = errors.New("checkout: no active order")
	ErrNoSession       = errors.New("checkout: no active session")
	ErrNoCompleteLines = errors.New("checkout: order has no complete lines")
)

// GameInfo is the slice of the game catalog pricing needs.
type GameInfo struct {
	ID          string
	Name        string
	MainNumbers int
	BonusCount  int
}

// TicketRecord is what issuance appends to order history on success.
type TicketRecord struct {
	OrderID       string
	UserID        *uuid.UUID
	GameID        string
	GameName      string
	Lines         int
	TotalAmount   float64
	Method        payment.Method
	TransactionID string
}

// TicketStore appends issued tickets to order history.
type TicketStore interface {
	Append(t TicketRecord) error
}

// GatewaySet bundles the collaborator services the drivers consume.
type GatewaySet struct {
	QR       gateway.QRService
	Cards    gateway.CardCharger
	Sources  gateway.SourceCharger
	Wallet   gateway.WalletService
	Bank     gateway.BankService
	Transfer gateway.TransferService
}

// VaultFactory builds a card vault scoped to the paying user.
type VaultFactory func(userID *uuid.UUID) payment.CardVault

// Timings are the session durations, injected so tests can shrink them.
type Timings struct {
	QRWindow    time.Duration
	QRTick      time.Duration
	QRPoll      time.Duration
	ReviewDelay time.Duration
}

// Orchestrator holds at most one active order and at most one mounted
// payment session, and is the only writer of tickets.
type Orchestrator struct {
	mu sync.Mutex

	gw       GatewaySet
	vaultFor VaultFactory
	tickets  TicketStore
	timings  Timings

	order    *payment.Order
	userID   *uuid.UUID
	session  payment.Session
	method   payment.Method
	mounting bool
	issued   bool
	result   *payment.Result
}

// New constructs an orchestrator over the given collaborators.
func New(gw GatewaySet, vaultFor VaultFactory, tickets TicketStore, timings Timings) *Orchestrator {
	return &Orchestrator{gw: gw, vaultFor: vaultFor, tickets: tickets, timings: timings}
}

// StartOrder mints a new checkout attempt. It refuses orders with zero
// complete lines and refuses to replace an order while a session is
// mounted.
func (o *Orchestrator) StartOrder(userID *uuid.UUID, game GameInfo, tier Tier, lines []Line, multiplier bool) (payment.Order, error) {
	complete := CompleteLines(lines, game.MainNumbers, game.BonusCount)
	if complete == 0 {
		return payment.Order{}, ErrNoCompleteLines
	}

	total, err := TotalPrice(tier, complete, multiplier)
	if err != nil {
		return payment.Order{}, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session != nil || o.mounting {
		return payment.Order{}, ErrSessionActive
	}

	order := payment.Order{
		OrderID:   uuid.NewString(),
		GameID:    game.ID,
		GameName:  game.Name,
		Lines:     complete,
		AmountUSD: total,
	}
	o.order = &order
	o.userID = userID
	o.issued = false
	o.result = nil
	return order, nil
}

// Mount creates the driver for the selected method. Exactly one session
// may be active; callers must cancel or unmount the current one first.
func (o *Orchestrator) Mount(method payment.Method) (payment.Session, error) {
	o.mu.Lock()
	if o.session != nil || o.mounting {
		o.mu.Unlock()
		return nil, ErrSessionActive
	}
	if o.order == nil || o.issued {
		o.mu.Unlock()
		return nil, ErrNoOrder
	}
	order := *o.order
	userID := o.userID
	o.mounting = true
	o.mu.Unlock()

	cb := payment.Callbacks{
		OnSuccess: func(txnID string) { o.handleSuccess(order, method, txnID) },
		OnCancel:  func() { o.handleCancel(order.OrderID) },
	}

	session, err := o.buildDriver(method, order, userID, cb)

	o.mu.Lock()
	o.mounting = false
	if err != nil {
		o.mu.Unlock()
		return nil, err
	}
	o.session = session
	o.method = method
	o.mu.Unlock()
	return session, nil
}

func (o *Orchestrator) buildDriver(method payment.Method, order payment.Order, userID *uuid.UUID, cb payment.Callbacks) (payment.Session, error) {
	qrDeps := payment.QRDeps{
		Service: o.gw.QR,
		Window:  o.timings.QRWindow,
		Tick:    o.timings.QRTick,
		Poll:    o.timings.QRPoll,
	}

	switch method {
	case payment.MethodCard:
		var vault payment.CardVault
		if o.vaultFor != nil {
			vault = o.vaultFor(userID)
		}
		return payment.NewCardDriver(order, payment.CardDeps{Charger: o.gw.Cards, Vault: vault}, cb)
	case payment.MethodPromptPay, payment.MethodAlipay, payment.MethodWeChat:
		return payment.NewQRDriver(method, order, qrDeps, cb)
	case payment.MethodTrueMoney:
		return payment.NewTrueMoneyDriver(order, payment.TrueMoneyDeps{Wallet: o.gw.Wallet}, cb)
	case payment.MethodBank:
		return payment.NewBankDriver(order, payment.BankDeps{Bank: o.gw.Bank, ReviewDelay: o.timings.ReviewDelay}, cb)
	case payment.MethodWise:
		return payment.NewWiseDriver(order, payment.WiseDeps{Transfer: o.gw.Transfer, ReviewDelay: o.timings.ReviewDelay}, cb)
	case payment.MethodOmise:
		return payment.NewOmiseDriver(order, payment.OmiseDeps{
			QR:           qrDeps,
			Charger:      o.gw.Sources,
			ProcessDelay: o.timings.ReviewDelay,
		}, cb)
	}
	return nil, errors.New("checkout: unregistered method " + string(method))
}

// handleSuccess issues exactly one ticket for the order and clears the
// session. A stale or duplicate callback is a no-op.
func (o *Orchestrator) handleSuccess(order payment.Order, method payment.Method, txnID string) {
	o.mu.Lock()
	if o.order == nil || o.order.OrderID != order.OrderID || o.issued {
		o.mu.Unlock()
		return
	}
	o.issued = true
	o.session = nil
	o.result = &payment.Result{Success: true, TransactionID: txnID}
	userID := o.userID
	o.mu.Unlock()

	record := TicketRecord{
		OrderID:       order.OrderID,
		UserID:        userID,
		GameID:        order.GameID,
		GameName:      order.GameName,
		Lines:         order.Lines,
		TotalAmount:   order.AmountUSD,
		Method:        method,
		TransactionID: txnID,
	}
	if err := o.tickets.Append(record); err != nil {
		log.Printf("[Checkout] ticket append failed for order %s: %v", order.OrderID, err)
		return
	}
	log.Printf("[Checkout] order %s paid via %s (%s)", order.OrderID, method, txnID)
}

// handleCancel discards the session and returns to method selection. The
// order stays so the user can pick another method; ticket history is
// untouched.
func (o *Orchestrator) handleCancel(orderID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.order == nil || o.order.OrderID != orderID {
		return
	}
	o.session = nil
	o.result = &payment.Result{Success: false, Message: "cancelled"}
}

// CancelSession forwards an explicit user cancellation to the driver.
func (o *Orchestrator) CancelSession() error {
	o.mu.Lock()
	session := o.session
	o.mu.Unlock()
	if session == nil {
		return ErrNoSession
	}
	session.Cancel()
	return nil
}

// Unmount tears the session down without callbacks, e.g. when the user
// navigates away from checkout.
func (o *Orchestrator) Unmount() {
	o.mu.Lock()
	session := o.session
	o.session = nil
	o.mu.Unlock()
	if session != nil {
		session.Teardown()
	}
}

// Session returns the mounted session, if any.
func (o *Orchestrator) Session() (payment.Session, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session, o.session != nil
}

// Order returns the active order, if any.
func (o *Orchestrator) Order() (payment.Order, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.order == nil {
		return payment.Order{}, false
	}
	return *o.order, true
}

// Result returns the last terminal outcome for the active order.
func (o *Orchestrator) Result() (payment.Result, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.result == nil {
		return payment.Result{}, false
	}
	return *o.result, true
}
