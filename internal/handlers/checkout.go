package handlers

import (
	"errors"
	"io"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/lottomart/internal/checkout"
	"github.com/example/lottomart/internal/gateway"
	"github.com/example/lottomart/internal/middleware"
	"github.com/example/lottomart/internal/models"
	"github.com/example/lottomart/internal/payment"
)

// CheckoutHandler drives the payment session endpoints.
type CheckoutHandler struct {
	db           *gorm.DB
	orchestrator *checkout.Orchestrator
	sandbox      *gateway.Sandbox
}

// NewCheckoutHandler constructs CheckoutHandler.
func NewCheckoutHandler(db *gorm.DB, orchestrator *checkout.Orchestrator, sandbox *gateway.Sandbox) *CheckoutHandler {
	return &CheckoutHandler{db: db, orchestrator: orchestrator, sandbox: sandbox}
}

type startOrderRequest struct {
	GameID     string          `json:"game_id"`
	Tier       string          `json:"tier"`
	Lines      []checkout.Line `json:"lines"`
	Multiplier bool            `json:"multiplier"`
}

// StartOrder mints a checkout attempt for the selected game and lines.
func (h *CheckoutHandler) StartOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req startOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	tier, err := checkout.ParseTier(req.Tier)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "unknown ticket tier")
	}

	gameID, err := uuid.Parse(req.GameID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid game id")
	}

	var game models.Game
	if err := h.db.First(&game, "id = ? AND is_active = true", gameID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "game not found")
		}
		return err
	}

	order, err := h.orchestrator.StartOrder(&userID, checkout.GameInfo{
		ID:          game.ID.String(),
		Name:        game.Name,
		MainNumbers: game.MainNumbers,
		BonusCount:  game.BonusCount,
	}, tier, req.Lines, req.Multiplier)
	if err != nil {
		return checkoutError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"order_id":   order.OrderID,
			"game_id":    order.GameID,
			"game_name":  order.GameName,
			"lines":      order.Lines,
			"amount_usd": order.AmountUSD,
		},
	})
}

// ListMethods returns the supported payment methods and what they need.
func (h *CheckoutHandler) ListMethods(c *fiber.Ctx) error {
	methods := make([]fiber.Map, 0, len(payment.Methods()))
	for _, m := range payment.Methods() {
		methods = append(methods, fiber.Map{
			"method":     m,
			"capability": m.Capability(),
			"settlement": m.Settlement(),
		})
	}
	return c.JSON(fiber.Map{"success": true, "data": methods})
}

type mountRequest struct {
	Method string `json:"method"`
}

// MountSession mounts the driver for the selected method.
func (h *CheckoutHandler) MountSession(c *fiber.Ctx) error {
	var req mountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	method, err := payment.Parse(req.Method)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	session, err := h.orchestrator.Mount(method)
	if err != nil {
		return checkoutError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    session.Snapshot(),
	})
}

// GetSession returns the active session snapshot, or the last terminal
// result when the session has been consumed.
func (h *CheckoutHandler) GetSession(c *fiber.Ctx) error {
	if session, ok := h.orchestrator.Session(); ok {
		return c.JSON(fiber.Map{"success": true, "data": session.Snapshot()})
	}
	if result, ok := h.orchestrator.Result(); ok {
		return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"result": result}})
	}
	return fiber.NewError(fiber.StatusNotFound, "no active session")
}

// CancelSession is the explicit user cancellation.
func (h *CheckoutHandler) CancelSession(c *fiber.Ctx) error {
	if err := h.orchestrator.CancelSession(); err != nil {
		return checkoutError(err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// UnmountSession tears the session down without callbacks, mirroring
// navigation away from checkout.
func (h *CheckoutHandler) UnmountSession(c *fiber.Ctx) error {
	h.orchestrator.Unmount()
	return c.SendStatus(fiber.StatusNoContent)
}

type cardSubmitRequest struct {
	Number      string `json:"number"`
	HolderName  string `json:"holder_name"`
	ExpiryMonth int    `json:"expiry_month"`
	ExpiryYear  int    `json:"expiry_year"`
	CVV         string `json:"cvv"`
	SaveCard    bool   `json:"save_card"`
}

// SubmitCard validates the form and performs the charge.
func (h *CheckoutHandler) SubmitCard(c *fiber.Ctx) error {
	driver, err := sessionAs[*payment.CardDriver](h)
	if err != nil {
		return err
	}

	var req cardSubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := driver.Submit(payment.CardFields{
		Number:      req.Number,
		HolderName:  req.HolderName,
		ExpiryMonth: req.ExpiryMonth,
		ExpiryYear:  req.ExpiryYear,
		CVV:         req.CVV,
	}, req.SaveCard); err != nil {
		return sessionError(err, driver)
	}

	return h.sessionOutcome(c)
}

type savedCardRequest struct {
	CardID string `json:"card_id"`
}

// PayWithSavedCard charges a vaulted card belonging to the user.
func (h *CheckoutHandler) PayWithSavedCard(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	driver, err := sessionAs[*payment.CardDriver](h)
	if err != nil {
		return err
	}

	var req savedCardRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	cardID, err := uuid.Parse(req.CardID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid card id")
	}

	var card models.SavedCard
	if err := h.db.First(&card, "id = ? AND user_id = ?", cardID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "saved card not found")
		}
		return err
	}

	if err := driver.PayWithSaved(payment.SavedCardRef{
		ID:          card.ID.String(),
		Last4:       card.Last4,
		ExpiryMonth: card.ExpiryMonth,
		ExpiryYear:  card.ExpiryYear,
	}); err != nil {
		return sessionError(err, driver)
	}

	return h.sessionOutcome(c)
}

// RegenerateQR mints a fresh code after expiry, for QR sessions and the
// Omise PromptPay delegation alike.
func (h *CheckoutHandler) RegenerateQR(c *fiber.Ctx) error {
	session, ok := h.orchestrator.Session()
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "no active session")
	}

	var err error
	switch driver := session.(type) {
	case *payment.QRDriver:
		err = driver.Regenerate()
	case *payment.OmiseDriver:
		err = driver.Regenerate()
	default:
		return fiber.NewError(fiber.StatusConflict, "session has no QR code")
	}
	if err != nil {
		return sessionError(err, session)
	}

	return c.JSON(fiber.Map{"success": true, "data": session.Snapshot()})
}

type phoneRequest struct {
	Phone string `json:"phone"`
}

// SubmitPhone starts the wallet OTP challenge.
func (h *CheckoutHandler) SubmitPhone(c *fiber.Ctx) error {
	driver, err := sessionAs[*payment.TrueMoneyDriver](h)
	if err != nil {
		return err
	}

	var req phoneRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := driver.SubmitPhone(req.Phone); err != nil {
		return sessionError(err, driver)
	}
	return c.JSON(fiber.Map{"success": true, "data": driver.Snapshot()})
}

type otpRequest struct {
	Code string `json:"code"`
}

// ConfirmOTP attempts the wallet debit.
func (h *CheckoutHandler) ConfirmOTP(c *fiber.Ctx) error {
	driver, err := sessionAs[*payment.TrueMoneyDriver](h)
	if err != nil {
		return err
	}

	var req otpRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := driver.ConfirmOTP(req.Code); err != nil {
		return sessionError(err, driver)
	}
	return h.sessionOutcome(c)
}

// ResendOTP requests a fresh code for the stored phone.
func (h *CheckoutHandler) ResendOTP(c *fiber.Ctx) error {
	driver, err := sessionAs[*payment.TrueMoneyDriver](h)
	if err != nil {
		return err
	}

	if err := driver.ResendOTP(); err != nil {
		return sessionError(err, driver)
	}
	return c.JSON(fiber.Map{"success": true, "data": driver.Snapshot()})
}

// Proceed advances the bank/wise details screen to its confirmation step.
func (h *CheckoutHandler) Proceed(c *fiber.Ctx) error {
	session, ok := h.orchestrator.Session()
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "no active session")
	}

	var err error
	switch driver := session.(type) {
	case *payment.BankDriver:
		err = driver.Proceed()
	case *payment.WiseDriver:
		err = driver.Proceed()
	default:
		return fiber.NewError(fiber.StatusConflict, "session has no details step")
	}
	if err != nil {
		return sessionError(err, session)
	}
	return c.JSON(fiber.Map{"success": true, "data": session.Snapshot()})
}

// SubmitSlip uploads the bank transfer slip.
func (h *CheckoutHandler) SubmitSlip(c *fiber.Ctx) error {
	driver, err := sessionAs[*payment.BankDriver](h)
	if err != nil {
		return err
	}

	fileHeader, err := c.FormFile("slip")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "slip file required")
	}
	if fileHeader.Size > payment.MaxSlipBytes {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "slip exceeds 5 MB")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "could not read slip")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, payment.MaxSlipBytes+1))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "could not read slip")
	}

	if err := driver.SubmitSlip(data); err != nil {
		return sessionError(err, driver)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"success": true, "data": driver.Snapshot()})
}

type referenceRequest struct {
	ExternalID string `json:"external_id"`
}

// ConfirmReference submits the typed external transfer id.
func (h *CheckoutHandler) ConfirmReference(c *fiber.Ctx) error {
	driver, err := sessionAs[*payment.WiseDriver](h)
	if err != nil {
		return err
	}

	var req referenceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := driver.ConfirmReference(req.ExternalID); err != nil {
		return sessionError(err, driver)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"success": true, "data": driver.Snapshot()})
}

type subMethodRequest struct {
	SubMethod string `json:"sub_method"`
}

// ChooseSubMethod selects the Omise sub-method.
func (h *CheckoutHandler) ChooseSubMethod(c *fiber.Ctx) error {
	driver, err := sessionAs[*payment.OmiseDriver](h)
	if err != nil {
		return err
	}

	var req subMethodRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := driver.ChooseSubMethod(req.SubMethod); err != nil {
		return sessionError(err, driver)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"success": true, "data": driver.Snapshot()})
}

type settleRequest struct {
	Reference string `json:"reference"`
}

// SandboxSettle marks a pushed reference as paid, standing in for the
// payer's wallet app.
func (h *CheckoutHandler) SandboxSettle(c *fiber.Ctx) error {
	var req settleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.sandbox.Settle(req.Reference); err != nil {
		return fiber.NewError(fiber.StatusNotFound, "unknown reference")
	}
	log.Printf("[Sandbox] reference %s settled", req.Reference)
	return c.JSON(fiber.Map{"success": true})
}

// sessionOutcome reports the terminal result if the action just finished
// the session, or the live snapshot otherwise.
func (h *CheckoutHandler) sessionOutcome(c *fiber.Ctx) error {
	if session, ok := h.orchestrator.Session(); ok {
		return c.JSON(fiber.Map{"success": true, "data": session.Snapshot()})
	}
	if result, ok := h.orchestrator.Result(); ok {
		return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"result": result}})
	}
	return c.JSON(fiber.Map{"success": true})
}

// sessionAs fetches the active session as a concrete driver type.
func sessionAs[T payment.Session](h *CheckoutHandler) (T, error) {
	var zero T
	session, ok := h.orchestrator.Session()
	if !ok {
		return zero, fiber.NewError(fiber.StatusNotFound, "no active session")
	}
	driver, ok := session.(T)
	if !ok {
		return zero, fiber.NewError(fiber.StatusConflict, "action does not match the mounted payment method")
	}
	return driver, nil
}

// sessionError maps driver errors onto HTTP statuses. The driver keeps
// its own recovery state; the message rides along in the snapshot.
func sessionError(err error, session payment.Session) error {
	if payment.IsValidation(err) {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	if errors.Is(err, payment.ErrInvalidState) {
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	if gateway.IsRejection(err) {
		return fiber.NewError(fiber.StatusPaymentRequired, session.Snapshot().Message)
	}
	return fiber.NewError(fiber.StatusBadGateway, err.Error())
}

func checkoutError(err error) error {
	switch {
	case errors.Is(err, checkout.ErrSessionActive):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, checkout.ErrNoOrder), errors.Is(err, checkout.ErrNoSession):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, checkout.ErrNoCompleteLines):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	default:
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
}
