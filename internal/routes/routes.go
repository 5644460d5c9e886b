package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/lottomart/internal/checkout"
	"github.com/example/lottomart/internal/config"
	"github.com/example/lottomart/internal/content"
	"github.com/example/lottomart/internal/gateway"
	"github.com/example/lottomart/internal/handlers"
	"github.com/example/lottomart/internal/middleware"
	"github.com/example/lottomart/internal/payment"
	"github.com/example/lottomart/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	sandbox := gateway.NewSandbox()
	contentStore := content.NewStore()

	orchestrator := checkout.New(
		checkout.GatewaySet{
			QR:       sandbox,
			Cards:    sandbox,
			Sources:  sandbox,
			Wallet:   sandbox,
			Bank:     sandbox,
			Transfer: sandbox,
		},
		func(userID *uuid.UUID) payment.CardVault {
			return services.NewCardVault(db, userID)
		},
		services.NewTicketStore(db),
		checkout.Timings{
			QRWindow:    cfg.QRWindow,
			QRPoll:      cfg.QRPoll,
			ReviewDelay: cfg.ReviewDelay,
		},
	)

	authHandler := handlers.NewAuthHandler(db, cfg)
	profileHandler := handlers.NewProfileHandler(db)
	gameHandler := handlers.NewGameHandler(db)
	marketingHandler := handlers.NewMarketingHandler(db, contentStore)
	ticketHandler := handlers.NewTicketHandler(db)
	cardHandler := handlers.NewCardHandler(db)
	checkoutHandler := handlers.NewCheckoutHandler(db, orchestrator, sandbox)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	// Game catalog
	games := api.Group("/games")
	games.Get("/", gameHandler.ListGames)
	games.Post("/", gameHandler.CreateGame)
	games.Get("/:id", gameHandler.GetGame)
	games.Put("/:id", gameHandler.UpdateGame)
	games.Delete("/:id", gameHandler.DeleteGame)

	// Marketing resources
	api.Get("/banner", marketingHandler.ListBanners)
	api.Post("/banner", marketingHandler.CreateBanner)
	api.Put("/banner/:id", marketingHandler.UpdateBanner)
	api.Delete("/banner/:id", marketingHandler.DeleteBanner)

	api.Get("/theme", marketingHandler.ListThemes)
	api.Post("/theme", marketingHandler.CreateTheme)
	api.Put("/theme/:id", marketingHandler.UpdateTheme)
	api.Delete("/theme/:id", marketingHandler.DeleteTheme)

	// Payment method catalog is public; everything else in checkout
	// belongs to the signed-in user.
	api.Get("/checkout/methods", checkoutHandler.ListMethods)

	protected := api.Group("", middleware.AuthMiddleware(cfg))

	// Profile
	protected.Get("/profile", profileHandler.GetProfile)
	protected.Put("/profile", profileHandler.UpdateProfile)

	// Order history
	protected.Get("/tickets", ticketHandler.ListTickets)
	protected.Get("/tickets/:orderId", ticketHandler.GetTicket)

	// Saved cards
	protected.Get("/cards", cardHandler.ListCards)
	protected.Delete("/cards/:id", cardHandler.DeleteCard)

	// Checkout and the payment session
	co := protected.Group("/checkout")
	co.Post("/orders", checkoutHandler.StartOrder)
	co.Post("/session", checkoutHandler.MountSession)
	co.Get("/session", checkoutHandler.GetSession)
	co.Post("/session/cancel", checkoutHandler.CancelSession)
	co.Delete("/session", checkoutHandler.UnmountSession)

	co.Post("/session/card", checkoutHandler.SubmitCard)
	co.Post("/session/card/saved", checkoutHandler.PayWithSavedCard)
	co.Post("/session/qr/regenerate", checkoutHandler.RegenerateQR)
	co.Post("/session/phone", checkoutHandler.SubmitPhone)
	co.Post("/session/otp", checkoutHandler.ConfirmOTP)
	co.Post("/session/otp/resend", checkoutHandler.ResendOTP)
	co.Post("/session/proceed", checkoutHandler.Proceed)
	co.Post("/session/slip", checkoutHandler.SubmitSlip)
	co.Post("/session/reference", checkoutHandler.ConfirmReference)
	co.Post("/session/sub-method", checkoutHandler.ChooseSubMethod)

	// Sandbox helper: stands in for the payer's wallet app confirming a
	// pushed QR reference.
	api.Post("/sandbox/settle", checkoutHandler.SandboxSettle)
}
