package router

import (
	"net/http"

	"ochre-shop/internal/config"
	"ochre-shop/internal/handler"
	"ochre-shop/internal/middleware"

	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers the router dispatches to.
type Handlers struct {
	Catalog *handler.CatalogHandler
	Cart    *handler.CartHandler
	Orders  *handler.OrderHandler
	Payment *handler.PaymentHandler
	Booking *handler.BookingHandler
	Auth    *handler.AuthHandler
	Staff   *handler.StaffHandler
}

// New creates a new HTTP router with all routes and middleware configured.
func New(
	h Handlers,
	tokens middleware.TokenParser,
	authCfg config.AuthConfig,
	sessionCfg config.SessionConfig,
	logger zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint (no authentication required)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	// Shop
	mux.HandleFunc("GET /shop/{$}", h.Catalog.Index)
	mux.HandleFunc("GET /shop/categories/{$}", h.Catalog.Categories)
	mux.HandleFunc("GET /shop/{slug}/{$}", h.Catalog.Product)

	// Cart, anonymous or logged in
	mux.HandleFunc("POST /shop/cart/add/{$}", h.Cart.Add)
	mux.HandleFunc("POST /shop/cart/remove/{$}", h.Cart.Remove)
	mux.HandleFunc("GET /shop/cart/{$}", h.Cart.View)
	mux.HandleFunc("GET /shop/cart/count/{$}", h.Cart.Count)

	// Logged-in only
	mux.Handle("GET /shop/checkout/{$}", middleware.RequireUser(http.HandlerFunc(h.Orders.Checkout)))
	mux.Handle("GET /shop/orders/{$}", middleware.RequireUser(http.HandlerFunc(h.Orders.List)))
	mux.Handle("GET /shop/orders/{uuid}/{$}", middleware.RequireUser(http.HandlerFunc(h.Orders.Get)))
	mux.Handle("POST /shop/orders/{uuid}/cancel/{$}", middleware.RequireUser(http.HandlerFunc(h.Orders.Cancel)))

	mux.HandleFunc("POST /shop/experiences/book/{$}", h.Booking.Create)

	// Gateway confirmations are POST only; the mux answers 405 otherwise.
	mux.HandleFunc("POST /payments/verify/{$}", h.Payment.Verify)
	mux.HandleFunc("POST /payments/bookings/verify/{$}", h.Payment.VerifyBooking)

	mux.HandleFunc("POST /auth/register/{$}", h.Auth.Register)
	mux.HandleFunc("POST /auth/login/{$}", h.Auth.Login)

	// Staff routes sit behind the API key
	staff := http.NewServeMux()
	staff.HandleFunc("POST /staff/products/{$}", h.Staff.CreateProduct)
	staff.HandleFunc("POST /staff/products/{id}/units/{$}", h.Staff.SaveUnit)
	staff.HandleFunc("POST /staff/orders/{uuid}/cancel/{$}", h.Staff.CancelOrder)
	staff.HandleFunc("POST /staff/bookings/{uuid}/status/{$}", h.Staff.UpdateBookingStatus)
	mux.Handle("/staff/", middleware.APIKeyAuth(authCfg.APIKey, logger)(staff))

	// Apply middleware in order: Recovery -> Logging -> CORS -> Session -> Authenticate
	var handler http.Handler = mux
	handler = middleware.Authenticate(tokens, logger)(handler)
	handler = middleware.Session(sessionCfg, logger)(handler)
	handler = middleware.CORS(sessionCfg.AllowedOrigins)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Recovery(logger)(handler)

	return handler
}
