package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ochre-shop/internal/auth"
	"ochre-shop/internal/config"
	"ochre-shop/internal/handler"
	"ochre-shop/internal/notify"
	"ochre-shop/internal/payment"
	"ochre-shop/internal/repository"
	"ochre-shop/internal/router"
	"ochre-shop/internal/service"
	"ochre-shop/internal/session"
	"ochre-shop/internal/testutil"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	testKeyID     = "rzp_test_key"
	testKeySecret = "rzp_test_secret"
	testCookie    = "ochre_session"
)

// TestEnv is a fully wired shop backed by throwaway Postgres and Redis
// containers and a stub payment gateway.
type TestEnv struct {
	Pool    *pgxpool.Pool
	Server  http.Handler
	Catalog service.CatalogService
	Repo    repository.CatalogRepository
	Gateway *StubGateway
	Hook    *RecordingHook
}

// SetupTestEnv starts the containers and wires the application the way
// cmd/api does.
func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	logger := zerolog.Nop()
	pool := testutil.Postgres(t)
	redisClient := testutil.Redis(t)

	stub := NewStubGateway()
	t.Cleanup(stub.Close)

	gateway := payment.NewGateway(config.GatewayConfig{
		KeyID:     testKeyID,
		KeySecret: testKeySecret,
		Currency:  "INR",
		BaseURL:   stub.URL(),
		Timeout:   5 * time.Second,
	}, logger)

	hook := &RecordingHook{}
	notifier := notify.NewDispatcher([]notify.Hook{hook}, 5*time.Second, logger)

	catalogRepo := repository.NewCatalogRepository(pool, logger)
	cartRepo := repository.NewCartRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	bookingRepo := repository.NewBookingRepository(pool, logger)
	userRepo := repository.NewUserRepository(pool, logger)
	cartStore := session.NewRedisCartStore(redisClient, time.Hour, logger)

	tokens := auth.NewTokenIssuer("integration-secret", time.Hour)
	catalogService := service.NewCatalogService(catalogRepo, logger)
	cartService := service.NewCartService(cartRepo, catalogRepo, cartStore, logger)
	checkoutService := service.NewCheckoutService(cartRepo, orderRepo, gateway, "INR", logger)
	paymentService := service.NewPaymentService(orderRepo, cartRepo, userRepo, gateway, notifier, logger)
	orderService := service.NewOrderService(orderRepo, logger)
	bookingService := service.NewBookingService(bookingRepo, catalogRepo, gateway, "INR", logger)
	authService := service.NewAuthService(userRepo, cartService, tokens, logger)

	handlers := router.Handlers{
		Catalog: handler.NewCatalogHandler(catalogService, logger),
		Cart:    handler.NewCartHandler(cartService, logger),
		Orders:  handler.NewOrderHandler(checkoutService, orderService, logger),
		Payment: handler.NewPaymentHandler(paymentService, bookingService, logger),
		Booking: handler.NewBookingHandler(bookingService, logger),
		Auth:    handler.NewAuthHandler(authService, time.Hour, false, logger),
		Staff:   handler.NewStaffHandler(catalogService, orderService, bookingService, logger),
	}

	server := router.New(handlers, tokens,
		config.AuthConfig{APIKey: "test-api-key"},
		config.SessionConfig{CookieName: testCookie, TTL: time.Hour},
		logger,
	)

	return &TestEnv{
		Pool:    pool,
		Server:  server,
		Catalog: catalogService,
		Repo:    catalogRepo,
		Gateway: stub,
		Hook:    hook,
	}
}

// StubGateway answers the gateway's create-order call.
type StubGateway struct {
	srv   *httptest.Server
	calls atomic.Int64
}

// NewStubGateway starts the stub. Order ids are order_test_1, order_test_2...
func NewStubGateway() *StubGateway {
	g := &StubGateway{}
	g.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if r.Method != http.MethodPost || r.URL.Path != "/v1/orders" || !ok || user != testKeyID || pass != testKeySecret {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		var body struct {
			Amount   int64  `json:"amount"`
			Currency string `json:"currency"`
			Receipt  string `json:"receipt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		n := g.calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":       fmt.Sprintf("order_test_%d", n),
			"amount":   body.Amount,
			"currency": body.Currency,
			"receipt":  body.Receipt,
			"status":   "created",
		})
	}))
	return g
}

func (g *StubGateway) URL() string  { return g.srv.URL }
func (g *StubGateway) Close()       { g.srv.Close() }
func (g *StubGateway) Calls() int64 { return g.calls.Load() }

// RecordingHook keeps every receipt it is handed.
type RecordingHook struct {
	mu       sync.Mutex
	receipts []notify.OrderReceipt
}

func (h *RecordingHook) Name() string { return "recording" }

func (h *RecordingHook) OrderPaid(_ context.Context, receipt notify.OrderReceipt) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.receipts = append(h.receipts, receipt)
	return nil
}

// Receipts returns a copy of what was recorded.
func (h *RecordingHook) Receipts() []notify.OrderReceipt {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]notify.OrderReceipt(nil), h.receipts...)
}
