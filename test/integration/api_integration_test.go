package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"ochre-shop/internal/model"
	"ochre-shop/internal/payment"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// client carries a browser's cookies and optional bearer token between calls.
type client struct {
	t       *testing.T
	server  http.Handler
	cookies map[string]*http.Cookie
	token   string
}

func newClient(t *testing.T, server http.Handler) *client {
	return &client{t: t, server: server, cookies: map[string]*http.Cookie{}}
}

// post sends a script-style form post.
func (c *client) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	return c.do(req)
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	c.server.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		c.cookies[ck.Name] = ck
	}
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type seeded struct {
	oilID   int64
	soapID  int64
	largeID int64
}

func seedCatalog(t *testing.T, env *TestEnv) seeded {
	t.Helper()
	ctx := context.Background()

	cat := &model.Category{Name: "Oils", Slug: slug.Make("Oils")}
	require.NoError(t, env.Repo.CreateCategory(ctx, cat))

	price := decimal.RequireFromString("1000.00")
	oil, err := env.Catalog.CreateProduct(ctx, &model.CreateProductRequest{
		Title:      "Sesame Oil",
		CategoryID: cat.ID,
		Price:      &price,
		TaxPercent: decimal.NewFromInt(5),
	})
	require.NoError(t, err)

	soap, err := env.Catalog.CreateProduct(ctx, &model.CreateProductRequest{
		Title:      "Herbal Soap",
		CategoryID: cat.ID,
		TaxPercent: decimal.NewFromInt(12),
		Units: []model.SaveProductUnitRequest{
			{Label: "500 ml", Price: decimal.RequireFromString("120.00"), IsDefault: true},
			{Label: "750 ml", Price: decimal.RequireFromString("170.00")},
		},
	})
	require.NoError(t, err)

	var largeID int64
	for _, u := range soap.Units {
		if u.Label == "750 ml" {
			largeID = u.ID
		}
	}
	require.NotZero(t, largeID)

	return seeded{oilID: oil.ID, soapID: soap.ID, largeID: largeID}
}

func TestShopFlow_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	env := SetupTestEnv(t)
	ids := seedCatalog(t, env)
	browser := newClient(t, env.Server)

	// Anonymous visitor fills a session cart.
	w := browser.post("/shop/cart/add/", url.Values{"product_id": {strconv.FormatInt(ids.oilID, 10)}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Contains(t, browser.cookies, testCookie)

	w = browser.post("/shop/cart/add/", url.Values{"product_id": {strconv.FormatInt(ids.oilID, 10)}, "qty": {"2"}})
	require.Equal(t, http.StatusOK, w.Code)
	w = browser.post("/shop/cart/add/", url.Values{
		"product_id":      {strconv.FormatInt(ids.soapID, 10)},
		"product_unit_id": {strconv.FormatInt(ids.largeID, 10)},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"message":"Added to cart","cart_count":4}`, w.Body.String())

	view := decodeBody[model.CartView](t, browser.get("/shop/cart/"))
	assert.Equal(t, 4, view.Count)
	assert.True(t, decimal.RequireFromString("3340.40").Equal(view.Total), view.Total.String())

	// Checkout needs an account.
	w = browser.get("/shop/checkout/")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Registering merges the session cart into the account.
	w = browser.post("/auth/register/", url.Values{
		"email":    {"asha@example.com"},
		"name":     {"Asha"},
		"password": {"long-enough-pass"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reg := decodeBody[model.AuthResponse](t, w)
	assert.Equal(t, 2, reg.MergedLines)
	browser.token = reg.Token

	w = browser.get("/shop/cart/count/")
	assert.JSONEq(t, `{"ok":true,"cart_count":4}`, w.Body.String())

	// Checkout registers one gateway order and reuses it.
	w = browser.get("/shop/checkout/")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	checkout := decodeBody[model.CheckoutView](t, w)
	assert.True(t, checkout.PaymentAvailable)
	assert.Equal(t, testKeyID, checkout.GatewayKeyID)
	assert.Equal(t, "order_test_1", checkout.GatewayOrderID)
	assert.Equal(t, int64(334040), checkout.AmountMinor)
	require.NotNil(t, checkout.Order)
	orderID := checkout.Order.UUID.String()

	again := decodeBody[model.CheckoutView](t, browser.get("/shop/checkout/"))
	assert.Equal(t, orderID, again.Order.UUID.String())
	assert.Equal(t, "order_test_1", again.GatewayOrderID)
	assert.Equal(t, int64(1), env.Gateway.Calls())

	// A forged confirmation fails the order.
	w = browser.post("/payments/verify/", url.Values{
		"razorpay_payment_id": {"pay_1"},
		"razorpay_order_id":   {"order_test_1"},
		"razorpay_signature":  {"deadbeef"},
		"order_internal_id":   {orderID},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"ok":false,"error":"signature_verification_failed"}`, w.Body.String())

	order := decodeBody[model.OrderResponse](t, browser.get("/shop/orders/"+orderID+"/"))
	assert.Equal(t, model.OrderStatusFailed, order.Order.Status)
	assert.Empty(t, env.Hook.Receipts())

	// The genuine confirmation pays it.
	paid := url.Values{
		"razorpay_payment_id": {"pay_2"},
		"razorpay_order_id":   {"order_test_1"},
		"razorpay_signature":  {payment.Sign(testKeySecret, "order_test_1", "pay_2")},
		"order_internal_id":   {orderID},
	}
	w = browser.post("/payments/verify/", paid)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	order = decodeBody[model.OrderResponse](t, browser.get("/shop/orders/"+orderID+"/"))
	assert.Equal(t, model.OrderStatusPaid, order.Order.Status)
	require.NotNil(t, order.Order.GatewayPaymentID)
	assert.Equal(t, "pay_2", *order.Order.GatewayPaymentID)
	assert.Len(t, order.Items, 2)

	receipts := env.Hook.Receipts()
	require.Len(t, receipts, 1)
	assert.Equal(t, "asha@example.com", receipts[0].CustomerEmail)
	assert.True(t, decimal.RequireFromString("3340.40").Equal(receipts[0].Total))

	w = browser.get("/shop/cart/count/")
	assert.JSONEq(t, `{"ok":true,"cart_count":0}`, w.Body.String())

	// Replaying the same confirmation is harmless; a different one is refused.
	w = browser.post("/payments/verify/", paid)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, env.Hook.Receipts(), 1)

	w = browser.post("/payments/verify/", url.Values{
		"razorpay_payment_id": {"pay_3"},
		"razorpay_order_id":   {"order_test_1"},
		"razorpay_signature":  {payment.Sign(testKeySecret, "order_test_1", "pay_3")},
		"order_internal_id":   {orderID},
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Paid orders can no longer be cancelled.
	w = browser.post("/shop/orders/"+orderID+"/cancel/", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Someone else cannot see the order.
	stranger := newClient(t, env.Server)
	w = stranger.post("/auth/register/", url.Values{
		"email":    {"ravi@example.com"},
		"name":     {"Ravi"},
		"password": {"another-long-pass"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	stranger.token = decodeBody[model.AuthResponse](t, w).Token
	w = stranger.get("/shop/orders/" + orderID + "/")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLoginMergesSessionCart_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	env := SetupTestEnv(t)
	ids := seedCatalog(t, env)

	// An account that already has the product in its cart.
	owner := newClient(t, env.Server)
	w := owner.post("/auth/register/", url.Values{
		"email":    {"meera@example.com"},
		"name":     {"Meera"},
		"password": {"long-enough-pass"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	owner.token = decodeBody[model.AuthResponse](t, w).Token
	w = owner.post("/shop/cart/add/", url.Values{"product_id": {strconv.FormatInt(ids.oilID, 10)}})
	require.Equal(t, http.StatusOK, w.Code)

	// The same person browsing anonymously on another device.
	device := newClient(t, env.Server)
	w = device.post("/shop/cart/add/", url.Values{"product_id": {strconv.FormatInt(ids.oilID, 10)}, "quantity": {"2"}})
	require.Equal(t, http.StatusOK, w.Code)

	w = device.post("/auth/login/", url.Values{"email": {"meera@example.com"}, "password": {"long-enough-pass"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	login := decodeBody[model.AuthResponse](t, w)
	assert.Equal(t, 1, login.MergedLines)
	device.token = login.Token

	// Quantities add up and the session cart is gone.
	w = device.get("/shop/cart/count/")
	assert.JSONEq(t, `{"ok":true,"cart_count":3}`, w.Body.String())

	anon := newClient(t, env.Server)
	anon.cookies[testCookie] = device.cookies[testCookie]
	w = anon.get("/shop/cart/count/")
	assert.JSONEq(t, `{"ok":true,"cart_count":0}`, w.Body.String())

	// Logging in again merges nothing new.
	w = device.post("/auth/login/", url.Values{"email": {"meera@example.com"}, "password": {"long-enough-pass"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decodeBody[model.AuthResponse](t, w).MergedLines)
	w = device.get("/shop/cart/count/")
	assert.JSONEq(t, `{"ok":true,"cart_count":3}`, w.Body.String())
}

func TestStaffRoutes_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	env := SetupTestEnv(t)
	ids := seedCatalog(t, env)

	staff := func(path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", "test-api-key")
		w := httptest.NewRecorder()
		env.Server.ServeHTTP(w, req)
		return w
	}

	w := staff("/staff/products/", `{"title":"Sesame Oil","categoryId":1,"price":"900"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "sesame-oil-2", decodeBody[model.Product](t, w).Slug)

	w = staff("/staff/products/"+strconv.FormatInt(ids.soapID, 10)+"/units/", `{"label":"1 l","price":"220","isDefault":true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	product := decodeBody[model.Product](t, newClient(t, env.Server).get("/shop/herbal-soap/"))
	defaults := 0
	for _, u := range product.Units {
		if u.IsDefault {
			defaults++
			assert.Equal(t, "1 l", u.Label)
		}
	}
	assert.Equal(t, 1, defaults)
}
