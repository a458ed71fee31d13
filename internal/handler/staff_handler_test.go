package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"ochre-shop/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newStaffHandler() (*StaffHandler, *MockCatalogService, *MockOrderService, *MockBookingService) {
	catalog := new(MockCatalogService)
	orders := new(MockOrderService)
	bookings := new(MockBookingService)
	return NewStaffHandler(catalog, orders, bookings, zerolog.Nop()), catalog, orders, bookings
}

func TestStaffHandler_CreateProduct(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockCatalogService)
		expectedStatus int
	}{
		{
			name: "Created",
			body: `{"title":"Sesame Oil","categoryId":1,"price":"120.00","taxPercent":"5"}`,
			setupMock: func(m *MockCatalogService) {
				m.On("CreateProduct", mock.Anything, mock.MatchedBy(func(req *model.CreateProductRequest) bool {
					return req.Title == "Sesame Oil" && req.Price != nil && req.Price.Equal(decimal.RequireFromString("120"))
				})).Return(&model.Product{ID: 1, Title: "Sesame Oil", Slug: "sesame-oil"}, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Bad JSON",
			body:           `{"title":`,
			setupMock:      func(m *MockCatalogService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Slug taken",
			body: `{"title":"Sesame Oil","slug":"oil","categoryId":1,"price":"1"}`,
			setupMock: func(m *MockCatalogService) {
				m.On("CreateProduct", mock.Anything, mock.Anything).Return(nil, model.ErrSlugTaken)
			},
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, catalog, _, _ := newStaffHandler()
			tt.setupMock(catalog)

			req := httptest.NewRequest(http.MethodPost, "/staff/products/", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			h.CreateProduct(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			catalog.AssertExpectations(t)
		})
	}
}

func TestStaffHandler_SaveUnit(t *testing.T) {
	t.Run("Invalid product id", func(t *testing.T) {
		h, catalog, _, _ := newStaffHandler()

		req := httptest.NewRequest(http.MethodPost, "/staff/products/abc/units/", strings.NewReader(`{"label":"30ml"}`))
		req.SetPathValue("id", "abc")
		w := httptest.NewRecorder()

		h.SaveUnit(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"ok":false,"error":"invalid product ID"}`, w.Body.String())
		catalog.AssertNotCalled(t, "SaveUnit", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Saved", func(t *testing.T) {
		h, catalog, _, _ := newStaffHandler()
		catalog.On("SaveUnit", mock.Anything, int64(3), mock.MatchedBy(func(req *model.SaveProductUnitRequest) bool {
			return req.Label == "30ml" && req.IsDefault
		})).Return(&model.ProductUnit{ID: 11, Label: "30ml"}, nil)

		req := httptest.NewRequest(http.MethodPost, "/staff/products/3/units/", strings.NewReader(`{"label":"30ml","price":"120","isDefault":true}`))
		req.SetPathValue("id", "3")
		w := httptest.NewRecorder()

		h.SaveUnit(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		catalog.AssertExpectations(t)
	})
}

func TestStaffHandler_UpdateBookingStatus(t *testing.T) {
	id := uuid.New()
	h, _, _, bookings := newStaffHandler()
	bookings.On("UpdateStatus", mock.Anything, id, "confirmed").Return(&model.ExperienceBooking{UUID: id, Status: model.BookingStatusConfirmed}, nil)

	req := formRequest(http.MethodPost, "/staff/bookings/"+id.String()+"/status/", url.Values{"status": {"confirmed"}})
	req.SetPathValue("uuid", id.String())
	w := httptest.NewRecorder()

	h.UpdateBookingStatus(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"confirmed"`)
	bookings.AssertExpectations(t)
}

func TestStaffHandler_CancelOrder(t *testing.T) {
	id := uuid.New()
	h, _, orders, _ := newStaffHandler()
	orders.On("Cancel", mock.Anything, id).Return(nil, model.ErrInvalidTransition)

	req := httptest.NewRequest(http.MethodPost, "/staff/orders/"+id.String()+"/cancel/", nil)
	req.SetPathValue("uuid", id.String())
	w := httptest.NewRecorder()

	h.CancelOrder(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	orders.AssertExpectations(t)
}
