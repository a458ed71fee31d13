package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BookingStatus is the lifecycle state of an experience booking.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusPaid      BookingStatus = "paid"
	BookingStatusCancelled BookingStatus = "cancelled"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusPaid, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusPaid, BookingStatusCancelled},
}

// CanTransition reports whether a booking may move from s to next.
func (s BookingStatus) CanTransition(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusPaid, BookingStatusCancelled:
		return true
	}
	return false
}

// ExperienceBooking is a reservation against a product flagged as an
// experience.
type ExperienceBooking struct {
	ID               int64           `json:"-" db:"id"`
	UUID             uuid.UUID       `json:"id" db:"uuid"`
	ExperienceID     int64           `json:"experienceId" db:"experience_id"`
	UserID           *int64          `json:"-" db:"user_id"`
	CustomerName     string          `json:"customerName" db:"customer_name"`
	CustomerEmail    string          `json:"customerEmail" db:"customer_email"`
	CustomerPhone    string          `json:"customerPhone,omitempty" db:"customer_phone"`
	Date             *time.Time      `json:"date,omitempty" db:"date"`
	TimeSlot         string          `json:"timeSlot,omitempty" db:"time_slot"`
	Notes            string          `json:"notes,omitempty" db:"notes"`
	Status           BookingStatus   `json:"status" db:"status"`
	PaymentRequired  bool            `json:"paymentRequired" db:"payment_required"`
	Amount           decimal.Decimal `json:"amount" db:"amount"`
	PaymentRef       *string         `json:"paymentRef,omitempty" db:"payment_ref"`
	GatewayPaymentID *string         `json:"-" db:"gateway_payment_id"`
	CreatedAt        time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time       `json:"updatedAt" db:"updated_at"`
}

// BookingRequest is the booking form submission.
type BookingRequest struct {
	ExperienceID  int64  `validate:"required,gt=0"`
	CustomerName  string `validate:"required,max=200"`
	CustomerEmail string `validate:"required,email"`
	CustomerPhone string `validate:"omitempty,max=30"`
	Date          string `validate:"omitempty,datetime=2006-01-02"`
	TimeSlot      string `validate:"omitempty,max=50"`
	Notes         string `validate:"omitempty,max=2000"`
}

// BookingView is returned after a booking is created.
type BookingView struct {
	Booking          *ExperienceBooking `json:"booking"`
	PaymentAvailable bool               `json:"paymentAvailable"`
	GatewayKeyID     string             `json:"gatewayKeyId,omitempty"`
	AmountMinor      int64              `json:"amountMinor"`
	Currency         string             `json:"currency"`
}

// BookingVerifyRequest confirms a gateway payment for a booking.
type BookingVerifyRequest struct {
	GatewayPaymentID string `validate:"required"`
	GatewayOrderID   string `validate:"required"`
	Signature        string `validate:"required"`
	BookingUUID      string `validate:"required"`
}
