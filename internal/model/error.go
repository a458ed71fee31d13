package model

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidInput         = "INVALID_INPUT"
	ErrCodeInvalidQuantity      = "INVALID_QUANTITY"
	ErrCodeProductNotFound      = "PRODUCT_NOT_FOUND"
	ErrCodeUnitNotFound         = "UNIT_NOT_FOUND"
	ErrCodeOrderNotFound        = "ORDER_NOT_FOUND"
	ErrCodeBookingNotFound      = "BOOKING_NOT_FOUND"
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
	ErrCodeEmptyCart            = "EMPTY_CART"
	ErrCodeGatewayNotConfigured = "GATEWAY_NOT_CONFIGURED"
	ErrCodeGatewayOrderMismatch = "GATEWAY_ORDER_MISMATCH"
	ErrCodeSignatureInvalid     = "SIGNATURE_INVALID"
	ErrCodeOrderAlreadyPaid     = "ORDER_ALREADY_PAID"
	ErrCodeInvalidTransition    = "INVALID_TRANSITION"
	ErrCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	ErrCodeEmailTaken           = "EMAIL_TAKEN"
	ErrCodeUnauthorised         = "UNAUTHORIZED"
	ErrCodeSlugTaken            = "SLUG_TAKEN"
	ErrCodePriceRequired        = "PRICE_REQUIRED"
	ErrCodeInternalError        = "INTERNAL_ERROR"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrInvalidQuantity      = NewDomainError(ErrCodeInvalidQuantity, "quantity must be between 1 and 9999")
	ErrProductNotFound      = NewDomainError(ErrCodeProductNotFound, "product not found")
	ErrUnitNotFound         = NewDomainError(ErrCodeUnitNotFound, "product unit not found")
	ErrOrderNotFound        = NewDomainError(ErrCodeOrderNotFound, "order not found")
	ErrBookingNotFound      = NewDomainError(ErrCodeBookingNotFound, "booking not found")
	ErrUserNotFound         = NewDomainError(ErrCodeUserNotFound, "user not found")
	ErrEmptyCart            = NewDomainError(ErrCodeEmptyCart, "cart is empty")
	ErrGatewayNotConfigured = NewDomainError(ErrCodeGatewayNotConfigured, "payment gateway is not configured")
	ErrGatewayOrderMismatch = NewDomainError(ErrCodeGatewayOrderMismatch, "gateway order id does not match order")
	ErrSignatureInvalid     = NewDomainError(ErrCodeSignatureInvalid, "payment signature verification failed")
	ErrOrderAlreadyPaid     = NewDomainError(ErrCodeOrderAlreadyPaid, "order is already paid")
	ErrInvalidTransition    = NewDomainError(ErrCodeInvalidTransition, "status transition not allowed")
	ErrInvalidCredentials   = NewDomainError(ErrCodeInvalidCredentials, "invalid email or password")
	ErrEmailTaken           = NewDomainError(ErrCodeEmailTaken, "an account with this email already exists")
	ErrUnauthorised         = NewDomainError(ErrCodeUnauthorised, "authentication required")
	ErrSlugTaken            = NewDomainError(ErrCodeSlugTaken, "slug is already in use")
	ErrPriceRequired        = NewDomainError(ErrCodePriceRequired, "product needs a price or at least one active unit")
)

// NewInputError returns a validation error carrying the given message.
func NewInputError(message string) *DomainError {
	return NewDomainError(ErrCodeInvalidInput, message)
}
