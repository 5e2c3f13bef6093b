package checkout

import (
	"fmt"

	"storefront/internal/pricing"
)

// Code identifies a checkout failure the buyer can act on.
type Code string

const (
	CodeEmptyCart               Code = "EmptyCart"
	CodeInvalidInput            Code = "InvalidInput"
	CodeItemUnavailable         Code = "ItemUnavailable"
	CodeAddressRequired         Code = "AddressRequired"
	CodeGuestContactRequired    Code = "GuestContactRequired"
	CodePaymentMethodRequired   Code = "PaymentMethodRequired"
	CodeCouponInvalid           Code = "CouponInvalid"
	CodeOrderCreationFailed     Code = "OrderCreationFailed"
	CodePaymentInitiationFailed Code = "PaymentInitiationFailed"
)

// Error is the structured failure returned by PlaceOrder.
type Error struct {
	Code    Code
	Reason  pricing.CouponReason
	Message string
	// Fields lists the input fields that failed validation.
	Fields []string
	// OrderID is set when the order was committed before the failure.
	OrderID string
	Err     error
}

func (e *Error) Error() string {
	code := string(e.Code)
	if e.Reason != "" {
		code += ":" + string(e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("checkout: %s: %s: %v", code, e.Message, e.Err)
	}
	return fmt.Sprintf("checkout: %s: %s", code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func fail(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

func failWith(code Code, msg string, err error) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

func couponInvalid(ce *pricing.CouponError) *Error {
	return &Error{Code: CodeCouponInvalid, Reason: ce.Reason, Message: ce.Error(), Err: ce}
}
