// Package pricing holds the deterministic money rules of checkout: unit
// price resolution, subtotal, coupon evaluation, shipping and the payable
// total. Nothing here performs I/O; callers load catalog rows and coupons
// and pass them in, so the same inputs always give the same quote.
package pricing
