package checkout

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"storefront/internal/domain"
	"storefront/internal/logging"
	"storefront/internal/payments"
	"storefront/internal/pricing"
	orderrepo "storefront/internal/repository/order"
	couponsvc "storefront/internal/service/coupon"
)

type cartReader interface {
	List(ctx context.Context, userID string) ([]domain.CartLine, error)
}

type catalogLoader interface {
	Catalog(ctx context.Context, productIDs []string) (pricing.Catalog, error)
}

type couponEvaluator interface {
	Evaluate(ctx context.Context, code string, subtotal decimal.Decimal) (*couponsvc.Applied, error)
}

type addressReader interface {
	GetByID(ctx context.Context, userID, id string) (*domain.Address, error)
}

type orderWriter interface {
	Create(ctx context.Context, in orderrepo.CreateInput) (*domain.Order, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error)
	SetPaymentReference(ctx context.Context, id, reference string) error
}

// Deps wires the collaborators PlaceOrder needs.
type Deps struct {
	Carts     cartReader
	Catalog   catalogLoader
	Coupons   couponEvaluator
	Addresses addressReader
	Orders    orderWriter
	// Payments may be nil; online orders then fail payment initiation.
	Payments payments.Provider
	Shipping pricing.ShippingPolicy
	Currency string
	Clock    func() time.Time
	Logger   *zap.Logger
}

type Service struct {
	carts     cartReader
	catalog   catalogLoader
	coupons   couponEvaluator
	addresses addressReader
	orders    orderWriter
	payments  payments.Provider
	shipping  pricing.ShippingPolicy
	currency  string
	now       func() time.Time
	logger    *zap.Logger
	policy    *bluemonday.Policy
}

func New(deps Deps) (*Service, error) {
	if deps.Carts == nil || deps.Catalog == nil || deps.Coupons == nil || deps.Addresses == nil || deps.Orders == nil {
		return nil, errors.New("checkout: carts, catalog, coupons, addresses and orders are required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	currency := strings.ToUpper(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = "INR"
	}
	return &Service{
		carts:     deps.Carts,
		catalog:   deps.Catalog,
		coupons:   deps.Coupons,
		addresses: deps.Addresses,
		orders:    deps.Orders,
		payments:  deps.Payments,
		shipping:  deps.Shipping,
		currency:  currency,
		now:       func() time.Time { return clock().UTC() },
		logger:    logging.OrNop(deps.Logger).Named("checkout"),
		policy:    bluemonday.StrictPolicy(),
	}, nil
}

// LineInput is an explicitly submitted line (quick buy or guest lines).
type LineInput struct {
	ProductID string  `json:"productId"`
	VariantID *string `json:"variantId,omitempty"`
	Quantity  int     `json:"quantity"`
}

type Request struct {
	// UserID is nil for guest checkout.
	UserID         *string
	Email          string
	IdempotencyKey string
	AddressID      string
	Address        *domain.ShippingAddress
	PaymentMethod  domain.PaymentMethod
	CouponCode     string
	QuickBuy       *LineInput
	Lines          []LineInput
	Guest          *domain.GuestContact
}

type Result struct {
	Order       *domain.Order
	RedirectURL string
	// Replayed is true when the idempotency key matched an existing order.
	Replayed bool
}

// PlaceOrder prices the submitted lines, validates the coupon, writes the
// order atomically and hands online orders to the payment gateway. All
// failures are *Error.
func (s *Service) PlaceOrder(ctx context.Context, req Request) (*Result, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.NewString()
	} else if existing, err := s.orders.GetByIdempotencyKey(ctx, req.IdempotencyKey); err == nil {
		return s.replay(ctx, req, existing)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, s.storageFailure("lookup idempotency key", err)
	}

	address, err := s.resolveAddress(ctx, req)
	if err != nil {
		return nil, err
	}

	lines, fromCart, err := s.collectLines(ctx, req)
	if err != nil {
		return nil, err
	}
	priced, err := s.priceLines(ctx, lines, fromCart)
	if err != nil {
		return nil, err
	}

	var applied *couponsvc.Applied
	discount := decimal.Zero
	if strings.TrimSpace(req.CouponCode) != "" {
		applied, err = s.coupons.Evaluate(ctx, req.CouponCode, pricing.ComputeSubtotal(priced))
		var ce *pricing.CouponError
		switch {
		case errors.As(err, &ce):
			return nil, couponInvalid(ce)
		case err != nil:
			return nil, s.storageFailure("evaluate coupon", err)
		}
		discount = applied.Discount
	}
	quote := s.shipping.Assemble(priced, discount)

	in := orderrepo.CreateInput{Order: s.buildOrder(req, address, quote)}
	if applied != nil {
		in.Order.CouponID, in.Order.CouponCode = &applied.Coupon.ID, &applied.Coupon.Code
		in.Coupon = &orderrepo.CouponRedemption{CouponID: applied.Coupon.ID, Amount: quote.Discount}
	}
	if fromCart {
		in.ClearCartFor = req.UserID
	}

	created, err := s.orders.Create(ctx, in)
	switch {
	case errors.Is(err, orderrepo.ErrCouponExhausted):
		return nil, couponInvalid(&pricing.CouponError{Code: applied.Coupon.Code, Reason: pricing.ReasonUsageLimitReached})
	case errors.Is(err, domain.ErrConflict):
		existing, getErr := s.orders.GetByIdempotencyKey(ctx, req.IdempotencyKey)
		if getErr != nil {
			return nil, s.storageFailure("load concurrent order", getErr)
		}
		return s.replay(ctx, req, existing)
	case err != nil:
		return nil, s.storageFailure("create order", err)
	}

	s.logger.Info("order placed",
		zap.String("order_id", created.ID),
		zap.String("order_number", created.OrderNumber),
		zap.String("subtotal", created.Subtotal.StringFixed(2)),
		zap.String("discount", created.DiscountAmount.StringFixed(2)),
		zap.String("shipping", created.ShippingAmount.StringFixed(2)),
		zap.String("total", created.TotalAmount.StringFixed(2)),
		zap.String("payment_method", string(created.PaymentMethod)),
		zap.Bool("guest", created.UserID == nil),
	)
	return s.initiatePayment(ctx, req, created, false)
}

func (s *Service) validate(req *Request) error {
	if req.PaymentMethod == "" || !req.PaymentMethod.Valid() {
		return fail(CodePaymentMethodRequired, "choose online payment or cash on delivery")
	}
	if err := validateLines(*req); err != nil {
		return err
	}
	if req.UserID == nil {
		if req.Guest == nil {
			return fail(CodeGuestContactRequired, "sign in or provide guest contact details")
		}
		g := domain.GuestContact{
			Name:  s.plainText(req.Guest.Name),
			Email: strings.ToLower(strings.TrimSpace(req.Guest.Email)),
			Phone: strings.TrimSpace(req.Guest.Phone),
		}
		var missing []string
		if g.Name == "" {
			missing = append(missing, "guest.name")
		}
		if _, err := mail.ParseAddress(g.Email); err != nil || g.Email == "" {
			missing = append(missing, "guest.email")
		}
		if g.Phone == "" {
			missing = append(missing, "guest.phone")
		}
		if len(missing) > 0 {
			e := fail(CodeGuestContactRequired, "guest contact details are incomplete")
			e.Fields = missing
			return e
		}
		req.Guest = &g
		if req.Email == "" {
			req.Email = g.Email
		}
		if req.AddressID != "" {
			return fail(CodeAddressRequired, "guests must enter a shipping address")
		}
		if req.QuickBuy == nil && len(req.Lines) == 0 {
			return fail(CodeEmptyCart, "guest checkout needs items")
		}
	}
	if req.AddressID == "" {
		if req.Address == nil {
			return fail(CodeAddressRequired, "a shipping address is required")
		}
		a := s.cleanAddress(*req.Address)
		if missing := missingAddressFields(a); len(missing) > 0 {
			e := fail(CodeAddressRequired, "shipping address is incomplete")
			e.Fields = missing
			return e
		}
		req.Address = &a
	}
	return nil
}

// validateLines rejects ambiguous or oversized explicit lines before any
// lookup happens.
func validateLines(req Request) error {
	if req.QuickBuy != nil && len(req.Lines) > 0 {
		e := fail(CodeInvalidInput, "send either quickBuy or lines, not both")
		e.Fields = []string{"quickBuy", "lines"}
		return e
	}
	var fields []string
	if req.QuickBuy != nil && req.QuickBuy.Quantity > domain.MaxLineQuantity {
		fields = append(fields, "quickBuy.quantity")
	}
	for i, l := range req.Lines {
		if l.Quantity > domain.MaxLineQuantity {
			fields = append(fields, fmt.Sprintf("lines[%d].quantity", i))
		}
	}
	if len(fields) > 0 {
		e := fail(CodeInvalidInput, fmt.Sprintf("quantity may not exceed %d", domain.MaxLineQuantity))
		e.Fields = fields
		return e
	}
	return nil
}

func (s *Service) cleanAddress(a domain.ShippingAddress) domain.ShippingAddress {
	out := domain.ShippingAddress{
		FullName:   s.plainText(a.FullName),
		Phone:      strings.TrimSpace(a.Phone),
		Line1:      s.plainText(a.Line1),
		Line2:      s.plainText(a.Line2),
		City:       s.plainText(a.City),
		State:      s.plainText(a.State),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(a.Country)),
	}
	if out.Country == "" {
		out.Country = "IN"
	}
	return out
}

func missingAddressFields(a domain.ShippingAddress) []string {
	var missing []string
	for _, f := range []struct {
		name, value string
	}{
		{"address.fullName", a.FullName},
		{"address.phone", a.Phone},
		{"address.line1", a.Line1},
		{"address.city", a.City},
		{"address.state", a.State},
		{"address.postalCode", a.PostalCode},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

func (s *Service) plainText(v string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(v)))
}

func (s *Service) resolveAddress(ctx context.Context, req Request) (domain.ShippingAddress, error) {
	if req.AddressID == "" {
		return *req.Address, nil
	}
	saved, err := s.addresses.GetByID(ctx, *req.UserID, req.AddressID)
	if errors.Is(err, domain.ErrNotFound) {
		e := fail(CodeAddressRequired, "saved address not found")
		e.Fields = []string{"addressId"}
		return domain.ShippingAddress{}, e
	}
	if err != nil {
		return domain.ShippingAddress{}, s.storageFailure("load address", err)
	}
	return saved.Snapshot(), nil
}

// collectLines picks the order source: quick buy, explicit lines, or the
// persistent cart. fromCart reports the last case.
func (s *Service) collectLines(ctx context.Context, req Request) (lines []pricing.Line, fromCart bool, err error) {
	switch {
	case req.QuickBuy != nil:
		return []pricing.Line{toLine(*req.QuickBuy)}, false, nil
	case len(req.Lines) > 0:
		lines = make([]pricing.Line, 0, len(req.Lines))
		for _, l := range req.Lines {
			lines = append(lines, toLine(l))
		}
		return lines, false, nil
	}
	cart, err := s.carts.List(ctx, *req.UserID)
	if err != nil {
		return nil, false, s.storageFailure("read cart", err)
	}
	if len(cart) == 0 {
		return nil, true, fail(CodeEmptyCart, "your cart is empty")
	}
	lines = make([]pricing.Line, 0, len(cart))
	for _, l := range cart {
		lines = append(lines, pricing.Line{ProductID: l.ProductID, VariantID: l.VariantID, Quantity: l.Quantity})
	}
	return lines, true, nil
}

func toLine(in LineInput) pricing.Line {
	return pricing.Line{ProductID: in.ProductID, VariantID: in.VariantID, Quantity: in.Quantity}
}

// priceLines resolves unit prices. Stale cart lines are dropped; an
// explicitly submitted line that cannot be priced fails the checkout.
func (s *Service) priceLines(ctx context.Context, lines []pricing.Line, fromCart bool) ([]pricing.PricedLine, error) {
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	catalog, err := s.catalog.Catalog(ctx, ids)
	if err != nil {
		return nil, s.storageFailure("load catalog", err)
	}
	priced, invalid := catalog.PriceLines(lines)
	if len(invalid) > 0 {
		if !fromCart {
			return nil, fail(CodeItemUnavailable, "an item is unavailable or has an invalid quantity")
		}
		s.logger.Warn("dropping unavailable cart lines", zap.Int("count", len(invalid)))
	}
	if len(priced) == 0 {
		return nil, fail(CodeEmptyCart, "none of the items in your cart are available")
	}
	return priced, nil
}

func (s *Service) buildOrder(req Request, address domain.ShippingAddress, quote pricing.Quote) domain.Order {
	now := s.now()
	items := make([]domain.OrderItem, 0, len(quote.Lines))
	for _, l := range quote.Lines {
		name := l.ProductName
		if l.VariantName != "" {
			name += " - " + l.VariantName
		}
		items = append(items, domain.OrderItem{
			ProductID:   l.ProductID,
			VariantID:   l.VariantID,
			ProductName: name,
			Quantity:    l.Quantity,
			Price:       l.UnitPrice,
		})
	}
	return domain.Order{
		OrderNumber:     ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		UserID:          req.UserID,
		Guest:           req.Guest,
		IdempotencyKey:  req.IdempotencyKey,
		Subtotal:        quote.Subtotal,
		DiscountAmount:  quote.Discount,
		ShippingAmount:  quote.Shipping,
		TotalAmount:     quote.Total,
		Currency:        s.currency,
		Status:          domain.OrderPending,
		PaymentStatus:   domain.PaymentPending,
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: address,
		Items:           items,
	}
}

// replay answers a repeated submission with the order already stored
// under its idempotency key.
func (s *Service) replay(ctx context.Context, req Request, existing *domain.Order) (*Result, error) {
	if !ownsOrder(req, existing) {
		return nil, fail(CodeOrderCreationFailed, "idempotency key already used")
	}
	s.logger.Info("checkout replayed", zap.String("order_id", existing.ID))
	return s.initiatePayment(ctx, req, existing, true)
}

// ownsOrder reports whether the caller placed existing. Guests are matched
// on their contact email since the key alone is client supplied.
func ownsOrder(req Request, existing *domain.Order) bool {
	if req.UserID != nil {
		return existing.UserID != nil && *existing.UserID == *req.UserID
	}
	return existing.UserID == nil && existing.Guest != nil && req.Guest != nil &&
		strings.EqualFold(existing.Guest.Email, req.Guest.Email)
}

func (s *Service) initiatePayment(ctx context.Context, req Request, o *domain.Order, replayed bool) (*Result, error) {
	res := &Result{Order: o, Replayed: replayed}
	if !awaitingPayment(o) {
		return res, nil
	}
	if s.payments == nil {
		return nil, s.paymentFailure(o, payments.ErrNotConfigured)
	}
	// A failed session gets a fresh gateway key so the retry is not
	// answered with the expired session.
	key := o.IdempotencyKey
	if o.PaymentStatus == domain.PaymentFailed && o.PaymentReference != nil {
		key += ":" + *o.PaymentReference
	}
	session, err := s.payments.CreateCheckoutSession(ctx, payments.CheckoutRequest{
		OrderID:        o.ID,
		OrderNumber:    o.OrderNumber,
		Amount:         o.TotalAmount,
		Currency:       o.Currency,
		CustomerEmail:  req.Email,
		IdempotencyKey: key,
	})
	if err != nil {
		return nil, s.paymentFailure(o, err)
	}
	if session.RedirectURL == "" {
		return nil, s.paymentFailure(o, errors.New("gateway returned no redirect url"))
	}
	if err := s.orders.SetPaymentReference(ctx, o.ID, session.ID); err != nil {
		return nil, s.paymentFailure(o, err)
	}
	ref := session.ID
	o.PaymentReference = &ref
	o.PaymentStatus = domain.PaymentPending
	res.RedirectURL = session.RedirectURL
	return res, nil
}

// awaitingPayment reports whether an online order still needs a gateway
// session: nothing paid yet, or the last session failed or expired.
func awaitingPayment(o *domain.Order) bool {
	if o.PaymentMethod != domain.PaymentOnline || o.Status != domain.OrderPending || !o.TotalAmount.IsPositive() {
		return false
	}
	return o.PaymentStatus == domain.PaymentPending || o.PaymentStatus == domain.PaymentFailed
}

func (s *Service) paymentFailure(o *domain.Order, err error) *Error {
	s.logger.Error("payment initiation failed",
		zap.String("order_id", o.ID),
		zap.String("order_number", o.OrderNumber),
		zap.Error(err),
	)
	e := failWith(CodePaymentInitiationFailed, "order saved but payment could not be started", err)
	e.OrderID = o.ID
	return e
}

func (s *Service) storageFailure(op string, err error) *Error {
	s.logger.Error("checkout storage failure", zap.String("op", op), zap.Error(err))
	return failWith(CodeOrderCreationFailed, "could not place the order", err)
}
