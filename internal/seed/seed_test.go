package seed

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/domain"
	couponsvc "storefront/internal/service/coupon"
)

type stubProducts struct {
	saved []domain.Product
	err   error
}

func (s *stubProducts) Save(_ context.Context, p domain.Product) (*domain.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.saved = append(s.saved, p)
	return &p, nil
}

type stubCoupons struct {
	existing map[string]bool
	created  []string
}

func (s *stubCoupons) Create(_ context.Context, in couponsvc.CreateInput) (*domain.Coupon, error) {
	if s.existing[in.Code] {
		return nil, domain.ErrConflict
	}
	s.created = append(s.created, in.Code)
	return &domain.Coupon{Code: in.Code}, nil
}

func TestApplySkipsExistingCoupons(t *testing.T) {
	products := &stubProducts{}
	coupons := &stubCoupons{existing: map[string]bool{"WELCOME10": true}}

	if err := Apply(context.Background(), products, coupons, nil); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(products.saved) != len(demoProducts()) {
		t.Fatalf("expected %d products, got %d", len(demoProducts()), len(products.saved))
	}
	if len(coupons.created) != 1 || coupons.created[0] != "FLAT100" {
		t.Fatalf("unexpected coupons created %v", coupons.created)
	}
}

func TestApplyStopsOnProductFailure(t *testing.T) {
	products := &stubProducts{err: errors.New("boom")}
	if err := Apply(context.Background(), products, &stubCoupons{}, nil); err == nil {
		t.Fatalf("expected error")
	}
}
