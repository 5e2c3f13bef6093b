package address

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"storefront/internal/domain"
)

type addressRepo interface {
	Create(ctx context.Context, a domain.Address) (*domain.Address, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Address, error)
}

type Service struct {
	repo   addressRepo
	policy *bluemonday.Policy
}

func New(repo addressRepo) *Service {
	return &Service{repo: repo, policy: bluemonday.StrictPolicy()}
}

func (s *Service) List(ctx context.Context, userID string) ([]domain.Address, error) {
	return s.repo.ListByUser(ctx, userID)
}

type CreateInput struct {
	FullName   string `json:"fullName"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	IsDefault  bool   `json:"isDefault"`
}

func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*domain.Address, error) {
	a := domain.Address{
		UserID:     userID,
		FullName:   s.text(in.FullName),
		Phone:      strings.TrimSpace(in.Phone),
		Line1:      s.text(in.Line1),
		Line2:      s.text(in.Line2),
		City:       s.text(in.City),
		State:      s.text(in.State),
		PostalCode: strings.TrimSpace(in.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(in.Country)),
		IsDefault:  in.IsDefault,
	}
	if a.FullName == "" || a.Phone == "" || a.Line1 == "" || a.City == "" || a.State == "" || a.PostalCode == "" {
		return nil, fmt.Errorf("%w: fullName, phone, line1, city, state and postalCode are required", domain.ErrInvalidInput)
	}
	return s.repo.Create(ctx, a)
}

func (s *Service) text(v string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(v)))
}
