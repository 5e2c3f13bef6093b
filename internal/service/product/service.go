package product

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"storefront/internal/domain"
	"storefront/internal/pricing"
	productrepo "storefront/internal/repository/product"
)

const maxCustomFields = 20

type Service struct {
	repo   productrepo.Repository
	policy *bluemonday.Policy
}

func New(repo productrepo.Repository) *Service {
	return &Service{repo: repo, policy: bluemonday.StrictPolicy()}
}

func (s *Service) List(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListActive(ctx)
}

// Get returns an active product. Inactive products read as not found.
func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

// Catalog loads the products behind productIDs for pricing.
func (s *Service) Catalog(ctx context.Context, productIDs []string) (pricing.Catalog, error) {
	unique := make([]string, 0, len(productIDs))
	seen := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	products, err := s.repo.GetByIDs(ctx, unique)
	if err != nil {
		return pricing.Catalog{}, err
	}
	return pricing.NewCatalog(products), nil
}

// Save validates p and its variants, cleans variant custom fields and
// upserts the result.
func (s *Service) Save(ctx context.Context, p domain.Product) (*domain.Product, error) {
	p.Slug = strings.TrimSpace(p.Slug)
	p.Name = strings.TrimSpace(p.Name)
	if p.Slug == "" || p.Name == "" {
		return nil, fmt.Errorf("%w: slug and name are required", domain.ErrInvalidInput)
	}
	if p.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", domain.ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(p.Variants))
	for i := range p.Variants {
		v := &p.Variants[i]
		v.SKU = strings.TrimSpace(v.SKU)
		v.Title = strings.TrimSpace(v.Title)
		if v.SKU == "" || v.Title == "" {
			return nil, fmt.Errorf("%w: variant sku and title are required", domain.ErrInvalidInput)
		}
		if _, dup := seen[v.SKU]; dup {
			return nil, fmt.Errorf("%w: duplicate sku %s", domain.ErrInvalidInput, v.SKU)
		}
		seen[v.SKU] = struct{}{}
		if v.Price.IsNegative() || (v.OriginalPrice != nil && v.OriginalPrice.IsNegative()) {
			return nil, fmt.Errorf("%w: variant %s has a negative price", domain.ErrInvalidInput, v.SKU)
		}
		fields, err := s.CleanCustomFields(v.CustomFields)
		if err != nil {
			return nil, fmt.Errorf("variant %s: %w", v.SKU, err)
		}
		v.CustomFields = fields
	}
	return s.repo.Upsert(ctx, p)
}

// CleanCustomFields strips markup from keys and values, drops empty pairs
// and rejects duplicate keys.
func (s *Service) CleanCustomFields(fields []domain.CustomField) ([]domain.CustomField, error) {
	out := make([]domain.CustomField, 0, len(fields))
	keys := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		key := s.plainText(f.Key)
		value := s.plainText(f.Value)
		if key == "" && value == "" {
			continue
		}
		if key == "" {
			return nil, fmt.Errorf("%w: custom field value %q has no key", domain.ErrInvalidInput, value)
		}
		lower := strings.ToLower(key)
		if _, dup := keys[lower]; dup {
			return nil, fmt.Errorf("%w: duplicate custom field %q", domain.ErrInvalidInput, key)
		}
		keys[lower] = struct{}{}
		out = append(out, domain.CustomField{Key: key, Value: value})
	}
	if len(out) > maxCustomFields {
		return nil, fmt.Errorf("%w: at most %d custom fields", domain.ErrInvalidInput, maxCustomFields)
	}
	return out, nil
}

// plainText removes markup. The policy escapes entities, which are
// decoded again since fields are served as JSON, not HTML.
func (s *Service) plainText(v string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(v)))
}
