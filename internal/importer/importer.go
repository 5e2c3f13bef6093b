package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"storefront/internal/domain"
	"storefront/internal/logging"
)

const customPrefix = "variant.custom."

type ProductWriter interface {
	Save(ctx context.Context, p domain.Product) (*domain.Product, error)
}

// CSVImporter reads catalog CSV files and saves products with their
// variants. A row with a slug starts a product; following rows without a
// slug add variants or images to it. Columns named variant.custom.<Key>
// become variant custom fields.
type CSVImporter struct {
	reader *csv.Reader
	writer ProductWriter
	logger *zap.Logger
}

func NewCSVImporter(r io.Reader, writer ProductWriter, logger *zap.Logger) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	return &CSVImporter{
		reader: csvr,
		writer: writer,
		logger: logging.OrNop(logger).Named("importer"),
	}
}

type header struct {
	index  map[string]int
	custom []string
}

// Run parses the file and saves each product. It stops at the first
// invalid row or failed save and reports how many products were saved.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	h := parseHeader(headers)
	if _, ok := h.index["slug"]; !ok {
		return 0, errors.New("read headers: slug column is required")
	}

	var (
		current  *domain.Product
		imported int
		line     = 1
	)
	flush := func() error {
		if current == nil {
			return nil
		}
		saved, err := i.writer.Save(ctx, *current)
		if err != nil {
			return fmt.Errorf("save product %q: %w", current.Slug, err)
		}
		imported++
		i.logger.Debug("product imported", zap.String("slug", saved.Slug), zap.Int("variants", len(saved.Variants)))
		return nil
	}

	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return imported, fmt.Errorf("read row %d: %w", line, err)
		}

		if slug := h.pick(record, "slug"); slug != "" {
			if err := flush(); err != nil {
				return imported, err
			}
			p, err := h.product(record)
			if err != nil {
				return imported, fmt.Errorf("row %d: %w", line, err)
			}
			current = p
		} else if current == nil {
			continue
		}

		if url := h.pick(record, "image_url"); url != "" && h.pick(record, "slug") == "" {
			current.ImageURLs = append(current.ImageURLs, url)
		}
		v, err := h.variant(record)
		if err != nil {
			return imported, fmt.Errorf("row %d: %w", line, err)
		}
		if v != nil {
			current.Variants = append(current.Variants, *v)
		}
	}

	if err := flush(); err != nil {
		return imported, err
	}
	return imported, nil
}

func parseHeader(headers []string) header {
	h := header{index: make(map[string]int, len(headers))}
	for pos, name := range headers {
		name = strings.TrimSpace(name)
		h.index[name] = pos
		if key, ok := strings.CutPrefix(name, customPrefix); ok && key != "" {
			h.custom = append(h.custom, key)
		}
	}
	return h
}

func (h header) product(record []string) (*domain.Product, error) {
	price, err := h.amount(record, "price")
	if err != nil {
		return nil, err
	}
	stock, err := h.integer(record, "stock")
	if err != nil {
		return nil, err
	}
	active := true
	if raw := h.pick(record, "is_active"); raw != "" {
		if active, err = strconv.ParseBool(raw); err != nil {
			return nil, fmt.Errorf("is_active: %w", err)
		}
	}
	p := &domain.Product{
		Slug:        h.pick(record, "slug"),
		Name:        h.pick(record, "name"),
		Description: h.pick(record, "description"),
		Price:       price,
		Stock:       stock,
		IsActive:    active,
	}
	if url := h.pick(record, "image_url"); url != "" {
		p.ImageURLs = []string{url}
	}
	return p, nil
}

// variant returns nil when the row carries no sku.
func (h header) variant(record []string) (*domain.Variant, error) {
	sku := h.pick(record, "variant.sku")
	if sku == "" {
		return nil, nil
	}
	price, err := h.amount(record, "variant.price")
	if err != nil {
		return nil, fmt.Errorf("variant %s: %w", sku, err)
	}
	stock, err := h.integer(record, "variant.stock")
	if err != nil {
		return nil, fmt.Errorf("variant %s: %w", sku, err)
	}
	v := &domain.Variant{
		SKU:      sku,
		Title:    h.pick(record, "variant.title"),
		Price:    price,
		Stock:    stock,
		IsActive: true,
	}
	if raw := h.pick(record, "variant.original_price"); raw != "" {
		original, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("variant %s: original_price %q: %w", sku, raw, err)
		}
		v.OriginalPrice = &original
	}
	for _, key := range h.custom {
		if value := h.pick(record, customPrefix+key); value != "" {
			v.CustomFields = append(v.CustomFields, domain.CustomField{Key: key, Value: value})
		}
	}
	return v, nil
}

func (h header) amount(record []string, col string) (decimal.Decimal, error) {
	raw := h.pick(record, col)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s %q: %w", col, raw, err)
	}
	return d, nil
}

func (h header) integer(record []string, col string) (int, error) {
	raw := h.pick(record, col)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", col, raw, err)
	}
	return n, nil
}

func (h header) pick(record []string, col string) string {
	pos, ok := h.index[col]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
