// Package catalog is the read-only product catalog boundary.
//
// The engine never fetches; it asks a Source for Product values. The file
// source reads a YAML product list so the CLI and scenarios can run
// without a remote catalog.
package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/roach88/shopstate/internal/model"
)

// Source resolves product ids to products.
type Source interface {
	// Product returns the product for id, or an error wrapping
	// model.ErrUnknownProduct.
	Product(ctx context.Context, id model.ProductID) (model.Product, error)
	// List returns every product in catalog order.
	List(ctx context.Context) ([]model.Product, error)
}

// Static is an in-memory Source.
type Static struct {
	products []model.Product
	byID     map[model.ProductID]int
}

var _ Source = (*Static)(nil)

// NewStatic returns a source over products. A later product with a
// duplicate id replaces the earlier one in place.
func NewStatic(products ...model.Product) *Static {
	s := &Static{byID: make(map[model.ProductID]int, len(products))}
	for _, p := range products {
		if i, ok := s.byID[p.ID]; ok {
			s.products[i] = p
			continue
		}
		s.byID[p.ID] = len(s.products)
		s.products = append(s.products, p)
	}
	return s
}

func (s *Static) Product(ctx context.Context, id model.ProductID) (model.Product, error) {
	i, ok := s.byID[id]
	if !ok {
		return model.Product{}, fmt.Errorf("%w: %q", model.ErrUnknownProduct, id)
	}
	return s.products[i], nil
}

func (s *Static) List(ctx context.Context) ([]model.Product, error) {
	out := make([]model.Product, len(s.products))
	copy(out, s.products)
	return out, nil
}

// File is the YAML catalog file layout.
type File struct {
	Products []ProductDef `yaml:"products"`
}

// ProductDef is one product as written in YAML. Prices are decimal strings
// (unquoted numbers are accepted and read as their literal text).
type ProductDef struct {
	ID          string    `yaml:"id"`
	Title       string    `yaml:"title"`
	Price       string    `yaml:"price"`
	Image       string    `yaml:"image"`
	Description string    `yaml:"description"`
	Rating      RatingDef `yaml:"rating"`
}

// RatingDef is the YAML form of model.Rating.
type RatingDef struct {
	Rate  string `yaml:"rate"`
	Count int64  `yaml:"count"`
}

// Product converts the definition to a model.Product.
func (d ProductDef) Product() (model.Product, error) {
	if d.ID == "" {
		return model.Product{}, fmt.Errorf("product %q: missing id", d.Title)
	}
	price, err := decimal.NewFromString(d.Price)
	if err != nil {
		return model.Product{}, fmt.Errorf("product %s: price %q: %w", d.ID, d.Price, err)
	}
	if price.IsNegative() {
		return model.Product{}, fmt.Errorf("product %s: negative price %s", d.ID, price)
	}
	rate := decimal.Zero
	if d.Rating.Rate != "" {
		if rate, err = decimal.NewFromString(d.Rating.Rate); err != nil {
			return model.Product{}, fmt.Errorf("product %s: rating %q: %w", d.ID, d.Rating.Rate, err)
		}
	}
	return model.Product{
		ID:          model.ProductID(d.ID),
		Title:       d.Title,
		Price:       price,
		Image:       d.Image,
		Description: d.Description,
		Rating:      model.Rating{Rate: rate, Count: d.Rating.Count},
	}, nil
}

// Parse decodes a YAML catalog. Unknown fields are rejected.
func Parse(data []byte) (*Static, error) {
	var f File
	if err := decodeStrict(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	products, err := ConvertProducts(f.Products)
	if err != nil {
		return nil, err
	}
	return NewStatic(products...), nil
}

// ConvertProducts converts YAML definitions to products.
func ConvertProducts(defs []ProductDef) ([]model.Product, error) {
	products := make([]model.Product, 0, len(defs))
	for _, d := range defs {
		p, err := d.Product()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

// LoadFile reads a YAML catalog from path.
func LoadFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

func decodeStrict(data []byte, v any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Reject unknown fields
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
