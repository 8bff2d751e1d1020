package model

import "time"

// Image references a product image served by the asset pipeline.
type Image struct {
	URL string `json:"URL"`
}

// ProductSummary is the read-only catalog view of a product, as returned
// by the search and category endpoints. Prices are minor currency units.
type ProductSummary struct {
	ID            int64         `json:"ID"`
	Name          string        `json:"Name"`
	URL           string        `json:"URL"`
	Price         int64         `json:"Price"`
	Reduction     int64         `json:"Reduction"`
	ReductionType ReductionType `json:"ReductionType"`
	HasReduction  bool          `json:"HasReduction"`
	Quantity      int           `json:"Quantity"`
	DefaultImage  Image         `json:"DefaultImage"`
}

// LineItem converts a catalog product into a cart line with the given quantity.
// The product URL is the line identifier.
func (p ProductSummary) LineItem(quantity int) LineItem {
	return LineItem{
		ID:            p.URL,
		Name:          p.Name,
		Price:         p.Price,
		Quantity:      quantity,
		Reduction:     p.Reduction,
		ReductionType: p.ReductionType,
		DefaultImage:  p.DefaultImage.URL,
		Stock:         p.Quantity,
	}
}

// Product is a catalog row as stored by the backend.
type Product struct {
	ProductSummary
	CategoryID int64     `json:"CategoryID"`
	CreatedAt  time.Time `json:"CreatedAt"`
	UpdatedAt  time.Time `json:"UpdatedAt"`
}

// Category is one node of the category tree.
type Category struct {
	ID       int64            `json:"ID"`
	Name     string           `json:"Name"`
	Slug     string           `json:"Slug"`
	ParentID *int64           `json:"-"`
	Children []Category       `json:"Children"`
	Products []ProductSummary `json:"Products"`
}
