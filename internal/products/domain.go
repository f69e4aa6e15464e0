package products

import "time"

// Category groups catalog products.
type Category string

const (
	CategoryStitched   Category = "STITCHED"
	CategoryUnstitched Category = "UNSTITCHED"
	CategoryReadyStock Category = "READY_STOCK"
)

// BOMLine is one material of a standard-size bill of materials, per unit.
type BOMLine struct {
	InventoryItemID string  `json:"inventoryItemId" validate:"required"`
	Name            string  `json:"name"`
	Section         string  `json:"section" validate:"required"`
	Quantity        float64 `json:"quantity" validate:"gt=0"`
	Unit            string  `json:"unit"`
}

// Product is a sellable garment design.
type Product struct {
	ID        string    `json:"id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Category  Category  `json:"category"`
	BasePrice float64   `json:"basePrice"`
	Sections  []string  `json:"sections"`
	BOM       []BOMLine `json:"bom"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy.
func (p Product) Clone() Product {
	out := p
	out.Sections = append([]string(nil), p.Sections...)
	out.BOM = append([]BOMLine(nil), p.BOM...)
	return out
}

// CreateRequest represents request to create a product.
type CreateRequest struct {
	SKU       string    `json:"sku" validate:"required,max=50"`
	Name      string    `json:"name" validate:"required,max=200"`
	Category  Category  `json:"category" validate:"required,oneof=STITCHED UNSTITCHED READY_STOCK"`
	BasePrice float64   `json:"basePrice" validate:"gte=0"`
	Sections  []string  `json:"sections" validate:"dive,required,max=50"`
	BOM       []BOMLine `json:"bom" validate:"dive"`
}

// UpdateRequest represents a partial product update.
type UpdateRequest struct {
	Name      *string    `json:"name,omitempty" validate:"omitempty,max=200"`
	BasePrice *float64   `json:"basePrice,omitempty" validate:"omitempty,gte=0"`
	Sections  *[]string  `json:"sections,omitempty" validate:"omitempty,dive,required,max=50"`
	BOM       *[]BOMLine `json:"bom,omitempty" validate:"omitempty,dive"`
}
