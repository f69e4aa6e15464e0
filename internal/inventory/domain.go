package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/tailorflow/tailorflow/internal/platform/httpx"
)

// Category classifies stock items.
type Category string

const (
	CategoryFabric       Category = "FABRIC"
	CategoryRawMaterial  Category = "RAW_MATERIAL"
	CategoryAddaMaterial Category = "ADDA_MATERIAL"
	CategoryReadyStock   Category = "READY_STOCK"
)

// MovementType enumerates supported inventory movements.
type MovementType string

const (
	// MovementIn represents an inbound receipt.
	MovementIn MovementType = "IN"
	// MovementAdjust indicates manual corrections, positive or negative.
	MovementAdjust MovementType = "ADJUST"
	// MovementReserve holds stock for a garment section.
	MovementReserve MovementType = "RESERVE"
	// MovementRelease returns previously reserved stock.
	MovementRelease MovementType = "RELEASE"
)

// Item is one stock keeping unit.
type Item struct {
	ID             string    `json:"id"`
	SKU            string    `json:"sku"`
	Name           string    `json:"name"`
	Category       Category  `json:"category"`
	Unit           string    `json:"unit"`
	RemainingStock float64   `json:"remainingStock"`
	ReorderLevel   float64   `json:"reorderLevel"`
	UnitCost       float64   `json:"unitCost"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// IsLow reports whether the item is at or below its reorder level.
func (it Item) IsLow() bool {
	return it.RemainingStock <= it.ReorderLevel
}

// Movement is an immutable stock change record.
type Movement struct {
	ID              string       `json:"id"`
	InventoryItemID string       `json:"inventoryItemId"`
	Type            MovementType `json:"type"`
	Delta           float64      `json:"delta"`
	BalanceAfter    float64      `json:"balanceAfter"`
	Reason          string       `json:"reason"`
	RefModule       string       `json:"refModule,omitempty"`
	RefID           string       `json:"refId,omitempty"`
	Actor           string       `json:"actor"`
	At              time.Time    `json:"at"`
}

// MovementInput describes a stock change to post.
type MovementInput struct {
	InventoryItemID string
	Type            MovementType
	Delta           float64
	UnitCost        float64
	Reason          string
	RefModule       string
	RefID           string
	Actor           string
}

// ListFilter filters stock listings.
type ListFilter struct {
	Category Category
	Search   string
	LowOnly  bool
	SortBy   string
	SortDesc bool
}

// CreateRequest represents request to create a stock item.
type CreateRequest struct {
	SKU          string   `json:"sku" validate:"required,max=50"`
	Name         string   `json:"name" validate:"required,max=200"`
	Category     Category `json:"category" validate:"required,oneof=FABRIC RAW_MATERIAL ADDA_MATERIAL READY_STOCK"`
	Unit         string   `json:"unit" validate:"required,max=20"`
	OpeningStock float64  `json:"openingStock" validate:"gte=0"`
	ReorderLevel float64  `json:"reorderLevel" validate:"gte=0"`
	UnitCost     float64  `json:"unitCost" validate:"gte=0"`
}

// UpdateRequest edits descriptive fields. Stock only changes through movements.
type UpdateRequest struct {
	Name         *string  `json:"name,omitempty" validate:"omitempty,max=200"`
	Unit         *string  `json:"unit,omitempty" validate:"omitempty,max=20"`
	ReorderLevel *float64 `json:"reorderLevel,omitempty" validate:"omitempty,gte=0"`
}

// AdjustRequest represents a manual stock adjustment.
type AdjustRequest struct {
	Delta    float64 `json:"delta" validate:"required"`
	UnitCost float64 `json:"unitCost" validate:"gte=0"`
	Reason   string  `json:"reason" validate:"required,min=3,max=500"`
}

var (
	// ErrNegativeStock triggered when movement would result negative qty.
	ErrNegativeStock = fmt.Errorf("%w: insufficient stock", httpx.ErrValidation)
	// ErrInvalidQuantity flags zero or non-finite deltas.
	ErrInvalidQuantity = fmt.Errorf("%w: quantity must be non-zero", httpx.ErrValidation)
	// ErrItemNotFound is returned for unknown stock items.
	ErrItemNotFound = fmt.Errorf("inventory item %w", httpx.ErrNotFound)
	// errInvalidType flags movement types that cannot carry the given delta.
	errInvalidType = errors.New("inventory: movement type does not match delta sign")
)
