package orders

import (
	"time"
)

// ============================================================================
// ORDER STATUS
// ============================================================================

// OrderStatus represents the lifecycle of a customer order.
type OrderStatus string

const (
	OrderPending          OrderStatus = "PENDING"
	OrderInProgress       OrderStatus = "IN_PROGRESS"
	OrderReadyForDispatch OrderStatus = "READY_FOR_DISPATCH"
	OrderDispatched       OrderStatus = "DISPATCHED"
	OrderCompleted        OrderStatus = "COMPLETED"
	OrderCancelled        OrderStatus = "CANCELLED"
)

// IsValid checks if the status is valid.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderPending, OrderInProgress, OrderReadyForDispatch, OrderDispatched, OrderCompleted, OrderCancelled:
		return true
	default:
		return false
	}
}

// CanCancel reports whether the order may still be cancelled.
func (s OrderStatus) CanCancel() bool {
	return s == OrderPending || s == OrderInProgress
}

// IsClosed reports whether the order is archived.
func (s OrderStatus) IsClosed() bool {
	return s == OrderCompleted || s == OrderCancelled
}

// ============================================================================
// ITEM STATUS
// ============================================================================

// ItemStatus is the aggregate status of an order item.
type ItemStatus string

const (
	ItemReceived            ItemStatus = "RECEIVED"
	ItemFabricationBespoke  ItemStatus = "FABRICATION_BESPOKE"
	ItemInventoryCheck      ItemStatus = "INVENTORY_CHECK"
	ItemAwaitingMaterial    ItemStatus = "AWAITING_MATERIAL"
	ItemReadyForDyeing      ItemStatus = "READY_FOR_DYEING"
	ItemPartiallyInDyeing   ItemStatus = "PARTIALLY_IN_DYEING"
	ItemInDyeing            ItemStatus = "IN_DYEING"
	ItemDyeingCompleted     ItemStatus = "DYEING_COMPLETED"
	ItemReadyForProduction  ItemStatus = "READY_FOR_PRODUCTION"
	ItemInProduction        ItemStatus = "IN_PRODUCTION"
	ItemProductionCompleted ItemStatus = "PRODUCTION_COMPLETED"
	ItemQualityAssurance    ItemStatus = "QUALITY_ASSURANCE"
	ItemQARejected          ItemStatus = "QA_REJECTED"
	ItemReadyForDispatch    ItemStatus = "READY_FOR_DISPATCH"
	ItemDispatched          ItemStatus = "DISPATCHED"
	ItemCompleted           ItemStatus = "COMPLETED"
	ItemCancelled           ItemStatus = "CANCELLED"
)

// IsValid checks if the status is valid.
func (s ItemStatus) IsValid() bool {
	switch s {
	case ItemReceived, ItemFabricationBespoke, ItemInventoryCheck, ItemAwaitingMaterial,
		ItemReadyForDyeing, ItemPartiallyInDyeing, ItemInDyeing, ItemDyeingCompleted,
		ItemReadyForProduction, ItemInProduction, ItemProductionCompleted, ItemQualityAssurance,
		ItemQARejected, ItemReadyForDispatch, ItemDispatched, ItemCompleted, ItemCancelled:
		return true
	default:
		return false
	}
}

// IsClosed reports whether the item has left the workflow. Closed items
// accept no further section transitions.
func (s ItemStatus) IsClosed() bool {
	return s == ItemCancelled || s == ItemDispatched || s == ItemCompleted
}

// CanSubmitBOM reports whether fabrication may author a custom BOM.
func (s ItemStatus) CanSubmitBOM() bool {
	return s == ItemFabricationBespoke
}

// CanStartProduction reports whether stitching may begin.
func (s ItemStatus) CanStartProduction() bool {
	switch s {
	case ItemReceived, ItemReadyForProduction, ItemDyeingCompleted, ItemQARejected:
		return true
	default:
		return false
	}
}

// CanReview reports whether QA may approve or reject the item.
func (s ItemStatus) CanReview() bool {
	switch s {
	case ItemReadyForProduction, ItemProductionCompleted, ItemQualityAssurance:
		return true
	default:
		return false
	}
}

// CanDispatch reports whether the item may be shipped.
func (s ItemStatus) CanDispatch() bool {
	return s == ItemReadyForDispatch
}

// ============================================================================
// SECTION STATUS
// ============================================================================

// SectionState is the status of one garment section.
type SectionState string

const (
	SectionPendingInventoryCheck SectionState = "PENDING_INVENTORY_CHECK"
	SectionAwaitingMaterial      SectionState = "AWAITING_MATERIAL"
	SectionReadyForDyeing        SectionState = "READY_FOR_DYEING"
	SectionDyeingAccepted        SectionState = "DYEING_ACCEPTED"
	SectionDyeingInProgress      SectionState = "DYEING_IN_PROGRESS"
	SectionDyeingCompleted       SectionState = "DYEING_COMPLETED"
	SectionReadyForProduction    SectionState = "READY_FOR_PRODUCTION"
)

// IsValid checks if the state is valid.
func (s SectionState) IsValid() bool {
	switch s {
	case SectionPendingInventoryCheck, SectionAwaitingMaterial, SectionReadyForDyeing,
		SectionDyeingAccepted, SectionDyeingInProgress, SectionDyeingCompleted, SectionReadyForProduction:
		return true
	default:
		return false
	}
}

// IsActiveDyeing reports ready, accepted or in-progress dyeing states.
func (s SectionState) IsActiveDyeing() bool {
	return s == SectionReadyForDyeing || s == SectionDyeingAccepted || s == SectionDyeingInProgress
}

// IsHeld reports states in which a dyer owns the section.
func (s SectionState) IsHeld() bool {
	return s == SectionDyeingAccepted || s == SectionDyeingInProgress
}

// IsDyeingDone reports states past the dyeing stage.
func (s SectionState) IsDyeingDone() bool {
	return s == SectionDyeingCompleted || s == SectionReadyForProduction
}

// CanReject reports whether a dyer may send the section back.
func (s SectionState) CanReject() bool {
	return s.IsActiveDyeing()
}

// ReservedMaterial is stock held back from inventory for one section.
type ReservedMaterial struct {
	InventoryItemID string  `json:"inventoryItemId"`
	Quantity        float64 `json:"quantity"`
}

// InventoryCheckResult records the outcome of the last stock check.
type InventoryCheckResult struct {
	Sufficient bool               `json:"sufficient"`
	Shortages  []MaterialShortage `json:"shortages,omitempty"`
	CheckedBy  string             `json:"checkedBy"`
	CheckedAt  time.Time          `json:"checkedAt"`
}

// MaterialShortage describes missing stock for a material.
type MaterialShortage struct {
	InventoryItemID string  `json:"inventoryItemId"`
	Name            string  `json:"name"`
	Required        float64 `json:"required"`
	Available       float64 `json:"available"`
}

// SectionStatus is the per-section status record of a multi-section item.
type SectionStatus struct {
	Status SectionState `json:"status"`
	// DyeingRound counts rework cycles. It only ever grows.
	DyeingRound int `json:"dyeingRound"`

	DyeingAcceptedBy     string     `json:"dyeingAcceptedBy,omitempty"`
	DyeingAcceptedByName string     `json:"dyeingAcceptedByName,omitempty"`
	DyeingAcceptedAt     *time.Time `json:"dyeingAcceptedAt,omitempty"`
	DyeingStartedAt      *time.Time `json:"dyeingStartedAt,omitempty"`
	DyeingCompletedAt    *time.Time `json:"dyeingCompletedAt,omitempty"`

	DyeingRejectedBy          string     `json:"dyeingRejectedBy,omitempty"`
	DyeingRejectedByName      string     `json:"dyeingRejectedByName,omitempty"`
	DyeingRejectedAt          *time.Time `json:"dyeingRejectedAt,omitempty"`
	DyeingRejectionReasonCode string     `json:"dyeingRejectionReasonCode,omitempty"`
	DyeingRejectionNotes      string     `json:"dyeingRejectionNotes,omitempty"`

	PreviousFabricationAssignee string `json:"previousFabricationAssignee,omitempty"`

	InventoryCheckResult *InventoryCheckResult `json:"inventoryCheckResult,omitempty"`
	ReservedMaterials    []ReservedMaterial    `json:"reservedMaterials,omitempty"`
}

// ClearDyeingAcceptance drops every field tied to the current dyeing claim.
func (s *SectionStatus) ClearDyeingAcceptance() {
	s.DyeingAcceptedBy = ""
	s.DyeingAcceptedByName = ""
	s.DyeingAcceptedAt = nil
	s.DyeingStartedAt = nil
	s.DyeingCompletedAt = nil
}

// ============================================================================
// ORDER ITEM
// ============================================================================

// MaterialRequirement is one material needed for a section.
type MaterialRequirement struct {
	InventoryItemID string  `json:"inventoryItemId" validate:"required"`
	Name            string  `json:"name"`
	Section         string  `json:"section" validate:"required"`
	Quantity        float64 `json:"quantity" validate:"gt=0"`
	Unit            string  `json:"unit"`
}

// CustomBOM is the bill of materials fabrication authors for custom sizes.
type CustomBOM struct {
	Items       []MaterialRequirement `json:"items"`
	SubmittedBy string                `json:"submittedBy"`
	SubmittedAt time.Time             `json:"submittedAt"`
}

// TimelineEntry is one append-only log line on an item.
type TimelineEntry struct {
	Action    string    `json:"action"`
	User      string    `json:"user"`
	Timestamp time.Time `json:"timestamp"`
}

// Item is one garment line of an order.
type Item struct {
	ID           string     `json:"id"`
	OrderID      string     `json:"orderId"`
	OrderNumber  string     `json:"orderNumber"`
	ProductID    string     `json:"productId"`
	ProductName  string     `json:"productName"`
	Size         string     `json:"size"`
	IsCustomSize bool       `json:"isCustomSize"`
	Quantity     int        `json:"quantity"`
	UnitPrice    float64    `json:"unitPrice"`
	Status       ItemStatus `json:"status"`

	SectionStatuses      map[string]*SectionStatus `json:"sectionStatuses,omitempty"`
	CustomBOM            *CustomBOM                `json:"customBOM,omitempty"`
	MaterialRequirements []MaterialRequirement     `json:"materialRequirements,omitempty"`

	FabricationAssignee     string `json:"fabricationAssignee,omitempty"`
	FabricationAssigneeName string `json:"fabricationAssigneeName,omitempty"`

	ProductionStartedAt   *time.Time `json:"productionStartedAt,omitempty"`
	ProductionCompletedAt *time.Time `json:"productionCompletedAt,omitempty"`

	QARound      int        `json:"qaRound"`
	QANotes      string     `json:"qaNotes,omitempty"`
	QAReviewedBy string     `json:"qaReviewedBy,omitempty"`
	QAReviewedAt *time.Time `json:"qaReviewedAt,omitempty"`

	TrackingNumber string     `json:"trackingNumber,omitempty"`
	DispatchedAt   *time.Time `json:"dispatchedAt,omitempty"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`

	Timeline  []TimelineEntry `json:"timeline"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// AddTimeline appends an entry to the item timeline.
func (it *Item) AddTimeline(action, user string, at time.Time) {
	it.Timeline = append(it.Timeline, TimelineEntry{Action: action, User: user, Timestamp: at})
}

// Section returns the named section record or nil.
func (it *Item) Section(name string) *SectionStatus {
	if it.SectionStatuses == nil {
		return nil
	}
	return it.SectionStatuses[name]
}

// Sections returns the item's section names in stable order.
func (it *Item) Sections() []string {
	return sortedKeys(it.SectionStatuses)
}

// RequirementsFor lists the material requirements tied to a section.
func (it *Item) RequirementsFor(section string) []MaterialRequirement {
	var out []MaterialRequirement
	for _, req := range it.MaterialRequirements {
		if req.Section == section {
			out = append(out, req)
		}
	}
	return out
}

// Rederive recomputes the aggregate status from the section map. Every
// section mutation must be followed by a call to Rederive.
func (it *Item) Rederive() {
	it.Status = DeriveItemStatus(it.SectionStatuses, it.Status)
}

// ============================================================================
// ORDER
// ============================================================================

// Customer holds buyer contact details.
type Customer struct {
	Name  string `json:"name" validate:"required,max=200"`
	Phone string `json:"phone" validate:"required,max=40"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

// Shipping holds the delivery destination.
type Shipping struct {
	Address string `json:"address" validate:"required,max=500"`
	City    string `json:"city" validate:"required,max=100"`
	Method  string `json:"method" validate:"omitempty,oneof=STANDARD EXPRESS PICKUP"`
}

// Payment holds payment terms captured at order time.
type Payment struct {
	Method      string  `json:"method" validate:"omitempty,oneof=CASH CARD BANK_TRANSFER COD"`
	Status      string  `json:"status" validate:"omitempty,oneof=PENDING PARTIAL PAID"`
	TotalAmount float64 `json:"totalAmount"`
	AdvancePaid float64 `json:"advancePaid" validate:"gte=0"`
}

// Order is a customer order with its items.
type Order struct {
	ID           string      `json:"id"`
	OrderNumber  string      `json:"orderNumber"`
	Customer     Customer    `json:"customer"`
	Shipping     Shipping    `json:"shipping"`
	Payment      Payment     `json:"payment"`
	Status       OrderStatus `json:"status"`
	Notes        string      `json:"notes,omitempty"`
	CancelReason string      `json:"cancelReason,omitempty"`
	CreatedBy    string      `json:"createdBy"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
	Items        []Item      `json:"items"`
}

// ============================================================================
// REQUEST DTOs
// ============================================================================

// CreateOrderRequest represents request to create an order.
type CreateOrderRequest struct {
	Customer Customer            `json:"customer" validate:"required"`
	Shipping Shipping            `json:"shipping" validate:"required"`
	Payment  Payment             `json:"payment"`
	Notes    string              `json:"notes,omitempty" validate:"max=1000"`
	Items    []CreateItemRequest `json:"items" validate:"required,min=1,dive"`
}

// CreateItemRequest represents one line of CreateOrderRequest.
type CreateItemRequest struct {
	ProductID    string `json:"productId" validate:"required"`
	Size         string `json:"size" validate:"required,max=20"`
	IsCustomSize bool   `json:"isCustomSize"`
	Quantity     int    `json:"quantity" validate:"required,gt=0"`
}

// CancelOrderRequest represents request to cancel an order.
type CancelOrderRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

// ListFilter filters and sorts order listings.
type ListFilter struct {
	Status   OrderStatus
	Search   string
	Customer string
	SortBy   string
	SortDesc bool
	Page     int
	PerPage  int
}

// ItemFilter selects items for work queues.
type ItemFilter struct {
	Statuses []ItemStatus
	// SectionStates selects items with at least one section in any of the states.
	SectionStates []SectionState
}
