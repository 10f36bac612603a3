package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PickupStatus represents the lifecycle state of a pickup request.
type PickupStatus string

const (
	PickupStatusRequested PickupStatus = "REQUESTED"
	PickupStatusAssigned  PickupStatus = "ASSIGNED"
	PickupStatusOnTheWay  PickupStatus = "ON_THE_WAY"
	PickupStatusWeighing  PickupStatus = "WEIGHING"
	PickupStatusPicked    PickupStatus = "PICKED"
	PickupStatusPaid      PickupStatus = "PAID"
	PickupStatusCancelled PickupStatus = "CANCELLED"
)

// PickupStatuses lists every status in lifecycle order.
var PickupStatuses = []PickupStatus{
	PickupStatusRequested,
	PickupStatusAssigned,
	PickupStatusOnTheWay,
	PickupStatusWeighing,
	PickupStatusPicked,
	PickupStatusPaid,
	PickupStatusCancelled,
}

// Valid reports whether s is a known status.
func (s PickupStatus) Valid() bool {
	for _, known := range PickupStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s PickupStatus) Terminal() bool {
	return s == PickupStatusPaid || s == PickupStatusCancelled
}

// TimeSlot is one of the fixed pickup windows.
type TimeSlot string

const (
	SlotMorning   TimeSlot = "morning"   // 09:00 - 12:00
	SlotAfternoon TimeSlot = "afternoon" // 12:00 - 15:00
	SlotEvening   TimeSlot = "evening"   // 15:00 - 18:00
)

// Valid reports whether s is a known slot.
func (s TimeSlot) Valid() bool {
	switch s {
	case SlotMorning, SlotAfternoon, SlotEvening:
		return true
	}
	return false
}

// WasteCategory identifies a priced material type.
type WasteCategory string

const (
	CategoryPaper   WasteCategory = "PAPER"
	CategoryPlastic WasteCategory = "PLASTIC"
	CategoryMetal   WasteCategory = "METAL"
	CategoryEWaste  WasteCategory = "EWASTE"
	CategoryGlass   WasteCategory = "GLASS"
	CategoryMixed   WasteCategory = "MIXED"
)

// AddressSchemaVersion is the current shape of Address.
const AddressSchemaVersion = 1

// Address is a snapshot copied into the pickup at creation time.
// Later edits to the customer's address book never reach it.
type Address struct {
	SchemaVersion int    `json:"schema_version"`
	Line1         string `json:"line1"`
	Line2         string `json:"line2,omitempty"`
	City          string `json:"city"`
	State         string `json:"state"`
	PostalCode    string `json:"postal_code"`
	Landmark      string `json:"landmark,omitempty"`
}

// ItemSchemaVersion is the current shape of PickupItem.
const ItemSchemaVersion = 1

// PickupItem is one material line of a pickup. Estimated values are captured at
// request time, actual values at weigh-in. A nil weight means "unknown".
type PickupItem struct {
	SchemaVersion   int              `json:"schema_version"`
	Category        WasteCategory    `json:"category"`
	EstimatedWeight *decimal.Decimal `json:"estimated_weight"`
	UnitPrice       decimal.Decimal  `json:"unit_price"`
	MinQuantity     decimal.Decimal  `json:"min_quantity"`
	EstimatedAmount *decimal.Decimal `json:"estimated_amount"`
	ActualWeight    *decimal.Decimal `json:"actual_weight,omitempty"`
	ActualUnitPrice *decimal.Decimal `json:"actual_unit_price,omitempty"`
	ActualAmount    *decimal.Decimal `json:"actual_amount,omitempty"`
}

// PickupRequest represents one scrap-collection job.
type PickupRequest struct {
	ID          string
	CustomerID  string
	CollectorID string // collector profile id, empty until ASSIGNED

	Address       Address
	Items         []PickupItem
	ScheduledDate time.Time
	ScheduledSlot TimeSlot
	Status        PickupStatus

	TotalEstimatedWeight *decimal.Decimal
	TotalEstimatedAmount *decimal.Decimal
	TotalActualWeight    *decimal.Decimal
	TotalActualAmount    *decimal.Decimal
	ConvenienceFee       decimal.Decimal
	PriceLockExpiresAt   time.Time // advisory only

	AssistedMode bool
	Notes        string
	PhotoURL     string
	CancelReason string

	// Version increases on every write and guards conditional updates.
	Version int

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt time.Time
	PaidAt      time.Time
	CancelledAt time.Time
}

// Clone returns a copy that shares no mutable state with p.
func (p *PickupRequest) Clone() *PickupRequest {
	c := *p
	c.Items = make([]PickupItem, len(p.Items))
	copy(c.Items, p.Items)
	return &c
}

// ItemIndex returns the position of the item with category, or -1.
func (p *PickupRequest) ItemIndex(category WasteCategory) int {
	for i := range p.Items {
		if p.Items[i].Category == category {
			return i
		}
	}
	return -1
}
