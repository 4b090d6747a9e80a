package entities

import "fmt"

// VariantID is the stable identifier of an orderable item configuration
type VariantID int64

// Quantity represents a discrete count of units
type Quantity int64

// MaxQuantity bounds a single cart line. Larger adds and sets saturate.
const MaxQuantity Quantity = 1_000_000

// addCapped adds q to a line quantity in [1, MaxQuantity], saturating at
// MaxQuantity
func addCapped(line, q Quantity) Quantity {
	if q > MaxQuantity-line {
		return MaxQuantity
	}
	return line + q
}

// Variant represents a specific orderable item configuration (brand/type/unit).
// Display fields are carried along so a cart can be rendered offline.
type Variant struct {
	ID            VariantID `json:"id"`
	FullCode      string    `json:"full_code,omitempty"`
	SpecificCode  string    `json:"specific_code,omitempty"`
	TypeName      string    `json:"type_name,omitempty"`
	Name          string    `json:"name,omitempty"`
	VariantName   string    `json:"variant_name,omitempty"`
	Description   string    `json:"description,omitempty"`
	UnitOfMeasure string    `json:"unit_of_measure,omitempty"`
}

// NewVariant creates a validated Variant
func NewVariant(id VariantID, fullCode, typeName, name, unitOfMeasure string) (*Variant, error) {
	if id <= 0 {
		return nil, fmt.Errorf("variant id must be positive, got %d", id)
	}
	if name == "" {
		return nil, fmt.Errorf("variant name cannot be empty")
	}
	if unitOfMeasure == "" {
		unitOfMeasure = "pcs"
	}

	return &Variant{
		ID:            id,
		FullCode:      fullCode,
		TypeName:      typeName,
		Name:          name,
		UnitOfMeasure: unitOfMeasure,
	}, nil
}

// DisplayName returns the most specific human-readable name available
func (v Variant) DisplayName() string {
	if v.VariantName != "" {
		return v.VariantName
	}
	if v.Name != "" {
		return v.Name
	}
	return fmt.Sprintf("variant %d", v.ID)
}

// StockLevel is the backend's aggregate stock for one variant
type StockLevel struct {
	Variant           Variant   `json:"variant"`
	TotalQuantity     Quantity  `json:"total_quantity"`
	LowStockThreshold *Quantity `json:"low_stock_threshold,omitempty"`
	IsLowStock        bool      `json:"is_low_stock"`
	IsOutOfStock      bool      `json:"is_out_of_stock"`
}

// InStock reports whether the variant can be requested
func (s StockLevel) InStock() bool {
	return s.TotalQuantity > 0 && s.Variant.ID > 0
}
