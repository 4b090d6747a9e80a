package testing

import (
	"fmt"
	"time"

	"github.com/vsinha/requisition/pkg/domain/entities"
)

// SampleToken is the token the fixtures and the fake server issue
const SampleToken = "9944b09199c62bcf9418ad846dd0e4bbdfc6ee4b"

// SamplePassword is accepted for every fixture user
const SamplePassword = "rahasia123"

// SampleRequester returns a requester profile
func SampleRequester() entities.UserProfile {
	return entities.UserProfile{
		ID:             11,
		Email:          "peminta@example.org",
		FirstName:      "Siti",
		LastName:       "Aminah",
		FullName:       "Siti Aminah",
		Role:           entities.RoleRequester,
		RoleDisplay:    "Peminta",
		DepartmentCode: "KEU",
		IsActive:       true,
	}
}

// SampleSupervisor returns the requester's supervisor
func SampleSupervisor() entities.BasicUser {
	return entities.BasicUser{
		ID:             12,
		Email:          "atasan@example.org",
		FirstName:      "Budi",
		LastName:       "Santoso",
		DepartmentCode: "KEU",
	}
}

// BuildStationeryCatalog returns stock levels for a small office-supplies
// catalog. Variant 3 is out of stock and variant 2 is running low.
func BuildStationeryCatalog() []entities.StockLevel {
	threshold := entities.Quantity(10)
	return []entities.StockLevel{
		{
			Variant: entities.Variant{
				ID: 1, FullCode: "1010301001001", SpecificCode: "001", TypeName: "Kertas",
				Name: "Kertas HVS", VariantName: "A4 80gsm", UnitOfMeasure: "rim",
			},
			TotalQuantity: 120,
		},
		{
			Variant: entities.Variant{
				ID: 2, FullCode: "1010302002001", SpecificCode: "001", TypeName: "Alat Tulis",
				Name: "Pulpen", VariantName: "Gel Hitam 0.5", UnitOfMeasure: "pcs",
			},
			TotalQuantity:     6,
			LowStockThreshold: &threshold,
			IsLowStock:        true,
		},
		{
			Variant: entities.Variant{
				ID: 3, FullCode: "1010303003001", SpecificCode: "001", TypeName: "Alat Tulis",
				Name: "Spidol", VariantName: "Whiteboard Biru", UnitOfMeasure: "pcs",
			},
			TotalQuantity: 0,
			IsOutOfStock:  true,
		},
		{
			Variant: entities.Variant{
				ID: 4, FullCode: "1010304004001", SpecificCode: "001", TypeName: "Map",
				Name: "Map Plastik", UnitOfMeasure: "pcs",
			},
			TotalQuantity: 45,
		},
	}
}

// CatalogVariant returns the catalog variant with id, or a zero Variant
func CatalogVariant(id entities.VariantID) entities.Variant {
	for _, level := range BuildStationeryCatalog() {
		if level.Variant.ID == id {
			return level.Variant
		}
	}
	return entities.Variant{}
}

// SampleRecord builds a request record in status with one line per variant
func SampleRecord(id entities.RequestID, status entities.RequestStatus, variants ...entities.VariantID) entities.RequestRecord {
	created := time.Date(2025, 2, 3, 9, 30, 0, 0, time.UTC)
	requester := SampleRequester()
	record := entities.RequestRecord{
		ID:            id,
		Requester:     &entities.BasicUser{ID: requester.ID, Email: requester.Email, FirstName: requester.FirstName, LastName: requester.LastName, DepartmentCode: requester.DepartmentCode},
		Status:        status,
		StatusDisplay: string(status),
		CreatedAt:     created,
		Items:         make([]entities.RequestItem, 0, len(variants)),
	}
	if status != entities.StatusDraft {
		submitted := created.Add(time.Hour)
		number := fmt.Sprintf("REQ/KEU/2025/%04d", id)
		record.SubmittedAt = &submitted
		record.RequestNumber = &number
	}
	for i, variantID := range variants {
		record.Items = append(record.Items, entities.RequestItem{
			ID:                int64(i + 1),
			Variant:           CatalogVariant(variantID),
			QuantityRequested: entities.Quantity(i + 1),
		})
	}
	return record
}
