package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/vsinha/requisition/pkg/domain/entities"
)

// cartHeader is the required first row of a cart import file
var cartHeader = []string{"variant_id", "quantity"}

// CartRow is one data row of a cart import file. Row is the 1-based record
// number, header included and comment lines skipped.
type CartRow struct {
	Row       int
	VariantID entities.VariantID
	Quantity  entities.Quantity
}

// Loader reads bulk cart imports from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadCart reads cart rows from a CSV file
func (l *Loader) LoadCart(filename string) ([]CartRow, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open cart file %s: %w", filename, err)
	}
	defer file.Close()

	return l.ReadCart(file)
}

// ReadCart parses cart rows. Lines starting with # are ignored.
func (l *Loader) ReadCart(r io.Reader) ([]CartRow, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read cart CSV: %w", err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("cart CSV must have header and at least one data row")
	}

	header := records[0]
	if !validateHeader(header, cartHeader) {
		return nil, fmt.Errorf("cart CSV header mismatch. Expected: %v, Got: %v", cartHeader, header)
	}

	rows := make([]CartRow, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) != len(cartHeader) {
			return nil, fmt.Errorf("cart CSV row %d: expected %d columns, got %d", i+2, len(cartHeader), len(record))
		}

		row, err := parseCartRow(record)
		if err != nil {
			return nil, fmt.Errorf("cart CSV row %d: %w", i+2, err)
		}
		row.Row = i + 2
		rows = append(rows, row)
	}

	return rows, nil
}

func parseCartRow(record []string) (CartRow, error) {
	variantID, err := strconv.ParseInt(strings.TrimSpace(record[0]), 10, 64)
	if err != nil || variantID <= 0 {
		return CartRow{}, fmt.Errorf("invalid variant_id: %q", record[0])
	}

	quantity, err := strconv.ParseInt(strings.TrimSpace(record[1]), 10, 64)
	if err != nil {
		return CartRow{}, fmt.Errorf("invalid quantity: %q", record[1])
	}
	if quantity <= 0 {
		return CartRow{}, fmt.Errorf("quantity must be positive, got %d", quantity)
	}
	if entities.Quantity(quantity) > entities.MaxQuantity {
		return CartRow{}, fmt.Errorf("quantity %d exceeds the limit of %d", quantity, entities.MaxQuantity)
	}

	return CartRow{
		VariantID: entities.VariantID(variantID),
		Quantity:  entities.Quantity(quantity),
	}, nil
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}
	for i, col := range actual {
		if !strings.EqualFold(strings.TrimSpace(col), expected[i]) {
			return false
		}
	}
	return true
}
