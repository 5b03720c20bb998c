package models

// Logical field names used by the generic parsers' column mappings.
const (
	FieldSymbol       = "symbol"
	FieldDescription  = "description"
	FieldDateAcquired = "date_acquired"
	FieldDateSold     = "date_sold"
	FieldProceeds     = "proceeds"
	FieldCostBasis    = "cost_basis"
	FieldQuantity     = "quantity"
	FieldWashSale     = "wash_sale"
	FieldCovered      = "covered"

	FieldDate         = "date"
	FieldType         = "type"
	FieldAsset        = "asset"
	FieldPricePerUnit = "price_per_unit"
	FieldTotalValue   = "total_value"
	FieldFees         = "fees"
	FieldNotes        = "notes"
)

// ColumnMapping maps logical equity field names to zero-based column indexes.
// A missing key means the field is unmapped.
type ColumnMapping map[string]int

// requiredEquityFields must all be mapped before the generic equity parser
// will touch a single row.
var requiredEquityFields = []string{
	FieldSymbol,
	FieldDateAcquired,
	FieldDateSold,
	FieldProceeds,
	FieldCostBasis,
}

// MissingRequired returns the required equity fields the mapping leaves
// unmapped, in a fixed order.
func (m ColumnMapping) MissingRequired() []string {
	var missing []string
	for _, f := range requiredEquityFields {
		if idx, ok := m[f]; !ok || idx < 0 {
			missing = append(missing, f)
		}
	}
	return missing
}

// CryptoColumnMapping maps logical crypto field names to zero-based column
// indexes.
type CryptoColumnMapping map[string]int

var requiredCryptoFields = []string{
	FieldDate,
	FieldType,
	FieldAsset,
	FieldQuantity,
}

// MissingRequired returns the required crypto fields the mapping leaves
// unmapped, in a fixed order.
func (m CryptoColumnMapping) MissingRequired() []string {
	var missing []string
	for _, f := range requiredCryptoFields {
		if idx, ok := m[f]; !ok || idx < 0 {
			missing = append(missing, f)
		}
	}
	return missing
}

// DateFormat is a caller-supplied hint for ambiguous numeric dates in generic
// imports.
type DateFormat string

const (
	DateFormatMDY DateFormat = "MM/DD/YYYY"
	DateFormatDMY DateFormat = "DD/MM/YYYY"
	DateFormatYMD DateFormat = "YYYY-MM-DD"
	DateFormatISO DateFormat = "ISO"
)
