package tabular

import "strings"

// Alias lists for resolving logical fields against header cells. Order
// matters: the first alias that matches any header cell wins, so the more
// specific spellings come first.
var (
	SymbolAliases       = []string{"symbol", "ticker", "sym/cusip", "cusip"}
	DescriptionAliases  = []string{"security description", "description", "name of asset", "name", "product"}
	DateAcquiredAliases = []string{"date acquired", "acquired", "opened date", "open date", "purchase date", "buy date"}
	DateSoldAliases     = []string{"date sold", "sold", "closed date", "close date", "sale date", "disposed"}
	ProceedsAliases     = []string{"total proceeds", "proceeds", "sales price", "sale amount", "gross amount"}
	CostBasisAliases    = []string{"cost or other basis", "cost basis", "adjusted cost", "basis", "cost"}
	QuantityAliases     = []string{"quantity transacted", "quantity", "shares", "qty", "no. of units", "units"}
	WashSaleAliases     = []string{"wash sale loss disallowed", "wash sale", "disallowed loss", "disallowed"}
	CoveredAliases      = []string{"basis reported to irs", "reported to irs", "covered", "noncovered"}
	AdjustmentAliases   = []string{"adjustment code", "code", "adjustment"}

	DateAliases      = []string{"timestamp", "date", "time"}
	TypeAliases      = []string{"transaction type", "type", "operation", "side", "category"}
	AssetAliases     = []string{"asset", "currency", "coin", "commodity", "base asset"}
	PriceAliases     = []string{"spot price at transaction", "price per unit", "spot price", "price", "rate"}
	TotalValueAliases = []string{"total (inclusive of fees", "usd value", "total value", "subtotal", "total"}
	FeeAliases       = []string{"fees and/or spread", "fee amount", "fees", "fee", "commission"}
	NotesAliases     = []string{"notes", "comment", "memo"}
)

// identityAliases and dateAliases drive header-row detection: a header must
// name something identifying the asset and something carrying a date.
var (
	identityAliases = []string{"symbol", "asset", "description", "currency", "coin", "security", "ticker", "name"}
	dateAliases     = []string{"date", "time", "sold", "acquired"}
)

// ResolveColumn matches aliases against header cells case-insensitively and
// returns the winning cell index, or -1 when no alias matches. Whole-cell
// matches win over substring matches: Coinbase's "Total (inclusive of fees
// and/or spread)" column must not swallow the fee alias that names the real
// "Fees and/or Spread" column further right. Within each pass, aliases are
// tried in order, so the more specific spellings come first.
func ResolveColumn(header []string, aliases []string) int {
	for _, alias := range aliases {
		for i, cell := range header {
			if strings.EqualFold(strings.TrimSpace(cell), alias) {
				return i
			}
		}
	}
	for _, alias := range aliases {
		for i, cell := range header {
			if strings.Contains(strings.ToLower(cell), alias) {
				return i
			}
		}
	}
	return -1
}

// Cell returns the trimmed cell at idx, or "" when the row is too short or
// the index is unmapped. Ragged broker rows make this the safe accessor.
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
