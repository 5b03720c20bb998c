// Package coinbase parses Coinbase transaction history CSV exports.
package coinbase

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/username/capfolio/backend/src/models"
	"github.com/username/capfolio/backend/src/parsers/tabular"
)

type Parser struct{}

func NewParser() *Parser { return &Parser{} }

func (p *Parser) Name() string { return "coinbase" }

// convertNotesRegex extracts both legs of a conversion from the Notes cell,
// e.g. "Converted 0.5 ETH to 1,000.25 USDC".
var convertNotesRegex = regexp.MustCompile(`(?i)converted\s+([\d,.]+)\s+(\S+)\s+to\s+([\d,.]+)\s+(\S+)`)

func (p *Parser) CanParse(t tabular.Table) bool {
	if t.ContainsMarker("coinbase") {
		return true
	}
	header := t[t.FindHeaderRow()]
	return tabular.ResolveColumn(header, []string{"quantity transacted"}) >= 0 &&
		tabular.ResolveColumn(header, []string{"spot price"}) >= 0
}

func (p *Parser) Parse(t tabular.Table) *models.ParseResult {
	result := &models.ParseResult{}

	headerIdx := t.FindHeaderRow()
	header := t[headerIdx]

	dateIdx := tabular.ResolveColumn(header, tabular.DateAliases)
	typeIdx := tabular.ResolveColumn(header, tabular.TypeAliases)
	assetIdx := tabular.ResolveColumn(header, tabular.AssetAliases)
	qtyIdx := tabular.ResolveColumn(header, tabular.QuantityAliases)
	priceIdx := tabular.ResolveColumn(header, tabular.PriceAliases)
	subtotalIdx := tabular.ResolveColumn(header, []string{"subtotal"})
	totalIdx := tabular.ResolveColumn(header, []string{"total (inclusive of fees", "total"})
	feesIdx := tabular.ResolveColumn(header, tabular.FeeAliases)
	notesIdx := tabular.ResolveColumn(header, tabular.NotesAliases)

	mapping := models.CryptoColumnMapping{
		models.FieldDate:     dateIdx,
		models.FieldType:     typeIdx,
		models.FieldAsset:    assetIdx,
		models.FieldQuantity: qtyIdx,
	}
	if missing := mapping.MissingRequired(); len(missing) > 0 {
		for _, field := range missing {
			result.Errors = append(result.Errors, models.ParseError{
				Row: headerIdx + 1, Column: field, Message: "required column not found",
			})
		}
		return result
	}

	for i := headerIdx + 1; i < len(t); i++ {
		row := t[i]
		if tabular.IsBlankRow(row) || tabular.IsFooterRow(row) {
			continue
		}
		rowNum := i + 1

		timestamp, err := tabular.ParseDate(tabular.Cell(row, dateIdx), models.DateFormatISO)
		if err != nil {
			result.AddError(rowNum, models.FieldDate, "%s", err.Error())
			continue
		}
		asset := strings.ToUpper(tabular.Cell(row, assetIdx))
		if asset == "" {
			result.AddError(rowNum, models.FieldAsset, "missing asset")
			continue
		}
		quantity, err := tabular.ParseDecimal(tabular.Cell(row, qtyIdx))
		if err != nil {
			result.AddError(rowNum, models.FieldQuantity, "%s", err.Error())
			continue
		}

		tx := models.CanonicalTransaction{
			ID:        uuid.NewString(),
			Timestamp: timestamp,
			Type:      mapType(tabular.Cell(row, typeIdx)),
			Asset:     asset,
			Quantity:  quantity.Abs(),
			Exchange:  p.Name(),
			Notes:     tabular.Cell(row, notesIdx),
			RawRow:    append([]string(nil), row...),
		}

		if price, err := tabular.ParseDecimal(tabular.Cell(row, priceIdx)); err == nil {
			tx.PricePerUnit = price
		}
		if fees, err := tabular.ParseDecimal(tabular.Cell(row, feesIdx)); err == nil {
			tx.Fees = fees.Abs()
		}
		// Prefer the subtotal (value before fees); fall back to the total.
		if sub, err := tabular.ParseDecimal(tabular.Cell(row, subtotalIdx)); err == nil && !sub.IsZero() {
			tx.TotalValue = sub.Abs()
		} else if total, err := tabular.ParseDecimal(tabular.Cell(row, totalIdx)); err == nil {
			tx.TotalValue = total.Abs()
		}
		if tx.TotalValue.IsZero() && !tx.PricePerUnit.IsZero() {
			tx.TotalValue = tx.PricePerUnit.Mul(tx.Quantity)
		}

		if tx.Type == models.TxTypeOther {
			result.AddWarning("row %d: unrecognized transaction type %q, recorded as other", rowNum, tabular.Cell(row, typeIdx))
		}

		if tx.Type == models.TxTypeConvert {
			if !p.fillConvertLegs(&tx) {
				result.AddWarning("row %d: convert notes %q not understood; the %s disposal is recorded but no acquisition lot can be created", rowNum, tx.Notes, asset)
				tx.ConvertFromAsset = asset
				tx.ConvertFromQuantity = tx.Quantity
			}
		}

		tx.HashID = tx.ContentHash()
		result.Transactions = append(result.Transactions, tx)
	}

	return result
}

// fillConvertLegs parses both legs out of the Notes cell. Returns false when
// the notes do not carry the expected sentence.
func (p *Parser) fillConvertLegs(tx *models.CanonicalTransaction) bool {
	m := convertNotesRegex.FindStringSubmatch(tx.Notes)
	if m == nil {
		return false
	}
	fromQty, err := tabular.ParseDecimal(m[1])
	if err != nil {
		return false
	}
	toQty, err := tabular.ParseDecimal(m[3])
	if err != nil {
		return false
	}
	tx.ConvertFromAsset = strings.ToUpper(m[2])
	tx.ConvertFromQuantity = fromQty
	tx.ConvertToAsset = strings.ToUpper(m[4])
	tx.ConvertToQuantity = toQty
	return true
}

func mapType(raw string) models.TransactionType {
	switch s := strings.ToLower(strings.TrimSpace(raw)); {
	case s == "buy" || s == "advanced trade buy":
		return models.TxTypeBuy
	case s == "sell" || s == "advanced trade sell":
		return models.TxTypeSell
	case s == "convert":
		return models.TxTypeConvert
	case s == "send":
		return models.TxTypeSend
	case s == "receive":
		return models.TxTypeReceive
	case strings.Contains(s, "staking") || strings.Contains(s, "earn") ||
		strings.Contains(s, "reward") || strings.Contains(s, "interest"):
		return models.TxTypeIncome
	case strings.Contains(s, "airdrop"):
		return models.TxTypeAirdrop
	default:
		return models.TxTypeOther
	}
}
