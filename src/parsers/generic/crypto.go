package generic

import (
	"strings"

	"github.com/google/uuid"

	"github.com/username/capfolio/backend/src/models"
	"github.com/username/capfolio/backend/src/parsers/tabular"
)

// CryptoParser parses exchange history exports using a caller-supplied
// column mapping. Rows it cannot classify become type "other" with a warning
// rather than being dropped silently.
type CryptoParser struct {
	mapping models.CryptoColumnMapping
	hint    models.DateFormat
}

func NewCryptoParser(mapping models.CryptoColumnMapping, hint models.DateFormat) *CryptoParser {
	return &CryptoParser{mapping: mapping, hint: hint}
}

func (p *CryptoParser) Name() string { return "generic" }

func (p *CryptoParser) CanParse(t tabular.Table) bool { return false }

func (p *CryptoParser) Parse(t tabular.Table) *models.ParseResult {
	headerIdx := t.FindHeaderRow()
	return ParseCryptoRows(t, headerIdx, p.mapping, p.hint, "generic", MapTransactionType)
}

// MapTransactionType normalizes the free-form type vocabulary exchanges use
// into the canonical set. Unrecognized labels map to TypeOther.
func MapTransactionType(raw string) models.TransactionType {
	switch s := strings.ToLower(strings.TrimSpace(raw)); {
	case s == "buy" || s == "purchase" || strings.Contains(s, "buy"):
		return models.TxTypeBuy
	case s == "sell" || strings.Contains(s, "sell"):
		return models.TxTypeSell
	case s == "convert" || s == "trade" || s == "swap" || s == "exchange":
		return models.TxTypeConvert
	case strings.Contains(s, "gift") && strings.Contains(s, "sent"):
		return models.TxTypeGiftSent
	case strings.Contains(s, "gift"):
		return models.TxTypeGiftReceived
	case s == "send" || s == "withdrawal" || s == "withdraw" || strings.Contains(s, "transfer out"):
		return models.TxTypeSend
	case s == "receive" || s == "deposit" || strings.Contains(s, "transfer in"):
		return models.TxTypeReceive
	case strings.Contains(s, "staking") || strings.Contains(s, "interest") ||
		strings.Contains(s, "reward") || strings.Contains(s, "earn") || s == "income":
		return models.TxTypeIncome
	case strings.Contains(s, "airdrop"):
		return models.TxTypeAirdrop
	case strings.Contains(s, "mining") || s == "mined":
		return models.TxTypeMining
	case strings.Contains(s, "fork"):
		return models.TxTypeFork
	default:
		return models.TxTypeOther
	}
}

// ParseCryptoRows converts the rows below headerIdx into canonical
// transactions. mapType lets source parsers plug in their own vocabulary.
func ParseCryptoRows(t tabular.Table, headerIdx int, mapping models.CryptoColumnMapping, hint models.DateFormat, exchange string, mapType func(string) models.TransactionType) *models.ParseResult {
	result := &models.ParseResult{}

	if missing := mapping.MissingRequired(); len(missing) > 0 {
		for _, field := range missing {
			result.Errors = append(result.Errors, models.ParseError{
				Row:     headerIdx + 1,
				Column:  field,
				Message: "required column not found",
			})
		}
		return result
	}
	if mapType == nil {
		mapType = MapTransactionType
	}

	for i := headerIdx + 1; i < len(t); i++ {
		row := t[i]
		if tabular.IsBlankRow(row) || tabular.IsFooterRow(row) {
			continue
		}
		rowNum := i + 1

		timestamp, err := tabular.ParseDate(tabular.Cell(row, mapping[models.FieldDate]), hint)
		if err != nil {
			result.Errors = append(result.Errors, models.ParseError{
				Row: rowNum, Column: models.FieldDate, Message: err.Error(),
			})
			continue
		}

		rawType := tabular.Cell(row, mapping[models.FieldType])
		txType := mapType(rawType)
		if txType == models.TxTypeOther {
			result.AddWarning("row %d: unrecognized transaction type %q, recorded as other", rowNum, rawType)
		}

		asset := strings.ToUpper(tabular.Cell(row, mapping[models.FieldAsset]))
		if asset == "" {
			result.Errors = append(result.Errors, models.ParseError{
				Row: rowNum, Column: models.FieldAsset, Message: "missing asset",
			})
			continue
		}

		quantity, err := tabular.ParseDecimal(tabular.Cell(row, mapping[models.FieldQuantity]))
		if err != nil {
			result.Errors = append(result.Errors, models.ParseError{
				Row: rowNum, Column: models.FieldQuantity, Message: err.Error(),
			})
			continue
		}
		quantity = quantity.Abs()

		tx := models.CanonicalTransaction{
			ID:        uuid.NewString(),
			Timestamp: timestamp,
			Type:      txType,
			Asset:     asset,
			Quantity:  quantity,
			Exchange:  exchange,
			RawRow:    append([]string(nil), row...),
		}

		if idx, ok := mapping[models.FieldPricePerUnit]; ok {
			if price, err := tabular.ParseDecimal(tabular.Cell(row, idx)); err == nil {
				tx.PricePerUnit = price
			}
		}
		if idx, ok := mapping[models.FieldTotalValue]; ok {
			if total, err := tabular.ParseDecimal(tabular.Cell(row, idx)); err == nil {
				tx.TotalValue = total.Abs()
			}
		}
		if idx, ok := mapping[models.FieldFees]; ok {
			if fees, err := tabular.ParseDecimal(tabular.Cell(row, idx)); err == nil {
				tx.Fees = fees.Abs()
			}
		}
		if idx, ok := mapping[models.FieldNotes]; ok {
			tx.Notes = tabular.Cell(row, idx)
		}

		// Derive whichever of price and total the export omits.
		if tx.PricePerUnit.IsZero() && !tx.TotalValue.IsZero() && !tx.Quantity.IsZero() {
			tx.PricePerUnit = tx.TotalValue.Div(tx.Quantity)
		}
		if tx.TotalValue.IsZero() && !tx.PricePerUnit.IsZero() {
			tx.TotalValue = tx.PricePerUnit.Mul(tx.Quantity)
		}

		if txType == models.TxTypeConvert {
			// A single-row convert only names the outgoing side. The
			// engine disposes that leg but cannot open the incoming lot.
			tx.ConvertFromAsset = asset
			tx.ConvertFromQuantity = quantity
			result.AddWarning("row %d: convert row for %s does not name the acquired asset; the disposal is recorded but no acquisition lot can be created", rowNum, asset)
		}

		tx.HashID = tx.ContentHash()
		result.Transactions = append(result.Transactions, tx)
	}

	return result
}
