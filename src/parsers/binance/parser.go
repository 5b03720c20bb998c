// Package binance parses Binance.US transaction report CSV exports. Trades
// carry base/quote asset columns with realized USD values, so one row fully
// describes both legs.
package binance

import (
	"strings"

	"github.com/google/uuid"

	"github.com/username/capfolio/backend/src/models"
	"github.com/username/capfolio/backend/src/parsers/tabular"
)

type Parser struct{}

func NewParser() *Parser { return &Parser{} }

func (p *Parser) Name() string { return "binance" }

func (p *Parser) CanParse(t tabular.Table) bool {
	if t.ContainsMarker("binance") {
		return true
	}
	header := t[t.FindHeaderRow()]
	return tabular.ResolveColumn(header, []string{"primary asset"}) >= 0 &&
		tabular.ResolveColumn(header, []string{"quote asset"}) >= 0
}

func (p *Parser) Parse(t tabular.Table) *models.ParseResult {
	result := &models.ParseResult{}

	headerIdx := t.FindHeaderRow()
	header := t[headerIdx]

	timeIdx := tabular.ResolveColumn(header, []string{"time", "date"})
	categoryIdx := tabular.ResolveColumn(header, []string{"category"})
	operationIdx := tabular.ResolveColumn(header, []string{"operation"})
	primaryIdx := tabular.ResolveColumn(header, []string{"primary asset"})
	// The plain amount headers are substrings of their "... In USD Value"
	// variants, so both need exact-ish resolution.
	primaryAmtIdx := resolveAmount(header, "primary asset")
	primaryUSDIdx := tabular.ResolveColumn(header, []string{"realized amount for primary asset in usd"})
	baseIdx := tabular.ResolveColumn(header, []string{"base asset"})
	baseAmtIdx := resolveAmount(header, "base asset")
	baseUSDIdx := tabular.ResolveColumn(header, []string{"realized amount for base asset in usd"})
	quoteIdx := tabular.ResolveColumn(header, []string{"quote asset"})
	quoteAmtIdx := resolveAmount(header, "quote asset")
	quoteUSDIdx := tabular.ResolveColumn(header, []string{"realized amount for quote asset in usd"})
	feeUSDIdx := tabular.ResolveColumn(header, []string{"realized amount for fee asset in usd"})

	mapping := models.CryptoColumnMapping{
		models.FieldDate:     timeIdx,
		models.FieldType:     categoryIdx,
		models.FieldAsset:    primaryIdx,
		models.FieldQuantity: primaryAmtIdx,
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

		ts, err := tabular.ParseDate(tabular.Cell(row, timeIdx), models.DateFormatYMD)
		if err != nil {
			result.AddError(rowNum, models.FieldDate, "%s", err.Error())
			continue
		}

		category := strings.ToLower(tabular.Cell(row, categoryIdx))
		operation := strings.ToLower(tabular.Cell(row, operationIdx))
		feesUSD, _ := tabular.ParseDecimal(tabular.Cell(row, feeUSDIdx))

		tx := models.CanonicalTransaction{
			ID:        uuid.NewString(),
			Timestamp: ts,
			Exchange:  p.Name(),
			Fees:      feesUSD.Abs(),
			RawRow:    append([]string(nil), row...),
		}

		switch category {
		case "buy", "sell", "spot trading", "convert", "quick buy", "quick sell":
			base := strings.ToUpper(tabular.Cell(row, baseIdx))
			quote := strings.ToUpper(tabular.Cell(row, quoteIdx))
			baseAmt, _ := tabular.ParseDecimal(tabular.Cell(row, baseAmtIdx))
			quoteAmt, _ := tabular.ParseDecimal(tabular.Cell(row, quoteAmtIdx))
			quoteUSD, _ := tabular.ParseDecimal(tabular.Cell(row, quoteUSDIdx))
			baseUSD, _ := tabular.ParseDecimal(tabular.Cell(row, baseUSDIdx))
			if base == "" || quote == "" {
				result.AddError(rowNum, models.FieldAsset, "trade row missing base or quote asset")
				continue
			}

			isSell := strings.Contains(category, "sell") || operation == "sell"
			switch {
			case quote == "USD" && !isSell:
				tx.Type = models.TxTypeBuy
				tx.Asset = base
				tx.Quantity = baseAmt.Abs()
				tx.TotalValue = quoteAmt.Abs()
			case quote == "USD":
				tx.Type = models.TxTypeSell
				tx.Asset = base
				tx.Quantity = baseAmt.Abs()
				tx.TotalValue = quoteAmt.Abs()
			case isSell:
				// Sold base for a non-USD quote: crypto-to-crypto.
				tx.Type = models.TxTypeConvert
				tx.Asset = base
				tx.Quantity = baseAmt.Abs()
				tx.TotalValue = baseUSD.Abs()
				tx.ConvertFromAsset = base
				tx.ConvertFromQuantity = baseAmt.Abs()
				tx.ConvertToAsset = quote
				tx.ConvertToQuantity = quoteAmt.Abs()
			default:
				// Bought base with a non-USD quote: dispose the quote.
				tx.Type = models.TxTypeConvert
				tx.Asset = quote
				tx.Quantity = quoteAmt.Abs()
				tx.TotalValue = quoteUSD.Abs()
				tx.ConvertFromAsset = quote
				tx.ConvertFromQuantity = quoteAmt.Abs()
				tx.ConvertToAsset = base
				tx.ConvertToQuantity = baseAmt.Abs()
			}

		case "deposit", "withdrawal", "distribution", "staking rewards", "staking", "airdrop", "other":
			asset := strings.ToUpper(tabular.Cell(row, primaryIdx))
			amount, err := tabular.ParseDecimal(tabular.Cell(row, primaryAmtIdx))
			if err != nil {
				result.AddError(rowNum, models.FieldQuantity, "%s", err.Error())
				continue
			}
			usd, _ := tabular.ParseDecimal(tabular.Cell(row, primaryUSDIdx))
			if asset == "" {
				result.AddError(rowNum, models.FieldAsset, "missing primary asset")
				continue
			}
			if asset == "USD" {
				// Fiat funding movements are not crypto events.
				continue
			}

			tx.Asset = asset
			tx.Quantity = amount.Abs()
			tx.TotalValue = usd.Abs()
			switch category {
			case "deposit":
				tx.Type = models.TxTypeReceive
			case "withdrawal":
				tx.Type = models.TxTypeSend
			case "airdrop":
				tx.Type = models.TxTypeAirdrop
			case "distribution", "staking rewards", "staking":
				tx.Type = models.TxTypeIncome
			default:
				tx.Type = models.TxTypeOther
				result.AddWarning("row %d: unrecognized operation %q in category other, recorded as other", rowNum, operation)
			}

		default:
			result.AddWarning("row %d: unrecognized category %q, row skipped", rowNum, category)
			continue
		}

		if !tx.Quantity.IsZero() && !tx.TotalValue.IsZero() {
			tx.PricePerUnit = tx.TotalValue.Div(tx.Quantity)
		}
		tx.HashID = tx.ContentHash()
		result.Transactions = append(result.Transactions, tx)
	}

	return result
}

// resolveAmount finds the plain "Realized Amount For <asset>" column, skipping
// the "... In USD Value" variant that contains it as a substring.
func resolveAmount(header []string, asset string) int {
	want := "realized amount for " + asset
	for i, cell := range header {
		lower := strings.ToLower(cell)
		if strings.Contains(lower, want) && !strings.Contains(lower, "usd value") {
			return i
		}
	}
	return -1
}
