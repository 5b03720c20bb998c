// The generic parsers are the fallback for exports no source heuristic
// recognizes: the caller supplies the column mapping explicitly. The row
// builders here are also the common path the broker parsers delegate to once
// they have resolved their own columns.
package generic

import (
	"fmt"

	"github.com/username/capfolio/backend/src/models"
	"github.com/username/capfolio/backend/src/parsers/tabular"
	"github.com/username/capfolio/backend/src/processors"
)

// EquityParser parses equity disposals using a caller-supplied column
// mapping.
type EquityParser struct {
	mapping models.ColumnMapping
	hint    models.DateFormat
}

func NewEquityParser(mapping models.ColumnMapping, hint models.DateFormat) *EquityParser {
	return &EquityParser{mapping: mapping, hint: hint}
}

func (p *EquityParser) Name() string { return "generic" }

// CanParse is always false: the generic parser is never auto-detected, the
// dispatcher falls back to it explicitly.
func (p *EquityParser) CanParse(t tabular.Table) bool { return false }

func (p *EquityParser) Parse(t tabular.Table) *models.EquityParseResult {
	headerIdx := t.FindHeaderRow()
	return ParseEquityRows(t, headerIdx, p.mapping, p.hint, "generic", false)
}

// ParseEquityRows converts the rows below headerIdx into reportable
// transactions using the given mapping. Missing required fields abort the
// whole parse with one error per field referencing the header row; anything
// wrong inside a single row produces one error for that row only and the loop
// continues.
func ParseEquityRows(t tabular.Table, headerIdx int, mapping models.ColumnMapping, hint models.DateFormat, source string, defaultCovered bool) *models.EquityParseResult {
	result := &models.EquityParseResult{}

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

	for i := headerIdx + 1; i < len(t); i++ {
		row := t[i]
		if tabular.IsBlankRow(row) || tabular.IsFooterRow(row) {
			continue
		}
		rowNum := i + 1

		symbol := tabular.Cell(row, mapping[models.FieldSymbol])
		if symbol == "" {
			result.Errors = append(result.Errors, models.ParseError{
				Row: rowNum, Column: models.FieldSymbol, Message: "missing symbol",
			})
			continue
		}

		dateSold, err := tabular.ParseDate(tabular.Cell(row, mapping[models.FieldDateSold]), hint)
		if err != nil {
			result.Errors = append(result.Errors, models.ParseError{
				Row: rowNum, Column: models.FieldDateSold, Message: err.Error(),
			})
			continue
		}

		acquiredCell := tabular.Cell(row, mapping[models.FieldDateAcquired])
		dateAcquired, estimated, err := tabular.ParseAcquiredDate(acquiredCell, dateSold, hint)
		if err != nil {
			result.Errors = append(result.Errors, models.ParseError{
				Row: rowNum, Column: models.FieldDateAcquired, Message: err.Error(),
			})
			continue
		}
		if estimated {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"row %d: acquisition date %q estimated as %s; verify the actual purchase date for %s",
				rowNum, acquiredCell, dateAcquired.Format("2006-01-02"), symbol))
		}

		proceeds, err := tabular.ParseDecimal(tabular.Cell(row, mapping[models.FieldProceeds]))
		if err != nil {
			result.Errors = append(result.Errors, models.ParseError{
				Row: rowNum, Column: models.FieldProceeds, Message: err.Error(),
			})
			continue
		}
		costBasis, err := tabular.ParseDecimal(tabular.Cell(row, mapping[models.FieldCostBasis]))
		if err != nil {
			result.Errors = append(result.Errors, models.ParseError{
				Row: rowNum, Column: models.FieldCostBasis, Message: err.Error(),
			})
			continue
		}

		tx := models.ReportableTransaction{
			Symbol:                symbol,
			DateAcquired:          dateAcquired,
			DateSold:              dateSold,
			Proceeds:              proceeds,
			CostBasis:             costBasis,
			GainLoss:              proceeds.Sub(costBasis),
			IsShortTerm:           processors.IsShortTerm(dateAcquired, dateSold),
			IsCovered:             defaultCovered,
			AcquiredDateEstimated: estimated,
			Source:                source,
		}

		if idx, ok := mapping[models.FieldDescription]; ok {
			tx.Description = tabular.Cell(row, idx)
		}
		if idx, ok := mapping[models.FieldQuantity]; ok {
			if qty, err := tabular.ParseDecimal(tabular.Cell(row, idx)); err == nil {
				tx.Quantity = qty
			}
		}
		if idx, ok := mapping[models.FieldCovered]; ok {
			if cell := tabular.Cell(row, idx); cell != "" {
				tx.IsCovered = tabular.ParseBool(cell)
			}
		}
		if idx, ok := mapping[models.FieldWashSale]; ok {
			if wash, err := tabular.ParseDecimal(tabular.Cell(row, idx)); err == nil && !wash.IsZero() {
				tx.WashSaleDisallowed = wash.Abs()
				tx.AdjustmentCode = "W"
				tx.AdjustmentAmount = wash.Abs()
				result.Warnings = append(result.Warnings, fmt.Sprintf(
					"row %d: broker reported a wash sale loss disallowed of %s for %s; the disallowed amount is carried through, not recomputed",
					rowNum, wash.Abs(), symbol))
			}
		}

		rt := tx
		rt.HashID = equityHash(&rt, row)
		result.Transactions = append(result.Transactions, rt)
	}

	return result
}
