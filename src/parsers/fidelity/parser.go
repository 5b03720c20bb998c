// Package fidelity parses Fidelity 1099-B realized gain/loss CSV exports.
package fidelity

import (
	"github.com/username/capfolio/backend/src/models"
	"github.com/username/capfolio/backend/src/parsers/generic"
	"github.com/username/capfolio/backend/src/parsers/tabular"
)

type Parser struct{}

func NewParser() *Parser { return &Parser{} }

func (p *Parser) Name() string { return "fidelity" }

// CanParse recognizes the export either by the Fidelity name in the preamble
// or by the characteristic pairing of "Security Description" with the wash
// sale column in the header.
func (p *Parser) CanParse(t tabular.Table) bool {
	if t.ContainsMarker("fidelity") {
		return true
	}
	header := t[t.FindHeaderRow()]
	return tabular.ResolveColumn(header, []string{"security description"}) >= 0 &&
		tabular.ResolveColumn(header, []string{"wash sale loss disallowed"}) >= 0
}

func (p *Parser) Parse(t tabular.Table) *models.EquityParseResult {
	headerIdx := t.FindHeaderRow()
	header := t[headerIdx]

	mapping := models.ColumnMapping{
		models.FieldSymbol:       tabular.ResolveColumn(header, tabular.SymbolAliases),
		models.FieldDateAcquired: tabular.ResolveColumn(header, tabular.DateAcquiredAliases),
		models.FieldDateSold:     tabular.ResolveColumn(header, tabular.DateSoldAliases),
		models.FieldProceeds:     tabular.ResolveColumn(header, tabular.ProceedsAliases),
		models.FieldCostBasis:    tabular.ResolveColumn(header, tabular.CostBasisAliases),
	}
	setOptional(mapping, models.FieldDescription, tabular.ResolveColumn(header, tabular.DescriptionAliases))
	setOptional(mapping, models.FieldQuantity, tabular.ResolveColumn(header, tabular.QuantityAliases))
	setOptional(mapping, models.FieldWashSale, tabular.ResolveColumn(header, tabular.WashSaleAliases))
	setOptional(mapping, models.FieldCovered, tabular.ResolveColumn(header, tabular.CoveredAliases))

	// Fidelity issues 1099-B forms, so rows without an explicit covered
	// column default to covered.
	return generic.ParseEquityRows(t, headerIdx, mapping, models.DateFormatMDY, p.Name(), true)
}

func setOptional(m models.ColumnMapping, field string, idx int) {
	if idx >= 0 {
		m[field] = idx
	}
}
