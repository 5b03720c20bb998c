package generic

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/capfolio/backend/src/models"
	"github.com/username/capfolio/backend/src/parsers/tabular"
)

func mustTable(t *testing.T, content string) tabular.Table {
	t.Helper()
	table, err := tabular.ReadTable(content)
	require.NoError(t, err)
	return table
}

func equityMapping() models.ColumnMapping {
	return models.ColumnMapping{
		models.FieldSymbol:       0,
		models.FieldDateAcquired: 1,
		models.FieldDateSold:     2,
		models.FieldProceeds:     3,
		models.FieldCostBasis:    4,
	}
}

func TestParseEquityRowsBasic(t *testing.T) {
	table := mustTable(t, strings.Join([]string{
		"Symbol,Date Acquired,Date Sold,Proceeds,Cost Basis",
		"AAPL,01/15/2022,06/20/2023,\"1,500.00\",\"1,000.00\"",
		"MSFT,03/01/2023,06/21/2023,800.00,900.00",
		"",
	}, "\n"))

	result := ParseEquityRows(table, 0, equityMapping(), models.DateFormatMDY, "generic", false)

	require.Empty(t, result.Errors)
	require.Len(t, result.Transactions, 2)

	aapl := result.Transactions[0]
	assert.Equal(t, "AAPL", aapl.Symbol)
	assert.Equal(t, "2022-01-15", aapl.DateAcquired.Format("2006-01-02"))
	assert.Equal(t, "2023-06-20", aapl.DateSold.Format("2006-01-02"))
	assert.True(t, aapl.GainLoss.Equal(decimal.RequireFromString("500")))
	assert.False(t, aapl.IsShortTerm)
	assert.Equal(t, "generic", aapl.Source)
	assert.NotEmpty(t, aapl.HashID)

	msft := result.Transactions[1]
	assert.True(t, msft.GainLoss.Equal(decimal.RequireFromString("-100")))
	assert.True(t, msft.IsShortTerm)
}

func TestParseEquityRowsMissingRequiredColumnsAbort(t *testing.T) {
	table := mustTable(t, "Symbol,Proceeds\nAAPL,100\n")
	mapping := models.ColumnMapping{
		models.FieldSymbol:   0,
		models.FieldProceeds: 1,
	}

	result := ParseEquityRows(table, 0, mapping, models.DateFormatMDY, "generic", false)

	assert.Empty(t, result.Transactions)
	require.Len(t, result.Errors, 3)
	columns := []string{result.Errors[0].Column, result.Errors[1].Column, result.Errors[2].Column}
	assert.ElementsMatch(t, []string{models.FieldDateAcquired, models.FieldDateSold, models.FieldCostBasis}, columns)
	for _, e := range result.Errors {
		assert.Equal(t, 1, e.Row)
		assert.Contains(t, e.Message, "required column not found")
	}
}

func TestParseEquityRowsBadRowDoesNotBlockOthers(t *testing.T) {
	table := mustTable(t, strings.Join([]string{
		"Symbol,Date Acquired,Date Sold,Proceeds,Cost Basis",
		"AAPL,01/15/2022,06/20/2023,1500,1000",
		",01/15/2022,06/20/2023,1500,1000",
		"TSLA,01/15/2022,not a date,1500,1000",
		"NVDA,02/01/2023,08/01/2023,2000,garbage",
		"AMD,03/01/2023,09/01/2023,500,400",
	}, "\n"))

	result := ParseEquityRows(table, 0, equityMapping(), models.DateFormatMDY, "generic", false)

	require.Len(t, result.Transactions, 2)
	assert.Equal(t, "AAPL", result.Transactions[0].Symbol)
	assert.Equal(t, "AMD", result.Transactions[1].Symbol)

	require.Len(t, result.Errors, 3)
	assert.Equal(t, 3, result.Errors[0].Row)
	assert.Equal(t, models.FieldSymbol, result.Errors[0].Column)
	assert.Equal(t, 4, result.Errors[1].Row)
	assert.Equal(t, models.FieldDateSold, result.Errors[1].Column)
	assert.Equal(t, 5, result.Errors[2].Row)
	assert.Equal(t, models.FieldCostBasis, result.Errors[2].Column)
}

func TestParseEquityRowsVariousAcquiredDateEstimatedWithWarning(t *testing.T) {
	table := mustTable(t, strings.Join([]string{
		"Symbol,Date Acquired,Date Sold,Proceeds,Cost Basis",
		"VTI,Various,06/20/2023,5000,4000",
	}, "\n"))

	result := ParseEquityRows(table, 0, equityMapping(), models.DateFormatMDY, "generic", false)

	require.Len(t, result.Transactions, 1)
	tx := result.Transactions[0]
	assert.True(t, tx.AcquiredDateEstimated)
	assert.False(t, tx.IsShortTerm)
	assert.True(t, tx.DateAcquired.Before(tx.DateSold))
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "estimated")
}

func TestParseEquityRowsWashSaleCarriedThrough(t *testing.T) {
	table := mustTable(t, strings.Join([]string{
		"Symbol,Date Acquired,Date Sold,Proceeds,Cost Basis,Wash Sale Loss Disallowed",
		"AAPL,01/15/2023,02/20/2023,900,1000,100.00",
		"MSFT,01/15/2023,02/20/2023,900,1000,0.00",
	}, "\n"))

	mapping := equityMapping()
	mapping[models.FieldWashSale] = 5

	result := ParseEquityRows(table, 0, mapping, models.DateFormatMDY, "generic", false)

	require.Len(t, result.Transactions, 2)
	aapl := result.Transactions[0]
	assert.True(t, aapl.WashSaleDisallowed.Equal(decimal.RequireFromString("100")))
	assert.Equal(t, "W", aapl.AdjustmentCode)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "wash sale")

	msft := result.Transactions[1]
	assert.True(t, msft.WashSaleDisallowed.IsZero())
	assert.Empty(t, msft.AdjustmentCode)
}

func TestParseEquityRowsCoveredColumnOverridesDefault(t *testing.T) {
	table := mustTable(t, strings.Join([]string{
		"Symbol,Date Acquired,Date Sold,Proceeds,Cost Basis,Basis Reported to IRS",
		"AAPL,01/15/2023,02/20/2023,900,1000,Yes",
		"MSFT,01/15/2023,02/20/2023,900,1000,No",
		"NVDA,01/15/2023,02/20/2023,900,1000,",
	}, "\n"))

	mapping := equityMapping()
	mapping[models.FieldCovered] = 5

	result := ParseEquityRows(table, 0, mapping, models.DateFormatMDY, "broker", true)

	require.Len(t, result.Transactions, 3)
	assert.True(t, result.Transactions[0].IsCovered)
	assert.False(t, result.Transactions[1].IsCovered)
	// Empty cell falls back to the source default.
	assert.True(t, result.Transactions[2].IsCovered)
}

func TestParseEquityRowsSkipsFooterRows(t *testing.T) {
	table := mustTable(t, strings.Join([]string{
		"Symbol,Date Acquired,Date Sold,Proceeds,Cost Basis",
		"AAPL,01/15/2023,02/20/2023,900,1000",
		"Total,,,900,1000",
	}, "\n"))

	result := ParseEquityRows(table, 0, equityMapping(), models.DateFormatMDY, "generic", false)

	assert.Empty(t, result.Errors)
	assert.Len(t, result.Transactions, 1)
}

func TestParseEquityRowsHashStableAcrossParses(t *testing.T) {
	content := strings.Join([]string{
		"Symbol,Date Acquired,Date Sold,Proceeds,Cost Basis",
		"AAPL,01/15/2023,02/20/2023,900,1000",
	}, "\n")

	first := ParseEquityRows(mustTable(t, content), 0, equityMapping(), models.DateFormatMDY, "generic", false)
	second := ParseEquityRows(mustTable(t, content), 0, equityMapping(), models.DateFormatMDY, "generic", false)

	require.Len(t, first.Transactions, 1)
	require.Len(t, second.Transactions, 1)
	assert.Equal(t, first.Transactions[0].HashID, second.Transactions[0].HashID)
}
