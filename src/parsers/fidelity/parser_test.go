package fidelity

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/capfolio/backend/src/parsers/tabular"
)

const sampleExport = `Fidelity Brokerage Services LLC
Realized Gain/Loss Report

Symbol,Security Description,Date Acquired,Date Sold,Quantity,Proceeds,Cost Basis,Wash Sale Loss Disallowed
AAPL,APPLE INC,01/15/2022,06/20/2023,10,"1,500.00","1,000.00",0.00
MSFT,MICROSOFT CORP,Various,06/21/2023,5,800.00,900.00,50.00
Total,,,,,"2,300.00","1,900.00",
`

func mustTable(t *testing.T, content string) tabular.Table {
	t.Helper()
	table, err := tabular.ReadTable(content)
	require.NoError(t, err)
	return table
}

func TestCanParse(t *testing.T) {
	assert.True(t, NewParser().CanParse(mustTable(t, sampleExport)))
	assert.True(t, NewParser().CanParse(mustTable(t,
		"Security Description,Date Acquired,Date Sold,Proceeds,Cost Basis,Wash Sale Loss Disallowed\n")))
	assert.False(t, NewParser().CanParse(mustTable(t, "Symbol,Opened Date,Closed Date,Proceeds (CB)\n")))
}

func TestParseSampleExport(t *testing.T) {
	result := NewParser().Parse(mustTable(t, sampleExport))

	require.Empty(t, result.Errors)
	require.Len(t, result.Transactions, 2)

	aapl := result.Transactions[0]
	assert.Equal(t, "AAPL", aapl.Symbol)
	assert.Equal(t, "APPLE INC", aapl.Description)
	assert.Equal(t, "2022-01-15", aapl.DateAcquired.Format("2006-01-02"))
	assert.True(t, aapl.Proceeds.Equal(decimal.RequireFromString("1500")))
	assert.True(t, aapl.Quantity.Equal(decimal.RequireFromString("10")))
	assert.True(t, aapl.IsCovered, "1099-B rows default to covered")
	assert.False(t, aapl.IsShortTerm)
	assert.Equal(t, "fidelity", aapl.Source)

	msft := result.Transactions[1]
	assert.True(t, msft.AcquiredDateEstimated)
	assert.True(t, msft.WashSaleDisallowed.Equal(decimal.RequireFromString("50")))
	assert.Equal(t, "W", msft.AdjustmentCode)

	// Two warnings: the estimated date and the wash sale carry-through.
	assert.Len(t, result.Warnings, 2)
}

func TestParseSkipsPreambleAndFooter(t *testing.T) {
	result := NewParser().Parse(mustTable(t, sampleExport))
	for _, tx := range result.Transactions {
		assert.NotEqual(t, "Total", tx.Symbol)
	}
}

func TestParseRowErrorsCarryOriginalFileRowNumbers(t *testing.T) {
	content := strings.Join([]string{
		"Fidelity export",
		"Account 123456789",
		"Symbol,Security Description,Date Acquired,Date Sold,Quantity,Proceeds,Cost Basis,Wash Sale Loss Disallowed",
		"AAPL,APPLE INC,01/15/2022,bad date,10,1500,1000,0",
	}, "\n")
	result := NewParser().Parse(mustTable(t, content))

	require.Len(t, result.Errors, 1)
	assert.Equal(t, 4, result.Errors[0].Row)
}
