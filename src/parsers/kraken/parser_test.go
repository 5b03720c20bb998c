package kraken

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/capfolio/backend/src/models"
	"github.com/username/capfolio/backend/src/parsers/tabular"
)

const ledgerHeader = "txid,refid,time,type,subtype,aclass,asset,amount,fee,balance"

func mustTable(t *testing.T, content string) tabular.Table {
	t.Helper()
	table, err := tabular.ReadTable(content)
	require.NoError(t, err)
	return table
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCanParse(t *testing.T) {
	assert.True(t, NewParser().CanParse(mustTable(t, ledgerHeader+"\n")))
	assert.False(t, NewParser().CanParse(mustTable(t, "Symbol,Date Sold,Proceeds\nAAPL,01/02/2023,100\n")))
}

func TestNormalizeAsset(t *testing.T) {
	tests := map[string]string{
		"XXBT":     "BTC",
		"XBT":      "BTC",
		"ZUSD":     "USD",
		"XETH":     "ETH",
		"ETH2.S":   "ETH2",
		"USD.HOLD": "USD",
		"SOL":      "SOL",
		" ada ":    "ADA",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeAsset(in), "input %q", in)
	}
}

func TestParsePairsTradeLegsIntoBuy(t *testing.T) {
	content := strings.Join([]string{
		ledgerHeader,
		`L1,T1,2023-01-10 14:30:00,trade,,currency,ZUSD,-10000.00,0,5000`,
		`L2,T1,2023-01-10 14:30:00,trade,,currency,XXBT,0.5,0.0005,0.5`,
	}, "\n")
	result := NewParser().Parse(mustTable(t, content))

	require.Empty(t, result.Errors)
	require.Len(t, result.Transactions, 1)
	tx := result.Transactions[0]
	assert.Equal(t, models.TxTypeBuy, tx.Type)
	assert.Equal(t, "BTC", tx.Asset)
	assert.True(t, tx.Quantity.Equal(dec("0.5")))
	assert.True(t, tx.TotalValue.Equal(dec("10000")))
	assert.True(t, tx.PricePerUnit.Equal(dec("20000")))
	assert.True(t, tx.Fees.Equal(dec("0.0005")))
	assert.Equal(t, "kraken", tx.Exchange)
}

func TestParsePairsTradeLegsIntoSell(t *testing.T) {
	content := strings.Join([]string{
		ledgerHeader,
		`L1,T2,2023-06-15 09:00:00,trade,,currency,XXBT,-0.25,0,0.25`,
		`L2,T2,2023-06-15 09:00:00,trade,,currency,ZUSD,8000.00,10.00,13000`,
	}, "\n")
	result := NewParser().Parse(mustTable(t, content))

	require.Len(t, result.Transactions, 1)
	tx := result.Transactions[0]
	assert.Equal(t, models.TxTypeSell, tx.Type)
	assert.Equal(t, "BTC", tx.Asset)
	assert.True(t, tx.Quantity.Equal(dec("0.25")))
	assert.True(t, tx.TotalValue.Equal(dec("8000")))
	assert.True(t, tx.Fees.Equal(dec("10")))
}

func TestParseCryptoToCryptoTradeBecomesConvert(t *testing.T) {
	content := strings.Join([]string{
		ledgerHeader,
		`L1,T3,2023-07-01 12:00:00,trade,,currency,XXBT,-0.1,0,0.15`,
		`L2,T3,2023-07-01 12:00:00,trade,,currency,XETH,1.6,0.001,1.6`,
	}, "\n")
	result := NewParser().Parse(mustTable(t, content))

	require.Len(t, result.Transactions, 1)
	tx := result.Transactions[0]
	assert.Equal(t, models.TxTypeConvert, tx.Type)
	assert.Equal(t, "BTC", tx.ConvertFromAsset)
	assert.True(t, tx.ConvertFromQuantity.Equal(dec("0.1")))
	assert.Equal(t, "ETH", tx.ConvertToAsset)
	assert.True(t, tx.ConvertToQuantity.Equal(dec("1.6")))
	assert.True(t, tx.TotalValue.IsZero())

	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "no fiat value")
}

func TestParseUnpairedTradeLegRecordedStandalone(t *testing.T) {
	content := strings.Join([]string{
		ledgerHeader,
		`L1,T4,2023-07-01 12:00:00,trade,,currency,XXBT,0.1,0,0.1`,
	}, "\n")
	result := NewParser().Parse(mustTable(t, content))

	require.Len(t, result.Transactions, 1)
	assert.Equal(t, models.TxTypeBuy, result.Transactions[0].Type)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "no matching counterpart")
}

func TestParseSimpleLedgerRows(t *testing.T) {
	content := strings.Join([]string{
		ledgerHeader,
		`L1,D1,2023-02-01 10:00:00,deposit,,currency,XXBT,0.2,0,0.2`,
		`L2,W1,2023-03-01 10:00:00,withdrawal,,currency,XETH,-1.0,0.005,0`,
		`L3,S1,2023-04-01 10:00:00,staking,,currency,SOL.S,0.05,0,0.05`,
	}, "\n")
	result := NewParser().Parse(mustTable(t, content))

	require.Len(t, result.Transactions, 3)
	assert.Equal(t, models.TxTypeReceive, result.Transactions[0].Type)
	assert.Equal(t, "BTC", result.Transactions[0].Asset)
	assert.Equal(t, models.TxTypeSend, result.Transactions[1].Type)
	assert.Equal(t, models.TxTypeIncome, result.Transactions[2].Type)
	assert.Equal(t, "SOL", result.Transactions[2].Asset)
}

func TestParseSkipsFiatMovements(t *testing.T) {
	content := strings.Join([]string{
		ledgerHeader,
		`L1,D1,2023-02-01 10:00:00,deposit,,currency,ZUSD,5000,0,5000`,
		`L2,W1,2023-03-01 10:00:00,withdrawal,,currency,ZEUR,-100,0,0`,
	}, "\n")
	result := NewParser().Parse(mustTable(t, content))

	assert.Empty(t, result.Transactions)
	assert.Empty(t, result.Errors)
}

func TestParsePairingSurvivesInterleavedRefids(t *testing.T) {
	content := strings.Join([]string{
		ledgerHeader,
		`L1,TA,2023-01-10 14:30:00,trade,,currency,ZUSD,-10000.00,0,0`,
		`L2,TB,2023-01-11 09:00:00,trade,,currency,ZUSD,-500.00,0,0`,
		`L3,TA,2023-01-10 14:30:00,trade,,currency,XXBT,0.5,0,0.5`,
		`L4,TB,2023-01-11 09:00:00,trade,,currency,XETH,0.4,0,0.4`,
	}, "\n")
	result := NewParser().Parse(mustTable(t, content))

	require.Len(t, result.Transactions, 2)
	// First-seen refid order is preserved.
	assert.Equal(t, "BTC", result.Transactions[0].Asset)
	assert.Equal(t, "ETH", result.Transactions[1].Asset)
}
