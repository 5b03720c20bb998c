package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCostBasisMethod(t *testing.T) {
	for _, want := range []CostBasisMethod{FIFO, LIFO, HIFO, SpecID} {
		got, err := ParseCostBasisMethod(want.String())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseCostBasisMethod("FIFO")
	assert.Error(t, err, "method names are lowercase")
	_, err = ParseCostBasisMethod("average")
	assert.Error(t, err)
}

func TestTransactionTypeClassification(t *testing.T) {
	acquisitions := []TransactionType{TxTypeBuy, TxTypeReceive, TxTypeIncome, TxTypeAirdrop, TxTypeMining, TxTypeFork, TxTypeGiftReceived}
	for _, typ := range acquisitions {
		assert.True(t, typ.IsAcquisition(), "%s should acquire", typ)
		assert.False(t, typ.IsDisposal(), "%s should not dispose", typ)
	}

	disposals := []TransactionType{TxTypeSell, TxTypeConvert, TxTypeGiftSent}
	for _, typ := range disposals {
		assert.True(t, typ.IsDisposal(), "%s should dispose", typ)
		assert.False(t, typ.IsAcquisition(), "%s should not acquire", typ)
	}

	// A send is a wallet transfer, not a taxable event.
	assert.False(t, TxTypeSend.IsAcquisition())
	assert.False(t, TxTypeSend.IsDisposal())
	assert.False(t, TxTypeOther.IsAcquisition())
	assert.False(t, TxTypeOther.IsDisposal())
}

func TestContentHashStability(t *testing.T) {
	base := CanonicalTransaction{
		Timestamp:  time.Date(2023, 6, 15, 9, 0, 0, 0, time.UTC),
		Type:       TxTypeSell,
		Asset:      "BTC",
		Quantity:   decimal.RequireFromString("0.25"),
		TotalValue: decimal.RequireFromString("8000"),
		Exchange:   "coinbase",
		RawRow:     []string{"2023-06-15T09:00:00Z", "Sell", "BTC", "0.25"},
	}

	same := base
	same.ID = "a-fresh-uuid"
	same.Notes = "different presentation fields"
	assert.Equal(t, base.ContentHash(), same.ContentHash(),
		"hash depends on source content, not per-parse fields")

	shifted := base
	shifted.Quantity = decimal.RequireFromString("0.26")
	assert.NotEqual(t, base.ContentHash(), shifted.ContentHash())

	elsewhere := base
	elsewhere.Exchange = "kraken"
	assert.NotEqual(t, base.ContentHash(), elsewhere.ContentHash())
}

func TestColumnMappingMissingRequired(t *testing.T) {
	full := ColumnMapping{
		FieldSymbol: 0, FieldDateAcquired: 1, FieldDateSold: 2,
		FieldProceeds: 3, FieldCostBasis: 4,
	}
	assert.Empty(t, full.MissingRequired())

	partial := ColumnMapping{FieldSymbol: 0, FieldProceeds: 3}
	assert.Equal(t, []string{FieldDateAcquired, FieldDateSold, FieldCostBasis}, partial.MissingRequired())

	negative := ColumnMapping{
		FieldSymbol: -1, FieldDateAcquired: 1, FieldDateSold: 2,
		FieldProceeds: 3, FieldCostBasis: 4,
	}
	assert.Equal(t, []string{FieldSymbol}, negative.MissingRequired())
}

func TestCryptoColumnMappingMissingRequired(t *testing.T) {
	full := CryptoColumnMapping{FieldDate: 0, FieldType: 1, FieldAsset: 2, FieldQuantity: 3}
	assert.Empty(t, full.MissingRequired())

	partial := CryptoColumnMapping{FieldDate: 0}
	assert.Equal(t, []string{FieldType, FieldAsset, FieldQuantity}, partial.MissingRequired())
}

func TestNewLotInvariant(t *testing.T) {
	lot := NewLot("ETH", decimal.RequireFromString("2.5"), decimal.RequireFromString("1800"),
		time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC), "kraken", "tx-1")
	assert.True(t, lot.TotalCostBasis.Equal(decimal.RequireFromString("4500")))
}
