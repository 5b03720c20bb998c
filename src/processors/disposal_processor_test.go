package processors

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/capfolio/backend/src/models"
)

func buyTx(ts time.Time, asset, qty, total, fees string) models.CanonicalTransaction {
	return models.CanonicalTransaction{
		ID:         "buy-" + asset + "-" + ts.Format("20060102"),
		Timestamp:  ts,
		Type:       models.TxTypeBuy,
		Asset:      asset,
		Quantity:   dec(qty),
		TotalValue: dec(total),
		Fees:       dec(fees),
		Exchange:   "coinbase",
		HashID:     "h-buy-" + ts.Format("20060102"),
	}
}

func sellTx(ts time.Time, asset, qty, total, fees string) models.CanonicalTransaction {
	return models.CanonicalTransaction{
		ID:         "sell-" + asset + "-" + ts.Format("20060102"),
		Timestamp:  ts,
		Type:       models.TxTypeSell,
		Asset:      asset,
		Quantity:   dec(qty),
		TotalValue: dec(total),
		Fees:       dec(fees),
		Exchange:   "coinbase",
		HashID:     "h-sell-" + ts.Format("20060102"),
	}
}

func TestProcessSimpleBuySell(t *testing.T) {
	p := NewGainsProcessor(models.FIFO)
	report := p.Process([]models.CanonicalTransaction{
		buyTx(day("2023-01-10"), "BTC", "1", "20000", "10"),
		sellTx(day("2023-08-10"), "BTC", "0.5", "15000", "5"),
	})

	require.Len(t, report.Transactions, 1)
	row := report.Transactions[0]
	assert.Equal(t, "BTC", row.Symbol)
	assert.Equal(t, day("2023-01-10"), row.DateAcquired)
	assert.Equal(t, day("2023-08-10"), row.DateSold)
	// Net proceeds 14995, basis 0.5 * 20010.
	assert.True(t, row.Proceeds.Equal(dec("14995")), "proceeds %s", row.Proceeds)
	assert.True(t, row.CostBasis.Equal(dec("10005")), "basis %s", row.CostBasis)
	assert.True(t, row.GainLoss.Equal(dec("4990")))
	assert.True(t, row.IsShortTerm)
	assert.False(t, row.IsCovered)

	require.Len(t, report.Holdings, 1)
	assert.True(t, report.Holdings[0].Quantity.Equal(dec("0.5")))
}

func TestProcessReplaysChronologicallyRegardlessOfInputOrder(t *testing.T) {
	p := NewGainsProcessor(models.FIFO)
	// Sell appears before the buy in the stream but after it in time.
	report := p.Process([]models.CanonicalTransaction{
		sellTx(day("2023-09-01"), "ETH", "1", "2000", "0"),
		buyTx(day("2023-02-01"), "ETH", "1", "1500", "0"),
	})

	assert.Empty(t, report.Errors)
	require.Len(t, report.Transactions, 1)
	assert.True(t, report.Transactions[0].GainLoss.Equal(dec("500")))
}

func TestProcessOversellCapsAndRecordsError(t *testing.T) {
	p := NewGainsProcessor(models.FIFO)
	report := p.Process([]models.CanonicalTransaction{
		buyTx(day("2023-01-01"), "BTC", "1", "10000", "0"),
		sellTx(day("2023-06-01"), "BTC", "2", "40000", "0"),
	})

	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "insufficient lots")
	// Only the held unit produced a row; its proceeds share is half of the
	// requested disposal's proceeds.
	require.Len(t, report.Transactions, 1)
	assert.True(t, report.Transactions[0].Proceeds.Equal(dec("20000")))
	assert.Empty(t, report.Holdings)
}

func TestProcessMultiLotSellProratesProceedsByQuantity(t *testing.T) {
	p := NewGainsProcessor(models.FIFO)
	report := p.Process([]models.CanonicalTransaction{
		buyTx(day("2023-01-01"), "ETH", "1", "1000", "0"),
		buyTx(day("2023-02-01"), "ETH", "3", "6000", "0"),
		sellTx(day("2023-07-01"), "ETH", "4", "12000", "0"),
	})

	require.Len(t, report.Transactions, 2)
	assert.True(t, report.Transactions[0].Proceeds.Equal(dec("3000")))
	assert.True(t, report.Transactions[1].Proceeds.Equal(dec("9000")))
	// Row identities derive from the disposal hash plus the slice index.
	assert.NotEqual(t, report.Transactions[0].HashID, report.Transactions[1].HashID)
}

func TestProcessConvertDisposesFromAndAcquiresTo(t *testing.T) {
	p := NewGainsProcessor(models.FIFO)
	report := p.Process([]models.CanonicalTransaction{
		buyTx(day("2023-01-01"), "BTC", "1", "20000", "0"),
		{
			ID:                  "cv1",
			Timestamp:           day("2023-06-01"),
			Type:                models.TxTypeConvert,
			Asset:               "BTC",
			Quantity:            dec("0.5"),
			TotalValue:          dec("15000"),
			Exchange:            "coinbase",
			HashID:              "h-cv1",
			ConvertFromAsset:    "BTC",
			ConvertFromQuantity: dec("0.5"),
			ConvertToAsset:      "ETH",
			ConvertToQuantity:   dec("8"),
		},
	})

	require.Len(t, report.Transactions, 1)
	row := report.Transactions[0]
	assert.Equal(t, "BTC", row.Symbol)
	assert.True(t, row.Proceeds.Equal(dec("15000")))
	assert.True(t, row.CostBasis.Equal(dec("10000")))

	// The acquired side: 8 ETH at 15000 / 8 per unit, plus the leftover BTC.
	require.Len(t, report.Holdings, 2)
	assert.Equal(t, "BTC", report.Holdings[0].Asset)
	assert.Equal(t, "ETH", report.Holdings[1].Asset)
	assert.True(t, report.Holdings[1].CostBasisPerUnit.Equal(dec("1875")))
	assert.Equal(t, day("2023-06-01"), report.Holdings[1].AcquiredDate)
}

func TestProcessConvertWithoutFairMarketValueCarriesBasis(t *testing.T) {
	p := NewGainsProcessor(models.FIFO)
	report := p.Process([]models.CanonicalTransaction{
		buyTx(day("2023-01-01"), "BTC", "1", "20000", "0"),
		{
			ID:                  "cv2",
			Timestamp:           day("2023-06-01"),
			Type:                models.TxTypeConvert,
			Asset:               "BTC",
			Quantity:            dec("1"),
			Exchange:            "kraken",
			HashID:              "h-cv2",
			ConvertFromAsset:    "BTC",
			ConvertFromQuantity: dec("1"),
			ConvertToAsset:      "ETH",
			ConvertToQuantity:   dec("10"),
		},
	})

	require.Len(t, report.Transactions, 1)
	assert.True(t, report.Transactions[0].GainLoss.IsZero())
	found := false
	for _, w := range report.Warnings {
		if strings.Contains(w, "no fair market value") {
			found = true
		}
	}
	assert.True(t, found, "expected a fair-market-value warning, got %v", report.Warnings)

	// The received ETH inherits the released basis: 20000 / 10 per unit.
	require.Len(t, report.Holdings, 1)
	assert.Equal(t, "ETH", report.Holdings[0].Asset)
	assert.True(t, report.Holdings[0].CostBasisPerUnit.Equal(dec("2000")))
}

func TestProcessGiftSentZeroProceeds(t *testing.T) {
	p := NewGainsProcessor(models.FIFO)
	report := p.Process([]models.CanonicalTransaction{
		buyTx(day("2023-01-01"), "BTC", "1", "10000", "0"),
		{
			ID:        "g1",
			Timestamp: day("2023-06-01"),
			Type:      models.TxTypeGiftSent,
			Asset:     "BTC",
			Quantity:  dec("1"),
			HashID:    "h-g1",
		},
	})

	require.Len(t, report.Transactions, 1)
	assert.True(t, report.Transactions[0].Proceeds.IsZero())
	assert.True(t, report.Transactions[0].GainLoss.Equal(dec("-10000")))
	assert.NotEmpty(t, report.Warnings)
}

func TestProcessSendIsNotADisposal(t *testing.T) {
	p := NewGainsProcessor(models.FIFO)
	report := p.Process([]models.CanonicalTransaction{
		buyTx(day("2023-01-01"), "BTC", "1", "10000", "0"),
		{
			ID:        "s1",
			Timestamp: day("2023-06-01"),
			Type:      models.TxTypeSend,
			Asset:     "BTC",
			Quantity:  dec("1"),
			HashID:    "h-s1",
		},
	})

	assert.Empty(t, report.Transactions)
	require.Len(t, report.Holdings, 1)
	assert.True(t, report.Holdings[0].Quantity.Equal(dec("1")))
	assert.NotEmpty(t, report.Warnings)
}

func TestProcessReceiveHasZeroBasis(t *testing.T) {
	p := NewGainsProcessor(models.FIFO)
	report := p.Process([]models.CanonicalTransaction{
		{
			ID:         "r1",
			Timestamp:  day("2023-02-01"),
			Type:       models.TxTypeReceive,
			Asset:      "BTC",
			Quantity:   dec("1"),
			TotalValue: dec("40000"), // spot value at transfer, not consideration paid
			HashID:     "h-r1",
		},
		{
			ID:         "r2",
			Timestamp:  day("2023-03-01"),
			Type:       models.TxTypeGiftReceived,
			Asset:      "ETH",
			Quantity:   dec("2"),
			TotalValue: dec("3600"),
			HashID:     "h-r2",
		},
	})

	require.Len(t, report.Holdings, 2)
	for _, lot := range report.Holdings {
		assert.True(t, lot.CostBasisPerUnit.IsZero(),
			"%s lot should carry zero basis, got %s", lot.Asset, lot.CostBasisPerUnit)
		assert.True(t, lot.TotalCostBasis.IsZero())
	}
	assert.Len(t, report.Warnings, 2)

	// A later sale realizes the full proceeds as gain.
	report = p.Process([]models.CanonicalTransaction{
		{
			ID:         "r1",
			Timestamp:  day("2023-02-01"),
			Type:       models.TxTypeReceive,
			Asset:      "BTC",
			Quantity:   dec("1"),
			TotalValue: dec("40000"),
			HashID:     "h-r1",
		},
		sellTx(day("2023-05-01"), "BTC", "1", "45000", "0"),
	})
	require.Len(t, report.Transactions, 1)
	assert.True(t, report.Transactions[0].CostBasis.IsZero())
	assert.True(t, report.Transactions[0].GainLoss.Equal(dec("45000")))
}

func TestProcessIncomeWithValueWarnsOrdinaryIncome(t *testing.T) {
	p := NewGainsProcessor(models.FIFO)
	report := p.Process([]models.CanonicalTransaction{
		{
			ID:         "i2",
			Timestamp:  day("2023-04-01"),
			Type:       models.TxTypeIncome,
			Asset:      "SOL",
			Quantity:   dec("80"),
			TotalValue: dec("2000"),
			HashID:     "h-i2",
		},
	})

	require.Len(t, report.Warnings, 1)
	assert.True(t, strings.Contains(report.Warnings[0], "ordinary income"),
		"expected an ordinary-income advisory, got %q", report.Warnings[0])

	// The valued receipt still establishes market-value basis.
	require.Len(t, report.Holdings, 1)
	assert.True(t, report.Holdings[0].CostBasisPerUnit.Equal(dec("25")))
}

func TestProcessZeroBasisIncomeWarns(t *testing.T) {
	p := NewGainsProcessor(models.FIFO)
	report := p.Process([]models.CanonicalTransaction{
		{
			ID:        "i1",
			Timestamp: day("2023-04-01"),
			Type:      models.TxTypeIncome,
			Asset:     "ADA",
			Quantity:  dec("100"),
			HashID:    "h-i1",
		},
	})

	assert.NotEmpty(t, report.Warnings)
	require.Len(t, report.Holdings, 1)
	assert.True(t, report.Holdings[0].CostBasisPerUnit.IsZero())
}

func TestProcessFeesIncreaseBasisAndReduceProceeds(t *testing.T) {
	p := NewGainsProcessor(models.FIFO)
	report := p.Process([]models.CanonicalTransaction{
		buyTx(day("2023-01-01"), "SOL", "10", "1000", "10"),
		sellTx(day("2023-03-01"), "SOL", "10", "1500", "15"),
	})

	require.Len(t, report.Transactions, 1)
	row := report.Transactions[0]
	assert.True(t, row.CostBasis.Equal(dec("1010")))
	assert.True(t, row.Proceeds.Equal(dec("1485")))
	assert.True(t, row.GainLoss.Equal(dec("475")))
}

func TestReportShortAndLongTermTotals(t *testing.T) {
	report := &GainsReport{
		Transactions: []models.ReportableTransaction{
			{GainLoss: dec("100"), IsShortTerm: true},
			{GainLoss: dec("-30"), IsShortTerm: true},
			{GainLoss: dec("500"), IsShortTerm: false},
		},
	}
	assert.True(t, report.ShortTermGain().Equal(dec("70")))
	assert.True(t, report.LongTermGain().Equal(dec("500")))
}

func TestProcessHIFOAndFIFODiverge(t *testing.T) {
	stream := []models.CanonicalTransaction{
		buyTx(day("2023-01-01"), "BTC", "1", "10000", "0"),
		buyTx(day("2023-02-01"), "BTC", "1", "30000", "0"),
		sellTx(day("2023-06-01"), "BTC", "1", "25000", "0"),
	}

	fifo := NewGainsProcessor(models.FIFO).Process(stream)
	hifo := NewGainsProcessor(models.HIFO).Process(stream)

	require.Len(t, fifo.Transactions, 1)
	require.Len(t, hifo.Transactions, 1)
	assert.True(t, fifo.Transactions[0].GainLoss.Equal(dec("15000")))
	assert.True(t, hifo.Transactions[0].GainLoss.Equal(dec("-5000")))

	// The stream itself must not be reordered.
	assert.Equal(t, models.TxTypeSell, stream[2].Type)
}

func TestProcessDeterministicOutput(t *testing.T) {
	stream := []models.CanonicalTransaction{
		buyTx(day("2023-01-01"), "BTC", "2", "40000", "0"),
		buyTx(day("2023-01-01"), "ETH", "10", "15000", "0"),
		sellTx(day("2023-06-01"), "BTC", "1.5", "45000", "0"),
		sellTx(day("2023-06-01"), "ETH", "4", "8000", "0"),
	}

	first := NewGainsProcessor(models.FIFO).Process(stream)
	for i := 0; i < 3; i++ {
		again := NewGainsProcessor(models.FIFO).Process(stream)
		assert.Equal(t, first.Transactions, again.Transactions)
		assert.Equal(t, first.Holdings, again.Holdings)
	}
}
