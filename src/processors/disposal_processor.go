package processors

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/username/capfolio/backend/src/models"
)

// GainsReport is the engine's output for one canonical transaction stream:
// the Form 8949 rows, whatever lots remain open, and everything noteworthy
// that happened along the way.
type GainsReport struct {
	Transactions []models.ReportableTransaction `json:"transactions"`
	Holdings     []models.Lot                   `json:"holdings"`
	Warnings     []string                       `json:"warnings,omitempty"`
	Errors       []string                       `json:"errors,omitempty"`
}

// ShortTermGain and LongTermGain total the realized gain/loss per holding
// period.
func (r *GainsReport) ShortTermGain() decimal.Decimal {
	total := decimal.Zero
	for _, tx := range r.Transactions {
		if tx.IsShortTerm {
			total = total.Add(tx.GainLoss)
		}
	}
	return total
}

func (r *GainsReport) LongTermGain() decimal.Decimal {
	total := decimal.Zero
	for _, tx := range r.Transactions {
		if !tx.IsShortTerm {
			total = total.Add(tx.GainLoss)
		}
	}
	return total
}

// GainsProcessor replays a canonical transaction stream against a fresh lot
// ledger and synthesizes one reportable row per lot slice each disposal
// consumed.
type GainsProcessor struct {
	method models.CostBasisMethod
}

func NewGainsProcessor(method models.CostBasisMethod) *GainsProcessor {
	return &GainsProcessor{method: method}
}

// Process runs the stream. The input is not mutated; transactions are
// replayed in chronological order, with the original stream order breaking
// timestamp ties, so the same input always yields the same report.
func (p *GainsProcessor) Process(transactions []models.CanonicalTransaction) *GainsReport {
	report := &GainsReport{}
	ledger := NewLedger()

	ordered := append([]models.CanonicalTransaction(nil), transactions...)
	sort.SliceStable(ordered, func(a, b int) bool {
		return ordered[a].Timestamp.Before(ordered[b].Timestamp)
	})

	for i := range ordered {
		tx := &ordered[i]
		switch {
		case tx.Type == models.TxTypeConvert:
			p.processConvert(report, ledger, tx)
		case tx.Type == models.TxTypeGiftSent:
			p.processGiftSent(report, ledger, tx)
		case tx.Type == models.TxTypeSell:
			p.processSell(report, ledger, tx)
		case tx.Type == models.TxTypeSend:
			report.Warnings = append(report.Warnings, fmt.Sprintf(
				"%s: sending %s %s is treated as a wallet transfer, not a disposal; the lots stay open",
				tx.Timestamp.Format("2006-01-02"), tx.Quantity, tx.Asset))
		case tx.Type.IsAcquisition():
			p.processAcquisition(report, ledger, tx)
		default:
			report.Warnings = append(report.Warnings, fmt.Sprintf(
				"%s: transaction of type %q for %s not processed",
				tx.Timestamp.Format("2006-01-02"), tx.Type, tx.Asset))
		}
	}

	report.Holdings = ledger.AllHoldings()
	return report
}

func (p *GainsProcessor) processAcquisition(report *GainsReport, ledger *Ledger, tx *models.CanonicalTransaction) {
	if tx.Quantity.Sign() <= 0 {
		return
	}

	// Fees paid to acquire are part of basis.
	totalCost := tx.TotalValue.Add(tx.Fees)
	perUnit := decimal.Zero
	if totalCost.Sign() > 0 {
		perUnit = totalCost.Div(tx.Quantity)
	}

	switch tx.Type {
	case models.TxTypeReceive, models.TxTypeGiftReceived:
		// No consideration was paid, so the lot carries zero basis even when
		// the source attached a market value to the transfer.
		perUnit = decimal.Zero
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"%s: %s of %s %s recorded at zero cost basis; supply the original acquisition cost if it is known",
			tx.Timestamp.Format("2006-01-02"), tx.Type, tx.Quantity, tx.Asset))
	case models.TxTypeIncome, models.TxTypeAirdrop, models.TxTypeMining, models.TxTypeFork:
		if totalCost.IsZero() {
			report.Warnings = append(report.Warnings, fmt.Sprintf(
				"%s: %s of %s %s should be reported as ordinary income, but no market value is attached; basis recorded as zero",
				tx.Timestamp.Format("2006-01-02"), tx.Type, tx.Quantity, tx.Asset))
		} else {
			report.Warnings = append(report.Warnings, fmt.Sprintf(
				"%s: %s of %s %s should be reported as ordinary income at its market value",
				tx.Timestamp.Format("2006-01-02"), tx.Type, tx.Quantity, tx.Asset))
		}
	}

	ledger.Acquire(models.NewLot(tx.Asset, tx.Quantity, perUnit, tx.Timestamp, tx.Exchange, tx.ID))
}

func (p *GainsProcessor) processSell(report *GainsReport, ledger *Ledger, tx *models.CanonicalTransaction) {
	if tx.Quantity.Sign() <= 0 {
		return
	}

	// Selling fees reduce proceeds.
	netProceeds := tx.TotalValue.Sub(tx.Fees)
	if netProceeds.Sign() < 0 {
		netProceeds = decimal.Zero
	}
	p.disposeAndReport(report, ledger, tx, tx.Asset, tx.Quantity, netProceeds)
}

func (p *GainsProcessor) processConvert(report *GainsReport, ledger *Ledger, tx *models.CanonicalTransaction) {
	fromAsset := tx.ConvertFromAsset
	fromQty := tx.ConvertFromQuantity
	if fromAsset == "" {
		fromAsset = tx.Asset
		fromQty = tx.Quantity
	}
	if fromQty.Sign() <= 0 {
		return
	}

	// The USD value of what was received is the proceeds of what was given
	// up. Without it, proceeds equal the basis released: the trade is
	// recorded without recognizing a gain, which understates tax owed and
	// is flagged.
	proceeds := tx.TotalValue
	var releasedBasis decimal.Decimal
	if proceeds.IsZero() {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"%s: convert of %s %s has no fair market value; proceeds assumed equal to cost basis, no gain recognized",
			tx.Timestamp.Format("2006-01-02"), fromQty, fromAsset))
		releasedBasis = p.disposeAtBasis(report, ledger, tx, fromAsset, fromQty)
		proceeds = releasedBasis
	} else {
		releasedBasis = p.disposeAndReport(report, ledger, tx, fromAsset, fromQty, proceeds.Sub(tx.Fees))
	}

	if tx.ConvertToAsset == "" || tx.ConvertToQuantity.Sign() <= 0 {
		return
	}
	perUnit := decimal.Zero
	if proceeds.Sign() > 0 {
		perUnit = proceeds.Div(tx.ConvertToQuantity)
	}
	ledger.Acquire(models.NewLot(tx.ConvertToAsset, tx.ConvertToQuantity, perUnit, tx.Timestamp, tx.Exchange, tx.ID))
}

func (p *GainsProcessor) processGiftSent(report *GainsReport, ledger *Ledger, tx *models.CanonicalTransaction) {
	if tx.Quantity.Sign() <= 0 {
		return
	}
	report.Warnings = append(report.Warnings, fmt.Sprintf(
		"%s: gift of %s %s recorded with zero proceeds; gifts are generally not taxable disposals but the recipient inherits the basis",
		tx.Timestamp.Format("2006-01-02"), tx.Quantity, tx.Asset))
	p.disposeAndReport(report, ledger, tx, tx.Asset, tx.Quantity, decimal.Zero)
}

// disposeAndReport resolves one disposal and emits one reportable row per lot
// slice, prorating the net proceeds by each slice's share of the disposed
// quantity. Returns the total basis released.
func (p *GainsProcessor) disposeAndReport(report *GainsReport, ledger *Ledger, tx *models.CanonicalTransaction, asset string, quantity, netProceeds decimal.Decimal) decimal.Decimal {
	result := ledger.Dispose(asset, quantity, p.method, nil)
	report.Warnings = append(report.Warnings, result.Warnings...)
	if result.Err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf(
			"%s: %s", tx.Timestamp.Format("2006-01-02"), result.Err.Error()))
	}

	consumed := result.QuantityConsumed()
	if consumed.Sign() <= 0 {
		return decimal.Zero
	}

	for i, usage := range result.LotsUsed {
		share := netProceeds.Mul(usage.QuantitySold).Div(quantity)
		row := models.ReportableTransaction{
			Symbol:       asset,
			Description:  fmt.Sprintf("%s %s", usage.QuantitySold, asset),
			DateAcquired: usage.AcquiredDate,
			DateSold:     tx.Timestamp,
			Proceeds:     share,
			CostBasis:    usage.CostBasis,
			GainLoss:     share.Sub(usage.CostBasis),
			Quantity:     usage.QuantitySold,
			IsShortTerm:  IsShortTerm(usage.AcquiredDate, tx.Timestamp),
			IsCovered:    false,
			Source:       tx.Exchange,
			HashID:       fmt.Sprintf("%s:%d", tx.HashID, i),
		}
		report.Transactions = append(report.Transactions, row)
	}
	return result.TotalCostBasis
}

// disposeAtBasis is disposeAndReport for the no-market-value convert case:
// each slice's proceeds equal its own basis, so every row nets to zero gain.
func (p *GainsProcessor) disposeAtBasis(report *GainsReport, ledger *Ledger, tx *models.CanonicalTransaction, asset string, quantity decimal.Decimal) decimal.Decimal {
	result := ledger.Dispose(asset, quantity, p.method, nil)
	report.Warnings = append(report.Warnings, result.Warnings...)
	if result.Err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf(
			"%s: %s", tx.Timestamp.Format("2006-01-02"), result.Err.Error()))
	}

	for i, usage := range result.LotsUsed {
		row := models.ReportableTransaction{
			Symbol:       asset,
			Description:  fmt.Sprintf("%s %s", usage.QuantitySold, asset),
			DateAcquired: usage.AcquiredDate,
			DateSold:     tx.Timestamp,
			Proceeds:     usage.CostBasis,
			CostBasis:    usage.CostBasis,
			GainLoss:     decimal.Zero,
			Quantity:     usage.QuantitySold,
			IsShortTerm:  IsShortTerm(usage.AcquiredDate, tx.Timestamp),
			IsCovered:    false,
			Source:       tx.Exchange,
			HashID:       fmt.Sprintf("%s:%d", tx.HashID, i),
		}
		report.Transactions = append(report.Transactions, row)
	}
	return result.TotalCostBasis
}
