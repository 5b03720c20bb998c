package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Lot is a quantity of one asset acquired at one point in time at one cost
// basis. Lots are immutable once created; partial consumption replaces a lot
// with a smaller residual lot carrying the same acquired date and unit basis.
type Lot struct {
	Asset            string          `json:"asset"`
	Quantity         decimal.Decimal `json:"quantity"`
	CostBasisPerUnit decimal.Decimal `json:"cost_basis_per_unit"`
	TotalCostBasis   decimal.Decimal `json:"total_cost_basis"`
	AcquiredDate     time.Time       `json:"acquired_date"`
	Source           string          `json:"source,omitempty"`
	OriginTxID       string          `json:"origin_tx_id,omitempty"`
}

// NewLot builds a lot keeping the TotalCostBasis = Quantity * CostBasisPerUnit
// invariant.
func NewLot(asset string, quantity, costBasisPerUnit decimal.Decimal, acquired time.Time, source, originTxID string) Lot {
	return Lot{
		Asset:            asset,
		Quantity:         quantity,
		CostBasisPerUnit: costBasisPerUnit,
		TotalCostBasis:   quantity.Mul(costBasisPerUnit),
		AcquiredDate:     acquired,
		Source:           source,
		OriginTxID:       originTxID,
	}
}

// LotUsage records the slice of one lot consumed by a disposal.
type LotUsage struct {
	AcquiredDate     time.Time       `json:"acquired_date"`
	QuantitySold     decimal.Decimal `json:"quantity_sold"`
	CostBasis        decimal.Decimal `json:"cost_basis"`
	CostBasisPerUnit decimal.Decimal `json:"cost_basis_per_unit"`
}

// DisposalResult is the outcome of resolving one disposal against the ledger.
// Err is non-nil when the requested quantity exceeded the available lots; the
// result is still usable, consumption is simply capped at what was held.
type DisposalResult struct {
	LotsUsed       []LotUsage             `json:"lots_used"`
	TotalCostBasis decimal.Decimal        `json:"total_cost_basis"`
	RemainingLots  []Lot                  `json:"remaining_lots"`
	Warnings       []string               `json:"warnings,omitempty"`
	Err            *InsufficientLotsError `json:"error,omitempty"`
}

// QuantityConsumed sums the quantity actually taken from the ledger.
func (r *DisposalResult) QuantityConsumed() decimal.Decimal {
	total := decimal.Zero
	for _, u := range r.LotsUsed {
		total = total.Add(u.QuantitySold)
	}
	return total
}

// InsufficientLotsError reports a disposal that asked for more units than the
// ledger holds. Callers can branch on the fields instead of matching message
// text.
type InsufficientLotsError struct {
	Asset     string          `json:"asset"`
	Requested decimal.Decimal `json:"requested"`
	Available decimal.Decimal `json:"available"`
}

func (e *InsufficientLotsError) Error() string {
	return fmt.Sprintf("insufficient lots for %s: requested %s, only %s available",
		e.Asset, e.Requested.String(), e.Available.String())
}
