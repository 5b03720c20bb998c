package processors

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/username/capfolio/backend/src/models"
)

// Ledger holds the open acquisition lots per asset. The zero value is
// unusable; construct with NewLedger. Methods mutate the ledger in place and
// the ledger is not safe for concurrent use, callers serialize access.
type Ledger struct {
	lots map[string][]models.Lot
}

func NewLedger() *Ledger {
	return &Ledger{lots: make(map[string][]models.Lot)}
}

// Acquire appends a lot to the asset's holdings. Zero-quantity lots are
// dropped, they could never contribute basis.
func (l *Ledger) Acquire(lot models.Lot) {
	if lot.Quantity.Sign() <= 0 {
		return
	}
	l.lots[lot.Asset] = append(l.lots[lot.Asset], lot)
}

// Holdings returns a copy of the open lots for one asset, in ledger order.
func (l *Ledger) Holdings(asset string) []models.Lot {
	return append([]models.Lot(nil), l.lots[asset]...)
}

// AllHoldings returns a copy of every open lot, grouped by asset with asset
// keys iterated in sorted order for deterministic output.
func (l *Ledger) AllHoldings() []models.Lot {
	assets := make([]string, 0, len(l.lots))
	for asset := range l.lots {
		assets = append(assets, asset)
	}
	sort.Strings(assets)

	var all []models.Lot
	for _, asset := range assets {
		all = append(all, l.lots[asset]...)
	}
	return all
}

// TotalQuantity sums the open quantity for one asset.
func (l *Ledger) TotalQuantity(asset string) decimal.Decimal {
	total := decimal.Zero
	for _, lot := range l.lots[asset] {
		total = total.Add(lot.Quantity)
	}
	return total
}

// Dispose consumes quantity units of asset from the ledger under the given
// method and returns which lot slices supplied the basis. specific is only
// consulted for SpecID: it lists indexes into the asset's current holdings
// (as returned by Holdings) in consumption order. A SpecID disposal without
// an order falls back to FIFO and says so in the result's warnings.
//
// When the ledger holds less than requested, consumption is capped at the
// available quantity and the result carries an InsufficientLotsError; the
// lots that were consumed remain consumed.
func (l *Ledger) Dispose(asset string, quantity decimal.Decimal, method models.CostBasisMethod, specific []int) *models.DisposalResult {
	result := &models.DisposalResult{TotalCostBasis: decimal.Zero}
	if quantity.Sign() <= 0 {
		result.RemainingLots = l.Holdings(asset)
		return result
	}

	held := l.lots[asset]
	ordered, warn := orderLots(held, method, specific)
	if warn != "" {
		result.Warnings = append(result.Warnings, warn)
	}

	remaining := quantity
	consumed := make([]decimal.Decimal, len(held))
	for _, idx := range ordered {
		if remaining.Sign() <= 0 {
			break
		}
		lot := held[idx]
		take := lot.Quantity
		if take.GreaterThan(remaining) {
			take = remaining
		}

		basis := take.Mul(lot.CostBasisPerUnit)
		result.LotsUsed = append(result.LotsUsed, models.LotUsage{
			AcquiredDate:     lot.AcquiredDate,
			QuantitySold:     take,
			CostBasis:        basis,
			CostBasisPerUnit: lot.CostBasisPerUnit,
		})
		result.TotalCostBasis = result.TotalCostBasis.Add(basis)
		consumed[idx] = take
		remaining = remaining.Sub(take)
	}

	if remaining.Sign() > 0 {
		result.Err = &models.InsufficientLotsError{
			Asset:     asset,
			Requested: quantity,
			Available: quantity.Sub(remaining),
		}
	}

	// Rebuild the holdings: fully consumed lots disappear, partially
	// consumed lots shrink but keep their date and unit basis.
	var kept []models.Lot
	for i, lot := range held {
		left := lot.Quantity.Sub(consumed[i])
		if left.Sign() <= 0 {
			continue
		}
		lot.Quantity = left
		lot.TotalCostBasis = left.Mul(lot.CostBasisPerUnit)
		kept = append(kept, lot)
	}
	l.lots[asset] = kept
	result.RemainingLots = append([]models.Lot(nil), kept...)

	return result
}

// orderLots returns the indexes of lots in consumption order for the method.
// Sorting is stable over insertion order, so equal keys resolve the same way
// on every run.
func orderLots(lots []models.Lot, method models.CostBasisMethod, specific []int) ([]int, string) {
	idx := make([]int, len(lots))
	for i := range idx {
		idx[i] = i
	}

	switch method {
	case models.FIFO:
		sort.SliceStable(idx, func(a, b int) bool {
			return lots[idx[a]].AcquiredDate.Before(lots[idx[b]].AcquiredDate)
		})
	case models.LIFO:
		sort.SliceStable(idx, func(a, b int) bool {
			return lots[idx[a]].AcquiredDate.After(lots[idx[b]].AcquiredDate)
		})
	case models.HIFO:
		sort.SliceStable(idx, func(a, b int) bool {
			la, lb := lots[idx[a]], lots[idx[b]]
			if !la.CostBasisPerUnit.Equal(lb.CostBasisPerUnit) {
				return la.CostBasisPerUnit.GreaterThan(lb.CostBasisPerUnit)
			}
			// Equal basis falls back to oldest-first.
			return la.AcquiredDate.Before(lb.AcquiredDate)
		})
	case models.SpecID:
		if len(specific) == 0 {
			ordered, _ := orderLots(lots, models.FIFO, nil)
			return ordered, "specific identification requested without designated lots; falling back to FIFO"
		}
		var ordered []int
		seen := make(map[int]bool)
		for _, i := range specific {
			if i < 0 || i >= len(lots) || seen[i] {
				continue
			}
			seen[i] = true
			ordered = append(ordered, i)
		}
		// Undesignated lots follow in FIFO order so an oversized disposal
		// can still drain the ledger deterministically.
		rest, _ := orderLots(lots, models.FIFO, nil)
		for _, i := range rest {
			if !seen[i] {
				ordered = append(ordered, i)
			}
		}
		return ordered, ""
	}
	return idx, ""
}
