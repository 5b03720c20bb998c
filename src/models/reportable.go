package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Form8949Category is one of the six IRS codes classifying a disposal by
// holding period and basis-reporting status.
type Form8949Category string

const (
	CategoryA Form8949Category = "A" // short term, basis reported on 1099-B
	CategoryB Form8949Category = "B" // short term, basis not reported
	CategoryC Form8949Category = "C" // short term, no 1099-B received
	CategoryD Form8949Category = "D" // long term, basis reported on 1099-B
	CategoryE Form8949Category = "E" // long term, basis not reported
	CategoryF Form8949Category = "F" // long term, no 1099-B received
)

// ReportableTransaction is one Form 8949 row: a disposal matched to its cost
// basis. Derived, write-once output consumed by downstream form generation.
type ReportableTransaction struct {
	Symbol       string          `json:"symbol"`
	Description  string          `json:"description,omitempty"`
	DateAcquired time.Time       `json:"date_acquired"`
	DateSold     time.Time       `json:"date_sold"`
	Proceeds     decimal.Decimal `json:"proceeds"`
	CostBasis    decimal.Decimal `json:"cost_basis"`
	GainLoss     decimal.Decimal `json:"gain_loss"`
	IsShortTerm  bool            `json:"is_short_term"`
	IsCovered    bool            `json:"is_covered"`
	Quantity     decimal.Decimal `json:"quantity"`

	// Broker-reported adjustments, surfaced but never computed here.
	WashSaleDisallowed decimal.Decimal `json:"wash_sale_disallowed"`
	AdjustmentCode     string          `json:"adjustment_code,omitempty"`
	AdjustmentAmount   decimal.Decimal `json:"adjustment_amount"`

	// AcquiredDateEstimated marks rows whose acquisition date was a
	// placeholder ("Various", "Inherited") replaced by an estimate.
	AcquiredDateEstimated bool `json:"acquired_date_estimated,omitempty"`

	Source string `json:"source,omitempty"`
	HashID string `json:"hash_id,omitempty"`
}

// EquityParseResult is what an equity source parser returns: broker 1099-B
// style rows already carry acquisition and sale sides, so they map straight to
// reportable transactions without going through the lot ledger.
type EquityParseResult struct {
	Transactions []ReportableTransaction `json:"transactions"`
	Errors       []ParseError            `json:"errors"`
	Warnings     []string                `json:"warnings"`
}
