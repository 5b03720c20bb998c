package services

import (
	"errors"
	"io"

	"github.com/shopspring/decimal"

	"github.com/username/capfolio/backend/src/models"
	"github.com/username/capfolio/backend/src/parsers"
)

var (
	ErrParsingFailed = errors.New("parsing failed")
	ErrNoUsableRows  = errors.New("no usable rows in upload")
)

// CategorySummary aggregates the Form 8949 rows falling into one box.
type CategorySummary struct {
	Count     int             `json:"count"`
	Proceeds  decimal.Decimal `json:"proceeds"`
	CostBasis decimal.Decimal `json:"cost_basis"`
	GainLoss  decimal.Decimal `json:"gain_loss"`
}

// RealizedGainsReport is the API-facing report: every reportable row from
// both import paths, the open crypto lots, and per-category totals.
type RealizedGainsReport struct {
	EquityTransactions []models.ReportableTransaction             `json:"equity_transactions"`
	CryptoTransactions []models.ReportableTransaction             `json:"crypto_transactions"`
	Holdings           []models.Lot                               `json:"holdings"`
	Categories         map[models.Form8949Category]CategorySummary `json:"categories"`
	ShortTermGain      decimal.Decimal                            `json:"short_term_gain"`
	LongTermGain       decimal.Decimal                            `json:"long_term_gain"`
	Method             string                                     `json:"method"`
	Warnings           []string                                   `json:"warnings,omitempty"`
	Errors             []string                                   `json:"errors,omitempty"`
}

// UploadService is the core import and reporting logic behind the HTTP
// handlers.
type UploadService interface {
	// ProcessEquityUpload parses a broker export and persists the rows.
	ProcessEquityUpload(fileReader io.Reader, userID int64, opts parsers.Options) (*models.EquityParseResult, error)
	// ProcessCryptoUpload parses an exchange export and persists the
	// canonical transactions.
	ProcessCryptoUpload(fileReader io.Reader, userID int64, opts parsers.Options) (*models.ParseResult, error)

	// GetRealizedGainsReport replays the user's canonical transactions
	// under the given method and merges in the persisted equity rows.
	GetRealizedGainsReport(userID int64, method models.CostBasisMethod) (*RealizedGainsReport, error)
	// GetHoldings returns the open crypto lots under the given method.
	GetHoldings(userID int64, method models.CostBasisMethod) ([]models.Lot, error)

	GetCanonicalTransactions(userID int64) ([]models.CanonicalTransaction, error)
	GetEquitySales(userID int64) ([]models.ReportableTransaction, error)

	DeleteAllTransactions(userID int64) error
	HasData(userID int64) (bool, error)
	InvalidateUserCache(userID int64)
}
