// backend/src/services/upload_service.go
package services

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/username/capfolio/backend/src/database"
	"github.com/username/capfolio/backend/src/logger"
	"github.com/username/capfolio/backend/src/models"
	"github.com/username/capfolio/backend/src/parsers"
	"github.com/username/capfolio/backend/src/processors"
	"github.com/username/capfolio/backend/src/security/validation"
)

const (
	ckGainsReport  = "res_gains_report_user_%d_method_%s"
	ckEquitySales  = "res_equity_sales_user_%d"
	ckCanonicalTxs = "res_canonical_txs_user_%d"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

type uploadServiceImpl struct {
	reportCache *cache.Cache
}

func NewUploadService(reportCache *cache.Cache) UploadService {
	return &uploadServiceImpl{reportCache: reportCache}
}

func (s *uploadServiceImpl) ProcessEquityUpload(fileReader io.Reader, userID int64, opts parsers.Options) (*models.EquityParseResult, error) {
	overallStartTime := time.Now()
	logger.L.Info("ProcessEquityUpload START", "userID", userID, "source", opts.Source)

	content, err := io.ReadAll(fileReader)
	if err != nil {
		return nil, fmt.Errorf("error reading upload: %w", err)
	}

	result, err := parsers.ParseEquities(string(content), opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}
	if len(result.Transactions) == 0 {
		if len(result.Errors) > 0 {
			return result, nil
		}
		return result, ErrNoUsableRows
	}

	dbTx, err := database.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.Prepare(`INSERT INTO equity_sales (user_id, symbol, description, date_acquired, date_sold, proceeds, cost_basis, gain_loss, quantity, is_short_term, is_covered, wash_sale_disallowed, adjustment_code, adjustment_amount, acquired_date_estimated, source, hash_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("error preparing insert statement: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, tx := range result.Transactions {
		_, err := stmt.Exec(userID, sanitizeCell(tx.Symbol), sanitizeCell(tx.Description),
			tx.DateAcquired.Format(time.RFC3339), tx.DateSold.Format(time.RFC3339),
			tx.Proceeds.String(), tx.CostBasis.String(), tx.GainLoss.String(), tx.Quantity.String(),
			tx.IsShortTerm, tx.IsCovered,
			tx.WashSaleDisallowed.String(), tx.AdjustmentCode, tx.AdjustmentAmount.String(),
			tx.AcquiredDateEstimated, tx.Source, tx.HashID)
		if err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "unique constraint failed") {
				logger.L.Debug("Skipping duplicate equity sale on upload", "userID", userID, "hash_id", tx.HashID)
				continue
			}
			return nil, fmt.Errorf("error inserting equity sale (%s sold %s): %w", tx.Symbol, tx.DateSold.Format("2006-01-02"), err)
		}
		inserted++
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing equity sales: %w", err)
	}

	s.InvalidateUserCache(userID)
	logger.L.Info("ProcessEquityUpload END", "userID", userID, "parsed", len(result.Transactions), "inserted", inserted, "duration", time.Since(overallStartTime))
	return result, nil
}

func (s *uploadServiceImpl) ProcessCryptoUpload(fileReader io.Reader, userID int64, opts parsers.Options) (*models.ParseResult, error) {
	overallStartTime := time.Now()
	logger.L.Info("ProcessCryptoUpload START", "userID", userID, "source", opts.Source)

	content, err := io.ReadAll(fileReader)
	if err != nil {
		return nil, fmt.Errorf("error reading upload: %w", err)
	}

	result, err := parsers.ParseCrypto(string(content), opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}
	if len(result.Transactions) == 0 {
		if len(result.Errors) > 0 {
			return result, nil
		}
		return result, ErrNoUsableRows
	}

	dbTx, err := database.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.Prepare(`INSERT INTO canonical_transactions (user_id, tx_id, timestamp, type, asset, quantity, price_per_unit, total_value, fees, notes, exchange, convert_from_asset, convert_from_quantity, convert_to_asset, convert_to_quantity, raw_row, hash_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("error preparing insert statement: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, tx := range result.Transactions {
		_, err := stmt.Exec(userID, tx.ID,
			tx.Timestamp.UTC().Format(time.RFC3339), string(tx.Type), tx.Asset,
			tx.Quantity.String(), tx.PricePerUnit.String(), tx.TotalValue.String(), tx.Fees.String(),
			sanitizeCell(tx.Notes), tx.Exchange,
			tx.ConvertFromAsset, tx.ConvertFromQuantity.String(),
			tx.ConvertToAsset, tx.ConvertToQuantity.String(),
			strings.Join(tx.RawRow, "\x1f"), tx.HashID)
		if err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "unique constraint failed") {
				logger.L.Debug("Skipping duplicate transaction on upload", "userID", userID, "hash_id", tx.HashID)
				continue
			}
			return nil, fmt.Errorf("error inserting transaction (%s %s): %w", tx.Type, tx.Asset, err)
		}
		inserted++
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing transactions: %w", err)
	}

	s.InvalidateUserCache(userID)
	logger.L.Info("ProcessCryptoUpload END", "userID", userID, "parsed", len(result.Transactions), "inserted", inserted, "duration", time.Since(overallStartTime))
	return result, nil
}

// InvalidateUserCache clears all cached data for a user, forcing a complete
// rebuild on the next request.
func (s *uploadServiceImpl) InvalidateUserCache(userID int64) {
	keysToDelete := []string{
		fmt.Sprintf(ckEquitySales, userID),
		fmt.Sprintf(ckCanonicalTxs, userID),
	}
	for _, method := range []models.CostBasisMethod{models.FIFO, models.LIFO, models.HIFO, models.SpecID} {
		keysToDelete = append(keysToDelete, fmt.Sprintf(ckGainsReport, userID, method))
	}
	for _, key := range keysToDelete {
		s.reportCache.Delete(key)
	}
	logger.L.Info("Invalidated all caches for user", "userID", userID)
}

func (s *uploadServiceImpl) GetRealizedGainsReport(userID int64, method models.CostBasisMethod) (*RealizedGainsReport, error) {
	cacheKey := fmt.Sprintf(ckGainsReport, userID, method)
	if cached, found := s.reportCache.Get(cacheKey); found {
		logger.L.Debug("Cache hit for GetRealizedGainsReport", "userID", userID, "method", method.String())
		return cached.(*RealizedGainsReport), nil
	}
	logger.L.Info("Cache miss for GetRealizedGainsReport, computing...", "userID", userID, "method", method.String())

	equitySales, err := s.GetEquitySales(userID)
	if err != nil {
		return nil, err
	}
	canonicalTxs, err := s.GetCanonicalTransactions(userID)
	if err != nil {
		return nil, err
	}

	gains := processors.NewGainsProcessor(method).Process(canonicalTxs)

	report := &RealizedGainsReport{
		EquityTransactions: equitySales,
		CryptoTransactions: gains.Transactions,
		Holdings:           gains.Holdings,
		Categories:         make(map[models.Form8949Category]CategorySummary),
		Method:             method.String(),
		Warnings:           gains.Warnings,
		Errors:             gains.Errors,
	}

	short := decimal.Zero
	long := decimal.Zero
	addToCategory := func(cat models.Form8949Category, tx models.ReportableTransaction) {
		summary := report.Categories[cat]
		summary.Count++
		summary.Proceeds = summary.Proceeds.Add(tx.Proceeds)
		summary.CostBasis = summary.CostBasis.Add(tx.CostBasis)
		summary.GainLoss = summary.GainLoss.Add(tx.GainLoss)
		report.Categories[cat] = summary
		if tx.IsShortTerm {
			short = short.Add(tx.GainLoss)
		} else {
			long = long.Add(tx.GainLoss)
		}
	}
	for _, tx := range equitySales {
		addToCategory(processors.Form8949Category(tx.DateAcquired, tx.DateSold, tx.IsCovered), tx)
	}
	for _, tx := range gains.Transactions {
		addToCategory(processors.Form8949CategoryNo1099(tx.DateAcquired, tx.DateSold), tx)
	}
	report.ShortTermGain = short
	report.LongTermGain = long

	s.reportCache.Set(cacheKey, report, DefaultCacheExpiration)
	return report, nil
}

func (s *uploadServiceImpl) GetHoldings(userID int64, method models.CostBasisMethod) ([]models.Lot, error) {
	report, err := s.GetRealizedGainsReport(userID, method)
	if err != nil {
		return nil, err
	}
	return report.Holdings, nil
}

func (s *uploadServiceImpl) GetCanonicalTransactions(userID int64) ([]models.CanonicalTransaction, error) {
	cacheKey := fmt.Sprintf(ckCanonicalTxs, userID)
	if cached, found := s.reportCache.Get(cacheKey); found {
		return cached.([]models.CanonicalTransaction), nil
	}

	logger.L.Debug("Fetching canonical transactions from DB", "userID", userID)
	rows, err := database.DB.Query(`SELECT tx_id, timestamp, type, asset, quantity, price_per_unit, total_value, fees, notes, exchange, convert_from_asset, convert_from_quantity, convert_to_asset, convert_to_quantity, raw_row, hash_id FROM canonical_transactions WHERE user_id = ? ORDER BY timestamp ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying transactions for userID %d: %w", userID, err)
	}
	defer rows.Close()

	var transactions []models.CanonicalTransaction
	for rows.Next() {
		var tx models.CanonicalTransaction
		var timestamp, quantity, price, total, fees, fromQty, toQty, rawRow string
		if err := rows.Scan(&tx.ID, &timestamp, &tx.Type, &tx.Asset, &quantity, &price, &total, &fees, &tx.Notes, &tx.Exchange, &tx.ConvertFromAsset, &fromQty, &tx.ConvertToAsset, &toQty, &rawRow, &tx.HashID); err != nil {
			return nil, fmt.Errorf("error scanning transaction row for userID %d: %w", userID, err)
		}
		if tx.Timestamp, err = time.Parse(time.RFC3339, timestamp); err != nil {
			return nil, fmt.Errorf("error parsing stored timestamp %q: %w", timestamp, err)
		}
		if tx.Quantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, fmt.Errorf("error parsing stored quantity %q: %w", quantity, err)
		}
		tx.PricePerUnit = parseStoredDecimal(price)
		tx.TotalValue = parseStoredDecimal(total)
		tx.Fees = parseStoredDecimal(fees)
		tx.ConvertFromQuantity = parseStoredDecimal(fromQty)
		tx.ConvertToQuantity = parseStoredDecimal(toQty)
		if rawRow != "" {
			tx.RawRow = strings.Split(rawRow, "\x1f")
		}
		transactions = append(transactions, tx)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transaction rows for userID %d: %w", userID, err)
	}

	s.reportCache.Set(cacheKey, transactions, cache.NoExpiration)
	logger.L.Info("DB fetch complete.", "userID", userID, "transactionCount", len(transactions))
	return transactions, nil
}

func (s *uploadServiceImpl) GetEquitySales(userID int64) ([]models.ReportableTransaction, error) {
	cacheKey := fmt.Sprintf(ckEquitySales, userID)
	if cached, found := s.reportCache.Get(cacheKey); found {
		return cached.([]models.ReportableTransaction), nil
	}

	logger.L.Debug("Fetching equity sales from DB", "userID", userID)
	rows, err := database.DB.Query(`SELECT symbol, description, date_acquired, date_sold, proceeds, cost_basis, gain_loss, quantity, is_short_term, is_covered, wash_sale_disallowed, adjustment_code, adjustment_amount, acquired_date_estimated, source, hash_id FROM equity_sales WHERE user_id = ? ORDER BY date_sold ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying equity sales for userID %d: %w", userID, err)
	}
	defer rows.Close()

	var sales []models.ReportableTransaction
	for rows.Next() {
		var tx models.ReportableTransaction
		var acquired, sold, proceeds, costBasis, gainLoss, quantity, washSale, adjAmount string
		if err := rows.Scan(&tx.Symbol, &tx.Description, &acquired, &sold, &proceeds, &costBasis, &gainLoss, &quantity, &tx.IsShortTerm, &tx.IsCovered, &washSale, &tx.AdjustmentCode, &adjAmount, &tx.AcquiredDateEstimated, &tx.Source, &tx.HashID); err != nil {
			return nil, fmt.Errorf("error scanning equity sale row for userID %d: %w", userID, err)
		}
		if tx.DateAcquired, err = time.Parse(time.RFC3339, acquired); err != nil {
			return nil, fmt.Errorf("error parsing stored date_acquired %q: %w", acquired, err)
		}
		if tx.DateSold, err = time.Parse(time.RFC3339, sold); err != nil {
			return nil, fmt.Errorf("error parsing stored date_sold %q: %w", sold, err)
		}
		tx.Proceeds = parseStoredDecimal(proceeds)
		tx.CostBasis = parseStoredDecimal(costBasis)
		tx.GainLoss = parseStoredDecimal(gainLoss)
		tx.Quantity = parseStoredDecimal(quantity)
		tx.WashSaleDisallowed = parseStoredDecimal(washSale)
		tx.AdjustmentAmount = parseStoredDecimal(adjAmount)
		sales = append(sales, tx)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over equity sale rows for userID %d: %w", userID, err)
	}

	s.reportCache.Set(cacheKey, sales, cache.NoExpiration)
	logger.L.Info("DB fetch complete.", "userID", userID, "equitySaleCount", len(sales))
	return sales, nil
}

func (s *uploadServiceImpl) DeleteAllTransactions(userID int64) error {
	dbTx, err := database.DB.Begin()
	if err != nil {
		return fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.Exec(`DELETE FROM canonical_transactions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("error deleting canonical transactions for userID %d: %w", userID, err)
	}
	if _, err := dbTx.Exec(`DELETE FROM equity_sales WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("error deleting equity sales for userID %d: %w", userID, err)
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("error committing deletes: %w", err)
	}

	s.InvalidateUserCache(userID)
	logger.L.Info("Deleted all imported data for user", "userID", userID)
	return nil
}

func (s *uploadServiceImpl) HasData(userID int64) (bool, error) {
	var count int
	err := database.DB.QueryRow(`SELECT (SELECT COUNT(1) FROM canonical_transactions WHERE user_id = ?) + (SELECT COUNT(1) FROM equity_sales WHERE user_id = ?)`, userID, userID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("error counting user data for userID %d: %w", userID, err)
	}
	return count > 0, nil
}

// sanitizeCell neutralizes imported free-text before it is persisted: users
// later feed these values into spreadsheets, so formula prefixes and control
// characters must not survive the import.
func sanitizeCell(s string) string {
	return validation.SanitizeForFormulaInjection(validation.StripUnprintable(s))
}

// parseStoredDecimal reads a decimal column that may be empty or NULL-ish.
// These columns were written by us from decimal.String, so a parse failure
// means corruption and zero is the least harmful answer.
func parseStoredDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		logger.L.Error("Unparseable stored decimal, treating as zero", "value", s, "error", err)
		return decimal.Zero
	}
	return d
}
