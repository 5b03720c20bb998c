// Package kraken parses Kraken ledger CSV exports. A single trade appears as
// two ledger rows sharing a refid (the asset spent and the asset received),
// so parsing is a two-pass job: read rows, then pair them.
package kraken

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/username/capfolio/backend/src/models"
	"github.com/username/capfolio/backend/src/parsers/tabular"
)

type Parser struct{}

func NewParser() *Parser { return &Parser{} }

func (p *Parser) Name() string { return "kraken" }

func (p *Parser) CanParse(t tabular.Table) bool {
	if t.ContainsMarker("kraken") {
		return true
	}
	header := t[t.FindHeaderRow()]
	return tabular.ResolveColumn(header, []string{"refid"}) >= 0 &&
		tabular.ResolveColumn(header, []string{"aclass"}) >= 0
}

// assetNames maps Kraken's internal asset codes to their common symbols.
var assetNames = map[string]string{
	"XXBT": "BTC", "XBT": "BTC",
	"XETH": "ETH",
	"XXDG": "DOGE",
	"XXRP": "XRP",
	"XLTC": "LTC",
	"XXLM": "XLM",
	"XZEC": "ZEC",
	"XXMR": "XMR",
	"ZUSD": "USD", "ZEUR": "EUR", "ZGBP": "GBP", "ZCAD": "CAD", "ZJPY": "JPY",
}

var fiatCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "CAD": true, "JPY": true,
	"CHF": true, "AUD": true,
}

func normalizeAsset(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	// Staked assets carry suffixes like "ETH2.S" or "USD.HOLD".
	if dot := strings.IndexByte(code, '.'); dot > 0 {
		code = code[:dot]
	}
	if name, ok := assetNames[code]; ok {
		return name
	}
	return code
}

type ledgerRow struct {
	rowNum int
	refid  string
	time   time.Time
	typ    string
	asset  string
	amount decimal.Decimal
	fee    decimal.Decimal
	raw    []string
}

func (p *Parser) Parse(t tabular.Table) *models.ParseResult {
	result := &models.ParseResult{}

	headerIdx := t.FindHeaderRow()
	header := t[headerIdx]

	refidIdx := tabular.ResolveColumn(header, []string{"refid"})
	timeIdx := tabular.ResolveColumn(header, []string{"time", "date"})
	typeIdx := tabular.ResolveColumn(header, []string{"type"})
	assetIdx := tabular.ResolveColumn(header, []string{"asset"})
	amountIdx := tabular.ResolveColumn(header, []string{"amount"})
	feeIdx := tabular.ResolveColumn(header, []string{"fee"})

	mapping := models.CryptoColumnMapping{
		models.FieldDate:     timeIdx,
		models.FieldType:     typeIdx,
		models.FieldAsset:    assetIdx,
		models.FieldQuantity: amountIdx,
	}
	if missing := mapping.MissingRequired(); len(missing) > 0 {
		for _, field := range missing {
			result.Errors = append(result.Errors, models.ParseError{
				Row: headerIdx + 1, Column: field, Message: "required column not found",
			})
		}
		return result
	}

	var rows []ledgerRow
	for i := headerIdx + 1; i < len(t); i++ {
		row := t[i]
		if tabular.IsBlankRow(row) || tabular.IsFooterRow(row) {
			continue
		}
		rowNum := i + 1

		ts, err := tabular.ParseDate(tabular.Cell(row, timeIdx), models.DateFormatYMD)
		if err != nil {
			result.AddError(rowNum, models.FieldDate, "%s", err.Error())
			continue
		}
		amount, err := tabular.ParseDecimal(tabular.Cell(row, amountIdx))
		if err != nil {
			result.AddError(rowNum, models.FieldQuantity, "%s", err.Error())
			continue
		}
		fee, _ := tabular.ParseDecimal(tabular.Cell(row, feeIdx))

		rows = append(rows, ledgerRow{
			rowNum: rowNum,
			refid:  tabular.Cell(row, refidIdx),
			time:   ts,
			typ:    strings.ToLower(tabular.Cell(row, typeIdx)),
			asset:  normalizeAsset(tabular.Cell(row, assetIdx)),
			amount: amount,
			fee:    fee.Abs(),
			raw:    append([]string(nil), row...),
		})
	}

	// Pair trade legs by refid, preserving first-seen order.
	paired := map[string][]ledgerRow{}
	var order []string
	for _, r := range rows {
		if r.typ == "trade" || r.typ == "spend" || r.typ == "receive" {
			if _, seen := paired[r.refid]; !seen {
				order = append(order, r.refid)
			}
			paired[r.refid] = append(paired[r.refid], r)
			continue
		}
		p.emitSimple(result, r)
	}

	for _, refid := range order {
		legs := paired[refid]
		if len(legs) != 2 {
			for _, leg := range legs {
				result.AddWarning("row %d: trade leg with refid %s has no matching counterpart, recorded standalone", leg.rowNum, refid)
				p.emitSimple(result, leg)
			}
			continue
		}
		p.emitTrade(result, legs[0], legs[1])
	}

	return result
}

// emitTrade turns a paired spend/receive into one canonical buy, sell or
// convert transaction.
func (p *Parser) emitTrade(result *models.ParseResult, a, b ledgerRow) {
	spent, received := a, b
	if spent.amount.Sign() > 0 {
		spent, received = b, a
	}
	if spent.amount.Sign() > 0 || received.amount.Sign() < 0 {
		result.AddWarning("row %d: trade legs for refid %s do not have opposite signs, skipped", a.rowNum, a.refid)
		return
	}

	fees := spent.fee.Add(received.fee)
	raw := append(append([]string(nil), spent.raw...), received.raw...)

	switch {
	case fiatCurrencies[spent.asset]:
		// Fiat out, crypto in: a buy.
		tx := models.CanonicalTransaction{
			ID:         uuid.NewString(),
			Timestamp:  spent.time,
			Type:       models.TxTypeBuy,
			Asset:      received.asset,
			Quantity:   received.amount.Abs(),
			TotalValue: spent.amount.Abs(),
			Fees:       fees,
			Exchange:   p.Name(),
			RawRow:     raw,
		}
		if !tx.Quantity.IsZero() {
			tx.PricePerUnit = tx.TotalValue.Div(tx.Quantity)
		}
		tx.HashID = tx.ContentHash()
		result.Transactions = append(result.Transactions, tx)

	case fiatCurrencies[received.asset]:
		// Crypto out, fiat in: a sell.
		tx := models.CanonicalTransaction{
			ID:         uuid.NewString(),
			Timestamp:  spent.time,
			Type:       models.TxTypeSell,
			Asset:      spent.asset,
			Quantity:   spent.amount.Abs(),
			TotalValue: received.amount.Abs(),
			Fees:       fees,
			Exchange:   p.Name(),
			RawRow:     raw,
		}
		if !tx.Quantity.IsZero() {
			tx.PricePerUnit = tx.TotalValue.Div(tx.Quantity)
		}
		tx.HashID = tx.ContentHash()
		result.Transactions = append(result.Transactions, tx)

	default:
		// Crypto to crypto: a convert. The ledger carries no USD value,
		// so the engine values the disposal at the basis it releases
		// unless a better value is present.
		tx := models.CanonicalTransaction{
			ID:                  uuid.NewString(),
			Timestamp:           spent.time,
			Type:                models.TxTypeConvert,
			Asset:               spent.asset,
			Quantity:            spent.amount.Abs(),
			Fees:                fees,
			Exchange:            p.Name(),
			ConvertFromAsset:    spent.asset,
			ConvertFromQuantity: spent.amount.Abs(),
			ConvertToAsset:      received.asset,
			ConvertToQuantity:   received.amount.Abs(),
			RawRow:              raw,
		}
		tx.HashID = tx.ContentHash()
		result.Transactions = append(result.Transactions, tx)
		result.AddWarning("row %d: crypto-to-crypto trade %s->%s carries no fiat value in the ledger; fair market value at the time of the trade is not available", spent.rowNum, spent.asset, received.asset)
	}
}

// emitSimple handles non-trade ledger rows: deposits, withdrawals, staking
// rewards and transfers.
func (p *Parser) emitSimple(result *models.ParseResult, r ledgerRow) {
	if fiatCurrencies[r.asset] {
		// Fiat funding movements are not taxable crypto events.
		return
	}

	var typ models.TransactionType
	switch r.typ {
	case "deposit", "receive":
		typ = models.TxTypeReceive
	case "withdrawal", "spend":
		typ = models.TxTypeSend
	case "staking", "earn", "reward":
		typ = models.TxTypeIncome
	case "transfer":
		if r.amount.Sign() >= 0 {
			typ = models.TxTypeReceive
		} else {
			typ = models.TxTypeSend
		}
	case "trade":
		// Unpaired trade leg routed here by the caller.
		if r.amount.Sign() >= 0 {
			typ = models.TxTypeBuy
		} else {
			typ = models.TxTypeSell
		}
	default:
		typ = models.TxTypeOther
		result.AddWarning("row %d: unrecognized ledger type %q, recorded as other", r.rowNum, r.typ)
	}

	tx := models.CanonicalTransaction{
		ID:        uuid.NewString(),
		Timestamp: r.time,
		Type:      typ,
		Asset:     r.asset,
		Quantity:  r.amount.Abs(),
		Fees:      r.fee,
		Exchange:  p.Name(),
		RawRow:    r.raw,
	}
	tx.HashID = tx.ContentHash()
	result.Transactions = append(result.Transactions, tx)
}
