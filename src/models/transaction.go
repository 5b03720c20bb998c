package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a canonical transaction. Parsers are responsible
// for mapping each source's vocabulary onto these values.
type TransactionType string

const (
	TxTypeBuy          TransactionType = "buy"
	TxTypeSell         TransactionType = "sell"
	TxTypeConvert      TransactionType = "convert"
	TxTypeSend         TransactionType = "send"
	TxTypeReceive      TransactionType = "receive"
	TxTypeIncome       TransactionType = "income"
	TxTypeAirdrop      TransactionType = "airdrop"
	TxTypeMining       TransactionType = "mining"
	TxTypeGiftSent     TransactionType = "gift_sent"
	TxTypeGiftReceived TransactionType = "gift_received"
	TxTypeFork         TransactionType = "fork"
	TxTypeOther        TransactionType = "other"
)

// IsAcquisition reports whether the type adds units to the holder's ledger.
func (t TransactionType) IsAcquisition() bool {
	switch t {
	case TxTypeBuy, TxTypeReceive, TxTypeIncome, TxTypeAirdrop, TxTypeMining, TxTypeFork, TxTypeGiftReceived:
		return true
	}
	return false
}

// IsDisposal reports whether the type removes units from the holder's ledger.
// Sends are deliberately excluded: an external transfer keeps the units in the
// taxpayer's hands, it only moves them between wallets.
func (t TransactionType) IsDisposal() bool {
	switch t {
	case TxTypeSell, TxTypeConvert, TxTypeGiftSent:
		return true
	}
	return false
}

// CanonicalTransaction is the unified, source-agnostic representation of one
// imported transaction row. Each parser populates as many fields as its source
// supports. Instances are created once per parse and never mutated afterwards.
type CanonicalTransaction struct {
	ID           string          `json:"id"`
	Timestamp    time.Time       `json:"timestamp"`
	Type         TransactionType `json:"type"`
	Asset        string          `json:"asset"`
	Quantity     decimal.Decimal `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	TotalValue   decimal.Decimal `json:"total_value"`
	Fees         decimal.Decimal `json:"fees"`
	Notes        string          `json:"notes,omitempty"`
	Exchange     string          `json:"exchange,omitempty"`

	// Convert legs. Populated only for Type == convert.
	ConvertFromAsset    string          `json:"convert_from_asset,omitempty"`
	ConvertFromQuantity decimal.Decimal `json:"convert_from_quantity"`
	ConvertToAsset      string          `json:"convert_to_asset,omitempty"`
	ConvertToQuantity   decimal.Decimal `json:"convert_to_quantity"`

	// RawRow preserves the original cells for audit trails.
	RawRow []string `json:"raw_row,omitempty"`

	// HashID deduplicates re-uploads of the same export.
	HashID string `json:"hash_id,omitempty"`
}

// ContentHash derives a stable identity from the source content, so uploading
// the same export twice does not double-count transactions.
func (tx *CanonicalTransaction) ContentHash() string {
	input := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s",
		tx.Exchange,
		tx.Timestamp.UTC().Format(time.RFC3339),
		tx.Type,
		tx.Asset,
		tx.Quantity.String(),
		tx.TotalValue.String(),
		strings.Join(tx.RawRow, "\x1f"),
	)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}
