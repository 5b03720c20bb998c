package generic

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/username/capfolio/backend/src/models"
)

// equityHash fingerprints a reportable row so re-uploading the same export
// does not duplicate it. It hashes the parsed identity fields plus the raw
// row, so two legitimately identical trades on different raw lines still
// collide, which is the desired behavior for broker re-exports.
func equityHash(tx *models.ReportableTransaction, raw []string) string {
	h := sha256.New()
	h.Write([]byte(strings.Join([]string{
		tx.Source,
		tx.Symbol,
		tx.DateAcquired.Format("2006-01-02"),
		tx.DateSold.Format("2006-01-02"),
		tx.Proceeds.String(),
		tx.CostBasis.String(),
		strings.Join(raw, "\x1f"),
	}, "\x1f")))
	return hex.EncodeToString(h.Sum(nil))
}
