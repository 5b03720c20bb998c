package processors

import (
	"time"

	"github.com/username/capfolio/backend/src/models"
)

// longTermThreshold is the fixed duration boundary between short and long
// term. A holding period of more than 365 days is long term; the calendar
// anniversary rule is intentionally not applied, so disposals exactly one
// year after acquisition in a leap year can classify differently than the
// IRS tables would.
const longTermThreshold = 365 * 24 * time.Hour

// IsShortTerm reports whether a disposal on sold of units acquired on
// acquired is short term.
func IsShortTerm(acquired, sold time.Time) bool {
	return sold.Sub(acquired) <= longTermThreshold
}

// Form8949Category classifies a brokered disposal into box A, B, D or E
// based on holding period and whether the broker reported basis to the IRS.
// Transactions with no 1099-B at all belong in C or F, see
// Form8949CategoryNo1099.
func Form8949Category(acquired, sold time.Time, basisReported bool) models.Form8949Category {
	if IsShortTerm(acquired, sold) {
		if basisReported {
			return models.CategoryA
		}
		return models.CategoryB
	}
	if basisReported {
		return models.CategoryD
	}
	return models.CategoryE
}

// Form8949CategoryNo1099 classifies a disposal for which no 1099-B was
// issued, which covers essentially all crypto exchange activity.
func Form8949CategoryNo1099(acquired, sold time.Time) models.Form8949Category {
	if IsShortTerm(acquired, sold) {
		return models.CategoryC
	}
	return models.CategoryF
}
