package models

import "fmt"

// CostBasisMethod selects how disposal quantities are matched against
// acquisition lots.
type CostBasisMethod int

const (
	// FIFO consumes the oldest lots first.
	FIFO CostBasisMethod = iota
	// LIFO consumes the newest lots first.
	LIFO
	// HIFO consumes the highest-basis lots first.
	HIFO
	// SpecID consumes lots in an order designated by the caller.
	SpecID
)

func (m CostBasisMethod) String() string {
	switch m {
	case FIFO:
		return "fifo"
	case LIFO:
		return "lifo"
	case HIFO:
		return "hifo"
	case SpecID:
		return "spec_id"
	default:
		return "unknown"
	}
}

// ParseCostBasisMethod parses a string into a CostBasisMethod.
func ParseCostBasisMethod(s string) (CostBasisMethod, error) {
	switch s {
	case "fifo":
		return FIFO, nil
	case "lifo":
		return LIFO, nil
	case "hifo":
		return HIFO, nil
	case "spec_id":
		return SpecID, nil
	default:
		return 0, fmt.Errorf("unknown cost basis method: %q", s)
	}
}
