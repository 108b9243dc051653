package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// StackAllocation splits part of an outward movement across a named storage stack
type StackAllocation struct {
	Label    string
	Quantity decimal.Decimal
}

// SumStacks adds up stack quantities
func SumStacks(stacks []StackAllocation) decimal.Decimal {
	total := decimal.Zero
	for _, s := range stacks {
		total = total.Add(s.Quantity)
	}
	return total
}

// ValidateStacks checks the stack split of an outward movement.
// Labels must be present and unique, quantities positive whole units,
// and the quantities must add up to exactly the reserved primary quantity.
func ValidateStacks(stacks []StackAllocation, reservedPrimary decimal.Decimal) error {
	if len(stacks) == 0 {
		return NewInvalidStackAllocationError("outward movement requires at least one stack allocation")
	}
	seen := make(map[string]struct{}, len(stacks))
	for i, s := range stacks {
		label := strings.TrimSpace(s.Label)
		if label == "" {
			return NewInvalidStackAllocationError(fmt.Sprintf("stack allocation %d has no label", i+1))
		}
		key := strings.ToLower(label)
		if _, dup := seen[key]; dup {
			return NewInvalidStackAllocationError(fmt.Sprintf("stack %q is allocated more than once", label))
		}
		seen[key] = struct{}{}
		if !s.Quantity.IsPositive() || !s.Quantity.Equal(s.Quantity.Truncate(0)) {
			return NewInvalidStackAllocationError(
				fmt.Sprintf("stack %q quantity must be a positive whole number, got %s", label, s.Quantity.String()))
		}
	}
	if total := SumStacks(stacks); !total.Equal(reservedPrimary) {
		return NewStackAllocationMismatchError(total, reservedPrimary)
	}
	return nil
}

func normalizeStacks(stacks []StackAllocation) []StackAllocation {
	out := make([]StackAllocation, len(stacks))
	for i, s := range stacks {
		out[i] = StackAllocation{Label: strings.TrimSpace(s.Label), Quantity: s.Quantity}
	}
	return out
}
