package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SecondaryScale is the number of decimal places kept for the secondary (mass) unit
const SecondaryScale int32 = 3

// Quantity is a pair of amounts: primary units (bags) and secondary units (mass)
type Quantity struct {
	Primary   decimal.Decimal `json:"primary"`
	Secondary decimal.Decimal `json:"secondary"`
}

// NewQuantity builds a reservable quantity.
// Primary must be a positive whole number of units; secondary must be positive with at most 3 decimals.
func NewQuantity(primary, secondary decimal.Decimal) (Quantity, error) {
	if !primary.IsPositive() {
		return Quantity{}, NewInvalidQuantityError("reserved primary quantity must be positive")
	}
	if !primary.Equal(primary.Truncate(0)) {
		return Quantity{}, NewInvalidQuantityError("reserved primary quantity must be a whole number of units")
	}
	if !secondary.IsPositive() {
		return Quantity{}, NewInvalidQuantityError("reserved secondary quantity must be positive")
	}
	if !secondary.Equal(secondary.Truncate(SecondaryScale)) {
		return Quantity{}, NewInvalidQuantityError(
			fmt.Sprintf("reserved secondary quantity allows at most %d decimal places", SecondaryScale))
	}
	return Quantity{Primary: primary, Secondary: secondary}, nil
}

// ParseQuantity parses wire strings into a validated Quantity
func ParseQuantity(primary, secondary string) (Quantity, error) {
	p, err := decimal.NewFromString(primary)
	if err != nil {
		return Quantity{}, NewInvalidQuantityError(fmt.Sprintf("reserved primary quantity %q is not numeric", primary))
	}
	s, err := decimal.NewFromString(secondary)
	if err != nil {
		return Quantity{}, NewInvalidQuantityError(fmt.Sprintf("reserved secondary quantity %q is not numeric", secondary))
	}
	return NewQuantity(p, s)
}

// Add returns q + o
func (q Quantity) Add(o Quantity) Quantity {
	return Quantity{Primary: q.Primary.Add(o.Primary), Secondary: q.Secondary.Add(o.Secondary)}
}

// Sub returns q - o without clamping
func (q Quantity) Sub(o Quantity) Quantity {
	return Quantity{Primary: q.Primary.Sub(o.Primary), Secondary: q.Secondary.Sub(o.Secondary)}
}

// FloorZero clamps negative components to zero
func (q Quantity) FloorZero() Quantity {
	if q.Primary.IsNegative() {
		q.Primary = decimal.Zero
	}
	if q.Secondary.IsNegative() {
		q.Secondary = decimal.Zero
	}
	return q
}

// IsNegative reports whether either component is below zero
func (q Quantity) IsNegative() bool {
	return q.Primary.IsNegative() || q.Secondary.IsNegative()
}

// IsZero reports whether both components are zero
func (q Quantity) IsZero() bool {
	return q.Primary.IsZero() && q.Secondary.IsZero()
}

// Equal compares both components numerically
func (q Quantity) Equal(o Quantity) bool {
	return q.Primary.Equal(o.Primary) && q.Secondary.Equal(o.Secondary)
}

func (q Quantity) String() string {
	return fmt.Sprintf("%s units / %s", q.Primary.String(), q.Secondary.StringFixed(SecondaryScale))
}
