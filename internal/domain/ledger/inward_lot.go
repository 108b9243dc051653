package ledger

import (
	"strings"

	"github.com/erp/ledger/internal/domain/shared"
)

// AggregateTypeInwardLot is the aggregate type name used in events
const AggregateTypeInwardLot = "InwardLot"

// IssueMode tags how an inward lot may be drawn down
type IssueMode string

const (
	// IssueModeBanked lots are released through release orders
	IssueModeBanked IssueMode = "banked"
	// IssueModeDirect lots lack bank details and are exposed to delivery orders directly
	IssueModeDirect IssueMode = "direct"
)

// BankDetails is the financing metadata attached to a banked lot
type BankDetails struct {
	BankName    string
	BranchName  string
	AccountRef  string
	LoanAccount string
}

// Complete returns true when every bank field is filled in
func (b *BankDetails) Complete() bool {
	if b == nil {
		return false
	}
	for _, v := range []string{b.BankName, b.BranchName, b.AccountRef, b.LoanAccount} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// InwardLot is the root of the allocation cascade: goods physically received
type InwardLot struct {
	shared.BaseAggregateRoot
	Code       string
	NaturalKey string
	Commodity  string
	Offered    Quantity
	Bank       *BankDetails
	IssueMode  IssueMode
	CreatedBy  string
}

// NewInwardLot registers a received lot. The issue mode follows from the bank details.
func NewInwardLot(code, naturalKey, commodity string, offered Quantity, bank *BankDetails, createdBy string) (*InwardLot, error) {
	naturalKey = strings.TrimSpace(naturalKey)
	if naturalKey == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "natural key (SR/WR number) is required")
	}
	if strings.TrimSpace(commodity) == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "commodity is required")
	}
	if !offered.Primary.IsPositive() || !offered.Secondary.IsPositive() {
		return nil, NewInvalidQuantityError("inward lot quantity must be positive")
	}
	if strings.TrimSpace(createdBy) == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "actor is required")
	}

	mode := IssueModeDirect
	if bank.Complete() {
		mode = IssueModeBanked
	}

	lot := &InwardLot{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              code,
		NaturalKey:        naturalKey,
		Commodity:         strings.TrimSpace(commodity),
		Offered:           offered,
		Bank:              bank,
		IssueMode:         mode,
		CreatedBy:         createdBy,
	}
	lot.AddDomainEvent(NewInwardLotRegisteredEvent(lot))
	return lot, nil
}

// Offer exposes the lot as a parent
func (l *InwardLot) Offer() ParentOffer {
	return ParentOffer{
		Kind:       KindInwardLot,
		ID:         l.ID,
		Code:       l.Code,
		NaturalKey: l.NaturalKey,
		Offered:    l.Offered,
		IssueMode:  l.IssueMode,
		CreatedAt:  l.CreatedAt,
	}
}
