package ledger

import (
	"testing"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func qty(primary, secondary string) Quantity {
	return Quantity{
		Primary:   decimal.RequireFromString(primary),
		Secondary: decimal.RequireFromString(secondary),
	}
}

func createTestLot(t *testing.T, offered Quantity, bank *BankDetails) *InwardLot {
	t.Helper()
	lot, err := NewInwardLot("INW-0001", "SR-2024-118/WR-77", "Paddy", offered, bank, "receiver")
	require.NoError(t, err)
	return lot
}

func completeBank() *BankDetails {
	return &BankDetails{BankName: "State Bank", BranchName: "Central", AccountRef: "AC-1", LoanAccount: "LN-9"}
}

func createTestReservation(t *testing.T, kind Kind, parent ParentOffer, reserved Quantity) *Reservation {
	t.Helper()
	p := NewReservationParams{
		Kind:           kind,
		Code:           kind.FormatCode(1),
		Parent:         parent,
		Reserved:       reserved,
		AttachmentRefs: []string{"https://files.example/doc-1.pdf"},
		CreatedBy:      "maker",
	}
	if kind == KindOutwardMovement {
		p.Stacks = []StackAllocation{{Label: "A", Quantity: reserved.Primary}}
	}
	r, err := NewReservation(p)
	require.NoError(t, err)
	return r
}

func approve(t *testing.T, r *Reservation) {
	t.Helper()
	require.NoError(t, r.Transition(StatusApproved, "checked", "checker"))
}

func assertDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code)
}

func childOf(t *testing.T, kind Kind, parentID uuid.UUID, status Status, reserved Quantity) *Reservation {
	t.Helper()
	r := &Reservation{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Kind:              kind,
		Parent:            ParentRef{Kind: KindInwardLot, ID: parentID},
		Reserved:          reserved,
		Status:            status,
	}
	return r
}
