package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInwardLot(t *testing.T) {
	t.Run("complete bank details make a banked lot", func(t *testing.T) {
		lot := createTestLot(t, qty("100", "5000"), completeBank())
		assert.Equal(t, IssueModeBanked, lot.IssueMode)
		assert.Equal(t, 1, lot.Version)
		require.Len(t, lot.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeInwardLotRegistered, lot.GetDomainEvents()[0].EventType())
	})

	t.Run("missing bank details make a direct issue lot", func(t *testing.T) {
		partial := completeBank()
		partial.LoanAccount = ""
		assert.Equal(t, IssueModeDirect, createTestLot(t, qty("100", "5000"), partial).IssueMode)
		assert.Equal(t, IssueModeDirect, createTestLot(t, qty("100", "5000"), nil).IssueMode)
	})

	t.Run("requires a positive quantity", func(t *testing.T) {
		_, err := NewInwardLot("INW-0001", "SR-1", "Paddy", qty("0", "10"), nil, "receiver")
		assertDomainCode(t, err, CodeInvalidQuantity)
	})
}

func TestNewReservation(t *testing.T) {
	lot := createTestLot(t, qty("100", "5000"), completeBank())

	t.Run("opens a pending reservation linked to its parent", func(t *testing.T) {
		ro := createTestReservation(t, KindReleaseOrder, lot.Offer(), qty("40", "2000"))

		assert.Equal(t, StatusPending, ro.Status)
		assert.Equal(t, "RO-0001", ro.Code)
		assert.Equal(t, ParentRef{Kind: KindInwardLot, ID: lot.ID, Code: lot.Code, NaturalKey: lot.NaturalKey}, ro.Parent)
		assert.Equal(t, lot.NaturalKey, ro.NaturalKey)
		require.Len(t, ro.PendingAudit(), 1)
		assert.Equal(t, AuditActionCreated, ro.PendingAudit()[0].Action)
		require.Len(t, ro.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeReservationCreated, ro.GetDomainEvents()[0].EventType())
	})

	t.Run("requires an attachment", func(t *testing.T) {
		_, err := NewReservation(NewReservationParams{
			Kind: KindReleaseOrder, Code: "RO-0002", Parent: lot.Offer(),
			Reserved: qty("1", "1"), AttachmentRefs: []string{" "}, CreatedBy: "maker",
		})
		assertDomainCode(t, err, CodeMissingAttachment)
	})

	t.Run("rejects a banked lot as a delivery order parent", func(t *testing.T) {
		_, err := NewReservation(NewReservationParams{
			Kind: KindDeliveryOrder, Code: "DO-0001", Parent: lot.Offer(),
			Reserved: qty("1", "1"), AttachmentRefs: []string{"u"}, CreatedBy: "maker",
		})
		assertDomainCode(t, err, CodeInvalidParentKind)
	})

	t.Run("accepts a direct issue lot as a delivery order parent", func(t *testing.T) {
		direct := createTestLot(t, qty("100", "5000"), nil)
		do := createTestReservation(t, KindDeliveryOrder, direct.Offer(), qty("10", "500"))
		assert.Equal(t, KindInwardLot, do.Parent.Kind)
	})

	t.Run("rejects stacks outside outward movements", func(t *testing.T) {
		_, err := NewReservation(NewReservationParams{
			Kind: KindReleaseOrder, Code: "RO-0003", Parent: lot.Offer(),
			Reserved: qty("1", "1"), AttachmentRefs: []string{"u"}, CreatedBy: "maker",
			Stacks: []StackAllocation{{Label: "A", Quantity: decimal.NewFromInt(1)}},
		})
		assertDomainCode(t, err, CodeInvalidStackAllocation)
	})
}

func TestReservation_Transition(t *testing.T) {
	lot := createTestLot(t, qty("100", "5000"), completeBank())

	t.Run("requires a remark", func(t *testing.T) {
		ro := createTestReservation(t, KindReleaseOrder, lot.Offer(), qty("40", "2000"))
		assertDomainCode(t, ro.Transition(StatusApproved, "  ", "checker"), CodeMissingRemark)
		assert.Equal(t, StatusPending, ro.Status)
	})

	t.Run("records status, remark and actor", func(t *testing.T) {
		ro := createTestReservation(t, KindReleaseOrder, lot.Offer(), qty("40", "2000"))
		require.NoError(t, ro.Transition(StatusRejected, "doc mismatch", "checker"))

		assert.Equal(t, StatusRejected, ro.Status)
		assert.Equal(t, "doc mismatch", ro.StatusRemark)
		assert.Equal(t, "checker", ro.StatusUpdatedBy)
		assert.NotNil(t, ro.StatusUpdatedAt)
		assert.Equal(t, 2, ro.Version)
		assert.Len(t, ro.PendingAudit(), 2)
	})

	t.Run("terminal states accept no further transition", func(t *testing.T) {
		ro := createTestReservation(t, KindReleaseOrder, lot.Offer(), qty("40", "2000"))
		approve(t, ro)
		assertDomainCode(t, ro.Transition(StatusRejected, "late", "checker"), CodeInvalidTransition)
		assertDomainCode(t, ro.Transition(StatusApproved, "again", "checker"), CodeInvalidTransition)
	})
}

func TestReservation_Revise(t *testing.T) {
	lot := createTestLot(t, qty("100", "5000"), completeBank())

	t.Run("only resubmitted reservations can be revised", func(t *testing.T) {
		ro := createTestReservation(t, KindReleaseOrder, lot.Offer(), qty("40", "2000"))
		err := ro.Revise(ReviseParams{Reserved: qty("30", "1500"), Actor: "maker"})
		assertDomainCode(t, err, CodeNotRevisable)
	})

	t.Run("revising resets to pending and keeps code, parent and attachments", func(t *testing.T) {
		ro := createTestReservation(t, KindReleaseOrder, lot.Offer(), qty("40", "2000"))
		require.NoError(t, ro.Transition(StatusResubmitted, "wrong weight", "checker"))

		err := ro.Revise(ReviseParams{Reserved: qty("35", "1750.250"), BalanceBefore: qty("100", "5000"), Actor: "maker"})
		require.NoError(t, err)

		assert.Equal(t, StatusPending, ro.Status)
		assert.Equal(t, "RO-0001", ro.Code)
		assert.Equal(t, lot.ID, ro.Parent.ID)
		assert.Equal(t, "wrong weight", ro.StatusRemark)
		assert.Equal(t, []string{"https://files.example/doc-1.pdf"}, ro.AttachmentRefs)
		assert.Equal(t, 1, ro.Revision)
		assert.True(t, ro.Reserved.Equal(qty("35", "1750.25")))

		approve(t, ro)
		assert.Equal(t, StatusApproved, ro.Status)
	})
}

// Inward 100, RO 40: pending does not count, approved does.
func TestScenario_PendingDoesNotCountUntilApproved(t *testing.T) {
	lot := createTestLot(t, qty("100", "5000"), completeBank())
	ro := createTestReservation(t, KindReleaseOrder, lot.Offer(), qty("40", "2000"))
	children := []*Reservation{ro}

	assert.True(t, RemainingBalance(lot.Offered, children).Primary.Equal(decimal.NewFromInt(100)))

	approve(t, ro)
	assert.True(t, RemainingBalance(lot.Offered, children).Primary.Equal(decimal.NewFromInt(60)))
}

// RO offers 60; a DO taking all 60 units takes all of the RO's mass whatever was asked,
// and exhausts the RO until it gains a rejected child.
func TestScenario_LastUnitAdjustmentExhaustsParent(t *testing.T) {
	lot := createTestLot(t, qty("100", "5000"), completeBank())
	ro1 := createTestReservation(t, KindReleaseOrder, lot.Offer(), qty("40", "2000"))
	approve(t, ro1)
	ro2 := createTestReservation(t, KindReleaseOrder, lot.Offer(), qty("60", "3000.125"))
	approve(t, ro2)
	assert.True(t, RemainingBalance(lot.Offered, []*Reservation{ro1, ro2}).IsZero())

	offer, err := ro2.Offer()
	require.NoError(t, err)

	var children []*Reservation
	plan, err := PlanAllocation(ro2.Code, qty("60", "2900"), ComputeBalance(offer.Offered, children))
	require.NoError(t, err)
	assert.True(t, plan.Adjusted)
	assert.True(t, plan.Reserved.Secondary.Equal(decimal.RequireFromString("3000.125")))

	do := createTestReservation(t, KindDeliveryOrder, offer, plan.Reserved)
	children = append(children, do)
	approve(t, do)

	b := ComputeBalance(offer.Offered, children)
	assert.True(t, b.Remaining.IsZero())
	assert.False(t, IsOfferable(b, children, false))

	retry := createTestReservation(t, KindDeliveryOrder, offer, qty("5", "10"))
	require.NoError(t, retry.Transition(StatusRejected, "duplicate", "checker"))
	children = append(children, retry)
	assert.True(t, IsOfferable(ComputeBalance(offer.Offered, children), children, false))
}

// A rejected DO stops counting, leaves its RO untouched, and cannot be revised;
// only a resubmitted DO opens the revise path.
func TestScenario_RejectionExcludesAndOnlyResubmitRevises(t *testing.T) {
	lot := createTestLot(t, qty("100", "5000"), completeBank())
	ro := createTestReservation(t, KindReleaseOrder, lot.Offer(), qty("60", "3000"))
	approve(t, ro)
	offer, err := ro.Offer()
	require.NoError(t, err)

	rejected := createTestReservation(t, KindDeliveryOrder, offer, qty("20", "1000"))
	require.NoError(t, rejected.Transition(StatusRejected, "doc mismatch", "checker"))

	children := []*Reservation{rejected}
	assert.True(t, RemainingBalance(offer.Offered, children).Equal(offer.Offered))
	assert.True(t, RemainingBalance(lot.Offered, []*Reservation{ro}).Primary.Equal(decimal.NewFromInt(40)))

	assertDomainCode(t, rejected.Revise(ReviseParams{Reserved: qty("20", "1000"), Actor: "maker"}), CodeNotRevisable)
	assertDomainCode(t, rejected.Transition(StatusResubmitted, "retry", "checker"), CodeInvalidTransition)

	bounced := createTestReservation(t, KindDeliveryOrder, offer, qty("20", "1000"))
	require.NoError(t, bounced.Transition(StatusResubmitted, "doc mismatch", "checker"))
	assert.NoError(t, bounced.Revise(ReviseParams{Reserved: qty("20", "1000"), Actor: "maker"}))
}

// Stacks [{A,30},{B,20}] against 60 units fail before a reservation exists.
func TestScenario_StackMismatchRejected(t *testing.T) {
	direct := createTestLot(t, qty("100", "5000"), nil)
	do := createTestReservation(t, KindDeliveryOrder, direct.Offer(), qty("60", "3000"))
	approve(t, do)
	offer, err := do.Offer()
	require.NoError(t, err)

	out, err := NewReservation(NewReservationParams{
		Kind:           KindOutwardMovement,
		Code:           "OUT-0001",
		Parent:         offer,
		Reserved:       qty("60", "3000"),
		AttachmentRefs: []string{"u"},
		Stacks: []StackAllocation{
			{Label: "A", Quantity: decimal.NewFromInt(30)},
			{Label: "B", Quantity: decimal.NewFromInt(20)},
		},
		CreatedBy: "maker",
	})
	assert.Nil(t, out)
	assertDomainCode(t, err, CodeStackAllocationMismatch)

	ok := createTestReservation(t, KindOutwardMovement, offer, qty("60", "3000"))
	assert.Equal(t, do.Code, ok.NaturalKey)
	assert.True(t, SumStacks(ok.Stacks).Equal(ok.Reserved.Primary))
}

func TestReservation_OfferRequiresApproval(t *testing.T) {
	lot := createTestLot(t, qty("100", "5000"), completeBank())
	ro := createTestReservation(t, KindReleaseOrder, lot.Offer(), qty("40", "2000"))

	_, err := ro.Offer()
	assertDomainCode(t, err, CodeParentNotOfferable)
}
