package ledger

import (
	"context"
	"slices"
	"testing"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func codesOf(items []ParentOption) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Code
	}
	return out
}

func TestQueryService_ListParents(t *testing.T) {
	t.Run("hides exhausted parents unless asked", func(t *testing.T) {
		l := newTestLedger(t)
		full := l.registerLot(t, "100", "5000", true)
		spent := l.registerLot(t, "50", "2500", true)
		ro := l.mustReserve(t, ledger.KindReleaseOrder, ledger.KindInwardLot, spent.ID, "50", "2500")
		l.mustTransition(t, ro.ID, ledger.StatusApproved)

		list, err := l.queries.ListParents(context.Background(), ListParentsRequest{
			ChildKind: string(ledger.KindReleaseOrder), Actor: l.checker,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{full.Code}, codesOf(list.Items))
		assert.Equal(t, int64(1), list.Total)
		assert.Equal(t, "balance_available", list.Items[0].Reason)

		list, err = l.queries.ListParents(context.Background(), ListParentsRequest{
			ChildKind: string(ledger.KindReleaseOrder), IncludeExhausted: true, Actor: l.checker,
		})
		require.NoError(t, err)
		require.Len(t, list.Items, 2)
		assert.Equal(t, []string{spent.Code, full.Code}, codesOf(list.Items))
		assert.False(t, list.Items[0].Offerable)
		assert.Equal(t, "0", list.Items[0].Balance.Remaining.Primary)
	})

	t.Run("a rejected child keeps an exhausted parent selectable", func(t *testing.T) {
		l := newTestLedger(t)
		lot := l.registerLot(t, "100", "5000", true)
		refused := l.mustReserve(t, ledger.KindReleaseOrder, ledger.KindInwardLot, lot.ID, "50", "2500")
		l.mustTransition(t, refused.ID, ledger.StatusRejected)
		all := l.mustReserve(t, ledger.KindReleaseOrder, ledger.KindInwardLot, lot.ID, "100", "5000")
		l.mustTransition(t, all.ID, ledger.StatusApproved)

		list, err := l.queries.ListParents(context.Background(), ListParentsRequest{
			ChildKind: string(ledger.KindReleaseOrder), Actor: l.checker,
		})
		require.NoError(t, err)
		require.Len(t, list.Items, 1)
		assert.Equal(t, "rejected_child", list.Items[0].Reason)

		// selectable, but nothing can be admitted
		_, err = l.reserve(ledger.KindReleaseOrder, ledger.KindInwardLot, lot.ID, "1", "1")
		requireDomainError(t, err, ledger.CodeQuantityExceedsBalance)
	})

	t.Run("a rejected grandchild keeps an exhausted parent selectable", func(t *testing.T) {
		l := newTestLedger(t)
		lot := l.registerLot(t, "100", "5000", true)
		ro := l.mustReserve(t, ledger.KindReleaseOrder, ledger.KindInwardLot, lot.ID, "100", "5000")
		l.mustTransition(t, ro.ID, ledger.StatusApproved)
		do := l.mustReserve(t, ledger.KindDeliveryOrder, ledger.KindReleaseOrder, ro.ID, "10", "500")
		l.mustTransition(t, do.ID, ledger.StatusRejected)

		list, err := l.queries.ListParents(context.Background(), ListParentsRequest{
			ChildKind: string(ledger.KindReleaseOrder), Actor: l.checker,
		})
		require.NoError(t, err)
		require.Len(t, list.Items, 1)
		assert.Equal(t, lot.Code, list.Items[0].Code)
		assert.Equal(t, "downstream_rejected", list.Items[0].Reason)
	})

	t.Run("delivery orders choose approved release orders or direct-issue lots", func(t *testing.T) {
		l := newTestLedger(t)
		banked := l.registerLot(t, "100", "5000", true)
		direct := l.registerLot(t, "80", "4000", false)
		approved := l.mustReserve(t, ledger.KindReleaseOrder, ledger.KindInwardLot, banked.ID, "40", "2000")
		l.mustTransition(t, approved.ID, ledger.StatusApproved)
		l.mustReserve(t, ledger.KindReleaseOrder, ledger.KindInwardLot, banked.ID, "10", "500")

		list, err := l.queries.ListParents(context.Background(), ListParentsRequest{
			ChildKind: string(ledger.KindDeliveryOrder), Actor: l.checker,
		})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{direct.Code, approved.Code}, codesOf(list.Items))
		assert.Equal(t, int64(2), list.Total)
	})

	t.Run("exhausted parents do not leave empty pages", func(t *testing.T) {
		l := newTestLedger(t)
		oldest := l.registerLot(t, "10", "500", true)
		for range 2 {
			lot := l.registerLot(t, "10", "500", true)
			ro := l.mustReserve(t, ledger.KindReleaseOrder, ledger.KindInwardLot, lot.ID, "10", "500")
			l.mustTransition(t, ro.ID, ledger.StatusApproved)
		}

		first, err := l.queries.ListParents(context.Background(), ListParentsRequest{
			ChildKind: string(ledger.KindReleaseOrder), Page: 1, PageSize: 2, Actor: l.checker,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{oldest.Code}, codesOf(first.Items))
		assert.Equal(t, int64(1), first.Total)

		second, err := l.queries.ListParents(context.Background(), ListParentsRequest{
			ChildKind: string(ledger.KindReleaseOrder), Page: 2, PageSize: 2, Actor: l.checker,
		})
		require.NoError(t, err)
		assert.Empty(t, second.Items)
		assert.Equal(t, first.Total, second.Total)
	})

	t.Run("delivery order parents are paged as one list", func(t *testing.T) {
		l := newTestLedger(t)
		banked := l.registerLot(t, "100", "5000", true)
		var want []string
		for range 2 {
			ro := l.mustReserve(t, ledger.KindReleaseOrder, ledger.KindInwardLot, banked.ID, "20", "1000")
			l.mustTransition(t, ro.ID, ledger.StatusApproved)
			want = append(want, ro.Code)
			want = append(want, l.registerLot(t, "30", "1500", false).Code)
		}
		slices.Reverse(want)

		var got []string
		for page := 1; page <= 2; page++ {
			list, err := l.queries.ListParents(context.Background(), ListParentsRequest{
				ChildKind: string(ledger.KindDeliveryOrder), Page: page, PageSize: 3, Actor: l.checker,
			})
			require.NoError(t, err)
			assert.Equal(t, int64(4), list.Total)
			assert.LessOrEqual(t, len(list.Items), 3)
			got = append(got, codesOf(list.Items)...)
		}
		assert.Equal(t, want, got)
	})

	t.Run("inward lots have no parents", func(t *testing.T) {
		l := newTestLedger(t)
		_, err := l.queries.ListParents(context.Background(), ListParentsRequest{
			ChildKind: string(ledger.KindInwardLot), Actor: l.checker,
		})
		requireDomainError(t, err, ledger.CodeInvalidKind)
	})
}

func TestQueryService_GetLedger(t *testing.T) {
	l := newTestLedger(t)
	lot := l.registerLot(t, "100", "5000", true)
	for range 3 {
		l.mustReserve(t, ledger.KindReleaseOrder, ledger.KindInwardLot, lot.ID, "10", "500")
	}

	view := l.ledgerOf(t, ledger.KindInwardLot, lot.ID)
	codes := make([]string, len(view.Reservations))
	for i, r := range view.Reservations {
		codes[i] = r.Code
	}
	assert.Equal(t, []string{"RO-0003", "RO-0002", "RO-0001"}, codes)
	assert.Equal(t, "30", view.Parent.Balance.Pending.Primary)
	assert.Equal(t, "70", view.Parent.Balance.Available.Primary)
	assert.Equal(t, "100", view.Parent.Balance.Remaining.Primary)

	t.Run("pending parents can still be viewed", func(t *testing.T) {
		ro := view.Reservations[0]
		child := l.ledgerOf(t, ledger.KindReleaseOrder, ro.ID)
		assert.Equal(t, ro.Code, child.Parent.Code)
		assert.Empty(t, child.Reservations)
	})

	t.Run("requires read authority", func(t *testing.T) {
		l.authorize.denied[ActionRead] = true
		defer delete(l.authorize.denied, ActionRead)
		_, err := l.queries.GetLedger(context.Background(), string(ledger.KindInwardLot), lot.ID, l.checker)
		requireDomainError(t, err, "UNAUTHORIZED")
	})
}

func TestInwardLotService(t *testing.T) {
	l := newTestLedger(t)
	banked := l.registerLot(t, "100", "5000", true)
	direct := l.registerLot(t, "20", "1000.5", false)

	assert.Equal(t, "INW-0001", banked.Code)
	assert.Equal(t, "banked", banked.IssueMode)
	assert.Equal(t, "direct", direct.IssueMode)
	assert.Equal(t, "1000.500", direct.Offered.Secondary)
	require.NotNil(t, banked.Balance)
	assert.Equal(t, "100", banked.Balance.Remaining.Primary)

	ro := l.mustReserve(t, ledger.KindReleaseOrder, ledger.KindInwardLot, banked.ID, "30", "1500")
	l.mustTransition(t, ro.ID, ledger.StatusApproved)
	got, err := l.inward.GetInwardLot(context.Background(), banked.ID, l.checker)
	require.NoError(t, err)
	assert.Equal(t, "70", got.Balance.Remaining.Primary)

	_, err = l.inward.RegisterInwardLot(context.Background(), RegisterInwardLotRequest{
		NaturalKey: "SR-1", Commodity: "Paddy", OfferedPrimary: "10.5", OfferedSecondary: "100", Actor: l.maker,
	})
	requireDomainError(t, err, ledger.CodeInvalidQuantity)
}

func TestAuditLogHandler(t *testing.T) {
	l := newTestLedger(t)
	lot := l.registerLot(t, "100", "5000", true)
	ro := l.mustReserve(t, ledger.KindReleaseOrder, ledger.KindInwardLot, lot.ID, "40", "2000")
	l.mustTransition(t, ro.ID, ledger.StatusApproved)

	core, logs := observer.New(zapcore.InfoLevel)
	handler := NewAuditLogHandler(zap.New(core))
	assert.Len(t, handler.EventTypes(), 4)

	for _, e := range l.events.GetEventsByType(ledger.EventTypeReservationTransitioned) {
		require.NoError(t, handler.Handle(context.Background(), e))
	}

	entries := logs.FilterMessage("Ledger event").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, ro.Code, fields["code"])
	assert.Equal(t, "pending", fields["from"])
	assert.Equal(t, "approved", fields["to"])
	assert.Equal(t, "checker", fields["actor"])
}
