package ledger

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// QueryService serves the read side: parent selectors, ledgers and reservation history.
// Balances are always recomputed from the stored children.
type QueryService struct {
	scope      TransactionScope
	authorizer Authorizer
}

// NewQueryService creates a new QueryService
func NewQueryService(scope TransactionScope, authorizer Authorizer) *QueryService {
	return &QueryService{scope: scope, authorizer: authorizer}
}

// ListParents returns the parents a new reservation of the given kind may be made against.
// Unless IncludeExhausted is set, only offerable parents are returned. Offerability is
// decided for every candidate before the merged list is sorted newest first and paged,
// so Total counts the parents the selector can actually show.
func (s *QueryService) ListParents(ctx context.Context, req ListParentsRequest) (*ParentListResponse, error) {
	if err := authorize(s.authorizer, req.Actor, ActionRead); err != nil {
		return nil, err
	}
	child, err := ledger.ParseKind(req.ChildKind)
	if err != nil {
		return nil, err
	}
	if !child.IsReservation() {
		return nil, ledger.NewInvalidKindError(req.ChildKind)
	}
	filter := shared.Filter{Page: req.Page, PageSize: req.PageSize, Search: req.Search}.Normalize()

	resp := &ParentListResponse{Items: []ParentOption{}}
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var offers []ledger.ParentOffer
		for _, parentKind := range child.ParentKinds() {
			found, err := findCandidates(ctx, repos, child, parentKind, filter.Search)
			if err != nil {
				return err
			}
			offers = append(offers, found...)
		}
		if len(offers) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, len(offers))
		for i, o := range offers {
			ids[i] = o.ID
		}
		children, err := repos.ReservationRepo().FindByParentIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("load children: %w", err)
		}
		byParent := make(map[uuid.UUID][]*ledger.Reservation, len(offers))
		for _, c := range children {
			byParent[c.Parent.ID] = append(byParent[c.Parent.ID], c)
		}
		downstream, err := repos.ReservationRepo().RejectedGrandchildParents(ctx, ids)
		if err != nil {
			return fmt.Errorf("load downstream rejections: %w", err)
		}

		shown := make([]parentState, 0, len(offers))
		for _, o := range offers {
			balance := ledger.ComputeBalance(o.Offered, byParent[o.ID])
			st := parentState{
				offer:       o,
				children:    byParent[o.ID],
				balance:     balance,
				eligibility: ledger.Evaluate(balance, byParent[o.ID], downstream[o.ID]),
			}
			if st.eligibility.Offerable || req.IncludeExhausted {
				shown = append(shown, st)
			}
		}
		slices.SortFunc(shown, func(a, b parentState) int {
			if c := b.offer.CreatedAt.Compare(a.offer.CreatedAt); c != 0 {
				return c
			}
			return strings.Compare(b.offer.Code, a.offer.Code)
		})

		resp.Total = int64(len(shown))
		from := min(filter.Offset(), len(shown))
		to := min(from+filter.PageSize, len(shown))
		for _, st := range shown[from:to] {
			resp.Items = append(resp.Items, toParentOption(st))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// findCandidates lists every parent record of one kind that a child kind may use.
// Paging happens after offerability is known, so no page is requested here.
func findCandidates(ctx context.Context, repos TransactionalRepositories, child, parentKind ledger.Kind, search string) ([]ledger.ParentOffer, error) {
	all := shared.Filter{Search: search}
	if parentKind == ledger.KindInwardLot {
		lf := ledger.InwardLotFilter{Filter: all}
		if child == ledger.KindDeliveryOrder {
			lf.IssueMode = ledger.IssueModeDirect
		}
		lots, _, err := repos.InwardLotRepo().FindAll(ctx, lf)
		if err != nil {
			return nil, fmt.Errorf("list inward lots: %w", err)
		}
		out := make([]ledger.ParentOffer, len(lots))
		for i, l := range lots {
			out[i] = l.Offer()
		}
		return out, nil
	}

	rs, _, err := repos.ReservationRepo().FindAll(ctx, ledger.ReservationFilter{
		Filter: all,
		Kind:   parentKind,
		Status: ledger.StatusApproved,
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", parentKind, err)
	}
	out := make([]ledger.ParentOffer, 0, len(rs))
	for _, r := range rs {
		offer, err := r.Offer()
		if err != nil {
			continue
		}
		out = append(out, offer)
	}
	return out, nil
}

// GetLedger returns a parent's reservation history, newest first, with its current balance
func (s *QueryService) GetLedger(ctx context.Context, parentKind string, parentID uuid.UUID, actor Actor) (*LedgerResponse, error) {
	if err := authorize(s.authorizer, actor, ActionRead); err != nil {
		return nil, err
	}
	kind, err := ledger.ParseKind(parentKind)
	if err != nil {
		return nil, err
	}

	var resp *LedgerResponse
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		offer, err := findParent(ctx, repos, kind, parentID, true)
		if err != nil {
			return err
		}
		st, err := loadParentState(ctx, repos, offer, uuid.Nil)
		if err != nil {
			return err
		}
		resp = &LedgerResponse{
			Parent:       toParentOption(st),
			Reservations: ToReservationResponses(st.children),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// GetReservation returns one reservation with its audit trail
func (s *QueryService) GetReservation(ctx context.Context, id uuid.UUID, actor Actor) (*ReservationDetailResponse, error) {
	if err := authorize(s.authorizer, actor, ActionRead); err != nil {
		return nil, err
	}
	var resp *ReservationDetailResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		r, err := repos.ReservationRepo().FindByID(ctx, id)
		if err != nil {
			return mapReservationLookupError(err, id)
		}
		entries, err := repos.AuditRepo().FindByReservation(ctx, id)
		if err != nil {
			return fmt.Errorf("load audit of %s: %w", r.Code, err)
		}
		resp = &ReservationDetailResponse{
			ReservationResponse: ToReservationResponse(r),
			Audit:               toAuditResponses(entries),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
