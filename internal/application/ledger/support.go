package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Options tunes the ledger services
type Options struct {
	IdempotencyTTL    time.Duration
	MaxAttachments    int
	UploadConcurrency int
}

// DefaultOptions returns the options used when none are configured
func DefaultOptions() Options {
	return Options{
		IdempotencyTTL:    24 * time.Hour,
		MaxAttachments:    10,
		UploadConcurrency: 4,
	}
}

func (o Options) normalize() Options {
	d := DefaultOptions()
	if o.IdempotencyTTL <= 0 {
		o.IdempotencyTTL = d.IdempotencyTTL
	}
	if o.MaxAttachments <= 0 {
		o.MaxAttachments = d.MaxAttachments
	}
	if o.UploadConcurrency <= 0 {
		o.UploadConcurrency = d.UploadConcurrency
	}
	return o
}

// parentState is everything known about a parent at one instant
type parentState struct {
	offer       ledger.ParentOffer
	children    []*ledger.Reservation
	balance     ledger.Balance
	eligibility ledger.Eligibility
}

func authorize(authorizer Authorizer, actor Actor, action Action) error {
	if strings.TrimSpace(actor.ID) == "" {
		return shared.ErrUnauthorized.WithDetail("reason", "no actor")
	}
	if authorizer != nil && !authorizer.Can(actor, action) {
		return shared.ErrUnauthorized.WithDetail("action", string(action))
	}
	return nil
}

// acquire takes a keyed lock and reports the wait
func acquire(ctx context.Context, locker KeyLocker, metrics Metrics, scope, key string) (func(), error) {
	start := time.Now()
	release, err := locker.Acquire(ctx, key)
	metrics.RecordLockWait(ctx, scope, time.Since(start))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, ErrLockTimeout) {
			return nil, shared.ErrConcurrencyConflict.
				WithDetail("lock", key).
				WithDetail("reason", "another request is working on this record, retry shortly")
		}
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) {
			return nil, domainErr
		}
		return nil, shared.ErrUpstreamFailure.
			WithDetail("reason", fmt.Sprintf("lock %s: %v", key, err))
	}
	return release, nil
}

// findParent resolves a parent by kind and id.
// Reservations must be approved to act as a parent unless forView is set.
func findParent(ctx context.Context, repos TransactionalRepositories, kind ledger.Kind, id uuid.UUID, forView bool) (ledger.ParentOffer, error) {
	switch kind {
	case ledger.KindInwardLot:
		lot, err := repos.InwardLotRepo().FindByID(ctx, id)
		if err != nil {
			return ledger.ParentOffer{}, mapParentLookupError(err, kind, id)
		}
		return lot.Offer(), nil
	case ledger.KindReleaseOrder, ledger.KindDeliveryOrder:
		r, err := repos.ReservationRepo().FindByID(ctx, id)
		if err != nil {
			return ledger.ParentOffer{}, mapParentLookupError(err, kind, id)
		}
		if r.Kind != kind {
			return ledger.ParentOffer{}, ledger.NewParentNotFoundError(kind, id)
		}
		if forView {
			return ledger.ParentOffer{Kind: r.Kind, ID: r.ID, Code: r.Code, NaturalKey: r.NaturalKey, Offered: r.Reserved, CreatedAt: r.CreatedAt}, nil
		}
		return r.Offer()
	default:
		return ledger.ParentOffer{}, ledger.NewInvalidParentKindError("", kind).
			WithDetail("reason", "records of this kind have no children")
	}
}

func mapParentLookupError(err error, kind ledger.Kind, id uuid.UUID) error {
	if errors.Is(err, shared.ErrNotFound) {
		return ledger.NewParentNotFoundError(kind, id)
	}
	return fmt.Errorf("load parent %s %s: %w", kind, id, err)
}

// loadParentState computes the balance and eligibility of a parent from its current children.
// exclude drops one child from the computation, used when that child is being resized.
func loadParentState(ctx context.Context, repos TransactionalRepositories, offer ledger.ParentOffer, exclude uuid.UUID) (parentState, error) {
	children, err := repos.ReservationRepo().FindByParent(ctx, offer.Ref())
	if err != nil {
		return parentState{}, fmt.Errorf("load children of %s: %w", offer.Code, err)
	}
	downstream, err := repos.ReservationRepo().RejectedGrandchildParents(ctx, []uuid.UUID{offer.ID})
	if err != nil {
		return parentState{}, fmt.Errorf("load downstream rejections of %s: %w", offer.Code, err)
	}
	if exclude != uuid.Nil {
		children = ledger.ExcludingReservation(children, exclude)
	}
	balance := ledger.ComputeBalance(offer.Offered, children)
	return parentState{
		offer:       offer,
		children:    children,
		balance:     balance,
		eligibility: ledger.Evaluate(balance, children, downstream[offer.ID]),
	}, nil
}

func parseStacks(in []StackInput) ([]ledger.StackAllocation, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]ledger.StackAllocation, len(in))
	for i, s := range in {
		q, err := decimal.NewFromString(strings.TrimSpace(s.Quantity))
		if err != nil {
			return nil, ledger.NewInvalidStackAllocationError(
				fmt.Sprintf("stack %q quantity %q is not numeric", s.Label, s.Quantity))
		}
		out[i] = ledger.StackAllocation{Label: s.Label, Quantity: q}
	}
	return out, nil
}

func toParentOption(st parentState) ParentOption {
	return ParentOption{
		Kind:       string(st.offer.Kind),
		ID:         st.offer.ID,
		Code:       st.offer.Code,
		NaturalKey: st.offer.NaturalKey,
		IssueMode:  string(st.offer.IssueMode),
		Balance:    toBalanceView(st.balance),
		Offerable:  st.eligibility.Offerable,
		Reason:     string(st.eligibility.Reason),
	}
}

// publishEvents hands the aggregate's events to the bus after commit.
// Handler failures are logged by the bus and never fail the command.
func publishEvents(ctx context.Context, publisher shared.EventPublisher, logger *zap.Logger, agg interface {
	GetDomainEvents() []shared.DomainEvent
	ClearDomainEvents()
}) {
	events := agg.GetDomainEvents()
	if publisher == nil || len(events) == 0 {
		agg.ClearDomainEvents()
		return
	}
	if err := publisher.Publish(ctx, events...); err != nil {
		logger.Warn("Failed to publish ledger events", zap.Error(err))
	}
	agg.ClearDomainEvents()
}

func domainCode(err error) string {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return "INTERNAL"
}
