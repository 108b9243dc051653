package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AllocationService creates and revises reservations against a parent's remaining balance.
//
// Every create and revise runs under the parent's keyed lock and inside one transaction,
// so reading the balance and writing the reservation is atomic per parent.
type AllocationService struct {
	scope       TransactionScope
	locker      KeyLocker
	authorizer  Authorizer
	attachments AttachmentStore
	idempotency shared.IdempotencyStore
	events      shared.EventPublisher
	metrics     Metrics
	opts        Options
	logger      *zap.Logger
}

// NewAllocationService creates a new AllocationService
func NewAllocationService(
	scope TransactionScope,
	locker KeyLocker,
	authorizer Authorizer,
	opts Options,
	logger *zap.Logger,
) *AllocationService {
	return &AllocationService{
		scope:      scope,
		locker:     locker,
		authorizer: authorizer,
		metrics:    noopMetrics{},
		opts:       opts.normalize(),
		logger:     logger,
	}
}

// SetAttachmentStore sets the store used for uploaded files
func (s *AllocationService) SetAttachmentStore(store AttachmentStore) {
	s.attachments = store
}

// SetIdempotencyStore enables Idempotency-Key handling on create
func (s *AllocationService) SetIdempotencyStore(store shared.IdempotencyStore) {
	s.idempotency = store
}

// SetEventPublisher sets the publisher for reservation events
func (s *AllocationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.events = publisher
}

// SetMetrics sets the metrics recorder
func (s *AllocationService) SetMetrics(m Metrics) {
	if m != nil {
		s.metrics = m
	}
}

// CreateReservation reserves a quantity against a parent's remaining balance
func (s *AllocationService) CreateReservation(ctx context.Context, req CreateReservationRequest) (result *CreateReservationResult, err error) {
	defer func() {
		if err != nil {
			s.metrics.RecordRejection(ctx, "create", domainCode(err))
		}
	}()

	if err := authorize(s.authorizer, req.Actor, ActionCreate); err != nil {
		return nil, err
	}
	kind, err := ledger.ParseKind(req.Kind)
	if err != nil {
		return nil, err
	}
	if !kind.IsReservation() {
		return nil, ledger.NewInvalidKindError(req.Kind).WithDetail("reason", "inward lots are registered, not reserved")
	}
	parentKind, err := ledger.ParseKind(req.Parent.Kind)
	if err != nil {
		return nil, err
	}
	if err := kind.AcceptsParent(ledger.ParentOffer{Kind: parentKind, IssueMode: ledger.IssueModeDirect}); err != nil {
		return nil, err
	}
	requested, err := ledger.ParseQuantity(req.ReservedPrimary, req.ReservedSecondary)
	if err != nil {
		return nil, err
	}
	stacks, err := parseStacks(req.Stacks)
	if err != nil {
		return nil, err
	}
	if len(req.AttachmentRefs)+len(req.Files) > s.opts.MaxAttachments {
		return nil, shared.ErrInvalidInput.WithDetail("reason",
			fmt.Sprintf("at most %d attachments are allowed", s.opts.MaxAttachments))
	}
	if len(req.AttachmentRefs)+len(req.Files) == 0 {
		return nil, ledger.NewMissingAttachmentError()
	}

	if req.IdempotencyKey != "" && s.idempotency != nil {
		key := "ledger:create:" + req.Actor.ID + ":" + req.IdempotencyKey
		fresh, markErr := s.idempotency.MarkProcessed(ctx, key, s.opts.IdempotencyTTL)
		if markErr != nil {
			return nil, shared.ErrUpstreamFailure.WithDetail("reason", "idempotency store: "+markErr.Error())
		}
		if !fresh {
			return nil, shared.ErrAlreadyExists.WithDetail("idempotency_key", req.IdempotencyKey)
		}
		defer func() {
			if err != nil {
				if ferr := s.idempotency.Forget(context.WithoutCancel(ctx), key); ferr != nil {
					s.logger.Warn("Failed to release idempotency key", zap.String("key", key), zap.Error(ferr))
				}
			}
		}()
	}

	refs, failures, err := collectAttachments(ctx, s.attachments, req.AttachmentRefs, req.Files, s.opts.UploadConcurrency, s.logger)
	if err != nil {
		return nil, err
	}

	parentKey := ledger.ParentRef{Kind: parentKind, ID: req.Parent.ID}.LockKey()
	release, err := acquire(ctx, s.locker, s.metrics, "parent", parentKey)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		created *ledger.Reservation
		plan    ledger.AllocationPlan
	)
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		offer, err := findParent(ctx, repos, parentKind, req.Parent.ID, false)
		if err != nil {
			return err
		}
		if err := kind.AcceptsParent(offer); err != nil {
			return err
		}
		state, err := loadParentState(ctx, repos, offer, uuid.Nil)
		if err != nil {
			return err
		}
		if !state.eligibility.Offerable {
			return ledger.NewParentNotOfferableError(offer.Code, state.balance.Remaining)
		}
		plan, err = ledger.PlanAllocation(offer.Code, requested, state.balance)
		if err != nil {
			return err
		}

		seq, err := repos.CodeSequence().Next(ctx, kind)
		if err != nil {
			return shared.ErrUpstreamFailure.WithDetail("reason", "code generator: "+err.Error())
		}
		created, err = ledger.NewReservation(ledger.NewReservationParams{
			Kind:           kind,
			Code:           kind.FormatCode(seq),
			Parent:         offer,
			Reserved:       plan.Reserved,
			AttachmentRefs: refs,
			Stacks:         stacks,
			BalanceBefore:  state.balance.Remaining,
			CreatedBy:      req.Actor.ID,
		})
		if err != nil {
			return err
		}
		if err := repos.ReservationRepo().Create(ctx, created); err != nil {
			return fmt.Errorf("save reservation: %w", err)
		}
		if err := repos.AuditRepo().Append(ctx, created.PendingAudit()...); err != nil {
			return fmt.Errorf("save audit: %w", err)
		}
		created.ClearPendingAudit()
		return nil
	})
	if err != nil {
		s.logger.Info("Reservation refused",
			zap.String("kind", string(kind)),
			zap.String("parent_key", parentKey),
			zap.String("actor", req.Actor.ID),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Reservation created",
		zap.String("code", created.Code),
		zap.String("parent_code", created.Parent.Code),
		zap.String("reserved", created.Reserved.String()),
		zap.Bool("secondary_adjusted", plan.Adjusted),
		zap.Int("failed_attachments", len(failures)),
		zap.String("actor", req.Actor.ID))
	publishEvents(ctx, s.events, s.logger, created)

	after := plan.Balance
	after.Pending = after.Pending.Add(created.Reserved)
	after.Available = after.Available.Sub(created.Reserved).FloorZero()
	return &CreateReservationResult{
		Reservation:       ToReservationResponse(created),
		SecondaryAdjusted: plan.Adjusted,
		ParentBalance:     toBalanceView(after),
		FailedAttachments: failures,
	}, nil
}

// ReviseReservation corrects a resubmitted reservation and returns it to pending.
// The quantity is re-admitted against the parent's current balance without the reservation's own claim.
func (s *AllocationService) ReviseReservation(ctx context.Context, req ReviseReservationRequest) (result *CreateReservationResult, err error) {
	defer func() {
		if err != nil {
			s.metrics.RecordRejection(ctx, "revise", domainCode(err))
		}
	}()

	if err := authorize(s.authorizer, req.Actor, ActionRevise); err != nil {
		return nil, err
	}
	requested, err := ledger.ParseQuantity(req.ReservedPrimary, req.ReservedSecondary)
	if err != nil {
		return nil, err
	}
	stacks, err := parseStacks(req.Stacks)
	if err != nil {
		return nil, err
	}
	if len(req.AttachmentRefs)+len(req.Files) > s.opts.MaxAttachments {
		return nil, shared.ErrInvalidInput.WithDetail("reason",
			fmt.Sprintf("at most %d attachments are allowed", s.opts.MaxAttachments))
	}

	// The parent link is immutable, so it can be read before taking the parent lock.
	var parent ledger.ParentRef
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		r, err := repos.ReservationRepo().FindByID(ctx, req.ID)
		if err != nil {
			return mapReservationLookupError(err, req.ID)
		}
		if !r.Status.IsRevisable() {
			return ledger.NewNotRevisableError(r.Code, r.Status)
		}
		parent = r.Parent
		return nil
	})
	if err != nil {
		return nil, err
	}

	refs, failures, err := collectAttachments(ctx, s.attachments, req.AttachmentRefs, req.Files, s.opts.UploadConcurrency, s.logger)
	if err != nil {
		return nil, err
	}

	releaseParent, err := acquire(ctx, s.locker, s.metrics, "parent", parent.LockKey())
	if err != nil {
		return nil, err
	}
	defer releaseParent()
	releaseOwn, err := acquire(ctx, s.locker, s.metrics, "reservation", ledger.ReservationLockKey(req.ID.String()))
	if err != nil {
		return nil, err
	}
	defer releaseOwn()

	var (
		revised *ledger.Reservation
		plan    ledger.AllocationPlan
	)
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		r, err := repos.ReservationRepo().FindByID(ctx, req.ID)
		if err != nil {
			return mapReservationLookupError(err, req.ID)
		}
		if !r.Status.IsRevisable() {
			return ledger.NewNotRevisableError(r.Code, r.Status)
		}
		offer, err := findParent(ctx, repos, r.Parent.Kind, r.Parent.ID, false)
		if err != nil {
			return err
		}
		state, err := loadParentState(ctx, repos, offer, r.ID)
		if err != nil {
			return err
		}
		plan, err = ledger.PlanAllocation(offer.Code, requested, state.balance)
		if err != nil {
			return err
		}
		if err := r.Revise(ledger.ReviseParams{
			Reserved:       plan.Reserved,
			AttachmentRefs: refs,
			Stacks:         stacks,
			BalanceBefore:  state.balance.Remaining,
			Actor:          req.Actor.ID,
		}); err != nil {
			return err
		}
		if err := repos.ReservationRepo().Update(ctx, r); err != nil {
			return err
		}
		if err := repos.AuditRepo().Append(ctx, r.PendingAudit()...); err != nil {
			return fmt.Errorf("save audit: %w", err)
		}
		r.ClearPendingAudit()
		revised = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reservation revised",
		zap.String("code", revised.Code),
		zap.Int("revision", revised.Revision),
		zap.String("reserved", revised.Reserved.String()),
		zap.String("actor", req.Actor.ID))
	publishEvents(ctx, s.events, s.logger, revised)

	after := plan.Balance
	after.Pending = after.Pending.Add(revised.Reserved)
	after.Available = after.Available.Sub(revised.Reserved).FloorZero()
	return &CreateReservationResult{
		Reservation:       ToReservationResponse(revised),
		SecondaryAdjusted: plan.Adjusted,
		ParentBalance:     toBalanceView(after),
		FailedAttachments: failures,
	}, nil
}

// ListChildren returns the reservations made against a parent, newest first
func (s *AllocationService) ListChildren(ctx context.Context, parentKind string, parentID uuid.UUID, actor Actor) ([]*ledger.Reservation, error) {
	if err := authorize(s.authorizer, actor, ActionRead); err != nil {
		return nil, err
	}
	kind, err := ledger.ParseKind(parentKind)
	if err != nil {
		return nil, err
	}
	var children []*ledger.Reservation
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		offer, err := findParent(ctx, repos, kind, parentID, true)
		if err != nil {
			return err
		}
		children, err = repos.ReservationRepo().FindByParent(ctx, offer.Ref())
		return err
	})
	return children, err
}

func mapReservationLookupError(err error, id uuid.UUID) error {
	if errors.Is(err, shared.ErrNotFound) {
		return ledger.NewReservationNotFoundError(id)
	}
	return fmt.Errorf("load reservation %s: %w", id, err)
}
