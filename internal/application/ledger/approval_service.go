package ledger

import (
	"context"
	"fmt"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"go.uber.org/zap"
)

// transitionActions maps a target status to the authority needed to reach it
var transitionActions = map[ledger.Status]Action{
	ledger.StatusApproved:    ActionApprove,
	ledger.StatusRejected:    ActionReject,
	ledger.StatusResubmitted: ActionResubmit,
}

// ApprovalService moves reservations through the approval workflow.
// Status changes are serialized per reservation; the parent is not locked.
type ApprovalService struct {
	scope      TransactionScope
	locker     KeyLocker
	authorizer Authorizer
	events     shared.EventPublisher
	metrics    Metrics
	logger     *zap.Logger
}

// NewApprovalService creates a new ApprovalService
func NewApprovalService(scope TransactionScope, locker KeyLocker, authorizer Authorizer, logger *zap.Logger) *ApprovalService {
	return &ApprovalService{
		scope:      scope,
		locker:     locker,
		authorizer: authorizer,
		metrics:    noopMetrics{},
		logger:     logger,
	}
}

// SetEventPublisher sets the publisher for transition events
func (s *ApprovalService) SetEventPublisher(publisher shared.EventPublisher) {
	s.events = publisher
}

// SetMetrics sets the metrics recorder
func (s *ApprovalService) SetMetrics(m Metrics) {
	if m != nil {
		s.metrics = m
	}
}

// Transition applies a status change with its mandatory remark.
// Approving re-derives the parent balance and refuses a change that would overdraw it.
func (s *ApprovalService) Transition(ctx context.Context, req TransitionRequest) (resp *ReservationResponse, err error) {
	defer func() {
		if err != nil {
			s.metrics.RecordRejection(ctx, "transition", domainCode(err))
		}
	}()

	target, err := ledger.ParseStatus(req.Status)
	if err != nil {
		return nil, err
	}
	action, ok := transitionActions[target]
	if !ok {
		return nil, ledger.NewInvalidTransitionError("", target).
			WithDetail("reason", "pending is reached only by revising a resubmitted reservation")
	}
	if err := authorize(s.authorizer, req.Actor, action); err != nil {
		return nil, err
	}

	release, err := acquire(ctx, s.locker, s.metrics, "reservation", ledger.ReservationLockKey(req.ID.String()))
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		r    *ledger.Reservation
		from ledger.Status
	)
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		r, err = repos.ReservationRepo().FindByID(ctx, req.ID)
		if err != nil {
			return mapReservationLookupError(err, req.ID)
		}
		from = r.Status

		if target == ledger.StatusApproved && r.Status.CanTransitionTo(target) {
			offer, err := findParent(ctx, repos, r.Parent.Kind, r.Parent.ID, true)
			if err != nil {
				return err
			}
			siblings, err := repos.ReservationRepo().FindByParent(ctx, offer.Ref())
			if err != nil {
				return fmt.Errorf("load siblings of %s: %w", r.Code, err)
			}
			if err := ledger.CheckApproval(offer.Code, offer.Offered, siblings, r); err != nil {
				return err
			}
		}

		if err := r.Transition(target, req.Remark, req.Actor.ID); err != nil {
			return err
		}
		if err := repos.ReservationRepo().Update(ctx, r); err != nil {
			return err
		}
		if err := repos.AuditRepo().Append(ctx, r.PendingAudit()...); err != nil {
			return fmt.Errorf("save audit: %w", err)
		}
		r.ClearPendingAudit()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reservation status changed",
		zap.String("code", r.Code),
		zap.String("from", string(from)),
		zap.String("to", string(r.Status)),
		zap.String("actor", req.Actor.ID))
	publishEvents(ctx, s.events, s.logger, r)

	out := ToReservationResponse(r)
	return &out, nil
}
