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

// InwardLotService registers received lots, the roots of the cascade
type InwardLotService struct {
	scope      TransactionScope
	authorizer Authorizer
	events     shared.EventPublisher
	logger     *zap.Logger
}

// NewInwardLotService creates a new InwardLotService
func NewInwardLotService(scope TransactionScope, authorizer Authorizer, logger *zap.Logger) *InwardLotService {
	return &InwardLotService{scope: scope, authorizer: authorizer, logger: logger}
}

// SetEventPublisher sets the publisher for lot events
func (s *InwardLotService) SetEventPublisher(publisher shared.EventPublisher) {
	s.events = publisher
}

// RegisterInwardLot records a received lot with its offered quantity.
// A lot without complete bank details is issued directly to delivery orders.
func (s *InwardLotService) RegisterInwardLot(ctx context.Context, req RegisterInwardLotRequest) (*InwardLotResponse, error) {
	if err := authorize(s.authorizer, req.Actor, ActionInward); err != nil {
		return nil, err
	}
	offered, err := ledger.ParseQuantity(req.OfferedPrimary, req.OfferedSecondary)
	if err != nil {
		return nil, err
	}
	var bank *ledger.BankDetails
	if req.Bank != nil {
		bank = &ledger.BankDetails{
			BankName:    req.Bank.BankName,
			BranchName:  req.Bank.BranchName,
			AccountRef:  req.Bank.AccountRef,
			LoanAccount: req.Bank.LoanAccount,
		}
	}

	var lot *ledger.InwardLot
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		seq, err := repos.CodeSequence().Next(ctx, ledger.KindInwardLot)
		if err != nil {
			return shared.ErrUpstreamFailure.WithDetail("reason", "code generator: "+err.Error())
		}
		lot, err = ledger.NewInwardLot(ledger.KindInwardLot.FormatCode(seq), req.NaturalKey, req.Commodity, offered, bank, req.Actor.ID)
		if err != nil {
			return err
		}
		if err := repos.InwardLotRepo().Save(ctx, lot); err != nil {
			return fmt.Errorf("save inward lot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Inward lot registered",
		zap.String("code", lot.Code),
		zap.String("natural_key", lot.NaturalKey),
		zap.String("issue_mode", string(lot.IssueMode)),
		zap.String("offered", lot.Offered.String()),
		zap.String("actor", req.Actor.ID))
	publishEvents(ctx, s.events, s.logger, lot)

	resp := ToInwardLotResponse(lot)
	balance := toBalanceView(ledger.ComputeBalance(lot.Offered, nil))
	resp.Balance = &balance
	return &resp, nil
}

// GetInwardLot returns a lot with its current balance
func (s *InwardLotService) GetInwardLot(ctx context.Context, id uuid.UUID, actor Actor) (*InwardLotResponse, error) {
	if err := authorize(s.authorizer, actor, ActionRead); err != nil {
		return nil, err
	}
	var resp InwardLotResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		lot, err := repos.InwardLotRepo().FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return ledger.NewParentNotFoundError(ledger.KindInwardLot, id)
			}
			return fmt.Errorf("load inward lot %s: %w", id, err)
		}
		st, err := loadParentState(ctx, repos, lot.Offer(), uuid.Nil)
		if err != nil {
			return err
		}
		resp = ToInwardLotResponse(lot)
		balance := toBalanceView(st.balance)
		resp.Balance = &balance
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
