package ledger

import (
	"context"

	"github.com/erp/ledger/internal/domain/ledger"
)

// TransactionScope runs ledger repository operations in one database transaction.
// If fn returns an error the transaction is rolled back, otherwise it is committed.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories gives access to the ledger repositories bound to the current transaction.
//
// The code sequence lives in the same transaction as the reservation insert, so a failed
// create never burns a code.
type TransactionalRepositories interface {
	InwardLotRepo() ledger.InwardLotRepository
	ReservationRepo() ledger.ReservationRepository
	AuditRepo() ledger.AuditRepository
	CodeSequence() ledger.CodeSequence
}

// NoOpTransactionScope runs fn directly against the given repositories.
// Used in tests and wherever the repositories are already transactional.
type NoOpTransactionScope struct {
	lots         ledger.InwardLotRepository
	reservations ledger.ReservationRepository
	audit        ledger.AuditRepository
	codes        ledger.CodeSequence
}

// NewNoOpTransactionScope creates a NoOpTransactionScope
func NewNoOpTransactionScope(
	lots ledger.InwardLotRepository,
	reservations ledger.ReservationRepository,
	audit ledger.AuditRepository,
	codes ledger.CodeSequence,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{lots: lots, reservations: reservations, audit: audit, codes: codes}
}

// Execute runs fn without a transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) InwardLotRepo() ledger.InwardLotRepository     { return s.lots }
func (s *NoOpTransactionScope) ReservationRepo() ledger.ReservationRepository { return s.reservations }
func (s *NoOpTransactionScope) AuditRepo() ledger.AuditRepository             { return s.audit }
func (s *NoOpTransactionScope) CodeSequence() ledger.CodeSequence             { return s.codes }

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
