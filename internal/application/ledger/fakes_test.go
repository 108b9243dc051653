package ledger

import (
	"context"
	"io"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memoryStore keeps copies of aggregates the way a database would
type memoryStore struct {
	mu           sync.Mutex
	lots         map[uuid.UUID]ledger.InwardLot
	reservations map[uuid.UUID]ledger.Reservation
	audit        []ledger.AuditEntry
	seq          map[ledger.Kind]int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		lots:         make(map[uuid.UUID]ledger.InwardLot),
		reservations: make(map[uuid.UUID]ledger.Reservation),
		seq:          make(map[ledger.Kind]int64),
	}
}

func (m *memoryStore) scope() *NoOpTransactionScope {
	return NewNoOpTransactionScope(memLots{m}, memReservations{m}, memAudit{m}, memCodes{m})
}

func (m *memoryStore) reservationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reservations)
}

func cloneReservation(r ledger.Reservation) *ledger.Reservation {
	r.AttachmentRefs = slices.Clone(r.AttachmentRefs)
	r.Stacks = slices.Clone(r.Stacks)
	r.ClearDomainEvents()
	r.ClearPendingAudit()
	return &r
}

type memLots struct{ m *memoryStore }

func (r memLots) FindByID(_ context.Context, id uuid.UUID) (*ledger.InwardLot, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	lot, ok := r.m.lots[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	lot.ClearDomainEvents()
	return &lot, nil
}

func (r memLots) FindAll(_ context.Context, filter ledger.InwardLotFilter) ([]*ledger.InwardLot, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*ledger.InwardLot
	for _, lot := range r.m.lots {
		if filter.IssueMode != "" && lot.IssueMode != filter.IssueMode {
			continue
		}
		if filter.Search != "" && !strings.Contains(lot.NaturalKey+lot.Code, filter.Search) {
			continue
		}
		l := lot
		l.ClearDomainEvents()
		out = append(out, &l)
	}
	slices.SortFunc(out, func(a, b *ledger.InwardLot) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.Code, a.Code)
	})
	return pageOf(out, filter.Filter), int64(len(out)), nil
}

func (r memLots) Save(_ context.Context, lot *ledger.InwardLot) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.lots[lot.ID] = *lot
	return nil
}

type memReservations struct{ m *memoryStore }

func (r memReservations) FindByID(_ context.Context, id uuid.UUID) (*ledger.Reservation, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	res, ok := r.m.reservations[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneReservation(res), nil
}

func (r memReservations) FindByParent(ctx context.Context, parent ledger.ParentRef) ([]*ledger.Reservation, error) {
	return r.FindByParentIDs(ctx, []uuid.UUID{parent.ID})
}

func (r memReservations) FindByParentIDs(_ context.Context, ids []uuid.UUID) ([]*ledger.Reservation, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*ledger.Reservation
	for _, res := range r.m.reservations {
		if slices.Contains(ids, res.Parent.ID) {
			out = append(out, cloneReservation(res))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (r memReservations) FindAll(_ context.Context, filter ledger.ReservationFilter) ([]*ledger.Reservation, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*ledger.Reservation
	for _, res := range r.m.reservations {
		if filter.Kind != "" && res.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && res.Status != filter.Status {
			continue
		}
		out = append(out, cloneReservation(res))
	}
	sortNewestFirst(out)
	return pageOf(out, filter.Filter), int64(len(out)), nil
}

// pageOf slices items the way the repositories page rows; a zero filter returns everything
func pageOf[T any](items []T, f shared.Filter) []T {
	if f.Page <= 0 || f.PageSize <= 0 {
		return items
	}
	from := min(f.Offset(), len(items))
	return items[from:min(from+f.PageSize, len(items))]
}

func (r memReservations) RejectedGrandchildParents(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make(map[uuid.UUID]bool)
	for _, gc := range r.m.reservations {
		if gc.Status != ledger.StatusRejected {
			continue
		}
		child, ok := r.m.reservations[gc.Parent.ID]
		if ok && slices.Contains(ids, child.Parent.ID) {
			out[child.Parent.ID] = true
		}
	}
	return out, nil
}

func (r memReservations) Create(_ context.Context, res *ledger.Reservation) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.reservations[res.ID] = *cloneReservation(*res)
	return nil
}

func (r memReservations) Update(_ context.Context, res *ledger.Reservation) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	stored, ok := r.m.reservations[res.ID]
	if !ok || stored.Version != res.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.m.reservations[res.ID] = *cloneReservation(*res)
	return nil
}

func sortNewestFirst(rs []*ledger.Reservation) {
	slices.SortFunc(rs, func(a, b *ledger.Reservation) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.Code, a.Code)
	})
}

type memAudit struct{ m *memoryStore }

func (r memAudit) Append(_ context.Context, entries ...ledger.AuditEntry) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.audit = append(r.m.audit, entries...)
	return nil
}

func (r memAudit) FindByReservation(_ context.Context, id uuid.UUID) ([]ledger.AuditEntry, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []ledger.AuditEntry
	for _, e := range r.m.audit {
		if e.ReservationID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

type memCodes struct{ m *memoryStore }

func (r memCodes) Next(_ context.Context, kind ledger.Kind) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.seq[kind]++
	return r.m.seq[kind], nil
}

// mutexLocker is a per-key mutex locker
type mutexLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newMutexLocker() *mutexLocker {
	return &mutexLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *mutexLocker) Acquire(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock, nil
}

// stubAuthorizer allows everything except the denied actions
type stubAuthorizer struct {
	denied map[Action]bool
}

func (a stubAuthorizer) Can(_ Actor, action Action) bool {
	return !a.denied[action]
}

// MockAttachmentStore is a mock implementation of AttachmentStore
type MockAttachmentStore struct {
	mock.Mock
}

func (m *MockAttachmentStore) Upload(ctx context.Context, file AttachmentFile) (string, error) {
	args := m.Called(ctx, file.Name)
	return args.String(0), args.Error(1)
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (m *MockEventPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *MockEventPublisher) GetEventsByType(eventType string) []shared.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []shared.DomainEvent
	for _, e := range m.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

// memoryIdempotency is a map-backed idempotency store
type memoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (s *memoryIdempotency) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys == nil {
		s.keys = make(map[string]bool)
	}
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *memoryIdempotency) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key], nil
}

func (s *memoryIdempotency) Forget(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}

func (s *memoryIdempotency) Close() error { return nil }

// testLedger wires the services over one in-memory store
type testLedger struct {
	store     *memoryStore
	events    *MockEventPublisher
	alloc     *AllocationService
	approval  *ApprovalService
	queries   *QueryService
	inward    *InwardLotService
	maker     Actor
	checker   Actor
	authorize *stubAuthorizer
}

func newTestLedger(t *testing.T) *testLedger {
	t.Helper()
	store := newMemoryStore()
	scope := store.scope()
	locker := newMutexLocker()
	auth := &stubAuthorizer{denied: map[Action]bool{}}
	events := &MockEventPublisher{}
	logger := zap.NewNop()

	alloc := NewAllocationService(scope, locker, auth, Options{}, logger)
	alloc.SetEventPublisher(events)
	approval := NewApprovalService(scope, locker, auth, logger)
	approval.SetEventPublisher(events)
	inward := NewInwardLotService(scope, auth, logger)
	inward.SetEventPublisher(events)

	return &testLedger{
		store:     store,
		events:    events,
		alloc:     alloc,
		approval:  approval,
		queries:   NewQueryService(scope, auth),
		inward:    inward,
		maker:     Actor{ID: "maker"},
		checker:   Actor{ID: "checker"},
		authorize: auth,
	}
}

func (l *testLedger) registerLot(t *testing.T, primary, secondary string, banked bool) *InwardLotResponse {
	t.Helper()
	req := RegisterInwardLotRequest{
		NaturalKey:       "SR-" + uuid.NewString()[:8],
		Commodity:        "Paddy",
		OfferedPrimary:   primary,
		OfferedSecondary: secondary,
		Actor:            l.maker,
	}
	if banked {
		req.Bank = &BankDetailsInput{BankName: "State Bank", BranchName: "Central", AccountRef: "AC-1", LoanAccount: "LN-1"}
	}
	lot, err := l.inward.RegisterInwardLot(context.Background(), req)
	require.NoError(t, err)
	return lot
}

func (l *testLedger) reserve(kind ledger.Kind, parentKind ledger.Kind, parentID uuid.UUID, primary, secondary string) (*CreateReservationResult, error) {
	req := CreateReservationRequest{
		Kind:              string(kind),
		Parent:            ParentSelector{Kind: string(parentKind), ID: parentID},
		ReservedPrimary:   primary,
		ReservedSecondary: secondary,
		AttachmentRefs:    []string{"https://files.example/" + uuid.NewString() + ".pdf"},
		Actor:             l.maker,
	}
	if kind == ledger.KindOutwardMovement {
		req.Stacks = []StackInput{{Label: "A", Quantity: primary}}
	}
	return l.alloc.CreateReservation(context.Background(), req)
}

func (l *testLedger) mustReserve(t *testing.T, kind, parentKind ledger.Kind, parentID uuid.UUID, primary, secondary string) ReservationResponse {
	t.Helper()
	res, err := l.reserve(kind, parentKind, parentID, primary, secondary)
	require.NoError(t, err)
	return res.Reservation
}

func (l *testLedger) transition(id uuid.UUID, status ledger.Status, remark string) (*ReservationResponse, error) {
	return l.approval.Transition(context.Background(), TransitionRequest{
		ID: id, Status: string(status), Remark: remark, Actor: l.checker,
	})
}

func (l *testLedger) mustTransition(t *testing.T, id uuid.UUID, status ledger.Status) {
	t.Helper()
	_, err := l.transition(id, status, "checked against documents")
	require.NoError(t, err)
}

func (l *testLedger) ledgerOf(t *testing.T, kind ledger.Kind, id uuid.UUID) *LedgerResponse {
	t.Helper()
	resp, err := l.queries.GetLedger(context.Background(), string(kind), id, l.checker)
	require.NoError(t, err)
	return resp
}

func fileNamed(name string) AttachmentFile {
	return AttachmentFile{
		Name:        name,
		ContentType: "application/pdf",
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("%PDF")), nil
		},
	}
}
