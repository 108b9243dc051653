package models

import (
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InwardLotModel is the persistence model for the InwardLot aggregate root.
type InwardLotModel struct {
	AggregateModel
	Code             string          `gorm:"type:varchar(20);not null;uniqueIndex"`
	NaturalKey       string          `gorm:"type:varchar(100);not null;index"`
	Commodity        string          `gorm:"type:varchar(100)"`
	OfferedPrimary   decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	OfferedSecondary decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	IssueMode        string          `gorm:"type:varchar(10);not null;index"`
	BankName         string          `gorm:"type:varchar(100)"`
	BranchName       string          `gorm:"type:varchar(100)"`
	AccountRef       string          `gorm:"type:varchar(100)"`
	LoanAccount      string          `gorm:"type:varchar(100)"`
	CreatedBy        string          `gorm:"type:varchar(100);not null"`
}

// TableName returns the table name for GORM
func (InwardLotModel) TableName() string {
	return "ledger_inward_lots"
}

// ToDomain converts the persistence model to a domain InwardLot
func (m *InwardLotModel) ToDomain() *ledger.InwardLot {
	lot := &ledger.InwardLot{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Code:              m.Code,
		NaturalKey:        m.NaturalKey,
		Commodity:         m.Commodity,
		Offered:           ledger.Quantity{Primary: m.OfferedPrimary, Secondary: m.OfferedSecondary},
		IssueMode:         ledger.IssueMode(m.IssueMode),
		CreatedBy:         m.CreatedBy,
	}
	if m.BankName != "" || m.BranchName != "" || m.AccountRef != "" || m.LoanAccount != "" {
		lot.Bank = &ledger.BankDetails{
			BankName:    m.BankName,
			BranchName:  m.BranchName,
			AccountRef:  m.AccountRef,
			LoanAccount: m.LoanAccount,
		}
	}
	return lot
}

// FromDomain populates the persistence model from a domain InwardLot
func (m *InwardLotModel) FromDomain(l *ledger.InwardLot) {
	m.FromDomainAggregateRoot(l.BaseAggregateRoot)
	m.Code = l.Code
	m.NaturalKey = l.NaturalKey
	m.Commodity = l.Commodity
	m.OfferedPrimary = l.Offered.Primary
	m.OfferedSecondary = l.Offered.Secondary
	m.IssueMode = string(l.IssueMode)
	m.CreatedBy = l.CreatedBy
	if l.Bank != nil {
		m.BankName = l.Bank.BankName
		m.BranchName = l.Bank.BranchName
		m.AccountRef = l.Bank.AccountRef
		m.LoanAccount = l.Bank.LoanAccount
	}
}

// InwardLotModelFromDomain creates a new persistence model from a domain InwardLot
func InwardLotModelFromDomain(l *ledger.InwardLot) *InwardLotModel {
	m := &InwardLotModel{}
	m.FromDomain(l)
	return m
}

// StackRecord is the stored form of one stack allocation
type StackRecord struct {
	Label    string          `json:"label"`
	Quantity decimal.Decimal `json:"quantity"`
}

// ReservationModel is the persistence model for release orders, delivery orders
// and outward movements. They share one table keyed by kind.
type ReservationModel struct {
	AggregateModel
	Kind                   string          `gorm:"type:varchar(20);not null;index:idx_ledger_reservations_kind_status,priority:1"`
	Code                   string          `gorm:"type:varchar(20);not null;uniqueIndex"`
	ParentKind             string          `gorm:"type:varchar(20);not null"`
	ParentID               uuid.UUID       `gorm:"type:uuid;not null;index"`
	ParentCode             string          `gorm:"type:varchar(20);not null"`
	NaturalKey             string          `gorm:"type:varchar(100);not null;index"`
	ReservedPrimary        decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	ReservedSecondary      decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	Status                 string          `gorm:"type:varchar(20);not null;index:idx_ledger_reservations_kind_status,priority:2"`
	StatusRemark           string          `gorm:"type:text"`
	CreatedBy              string          `gorm:"type:varchar(100);not null"`
	StatusUpdatedBy        string          `gorm:"type:varchar(100)"`
	StatusUpdatedAt        *time.Time
	AttachmentRefs         []string        `gorm:"type:jsonb;serializer:json;not null"`
	Stacks                 []StackRecord   `gorm:"type:jsonb;serializer:json"`
	BalanceBeforePrimary   decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	BalanceBeforeSecondary decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	Revision               int             `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ReservationModel) TableName() string {
	return "ledger_reservations"
}

// ToDomain converts the persistence model to a domain Reservation
func (m *ReservationModel) ToDomain() *ledger.Reservation {
	r := &ledger.Reservation{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Kind:              ledger.Kind(m.Kind),
		Code:              m.Code,
		Parent: ledger.ParentRef{
			Kind: ledger.Kind(m.ParentKind),
			ID:   m.ParentID,
			Code: m.ParentCode,
		},
		NaturalKey:      m.NaturalKey,
		Reserved:        ledger.Quantity{Primary: m.ReservedPrimary, Secondary: m.ReservedSecondary},
		Status:          ledger.Status(m.Status),
		StatusRemark:    m.StatusRemark,
		CreatedBy:       m.CreatedBy,
		StatusUpdatedBy: m.StatusUpdatedBy,
		StatusUpdatedAt: m.StatusUpdatedAt,
		AttachmentRefs:  m.AttachmentRefs,
		BalanceBefore:   ledger.Quantity{Primary: m.BalanceBeforePrimary, Secondary: m.BalanceBeforeSecondary},
		Revision:        m.Revision,
	}
	for _, s := range m.Stacks {
		r.Stacks = append(r.Stacks, ledger.StackAllocation{Label: s.Label, Quantity: s.Quantity})
	}
	return r
}

// FromDomain populates the persistence model from a domain Reservation
func (m *ReservationModel) FromDomain(r *ledger.Reservation) {
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	m.Kind = string(r.Kind)
	m.Code = r.Code
	m.ParentKind = string(r.Parent.Kind)
	m.ParentID = r.Parent.ID
	m.ParentCode = r.Parent.Code
	m.NaturalKey = r.NaturalKey
	m.ReservedPrimary = r.Reserved.Primary
	m.ReservedSecondary = r.Reserved.Secondary
	m.Status = string(r.Status)
	m.StatusRemark = r.StatusRemark
	m.CreatedBy = r.CreatedBy
	m.StatusUpdatedBy = r.StatusUpdatedBy
	m.StatusUpdatedAt = r.StatusUpdatedAt
	m.AttachmentRefs = r.AttachmentRefs
	if m.AttachmentRefs == nil {
		m.AttachmentRefs = []string{}
	}
	m.Stacks = nil
	for _, s := range r.Stacks {
		m.Stacks = append(m.Stacks, StackRecord{Label: s.Label, Quantity: s.Quantity})
	}
	m.BalanceBeforePrimary = r.BalanceBefore.Primary
	m.BalanceBeforeSecondary = r.BalanceBefore.Secondary
	m.Revision = r.Revision
}

// ReservationModelFromDomain creates a new persistence model from a domain Reservation
func ReservationModelFromDomain(r *ledger.Reservation) *ReservationModel {
	m := &ReservationModel{}
	m.FromDomain(r)
	return m
}

// AuditEntryModel is one append-only row of reservation history
type AuditEntryModel struct {
	ID                     uuid.UUID       `gorm:"type:uuid;primary_key"`
	ReservationID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	Action                 string          `gorm:"type:varchar(20);not null"`
	Status                 string          `gorm:"type:varchar(20);not null"`
	Remark                 string          `gorm:"type:text"`
	ReservedPrimary        decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	ReservedSecondary      decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	BalanceBeforePrimary   decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	BalanceBeforeSecondary decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	Actor                  string          `gorm:"type:varchar(100);not null"`
	Revision               int             `gorm:"not null"`
	OccurredAt             time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (AuditEntryModel) TableName() string {
	return "ledger_audit_entries"
}

// ToDomain converts the persistence model to a domain AuditEntry
func (m *AuditEntryModel) ToDomain() ledger.AuditEntry {
	return ledger.AuditEntry{
		ID:            m.ID,
		ReservationID: m.ReservationID,
		Action:        ledger.AuditAction(m.Action),
		Status:        ledger.Status(m.Status),
		Remark:        m.Remark,
		Reserved:      ledger.Quantity{Primary: m.ReservedPrimary, Secondary: m.ReservedSecondary},
		BalanceBefore: ledger.Quantity{Primary: m.BalanceBeforePrimary, Secondary: m.BalanceBeforeSecondary},
		Actor:         m.Actor,
		Revision:      m.Revision,
		OccurredAt:    m.OccurredAt,
	}
}

// AuditEntryModelFromDomain creates a persistence model from a domain AuditEntry
func AuditEntryModelFromDomain(e ledger.AuditEntry) AuditEntryModel {
	return AuditEntryModel{
		ID:                     e.ID,
		ReservationID:          e.ReservationID,
		Action:                 string(e.Action),
		Status:                 string(e.Status),
		Remark:                 e.Remark,
		ReservedPrimary:        e.Reserved.Primary,
		ReservedSecondary:      e.Reserved.Secondary,
		BalanceBeforePrimary:   e.BalanceBefore.Primary,
		BalanceBeforeSecondary: e.BalanceBefore.Secondary,
		Actor:                  e.Actor,
		Revision:               e.Revision,
		OccurredAt:             e.OccurredAt,
	}
}

// CodeSequenceModel holds the last number handed out per record kind
type CodeSequenceModel struct {
	Kind      string `gorm:"type:varchar(20);primaryKey"`
	LastValue int64  `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (CodeSequenceModel) TableName() string {
	return "ledger_code_sequences"
}
