package ledger

import (
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/google/uuid"
)

// QuantityView renders a quantity as exact decimal strings
type QuantityView struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

func toQuantityView(q ledger.Quantity) QuantityView {
	return QuantityView{
		Primary:   q.Primary.String(),
		Secondary: q.Secondary.StringFixed(ledger.SecondaryScale),
	}
}

// BalanceView is the computed balance of a parent
type BalanceView struct {
	Offered   QuantityView `json:"offered"`
	Approved  QuantityView `json:"approved"`
	Pending   QuantityView `json:"pending"`
	Remaining QuantityView `json:"remaining"`
	Available QuantityView `json:"available"`
	Overdrawn bool         `json:"overdrawn"`
}

func toBalanceView(b ledger.Balance) BalanceView {
	return BalanceView{
		Offered:   toQuantityView(b.Offered),
		Approved:  toQuantityView(b.Approved),
		Pending:   toQuantityView(b.Pending),
		Remaining: toQuantityView(b.Remaining),
		Available: toQuantityView(b.Available),
		Overdrawn: b.Overdrawn,
	}
}

// StackInput is one stack line of an outward movement as entered by the caller
type StackInput struct {
	Label    string `json:"label"`
	Quantity string `json:"quantity"`
}

// StackView is one stored stack line
type StackView struct {
	Label    string `json:"label"`
	Quantity string `json:"quantity"`
}

// ParentSelector names the parent a reservation is made against
type ParentSelector struct {
	Kind string
	ID   uuid.UUID
}

// CreateReservationRequest is the input of CreateReservation.
// AttachmentRefs are already stored documents; Files are uploaded before the reservation is made.
type CreateReservationRequest struct {
	Kind              string
	Parent            ParentSelector
	ReservedPrimary   string
	ReservedSecondary string
	AttachmentRefs    []string
	Files             []AttachmentFile
	Stacks            []StackInput
	IdempotencyKey    string
	Actor             Actor
}

// ReviseReservationRequest is the input of ReviseReservation
type ReviseReservationRequest struct {
	ID                uuid.UUID
	ReservedPrimary   string
	ReservedSecondary string
	AttachmentRefs    []string
	Files             []AttachmentFile
	Stacks            []StackInput
	Actor             Actor
}

// TransitionRequest is the input of Transition
type TransitionRequest struct {
	ID     uuid.UUID
	Status string
	Remark string
	Actor  Actor
}

// AttachmentFailure reports a document that could not be stored
type AttachmentFailure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// ReservationResponse is the external view of a reservation
type ReservationResponse struct {
	ID              uuid.UUID    `json:"id"`
	Kind            string       `json:"kind"`
	Code            string       `json:"code"`
	ParentKind      string       `json:"parent_kind"`
	ParentID        uuid.UUID    `json:"parent_id"`
	ParentCode      string       `json:"parent_code"`
	NaturalKey      string       `json:"natural_key"`
	Reserved        QuantityView `json:"reserved"`
	Status          string       `json:"status"`
	StatusRemark    string       `json:"status_remark,omitempty"`
	CreatedBy       string       `json:"created_by"`
	StatusUpdatedBy string       `json:"status_updated_by,omitempty"`
	StatusUpdatedAt *time.Time   `json:"status_updated_at,omitempty"`
	AttachmentRefs  []string     `json:"attachment_refs"`
	Stacks          []StackView  `json:"stacks,omitempty"`
	BalanceBefore   QuantityView `json:"balance_before"`
	Revision        int          `json:"revision"`
	Version         int          `json:"version"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// ToReservationResponse converts a domain reservation
func ToReservationResponse(r *ledger.Reservation) ReservationResponse {
	resp := ReservationResponse{
		ID:              r.ID,
		Kind:            string(r.Kind),
		Code:            r.Code,
		ParentKind:      string(r.Parent.Kind),
		ParentID:        r.Parent.ID,
		ParentCode:      r.Parent.Code,
		NaturalKey:      r.NaturalKey,
		Reserved:        toQuantityView(r.Reserved),
		Status:          string(r.Status),
		StatusRemark:    r.StatusRemark,
		CreatedBy:       r.CreatedBy,
		StatusUpdatedBy: r.StatusUpdatedBy,
		StatusUpdatedAt: r.StatusUpdatedAt,
		AttachmentRefs:  r.AttachmentRefs,
		BalanceBefore:   toQuantityView(r.BalanceBefore),
		Revision:        r.Revision,
		Version:         r.Version,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	for _, s := range r.Stacks {
		resp.Stacks = append(resp.Stacks, StackView{Label: s.Label, Quantity: s.Quantity.String()})
	}
	return resp
}

// ToReservationResponses converts a list of domain reservations
func ToReservationResponses(rs []*ledger.Reservation) []ReservationResponse {
	out := make([]ReservationResponse, len(rs))
	for i, r := range rs {
		out[i] = ToReservationResponse(r)
	}
	return out
}

// CreateReservationResult is returned by CreateReservation and ReviseReservation
type CreateReservationResult struct {
	Reservation ReservationResponse `json:"reservation"`
	// SecondaryAdjusted is true when the last-unit rule overrode the requested secondary quantity
	SecondaryAdjusted bool                `json:"secondary_adjusted"`
	ParentBalance     BalanceView         `json:"parent_balance"`
	FailedAttachments []AttachmentFailure `json:"failed_attachments,omitempty"`
}

// AuditEntryResponse is one line of a reservation's history
type AuditEntryResponse struct {
	Action        string       `json:"action"`
	Status        string       `json:"status"`
	Remark        string       `json:"remark,omitempty"`
	Reserved      QuantityView `json:"reserved"`
	BalanceBefore QuantityView `json:"balance_before"`
	Actor         string       `json:"actor"`
	Revision      int          `json:"revision"`
	OccurredAt    time.Time    `json:"occurred_at"`
}

// ReservationDetailResponse is a reservation with its audit trail
type ReservationDetailResponse struct {
	ReservationResponse
	Audit []AuditEntryResponse `json:"audit"`
}

func toAuditResponses(entries []ledger.AuditEntry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = AuditEntryResponse{
			Action:        string(e.Action),
			Status:        string(e.Status),
			Remark:        e.Remark,
			Reserved:      toQuantityView(e.Reserved),
			BalanceBefore: toQuantityView(e.BalanceBefore),
			Actor:         e.Actor,
			Revision:      e.Revision,
			OccurredAt:    e.OccurredAt,
		}
	}
	return out
}

// ListParentsRequest asks for parents selectable by a new reservation of ChildKind
type ListParentsRequest struct {
	ChildKind        string
	Search           string
	IncludeExhausted bool
	Page             int
	PageSize         int
	Actor            Actor
}

// ParentOption is one selectable parent with its live balance
type ParentOption struct {
	Kind       string      `json:"kind"`
	ID         uuid.UUID   `json:"id"`
	Code       string      `json:"code"`
	NaturalKey string      `json:"natural_key"`
	IssueMode  string      `json:"issue_mode,omitempty"`
	Balance    BalanceView `json:"balance"`
	Offerable  bool        `json:"offerable"`
	Reason     string      `json:"reason,omitempty"`
}

// ParentListResponse is a page of parent options
type ParentListResponse struct {
	Items []ParentOption `json:"items"`
	Total int64          `json:"total"`
}

// LedgerResponse is a parent's reservation history with its current balance
type LedgerResponse struct {
	Parent       ParentOption          `json:"parent"`
	Reservations []ReservationResponse `json:"reservations"`
}

// BankDetailsInput carries optional financing metadata for an inward lot
type BankDetailsInput struct {
	BankName    string `json:"bank_name"`
	BranchName  string `json:"branch_name"`
	AccountRef  string `json:"account_ref"`
	LoanAccount string `json:"loan_account"`
}

// RegisterInwardLotRequest is the input of RegisterInwardLot
type RegisterInwardLotRequest struct {
	NaturalKey       string
	Commodity        string
	OfferedPrimary   string
	OfferedSecondary string
	Bank             *BankDetailsInput
	Actor            Actor
}

// InwardLotResponse is the external view of an inward lot
type InwardLotResponse struct {
	ID         uuid.UUID         `json:"id"`
	Code       string            `json:"code"`
	NaturalKey string            `json:"natural_key"`
	Commodity  string            `json:"commodity"`
	Offered    QuantityView      `json:"offered"`
	IssueMode  string            `json:"issue_mode"`
	Bank       *BankDetailsInput `json:"bank,omitempty"`
	CreatedBy  string            `json:"created_by"`
	CreatedAt  time.Time         `json:"created_at"`
	Balance    *BalanceView      `json:"balance,omitempty"`
}

// ToInwardLotResponse converts a domain inward lot
func ToInwardLotResponse(l *ledger.InwardLot) InwardLotResponse {
	resp := InwardLotResponse{
		ID:         l.ID,
		Code:       l.Code,
		NaturalKey: l.NaturalKey,
		Commodity:  l.Commodity,
		Offered:    toQuantityView(l.Offered),
		IssueMode:  string(l.IssueMode),
		CreatedBy:  l.CreatedBy,
		CreatedAt:  l.CreatedAt,
	}
	if l.Bank != nil {
		resp.Bank = &BankDetailsInput{
			BankName:    l.Bank.BankName,
			BranchName:  l.Bank.BranchName,
			AccountRef:  l.Bank.AccountRef,
			LoanAccount: l.Bank.LoanAccount,
		}
	}
	return resp
}
