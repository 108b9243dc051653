package handler

import (
	"strings"

	appledger "github.com/erp/ledger/internal/application/ledger"
)

// ListParentsQuery filters the parent picker
type ListParentsQuery struct {
	Kind             string `form:"kind" binding:"required" example:"delivery_order"`
	Search           string `form:"search" binding:"omitempty,max=100"`
	IncludeExhausted bool   `form:"include_exhausted"`
	Page             int    `form:"page" binding:"omitempty,min=1"`
	PageSize         int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// StackBody is one stack line of an outward movement
type StackBody struct {
	Label    string `json:"label" binding:"required,max=50" example:"A-12"`
	Quantity string `json:"quantity" binding:"required,decimal_gt0" example:"10"`
}

// CreateReservationBody is the body of POST /reservations, as JSON or multipart form.
// In multipart requests stacks is a JSON array in a single form field.
type CreateReservationBody struct {
	Kind              string      `json:"kind" form:"kind" binding:"required" example:"release_order"`
	ParentKind        string      `json:"parent_kind" form:"parent_kind" binding:"required" example:"inward_lot"`
	ParentID          string      `json:"parent_id" form:"parent_id" binding:"required,uuid"`
	ReservedPrimary   string      `json:"reserved_primary" form:"reserved_primary" binding:"required,decimal_gt0" example:"40"`
	ReservedSecondary string      `json:"reserved_secondary" form:"reserved_secondary" binding:"omitempty,decimal_gte0" example:"12.345"`
	AttachmentRefs    []string    `json:"attachment_refs" form:"attachment_refs" binding:"omitempty,dive,url"`
	Stacks            []StackBody `json:"stacks" form:"-" binding:"omitempty,dive"`
}

// ReviseReservationBody is the body of PATCH /reservations/:id
type ReviseReservationBody struct {
	ReservedPrimary   string      `json:"reserved_primary" form:"reserved_primary" binding:"required,decimal_gt0" example:"35"`
	ReservedSecondary string      `json:"reserved_secondary" form:"reserved_secondary" binding:"omitempty,decimal_gte0"`
	AttachmentRefs    []string    `json:"attachment_refs" form:"attachment_refs" binding:"omitempty,dive,url"`
	Stacks            []StackBody `json:"stacks" form:"-" binding:"omitempty,dive"`
}

// TransitionBody is the body of POST /reservations/:id/transition
type TransitionBody struct {
	Status string `json:"status" binding:"required" example:"approved"`
	Remark string `json:"remark" binding:"max=500" example:"quantities verified"`
}

// RegisterInwardLotBody is the body of POST /inward-lots
type RegisterInwardLotBody struct {
	NaturalKey       string                      `json:"natural_key" binding:"required,max=100" example:"SR-2024-0113"`
	Commodity        string                      `json:"commodity" binding:"max=100" example:"maize"`
	OfferedPrimary   string                      `json:"offered_primary" binding:"required,decimal_gt0" example:"100"`
	OfferedSecondary string                      `json:"offered_secondary" binding:"omitempty,decimal_gte0" example:"25.000"`
	Bank             *appledger.BankDetailsInput `json:"bank"`
}

// AttachmentLinkResponse is a short-lived download link
type AttachmentLinkResponse struct {
	URL       string `json:"url"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

func toStackInputs(in []StackBody) []appledger.StackInput {
	if len(in) == 0 {
		return nil
	}
	out := make([]appledger.StackInput, len(in))
	for i, s := range in {
		out[i] = appledger.StackInput{Label: s.Label, Quantity: s.Quantity}
	}
	return out
}

// orZero treats an omitted secondary quantity as zero
func orZero(q string) string {
	if strings.TrimSpace(q) == "" {
		return "0"
	}
	return q
}
