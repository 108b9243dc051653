package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// IdempotencyKeyHeader deduplicates reservation creates
const IdempotencyKeyHeader = "Idempotency-Key"

// AttachmentLinker turns a stored attachment URL into a short-lived download link
type AttachmentLinker interface {
	DownloadURL(ctx context.Context, ref string) (string, time.Time, error)
}

// LedgerHandler serves reservations, parents and ledger views
type LedgerHandler struct {
	BaseHandler
	allocation *appledger.AllocationService
	approval   *appledger.ApprovalService
	queries    *appledger.QueryService
	linker     AttachmentLinker
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(
	allocation *appledger.AllocationService,
	approval *appledger.ApprovalService,
	queries *appledger.QueryService,
) *LedgerHandler {
	return &LedgerHandler{allocation: allocation, approval: approval, queries: queries}
}

// SetAttachmentLinker enables presigned attachment downloads
func (h *LedgerHandler) SetAttachmentLinker(linker AttachmentLinker) {
	h.linker = linker
}

// ListParents godoc
// @ID           listLedgerParents
// @Summary      List selectable parents
// @Description  Returns the parents a new reservation of the given kind may be made against, with live balances
// @Tags         ledger
// @Produce      json
// @Param        kind               query    string  true   "Child kind" Enums(release_order, delivery_order, outward_movement)
// @Param        search             query    string  false  "Code or natural key fragment"
// @Param        include_exhausted  query    bool    false  "Include parents without remaining balance"
// @Param        page               query    int     false  "Page number" default(1)
// @Param        page_size          query    int     false  "Page size" default(20)
// @Success      200 {object} APIResponse[[]appledger.ParentOption]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ledger/parents [get]
func (h *LedgerHandler) ListParents(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var q ListParentsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	resp, err := h.queries.ListParents(c.Request.Context(), appledger.ListParentsRequest{
		ChildKind:        q.Kind,
		Search:           q.Search,
		IncludeExhausted: q.IncludeExhausted,
		Page:             q.Page,
		PageSize:         q.PageSize,
		Actor:            actor,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	page, pageSize := q.Page, q.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	h.SuccessWithMeta(c, resp.Items, resp.Total, page, pageSize)
}

// CreateReservation godoc
// @ID           createLedgerReservation
// @Summary      Create a reservation
// @Description  Reserves quantity against a parent's remaining balance. Accepts JSON with attachment URLs or multipart with files under "attachments".
// @Tags         ledger
// @Accept       json
// @Accept       mpfd
// @Produce      json
// @Param        Idempotency-Key  header  string                 false  "Deduplicates retries"
// @Param        request          body    CreateReservationBody  true   "Reservation"
// @Success      201 {object} APIResponse[appledger.CreateReservationResult]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse "Parent not found"
// @Failure      409 {object} ErrorResponse "Quantity exceeds balance"
// @Failure      502 {object} ErrorResponse "Attachment storage failed"
// @Security     BearerAuth
// @Router       /ledger/reservations [post]
func (h *LedgerHandler) CreateReservation(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var body CreateReservationBody
	if err := c.ShouldBind(&body); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	var files []appledger.AttachmentFile
	if isMultipart(c) {
		stacks, uploaded, err := multipartExtras(c)
		if err != nil {
			h.BadRequest(c, err.Error())
			return
		}
		body.Stacks, files = stacks, uploaded
	}
	parentID, err := uuid.Parse(body.ParentID)
	if err != nil {
		h.BadRequest(c, "Invalid parent_id")
		return
	}

	result, err := h.allocation.CreateReservation(c.Request.Context(), appledger.CreateReservationRequest{
		Kind:              body.Kind,
		Parent:            appledger.ParentSelector{Kind: body.ParentKind, ID: parentID},
		ReservedPrimary:   body.ReservedPrimary,
		ReservedSecondary: orZero(body.ReservedSecondary),
		AttachmentRefs:    body.AttachmentRefs,
		Files:             files,
		Stacks:            toStackInputs(body.Stacks),
		IdempotencyKey:    c.GetHeader(IdempotencyKeyHeader),
		Actor:             actor,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// ReviseReservation godoc
// @ID           reviseLedgerReservation
// @Summary      Revise a reservation
// @Description  Changes the quantity, documents or stacks of a pending or rejected reservation and resubmits it
// @Tags         ledger
// @Accept       json
// @Accept       mpfd
// @Produce      json
// @Param        id       path  string                 true  "Reservation ID"
// @Param        request  body  ReviseReservationBody  true  "Revision"
// @Success      200 {object} APIResponse[appledger.CreateReservationResult]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ledger/reservations/{id} [patch]
func (h *LedgerHandler) ReviseReservation(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	var body ReviseReservationBody
	if err := c.ShouldBind(&body); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	var files []appledger.AttachmentFile
	if isMultipart(c) {
		stacks, uploaded, err := multipartExtras(c)
		if err != nil {
			h.BadRequest(c, err.Error())
			return
		}
		body.Stacks, files = stacks, uploaded
	}

	result, err := h.allocation.ReviseReservation(c.Request.Context(), appledger.ReviseReservationRequest{
		ID:                id,
		ReservedPrimary:   body.ReservedPrimary,
		ReservedSecondary: orZero(body.ReservedSecondary),
		AttachmentRefs:    body.AttachmentRefs,
		Files:             files,
		Stacks:            toStackInputs(body.Stacks),
		Actor:             actor,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// TransitionReservation godoc
// @ID           transitionLedgerReservation
// @Summary      Approve, reject or resubmit a reservation
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Param        id       path  string          true  "Reservation ID"
// @Param        request  body  TransitionBody  true  "Target status and remark"
// @Success      200 {object} APIResponse[appledger.ReservationResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse "Invalid transition"
// @Security     BearerAuth
// @Router       /ledger/reservations/{id}/transition [post]
func (h *LedgerHandler) TransitionReservation(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	var body TransitionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	resp, err := h.approval.Transition(c.Request.Context(), appledger.TransitionRequest{
		ID:     id,
		Status: body.Status,
		Remark: body.Remark,
		Actor:  actor,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetReservation godoc
// @ID           getLedgerReservation
// @Summary      Get a reservation with its audit trail
// @Tags         ledger
// @Produce      json
// @Param        id  path  string  true  "Reservation ID"
// @Success      200 {object} APIResponse[appledger.ReservationDetailResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ledger/reservations/{id} [get]
func (h *LedgerHandler) GetReservation(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.queries.GetReservation(c.Request.Context(), id, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetAttachment godoc
// @ID           getLedgerReservationAttachment
// @Summary      Download a reservation attachment
// @Description  Redirects to a short-lived link for the attachment at the given position
// @Tags         ledger
// @Param        id     path  string  true  "Reservation ID"
// @Param        index  path  int     true  "Attachment position, starting at 0"
// @Success      307
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ledger/reservations/{id}/attachments/{index} [get]
func (h *LedgerHandler) GetAttachment(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		h.BadRequest(c, "Invalid index")
		return
	}

	resp, err := h.queries.GetReservation(c.Request.Context(), id, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if index >= len(resp.AttachmentRefs) {
		h.NotFound(c, "Attachment not found")
		return
	}

	target := resp.AttachmentRefs[index]
	if h.linker != nil {
		link, _, err := h.linker.DownloadURL(c.Request.Context(), target)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		target = link
	}
	c.Redirect(http.StatusTemporaryRedirect, target)
}

// GetLedger godoc
// @ID           getLedgerHistory
// @Summary      Get a parent's ledger
// @Description  Returns the reservations made against a parent, newest first, with its current balance
// @Tags         ledger
// @Produce      json
// @Param        parent_kind  path  string  true  "Parent kind" Enums(inward_lot, release_order, delivery_order)
// @Param        parent_id    path  string  true  "Parent ID"
// @Success      200 {object} APIResponse[appledger.LedgerResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ledger/ledger/{parent_kind}/{parent_id} [get]
func (h *LedgerHandler) GetLedger(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	parentID, ok := h.uuidParam(c, "parent_id")
	if !ok {
		return
	}

	resp, err := h.queries.GetLedger(c.Request.Context(), c.Param("parent_kind"), parentID, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
