package handler

import (
	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// InwardLotHandler registers and reads inward lots
type InwardLotHandler struct {
	BaseHandler
	service *appledger.InwardLotService
}

// NewInwardLotHandler creates a new InwardLotHandler
func NewInwardLotHandler(service *appledger.InwardLotService) *InwardLotHandler {
	return &InwardLotHandler{service: service}
}

// RegisterInwardLot godoc
// @ID           registerLedgerInwardLot
// @Summary      Register an inward lot
// @Description  Records received goods as the root of a reservation chain. The issue mode follows from whether bank details are present.
// @Tags         inward-lots
// @Accept       json
// @Produce      json
// @Param        request  body  RegisterInwardLotBody  true  "Inward lot"
// @Success      201 {object} APIResponse[appledger.InwardLotResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ledger/inward-lots [post]
func (h *InwardLotHandler) RegisterInwardLot(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var body RegisterInwardLotBody
	if err := c.ShouldBindJSON(&body); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	resp, err := h.service.RegisterInwardLot(c.Request.Context(), appledger.RegisterInwardLotRequest{
		NaturalKey:       body.NaturalKey,
		Commodity:        body.Commodity,
		OfferedPrimary:   body.OfferedPrimary,
		OfferedSecondary: orZero(body.OfferedSecondary),
		Bank:             body.Bank,
		Actor:            actor,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// GetInwardLot godoc
// @ID           getLedgerInwardLot
// @Summary      Get an inward lot with its balance
// @Tags         inward-lots
// @Produce      json
// @Param        id  path  string  true  "Inward lot ID"
// @Success      200 {object} APIResponse[appledger.InwardLotResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ledger/inward-lots/{id} [get]
func (h *InwardLotHandler) GetInwardLot(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.service.GetInwardLot(c.Request.Context(), id, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
