package router

import (
	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
)

// LedgerRoutes builds the /ledger group. Each route requires at least one of
// the actions it can perform; the services check the exact action again.
func LedgerRoutes(ledger *handler.LedgerHandler, lots *handler.InwardLotHandler) *DomainGroup {
	read := middleware.RequireAnyAction(appledger.ActionRead)
	g := NewDomainGroup("ledger", "/ledger").Use(middleware.TraceAttributes())

	g.GET("/parents", read, ledger.ListParents)
	g.GET("/ledger/:parent_kind/:parent_id", read, ledger.GetLedger)

	g.POST("/reservations", middleware.RequireAnyAction(appledger.ActionCreate), ledger.CreateReservation)
	g.GET("/reservations/:id", read, ledger.GetReservation)
	g.PATCH("/reservations/:id", middleware.RequireAnyAction(appledger.ActionRevise), ledger.ReviseReservation)
	g.POST("/reservations/:id/transition",
		middleware.RequireAnyAction(appledger.ActionApprove, appledger.ActionReject, appledger.ActionResubmit),
		ledger.TransitionReservation)
	g.GET("/reservations/:id/attachments/:index", read, ledger.GetAttachment)

	g.POST("/inward-lots", middleware.RequireAnyAction(appledger.ActionInward), lots.RegisterInwardLot)
	g.GET("/inward-lots/:id", read, lots.GetInwardLot)
	return g
}
