package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tutorbase/ledger-api/internal/dto"
	"github.com/tutorbase/ledger-api/internal/models"
	appErrors "github.com/tutorbase/ledger-api/pkg/errors"
	"github.com/tutorbase/ledger-api/pkg/response"
)

type eventLister interface {
	List(ctx context.Context, afterID int64, limit int) ([]models.LedgerEvent, error)
}

type balanceLedger interface {
	Balance(ctx context.Context, address string) (*models.Balance, error)
	EscrowLiability(ctx context.Context) (int64, error)
}

// LedgerHandler exposes the notification feed, balances and escrow
// liability.
type LedgerHandler struct {
	ledger balanceLedger
	events eventLister
}

// NewLedgerHandler constructs a new LedgerHandler.
func NewLedgerHandler(ledger balanceLedger, events eventLister) *LedgerHandler {
	return &LedgerHandler{ledger: ledger, events: events}
}

// Events godoc
// @Summary Poll the append-only notification log
// @Tags Ledger
// @Produce json
// @Param after_id query int false "Return events with id greater than this"
// @Param limit query int false "Maximum events to return"
// @Success 200 {object} response.Envelope
// @Router /events [get]
func (h *LedgerHandler) Events(c *gin.Context) {
	afterID, _ := strconv.ParseInt(c.DefaultQuery("after_id", "0"), 10, 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	events, err := h.events.List(c.Request.Context(), afterID, limit)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events"))
		return
	}

	var cursor int64 = afterID
	if len(events) > 0 {
		cursor = events[len(events)-1].ID
	}
	response.JSON(c, http.StatusOK, events, map[string]interface{}{"cursor": cursor})
}

// Balance godoc
// @Summary Get released funds for an address
// @Tags Ledger
// @Produce json
// @Param address path string true "Ledger address"
// @Success 200 {object} response.Envelope
// @Router /balances/{address} [get]
func (h *LedgerHandler) Balance(c *gin.Context) {
	address := strings.TrimSpace(c.Param("address"))
	if address == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "address is required"))
		return
	}
	balance, err := h.ledger.Balance(c.Request.Context(), address)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, balance)
}

// Escrow godoc
// @Summary Report total escrow held for booked sessions
// @Tags Ledger
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /ledger/escrow [get]
func (h *LedgerHandler) Escrow(c *gin.Context) {
	total, err := h.ledger.EscrowLiability(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.EscrowLiabilityResponse{TotalEscrow: total})
}
