package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tutorbase/ledger-api/internal/middleware"
	"github.com/tutorbase/ledger-api/internal/models"
	"github.com/tutorbase/ledger-api/internal/service"
	appErrors "github.com/tutorbase/ledger-api/pkg/errors"
	"github.com/tutorbase/ledger-api/pkg/response"
)

type sessionLedger interface {
	Book(ctx context.Context, student string, tutorTokenID int64, req service.BookSessionRequest) (*models.Session, error)
	Complete(ctx context.Context, caller string, tutorTokenID, sessionIndex int64, req service.CompleteSessionRequest) (*models.Session, error)
	Session(ctx context.Context, tutorTokenID, sessionIndex int64) (*models.Session, error)
	Sessions(ctx context.Context, tutorTokenID int64, filter models.SessionFilter) ([]models.Session, error)
}

// SessionHandler wires the session ledger to HTTP routes.
type SessionHandler struct {
	ledger sessionLedger
}

// NewSessionHandler constructs a new SessionHandler.
func NewSessionHandler(ledger sessionLedger) *SessionHandler {
	return &SessionHandler{ledger: ledger}
}

// Book godoc
// @Summary Book a session against an active tutor, escrowing the payment
// @Tags Sessions
// @Accept json
// @Produce json
// @Param tokenId path int true "Tutor token ID"
// @Param payload body service.BookSessionRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Router /tutors/{tokenId}/sessions [post]
func (h *SessionHandler) Book(c *gin.Context) {
	claims := middleware.Claims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	tokenID, err := parseTokenID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req service.BookSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid booking payload"))
		return
	}

	session, err := h.ledger.Book(c.Request.Context(), claims.Address, tokenID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// Complete godoc
// @Summary Complete a booked session, releasing escrow and recording the rating
// @Tags Sessions
// @Accept json
// @Produce json
// @Param tokenId path int true "Tutor token ID"
// @Param index path int true "Session index"
// @Param payload body service.CompleteSessionRequest true "Completion payload"
// @Success 200 {object} response.Envelope
// @Router /tutors/{tokenId}/sessions/{index}/complete [post]
func (h *SessionHandler) Complete(c *gin.Context) {
	claims := middleware.Claims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	tokenID, err := parseTokenID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	index, err := parseSessionIndex(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req service.CompleteSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid completion payload"))
		return
	}

	session, err := h.ledger.Complete(c.Request.Context(), claims.Address, tokenID, index, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session)
}

// List godoc
// @Summary List a tutor's sessions in index order
// @Tags Sessions
// @Produce json
// @Param tokenId path int true "Tutor token ID"
// @Param state query string false "Filter by state (booked/completed)"
// @Success 200 {object} response.Envelope
// @Router /tutors/{tokenId}/sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	tokenID, err := parseTokenID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	filter := models.SessionFilter{}
	switch c.Query("state") {
	case "":
	case string(models.SessionStateBooked):
		filter.State = models.SessionStateBooked
	case string(models.SessionStateCompleted):
		filter.State = models.SessionStateCompleted
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "state must be booked or completed"))
		return
	}

	sessions, err := h.ledger.Sessions(c.Request.Context(), tokenID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions)
}

// Get godoc
// @Summary Get one session by tutor token id and index
// @Tags Sessions
// @Produce json
// @Param tokenId path int true "Tutor token ID"
// @Param index path int true "Session index"
// @Success 200 {object} response.Envelope
// @Router /tutors/{tokenId}/sessions/{index} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	tokenID, err := parseTokenID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	index, err := parseSessionIndex(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	session, err := h.ledger.Session(c.Request.Context(), tokenID, index)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session)
}

func parseSessionIndex(c *gin.Context) (int64, error) {
	index, err := strconv.ParseInt(c.Param("index"), 10, 64)
	if err != nil || index < 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid session index")
	}
	return index, nil
}
