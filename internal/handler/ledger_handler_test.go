package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorbase/ledger-api/internal/models"
)

type stubEventLister struct {
	events    []models.LedgerEvent
	lastAfter int64
	lastLimit int
}

func (s *stubEventLister) List(ctx context.Context, afterID int64, limit int) ([]models.LedgerEvent, error) {
	s.lastAfter = afterID
	s.lastLimit = limit
	return s.events, nil
}

type stubBalanceLedger struct {
	balance *models.Balance
	escrow  int64
}

func (s *stubBalanceLedger) Balance(ctx context.Context, address string) (*models.Balance, error) {
	return s.balance, nil
}

func (s *stubBalanceLedger) EscrowLiability(ctx context.Context) (int64, error) {
	return s.escrow, nil
}

func ledgerRouter(ledger *stubBalanceLedger, events *stubEventLister) *gin.Engine {
	router := gin.New()
	h := NewLedgerHandler(ledger, events)
	router.GET("/events", h.Events)
	router.GET("/balances/:address", h.Balance)
	router.GET("/ledger/escrow", h.Escrow)
	return router
}

func TestLedgerHandlerEventsCursor(t *testing.T) {
	events := &stubEventLister{events: []models.LedgerEvent{
		{ID: 6, Type: models.EventSessionBooked, TutorTokenID: 1},
		{ID: 7, Type: models.EventTutorRegistered, TutorTokenID: 2},
	}}
	router := ledgerRouter(&stubBalanceLedger{}, events)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/events?after_id=5&limit=10", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(5), events.lastAfter)
	assert.Equal(t, 10, events.lastLimit)

	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Meta)
	assert.Equal(t, float64(7), envelope.Meta["cursor"])
}

func TestLedgerHandlerEventsEmptyKeepsCursor(t *testing.T) {
	events := &stubEventLister{}
	router := ledgerRouter(&stubBalanceLedger{}, events)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/events?after_id=42", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, float64(42), envelope.Meta["cursor"])
}

func TestLedgerHandlerBalance(t *testing.T) {
	ledger := &stubBalanceLedger{balance: &models.Balance{Address: "0xtutor", Available: 150}}
	router := ledgerRouter(ledger, &stubEventLister{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/balances/0xtutor", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	data := envelope.Data.(map[string]interface{})
	assert.Equal(t, float64(150), data["available"])
}

func TestLedgerHandlerEscrow(t *testing.T) {
	router := ledgerRouter(&stubBalanceLedger{escrow: 250}, &stubEventLister{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ledger/escrow", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	data := envelope.Data.(map[string]interface{})
	assert.Equal(t, float64(250), data["total_escrow"])
}
