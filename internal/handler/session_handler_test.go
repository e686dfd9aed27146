package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorbase/ledger-api/internal/models"
	"github.com/tutorbase/ledger-api/internal/service"
	appErrors "github.com/tutorbase/ledger-api/pkg/errors"
)

type stubSessionLedger struct {
	session    *models.Session
	sessions   []models.Session
	err        error
	lastCaller string
	lastFilter models.SessionFilter
}

func (s *stubSessionLedger) Book(ctx context.Context, student string, tutorTokenID int64, req service.BookSessionRequest) (*models.Session, error) {
	s.lastCaller = student
	return s.session, s.err
}

func (s *stubSessionLedger) Complete(ctx context.Context, caller string, tutorTokenID, sessionIndex int64, req service.CompleteSessionRequest) (*models.Session, error) {
	s.lastCaller = caller
	return s.session, s.err
}

func (s *stubSessionLedger) Session(ctx context.Context, tutorTokenID, sessionIndex int64) (*models.Session, error) {
	return s.session, s.err
}

func (s *stubSessionLedger) Sessions(ctx context.Context, tutorTokenID int64, filter models.SessionFilter) ([]models.Session, error) {
	s.lastFilter = filter
	return s.sessions, s.err
}

func sessionRouter(ledger *stubSessionLedger, address string) *gin.Engine {
	router := gin.New()
	h := NewSessionHandler(ledger)
	authed := router.Group("/", withClaims(address))
	authed.POST("/tutors/:tokenId/sessions", h.Book)
	authed.POST("/tutors/:tokenId/sessions/:index/complete", h.Complete)
	router.GET("/tutors/:tokenId/sessions", h.List)
	router.GET("/tutors/:tokenId/sessions/:index", h.Get)
	return router
}

func TestSessionHandlerBook(t *testing.T) {
	ledger := &stubSessionLedger{session: &models.Session{TutorTokenID: 1, SessionIndex: 0, Student: "0xstudent", EscrowAmount: 50, State: models.SessionStateBooked}}
	router := sessionRouter(ledger, "0xstudent")

	body := bytes.NewBufferString(`{"duration_seconds":1800,"payment":50}`)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/tutors/1/sessions", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "0xstudent", ledger.lastCaller)
}

func TestSessionHandlerBookPaymentMismatch(t *testing.T) {
	ledger := &stubSessionLedger{err: appErrors.Clone(appErrors.ErrInsufficientPayment, "payment 49 does not match required escrow 50")}
	router := sessionRouter(ledger, "0xstudent")

	body := bytes.NewBufferString(`{"duration_seconds":1800,"payment":49}`)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/tutors/1/sessions", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrInsufficientPayment.Code, envelope.Error.Code)
}

func TestSessionHandlerBookInvalidBody(t *testing.T) {
	router := sessionRouter(&stubSessionLedger{}, "0xstudent")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/tutors/1/sessions", bytes.NewBufferString(`{"duration_seconds":`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionHandlerComplete(t *testing.T) {
	rating := int16(5)
	ledger := &stubSessionLedger{session: &models.Session{TutorTokenID: 1, SessionIndex: 0, State: models.SessionStateCompleted, Rating: &rating}}
	router := sessionRouter(ledger, "0xstudent")

	body := bytes.NewBufferString(`{"rating":5}`)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/tutors/1/sessions/0/complete", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0xstudent", ledger.lastCaller)
}

func TestSessionHandlerCompleteConflict(t *testing.T) {
	ledger := &stubSessionLedger{err: appErrors.ErrAlreadyCompleted}
	router := sessionRouter(ledger, "0xstudent")

	body := bytes.NewBufferString(`{"rating":5}`)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/tutors/1/sessions/0/complete", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSessionHandlerListStateFilter(t *testing.T) {
	ledger := &stubSessionLedger{sessions: []models.Session{}}
	router := sessionRouter(ledger, "0xstudent")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/tutors/1/sessions?state=completed", nil)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.SessionStateCompleted, ledger.lastFilter.State)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/tutors/1/sessions?state=cancelled", nil)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionHandlerGetInvalidIndex(t *testing.T) {
	router := sessionRouter(&stubSessionLedger{}, "0xstudent")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/tutors/1/sessions/-1", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
