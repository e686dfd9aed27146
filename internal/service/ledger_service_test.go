package service

import (
	"context"
	"database/sql"
	"math"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorbase/ledger-api/internal/models"
	appErrors "github.com/tutorbase/ledger-api/pkg/errors"
)

type sessionKey struct {
	tutor int64
	index int64
}

type mockSessionRepo struct {
	sessions map[sessionKey]*models.Session
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: map[sessionKey]*models.Session{}}
}

func (m *mockSessionRepo) NextIndex(ctx context.Context, tx *sqlx.Tx, tutorTokenID int64) (int64, error) {
	next := int64(0)
	for key := range m.sessions {
		if key.tutor == tutorTokenID && key.index >= next {
			next = key.index + 1
		}
	}
	return next, nil
}

func (m *mockSessionRepo) Create(ctx context.Context, tx *sqlx.Tx, session *models.Session) error {
	copied := *session
	m.sessions[sessionKey{session.TutorTokenID, session.SessionIndex}] = &copied
	return nil
}

func (m *mockSessionRepo) Find(ctx context.Context, tutorTokenID, sessionIndex int64) (*models.Session, error) {
	session, ok := m.sessions[sessionKey{tutorTokenID, sessionIndex}]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *session
	return &copied, nil
}

func (m *mockSessionRepo) Lock(ctx context.Context, tx *sqlx.Tx, tutorTokenID, sessionIndex int64) (*models.Session, error) {
	return m.Find(ctx, tutorTokenID, sessionIndex)
}

func (m *mockSessionRepo) Complete(ctx context.Context, tx *sqlx.Tx, tutorTokenID, sessionIndex int64, rating int16) error {
	session, ok := m.sessions[sessionKey{tutorTokenID, sessionIndex}]
	if !ok || session.State != models.SessionStateBooked {
		return sql.ErrNoRows
	}
	session.State = models.SessionStateCompleted
	session.Rating = &rating
	return nil
}

func (m *mockSessionRepo) List(ctx context.Context, tutorTokenID int64, filter models.SessionFilter) ([]models.Session, error) {
	sessions := []models.Session{}
	for index := int64(0); ; index++ {
		session, ok := m.sessions[sessionKey{tutorTokenID, index}]
		if !ok {
			break
		}
		if filter.State != "" && session.State != filter.State {
			continue
		}
		sessions = append(sessions, *session)
	}
	return sessions, nil
}

func (m *mockSessionRepo) EscrowLiability(ctx context.Context) (int64, error) {
	var total int64
	for _, session := range m.sessions {
		if session.State == models.SessionStateBooked {
			total += session.EscrowAmount
		}
	}
	return total, nil
}

type mockBalanceRepo struct {
	balances map[string]int64
}

func newMockBalanceRepo() *mockBalanceRepo {
	return &mockBalanceRepo{balances: map[string]int64{}}
}

func (m *mockBalanceRepo) Credit(ctx context.Context, tx *sqlx.Tx, address string, amount int64) error {
	m.balances[address] += amount
	return nil
}

func (m *mockBalanceRepo) Find(ctx context.Context, address string) (*models.Balance, error) {
	return &models.Balance{Address: address, Available: m.balances[address]}, nil
}

type ledgerFixture struct {
	tutors   *mockTutorRepo
	sessions *mockSessionRepo
	balances *mockBalanceRepo
	events   *mockEventRepo
	svc      *LedgerService
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	f := &ledgerFixture{
		tutors:   newMockTutorRepo(),
		sessions: newMockSessionRepo(),
		balances: newMockBalanceRepo(),
		events:   &mockEventRepo{},
	}
	f.svc = NewLedgerService(nil, f.tutors, f.sessions, f.balances, f.events, nil, NewSequencer(), nil, nil, nil)
	f.svc.runTx = passthroughTx
	return f
}

func (f *ledgerFixture) addTutor(t *testing.T, tokenID int64, owner string, hourlyRate int64, active bool) {
	t.Helper()
	f.tutors.profiles[tokenID] = &models.TutorProfile{
		TokenID:    tokenID,
		Owner:      owner,
		Name:       "Tutor",
		Subject:    "Math",
		HourlyRate: hourlyRate,
		IsActive:   active,
	}
	if tokenID >= f.tutors.nextID {
		f.tutors.nextID = tokenID + 1
	}
}

func TestBookRequiresExactEscrow(t *testing.T) {
	f := newLedgerFixture(t)
	f.addTutor(t, 1, "0xtutor", 100, true)

	// 100/hour for 30 minutes escrows exactly 50.
	for _, payment := range []int64{49, 51} {
		_, err := f.svc.Book(context.Background(), "0xstudent", 1, BookSessionRequest{DurationSeconds: 1800, Payment: payment})
		var appErr *appErrors.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, appErrors.ErrInsufficientPayment.Code, appErr.Code)
	}

	session, err := f.svc.Book(context.Background(), "0xstudent", 1, BookSessionRequest{DurationSeconds: 1800, Payment: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(0), session.SessionIndex)
	assert.Equal(t, int64(50), session.EscrowAmount)
	assert.Equal(t, models.SessionStateBooked, session.State)
	assert.Equal(t, []models.EventType{models.EventSessionBooked}, f.events.events)
}

func TestBookEscrowTruncatesTowardZero(t *testing.T) {
	f := newLedgerFixture(t)
	f.addTutor(t, 1, "0xtutor", 100, true)

	// 100 * 35 / 3600 truncates to 0: a sub-unit session is free.
	session, err := f.svc.Book(context.Background(), "0xstudent", 1, BookSessionRequest{DurationSeconds: 35, Payment: 0})
	require.NoError(t, err)
	assert.Equal(t, int64(0), session.EscrowAmount)

	_, err = f.svc.Book(context.Background(), "0xstudent", 1, BookSessionRequest{DurationSeconds: 36, Payment: 0})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInsufficientPayment.Code, appErr.Code)
}

func TestBookRejectsOverflowingDuration(t *testing.T) {
	f := newLedgerFixture(t)
	f.addTutor(t, 1, "0xtutor", 100, true)

	_, err := f.svc.Book(context.Background(), "0xstudent", 1, BookSessionRequest{DurationSeconds: math.MaxInt64/100 + 1, Payment: 0})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestBookInactiveTutorRejected(t *testing.T) {
	f := newLedgerFixture(t)
	f.addTutor(t, 1, "0xtutor", 100, false)

	_, err := f.svc.Book(context.Background(), "0xstudent", 1, BookSessionRequest{DurationSeconds: 3600, Payment: 100})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrTutorInactive.Code, appErr.Code)
}

func TestBookUnknownTutorRejected(t *testing.T) {
	f := newLedgerFixture(t)

	_, err := f.svc.Book(context.Background(), "0xstudent", 7, BookSessionRequest{DurationSeconds: 3600, Payment: 100})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestBookSequentialIndexesPerTutor(t *testing.T) {
	f := newLedgerFixture(t)
	f.addTutor(t, 1, "0xtutor", 100, true)
	f.addTutor(t, 2, "0xother", 200, true)

	first, err := f.svc.Book(context.Background(), "0xstudent", 1, BookSessionRequest{DurationSeconds: 3600, Payment: 100})
	require.NoError(t, err)
	second, err := f.svc.Book(context.Background(), "0xstudent", 1, BookSessionRequest{DurationSeconds: 3600, Payment: 100})
	require.NoError(t, err)
	other, err := f.svc.Book(context.Background(), "0xstudent", 2, BookSessionRequest{DurationSeconds: 3600, Payment: 200})
	require.NoError(t, err)

	assert.Equal(t, int64(0), first.SessionIndex)
	assert.Equal(t, int64(1), second.SessionIndex)
	assert.Equal(t, int64(0), other.SessionIndex)
}

func TestCompleteReleasesEscrowAndFoldsRating(t *testing.T) {
	f := newLedgerFixture(t)
	f.addTutor(t, 1, "0xtutor", 100, true)

	_, err := f.svc.Book(context.Background(), "0xstudent", 1, BookSessionRequest{DurationSeconds: 3600, Payment: 100})
	require.NoError(t, err)

	completed, err := f.svc.Complete(context.Background(), "0xstudent", 1, 0, CompleteSessionRequest{Rating: 5})
	require.NoError(t, err)
	assert.Equal(t, models.SessionStateCompleted, completed.State)
	require.NotNil(t, completed.Rating)
	assert.Equal(t, int16(5), *completed.Rating)

	balance, err := f.svc.Balance(context.Background(), "0xtutor")
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance.Available)

	profile, err := f.tutors.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(500), profile.Rating())

	liability, err := f.svc.EscrowLiability(context.Background())
	require.NoError(t, err)
	assert.Zero(t, liability)
}

func TestRatingAverageTruncates(t *testing.T) {
	f := newLedgerFixture(t)
	f.addTutor(t, 1, "0xtutor", 100, true)

	for i, rating := range []int16{5, 3} {
		_, err := f.svc.Book(context.Background(), "0xstudent", 1, BookSessionRequest{DurationSeconds: 3600, Payment: 100})
		require.NoError(t, err)
		_, err = f.svc.Complete(context.Background(), "0xstudent", 1, int64(i), CompleteSessionRequest{Rating: rating})
		require.NoError(t, err)
	}

	profile, err := f.tutors.FindByID(context.Background(), 1)
	require.NoError(t, err)
	// (5+3)*100/2 = 400, a 4.00 average at two decimals.
	assert.Equal(t, int64(400), profile.Rating())
}

func TestCompleteOnlyBookingStudent(t *testing.T) {
	f := newLedgerFixture(t)
	f.addTutor(t, 1, "0xtutor", 100, true)

	_, err := f.svc.Book(context.Background(), "0xstudent", 1, BookSessionRequest{DurationSeconds: 3600, Payment: 100})
	require.NoError(t, err)

	_, err = f.svc.Complete(context.Background(), "0xintruder", 1, 0, CompleteSessionRequest{Rating: 5})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	balance, err := f.svc.Balance(context.Background(), "0xtutor")
	require.NoError(t, err)
	assert.Zero(t, balance.Available)
}

func TestCompleteTwiceRejected(t *testing.T) {
	f := newLedgerFixture(t)
	f.addTutor(t, 1, "0xtutor", 100, true)

	_, err := f.svc.Book(context.Background(), "0xstudent", 1, BookSessionRequest{DurationSeconds: 3600, Payment: 100})
	require.NoError(t, err)
	_, err = f.svc.Complete(context.Background(), "0xstudent", 1, 0, CompleteSessionRequest{Rating: 4})
	require.NoError(t, err)

	_, err = f.svc.Complete(context.Background(), "0xstudent", 1, 0, CompleteSessionRequest{Rating: 4})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrAlreadyCompleted.Code, appErr.Code)

	// Escrow is released once, ratings fold once.
	balance, err := f.svc.Balance(context.Background(), "0xtutor")
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance.Available)
	assert.Equal(t, []int16{4}, f.tutors.appliedRatings)
}

func TestCompleteRatingBounds(t *testing.T) {
	f := newLedgerFixture(t)
	f.addTutor(t, 1, "0xtutor", 100, true)

	_, err := f.svc.Book(context.Background(), "0xstudent", 1, BookSessionRequest{DurationSeconds: 3600, Payment: 100})
	require.NoError(t, err)

	for _, rating := range []int16{0, 6} {
		_, err := f.svc.Complete(context.Background(), "0xstudent", 1, 0, CompleteSessionRequest{Rating: rating})
		var appErr *appErrors.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	}
}

func TestCompleteUnknownSession(t *testing.T) {
	f := newLedgerFixture(t)
	f.addTutor(t, 1, "0xtutor", 100, true)

	_, err := f.svc.Complete(context.Background(), "0xstudent", 1, 9, CompleteSessionRequest{Rating: 3})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestSessionsStateFilter(t *testing.T) {
	f := newLedgerFixture(t)
	f.addTutor(t, 1, "0xtutor", 100, true)

	for i := 0; i < 3; i++ {
		_, err := f.svc.Book(context.Background(), "0xstudent", 1, BookSessionRequest{DurationSeconds: 3600, Payment: 100})
		require.NoError(t, err)
	}
	_, err := f.svc.Complete(context.Background(), "0xstudent", 1, 1, CompleteSessionRequest{Rating: 4})
	require.NoError(t, err)

	booked, err := f.svc.Sessions(context.Background(), 1, models.SessionFilter{State: models.SessionStateBooked})
	require.NoError(t, err)
	assert.Len(t, booked, 2)

	completed, err := f.svc.Sessions(context.Background(), 1, models.SessionFilter{State: models.SessionStateCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, int64(1), completed[0].SessionIndex)
}

func TestEscrowLiabilityTracksBookedSessions(t *testing.T) {
	f := newLedgerFixture(t)
	f.addTutor(t, 1, "0xtutor", 100, true)

	_, err := f.svc.Book(context.Background(), "0xstudent", 1, BookSessionRequest{DurationSeconds: 3600, Payment: 100})
	require.NoError(t, err)
	_, err = f.svc.Book(context.Background(), "0xstudent", 1, BookSessionRequest{DurationSeconds: 1800, Payment: 50})
	require.NoError(t, err)

	liability, err := f.svc.EscrowLiability(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(150), liability)

	_, err = f.svc.Complete(context.Background(), "0xstudent", 1, 0, CompleteSessionRequest{Rating: 5})
	require.NoError(t, err)

	liability, err = f.svc.EscrowLiability(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(50), liability)
}
