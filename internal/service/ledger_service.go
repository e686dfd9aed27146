package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/tutorbase/ledger-api/internal/models"
	"github.com/tutorbase/ledger-api/internal/repository"
	appErrors "github.com/tutorbase/ledger-api/pkg/errors"
)

type ledgerTutorRepository interface {
	FindByID(ctx context.Context, tokenID int64) (*models.TutorProfile, error)
	Lock(ctx context.Context, tx *sqlx.Tx, tokenID int64) (*models.TutorProfile, error)
	ApplyCompletion(ctx context.Context, tx *sqlx.Tx, tokenID int64, rating int16) error
}

type ledgerSessionRepository interface {
	NextIndex(ctx context.Context, tx *sqlx.Tx, tutorTokenID int64) (int64, error)
	Create(ctx context.Context, tx *sqlx.Tx, session *models.Session) error
	Find(ctx context.Context, tutorTokenID, sessionIndex int64) (*models.Session, error)
	Lock(ctx context.Context, tx *sqlx.Tx, tutorTokenID, sessionIndex int64) (*models.Session, error)
	Complete(ctx context.Context, tx *sqlx.Tx, tutorTokenID, sessionIndex int64, rating int16) error
	List(ctx context.Context, tutorTokenID int64, filter models.SessionFilter) ([]models.Session, error)
	EscrowLiability(ctx context.Context) (int64, error)
}

type ledgerBalanceRepository interface {
	Credit(ctx context.Context, tx *sqlx.Tx, address string, amount int64) error
	Find(ctx context.Context, address string) (*models.Balance, error)
}

// BookSessionRequest is the payload for booking a session. Payment is
// the amount the settlement layer already moved, in base currency
// units; the ledger verifies it and takes custody as escrow.
type BookSessionRequest struct {
	DurationSeconds int64 `json:"duration_seconds" validate:"required,gt=0"`
	Payment         int64 `json:"payment" validate:"gte=0"`
}

// CompleteSessionRequest carries the student's rating for the finished
// session.
type CompleteSessionRequest struct {
	Rating int16 `json:"rating" validate:"required,min=1,max=5"`
}

// LedgerService owns session records and escrow accounting: booking,
// completion, and the derived rating aggregates those transitions feed.
type LedgerService struct {
	tutors    ledgerTutorRepository
	sessions  ledgerSessionRepository
	balances  ledgerBalanceRepository
	events    eventAppender
	cache     *CacheService
	seq       *Sequencer
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	runTx     txRunner
}

// NewLedgerService constructs a LedgerService.
func NewLedgerService(db *sqlx.DB, tutors ledgerTutorRepository, sessions ledgerSessionRepository, balances ledgerBalanceRepository, events eventAppender, cache *CacheService, seq *Sequencer, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService) *LedgerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if seq == nil {
		seq = NewSequencer()
	}
	return &LedgerService{
		tutors:    tutors,
		sessions:  sessions,
		balances:  balances,
		events:    events,
		cache:     cache,
		seq:       seq,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
		runTx: func(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
			return repository.WithTx(ctx, db, fn)
		},
	}
}

// Book creates a booked session for the caller against an active tutor.
// Payment must equal hourlyRate * durationSeconds / 3600 exactly; both
// under- and over-payment are rejected so no funds are silently lost or
// implicitly refunded. Session record, escrow custody and notification
// land in one transaction.
func (s *LedgerService) Book(ctx context.Context, student string, tutorTokenID int64, req BookSessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}

	session := &models.Session{
		TutorTokenID:    tutorTokenID,
		Student:         student,
		DurationSeconds: req.DurationSeconds,
		EscrowAmount:    req.Payment,
		State:           models.SessionStateBooked,
	}

	err := s.seq.Do(func() error {
		return s.runTx(ctx, func(tx *sqlx.Tx) error {
			profile, err := s.tutors.Lock(ctx, tx, tutorTokenID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
				}
				return err
			}
			if !profile.IsActive {
				return appErrors.ErrTutorInactive
			}

			// hourly_rate is always positive; the product must stay
			// within int64 before the /3600.
			if req.DurationSeconds > math.MaxInt64/profile.HourlyRate {
				return appErrors.Clone(appErrors.ErrValidation, "session duration too large")
			}

			required := profile.RequiredEscrow(req.DurationSeconds)
			if req.Payment != required {
				return appErrors.Clone(appErrors.ErrInsufficientPayment,
					fmt.Sprintf("payment %d does not match required escrow %d", req.Payment, required))
			}

			index, err := s.sessions.NextIndex(ctx, tx, tutorTokenID)
			if err != nil {
				return err
			}
			session.SessionIndex = index

			if err := s.sessions.Create(ctx, tx, session); err != nil {
				return err
			}
			return s.events.Append(ctx, tx, models.EventSessionBooked, tutorTokenID, models.SessionBookedPayload{
				TutorTokenID:    tutorTokenID,
				SessionIndex:    index,
				Student:         student,
				DurationSeconds: req.DurationSeconds,
				Payment:         req.Payment,
			})
		})
	})
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to book session")
	}

	if s.metrics != nil {
		s.metrics.SessionBooked(session.EscrowAmount)
	}
	s.logger.Info("session booked",
		zap.Int64("tutor_token_id", tutorTokenID),
		zap.Int64("session_index", session.SessionIndex),
		zap.Int64("escrow", session.EscrowAmount))
	return session, nil
}

// Complete transitions a booked session to completed: the full escrow
// is released to the tutor's owner, and the rating folds into the
// profile aggregates. Only the booking student may call this. A failed
// precondition leaves ratings, escrow and state untouched.
func (s *LedgerService) Complete(ctx context.Context, caller string, tutorTokenID, sessionIndex int64, req CompleteSessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "rating must be between 1 and 5")
	}

	var completed *models.Session
	err := s.seq.Do(func() error {
		if err := s.runTx(ctx, func(tx *sqlx.Tx) error {
			profile, err := s.tutors.Lock(ctx, tx, tutorTokenID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
				}
				return err
			}

			session, err := s.sessions.Lock(ctx, tx, tutorTokenID, sessionIndex)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return appErrors.Clone(appErrors.ErrNotFound, "session not found")
				}
				return err
			}
			if session.Student != caller {
				return appErrors.Clone(appErrors.ErrForbidden, "only the booking student may complete the session")
			}
			if session.State != models.SessionStateBooked {
				return appErrors.ErrAlreadyCompleted
			}

			if err := s.sessions.Complete(ctx, tx, tutorTokenID, sessionIndex, req.Rating); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return appErrors.ErrAlreadyCompleted
				}
				return err
			}
			if err := s.tutors.ApplyCompletion(ctx, tx, tutorTokenID, req.Rating); err != nil {
				return err
			}
			if err := s.balances.Credit(ctx, tx, profile.Owner, session.EscrowAmount); err != nil {
				return err
			}

			rating := req.Rating
			session.State = models.SessionStateCompleted
			session.Rating = &rating
			completed = session
			return nil
		}); err != nil {
			return err
		}
		s.cache.Invalidate(ctx, CacheKeyTutorProfile(tutorTokenID))
		return nil
	})
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete session")
	}

	if s.metrics != nil {
		s.metrics.SessionCompleted(completed.EscrowAmount)
	}
	s.logger.Info("session completed",
		zap.Int64("tutor_token_id", tutorTokenID),
		zap.Int64("session_index", sessionIndex),
		zap.Int64("released", completed.EscrowAmount))
	return completed, nil
}

// Session returns one session by its composite key.
func (s *LedgerService) Session(ctx context.Context, tutorTokenID, sessionIndex int64) (*models.Session, error) {
	session, err := s.sessions.Find(ctx, tutorTokenID, sessionIndex)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

// Sessions lists a tutor's sessions in index order.
func (s *LedgerService) Sessions(ctx context.Context, tutorTokenID int64, filter models.SessionFilter) ([]models.Session, error) {
	if _, err := s.tutors.FindByID(ctx, tutorTokenID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutor")
	}
	sessions, err := s.sessions.List(ctx, tutorTokenID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return sessions, nil
}

// Balance returns the released funds for an address.
func (s *LedgerService) Balance(ctx context.Context, address string) (*models.Balance, error) {
	balance, err := s.balances.Find(ctx, address)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load balance")
	}
	return balance, nil
}

// EscrowLiability reports the total escrow the ledger currently holds
// for booked sessions.
func (s *LedgerService) EscrowLiability(ctx context.Context) (int64, error) {
	total, err := s.sessions.EscrowLiability(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute escrow liability")
	}
	return total, nil
}
