package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/tutorbase/ledger-api/internal/models"
	"github.com/tutorbase/ledger-api/internal/repository"
	appErrors "github.com/tutorbase/ledger-api/pkg/errors"
)

type registryTutorRepository interface {
	NextTokenID(ctx context.Context, tx *sqlx.Tx) (int64, error)
	Create(ctx context.Context, tx *sqlx.Tx, profile *models.TutorProfile) error
	FindByID(ctx context.Context, tokenID int64) (*models.TutorProfile, error)
	Lock(ctx context.Context, tx *sqlx.Tx, tokenID int64) (*models.TutorProfile, error)
	ListActiveIDs(ctx context.Context) ([]int64, error)
	ListIDsByOwner(ctx context.Context, owner string) ([]int64, error)
	SetActive(ctx context.Context, tx *sqlx.Tx, tokenID int64, active bool) error
}

type eventAppender interface {
	Append(ctx context.Context, tx *sqlx.Tx, eventType models.EventType, tutorTokenID int64, payload interface{}) error
}

type txRunner func(ctx context.Context, fn func(tx *sqlx.Tx) error) error

// RegisterTutorRequest is the payload for minting a tutor identity.
type RegisterTutorRequest struct {
	Name       string `json:"name" validate:"required"`
	Subject    string `json:"subject" validate:"required"`
	Bio        string `json:"bio" validate:"required"`
	HourlyRate int64  `json:"hourly_rate" validate:"required,gt=0"`
	TokenURI   string `json:"token_uri"`
}

// RegistryService owns tutor identities: minting, profile reads, the
// active index, and activation flips.
type RegistryService struct {
	tutors    registryTutorRepository
	events    eventAppender
	cache     *CacheService
	seq       *Sequencer
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	runTx     txRunner
}

// NewRegistryService constructs a RegistryService.
func NewRegistryService(db *sqlx.DB, tutors registryTutorRepository, events eventAppender, cache *CacheService, seq *Sequencer, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService) *RegistryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if seq == nil {
		seq = NewSequencer()
	}
	return &RegistryService{
		tutors:    tutors,
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

// Register mints a new tutor identity owned by the caller. The id
// allocation, profile insert, active-index membership and notification
// all land in one transaction.
func (s *RegistryService) Register(ctx context.Context, caller string, req RegisterTutorRequest) (*models.TutorProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid tutor payload")
	}
	name := strings.TrimSpace(req.Name)
	subject := strings.TrimSpace(req.Subject)
	bio := strings.TrimSpace(req.Bio)
	if name == "" || subject == "" || bio == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "name, subject and bio must not be empty")
	}

	profile := &models.TutorProfile{
		Owner:      caller,
		Name:       name,
		Subject:    subject,
		Bio:        bio,
		HourlyRate: req.HourlyRate,
		TokenURI:   strings.TrimSpace(req.TokenURI),
		IsActive:   true,
	}

	err := s.seq.Do(func() error {
		if err := s.runTx(ctx, func(tx *sqlx.Tx) error {
			tokenID, err := s.tutors.NextTokenID(ctx, tx)
			if err != nil {
				return err
			}
			profile.TokenID = tokenID
			if err := s.tutors.Create(ctx, tx, profile); err != nil {
				return err
			}
			return s.events.Append(ctx, tx, models.EventTutorRegistered, tokenID, models.TutorRegisteredPayload{
				TokenID: tokenID,
				Owner:   caller,
				Name:    name,
				Subject: subject,
			})
		}); err != nil {
			return err
		}
		s.cache.Invalidate(ctx, CacheKeyActiveTutors)
		return nil
	})
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register tutor")
	}

	if s.metrics != nil {
		s.metrics.TutorRegistered()
	}
	s.logger.Info("tutor registered",
		zap.Int64("token_id", profile.TokenID),
		zap.String("owner", caller),
		zap.String("subject", subject))
	return profile, nil
}

// Profile returns a tutor profile by token id.
func (s *RegistryService) Profile(ctx context.Context, tokenID int64) (*models.TutorProfile, error) {
	key := CacheKeyTutorProfile(tokenID)
	var cached models.TutorProfile
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	profile, err := s.tutors.FindByID(ctx, tokenID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutor")
	}

	_ = s.cache.Set(ctx, key, profile, 0)
	return profile, nil
}

// ActiveTutors returns the active index: token ids of active tutors in
// registration order.
func (s *RegistryService) ActiveTutors(ctx context.Context) ([]int64, error) {
	var cached []int64
	if hit, _ := s.cache.Get(ctx, CacheKeyActiveTutors, &cached); hit {
		return cached, nil
	}

	ids, err := s.tutors.ListActiveIDs(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list active tutors")
	}

	_ = s.cache.Set(ctx, CacheKeyActiveTutors, ids, 0)
	return ids, nil
}

// TutorsByOwner returns every token id minted to an address, active or
// not, in registration order.
func (s *RegistryService) TutorsByOwner(ctx context.Context, owner string) ([]int64, error) {
	ids, err := s.tutors.ListIDsByOwner(ctx, owner)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tutors by owner")
	}
	return ids, nil
}

// SetActive flips the activation flag. Only the profile owner may do
// this; the active index changes in the same transaction as the flag.
func (s *RegistryService) SetActive(ctx context.Context, caller string, tokenID int64, active bool) (*models.TutorProfile, error) {
	var updated *models.TutorProfile
	err := s.seq.Do(func() error {
		if err := s.runTx(ctx, func(tx *sqlx.Tx) error {
			profile, err := s.tutors.Lock(ctx, tx, tokenID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
				}
				return err
			}
			if profile.Owner != caller {
				return appErrors.Clone(appErrors.ErrForbidden, "only the profile owner may change activation")
			}
			if profile.IsActive == active {
				if active {
					return appErrors.Clone(appErrors.ErrConflict, "tutor is already active")
				}
				return appErrors.Clone(appErrors.ErrConflict, "tutor is already inactive")
			}
			if err := s.tutors.SetActive(ctx, tx, tokenID, active); err != nil {
				return err
			}
			profile.IsActive = active
			updated = profile
			return nil
		}); err != nil {
			return err
		}
		s.cache.Invalidate(ctx, CacheKeyActiveTutors)
		s.cache.Invalidate(ctx, CacheKeyTutorProfile(tokenID))
		return nil
	})
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update activation")
	}

	s.logger.Info("tutor activation changed",
		zap.Int64("token_id", tokenID),
		zap.Bool("active", active))
	return updated, nil
}
