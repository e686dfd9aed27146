package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tutorbase/ledger-api/internal/dto"
	"github.com/tutorbase/ledger-api/internal/middleware"
	"github.com/tutorbase/ledger-api/internal/models"
	"github.com/tutorbase/ledger-api/internal/service"
	appErrors "github.com/tutorbase/ledger-api/pkg/errors"
	"github.com/tutorbase/ledger-api/pkg/response"
)

type registryService interface {
	Register(ctx context.Context, caller string, req service.RegisterTutorRequest) (*models.TutorProfile, error)
	Profile(ctx context.Context, tokenID int64) (*models.TutorProfile, error)
	ActiveTutors(ctx context.Context) ([]int64, error)
	TutorsByOwner(ctx context.Context, owner string) ([]int64, error)
	SetActive(ctx context.Context, caller string, tokenID int64, active bool) (*models.TutorProfile, error)
}

type exportService interface {
	EarningsStatement(ctx context.Context, tutorTokenID int64, format string) (*service.ExportResult, error)
}

// TutorHandler wires the identity registry to HTTP routes.
type TutorHandler struct {
	registry registryService
	exports  exportService
}

// NewTutorHandler constructs a new TutorHandler.
func NewTutorHandler(registry registryService, exports exportService) *TutorHandler {
	return &TutorHandler{registry: registry, exports: exports}
}

// Register godoc
// @Summary Mint a tutor identity owned by the caller
// @Tags Tutors
// @Accept json
// @Produce json
// @Param payload body service.RegisterTutorRequest true "Tutor payload"
// @Success 201 {object} response.Envelope
// @Router /tutors [post]
func (h *TutorHandler) Register(c *gin.Context) {
	claims := middleware.Claims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.RegisterTutorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid tutor payload"))
		return
	}

	profile, err := h.registry.Register(c.Request.Context(), claims.Address, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.RegisterTutorResponse{TokenID: profile.TokenID})
}

// Get godoc
// @Summary Get a tutor profile
// @Tags Tutors
// @Produce json
// @Param tokenId path int true "Token ID"
// @Success 200 {object} response.Envelope
// @Router /tutors/{tokenId} [get]
func (h *TutorHandler) Get(c *gin.Context) {
	tokenID, err := parseTokenID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	profile, err := h.registry.Profile(c.Request.Context(), tokenID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.TutorProfileFromModel(profile))
}

// Active godoc
// @Summary List active tutor token ids in registration order
// @Tags Tutors
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /tutors/active [get]
func (h *TutorHandler) Active(c *gin.Context) {
	ids, err := h.registry.ActiveTutors(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.TokenIDsResponse{TokenIDs: ids})
}

// ByOwner godoc
// @Summary List token ids minted to an address
// @Tags Tutors
// @Produce json
// @Param owner query string true "Owner address"
// @Success 200 {object} response.Envelope
// @Router /tutors [get]
func (h *TutorHandler) ByOwner(c *gin.Context) {
	owner := strings.TrimSpace(c.Query("owner"))
	if owner == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "owner query parameter is required"))
		return
	}
	ids, err := h.registry.TutorsByOwner(c.Request.Context(), owner)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.TokenIDsResponse{TokenIDs: ids})
}

// Deactivate godoc
// @Summary Remove a tutor from the active index
// @Tags Tutors
// @Produce json
// @Param tokenId path int true "Token ID"
// @Success 200 {object} response.Envelope
// @Router /tutors/{tokenId}/deactivate [post]
func (h *TutorHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

// Reactivate godoc
// @Summary Return a tutor to the active index
// @Tags Tutors
// @Produce json
// @Param tokenId path int true "Token ID"
// @Success 200 {object} response.Envelope
// @Router /tutors/{tokenId}/reactivate [post]
func (h *TutorHandler) Reactivate(c *gin.Context) {
	h.setActive(c, true)
}

func (h *TutorHandler) setActive(c *gin.Context, active bool) {
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
	profile, err := h.registry.SetActive(c.Request.Context(), claims.Address, tokenID, active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.TutorProfileFromModel(profile))
}

// Earnings godoc
// @Summary Export a tutor's completed-session earnings statement
// @Tags Tutors
// @Produce text/csv
// @Produce application/pdf
// @Param tokenId path int true "Token ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /tutors/{tokenId}/earnings/export [get]
func (h *TutorHandler) Earnings(c *gin.Context) {
	tokenID, err := parseTokenID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := c.DefaultQuery("format", service.ExportFormatCSV)
	result, err := h.exports.EarningsStatement(c.Request.Context(), tokenID, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+result.Filename)
	c.Data(http.StatusOK, result.ContentType, result.Content)
}

func parseTokenID(c *gin.Context) (int64, error) {
	tokenID, err := strconv.ParseInt(c.Param("tokenId"), 10, 64)
	if err != nil || tokenID < 1 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid token id")
	}
	return tokenID, nil
}
