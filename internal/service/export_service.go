package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/tutorbase/ledger-api/internal/models"
	appErrors "github.com/tutorbase/ledger-api/pkg/errors"
	"github.com/tutorbase/ledger-api/pkg/export"
)

// Export formats supported by the earnings statement endpoint.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type exportRegistry interface {
	Profile(ctx context.Context, tokenID int64) (*models.TutorProfile, error)
}

type exportLedger interface {
	Sessions(ctx context.Context, tutorTokenID int64, filter models.SessionFilter) ([]models.Session, error)
}

// ExportResult is a rendered statement ready to stream to the caller.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportService renders earnings statements over completed sessions.
type ExportService struct {
	registry exportRegistry
	ledger   exportLedger
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(registry exportRegistry, ledger exportLedger, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		registry: registry,
		ledger:   ledger,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

// EarningsStatement renders the completed-session statement for a tutor.
func (s *ExportService) EarningsStatement(ctx context.Context, tutorTokenID int64, format string) (*ExportResult, error) {
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	profile, err := s.registry.Profile(ctx, tutorTokenID)
	if err != nil {
		return nil, err
	}
	sessions, err := s.ledger.Sessions(ctx, tutorTokenID, models.SessionFilter{State: models.SessionStateCompleted})
	if err != nil {
		return nil, err
	}

	statement := buildStatement(sessions)
	title := fmt.Sprintf("Earnings statement - %s (#%d)", profile.Name, profile.TokenID)

	switch format {
	case ExportFormatPDF:
		content, err := s.pdf.Render(statement, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "application/pdf",
			Filename:    fmt.Sprintf("earnings-%d.pdf", tutorTokenID),
		}, nil
	default:
		content, err := s.csv.Render(statement)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("earnings-%d.csv", tutorTokenID),
		}, nil
	}
}

func buildStatement(sessions []models.Session) export.Statement {
	headers := []string{"Session", "Student", "Duration (s)", "Released", "Rating", "Completed At"}
	rows := make([]map[string]string, 0, len(sessions))
	var total int64
	for _, session := range sessions {
		row := map[string]string{
			"Session":      strconv.FormatInt(session.SessionIndex, 10),
			"Student":      session.Student,
			"Duration (s)": strconv.FormatInt(session.DurationSeconds, 10),
			"Released":     strconv.FormatInt(session.EscrowAmount, 10),
		}
		if session.Rating != nil {
			row["Rating"] = strconv.Itoa(int(*session.Rating))
		}
		if session.CompletedAt != nil {
			row["Completed At"] = session.CompletedAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, row)
		total += session.EscrowAmount
	}
	return export.Statement{
		Headers: headers,
		Rows:    rows,
		Summary: map[string]string{
			"Session":  "TOTAL",
			"Released": strconv.FormatInt(total, 10),
		},
	}
}
