package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/titulapp/capstone-api/internal/models"
	"github.com/titulapp/capstone-api/pkg/config"
	appErrors "github.com/titulapp/capstone-api/pkg/errors"
	"github.com/titulapp/capstone-api/pkg/export"
)

// ExportFormat selects the audit trail download encoding.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

var historyExportHeaders = []string{"Timestamp", "Action", "Actor", "Description"}

// ExportService renders an entity's audit trail as a downloadable file.
type ExportService struct {
	history *HistoryService
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	maxRows int
	enabled bool
	logger  *zap.Logger
}

// NewExportService constructs the service.
func NewExportService(history *HistoryService, cfg config.ExportsConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxRows := cfg.MaxRows
	if maxRows <= 0 {
		maxRows = 5000
	}
	return &ExportService{
		history: history,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		maxRows: maxRows,
		enabled: cfg.Enabled,
		logger:  logger,
	}
}

// Enabled reports whether exports are switched on.
func (s *ExportService) Enabled() bool {
	return s != nil && s.enabled
}

// HistoryExport renders the audit trail of one deliverable. The content type
// and suggested file name accompany the payload.
func (s *ExportService) HistoryExport(ctx context.Context, entityID string, format ExportFormat) ([]byte, string, string, error) {
	if !s.Enabled() {
		return nil, "", "", appErrors.Clone(appErrors.ErrNotFound, "exports are disabled")
	}

	entries, err := s.history.Query(ctx, models.HistoryFilter{
		EntityType: EntityDeliverable,
		EntityID:   entityID,
		Limit:      s.maxRows,
	})
	if err != nil {
		return nil, "", "", err
	}

	dataset := export.Dataset{Headers: historyExportHeaders, Rows: make([]map[string]string, 0, len(entries))}
	for _, entry := range entries {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Timestamp":   entry.CreatedAt.UTC().Format(time.RFC3339),
			"Action":      entry.Action,
			"Actor":       entry.ActorID,
			"Description": entry.Description,
		})
	}

	switch format {
	case ExportCSV:
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return payload, "text/csv", exportFileName(entityID, "csv"), nil
	case ExportPDF:
		payload, err := s.pdf.Render(dataset, "Deliverable History")
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return payload, "application/pdf", exportFileName(entityID, "pdf"), nil
	default:
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func exportFileName(entityID, ext string) string {
	return fmt.Sprintf("history-%s-%s.%s", entityID, time.Now().UTC().Format("20060102"), ext)
}
