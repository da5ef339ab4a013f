package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skyward/fts-api/internal/dto"
	"github.com/skyward/fts-api/internal/models"
	"github.com/skyward/fts-api/pkg/config"
	appErrors "github.com/skyward/fts-api/pkg/errors"
	"github.com/skyward/fts-api/pkg/export"
	"github.com/skyward/fts-api/pkg/storage"
	"github.com/skyward/fts-api/pkg/timeutil"
)

type logbookRepository interface {
	List(ctx context.Context, filter models.LogbookFilter) ([]models.LogbookEntry, int, error)
	TotalMinutes(ctx context.Context, courseID, studentID string) (int, error)
}

// Supported export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// LogbookService reads training logbooks and renders downloadable exports.
// Exports land in local storage and are handed out through signed URLs so
// the files themselves never sit behind an unauthenticated path.
type LogbookService struct {
	entries logbookRepository
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	files   *storage.LocalStorage
	signer  *storage.SignedURLSigner
	cfg     config.LogbookConfig
	logger  *zap.Logger
	now     func() time.Time
}

// NewLogbookService wires logbook reads and exports.
func NewLogbookService(
	entries logbookRepository,
	files *storage.LocalStorage,
	signer *storage.SignedURLSigner,
	cfg config.LogbookConfig,
	logger *zap.Logger,
) *LogbookService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogbookService{
		entries: entries,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		files:   files,
		signer:  signer,
		cfg:     cfg,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// List returns logbook entries matching the filter with pagination metadata.
func (s *LogbookService) List(ctx context.Context, filter models.LogbookFilter) ([]models.LogbookEntry, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	entries, total, err := s.entries.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list logbook")
	}
	return entries, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// TotalTime returns the student's accumulated session time as HH:MM.
func (s *LogbookService) TotalTime(ctx context.Context, courseID, studentID string) (string, error) {
	minutes, err := s.entries.TotalMinutes(ctx, courseID, studentID)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "sum logbook minutes")
	}
	return timeutil.MinutesToClock(minutes), nil
}

// Export renders the student's full logbook to the requested format, stores
// the file, and returns a signed download descriptor.
func (s *LogbookService) Export(ctx context.Context, courseID, studentID, format string) (*dto.LogbookExportResponse, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	var entries []models.LogbookEntry
	for page := 1; ; page++ {
		batch, _, err := s.entries.List(ctx, models.LogbookFilter{
			CourseID:  courseID,
			StudentID: studentID,
			Page:      page,
			PageSize:  200,
		})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list logbook")
		}
		entries = append(entries, batch...)
		if len(batch) < 200 {
			break
		}
	}

	dataset := buildLogbookDataset(entries)

	var payload []byte
	var err error
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, "Training Logbook")
	}
	if err != nil {
		return nil, fmt.Errorf("render logbook export: %w", err)
	}

	exportID := uuid.NewString()
	fileName := fmt.Sprintf("logbook-%s-%s.%s", studentID, s.now().Format("20060102T150405"), format)
	relPath, err := s.files.Save(fileName, payload)
	if err != nil {
		return nil, fmt.Errorf("store logbook export: %w", err)
	}

	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, fmt.Errorf("sign download url: %w", err)
	}

	s.logger.Info("logbook exported",
		zap.String("student_id", studentID),
		zap.String("format", format),
		zap.Int("rows", len(entries)),
	)
	return &dto.LogbookExportResponse{
		FileName:    fileName,
		Format:      format,
		DownloadURL: fmt.Sprintf("/logbook/downloads/%s", token),
		ExpiresAt:   expiresAt,
		RowCount:    len(entries),
	}, nil
}

// OpenDownload validates a signed token and opens the exported file.
func (s *LogbookService) OpenDownload(token string) (*os.File, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	file, err := s.files.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
	}
	return file, nil
}

// StartCleanup removes expired export files on the configured interval until
// the context is cancelled.
func (s *LogbookService) StartCleanup(ctx context.Context) {
	interval := s.cfg.CleanupInterval
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := s.files.CleanupOlderThan(s.cfg.SignedURLTTL)
				if err != nil {
					s.logger.Warn("export cleanup failed", zap.Error(err))
					continue
				}
				if len(removed) > 0 {
					s.logger.Info("expired exports removed", zap.Int("count", len(removed)))
				}
			}
		}
	}()
}

func buildLogbookDataset(entries []models.LogbookEntry) export.Dataset {
	headers := []string{"Date", "Exercise", "Instructor", "Duration", "Remarks"}
	rows := make([]map[string]string, 0, len(entries))
	for _, e := range entries {
		remarks := ""
		if e.Remarks != nil {
			remarks = *e.Remarks
		}
		rows = append(rows, map[string]string{
			"Date":       e.SessionDate.UTC().Format("2006-01-02"),
			"Exercise":   e.ExerciseID,
			"Instructor": e.InstructorID,
			"Duration":   timeutil.MinutesToClock(e.SessionMinutes),
			"Remarks":    remarks,
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
