package service

import (
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyward/fts-api/internal/models"
	"github.com/skyward/fts-api/pkg/config"
	appErrors "github.com/skyward/fts-api/pkg/errors"
	"github.com/skyward/fts-api/pkg/storage"
)

type stubLogbookEntries struct {
	entries []models.LogbookEntry
	minutes int
}

func (s *stubLogbookEntries) List(_ context.Context, filter models.LogbookFilter) ([]models.LogbookEntry, int, error) {
	if filter.Page > 1 {
		return nil, len(s.entries), nil
	}
	return s.entries, len(s.entries), nil
}

func (s *stubLogbookEntries) TotalMinutes(_ context.Context, _, _ string) (int, error) {
	return s.minutes, nil
}

func newLogbookFixture(t *testing.T, entries []models.LogbookEntry) *LogbookService {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	cfg := config.LogbookConfig{SignedURLTTL: time.Hour}
	return NewLogbookService(&stubLogbookEntries{entries: entries, minutes: 155}, files, signer, cfg, nil)
}

func sessionEntry(minutes int, remarks string) models.LogbookEntry {
	var r *string
	if remarks != "" {
		r = &remarks
	}
	return models.LogbookEntry{
		ID:             "entry-1",
		CourseID:       "course-1",
		StudentID:      "stu-1",
		InstructorID:   "ins-1",
		ExerciseID:     "ex-1",
		SessionDate:    time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC),
		SessionMinutes: minutes,
		Remarks:        r,
	}
}

func TestTotalTimeFormatsClock(t *testing.T) {
	svc := newLogbookFixture(t, nil)

	got, err := svc.TotalTime(context.Background(), "course-1", "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "02:35", got)
}

func TestExportCSVRoundTrip(t *testing.T) {
	svc := newLogbookFixture(t, []models.LogbookEntry{sessionEntry(90, "windy")})

	resp, err := svc.Export(context.Background(), "course-1", "stu-1", "CSV")
	require.NoError(t, err)

	assert.Equal(t, "csv", resp.Format)
	assert.Equal(t, 1, resp.RowCount)
	assert.Contains(t, resp.DownloadURL, "/logbook/downloads/")
	assert.True(t, resp.ExpiresAt.After(time.Now()))

	token := strings.TrimPrefix(resp.DownloadURL, "/logbook/downloads/")
	file, err := svc.OpenDownload(token)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"Date", "Exercise", "Instructor", "Duration", "Remarks"}, records[0])
	assert.Equal(t, "2025-06-10", records[1][0])
	assert.Equal(t, "01:30", records[1][3])
	assert.Equal(t, "windy", records[1][4])
}

func TestExportPDF(t *testing.T) {
	svc := newLogbookFixture(t, []models.LogbookEntry{sessionEntry(60, "")})

	resp, err := svc.Export(context.Background(), "course-1", "stu-1", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "pdf", resp.Format)
	assert.True(t, strings.HasSuffix(resp.FileName, ".pdf"))
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	svc := newLogbookFixture(t, nil)

	_, err := svc.Export(context.Background(), "course-1", "stu-1", "xlsx")

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestOpenDownloadRejectsTamperedToken(t *testing.T) {
	svc := newLogbookFixture(t, []models.LogbookEntry{sessionEntry(30, "")})

	resp, err := svc.Export(context.Background(), "course-1", "stu-1", "csv")
	require.NoError(t, err)

	token := strings.TrimPrefix(resp.DownloadURL, "/logbook/downloads/")
	_, err = svc.OpenDownload(token + "x")
	assert.Error(t, err)
}
