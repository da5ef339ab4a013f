package dto

import "time"

// LogbookExportResponse describes a rendered logbook export and its signed
// download token.
type LogbookExportResponse struct {
	FileName    string    `json:"file_name"`
	Format      string    `json:"format"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
	RowCount    int       `json:"row_count"`
}
