// Package models contains domain types for the Sparelens dashboard backend.
package models

import "time"

// UploadedFile represents metadata about an uploaded tabular file.
// Created once per upload and immutable afterwards.
type UploadedFile struct {
	ID               string    `json:"id"`
	OriginalFilename string    `json:"original_filename"`
	StoredFilename   string    `json:"stored_filename"`
	FileSize         int64     `json:"file_size"`
	MimeType         string    `json:"mime_type"`
	UploadDate       time.Time `json:"upload_date"`
	Owner            string    `json:"owner"` // free-text owner tag, "anonymous" when absent
}

// FileSummary is the listing shape returned by GET /files/.
type FileSummary struct {
	ID               string    `json:"id"`
	OriginalFilename string    `json:"original_filename"`
	UploadDate       time.Time `json:"upload_date"`
}
