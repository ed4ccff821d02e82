package jobs

import "time"

// Status is the processing state of an upload job. Transitions are
// one-directional: queued → processing → completed | failed.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

const (
	FileTypePDF  = "pdf"
	FileTypeDOCX = "docx"
)

// SupportedFileTypes lists the document kinds the extraction pipeline accepts.
func SupportedFileTypes() []string {
	return []string{FileTypePDF, FileTypeDOCX}
}

// UploadJob represents one uploaded file awaiting text extraction.
// ExtractedText is set iff status is completed; ErrorMessage iff failed.
type UploadJob struct {
	ID            string
	UserID        string
	FileName      string
	FileContent   []byte
	FileType      string
	Status        Status
	ExtractedText *string
	ErrorMessage  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
