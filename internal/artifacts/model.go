package artifacts

import "time"

// Artifact kinds.
const (
	KindRawArchive    = "raw-archive"
	KindExtractedText = "extracted-text"
)

// Tags record why an artifact was kept. Raw archives carry downloaded,
// invalid_zip, or extraction_failed; derived text carries extracted.
const (
	TagDownloaded       = "downloaded"
	TagInvalidZip       = "invalid_zip"
	TagExtractionFailed = "extraction_failed"
	TagExtracted        = "extracted"
)

// Artifact is the metadata row recorded for each persisted debug byproduct.
type Artifact struct {
	ID         string
	UserID     string
	FileName   string
	Kind       string
	SizeBytes  int64
	StorageKey string
	CreatedAt  time.Time
}
