package artifacts

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"cvextract-backend/internal/shared/storage/object"
	"cvextract-backend/internal/shared/telemetry"
	"cvextract-backend/internal/shared/util"
)

// Store persists debug artifacts. Every operation is best-effort: failures
// are logged and an empty key returned, never propagated — a missing debug
// artifact must not fail the job that produced it.
type Store struct {
	Objects      object.ObjectStore
	Repo         Repo
	RetentionCap int
	Now          func() time.Time
}

// NewStore constructs a Store with the given retention cap per kind.
func NewStore(objects object.ObjectStore, repo Repo, retentionCap int) *Store {
	return &Store{
		Objects:      objects,
		Repo:         repo,
		RetentionCap: retentionCap,
		Now:          func() time.Time { return time.Now().UTC() },
	}
}

// SaveRaw persists a raw result archive under the given tag and returns the
// storage key, or "" on failure.
func (s *Store) SaveRaw(ctx context.Context, data []byte, fileName, userID, tag string) string {
	key := s.key(userID, fileName, tag, "zip")
	return s.save(ctx, key, KindRawArchive, userID, fileName, "application/zip", data)
}

// SaveText persists extracted plain text and returns the storage key, or ""
// on failure.
func (s *Store) SaveText(ctx context.Context, text, fileName, userID string) string {
	key := s.key(userID, fileName, TagExtracted, "txt")
	return s.save(ctx, key, KindExtractedText, userID, fileName, "text/plain; charset=utf-8", []byte(text))
}

func (s *Store) save(ctx context.Context, key, kind, userID, fileName, contentType string, data []byte) string {
	size, err := s.Objects.SaveWithKey(ctx, key, contentType, bytes.NewReader(data))
	if err != nil {
		telemetry.Error("artifacts.save_failed", map[string]any{
			"key":   key,
			"kind":  kind,
			"error": err.Error(),
		})
		return ""
	}

	if err := s.Repo.Record(ctx, Artifact{
		ID:         uuid.NewString(),
		UserID:     userID,
		FileName:   fileName,
		Kind:       kind,
		SizeBytes:  size,
		StorageKey: key,
		CreatedAt:  s.now(),
	}); err != nil {
		telemetry.Error("artifacts.record_failed", map[string]any{
			"key":   key,
			"kind":  kind,
			"error": err.Error(),
		})
		return key
	}

	s.prune(ctx, kind)
	return key
}

// prune asks the storage collaborator to enforce the per-kind retention cap.
func (s *Store) prune(ctx context.Context, kind string) {
	if s.RetentionCap <= 0 {
		return
	}
	evicted, err := s.Repo.Prune(ctx, kind, s.RetentionCap)
	if err != nil {
		telemetry.Error("artifacts.prune_failed", map[string]any{
			"kind":  kind,
			"error": err.Error(),
		})
		return
	}
	if evicted > 0 {
		telemetry.Debug("artifacts.pruned", map[string]any{"kind": kind, "evicted": evicted})
	}
}

// key derives the deterministic artifact key. The millisecond timestamp
// keeps keys unique per attempt and the tag records why the artifact was kept.
func (s *Store) key(userID, fileName, tag, ext string) string {
	base := util.ArtifactBaseName(fileName)
	owner := strings.TrimSpace(userID)
	if owner == "" {
		owner = "unknown"
	}
	return fmt.Sprintf("%s_%d_%s_%s.%s", owner, s.now().UnixMilli(), base, tag, ext)
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
