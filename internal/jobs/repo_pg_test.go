package jobs

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

// passthroughConverter lets non-standard driver values such as []string reach
// the mock, matching the pgx stdlib driver used in production.
type passthroughConverter struct{}

func (passthroughConverter) ConvertValue(v interface{}) (driver.Value, error) { return v, nil }

func TestPGRepoClaimPendingOrdersOldestFirst(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(passthroughConverter{}))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	older := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	// Rows deliberately returned newest-first to exercise the re-sort.
	rows := sqlmock.NewRows([]string{"id", "user_id", "file_name", "file_content", "file_type", "created_at", "updated_at"}).
		AddRow("job-2", "user-1", "b.pdf", []byte{2}, "pdf", newer, newer).
		AddRow("job-1", "user-1", "a.pdf", []byte{1}, "pdf", older, older)

	mock.ExpectQuery("UPDATE upload_jobs").
		WithArgs(sqlmock.AnyArg(), 5).
		WillReturnRows(rows)

	repo := &PGRepo{DB: db}
	claimed, err := repo.ClaimPending(context.Background(), SupportedFileTypes(), 5)
	if err != nil {
		t.Fatalf("ClaimPending: %v", err)
	}
	if len(claimed) != 2 {
		t.Fatalf("claimed %d jobs, want 2", len(claimed))
	}
	if claimed[0].ID != "job-1" || claimed[1].ID != "job-2" {
		t.Fatalf("claim order = [%s, %s], want oldest first", claimed[0].ID, claimed[1].ID)
	}
	if claimed[0].Status != StatusProcessing {
		t.Fatalf("claimed status = %s, want processing", claimed[0].Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoMarkCompleted(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("UPDATE upload_jobs").
		WithArgs("Hello world", "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := &PGRepo{DB: db}
	if err := repo.MarkCompleted(context.Background(), "job-1", "Hello world"); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoMarkFailedOnFinalizedJobReturnsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("UPDATE upload_jobs").
		WithArgs("usage limit exceeded", "job-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := &PGRepo{DB: db}
	err = repo.MarkFailed(context.Background(), "job-1", "usage limit exceeded")
	if err != ErrNotFound {
		t.Fatalf("MarkFailed error = %v, want ErrNotFound", err)
	}
}

func TestPGRepoReclaimStale(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("UPDATE upload_jobs").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	repo := &PGRepo{DB: db}
	reclaimed, err := repo.ReclaimStale(context.Background(), 15*time.Minute)
	if err != nil {
		t.Fatalf("ReclaimStale: %v", err)
	}
	if reclaimed != 3 {
		t.Fatalf("reclaimed = %d, want 3", reclaimed)
	}
}
