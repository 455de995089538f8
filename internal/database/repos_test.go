package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/pedalworks/bikefit/internal/models"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewDB(Config{
		Type:       "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func insertScan(t *testing.T, db *DB) *models.Scan {
	t.Helper()
	ctx := context.Background()

	person := models.NewPerson("Test Rider", 180)
	if err := NewPersonRepository(db).Insert(ctx, person); err != nil {
		t.Fatalf("Failed to insert person: %v", err)
	}

	scan := models.NewScan(person.UUID)
	if err := NewScanRepository(db).Insert(ctx, scan); err != nil {
		t.Fatalf("Failed to insert scan: %v", err)
	}
	return scan
}

func TestPersonRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPersonRepository(db)
	ctx := context.Background()

	person := models.NewPerson("Alex", 172)
	if err := repo.Insert(ctx, person); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := repo.GetByUUID(ctx, person.UUID)
	if err != nil {
		t.Fatalf("GetByUUID: %v", err)
	}
	if got.Name != "Alex" || got.HeightCM != 172 {
		t.Errorf("Unexpected person: %+v", got)
	}

	if _, err := repo.GetByUUID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	persons, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(persons) != 1 {
		t.Errorf("Expected 1 person, got %d", len(persons))
	}
}

func TestScanRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewScanRepository(db)
	ctx := context.Background()

	scan := insertScan(t, db)

	got, err := repo.GetByUUID(ctx, scan.UUID)
	if err != nil {
		t.Fatalf("GetByUUID: %v", err)
	}
	if got.Status != models.AnalysisPending {
		t.Errorf("Fresh scan status = %s", got.Status)
	}
	if got.Result != nil {
		t.Errorf("Fresh scan has result: %+v", got.Result)
	}

	if err := repo.SetStatus(ctx, scan.UUID, models.AnalysisRunning); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	result := models.SaddleAdjustment{SaddleXCM: 0, SaddleYCM: -1.66}
	if err := repo.SetResult(ctx, scan.UUID, result); err != nil {
		t.Fatalf("SetResult: %v", err)
	}

	got, err = repo.GetByUUID(ctx, scan.UUID)
	if err != nil {
		t.Fatalf("GetByUUID after result: %v", err)
	}
	if got.Status != models.AnalysisDone {
		t.Errorf("Status = %s, want done", got.Status)
	}
	if got.Result == nil || got.Result.SaddleYCM != -1.66 {
		t.Errorf("Result = %+v", got.Result)
	}

	t.Run("result write is exactly once", func(t *testing.T) {
		err := repo.SetResult(ctx, scan.UUID, models.SaddleAdjustment{SaddleYCM: 99})
		if err == nil {
			t.Fatal("Expected second SetResult to fail")
		}

		got, err := repo.GetByUUID(ctx, scan.UUID)
		if err != nil {
			t.Fatalf("GetByUUID: %v", err)
		}
		if got.Result.SaddleYCM != -1.66 {
			t.Errorf("Result overwritten: %+v", got.Result)
		}
	})

	t.Run("done status is terminal", func(t *testing.T) {
		if err := repo.SetStatus(ctx, scan.UUID, models.AnalysisFailed); err != nil {
			t.Fatalf("SetStatus: %v", err)
		}
		got, err := repo.GetByUUID(ctx, scan.UUID)
		if err != nil {
			t.Fatalf("GetByUUID: %v", err)
		}
		if got.Status != models.AnalysisDone {
			t.Errorf("Done scan moved to %s", got.Status)
		}
	})
}

func TestModalityRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewModalityRepository(db)
	ctx := context.Background()

	scan := insertScan(t, db)

	photo, video, err := repo.Statuses(ctx, scan.UUID)
	if err != nil {
		t.Fatalf("Statuses: %v", err)
	}
	if photo != models.StatusNew || video != models.StatusNew {
		t.Errorf("Fresh statuses = %s/%s", photo, video)
	}

	if err := repo.Ensure(ctx, scan.UUID, models.ModalityPhoto); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if err := repo.Ensure(ctx, scan.UUID, models.ModalityPhoto); err != nil {
		t.Fatalf("Ensure should be idempotent: %v", err)
	}

	payload := []byte(`{"width":400,"height":500,"highest_point":50,"lowest_point":450}`)
	if err := repo.MarkDone(ctx, scan.UUID, models.ModalityPhoto, payload); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}

	t.Run("mark done keeps first payload", func(t *testing.T) {
		if err := repo.MarkDone(ctx, scan.UUID, models.ModalityPhoto, []byte(`{"width":1}`)); err != nil {
			t.Fatalf("Repeated MarkDone: %v", err)
		}

		got, err := repo.Payload(ctx, scan.UUID, models.ModalityPhoto)
		if err != nil {
			t.Fatalf("Payload: %v", err)
		}
		if string(got) != string(payload) {
			t.Errorf("Payload overwritten: %s", got)
		}
	})

	photo, video, err = repo.Statuses(ctx, scan.UUID)
	if err != nil {
		t.Fatalf("Statuses: %v", err)
	}
	if photo != models.StatusDone {
		t.Errorf("Photo status = %s, want done", photo)
	}
	if video != models.StatusNew {
		t.Errorf("Video status = %s, want new", video)
	}

	t.Run("missing modality row", func(t *testing.T) {
		if _, err := repo.Status(ctx, scan.UUID, models.ModalityVideo); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
		if _, err := repo.Payload(ctx, scan.UUID, models.ModalityVideo); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("mark done without row", func(t *testing.T) {
		if err := repo.MarkDone(ctx, scan.UUID, models.ModalityVideo, payload); err == nil {
			t.Error("Expected error marking a missing modality done")
		}
	})
}
