package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/pedalworks/bikefit/internal/database"
	"github.com/pedalworks/bikefit/internal/models"
	"github.com/pedalworks/bikefit/internal/pose"
)

type testEnv struct {
	service    *Service
	persons    *database.PersonRepository
	scans      *database.ScanRepository
	modalities *database.ModalityRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.NewDB(database.Config{
		Type:       "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	persons := database.NewPersonRepository(db)
	scans := database.NewScanRepository(db)
	modalities := database.NewModalityRepository(db)

	service := NewService(persons, scans, modalities, Config{
		WaitTimeout:  500 * time.Millisecond,
		PollInterval: 20 * time.Millisecond,
	})

	return &testEnv{service: service, persons: persons, scans: scans, modalities: modalities}
}

func (env *testEnv) newScan(t *testing.T) *models.Scan {
	t.Helper()
	ctx := context.Background()

	person := models.NewPerson("Test Rider", 180)
	if err := env.persons.Insert(ctx, person); err != nil {
		t.Fatalf("Failed to insert person: %v", err)
	}

	scan := models.NewScan(person.UUID)
	if err := env.scans.Insert(ctx, scan); err != nil {
		t.Fatalf("Failed to insert scan: %v", err)
	}
	return scan
}

func photoPayload(t *testing.T) json.RawMessage {
	t.Helper()
	return json.RawMessage(`{"width":400,"height":500,"highest_point":50,"lowest_point":450}`)
}

func videoPayload(t *testing.T) json.RawMessage {
	t.Helper()
	video := VideoResult{
		Width:           500,
		Height:          500,
		FacingDirection: pose.FacingRight,
		Frames: []Frame{
			testFrame(pose.Point{X: 100, Y: 200}, pose.Point{X: 100, Y: 300}, pose.Point{X: 140, Y: 380}, 500, 500, 153.4),
		},
	}
	raw, err := json.Marshal(video)
	if err != nil {
		t.Fatalf("marshal video payload: %v", err)
	}
	return raw
}

func waitForTerminalStatus(t *testing.T, env *testEnv, scanUUID string) *models.Scan {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		scan, err := env.scans.GetByUUID(context.Background(), scanUUID)
		if err != nil {
			t.Fatalf("Failed to get scan: %v", err)
		}
		if scan.Status == models.AnalysisDone || scan.Status == models.AnalysisFailed {
			return scan
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Scan %s never reached a terminal status", scanUUID)
	return nil
}

func TestCallbackOrderingsProduceSameResult(t *testing.T) {
	ctx := context.Background()
	results := make([]models.SaddleAdjustment, 0, 2)

	for _, order := range []string{"photo-first", "video-first"} {
		t.Run(order, func(t *testing.T) {
			env := newTestEnv(t)
			scan := env.newScan(t)

			callbacks := []models.Modality{models.ModalityPhoto, models.ModalityVideo}
			if order == "video-first" {
				callbacks = []models.Modality{models.ModalityVideo, models.ModalityPhoto}
			}

			for _, modality := range callbacks {
				payload := photoPayload(t)
				if modality == models.ModalityVideo {
					payload = videoPayload(t)
				}
				if err := env.service.HandleCallback(ctx, scan.UUID, modality, payload); err != nil {
					t.Fatalf("HandleCallback(%s): %v", modality, err)
				}
			}

			final := waitForTerminalStatus(t, env, scan.UUID)
			if final.Status != models.AnalysisDone {
				t.Fatalf("Expected done, got %s", final.Status)
			}
			if final.Result == nil {
				t.Fatal("Expected a stored result")
			}
			results = append(results, *final.Result)
		})
	}

	if len(results) == 2 && results[0] != results[1] {
		t.Errorf("Orderings diverged: %+v vs %+v", results[0], results[1])
	}

	const want = -1.659720661607727
	for _, r := range results {
		if math.Abs(r.SaddleYCM-want) > 1e-6 {
			t.Errorf("saddle_y_cm = %v, want %v", r.SaddleYCM, want)
		}
	}
}

func TestReadinessTimeoutMarksScanFailed(t *testing.T) {
	env := newTestEnv(t)
	scan := env.newScan(t)

	// Only the video ever completes; the wait must expire and the scan must
	// read failed, not pending.
	start := time.Now()
	if err := env.service.HandleCallback(context.Background(), scan.UUID, models.ModalityVideo, videoPayload(t)); err != nil {
		t.Fatalf("HandleCallback: %v", err)
	}

	final := waitForTerminalStatus(t, env, scan.UUID)
	if final.Status != models.AnalysisFailed {
		t.Fatalf("Expected failed, got %s", final.Status)
	}
	if final.Result != nil {
		t.Errorf("Expected no result on timeout, got %+v", final.Result)
	}
	if elapsed := time.Since(start); elapsed < 400*time.Millisecond {
		t.Errorf("Analysis failed before the wait bound elapsed: %v", elapsed)
	}
}

func TestAwaitReadyReturnsTimeoutError(t *testing.T) {
	env := newTestEnv(t)
	scan := env.newScan(t)

	err := env.service.awaitReady(context.Background(), scan.UUID)
	if !errors.Is(err, ErrReadyTimeout) {
		t.Fatalf("Expected ErrReadyTimeout, got %v", err)
	}
}

func TestAwaitReadyWakesOnCallback(t *testing.T) {
	env := newTestEnv(t)
	scan := env.newScan(t)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		done <- env.service.awaitReady(ctx, scan.UUID)
	}()

	// Let the waiter block, then deliver both modalities.
	time.Sleep(30 * time.Millisecond)
	if err := env.service.HandleCallback(ctx, scan.UUID, models.ModalityPhoto, photoPayload(t)); err != nil {
		t.Fatalf("photo callback: %v", err)
	}
	if err := env.service.HandleCallback(ctx, scan.UUID, models.ModalityVideo, videoPayload(t)); err != nil {
		t.Fatalf("video callback: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("awaitReady: %v", err)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("awaitReady did not return after both callbacks")
	}
}

func TestCallbackIdempotent(t *testing.T) {
	env := newTestEnv(t)
	scan := env.newScan(t)
	ctx := context.Background()

	if err := env.service.HandleCallback(ctx, scan.UUID, models.ModalityPhoto, photoPayload(t)); err != nil {
		t.Fatalf("first callback: %v", err)
	}
	if err := env.service.HandleCallback(ctx, scan.UUID, models.ModalityPhoto, photoPayload(t)); err != nil {
		t.Fatalf("repeated callback should be a no-op, got: %v", err)
	}

	status, err := env.modalities.Status(ctx, scan.UUID, models.ModalityPhoto)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status != models.StatusDone {
		t.Errorf("Expected done, got %s", status)
	}
}

func TestCallbackUnknownScan(t *testing.T) {
	env := newTestEnv(t)

	err := env.service.HandleCallback(context.Background(), "no-such-scan", models.ModalityPhoto, photoPayload(t))
	if !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestCallbackRejectsMalformedPayload(t *testing.T) {
	env := newTestEnv(t)
	scan := env.newScan(t)

	err := env.service.HandleCallback(context.Background(), scan.UUID, models.ModalityVideo,
		json.RawMessage(`{"width":500,"height":500,"frames":[]}`))
	if err == nil {
		t.Fatal("Expected validation error for empty frame sequence")
	}

	status, serr := env.modalities.Status(context.Background(), scan.UUID, models.ModalityVideo)
	if serr == nil && status == models.StatusDone {
		t.Error("Malformed payload must not mark the modality done")
	}
}

func TestSingleFlightPerScan(t *testing.T) {
	env := newTestEnv(t)
	scan := env.newScan(t)

	if !env.service.StartAnalysis(scan.UUID) {
		t.Fatal("First StartAnalysis should start a run")
	}
	if env.service.StartAnalysis(scan.UUID) {
		t.Error("Second StartAnalysis must not start a concurrent run")
	}

	waitForTerminalStatus(t, env, scan.UUID)
}
