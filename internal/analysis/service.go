package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/pedalworks/bikefit/internal/database"
	"github.com/pedalworks/bikefit/internal/models"
)

// ErrReadyTimeout is returned when the photo and video results do not both
// arrive within the configured wait bound.
var ErrReadyTimeout = errors.New("analysis: timed out waiting for modality results")

const (
	defaultWaitTimeout  = 120 * time.Second
	defaultPollInterval = time.Second
)

type Config struct {
	// WaitTimeout bounds the readiness wait for the second modality.
	WaitTimeout time.Duration
	// PollInterval is the fallback re-check period for completions recorded
	// outside this process.
	PollInterval time.Duration
}

type Service struct {
	persons    *database.PersonRepository
	scans      *database.ScanRepository
	modalities *database.ModalityRepository

	waitTimeout  time.Duration
	pollInterval time.Duration

	mu      sync.Mutex
	running map[string]bool
	wakeups map[string]chan struct{}
}

func NewService(persons *database.PersonRepository, scans *database.ScanRepository, modalities *database.ModalityRepository, config Config) *Service {
	if config.WaitTimeout == 0 {
		config.WaitTimeout = defaultWaitTimeout
	}
	if config.PollInterval == 0 {
		config.PollInterval = defaultPollInterval
	}

	return &Service{
		persons:      persons,
		scans:        scans,
		modalities:   modalities,
		waitTimeout:  config.WaitTimeout,
		pollInterval: config.PollInterval,
		running:      make(map[string]bool),
		wakeups:      make(map[string]chan struct{}),
	}
}

// HandleCallback ingests one modality result from the vision worker. The
// payload is validated, stored, and the modality flipped to done
// (idempotently). Video completion triggers the analysis pipeline in the
// background; the callback request itself never blocks on it.
func (s *Service) HandleCallback(ctx context.Context, scanUUID string, modality models.Modality, payload json.RawMessage) error {
	if _, err := s.scans.GetByUUID(ctx, scanUUID); err != nil {
		return err
	}

	if err := ValidatePayload(modality, payload); err != nil {
		return err
	}

	if err := s.modalities.Ensure(ctx, scanUUID, modality); err != nil {
		return err
	}
	if err := s.modalities.MarkDone(ctx, scanUUID, modality, payload); err != nil {
		return err
	}

	s.wake(scanUUID)

	if modality == models.ModalityVideo {
		s.StartAnalysis(scanUUID)
	}
	return nil
}

// StartAnalysis spawns the analysis run for a scan unless one is already in
// flight. Returns whether a run was started.
func (s *Service) StartAnalysis(scanUUID string) bool {
	s.mu.Lock()
	if s.running[scanUUID] {
		s.mu.Unlock()
		log.Printf("[ANALYSIS] Run already in flight for scan %s", scanUUID)
		return false
	}
	s.running[scanUUID] = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.running, scanUUID)
			delete(s.wakeups, scanUUID)
			s.mu.Unlock()
		}()

		if err := s.Run(context.Background(), scanUUID); err != nil {
			log.Printf("[ANALYSIS] Scan %s failed: %v", scanUUID, err)
		}
	}()
	return true
}

// Run executes one full analysis attempt for a scan: wait for both
// modalities, compute the saddle offset and persist it. Failures are also
// persisted, so a timed-out or broken scan reads as failed rather than
// pending forever.
func (s *Service) Run(ctx context.Context, scanUUID string) error {
	scan, err := s.scans.GetByUUID(ctx, scanUUID)
	if err != nil {
		return err
	}
	if scan.Status == models.AnalysisDone {
		log.Printf("[ANALYSIS] Scan %s already analyzed", scanUUID)
		return nil
	}

	if err := s.scans.SetStatus(ctx, scanUUID, models.AnalysisRunning); err != nil {
		return err
	}

	if err := s.awaitReady(ctx, scanUUID); err != nil {
		return s.fail(scanUUID, err)
	}

	adjustment, err := s.compute(ctx, scan)
	if err != nil {
		return s.fail(scanUUID, err)
	}

	if err := s.scans.SetResult(ctx, scanUUID, adjustment); err != nil {
		return s.fail(scanUUID, err)
	}

	log.Printf("[ANALYSIS] Scan %s done: saddle_y_cm=%.2f", scanUUID, adjustment.SaddleYCM)
	return nil
}

// awaitReady blocks until both modalities are done, a callback wakeup and a
// poll ticker both re-checking the store, bounded by the wait timeout.
func (s *Service) awaitReady(ctx context.Context, scanUUID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.waitTimeout)
	defer cancel()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	wakeup := s.wakeupChan(scanUUID)

	for {
		photo, video, err := s.modalities.Statuses(ctx, scanUUID)
		if err == nil && photo == models.StatusDone && video == models.StatusDone {
			return nil
		}
		if err != nil && ctx.Err() == nil {
			log.Printf("[ANALYSIS] Status check for scan %s: %v", scanUUID, err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w (waited %s)", ErrReadyTimeout, s.waitTimeout)
		case <-wakeup:
		case <-ticker.C:
		}
	}
}

func (s *Service) compute(ctx context.Context, scan *models.Scan) (models.SaddleAdjustment, error) {
	var zero models.SaddleAdjustment

	person, err := s.persons.GetByUUID(ctx, scan.PersonUUID)
	if err != nil {
		return zero, err
	}

	photoRaw, err := s.modalities.Payload(ctx, scan.UUID, models.ModalityPhoto)
	if err != nil {
		return zero, err
	}
	videoRaw, err := s.modalities.Payload(ctx, scan.UUID, models.ModalityVideo)
	if err != nil {
		return zero, err
	}
	if photoRaw == nil || videoRaw == nil {
		return zero, ErrMissingPayload
	}

	var photo PhotoResult
	if err := json.Unmarshal(photoRaw, &photo); err != nil {
		return zero, fmt.Errorf("decoding photo payload: %w", err)
	}
	var video VideoResult
	if err := json.Unmarshal(videoRaw, &video); err != nil {
		return zero, fmt.Errorf("decoding video payload: %w", err)
	}

	return SaddleOffset(&photo, &video, person.HeightCM)
}

func (s *Service) fail(scanUUID string, cause error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.scans.SetStatus(ctx, scanUUID, models.AnalysisFailed); err != nil {
		log.Printf("[ANALYSIS] Could not mark scan %s failed: %v", scanUUID, err)
	}
	return cause
}

// wakeupChan returns the per-scan channel awaitReady listens on.
func (s *Service) wakeupChan(scanUUID string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.wakeups[scanUUID]
	if !ok {
		ch = make(chan struct{}, 1)
		s.wakeups[scanUUID] = ch
	}
	return ch
}

// wake nudges a waiting analysis run without blocking the caller.
func (s *Service) wake(scanUUID string) {
	select {
	case s.wakeupChan(scanUUID) <- struct{}{}:
	default:
	}
}
