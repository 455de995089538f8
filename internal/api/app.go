package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/pedalworks/bikefit/internal/analysis"
	"github.com/pedalworks/bikefit/internal/database"
	"github.com/pedalworks/bikefit/internal/models"
	"github.com/pedalworks/bikefit/internal/storage"
)

// WorkerInvoker starts remote processing of one scan modality. Satisfied by
// vision.Client.
type WorkerInvoker interface {
	Invoke(ctx context.Context, scanUUID string, processType models.Modality, fileExtension string) error
}

type App struct {
	Persons       *database.PersonRepository
	Scans         *database.ScanRepository
	Modalities    *database.ModalityRepository
	Analysis      *analysis.Service
	Storage       storage.Storage
	Worker        WorkerInvoker
	MaxUploadSize int64
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[API] Failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
