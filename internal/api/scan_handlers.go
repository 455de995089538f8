package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pedalworks/bikefit/internal/database"
	"github.com/pedalworks/bikefit/internal/models"
	"github.com/pedalworks/bikefit/internal/storage"
	"github.com/pedalworks/bikefit/internal/vision"
)

type createScanRequest struct {
	PersonUUID string `json:"person_uuid"`
}

type createScanResponse struct {
	PersonUUID string `json:"person_uuid"`
	ScanUUID   string `json:"scan_uuid"`
}

type scanResponse struct {
	UUID       string    `json:"uuid"`
	PersonUUID string    `json:"person_uuid"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

type callbackRequest struct {
	ProcessType string          `json:"process_type"`
	Result      json.RawMessage `json:"result"`
}

type resultResponse struct {
	Done      bool     `json:"done"`
	Status    string   `json:"status"`
	SaddleXCM *float64 `json:"saddle_x_cm,omitempty"`
	SaddleYCM *float64 `json:"saddle_y_cm,omitempty"`
}

var mediaExtensions = map[models.Modality]map[string]bool{
	models.ModalityPhoto: {".jpg": true, ".jpeg": true, ".png": true},
	models.ModalityVideo: {".mp4": true, ".mov": true},
}

func (app *App) CreateScanHandler(w http.ResponseWriter, r *http.Request) {
	var req createScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	person, err := app.Persons.GetByUUID(r.Context(), req.PersonUUID)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusBadRequest, "person not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get person")
		return
	}

	scan := models.NewScan(person.UUID)
	if err := app.Scans.Insert(r.Context(), scan); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to save scan")
		return
	}

	respondJSON(w, http.StatusCreated, createScanResponse{
		PersonUUID: person.UUID,
		ScanUUID:   scan.UUID,
	})
}

func (app *App) GetScanHandler(w http.ResponseWriter, r *http.Request) {
	scan, ok := app.scanFromURL(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, scanResponse{
		UUID:       scan.UUID,
		PersonUUID: scan.PersonUUID,
		Status:     string(scan.Status),
		CreatedAt:  scan.CreatedAt,
	})
}

// UploadMediaHandler receives a scan's photo or video, stores it and asks
// the vision worker to process it. The worker reports back through the
// callback endpoint.
func (app *App) UploadMediaHandler(modality models.Modality) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scan, ok := app.scanFromURL(w, r)
		if !ok {
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, app.MaxUploadSize)
		if err := r.ParseMultipartForm(app.MaxUploadSize); err != nil {
			respondError(w, http.StatusBadRequest, "file too large")
			return
		}

		file, header, err := r.FormFile(string(modality))
		if err != nil {
			respondError(w, http.StatusBadRequest, "failed to get file")
			return
		}
		defer file.Close()

		ext := strings.ToLower(filepath.Ext(header.Filename))
		if !mediaExtensions[modality][ext] {
			respondError(w, http.StatusBadRequest, "unsupported media type "+ext)
			return
		}

		filename, err := app.Storage.SaveMedia(file, storage.FileInfo{
			ScanUUID:    scan.UUID,
			Modality:    modality,
			Extension:   ext,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
		})
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to save file")
			return
		}

		if err := app.Modalities.Ensure(r.Context(), scan.UUID, modality); err != nil {
			respondError(w, http.StatusInternalServerError, "failed to track upload")
			return
		}

		if err := app.Worker.Invoke(r.Context(), scan.UUID, modality, strings.TrimPrefix(ext, ".")); err != nil {
			if errors.Is(err, vision.ErrWorkerUnavailable) {
				respondError(w, http.StatusBadGateway, "processing backend unavailable")
				return
			}
			respondError(w, http.StatusInternalServerError, "failed to start processing")
			return
		}

		respondJSON(w, http.StatusAccepted, map[string]string{
			"scan_uuid": scan.UUID,
			"modality":  string(modality),
			"filename":  filename,
		})
	}
}

// CallbackHandler is the ingress for worker results. Analysis is kicked off
// in the background on video completion; the response never waits for it.
func (app *App) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	scanUUID := chi.URLParam(r, "scanUUID")

	var req callbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	modality := models.Modality(req.ProcessType)
	if modality != models.ModalityPhoto && modality != models.ModalityVideo {
		respondError(w, http.StatusBadRequest, "unknown process_type "+req.ProcessType)
		return
	}

	err := app.Analysis.HandleCallback(r.Context(), scanUUID, modality, req.Result)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "scan not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (app *App) ScanResultHandler(w http.ResponseWriter, r *http.Request) {
	scan, ok := app.scanFromURL(w, r)
	if !ok {
		return
	}

	resp := resultResponse{
		Done:   scan.Status == models.AnalysisDone,
		Status: string(scan.Status),
	}
	if scan.Result != nil {
		resp.SaddleXCM = &scan.Result.SaddleXCM
		resp.SaddleYCM = &scan.Result.SaddleYCM
	}
	respondJSON(w, http.StatusOK, resp)
}

func (app *App) scanFromURL(w http.ResponseWriter, r *http.Request) (*models.Scan, bool) {
	scanUUID := chi.URLParam(r, "scanUUID")

	scan, err := app.Scans.GetByUUID(r.Context(), scanUUID)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "scan not found")
		return nil, false
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get scan")
		return nil, false
	}
	return scan, true
}
