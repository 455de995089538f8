package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pedalworks/bikefit/internal/database"
	"github.com/pedalworks/bikefit/internal/models"
)

type createPersonRequest struct {
	Name     string `json:"name"`
	HeightCM int    `json:"height_cm"`
}

type personResponse struct {
	UUID     string `json:"uuid"`
	Name     string `json:"name"`
	HeightCM int    `json:"height_cm"`
}

func (app *App) CreatePersonHandler(w http.ResponseWriter, r *http.Request) {
	var req createPersonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.HeightCM < 50 || req.HeightCM > 300 {
		respondError(w, http.StatusBadRequest, "height_cm must be between 50 and 300")
		return
	}

	person := models.NewPerson(req.Name, req.HeightCM)
	if err := app.Persons.Insert(r.Context(), person); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to save person")
		return
	}

	respondJSON(w, http.StatusCreated, personResponse{
		UUID:     person.UUID,
		Name:     person.Name,
		HeightCM: person.HeightCM,
	})
}

func (app *App) ListPersonsHandler(w http.ResponseWriter, r *http.Request) {
	persons, err := app.Persons.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list persons")
		return
	}

	out := make([]personResponse, 0, len(persons))
	for _, p := range persons {
		out = append(out, personResponse{UUID: p.UUID, Name: p.Name, HeightCM: p.HeightCM})
	}
	respondJSON(w, http.StatusOK, out)
}

func (app *App) GetPersonHandler(w http.ResponseWriter, r *http.Request) {
	personUUID := chi.URLParam(r, "personUUID")

	person, err := app.Persons.GetByUUID(r.Context(), personUUID)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "person not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get person")
		return
	}

	respondJSON(w, http.StatusOK, personResponse{
		UUID:     person.UUID,
		Name:     person.Name,
		HeightCM: person.HeightCM,
	})
}
