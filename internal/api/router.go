package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pedalworks/bikefit/internal/models"
)

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/ping", PingHandler)

	r.Route("/api", func(r chi.Router) {
		r.Route("/persons", func(r chi.Router) {
			r.Post("/", app.CreatePersonHandler)
			r.Get("/", app.ListPersonsHandler)
			r.Get("/{personUUID}", app.GetPersonHandler)
		})

		r.Route("/scans", func(r chi.Router) {
			r.Post("/", app.CreateScanHandler)
			r.Get("/{scanUUID}", app.GetScanHandler)
			r.Post("/{scanUUID}/photo", app.UploadMediaHandler(models.ModalityPhoto))
			r.Post("/{scanUUID}/video", app.UploadMediaHandler(models.ModalityVideo))
			r.Post("/{scanUUID}/callback", app.CallbackHandler)
			r.Get("/{scanUUID}/result", app.ScanResultHandler)
		})
	})

	return r
}

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}
