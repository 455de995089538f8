package main

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pedalworks/bikefit/internal/analysis"
	"github.com/pedalworks/bikefit/internal/api"
	"github.com/pedalworks/bikefit/internal/database"
	"github.com/pedalworks/bikefit/internal/storage"
	"github.com/pedalworks/bikefit/internal/vision"
)

func main() {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded .env file")
	}

	port := getEnv("PORT", "8080")

	maxSize, err := strconv.ParseInt(getEnv("MAX_UPLOAD_SIZE", "104857600"), 10, 64)
	if err != nil {
		log.Fatal("Invalid MAX_UPLOAD_SIZE:", err)
	}

	uploadDir := getEnv("UPLOAD_DIR", "./uploads")

	workerURL := os.Getenv("WORKER_URL")
	if workerURL == "" {
		log.Fatal("WORKER_URL environment variable not set")
	}

	workerRetries, err := strconv.Atoi(getEnv("WORKER_RETRIES", "3"))
	if err != nil {
		log.Fatal("Invalid WORKER_RETRIES:", err)
	}

	waitTimeout, err := time.ParseDuration(getEnv("ANALYSIS_WAIT_TIMEOUT", "120s"))
	if err != nil {
		log.Fatal("Invalid ANALYSIS_WAIT_TIMEOUT:", err)
	}

	// Database configuration
	dbConfig := database.Config{Type: getEnv("DB_TYPE", "sqlite")}
	if dbConfig.Type == "postgres" {
		dbConfig.Host = getEnv("DB_HOST", "localhost")
		dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
		if err != nil {
			log.Fatal("Invalid DB_PORT:", err)
		}
		dbConfig.Port = dbPort
		dbConfig.User = getEnv("DB_USER", "bikefit")
		dbConfig.Password = getEnv("DB_PASSWORD", "bikefit_dev")
		dbConfig.Name = getEnv("DB_NAME", "bikefit")
	} else {
		dbConfig.SQLitePath = getEnv("DB_PATH", "./bikefit.db")
	}

	localStorage, err := storage.NewLocalStorage(uploadDir)
	if err != nil {
		log.Fatal("Failed to initialize storage:", err)
	}

	db, err := database.NewDB(dbConfig)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	migrationsPath := getEnv("MIGRATIONS_PATH", "./migrations")
	log.Printf("Running database migrations from %s", migrationsPath)
	if err := db.RunMigrations(migrationsPath); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	persons := database.NewPersonRepository(db)
	scans := database.NewScanRepository(db)
	modalities := database.NewModalityRepository(db)

	analysisService := analysis.NewService(persons, scans, modalities, analysis.Config{
		WaitTimeout: waitTimeout,
	})

	app := &api.App{
		Persons:       persons,
		Scans:         scans,
		Modalities:    modalities,
		Analysis:      analysisService,
		Storage:       localStorage,
		Worker:        vision.NewClient(workerURL, workerRetries),
		MaxUploadSize: maxSize,
	}

	router := api.NewRouter(app)

	log.Printf("Server starting on port %s", port)
	log.Printf("Upload directory: %s", uploadDir)
	log.Printf("Database type: %s", dbConfig.Type)
	if dbConfig.Type == "postgres" {
		log.Printf("Database connection: %s@%s:%d/%s", dbConfig.User, dbConfig.Host, dbConfig.Port, dbConfig.Name)
	} else {
		log.Printf("Database path: %s", dbConfig.SQLitePath)
	}
	log.Printf("Vision worker: %s (retries: %d)", workerURL, workerRetries)

	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatal(err)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
