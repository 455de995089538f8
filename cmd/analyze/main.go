// Command analyze re-runs the saddle analysis for a stored scan, for
// example after a scan ended up failed because one modality arrived late.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pedalworks/bikefit/internal/analysis"
	"github.com/pedalworks/bikefit/internal/database"
)

func main() {
	var (
		scanUUID = flag.String("scan", "", "Scan UUID to analyze")
		timeout  = flag.Duration("timeout", 10*time.Second, "Readiness wait bound")
	)
	flag.Parse()

	if *scanUUID == "" {
		log.Fatal("Please provide a scan UUID with -scan")
	}

	godotenv.Load()

	dbConfig := database.Config{Type: getEnv("DB_TYPE", "sqlite")}
	if dbConfig.Type == "postgres" {
		dbConfig.Host = getEnv("DB_HOST", "localhost")
		port, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
		if err != nil {
			log.Fatal("Invalid DB_PORT:", err)
		}
		dbConfig.Port = port
		dbConfig.User = getEnv("DB_USER", "bikefit")
		dbConfig.Password = getEnv("DB_PASSWORD", "bikefit_dev")
		dbConfig.Name = getEnv("DB_NAME", "bikefit")
	} else {
		dbConfig.SQLitePath = getEnv("DB_PATH", "./bikefit.db")
	}

	db, err := database.NewDB(dbConfig)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	persons := database.NewPersonRepository(db)
	scans := database.NewScanRepository(db)
	modalities := database.NewModalityRepository(db)

	service := analysis.NewService(persons, scans, modalities, analysis.Config{
		WaitTimeout: *timeout,
	})

	ctx := context.Background()
	if err := service.Run(ctx, *scanUUID); err != nil {
		log.Fatal("Analysis failed:", err)
	}

	scan, err := scans.GetByUUID(ctx, *scanUUID)
	if err != nil {
		log.Fatal("Failed to reload scan:", err)
	}

	fmt.Printf("Scan %s: %s\n", scan.UUID, scan.Status)
	if scan.Result != nil {
		fmt.Printf("  saddle_x_cm: %.2f\n", scan.Result.SaddleXCM)
		fmt.Printf("  saddle_y_cm: %.2f\n", scan.Result.SaddleYCM)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
