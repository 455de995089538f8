package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by repositories when the requested row does not
// exist.
var ErrNotFound = errors.New("database: not found")

type DB struct {
	conn   *sql.DB
	dbType string
}

type Config struct {
	Type       string
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	SQLitePath string
}

func NewDB(config Config) (*DB, error) {
	var conn *sql.DB
	var err error

	switch config.Type {
	case "sqlite":
		conn, err = sql.Open("sqlite3", config.SQLitePath)
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			config.Host, config.Port, config.User, config.Password, config.Name)
		conn, err = sql.Open("pgx", dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn, dbType: config.Type}

	// Only create tables for SQLite; postgres schemas go through migrations.
	if config.Type == "sqlite" {
		if err := db.createTables(); err != nil {
			return nil, fmt.Errorf("failed to create tables: %w", err)
		}
	}

	return db, nil
}

func (db *DB) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS persons (
		uuid TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		height_cm INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS scans (
		uuid TEXT PRIMARY KEY,
		person_uuid TEXT NOT NULL REFERENCES persons(uuid),
		created_at DATETIME NOT NULL,
		status TEXT NOT NULL,
		saddle_x_cm REAL,
		saddle_y_cm REAL
	);
	CREATE TABLE IF NOT EXISTS modalities (
		scan_uuid TEXT NOT NULL REFERENCES scans(uuid),
		modality TEXT NOT NULL,
		status TEXT NOT NULL,
		payload TEXT,
		PRIMARY KEY (scan_uuid, modality)
	);
	`

	_, err := db.conn.Exec(query)
	return err
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Conn() *sql.DB {
	return db.conn
}

// bind rewrites ? placeholders to $1..$n for postgres so each repository
// statement can be written once.
func (db *DB) bind(query string) string {
	if db.dbType != "postgres" {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
