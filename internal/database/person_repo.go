package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pedalworks/bikefit/internal/models"
)

type PersonRepository struct {
	db *DB
}

func NewPersonRepository(db *DB) *PersonRepository {
	return &PersonRepository{db: db}
}

func (r *PersonRepository) Insert(ctx context.Context, person *models.Person) error {
	query := r.db.bind(`INSERT INTO persons (uuid, name, height_cm) VALUES (?, ?, ?)`)

	_, err := r.db.conn.ExecContext(ctx, query, person.UUID, person.Name, person.HeightCM)
	if err != nil {
		return fmt.Errorf("failed to insert person: %w", err)
	}
	return nil
}

func (r *PersonRepository) GetByUUID(ctx context.Context, uuid string) (*models.Person, error) {
	query := r.db.bind(`SELECT uuid, name, height_cm FROM persons WHERE uuid = ?`)

	var person models.Person
	err := r.db.conn.QueryRowContext(ctx, query, uuid).Scan(&person.UUID, &person.Name, &person.HeightCM)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("person %s: %w", uuid, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	return &person, nil
}

func (r *PersonRepository) List(ctx context.Context) ([]models.Person, error) {
	rows, err := r.db.conn.QueryContext(ctx, `SELECT uuid, name, height_cm FROM persons ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list persons: %w", err)
	}
	defer rows.Close()

	var persons []models.Person
	for rows.Next() {
		var person models.Person
		if err := rows.Scan(&person.UUID, &person.Name, &person.HeightCM); err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		persons = append(persons, person)
	}
	return persons, rows.Err()
}
