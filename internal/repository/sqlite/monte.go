package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mamadbah2/nogal/internal/domain/models"
	"github.com/mamadbah2/nogal/internal/repository"
)

const monteColumns = `id, project_id, name, hectares, density, planting_year, variety`

// MonteRepository implements repository.MonteRepository for SQLite
type MonteRepository struct {
	db *DB
}

// NewMonteRepository creates a new MonteRepository
func NewMonteRepository(db *DB) *MonteRepository {
	return &MonteRepository{db: db}
}

// Create creates a new plot
func (r *MonteRepository) Create(ctx context.Context, monte *models.Monte) error {
	if monte.ID == "" {
		monte.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO montes (`+monteColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		monte.ID, monte.ProjectID, monte.Name, monte.Hectares, monte.Density, monte.PlantingYear, monte.Variety,
	)
	if err != nil {
		return fmt.Errorf("failed to create monte: %w", err)
	}
	return nil
}

// Get retrieves a plot by ID
func (r *MonteRepository) Get(ctx context.Context, id string) (*models.Monte, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+monteColumns+` FROM montes WHERE id = ?`, id)
	monte, err := scanMonte(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get monte: %w", err)
	}
	return &monte, nil
}

// Update replaces the editable fields of a plot
func (r *MonteRepository) Update(ctx context.Context, monte *models.Monte) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE montes SET name = ?, hectares = ?, density = ?, planting_year = ?, variety = ? WHERE id = ?`,
		monte.Name, monte.Hectares, monte.Density, monte.PlantingYear, monte.Variety, monte.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update monte: %w", err)
	}
	return requireAffected(result)
}

// Delete removes a plot and, by cascade, its production records
func (r *MonteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM montes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete monte: %w", err)
	}
	return requireAffected(result)
}

// ListByProject lists the plots of a project ordered by planting year then name
func (r *MonteRepository) ListByProject(ctx context.Context, projectID string) ([]models.Monte, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+monteColumns+` FROM montes WHERE project_id = ? ORDER BY planting_year ASC, name ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list montes: %w", err)
	}
	defer rows.Close()

	var montes []models.Monte
	for rows.Next() {
		monte, err := scanMonte(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan monte: %w", err)
		}
		montes = append(montes, monte)
	}
	return montes, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMonte(s scanner) (models.Monte, error) {
	var m models.Monte
	err := s.Scan(&m.ID, &m.ProjectID, &m.Name, &m.Hectares, &m.Density, &m.PlantingYear, &m.Variety)
	return m, err
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
