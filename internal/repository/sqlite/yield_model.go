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

// YieldModelRepository implements repository.YieldModelRepository for SQLite.
// The curve is stored JSON-encoded, as upstream does.
type YieldModelRepository struct {
	db *DB
}

// NewYieldModelRepository creates a new YieldModelRepository
func NewYieldModelRepository(db *DB) *YieldModelRepository {
	return &YieldModelRepository{db: db}
}

// Get retrieves the yield model of a project variety
func (r *YieldModelRepository) Get(ctx context.Context, projectID, variety string) (*models.YieldModel, error) {
	var model models.YieldModel
	var data string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, project_id, variety, data FROM yield_models WHERE project_id = ? AND variety = ?`,
		projectID, variety,
	).Scan(&model.ID, &model.ProjectID, &model.Variety, &data)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get yield model: %w", err)
	}

	curve, err := models.DecodeCurve(data)
	if err != nil {
		return nil, err
	}
	model.Curve = curve
	return &model, nil
}

// Save inserts or replaces the curve of a project variety. The model id is
// kept stable across saves.
func (r *YieldModelRepository) Save(ctx context.Context, model *models.YieldModel) error {
	data, err := models.EncodeCurve(model.Curve)
	if err != nil {
		return err
	}
	if model.ID == "" {
		model.ID = uuid.NewString()
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO yield_models (id, project_id, variety, data) VALUES (?, ?, ?, ?)
		 ON CONFLICT (project_id, variety) DO UPDATE SET data = excluded.data`,
		model.ID, model.ProjectID, model.Variety, data,
	)
	if err != nil {
		return fmt.Errorf("failed to save yield model: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT id FROM yield_models WHERE project_id = ? AND variety = ?`,
		model.ProjectID, model.Variety,
	).Scan(&model.ID)
	if err != nil {
		return fmt.Errorf("failed to reload yield model id: %w", err)
	}
	return nil
}
