package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mamadbah2/nogal/internal/domain/models"
	"github.com/mamadbah2/nogal/internal/repository"
)

// ProductionRepository implements repository.ProductionRepository for SQLite
type ProductionRepository struct {
	db *DB
}

// NewProductionRepository creates a new ProductionRepository
func NewProductionRepository(db *DB) *ProductionRepository {
	return &ProductionRepository{db: db}
}

// CreateBatch inserts all records in one transaction and returns them with ids
func (r *ProductionRepository) CreateBatch(ctx context.Context, records []models.ProductionRecord) ([]models.ProductionRecord, error) {
	for _, rec := range records {
		if !rec.InputType.Valid() {
			return nil, fmt.Errorf("%w: input_type %q", repository.ErrInvalidInput, rec.InputType)
		}
		if rec.QuantityKg < 0 {
			return nil, fmt.Errorf("%w: negative quantity for monte %s", repository.ErrInvalidInput, rec.MonteID)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO productions (id, monte_id, campaign_id, quantity_kg, input_type) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare production insert: %w", err)
	}
	defer stmt.Close()

	created := make([]models.ProductionRecord, 0, len(records))
	for _, rec := range records {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if _, err := stmt.ExecContext(ctx, rec.ID, rec.MonteID, rec.CampaignID, rec.QuantityKg, string(rec.InputType)); err != nil {
			return nil, fmt.Errorf("failed to create production for monte %s: %w", rec.MonteID, err)
		}
		created = append(created, rec)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit productions: %w", err)
	}
	return created, nil
}

// DeleteBatch removes the given records in one transaction. Unknown ids are ignored.
func (r *ProductionRepository) DeleteBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM productions WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete production %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit production delete: %w", err)
	}
	return nil
}

// ListByCampaign lists the records of one campaign
func (r *ProductionRepository) ListByCampaign(ctx context.Context, campaignID string) ([]models.ProductionRecord, error) {
	return r.list(ctx,
		`SELECT id, monte_id, campaign_id, quantity_kg, input_type FROM productions WHERE campaign_id = ? ORDER BY monte_id, id`,
		campaignID)
}

// ListByProject lists the records of every plot of a project
func (r *ProductionRepository) ListByProject(ctx context.Context, projectID string) ([]models.ProductionRecord, error) {
	return r.list(ctx,
		`SELECT p.id, p.monte_id, p.campaign_id, p.quantity_kg, p.input_type
		 FROM productions p JOIN montes m ON m.id = p.monte_id
		 WHERE m.project_id = ? ORDER BY p.campaign_id, p.monte_id, p.id`,
		projectID)
}

func (r *ProductionRepository) list(ctx context.Context, query string, arg string) ([]models.ProductionRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list productions: %w", err)
	}
	defer rows.Close()

	var records []models.ProductionRecord
	for rows.Next() {
		var rec models.ProductionRecord
		var inputType string
		if err := rows.Scan(&rec.ID, &rec.MonteID, &rec.CampaignID, &rec.QuantityKg, &inputType); err != nil {
			return nil, fmt.Errorf("failed to scan production: %w", err)
		}
		rec.InputType = models.InputType(inputType)
		records = append(records, rec)
	}
	return records, rows.Err()
}
