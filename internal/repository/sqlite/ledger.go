package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mamadbah2/nogal/internal/domain/models"
)

// ledgerRow is the shared shape of the costs and investments tables.
type ledgerRow struct {
	ID          string
	ProjectID   string
	CampaignID  string
	Category    string
	Amount      float64
	Description string
	Date        time.Time
}

// ledgerTable implements the queries shared by costs and investments.
type ledgerTable struct {
	db    *DB
	table string
	noun  string
}

func (t ledgerTable) create(ctx context.Context, row *ledgerRow) error {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}

	var date sql.NullTime
	if !row.Date.IsZero() {
		date = sql.NullTime{Time: row.Date, Valid: true}
	}

	_, err := t.db.ExecContext(ctx,
		`INSERT INTO `+t.table+` (id, project_id, campaign_id, category, amount, description, date) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.ProjectID, row.CampaignID, row.Category, row.Amount, row.Description, date,
	)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", t.noun, err)
	}
	return nil
}

func (t ledgerTable) delete(ctx context.Context, id string) error {
	result, err := t.db.ExecContext(ctx, `DELETE FROM `+t.table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", t.noun, err)
	}
	return requireAffected(result)
}

func (t ledgerTable) list(ctx context.Context, projectID, campaignID string) ([]ledgerRow, error) {
	query := `SELECT id, project_id, campaign_id, category, amount, description, date FROM ` + t.table + ` WHERE project_id = ?`
	args := []any{projectID}
	if campaignID != "" {
		query += ` AND campaign_id = ?`
		args = append(args, campaignID)
	}
	query += ` ORDER BY date ASC, id ASC`

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", t.noun, err)
	}
	defer rows.Close()

	var out []ledgerRow
	for rows.Next() {
		var row ledgerRow
		var date sql.NullTime
		if err := rows.Scan(&row.ID, &row.ProjectID, &row.CampaignID, &row.Category, &row.Amount, &row.Description, &date); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", t.noun, err)
		}
		if date.Valid {
			row.Date = date.Time
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// CostRepository implements repository.CostRepository for SQLite
type CostRepository struct {
	t ledgerTable
}

// NewCostRepository creates a new CostRepository
func NewCostRepository(db *DB) *CostRepository {
	return &CostRepository{t: ledgerTable{db: db, table: "costs", noun: "cost"}}
}

// Create books a cost
func (r *CostRepository) Create(ctx context.Context, cost *models.Cost) error {
	row := ledgerRow{
		ID:          cost.ID,
		ProjectID:   cost.ProjectID,
		CampaignID:  cost.CampaignID,
		Category:    cost.Category,
		Amount:      float64(cost.Amount),
		Description: cost.Description,
		Date:        cost.Date,
	}
	if err := r.t.create(ctx, &row); err != nil {
		return err
	}
	cost.ID = row.ID
	return nil
}

// Delete removes a cost
func (r *CostRepository) Delete(ctx context.Context, id string) error {
	return r.t.delete(ctx, id)
}

// List lists the costs of a project, optionally restricted to one campaign
func (r *CostRepository) List(ctx context.Context, projectID, campaignID string) ([]models.Cost, error) {
	rows, err := r.t.list(ctx, projectID, campaignID)
	if err != nil {
		return nil, err
	}
	costs := make([]models.Cost, 0, len(rows))
	for _, row := range rows {
		costs = append(costs, models.Cost{
			ID:          row.ID,
			ProjectID:   row.ProjectID,
			CampaignID:  row.CampaignID,
			Category:    row.Category,
			Amount:      models.Amount(row.Amount),
			Description: row.Description,
			Date:        row.Date,
		})
	}
	return costs, nil
}

// InvestmentRepository implements repository.InvestmentRepository for SQLite
type InvestmentRepository struct {
	t ledgerTable
}

// NewInvestmentRepository creates a new InvestmentRepository
func NewInvestmentRepository(db *DB) *InvestmentRepository {
	return &InvestmentRepository{t: ledgerTable{db: db, table: "investments", noun: "investment"}}
}

// Create books an investment
func (r *InvestmentRepository) Create(ctx context.Context, inv *models.Investment) error {
	row := ledgerRow{
		ID:          inv.ID,
		ProjectID:   inv.ProjectID,
		CampaignID:  inv.CampaignID,
		Category:    inv.Category,
		Amount:      float64(inv.Amount),
		Description: inv.Description,
		Date:        inv.Date,
	}
	if err := r.t.create(ctx, &row); err != nil {
		return err
	}
	inv.ID = row.ID
	return nil
}

// Delete removes an investment
func (r *InvestmentRepository) Delete(ctx context.Context, id string) error {
	return r.t.delete(ctx, id)
}

// List lists the investments of a project, optionally restricted to one campaign
func (r *InvestmentRepository) List(ctx context.Context, projectID, campaignID string) ([]models.Investment, error) {
	rows, err := r.t.list(ctx, projectID, campaignID)
	if err != nil {
		return nil, err
	}
	investments := make([]models.Investment, 0, len(rows))
	for _, row := range rows {
		investments = append(investments, models.Investment{
			ID:          row.ID,
			ProjectID:   row.ProjectID,
			CampaignID:  row.CampaignID,
			Category:    row.Category,
			Amount:      models.Amount(row.Amount),
			Description: row.Description,
			Date:        row.Date,
		})
	}
	return investments, nil
}
