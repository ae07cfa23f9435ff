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

const campaignColumns = `id, project_id, year, average_price, total_production, status`

// CampaignRepository implements repository.CampaignRepository for SQLite
type CampaignRepository struct {
	db *DB
}

// NewCampaignRepository creates a new CampaignRepository
func NewCampaignRepository(db *DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

// Create creates a new campaign. A project has at most one campaign per year.
func (r *CampaignRepository) Create(ctx context.Context, campaign *models.Campaign) error {
	if campaign.ID == "" {
		campaign.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO campaigns (`+campaignColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		campaign.ID, campaign.ProjectID, campaign.Year, campaign.AveragePrice, campaign.TotalProduction, campaign.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	return nil
}

// Get retrieves a campaign by ID
func (r *CampaignRepository) Get(ctx context.Context, id string) (*models.Campaign, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = ?`, id)
	campaign, err := scanCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return &campaign, nil
}

// Update replaces price, production total and status of a campaign
func (r *CampaignRepository) Update(ctx context.Context, campaign *models.Campaign) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE campaigns SET year = ?, average_price = ?, total_production = ?, status = ? WHERE id = ?`,
		campaign.Year, campaign.AveragePrice, campaign.TotalProduction, campaign.Status, campaign.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update campaign: %w", err)
	}
	return requireAffected(result)
}

// ListByProject lists the campaigns of a project by ascending year
func (r *CampaignRepository) ListByProject(ctx context.Context, projectID string) ([]models.Campaign, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE project_id = ? ORDER BY year ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []models.Campaign
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, campaign)
	}
	return campaigns, rows.Err()
}

func scanCampaign(s scanner) (models.Campaign, error) {
	var c models.Campaign
	err := s.Scan(&c.ID, &c.ProjectID, &c.Year, &c.AveragePrice, &c.TotalProduction, &c.Status)
	return c, err
}
