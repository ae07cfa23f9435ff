package remote

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/mamadbah2/nogal/internal/domain/models"
	"github.com/mamadbah2/nogal/internal/repository"
)

// ProjectRepository implements repository.ProjectRepository over the farm API
type ProjectRepository struct {
	c *Client
}

func (r *ProjectRepository) Create(ctx context.Context, proj *models.Project) error {
	return r.c.post(ctx, "/projects", proj, proj)
}

func (r *ProjectRepository) Get(ctx context.Context, id string) (*models.Project, error) {
	var proj models.Project
	if err := r.c.get(ctx, pathf("/projects/%s", id), nil, &proj); err != nil {
		return nil, err
	}
	return &proj, nil
}

func (r *ProjectRepository) List(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	if err := r.c.get(ctx, "/projects", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// MonteRepository implements repository.MonteRepository over the farm API
type MonteRepository struct {
	c *Client
}

func (r *MonteRepository) Create(ctx context.Context, monte *models.Monte) error {
	return r.c.post(ctx, pathf("/projects/%s/montes", monte.ProjectID), monte, monte)
}

func (r *MonteRepository) Get(ctx context.Context, id string) (*models.Monte, error) {
	var monte models.Monte
	if err := r.c.get(ctx, pathf("/montes/%s", id), nil, &monte); err != nil {
		return nil, err
	}
	return &monte, nil
}

func (r *MonteRepository) Update(ctx context.Context, monte *models.Monte) error {
	return r.c.put(ctx, pathf("/montes/%s", monte.ID), monte, nil)
}

func (r *MonteRepository) Delete(ctx context.Context, id string) error {
	return r.c.delete(ctx, pathf("/montes/%s", id))
}

func (r *MonteRepository) ListByProject(ctx context.Context, projectID string) ([]models.Monte, error) {
	var montes []models.Monte
	if err := r.c.get(ctx, pathf("/projects/%s/montes", projectID), nil, &montes); err != nil {
		return nil, err
	}
	return montes, nil
}

// CampaignRepository implements repository.CampaignRepository over the farm API
type CampaignRepository struct {
	c *Client
}

func (r *CampaignRepository) Create(ctx context.Context, campaign *models.Campaign) error {
	return r.c.post(ctx, pathf("/projects/%s/campaigns", campaign.ProjectID), campaign, campaign)
}

func (r *CampaignRepository) Get(ctx context.Context, id string) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := r.c.get(ctx, pathf("/campaigns/%s", id), nil, &campaign); err != nil {
		return nil, err
	}
	return &campaign, nil
}

func (r *CampaignRepository) Update(ctx context.Context, campaign *models.Campaign) error {
	return r.c.put(ctx, pathf("/campaigns/%s", campaign.ID), campaign, nil)
}

func (r *CampaignRepository) ListByProject(ctx context.Context, projectID string) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	if err := r.c.get(ctx, pathf("/projects/%s/campaigns", projectID), nil, &campaigns); err != nil {
		return nil, err
	}
	return campaigns, nil
}

func campaignFilter(campaignID string) url.Values {
	if campaignID == "" {
		return nil
	}
	return url.Values{"campaign_id": {campaignID}}
}

// CostRepository implements repository.CostRepository over the farm API
type CostRepository struct {
	c *Client
}

func (r *CostRepository) Create(ctx context.Context, cost *models.Cost) error {
	return r.c.post(ctx, pathf("/projects/%s/costs", cost.ProjectID), cost, cost)
}

func (r *CostRepository) Delete(ctx context.Context, id string) error {
	return r.c.delete(ctx, pathf("/costs/%s", id))
}

func (r *CostRepository) List(ctx context.Context, projectID, campaignID string) ([]models.Cost, error) {
	var costs []models.Cost
	if err := r.c.get(ctx, pathf("/projects/%s/costs", projectID), campaignFilter(campaignID), &costs); err != nil {
		return nil, err
	}
	return costs, nil
}

// InvestmentRepository implements repository.InvestmentRepository over the farm API
type InvestmentRepository struct {
	c *Client
}

func (r *InvestmentRepository) Create(ctx context.Context, inv *models.Investment) error {
	return r.c.post(ctx, pathf("/projects/%s/investments", inv.ProjectID), inv, inv)
}

func (r *InvestmentRepository) Delete(ctx context.Context, id string) error {
	return r.c.delete(ctx, pathf("/investments/%s", id))
}

func (r *InvestmentRepository) List(ctx context.Context, projectID, campaignID string) ([]models.Investment, error) {
	var investments []models.Investment
	if err := r.c.get(ctx, pathf("/projects/%s/investments", projectID), campaignFilter(campaignID), &investments); err != nil {
		return nil, err
	}
	return investments, nil
}

// ProductionRepository implements repository.ProductionRepository over the farm API
type ProductionRepository struct {
	c *Client
}

type batchCreateRequest struct {
	Records []models.ProductionRecord `json:"records"`
}

type batchDeleteRequest struct {
	IDs []string `json:"ids"`
}

func (r *ProductionRepository) CreateBatch(ctx context.Context, records []models.ProductionRecord) ([]models.ProductionRecord, error) {
	var created []models.ProductionRecord
	if err := r.c.post(ctx, "/productions/batch", batchCreateRequest{Records: records}, &created); err != nil {
		return nil, err
	}
	return created, nil
}

func (r *ProductionRepository) DeleteBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.c.post(ctx, "/productions/batch-delete", batchDeleteRequest{IDs: ids}, nil)
}

func (r *ProductionRepository) ListByCampaign(ctx context.Context, campaignID string) ([]models.ProductionRecord, error) {
	var records []models.ProductionRecord
	if err := r.c.get(ctx, pathf("/campaigns/%s/productions", campaignID), nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *ProductionRepository) ListByProject(ctx context.Context, projectID string) ([]models.ProductionRecord, error) {
	var records []models.ProductionRecord
	if err := r.c.get(ctx, pathf("/projects/%s/productions", projectID), nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// yieldModelDTO is the wire shape of a yield model: the curve travels as a
// JSON string in data.
type yieldModelDTO struct {
	ID        string `json:"id,omitempty"`
	ProjectID string `json:"project_id"`
	Variety   string `json:"variety"`
	Data      string `json:"data"`
}

// YieldModelRepository implements repository.YieldModelRepository over the farm API
type YieldModelRepository struct {
	c *Client
}

// Get fetches the model of a project variety. The API answers with a list.
func (r *YieldModelRepository) Get(ctx context.Context, projectID, variety string) (*models.YieldModel, error) {
	var dtos []yieldModelDTO
	query := url.Values{"variety": {variety}}
	if err := r.c.get(ctx, pathf("/projects/%s/yield-models", projectID), query, &dtos); err != nil {
		return nil, err
	}

	for _, dto := range dtos {
		if dto.Variety != variety {
			continue
		}
		curve, err := models.DecodeCurve(dto.Data)
		if err != nil {
			return nil, fmt.Errorf("yield model %s: %w", dto.ID, err)
		}
		return &models.YieldModel{ID: dto.ID, ProjectID: dto.ProjectID, Variety: dto.Variety, Curve: curve}, nil
	}
	return nil, repository.ErrNotFound
}

// Save creates the model or updates the existing one of the same variety.
func (r *YieldModelRepository) Save(ctx context.Context, model *models.YieldModel) error {
	data, err := models.EncodeCurve(model.Curve)
	if err != nil {
		return err
	}

	if model.ID == "" {
		existing, err := r.Get(ctx, model.ProjectID, model.Variety)
		switch {
		case err == nil:
			model.ID = existing.ID
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}
	}

	dto := yieldModelDTO{ID: model.ID, ProjectID: model.ProjectID, Variety: model.Variety, Data: data}
	var saved yieldModelDTO
	if model.ID == "" {
		err = r.c.post(ctx, "/yield-models", dto, &saved)
	} else {
		err = r.c.put(ctx, pathf("/yield-models/%s", model.ID), dto, &saved)
	}
	if err != nil {
		return err
	}
	if saved.ID != "" {
		model.ID = saved.ID
	}
	return nil
}
