package repository

import (
	"context"
	"errors"

	"github.com/mamadbah2/nogal/internal/domain/models"
)

// ProjectRepository manages project persistence
type ProjectRepository interface {
	Create(ctx context.Context, proj *models.Project) error
	Get(ctx context.Context, id string) (*models.Project, error)
	List(ctx context.Context) ([]models.Project, error)
}

// MonteRepository manages plot persistence
type MonteRepository interface {
	Create(ctx context.Context, monte *models.Monte) error
	Get(ctx context.Context, id string) (*models.Monte, error)
	Update(ctx context.Context, monte *models.Monte) error
	Delete(ctx context.Context, id string) error
	ListByProject(ctx context.Context, projectID string) ([]models.Monte, error)
}

// CampaignRepository manages campaign persistence
type CampaignRepository interface {
	Create(ctx context.Context, campaign *models.Campaign) error
	Get(ctx context.Context, id string) (*models.Campaign, error)
	Update(ctx context.Context, campaign *models.Campaign) error
	ListByProject(ctx context.Context, projectID string) ([]models.Campaign, error)
}

// CostRepository manages cost persistence. An empty campaignID lists every campaign.
type CostRepository interface {
	Create(ctx context.Context, cost *models.Cost) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, projectID, campaignID string) ([]models.Cost, error)
}

// InvestmentRepository manages investment persistence. An empty campaignID lists every campaign.
type InvestmentRepository interface {
	Create(ctx context.Context, inv *models.Investment) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, projectID, campaignID string) ([]models.Investment, error)
}

// ProductionRepository manages production records, written and removed in batches
type ProductionRepository interface {
	CreateBatch(ctx context.Context, records []models.ProductionRecord) ([]models.ProductionRecord, error)
	DeleteBatch(ctx context.Context, ids []string) error
	ListByCampaign(ctx context.Context, campaignID string) ([]models.ProductionRecord, error)
	ListByProject(ctx context.Context, projectID string) ([]models.ProductionRecord, error)
}

// YieldModelRepository manages the yield curve of a project, one per variety
type YieldModelRepository interface {
	Get(ctx context.Context, projectID, variety string) (*models.YieldModel, error)
	Save(ctx context.Context, model *models.YieldModel) error
}

// SnapshotRepository archives campaign snapshots
type SnapshotRepository interface {
	SaveSnapshot(ctx context.Context, snapshot models.CampaignSnapshot) error
	ListSnapshots(ctx context.Context, projectID string, limit int) ([]models.CampaignSnapshot, error)
}

// Store bundles the farm data repositories of one backend.
type Store struct {
	Projects    ProjectRepository
	Montes      MonteRepository
	Campaigns   CampaignRepository
	Costs       CostRepository
	Investments InvestmentRepository
	Productions ProductionRepository
	YieldModels YieldModelRepository

	closer func() error
}

// NewStore builds a Store. closer may be nil.
func NewStore(s Store, closer func() error) *Store {
	s.closer = closer
	return &s
}

// Validate ensures every repository is wired.
func (s *Store) Validate() error {
	if s == nil {
		return errors.New("store is nil")
	}
	switch {
	case s.Projects == nil:
		return errors.New("store: projects repository missing")
	case s.Montes == nil:
		return errors.New("store: montes repository missing")
	case s.Campaigns == nil:
		return errors.New("store: campaigns repository missing")
	case s.Costs == nil:
		return errors.New("store: costs repository missing")
	case s.Investments == nil:
		return errors.New("store: investments repository missing")
	case s.Productions == nil:
		return errors.New("store: productions repository missing")
	case s.YieldModels == nil:
		return errors.New("store: yield models repository missing")
	}
	return nil
}

// Close releases the backend resources.
func (s *Store) Close() error {
	if s == nil || s.closer == nil {
		return nil
	}
	return s.closer()
}
