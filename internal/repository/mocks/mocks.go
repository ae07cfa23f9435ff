package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/mamadbah2/nogal/internal/domain/models"
	"github.com/mamadbah2/nogal/internal/repository"
)

// ProjectRepository is a mock for repository.ProjectRepository.
type ProjectRepository struct {
	mock.Mock
}

func (m *ProjectRepository) Create(ctx context.Context, proj *models.Project) error {
	args := m.Called(ctx, proj)
	return args.Error(0)
}

func (m *ProjectRepository) Get(ctx context.Context, id string) (*models.Project, error) {
	args := m.Called(ctx, id)
	if proj, ok := args.Get(0).(*models.Project); ok {
		return proj, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) List(ctx context.Context) ([]models.Project, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]models.Project); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// MonteRepository is a mock for repository.MonteRepository.
type MonteRepository struct {
	mock.Mock
}

func (m *MonteRepository) Create(ctx context.Context, monte *models.Monte) error {
	args := m.Called(ctx, monte)
	return args.Error(0)
}

func (m *MonteRepository) Get(ctx context.Context, id string) (*models.Monte, error) {
	args := m.Called(ctx, id)
	if monte, ok := args.Get(0).(*models.Monte); ok {
		return monte, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MonteRepository) Update(ctx context.Context, monte *models.Monte) error {
	args := m.Called(ctx, monte)
	return args.Error(0)
}

func (m *MonteRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MonteRepository) ListByProject(ctx context.Context, projectID string) ([]models.Monte, error) {
	args := m.Called(ctx, projectID)
	if list, ok := args.Get(0).([]models.Monte); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// CampaignRepository is a mock for repository.CampaignRepository.
type CampaignRepository struct {
	mock.Mock
}

func (m *CampaignRepository) Create(ctx context.Context, campaign *models.Campaign) error {
	args := m.Called(ctx, campaign)
	return args.Error(0)
}

func (m *CampaignRepository) Get(ctx context.Context, id string) (*models.Campaign, error) {
	args := m.Called(ctx, id)
	if campaign, ok := args.Get(0).(*models.Campaign); ok {
		return campaign, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CampaignRepository) Update(ctx context.Context, campaign *models.Campaign) error {
	args := m.Called(ctx, campaign)
	return args.Error(0)
}

func (m *CampaignRepository) ListByProject(ctx context.Context, projectID string) ([]models.Campaign, error) {
	args := m.Called(ctx, projectID)
	if list, ok := args.Get(0).([]models.Campaign); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// CostRepository is a mock for repository.CostRepository.
type CostRepository struct {
	mock.Mock
}

func (m *CostRepository) Create(ctx context.Context, cost *models.Cost) error {
	args := m.Called(ctx, cost)
	return args.Error(0)
}

func (m *CostRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *CostRepository) List(ctx context.Context, projectID, campaignID string) ([]models.Cost, error) {
	args := m.Called(ctx, projectID, campaignID)
	if list, ok := args.Get(0).([]models.Cost); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// InvestmentRepository is a mock for repository.InvestmentRepository.
type InvestmentRepository struct {
	mock.Mock
}

func (m *InvestmentRepository) Create(ctx context.Context, inv *models.Investment) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *InvestmentRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *InvestmentRepository) List(ctx context.Context, projectID, campaignID string) ([]models.Investment, error) {
	args := m.Called(ctx, projectID, campaignID)
	if list, ok := args.Get(0).([]models.Investment); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ProductionRepository is a mock for repository.ProductionRepository.
type ProductionRepository struct {
	mock.Mock
}

func (m *ProductionRepository) CreateBatch(ctx context.Context, records []models.ProductionRecord) ([]models.ProductionRecord, error) {
	args := m.Called(ctx, records)
	if list, ok := args.Get(0).([]models.ProductionRecord); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProductionRepository) DeleteBatch(ctx context.Context, ids []string) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *ProductionRepository) ListByCampaign(ctx context.Context, campaignID string) ([]models.ProductionRecord, error) {
	args := m.Called(ctx, campaignID)
	if list, ok := args.Get(0).([]models.ProductionRecord); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProductionRepository) ListByProject(ctx context.Context, projectID string) ([]models.ProductionRecord, error) {
	args := m.Called(ctx, projectID)
	if list, ok := args.Get(0).([]models.ProductionRecord); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// YieldModelRepository is a mock for repository.YieldModelRepository.
type YieldModelRepository struct {
	mock.Mock
}

func (m *YieldModelRepository) Get(ctx context.Context, projectID, variety string) (*models.YieldModel, error) {
	args := m.Called(ctx, projectID, variety)
	if model, ok := args.Get(0).(*models.YieldModel); ok {
		return model, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *YieldModelRepository) Save(ctx context.Context, model *models.YieldModel) error {
	args := m.Called(ctx, model)
	return args.Error(0)
}

// SnapshotRepository is a mock for repository.SnapshotRepository.
type SnapshotRepository struct {
	mock.Mock
}

func (m *SnapshotRepository) SaveSnapshot(ctx context.Context, snapshot models.CampaignSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *SnapshotRepository) ListSnapshots(ctx context.Context, projectID string, limit int) ([]models.CampaignSnapshot, error) {
	args := m.Called(ctx, projectID, limit)
	if list, ok := args.Get(0).([]models.CampaignSnapshot); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// Store bundles fresh mocks for every repository of a repository.Store.
type Store struct {
	Projects    *ProjectRepository
	Montes      *MonteRepository
	Campaigns   *CampaignRepository
	Costs       *CostRepository
	Investments *InvestmentRepository
	Productions *ProductionRepository
	YieldModels *YieldModelRepository
}

// NewStore returns mocks and the repository.Store wired to them.
func NewStore() (*Store, *repository.Store) {
	m := &Store{
		Projects:    &ProjectRepository{},
		Montes:      &MonteRepository{},
		Campaigns:   &CampaignRepository{},
		Costs:       &CostRepository{},
		Investments: &InvestmentRepository{},
		Productions: &ProductionRepository{},
		YieldModels: &YieldModelRepository{},
	}
	return m, repository.NewStore(repository.Store{
		Projects:    m.Projects,
		Montes:      m.Montes,
		Campaigns:   m.Campaigns,
		Costs:       m.Costs,
		Investments: m.Investments,
		Productions: m.Productions,
		YieldModels: m.YieldModels,
	}, nil)
}

// AssertExpectations asserts the expectations of every mock.
func (s *Store) AssertExpectations(t mock.TestingT) {
	s.Projects.AssertExpectations(t)
	s.Montes.AssertExpectations(t)
	s.Campaigns.AssertExpectations(t)
	s.Costs.AssertExpectations(t)
	s.Investments.AssertExpectations(t)
	s.Productions.AssertExpectations(t)
	s.YieldModels.AssertExpectations(t)
}
