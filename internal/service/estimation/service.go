package estimation

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/nogal/internal/domain/models"
	"github.com/mamadbah2/nogal/internal/domain/yield"
	"github.com/mamadbah2/nogal/internal/repository"
)

// Provenance tells how the real figure of a cell was entered.
type Provenance string

const (
	ProvenanceNone      Provenance = ""
	ProvenanceReal      Provenance = "real"
	ProvenanceCalculado Provenance = "calculado"
	ProvenanceMixed     Provenance = "mixed"
)

// Cell is one plot (or the whole project) in one campaign.
type Cell struct {
	Year         int        `json:"year"`
	CampaignID   string     `json:"campaign_id"`
	Exists       bool       `json:"exists"`
	RealKg       float64    `json:"real_kg"`
	HasRecords   bool       `json:"has_records"`
	EstimatedKg  *int64     `json:"estimated_kg"`
	DeviationPct *float64   `json:"deviation_pct"`
	Tier         yield.Tier `json:"tier"`
	Provenance   Provenance `json:"provenance,omitempty"`
}

// Row is the evolution of one plot across campaigns.
type Row struct {
	Monte models.Monte `json:"monte"`
	Cells []Cell       `json:"cells"`
}

// EvolutionMatrix lays plots against campaign years.
type EvolutionMatrix struct {
	ProjectID string `json:"project_id"`
	Years     []int  `json:"years"`
	Rows      []Row  `json:"rows"`
	Totals    []Cell `json:"totals"`
}

// PlotEstimate is the expected production of one plot.
type PlotEstimate struct {
	MonteID     string `json:"monte_id"`
	Name        string `json:"nombre"`
	Age         int    `json:"age"`
	EstimatedKg int64  `json:"estimated_kg"`
}

// CampaignEstimate is the expected production of every existing plot in a year.
type CampaignEstimate struct {
	ProjectID string         `json:"project_id"`
	Year      int            `json:"year"`
	Plots     []PlotEstimate `json:"plots"`
	TotalKg   int64          `json:"total_kg"`
}

// PlotDeviation compares real and expected production of one plot in one campaign.
type PlotDeviation struct {
	MonteID   string `json:"monte_id"`
	ProjectID string `json:"project_id"`
	Age       int    `json:"age"`
	Cell
}

// Service computes estimates and deviations from repository data.
type Service struct {
	store  *repository.Store
	logger *zap.Logger
}

// NewService constructs the estimation service.
func NewService(store *repository.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// YieldModel returns the curve of a project variety, or the default curve
// (not persisted) when none was saved yet.
func (s *Service) YieldModel(ctx context.Context, projectID, variety string) (*models.YieldModel, error) {
	if variety == "" {
		variety = models.VarietyGeneral
	}
	model, err := s.store.YieldModels.Get(ctx, projectID, variety)
	if errors.Is(err, repository.ErrNotFound) {
		return &models.YieldModel{ProjectID: projectID, Variety: variety, Curve: yield.DefaultCurve()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load yield model: %w", err)
	}
	return model, nil
}

// SaveYieldModel validates, sorts and stores a curve.
func (s *Service) SaveYieldModel(ctx context.Context, projectID, variety string, curve []models.YieldCurvePoint) (*models.YieldModel, error) {
	if variety == "" {
		variety = models.VarietyGeneral
	}
	if err := yield.Validate(curve); err != nil {
		return nil, err
	}
	if _, err := s.store.Projects.Get(ctx, projectID); err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}

	model := &models.YieldModel{ProjectID: projectID, Variety: variety, Curve: yield.Normalize(curve)}
	if err := s.store.YieldModels.Save(ctx, model); err != nil {
		return nil, fmt.Errorf("save yield model: %w", err)
	}
	s.logger.Info("yield curve saved",
		zap.String("project_id", projectID),
		zap.String("variety", variety),
		zap.Int("points", len(model.Curve)),
	)
	return model, nil
}

// AppendYieldAge adds a row one year past the oldest age of the curve and
// saves it. A project without a model starts from the default curve.
func (s *Service) AppendYieldAge(ctx context.Context, projectID, variety string, kg float64) (*models.YieldModel, error) {
	model, err := s.YieldModel(ctx, projectID, variety)
	if err != nil {
		return nil, err
	}
	return s.SaveYieldModel(ctx, projectID, model.Variety, yield.AppendAge(model.Curve, kg))
}

// curve loads the operational curve. A project without a saved model
// estimates zero everywhere.
func (s *Service) curve(ctx context.Context, projectID string) ([]models.YieldCurvePoint, error) {
	model, err := s.store.YieldModels.Get(ctx, projectID, models.VarietyGeneral)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load yield curve: %w", err)
	}
	return model.Curve, nil
}

// Evolution builds the evolution matrix of a project.
func (s *Service) Evolution(ctx context.Context, projectID string) (*EvolutionMatrix, error) {
	var (
		montes    []models.Monte
		campaigns []models.Campaign
		records   []models.ProductionRecord
		curve     []models.YieldCurvePoint
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		montes, err = s.store.Montes.ListByProject(gctx, projectID)
		if err != nil {
			return fmt.Errorf("load montes: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		campaigns, err = s.store.Campaigns.ListByProject(gctx, projectID)
		if err != nil {
			return fmt.Errorf("load campaigns: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		records, err = s.store.Productions.ListByProject(gctx, projectID)
		if err != nil {
			return fmt.Errorf("load productions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		curve, err = s.curve(gctx, projectID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(campaigns, func(i, j int) bool { return campaigns[i].Year < campaigns[j].Year })
	index := IndexRecords(records)

	matrix := &EvolutionMatrix{
		ProjectID: projectID,
		Years:     make([]int, 0, len(campaigns)),
		Rows:      make([]Row, 0, len(montes)),
		Totals:    make([]Cell, 0, len(campaigns)),
	}
	for _, c := range campaigns {
		matrix.Years = append(matrix.Years, c.Year)
	}

	totals := make([]Cell, len(campaigns))
	provenance := make([]provenanceSet, len(campaigns))
	for i, c := range campaigns {
		totals[i] = Cell{Year: c.Year, CampaignID: c.ID}
	}

	for _, m := range montes {
		row := Row{Monte: m, Cells: make([]Cell, 0, len(campaigns))}
		for i, c := range campaigns {
			cell := buildCell(m, c, curve, index.Get(m.ID, c.ID))
			row.Cells = append(row.Cells, cell)

			t := &totals[i]
			t.RealKg += cell.RealKg
			t.HasRecords = t.HasRecords || cell.HasRecords
			if cell.Exists {
				t.Exists = true
				est := *cell.EstimatedKg
				if t.EstimatedKg != nil {
					est += *t.EstimatedKg
				}
				t.EstimatedKg = &est
			}
			provenance[i].add(index.Get(m.ID, c.ID))
		}
		matrix.Rows = append(matrix.Rows, row)
	}

	for i := range totals {
		t := &totals[i]
		t.Provenance = provenance[i].provenance()
		t.DeviationPct, t.Tier = compare(t.HasRecords, t.RealKg, t.EstimatedKg)
		matrix.Totals = append(matrix.Totals, *t)
	}

	s.logger.Debug("evolution matrix built",
		zap.String("project_id", projectID),
		zap.Int("montes", len(montes)),
		zap.Int("campaigns", len(campaigns)),
	)
	return matrix, nil
}

// CampaignEstimate returns the expected production of a project in a year.
func (s *Service) CampaignEstimate(ctx context.Context, projectID string, year int) (*CampaignEstimate, error) {
	var (
		montes []models.Monte
		curve  []models.YieldCurvePoint
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		montes, err = s.store.Montes.ListByProject(gctx, projectID)
		if err != nil {
			return fmt.Errorf("load montes: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		curve, err = s.curve(gctx, projectID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return EstimateCampaign(projectID, year, montes, curve), nil
}

// EstimateCampaign is CampaignEstimate over already loaded data. Plots not
// planted by year are left out.
func EstimateCampaign(projectID string, year int, montes []models.Monte, curve []models.YieldCurvePoint) *CampaignEstimate {
	out := &CampaignEstimate{ProjectID: projectID, Year: year, Plots: make([]PlotEstimate, 0, len(montes))}
	for _, m := range montes {
		if !yield.Exists(m, year) {
			continue
		}
		est := yield.Estimate(m, year, curve)
		out.Plots = append(out.Plots, PlotEstimate{
			MonteID:     m.ID,
			Name:        m.Name,
			Age:         yield.Age(m, year),
			EstimatedKg: est,
		})
		out.TotalKg += est
	}
	return out
}

// PlotDeviation compares one plot against one campaign of the same project.
func (s *Service) PlotDeviation(ctx context.Context, projectID, monteID, campaignID string) (*PlotDeviation, error) {
	var (
		monte    *models.Monte
		campaign *models.Campaign
		records  []models.ProductionRecord
		curve    []models.YieldCurvePoint
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		monte, err = s.store.Montes.Get(gctx, monteID)
		if err != nil {
			return fmt.Errorf("load monte: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		campaign, err = s.store.Campaigns.Get(gctx, campaignID)
		if err != nil {
			return fmt.Errorf("load campaign: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		records, err = s.store.Productions.ListByCampaign(gctx, campaignID)
		if err != nil {
			return fmt.Errorf("load productions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		curve, err = s.curve(gctx, projectID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if monte.ProjectID != projectID || campaign.ProjectID != projectID {
		return nil, fmt.Errorf("monte %s in campaign %s: %w", monteID, campaignID, repository.ErrNotFound)
	}

	cell := buildCell(*monte, *campaign, curve, IndexRecords(records).Get(monteID, campaignID))
	return &PlotDeviation{
		MonteID:   monteID,
		ProjectID: projectID,
		Age:       yield.Age(*monte, campaign.Year),
		Cell:      cell,
	}, nil
}

func buildCell(m models.Monte, c models.Campaign, curve []models.YieldCurvePoint, recs []models.ProductionRecord) Cell {
	cell := Cell{
		Year:       c.Year,
		CampaignID: c.ID,
		Exists:     yield.Exists(m, c.Year),
		HasRecords: len(recs) > 0,
		Tier:       yield.TierUnknown,
	}

	var set provenanceSet
	set.add(recs)
	cell.Provenance = set.provenance()
	cell.RealKg = SumKg(recs)

	if cell.Exists {
		est := yield.Estimate(m, c.Year, curve)
		cell.EstimatedKg = &est
	}
	cell.DeviationPct, cell.Tier = compare(cell.HasRecords, cell.RealKg, cell.EstimatedKg)
	return cell
}

// compare yields the deviation and tier of a cell. Without records or
// without an estimate there is nothing to compare.
func compare(hasRecords bool, actual float64, estimated *int64) (*float64, yield.Tier) {
	if !hasRecords || estimated == nil {
		return nil, yield.TierUnknown
	}
	pct := yield.DeviationPtr(actual, float64(*estimated))
	return pct, yield.ClassifyPtr(pct)
}

type provenanceSet struct {
	detail bool
	total  bool
}

func (p *provenanceSet) add(recs []models.ProductionRecord) {
	for _, r := range recs {
		switch r.InputType {
		case models.InputDetail:
			p.detail = true
		case models.InputTotal:
			p.total = true
		}
	}
}

func (p provenanceSet) provenance() Provenance {
	switch {
	case p.detail && p.total:
		return ProvenanceMixed
	case p.detail:
		return ProvenanceReal
	case p.total:
		return ProvenanceCalculado
	}
	return ProvenanceNone
}
