package reporting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/nogal/internal/domain/ledger"
	"github.com/mamadbah2/nogal/internal/domain/models"
	"github.com/mamadbah2/nogal/internal/domain/yield"
	"github.com/mamadbah2/nogal/internal/repository"
	"github.com/mamadbah2/nogal/internal/service/estimation"
)

var (
	// ErrCampaignNotFound is returned when the campaign does not exist in the project.
	ErrCampaignNotFound = errors.New("campaign not found")

	// ErrArchiveDisabled is returned by snapshot operations without a snapshot store.
	ErrArchiveDisabled = errors.New("snapshot archive is not configured")
)

// Estimator provides campaign estimates.
type Estimator interface {
	CampaignEstimate(ctx context.Context, projectID string, year int) (*estimation.CampaignEstimate, error)
}

// SnapshotExporter publishes snapshots outside the archive.
type SnapshotExporter interface {
	ExportSnapshot(ctx context.Context, snapshot models.CampaignSnapshot) error
}

// Dashboard gathers the figures of one campaign.
type Dashboard struct {
	ProjectID             string             `json:"project_id"`
	CampaignID            string             `json:"campaign_id"`
	Year                  int                `json:"year"`
	RealKg                float64            `json:"real_kg"`
	EstimatedKg           int64              `json:"estimated_kg"`
	DeviationPct          *float64           `json:"deviation_pct"`
	Tier                  yield.Tier         `json:"tier"`
	AveragePrice          decimal.Decimal    `json:"average_price"`
	Revenue               decimal.Decimal    `json:"revenue"`
	CostsByCategory       map[string]float64 `json:"costs_by_category"`
	CostsTotal            float64            `json:"costs_total"`
	InvestmentsByCategory map[string]float64 `json:"investments_by_category"`
	InvestmentsTotal      float64            `json:"investments_total"`
	MontesInProduction    int                `json:"montes_in_production"`
	HectaresInProduction  float64            `json:"hectares_in_production"`
	CostPerHectare        *float64           `json:"cost_per_hectare"`
	CostPerKg             *float64           `json:"cost_per_kg"`
}

// Service builds dashboards, summaries and snapshots.
type Service struct {
	store     *repository.Store
	estimator Estimator
	snapshots repository.SnapshotRepository
	exporter  SnapshotExporter
	now       func() time.Time
	logger    *zap.Logger
}

// NewService wires a new reporting service instance. snapshots and exporter
// may be nil when the archive or the spreadsheet export is not configured.
func NewService(store *repository.Store, estimator Estimator, snapshots repository.SnapshotRepository, exporter SnapshotExporter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		estimator: estimator,
		snapshots: snapshots,
		exporter:  exporter,
		now:       time.Now,
		logger:    logger,
	}
}

// CampaignYear returns the campaign running at t. Campaigns start in July and
// are named after their start year.
func CampaignYear(t time.Time) int {
	if t.Month() >= time.July {
		return t.Year()
	}
	return t.Year() - 1
}

// CampaignDashboard computes the dashboard of a campaign of the project.
func (s *Service) CampaignDashboard(ctx context.Context, projectID, campaignID string) (*Dashboard, error) {
	campaign, err := s.store.Campaigns.Get(ctx, campaignID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && campaign.ProjectID != projectID) {
		return nil, fmt.Errorf("%w: %s", ErrCampaignNotFound, campaignID)
	}
	if err != nil {
		return nil, fmt.Errorf("load campaign: %w", err)
	}

	var (
		montes      []models.Monte
		records     []models.ProductionRecord
		costs       []models.Cost
		investments []models.Investment
		estimate    *estimation.CampaignEstimate
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
		records, err = s.store.Productions.ListByCampaign(gctx, campaignID)
		if err != nil {
			return fmt.Errorf("load productions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		costs, err = s.store.Costs.List(gctx, projectID, campaignID)
		if err != nil {
			return fmt.Errorf("load costs: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		investments, err = s.store.Investments.List(gctx, projectID, campaignID)
		if err != nil {
			return fmt.Errorf("load investments: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		estimate, err = s.estimator.CampaignEstimate(gctx, projectID, campaign.Year)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d := &Dashboard{
		ProjectID:    projectID,
		CampaignID:   campaignID,
		Year:         campaign.Year,
		RealKg:       estimation.SumKg(records),
		EstimatedKg:  estimate.TotalKg,
		Tier:         yield.TierUnknown,
		AveragePrice: campaign.AveragePrice,
	}

	if len(records) > 0 {
		d.DeviationPct = yield.DeviationPtr(d.RealKg, float64(d.EstimatedKg))
		d.Tier = yield.ClassifyPtr(d.DeviationPct)
	}
	d.Revenue = decimal.NewFromFloat(d.RealKg).Mul(campaign.AveragePrice).Round(2)

	d.CostsByCategory = ledger.SumByCategory(costEntries(costs))
	d.CostsTotal = ledger.Total(d.CostsByCategory)
	d.InvestmentsByCategory = ledger.SumByCategory(investmentEntries(investments))
	d.InvestmentsTotal = ledger.Total(d.InvestmentsByCategory)

	for _, m := range montes {
		if yield.Exists(m, campaign.Year) {
			d.MontesInProduction++
			d.HectaresInProduction += m.Hectares
		}
	}
	if d.HectaresInProduction > 0 {
		perHa := d.CostsTotal / d.HectaresInProduction
		d.CostPerHectare = &perHa
	}
	if d.RealKg > 0 {
		perKg := d.CostsTotal / d.RealKg
		d.CostPerKg = &perKg
	}

	return d, nil
}

func costEntries(costs []models.Cost) []ledger.Entry {
	entries := make([]ledger.Entry, 0, len(costs))
	for _, c := range costs {
		entries = append(entries, ledger.Entry{Category: c.Category, Amount: float64(c.Amount)})
	}
	return entries
}

func investmentEntries(investments []models.Investment) []ledger.Entry {
	entries := make([]ledger.Entry, 0, len(investments))
	for _, inv := range investments {
		entries = append(entries, ledger.Entry{Category: inv.Category, Amount: float64(inv.Amount)})
	}
	return entries
}

// CurrentCampaign returns the campaign running now, or the latest one when
// the running year has no campaign.
func (s *Service) CurrentCampaign(ctx context.Context, projectID string) (*models.Campaign, error) {
	campaigns, err := s.store.Campaigns.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load campaigns: %w", err)
	}
	if len(campaigns) == 0 {
		return nil, fmt.Errorf("%w: project %s has no campaigns", ErrCampaignNotFound, projectID)
	}

	year := CampaignYear(s.now())
	latest := campaigns[0]
	for _, c := range campaigns {
		if c.Year == year {
			return &c, nil
		}
		if c.Year > latest.Year {
			latest = c
		}
	}
	return &latest, nil
}

// WeeklySummary renders the dashboard of the current campaign as text.
func (s *Service) WeeklySummary(ctx context.Context, projectID string) (string, error) {
	campaign, err := s.CurrentCampaign(ctx, projectID)
	if err != nil {
		return "", err
	}
	d, err := s.CampaignDashboard(ctx, projectID, campaign.ID)
	if err != nil {
		return "", err
	}
	return FormatSummary(d), nil
}

// FormatSummary renders a dashboard as a short message.
func FormatSummary(d *Dashboard) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Campaign %d summary\n", d.Year)
	fmt.Fprintf(&b, "Production: %.0f kg real vs %d kg estimated", d.RealKg, d.EstimatedKg)
	if d.DeviationPct != nil {
		fmt.Fprintf(&b, " (%+.1f%%, %s)", *d.DeviationPct, d.Tier)
	} else {
		b.WriteString(" (no comparison available)")
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Plots in production: %d (%.2f ha)\n", d.MontesInProduction, d.HectaresInProduction)
	fmt.Fprintf(&b, "Revenue: %s\n", d.Revenue.StringFixed(2))
	fmt.Fprintf(&b, "Costs: %.2f%s\n", d.CostsTotal, formatBreakdown(d.CostsByCategory))
	fmt.Fprintf(&b, "Investments: %.2f%s", d.InvestmentsTotal, formatBreakdown(d.InvestmentsByCategory))

	if d.CostPerKg != nil {
		fmt.Fprintf(&b, "\nCost per kg: %.2f", *d.CostPerKg)
	}
	return b.String()
}

func formatBreakdown(sums map[string]float64) string {
	if len(sums) == 0 {
		return ""
	}
	parts := make([]string, 0, len(sums))
	for _, k := range ledger.Categories(sums) {
		parts = append(parts, fmt.Sprintf("%s %.2f", k, sums[k]))
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

// CreateSnapshot archives the current dashboard of a campaign and exports it
// when an exporter is configured. Export failures are logged, not returned.
func (s *Service) CreateSnapshot(ctx context.Context, projectID, campaignID string) (*models.CampaignSnapshot, error) {
	if s.snapshots == nil {
		return nil, ErrArchiveDisabled
	}

	d, err := s.CampaignDashboard(ctx, projectID, campaignID)
	if err != nil {
		return nil, err
	}

	snapshot := models.CampaignSnapshot{
		ID:                    uuid.NewString(),
		ProjectID:             d.ProjectID,
		CampaignID:            d.CampaignID,
		Year:                  d.Year,
		RealKg:                d.RealKg,
		EstimatedKg:           d.EstimatedKg,
		DeviationPct:          d.DeviationPct,
		Tier:                  string(d.Tier),
		Revenue:               d.Revenue.StringFixed(2),
		CostsTotal:            d.CostsTotal,
		InvestmentsTotal:      d.InvestmentsTotal,
		CostsByCategory:       d.CostsByCategory,
		InvestmentsByCategory: d.InvestmentsByCategory,
		CreatedAt:             s.now().UTC(),
	}

	if err := s.snapshots.SaveSnapshot(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}

	if s.exporter != nil {
		if err := s.exporter.ExportSnapshot(ctx, snapshot); err != nil {
			s.logger.Warn("snapshot export failed",
				zap.String("snapshot_id", snapshot.ID),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("campaign snapshot created",
		zap.String("project_id", projectID),
		zap.Int("year", snapshot.Year),
		zap.String("snapshot_id", snapshot.ID),
	)
	return &snapshot, nil
}

// ListSnapshots returns the archived snapshots of a project, newest first.
func (s *Service) ListSnapshots(ctx context.Context, projectID string, limit int) ([]models.CampaignSnapshot, error) {
	if s.snapshots == nil {
		return nil, ErrArchiveDisabled
	}
	snapshots, err := s.snapshots.ListSnapshots(ctx, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	sort.SliceStable(snapshots, func(i, j int) bool { return snapshots[i].CreatedAt.After(snapshots[j].CreatedAt) })
	return snapshots, nil
}

// WeeklyReport archives the current campaign when the archive is configured
// and returns the summary text.
func (s *Service) WeeklyReport(ctx context.Context, projectID string) (string, error) {
	campaign, err := s.CurrentCampaign(ctx, projectID)
	if err != nil {
		return "", err
	}

	if s.snapshots != nil {
		if _, err := s.CreateSnapshot(ctx, projectID, campaign.ID); err != nil {
			s.logger.Error("weekly snapshot failed", zap.String("project_id", projectID), zap.Error(err))
		}
	}

	d, err := s.CampaignDashboard(ctx, projectID, campaign.ID)
	if err != nil {
		return "", err
	}
	return FormatSummary(d), nil
}
