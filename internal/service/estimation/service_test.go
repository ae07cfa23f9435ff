package estimation

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/nogal/internal/domain/models"
	"github.com/mamadbah2/nogal/internal/domain/yield"
	"github.com/mamadbah2/nogal/internal/repository"
	"github.com/mamadbah2/nogal/internal/repository/mocks"
)

var (
	north = models.Monte{ID: "m1", ProjectID: "p1", Name: "Norte", Hectares: 5, Density: 100, PlantingYear: 2015}
	young = models.Monte{ID: "m2", ProjectID: "p1", Name: "Nuevo", Hectares: 2, Density: 100, PlantingYear: 2026}

	c2024 = models.Campaign{ID: "c2024", ProjectID: "p1", Year: 2024}
	c2025 = models.Campaign{ID: "c2025", ProjectID: "p1", Year: 2025}

	curve = &models.YieldModel{
		ID:        "y1",
		ProjectID: "p1",
		Variety:   models.VarietyGeneral,
		Curve:     []models.YieldCurvePoint{{Age: 9, Kg: 6}, {Age: 10, Kg: 8}},
	}
)

func int64p(v int64) *int64 { return &v }

func TestEvolution(t *testing.T) {
	m, store := mocks.NewStore()
	ctx := context.Background()

	m.Montes.On("ListByProject", mock.Anything, "p1").Return([]models.Monte{north, young}, nil)
	m.Campaigns.On("ListByProject", mock.Anything, "p1").Return([]models.Campaign{c2025, c2024}, nil)
	m.Productions.On("ListByProject", mock.Anything, "p1").Return([]models.ProductionRecord{
		{ID: "r1", MonteID: "m1", CampaignID: "c2025", QuantityKg: 3000, InputType: models.InputDetail},
		{ID: "r2", MonteID: "m1", CampaignID: "c2025", QuantityKg: 500, InputType: models.InputTotal},
	}, nil)
	m.YieldModels.On("Get", mock.Anything, "p1", models.VarietyGeneral).Return(curve, nil)

	matrix, err := NewService(store, nil).Evolution(ctx, "p1")
	require.NoError(t, err)
	m.AssertExpectations(t)

	assert.Equal(t, []int{2024, 2025}, matrix.Years, "campaigns sorted by year")
	require.Len(t, matrix.Rows, 2)

	// Norte in 2024: age 9, no records
	cell := matrix.Rows[0].Cells[0]
	assert.True(t, cell.Exists)
	assert.Equal(t, int64p(3000), cell.EstimatedKg)
	assert.Nil(t, cell.DeviationPct)
	assert.Equal(t, yield.TierUnknown, cell.Tier)
	assert.Equal(t, ProvenanceNone, cell.Provenance)

	// Norte in 2025: 3500 against 4000
	cell = matrix.Rows[0].Cells[1]
	assert.Equal(t, 3500.0, cell.RealKg)
	assert.Equal(t, int64p(4000), cell.EstimatedKg)
	require.NotNil(t, cell.DeviationPct)
	assert.InDelta(t, -12.5, *cell.DeviationPct, 1e-9)
	assert.Equal(t, yield.TierWarning, cell.Tier)
	assert.Equal(t, ProvenanceMixed, cell.Provenance)

	// Nuevo is not planted yet
	for _, c := range matrix.Rows[1].Cells {
		assert.False(t, c.Exists)
		assert.Nil(t, c.EstimatedKg)
		assert.Equal(t, yield.TierUnknown, c.Tier)
	}

	want := []Cell{
		{Year: 2024, CampaignID: "c2024", Exists: true, EstimatedKg: int64p(3000), Tier: yield.TierUnknown},
		{Year: 2025, CampaignID: "c2025", Exists: true, RealKg: 3500, HasRecords: true, EstimatedKg: int64p(4000),
			DeviationPct: matrix.Totals[1].DeviationPct, Tier: yield.TierWarning, Provenance: ProvenanceMixed},
	}
	if diff := cmp.Diff(want, matrix.Totals); diff != "" {
		t.Errorf("totals mismatch (-want +got):\n%s", diff)
	}
}

func TestEvolutionWithoutCurve(t *testing.T) {
	m, store := mocks.NewStore()

	m.Montes.On("ListByProject", mock.Anything, "p1").Return([]models.Monte{north}, nil)
	m.Campaigns.On("ListByProject", mock.Anything, "p1").Return([]models.Campaign{c2025}, nil)
	m.Productions.On("ListByProject", mock.Anything, "p1").Return([]models.ProductionRecord{
		{MonteID: "m1", CampaignID: "c2025", QuantityKg: 100, InputType: models.InputTotal},
	}, nil)
	m.YieldModels.On("Get", mock.Anything, "p1", models.VarietyGeneral).Return(nil, repository.ErrNotFound)

	matrix, err := NewService(store, nil).Evolution(context.Background(), "p1")
	require.NoError(t, err)

	cell := matrix.Rows[0].Cells[0]
	assert.Equal(t, int64p(0), cell.EstimatedKg)
	assert.Nil(t, cell.DeviationPct, "a zero estimate has no comparison")
	assert.Equal(t, yield.TierUnknown, cell.Tier)
	assert.Equal(t, ProvenanceCalculado, cell.Provenance)
}

func TestEvolutionLoadError(t *testing.T) {
	m, store := mocks.NewStore()
	boom := errors.New("boom")

	m.Montes.On("ListByProject", mock.Anything, "p1").Return(nil, boom)
	m.Campaigns.On("ListByProject", mock.Anything, "p1").Return([]models.Campaign{}, nil).Maybe()
	m.Productions.On("ListByProject", mock.Anything, "p1").Return([]models.ProductionRecord{}, nil).Maybe()
	m.YieldModels.On("Get", mock.Anything, "p1", models.VarietyGeneral).Return(curve, nil).Maybe()

	_, err := NewService(store, nil).Evolution(context.Background(), "p1")
	require.ErrorIs(t, err, boom)
}

func TestCampaignEstimate(t *testing.T) {
	m, store := mocks.NewStore()

	m.Montes.On("ListByProject", mock.Anything, "p1").Return([]models.Monte{north, young}, nil)
	m.YieldModels.On("Get", mock.Anything, "p1", models.VarietyGeneral).Return(curve, nil)

	est, err := NewService(store, nil).CampaignEstimate(context.Background(), "p1", 2025)
	require.NoError(t, err)

	require.Len(t, est.Plots, 1, "plots not planted yet are skipped")
	assert.Equal(t, PlotEstimate{MonteID: "m1", Name: "Norte", Age: 10, EstimatedKg: 4000}, est.Plots[0])
	assert.Equal(t, int64(4000), est.TotalKg)
}

func TestPlotDeviation(t *testing.T) {
	m, store := mocks.NewStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	m.Montes.On("Get", mock.Anything, "m1").Return(&north, nil)
	m.Campaigns.On("Get", mock.Anything, "c2025").Return(&c2025, nil)
	m.Productions.On("ListByCampaign", mock.Anything, "c2025").Return([]models.ProductionRecord{
		{MonteID: "m1", CampaignID: "c2025", QuantityKg: 3500, InputType: models.InputDetail},
		{MonteID: "other", CampaignID: "c2025", QuantityKg: 999, InputType: models.InputDetail},
	}, nil)
	m.YieldModels.On("Get", mock.Anything, "p1", models.VarietyGeneral).Return(curve, nil)

	dev, err := svc.PlotDeviation(ctx, "p1", "m1", "c2025")
	require.NoError(t, err)
	assert.Equal(t, 10, dev.Age)
	assert.Equal(t, 3500.0, dev.RealKg)
	assert.Equal(t, ProvenanceReal, dev.Provenance)
	require.NotNil(t, dev.DeviationPct)
	assert.InDelta(t, -12.5, *dev.DeviationPct, 1e-9)
	assert.Equal(t, yield.TierWarning, dev.Tier)

	m.YieldModels.On("Get", mock.Anything, "p2", models.VarietyGeneral).Return(curve, nil)
	_, err = svc.PlotDeviation(ctx, "p2", "m1", "c2025")
	require.ErrorIs(t, err, repository.ErrNotFound, "plot of another project")
}

func TestYieldModelDefaults(t *testing.T) {
	m, store := mocks.NewStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	m.YieldModels.On("Get", mock.Anything, "p1", models.VarietyGeneral).Return(nil, repository.ErrNotFound)

	model, err := svc.YieldModel(ctx, "p1", "")
	require.NoError(t, err)
	assert.Equal(t, models.VarietyGeneral, model.Variety)
	assert.Len(t, model.Curve, yield.DefaultCurveRows)
	assert.Empty(t, model.ID)
}

func TestSaveYieldModel(t *testing.T) {
	m, store := mocks.NewStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	_, err := svc.SaveYieldModel(ctx, "p1", "", []models.YieldCurvePoint{{Age: 3, Kg: 1}, {Age: 3, Kg: 2}})
	require.ErrorIs(t, err, yield.ErrInvalidCurve)

	m.Projects.On("Get", mock.Anything, "p1").Return(&models.Project{ID: "p1"}, nil)
	m.YieldModels.On("Save", mock.Anything, mock.MatchedBy(func(ym *models.YieldModel) bool {
		return ym.ProjectID == "p1" && ym.Variety == models.VarietyGeneral && ym.Curve[0].Age == 1
	})).Return(nil)

	model, err := svc.SaveYieldModel(ctx, "p1", "", []models.YieldCurvePoint{{Age: 5, Kg: 3}, {Age: 1, Kg: 0}})
	require.NoError(t, err)
	assert.Equal(t, []models.YieldCurvePoint{{Age: 1, Kg: 0}, {Age: 5, Kg: 3}}, model.Curve)
	m.AssertExpectations(t)
}

func TestAppendYieldAge(t *testing.T) {
	m, store := mocks.NewStore()
	svc := NewService(store, nil)

	m.Projects.On("Get", mock.Anything, "p1").Return(&models.Project{ID: "p1"}, nil)
	m.YieldModels.On("Get", mock.Anything, "p1", models.VarietyGeneral).Return(nil, repository.ErrNotFound)
	m.YieldModels.On("Save", mock.Anything, mock.Anything).Return(nil)

	model, err := svc.AppendYieldAge(context.Background(), "p1", "", 12)
	require.NoError(t, err)
	require.Len(t, model.Curve, yield.DefaultCurveRows+1)
	assert.Equal(t, models.YieldCurvePoint{Age: 21, Kg: 12}, model.Curve[yield.DefaultCurveRows])
	assert.Equal(t, 21, yield.MaxAge(model.Curve))
}
