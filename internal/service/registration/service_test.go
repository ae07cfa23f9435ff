package registration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/nogal/internal/domain/models"
	"github.com/mamadbah2/nogal/internal/domain/wizard"
	"github.com/mamadbah2/nogal/internal/repository"
	"github.com/mamadbah2/nogal/internal/repository/mocks"
	"github.com/mamadbah2/nogal/internal/service/mutation"
)

func newTestService(t *testing.T) (*mocks.Store, *Service) {
	t.Helper()
	m, store := mocks.NewStore()
	queue := mutation.NewQueue(nil)
	t.Cleanup(queue.Close)

	svc := NewService(store, queue, nil)
	svc.now = func() time.Time { return time.Date(2025, time.September, 10, 12, 0, 0, 0, time.UTC) }

	m.Projects.On("Get", mock.Anything, "p1").Return(&models.Project{ID: "p1"}, nil)
	m.Campaigns.On("Get", mock.Anything, "c2025").Return(&models.Campaign{ID: "c2025", ProjectID: "p1", Year: 2025}, nil)
	return m, svc
}

func wait(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("mutation did not finish")
		return nil
	}
}

// startAtEntry opens a wizard and moves it past the campaign step.
func startAtEntry(t *testing.T, svc *Service, kind wizard.Kind) *wizard.Wizard {
	t.Helper()
	ctx := context.Background()

	w, err := svc.Start(ctx, "p1", kind)
	require.NoError(t, err)
	campaignID := "c2025"
	_, err = svc.Update(ctx, w.ID, Patch{CampaignID: &campaignID})
	require.NoError(t, err)
	w, err = svc.Next(w.ID)
	require.NoError(t, err)
	require.Equal(t, wizard.StateEntry, w.State)
	return w
}

func TestStartUnknownProject(t *testing.T) {
	m, svc := newTestService(t)
	m.Projects.On("Get", mock.Anything, "nope").Return(nil, repository.ErrNotFound)

	_, err := svc.Start(context.Background(), "nope", wizard.KindProduction)
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = svc.Start(context.Background(), "p1", wizard.Kind("harvest"))
	require.ErrorIs(t, err, wizard.ErrUnknownKind)
	assert.Equal(t, 0, svc.sessions.Len())
}

func TestUpdateRejectsForeignCampaign(t *testing.T) {
	m, svc := newTestService(t)
	m.Campaigns.On("Get", mock.Anything, "other").Return(&models.Campaign{ID: "other", ProjectID: "p2"}, nil)

	w, err := svc.Start(context.Background(), "p1", wizard.KindCost)
	require.NoError(t, err)

	other := "other"
	_, err = svc.Update(context.Background(), w.ID, Patch{CampaignID: &other})
	require.ErrorIs(t, err, ErrCampaignMismatch)

	got, err := svc.Get(w.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Draft.CampaignID)
}

func TestUpdateIsAtomic(t *testing.T) {
	m, svc := newTestService(t)
	m.Montes.On("ListByProject", mock.Anything, "p1").Return([]models.Monte{{ID: "m1", Hectares: 1}}, nil)
	w := startAtEntry(t, svc, wizard.KindProduction)

	total := 100.0
	_, err := svc.Update(context.Background(), w.ID, Patch{
		Quantities:  map[string]float64{"m1": 50},
		TotalWeight: &total,
	})
	// total weight needs total mode; the quantity must not stick either
	require.ErrorIs(t, err, wizard.ErrNotEditable)

	got, err := svc.Get(w.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Draft.Quantities)
}

func TestSubmitProductionDetail(t *testing.T) {
	m, svc := newTestService(t)
	ctx := context.Background()

	m.Productions.On("ListByCampaign", mock.Anything, "c2025").Return([]models.ProductionRecord{
		{ID: "r1", MonteID: "m1", CampaignID: "c2025", QuantityKg: 900, InputType: models.InputDetail},
		{ID: "r2", MonteID: "m3", CampaignID: "c2025", QuantityKg: 400, InputType: models.InputTotal},
	}, nil).Twice()

	release := make(chan struct{})
	m.Productions.On("DeleteBatch", mock.Anything, []string{"r1"}).
		Run(func(mock.Arguments) { <-release }).
		Return(nil)

	want := []models.ProductionRecord{
		{MonteID: "m1", CampaignID: "c2025", QuantityKg: 1200, InputType: models.InputDetail},
	}
	m.Productions.On("CreateBatch", mock.Anything, want).Return([]models.ProductionRecord{
		{ID: "n1", MonteID: "m1", CampaignID: "c2025", QuantityKg: 1200, InputType: models.InputDetail},
	}, nil)

	w := startAtEntry(t, svc, wizard.KindProduction)
	_, err := svc.Update(ctx, w.ID, Patch{Quantities: map[string]float64{"m1": 1200, "m2": 0}})
	require.NoError(t, err)
	_, err = svc.Next(w.ID)
	require.NoError(t, err)

	sub, err := svc.Submit(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, wizard.StateSubmitted, sub.Wizard.State)
	assert.Equal(t, want, sub.Records)

	shown, err := svc.Productions(ctx, "c2025")
	require.NoError(t, err)
	require.Len(t, shown, 2, "optimistic state replaces the m1 record before the remote write")
	assert.Equal(t, "r2", shown[0].ID)
	assert.Equal(t, 1200.0, shown[1].QuantityKg)

	close(release)
	require.NoError(t, wait(t, sub.Done))

	shown, err = svc.Productions(ctx, "c2025")
	require.NoError(t, err)
	require.Len(t, shown, 2)
	assert.Equal(t, "n1", shown[1].ID)

	_, err = svc.Get(w.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
	m.AssertExpectations(t)
}

func TestSubmitProductionRollsBack(t *testing.T) {
	m, svc := newTestService(t)
	ctx := context.Background()

	existing := []models.ProductionRecord{
		{ID: "r1", MonteID: "m1", CampaignID: "c2025", QuantityKg: 900, InputType: models.InputDetail},
	}
	// view, remote write, refetch after the restore
	m.Productions.On("ListByCampaign", mock.Anything, "c2025").Return(existing, nil).Times(3)
	m.Productions.On("DeleteBatch", mock.Anything, []string{"r1"}).Return(nil)

	records := []models.ProductionRecord{
		{MonteID: "m1", CampaignID: "c2025", QuantityKg: 600, InputType: models.InputTotal},
		{MonteID: "m2", CampaignID: "c2025", QuantityKg: 400, InputType: models.InputTotal},
	}
	m.Productions.On("CreateBatch", mock.Anything, records).Return(nil, errors.New("upstream down"))
	m.Productions.On("CreateBatch", mock.Anything, existing).Return(existing, nil)
	m.Montes.On("ListByProject", mock.Anything, "p1").Return([]models.Monte{
		{ID: "m1", ProjectID: "p1", Hectares: 3},
		{ID: "m2", ProjectID: "p1", Hectares: 2},
	}, nil)

	w := startAtEntry(t, svc, wizard.KindProduction)
	mode := models.InputTotal
	total := 1000.0
	w, err := svc.Update(ctx, w.ID, Patch{Mode: &mode, TotalWeight: &total, SelectedMonteIDs: []string{"m1", "m2"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"m1": 600, "m2": 400}, w.Draft.Quantities)
	_, err = svc.Next(w.ID)
	require.NoError(t, err)

	sub, err := svc.Submit(ctx, w.ID)
	require.NoError(t, err)
	err = wait(t, sub.Done)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream down")

	shown, err := svc.Productions(ctx, "c2025")
	require.NoError(t, err)
	assert.Equal(t, existing, shown, "rollback restores the previous records")
	m.AssertExpectations(t)
}

func TestSubmitRequiresReview(t *testing.T) {
	_, svc := newTestService(t)
	w := startAtEntry(t, svc, wizard.KindProduction)

	_, err := svc.Submit(context.Background(), w.ID)
	require.ErrorIs(t, err, wizard.ErrInvalidTransition)

	got, err := svc.Get(w.ID)
	require.NoError(t, err, "failed submits keep the session")
	assert.Equal(t, wizard.StateEntry, got.State)
}

func TestSubmitCosts(t *testing.T) {
	m, svc := newTestService(t)
	ctx := context.Background()

	m.Costs.On("Create", mock.Anything, mock.MatchedBy(func(c *models.Cost) bool {
		return c.Category == "combustible" && c.Amount == 1200 && c.CampaignID == "c2025" && c.ProjectID == "p1"
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Cost).ID = "cost-1"
	}).Return(nil).Once()

	w := startAtEntry(t, svc, wizard.KindCost)
	_, err := svc.Update(ctx, w.ID, Patch{Lines: []wizard.LedgerLine{
		{Category: " combustible ", Amount: 1200},
		{Category: "", Amount: 5},
		{Category: "otros", Amount: 0},
	}})
	require.NoError(t, err)
	_, err = svc.Next(w.ID)
	require.NoError(t, err)

	sub, err := svc.Submit(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, sub.Costs, 1)
	assert.Equal(t, "combustible", sub.Costs[0].Category)
	assert.Equal(t, time.Date(2025, time.September, 10, 12, 0, 0, 0, time.UTC), sub.Costs[0].Date)

	require.NoError(t, wait(t, sub.Done))
	m.AssertExpectations(t)
}

func TestSubmitInvestmentsUndoesPartialWrites(t *testing.T) {
	m, svc := newTestService(t)
	ctx := context.Background()

	m.Investments.On("Create", mock.Anything, mock.MatchedBy(func(i *models.Investment) bool {
		return i.Category == "maquinaria"
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Investment).ID = "inv-1"
	}).Return(nil)
	m.Investments.On("Create", mock.Anything, mock.MatchedBy(func(i *models.Investment) bool {
		return i.Category == "riego"
	})).Return(errors.New("rejected"))
	m.Investments.On("Delete", mock.Anything, "inv-1").Return(nil).Once()

	w := startAtEntry(t, svc, wizard.KindInvestment)
	_, err := svc.Update(ctx, w.ID, Patch{Lines: []wizard.LedgerLine{
		{Category: "maquinaria", Amount: 50000},
		{Category: "riego", Amount: 8000},
	}})
	require.NoError(t, err)
	_, err = svc.Next(w.ID)
	require.NoError(t, err)

	sub, err := svc.Submit(ctx, w.ID)
	require.NoError(t, err)
	require.Error(t, wait(t, sub.Done))
	m.AssertExpectations(t)
}

func TestDeleteProductions(t *testing.T) {
	m, svc := newTestService(t)
	ctx := context.Background()

	existing := []models.ProductionRecord{
		{ID: "r1", MonteID: "m1", CampaignID: "c2025", QuantityKg: 900},
		{ID: "r2", MonteID: "m2", CampaignID: "c2025", QuantityKg: 400},
	}
	m.Productions.On("ListByCampaign", mock.Anything, "c2025").Return(existing, nil).Once()
	m.Productions.On("DeleteBatch", mock.Anything, []string{"r1"}).Return(errors.New("timeout")).Once()
	m.Productions.On("DeleteBatch", mock.Anything, []string{"r2"}).Return(nil).Once()

	done, err := svc.DeleteProductions(ctx, "c2025", []string{"r1"})
	require.NoError(t, err)
	require.Error(t, wait(t, done))
	shown, err := svc.Productions(ctx, "c2025")
	require.NoError(t, err)
	assert.Equal(t, existing, shown)

	done, err = svc.DeleteProductions(ctx, "c2025", []string{"r2"})
	require.NoError(t, err)
	require.NoError(t, wait(t, done))
	shown, err = svc.Productions(ctx, "c2025")
	require.NoError(t, err)
	require.Len(t, shown, 1)
	assert.Equal(t, "r1", shown[0].ID)

	_, err = svc.DeleteProductions(ctx, "c2025", nil)
	require.ErrorIs(t, err, repository.ErrInvalidInput)
}

func TestCreateProductions(t *testing.T) {
	m, svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProductions(ctx, []models.ProductionRecord{
		{MonteID: "m1", CampaignID: "c2025", QuantityKg: 10, InputType: "guess"},
	})
	require.ErrorIs(t, err, repository.ErrInvalidInput)

	_, err = svc.CreateProductions(ctx, []models.ProductionRecord{
		{MonteID: "m1", CampaignID: "c2025", QuantityKg: 10, InputType: models.InputDetail},
		{MonteID: "m2", CampaignID: "c2024", QuantityKg: 10, InputType: models.InputDetail},
	})
	require.ErrorIs(t, err, repository.ErrInvalidInput)

	records := []models.ProductionRecord{{MonteID: "m1", CampaignID: "c2025", QuantityKg: 10, InputType: models.InputDetail}}
	created := []models.ProductionRecord{{ID: "n1", MonteID: "m1", CampaignID: "c2025", QuantityKg: 10, InputType: models.InputDetail}}
	m.Productions.On("ListByCampaign", mock.Anything, "c2025").Return([]models.ProductionRecord{}, nil).Once()
	m.Productions.On("CreateBatch", mock.Anything, records).Return(created, nil)

	done, err := svc.CreateProductions(ctx, records)
	require.NoError(t, err)
	require.NoError(t, wait(t, done))

	shown, err := svc.Productions(ctx, "c2025")
	require.NoError(t, err)
	assert.Equal(t, created, shown, "confirmed records take the place of the pending ones")
	m.AssertExpectations(t)
}

// submitDetail runs a production wizard in detail mode up to submit.
func submitDetail(t *testing.T, svc *Service, quantities map[string]float64) *Submission {
	t.Helper()
	ctx := context.Background()

	w := startAtEntry(t, svc, wizard.KindProduction)
	_, err := svc.Update(ctx, w.ID, Patch{Quantities: quantities})
	require.NoError(t, err)
	_, err = svc.Next(w.ID)
	require.NoError(t, err)
	sub, err := svc.Submit(ctx, w.ID)
	require.NoError(t, err)
	return sub
}

func TestFailedSubmitDoesNotLeakIntoLaterOne(t *testing.T) {
	m, svc := newTestService(t)
	ctx := context.Background()

	m.Productions.On("ListByCampaign", mock.Anything, "c2025").Return([]models.ProductionRecord{}, nil)

	release := make(chan struct{})
	first := []models.ProductionRecord{{MonteID: "m1", CampaignID: "c2025", QuantityKg: 100, InputType: models.InputDetail}}
	m.Productions.On("CreateBatch", mock.Anything, first).
		Run(func(mock.Arguments) { <-release }).
		Return(nil, errors.New("upstream down")).Once()

	second := []models.ProductionRecord{{MonteID: "m2", CampaignID: "c2025", QuantityKg: 200, InputType: models.InputDetail}}
	saved := []models.ProductionRecord{{ID: "n2", MonteID: "m2", CampaignID: "c2025", QuantityKg: 200, InputType: models.InputDetail}}
	m.Productions.On("CreateBatch", mock.Anything, second).Return(saved, nil).Once()

	a := submitDetail(t, svc, map[string]float64{"m1": 100})
	b := submitDetail(t, svc, map[string]float64{"m2": 200})

	shown, err := svc.Productions(ctx, "c2025")
	require.NoError(t, err)
	require.Len(t, shown, 2, "both writes are pending")

	close(release)
	require.ErrorContains(t, wait(t, a.Done), "upstream down")
	require.NoError(t, wait(t, b.Done))

	shown, err = svc.Productions(ctx, "c2025")
	require.NoError(t, err)
	assert.Equal(t, saved, shown)
	m.AssertExpectations(t)
}

func TestDeleteAfterFailedCreate(t *testing.T) {
	m, svc := newTestService(t)
	ctx := context.Background()

	stored := []models.ProductionRecord{{ID: "r1", MonteID: "m1", CampaignID: "c2025", QuantityKg: 900, InputType: models.InputDetail}}
	m.Productions.On("ListByCampaign", mock.Anything, "c2025").Return(stored, nil).Once()

	release := make(chan struct{})
	extra := []models.ProductionRecord{{MonteID: "m2", CampaignID: "c2025", QuantityKg: 50, InputType: models.InputDetail}}
	m.Productions.On("CreateBatch", mock.Anything, extra).
		Run(func(mock.Arguments) { <-release }).
		Return(nil, errors.New("rejected")).Once()
	m.Productions.On("DeleteBatch", mock.Anything, []string{"r1"}).Return(nil).Once()

	created, err := svc.CreateProductions(ctx, extra)
	require.NoError(t, err)
	deleted, err := svc.DeleteProductions(ctx, "c2025", []string{"r1"})
	require.NoError(t, err)

	shown, err := svc.Productions(ctx, "c2025")
	require.NoError(t, err)
	require.Len(t, shown, 1)
	assert.Equal(t, "m2", shown[0].MonteID)

	close(release)
	require.Error(t, wait(t, created))
	require.NoError(t, wait(t, deleted))

	shown, err = svc.Productions(ctx, "c2025")
	require.NoError(t, err)
	assert.Empty(t, shown)
	m.AssertExpectations(t)
}

func TestTotalModeRejectsUnknownPlots(t *testing.T) {
	m, svc := newTestService(t)
	ctx := context.Background()
	m.Montes.On("ListByProject", mock.Anything, "p1").Return([]models.Monte{
		{ID: "m1", ProjectID: "p1", Hectares: 3},
		{ID: "m0", ProjectID: "p1", Hectares: 0},
	}, nil)

	w := startAtEntry(t, svc, wizard.KindProduction)
	mode := models.InputTotal
	total := 1000.0
	_, err := svc.Update(ctx, w.ID, Patch{Mode: &mode, TotalWeight: &total, SelectedMonteIDs: []string{"bogus"}})
	require.ErrorIs(t, err, wizard.ErrNotEditable)

	_, err = svc.Update(ctx, w.ID, Patch{Mode: &mode, TotalWeight: &total, SelectedMonteIDs: []string{"m0"}})
	require.NoError(t, err)
	_, err = svc.Next(w.ID)
	require.ErrorIs(t, err, wizard.ErrGuardFailed, "a selection without area cannot reach review")

	m.Productions.AssertNotCalled(t, "DeleteBatch", mock.Anything, mock.Anything)
}

func TestAllocate(t *testing.T) {
	m, svc := newTestService(t)
	m.Montes.On("ListByProject", mock.Anything, "p1").Return([]models.Monte{
		{ID: "m1", Hectares: 1},
		{ID: "m2", Hectares: 2},
		{ID: "m3", Hectares: 4},
	}, nil)

	got, err := svc.Allocate(context.Background(), "p1", 900, []string{"m1", "m2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"m1": 300, "m2": 600, "m3": 0}, got)

	_, err = svc.Allocate(context.Background(), "p1", -1, nil)
	require.ErrorIs(t, err, repository.ErrInvalidInput)
}
