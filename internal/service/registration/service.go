// Package registration drives the production, cost and investment wizards and
// writes their results optimistically.
package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/nogal/internal/domain/models"
	"github.com/mamadbah2/nogal/internal/domain/wizard"
	"github.com/mamadbah2/nogal/internal/domain/yield"
	"github.com/mamadbah2/nogal/internal/repository"
	"github.com/mamadbah2/nogal/internal/service/mutation"
)

// ErrCampaignMismatch is returned when a campaign does not belong to the wizard's project.
var ErrCampaignMismatch = errors.New("campaign does not belong to project")

// Patch carries the fields a client changes on the current wizard step.
// Nil fields are left alone.
type Patch struct {
	CampaignID       *string             `json:"campaign_id,omitempty"`
	Mode             *models.InputType   `json:"mode,omitempty"`
	Quantities       map[string]float64  `json:"quantities,omitempty"`
	TotalWeight      *float64            `json:"total_weight,omitempty"`
	SelectedMonteIDs []string            `json:"selected_monte_ids,omitempty"`
	Lines            []wizard.LedgerLine `json:"lines,omitempty"`
}

// Submission is the optimistic result of a submitted wizard. Done delivers
// the remote outcome.
type Submission struct {
	Wizard      *wizard.Wizard            `json:"wizard"`
	Records     []models.ProductionRecord `json:"records,omitempty"`
	Costs       []models.Cost             `json:"costs,omitempty"`
	Investments []models.Investment       `json:"investments,omitempty"`
	Done        <-chan error              `json:"-"`
}

// Service runs registration wizards.
type Service struct {
	store    *repository.Store
	queue    *mutation.Queue
	sessions *SessionManager
	cache    *ProductionCache
	now      func() time.Time
	logger   *zap.Logger
}

// NewService wires the registration service.
func NewService(store *repository.Store, queue *mutation.Queue, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		queue:    queue,
		sessions: NewSessionManager(),
		cache:    NewProductionCache(store.Productions),
		now:      time.Now,
		logger:   logger,
	}
}

// Start opens a wizard of the given kind for a project.
func (s *Service) Start(ctx context.Context, projectID string, kind wizard.Kind) (*wizard.Wizard, error) {
	if _, err := s.store.Projects.Get(ctx, projectID); err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}

	w, err := wizard.New(uuid.NewString(), projectID, kind)
	if err != nil {
		return nil, err
	}
	s.sessions.PutSession(w)

	s.logger.Debug("wizard started", zap.String("wizard_id", w.ID), zap.String("kind", string(kind)))
	return w, nil
}

// Get returns a wizard in progress.
func (s *Service) Get(id string) (*wizard.Wizard, error) {
	return s.sessions.GetSession(id)
}

// Update applies a patch to the current step of a wizard.
func (s *Service) Update(ctx context.Context, id string, p Patch) (*wizard.Wizard, error) {
	current, err := s.sessions.GetSession(id)
	if err != nil {
		return nil, err
	}

	if p.CampaignID != nil && *p.CampaignID != "" {
		campaign, err := s.store.Campaigns.Get(ctx, *p.CampaignID)
		if err != nil {
			return nil, fmt.Errorf("load campaign: %w", err)
		}
		if campaign.ProjectID != current.ProjectID {
			return nil, fmt.Errorf("%w: %s", ErrCampaignMismatch, campaign.ID)
		}
	}

	var plots []models.Monte
	if p.TotalWeight != nil || p.SelectedMonteIDs != nil {
		plots, err = s.store.Montes.ListByProject(ctx, current.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("load montes: %w", err)
		}
	}

	return s.sessions.UpdateSession(id, func(w *wizard.Wizard) error {
		if p.CampaignID != nil {
			if err := w.SetCampaign(*p.CampaignID); err != nil {
				return err
			}
		}
		if p.Mode != nil {
			if err := w.SetMode(*p.Mode); err != nil {
				return err
			}
		}
		for monteID, kg := range p.Quantities {
			if err := w.SetQuantity(monteID, kg); err != nil {
				return err
			}
		}
		if p.TotalWeight != nil || p.SelectedMonteIDs != nil {
			total := w.Draft.TotalWeight
			if p.TotalWeight != nil {
				total = *p.TotalWeight
			}
			selected := w.Draft.SelectedMonteIDs
			if p.SelectedMonteIDs != nil {
				selected = p.SelectedMonteIDs
			}
			if err := w.SetTotal(total, selected, plots); err != nil {
				return err
			}
		}
		if p.Lines != nil {
			if err := w.SetLines(p.Lines); err != nil {
				return err
			}
		}
		return nil
	})
}

// Next moves a wizard one step forward.
func (s *Service) Next(id string) (*wizard.Wizard, error) {
	return s.sessions.UpdateSession(id, func(w *wizard.Wizard) error { return w.Next() })
}

// Back moves a wizard one step backward.
func (s *Service) Back(id string) (*wizard.Wizard, error) {
	return s.sessions.UpdateSession(id, func(w *wizard.Wizard) error { return w.Back() })
}

// Submit confirms a wizard at the review step. Local state changes at once;
// the remote writes run on the mutation queue and are rolled back on failure.
// The session ends on success.
func (s *Service) Submit(ctx context.Context, id string) (*Submission, error) {
	w, err := s.sessions.GetSession(id)
	if err != nil {
		return nil, err
	}
	submitted := clone(w)
	if err := submitted.Submit(); err != nil {
		return nil, err
	}

	var sub *Submission
	switch w.Kind {
	case wizard.KindProduction:
		sub, err = s.submitProduction(ctx, submitted)
	default:
		sub, err = s.submitLedger(ctx, submitted)
	}
	if err != nil {
		return nil, err
	}

	s.sessions.ClearSession(id)
	s.logger.Info("wizard submitted",
		zap.String("wizard_id", id),
		zap.String("kind", string(w.Kind)),
		zap.String("campaign_id", w.Draft.CampaignID),
	)
	return sub, nil
}

func (s *Service) submitProduction(ctx context.Context, w *wizard.Wizard) (*Submission, error) {
	campaignID := w.Draft.CampaignID
	if _, err := s.cache.Load(ctx, campaignID); err != nil {
		return nil, err
	}

	// Every plot the draft touches is replaced, including plots set to zero.
	affected := make(map[string]struct{}, len(w.Draft.Quantities))
	for monteID := range w.Draft.Quantities {
		affected[monteID] = struct{}{}
	}
	records := w.Records()
	replace := func(with []models.ProductionRecord) Change {
		return func(current []models.ProductionRecord) []models.ProductionRecord {
			kept, _ := withoutMontes(current, affected)
			return append(kept, with...)
		}
	}

	var staged uint64
	done := s.queue.Submit(ctx, mutation.Command{
		Name:  "register production",
		Apply: func() { staged = s.cache.Stage(campaignID, replace(records)) },
		Remote: func(ctx context.Context) error {
			created, err := s.replaceRecords(ctx, campaignID, affected, records)
			if err != nil {
				return err
			}
			s.cache.Confirm(campaignID, staged, replace(created))
			return nil
		},
		Rollback: func() { s.cache.Discard(campaignID, staged) },
	})

	return &Submission{Wizard: w, Records: records, Done: done}, nil
}

// replaceRecords deletes the stored records of the affected plots and creates
// the new ones. When creation fails the deleted records are restored.
func (s *Service) replaceRecords(ctx context.Context, campaignID string, affected map[string]struct{}, records []models.ProductionRecord) ([]models.ProductionRecord, error) {
	current, err := s.store.Productions.ListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list productions: %w", err)
	}
	_, replaced := withoutMontes(current, affected)

	if ids := recordIDs(replaced); len(ids) > 0 {
		if err := s.store.Productions.DeleteBatch(ctx, ids); err != nil {
			return nil, fmt.Errorf("delete replaced productions: %w", err)
		}
	}

	created, err := s.store.Productions.CreateBatch(ctx, records)
	if err != nil {
		if len(replaced) > 0 {
			if _, restoreErr := s.store.Productions.CreateBatch(ctx, replaced); restoreErr != nil {
				s.logger.Error("failed to restore replaced productions",
					zap.String("campaign_id", campaignID),
					zap.Error(restoreErr),
				)
			}
			// restored records come back under new ids
			s.cache.Invalidate(campaignID)
		}
		return nil, fmt.Errorf("create productions: %w", err)
	}
	return created, nil
}

func (s *Service) submitLedger(ctx context.Context, w *wizard.Wizard) (*Submission, error) {
	date := s.now().UTC()
	sub := &Submission{Wizard: w}

	for _, line := range w.Draft.Lines {
		category := strings.TrimSpace(line.Category)
		if category == "" || line.Amount <= 0 {
			continue
		}
		switch w.Kind {
		case wizard.KindCost:
			sub.Costs = append(sub.Costs, models.Cost{
				ProjectID:   w.ProjectID,
				CampaignID:  w.Draft.CampaignID,
				Category:    category,
				Amount:      models.Amount(line.Amount),
				Description: line.Description,
				Date:        date,
			})
		case wizard.KindInvestment:
			sub.Investments = append(sub.Investments, models.Investment{
				ProjectID:   w.ProjectID,
				CampaignID:  w.Draft.CampaignID,
				Category:    category,
				Amount:      models.Amount(line.Amount),
				Description: line.Description,
				Date:        date,
			})
		}
	}

	costs := append([]models.Cost(nil), sub.Costs...)
	investments := append([]models.Investment(nil), sub.Investments...)
	sub.Done = s.queue.Submit(ctx, mutation.Command{
		Name: "register " + string(w.Kind),
		Remote: func(ctx context.Context) error {
			return s.createLedger(ctx, costs, investments)
		},
	})
	return sub, nil
}

// createLedger books every line or none: lines created before a failure are
// deleted again.
func (s *Service) createLedger(ctx context.Context, costs []models.Cost, investments []models.Investment) error {
	var undo []func(context.Context) error

	fail := func(err error) error {
		for i := len(undo) - 1; i >= 0; i-- {
			if undoErr := undo[i](ctx); undoErr != nil {
				s.logger.Error("failed to undo ledger line", zap.Error(undoErr))
			}
		}
		return err
	}

	for i := range costs {
		if err := s.store.Costs.Create(ctx, &costs[i]); err != nil {
			return fail(fmt.Errorf("create cost: %w", err))
		}
		id := costs[i].ID
		undo = append(undo, func(ctx context.Context) error { return s.store.Costs.Delete(ctx, id) })
	}
	for i := range investments {
		if err := s.store.Investments.Create(ctx, &investments[i]); err != nil {
			return fail(fmt.Errorf("create investment: %w", err))
		}
		id := investments[i].ID
		undo = append(undo, func(ctx context.Context) error { return s.store.Investments.Delete(ctx, id) })
	}
	return nil
}

// Productions returns the records of a campaign as currently shown.
func (s *Service) Productions(ctx context.Context, campaignID string) ([]models.ProductionRecord, error) {
	return s.cache.Load(ctx, campaignID)
}

// CreateProductions adds records outside a wizard. Records must share one campaign.
func (s *Service) CreateProductions(ctx context.Context, records []models.ProductionRecord) (<-chan error, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no records", repository.ErrInvalidInput)
	}
	campaignID := records[0].CampaignID
	for _, r := range records {
		switch {
		case r.CampaignID == "" || r.CampaignID != campaignID:
			return nil, fmt.Errorf("%w: records must share one campaign", repository.ErrInvalidInput)
		case r.MonteID == "":
			return nil, fmt.Errorf("%w: monte_id is required", repository.ErrInvalidInput)
		case !r.InputType.Valid():
			return nil, fmt.Errorf("%w: input_type %q", repository.ErrInvalidInput, r.InputType)
		case r.QuantityKg < 0:
			return nil, fmt.Errorf("%w: negative quantity", repository.ErrInvalidInput)
		}
	}

	if _, err := s.cache.Load(ctx, campaignID); err != nil {
		return nil, err
	}
	pending := append([]models.ProductionRecord(nil), records...)
	add := func(with []models.ProductionRecord) Change {
		return func(current []models.ProductionRecord) []models.ProductionRecord {
			return append(current, with...)
		}
	}

	var staged uint64
	return s.queue.Submit(ctx, mutation.Command{
		Name:  "create productions",
		Apply: func() { staged = s.cache.Stage(campaignID, add(pending)) },
		Remote: func(ctx context.Context) error {
			created, err := s.store.Productions.CreateBatch(ctx, pending)
			if err != nil {
				return fmt.Errorf("create productions: %w", err)
			}
			s.cache.Confirm(campaignID, staged, add(created))
			return nil
		},
		Rollback: func() { s.cache.Discard(campaignID, staged) },
	}), nil
}

// DeleteProductions removes records of a campaign.
func (s *Service) DeleteProductions(ctx context.Context, campaignID string, ids []string) (<-chan error, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no ids", repository.ErrInvalidInput)
	}
	if _, err := s.cache.Load(ctx, campaignID); err != nil {
		return nil, err
	}
	remove := append([]string(nil), ids...)
	drop := func(current []models.ProductionRecord) []models.ProductionRecord {
		kept, _ := withoutIDs(current, remove)
		return kept
	}

	var staged uint64
	return s.queue.Submit(ctx, mutation.Command{
		Name:  "delete productions",
		Apply: func() { staged = s.cache.Stage(campaignID, drop) },
		Remote: func(ctx context.Context) error {
			if err := s.store.Productions.DeleteBatch(ctx, remove); err != nil {
				return fmt.Errorf("delete productions: %w", err)
			}
			s.cache.Confirm(campaignID, staged, drop)
			return nil
		},
		Rollback: func() { s.cache.Discard(campaignID, staged) },
	}), nil
}

// Allocate previews how a bulk weight splits over the selected plots of a project.
func (s *Service) Allocate(ctx context.Context, projectID string, totalWeight float64, selectedIDs []string) (map[string]int64, error) {
	if totalWeight < 0 {
		return nil, fmt.Errorf("%w: negative total weight", repository.ErrInvalidInput)
	}
	plots, err := s.store.Montes.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load montes: %w", err)
	}
	return yield.Reallocate(totalWeight, selectedIDs, plots), nil
}
