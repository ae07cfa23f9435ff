// Package wizard models the three-step registration flow for production,
// costs and investments as a finite-state machine with guarded transitions.
package wizard

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mamadbah2/nogal/internal/domain/models"
	"github.com/mamadbah2/nogal/internal/domain/yield"
)

var (
	// ErrInvalidTransition indicates the requested move does not exist from the current state.
	ErrInvalidTransition = errors.New("invalid wizard transition")
	// ErrGuardFailed indicates the current step is incomplete.
	ErrGuardFailed = errors.New("wizard step incomplete")
	// ErrNotEditable indicates a field was changed outside the step that owns it.
	ErrNotEditable = errors.New("field not editable in current step")
	// ErrUnknownKind indicates an unsupported wizard kind.
	ErrUnknownKind = errors.New("unknown wizard kind")
)

// Kind is what the wizard registers.
type Kind string

const (
	KindProduction Kind = "production"
	KindCost       Kind = "cost"
	KindInvestment Kind = "investment"
)

// Valid reports whether the kind is supported.
func (k Kind) Valid() bool {
	switch k {
	case KindProduction, KindCost, KindInvestment:
		return true
	}
	return false
}

// State is a named wizard step.
type State string

const (
	StateCampaign  State = "campaign"
	StateEntry     State = "entry"
	StateReview    State = "review"
	StateSubmitted State = "submitted"
)

var (
	forward  = map[State]State{StateCampaign: StateEntry, StateEntry: StateReview}
	backward = map[State]State{StateEntry: StateCampaign, StateReview: StateEntry}
	steps    = map[State]int{StateCampaign: 1, StateEntry: 2, StateReview: 3, StateSubmitted: 3}
)

// LedgerLine is one cost or investment line of a ledger wizard.
type LedgerLine struct {
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description,omitempty"`
}

// Draft holds what the user entered so far.
type Draft struct {
	CampaignID       string             `json:"campaign_id"`
	Mode             models.InputType   `json:"mode"`
	Quantities       map[string]float64 `json:"quantities"`
	TotalWeight      float64            `json:"total_weight"`
	SelectedMonteIDs []string           `json:"selected_monte_ids"`
	Lines            []LedgerLine       `json:"lines"`
}

// Wizard is one registration flow in progress.
type Wizard struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Kind      Kind   `json:"kind"`
	State     State  `json:"state"`
	Draft     Draft  `json:"draft"`
}

// New starts a wizard at step 1. Production wizards default to detail mode.
func New(id, projectID string, kind Kind) (*Wizard, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	w := &Wizard{
		ID:        id,
		ProjectID: projectID,
		Kind:      kind,
		State:     StateCampaign,
		Draft:     Draft{Quantities: map[string]float64{}},
	}
	if kind == KindProduction {
		w.Draft.Mode = models.InputDetail
	}
	return w, nil
}

// Step returns the 1-based step number shown to the user.
func (w *Wizard) Step() int {
	return steps[w.State]
}

// CanProceed reports whether the given state's guard holds for the current draft.
func (w *Wizard) CanProceed(state State) bool {
	switch state {
	case StateCampaign:
		return strings.TrimSpace(w.Draft.CampaignID) != ""
	case StateEntry:
		if w.Kind == KindProduction {
			return w.productionComplete()
		}
		return w.ledgerComplete()
	case StateReview:
		return true
	default:
		return false
	}
}

// Next moves one step forward when the current step is complete.
func (w *Wizard) Next() error {
	to, ok := forward[w.State]
	if !ok {
		return fmt.Errorf("%w: next from %s", ErrInvalidTransition, w.State)
	}
	if !w.CanProceed(w.State) {
		return fmt.Errorf("%w: %s", ErrGuardFailed, w.State)
	}
	w.State = to
	return nil
}

// Back moves one step backward. The draft is kept.
func (w *Wizard) Back() error {
	to, ok := backward[w.State]
	if !ok {
		return fmt.Errorf("%w: back from %s", ErrInvalidTransition, w.State)
	}
	w.State = to
	return nil
}

// Submit confirms the review step. It is the only way into StateSubmitted.
func (w *Wizard) Submit() error {
	if w.State != StateReview {
		return fmt.Errorf("%w: submit from %s", ErrInvalidTransition, w.State)
	}
	if !w.CanProceed(StateCampaign) || !w.CanProceed(StateEntry) {
		return fmt.Errorf("%w: draft incomplete", ErrGuardFailed)
	}
	w.State = StateSubmitted
	return nil
}

// SetCampaign selects the campaign on step 1.
func (w *Wizard) SetCampaign(campaignID string) error {
	if err := w.requireState(StateCampaign); err != nil {
		return err
	}
	w.Draft.CampaignID = campaignID
	return nil
}

// SetMode switches a production wizard between detail and total entry.
// Switching discards entered quantities.
func (w *Wizard) SetMode(mode models.InputType) error {
	if err := w.requireProductionEntry(); err != nil {
		return err
	}
	if !mode.Valid() {
		return fmt.Errorf("%w: mode %q", ErrNotEditable, mode)
	}
	if mode != w.Draft.Mode {
		w.Draft.Mode = mode
		w.Draft.Quantities = map[string]float64{}
		w.Draft.TotalWeight = 0
		w.Draft.SelectedMonteIDs = nil
	}
	return nil
}

// SetQuantity records the kilograms of one plot in detail mode.
func (w *Wizard) SetQuantity(monteID string, kg float64) error {
	if err := w.requireProductionEntry(); err != nil {
		return err
	}
	if w.Draft.Mode != models.InputDetail {
		return fmt.Errorf("%w: quantities are computed in total mode", ErrNotEditable)
	}
	if kg < 0 {
		return fmt.Errorf("%w: negative quantity", ErrNotEditable)
	}
	w.Draft.Quantities[monteID] = kg
	return nil
}

// SetTotal records the bulk harvest weight and plot selection in total mode
// and recomputes every plot's share from scratch.
func (w *Wizard) SetTotal(totalWeight float64, selectedIDs []string, plots []models.Monte) error {
	if err := w.requireProductionEntry(); err != nil {
		return err
	}
	if w.Draft.Mode != models.InputTotal {
		return fmt.Errorf("%w: total weight requires total mode", ErrNotEditable)
	}
	if totalWeight < 0 {
		return fmt.Errorf("%w: negative total weight", ErrNotEditable)
	}
	known := make(map[string]struct{}, len(plots))
	for _, m := range plots {
		known[m.ID] = struct{}{}
	}
	for _, id := range selectedIDs {
		if _, ok := known[id]; !ok {
			return fmt.Errorf("%w: monte %q is not part of the project", ErrNotEditable, id)
		}
	}

	allocated := yield.Reallocate(totalWeight, selectedIDs, plots)
	quantities := make(map[string]float64, len(allocated))
	for id, kg := range allocated {
		quantities[id] = float64(kg)
	}

	w.Draft.TotalWeight = totalWeight
	w.Draft.SelectedMonteIDs = append([]string(nil), selectedIDs...)
	w.Draft.Quantities = quantities
	return nil
}

// SetLines replaces the lines of a cost or investment wizard.
func (w *Wizard) SetLines(lines []LedgerLine) error {
	if err := w.requireState(StateEntry); err != nil {
		return err
	}
	if w.Kind == KindProduction {
		return fmt.Errorf("%w: production wizards have no ledger lines", ErrNotEditable)
	}
	w.Draft.Lines = append([]LedgerLine(nil), lines...)
	return nil
}

// Records builds the production records of the draft, one per plot with a
// positive quantity, ordered by plot id.
func (w *Wizard) Records() []models.ProductionRecord {
	ids := make([]string, 0, len(w.Draft.Quantities))
	for id, kg := range w.Draft.Quantities {
		if kg > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	records := make([]models.ProductionRecord, 0, len(ids))
	for _, id := range ids {
		records = append(records, models.ProductionRecord{
			MonteID:    id,
			CampaignID: w.Draft.CampaignID,
			QuantityKg: w.Draft.Quantities[id],
			InputType:  w.Draft.Mode,
		})
	}
	return records
}

func (w *Wizard) productionComplete() bool {
	switch w.Draft.Mode {
	case models.InputDetail:
		for _, kg := range w.Draft.Quantities {
			if kg > 0 {
				return true
			}
		}
		return false
	case models.InputTotal:
		// every share is zero when the selection has no area
		if w.Draft.TotalWeight <= 0 || len(w.Draft.SelectedMonteIDs) == 0 {
			return false
		}
		for _, kg := range w.Draft.Quantities {
			if kg > 0 {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func (w *Wizard) ledgerComplete() bool {
	for _, line := range w.Draft.Lines {
		if strings.TrimSpace(line.Category) != "" && line.Amount > 0 {
			return true
		}
	}
	return false
}

func (w *Wizard) requireState(state State) error {
	if w.State != state {
		return fmt.Errorf("%w: expected step %s, wizard is at %s", ErrNotEditable, state, w.State)
	}
	return nil
}

func (w *Wizard) requireProductionEntry() error {
	if w.Kind != KindProduction {
		return fmt.Errorf("%w: not a production wizard", ErrNotEditable)
	}
	return w.requireState(StateEntry)
}
