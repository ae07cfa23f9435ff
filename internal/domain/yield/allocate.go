package yield

import "github.com/mamadbah2/nogal/internal/domain/models"

// Allocate splits a bulk harvest weight across the selected plots in
// proportion to their hectares. Each share is rounded on its own and the
// rounding remainder is left unassigned. When the selection has no area every
// plot gets 0; weight is never split evenly.
func Allocate(totalWeight float64, selected []models.Monte) map[string]int64 {
	out := make(map[string]int64, len(selected))

	var totalHectares float64
	for _, m := range selected {
		totalHectares += m.Hectares
	}

	for _, m := range selected {
		if totalHectares == 0 {
			out[m.ID] = 0
			continue
		}
		share := m.Hectares / totalHectares
		out[m.ID] = round(totalWeight * share)
	}

	return out
}

// Reallocate recomputes allocations from scratch for every plot in plots.
// Plots whose id is not in selectedIDs get 0, replacing anything they held.
func Reallocate(totalWeight float64, selectedIDs []string, plots []models.Monte) map[string]int64 {
	wanted := make(map[string]struct{}, len(selectedIDs))
	for _, id := range selectedIDs {
		wanted[id] = struct{}{}
	}

	selected := make([]models.Monte, 0, len(selectedIDs))
	for _, m := range plots {
		if _, ok := wanted[m.ID]; ok {
			selected = append(selected, m)
		}
	}

	out := Allocate(totalWeight, selected)
	for _, m := range plots {
		if _, ok := out[m.ID]; !ok {
			out[m.ID] = 0
		}
	}
	return out
}
