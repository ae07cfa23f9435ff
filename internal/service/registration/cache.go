package registration

import (
	"context"
	"fmt"
	"sync"

	"github.com/mamadbah2/nogal/internal/domain/models"
	"github.com/mamadbah2/nogal/internal/repository"
)

// ProductionCache keeps the production records of each campaign as the
// dashboard currently shows them. The view is the confirmed records of the
// campaign with every pending change applied in submit order.
type ProductionCache struct {
	repo repository.ProductionRepository

	mu        sync.Mutex
	seq       uint64
	campaigns map[string]*campaignView
}

// Change rewrites a list of production records.
type Change func([]models.ProductionRecord) []models.ProductionRecord

type pendingChange struct {
	id     uint64
	change Change
}

type campaignView struct {
	loaded  bool
	gen     uint64
	base    []models.ProductionRecord
	pending []pendingChange
}

// NewProductionCache creates an empty cache reading through repo.
func NewProductionCache(repo repository.ProductionRepository) *ProductionCache {
	return &ProductionCache{
		repo:      repo,
		campaigns: make(map[string]*campaignView),
	}
}

// Load returns the records of a campaign, fetching the confirmed ones when
// they are not cached.
func (c *ProductionCache) Load(ctx context.Context, campaignID string) ([]models.ProductionRecord, error) {
	c.mu.Lock()
	v := c.view(campaignID)
	if v.loaded {
		out := v.records(v.base)
		c.mu.Unlock()
		return out, nil
	}
	gen := v.gen
	c.mu.Unlock()

	fetched, err := c.repo.ListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("load productions: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	v = c.view(campaignID)
	switch {
	case v.loaded:
		return v.records(v.base), nil
	case v.gen != gen:
		// a write settled while fetching; the fetch may predate it
		return v.records(fetched), nil
	}
	v.base = copyRecords(fetched)
	v.loaded = true
	return v.records(v.base), nil
}

// Stage adds a pending change on top of a campaign and returns its handle.
func (c *ProductionCache) Stage(campaignID string, change Change) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	v := c.view(campaignID)
	v.pending = append(v.pending, pendingChange{id: c.seq, change: change})
	return c.seq
}

// Confirm drops a pending change and folds commit into the confirmed
// records. When they are not cached the next Load fetches them.
func (c *ProductionCache) Confirm(campaignID string, id uint64, commit Change) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.view(campaignID)
	v.drop(id)
	v.gen++
	if v.loaded && commit != nil {
		v.base = copyRecords(commit(copyRecords(v.base)))
	}
}

// Discard drops a pending change, leaving other pending changes in place.
func (c *ProductionCache) Discard(campaignID string, id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view(campaignID).drop(id)
}

// Invalidate forgets the confirmed records of a campaign so the next Load
// refetches them. Pending changes are kept.
func (c *ProductionCache) Invalidate(campaignID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.view(campaignID)
	v.loaded = false
	v.base = nil
	v.gen++
}

func (c *ProductionCache) view(campaignID string) *campaignView {
	v, ok := c.campaigns[campaignID]
	if !ok {
		v = &campaignView{}
		c.campaigns[campaignID] = v
	}
	return v
}

func (v *campaignView) records(base []models.ProductionRecord) []models.ProductionRecord {
	out := copyRecords(base)
	for _, p := range v.pending {
		out = copyRecords(p.change(out))
	}
	return out
}

func (v *campaignView) drop(id uint64) {
	for i, p := range v.pending {
		if p.id == id {
			v.pending = append(v.pending[:i:i], v.pending[i+1:]...)
			return
		}
	}
}

func copyRecords(records []models.ProductionRecord) []models.ProductionRecord {
	if records == nil {
		return []models.ProductionRecord{}
	}
	return append([]models.ProductionRecord(nil), records...)
}

// withoutMontes drops the records of the given plots.
func withoutMontes(records []models.ProductionRecord, monteIDs map[string]struct{}) (kept, dropped []models.ProductionRecord) {
	for _, r := range records {
		if _, ok := monteIDs[r.MonteID]; ok {
			dropped = append(dropped, r)
			continue
		}
		kept = append(kept, r)
	}
	return kept, dropped
}

// withoutIDs drops the records with the given ids.
func withoutIDs(records []models.ProductionRecord, ids []string) (kept, dropped []models.ProductionRecord) {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	for _, r := range records {
		if _, ok := set[r.ID]; ok {
			dropped = append(dropped, r)
			continue
		}
		kept = append(kept, r)
	}
	return kept, dropped
}

func recordIDs(records []models.ProductionRecord) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		if r.ID != "" {
			ids = append(ids, r.ID)
		}
	}
	return ids
}
