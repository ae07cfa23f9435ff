package estimation

import "github.com/mamadbah2/nogal/internal/domain/models"

type recordKey struct {
	monteID    string
	campaignID string
}

// RecordIndex groups production records by plot and campaign.
type RecordIndex map[recordKey][]models.ProductionRecord

// IndexRecords builds a RecordIndex. Several records per plot and campaign
// are kept and summed by readers.
func IndexRecords(records []models.ProductionRecord) RecordIndex {
	idx := make(RecordIndex)
	for _, r := range records {
		k := recordKey{monteID: r.MonteID, campaignID: r.CampaignID}
		idx[k] = append(idx[k], r)
	}
	return idx
}

// Get returns the records of a plot in a campaign.
func (idx RecordIndex) Get(monteID, campaignID string) []models.ProductionRecord {
	return idx[recordKey{monteID: monteID, campaignID: campaignID}]
}

// SumKg adds up the quantities of records.
func SumKg(records []models.ProductionRecord) float64 {
	var total float64
	for _, r := range records {
		total += r.QuantityKg
	}
	return total
}
