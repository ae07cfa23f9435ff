package models

import "time"

// CampaignSnapshot represents a campaign dashboard frozen at a point in time,
// archived in MongoDB and exported to Google Sheets.
type CampaignSnapshot struct {
	ID                    string             `bson:"_id" json:"id"`
	ProjectID             string             `bson:"project_id" json:"project_id"`
	CampaignID            string             `bson:"campaign_id" json:"campaign_id"`
	Year                  int                `bson:"year" json:"year"`
	RealKg                float64            `bson:"real_kg" json:"real_kg"`
	EstimatedKg           int64              `bson:"estimated_kg" json:"estimated_kg"`
	DeviationPct          *float64           `bson:"deviation_pct,omitempty" json:"deviation_pct"`
	Tier                  string             `bson:"tier" json:"tier"`
	Revenue               string             `bson:"revenue" json:"revenue"`
	CostsTotal            float64            `bson:"costs_total" json:"costs_total"`
	InvestmentsTotal      float64            `bson:"investments_total" json:"investments_total"`
	CostsByCategory       map[string]float64 `bson:"costs_by_category" json:"costs_by_category"`
	InvestmentsByCategory map[string]float64 `bson:"investments_by_category" json:"investments_by_category"`
	CreatedAt             time.Time          `bson:"created_at" json:"created_at"`
}
