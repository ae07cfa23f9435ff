package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/nogal/internal/domain/ledger"
)

// VarietyGeneral is the only yield model variety used operationally.
const VarietyGeneral = "general"

// InputType records how a production figure was entered.
type InputType string

const (
	// InputDetail marks a figure typed in directly for the plot ("Real").
	InputDetail InputType = "detail"
	// InputTotal marks a figure derived from a bulk harvest weight ("Calculado").
	InputTotal InputType = "total"
)

// Valid reports whether the input type is one of the known values.
func (t InputType) Valid() bool {
	return t == InputDetail || t == InputTotal
}

// Project groups the plots, campaigns and ledgers of one orchard.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Monte is a plot of trees sharing one planting year and density.
type Monte struct {
	ID           string  `json:"id"`
	ProjectID    string  `json:"project_id"`
	Name         string  `json:"nombre"`
	Hectares     float64 `json:"hectareas"`
	Density      float64 `json:"densidad"` // plants per hectare
	PlantingYear int     `json:"ano_plantacion"`
	Variety      string  `json:"variedad,omitempty"`
}

// Trees returns the number of trees on the plot.
func (m Monte) Trees() float64 {
	return m.Density * m.Hectares
}

// Campaign is one annual production cycle identified by its start year.
type Campaign struct {
	ID              string          `json:"id"`
	ProjectID       string          `json:"project_id"`
	Year            int             `json:"year"`
	AveragePrice    decimal.Decimal `json:"average_price"`
	TotalProduction float64         `json:"total_production"`
	Status          string          `json:"status,omitempty"`
}

// ProductionRecord is one harvested quantity for a plot in a campaign.
type ProductionRecord struct {
	ID         string    `json:"id"`
	MonteID    string    `json:"monte_id"`
	CampaignID string    `json:"campaign_id"`
	QuantityKg float64   `json:"quantity_kg"`
	InputType  InputType `json:"input_type"`
}

// Amount is a money figure that decodes leniently: numbers, numeric strings,
// and anything else becomes 0.
type Amount float64

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = Amount(ledger.ToFloat(raw))
	return nil
}

// Cost is an operating expense booked against a campaign.
type Cost struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	CampaignID  string    `json:"campaign_id"`
	Category    string    `json:"category"`
	Amount      Amount    `json:"amount"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
}

// Investment is a capital expense booked against a campaign.
type Investment struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	CampaignID  string    `json:"campaign_id"`
	Category    string    `json:"category"`
	Amount      Amount    `json:"amount"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
}
