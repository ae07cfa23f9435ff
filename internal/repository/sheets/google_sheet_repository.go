package sheets

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/nogal/internal/config"
	"github.com/mamadbah2/nogal/internal/domain/models"
)

// SnapshotSheet is the tab receiving one row per campaign snapshot.
const SnapshotSheet = "Snapshots"

// SnapshotHeader is written once, when the snapshot tab is empty.
var SnapshotHeader = []interface{}{
	"Fecha", "Proyecto", "Campaña", "Real (kg)", "Estimado (kg)", "Desvío (%)",
	"Estado", "Ingresos", "Costos", "Inversiones", "Costos por categoría", "Inversiones por categoría",
}

// GoogleSheetRepository appends campaign snapshots to a spreadsheet using the
// official Google Sheets API.
type GoogleSheetRepository struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewGoogleSheetRepository builds a Google Sheets backed repository instance.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*GoogleSheetRepository, error) {
	return newRepository(ctx, cfg.SpreadsheetID, logger,
		option.WithCredentialsFile(cfg.CredentialsPath),
		option.WithScopes(sheetsapi.SpreadsheetsScope),
	)
}

func newRepository(ctx context.Context, spreadsheetID string, logger *zap.Logger, opts ...option.ClientOption) (*GoogleSheetRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &GoogleSheetRepository{
		service:       service,
		spreadsheetID: spreadsheetID,
		logger:        logger,
	}, nil
}

// ExportSnapshot appends the snapshot as a row, writing the header first when
// the tab is still empty.
func (r *GoogleSheetRepository) ExportSnapshot(ctx context.Context, snapshot models.CampaignSnapshot) error {
	existing, err := r.ReadRange(ctx, SnapshotSheet+"!A1:A1")
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		if err := r.WriteRow(ctx, SnapshotSheet+"!A1", SnapshotHeader); err != nil {
			return err
		}
	}
	return r.WriteRow(ctx, SnapshotSheet+"!A1", SnapshotRow(snapshot))
}

// SnapshotRow renders a snapshot in SnapshotHeader column order.
func SnapshotRow(s models.CampaignSnapshot) []interface{} {
	deviation := ""
	if s.DeviationPct != nil {
		deviation = fmt.Sprintf("%.1f", *s.DeviationPct)
	}
	return []interface{}{
		s.CreatedAt.Format(time.DateTime),
		s.ProjectID,
		s.Year,
		s.RealKg,
		s.EstimatedKg,
		deviation,
		s.Tier,
		s.Revenue,
		s.CostsTotal,
		s.InvestmentsTotal,
		formatCategories(s.CostsByCategory),
		formatCategories(s.InvestmentsByCategory),
	}
}

func formatCategories(sums map[string]float64) string {
	keys := make([]string, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %.2f", k, sums[k]))
	}
	return strings.Join(parts, "; ")
}

// WriteRow appends the provided values to the supplied sheet range.
func (r *GoogleSheetRepository) WriteRow(ctx context.Context, sheetRange string, values []interface{}) error {
	if sheetRange == "" {
		return fmt.Errorf("sheetRange must not be empty")
	}

	payload := &sheetsapi.ValueRange{Values: [][]interface{}{values}}

	call := r.service.Spreadsheets.Values.Append(r.spreadsheetID, sheetRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append row into range %s: %w", sheetRange, err)
	}

	r.logger.Debug("row appended to sheet", zap.String("range", sheetRange))
	return nil
}

// ReadRange fetches a rectangular data range from the spreadsheet.
func (r *GoogleSheetRepository) ReadRange(ctx context.Context, sheetRange string) ([][]interface{}, error) {
	if sheetRange == "" {
		return nil, fmt.Errorf("sheetRange must not be empty")
	}

	resp, err := r.service.Spreadsheets.Values.Get(r.spreadsheetID, sheetRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", sheetRange, err)
	}

	return resp.Values, nil
}
