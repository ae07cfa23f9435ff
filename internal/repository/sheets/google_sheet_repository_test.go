package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/nogal/internal/domain/models"
)

func TestSnapshotRow(t *testing.T) {
	dev := -12.5
	row := SnapshotRow(models.CampaignSnapshot{
		ProjectID:       "p1",
		Year:            2025,
		RealKg:          3500,
		EstimatedKg:     4000,
		DeviationPct:    &dev,
		Tier:            "warning",
		Revenue:         "13125",
		CostsTotal:      2000,
		CostsByCategory: map[string]float64{"mano de obra": 800, "combustible": 1200},
		CreatedAt:       time.Date(2025, 6, 6, 20, 0, 0, 0, time.UTC),
	})

	require.Len(t, row, len(SnapshotHeader))
	assert.Equal(t, "2025-06-06 20:00:00", row[0])
	assert.Equal(t, "-12.5", row[5])
	assert.Equal(t, "combustible: 1200.00; mano de obra: 800.00", row[10])
	assert.Equal(t, "", row[11])

	row = SnapshotRow(models.CampaignSnapshot{})
	assert.Equal(t, "", row[5], "missing deviation renders empty")
}

func TestExportSnapshot(t *testing.T) {
	var mu sync.Mutex
	var appended [][]interface{}
	empty := true

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		mu.Lock()
		defer mu.Unlock()

		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
			var body sheetsapi.ValueRange
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			appended = append(appended, body.Values...)
			empty = false
			_, _ = w.Write([]byte(`{}`))
		case r.Method == http.MethodGet:
			if empty {
				_, _ = w.Write([]byte(`{"range":"Snapshots!A1:A1"}`))
				return
			}
			_, _ = w.Write([]byte(`{"range":"Snapshots!A1:A1","values":[["Fecha"]]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	repo, err := newRepository(ctx, "sheet-1", nil, option.WithEndpoint(srv.URL+"/"), option.WithoutAuthentication())
	require.NoError(t, err)

	require.NoError(t, repo.ExportSnapshot(ctx, models.CampaignSnapshot{ProjectID: "p1", Year: 2024}))
	require.NoError(t, repo.ExportSnapshot(ctx, models.CampaignSnapshot{ProjectID: "p1", Year: 2025}))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, appended, 3, "header once then one row per snapshot")
	assert.Equal(t, "Fecha", appended[0][0])
	assert.Equal(t, float64(2024), appended[1][2])
	assert.Equal(t, float64(2025), appended[2][2])
}

func TestWriteRowRequiresRange(t *testing.T) {
	repo := &GoogleSheetRepository{}
	require.Error(t, repo.WriteRow(context.Background(), "", nil))
	_, err := repo.ReadRange(context.Background(), "")
	require.Error(t, err)
}
