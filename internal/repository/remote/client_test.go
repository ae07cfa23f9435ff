package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/nogal/internal/config"
	"github.com/mamadbah2/nogal/internal/domain/models"
	"github.com/mamadbah2/nogal/internal/repository"
)

func newTestStore(t *testing.T, mux *http.ServeMux) *repository.Store {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	store, err := Open(config.RemoteAPIConfig{BaseURL: srv.URL + "/", Token: "secret", Timeout: 5 * time.Second})
	require.NoError(t, err)
	return store
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	assert.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestOpenRequiresBaseURL(t *testing.T) {
	_, err := Open(config.RemoteAPIConfig{})
	require.Error(t, err)
}

func TestMontes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /projects/p1/montes", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"m1","project_id":"p1","nombre":"Norte","hectareas":10,"densidad":100,"ano_plantacion":2015}]`))
	})
	mux.HandleFunc("POST /projects/p1/montes", func(w http.ResponseWriter, r *http.Request) {
		var m models.Monte
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&m))
		m.ID = "m2"
		writeJSON(t, w, http.StatusCreated, m)
	})
	mux.HandleFunc("GET /montes/missing", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusNotFound, map[string]string{"error": "monte not found"})
	})

	store := newTestStore(t, mux)
	ctx := context.Background()

	montes, err := store.Montes.ListByProject(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, montes, 1)
	assert.Equal(t, "Norte", montes[0].Name)
	assert.Equal(t, 10.0, montes[0].Hectares)
	assert.Equal(t, 2015, montes[0].PlantingYear)

	created := &models.Monte{ProjectID: "p1", Name: "Sur", Hectares: 30}
	require.NoError(t, store.Montes.Create(ctx, created))
	assert.Equal(t, "m2", created.ID)

	_, err = store.Montes.Get(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "monte not found", apiErr.Message)
}

func TestLedgerFilterAndLenientAmounts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /projects/p1/costs", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "c1", r.URL.Query().Get("campaign_id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"k1","category":"combustible","amount":"1200.5"},{"id":"k2","category":"otros","amount":"n/a"}]`))
	})

	store := newTestStore(t, mux)

	costs, err := store.Costs.List(context.Background(), "p1", "c1")
	require.NoError(t, err)
	require.Len(t, costs, 2)
	assert.Equal(t, models.Amount(1200.5), costs[0].Amount)
	assert.Equal(t, models.Amount(0), costs[1].Amount)
}

func TestProductionBatches(t *testing.T) {
	var mu sync.Mutex
	var deleted []string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /productions/batch", func(w http.ResponseWriter, r *http.Request) {
		var req batchCreateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		for i := range req.Records {
			req.Records[i].ID = "r" + req.Records[i].MonteID
		}
		writeJSON(t, w, http.StatusCreated, req.Records)
	})
	mux.HandleFunc("POST /productions/batch-delete", func(w http.ResponseWriter, r *http.Request) {
		var req batchDeleteRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		mu.Lock()
		deleted = req.IDs
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /campaigns/c1/productions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusInternalServerError, map[string]string{"message": "boom"})
	})

	store := newTestStore(t, mux)
	ctx := context.Background()

	created, err := store.Productions.CreateBatch(ctx, []models.ProductionRecord{
		{MonteID: "m1", CampaignID: "c1", QuantityKg: 250, InputType: models.InputTotal},
	})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "rm1", created[0].ID)

	require.NoError(t, store.Productions.DeleteBatch(ctx, []string{"rm1"}))
	mu.Lock()
	assert.Equal(t, []string{"rm1"}, deleted)
	mu.Unlock()

	_, err = store.Productions.ListByCampaign(ctx, "c1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrNotFound)
	assert.Contains(t, err.Error(), "boom")
}

func TestYieldModelSave(t *testing.T) {
	var mu sync.Mutex
	var stored *yieldModelDTO
	mux := http.NewServeMux()
	mux.HandleFunc("GET /projects/p1/yield-models", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, "general", r.URL.Query().Get("variety"))
		if stored == nil {
			writeJSON(t, w, http.StatusOK, []yieldModelDTO{})
			return
		}
		writeJSON(t, w, http.StatusOK, []yieldModelDTO{*stored})
	})
	mux.HandleFunc("POST /yield-models", func(w http.ResponseWriter, r *http.Request) {
		var dto yieldModelDTO
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&dto))
		dto.ID = "y1"
		mu.Lock()
		stored = &dto
		mu.Unlock()
		writeJSON(t, w, http.StatusCreated, dto)
	})
	mux.HandleFunc("PUT /yield-models/y1", func(w http.ResponseWriter, r *http.Request) {
		var dto yieldModelDTO
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&dto))
		mu.Lock()
		stored = &dto
		mu.Unlock()
		writeJSON(t, w, http.StatusOK, dto)
	})

	store := newTestStore(t, mux)
	ctx := context.Background()

	_, err := store.YieldModels.Get(ctx, "p1", models.VarietyGeneral)
	require.ErrorIs(t, err, repository.ErrNotFound)

	model := &models.YieldModel{
		ProjectID: "p1",
		Variety:   models.VarietyGeneral,
		Curve:     []models.YieldCurvePoint{{Age: 10, Kg: 5}},
	}
	require.NoError(t, store.YieldModels.Save(ctx, model))
	assert.Equal(t, "y1", model.ID)
	mu.Lock()
	assert.JSONEq(t, `[{"age":10,"kg":5}]`, stored.Data)
	mu.Unlock()

	// A second save without id updates the existing model
	update := &models.YieldModel{
		ProjectID: "p1",
		Variety:   models.VarietyGeneral,
		Curve:     []models.YieldCurvePoint{{Age: 10, Kg: 6}},
	}
	require.NoError(t, store.YieldModels.Save(ctx, update))
	assert.Equal(t, "y1", update.ID)

	got, err := store.YieldModels.Get(ctx, "p1", models.VarietyGeneral)
	require.NoError(t, err)
	assert.Equal(t, []models.YieldCurvePoint{{Age: 10, Kg: 6}}, got.Curve)
}
