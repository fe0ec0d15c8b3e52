package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grocerytrack/grocery-price-tracker/internal/database"
	"github.com/grocerytrack/grocery-price-tracker/internal/models"
	"github.com/grocerytrack/grocery-price-tracker/internal/runs"
)

type fakeCatalog struct {
	entries  []models.CatalogEntry
	added    []models.CatalogEntry
	history  []database.PricePoint
	addErr   error
	getEntry *models.CatalogEntry
}

func (f *fakeCatalog) ListEntries(ctx context.Context) ([]models.CatalogEntry, error) {
	return f.entries, nil
}

func (f *fakeCatalog) GetEntry(ctx context.Context, productName string) (*models.CatalogEntry, error) {
	if f.getEntry == nil {
		return nil, database.ErrProductNotFound
	}
	return f.getEntry, nil
}

func (f *fakeCatalog) AddProduct(ctx context.Context, entry models.CatalogEntry) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, entry)
	return nil
}

func (f *fakeCatalog) PriceHistory(ctx context.Context, productName string, limit int) ([]database.PricePoint, error) {
	return f.history, nil
}

type fakeRunStore struct {
	run      *database.Run
	outcomes []database.RunOutcome
	runList  []*database.Run
}

func (f *fakeRunStore) GetRun(ctx context.Context, runID string) (*database.Run, error) {
	if f.run == nil {
		return nil, database.ErrRunNotFound
	}
	return f.run, nil
}

func (f *fakeRunStore) ListRuns(ctx context.Context, limit int) ([]*database.Run, error) {
	return f.runList, nil
}

func (f *fakeRunStore) GetRunOutcomes(ctx context.Context, runID string) ([]database.RunOutcome, error) {
	return f.outcomes, nil
}

type fakeStarter struct {
	run *database.Run
	err error
}

func (f *fakeStarter) StartPass(ctx context.Context) (*database.Run, error) {
	return f.run, f.err
}

func newTestRouter(catalog CatalogStore, runStore RunStore, starter PassStarter) *chi.Mux {
	h := NewHandlers(catalog, runStore, starter, context.Background(), slog.Default())
	r := chi.NewRouter()
	r.Route("/api/v1", h.Routes)
	return r
}

func TestListProducts(t *testing.T) {
	catalog := &fakeCatalog{entries: []models.CatalogEntry{
		{ProductName: "Milk 2L", SearchKeyword: "milk", TargetSize: 2000, BrandType: models.BrandHome},
	}}
	router := newTestRouter(catalog, &fakeRunStore{}, &fakeStarter{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var got []models.CatalogEntry
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "Milk 2L", got[0].ProductName)
}

func TestAddProduct(t *testing.T) {
	catalog := &fakeCatalog{}
	router := newTestRouter(catalog, &fakeRunStore{}, &fakeStarter{})

	body, _ := json.Marshal(AddProductRequest{
		ProductName:   "Chocolate 250g",
		SearchKeyword: "chocolate",
		TargetSize:    250,
		BrandType:     "Home Brand",
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/products/", bytes.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, catalog.added, 1)
	assert.Equal(t, models.BrandHome, catalog.added[0].BrandType)
}

func TestAddProductValidation(t *testing.T) {
	router := newTestRouter(&fakeCatalog{}, &fakeRunStore{}, &fakeStarter{})

	body, _ := json.Marshal(AddProductRequest{ProductName: "   ", TargetSize: -5})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/products/", bytes.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddProductConflict(t *testing.T) {
	catalog := &fakeCatalog{addErr: database.ErrProductExists}
	router := newTestRouter(catalog, &fakeRunStore{}, &fakeStarter{})

	body, _ := json.Marshal(AddProductRequest{ProductName: "Milk 2L", TargetSize: 2000})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/products/", bytes.NewReader(body)))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetProductNotFound(t *testing.T) {
	router := newTestRouter(&fakeCatalog{}, &fakeRunStore{}, &fakeStarter{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/Nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTriggerRun(t *testing.T) {
	starter := &fakeStarter{run: &database.Run{ID: "run-1", Status: database.RunStatusRunning}}
	router := newTestRouter(&fakeCatalog{}, &fakeRunStore{}, starter)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/runs/", nil))

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp TriggerRunResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, "running", resp.Status)
}

func TestTriggerRunWhilePassRunning(t *testing.T) {
	starter := &fakeStarter{err: runs.ErrPassInProgress}
	router := newTestRouter(&fakeCatalog{}, &fakeRunStore{}, starter)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/runs/", nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetRunWithOutcomes(t *testing.T) {
	runStore := &fakeRunStore{
		run: &database.Run{ID: "run-1", Status: database.RunStatusCompleted, Processed: 2, Updated: 1, Skipped: 1},
		outcomes: []database.RunOutcome{
			{ProductName: "Milk 2L", Status: "updated", Price: 3.20},
			{ProductName: "Bread", Status: "skipped", Reason: "no_match"},
		},
	}
	router := newTestRouter(&fakeCatalog{}, runStore, &fakeStarter{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/run-1", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp RunDetailResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "run-1", resp.ID)
	assert.Len(t, resp.Outcomes, 2)
}

func TestGetRunNotFound(t *testing.T) {
	router := newTestRouter(&fakeCatalog{}, &fakeRunStore{}, &fakeStarter{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
