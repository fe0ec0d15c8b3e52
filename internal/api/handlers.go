package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/grocerytrack/grocery-price-tracker/internal/database"
	"github.com/grocerytrack/grocery-price-tracker/internal/models"
	"github.com/grocerytrack/grocery-price-tracker/internal/runs"
)

// CatalogStore is the catalog surface the API needs.
type CatalogStore interface {
	ListEntries(ctx context.Context) ([]models.CatalogEntry, error)
	GetEntry(ctx context.Context, productName string) (*models.CatalogEntry, error)
	AddProduct(ctx context.Context, entry models.CatalogEntry) error
	PriceHistory(ctx context.Context, productName string, limit int) ([]database.PricePoint, error)
}

// RunStore is the run-history surface the API needs.
type RunStore interface {
	GetRun(ctx context.Context, runID string) (*database.Run, error)
	ListRuns(ctx context.Context, limit int) ([]*database.Run, error)
	GetRunOutcomes(ctx context.Context, runID string) ([]database.RunOutcome, error)
}

// PassStarter triggers a background price-update pass.
type PassStarter interface {
	StartPass(ctx context.Context) (*database.Run, error)
}

type Handlers struct {
	catalog CatalogStore
	runs    RunStore
	passes  PassStarter
	// baseCtx outlives individual requests so a triggered pass is not
	// cancelled when the triggering request completes.
	baseCtx context.Context
	logger  *slog.Logger
}

func NewHandlers(catalog CatalogStore, runStore RunStore, passes PassStarter, baseCtx context.Context, logger *slog.Logger) *Handlers {
	return &Handlers{
		catalog: catalog,
		runs:    runStore,
		passes:  passes,
		baseCtx: baseCtx,
		logger:  logger.With("component", "api"),
	}
}

// Routes mounts all API endpoints on a router.
func (h *Handlers) Routes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Post("/", h.AddProduct)
		r.Get("/{productName}", h.GetProduct)
		r.Get("/{productName}/history", h.GetPriceHistory)
	})

	r.Route("/runs", func(r chi.Router) {
		r.Post("/", h.TriggerRun)
		r.Get("/", h.ListRuns)
		r.Get("/{runID}", h.GetRun)
	})
}

func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	entries, err := h.catalog.ListEntries(r.Context())
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	if entries == nil {
		entries = []models.CatalogEntry{}
	}

	h.respondJSON(w, http.StatusOK, entries)
}

// AddProductRequest mirrors the catalog columns a client may set.
type AddProductRequest struct {
	ProductName   string  `json:"product_name"`
	Category      string  `json:"category"`
	SearchKeyword string  `json:"search_keyword"`
	TargetSize    float64 `json:"target_size"`
	BrandType     string  `json:"brand_type"`
}

func (h *Handlers) AddProduct(w http.ResponseWriter, r *http.Request) {
	var req AddProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry := models.CatalogEntry{
		ProductName:   strings.TrimSpace(req.ProductName),
		Category:      req.Category,
		SearchKeyword: req.SearchKeyword,
		TargetSize:    req.TargetSize,
		BrandType:     models.ParseBrandType(req.BrandType),
	}

	if problems := entry.Validate(); len(problems) > 0 {
		h.respondError(w, http.StatusBadRequest, strings.Join(problems, "; "))
		return
	}

	if err := h.catalog.AddProduct(r.Context(), entry); err != nil {
		if errors.Is(err, database.ErrProductExists) {
			h.respondError(w, http.StatusConflict, "product already exists")
			return
		}
		h.logger.Error("failed to add product", "product", entry.ProductName, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to add product")
		return
	}

	h.respondJSON(w, http.StatusCreated, entry)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	productName := chi.URLParam(r, "productName")

	entry, err := h.catalog.GetEntry(r.Context(), productName)
	if err != nil {
		if errors.Is(err, database.ErrProductNotFound) {
			h.respondError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("failed to get product", "product", productName, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get product")
		return
	}

	h.respondJSON(w, http.StatusOK, entry)
}

func (h *Handlers) GetPriceHistory(w http.ResponseWriter, r *http.Request) {
	productName := chi.URLParam(r, "productName")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	points, err := h.catalog.PriceHistory(r.Context(), productName, limit)
	if err != nil {
		h.logger.Error("failed to get price history", "product", productName, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get price history")
		return
	}

	if points == nil {
		points = []database.PricePoint{}
	}

	h.respondJSON(w, http.StatusOK, points)
}

// TriggerRunResponse is returned when a pass is accepted.
type TriggerRunResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

func (h *Handlers) TriggerRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.passes.StartPass(h.baseCtx)
	if err != nil {
		if errors.Is(err, runs.ErrPassInProgress) {
			h.respondError(w, http.StatusConflict, "a pass is already running")
			return
		}
		h.logger.Error("failed to start pass", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to start pass")
		return
	}

	h.respondJSON(w, http.StatusAccepted, TriggerRunResponse{
		RunID:  run.ID,
		Status: string(run.Status),
	})
}

func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	runList, err := h.runs.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list runs", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	if runList == nil {
		runList = []*database.Run{}
	}

	h.respondJSON(w, http.StatusOK, runList)
}

// RunDetailResponse is a run with its per-entry outcomes.
type RunDetailResponse struct {
	*database.Run
	Outcomes []database.RunOutcome `json:"outcomes"`
}

func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	run, err := h.runs.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, database.ErrRunNotFound) {
			h.respondError(w, http.StatusNotFound, "run not found")
			return
		}
		h.logger.Error("failed to get run", "run_id", runID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	outcomes, err := h.runs.GetRunOutcomes(r.Context(), runID)
	if err != nil {
		h.logger.Error("failed to get run outcomes", "run_id", runID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get run outcomes")
		return
	}

	if outcomes == nil {
		outcomes = []database.RunOutcome{}
	}

	h.respondJSON(w, http.StatusOK, RunDetailResponse{Run: run, Outcomes: outcomes})
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
