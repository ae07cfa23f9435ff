package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/nogal/internal/domain/models"
	"github.com/mamadbah2/nogal/internal/repository"
)

// FarmHandler serves the master data: projects, plots, campaigns and ledgers.
type FarmHandler struct {
	store  *repository.Store
	now    func() time.Time
	logger *zap.Logger
}

// NewFarmHandler constructs the HTTP handler adapter.
func NewFarmHandler(store *repository.Store, logger *zap.Logger) *FarmHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FarmHandler{store: store, now: time.Now, logger: logger}
}

type projectRequest struct {
	Name     string `json:"name" binding:"required"`
	Location string `json:"location"`
}

type monteRequest struct {
	Name         string  `json:"nombre" binding:"required"`
	Hectares     float64 `json:"hectareas" binding:"gte=0"`
	Density      float64 `json:"densidad" binding:"gte=0"`
	PlantingYear int     `json:"ano_plantacion" binding:"required,gte=1900"`
	Variety      string  `json:"variedad"`
}

type campaignRequest struct {
	Year            int             `json:"year" binding:"required,gte=1900"`
	AveragePrice    decimal.Decimal `json:"average_price"`
	TotalProduction float64         `json:"total_production" binding:"gte=0"`
	Status          string          `json:"status"`
}

type ledgerRequest struct {
	CampaignID  string        `json:"campaign_id" binding:"required"`
	Category    string        `json:"category" binding:"required"`
	Amount      models.Amount `json:"amount" binding:"gte=0"`
	Description string        `json:"description"`
	Date        *time.Time    `json:"date"`
}

// ListProjects returns every project.
func (h *FarmHandler) ListProjects(c *gin.Context) {
	projects, err := h.store.Projects.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(projects))
}

// CreateProject registers a project.
func (h *FarmHandler) CreateProject(c *gin.Context) {
	var req projectRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	proj := &models.Project{Name: strings.TrimSpace(req.Name), Location: req.Location, CreatedAt: h.now().UTC()}
	if err := h.store.Projects.Create(c.Request.Context(), proj); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, proj)
}

// GetProject returns one project.
func (h *FarmHandler) GetProject(c *gin.Context) {
	proj, err := h.store.Projects.Get(c.Request.Context(), c.Param("projectID"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, proj)
}

// ListMontes returns the plots of a project.
func (h *FarmHandler) ListMontes(c *gin.Context) {
	montes, err := h.store.Montes.ListByProject(c.Request.Context(), c.Param("projectID"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(montes))
}

// CreateMonte adds a plot to a project.
func (h *FarmHandler) CreateMonte(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := c.Param("projectID")

	var req monteRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	if err := h.requireProject(ctx, projectID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	monte := &models.Monte{ProjectID: projectID}
	req.apply(monte)
	if err := h.store.Montes.Create(ctx, monte); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, monte)
}

// UpdateMonte edits a plot.
func (h *FarmHandler) UpdateMonte(c *gin.Context) {
	ctx := c.Request.Context()

	var req monteRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	monte, err := h.store.Montes.Get(ctx, c.Param("monteID"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	req.apply(monte)
	if err := h.store.Montes.Update(ctx, monte); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, monte)
}

// DeleteMonte removes a plot and its production records.
func (h *FarmHandler) DeleteMonte(c *gin.Context) {
	if err := h.store.Montes.Delete(c.Request.Context(), c.Param("monteID")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r monteRequest) apply(m *models.Monte) {
	m.Name = strings.TrimSpace(r.Name)
	m.Hectares = r.Hectares
	m.Density = r.Density
	m.PlantingYear = r.PlantingYear
	m.Variety = r.Variety
}

// ListCampaigns returns the campaigns of a project by year.
func (h *FarmHandler) ListCampaigns(c *gin.Context) {
	campaigns, err := h.store.Campaigns.ListByProject(c.Request.Context(), c.Param("projectID"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(campaigns))
}

// CreateCampaign opens a campaign. A project has one campaign per year.
func (h *FarmHandler) CreateCampaign(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := c.Param("projectID")

	var req campaignRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	if err := h.requireProject(ctx, projectID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	existing, err := h.store.Campaigns.ListByProject(ctx, projectID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	for _, campaign := range existing {
		if campaign.Year == req.Year {
			respondError(c, h.logger, fmt.Errorf("%w: campaign %d already exists", repository.ErrInvalidInput, req.Year))
			return
		}
	}

	campaign := &models.Campaign{ProjectID: projectID}
	req.apply(campaign)
	if err := h.store.Campaigns.Create(ctx, campaign); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, campaign)
}

// UpdateCampaign edits price, production total and status of a campaign.
func (h *FarmHandler) UpdateCampaign(c *gin.Context) {
	ctx := c.Request.Context()

	var req campaignRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	campaign, err := h.store.Campaigns.Get(ctx, c.Param("campaignID"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	req.apply(campaign)
	if err := h.store.Campaigns.Update(ctx, campaign); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, campaign)
}

func (r campaignRequest) apply(campaign *models.Campaign) {
	campaign.Year = r.Year
	campaign.AveragePrice = r.AveragePrice
	campaign.TotalProduction = r.TotalProduction
	campaign.Status = r.Status
}

// ListCosts returns the costs of a project, optionally of one campaign.
func (h *FarmHandler) ListCosts(c *gin.Context) {
	costs, err := h.store.Costs.List(c.Request.Context(), c.Param("projectID"), c.Query("campaign_id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(costs))
}

// CreateCost books a cost.
func (h *FarmHandler) CreateCost(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := c.Param("projectID")

	var req ledgerRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	if err := h.requireCampaign(ctx, projectID, req.CampaignID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	cost := &models.Cost{
		ProjectID:   projectID,
		CampaignID:  req.CampaignID,
		Category:    strings.TrimSpace(req.Category),
		Amount:      req.Amount,
		Description: req.Description,
		Date:        h.date(req.Date),
	}
	if err := h.store.Costs.Create(ctx, cost); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, cost)
}

// DeleteCost removes a cost.
func (h *FarmHandler) DeleteCost(c *gin.Context) {
	if err := h.store.Costs.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListInvestments returns the investments of a project, optionally of one campaign.
func (h *FarmHandler) ListInvestments(c *gin.Context) {
	investments, err := h.store.Investments.List(c.Request.Context(), c.Param("projectID"), c.Query("campaign_id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(investments))
}

// CreateInvestment books an investment.
func (h *FarmHandler) CreateInvestment(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := c.Param("projectID")

	var req ledgerRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	if err := h.requireCampaign(ctx, projectID, req.CampaignID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	inv := &models.Investment{
		ProjectID:   projectID,
		CampaignID:  req.CampaignID,
		Category:    strings.TrimSpace(req.Category),
		Amount:      req.Amount,
		Description: req.Description,
		Date:        h.date(req.Date),
	}
	if err := h.store.Investments.Create(ctx, inv); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

// DeleteInvestment removes an investment.
func (h *FarmHandler) DeleteInvestment(c *gin.Context) {
	if err := h.store.Investments.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *FarmHandler) date(d *time.Time) time.Time {
	if d == nil || d.IsZero() {
		return h.now().UTC()
	}
	return d.UTC()
}

func (h *FarmHandler) requireProject(ctx context.Context, projectID string) error {
	if _, err := h.store.Projects.Get(ctx, projectID); err != nil {
		return fmt.Errorf("load project: %w", err)
	}
	return nil
}

func (h *FarmHandler) requireCampaign(ctx context.Context, projectID, campaignID string) error {
	campaign, err := h.store.Campaigns.Get(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("load campaign: %w", err)
	}
	if campaign.ProjectID != projectID {
		return fmt.Errorf("load campaign %s: %w", campaignID, repository.ErrNotFound)
	}
	return nil
}

// nonNil makes empty lists encode as [] instead of null.
func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
