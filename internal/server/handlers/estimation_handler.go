package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/nogal/internal/domain/models"
	"github.com/mamadbah2/nogal/internal/export"
	"github.com/mamadbah2/nogal/internal/repository"
	"github.com/mamadbah2/nogal/internal/service/estimation"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// EstimationService computes yield estimates and deviations.
type EstimationService interface {
	YieldModel(ctx context.Context, projectID, variety string) (*models.YieldModel, error)
	SaveYieldModel(ctx context.Context, projectID, variety string, curve []models.YieldCurvePoint) (*models.YieldModel, error)
	AppendYieldAge(ctx context.Context, projectID, variety string, kg float64) (*models.YieldModel, error)
	Evolution(ctx context.Context, projectID string) (*estimation.EvolutionMatrix, error)
	CampaignEstimate(ctx context.Context, projectID string, year int) (*estimation.CampaignEstimate, error)
	PlotDeviation(ctx context.Context, projectID, monteID, campaignID string) (*estimation.PlotDeviation, error)
}

// EstimationHandler serves yield curves, estimates and the evolution matrix.
type EstimationHandler struct {
	svc    EstimationService
	logger *zap.Logger
}

// NewEstimationHandler constructs the HTTP handler adapter.
func NewEstimationHandler(svc EstimationService, logger *zap.Logger) *EstimationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EstimationHandler{svc: svc, logger: logger}
}

type curveRequest struct {
	Curve []models.YieldCurvePoint `json:"curve" binding:"required"`
}

type appendAgeRequest struct {
	Kg float64 `json:"kg" binding:"gte=0"`
}

// GetYieldModel returns the curve of a project, or the default one.
func (h *EstimationHandler) GetYieldModel(c *gin.Context) {
	model, err := h.svc.YieldModel(c.Request.Context(), c.Param("projectID"), c.Query("variety"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, model)
}

// PutYieldModel replaces the curve of a project.
func (h *EstimationHandler) PutYieldModel(c *gin.Context) {
	var req curveRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	model, err := h.svc.SaveYieldModel(c.Request.Context(), c.Param("projectID"), c.Query("variety"), req.Curve)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, model)
}

// AppendYieldAge adds a row past the oldest age of the curve.
func (h *EstimationHandler) AppendYieldAge(c *gin.Context) {
	var req appendAgeRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	model, err := h.svc.AppendYieldAge(c.Request.Context(), c.Param("projectID"), c.Query("variety"), req.Kg)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, model)
}

// Evolution returns the plots × campaigns matrix.
func (h *EstimationHandler) Evolution(c *gin.Context) {
	matrix, err := h.svc.Evolution(c.Request.Context(), c.Param("projectID"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, matrix)
}

// EvolutionXLSX downloads the evolution matrix as a workbook.
func (h *EstimationHandler) EvolutionXLSX(c *gin.Context) {
	projectID := c.Param("projectID")
	matrix, err := h.svc.Evolution(c.Request.Context(), projectID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteEvolution(&buf, matrix); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="evolucion-%s.xlsx"`, projectID))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// CampaignEstimate returns the expected production of a campaign year.
func (h *EstimationHandler) CampaignEstimate(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		respondError(c, h.logger, fmt.Errorf("%w: year %q", repository.ErrInvalidInput, c.Param("year")))
		return
	}

	estimate, err := h.svc.CampaignEstimate(c.Request.Context(), c.Param("projectID"), year)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, estimate)
}

// PlotDeviation compares one plot against its estimate in a campaign.
func (h *EstimationHandler) PlotDeviation(c *gin.Context) {
	campaignID := c.Query("campaign_id")
	if campaignID == "" {
		respondError(c, h.logger, fmt.Errorf("%w: campaign_id is required", repository.ErrInvalidInput))
		return
	}

	deviation, err := h.svc.PlotDeviation(c.Request.Context(), c.Param("projectID"), c.Param("monteID"), campaignID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, deviation)
}
