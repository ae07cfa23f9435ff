package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/nogal/internal/domain/models"
	"github.com/mamadbah2/nogal/internal/service/notify"
	"github.com/mamadbah2/nogal/internal/service/reporting"
)

const defaultSnapshotLimit = 20

// ReportingService builds dashboards and campaign snapshots.
type ReportingService interface {
	CampaignDashboard(ctx context.Context, projectID, campaignID string) (*reporting.Dashboard, error)
	WeeklySummary(ctx context.Context, projectID string) (string, error)
	CreateSnapshot(ctx context.Context, projectID, campaignID string) (*models.CampaignSnapshot, error)
	ListSnapshots(ctx context.Context, projectID string, limit int) ([]models.CampaignSnapshot, error)
}

// ReportingHandler serves dashboards, snapshots and outbound notifications.
type ReportingHandler struct {
	svc      ReportingService
	notifier notify.Notifier
	logger   *zap.Logger
}

// NewReportingHandler constructs the HTTP handler adapter.
func NewReportingHandler(svc ReportingService, notifier notify.Notifier, logger *zap.Logger) *ReportingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportingHandler{svc: svc, notifier: notifier, logger: logger}
}

// Dashboard returns the figures of one campaign.
func (h *ReportingHandler) Dashboard(c *gin.Context) {
	d, err := h.svc.CampaignDashboard(c.Request.Context(), c.Param("projectID"), c.Param("campaignID"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// Summary returns the weekly text summary of the current campaign.
func (h *ReportingHandler) Summary(c *gin.Context) {
	text, err := h.svc.WeeklySummary(c.Request.Context(), c.Param("projectID"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": text})
}

// ListSnapshots returns the archived snapshots of a project, newest first.
func (h *ReportingHandler) ListSnapshots(c *gin.Context) {
	limit := defaultSnapshotLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	snapshots, err := h.svc.ListSnapshots(c.Request.Context(), c.Param("projectID"), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(snapshots))
}

// CreateSnapshot freezes the dashboard of a campaign.
func (h *ReportingHandler) CreateSnapshot(c *gin.Context) {
	snapshot, err := h.svc.CreateSnapshot(c.Request.Context(), c.Param("projectID"), c.Param("campaignID"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, snapshot)
}

// SendMessage pushes a manual notification.
func (h *ReportingHandler) SendMessage(c *gin.Context) {
	var req models.Notification
	if !bindJSON(c, h.logger, &req) {
		return
	}

	if err := h.notifier.Send(c.Request.Context(), req); err != nil {
		if errors.Is(err, notify.ErrNoRecipient) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("failed sending notification", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to send message"})
		return
	}

	c.Status(http.StatusAccepted)
}
