package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/nogal/internal/domain/models"
	"github.com/mamadbah2/nogal/internal/domain/wizard"
	"github.com/mamadbah2/nogal/internal/service/registration"
)

// RegistrationService runs the registration wizards and production writes.
type RegistrationService interface {
	Start(ctx context.Context, projectID string, kind wizard.Kind) (*wizard.Wizard, error)
	Get(id string) (*wizard.Wizard, error)
	Update(ctx context.Context, id string, p registration.Patch) (*wizard.Wizard, error)
	Next(id string) (*wizard.Wizard, error)
	Back(id string) (*wizard.Wizard, error)
	Submit(ctx context.Context, id string) (*registration.Submission, error)
	Productions(ctx context.Context, campaignID string) ([]models.ProductionRecord, error)
	CreateProductions(ctx context.Context, records []models.ProductionRecord) (<-chan error, error)
	DeleteProductions(ctx context.Context, campaignID string, ids []string) (<-chan error, error)
	Allocate(ctx context.Context, projectID string, totalWeight float64, selectedIDs []string) (map[string]int64, error)
}

// RegistrationHandler serves wizards, production batches and the allocator.
//
// Writes are optimistic: they answer 202 as soon as the local state changed.
// With ?wait=true the handler waits for the upstream write and answers 201,
// or the upstream error after the local change was rolled back.
type RegistrationHandler struct {
	svc    RegistrationService
	logger *zap.Logger
}

// NewRegistrationHandler constructs the HTTP handler adapter.
func NewRegistrationHandler(svc RegistrationService, logger *zap.Logger) *RegistrationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationHandler{svc: svc, logger: logger}
}

type startWizardRequest struct {
	ProjectID string      `json:"project_id" binding:"required"`
	Kind      wizard.Kind `json:"kind" binding:"required"`
}

type wizardResponse struct {
	*wizard.Wizard
	Step       int  `json:"step"`
	CanProceed bool `json:"can_proceed"`
}

func newWizardResponse(w *wizard.Wizard) wizardResponse {
	return wizardResponse{Wizard: w, Step: w.Step(), CanProceed: w.CanProceed(w.State)}
}

type batchCreateRequest struct {
	Records []models.ProductionRecord `json:"records" binding:"required,min=1"`
}

type batchDeleteRequest struct {
	CampaignID string   `json:"campaign_id" binding:"required"`
	IDs        []string `json:"ids" binding:"required,min=1"`
}

type allocateRequest struct {
	ProjectID        string   `json:"project_id" binding:"required"`
	TotalWeight      float64  `json:"total_weight" binding:"gte=0"`
	SelectedMonteIDs []string `json:"selected_monte_ids"`
}

// StartWizard opens a wizard.
func (h *RegistrationHandler) StartWizard(c *gin.Context) {
	var req startWizardRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	w, err := h.svc.Start(c.Request.Context(), req.ProjectID, req.Kind)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, newWizardResponse(w))
}

// GetWizard returns a wizard in progress.
func (h *RegistrationHandler) GetWizard(c *gin.Context) {
	w, err := h.svc.Get(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, newWizardResponse(w))
}

// UpdateWizard edits the current step.
func (h *RegistrationHandler) UpdateWizard(c *gin.Context) {
	var patch registration.Patch
	if !bindJSON(c, h.logger, &patch) {
		return
	}

	w, err := h.svc.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, newWizardResponse(w))
}

// NextStep moves a wizard forward.
func (h *RegistrationHandler) NextStep(c *gin.Context) {
	h.move(c, h.svc.Next)
}

// PreviousStep moves a wizard backward.
func (h *RegistrationHandler) PreviousStep(c *gin.Context) {
	h.move(c, h.svc.Back)
}

func (h *RegistrationHandler) move(c *gin.Context, step func(string) (*wizard.Wizard, error)) {
	w, err := step(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, newWizardResponse(w))
}

// SubmitWizard confirms a wizard at the review step.
func (h *RegistrationHandler) SubmitWizard(c *gin.Context) {
	sub, err := h.svc.Submit(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.respondWrite(c, sub.Done, sub)
}

// Productions returns the records of a campaign.
func (h *RegistrationHandler) Productions(c *gin.Context) {
	records, err := h.svc.Productions(c.Request.Context(), c.Param("campaignID"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// CreateProductions adds production records of one campaign.
func (h *RegistrationHandler) CreateProductions(c *gin.Context) {
	var req batchCreateRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	done, err := h.svc.CreateProductions(c.Request.Context(), req.Records)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.respondWrite(c, done, gin.H{"records": req.Records})
}

// DeleteProductions removes production records of one campaign.
func (h *RegistrationHandler) DeleteProductions(c *gin.Context) {
	var req batchDeleteRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	done, err := h.svc.DeleteProductions(c.Request.Context(), req.CampaignID, req.IDs)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.respondWrite(c, done, gin.H{"deleted": req.IDs})
}

// Allocate previews the split of a bulk harvest weight.
func (h *RegistrationHandler) Allocate(c *gin.Context) {
	var req allocateRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	allocations, err := h.svc.Allocate(c.Request.Context(), req.ProjectID, req.TotalWeight, req.SelectedMonteIDs)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var total int64
	for _, kg := range allocations {
		total += kg
	}
	c.JSON(http.StatusOK, gin.H{"allocations": allocations, "allocated_kg": total})
}

func (h *RegistrationHandler) respondWrite(c *gin.Context, done <-chan error, body any) {
	if c.Query("wait") != "true" {
		c.JSON(http.StatusAccepted, body)
		return
	}

	select {
	case err := <-done:
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusCreated, body)
	case <-c.Request.Context().Done():
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "write still pending"})
	}
}
