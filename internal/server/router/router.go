package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/nogal/internal/server/handlers"
)

// Handlers groups the HTTP handler adapters served by the API.
type Handlers struct {
	Farm         *handlers.FarmHandler
	Estimation   *handlers.EstimationHandler
	Reporting    *handlers.ReportingHandler
	Registration *handlers.RegistrationHandler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")

	api.GET("/projects", h.Farm.ListProjects)
	api.POST("/projects", h.Farm.CreateProject)

	project := api.Group("/projects/:projectID")
	project.GET("", h.Farm.GetProject)
	project.GET("/montes", h.Farm.ListMontes)
	project.POST("/montes", h.Farm.CreateMonte)
	project.GET("/montes/:monteID/deviation", h.Estimation.PlotDeviation)
	project.GET("/campaigns", h.Farm.ListCampaigns)
	project.POST("/campaigns", h.Farm.CreateCampaign)
	project.GET("/campaigns/:campaignID/dashboard", h.Reporting.Dashboard)
	project.POST("/campaigns/:campaignID/snapshots", h.Reporting.CreateSnapshot)
	project.GET("/costs", h.Farm.ListCosts)
	project.POST("/costs", h.Farm.CreateCost)
	project.GET("/investments", h.Farm.ListInvestments)
	project.POST("/investments", h.Farm.CreateInvestment)
	project.GET("/yield-model", h.Estimation.GetYieldModel)
	project.PUT("/yield-model", h.Estimation.PutYieldModel)
	project.POST("/yield-model/ages", h.Estimation.AppendYieldAge)
	project.GET("/evolution", h.Estimation.Evolution)
	project.GET("/evolution.xlsx", h.Estimation.EvolutionXLSX)
	project.GET("/estimates/:year", h.Estimation.CampaignEstimate)
	project.GET("/summary", h.Reporting.Summary)
	project.GET("/snapshots", h.Reporting.ListSnapshots)

	api.PUT("/montes/:monteID", h.Farm.UpdateMonte)
	api.DELETE("/montes/:monteID", h.Farm.DeleteMonte)
	api.PUT("/campaigns/:campaignID", h.Farm.UpdateCampaign)
	api.GET("/campaigns/:campaignID/productions", h.Registration.Productions)
	api.DELETE("/costs/:id", h.Farm.DeleteCost)
	api.DELETE("/investments/:id", h.Farm.DeleteInvestment)

	api.POST("/productions/batch", h.Registration.CreateProductions)
	api.POST("/productions/batch-delete", h.Registration.DeleteProductions)
	api.POST("/allocate", h.Registration.Allocate)

	api.POST("/wizards", h.Registration.StartWizard)
	api.GET("/wizards/:id", h.Registration.GetWizard)
	api.PATCH("/wizards/:id", h.Registration.UpdateWizard)
	api.POST("/wizards/:id/next", h.Registration.NextStep)
	api.POST("/wizards/:id/back", h.Registration.PreviousStep)
	api.POST("/wizards/:id/submit", h.Registration.SubmitWizard)

	api.POST("/notifications", h.Reporting.SendMessage)

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
