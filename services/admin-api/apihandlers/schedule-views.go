package apihandlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	mw "github.com/joannku/unity-scheduler/pkg/apihelpers/middlewares"
	"github.com/joannku/unity-scheduler/pkg/store"
)

func (h *HttpEndpoints) AddScheduleAPI(rg *gin.RouterGroup) {
	schedules := rg.Group("/schedules")
	schedules.Use(mw.GetAndValidateExperimenterJWT(h.tokenSignKey))
	schedules.GET("", h.getEmailSchedule)
	schedules.GET("/log", h.getEmailLog)

	// For the cron wrapper, not for interactive use.
	rg.POST("/reconcile", mw.HasValidAPIKey(h.apiKeys), h.triggerReconcile)
}

func (h *HttpEndpoints) getEmailSchedule(c *gin.Context) {
	entries, err := h.storeService.LoadSchedule()
	if err != nil {
		slog.Error("getEmailSchedule: error loading schedule", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	pid := c.Query("participantID")
	if pid != "" {
		filtered := make([]store.ScheduleEntry, 0, len(entries))
		for _, entry := range entries {
			if entry.ParticipantID == pid {
				filtered = append(filtered, entry)
			}
		}
		entries = filtered
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *HttpEndpoints) getEmailLog(c *gin.Context) {
	log, err := h.storeService.LoadReceipts()
	if err != nil {
		slog.Error("getEmailLog: error loading email log", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	pid := c.Query("participantID")
	receipts := log.Receipts
	if pid != "" {
		filtered := make([]store.Receipt, 0, len(receipts))
		for _, receipt := range receipts {
			if receipt.ParticipantID == pid {
				filtered = append(filtered, receipt)
			}
		}
		receipts = filtered
	}
	c.JSON(http.StatusOK, gin.H{"receipts": receipts})
}

// triggerReconcile applies externally edited copies of the visit schedule and
// templates and regenerates the affected email schedules.
func (h *HttpEndpoints) triggerReconcile(c *gin.Context) {
	if err := h.schedulerService.ReconcileChanges(); err != nil {
		slog.Error("triggerReconcile: reconciliation failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	missing, err := h.schedulerService.MissingSchedules()
	if err != nil {
		slog.Error("triggerReconcile: error looking up missing schedules", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(missing) > 0 {
		if err := h.schedulerService.Synthesize(missing); err != nil {
			slog.Error("triggerReconcile: error synthesizing schedules", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	slog.Info("reconciliation triggered via API", slog.Int("newSchedules", len(missing)))
	c.JSON(http.StatusOK, gin.H{"newSchedules": len(missing)})
}
