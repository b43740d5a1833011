package apihandlers

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	mw "github.com/joannku/unity-scheduler/pkg/apihelpers/middlewares"
	"github.com/joannku/unity-scheduler/pkg/store"
)

func (h *HttpEndpoints) AddTemplateManagementAPI(rg *gin.RouterGroup) {
	templates := rg.Group("/templates")
	templates.Use(mw.GetAndValidateExperimenterJWT(h.tokenSignKey))

	templates.GET("", h.getAllTemplates)
	templates.GET("/:emailCode", h.getTemplate)
	templates.PUT("", mw.RequirePayload(), h.saveTemplates)
}

func (h *HttpEndpoints) getAllTemplates(c *gin.Context) {
	catalog, err := h.storeService.LoadEditedTemplates()
	if err != nil {
		slog.Error("getAllTemplates: error loading templates", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	codes := make([]string, 0, len(catalog))
	for code := range catalog {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	templates := make([]store.EmailTemplate, 0, len(codes))
	for _, code := range codes {
		templates = append(templates, catalog[code])
	}
	c.JSON(http.StatusOK, gin.H{"templates": templates})
}

func (h *HttpEndpoints) getTemplate(c *gin.Context) {
	code := c.Param("emailCode")

	catalog, err := h.storeService.LoadEditedTemplates()
	if err != nil {
		slog.Error("getTemplate: error loading templates", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	template, ok := catalog[code]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"template": template})
}

// SaveTemplatesRequest replaces the full edited template catalog. The next
// scheduler run picks the changes up through reconciliation.
type SaveTemplatesRequest struct {
	Templates []store.EmailTemplate `json:"templates"`
}

func (h *HttpEndpoints) saveTemplates(c *gin.Context) {
	var req SaveTemplatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("saveTemplates: bad payload", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(req.Templates) < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no templates in payload"})
		return
	}

	seen := map[string]bool{}
	for _, template := range req.Templates {
		if template.EmailCode == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "template without email code"})
			return
		}
		if seen[template.EmailCode] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "duplicated email code: " + template.EmailCode})
			return
		}
		seen[template.EmailCode] = true
	}

	if err := h.storeService.SaveEditedTemplates(req.Templates); err != nil {
		slog.Error("saveTemplates: error writing templates", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	slog.Info("email templates saved",
		slog.Int("count", len(req.Templates)),
		slog.String("experimenterID", experimenterID(c)),
	)
	c.JSON(http.StatusOK, gin.H{"saved": len(req.Templates)})
}
