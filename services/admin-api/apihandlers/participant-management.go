package apihandlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"time"

	"github.com/gin-gonic/gin"

	mw "github.com/joannku/unity-scheduler/pkg/apihelpers/middlewares"
	"github.com/joannku/unity-scheduler/pkg/store"
)

func (h *HttpEndpoints) AddParticipantManagementAPI(rg *gin.RouterGroup) {
	participants := rg.Group("/participants")
	participants.Use(mw.GetAndValidateExperimenterJWT(h.tokenSignKey))

	participants.GET("", h.getAllParticipants)
	participants.GET("/:participantID", h.getParticipant)
	participants.POST("", mw.RequirePayload(), h.registerParticipant)
	participants.PUT("/:participantID", mw.RequirePayload(), h.updateParticipant)
}

// ParticipantRequest is the request body for registering or updating a
// participant. Follow-up visit dates are derived from the second visit.
type ParticipantRequest struct {
	ParticipantID string `json:"participantId"`
	Active        *bool  `json:"active"`
	Arm           string `json:"arm"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Email         string `json:"email"`

	V1Date string `json:"v1Date"`
	V1Time string `json:"v1Time"`
	V2Date string `json:"v2Date"`
	V2Time string `json:"v2Time"`
	V3Date string `json:"v3Date"`
	V3Time string `json:"v3Time"`
}

// Months after the second visit at which the four follow-up calls happen.
var followUpMonths = [4]int{1, 3, 6, 9}

func (r ParticipantRequest) validate() error {
	if r.ParticipantID == "" {
		return fmt.Errorf("missing participantId")
	}
	if r.Arm == "" {
		return fmt.Errorf("missing arm")
	}
	if r.FirstName == "" || r.LastName == "" {
		return fmt.Errorf("missing participant name")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return fmt.Errorf("invalid email address: %v", err)
	}

	dates := make([]time.Time, 0, 3)
	for _, d := range []string{r.V1Date, r.V2Date, r.V3Date} {
		if d == "" {
			return fmt.Errorf("visits 1 to 3 must all have a date")
		}
		parsed, err := time.Parse(store.DateLayout, d)
		if err != nil {
			return fmt.Errorf("invalid visit date %s: %v", d, err)
		}
		dates = append(dates, parsed)
	}
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return fmt.Errorf("visit dates must be in ascending order")
		}
	}

	for _, t := range []string{r.V1Time, r.V2Time, r.V3Time} {
		if t == "" {
			continue
		}
		if _, err := time.Parse(store.ClockLayout, t); err != nil {
			return fmt.Errorf("invalid visit time %s: %v", t, err)
		}
	}
	return nil
}

// toParticipant builds the store record, filling visits 4 to 7 with the
// follow-up call dates derived from the second visit.
func (r ParticipantRequest) toParticipant() (store.Participant, error) {
	p := store.Participant{
		ParticipantID: r.ParticipantID,
		Active:        true,
		Arm:           r.Arm,
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Email:         r.Email,
	}
	if r.Active != nil {
		p.Active = *r.Active
	}

	p.VisitDates[0], p.VisitTimes[0] = r.V1Date, r.V1Time
	p.VisitDates[1], p.VisitTimes[1] = r.V2Date, r.V2Time
	p.VisitDates[2], p.VisitTimes[2] = r.V3Date, r.V3Time

	v2, err := time.Parse(store.DateLayout, r.V2Date)
	if err != nil {
		return store.Participant{}, err
	}
	for i, months := range followUpMonths {
		p.VisitDates[3+i] = v2.AddDate(0, months, 0).Format(store.DateLayout)
		p.VisitTimes[3+i] = r.V2Time
	}
	return p, nil
}

func (h *HttpEndpoints) getAllParticipants(c *gin.Context) {
	table, err := h.storeService.LoadEditedParticipants()
	if err != nil {
		slog.Error("getAllParticipants: error loading participants", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	participants := make([]store.Participant, 0, len(table.Rows))
	for _, pid := range table.ParticipantIDs() {
		if p, ok := table.Find(pid); ok {
			participants = append(participants, p)
		}
	}
	c.JSON(http.StatusOK, gin.H{"participants": participants})
}

func (h *HttpEndpoints) getParticipant(c *gin.Context) {
	pid := c.Param("participantID")

	table, err := h.storeService.LoadEditedParticipants()
	if err != nil {
		slog.Error("getParticipant: error loading participants", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	p, ok := table.Find(pid)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "participant not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"participant": p})
}

func (h *HttpEndpoints) registerParticipant(c *gin.Context) {
	var req ParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("registerParticipant: bad payload", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := req.validate(); err != nil {
		slog.Warn("registerParticipant: invalid request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := req.toParticipant()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.storeService.AppendEditedParticipant(p); err != nil {
		slog.Error("registerParticipant: error saving participant", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token := experimenterID(c)
	slog.Info("participant registered",
		slog.String("participantID", p.ParticipantID),
		slog.String("experimenterID", token),
	)
	c.JSON(http.StatusCreated, gin.H{"participant": p})
}

func (h *HttpEndpoints) updateParticipant(c *gin.Context) {
	pid := c.Param("participantID")

	var req ParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("updateParticipant: bad payload", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.ParticipantID = pid

	if err := req.validate(); err != nil {
		slog.Warn("updateParticipant: invalid request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := req.toParticipant()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.storeService.UpdateEditedParticipant(p); err != nil {
		slog.Error("updateParticipant: error saving participant", slog.String("error", err.Error()))
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	slog.Info("participant updated",
		slog.String("participantID", pid),
		slog.String("experimenterID", experimenterID(c)),
	)
	c.JSON(http.StatusOK, gin.H{"participant": p})
}
