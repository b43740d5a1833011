package apihandlers

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	mw "github.com/joannku/unity-scheduler/pkg/apihelpers/middlewares"
	jwthandling "github.com/joannku/unity-scheduler/pkg/jwt-handling"
)

func (h *HttpEndpoints) AddAuthAPI(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	auth.POST("/login", mw.RequirePayload(), h.login)
	auth.GET("/renew-token", mw.GetAndValidateExperimenterJWT(h.tokenSignKey), h.renewToken)
}

// LoginRequest is the request body for the login endpoint
type LoginRequest struct {
	ExperimenterID string `json:"experimenterId"`
	Passcode       string `json:"passcode"`
}

// login exchanges an experimenter passcode for a signed token
func (h *HttpEndpoints) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("login: bad payload", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.ExperimenterID == "" || req.Passcode == "" {
		slog.Warn("login: missing credentials")
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing credentials"})
		return
	}

	expected, ok := h.passcodes[req.ExperimenterID]
	if !ok || subtle.ConstantTimeCompare([]byte(expected), []byte(req.Passcode)) != 1 {
		slog.Warn("login: invalid credentials", slog.String("experimenterID", req.ExperimenterID))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := jwthandling.GenerateNewExperimenterToken(h.tokenExpiresIn, req.ExperimenterID, h.tokenSignKey)
	if err != nil {
		slog.Error("login: error generating token", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	slog.Info("experimenter logged in", slog.String("experimenterID", req.ExperimenterID))
	c.JSON(http.StatusOK, gin.H{
		"accessToken": token,
		"expiresAt":   time.Now().Add(h.tokenExpiresIn).Unix(),
	})
}

// renewToken issues a fresh token for a still-valid session
func (h *HttpEndpoints) renewToken(c *gin.Context) {
	token := c.MustGet("validatedToken").(*jwthandling.ExperimenterClaims)

	newToken, err := jwthandling.GenerateNewExperimenterToken(h.tokenExpiresIn, token.ExperimenterID, h.tokenSignKey)
	if err != nil {
		slog.Error("renewToken: error generating token", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accessToken": newToken,
		"expiresAt":   time.Now().Add(h.tokenExpiresIn).Unix(),
	})
}
