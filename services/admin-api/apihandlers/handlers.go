package apihandlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joannku/unity-scheduler/pkg/scheduling"
	"github.com/joannku/unity-scheduler/pkg/store"
)

func HealthCheckHandle(c *gin.Context) {
	serviceInfos := make(map[string]interface{})
	infos, err := os.ReadFile("serviceInfos.json")
	if err != nil {
		slog.Debug("Error reading serviceInfos.json", slog.String("error", err.Error()))
	} else {
		err = json.Unmarshal(infos, &serviceInfos)
		if err != nil {
			slog.Debug("Error unmarshalling serviceInfos.json", slog.String("error", err.Error()))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"serviceInfos": serviceInfos,
	})
}

type HttpEndpoints struct {
	storeService     *store.StoreService
	schedulerService *scheduling.Scheduler
	tokenSignKey     string
	tokenExpiresIn   time.Duration
	passcodes        map[string]string
	apiKeys          []string
}

func NewHTTPHandler(
	tokenSignKey string,
	tokenExpiresIn time.Duration,
	storeService *store.StoreService,
	schedulerService *scheduling.Scheduler,
	passcodes map[string]string,
	apiKeys []string,
) *HttpEndpoints {
	return &HttpEndpoints{
		storeService:     storeService,
		schedulerService: schedulerService,
		tokenSignKey:     tokenSignKey,
		tokenExpiresIn:   tokenExpiresIn,
		passcodes:        passcodes,
		apiKeys:          apiKeys,
	}
}
