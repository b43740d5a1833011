package main

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/joannku/unity-scheduler/pkg/apihelpers"
	"github.com/joannku/unity-scheduler/services/admin-api/apihandlers"
)

func main() {

	// Start webserver
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     conf.GinConfig.AllowOrigins,
		AllowMethods:     []string{"POST", "GET", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "Content-Length", "Api-Key"},
		ExposeHeaders:    []string{"Authorization", "Content-Type", "Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Add handlers
	router.GET("/", apihandlers.HealthCheckHandle)
	v1Root := router.Group("/v1")

	v1APIHandlers := apihandlers.NewHTTPHandler(
		conf.ExperimenterJWTSignKey,
		tokenExpiresIn,
		storeService,
		schedulerService,
		conf.ExperimenterPasscodes,
		conf.APIKeys,
	)
	v1APIHandlers.AddAuthAPI(v1Root)
	v1APIHandlers.AddParticipantManagementAPI(v1Root)
	v1APIHandlers.AddTemplateManagementAPI(v1Root)
	v1APIHandlers.AddScheduleAPI(v1Root)

	if conf.GinConfig.DebugMode {
		apihelpers.WriteRoutesToFile(router, "admin-api-routes.txt")
	}

	// Start the server
	slog.Info("Starting Admin API", slog.String("port", conf.GinConfig.Port))
	err := router.Run(":" + conf.GinConfig.Port)
	if err != nil {
		slog.Error("Exited Admin API", slog.String("error", err.Error()))
		return
	}
}
