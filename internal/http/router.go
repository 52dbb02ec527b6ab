package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"go.ngs.io/thermosat/internal/usecase"
)

// SetupRouter creates and configures the Gin router exposing the four core
// operations (spec.md §6).
func SetupRouter(solverUC *usecase.SolverUseCase, allowedOrigins []string) *gin.Engine {
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	if len(allowedOrigins) > 0 {
		corsConfig.AllowOrigins = allowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	handler := NewHandler(solverUC)

	v1 := router.Group("/v1")
	{
		v1.POST("/run/transient", handler.RunTransient)
		v1.POST("/run/steady-state", handler.RunSteadyState)
		v1.POST("/run/sensitivity", handler.RunSensitivity)
		v1.POST("/run/failure-sweep", handler.RunFailureSweep)
	}

	router.GET("/healthz", handler.HealthCheck)

	return router
}
