// Package api exposes the insight engine over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nimb-ou/peer-review-system/internal/models"
	"github.com/nimb-ou/peer-review-system/internal/utils"
)

// InsightAPI is the service surface the HTTP layer depends on.
type InsightAPI interface {
	Train(ctx context.Context, req models.TrainingRequest) (models.TrainingReport, error)
	Insight(ctx context.Context, employeeID string, days int) (models.EmployeeInsight, error)
	Archetypes(ctx context.Context) ([]models.ArchetypeProfile, error)
}

// NewRouter wires the REST routes. Error responses distinguish an empty data
// window from a system failure so dashboards can render an informative empty
// state instead of a crash.
func NewRouter(logger *slog.Logger, svc InsightAPI) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	v1.POST("/train", func(c *gin.Context) {
		var req models.TrainingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorBody("bad_request", err))
			return
		}

		report, err := svc.Train(c.Request.Context(), req)
		if err != nil {
			if errors.Is(err, utils.ErrInsufficientData) {
				c.JSON(http.StatusUnprocessableEntity, errorBody("insufficient_data", err))
				return
			}
			logger.Error("train request failed", slog.Any("error", err))
			c.JSON(http.StatusInternalServerError, errorBody("internal_error", err))
			return
		}
		c.JSON(http.StatusOK, report)
	})

	v1.GET("/employees/:id/insight", func(c *gin.Context) {
		employeeID := c.Param("id")
		days := 0
		if raw := c.Query("days"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				c.JSON(http.StatusBadRequest, errorBody("bad_request", errors.New("days must be a positive integer")))
				return
			}
			days = parsed
		}

		insight, err := svc.Insight(c.Request.Context(), employeeID, days)
		if err != nil {
			if errors.Is(err, utils.ErrNoData) {
				c.JSON(http.StatusNotFound, errorBody("no_data", err))
				return
			}
			logger.Error("insight request failed", slog.Any("error", err))
			c.JSON(http.StatusInternalServerError, errorBody("internal_error", err))
			return
		}
		c.JSON(http.StatusOK, insight)
	})

	v1.GET("/archetypes", func(c *gin.Context) {
		profiles, err := svc.Archetypes(c.Request.Context())
		if err != nil {
			if errors.Is(err, utils.ErrNoData) {
				c.JSON(http.StatusNotFound, errorBody("no_data", err))
				return
			}
			logger.Error("archetypes request failed", slog.Any("error", err))
			c.JSON(http.StatusInternalServerError, errorBody("internal_error", err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"archetypes": profiles})
	})

	return router
}

func errorBody(code string, err error) gin.H {
	return gin.H{"code": code, "error": err.Error()}
}
