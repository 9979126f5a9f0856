package routes

import (
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"github.com/rm-hull/fuel-price-dashboard/internal/dashboard"
	"github.com/rm-hull/fuel-price-dashboard/internal/models"
)

const errInternal = "An internal server error occurred"

type addStationRequest struct {
	Id string `json:"id" binding:"required"`
}

type fuelTypesRequest struct {
	Fuels []string `json:"fuels" binding:"required"`
}

type windowRequest struct {
	Window string `json:"window" binding:"required"`
}

type zoomRequest struct {
	Start time.Time `json:"start" binding:"required"`
	End   time.Time `json:"end" binding:"required"`
}

// Register mounts the dashboard endpoints on the group.
func Register(group *gin.RouterGroup, controller *dashboard.Controller) {
	group.GET("/stations/search", Search(controller))
	group.GET("/dashboard", View(controller))

	selection := group.Group("/selection")
	selection.POST("/stations", AddStation(controller))
	selection.DELETE("/stations/:id", RemoveStation(controller))
	selection.PUT("/fuels", SetFuelTypes(controller))
	selection.PUT("/window", SetTimeWindow(controller))
	selection.PUT("/zoom", SetZoomRange(controller))
	selection.DELETE("/zoom", ResetZoom(controller))
	selection.POST("/restore", Restore(controller))
}

func respondWithView(c *gin.Context, controller *dashboard.Controller) {
	c.JSON(http.StatusOK, controller.View(time.Now()))
}

func View(controller *dashboard.Controller) func(c *gin.Context) {
	return func(c *gin.Context) {
		respondWithView(c, controller)
	}
}

func AddStation(controller *dashboard.Controller) func(c *gin.Context) {
	return func(c *gin.Context) {
		var req addStationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
			return
		}

		if _, err := controller.AddStation(c.Request.Context(), req.Id); err != nil {
			if errors.Is(err, dashboard.ErrUnknownStation) {
				c.JSON(http.StatusNotFound, gin.H{"error": "unknown station: " + req.Id})
				return
			}
			log.Errorw("failed to add station", "id", req.Id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": errInternal})
			return
		}
		respondWithView(c, controller)
	}
}

func RemoveStation(controller *dashboard.Controller) func(c *gin.Context) {
	return func(c *gin.Context) {
		controller.RemoveStation(c.Request.Context(), c.Param("id"))
		respondWithView(c, controller)
	}
}

func SetFuelTypes(controller *dashboard.Controller) func(c *gin.Context) {
	return func(c *gin.Context) {
		var req fuelTypesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
			return
		}

		fuelTypes := make([]models.FuelType, 0, len(req.Fuels))
		for _, key := range req.Fuels {
			ft, ok := models.ParseFuelType(key)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown fuel type: " + key})
				return
			}
			fuelTypes = append(fuelTypes, ft)
		}

		controller.SetFuelTypes(c.Request.Context(), fuelTypes)
		respondWithView(c, controller)
	}
}

func SetTimeWindow(controller *dashboard.Controller) func(c *gin.Context) {
	return func(c *gin.Context) {
		var req windowRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
			return
		}

		w, err := models.ParseTimeWindow(req.Window)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		controller.SetTimeWindow(c.Request.Context(), w)
		respondWithView(c, controller)
	}
}

func SetZoomRange(controller *dashboard.Controller) func(c *gin.Context) {
	return func(c *gin.Context) {
		var req zoomRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
			return
		}

		controller.SetZoomRange(c.Request.Context(), req.Start, req.End)
		respondWithView(c, controller)
	}
}

func ResetZoom(controller *dashboard.Controller) func(c *gin.Context) {
	return func(c *gin.Context) {
		controller.ResetZoom(c.Request.Context())
		respondWithView(c, controller)
	}
}

// Restore opens a shared link: the request's query string carries the
// stations, fuels and time parameters.
func Restore(controller *dashboard.Controller) func(c *gin.Context) {
	return func(c *gin.Context) {
		controller.Restore(c.Request.Context(), c.Request.URL.Query())
		respondWithView(c, controller)
	}
}
