package routes

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rm-hull/fuel-price-dashboard/internal/dashboard"
	"github.com/rm-hull/fuel-price-dashboard/internal/logger"
	"github.com/rm-hull/fuel-price-dashboard/internal/models"
	"github.com/rm-hull/fuel-price-dashboard/internal/stations"
)

const MAX_SEARCH_LIMIT = 50

var log = logger.Named("routes")

func Search(controller *dashboard.Controller) func(c *gin.Context) {
	return func(c *gin.Context) {
		term := strings.TrimSpace(c.Query("q"))
		if term == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing search term"})
			return
		}

		limit, err := parseLimit(c.Query("limit"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, models.SearchResponse{
			Term:    term,
			Results: controller.Search(term, limit),
		})
	}
}

func parseLimit(limitStr string) (int, error) {
	if limitStr == "" {
		return stations.DEFAULT_SEARCH_LIMIT, nil
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 || limit > MAX_SEARCH_LIMIT {
		return 0, fmt.Errorf("limit must be a number between 1 and %d", MAX_SEARCH_LIMIT)
	}
	return limit, nil
}
