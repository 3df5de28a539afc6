package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/roomledger/internal/billingperiod"
)

// NextPeriod suggests the follow-up billing period for a given one, so
// the admin UI can prefill the next generation cycle.
func (s *Server) NextPeriod(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("period"))
	if raw == "" {
		AbortWithError(c, newValidationError("period", "invalid_period", "period is required"))
		return
	}

	period, err := billingperiod.Parse(raw)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	next := period.Next()
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"period": next.String(),
		"label":  next.Label(),
	}})
}
