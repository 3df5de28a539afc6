package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	rateconfigdomain "github.com/smallbiznis/roomledger/internal/rateconfig/domain"
)

func (s *Server) GetRates(c *gin.Context) {
	rates, err := s.rateConfigSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rates})
}

func (s *Server) UpdateRates(c *gin.Context) {
	var req rateconfigdomain.UpdateRateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	rates, err := s.rateConfigSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rates})
}
