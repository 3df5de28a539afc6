package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	proofdomain "github.com/smallbiznis/roomledger/internal/paymentproof/domain"
)

func (s *Server) SubmitPaymentProof(c *gin.Context) {
	var req proofdomain.SubmitProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	proof, err := s.proofSvc.Submit(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": proof})
}

func (s *Server) ListPaymentProofs(c *gin.Context) {
	tenantID := strings.TrimSpace(c.Query("tenant_id"))
	if tenantID == "" {
		AbortWithError(c, newValidationError("tenant_id", "invalid_tenant_id", "tenant_id is required"))
		return
	}

	proofs, err := s.proofSvc.ListByTenant(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": proofs})
}
