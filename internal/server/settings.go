package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	settingsdomain "github.com/smallbiznis/glazeops/internal/settings/domain"
	"go.uber.org/zap"
)

type gatewayStatusRequest struct {
	IsActive *bool `json:"is_active"`
}

func (s *Server) GetPayPalSettings(c *gin.Context) {
	resp, err := s.settingsSvc.GetPayPal(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpsertPayPalSettings(c *gin.Context) {
	var req settingsdomain.UpsertPayPalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.settingsSvc.UpsertPayPal(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSettings(c, "settings.paypal.update", map[string]any{
		"environment": resp.Environment,
		"is_active":   resp.IsActive,
	})
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SetPayPalStatus(c *gin.Context) {
	var req gatewayStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
		AbortWithError(c, newValidationError("is_active", "required", "is_active is required"))
		return
	}

	resp, err := s.settingsSvc.SetPayPalActive(c.Request.Context(), *req.IsActive)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSettings(c, "settings.paypal.status", map[string]any{"is_active": resp.IsActive})
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetStripeSettings(c *gin.Context) {
	resp, err := s.settingsSvc.GetStripe(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpsertStripeSettings(c *gin.Context) {
	var req settingsdomain.UpsertStripeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.settingsSvc.UpsertStripe(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSettings(c, "settings.stripe.update", map[string]any{
		"mode":      resp.Mode,
		"is_active": resp.IsActive,
	})
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SetStripeStatus(c *gin.Context) {
	var req gatewayStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
		AbortWithError(c, newValidationError("is_active", "required", "is_active is required"))
		return
	}

	resp, err := s.settingsSvc.SetStripeActive(c.Request.Context(), *req.IsActive)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSettings(c, "settings.stripe.status", map[string]any{"is_active": resp.IsActive})
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetBankTransferSettings(c *gin.Context) {
	resp, err := s.settingsSvc.BankTransfer(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpsertBankTransferSettings(c *gin.Context) {
	var req settingsdomain.UpsertBankTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.settingsSvc.UpsertBankTransfer(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSettings(c, "settings.bank_transfer.update", map[string]any{"bank_name": resp.BankName})
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetEmailSettings(c *gin.Context) {
	resp, err := s.settingsSvc.GetEmail(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpsertEmailSettings(c *gin.Context) {
	var req settingsdomain.UpsertEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.settingsSvc.UpsertEmail(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSettings(c, "settings.email.update", map[string]any{
		"smtp_host": resp.SMTPHost,
		"is_active": resp.IsActive,
	})
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetBrandSettings(c *gin.Context) {
	resp, err := s.settingsSvc.Brand(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpsertBrandSettings(c *gin.Context) {
	var req settingsdomain.UpsertBrandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.settingsSvc.UpsertBrand(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSettings(c, "settings.brand.update", map[string]any{"company_name": resp.CompanyName})
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAISettings(c *gin.Context) {
	resp, err := s.settingsSvc.GetAI(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpsertAISettings(c *gin.Context) {
	var req settingsdomain.UpsertAIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.settingsSvc.UpsertAI(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSettings(c, "settings.ai.update", map[string]any{
		"provider":  resp.Provider,
		"model":     resp.Model,
		"is_active": resp.IsActive,
	})
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// auditSettings records which settings changed. Credential values never go
// into the metadata.
func (s *Server) auditSettings(c *gin.Context, action string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.AuditLog(c.Request.Context(), nil, action, "settings", action, metadata); err != nil {
		s.log.Warn("failed to audit settings change", zap.String("action", action), zap.Error(err))
	}
}
