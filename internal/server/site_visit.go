package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	sitevisitdomain "github.com/smallbiznis/glazeops/internal/sitevisit/domain"
	"github.com/smallbiznis/glazeops/pkg/db/pagination"
)

func (s *Server) CreateSiteVisit(c *gin.Context) {
	var req sitevisitdomain.CreateSiteVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.siteVisitSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		_ = s.auditSvc.AuditLog(c.Request.Context(), nil, "site_visit.create", "site_visit", resp.ID.String(), map[string]any{
			"customer_id": resp.CustomerID.String(),
			"fee_amount":  resp.FeeAmount.StringFixed(2),
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSiteVisits(c *gin.Context) {
	var query struct {
		pagination.Pagination
		CustomerID string `form:"customer_id"`
		Status     string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.siteVisitSvc.List(c.Request.Context(), sitevisitdomain.ListSiteVisitRequest{
		Pagination: query.Pagination,
		CustomerID: strings.TrimSpace(query.CustomerID),
		Status:     strings.TrimSpace(query.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSiteVisitByID(c *gin.Context) {
	resp, err := s.siteVisitSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// CreateSiteVisitBooking takes a booking from the public site. The response
// carries the ids the checkout calls need next.
func (s *Server) CreateSiteVisitBooking(c *gin.Context) {
	var req sitevisitdomain.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortFunctionError(c, invalidRequestError())
		return
	}

	resp, err := s.siteVisitSvc.CreateBooking(c.Request.Context(), req)
	if err != nil {
		abortFunctionError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
