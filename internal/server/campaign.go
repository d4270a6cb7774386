package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	whatsappdomain "github.com/smallbiznis/glazeops/internal/whatsapp/domain"
	"github.com/smallbiznis/glazeops/pkg/db/pagination"
)

func (s *Server) CreateContactList(c *gin.Context) {
	var req whatsappdomain.CreateContactListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.marketingSvc.CreateList(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListContactLists(c *gin.Context) {
	var query pagination.Pagination
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.marketingSvc.ListLists(c.Request.Context(), whatsappdomain.ListContactListRequest{Pagination: query})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetContactList(c *gin.Context) {
	resp, err := s.marketingSvc.GetList(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateContactList(c *gin.Context) {
	var req whatsappdomain.UpdateContactListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.marketingSvc.UpdateList(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteContactList(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.marketingSvc.DeleteList(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		_ = s.auditSvc.AuditLog(c.Request.Context(), nil, "contact_list.delete", "contact_list", id, nil)
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) AddContact(c *gin.Context) {
	var req whatsappdomain.AddContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ListID = strings.TrimSpace(c.Param("id"))

	resp, err := s.marketingSvc.AddContact(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListContacts(c *gin.Context) {
	var query pagination.Pagination
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.marketingSvc.ListContacts(c.Request.Context(), whatsappdomain.ListContactRequest{
		Pagination: query,
		ListID:     strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RemoveContact(c *gin.Context) {
	err := s.marketingSvc.RemoveContact(
		c.Request.Context(),
		strings.TrimSpace(c.Param("id")),
		strings.TrimSpace(c.Param("contactId")),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) CreateCampaign(c *gin.Context) {
	var req whatsappdomain.CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.CreatedBy = currentUserID(c)

	resp, err := s.marketingSvc.CreateCampaign(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		_ = s.auditSvc.AuditLog(c.Request.Context(), nil, "campaign.create", "campaign", resp.ID.String(), map[string]any{
			"name":    resp.Name,
			"list_id": resp.ListID.String(),
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCampaigns(c *gin.Context) {
	var query pagination.Pagination
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.marketingSvc.ListCampaigns(c.Request.Context(), whatsappdomain.ListCampaignRequest{Pagination: query})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCampaign(c *gin.Context) {
	resp, err := s.marketingSvc.GetCampaign(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// SendCampaign blocks until every recipient has been attempted. A dropped
// client connection pauses the campaign; sending it again resumes.
func (s *Server) SendCampaign(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.marketingSvc.SendCampaign(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		_ = s.auditSvc.AuditLog(c.Request.Context(), nil, "campaign.send", "campaign", id, map[string]any{
			"sent":   resp.Sent,
			"failed": resp.Failed,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCampaignAnalytics(c *gin.Context) {
	resp, err := s.marketingSvc.Analytics(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCampaignRecipients(c *gin.Context) {
	var query pagination.Pagination
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.marketingSvc.ListRecipients(c.Request.Context(), whatsappdomain.ListRecipientRequest{
		Pagination: query,
		CampaignID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
