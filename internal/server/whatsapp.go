package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	whatsappdomain "github.com/smallbiznis/glazeops/internal/whatsapp/domain"
	"github.com/smallbiznis/glazeops/pkg/db/pagination"
)

func (s *Server) UpsertConversation(c *gin.Context) {
	var req whatsappdomain.UpsertConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.conversationSvc.Upsert(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListConversations(c *gin.Context) {
	var query whatsappdomain.ListConversationRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	query.Status = strings.TrimSpace(query.Status)

	resp, err := s.conversationSvc.List(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetConversation(c *gin.Context) {
	resp, err := s.conversationSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) MarkConversationRead(c *gin.Context) {
	resp, err := s.conversationSvc.MarkRead(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListMessages(c *gin.Context) {
	var query pagination.Pagination
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.conversationSvc.ListMessages(c.Request.Context(), whatsappdomain.ListMessageRequest{
		Pagination:     query,
		ConversationID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// SendMessage sends an agent reply. A failed delivery is still stored and
// returned with status failed.
func (s *Server) SendMessage(c *gin.Context) {
	var req whatsappdomain.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ConversationID = strings.TrimSpace(c.Param("id"))
	req.SentBy = currentUserID(c)

	resp, err := s.conversationSvc.Send(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListQuickReplies(c *gin.Context) {
	resp, err := s.quickReplySvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if resp == nil {
		resp = []whatsappdomain.QuickReply{}
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateQuickReply(c *gin.Context) {
	var req whatsappdomain.CreateQuickReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.quickReplySvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteQuickReply(c *gin.Context) {
	if err := s.quickReplySvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
