package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	whatsappdomain "github.com/smallbiznis/glazeops/internal/whatsapp/domain"
)

// SuggestReply drafts an AI reply for a conversation. Drafts are stored for
// an agent to approve and are never sent automatically.
func (s *Server) SuggestReply(c *gin.Context) {
	var req whatsappdomain.SuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.assistantSvc.Suggest(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSuggestions(c *gin.Context) {
	resp, err := s.assistantSvc.ListSuggestions(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if resp == nil {
		resp = []whatsappdomain.Suggestion{}
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
