package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	attachmentdomain "github.com/smallbiznis/glazeops/internal/attachment/domain"
)

func (s *Server) UploadAttachment(c *gin.Context) {
	ownerID, err := parseSnowflakeID(c.PostForm("owner_id"))
	if err != nil {
		AbortWithError(c, newValidationError("owner_id", "invalid_id", "invalid owner_id"))
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		AbortWithError(c, newValidationError("file", "required", "file is required"))
		return
	}
	content, err := s.readUpload(file.Open)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.attachmentSvc.Upload(c.Request.Context(), attachmentdomain.UploadRequest{
		OwnerType:  strings.TrimSpace(c.PostForm("owner_type")),
		OwnerID:    ownerID,
		FileName:   file.Filename,
		Content:    content,
		UploadedBy: currentUserID(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		_ = s.auditSvc.AuditLog(c.Request.Context(), nil, "attachment.upload", "attachment", resp.ID.String(), map[string]any{
			"owner_type": resp.OwnerType,
			"owner_id":   resp.OwnerID.String(),
			"file_name":  resp.FileName,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListAttachments(c *gin.Context) {
	ownerID, err := parseSnowflakeID(c.Query("owner_id"))
	if err != nil {
		AbortWithError(c, newValidationError("owner_id", "invalid_id", "invalid owner_id"))
		return
	}

	resp, err := s.attachmentSvc.ListByOwner(c.Request.Context(), strings.TrimSpace(c.Query("owner_type")), ownerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if resp == nil {
		resp = []attachmentdomain.Attachment{}
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAttachmentURL(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	resp, err := s.attachmentSvc.SignedURL(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteAttachment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := s.attachmentSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		_ = s.auditSvc.AuditLog(c.Request.Context(), nil, "attachment.delete", "attachment", id.String(), nil)
	}

	c.Status(http.StatusNoContent)
}
