package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	paymentdomain "github.com/smallbiznis/glazeops/internal/payment/domain"
	"github.com/smallbiznis/glazeops/pkg/db/pagination"
)

const (
	defaultMaxUploadBytes = 10 << 20
	xlsxContentType       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// SubmitBankTransfer records a customer's bank transfer from a multipart form
// with the transfer proof attached. The payment waits for verification.
func (s *Server) SubmitBankTransfer(c *gin.Context) {
	amount, err := decimal.NewFromString(strings.TrimSpace(c.PostForm("amount")))
	if err != nil {
		AbortWithError(c, newValidationError("amount", "invalid_amount", "invalid amount"))
		return
	}
	paymentDate, err := parseOptionalTime(c.PostForm("payment_date"), false)
	if err != nil {
		AbortWithError(c, newValidationError("payment_date", "invalid_payment_date", "invalid payment_date"))
		return
	}

	file, err := c.FormFile("proof")
	if err != nil {
		AbortWithError(c, newValidationError("proof", "required", "proof file is required"))
		return
	}
	content, err := s.readUpload(file.Open)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.verificationSvc.SubmitBankTransfer(c.Request.Context(), paymentdomain.SubmitBankTransferRequest{
		InvoiceID:   strings.TrimSpace(c.PostForm("invoice_id")),
		Amount:      amount,
		PaymentDate: paymentDate,
		Reference:   strings.TrimSpace(c.PostForm("reference")),
		FileName:    file.Filename,
		Content:     content,
		SubmittedBy: currentUserID(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPendingPayments(c *gin.Context) {
	var query pagination.Pagination
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.verificationSvc.ListPending(c.Request.Context(), paymentdomain.ListPaymentsRequest{Pagination: query})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPaymentProof(c *gin.Context) {
	resp, err := s.verificationSvc.ProofURL(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type reviewPaymentRequest struct {
	Notes string `json:"notes"`
}

func (s *Server) VerifyPayment(c *gin.Context) {
	req, ok := bindReview(c)
	if !ok {
		return
	}

	resp, err := s.verificationSvc.Verify(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RejectPayment(c *gin.Context) {
	req, ok := bindReview(c)
	if !ok {
		return
	}

	resp, err := s.verificationSvc.Reject(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func bindReview(c *gin.Context) (paymentdomain.ReviewRequest, bool) {
	var body reviewPaymentRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			AbortWithError(c, invalidRequestError())
			return paymentdomain.ReviewRequest{}, false
		}
	}
	return paymentdomain.ReviewRequest{
		PaymentID:  strings.TrimSpace(c.Param("id")),
		ReviewerID: currentUserID(c),
		Notes:      strings.TrimSpace(body.Notes),
	}, true
}

func (s *Server) ExportPayments(c *gin.Context) {
	var query paymentdomain.ExportRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	doc, err := s.exportSvc.Export(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		_ = s.auditSvc.AuditLog(c.Request.Context(), nil, "payment.export", "payment", doc.FileName, map[string]any{
			"from":   query.From,
			"to":     query.To,
			"method": query.Method,
			"status": query.Status,
		})
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	c.Data(http.StatusOK, xlsxContentType, doc.Content)
}

// readUpload reads at most one byte past the upload limit so oversize files
// are rejected by the attachment service.
func (s *Server) readUpload(open func() (multipart.File, error)) ([]byte, error) {
	limit := s.cfg.Storage.MaxUploadBytes
	if limit <= 0 {
		limit = defaultMaxUploadBytes
	}
	f, err := open()
	if err != nil {
		return nil, invalidRequestError()
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, limit+1))
}
