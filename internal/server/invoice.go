package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/glazeops/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/glazeops/internal/payment/domain"
	receiptdomain "github.com/smallbiznis/glazeops/internal/receipt/domain"
	"github.com/smallbiznis/glazeops/pkg/db/pagination"
)

type invoiceDetail struct {
	invoicedomain.Invoice
	Payments []paymentdomain.Payment `json:"payments"`
	Receipts []receiptdomain.Receipt `json:"receipts"`
}

func (s *Server) CreateInvoice(c *gin.Context) {
	var req invoicedomain.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		_ = s.auditSvc.AuditLog(c.Request.Context(), nil, "invoice.create", "invoice", resp.ID.String(), map[string]any{
			"customer_id":  resp.CustomerID.String(),
			"total_amount": resp.TotalAmount.StringFixed(2),
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListInvoices(c *gin.Context) {
	var query struct {
		pagination.Pagination
		CustomerID string `form:"customer_id"`
		Status     string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListInvoiceRequest{
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

// GetInvoiceByID returns the invoice together with its payments and receipts.
func (s *Server) GetInvoiceByID(c *gin.Context) {
	ctx := c.Request.Context()
	invoice, err := s.invoiceSvc.Get(ctx, strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	payments, err := s.paymentSvc.ListByInvoice(ctx, invoice.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	receipts, err := s.receiptSvc.ListByInvoice(ctx, invoice.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if payments == nil {
		payments = []paymentdomain.Payment{}
	}
	if receipts == nil {
		receipts = []receiptdomain.Receipt{}
	}

	c.JSON(http.StatusOK, gin.H{"data": invoiceDetail{
		Invoice:  invoice,
		Payments: payments,
		Receipts: receipts,
	}})
}
