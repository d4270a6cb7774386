package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/smallbiznis/glazeops/internal/payment/domain"
	"go.uber.org/zap"
)

// CreatePayPalOrder opens a PayPal order for a site visit fee. The amount
// arrives in AED and is converted before it reaches PayPal.
func (s *Server) CreatePayPalOrder(c *gin.Context) {
	var req paymentdomain.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortFunctionError(c, invalidRequestError())
		return
	}

	resp, err := s.checkoutSvc.CreateOrder(c.Request.Context(), req)
	if err != nil {
		abortFunctionError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) CapturePayPalOrder(c *gin.Context) {
	var req paymentdomain.CaptureOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortFunctionError(c, invalidRequestError())
		return
	}

	resp, err := s.checkoutSvc.CaptureOrder(c.Request.Context(), req)
	if err != nil {
		if incomplete, ok := paymentdomain.AsCaptureIncomplete(err); ok {
			s.log.Info("paypal capture not completed",
				zap.String("order_id", req.OrderID),
				zap.String("status", incomplete.Status),
			)
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":  "Payment not completed",
				"status": incomplete.Status,
			})
			return
		}
		abortFunctionError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
