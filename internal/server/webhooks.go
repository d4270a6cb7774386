package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/smallbiznis/glazeops/internal/payment/domain"
	"go.uber.org/zap"
)

const maxWebhookBodyBytes = 1 << 20

// stripeRejections are the only webhook failures reported as client errors.
// Anything else failed while applying the event and must be redelivered.
var stripeRejections = []error{
	paymentdomain.ErrInvalidSignature,
	paymentdomain.ErrSignatureExpired,
	paymentdomain.ErrInvalidPayload,
	paymentdomain.ErrInvalidEvent,
}

func isStripeRejection(err error) bool {
	for _, target := range stripeRejections {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// HandleStripeWebhook passes the raw body to the webhook service untouched;
// signature verification needs the exact bytes Stripe signed.
func (s *Server) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		abortFunctionError(c, invalidRequestError())
		return
	}

	if err := s.webhookSvc.IngestWebhook(c.Request.Context(), "stripe", payload, c.Request.Header); err != nil {
		if isStripeRejection(err) {
			s.log.Warn("stripe webhook rejected", zap.Error(err))
			abortFunctionError(c, err)
			return
		}
		s.log.Error("stripe webhook processing failed", zap.Error(err))
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// VerifyWhatsAppWebhook answers the Cloud API subscription handshake.
func (s *Server) VerifyWhatsAppWebhook(c *gin.Context) {
	challenge, err := s.waWebhookSvc.Verify(
		c.Query("hub.mode"),
		c.Query("hub.verify_token"),
		c.Query("hub.challenge"),
	)
	if err != nil {
		abortFunctionError(c, err)
		return
	}

	c.String(http.StatusOK, challenge)
}

func (s *Server) HandleWhatsAppWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		abortFunctionError(c, invalidRequestError())
		return
	}

	resp, err := s.waWebhookSvc.Handle(c.Request.Context(), payload, c.GetHeader("X-Hub-Signature-256"))
	if err != nil {
		s.log.Warn("whatsapp webhook rejected", zap.Error(err))
		abortFunctionError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
