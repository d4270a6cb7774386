package service

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/smallbiznis/glazeops/internal/config"
	"github.com/smallbiznis/glazeops/internal/whatsapp/cloudapi"
	"github.com/smallbiznis/glazeops/internal/whatsapp/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type WebhookParams struct {
	fx.In

	Cfg           config.Config
	Log           *zap.Logger
	Conversations domain.ConversationService
}

type WebhookService struct {
	verifyToken   string
	appSecret     string
	log           *zap.Logger
	conversations domain.ConversationService
}

func NewWebhookService(p WebhookParams) domain.WebhookService {
	return &WebhookService{
		verifyToken:   p.Cfg.WhatsApp.VerifyToken,
		appSecret:     p.Cfg.WhatsApp.AppSecret,
		log:           p.Log.Named("whatsapp.webhook"),
		conversations: p.Conversations,
	}
}

func (s *WebhookService) Verify(mode, token, challenge string) (string, error) {
	if s.verifyToken == "" || mode != "subscribe" {
		return "", domain.ErrInvalidVerifyToken
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.verifyToken)) != 1 {
		return "", domain.ErrInvalidVerifyToken
	}
	return challenge, nil
}

// Handle applies one webhook delivery. Any failure is returned so the Cloud
// API redelivers; inbound messages are deduplicated by id on the retry.
func (s *WebhookService) Handle(ctx context.Context, payload []byte, signature string) (domain.WebhookResult, error) {
	if s.appSecret != "" {
		if err := cloudapi.VerifySignature(payload, signature, s.appSecret); err != nil {
			return domain.WebhookResult{}, err
		}
	} else {
		s.log.Warn("whatsapp app secret not configured, webhook signature not verified")
	}

	notification, err := cloudapi.ParseNotification(payload)
	if err != nil {
		return domain.WebhookResult{}, err
	}

	var result domain.WebhookResult
	for _, msg := range notification.Messages {
		if strings.TrimSpace(msg.Body) == "" {
			continue
		}
		if _, err := s.conversations.ReceiveInbound(ctx, msg); err != nil {
			s.log.Error("failed to store inbound whatsapp message",
				zap.String("external_id", msg.ExternalID),
				zap.Error(err),
			)
			return result, err
		}
		result.Messages++
	}
	for _, status := range notification.Statuses {
		if err := s.conversations.ApplyStatus(ctx, status); err != nil {
			s.log.Error("failed to apply whatsapp status",
				zap.String("external_id", status.ExternalID),
				zap.String("status", status.Status),
				zap.Error(err),
			)
			return result, err
		}
		result.Statuses++
	}
	return result, nil
}
