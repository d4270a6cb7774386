package whatsapp

import (
	"github.com/smallbiznis/glazeops/internal/whatsapp/assistant"
	"github.com/smallbiznis/glazeops/internal/whatsapp/cloudapi"
	"github.com/smallbiznis/glazeops/internal/whatsapp/marketing"
	"github.com/smallbiznis/glazeops/internal/whatsapp/realtime"
	"github.com/smallbiznis/glazeops/internal/whatsapp/repository"
	"github.com/smallbiznis/glazeops/internal/whatsapp/service"
	"go.uber.org/fx"
)

var Module = fx.Module("whatsapp.service",
	fx.Provide(repository.Provide),
	fx.Provide(realtime.NewHub),
	fx.Provide(cloudapi.New),
	fx.Provide(cloudapi.NewSender),
	fx.Provide(service.NewConversationService),
	fx.Provide(service.NewQuickReplyService),
	fx.Provide(service.NewWebhookService),
	fx.Provide(marketing.New),
	fx.Provide(assistant.NewRegistry),
	fx.Provide(assistant.New),
)
