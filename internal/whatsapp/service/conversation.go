package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/glazeops/internal/clock"
	customerdomain "github.com/smallbiznis/glazeops/internal/customer/domain"
	"github.com/smallbiznis/glazeops/internal/observability/metrics"
	"github.com/smallbiznis/glazeops/internal/whatsapp/domain"
	"github.com/smallbiznis/glazeops/internal/whatsapp/realtime"
	"github.com/smallbiznis/glazeops/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	Customers   customerdomain.Repository
	CustomerSvc customerdomain.Service
	Sender      domain.Sender
	Hub         *realtime.Hub
	Metrics     *metrics.Metrics `optional:"true"`
}

type ConversationService struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	customers   customerdomain.Repository
	customerSvc customerdomain.Service
	sender      domain.Sender
	hub         *realtime.Hub
	metrics     *metrics.Metrics
}

func NewConversationService(p Params) domain.ConversationService {
	return &ConversationService{
		db:          p.DB,
		log:         p.Log.Named("whatsapp.conversation"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		customers:   p.Customers,
		customerSvc: p.CustomerSvc,
		sender:      p.Sender,
		hub:         p.Hub,
		metrics:     p.Metrics,
	}
}

func (s *ConversationService) Upsert(ctx context.Context, req domain.UpsertConversationRequest) (domain.Conversation, error) {
	customerID, err := parseID(req.CustomerID)
	if err != nil {
		return domain.Conversation{}, err
	}
	customer, err := s.customers.FindByID(ctx, s.db, customerID)
	if err != nil {
		return domain.Conversation{}, err
	}
	if customer == nil {
		return domain.Conversation{}, domain.ErrCustomerNotFound
	}
	return s.findOrCreate(ctx, s.db, customer.ID, customer.Phone)
}

func (s *ConversationService) findOrCreate(ctx context.Context, db *gorm.DB, customerID snowflake.ID, phone string) (domain.Conversation, error) {
	existing, err := s.repo.FindConversationByCustomer(ctx, db, customerID)
	if err != nil {
		return domain.Conversation{}, err
	}
	if existing != nil {
		return *existing, nil
	}

	now := s.clock.Now()
	conversation := domain.Conversation{
		ID:         s.genID.Generate(),
		CustomerID: customerID,
		Phone:      phone,
		Status:     domain.ConversationOpen,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	created, err := s.repo.InsertConversation(ctx, db, &conversation)
	if err != nil {
		return domain.Conversation{}, err
	}
	if created {
		return conversation, nil
	}

	// Lost the insert race; the winner's row is authoritative.
	existing, err = s.repo.FindConversationByCustomer(ctx, db, customerID)
	if err != nil {
		return domain.Conversation{}, err
	}
	if existing == nil {
		return domain.Conversation{}, domain.ErrConversationNotFound
	}
	return *existing, nil
}

func (s *ConversationService) List(ctx context.Context, req domain.ListConversationRequest) (domain.ListConversationResponse, error) {
	after, err := req.After()
	if err != nil {
		return domain.ListConversationResponse{}, err
	}
	limit := req.Limit()
	items, err := s.repo.ListConversations(ctx, s.db, domain.ListConversationFilter{
		Status: strings.ToLower(strings.TrimSpace(req.Status)),
		After:  after,
		Limit:  limit,
	})
	if err != nil {
		return domain.ListConversationResponse{}, err
	}

	items, pageInfo := pagination.Page(items, limit, func(c *domain.Conversation) int64 { return c.ID.Int64() })
	out := make([]domain.Conversation, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return domain.ListConversationResponse{PageInfo: pageInfo, Conversations: out}, nil
}

func (s *ConversationService) Get(ctx context.Context, rawID string) (domain.Conversation, error) {
	id, err := parseID(rawID)
	if err != nil {
		return domain.Conversation{}, err
	}
	return s.load(ctx, id)
}

func (s *ConversationService) load(ctx context.Context, id snowflake.ID) (domain.Conversation, error) {
	item, err := s.repo.FindConversation(ctx, s.db, id)
	if err != nil {
		return domain.Conversation{}, err
	}
	if item == nil {
		return domain.Conversation{}, domain.ErrConversationNotFound
	}
	return *item, nil
}

func (s *ConversationService) MarkRead(ctx context.Context, rawID string) (domain.Conversation, error) {
	id, err := parseID(rawID)
	if err != nil {
		return domain.Conversation{}, err
	}
	ok, err := s.repo.MarkConversationRead(ctx, s.db, id, s.clock.Now())
	if err != nil {
		return domain.Conversation{}, err
	}
	if !ok {
		return domain.Conversation{}, domain.ErrConversationNotFound
	}
	return s.load(ctx, id)
}

func (s *ConversationService) ListMessages(ctx context.Context, req domain.ListMessageRequest) (domain.ListMessageResponse, error) {
	conversation, err := s.Get(ctx, req.ConversationID)
	if err != nil {
		return domain.ListMessageResponse{}, err
	}
	after, err := req.After()
	if err != nil {
		return domain.ListMessageResponse{}, err
	}
	limit := req.Limit()
	items, err := s.repo.ListMessages(ctx, s.db, conversation.ID, domain.PageFilter{After: after, Limit: limit})
	if err != nil {
		return domain.ListMessageResponse{}, err
	}

	items, pageInfo := pagination.Page(items, limit, func(m *domain.Message) int64 { return m.ID.Int64() })
	out := make([]domain.Message, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return domain.ListMessageResponse{PageInfo: pageInfo, Messages: out}, nil
}

// Send records an outbound message and hands it to the Cloud API. A failed
// delivery is stored on the message with status failed rather than returned
// as an error, so the operator sees it in the thread.
func (s *ConversationService) Send(ctx context.Context, req domain.SendMessageRequest) (domain.Message, error) {
	conversation, err := s.Get(ctx, req.ConversationID)
	if err != nil {
		return domain.Message{}, err
	}

	body := strings.TrimSpace(req.Body)
	if body == "" && strings.TrimSpace(req.QuickReplyID) != "" {
		replyID, err := parseID(req.QuickReplyID)
		if err != nil {
			return domain.Message{}, err
		}
		reply, err := s.repo.FindQuickReply(ctx, s.db, replyID)
		if err != nil {
			return domain.Message{}, err
		}
		if reply == nil {
			return domain.Message{}, domain.ErrQuickReplyNotFound
		}
		body = reply.Body
	}
	if err := validateBody(body); err != nil {
		return domain.Message{}, err
	}

	phone, err := s.recipientPhone(ctx, conversation)
	if err != nil {
		return domain.Message{}, err
	}

	now := s.clock.Now()
	message := domain.Message{
		ID:             s.genID.Generate(),
		ConversationID: conversation.ID,
		Direction:      domain.DirectionOutbound,
		Body:           body,
		Status:         domain.StatusPending,
		SentBy:         req.SentBy,
		CreatedAt:      now,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertMessage(ctx, tx, &message); err != nil {
			return err
		}
		return s.repo.TouchConversation(ctx, tx, conversation.ID, now, false)
	})
	if err != nil {
		return domain.Message{}, err
	}
	s.publish(realtime.EventMessageCreated, message)

	update := domain.DeliveryUpdate{Status: domain.StatusSent, At: s.clock.Now()}
	externalID, sendErr := s.sender.SendText(ctx, phone, body)
	if sendErr != nil {
		s.log.Warn("whatsapp message not delivered",
			zap.String("conversation_id", conversation.ID.String()),
			zap.String("message_id", message.ID.String()),
			zap.Error(sendErr),
		)
		reason := sendErr.Error()
		update.Status = domain.StatusFailed
		update.ErrorMessage = &reason
	} else {
		update.ExternalID = &externalID
	}

	// The upstream call may have outlived the request; the outcome is still recorded.
	if err := s.repo.UpdateMessageDelivery(context.WithoutCancel(ctx), s.db, message.ID, update); err != nil {
		return domain.Message{}, err
	}
	message.Status = update.Status
	message.ExternalID = update.ExternalID
	message.ErrorMessage = update.ErrorMessage
	s.publish(realtime.EventMessageUpdated, message)
	return message, nil
}

func (s *ConversationService) recipientPhone(ctx context.Context, conversation domain.Conversation) (string, error) {
	if conversation.Phone != "" {
		return conversation.Phone, nil
	}
	customer, err := s.customers.FindByID(ctx, s.db, conversation.CustomerID)
	if err != nil {
		return "", err
	}
	if customer == nil || customer.Phone == "" {
		return "", domain.ErrInvalidPhone
	}
	return customer.Phone, nil
}

// ReceiveInbound stores a customer message, creating the customer and the
// conversation on first contact. Redelivered webhooks are recognised by the
// upstream message id and return the stored message.
func (s *ConversationService) ReceiveInbound(ctx context.Context, msg domain.InboundMessage) (domain.Message, error) {
	if msg.ExternalID != "" {
		existing, err := s.repo.FindMessageByExternalID(ctx, s.db, msg.ExternalID)
		if err != nil {
			return domain.Message{}, err
		}
		if existing != nil {
			return *existing, nil
		}
	}

	from := strings.TrimPrefix(strings.TrimSpace(msg.From), "+")
	if from == "" {
		return domain.Message{}, domain.ErrInvalidPhone
	}
	customer, err := s.customerSvc.FindOrCreateByPhone(ctx, "+"+from, msg.ProfileName)
	if err != nil {
		return domain.Message{}, err
	}

	receivedAt := msg.Timestamp
	if receivedAt.IsZero() {
		receivedAt = s.clock.Now()
	}
	var externalID *string
	if msg.ExternalID != "" {
		externalID = &msg.ExternalID
	}

	var message domain.Message
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		conversation, err := s.findOrCreate(ctx, tx, customer.ID, customer.Phone)
		if err != nil {
			return err
		}
		message = domain.Message{
			ID:             s.genID.Generate(),
			ConversationID: conversation.ID,
			Direction:      domain.DirectionInbound,
			Body:           msg.Body,
			Status:         domain.StatusReceived,
			ExternalID:     externalID,
			CreatedAt:      receivedAt,
		}
		if err := s.repo.InsertMessage(ctx, tx, &message); err != nil {
			return err
		}
		return s.repo.TouchConversation(ctx, tx, conversation.ID, receivedAt, true)
	})
	if err != nil {
		return domain.Message{}, err
	}
	s.publish(realtime.EventMessageCreated, message)
	return message, nil
}

// ApplyStatus moves conversation messages and campaign recipients forward
// on a delivery receipt. Unknown ids and backwards transitions are ignored.
func (s *ConversationService) ApplyStatus(ctx context.Context, update domain.StatusUpdate) error {
	externalID := strings.TrimSpace(update.ExternalID)
	if externalID == "" {
		return domain.ErrInvalidPayload
	}
	at := update.Timestamp
	if at.IsZero() {
		at = s.clock.Now()
	}
	delivery := domain.DeliveryUpdate{Status: update.Status, At: at}
	if update.Error != "" {
		reason := update.Error
		delivery.ErrorMessage = &reason
	}

	n, err := s.repo.AdvanceMessageStatus(ctx, s.db, externalID, delivery)
	if err != nil {
		return err
	}
	if n > 0 {
		message, err := s.repo.FindMessageByExternalID(ctx, s.db, externalID)
		if err != nil {
			return err
		}
		if message != nil {
			s.publish(realtime.EventMessageUpdated, *message)
		}
	}

	n, err = s.repo.AdvanceCampaignMessageStatus(ctx, s.db, externalID, delivery)
	if err != nil {
		return err
	}
	if n > 0 {
		s.metrics.RecordCampaignMessage(ctx, update.Status)
	}
	return nil
}

func (s *ConversationService) publish(kind string, message domain.Message) {
	s.hub.Publish(realtime.Event{
		Type:           kind,
		ConversationID: message.ConversationID.String(),
		Message:        message,
	})
}

func validateBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return domain.ErrEmptyBody
	}
	if utf8.RuneCountInString(body) > domain.MaxBodyLength {
		return domain.ErrBodyTooLong
	}
	return nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
