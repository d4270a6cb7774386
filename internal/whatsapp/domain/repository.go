package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListConversationFilter struct {
	Status string
	After  int64
	Limit  int
}

type PageFilter struct {
	After int64
	Limit int
}

// DeliveryUpdate is the outcome of one send attempt.
type DeliveryUpdate struct {
	Status       string
	ExternalID   *string
	ErrorMessage *string
	At           time.Time
}

type Repository interface {
	InsertConversation(ctx context.Context, db *gorm.DB, conversation *Conversation) (bool, error)
	FindConversation(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Conversation, error)
	FindConversationByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (*Conversation, error)
	ListConversations(ctx context.Context, db *gorm.DB, filter ListConversationFilter) ([]*Conversation, error)
	TouchConversation(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time, inbound bool) error
	MarkConversationRead(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error)

	InsertMessage(ctx context.Context, db *gorm.DB, message *Message) error
	FindMessageByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*Message, error)
	ListMessages(ctx context.Context, db *gorm.DB, conversationID snowflake.ID, filter PageFilter) ([]*Message, error)
	RecentMessages(ctx context.Context, db *gorm.DB, conversationID snowflake.ID, limit int) ([]*Message, error)
	UpdateMessageDelivery(ctx context.Context, db *gorm.DB, id snowflake.ID, update DeliveryUpdate) error
	AdvanceMessageStatus(ctx context.Context, db *gorm.DB, externalID string, update DeliveryUpdate) (int64, error)

	InsertQuickReply(ctx context.Context, db *gorm.DB, reply *QuickReply) error
	FindQuickReply(ctx context.Context, db *gorm.DB, id snowflake.ID) (*QuickReply, error)
	ListQuickReplies(ctx context.Context, db *gorm.DB) ([]*QuickReply, error)
	DeleteQuickReply(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)

	InsertContactList(ctx context.Context, db *gorm.DB, list *ContactList) error
	UpdateContactList(ctx context.Context, db *gorm.DB, list *ContactList) error
	FindContactList(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ContactList, error)
	ListContactLists(ctx context.Context, db *gorm.DB, filter PageFilter) ([]*ContactList, error)
	DeleteContactList(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	CountCampaignsByList(ctx context.Context, db *gorm.DB, listID snowflake.ID) (int64, error)

	InsertContact(ctx context.Context, db *gorm.DB, contact *Contact) error
	ListContacts(ctx context.Context, db *gorm.DB, listID snowflake.ID, filter PageFilter) ([]*Contact, error)
	AllContacts(ctx context.Context, db *gorm.DB, listID snowflake.ID) ([]*Contact, error)
	DeleteContact(ctx context.Context, db *gorm.DB, listID, id snowflake.ID) (bool, error)

	InsertCampaign(ctx context.Context, db *gorm.DB, campaign *Campaign) error
	FindCampaign(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Campaign, error)
	ListCampaigns(ctx context.Context, db *gorm.DB, filter PageFilter) ([]*Campaign, error)
	StartCampaign(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error)
	FinishCampaign(ctx context.Context, db *gorm.DB, id snowflake.ID, status string, at time.Time) error

	EnsureCampaignMessage(ctx context.Context, db *gorm.DB, message *CampaignMessage) (*CampaignMessage, error)
	ListCampaignMessages(ctx context.Context, db *gorm.DB, campaignID snowflake.ID, filter PageFilter) ([]*CampaignMessage, error)
	UpdateCampaignMessageDelivery(ctx context.Context, db *gorm.DB, id snowflake.ID, update DeliveryUpdate) error
	AdvanceCampaignMessageStatus(ctx context.Context, db *gorm.DB, externalID string, update DeliveryUpdate) (int64, error)
	CampaignStatusCounts(ctx context.Context, db *gorm.DB, campaignID snowflake.ID) (map[string]int64, error)

	InsertSuggestion(ctx context.Context, db *gorm.DB, suggestion *Suggestion) error
	ListSuggestions(ctx context.Context, db *gorm.DB, conversationID snowflake.ID, limit int) ([]*Suggestion, error)
}
