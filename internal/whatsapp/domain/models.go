package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"

	ConversationOpen   = "open"
	ConversationClosed = "closed"
)

// Delivery states shared by conversation messages and campaign recipients.
const (
	StatusPending   = "pending"
	StatusReceived  = "received"
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
	StatusFailed    = "failed"
)

const (
	CampaignDraft     = "draft"
	CampaignSending   = "sending"
	CampaignPaused    = "paused"
	CampaignCompleted = "completed"
)

// MaxBodyLength is the Cloud API limit for a text message body.
const MaxBodyLength = 4096

// AdvanceableFrom lists the states a delivery status notification may move
// a message out of. Statuses never move backwards.
func AdvanceableFrom(status string) []string {
	switch status {
	case StatusDelivered:
		return []string{StatusPending, StatusSent}
	case StatusRead:
		return []string{StatusPending, StatusSent, StatusDelivered}
	case StatusFailed:
		return []string{StatusPending, StatusSent}
	default:
		return nil
	}
}

type Conversation struct {
	ID            snowflake.ID `json:"id"`
	CustomerID    snowflake.ID `json:"customer_id"`
	Phone         string       `json:"phone"`
	Status        string       `json:"status"`
	UnreadCount   int          `json:"unread_count"`
	LastMessageAt *time.Time   `json:"last_message_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func (Conversation) TableName() string { return "whatsapp_conversations" }

type Message struct {
	ID             snowflake.ID  `json:"id"`
	ConversationID snowflake.ID  `json:"conversation_id"`
	Direction      string        `json:"direction"`
	Body           string        `json:"body"`
	Status         string        `json:"status"`
	ExternalID     *string       `json:"external_id,omitempty"`
	SentBy         *snowflake.ID `json:"sent_by,omitempty"`
	ErrorMessage   *string       `json:"error_message,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

func (Message) TableName() string { return "whatsapp_messages" }

type QuickReply struct {
	ID        snowflake.ID `json:"id"`
	Title     string       `json:"title"`
	Body      string       `json:"body"`
	Shortcut  string       `json:"shortcut"`
	CreatedAt time.Time    `json:"created_at"`
}

func (QuickReply) TableName() string { return "whatsapp_quick_replies" }

type ContactList struct {
	ID           snowflake.ID `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	ContactCount int64        `json:"contact_count"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (ContactList) TableName() string { return "whatsapp_contact_lists" }

type Contact struct {
	ID           snowflake.ID      `json:"id"`
	ListID       snowflake.ID      `json:"list_id"`
	Name         string            `json:"name"`
	Phone        string            `json:"phone"`
	Tags         pq.StringArray    `gorm:"type:text[]" json:"tags"`
	CustomFields datatypes.JSONMap `json:"custom_fields"`
	CreatedAt    time.Time         `json:"created_at"`
}

func (Contact) TableName() string { return "whatsapp_contacts" }

type Campaign struct {
	ID          snowflake.ID  `json:"id"`
	Name        string        `json:"name"`
	ListID      snowflake.ID  `json:"list_id"`
	Template    string        `json:"template"`
	Status      string        `json:"status"`
	CreatedBy   *snowflake.ID `json:"created_by,omitempty"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (Campaign) TableName() string { return "whatsapp_campaigns" }

// CampaignMessage is one recipient of a campaign.
type CampaignMessage struct {
	ID           snowflake.ID `json:"id"`
	CampaignID   snowflake.ID `json:"campaign_id"`
	ContactID    snowflake.ID `json:"contact_id"`
	Phone        string       `json:"phone"`
	Body         string       `json:"body"`
	Status       string       `json:"status"`
	ExternalID   *string      `json:"external_id,omitempty"`
	ErrorMessage *string      `json:"error_message,omitempty"`
	SentAt       *time.Time   `json:"sent_at,omitempty"`
	DeliveredAt  *time.Time   `json:"delivered_at,omitempty"`
	ReadAt       *time.Time   `json:"read_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (CampaignMessage) TableName() string { return "whatsapp_campaign_messages" }

type CampaignAnalytics struct {
	CampaignID   snowflake.ID `json:"campaign_id"`
	Status       string       `json:"status"`
	Total        int64        `json:"total"`
	Pending      int64        `json:"pending"`
	Sent         int64        `json:"sent"`
	Delivered    int64        `json:"delivered"`
	Read         int64        `json:"read"`
	Failed       int64        `json:"failed"`
	DeliveryRate float64      `json:"delivery_rate"`
	ReadRate     float64      `json:"read_rate"`
}

type Suggestion struct {
	ID                snowflake.ID    `json:"id"`
	ConversationID    snowflake.ID    `json:"conversation_id"`
	CustomerID        snowflake.ID    `json:"customer_id"`
	Provider          string          `json:"provider"`
	Model             string          `json:"model"`
	SuggestedResponse string          `json:"suggested_response"`
	ConfidenceScore   decimal.Decimal `json:"confidence_score"`
	NeedsEscalation   bool            `json:"needs_escalation"`
	RequiresApproval  bool            `json:"requires_approval"`
	CreatedAt         time.Time       `json:"created_at"`
}

func (Suggestion) TableName() string { return "whatsapp_ai_suggestions" }
