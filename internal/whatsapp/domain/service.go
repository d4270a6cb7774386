package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/glazeops/pkg/db/pagination"
)

type UpsertConversationRequest struct {
	CustomerID string `json:"customer_id"`
}

type ListConversationRequest struct {
	pagination.Pagination
	Status string `form:"status"`
}

type ListConversationResponse struct {
	pagination.PageInfo
	Conversations []Conversation `json:"conversations"`
}

type ListMessageRequest struct {
	pagination.Pagination
	ConversationID string `json:"-"`
}

type ListMessageResponse struct {
	pagination.PageInfo
	Messages []Message `json:"messages"`
}

type SendMessageRequest struct {
	ConversationID string        `json:"-"`
	Body           string        `json:"body"`
	QuickReplyID   string        `json:"quick_reply_id"`
	SentBy         *snowflake.ID `json:"-"`
}

// InboundMessage is a customer message delivered by the Cloud API webhook.
type InboundMessage struct {
	From        string
	ProfileName string
	Body        string
	ExternalID  string
	Timestamp   time.Time
}

// StatusUpdate is a delivery receipt for a message we sent.
type StatusUpdate struct {
	ExternalID string
	Status     string
	Timestamp  time.Time
	Error      string
}

type ConversationService interface {
	Upsert(ctx context.Context, req UpsertConversationRequest) (Conversation, error)
	List(ctx context.Context, req ListConversationRequest) (ListConversationResponse, error)
	Get(ctx context.Context, id string) (Conversation, error)
	MarkRead(ctx context.Context, id string) (Conversation, error)
	ListMessages(ctx context.Context, req ListMessageRequest) (ListMessageResponse, error)
	Send(ctx context.Context, req SendMessageRequest) (Message, error)
	ReceiveInbound(ctx context.Context, msg InboundMessage) (Message, error)
	ApplyStatus(ctx context.Context, update StatusUpdate) error
}

type CreateQuickReplyRequest struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Shortcut string `json:"shortcut"`
}

type QuickReplyService interface {
	List(ctx context.Context) ([]QuickReply, error)
	Create(ctx context.Context, req CreateQuickReplyRequest) (QuickReply, error)
	Delete(ctx context.Context, id string) error
}

type WebhookResult struct {
	Messages int `json:"messages"`
	Statuses int `json:"statuses"`
}

type WebhookService interface {
	// Verify answers the subscription handshake and returns the challenge
	// to echo back.
	Verify(mode, token, challenge string) (string, error)
	Handle(ctx context.Context, payload []byte, signature string) (WebhookResult, error)
}

type CreateContactListRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UpdateContactListRequest struct {
	ID          string  `json:"-"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type ListContactListRequest struct {
	pagination.Pagination
}

type ListContactListResponse struct {
	pagination.PageInfo
	Lists []ContactList `json:"lists"`
}

type AddContactRequest struct {
	ListID       string         `json:"-"`
	Name         string         `json:"name"`
	Phone        string         `json:"phone"`
	Tags         []string       `json:"tags"`
	CustomFields map[string]any `json:"custom_fields"`
}

type ListContactRequest struct {
	pagination.Pagination
	ListID string `json:"-"`
}

type ListContactResponse struct {
	pagination.PageInfo
	Contacts []Contact `json:"contacts"`
}

type CreateCampaignRequest struct {
	Name      string        `json:"name"`
	ListID    string        `json:"list_id"`
	Template  string        `json:"template"`
	CreatedBy *snowflake.ID `json:"-"`
}

type ListCampaignRequest struct {
	pagination.Pagination
}

type ListCampaignResponse struct {
	pagination.PageInfo
	Campaigns []Campaign `json:"campaigns"`
}

type ListRecipientRequest struct {
	pagination.Pagination
	CampaignID string `json:"-"`
}

type ListRecipientResponse struct {
	pagination.PageInfo
	Recipients []CampaignMessage `json:"recipients"`
}

type MarketingService interface {
	CreateList(ctx context.Context, req CreateContactListRequest) (ContactList, error)
	UpdateList(ctx context.Context, req UpdateContactListRequest) (ContactList, error)
	GetList(ctx context.Context, id string) (ContactList, error)
	ListLists(ctx context.Context, req ListContactListRequest) (ListContactListResponse, error)
	DeleteList(ctx context.Context, id string) error

	AddContact(ctx context.Context, req AddContactRequest) (Contact, error)
	ListContacts(ctx context.Context, req ListContactRequest) (ListContactResponse, error)
	RemoveContact(ctx context.Context, listID, contactID string) error

	CreateCampaign(ctx context.Context, req CreateCampaignRequest) (Campaign, error)
	GetCampaign(ctx context.Context, id string) (Campaign, error)
	ListCampaigns(ctx context.Context, req ListCampaignRequest) (ListCampaignResponse, error)
	// SendCampaign delivers the campaign to every contact of its list and
	// returns the resulting analytics. It blocks until the last recipient
	// is processed or ctx is cancelled.
	SendCampaign(ctx context.Context, id string) (CampaignAnalytics, error)
	Analytics(ctx context.Context, id string) (CampaignAnalytics, error)
	ListRecipients(ctx context.Context, req ListRecipientRequest) (ListRecipientResponse, error)
}

type SuggestRequest struct {
	ConversationID string `json:"conversation_id"`
	CustomerID     string `json:"customer_id"`
	Context        string `json:"context"`
}

type SuggestResponse struct {
	Success           bool    `json:"success"`
	SuggestionID      string  `json:"suggestion_id"`
	SuggestedResponse string  `json:"suggested_response"`
	ConfidenceScore   float64 `json:"confidence_score"`
	NeedsEscalation   bool    `json:"needs_escalation"`
	RequiresApproval  bool    `json:"requires_approval"`
}

type AssistantService interface {
	Suggest(ctx context.Context, req SuggestRequest) (SuggestResponse, error)
	ListSuggestions(ctx context.Context, conversationID string) ([]Suggestion, error)
}

// Sender delivers a text message to a phone number and returns the upstream
// message id.
type Sender interface {
	SendText(ctx context.Context, to, body string) (string, error)
}
