package domain

import "errors"

var (
	ErrInvalidID            = errors.New("invalid_id")
	ErrCustomerNotFound     = errors.New("customer_not_found")
	ErrConversationNotFound = errors.New("conversation_not_found")
	ErrEmptyBody            = errors.New("empty_message_body")
	ErrBodyTooLong          = errors.New("message_body_too_long")
	ErrQuickReplyNotFound   = errors.New("quick_reply_not_found")
	ErrInvalidTitle         = errors.New("invalid_title")
	ErrInvalidName          = errors.New("invalid_name")
	ErrInvalidPhone         = errors.New("invalid_phone")
	ErrListNotFound         = errors.New("contact_list_not_found")
	ErrListInUse            = errors.New("contact_list_in_use")
	ErrContactExists        = errors.New("contact_already_exists")
	ErrContactNotFound      = errors.New("contact_not_found")
	ErrCampaignNotFound     = errors.New("campaign_not_found")
	ErrInvalidTemplate      = errors.New("invalid_template")
	ErrCampaignNotSendable  = errors.New("campaign_not_sendable")
	ErrEmptyList            = errors.New("contact_list_empty")
	ErrSenderNotConfigured  = errors.New("whatsapp_not_configured")
	ErrSendFailed           = errors.New("whatsapp_send_failed")
	ErrInvalidSignature     = errors.New("invalid_signature")
	ErrInvalidVerifyToken   = errors.New("invalid_verify_token")
	ErrInvalidPayload       = errors.New("invalid_payload")
	ErrEmptyContext         = errors.New("empty_context")
	ErrContextTooLong       = errors.New("context_too_long")
	ErrUnsupportedProvider  = errors.New("unsupported_ai_provider")
	ErrAssistantUnavailable = errors.New("ai_provider_error")
	ErrConversationMismatch = errors.New("conversation_customer_mismatch")
)
