package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/glazeops/internal/clock"
	"github.com/smallbiznis/glazeops/internal/config"
	"github.com/smallbiznis/glazeops/internal/observability/metrics"
	"github.com/smallbiznis/glazeops/internal/whatsapp/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	historyMessages    = 20
	listSuggestions    = 50
	fallbackConfidence = 0.5
)

const instructions = `You draft WhatsApp replies for a glass and aluminium fabrication company.
Read the conversation below and write the next reply to the customer.
Answer with a JSON object only: {"response": string, "confidence": number between 0 and 1, "needs_escalation": boolean}.
Set needs_escalation when the customer complains, asks for a refund, or needs a price you cannot confirm.`

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Registry *Registry
	Payments *config.PaymentsConfigHolder
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	registry *Registry
	payments *config.PaymentsConfigHolder
	metrics  *metrics.Metrics
}

func New(p Params) domain.AssistantService {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("whatsapp.assistant"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		registry: p.Registry,
		payments: p.Payments,
		metrics:  p.Metrics,
	}
}

type reply struct {
	Response        string   `json:"response"`
	Confidence      *float64 `json:"confidence"`
	NeedsEscalation bool     `json:"needs_escalation"`
}

// Suggest drafts a reply for a conversation. When no context is supplied the
// recent message history is used. The draft needs approval when the model
// asks for escalation or its confidence is under the auto-approve threshold.
func (s *Service) Suggest(ctx context.Context, req domain.SuggestRequest) (domain.SuggestResponse, error) {
	conversationID, err := parseID(req.ConversationID)
	if err != nil {
		return domain.SuggestResponse{}, err
	}
	customerID, err := parseID(req.CustomerID)
	if err != nil {
		return domain.SuggestResponse{}, err
	}
	conversation, err := s.repo.FindConversation(ctx, s.db, conversationID)
	if err != nil {
		return domain.SuggestResponse{}, err
	}
	if conversation == nil {
		return domain.SuggestResponse{}, domain.ErrConversationNotFound
	}
	if conversation.CustomerID != customerID {
		return domain.SuggestResponse{}, domain.ErrConversationMismatch
	}

	tuning := s.payments.Get().Assistant
	transcript := strings.TrimSpace(req.Context)
	if tuning.MaxContextChars > 0 && utf8.RuneCountInString(transcript) > tuning.MaxContextChars {
		return domain.SuggestResponse{}, domain.ErrContextTooLong
	}
	if transcript == "" {
		transcript, err = s.history(ctx, conversation.ID, tuning.MaxContextChars)
		if err != nil {
			return domain.SuggestResponse{}, err
		}
	}
	if transcript == "" {
		return domain.SuggestResponse{}, domain.ErrEmptyContext
	}

	resolved, err := s.registry.Resolve(ctx)
	if err != nil {
		return domain.SuggestResponse{}, err
	}
	raw, err := resolved.Generator.Generate(ctx, instructions+"\n\nConversation:\n"+transcript)
	if err != nil {
		s.metrics.RecordAssistantRequest(ctx, resolved.Provider, "error")
		s.log.Warn("ai provider request failed",
			zap.String("provider", resolved.Provider),
			zap.String("conversation_id", conversation.ID.String()),
			zap.Error(err),
		)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domain.SuggestResponse{}, err
		}
		if !errors.Is(err, domain.ErrAssistantUnavailable) {
			err = errors.Join(domain.ErrAssistantUnavailable, err)
		}
		return domain.SuggestResponse{}, err
	}

	parsed := parseReply(raw)
	if strings.TrimSpace(parsed.Response) == "" {
		s.metrics.RecordAssistantRequest(ctx, resolved.Provider, "empty")
		return domain.SuggestResponse{}, domain.ErrAssistantUnavailable
	}
	confidence := fallbackConfidence
	if parsed.Confidence != nil {
		confidence = clamp(*parsed.Confidence)
	}
	requiresApproval := parsed.NeedsEscalation || confidence < tuning.AutoApproveThreshold

	suggestion := domain.Suggestion{
		ID:                s.genID.Generate(),
		ConversationID:    conversation.ID,
		CustomerID:        customerID,
		Provider:          resolved.Provider,
		Model:             resolved.Model,
		SuggestedResponse: strings.TrimSpace(parsed.Response),
		ConfidenceScore:   decimal.NewFromFloat(confidence).Round(4),
		NeedsEscalation:   parsed.NeedsEscalation,
		RequiresApproval:  requiresApproval,
		CreatedAt:         s.clock.Now(),
	}
	if err := s.repo.InsertSuggestion(ctx, s.db, &suggestion); err != nil {
		return domain.SuggestResponse{}, err
	}
	s.metrics.RecordAssistantRequest(ctx, resolved.Provider, "success")

	return domain.SuggestResponse{
		Success:           true,
		SuggestionID:      suggestion.ID.String(),
		SuggestedResponse: suggestion.SuggestedResponse,
		ConfidenceScore:   confidence,
		NeedsEscalation:   suggestion.NeedsEscalation,
		RequiresApproval:  requiresApproval,
	}, nil
}

// history renders the latest messages oldest first, keeping the newest lines
// when the transcript exceeds limit runes.
func (s *Service) history(ctx context.Context, conversationID snowflake.ID, limit int) (string, error) {
	messages, err := s.repo.RecentMessages(ctx, s.db, conversationID, historyMessages)
	if err != nil {
		return "", err
	}
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		speaker := "Agent"
		if m.Direction == domain.DirectionInbound {
			speaker = "Customer"
		}
		lines = append(lines, speaker+": "+strings.TrimSpace(m.Body))
	}
	for limit > 0 && len(lines) > 1 && utf8.RuneCountInString(strings.Join(lines, "\n")) > limit {
		lines = lines[1:]
	}
	out := strings.Join(lines, "\n")
	if limit > 0 && utf8.RuneCountInString(out) > limit {
		runes := []rune(out)
		out = string(runes[len(runes)-limit:])
	}
	return out, nil
}

func (s *Service) ListSuggestions(ctx context.Context, rawConversationID string) ([]domain.Suggestion, error) {
	conversationID, err := parseID(rawConversationID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListSuggestions(ctx, s.db, conversationID, listSuggestions)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Suggestion, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out, nil
}

// parseReply reads the model's JSON answer. Models sometimes wrap it in a code
// fence or surrounding prose; anything unparseable is taken as the reply text.
func parseReply(raw string) reply {
	text := strings.TrimSpace(raw)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		var out reply
		if err := json.Unmarshal([]byte(text[start:end+1]), &out); err == nil && out.Response != "" {
			return out
		}
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.Trim(text, "`")
	return reply{Response: strings.TrimSpace(text)}
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
