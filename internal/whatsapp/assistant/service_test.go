package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/generative-ai-go/genai"
	"github.com/smallbiznis/glazeops/internal/clock"
	"github.com/smallbiznis/glazeops/internal/config"
	settingsdomain "github.com/smallbiznis/glazeops/internal/settings/domain"
	"github.com/smallbiznis/glazeops/internal/testutil"
	"github.com/smallbiznis/glazeops/internal/whatsapp/domain"
	"github.com/smallbiznis/glazeops/internal/whatsapp/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeSettings struct {
	settingsdomain.Accessor
	creds settingsdomain.AICredentials
	err   error
}

func (f *fakeSettings) AI(context.Context) (settingsdomain.AICredentials, error) {
	return f.creds, f.err
}

type fixture struct {
	db           *gorm.DB
	node         *snowflake.Node
	repo         domain.Repository
	settings     *fakeSettings
	svc          domain.AssistantService
	conversation domain.Conversation
}

func newFixture(t *testing.T, baseURL string) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	node := testutil.NewNode(t)
	repo := repository.Provide()
	clk := clock.NewFakeClock(time.Date(2026, 5, 11, 12, 0, 0, 0, time.UTC))
	settings := &fakeSettings{creds: settingsdomain.AICredentials{
		Provider:     settingsdomain.AIProviderOpenAI,
		APIKey:       "sk-test",
		SystemPrompt: "Be brief.",
		Temperature:  0.2,
		Revision:     time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	}}
	registry := NewRegistry(RegistryParams{
		Cfg: config.Config{Gateways: config.GatewayConfig{
			HTTPTimeout:      2 * time.Second,
			OpenAIBaseURL:    baseURL,
			AnthropicBaseURL: baseURL,
			GeminiBaseURL:    baseURL,
		}},
		Log:      testutil.Logger(),
		Settings: settings,
	})
	svc := New(Params{
		DB:       db,
		Log:      testutil.Logger(),
		GenID:    node,
		Clock:    clk,
		Repo:     repo,
		Registry: registry,
		Payments: config.NewStaticPaymentsConfigHolder(config.DefaultPaymentsConfig()),
	})

	ctx := context.Background()
	customerID := testutil.SeedCustomer(t, db, node, "Salma")
	conversation := domain.Conversation{
		ID:         node.Generate(),
		CustomerID: customerID,
		Phone:      "+971500000001",
		Status:     domain.ConversationOpen,
		CreatedAt:  clk.Now(),
		UpdatedAt:  clk.Now(),
	}
	_, err := repo.InsertConversation(ctx, db, &conversation)
	require.NoError(t, err)
	return &fixture{db: db, node: node, repo: repo, settings: settings, svc: svc, conversation: conversation}
}

func (f *fixture) addMessage(t *testing.T, direction, body string) {
	t.Helper()
	msg := domain.Message{
		ID:             f.node.Generate(),
		ConversationID: f.conversation.ID,
		Direction:      direction,
		Body:           body,
		Status:         domain.StatusReceived,
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, f.repo.InsertMessage(context.Background(), f.db, &msg))
}

func (f *fixture) request(text string) domain.SuggestRequest {
	return domain.SuggestRequest{
		ConversationID: f.conversation.ID.String(),
		CustomerID:     f.conversation.CustomerID.String(),
		Context:        text,
	}
}

func openAIServer(t *testing.T, content string, prompts *[]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var body openAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, defaultOpenAIModel, body.Model)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "Be brief.", body.Messages[0].Content)
		if prompts != nil {
			*prompts = append(*prompts, body.Messages[1].Content)
		}
		resp := map[string]any{"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSuggestAutoApproved(t *testing.T) {
	srv := openAIServer(t, `{"response":"We can measure on Tuesday morning.","confidence":0.92,"needs_escalation":false}`, nil)
	f := newFixture(t, srv.URL)

	resp, err := f.svc.Suggest(context.Background(), f.request("Customer: When can you measure the balcony?"))
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "We can measure on Tuesday morning.", resp.SuggestedResponse)
	assert.InDelta(t, 0.92, resp.ConfidenceScore, 1e-9)
	assert.False(t, resp.RequiresApproval)

	stored, err := f.svc.ListSuggestions(context.Background(), f.conversation.ID.String())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, resp.SuggestionID, stored[0].ID.String())
	assert.Equal(t, settingsdomain.AIProviderOpenAI, stored[0].Provider)
	assert.Equal(t, "0.92", stored[0].ConfidenceScore.String())
}

func TestSuggestRequiresApproval(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"low confidence", `{"response":"Maybe next week.","confidence":0.4,"needs_escalation":false}`},
		{"escalation", `{"response":"I will pass this to our manager.","confidence":0.95,"needs_escalation":true}`},
		{"plain text", "Thanks, we will call you shortly."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := openAIServer(t, tc.content, nil)
			f := newFixture(t, srv.URL)
			resp, err := f.svc.Suggest(context.Background(), f.request("Customer: The glass door is cracked, I want a refund"))
			require.NoError(t, err)
			assert.True(t, resp.RequiresApproval)
			assert.NotEmpty(t, resp.SuggestedResponse)
		})
	}
}

func TestSuggestBuildsContextFromHistory(t *testing.T) {
	var prompts []string
	srv := openAIServer(t, `{"response":"Yes, 10mm tempered.","confidence":0.85}`, &prompts)
	f := newFixture(t, srv.URL)
	f.addMessage(t, domain.DirectionInbound, "Is the shower glass tempered?")
	f.addMessage(t, domain.DirectionOutbound, "Let me check with the workshop.")

	_, err := f.svc.Suggest(context.Background(), f.request(""))
	require.NoError(t, err)
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "Customer: Is the shower glass tempered?\nAgent: Let me check with the workshop.")
}

func TestSuggestValidates(t *testing.T) {
	srv := openAIServer(t, `{"response":"ok","confidence":1}`, nil)
	f := newFixture(t, srv.URL)
	ctx := context.Background()

	_, err := f.svc.Suggest(ctx, f.request(strings.Repeat("x", config.DefaultPaymentsConfig().Assistant.MaxContextChars+1)))
	assert.ErrorIs(t, err, domain.ErrContextTooLong)

	_, err = f.svc.Suggest(ctx, f.request(""))
	assert.ErrorIs(t, err, domain.ErrEmptyContext)

	req := f.request("hi")
	req.CustomerID = f.node.Generate().String()
	_, err = f.svc.Suggest(ctx, req)
	assert.ErrorIs(t, err, domain.ErrConversationMismatch)

	req = f.request("hi")
	req.ConversationID = f.node.Generate().String()
	_, err = f.svc.Suggest(ctx, req)
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)

	f.settings.err = settingsdomain.ErrNotConfigured
	_, err = f.svc.Suggest(ctx, f.request("hi"))
	assert.ErrorIs(t, err, settingsdomain.ErrNotConfigured)

	f.settings.err = nil
	f.settings.creds.Provider = "mistral"
	_, err = f.svc.Suggest(ctx, f.request("hi"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedProvider)
}

func TestSuggestProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()
	f := newFixture(t, srv.URL)

	_, err := f.svc.Suggest(context.Background(), f.request("hi"))
	require.ErrorIs(t, err, domain.ErrAssistantUnavailable)
	assert.Contains(t, err.Error(), "429")
	assert.Equal(t, int64(0), testutil.Count(t, f.db, "whatsapp_ai_suggestions", ""))
}

func TestRegistryCachesPerRevision(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch {
		case r.URL.Path == "/messages":
			assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
			assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
			_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"response\":\"hi\"}"}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	settings := &fakeSettings{creds: settingsdomain.AICredentials{
		Provider: settingsdomain.AIProviderAnthropic,
		APIKey:   "sk-test",
		Revision: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	}}
	registry := NewRegistry(RegistryParams{
		Cfg:      config.Config{Gateways: config.GatewayConfig{AnthropicBaseURL: srv.URL}},
		Log:      testutil.Logger(),
		Settings: settings,
	})
	ctx := context.Background()

	first, err := registry.Resolve(ctx)
	require.NoError(t, err)
	second, err := registry.Resolve(ctx)
	require.NoError(t, err)
	assert.Same(t, first.Generator, second.Generator)
	assert.Equal(t, defaultAnthropicModel, first.Model)

	out, err := first.Generator.Generate(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, `{"response":"hi"}`, out)

	settings.creds.Provider = settingsdomain.AIProviderGemini
	settings.creds.Revision = settings.creds.Revision.Add(time.Minute)
	third, err := registry.Resolve(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first.Generator, third.Generator)
	assert.Equal(t, defaultGeminiModel, third.Model)
	assert.IsType(t, &geminiGenerator{}, third.Generator)
	assert.Equal(t, int32(1), calls.Load())
}

type fakeGeminiModel struct {
	resp   *genai.GenerateContentResponse
	err    error
	prompt []genai.Part
}

func (f *fakeGeminiModel) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.prompt = parts
	return f.resp, f.err
}

func TestGeminiGenerator(t *testing.T) {
	ctx := context.Background()

	model := &fakeGeminiModel{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"response":`), genai.Text(`"hello"}`)}},
		}},
	}}
	out, err := (&geminiGenerator{model: model}).Generate(ctx, "hi there")
	require.NoError(t, err)
	assert.Equal(t, `{"response":"hello"}`, out)
	assert.Equal(t, []genai.Part{genai.Text("hi there")}, model.prompt)

	_, err = (&geminiGenerator{model: &fakeGeminiModel{resp: &genai.GenerateContentResponse{}}}).Generate(ctx, "hi")
	assert.ErrorIs(t, err, domain.ErrAssistantUnavailable)

	_, err = (&geminiGenerator{model: &fakeGeminiModel{err: errors.New("quota exceeded")}}).Generate(ctx, "hi")
	require.ErrorIs(t, err, domain.ErrAssistantUnavailable)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestParseReply(t *testing.T) {
	got := parseReply("```json\n{\"response\":\"Sure\",\"confidence\":0.7}\n```")
	assert.Equal(t, "Sure", got.Response)
	require.NotNil(t, got.Confidence)
	assert.InDelta(t, 0.7, *got.Confidence, 1e-9)

	plain := parseReply("We are open until 6pm.")
	assert.Equal(t, "We are open until 6pm.", plain.Response)
	assert.Nil(t, plain.Confidence)

	assert.Equal(t, 1.0, clamp(3))
	assert.Equal(t, 0.0, clamp(-1))
}
