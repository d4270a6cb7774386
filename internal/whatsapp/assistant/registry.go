package assistant

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/glazeops/internal/cache"
	"github.com/smallbiznis/glazeops/internal/config"
	"github.com/smallbiznis/glazeops/internal/observability/tracing"
	settingsdomain "github.com/smallbiznis/glazeops/internal/settings/domain"
	"github.com/smallbiznis/glazeops/internal/whatsapp/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultTimeout = 15 * time.Second
	generatorTTL   = time.Hour
)

type RegistryParams struct {
	fx.In

	Cfg      config.Config
	Log      *zap.Logger
	Settings settingsdomain.Accessor
}

// Registry builds the generator for the configured AI provider. Built
// generators are cached per settings revision, so an edit to the AI settings
// takes effect on the next request.
type Registry struct {
	settings settingsdomain.Accessor
	http     *http.Client
	baseURLs map[string]string
	cache    cache.Cache[string, Generator]
	log      *zap.Logger
}

// Resolved is a generator with the settings it was built from.
type Resolved struct {
	Generator Generator
	Provider  string
	Model     string
}

func NewRegistry(p RegistryParams) *Registry {
	timeout := p.Cfg.Gateways.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Registry{
		settings: p.Settings,
		http:     tracing.WrapHTTPClient(&http.Client{Timeout: timeout}),
		baseURLs: map[string]string{
			settingsdomain.AIProviderOpenAI:    strings.TrimRight(p.Cfg.Gateways.OpenAIBaseURL, "/"),
			settingsdomain.AIProviderAnthropic: strings.TrimRight(p.Cfg.Gateways.AnthropicBaseURL, "/"),
			settingsdomain.AIProviderGemini:    strings.TrimRight(p.Cfg.Gateways.GeminiBaseURL, "/"),
		},
		cache: cache.NewTTLCache[string, Generator](),
		log:   p.Log.Named("whatsapp.assistant.registry"),
	}
}

func (r *Registry) Resolve(ctx context.Context) (Resolved, error) {
	creds, err := r.settings.AI(ctx)
	if err != nil {
		return Resolved{}, err
	}
	provider := strings.ToLower(strings.TrimSpace(creds.Provider))
	model := strings.TrimSpace(creds.Model)
	if model == "" {
		model = defaultModel(provider)
	}

	key := fmt.Sprintf("%s|%s|%d", provider, model, creds.Revision.UnixNano())
	if gen, ok := r.cache.Get(key); ok {
		return Resolved{Generator: gen, Provider: provider, Model: model}, nil
	}

	gen, err := r.build(context.WithoutCancel(ctx), provider, options{
		baseURL:      r.baseURLs[provider],
		apiKey:       creds.APIKey,
		model:        model,
		systemPrompt: strings.TrimSpace(creds.SystemPrompt),
		temperature:  creds.Temperature,
	})
	if err != nil {
		return Resolved{}, err
	}
	r.cache.Set(key, gen, generatorTTL)
	r.log.Info("built ai generator", zap.String("provider", provider), zap.String("model", model))
	return Resolved{Generator: gen, Provider: provider, Model: model}, nil
}

func (r *Registry) build(ctx context.Context, provider string, opts options) (Generator, error) {
	switch provider {
	case settingsdomain.AIProviderOpenAI:
		return &openAIGenerator{http: r.http, opts: opts}, nil
	case settingsdomain.AIProviderAnthropic:
		return &anthropicGenerator{http: r.http, opts: opts}, nil
	case settingsdomain.AIProviderGemini:
		gen, err := newGeminiGenerator(ctx, opts)
		if err != nil {
			return nil, err
		}
		return gen, nil
	default:
		return nil, domain.ErrUnsupportedProvider
	}
}

func defaultModel(provider string) string {
	switch provider {
	case settingsdomain.AIProviderAnthropic:
		return defaultAnthropicModel
	case settingsdomain.AIProviderGemini:
		return defaultGeminiModel
	default:
		return defaultOpenAIModel
	}
}
