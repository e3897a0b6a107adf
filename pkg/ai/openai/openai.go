package openai

import (
	"strings"
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/podgraph/backend/pkg/ai"
)

// ResolverOpenAIClient is an OpenAI-backed implementation of
// ai.ResolverAIClient. It tracks token usage and dollar cost across
// calls so resolution runs can report spend.
type ResolverOpenAIClient struct {
	matchModel string

	chatURL string
	chatKey string

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient *openai.Client
}

// NewResolverOpenAIClientParams configures a new ResolverOpenAIClient.
// MatchModel is the model used for semantic match verdicts. ChatURL may
// point to any OpenAI-compatible endpoint; empty means api.openai.com.
type NewResolverOpenAIClientParams struct {
	MatchModel string

	ChatURL string
	ChatKey string
}

// NewResolverOpenAIClient creates a client for the configured endpoint.
func NewResolverOpenAIClient(params NewResolverOpenAIClientParams) *ResolverOpenAIClient {
	return &ResolverOpenAIClient{
		matchModel: params.MatchModel,
		chatURL:    params.ChatURL,
		chatKey:    params.ChatKey,

		metricsLock: sync.Mutex{},
		metrics:     ai.ModelMetrics{},

		ChatClient: newOpenaiClient(params.ChatURL, params.ChatKey),
	}
}

func newOpenaiClient(baseURL string, apiKey string) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)
	return &client
}

// modelPrice holds dollar cost per one million tokens.
type modelPrice struct {
	input  float64
	output float64
}

var modelPricing = map[string]modelPrice{
	"gpt-4o":       {input: 2.50, output: 10.00},
	"gpt-4o-mini":  {input: 0.15, output: 0.60},
	"gpt-4.1":      {input: 2.00, output: 8.00},
	"gpt-4.1-mini": {input: 0.40, output: 1.60},
	"gpt-5":        {input: 1.25, output: 10.00},
	"gpt-5-mini":   {input: 0.25, output: 2.00},
}

func costFor(model string, inputTokens, outputTokens int) float64 {
	price, ok := modelPricing[model]
	if !ok {
		for prefix, p := range modelPricing {
			if strings.HasPrefix(model, prefix) {
				price = p
				ok = true
				break
			}
		}
	}
	if !ok {
		return 0
	}
	return float64(inputTokens)*price.input/1e6 + float64(outputTokens)*price.output/1e6
}

func (c *ResolverOpenAIClient) modifyMetrics(delta ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics.InputTokens += delta.InputTokens
	c.metrics.OutputTokens += delta.OutputTokens
	c.metrics.TotalTokens += delta.TotalTokens
	c.metrics.DurationMs += delta.DurationMs
	c.metrics.CostUSD += delta.CostUSD
}

// ResetMetrics clears the accumulated metrics.
func (c *ResolverOpenAIClient) ResetMetrics() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics = ai.ModelMetrics{}
}

// GetMetrics returns a snapshot of the accumulated metrics.
func (c *ResolverOpenAIClient) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}
