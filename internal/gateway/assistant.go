// OpenAI-backed assistant transport.
package gateway

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/sietch-labs/sietch/pkg/types"
)

// OpenAIClient implements AssistantClient on the OpenAI chat
// completions API. A custom base URL points it at any compatible
// endpoint, including local models.
type OpenAIClient struct {
	client openai.Client
	model  string
}

var _ AssistantClient = (*OpenAIClient)(nil)

// NewOpenAIClient builds a client from config. The API key comes from
// the OPENAI_API_KEY environment variable.
func NewOpenAIClient(config types.AssistantConfig) *OpenAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	model := config.Model
	if model == "" {
		model = types.DefaultAssistantModel
	}
	return &OpenAIClient{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// Complete performs one chat completion. Cancellation and deadlines
// propagate through ctx.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: messages,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
