package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/kynahq/kyna/internal/log"
)

// GenkitClient generates completions through a Genkit-registered model.
type GenkitClient struct {
	g           *genkit.Genkit
	modelName   string
	temperature float64
	maxTokens   int
	logger      log.Logger
}

// NewGenkit creates a gateway bound to the given provider-qualified model
// name, e.g. "googleai/gemini-2.0-flash".
func NewGenkit(g *genkit.Genkit, modelName string, temperature float32, maxTokens int, logger log.Logger) *GenkitClient {
	return &GenkitClient{
		g:           g,
		modelName:   modelName,
		temperature: float64(temperature),
		maxTokens:   maxTokens,
		logger:      logger,
	}
}

// Generate sends the request to the model and returns the response text.
func (c *GenkitClient) Generate(ctx context.Context, req Request) (string, error) {
	opts := []ai.GenerateOption{
		ai.WithModelName(c.modelName),
		ai.WithConfig(&ai.GenerationCommonConfig{
			Temperature:     c.temperature,
			MaxOutputTokens: c.maxTokens,
		}),
	}
	if req.System != "" {
		opts = append(opts, ai.WithSystem(req.System))
	}

	messages := make([]*ai.Message, 0, len(req.History)+1)
	for _, msg := range req.History {
		switch msg.Role {
		case RoleModel:
			messages = append(messages, ai.NewModelTextMessage(msg.Content))
		default:
			messages = append(messages, ai.NewUserTextMessage(msg.Content))
		}
	}
	messages = append(messages, ai.NewUserTextMessage(req.Prompt))
	opts = append(opts, ai.WithMessages(messages...))

	resp, err := genkit.Generate(ctx, c.g, opts...)
	if err != nil {
		c.logger.Error("model call failed", "model", c.modelName, "error", err)
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: model returned empty response", ErrGeneration)
	}
	return text, nil
}
