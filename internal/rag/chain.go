package rag

import (
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"

	"github.com/kynahq/kyna/internal/embed"
	"github.com/kynahq/kyna/internal/index"
	"github.com/kynahq/kyna/internal/llm"
	"github.com/kynahq/kyna/internal/log"
	"github.com/kynahq/kyna/internal/memory"
)

// emptyContext stands in for the context block when retrieval finds nothing.
// The model is still called so the refusal is phrased by the prompt, not
// synthesized by this package.
const emptyContext = "No relevant documents were found in the knowledge base."

// ChainConfig tunes retrieval for the answer pipeline.
type ChainConfig struct {
	TopK           int
	SearchMode     string
	ScoreThreshold float64
	// PromptPath optionally overrides the built-in answer prompt.
	PromptPath string
}

// Source is one retrieved chunk that grounded an answer.
type Source struct {
	DocumentID uuid.UUID `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	Content    string    `json:"content"`
	Score      float64   `json:"score"`
}

// Answer is the result of one question.
type Answer struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Sources  []Source `json:"sources"`
}

// Chain answers questions against the ingested corpus.
type Chain struct {
	embedder  embed.Embedder
	retriever Retriever
	model     llm.Client
	sessions  memory.Store
	prompt    *template.Template
	cfg       ChainConfig
	logger    log.Logger
}

// NewChain builds the answer pipeline. The prompt template is loaded once
// at construction; a broken template file fails here, not per request.
func NewChain(
	embedder embed.Embedder,
	retriever Retriever,
	model llm.Client,
	sessions memory.Store,
	cfg ChainConfig,
	logger log.Logger,
) (*Chain, error) {
	tmpl, err := loadPrompt(cfg.PromptPath, logger)
	if err != nil {
		return nil, err
	}
	return &Chain{
		embedder:  embedder,
		retriever: retriever,
		model:     model,
		sessions:  sessions,
		prompt:    tmpl,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// Ask answers a question. With a non-empty sessionID the session's prior
// turns are sent as conversation history and the new exchange is recorded;
// with an empty sessionID the question is stateless.
func (c *Chain) Ask(ctx context.Context, question, sessionID string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	start := time.Now()

	vector, err := c.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	results, err := c.retriever.Search(ctx, vector,
		index.WithTopK(c.cfg.TopK),
		index.WithMode(c.cfg.SearchMode),
		index.WithScoreThreshold(c.cfg.ScoreThreshold),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrieval, err)
	}

	prompt, err := c.renderPrompt(question, results)
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	var history []llm.Message
	if sessionID != "" {
		turns, err := c.sessions.History(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("loading session history: %w", err)
		}
		history = toMessages(turns)
	}

	answerText, err := c.model.Generate(ctx, llm.Request{
		History: history,
		Prompt:  prompt,
	})
	if err != nil {
		return nil, err
	}

	if sessionID != "" {
		turn := memory.Turn{Question: question, Answer: answerText, AskedAt: time.Now().UTC()}
		if err := c.sessions.Append(ctx, sessionID, turn); err != nil {
			return nil, fmt.Errorf("recording session turn: %w", err)
		}
	}

	c.logger.Info("question answered",
		"session_id", sessionID,
		"sources", len(results),
		"duration", time.Since(start),
	)

	return &Answer{
		Question: question,
		Answer:   answerText,
		Sources:  toSources(results),
	}, nil
}

// History returns the retained turns for a session, oldest first.
func (c *Chain) History(ctx context.Context, sessionID string) ([]memory.Turn, error) {
	return c.sessions.History(ctx, sessionID)
}

// ClearSession discards a session's history.
func (c *Chain) ClearSession(ctx context.Context, sessionID string) error {
	return c.sessions.Clear(ctx, sessionID)
}

func (c *Chain) renderPrompt(question string, results []index.Result) (string, error) {
	contextBlock := emptyContext
	if len(results) > 0 {
		parts := make([]string, len(results))
		for i, res := range results {
			parts[i] = res.Chunk.Content
		}
		contextBlock = strings.Join(parts, "\n\n---\n\n")
	}

	var sb strings.Builder
	if err := c.prompt.Execute(&sb, promptData{Context: contextBlock, Question: question}); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func toMessages(turns []memory.Turn) []llm.Message {
	if len(turns) == 0 {
		return nil
	}
	messages := make([]llm.Message, 0, len(turns)*2)
	for _, turn := range turns {
		messages = append(messages,
			llm.Message{Role: llm.RoleUser, Content: turn.Question},
			llm.Message{Role: llm.RoleModel, Content: turn.Answer},
		)
	}
	return messages
}

func toSources(results []index.Result) []Source {
	sources := make([]Source, len(results))
	for i, res := range results {
		sources[i] = Source{
			DocumentID: res.Chunk.DocumentID,
			ChunkIndex: res.Chunk.Index,
			Content:    res.Chunk.Content,
			Score:      res.Score,
		}
	}
	return sources
}
