package llmprovider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/trace"

	"github.com/janhq/support-chat/internal/domain/conversation"
	"github.com/janhq/support-chat/internal/domain/generation"
	"github.com/janhq/support-chat/internal/infrastructure/metrics"
	"github.com/janhq/support-chat/internal/infrastructure/observability"
)

const (
	modeOneShot = "oneshot"
	modeStream  = "stream"

	probeTimeout = 5 * time.Second
)

// Config holds the upstream model settings.
type Config struct {
	APIKey             string
	BaseURL            string
	Model              string
	Temperature        float32
	MaxTokens          int
	MaxHistoryMessages int
	Timeout            time.Duration
	SystemPrompt       string
}

// Client implements generation.Generator against an OpenAI-compatible chat completions API.
type Client struct {
	api   *openai.Client
	probe *resty.Client
	cfg   Config
	log   zerolog.Logger
}

// NewClient creates the go-openai client and a Resty client for readiness probes.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	apiConfig := openai.DefaultConfig(cfg.APIKey)
	if baseURL != "" {
		apiConfig.BaseURL = baseURL
	}

	probe := resty.New().
		SetBaseURL(apiConfig.BaseURL).
		SetHeader("Accept", "application/json").
		SetTimeout(probeTimeout)
	if cfg.APIKey != "" {
		probe.SetAuthToken(cfg.APIKey)
	}

	return &Client{
		api:   openai.NewClientWithConfig(apiConfig),
		probe: probe,
		cfg:   cfg,
		log:   log.With().Str("component", "llm-provider").Str("model", cfg.Model).Logger(),
	}
}

var _ generation.Generator = (*Client)(nil)

// Generate drains one streamed completion so both capabilities share the same run shape.
func (c *Client) Generate(ctx context.Context, history []conversation.Message, userText string) (string, error) {
	stream, err := c.open(ctx, history, userText, modeOneShot)
	if err != nil {
		return "", err
	}

	text, err := generation.Collect(stream)
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", generation.NewError(generation.KindMalformed, errors.New("empty completion"))
	}
	return text, nil
}

// GenerateStream opens a streamed completion bounded by the configured timeout.
func (c *Client) GenerateStream(ctx context.Context, history []conversation.Message, userText string) (generation.Stream, error) {
	stream, err := c.open(ctx, history, userText, modeStream)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// Ping checks that the upstream answers its models endpoint.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.probe.R().SetContext(ctx).Get("/models")
	if err != nil {
		return fmt.Errorf("probe llm upstream: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("probe llm upstream: status %d", resp.StatusCode())
	}
	return nil
}

func (c *Client) open(ctx context.Context, history []conversation.Message, userText, mode string) (*chatStream, error) {
	recent := generation.Recent(history, c.cfg.MaxHistoryMessages)
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	ctx, span := observability.StartGenerationSpan(ctx, mode, c.cfg.Model, len(recent))

	stream := &chatStream{
		ctx:    ctx,
		cancel: cancel,
		span:   span,
		mode:   mode,
		start:  start,
		log:    c.log,
	}

	upstream, err := c.api.CreateChatCompletionStream(ctx, c.request(recent, userText))
	if err != nil {
		genErr := stream.classify(err)
		stream.finish(string(genErr.Kind), genErr)
		return nil, genErr
	}
	stream.upstream = upstream
	return stream, nil
}

func (c *Client) request(history []conversation.Message, userText string) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: c.cfg.SystemPrompt,
	})
	for _, msg := range history {
		role := openai.ChatMessageRoleUser
		if msg.Sender == conversation.SenderAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: msg.Text})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userText,
	})

	return openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		Stream:      true,
	}
}

// chatStream adapts a go-openai stream to generation.Stream, skipping empty deltas.
type chatStream struct {
	ctx      context.Context
	cancel   context.CancelFunc
	upstream *openai.ChatCompletionStream
	span     trace.Span
	mode     string
	start    time.Time
	chunks   int
	once     sync.Once
	log      zerolog.Logger
}

func (s *chatStream) Recv() (string, error) {
	for {
		resp, err := s.upstream.Recv()
		if errors.Is(err, io.EOF) {
			s.finish("ok", nil)
			return "", io.EOF
		}
		if err != nil {
			genErr := s.classify(err)
			s.finish(string(genErr.Kind), genErr)
			return "", genErr
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}
		if s.chunks == 0 {
			observability.AddChunkEvent(s.span, 0)
		}
		s.chunks++
		return resp.Choices[0].Delta.Content, nil
	}
}

func (s *chatStream) Close() error {
	var err error
	if s.upstream != nil {
		err = s.upstream.Close()
	}
	s.finish("closed", nil)
	return err
}

// classify prefers the run's own deadline over whatever error the transport surfaced.
func (s *chatStream) classify(err error) *generation.Error {
	if errors.Is(s.ctx.Err(), context.DeadlineExceeded) {
		return generation.NewError(generation.KindTimeout, err)
	}
	return classify(err)
}

func (s *chatStream) finish(result string, err error) {
	s.once.Do(func() {
		duration := time.Since(s.start)
		metrics.RecordGeneration(s.mode, result, duration)
		if err != nil {
			observability.RecordError(s.span, err, "error")
			s.log.Warn().
				Err(err).
				Str("mode", s.mode).
				Str("generation_kind", result).
				Int("chunks", s.chunks).
				Dur("duration", duration).
				Msg("generation failed")
		}
		s.span.End()
		s.cancel()
	})
}
