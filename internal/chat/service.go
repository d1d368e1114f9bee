package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/peersenco/storefront-backend/pkg/config"
	pkgerrors "github.com/peersenco/storefront-backend/pkg/errors"
	"github.com/peersenco/storefront-backend/pkg/logger"
	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker/v2"
)

// Message is one turn of the conversation sent by the storefront.
type Message struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required"`
}

type Request struct {
	Messages []Message `json:"messages" validate:"required,min=1,dive"`
}

type completionClient interface {
	CreateChatCompletionStream(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionStream, error)
}

// Service opens assistant replies.
type Service interface {
	Start(ctx context.Context, messages []Message) (*Reply, error)
}

type Options struct {
	Model          string
	Temperature    float32
	MaxTokens      int
	MaxMessages    int
	BreakerTimeout time.Duration
}

func OptionsFromConfig(ai config.OpenAIConfig, chat config.ChatConfig) Options {
	return Options{
		Model:          ai.Model,
		Temperature:    ai.Temperature,
		MaxTokens:      ai.MaxTokens,
		MaxMessages:    chat.MaxMessages,
		BreakerTimeout: chat.BreakerTimeout,
	}
}

type service struct {
	client  completionClient
	breaker *gobreaker.CircuitBreaker[*openai.ChatCompletionStream]
	opts    Options
	logg    *logger.Logger
}

// NewClient builds the OpenAI client, honoring a custom base URL when set.
func NewClient(cfg config.OpenAIConfig) (*openai.Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = base
	}
	return openai.NewClientWithConfig(clientCfg), nil
}

func NewService(client completionClient, opts Options, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("completion client required")
	}
	if opts.Model == "" {
		opts.Model = openai.GPT4oMini
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 500
	}
	if opts.MaxMessages <= 0 {
		opts.MaxMessages = 20
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = 30 * time.Second
	}
	if logg == nil {
		logg = logger.Nop()
	}

	breaker := gobreaker.NewCircuitBreaker[*openai.ChatCompletionStream](gobreaker.Settings{
		Name:    "openai-chat",
		Timeout: opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logg.Warn(logg.WithFields(context.Background(), map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}), "chat.breaker_state_changed")
		},
	})

	return &service{client: client, breaker: breaker, opts: opts, logg: logg}, nil
}

func (s *service) Start(ctx context.Context, messages []Message) (*Reply, error) {
	if len(messages) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "messages are required")
	}
	if len(messages) > s.opts.MaxMessages {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many messages").
			WithDetails(map[string]any{"max_messages": s.opts.MaxMessages})
	}

	req := openai.ChatCompletionRequest{
		Model:       s.opts.Model,
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
		Stream:      true,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)+1),
	}
	req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	for _, m := range messages {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		if role != openai.ChatMessageRoleUser && role != openai.ChatMessageRoleAssistant {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "message role must be user or assistant")
		}
		if strings.TrimSpace(m.Content) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "message content is required")
		}
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	stream, err := s.breaker.Execute(func() (*openai.ChatCompletionStream, error) {
		return s.client.CreateChatCompletionStream(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "chat assistant temporarily unavailable")
		}
		s.logg.Error(ctx, "chat.completion_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "chat completion failed")
	}
	return &Reply{stream: stream, stripper: newMarkdownStripper()}, nil
}

type chunkStream interface {
	Recv() (openai.ChatCompletionStreamResponse, error)
	Close() error
}

// Reply yields cleaned text chunks until io.EOF.
type Reply struct {
	stream   chunkStream
	stripper *markdownStripper
	done     bool
}

func (r *Reply) Next() (string, error) {
	if r.done {
		return "", io.EOF
	}
	for {
		resp, err := r.stream.Recv()
		if errors.Is(err, io.EOF) {
			r.done = true
			if rest := r.stripper.Flush(); rest != "" {
				return rest, nil
			}
			return "", io.EOF
		}
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}
		if text := r.stripper.Write(resp.Choices[0].Delta.Content); text != "" {
			return text, nil
		}
	}
}

func (r *Reply) Close() error {
	return r.stream.Close()
}
