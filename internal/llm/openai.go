package llm

import (
	"context"
	"fmt"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/hoshino-robotics/wakaba/internal/executor"
	"github.com/hoshino-robotics/wakaba/internal/orchestrator"
)

// OpenAIProvider implements chat, streaming chat, and inner tasks on the
// OpenAI chat-completions API.
type OpenAIProvider struct {
	client         oai.Client
	chatModel      string
	innerTaskModel string
}

func NewOpenAIProvider(apiKey, baseURL, chatModel, innerTaskModel string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm: OPENAI_API_KEY must not be empty")
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	return &OpenAIProvider{
		client:         oai.NewClient(reqOpts...),
		chatModel:      chatModel,
		innerTaskModel: innerTaskModel,
	}, nil
}

func (p *OpenAIProvider) Call(ctx context.Context, input orchestrator.ChatInput) (executor.ChatResult, error) {
	messages := []oai.ChatCompletionMessageParamUnion{
		oai.SystemMessage(chatSystemPrompt(input)),
		oai.SystemMessage(chatReplyFormatPrompt),
	}
	messages = append(messages, historyMessages(input.History)...)

	resp, err := p.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.chatModel),
		Messages: messages,
		ResponseFormat: oai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return executor.ChatResult{}, fmt.Errorf("llm: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return executor.ChatResult{}, fmt.Errorf("llm: empty choices in response")
	}

	choice := resp.Choices[0]
	result := parseChatReply(choice.Message.Content)
	for _, tc := range choice.Message.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, orchestrator.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
		})
	}
	return result, nil
}

// StreamChat streams plain spoken text, no JSON envelope: the structured
// reply comes from the concurrent Call and the stream only feeds early
// speech segments.
func (p *OpenAIProvider) StreamChat(ctx context.Context, input orchestrator.ChatInput, onDelta func(string) error) error {
	messages := []oai.ChatCompletionMessageParamUnion{
		oai.SystemMessage(chatSystemPrompt(input)),
		oai.SystemMessage("話す文章だけを出力してください。"),
	}
	messages = append(messages, historyMessages(input.History)...)

	stream := p.client.Chat.Completions.NewStreaming(ctx, oai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.chatModel),
		Messages: messages,
	})
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			if err := onDelta(delta); err != nil {
				return err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("llm: chat stream: %w", err)
	}
	return nil
}

func (p *OpenAIProvider) CallInnerTask(ctx context.Context, task orchestrator.TaskInput) (string, error) {
	system, user, err := innerTaskPrompt(task)
	if err != nil {
		return "", err
	}

	resp, err := p.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.innerTaskModel),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(system),
			oai.UserMessage(user),
		},
		ResponseFormat: oai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return "", fmt.Errorf("llm: inner task %s: %w", task.Kind, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: inner task %s: empty choices", task.Kind)
	}
	return resp.Choices[0].Message.Content, nil
}

func historyMessages(history []orchestrator.Message) []oai.ChatCompletionMessageParamUnion {
	out := make([]oai.ChatCompletionMessageParamUnion, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case "assistant":
			out = append(out, oai.AssistantMessage(m.Text))
		default:
			out = append(out, oai.UserMessage(m.Text))
		}
	}
	return out
}
