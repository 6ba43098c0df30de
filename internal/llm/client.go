// Package llm abstracts the language model provider behind a small
// session interface so content generation can be driven by fakes in tests.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultModel is the model used when the configuration names none.
const DefaultModel = "gemini-2.0-flash"

// ToolParam describes one parameter of a tool exposed to the model.
type ToolParam struct {
	Description string
	Required    bool
}

// ToolSpec declares a tool the model may call during a session. All
// parameters are strings, which covers the search and validation tools.
type ToolSpec struct {
	Name        string
	Description string
	Params      map[string]ToolParam
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	Name string
	Args map[string]any
}

// ToolResult is the output of one tool call, keyed by the tool's name.
type ToolResult struct {
	Name     string
	Response map[string]any
}

// Reply is one model turn: free text, tool calls, or both.
type Reply struct {
	Text      string
	ToolCalls []ToolCall
}

// SessionOptions configures a generation session.
type SessionOptions struct {
	Model        string
	SystemPrompt string
	Temperature  float32
	Tools        []ToolSpec
}

// Session is a stateful conversation with the model.
type Session interface {
	// Send sends user text and returns the model's reply.
	Send(ctx context.Context, text string) (*Reply, error)
	// SendToolResults returns the outputs of a whole tool-call batch to
	// the model in one turn and gets the next reply. The model expects
	// one response per call it made in the previous turn.
	SendToolResults(ctx context.Context, results []ToolResult) (*Reply, error)
}

// Client is an abstraction over LLM providers.
type Client interface {
	// StartSession opens a new conversation with the given options.
	StartSession(ctx context.Context, opts SessionOptions) (Session, error)
	// Close releases any resources held by the client.
	Close() error
}

// GeminiClient implements Client for Google Gemini.
type GeminiClient struct {
	client *genai.Client
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, &Error{Message: "API key is required"}
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, &Error{Message: "failed to create Gemini client", Cause: err}
	}

	return &GeminiClient{client: client}, nil
}

// StartSession opens a chat session with tools attached.
func (c *GeminiClient) StartSession(_ context.Context, opts SessionOptions) (Session, error) {
	modelName := opts.Model
	if modelName == "" {
		modelName = DefaultModel
	}

	model := c.client.GenerativeModel(modelName)
	model.SetTemperature(opts.Temperature)
	if opts.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(opts.SystemPrompt)},
		}
	}
	if len(opts.Tools) > 0 {
		model.Tools = []*genai.Tool{{FunctionDeclarations: declarations(opts.Tools)}}
	}

	return &geminiSession{chat: model.StartChat()}, nil
}

// Close releases resources held by the client.
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

type geminiSession struct {
	chat *genai.ChatSession
}

func (s *geminiSession) Send(ctx context.Context, text string) (*Reply, error) {
	resp, err := s.chat.SendMessage(ctx, genai.Text(text))
	if err != nil {
		return nil, &Error{Message: "failed to send message", Cause: err}
	}
	return replyFromResponse(resp)
}

func (s *geminiSession) SendToolResults(ctx context.Context, results []ToolResult) (*Reply, error) {
	parts := make([]genai.Part, 0, len(results))
	names := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, genai.FunctionResponse{Name: r.Name, Response: r.Response})
		names = append(names, r.Name)
	}
	resp, err := s.chat.SendMessage(ctx, parts...)
	if err != nil {
		return nil, &Error{Message: fmt.Sprintf("failed to return results for tools %s", strings.Join(names, ", ")), Cause: err}
	}
	return replyFromResponse(resp)
}

func declarations(tools []ToolSpec) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		properties := make(map[string]*genai.Schema, len(tool.Params))
		var required []string
		for name, param := range tool.Params {
			properties[name] = &genai.Schema{
				Type:        genai.TypeString,
				Description: param.Description,
			}
			if param.Required {
				required = append(required, name)
			}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: properties,
				Required:   required,
			},
		})
	}
	return decls
}

// replyFromResponse flattens a Gemini response into text and tool calls.
func replyFromResponse(resp *genai.GenerateContentResponse) (*Reply, error) {
	if len(resp.Candidates) == 0 {
		return nil, &Error{Message: "no candidates in response"}
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, &Error{Message: "no content in response"}
	}

	reply := &Reply{}
	var texts []string
	for _, part := range candidate.Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			texts = append(texts, string(p))
		case genai.FunctionCall:
			reply.ToolCalls = append(reply.ToolCalls, ToolCall{Name: p.Name, Args: p.Args})
		}
	}
	reply.Text = strings.Join(texts, "")
	return reply, nil
}
