package textgen

import "context"

// Role identifies who produced a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn. The edit loop only ever exchanges text,
// so content is a plain string rather than a multi-part union.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SystemMessage creates a system message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Request is one generation call.
type Request struct {
	Provider    string    `json:"provider,omitempty"` // empty = client default
	Model       string    `json:"model,omitempty"`    // empty = adapter default
	Messages    []Message `json:"messages"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

// Result is the reply to a Request. Truncated is set when the provider cut
// the reply off at its output limit; the edit loop treats such replies as
// partial and asks the model to continue.
type Result struct {
	Text      string `json:"text"`
	Model     string `json:"model,omitempty"`
	Provider  string `json:"provider,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
}

// Service is what the edit loop depends on. *Client implements it; tests
// substitute scripted fakes.
type Service interface {
	Send(ctx context.Context, req Request) (*Result, error)
}
