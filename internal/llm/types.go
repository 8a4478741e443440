package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

const (
	// ObjectChatCompletion is the object type of a completion response.
	ObjectChatCompletion = "chat.completion"

	// FinishReasonStop is the only finish reason the shim reports.
	FinishReasonStop = "stop"

	// RoleUser, RoleAssistant and RoleSystem are the message roles.
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"

	partTypeText = "text"
)

// ChatRequest is the OpenAI-compatible chat completion request body. Fields
// the shim does not use are ignored.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream,omitempty"`
}

// Message is one entry of the messages array.
type Message struct {
	Role    string  `json:"role"`
	Content Content `json:"content"`
	Name    string  `json:"name,omitempty"`
}

// Content is a message body: either plain text or a list of typed parts.
type Content struct {
	Text  string
	Parts []ContentPart
}

// ContentPart is one element of structured content. Non-text parts (images,
// files) are kept only for their type.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// TextContent returns plain-string content.
func TextContent(text string) Content {
	return Content{Text: text}
}

// PartsContent returns structured content.
func PartsContent(parts ...ContentPart) Content {
	return Content{Parts: parts}
}

// String returns the text the content carries: plain text as is, or the
// text of every text part joined by single spaces.
func (c Content) String() string {
	if c.Parts == nil {
		return c.Text
	}

	texts := make([]string, 0, len(c.Parts))
	for _, part := range c.Parts {
		if part.Type == partTypeText {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, " ")
}

// UnmarshalJSON accepts a string, null, or an array whose elements are part
// objects or bare strings. Bare strings are treated as text parts.
func (c *Content) UnmarshalJSON(data []byte) error {
	*c = Content{}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '"':
		return json.Unmarshal(data, &c.Text)

	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}

		c.Parts = make([]ContentPart, 0, len(raw))
		for _, elem := range raw {
			elem = bytes.TrimSpace(elem)
			if len(elem) > 0 && elem[0] == '"' {
				var text string
				if err := json.Unmarshal(elem, &text); err != nil {
					return err
				}
				c.Parts = append(c.Parts, ContentPart{
					Type: partTypeText,
					Text: text,
				})
				continue
			}

			var part ContentPart
			if err := json.Unmarshal(elem, &part); err != nil {
				return err
			}
			c.Parts = append(c.Parts, part)
		}
		return nil

	default:
		return errors.New("content must be a string or an array of parts")
	}
}

// MarshalJSON writes structured content as an array and everything else as
// a string.
func (c Content) MarshalJSON() ([]byte, error) {
	if c.Parts != nil {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

// ChatResponse is the non-streaming OpenAI chat completion response.
type ChatResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Choice is a choice in a completion response.
type Choice struct {
	Index        int             `json:"index"`
	Message      ResponseMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

// ResponseMessage is the assistant message of a choice.
type ResponseMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage holds the word counts reported as token usage.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Model is one entry of the models list.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// ModelList is the response of the models endpoint.
type ModelList struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}

// TestResult is the body of the test endpoint. Failures are reported in
// Error rather than through the HTTP status.
type TestResult struct {
	Success  bool   `json:"success"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}
