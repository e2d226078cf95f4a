// Package openai provides wire types and an HTTP client for OpenAI-compatible
// chat completion APIs. Vision providers such as xAI expose the same envelope.
package openai

import (
	"encoding/json"
	"fmt"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Content part types.
const (
	PartTypeText     = "text"
	PartTypeImageURL = "image_url"
)

// ChatCompletionRequest represents a chat completion request.
type ChatCompletionRequest struct {
	Model          string           `json:"model"`
	Messages       []RequestMessage `json:"messages"`
	MaxTokens      int              `json:"max_tokens,omitempty"`
	Temperature    *float32         `json:"temperature,omitempty"`
	ResponseFormat *ResponseFormat  `json:"response_format,omitempty"`
	Stream         bool             `json:"stream,omitempty"`
}

// RequestMessage is an outbound message whose content is a list of parts.
type RequestMessage struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ContentPart is a text or image fragment of a multimodal message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL references an image, usually as a base64 data URL.
type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// TextPart returns a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: PartTypeText, Text: text}
}

// ImagePart returns an image content part. detail may be empty.
func ImagePart(url, detail string) ContentPart {
	return ContentPart{Type: PartTypeImageURL, ImageURL: &ImageURL{URL: url, Detail: detail}}
}

// ResponseFormat specifies the format of the response.
type ResponseFormat struct {
	Type string `json:"type"`
}

// JSONObjectFormat asks the backend to answer with a single JSON object.
var JSONObjectFormat = &ResponseFormat{Type: "json_object"}

// ChatCompletionResponse represents a chat completion response.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage,omitempty"`
}

// Choice represents a completion choice.
type Choice struct {
	Index        int             `json:"index"`
	Message      ResponseMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

// ResponseMessage is the assistant message of a choice.
type ResponseMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Refusal string `json:"refusal,omitempty"`
}

// Usage represents token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// APIError contains error details.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
	Code    string `json:"code,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// UnmarshalJSON also accepts the bare string errors and numeric codes some
// compatible backends send.
func (e *APIError) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &e.Message)
	}

	var raw struct {
		Message string          `json:"message"`
		Type    string          `json:"type"`
		Param   string          `json:"param"`
		Code    json.RawMessage `json:"code"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Message, e.Type, e.Param = raw.Message, raw.Type, raw.Param
	if len(raw.Code) > 0 && string(raw.Code) != "null" {
		var s string
		if err := json.Unmarshal(raw.Code, &s); err == nil {
			e.Code = s
		} else {
			e.Code = string(raw.Code)
		}
	}
	return nil
}

// StatusError is returned for any non-200 response.
type StatusError struct {
	StatusCode int
	// API is the decoded error object, nil if the body was not an error envelope.
	API  *APIError
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message())
}

// Message returns the most useful explanation available.
func (e *StatusError) Message() string {
	if e.API != nil && e.API.Message != "" {
		return e.API.Message
	}
	return e.Body
}

// ParseErrorResponse attempts to parse an error response from JSON.
func ParseErrorResponse(data []byte) (*APIError, error) {
	var errResp ErrorResponse
	if err := json.Unmarshal(data, &errResp); err != nil {
		return nil, err
	}
	if errResp.Error == nil {
		return nil, nil
	}
	return errResp.Error, nil
}
