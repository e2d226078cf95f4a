package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_CreateChatCompletion(t *testing.T) {
	var got ChatCompletionRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c1","model":"m","choices":[{"index":0,"message":{"role":"assistant","content":"{\"ux_score\":80}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := NewClient("sk-test", WithBaseURL(srv.URL+"/v1/"))
	resp, err := c.CreateChatCompletion(context.Background(), &ChatCompletionRequest{
		Model: "m",
		Messages: []RequestMessage{{
			Role:    RoleUser,
			Content: []ContentPart{TextPart("hi"), ImagePart("data:image/png;base64,AAAA", "high")},
		}},
		ResponseFormat: JSONObjectFormat,
	})
	if err != nil {
		t.Fatalf("CreateChatCompletion() error = %v", err)
	}

	if auth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", auth)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_object" {
		t.Errorf("response_format not sent: %+v", got.ResponseFormat)
	}
	if len(got.Messages) != 1 || len(got.Messages[0].Content) != 2 {
		t.Fatalf("unexpected messages %+v", got.Messages)
	}
	if img := got.Messages[0].Content[1]; img.Type != PartTypeImageURL || img.ImageURL == nil {
		t.Errorf("image part = %+v", img)
	}
	if resp.Choices[0].Message.Content != `{"ux_score":80}` {
		t.Errorf("content = %q", resp.Choices[0].Message.Content)
	}
}

func TestClient_StatusError(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantCode    string
	}{
		{
			name:        "openai envelope",
			status:      http.StatusTooManyRequests,
			body:        `{"error":{"message":"Rate limit reached","type":"rate_limit_error","code":"rate_limit_exceeded"}}`,
			wantMessage: "Rate limit reached",
			wantCode:    "rate_limit_exceeded",
		},
		{
			name:        "numeric code",
			status:      http.StatusUnauthorized,
			body:        `{"error":{"message":"bad key","code":401}}`,
			wantMessage: "bad key",
			wantCode:    "401",
		},
		{
			name:        "plain text",
			status:      http.StatusBadGateway,
			body:        "upstream unavailable",
			wantMessage: "upstream unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient("k", WithBaseURL(srv.URL)).CreateChatCompletion(context.Background(), &ChatCompletionRequest{Model: "m"})

			var se *StatusError
			if !errors.As(err, &se) {
				t.Fatalf("expected StatusError, got %v", err)
			}
			if se.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", se.StatusCode, tt.status)
			}
			if se.Message() != tt.wantMessage {
				t.Errorf("Message() = %q, want %q", se.Message(), tt.wantMessage)
			}
			if tt.wantCode != "" && (se.API == nil || se.API.Code != tt.wantCode) {
				t.Errorf("API = %+v, want code %q", se.API, tt.wantCode)
			}
		})
	}
}
