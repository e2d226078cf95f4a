package grok

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tjfontaine/ux-auditor/internal/config"
	"github.com/tjfontaine/ux-auditor/internal/domain"
	"github.com/tjfontaine/ux-auditor/internal/provider"
	"github.com/tjfontaine/ux-auditor/internal/testutil"
)

var screenshot = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func TestProvider_Critique(t *testing.T) {
	if testutil.Recording() && testutil.APIKey("XAI_API_KEY") == "test-key" {
		t.Skip("Skipping test: XAI_API_KEY not set")
	}

	p := New(testutil.APIKey("XAI_API_KEY"), WithHTTPClient(testutil.CassetteClient(t, "grok_critique")))

	raw, err := p.Critique(context.Background(), screenshot, provider.Prompt)
	if err != nil {
		t.Fatalf("Critique() error = %v", err)
	}

	if raw.Provider != ProviderType {
		t.Errorf("Provider = %q", raw.Provider)
	}
	if raw.Model != "grok-2-vision-1212" {
		t.Errorf("Model = %q", raw.Model)
	}
	content, ok := raw.Content.(string)
	if !ok {
		t.Fatalf("Content type = %T, want string", raw.Content)
	}

	var parsed provider.CritiqueSchema
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		t.Fatalf("content is not the critique object: %v", err)
	}
	if parsed.UXScore != 78 || len(parsed.CriticalIssues) != 2 {
		t.Errorf("unexpected critique %+v", parsed)
	}
}

func TestProvider_RateLimited(t *testing.T) {
	if testutil.Recording() {
		t.Skip("rate limit cassette is not re-recordable")
	}

	p := New("test-key", WithHTTPClient(testutil.CassetteClient(t, "grok_rate_limit")))

	_, err := p.Critique(context.Background(), screenshot, provider.Prompt)

	var pe *domain.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if pe.Kind != domain.KindRateLimit || pe.StatusCode != http.StatusTooManyRequests {
		t.Errorf("got kind %q status %d, want rate_limit 429", pe.Kind, pe.StatusCode)
	}
	if !strings.Contains(pe.Message, "credits") {
		t.Errorf("Message = %q, want upstream explanation", pe.Message)
	}
}

func TestProvider_RequestEnvelope(t *testing.T) {
	var body map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`{"model":"grok-test","choices":[{"message":{"role":"assistant","content":"{}"}}]}`))
	}))
	defer srv.Close()

	p := New("xai-key", WithBaseURL(srv.URL), WithModel("grok-test"), WithHTTPClient(srv.Client()))
	if _, err := p.Critique(context.Background(), screenshot, "judge this"); err != nil {
		t.Fatalf("Critique() error = %v", err)
	}

	if auth != "Bearer xai-key" {
		t.Errorf("Authorization = %q", auth)
	}
	if body["model"] != "grok-test" {
		t.Errorf("model = %v", body["model"])
	}
	if rf, _ := body["response_format"].(map[string]any); rf["type"] != "json_object" {
		t.Errorf("response_format = %v", body["response_format"])
	}

	messages := body["messages"].([]any)
	parts := messages[0].(map[string]any)["content"].([]any)
	image := parts[0].(map[string]any)["image_url"].(map[string]any)
	if !strings.HasPrefix(image["url"].(string), "data:image/png;base64,") {
		t.Errorf("image url = %v", image["url"])
	}
	if parts[1].(map[string]any)["text"] != "judge this" {
		t.Errorf("text part = %v", parts[1])
	}
}

func TestProvider_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	p := New("k", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	_, err := p.Critique(context.Background(), screenshot, "x")

	var pe *domain.ProviderError
	if !errors.As(err, &pe) || pe.Kind != domain.KindBadResponse {
		t.Fatalf("expected bad_response ProviderError, got %v", err)
	}
}

func TestProvider_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	p := New("bad", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	_, err := p.Critique(context.Background(), screenshot, "x")

	var pe *domain.ProviderError
	if !errors.As(err, &pe) || pe.Kind != domain.KindAuthentication {
		t.Fatalf("expected authentication ProviderError, got %v", err)
	}
}

func TestFactory(t *testing.T) {
	f := Factory()
	if f.Type != "grok" {
		t.Errorf("Type = %q", f.Type)
	}
	if err := f.Validate(config.ProviderConfig{}); err == nil {
		t.Error("expected missing api_key to fail validation")
	}

	p, err := f.Create(config.ProviderConfig{Name: "grok", APIKey: "k", Model: "grok-vision-beta"}, provider.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if p.(*Provider).model != "grok-vision-beta" {
		t.Errorf("model = %q", p.(*Provider).model)
	}
}
