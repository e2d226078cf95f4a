package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tjfontaine/ux-auditor/internal/config"
	"github.com/tjfontaine/ux-auditor/internal/domain"
	"github.com/tjfontaine/ux-auditor/internal/provider"
)

var screenshot = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

const critiqueJSON = `{"ux_score": 82, "ui_score": 77, "accessibility_score": 70, "visual_hierarchy_grade": "B", "conversion_optimization": "Shorten the signup form.", "good_points": ["Clear headline"], "bad_points": [], "critical_issues": []}`

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := New(context.Background(), "gem-key", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func TestProvider_Critique(t *testing.T) {
	var path, apiKey string
	var body map[string]any
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		apiKey = r.Header.Get("x-goog-api-key")
		json.NewDecoder(r.Body).Decode(&body)

		resp := map[string]any{
			"candidates": []any{map[string]any{
				"content":      map[string]any{"role": "model", "parts": []any{map[string]any{"text": critiqueJSON}}},
				"finishReason": "STOP",
			}},
			"modelVersion": "gemini-2.0-flash-001",
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	raw, err := p.Critique(context.Background(), screenshot, provider.Prompt)
	if err != nil {
		t.Fatalf("Critique() error = %v", err)
	}

	if !strings.HasSuffix(path, "models/gemini-2.0-flash:generateContent") {
		t.Errorf("path = %q", path)
	}
	if apiKey != "gem-key" {
		t.Errorf("x-goog-api-key = %q", apiKey)
	}
	if raw.Content != critiqueJSON {
		t.Errorf("Content = %v", raw.Content)
	}
	if raw.Model != "gemini-2.0-flash-001" {
		t.Errorf("Model = %q", raw.Model)
	}

	gc, _ := body["generationConfig"].(map[string]any)
	if gc["responseMimeType"] != "application/json" {
		t.Errorf("generationConfig = %v", body["generationConfig"])
	}

	contents := body["contents"].([]any)
	parts := contents[0].(map[string]any)["parts"].([]any)
	inline := parts[1].(map[string]any)["inlineData"].(map[string]any)
	if inline["mimeType"] != "image/png" {
		t.Errorf("mimeType = %v", inline["mimeType"])
	}
	if inline["data"] != base64.StdEncoding.EncodeToString(screenshot) {
		t.Errorf("inline data = %v", inline["data"])
	}
}

func TestProvider_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind domain.ErrorKind
	}{
		{
			name:     "quota exhausted",
			status:   http.StatusTooManyRequests,
			body:     `{"error":{"code":429,"message":"Resource has been exhausted (e.g. check quota).","status":"RESOURCE_EXHAUSTED"}}`,
			wantKind: domain.KindRateLimit,
		},
		{
			name:     "model not found",
			status:   http.StatusNotFound,
			body:     `{"error":{"code":404,"message":"models/gemini-9 is not found for API version v1beta","status":"NOT_FOUND"}}`,
			wantKind: domain.KindNotFound,
		},
		{
			name:     "bad key",
			status:   http.StatusForbidden,
			body:     `{"error":{"code":403,"message":"API key not valid.","status":"PERMISSION_DENIED"}}`,
			wantKind: domain.KindAuthentication,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := p.Critique(context.Background(), screenshot, "x")

			var pe *domain.ProviderError
			if !errors.As(err, &pe) {
				t.Fatalf("expected ProviderError, got %v", err)
			}
			if pe.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", pe.Kind, tt.wantKind)
			}
			if pe.Provider != ProviderType {
				t.Errorf("Provider = %q", pe.Provider)
			}
		})
	}
}

func TestProvider_NoCandidates(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := p.Critique(context.Background(), screenshot, "x")

	var pe *domain.ProviderError
	if !errors.As(err, &pe) || pe.Kind != domain.KindBadResponse {
		t.Fatalf("expected bad_response ProviderError, got %v", err)
	}
}

func TestFactory(t *testing.T) {
	f := Factory()
	if err := f.Validate(config.ProviderConfig{}); err == nil {
		t.Error("expected missing api_key to fail validation")
	}

	p, err := f.Create(config.ProviderConfig{Name: "gemini", APIKey: "k", Model: "gemini-1.5-pro"}, provider.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "gemini" || p.(*Provider).model != "gemini-1.5-pro" {
		t.Errorf("unexpected provider %s/%s", p.Name(), p.(*Provider).model)
	}
}
