package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestProviderAvailable(t *testing.T) {
	tests := []struct {
		name     string
		config   ProviderConfig
		expected bool
	}{
		{
			name:     "Fully configured",
			config:   ProviderConfig{BaseURL: "https://api.test.com/v1", APIKey: "key"},
			expected: true,
		},
		{
			name:     "Missing base URL",
			config:   ProviderConfig{APIKey: "key"},
			expected: false,
		},
		{
			name:     "Missing API key",
			config:   ProviderConfig{BaseURL: "https://api.test.com/v1"},
			expected: false,
		},
		{
			name:     "Offline pin overrides credentials",
			config:   ProviderConfig{BaseURL: "https://api.test.com/v1", APIKey: "key", Offline: true},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewProviderService(tt.config)
			if got := service.Available(); got != tt.expected {
				t.Errorf("Available() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestLoadProviderConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "provider.json")

	content := `{"base_url":"https://api.test.com/v1","api_key":"key","embedding_model":"embed-small","completion_model":"chat-small"}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadProviderConfig(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.EmbeddingModel != "embed-small" || cfg.CompletionModel != "chat-small" {
		t.Errorf("Unexpected config: %+v", cfg)
	}

	if _, err := LoadProviderConfig(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestProviderReload(t *testing.T) {
	service := NewProviderService(ProviderConfig{BaseURL: "https://api.test.com/v1", APIKey: "key", CompletionModel: "old"})

	service.Reload(ProviderConfig{BaseURL: "https://api.test.com/v1", APIKey: "key", CompletionModel: "new", Offline: true})

	if service.CompletionModel() != "new" {
		t.Errorf("Expected reloaded model, got %q", service.CompletionModel())
	}
	if service.Available() {
		t.Error("Expected offline after reload")
	}
}

func TestProviderEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("Missing bearer auth, got %q", r.Header.Get("Authorization"))
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"embedding": []float32{0.1, 0.2, 0.3}},
			},
		})
	}))
	defer server.Close()

	service := NewProviderService(ProviderConfig{BaseURL: server.URL, APIKey: "key", EmbeddingModel: "embed-small"})

	vec, err := service.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(vec) != 3 {
		t.Errorf("Expected 3-dim vector, got %d", len(vec))
	}
}

func TestProviderComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "a supportive answer"}},
			},
		})
	}))
	defer server.Close()

	service := NewProviderService(ProviderConfig{BaseURL: server.URL, APIKey: "key", CompletionModel: "chat-small"})

	text, err := service.Complete(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if text != "a supportive answer" {
		t.Errorf("Unexpected completion: %q", text)
	}
}

func TestProviderCompleteAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	service := NewProviderService(ProviderConfig{BaseURL: server.URL, APIKey: "key"})

	if _, err := service.Complete(context.Background(), "system", "user"); err == nil {
		t.Error("Expected error for non-200 response")
	}
}
