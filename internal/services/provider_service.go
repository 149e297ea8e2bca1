package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ProviderConfig is the on-disk model provider configuration (provider.json).
// The file is hot-reloaded so models can be swapped without a restart.
type ProviderConfig struct {
	BaseURL         string `json:"base_url"` // OpenAI-compatible API root
	APIKey          string `json:"api_key"`
	EmbeddingModel  string `json:"embedding_model"`
	CompletionModel string `json:"completion_model"`
	Offline         bool   `json:"offline,omitempty"` // pin to deterministic paths, no remote calls
}

// ProviderService is the client for the remote embedding/completion provider.
// Both calls are fallible and return either a result or an error — an error is
// never converted into a plausible-looking result here; degradation decisions
// belong to the callers.
type ProviderService struct {
	mu     sync.RWMutex
	config ProviderConfig
	client *http.Client
}

// NewProviderService creates a provider service with the given initial config
func NewProviderService(config ProviderConfig) *ProviderService {
	return &ProviderService{
		config: config,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Available reports whether the remote provider can be called at all
func (s *ProviderService) Available() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.config.Offline && s.config.BaseURL != "" && s.config.APIKey != ""
}

// Config returns a copy of the current provider configuration
func (s *ProviderService) Config() ProviderConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// CompletionModel returns the identifier of the active completion model
func (s *ProviderService) CompletionModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.CompletionModel
}

// Embed converts text into an embedding vector via the provider
func (s *ProviderService) Embed(ctx context.Context, text string) ([]float32, error) {
	if !s.Available() {
		return nil, fmt.Errorf("embedding provider unavailable")
	}
	cfg := s.Config()

	requestBody := map[string]interface{}{
		"model": cfg.EmbeddingModel,
		"input": text,
	}
	body, err := s.post(ctx, cfg, "/embeddings", requestBody)
	if err != nil {
		return nil, err
	}

	var apiResponse struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return nil, fmt.Errorf("failed to parse embedding response: %w", err)
	}
	if len(apiResponse.Data) == 0 || len(apiResponse.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding from provider")
	}

	return apiResponse.Data[0].Embedding, nil
}

// Complete generates a text completion grounded on the given prompts
func (s *ProviderService) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if !s.Available() {
		return "", fmt.Errorf("completion provider unavailable")
	}
	cfg := s.Config()

	requestBody := map[string]interface{}{
		"model": cfg.CompletionModel,
		"messages": []map[string]interface{}{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"stream":      false,
		"temperature": 0.4,
	}
	body, err := s.post(ctx, cfg, "/chat/completions", requestBody)
	if err != nil {
		return "", err
	}

	var apiResponse struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return "", fmt.Errorf("failed to parse completion response: %w", err)
	}
	if len(apiResponse.Choices) == 0 {
		return "", fmt.Errorf("no response from completion model")
	}

	return apiResponse.Choices[0].Message.Content, nil
}

// post sends a JSON request to the provider and returns the raw body
func (s *ProviderService) post(ctx context.Context, cfg ProviderConfig, path string, payload map[string]interface{}) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", cfg.BaseURL+path, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// LoadProviderConfig reads the provider configuration from a JSON file
func LoadProviderConfig(filePath string) (ProviderConfig, error) {
	var cfg ProviderConfig
	data, err := os.ReadFile(filePath)
	if err != nil {
		return cfg, fmt.Errorf("failed to read provider config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse provider config: %w", err)
	}
	return cfg, nil
}

// Reload replaces the active provider configuration
func (s *ProviderService) Reload(cfg ProviderConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg
	log.Printf("🔄 [PROVIDER] Config reloaded (embedding: %s, completion: %s, offline: %v)",
		cfg.EmbeddingModel, cfg.CompletionModel, cfg.Offline)
}

// WatchConfig hot-reloads the provider config file on change. Runs until the
// watcher fails or the process exits; failures only log.
func (s *ProviderService) WatchConfig(filePath string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("⚠️  [PROVIDER] Failed to create file watcher: %v", err)
		return
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		log.Printf("⚠️  [PROVIDER] Failed to get absolute path for %s: %v", filePath, err)
		watcher.Close()
		return
	}

	// Watch the directory containing the file (more reliable than watching
	// the file directly — editors replace files on save)
	dir := filepath.Dir(absPath)
	filename := filepath.Base(absPath)

	if err := watcher.Add(dir); err != nil {
		log.Printf("⚠️  [PROVIDER] Failed to watch directory %s: %v", dir, err)
		watcher.Close()
		return
	}

	log.Printf("👁️  [PROVIDER] Watching %s for changes (hot-reload enabled)", filePath)

	// Debounce rapid successive writes
	var debounceTimer *time.Timer
	debounceDuration := 500 * time.Millisecond

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, func() {
					cfg, err := LoadProviderConfig(filePath)
					if err != nil {
						log.Printf("⚠️  [PROVIDER] Hot-reload failed: %v", err)
						return
					}
					s.Reload(cfg)
				})
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("⚠️  [PROVIDER] Watcher error: %v", err)
		}
	}
}
