package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"scenic/internal/model"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultEndpoint = "https://generativelanguage.googleapis.com"
	DefaultModel    = "gemini-2.5-flash"
)

// Errors surfaced to the user. Authorization errors keep the wording the
// orchestrator matches on.
var (
	ErrMissingAPIKey = errors.New("API Key must be set when using the Gemini API")
	ErrInvalidAPIKey = errors.New("Requested entity was not found. The API key appears to be invalid")
	ErrBadResponse   = errors.New("Failed to parse the response from the AI model. The format was invalid.")
	ErrUpstream      = errors.New("Failed to get recommendations from the AI model.")
)

// GeminiClient asks the Gemini generateContent API for driving roads.
type GeminiClient struct {
	endpoint   string
	model      string
	httpClient *http.Client
	logger     *log.Logger
	validate   *validator.Validate

	mu     sync.RWMutex
	apiKey string
}

// Option configures a GeminiClient.
type Option func(*GeminiClient)

// WithEndpoint overrides the API base URL.
func WithEndpoint(endpoint string) Option {
	return func(c *GeminiClient) {
		if endpoint != "" {
			c.endpoint = strings.TrimRight(endpoint, "/")
		}
	}
}

// WithModel overrides the model name.
func WithModel(model string) Option {
	return func(c *GeminiClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *GeminiClient) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger used for upstream failure details.
func WithLogger(l *log.Logger) Option {
	return func(c *GeminiClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewGeminiClient creates a new Gemini client. apiKey may be empty and set later.
func NewGeminiClient(apiKey string, opts ...Option) *GeminiClient {
	c := &GeminiClient{
		endpoint:   DefaultEndpoint,
		model:      DefaultModel,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     log.Default(),
		validate:   validator.New(),
		apiKey:     strings.TrimSpace(apiKey),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetAPIKey replaces the key used for subsequent requests.
func (c *GeminiClient) SetAPIKey(key string) {
	c.mu.Lock()
	c.apiKey = strings.TrimSpace(key)
	c.mu.Unlock()
}

// HasAPIKey reports whether a key is configured.
func (c *GeminiClient) HasAPIKey() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey != ""
}

func (c *GeminiClient) key() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey
}

// FindRoads returns road suggestions for the query. Invalid roads in the
// model's answer are dropped; an empty list is returned as-is.
func (c *GeminiClient) FindRoads(ctx context.Context, q model.LocationQuery) (model.RoadResult, error) {
	apiKey := c.key()
	if apiKey == "" {
		return model.RoadResult{}, ErrMissingAPIKey
	}

	resp, err := c.generate(ctx, apiKey, buildPrompt(q))
	if err != nil {
		if errors.Is(err, ErrInvalidAPIKey) || errors.Is(err, context.Canceled) {
			return model.RoadResult{}, err
		}
		c.logger.Error("Error calling Gemini API", "err", err)
		return model.RoadResult{}, ErrUpstream
	}

	if len(resp.Candidates) == 0 {
		c.logger.Warn("Gemini returned no candidates")
		return model.RoadResult{}, nil
	}
	candidate := resp.Candidates[0]

	var roads []model.Road
	if err := json.Unmarshal([]byte(candidate.text()), &roads); err != nil {
		c.logger.Error("Failed to decode roads", "err", err)
		return model.RoadResult{}, ErrBadResponse
	}

	result := model.RoadResult{Roads: make([]model.Road, 0, len(roads))}
	for _, road := range roads {
		if err := c.validate.Struct(road); err != nil {
			c.logger.Warn("Dropping invalid road", "name", road.Name, "err", err)
			continue
		}
		result.Roads = append(result.Roads, road)
	}
	if candidate.GroundingMetadata != nil {
		result.Sources = candidate.GroundingMetadata.GroundingChunks
	}
	return result, nil
}

func (c *GeminiClient) generate(ctx context.Context, apiKey, prompt string) (*generateResponse, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   roadSchema,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("request encoding failed: %w", err)
	}

	reqURL := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.endpoint, url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request creation failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-goog-api-key", apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyAPIError(resp)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("JSON decode error: %w", err)
	}
	return &out, nil
}

// classifyAPIError maps rejected credentials to ErrInvalidAPIKey and
// everything else to a status error.
func classifyAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var env errorEnvelope
	_ = json.Unmarshal(data, &env)

	if resp.StatusCode == http.StatusNotFound && strings.Contains(env.Error.Message, "entity was not found") {
		return ErrInvalidAPIKey
	}
	for _, d := range env.Error.Details {
		if d.Reason == "API_KEY_INVALID" {
			return ErrInvalidAPIKey
		}
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrInvalidAPIKey
	}
	if env.Error.Message != "" {
		return fmt.Errorf("API error: status %d: %s", resp.StatusCode, env.Error.Message)
	}
	return fmt.Errorf("API error: status %d", resp.StatusCode)
}

// API request/response types

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text,omitempty"`
}

type generationConfig struct {
	ResponseMIMEType string `json:"responseMimeType"`
	ResponseSchema   schema `json:"responseSchema"`
}

type schema struct {
	Type       string            `json:"type"`
	Items      *schema           `json:"items,omitempty"`
	Properties map[string]schema `json:"properties,omitempty"`
	Required   []string          `json:"required,omitempty"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content           content            `json:"content"`
	GroundingMetadata *groundingMetadata `json:"groundingMetadata"`
}

func (c candidate) text() string {
	var b strings.Builder
	for _, p := range c.Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

type groundingMetadata struct {
	GroundingChunks []model.GroundingChunk `json:"groundingChunks"`
}

type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Details []struct {
			Reason string `json:"reason"`
		} `json:"details"`
	} `json:"error"`
}
