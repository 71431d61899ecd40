package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"github.com/googleapis/gax-go/v2/apierror"
	"github.com/redis/go-redis/v9"
	"github.com/xeipuuv/gojsonschema"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"sciencebindu-backend/internal/metrics"
	"sciencebindu-backend/internal/models"
)

const (
	maxGenerateAttempts = 3
	rateLimitBackoff    = 3 * time.Second

	msgAIBusy       = "সার্ভার ব্যস্ত আছে বা লিমিট শেষ। কিছুক্ষণ পর চেষ্টা করুন।"
	msgAIMalformed  = "ডাটা প্রসেস করতে সমস্যা হয়েছে।"
	msgAIKeyMissing = "API Key not found"
	msgAIFailed     = "Error connecting to AI."
)

var (
	ErrAIKeyMissing = errors.New("ai key missing")
	ErrAIBusy       = errors.New("ai rate limited")
	ErrAIMalformed  = errors.New("ai response malformed")
	ErrAIFailed     = errors.New("ai request failed")
)

// AIError carries the user-facing message for a failed generation. Kind is one
// of the ErrAI* sentinels and is matched with errors.Is.
type AIError struct {
	Kind    error
	Message string
	cause   error
}

func (e *AIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.cause)
	}
	return e.Kind.Error()
}

func (e *AIError) Unwrap() error { return e.Kind }

// InlineImage is an attachment sent alongside a prompt.
type InlineImage struct {
	MIMEType string
	Data     []byte
}

// GenerateRequest describes one call to the model. An empty Model uses the default.
type GenerateRequest struct {
	Model             string
	Prompt            string
	SystemInstruction string
	JSON              bool
	Image             *InlineImage
	History           []models.ChatMessage
}

// contentGenerator is the model backend. It is satisfied by the Gemini SDK
// adapter in production and by fakes in tests.
type contentGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

type GeminiService struct {
	backend      contentGenerator
	closer       func()
	defaultModel string
	redis        *redis.Client
	rateChan     chan struct{} // Token bucket
	sleep        func(ctx context.Context, d time.Duration) error
}

// NewGeminiService builds the gateway. An empty apiKey yields a gateway whose
// every call fails with ErrAIKeyMissing without touching the network.
func NewGeminiService(apiKey, defaultModel string, concurrentReqs int, redisClient *redis.Client) (*GeminiService, error) {
	var backend contentGenerator
	closer := func() {}

	if apiKey != "" {
		client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		backend = &genaiBackend{client: client}
		closer = func() { client.Close() }
	}

	s := newGeminiService(backend, defaultModel, concurrentReqs)
	s.closer = closer
	s.redis = redisClient
	return s, nil
}

func newGeminiService(backend contentGenerator, defaultModel string, concurrentReqs int) *GeminiService {
	if concurrentReqs < 1 {
		concurrentReqs = 1
	}
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		backend:      backend,
		closer:       func() {},
		defaultModel: defaultModel,
		rateChan:     rateChan,
		sleep:        sleepContext,
	}
}

func (s *GeminiService) Close() {
	s.closer()
}

// Enabled reports whether an API key was configured.
func (s *GeminiService) Enabled() bool {
	return s.backend != nil
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

// PublishUpdate sends a WebSocket update via Redis pub/sub
func (s *GeminiService) PublishUpdate(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	if s.redis == nil {
		return
	}
	data, _ := json.Marshal(msg)
	if err := s.redis.Publish(ctx, fmt.Sprintf("user_updates:%s", userID.String()), string(data)).Err(); err != nil {
		log.Printf("Failed to publish %s for user %s: %v", msg.Type, userID, err)
	}
}

// Generate returns the model's text. Rate-limit failures are retried up to
// maxGenerateAttempts in total with a fixed delay; anything else fails at once.
func (s *GeminiService) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if s.backend == nil {
		metrics.AIAttempts.WithLabelValues("key_missing").Inc()
		return "", &AIError{Kind: ErrAIKeyMissing, Message: msgAIKeyMissing}
	}
	if req.Model == "" {
		req.Model = s.defaultModel
	}

	if err := s.acquireRate(ctx); err != nil {
		return "", &AIError{Kind: ErrAIFailed, Message: msgAIFailed, cause: err}
	}
	defer s.releaseRate()

	var lastErr error
	for attempt := 1; attempt <= maxGenerateAttempts; attempt++ {
		text, err := s.backend.Generate(ctx, req)
		if err == nil {
			metrics.AIAttempts.WithLabelValues("success").Inc()
			return text, nil
		}
		lastErr = err

		if !isRateLimited(err) {
			metrics.AIAttempts.WithLabelValues("error").Inc()
			return "", &AIError{Kind: ErrAIFailed, Message: msgAIFailed, cause: err}
		}
		metrics.AIAttempts.WithLabelValues("rate_limited").Inc()

		if attempt < maxGenerateAttempts {
			if err := s.sleep(ctx, rateLimitBackoff); err != nil {
				return "", &AIError{Kind: ErrAIFailed, Message: msgAIFailed, cause: err}
			}
		}
	}

	log.Printf("Gemini rate limit persisted after %d attempts: %v", maxGenerateAttempts, lastErr)
	return "", &AIError{Kind: ErrAIBusy, Message: msgAIBusy, cause: lastErr}
}

// GenerateJSON requests a JSON response, validates it against schema and
// decodes it into out. out is left untouched when validation fails.
func (s *GeminiService) GenerateJSON(ctx context.Context, req GenerateRequest, schema *gojsonschema.Schema, out interface{}) error {
	req.JSON = true
	text, err := s.Generate(ctx, req)
	if err != nil {
		return err
	}
	return decodeAIJSON(text, schema, out)
}

// mustSchema compiles a JSON schema literal and panics when it is invalid.
func mustSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("invalid JSON schema: %v", err))
	}
	return schema
}

func decodeAIJSON(text string, schema *gojsonschema.Schema, out interface{}) error {
	raw := stripJSONFence(text)
	if raw == "" {
		return &AIError{Kind: ErrAIMalformed, Message: msgAIMalformed}
	}

	if schema != nil {
		result, err := schema.Validate(gojsonschema.NewStringLoader(raw))
		if err != nil {
			return &AIError{Kind: ErrAIMalformed, Message: msgAIMalformed, cause: err}
		}
		if !result.Valid() {
			var reasons []string
			for _, e := range result.Errors() {
				reasons = append(reasons, e.String())
			}
			return &AIError{Kind: ErrAIMalformed, Message: msgAIMalformed, cause: errors.New(strings.Join(reasons, "; "))}
		}
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return &AIError{Kind: ErrAIMalformed, Message: msgAIMalformed, cause: err}
	}
	return nil
}

// stripJSONFence removes a surrounding ```json code fence if present.
func stripJSONFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// isRateLimited recognises HTTP 429, gRPC ResourceExhausted and quota messages.
func isRateLimited(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusTooManyRequests {
		return true
	}
	if aerr, ok := apierror.FromError(err); ok {
		if aerr.HTTPCode() == http.StatusTooManyRequests || aerr.GRPCStatus().Code() == codes.ResourceExhausted {
			return true
		}
	}
	if st, ok := status.FromError(err); ok && st.Code() == codes.ResourceExhausted {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "quota")
}

// ParseDataURI splits a base64 data URI into its mime type and bytes.
func ParseDataURI(uri string) (*InlineImage, error) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, fmt.Errorf("not a data URI")
	}
	meta, payload, ok := strings.Cut(uri[len("data:"):], ",")
	if !ok {
		return nil, fmt.Errorf("data URI has no payload")
	}
	mimeType, params, _ := strings.Cut(meta, ";")
	if mimeType == "" || !strings.Contains(params, "base64") {
		return nil, fmt.Errorf("data URI must be base64 with a mime type")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid data URI payload: %w", err)
	}
	return &InlineImage{MIMEType: mimeType, Data: data}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// genaiBackend adapts the Gemini SDK to contentGenerator.
type genaiBackend struct {
	client *genai.Client
}

func (b *genaiBackend) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	model := b.client.GenerativeModel(req.Model)
	model.SetTopP(0.95)
	if req.SystemInstruction != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.SystemInstruction)}}
	}
	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}

	var parts []genai.Part
	if req.Image != nil {
		parts = append(parts, genai.Blob{MIMEType: req.Image.MIMEType, Data: req.Image.Data})
	}
	parts = append(parts, genai.Text(req.Prompt))

	var (
		resp *genai.GenerateContentResponse
		err  error
	)
	if len(req.History) > 0 {
		cs := model.StartChat()
		cs.History = historyContents(req.History)
		resp, err = cs.SendMessage(ctx, parts...)
	} else {
		resp, err = model.GenerateContent(ctx, parts...)
	}
	if err != nil {
		return "", err
	}
	return extractText(resp), nil
}

// historyContents converts a transcript to SDK history. Leading model turns
// such as the greeting are dropped since history must open with a user turn.
func historyContents(history []models.ChatMessage) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		if len(contents) == 0 && m.Role != "user" {
			continue
		}
		var parts []genai.Part
		if m.Image != "" {
			if img, err := ParseDataURI(m.Image); err == nil {
				parts = append(parts, genai.Blob{MIMEType: img.MIMEType, Data: img.Data})
			}
		}
		if m.Text != "" {
			parts = append(parts, genai.Text(m.Text))
		}
		if len(parts) == 0 {
			continue
		}
		contents = append(contents, &genai.Content{Role: m.Role, Parts: parts})
	}
	return contents
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
