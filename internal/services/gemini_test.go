package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// scriptedBackend returns errs[i] on the i-th call and reply once errs run out.
type scriptedBackend struct {
	errs  []error
	reply string
	calls int
	last  GenerateRequest
}

func (b *scriptedBackend) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	b.calls++
	b.last = req
	if b.calls <= len(b.errs) {
		return "", b.errs[b.calls-1]
	}
	return b.reply, nil
}

func newTestGateway(backend contentGenerator) (*GeminiService, *[]time.Duration) {
	var slept []time.Duration
	s := newGeminiService(backend, "test-model", 2)
	s.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return s, &slept
}

func rateLimitErr() error {
	return &googleapi.Error{Code: http.StatusTooManyRequests, Message: "slow down"}
}

func TestGenerate_SucceedsOnThirdAttempt(t *testing.T) {
	backend := &scriptedBackend{errs: []error{rateLimitErr(), rateLimitErr()}, reply: "ok"}
	s, slept := newTestGateway(backend)

	text, err := s.Generate(context.Background(), GenerateRequest{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "ok" {
		t.Fatalf("text = %q", text)
	}
	if backend.calls != 3 {
		t.Fatalf("calls = %d, want 3", backend.calls)
	}
	if len(*slept) != 2 || (*slept)[0] != 3*time.Second {
		t.Fatalf("sleeps = %v, want two 3s delays", *slept)
	}
	if backend.last.Model != "test-model" {
		t.Fatalf("default model not applied: %q", backend.last.Model)
	}
}

func TestGenerate_BusyAfterThreeRateLimits(t *testing.T) {
	backend := &scriptedBackend{errs: []error{rateLimitErr(), rateLimitErr(), rateLimitErr(), rateLimitErr()}}
	s, slept := newTestGateway(backend)

	_, err := s.Generate(context.Background(), GenerateRequest{Prompt: "hi"})
	if !errors.Is(err, ErrAIBusy) {
		t.Fatalf("error = %v, want ErrAIBusy", err)
	}
	if backend.calls != 3 {
		t.Fatalf("calls = %d, want 3", backend.calls)
	}
	if len(*slept) != 2 {
		t.Fatalf("sleeps = %d, want 2", len(*slept))
	}

	var aiErr *AIError
	if !errors.As(err, &aiErr) || aiErr.Message != msgAIBusy {
		t.Fatalf("busy message not carried: %v", err)
	}
}

func TestGenerate_NonRateLimitFailsImmediately(t *testing.T) {
	backend := &scriptedBackend{errs: []error{errors.New("connection reset")}}
	s, slept := newTestGateway(backend)

	_, err := s.Generate(context.Background(), GenerateRequest{Prompt: "hi"})
	if !errors.Is(err, ErrAIFailed) {
		t.Fatalf("error = %v, want ErrAIFailed", err)
	}
	if backend.calls != 1 || len(*slept) != 0 {
		t.Fatalf("calls=%d sleeps=%d, want 1 and 0", backend.calls, len(*slept))
	}
}

func TestGenerate_MissingKeyMakesNoAttempt(t *testing.T) {
	s, slept := newTestGateway(nil)

	_, err := s.Generate(context.Background(), GenerateRequest{Prompt: "hi"})
	if !errors.Is(err, ErrAIKeyMissing) {
		t.Fatalf("error = %v, want ErrAIKeyMissing", err)
	}
	if s.Enabled() || len(*slept) != 0 {
		t.Fatalf("disabled gateway should not sleep or report enabled")
	}
}

func TestGenerate_StopsWhenContextCancelledDuringBackoff(t *testing.T) {
	backend := &scriptedBackend{errs: []error{rateLimitErr(), rateLimitErr()}, reply: "ok"}
	s := newGeminiService(backend, "m", 1)
	s.sleep = func(ctx context.Context, d time.Duration) error { return context.Canceled }

	_, err := s.Generate(context.Background(), GenerateRequest{Prompt: "hi"})
	if err == nil || backend.calls != 1 {
		t.Fatalf("err=%v calls=%d, want failure after one call", err, backend.calls)
	}
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"http 429", rateLimitErr(), true},
		{"wrapped http 429", fmt.Errorf("call: %w", rateLimitErr()), true},
		{"http 500", &googleapi.Error{Code: 500}, false},
		{"grpc exhausted", status.Error(codes.ResourceExhausted, "limit"), true},
		{"grpc unavailable", status.Error(codes.Unavailable, "down"), false},
		{"quota message", errors.New("Quota exceeded for requests"), true},
		{"plain", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRateLimited(tt.err); got != tt.want {
				t.Fatalf("isRateLimited() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGenerateJSON_SchemaViolationIsMalformed(t *testing.T) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(`{
		"type": "object",
		"required": ["summary"],
		"properties": {"summary": {"type": "string"}}
	}`))
	if err != nil {
		t.Fatalf("schema: %v", err)
	}

	tests := []struct {
		name  string
		reply string
	}{
		{"not json", "sorry, I cannot"},
		{"missing field", `{"other": 1}`},
		{"wrong type", `{"summary": 5}`},
		{"empty", "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestGateway(&scriptedBackend{reply: tt.reply})
			out := map[string]interface{}{"untouched": true}
			err := s.GenerateJSON(context.Background(), GenerateRequest{Prompt: "p"}, schema, &out)
			if !errors.Is(err, ErrAIMalformed) {
				t.Fatalf("error = %v, want ErrAIMalformed", err)
			}
			if len(out) != 1 {
				t.Fatalf("output partially populated: %v", out)
			}
		})
	}
}

func TestMustSchema(t *testing.T) {
	for name, schema := range map[string]*gojsonschema.Schema{"suggestion": suggestionSchema, "infographic": infographicSchema} {
		if schema == nil {
			t.Fatalf("%s schema not compiled", name)
		}
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("mustSchema accepted an invalid schema")
		}
	}()
	mustSchema(`{"type": 12}`)
}

func TestGenerateJSON_StripsFenceAndSetsJSONMode(t *testing.T) {
	backend := &scriptedBackend{reply: "```json\n{\"summary\":\"ok\"}\n```"}
	s, _ := newTestGateway(backend)

	var out struct {
		Summary string `json:"summary"`
	}
	if err := s.GenerateJSON(context.Background(), GenerateRequest{Prompt: "p"}, nil, &out); err != nil {
		t.Fatalf("GenerateJSON() error = %v", err)
	}
	if out.Summary != "ok" || !backend.last.JSON {
		t.Fatalf("summary=%q json=%v", out.Summary, backend.last.JSON)
	}
}

func TestParseDataURI(t *testing.T) {
	img, err := ParseDataURI("data:image/png;base64,aGVsbG8=")
	if err != nil {
		t.Fatalf("ParseDataURI() error = %v", err)
	}
	if img.MIMEType != "image/png" || string(img.Data) != "hello" {
		t.Fatalf("image = %+v", img)
	}

	for _, bad := range []string{"hello", "data:image/png,raw", "data:;base64,aGVsbG8=", "data:image/png;base64,@@@"} {
		if _, err := ParseDataURI(bad); err == nil {
			t.Fatalf("ParseDataURI(%q) expected error", bad)
		}
	}
}
