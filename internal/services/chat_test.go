package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"sciencebindu-backend/internal/models"
)

type fakeGenerator struct {
	replies []string
	errs    []error
	calls   []GenerateRequest
}

func (g *fakeGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	i := len(g.calls)
	g.calls = append(g.calls, req)
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i < len(g.replies) {
		return g.replies[i], nil
	}
	return "উত্তর", nil
}

type stubChatSessions struct {
	upserts   []models.ChatSession
	upsertErr error
	sessions  map[uuid.UUID]*models.ChatSession
}

func (r *stubChatSessions) Upsert(ctx context.Context, s *models.ChatSession) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.upserts = append(r.upserts, *s)
	return nil
}

func (r *stubChatSessions) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ChatSession, error) {
	return []models.ChatSession{}, nil
}

func (r *stubChatSessions) GetByID(ctx context.Context, id, userID uuid.UUID) (*models.ChatSession, error) {
	s, ok := r.sessions[id]
	if !ok || s.UserID != userID {
		return nil, pgx.ErrNoRows
	}
	return s, nil
}

func (r *stubChatSessions) Delete(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	s, ok := r.sessions[id]
	if !ok || s.UserID != userID {
		return false, nil
	}
	delete(r.sessions, id)
	return true, nil
}

type stubProfiles struct {
	profile *models.Profile
}

func (p *stubProfiles) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	return p.profile, nil
}

type chatFixture struct {
	svc      *ChatService
	gen      *fakeGenerator
	sessions *stubChatSessions
	pub      *recordingPublisher
	userID   uuid.UUID
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	f := &chatFixture{
		gen:      &fakeGenerator{},
		sessions: &stubChatSessions{sessions: make(map[uuid.UUID]*models.ChatSession)},
		pub:      &recordingPublisher{},
		userID:   uuid.New(),
	}
	profiles := &stubProfiles{profile: &models.Profile{ID: f.userID, Name: "Rahim", Age: 17}}
	f.svc = NewChatService(f.gen, f.sessions, profiles, client, time.Hour, f.pub)
	return f
}

func TestShouldCheckpoint(t *testing.T) {
	var hits []int
	for n := 1; n <= 13; n++ {
		if ShouldCheckpoint(n-1, n) {
			hits = append(hits, n)
		}
	}
	if len(hits) != 3 || hits[0] != 4 || hits[1] != 8 || hits[2] != 12 {
		t.Fatalf("single-step checkpoints = %v, want [4 8 12]", hits)
	}

	if ShouldCheckpoint(0, 1) || ShouldCheckpoint(1, 3) || !ShouldCheckpoint(3, 5) || ShouldCheckpoint(5, 7) || !ShouldCheckpoint(7, 9) {
		t.Fatalf("pairwise growth after a greeting should checkpoint when crossing 4 and 8")
	}
	if !ShouldCheckpoint(2, 4) || ShouldCheckpoint(4, 6) {
		t.Fatalf("pairwise growth without a greeting should checkpoint at 4 only")
	}
}

func TestSessionTitle(t *testing.T) {
	long := strings.Repeat("আ", 40)
	title := SessionTitle([]models.ChatMessage{{Role: "model", Text: long}})
	if utf8.RuneCountInString(title) != 33 || !strings.HasSuffix(title, "...") {
		t.Fatalf("title = %q (%d runes)", title, utf8.RuneCountInString(title))
	}

	if got := SessionTitle([]models.ChatMessage{{Text: "Salam"}}); got != "Salam..." {
		t.Fatalf("short title = %q", got)
	}
}

func TestChatStart_StudentRequiresKnownClass(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	for _, class := range []string{"", "Class 11", "class 5"} {
		_, err := f.svc.Start(ctx, f.userID, models.StartChatRequest{Mode: models.ChatModeStudent, ClassLevel: class})
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Fields["class_level"] == "" {
			t.Fatalf("class %q: error = %v, want class_level ValidationError", class, err)
		}
	}
	if len(f.gen.calls) != 0 {
		t.Fatalf("rejected starts should not call the model")
	}

	conv, err := f.svc.Start(ctx, f.userID, models.StartChatRequest{Mode: models.ChatModeStudent, ClassLevel: "Class 10 (SSC)"})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if conv.ClassLevel != "Class 10 (SSC)" {
		t.Fatalf("class level = %q", conv.ClassLevel)
	}
	if !strings.Contains(f.gen.calls[0].SystemInstruction, "'Hidayah Tutor'") || !strings.Contains(f.gen.calls[0].SystemInstruction, "Class 10 (SSC)") {
		t.Fatalf("tutor instruction = %q", f.gen.calls[0].SystemInstruction)
	}
}

func TestChatStart_GreetingFallback(t *testing.T) {
	f := newChatFixture(t)
	f.gen.errs = []error{&AIError{Kind: ErrAIFailed, Message: msgAIFailed}}

	conv, err := f.svc.Start(context.Background(), f.userID, models.StartChatRequest{Mode: models.ChatModeSpiritual})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if len(conv.Messages) != 1 || conv.Messages[0].Text != "আসসালামু আলাইকুম Rahim! আমি হিদায়াহ এআই।" {
		t.Fatalf("messages = %+v", conv.Messages)
	}
	if !strings.Contains(f.gen.calls[0].SystemInstruction, "age 17") {
		t.Fatalf("spiritual instruction = %q", f.gen.calls[0].SystemInstruction)
	}
}

func TestChatSend_CheckpointsUpsertOneRow(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	conv, err := f.svc.Start(ctx, f.userID, models.StartChatRequest{Mode: models.ChatModeSpiritual})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	for i := 0; i < 4; i++ {
		if _, err := f.svc.Send(ctx, f.userID, models.SendMessageRequest{Text: "প্রশ্ন"}); err != nil {
			t.Fatalf("Send() #%d error = %v", i, err)
		}
	}

	// 1 -> 3 -> 5 -> 7 -> 9 crosses 4 and 8.
	if len(f.sessions.upserts) != 2 {
		t.Fatalf("upserts = %d, want 2", len(f.sessions.upserts))
	}
	for _, s := range f.sessions.upserts {
		if s.ID != conv.ID {
			t.Fatalf("checkpoint wrote a different row id")
		}
	}
	if got := len(f.sessions.upserts[1].Messages); got != 9 {
		t.Fatalf("second checkpoint has %d messages, want 9", got)
	}
	if f.sessions.upserts[0].Mode != models.ChatModeSpiritual {
		t.Fatalf("mode changed at checkpoint")
	}
	if len(f.pub.types) != 2 || f.pub.types[0] != "chat_saved" {
		t.Fatalf("published = %v", f.pub.types)
	}

	last := f.gen.calls[len(f.gen.calls)-1]
	if last.Prompt != "Current chat: প্রশ্ন. Answer in Bengali." || len(last.History) != 7 {
		t.Fatalf("prompt=%q history=%d", last.Prompt, len(last.History))
	}
}

func TestChatSend_ErrorTurnSkipsCheckpoint(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	_, _ = f.svc.Start(ctx, f.userID, models.StartChatRequest{Mode: models.ChatModeSpiritual})
	_, _ = f.svc.Send(ctx, f.userID, models.SendMessageRequest{Text: "one"})

	f.gen.errs = []error{nil, nil, errors.New("network")}
	conv, err := f.svc.Send(ctx, f.userID, models.SendMessageRequest{Text: "two"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got := conv.Messages[len(conv.Messages)-1]; got.Role != "model" || got.Text != "Error connecting to AI." {
		t.Fatalf("last message = %+v", got)
	}
	if len(conv.Messages) != 5 || len(f.sessions.upserts) != 0 {
		t.Fatalf("messages=%d upserts=%d, want 5 and 0", len(conv.Messages), len(f.sessions.upserts))
	}
}

func TestChatSend_EmptyReplyAndValidation(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Send(ctx, f.userID, models.SendMessageRequest{Text: "hi"}); err == nil {
		t.Fatalf("expected NotFoundError without an active conversation")
	}

	_, _ = f.svc.Start(ctx, f.userID, models.StartChatRequest{Mode: models.ChatModeSpiritual})

	var ve *ValidationError
	if _, err := f.svc.Send(ctx, f.userID, models.SendMessageRequest{Text: "   "}); !errors.As(err, &ve) {
		t.Fatalf("blank message error = %v, want ValidationError", err)
	}
	if _, err := f.svc.Send(ctx, f.userID, models.SendMessageRequest{Image: "not-a-data-uri"}); !errors.As(err, &ve) {
		t.Fatalf("bad image error = %v, want ValidationError", err)
	}

	f.gen.replies = []string{"greeting", "  "}
	conv, err := f.svc.Send(ctx, f.userID, models.SendMessageRequest{Image: "data:image/png;base64,aGVsbG8="})
	if err != nil {
		t.Fatalf("image-only Send() error = %v", err)
	}
	if conv.Messages[len(conv.Messages)-1].Text != "বুঝতে পারিনি।" {
		t.Fatalf("empty reply not replaced: %+v", conv.Messages)
	}
	if img := f.gen.calls[len(f.gen.calls)-1].Image; img == nil || img.MIMEType != "image/png" {
		t.Fatalf("image not forwarded: %+v", img)
	}
}

func TestChatLoadRestoresModeAndDeleteClearsActive(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	id := uuid.New()
	f.sessions.sessions[id] = &models.ChatSession{
		ID: id, UserID: f.userID, Mode: models.ChatModeStudent, ClassLevel: "HSC",
		Messages: []models.ChatMessage{{Role: "model", Text: "hello"}, {Role: "user", Text: "q"}},
	}

	conv, err := f.svc.Load(ctx, f.userID, id)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if conv.Mode != models.ChatModeStudent || conv.ClassLevel != "HSC" || len(conv.Messages) != 2 {
		t.Fatalf("loaded conversation = %+v", conv)
	}

	if _, err := f.svc.Load(ctx, uuid.New(), id); err == nil {
		t.Fatalf("another user loaded the session")
	}

	if err := f.svc.Delete(ctx, f.userID, id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := f.svc.Current(ctx, f.userID); err == nil {
		t.Fatalf("active copy of deleted session still present")
	}

	var nf *NotFoundError
	if err := f.svc.Delete(ctx, f.userID, id); !errors.As(err, &nf) {
		t.Fatalf("second Delete() error = %v, want NotFoundError", err)
	}
}
