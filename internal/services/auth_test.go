package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"sciencebindu-backend/internal/middleware"
	"sciencebindu-backend/internal/models"
	"sciencebindu-backend/internal/repository"
)

type memoryUsers struct {
	byID      map[uuid.UUID]*models.User
	profiles  map[uuid.UUID]*models.Profile
	createErr error
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byID: map[uuid.UUID]*models.User{}, profiles: map[uuid.UUID]*models.Profile{}}
}

func (m *memoryUsers) CreateWithProfile(ctx context.Context, user *models.User, profile *models.Profile) error {
	if m.createErr != nil {
		return m.createErr
	}
	user.ID = uuid.New()
	profile.ID = user.ID
	u := *user
	p := *profile
	m.byID[user.ID] = &u
	m.profiles[user.ID] = &p
	return nil
}

func (m *memoryUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.byID {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memoryUsers) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (m *memoryUsers) UpdatePassword(ctx context.Context, userID uuid.UUID, hash string) error {
	u, ok := m.byID[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	u.PasswordHash = hash
	return nil
}

type authFixture struct {
	svc   *AuthService
	users *memoryUsers
	mail  *stubMailQueue
	pub   *recordingPublisher
	mr    *miniredis.Miniredis
	jwt   *middleware.JWTAuth
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	f := &authFixture{
		users: newMemoryUsers(),
		mail:  &stubMailQueue{},
		pub:   &recordingPublisher{},
		mr:    mr,
		jwt:   middleware.NewJWTAuth("test-secret"),
	}
	f.svc = NewAuthService(f.users, rdb, f.jwt, f.mail, f.pub)
	f.svc.bcryptCost = bcrypt.MinCost
	return f
}

func (f *authFixture) signUp(t *testing.T) *models.AuthTokens {
	t.Helper()
	tokens, err := f.svc.SignUp(context.Background(), models.SignUpRequest{
		Name: " Rahim ", Email: "Rahim@Example.com ", Password: "secret1", Age: 20, BirthYear: 2006, Profession: "Student",
	})
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	return tokens
}

func TestSignUp_CreatesProfileAndSignsIn(t *testing.T) {
	f := newAuthFixture(t)
	tokens := f.signUp(t)

	userID, err := f.jwt.ParseAccessToken(tokens.AccessToken)
	if err != nil {
		t.Fatalf("access token invalid: %v", err)
	}
	if f.users.byID[userID].Email != "rahim@example.com" {
		t.Fatalf("email = %q, want normalized", f.users.byID[userID].Email)
	}
	if p := f.users.profiles[userID]; p.Name != "Rahim" || p.BirthYear != 2006 {
		t.Fatalf("profile = %+v", p)
	}
	if tokens.ExpiresIn != 900 {
		t.Fatalf("expires_in = %d", tokens.ExpiresIn)
	}
	if ttl := f.mr.TTL("refresh:" + tokens.RefreshToken); ttl != 7*24*time.Hour {
		t.Fatalf("refresh ttl = %v", ttl)
	}
	if len(f.pub.msgs) != 1 || f.pub.msgs[0].Payload.(models.SessionChangedEvent).Event != "signed_in" {
		t.Fatalf("published = %+v", f.pub.msgs)
	}

	_, err = f.svc.SignUp(context.Background(), models.SignUpRequest{Email: "rahim@example.com", Password: "x"})
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("duplicate sign-up err = %v, want ConflictError", err)
	}
}

func TestSignUp_ProfileFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.users.createErr = fmt.Errorf("%w: boom", repository.ErrProfileCreate)

	_, err := f.svc.SignUp(context.Background(), models.SignUpRequest{Email: "a@b.com", Password: "secret1"})
	if !errors.Is(err, repository.ErrProfileCreate) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(SignUpFailureMessage(err), "প্রোফাইল") {
		t.Fatalf("message = %q", SignUpFailureMessage(err))
	}
	if len(f.pub.msgs) != 0 {
		t.Fatalf("no session event expected")
	}
}

func TestSignIn(t *testing.T) {
	f := newAuthFixture(t)
	f.signUp(t)

	if _, err := f.svc.SignIn(context.Background(), models.SignInRequest{Email: "RAHIM@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	for _, req := range []models.SignInRequest{
		{Email: "rahim@example.com", Password: "wrong"},
		{Email: "nobody@example.com", Password: "secret1"},
	} {
		_, err := f.svc.SignIn(context.Background(), req)
		var ue *UnauthorizedError
		if !errors.As(err, &ue) || ue.Message != msgInvalidCredentials {
			t.Fatalf("SignIn(%s) err = %v, want localized UnauthorizedError", req.Email, err)
		}
	}
}

func TestRefresh_RotatesToken(t *testing.T) {
	f := newAuthFixture(t)
	first := f.signUp(t)

	second, err := f.svc.Refresh(context.Background(), first.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatalf("refresh token not rotated")
	}

	_, err = f.svc.Refresh(context.Background(), first.RefreshToken)
	var ue *UnauthorizedError
	if !errors.As(err, &ue) {
		t.Fatalf("reused token err = %v, want UnauthorizedError", err)
	}
}

func TestSignOut_RevokesOnlyOwnToken(t *testing.T) {
	f := newAuthFixture(t)
	tokens := f.signUp(t)
	userID, _ := f.jwt.ParseAccessToken(tokens.AccessToken)

	if err := f.svc.SignOut(context.Background(), uuid.New(), tokens.RefreshToken); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}
	if !f.mr.Exists("refresh:" + tokens.RefreshToken) {
		t.Fatalf("another user's sign-out revoked the token")
	}

	if err := f.svc.SignOut(context.Background(), userID, tokens.RefreshToken); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}
	if f.mr.Exists("refresh:" + tokens.RefreshToken) {
		t.Fatalf("refresh token still present")
	}
	last := f.pub.msgs[len(f.pub.msgs)-1]
	if last.Type != "session_changed" || last.Payload.(models.SessionChangedEvent).Event != "signed_out" {
		t.Fatalf("last event = %+v", last)
	}
}

func TestPasswordReset_Flow(t *testing.T) {
	f := newAuthFixture(t)
	tokens := f.signUp(t)

	if err := f.svc.RequestPasswordReset(context.Background(), "rahim@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset() error = %v", err)
	}
	if len(f.mail.queued) != 1 || f.mail.queued[0].mailType != models.MailPasswordReset {
		t.Fatalf("queued = %+v", f.mail.queued)
	}
	resetToken := f.mail.queued[0].payload.(models.PasswordResetMail).Token
	if ttl := f.mr.TTL("password_reset:" + resetToken); ttl != time.Hour {
		t.Fatalf("reset ttl = %v", ttl)
	}

	var rl *RateLimitError
	if err := f.svc.RequestPasswordReset(context.Background(), "rahim@example.com"); !errors.As(err, &rl) {
		t.Fatalf("second request err = %v, want RateLimitError", err)
	}

	if err := f.svc.ConfirmPasswordReset(context.Background(), resetToken, "newpass1"); err != nil {
		t.Fatalf("ConfirmPasswordReset() error = %v", err)
	}
	if f.mr.Exists("refresh:" + tokens.RefreshToken) {
		t.Fatalf("existing sessions must be revoked")
	}
	if _, err := f.svc.SignIn(context.Background(), models.SignInRequest{Email: "rahim@example.com", Password: "newpass1"}); err != nil {
		t.Fatalf("sign-in with new password error = %v", err)
	}

	var ue *UnauthorizedError
	if err := f.svc.ConfirmPasswordReset(context.Background(), resetToken, "again12"); !errors.As(err, &ue) {
		t.Fatalf("reused reset token err = %v, want UnauthorizedError", err)
	}
}

func TestPasswordReset_UnknownEmailIsSilent(t *testing.T) {
	f := newAuthFixture(t)
	if err := f.svc.RequestPasswordReset(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
	if len(f.mail.queued) != 0 {
		t.Fatalf("no mail should be queued")
	}
}
