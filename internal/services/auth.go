package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"sciencebindu-backend/internal/middleware"
	"sciencebindu-backend/internal/models"
	"sciencebindu-backend/internal/repository"
)

const (
	refreshTokenTTL  = 7 * 24 * time.Hour
	passwordResetTTL = time.Hour
	resetRequestGap  = 60 * time.Second

	msgInvalidCredentials = "ভুল ইমেইল অথবা পাসওয়ার্ড। দয়া করে সঠিক তথ্য দিয়ে চেষ্টা করুন।"
	msgEmailTaken         = "এই ইমেইল দিয়ে আগেই অ্যাকাউন্ট খোলা হয়েছে।"
	msgSessionExpired     = "সেশনের মেয়াদ শেষ। আবার লগইন করুন।"
	msgResetLinkInvalid   = "রিসেট লিঙ্কটি অকার্যকর অথবা মেয়াদোত্তীর্ণ।"
	msgResetTooSoon       = "কিছুক্ষণ পর আবার রিসেট লিঙ্কের অনুরোধ করুন।"
)

type userStore interface {
	CreateWithProfile(ctx context.Context, user *models.User, profile *models.Profile) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
}

type AuthService struct {
	users      userStore
	redis      *redis.Client
	jwt        *middleware.JWTAuth
	mail       mailEnqueuer
	publisher  updatePublisher
	bcryptCost int
}

func NewAuthService(users userStore, redisClient *redis.Client, jwt *middleware.JWTAuth, mail mailEnqueuer, publisher updatePublisher) *AuthService {
	return &AuthService{
		users:      users,
		redis:      redisClient,
		jwt:        jwt,
		mail:       mail,
		publisher:  publisher,
		bcryptCost: 12,
	}
}

// SignUp creates the account and its profile together, then signs the user in.
func (s *AuthService) SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthTokens, error) {
	email := normalizeEmail(req.Email)

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return nil, &ConflictError{Message: msgEmailTaken}
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Email: email, PasswordHash: string(hash)}
	profile := &models.Profile{
		Name:       strings.TrimSpace(req.Name),
		Age:        req.Age,
		BirthYear:  req.BirthYear,
		Profession: strings.TrimSpace(req.Profession),
	}
	if err := s.users.CreateWithProfile(ctx, user, profile); err != nil {
		return nil, err
	}

	return s.startSession(ctx, user)
}

func (s *AuthService) SignIn(ctx context.Context, req models.SignInRequest) (*models.AuthTokens, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &UnauthorizedError{Message: msgInvalidCredentials}
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, &UnauthorizedError{Message: msgInvalidCredentials}
	}

	return s.startSession(ctx, user)
}

// Refresh rotates a refresh token: the presented token is consumed either way.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.AuthTokens, error) {
	userIDStr, err := s.redis.GetDel(ctx, refreshKey(refreshToken)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, &UnauthorizedError{Message: msgSessionExpired}
		}
		return nil, err
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID: %w", err)
	}
	s.redis.SRem(ctx, userRefreshSetKey(userID), refreshToken)

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &UnauthorizedError{Message: msgSessionExpired}
		}
		return nil, err
	}

	return s.issueTokens(ctx, user)
}

// SignOut revokes the given refresh token if it belongs to userID.
func (s *AuthService) SignOut(ctx context.Context, userID uuid.UUID, refreshToken string) error {
	if refreshToken != "" {
		owner, err := s.redis.Get(ctx, refreshKey(refreshToken)).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if owner == userID.String() {
			pipe := s.redis.TxPipeline()
			pipe.Del(ctx, refreshKey(refreshToken))
			pipe.SRem(ctx, userRefreshSetKey(userID), refreshToken)
			if _, err := pipe.Exec(ctx); err != nil {
				return err
			}
		}
	}

	s.publishSession(ctx, userID, "signed_out")
	return nil
}

// RequestPasswordReset queues a reset mail. Unknown addresses succeed silently.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	limited, err := s.redis.SetNX(ctx, "reset_limit:"+user.ID.String(), "1", resetRequestGap).Result()
	if err != nil {
		return err
	}
	if !limited {
		return &RateLimitError{Message: msgResetTooSoon}
	}

	token, err := generateToken(32)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, passwordResetKey(token), user.ID.String(), passwordResetTTL).Err(); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	return s.mail.Enqueue(ctx, models.MailPasswordReset, user.Email, models.PasswordResetMail{Token: token})
}

// ConfirmPasswordReset sets a new password and revokes every refresh token.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, password string) error {
	userIDStr, err := s.redis.GetDel(ctx, passwordResetKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &UnauthorizedError{Message: msgResetLinkInvalid}
		}
		return err
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return fmt.Errorf("invalid user ID in reset token: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}

	if err := s.revokeAll(ctx, userID); err != nil {
		log.Printf("password reset: failed to revoke sessions for user %s: %v", userID, err)
	}
	s.publishSession(ctx, userID, "password_reset")
	return nil
}

func (s *AuthService) revokeAll(ctx context.Context, userID uuid.UUID) error {
	setKey := userRefreshSetKey(userID)
	tokens, err := s.redis.SMembers(ctx, setKey).Result()
	if err != nil {
		return err
	}
	keys := []string{setKey}
	for _, t := range tokens {
		keys = append(keys, refreshKey(t))
	}
	return s.redis.Del(ctx, keys...).Err()
}

func (s *AuthService) startSession(ctx context.Context, user *models.User) (*models.AuthTokens, error) {
	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	s.publishSession(ctx, user.ID, "signed_in")
	return tokens, nil
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*models.AuthTokens, error) {
	accessToken, err := s.jwt.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := generateToken(64)
	if err != nil {
		return nil, err
	}

	setKey := userRefreshSetKey(user.ID)
	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, refreshKey(refreshToken), user.ID.String(), refreshTokenTTL)
	pipe.SAdd(ctx, setKey, refreshToken)
	pipe.Expire(ctx, setKey, refreshTokenTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &models.AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(middleware.AccessTokenTTL.Seconds()),
	}, nil
}

func (s *AuthService) publishSession(ctx context.Context, userID uuid.UUID, event string) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishUpdate(ctx, userID, models.WSMessage{
		Type:    "session_changed",
		Payload: models.SessionChangedEvent{Event: event},
	})
}

// SignUpFailureMessage is the text shown when an account could not be created.
func SignUpFailureMessage(err error) string {
	if errors.Is(err, repository.ErrProfileCreate) {
		return "প্রোফাইল সেভ করতে সমস্যা হয়েছে। দয়া করে আবার চেষ্টা করুন।"
	}
	return "সাইন আপ করতে সমস্যা হয়েছে।"
}

func refreshKey(token string) string {
	return "refresh:" + token
}

func passwordResetKey(token string) string {
	return "password_reset:" + token
}

func userRefreshSetKey(userID uuid.UUID) string {
	return "user_refresh:" + userID.String()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func generateToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
